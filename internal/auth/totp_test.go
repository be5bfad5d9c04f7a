package auth

import (
	"encoding/base32"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestVerifyTOTPAcceptsCurrentStep(t *testing.T) {
	secret := GenerateTOTPSecret([]byte("0123456789abcdef"))
	now := time.Unix(1_700_000_000, 0)
	code := totp(mustDecodeSecret(t, secret), now.Unix()/int64(TOTPStep/time.Second))

	require.NoError(t, VerifyTOTP(secret, code, now))
}

func TestVerifyTOTPAcceptsAdjacentStep(t *testing.T) {
	secret := GenerateTOTPSecret([]byte("0123456789abcdef"))
	now := time.Unix(1_700_000_000, 0)
	prevCounter := now.Unix()/int64(TOTPStep/time.Second) - 1
	code := totp(mustDecodeSecret(t, secret), prevCounter)

	require.NoError(t, VerifyTOTP(secret, code, now))
}

func TestVerifyTOTPRejectsWrongCode(t *testing.T) {
	secret := GenerateTOTPSecret([]byte("0123456789abcdef"))
	err := VerifyTOTP(secret, "000000", time.Unix(1_700_000_000, 0))
	require.ErrorIs(t, err, ErrInvalidTOTPCode)
}

func TestVerifyTOTPRejectsStaleCode(t *testing.T) {
	secret := GenerateTOTPSecret([]byte("0123456789abcdef"))
	now := time.Unix(1_700_000_000, 0)
	staleCounter := now.Unix()/int64(TOTPStep/time.Second) - (TOTPWindow + 1)
	code := totp(mustDecodeSecret(t, secret), staleCounter)

	err := VerifyTOTP(secret, code, now)
	require.ErrorIs(t, err, ErrInvalidTOTPCode)
}

func mustDecodeSecret(t *testing.T, secret string) []byte {
	t.Helper()
	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(secret)
	require.NoError(t, err)
	return key
}
