package auth

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"strconv"
	"time"
)

// TOTPStep and TOTPDigits fix the RFC 6238 parameters spec.md §4.2's
// verify-2fa endpoint checks a submitted code against.
const (
	TOTPStep   = 30 * time.Second
	TOTPDigits = 6
	// TOTPWindow lets a code from one step before or after the current one
	// pass, absorbing clock drift between the server and an authenticator
	// app.
	TOTPWindow = 1
)

// ErrInvalidTOTPCode means the submitted code matched no step within the
// allowed window.
var ErrInvalidTOTPCode = errors.New("auth: invalid totp code")

// VerifyTOTP checks code against the RFC 6238 TOTP derived from secret
// (a base32-encoded shared secret, as stored in User.MFASecret) at the
// given instant, trying steps within ±TOTPWindow to absorb clock drift.
func VerifyTOTP(secret, code string, at time.Time) error {
	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(normalizeBase32(secret))
	if err != nil {
		return err
	}

	counter := at.Unix() / int64(TOTPStep/time.Second)
	for offset := -TOTPWindow; offset <= TOTPWindow; offset++ {
		if totp(key, counter+int64(offset)) == code {
			return nil
		}
	}
	return ErrInvalidTOTPCode
}

func totp(key []byte, counter int64) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(counter))

	mac := hmac.New(sha1.New, key)
	mac.Write(buf[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	truncated := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	mod := uint32(1)
	for i := 0; i < TOTPDigits; i++ {
		mod *= 10
	}
	return zeroPad(truncated%mod, TOTPDigits)
}

func zeroPad(v uint32, width int) string {
	s := strconv.FormatUint(uint64(v), 10)
	for len(s) < width {
		s = "0" + s
	}
	return s
}

func normalizeBase32(secret string) string {
	out := make([]byte, 0, len(secret))
	for i := 0; i < len(secret); i++ {
		c := secret[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if c == '=' || c == ' ' {
			continue
		}
		out = append(out, c)
	}
	return string(out)
}

// CurrentTOTPCode returns the code secret produces at instant at, without
// the ±window tolerance VerifyTOTP applies. Used by provisioning flows
// that need to show a user a code to confirm enrollment, and by tests.
func CurrentTOTPCode(secret string, at time.Time) (string, error) {
	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(normalizeBase32(secret))
	if err != nil {
		return "", err
	}
	counter := at.Unix() / int64(TOTPStep/time.Second)
	return totp(key, counter), nil
}

// GenerateTOTPSecret returns a fresh base32 secret suitable for storing in
// User.MFASecret and rendering into a provisioning URI, per spec.md §4.2's
// signup flow.
func GenerateTOTPSecret(random []byte) string {
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(random)
}
