package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerifyAccessToken(t *testing.T) {
	svc := NewService([]byte("topsecretvalue1234567890"), 30*time.Minute, 5*time.Minute)
	ipHash := IPHash([]byte("topsecretvalue1234567890"), "192.168.0.1")

	tok, err := svc.IssueAccess("user-1", "session-1", ipHash)
	require.NoError(t, err)

	claims, err := svc.Verify(tok, PurposeAccess, ipHash)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "session-1", claims.SessionID)
}

func TestVerifyRejectsWrongPurpose(t *testing.T) {
	svc := NewService([]byte("topsecretvalue1234567890"), 30*time.Minute, 5*time.Minute)
	tok, err := svc.IssueMFA("user-1", nil)
	require.NoError(t, err)

	_, err = svc.Verify(tok, PurposeAccess, nil)
	require.ErrorIs(t, err, ErrWrongPurpose)
}

func TestVerifyRejectsIPMismatch(t *testing.T) {
	svc := NewService([]byte("topsecretvalue1234567890"), 30*time.Minute, 5*time.Minute)
	mintedIP := IPHash([]byte("topsecretvalue1234567890"), "192.168.0.1")
	otherIP := IPHash([]byte("topsecretvalue1234567890"), "10.0.0.1")

	tok, err := svc.IssueAccess("user-1", "session-1", mintedIP)
	require.NoError(t, err)

	_, err = svc.Verify(tok, PurposeAccess, otherIP)
	require.ErrorIs(t, err, ErrIPMismatch)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := NewService([]byte("topsecretvalue1234567890"), -time.Minute, 5*time.Minute)
	tok, err := svc.IssueAccess("user-1", "session-1", nil)
	require.NoError(t, err)

	_, err = svc.Verify(tok, PurposeAccess, nil)
	require.Error(t, err)
}

func TestVerifyRejectsTokenOlderThanMaxAge(t *testing.T) {
	secret := []byte("topsecretvalue1234567890")
	svc := NewService(secret, 30*time.Minute, 5*time.Minute)

	now := time.Now().Add(-MaxTokenAge - time.Hour)
	claims := Claims{
		Purpose: PurposeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(2 * MaxTokenAge)),
		},
	}
	tokStr, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)

	_, err = svc.Verify(tokStr, PurposeAccess, nil)
	require.ErrorIs(t, err, ErrTooOld)
}
