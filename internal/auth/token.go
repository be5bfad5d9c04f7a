// Package auth implements the token service from spec.md §4.7: HS256
// session tokens tagged with a purpose and bound to an originating IP.
package auth

import (
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Purpose tags what a token may be used for, per spec.md §3.
type Purpose string

const (
	PurposeAccess         Purpose = "access"
	PurposeMFAVerification Purpose = "mfa_verification"
)

// MaxTokenAge bounds how old a token's iat may be regardless of its exp,
// per spec.md §3 and testable property P7.
const MaxTokenAge = 86400 * time.Second

// ClockSkew is the leeway applied to exp/iat comparisons, per spec.md §4.7.
const ClockSkew = 30 * time.Second

var (
	ErrWrongPurpose = errors.New("auth: token purpose mismatch")
	ErrTooOld       = errors.New("auth: token exceeds max age")
	ErrIPMismatch   = errors.New("auth: token ip binding mismatch")
)

// Claims is the JWT payload Sectify issues and verifies.
type Claims struct {
	Purpose   Purpose `json:"purpose"`
	SessionID string  `json:"session_id,omitempty"`
	IPHash    string  `json:"ip_hash,omitempty"`
	jwt.RegisteredClaims
}

// Service issues and verifies HS256 tokens signed with secret.
type Service struct {
	secret   []byte
	accessTTL time.Duration
	mfaTTL    time.Duration
}

// NewService constructs a token Service. secret is the process-wide master
// secret (or a key derived from it); accessTTL/mfaTTL come from
// TOKEN_TTL_ACCESS_MIN / TOKEN_TTL_MFA_MIN.
func NewService(secret []byte, accessTTL, mfaTTL time.Duration) *Service {
	return &Service{secret: secret, accessTTL: accessTTL, mfaTTL: mfaTTL}
}

// IssueAccess mints a 30-minute access token bound to sessionID and ipHash.
func (s *Service) IssueAccess(userID, sessionID string, ipHash []byte) (string, error) {
	return s.issue(PurposeAccess, userID, sessionID, ipHash, s.accessTTL)
}

// IssueMFA mints a 5-minute MFA-verification token.
func (s *Service) IssueMFA(userID string, ipHash []byte) (string, error) {
	return s.issue(PurposeMFAVerification, userID, "", ipHash, s.mfaTTL)
}

func (s *Service) issue(purpose Purpose, userID, sessionID string, ipHash []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Purpose:   purpose,
		SessionID: sessionID,
		IPHash:    hex.EncodeToString(ipHash),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify parses tokenString, requiring it to carry wantPurpose, and checks
// expiry, max-age, and (when callerIPHash is non-empty) IP binding.
func (s *Service) Verify(tokenString string, wantPurpose Purpose, callerIPHash []byte) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}), jwt.WithLeeway(ClockSkew))
	if err != nil {
		return nil, err
	}

	if claims.Purpose != wantPurpose {
		return nil, ErrWrongPurpose
	}

	if claims.IssuedAt != nil && time.Since(claims.IssuedAt.Time) > MaxTokenAge+ClockSkew {
		return nil, ErrTooOld
	}

	if len(callerIPHash) > 0 {
		want := hex.EncodeToString(callerIPHash)
		if claims.IPHash != "" && claims.IPHash != want {
			return nil, ErrIPMismatch
		}
	}

	return claims, nil
}
