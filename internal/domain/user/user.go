// Package user implements account storage and authentication. Sign-up/login
// UX is explicitly out of scope per spec.md §1; this package exists only so
// the authorization and token services (C6/C7) have a real subject to bind
// to, plus the login-throttle behavior named in spec.md §8 scenario 6.
package user

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/argon2"

	"github.com/sectify/sectify/internal/auth"
	sectifycrypto "github.com/sectify/sectify/internal/domain/crypto"
	"github.com/sectify/sectify/internal/platformerrors"
)

// User is the account record from spec.md §3. PasswordHash and MFASecret
// are never serialized onto the wire; handlers project onto a response DTO
// instead of marshaling this type directly.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	MFASecret    *string // encrypted at rest by the caller before storage
	CreatedAt    time.Time
}

// Repository persists User records.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, u *User) error
}

// argon2 parameters, grounded on the same call shape used for master-key
// derivation elsewhere in the retrieved pack: 1 pass, 64 MiB, 4 lanes,
// 32-byte output.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

// HashPassword derives an argon2id hash and encodes it with its salt and
// parameters into one string suitable for PasswordHash.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash)), nil
}

// VerifyPassword checks password against an encoded hash produced by
// HashPassword, using a constant-time comparison on the derived key.
func VerifyPassword(encoded, password string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return false
	}
	var mem uint32
	var t uint32
	var p uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &t, &p); err != nil {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}
	got := argon2.IDKey([]byte(password), salt, t, mem, p, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}

type failWindow struct {
	count     int
	windowEnd time.Time
}

// Service provides signup/authenticate with a login-failure throttle.
type Service struct {
	repo         Repository
	log          zerolog.Logger
	masterSecret []byte

	threshold int
	window    time.Duration

	mu       sync.Mutex
	failures map[string]*failWindow
}

// NewService constructs the user Service. threshold/window implement the
// login throttle from spec.md §8 scenario 6 (5 failures in 60s => 429).
// masterSecret is the same process-wide secret the track and token
// services use; it encrypts/decrypts MFASecret at rest.
func NewService(repo Repository, masterSecret []byte, log zerolog.Logger, threshold int, window time.Duration) *Service {
	return &Service{
		repo:         repo,
		log:          log.With().Str("component", "user-service").Logger(),
		masterSecret: masterSecret,
		threshold:    threshold,
		window:       window,
		failures:     make(map[string]*failWindow),
	}
}

// Signup creates a new account, returning Conflict if email is already
// registered.
func (s *Service) Signup(ctx context.Context, name, email, password string) (*User, error) {
	if existing, err := s.repo.FindByEmail(ctx, email); err != nil {
		return nil, platformerrors.New(ctx, platformerrors.LayerDomain, platformerrors.KindInternal, "lookup existing account", err)
	} else if existing != nil {
		return nil, platformerrors.New(ctx, platformerrors.LayerDomain, platformerrors.KindConflict, "email already registered", nil)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, platformerrors.New(ctx, platformerrors.LayerDomain, platformerrors.KindInternal, "hash password", err)
	}

	u := &User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, platformerrors.New(ctx, platformerrors.LayerDomain, platformerrors.KindInternal, "create account", err)
	}
	return u, nil
}

// Authenticate verifies email/password, applying the login-failure
// throttle before consulting storage so a flood of guesses never reaches
// the password hash comparison.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	if s.throttled(email) {
		return nil, platformerrors.New(ctx, platformerrors.LayerDomain, platformerrors.KindThrottled, "too many failed login attempts", nil)
	}

	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, platformerrors.New(ctx, platformerrors.LayerDomain, platformerrors.KindInternal, "lookup account", err)
	}
	if u == nil || !VerifyPassword(u.PasswordHash, password) {
		s.recordFailure(email)
		return nil, platformerrors.New(ctx, platformerrors.LayerDomain, platformerrors.KindAuthRequired, "invalid credentials", nil)
	}

	s.resetFailures(email)
	return u, nil
}

// FindByID loads a user by id, for handlers resolving the subject of an
// already-verified token.
func (s *Service) FindByID(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, platformerrors.New(ctx, platformerrors.LayerDomain, platformerrors.KindInternal, "lookup account", err)
	}
	if u == nil {
		return nil, platformerrors.New(ctx, platformerrors.LayerDomain, platformerrors.KindNotFound, "account not found", nil)
	}
	return u, nil
}

// RequiresMFA reports whether u must complete the verify-2fa step before
// receiving an access token.
func (u *User) RequiresMFA() bool { return u.MFASecret != nil && *u.MFASecret != "" }

// VerifyMFACode decrypts userID's MFASecret and checks code against it,
// per spec.md §6's verify-2fa step. A bad or expired code surfaces as
// Invalid (§7: "bad 2FA codes" are a 400, not a 401/403).
func (s *Service) VerifyMFACode(ctx context.Context, userID, code string) error {
	u, err := s.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !u.RequiresMFA() {
		return platformerrors.New(ctx, platformerrors.LayerDomain, platformerrors.KindInvalid, "mfa is not enabled for this account", nil)
	}

	secret, err := decryptMFASecret(s.masterSecret, userID, *u.MFASecret)
	if err != nil {
		return platformerrors.New(ctx, platformerrors.LayerDomain, platformerrors.KindIntegrityError, "decrypt mfa secret", err)
	}

	if err := auth.VerifyTOTP(secret, code, time.Now()); err != nil {
		return platformerrors.New(ctx, platformerrors.LayerDomain, platformerrors.KindInvalid, "invalid 2fa code", nil)
	}
	return nil
}

// EncryptMFASecret seals a freshly generated TOTP secret for storage in
// User.MFASecret, under a key derived from the process master secret and
// the owning user's id.
func EncryptMFASecret(masterSecret []byte, userID, secret string) (string, error) {
	key := sectifycrypto.DeriveMFAKey(masterSecret, userID)
	envelope, err := sectifycrypto.EncryptFile([]byte(secret), key)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(envelope), nil
}

func decryptMFASecret(masterSecret []byte, userID, encoded string) (string, error) {
	envelope, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	key := sectifycrypto.DeriveMFAKey(masterSecret, userID)
	plaintext, err := sectifycrypto.DecryptFile(envelope, key)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func (s *Service) throttled(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	fw, ok := s.failures[email]
	if !ok {
		return false
	}
	if time.Now().After(fw.windowEnd) {
		delete(s.failures, email)
		return false
	}
	return fw.count >= s.threshold
}

func (s *Service) recordFailure(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fw, ok := s.failures[email]
	now := time.Now()
	if !ok || now.After(fw.windowEnd) {
		s.failures[email] = &failWindow{count: 1, windowEnd: now.Add(s.window)}
		return
	}
	fw.count++
}

func (s *Service) resetFailures(email string) {
	s.mu.Lock()
	delete(s.failures, email)
	s.mu.Unlock()
}
