package user

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/sectify/sectify/internal/auth"
	"github.com/sectify/sectify/internal/platformerrors"
)

type memRepo struct {
	byEmail map[string]*User
}

func newMemRepo() *memRepo { return &memRepo{byEmail: make(map[string]*User)} }

func (r *memRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.byEmail[email], nil
}
func (r *memRepo) FindByID(ctx context.Context, id string) (*User, error) {
	for _, u := range r.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}
func (r *memRepo) Create(ctx context.Context, u *User) error {
	r.byEmail[u.Email] = u
	return nil
}

func TestHashAndVerifyPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct-horse-battery-staple")
	require.NoError(t, err)
	require.True(t, VerifyPassword(hash, "correct-horse-battery-staple"))
	require.False(t, VerifyPassword(hash, "wrong-password"))
}

func TestSignupRejectsDuplicateEmail(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, []byte("a-very-secret-master-value-ok!!"), zerolog.Nop(), 5, time.Minute)

	_, err := svc.Signup(context.Background(), "Alice", "alice@example.com", "password123")
	require.NoError(t, err)

	_, err = svc.Signup(context.Background(), "Alice Two", "alice@example.com", "password456")
	require.True(t, platformerrors.Is(err, platformerrors.KindConflict))
}

func TestAuthenticateThrottlesAfterRepeatedFailures(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, []byte("a-very-secret-master-value-ok!!"), zerolog.Nop(), 3, time.Minute)

	_, err := svc.Signup(context.Background(), "Alice", "alice@example.com", "correct-password")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = svc.Authenticate(context.Background(), "alice@example.com", "wrong-password")
		require.True(t, platformerrors.Is(err, platformerrors.KindAuthRequired))
	}

	_, err = svc.Authenticate(context.Background(), "alice@example.com", "correct-password")
	require.True(t, platformerrors.Is(err, platformerrors.KindThrottled))
}

func TestAuthenticateSucceedsAndResetsFailures(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, []byte("a-very-secret-master-value-ok!!"), zerolog.Nop(), 3, time.Minute)

	_, err := svc.Signup(context.Background(), "Alice", "alice@example.com", "correct-password")
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), "alice@example.com", "wrong-password")
	require.Error(t, err)

	u, err := svc.Authenticate(context.Background(), "alice@example.com", "correct-password")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", u.Email)
}

func TestVerifyMFACodeAcceptsCurrentCode(t *testing.T) {
	masterSecret := []byte("a-very-secret-master-value-ok!!")
	repo := newMemRepo()
	svc := NewService(repo, masterSecret, zerolog.Nop(), 5, time.Minute)

	u, err := svc.Signup(context.Background(), "Alice", "alice@example.com", "correct-password")
	require.NoError(t, err)

	secret := auth.GenerateTOTPSecret([]byte("0123456789abcdef"))
	encrypted, err := EncryptMFASecret(masterSecret, u.ID, secret)
	require.NoError(t, err)
	u.MFASecret = &encrypted
	require.NoError(t, repo.Create(context.Background(), u))

	code, err := auth.CurrentTOTPCode(secret, time.Now())
	require.NoError(t, err)

	require.NoError(t, svc.VerifyMFACode(context.Background(), u.ID, code))
}

func TestVerifyMFACodeRejectsWrongCode(t *testing.T) {
	masterSecret := []byte("a-very-secret-master-value-ok!!")
	repo := newMemRepo()
	svc := NewService(repo, masterSecret, zerolog.Nop(), 5, time.Minute)

	u, err := svc.Signup(context.Background(), "Alice", "alice@example.com", "correct-password")
	require.NoError(t, err)

	secret := auth.GenerateTOTPSecret([]byte("0123456789abcdef"))
	encrypted, err := EncryptMFASecret(masterSecret, u.ID, secret)
	require.NoError(t, err)
	u.MFASecret = &encrypted
	require.NoError(t, repo.Create(context.Background(), u))

	err = svc.VerifyMFACode(context.Background(), u.ID, "000000")
	require.True(t, platformerrors.Is(err, platformerrors.KindInvalid))
}
