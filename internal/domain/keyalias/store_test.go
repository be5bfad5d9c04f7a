package keyalias

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMintAndResolveRoundTrip(t *testing.T) {
	s := New()
	key := []byte("0123456789abcdef")

	alias, err := s.MintBound(context.Background(), key, "user-1", "iphash-a")
	require.NoError(t, err)
	require.Len(t, alias, 32) // 16 bytes hex-encoded

	got, err := s.Resolve(context.Background(), alias, "user-1", "iphash-a")
	require.NoError(t, err)
	require.Equal(t, key, got)
}

func TestResolveUnknownAliasIsNotFound(t *testing.T) {
	s := New()
	_, err := s.Resolve(context.Background(), "deadbeef", "user-1", "iphash-a")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestResolveWrongOwnerIsForbidden(t *testing.T) {
	s := New()
	alias, err := s.MintBound(context.Background(), []byte("key"), "user-1", "iphash-a")
	require.NoError(t, err)

	_, err = s.Resolve(context.Background(), alias, "user-2", "iphash-a")
	require.ErrorIs(t, err, ErrForbidden)
}

func TestResolveWrongIPHashIsForbidden(t *testing.T) {
	s := New()
	alias, err := s.MintBound(context.Background(), []byte("key"), "user-1", "iphash-a")
	require.NoError(t, err)

	_, err = s.Resolve(context.Background(), alias, "user-1", "iphash-b")
	require.ErrorIs(t, err, ErrForbidden)
}

func TestExpiredAliasIsNotFound(t *testing.T) {
	s := New()
	s.ttl = time.Millisecond
	alias, err := s.MintBound(context.Background(), []byte("key"), "user-1", "iphash-a")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	_, err = s.Resolve(context.Background(), alias, "user-1", "iphash-a")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestResolveWithEmptyOwnerIsWildcard(t *testing.T) {
	s := New()
	alias, err := s.MintBound(context.Background(), []byte("key"), "", "iphash-a")
	require.NoError(t, err)

	got, err := s.Resolve(context.Background(), alias, "any-caller", "iphash-a")
	require.NoError(t, err)
	require.Equal(t, []byte("key"), got)
}

func TestSweepRemovesExpired(t *testing.T) {
	s := New()
	s.ttl = time.Millisecond
	_, err := s.MintBound(context.Background(), []byte("key"), "user-1", "iphash-a")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	require.Equal(t, 1, s.Sweep())
	require.Equal(t, 0, s.Len())
}
