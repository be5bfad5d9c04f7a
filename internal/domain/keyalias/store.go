// Package keyalias implements the just-in-time key alias indirection from
// spec.md §4.5: segment keys are never placed in a URL directly, only an
// opaque alias that resolves server-side, bound to the owning user (empty
// for public tracks) and the coarse IP that minted it.
package keyalias

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"sync"
	"time"
)

// TTL is how long a minted alias remains resolvable.
const TTL = 5 * time.Minute

var (
	// ErrNotFound covers both an unknown alias and an expired one; the
	// store deliberately collapses these so a caller can't distinguish
	// "never existed" from "expired" by response shape.
	ErrNotFound = errors.New("keyalias: not found")
	// ErrForbidden means the alias exists but the resolving caller's
	// owner/IP binding does not match the one it was minted for.
	ErrForbidden = errors.New("keyalias: binding mismatch")
)

type entry struct {
	key       []byte
	owner     string
	ipHash    string
	expiresAt time.Time
}

// Store holds minted aliases in memory, keyed by their opaque token.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
}

// New constructs an empty Store with the default TTL.
func New() *Store {
	return &Store{entries: make(map[string]*entry), ttl: TTL}
}

// Mint generates a fresh 128-bit opaque alias bound to owner only (no IP
// binding), stores key against it, and returns the alias's hex encoding.
func (s *Store) Mint(ctx context.Context, key []byte, owner string) (string, error) {
	return s.mintBound(key, owner, "")
}

// MintBound is Mint with an explicit IP-hash binding recorded alongside the
// owning session, per spec.md §4.5's "IP-hash + owner binding" requirement.
func (s *Store) MintBound(ctx context.Context, key []byte, owner, ipHash string) (string, error) {
	return s.mintBound(key, owner, ipHash)
}

func (s *Store) mintBound(key []byte, owner, ipHash string) (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	alias := hex.EncodeToString(raw)

	s.mu.Lock()
	s.entries[alias] = &entry{
		key:       append([]byte{}, key...),
		owner:     owner,
		ipHash:    ipHash,
		expiresAt: time.Now().Add(s.ttl),
	}
	s.mu.Unlock()
	return alias, nil
}

// Resolve looks up alias and verifies it is bound to (owner, ipHash) using a
// constant-time comparison on both fields. It returns ErrNotFound for an
// absent or expired alias, and ErrForbidden when the alias exists but the
// binding does not match.
func (s *Store) Resolve(ctx context.Context, alias, owner, ipHash string) ([]byte, error) {
	s.mu.RLock()
	e, ok := s.entries[alias]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if time.Now().After(e.expiresAt) {
		s.evict(alias)
		return nil, ErrNotFound
	}

	ownerMatch := e.owner == "" || subtle.ConstantTimeCompare([]byte(e.owner), []byte(owner)) == 1
	ipMatch := e.ipHash == "" || subtle.ConstantTimeCompare([]byte(e.ipHash), []byte(ipHash)) == 1
	if !ownerMatch || !ipMatch {
		return nil, ErrForbidden
	}
	return append([]byte{}, e.key...), nil
}

// Revoke removes an alias immediately, used when the owning session or
// grant is revoked before natural expiry.
func (s *Store) Revoke(alias string) {
	s.evict(alias)
}

func (s *Store) evict(alias string) {
	s.mu.Lock()
	delete(s.entries, alias)
	s.mu.Unlock()
}

// Sweep removes every expired alias; called periodically by the server's
// background loop that also sweeps expired access grants.
func (s *Store) Sweep() int {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for alias, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, alias)
			n++
		}
	}
	return n
}

// Len reports the number of live aliases, used by tests and metrics.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
