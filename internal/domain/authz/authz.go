// Package authz implements the centralized authorization service from
// spec.md §4.6: a single entry point that resolves track-access requests to
// a short-lived, IP- and operation-bound AccessGrant.
package authz

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sectify/sectify/internal/auth"
)

// Operation is one of the four track operations authz can gate.
type Operation string

const (
	OpRead   Operation = "read"
	OpStream Operation = "stream"
	OpWrite  Operation = "write"
	OpDelete Operation = "delete"
)

// GrantTTL bounds how long a minted AccessGrant remains valid, per
// spec.md §3 ("expires_at (≤ 5 min)").
const GrantTTL = 5 * time.Minute

// maxGrantsPerUser caps how many live AccessGrants a single authenticated
// user may hold at once; minting a grant past the cap evicts the user's
// oldest one. Anonymous grants (empty UserID) are never capped.
const maxGrantsPerUser = 5

var (
	// ErrAuthRequired means the caller is anonymous and the operation
	// requires authentication.
	ErrAuthRequired = errors.New("authz: authentication required")
	// ErrForbidden means the caller is known but not entitled.
	ErrForbidden = errors.New("authz: forbidden")
	// ErrTrackNotFound covers a missing track or a syntactically invalid
	// track_id — the two are deliberately indistinguishable to the caller.
	ErrTrackNotFound = errors.New("authz: track not found")
	// ErrUnknownOperation is returned for any Operation outside the four
	// known values; always denied.
	ErrUnknownOperation = errors.New("authz: unknown operation")
)

// TrackView is the minimal read-only projection of a track authz needs.
// Defined here (not imported from the track package) so authz has no
// dependency on track persistence — track.Track implements this
// structurally.
type TrackView interface {
	TrackID() string
	OwnerID() string
	IsPublic() bool
}

// TrackLookup resolves a track_id to a TrackView, or an error treated as
// "not found" regardless of its underlying cause.
type TrackLookup func(ctx context.Context, trackID string) (TrackView, error)

// AccessGrant is the in-memory record minted on a successful authorization
// decision, per spec.md §3.
type AccessGrant struct {
	SessionID   string
	TrackID     string
	UserID      string // empty for anonymous/public access
	Operation   Operation
	CreatedAt   time.Time
	ExpiresAt   time.Time
	MintedCoarseIP string
}

func (g *AccessGrant) expired(now time.Time) bool {
	return now.After(g.ExpiresAt)
}

// Service is the single entry point gating every track operation.
type Service struct {
	lookup TrackLookup

	mu     sync.RWMutex
	grants map[string]*AccessGrant
}

// NewService constructs an authorization Service backed by lookup.
func NewService(lookup TrackLookup) *Service {
	return &Service{lookup: lookup, grants: make(map[string]*AccessGrant)}
}

// CheckTrackAccess is check_track_access from spec.md §4.6: it validates
// track_id, loads the track, decides the operation, and on success mints
// and stores a fresh AccessGrant.
func (s *Service) CheckTrackAccess(ctx context.Context, trackID, userID string, op Operation, callerIP string) (TrackView, *AccessGrant, error) {
	if _, err := uuid.Parse(trackID); err != nil {
		return nil, nil, ErrTrackNotFound
	}

	track, err := s.lookup(ctx, trackID)
	if err != nil {
		return nil, nil, ErrTrackNotFound
	}

	if denyErr := decide(track, userID, op); denyErr != nil {
		return nil, nil, denyErr
	}

	grant, err := s.mint(trackID, userID, op, callerIP)
	if err != nil {
		return nil, nil, err
	}
	return track, grant, nil
}

func decide(track TrackView, userID string, op Operation) error {
	isOwner := userID != "" && userID == track.OwnerID()

	var allowed bool
	switch op {
	case OpRead, OpStream:
		allowed = track.IsPublic() || isOwner
	case OpWrite, OpDelete:
		allowed = isOwner
	default:
		return ErrUnknownOperation
	}

	if allowed {
		return nil
	}
	if userID == "" {
		return ErrAuthRequired
	}
	return ErrForbidden
}

func (s *Service) mint(trackID, userID string, op Operation, callerIP string) (*AccessGrant, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	sessionID := hex.EncodeToString(raw)

	now := time.Now()
	grant := &AccessGrant{
		SessionID:      sessionID,
		TrackID:        trackID,
		UserID:         userID,
		Operation:      op,
		CreatedAt:      now,
		ExpiresAt:      now.Add(GrantTTL),
		MintedCoarseIP: auth.CoarseIP(callerIP),
	}

	s.mu.Lock()
	if userID != "" {
		s.evictOldestIfOverCapLocked(userID)
	}
	s.grants[sessionID] = grant
	s.mu.Unlock()
	return grant, nil
}

// evictOldestIfOverCapLocked evicts userID's oldest grant if they already
// hold maxGrantsPerUser of them. Callers must hold s.mu.
func (s *Service) evictOldestIfOverCapLocked(userID string) {
	var oldestID string
	var oldestAt time.Time
	count := 0
	for id, g := range s.grants {
		if g.UserID != userID {
			continue
		}
		count++
		if oldestID == "" || g.CreatedAt.Before(oldestAt) {
			oldestID, oldestAt = id, g.CreatedAt
		}
	}
	if count >= maxGrantsPerUser {
		delete(s.grants, oldestID)
	}
}

// ValidateGrant re-checks a previously minted grant against the request
// that presents it: the grant must exist, not be expired, match
// track_id/user_id/operation, and the caller's coarse IP must match the
// minting IP (spec.md §4.6, testable property P4).
func (s *Service) ValidateGrant(sessionID, trackID, userID string, op Operation, callerIP string) (*AccessGrant, error) {
	s.mu.RLock()
	grant, ok := s.grants[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrTrackNotFound
	}
	if grant.expired(time.Now()) {
		s.evict(sessionID)
		return nil, ErrTrackNotFound
	}
	if grant.TrackID != trackID || grant.UserID != userID || grant.Operation != op {
		return nil, ErrForbidden
	}
	if grant.MintedCoarseIP != auth.CoarseIP(callerIP) {
		return nil, ErrForbidden
	}
	return grant, nil
}

func (s *Service) evict(sessionID string) {
	s.mu.Lock()
	delete(s.grants, sessionID)
	s.mu.Unlock()
}

// RevokeUserSessions removes every grant belonging to userID, called on
// password change, logout-all, or 2FA reset (spec.md §4.6).
func (s *Service) RevokeUserSessions(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, g := range s.grants {
		if g.UserID == userID {
			delete(s.grants, id)
			n++
		}
	}
	return n
}

// Sweep purges every expired grant, for use by the server's periodic loop
// that also runs the key-alias sweep.
func (s *Service) Sweep() int {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, g := range s.grants {
		if g.expired(now) {
			delete(s.grants, id)
			n++
		}
	}
	return n
}

// Len reports the number of live grants, used by tests and metrics.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.grants)
}
