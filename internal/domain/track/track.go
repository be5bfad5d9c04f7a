// Package track implements Track storage and lifecycle: upload (deriving
// a per-file key and running it through the chaotic cipher, C1/C2) and the
// read-side metadata authz needs to gate access.
package track

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	sectifycrypto "github.com/sectify/sectify/internal/domain/crypto"
	"github.com/sectify/sectify/internal/platformerrors"
)

// Track is the record from spec.md §3. Immutable after creation except
// Public and Title.
type Track struct {
	ID             string
	OwnerUserID    string
	Title          string
	Public         bool
	CiphertextPath string
	ContentHash    string
	CreatedAt      time.Time
}

// TrackID/OwnerID/IsPublic satisfy authz.TrackView structurally, with no
// import of the authz package from here.
func (t *Track) TrackID() string { return t.ID }
func (t *Track) OwnerID() string { return t.OwnerUserID }
func (t *Track) IsPublic() bool  { return t.Public }

// Repository persists Track records.
type Repository interface {
	Create(ctx context.Context, t *Track) error
	FindByID(ctx context.Context, id string) (*Track, error)
	ListPublic(ctx context.Context) ([]*Track, error)
	Update(ctx context.Context, t *Track) error
	Delete(ctx context.Context, id string) error
}

// Storage writes/reads ciphertext blobs, keyed by an opaque path — the
// same Upload/Download shape used for object storage across the retrieved
// pack, implemented by either a local-disk or S3-compatible backend.
type Storage interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Service orchestrates track upload/retrieval.
type Service struct {
	repo         Repository
	storage      Storage
	masterSecret []byte
	log          zerolog.Logger
}

// NewService constructs a track Service. masterSecret feeds C1 file-key
// derivation; it is the same process-wide secret used by the token service.
func NewService(repo Repository, storage Storage, masterSecret []byte, log zerolog.Logger) *Service {
	return &Service{
		repo:         repo,
		storage:      storage,
		masterSecret: masterSecret,
		log:          log.With().Str("component", "track-service").Logger(),
	}
}

// Upload encrypts data at rest with the chaotic cipher (I1: plaintext is
// never written to disk) and stores the resulting envelope, then records
// the Track. ownerUserID becomes the track's owner.
func (s *Service) Upload(ctx context.Context, ownerUserID, title string, data []byte) (*Track, error) {
	if len(data) == 0 {
		return nil, platformerrors.New(ctx, platformerrors.LayerDomain, platformerrors.KindInvalid, "upload is empty", nil)
	}
	if mt := mimetype.Detect(data); !isAudioMIME(mt.String()) {
		return nil, platformerrors.New(ctx, platformerrors.LayerDomain, platformerrors.KindInvalid, fmt.Sprintf("unsupported content type %s", mt.String()), nil)
	}

	id := uuid.NewString()
	fileKey := sectifycrypto.DeriveFileKey(s.masterSecret, ownerUserID, id)

	envelope, err := sectifycrypto.EncryptFile(data, fileKey)
	if err != nil {
		return nil, platformerrors.New(ctx, platformerrors.LayerDomain, platformerrors.KindInternal, "encrypt upload", err)
	}

	sum := sha256.Sum256(data)
	key := fmt.Sprintf("%s.enc", id)

	if err := s.storage.Upload(ctx, key, bytes.NewReader(envelope), int64(len(envelope)), "application/octet-stream"); err != nil {
		return nil, platformerrors.New(ctx, platformerrors.LayerInfrastructure, platformerrors.KindInternal, "store ciphertext", err)
	}

	track := &Track{
		ID:             id,
		OwnerUserID:    ownerUserID,
		Title:          title,
		Public:         false,
		CiphertextPath: key,
		ContentHash:    fmt.Sprintf("%x", sum[:]),
		CreatedAt:      time.Now(),
	}
	if err := s.repo.Create(ctx, track); err != nil {
		_ = s.storage.Delete(ctx, key)
		return nil, platformerrors.New(ctx, platformerrors.LayerDomain, platformerrors.KindInternal, "persist track", err)
	}
	return track, nil
}

// Decrypt loads and decrypts a track's ciphertext blob using the same C1
// derivation Upload used.
func (s *Service) Decrypt(ctx context.Context, t *Track) ([]byte, error) {
	reader, err := s.storage.Download(ctx, t.CiphertextPath)
	if err != nil {
		return nil, platformerrors.New(ctx, platformerrors.LayerInfrastructure, platformerrors.KindNotFound, "fetch ciphertext", err)
	}
	defer reader.Close()

	envelope, err := io.ReadAll(reader)
	if err != nil {
		return nil, platformerrors.New(ctx, platformerrors.LayerInfrastructure, platformerrors.KindInternal, "read ciphertext", err)
	}

	fileKey := sectifycrypto.DeriveFileKey(s.masterSecret, t.OwnerUserID, t.ID)
	plaintext, err := sectifycrypto.DecryptFile(envelope, fileKey)
	if err != nil {
		return nil, platformerrors.New(ctx, platformerrors.LayerDomain, platformerrors.KindIntegrityError, "decrypt track", err)
	}
	return plaintext, nil
}

// Get loads a track by id, returning NotFound if it doesn't exist.
func (s *Service) Get(ctx context.Context, id string) (*Track, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, platformerrors.New(ctx, platformerrors.LayerDomain, platformerrors.KindInternal, "lookup track", err)
	}
	if t == nil {
		return nil, platformerrors.New(ctx, platformerrors.LayerDomain, platformerrors.KindNotFound, "track not found", nil)
	}
	return t, nil
}

// UpdateMetadata changes title and/or public on an existing track. Per
// spec.md §3, these are the only two fields a track permits mutating after
// creation. Callers are responsible for the ownership check; this method
// performs the write unconditionally once given a Track.
func (s *Service) UpdateMetadata(ctx context.Context, t *Track, title *string, public *bool) error {
	if title != nil {
		t.Title = *title
	}
	if public != nil {
		t.Public = *public
	}
	if err := s.repo.Update(ctx, t); err != nil {
		return platformerrors.New(ctx, platformerrors.LayerDomain, platformerrors.KindInternal, "update track", err)
	}
	return nil
}

// ListPublic returns every public track's summary.
func (s *Service) ListPublic(ctx context.Context) ([]*Track, error) {
	tracks, err := s.repo.ListPublic(ctx)
	if err != nil {
		return nil, platformerrors.New(ctx, platformerrors.LayerDomain, platformerrors.KindInternal, "list public tracks", err)
	}
	return tracks, nil
}

// Delete removes a track's ciphertext and database record. It does not
// remove the track's HLS directory under HLS_ROOT (playlist and segments);
// the reaper removes .ts segments there only by age.
func (s *Service) Delete(ctx context.Context, t *Track) error {
	if err := s.storage.Delete(ctx, t.CiphertextPath); err != nil {
		s.log.Warn().Err(err).Str("track_id", t.ID).Msg("delete ciphertext failed")
	}
	if err := s.repo.Delete(ctx, t.ID); err != nil {
		return platformerrors.New(ctx, platformerrors.LayerDomain, platformerrors.KindInternal, "delete track record", err)
	}
	return nil
}

func isAudioMIME(mt string) bool {
	switch mt {
	case "audio/mpeg", "audio/wav", "audio/x-wav", "audio/flac", "audio/aac", "audio/ogg", "application/octet-stream":
		return true
	default:
		return false
	}
}
