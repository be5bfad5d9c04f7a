package track

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/sectify/sectify/internal/platformerrors"
)

type memRepo struct {
	mu     sync.Mutex
	tracks map[string]*Track
}

func newMemRepo() *memRepo { return &memRepo{tracks: make(map[string]*Track)} }

func (r *memRepo) Create(ctx context.Context, t *Track) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracks[t.ID] = t
	return nil
}
func (r *memRepo) FindByID(ctx context.Context, id string) (*Track, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tracks[id], nil
}
func (r *memRepo) ListPublic(ctx context.Context) ([]*Track, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Track
	for _, t := range r.tracks {
		if t.Public {
			out = append(out, t)
		}
	}
	return out, nil
}
func (r *memRepo) Update(ctx context.Context, t *Track) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracks[t.ID] = t
	return nil
}
func (r *memRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tracks, id)
	return nil
}

type memStorage struct {
	mu   sync.Mutex
	blobs map[string][]byte
}

func newMemStorage() *memStorage { return &memStorage{blobs: make(map[string][]byte)} }

func (s *memStorage) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = data
	return nil
}
func (s *memStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, platformerrors.New(ctx, platformerrors.LayerInfrastructure, platformerrors.KindNotFound, "blob not found", nil)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
func (s *memStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

func wavPayload() []byte {
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	buf.Write([]byte{0, 0, 0, 0})
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	buf.Write(bytes.Repeat([]byte{0xAB}, 512))
	return buf.Bytes()
}

func TestUploadThenDecryptRoundTrip(t *testing.T) {
	repo := newMemRepo()
	storage := newMemStorage()
	svc := NewService(repo, storage, []byte("a-very-secret-master-value-ok!!"), zerolog.Nop())

	payload := wavPayload()
	track, err := svc.Upload(context.Background(), "owner-1", "My Track", payload)
	require.NoError(t, err)
	require.NotEmpty(t, track.ID)

	got, err := svc.Decrypt(context.Background(), track)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestGetReturnsNotFoundForUnknownTrack(t *testing.T) {
	repo := newMemRepo()
	storage := newMemStorage()
	svc := NewService(repo, storage, []byte("a-very-secret-master-value-ok!!"), zerolog.Nop())

	_, err := svc.Get(context.Background(), "missing")
	require.True(t, platformerrors.Is(err, platformerrors.KindNotFound))
}

func TestUploadRejectsEmpty(t *testing.T) {
	repo := newMemRepo()
	storage := newMemStorage()
	svc := NewService(repo, storage, []byte("a-very-secret-master-value-ok!!"), zerolog.Nop())

	_, err := svc.Upload(context.Background(), "owner-1", "Empty", nil)
	require.True(t, platformerrors.Is(err, platformerrors.KindInvalid))
}

func TestUpdateMetadataChangesTitleAndPublic(t *testing.T) {
	repo := newMemRepo()
	storage := newMemStorage()
	svc := NewService(repo, storage, []byte("a-very-secret-master-value-ok!!"), zerolog.Nop())

	payload := wavPayload()
	track, err := svc.Upload(context.Background(), "owner-1", "Original", payload)
	require.NoError(t, err)
	require.False(t, track.Public)

	newTitle := "Renamed"
	newPublic := true
	require.NoError(t, svc.UpdateMetadata(context.Background(), track, &newTitle, &newPublic))

	got, err := svc.Get(context.Background(), track.ID)
	require.NoError(t, err)
	require.Equal(t, "Renamed", got.Title)
	require.True(t, got.Public)
}

func TestListPublicOnlyReturnsPublicTracks(t *testing.T) {
	repo := newMemRepo()
	storage := newMemStorage()
	svc := NewService(repo, storage, []byte("a-very-secret-master-value-ok!!"), zerolog.Nop())

	payload := wavPayload()
	track, err := svc.Upload(context.Background(), "owner-1", "Private", payload)
	require.NoError(t, err)

	list, err := svc.ListPublic(context.Background())
	require.NoError(t, err)
	require.Empty(t, list)

	track.Public = true
	require.NoError(t, repo.Create(context.Background(), track))

	list, err = svc.ListPublic(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
}
