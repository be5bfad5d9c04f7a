package hls

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sectify/sectify/internal/auth"
	"github.com/sectify/sectify/internal/domain/keyalias"
)

func syntheticPCM(sampleRate, seconds int) []int16 {
	out := make([]int16, sampleRate*seconds)
	for i := range out {
		out[i] = int16((i % 2000) - 1000)
	}
	return out
}

func TestPackageWritesManifestAndSegments(t *testing.T) {
	dir := t.TempDir()
	aliases := keyalias.New()
	pkg := New(dir, []byte("a-very-secret-master-value-ok!!"), aliases)

	pcm := syntheticPCM(8000, 5) // 5s, longer than the 4s target => 2 segments
	manifest, err := pkg.Package(context.Background(), "track-1", "session-1", "user-1", "192.168.0.1", pcm, 8000, 1)
	require.NoError(t, err)
	require.NotEmpty(t, manifest.Segments)

	for _, seg := range manifest.Segments {
		path := filepath.Join(dir, "track-1", seg.Filename)
		info, err := os.Stat(path)
		require.NoError(t, err)
		require.Greater(t, info.Size(), int64(0))
	}

	playlist, err := os.ReadFile(filepath.Join(dir, "track-1", "playlist.m3u8"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(playlist), "#EXTM3U\n"))
	require.Contains(t, string(playlist), "#EXT-X-KEY:METHOD=AES-128")
	require.Contains(t, string(playlist), "#EXT-X-ENDLIST")
}

func TestPackageMintsResolvableAlias(t *testing.T) {
	dir := t.TempDir()
	aliases := keyalias.New()
	pkg := New(dir, []byte("a-very-secret-master-value-ok!!"), aliases)

	pcm := syntheticPCM(8000, 2)
	manifest, err := pkg.Package(context.Background(), "track-2", "session-2", "user-2", "192.168.0.1", pcm, 8000, 1)
	require.NoError(t, err)
	require.Len(t, manifest.Segments, 1)

	alias := strings.TrimPrefix(manifest.Segments[0].KeyURI, "/api/v1/stream/key/")
	key, err := aliases.Resolve(context.Background(), alias, "user-2", auth.CoarseIP("192.168.0.1"))
	require.NoError(t, err)
	require.Len(t, key, 16)
}

func TestPackageMintsPublicAliasResolvableByAnyUser(t *testing.T) {
	dir := t.TempDir()
	aliases := keyalias.New()
	pkg := New(dir, []byte("a-very-secret-master-value-ok!!"), aliases)

	pcm := syntheticPCM(8000, 2)
	manifest, err := pkg.Package(context.Background(), "track-2b", "session-2b", "", "192.168.0.1", pcm, 8000, 1)
	require.NoError(t, err)
	require.Len(t, manifest.Segments, 1)

	alias := strings.TrimPrefix(manifest.Segments[0].KeyURI, "/api/v1/stream/key/")
	key, err := aliases.Resolve(context.Background(), alias, "any-caller", auth.CoarseIP("192.168.0.1"))
	require.NoError(t, err)
	require.Len(t, key, 16)

	_, err = aliases.Resolve(context.Background(), alias, "any-caller", auth.CoarseIP("10.0.0.1"))
	require.ErrorIs(t, err, keyalias.ErrForbidden)
}

func TestPackageIsIdempotentWithinSession(t *testing.T) {
	dir := t.TempDir()
	aliases := keyalias.New()
	pkg := New(dir, []byte("a-very-secret-master-value-ok!!"), aliases)

	pcm := syntheticPCM(8000, 1)
	m1, err := pkg.Package(context.Background(), "track-3", "session-3", "user-3", "192.168.0.1", pcm, 8000, 1)
	require.NoError(t, err)
	m2, err := pkg.Package(context.Background(), "track-3", "session-3", "user-3", "192.168.0.1", pcm, 8000, 1)
	require.NoError(t, err)

	require.Equal(t, m1.Segments[0].KeyURI, m2.Segments[0].KeyURI)
}
