package reaper

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestSweepOnceDeletesOnlyExpiredSegments(t *testing.T) {
	root := t.TempDir()
	trackDir := filepath.Join(root, "track-1")
	require.NoError(t, os.MkdirAll(trackDir, 0o755))

	oldSeg := filepath.Join(trackDir, "seg_000.ts")
	freshSeg := filepath.Join(trackDir, "seg_001.ts")
	manifest := filepath.Join(trackDir, "playlist.m3u8")

	require.NoError(t, os.WriteFile(oldSeg, []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(freshSeg, []byte("fresh"), 0o644))
	require.NoError(t, os.WriteFile(manifest, []byte("#EXTM3U\n"), 0o644))

	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(oldSeg, old, old))

	r := New(Config{Root: root, Age: time.Minute}, zerolog.Nop())
	n := r.SweepOnce(context.Background())

	require.Equal(t, 1, n)
	require.NoFileExists(t, oldSeg)
	require.FileExists(t, freshSeg)
	require.FileExists(t, manifest)
}

func TestSweepOnceRemovesEmptyDirButKeepsNonEmpty(t *testing.T) {
	root := t.TempDir()
	emptyAfter := filepath.Join(root, "track-empty")
	kept := filepath.Join(root, "track-kept")
	require.NoError(t, os.MkdirAll(emptyAfter, 0o755))
	require.NoError(t, os.MkdirAll(kept, 0o755))

	old := time.Now().Add(-time.Hour)
	seg := filepath.Join(emptyAfter, "seg_000.ts")
	require.NoError(t, os.WriteFile(seg, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(seg, old, old))

	require.NoError(t, os.WriteFile(filepath.Join(kept, "playlist.m3u8"), []byte("x"), 0o644))

	r := New(Config{Root: root, Age: time.Minute}, zerolog.Nop())
	r.SweepOnce(context.Background())

	require.NoDirExists(t, emptyAfter)
	require.DirExists(t, kept)
}

func TestSweepOnceNeverTouchesManifestOrKeyFiles(t *testing.T) {
	root := t.TempDir()
	trackDir := filepath.Join(root, "track-1")
	require.NoError(t, os.MkdirAll(trackDir, 0o755))

	old := time.Now().Add(-time.Hour)
	for _, name := range []string{"playlist.m3u8", "segment.key"} {
		p := filepath.Join(trackDir, name)
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
		require.NoError(t, os.Chtimes(p, old, old))
	}

	r := New(Config{Root: root, Age: time.Minute}, zerolog.Nop())
	n := r.SweepOnce(context.Background())

	require.Equal(t, 0, n)
	require.FileExists(t, filepath.Join(trackDir, "playlist.m3u8"))
	require.FileExists(t, filepath.Join(trackDir, "segment.key"))
}
