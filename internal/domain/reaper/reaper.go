// Package reaper implements the background segment-cleanup task from
// spec.md §4.8: it periodically deletes expired .ts segments under the HLS
// root, never touching manifests or key material.
package reaper

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Config controls one reaper run.
type Config struct {
	Root     string
	Interval time.Duration
	Age      time.Duration
}

// DefaultInterval and DefaultAge match spec.md §6's environment defaults.
const (
	DefaultInterval = 120 * time.Second
	DefaultAge      = 600 * time.Second
)

// Reaper owns the periodic sweep loop.
type Reaper struct {
	cfg Config
	log zerolog.Logger
}

// New constructs a Reaper. cfg.Interval/Age default to spec.md §6's values
// when zero.
func New(cfg Config, log zerolog.Logger) *Reaper {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Age <= 0 {
		cfg.Age = DefaultAge
	}
	return &Reaper{cfg: cfg, log: log.With().Str("component", "reaper").Logger()}
}

// Run blocks, sweeping every cfg.Interval until ctx is cancelled. It
// performs one sweep immediately on entry.
func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.sweepOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.sweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single bottom-up pass and returns the count of segments
// deleted, for use by tests; Run performs the same pass on every tick.
func (r *Reaper) SweepOnce(ctx context.Context) int {
	return r.sweepOnce(ctx)
}

func (r *Reaper) sweepOnce(ctx context.Context) int {
	cutoff := time.Now().Add(-r.cfg.Age)
	deleted := 0

	var dirs []string
	err := filepath.WalkDir(r.cfg.Root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			r.log.Error().Err(err).Str("path", path).Msg("walk error")
			return nil
		}
		if d.IsDir() {
			if path != r.cfg.Root {
				dirs = append(dirs, path)
			}
			return nil
		}
		if filepath.Ext(path) != ".ts" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return nil
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			r.log.Error().Err(err).Str("path", path).Msg("unlink failed")
			return nil
		}
		deleted++
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		r.log.Error().Err(err).Msg("sweep walk failed")
	}

	// Bottom-up: WalkDir visits parents before children, so reverse to
	// remove the deepest now-empty directories first.
	for i := len(dirs) - 1; i >= 0; i-- {
		removeIfEmpty(dirs[i])
	}

	if deleted > 0 {
		r.log.Info().Int("deleted", deleted).Msg("reaper sweep")
	}
	return deleted
}

func removeIfEmpty(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) > 0 {
		return
	}
	os.Remove(dir)
}
