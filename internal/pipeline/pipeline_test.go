package pipeline

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sectify/sectify/internal/domain/hls"
	"github.com/sectify/sectify/internal/domain/keyalias"
)

func syntheticPCM(sampleRate, seconds int) []int16 {
	n := sampleRate * seconds
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(i % 1000)
	}
	return out
}

func TestPipelineSubmitProducesManifest(t *testing.T) {
	dir := t.TempDir()
	aliases := keyalias.New()
	packager := hls.New(dir, []byte("test-master-secret-32-bytes-long!!"), aliases)
	p := New(packager, 4, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	manifest, err := p.Submit(ctx, Job{
		TrackID:     "track-1",
		SessionID:   "session-1",
		OwnerUserID: "user-1",
		CallerIP:    "192.168.0.1",
		PCM:         syntheticPCM(8000, 2),
		SampleRate:  8000,
		Channels:    1,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(manifest.Segments) == 0 {
		t.Fatal("expected at least one segment")
	}
}

func TestPipelineSubmitRejectsWhenQueueFull(t *testing.T) {
	dir := t.TempDir()
	aliases := keyalias.New()
	packager := hls.New(dir, []byte("test-master-secret-32-bytes-long!!"), aliases)
	p := New(packager, 1, zerolog.Nop())
	// Do not call Run: nothing drains watermarkIn. The direct send below
	// fills its one buffered slot, so Submit finds it full and fails fast.

	ctx := context.Background()
	p.watermarkIn <- job{Job: Job{TrackID: "t", SessionID: "s"}, resultCh: make(chan Result, 1)}

	_, err := p.Submit(ctx, Job{TrackID: "t2", SessionID: "s2", PCM: syntheticPCM(8000, 1), SampleRate: 8000, Channels: 1})
	if err != ErrQueueFull {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestPipelineSubmitRejectsTooManyConcurrentForOneUser(t *testing.T) {
	dir := t.TempDir()
	aliases := keyalias.New()
	packager := hls.New(dir, []byte("test-master-secret-32-bytes-long!!"), aliases)
	p := New(packager, 8, zerolog.Nop())

	for i := 0; i < maxConcurrentPerUser; i++ {
		if !p.acquireUserSlot("user-1") {
			t.Fatalf("expected slot %d to be available", i)
		}
	}

	_, err := p.Submit(context.Background(), Job{TrackID: "t", SessionID: "s", OwnerUserID: "user-1", PCM: syntheticPCM(8000, 1), SampleRate: 8000, Channels: 1})
	if err != ErrTooManyConcurrent {
		t.Fatalf("expected ErrTooManyConcurrent, got %v", err)
	}

	// A different user still has free slots.
	p.releaseUserSlot("user-1")
	if !p.acquireUserSlot("user-2") {
		t.Fatal("expected user-2 to have a free slot")
	}
}
