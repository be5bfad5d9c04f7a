package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSubmitRunsTaskAndReturnsItsError(t *testing.T) {
	p := NewPool(Config{WorkerCount: 2, QueueCapacity: 4}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	wantErr := errors.New("boom")
	err := p.Submit(ctx, func(ctx context.Context) error { return wantErr })
	if err != wantErr {
		t.Fatalf("got %v, want %v", err, wantErr)
	}

	err = p.Submit(ctx, func(ctx context.Context) error { return nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSubmitRejectsWhenQueueFull(t *testing.T) {
	p := NewPool(Config{WorkerCount: 0, QueueCapacity: 1}, zerolog.Nop())
	// Pool is never Started, so nothing drains the queue: the first
	// Submit fills the one buffered slot and blocks; run it in a
	// goroutine and assert the second Submit fails fast.
	ctx := context.Background()

	go func() {
		_ = p.Submit(ctx, func(ctx context.Context) error {
			time.Sleep(50 * time.Millisecond)
			return nil
		})
	}()
	time.Sleep(10 * time.Millisecond)

	err := p.Submit(ctx, func(ctx context.Context) error { return nil })
	if err != ErrQueueFull {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}
