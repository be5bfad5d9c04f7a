// Package pipeline wires the watermark -> segment -> encrypt playback
// pipeline as three explicit worker stages joined by bounded channels, so
// backpressure falls out of channel capacity rather than an unbounded
// goroutine-per-request fan-out (spec.md §9 "Coroutine pipeline").
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sectify/sectify/internal/domain/hls"
	"github.com/sectify/sectify/internal/domain/watermark"
	"github.com/sectify/sectify/internal/infrastructure/metrics"
)

// ErrQueueFull is returned by Submit when the pipeline's first stage is
// saturated; callers translate this into a 429 with Retry-After.
var ErrQueueFull = errors.New("pipeline: queue is full")

// ErrTooManyConcurrent is returned by Submit when the owning user already
// has maxConcurrentPerUser jobs in flight. This bounds per-user fan-out
// independently of ErrQueueFull, which only bounds total queue depth — one
// user submitting many tracks at once shouldn't be able to starve every
// other user's share of the queue.
var ErrTooManyConcurrent = errors.New("pipeline: too many concurrent jobs for this user")

// maxConcurrentPerUser caps how many packaging jobs a single user may have
// in flight at once.
const maxConcurrentPerUser = 3

// Job describes one playback packaging request.
type Job struct {
	TrackID     string
	SessionID   string
	OwnerUserID string
	CallerIP    string
	PCM         []int16
	SampleRate  int
	Channels    int
}

// Result is delivered back to the submitter once the job clears all
// three stages.
type Result struct {
	Manifest *hls.Manifest
	Err      error
}

type job struct {
	Job
	resultCh chan Result
}

type watermarked struct {
	job
	pcm []int16
}

type segmented struct {
	watermarked
	numSegments int
}

// Pipeline runs the watermark, segment-plan, and package stages as
// independent goroutines connected by channels of the configured capacity.
type Pipeline struct {
	packager *hls.Packager
	capacity int
	log      zerolog.Logger

	watermarkIn chan job
	segmentIn   chan watermarked
	encryptIn   chan segmented

	userMu      sync.Mutex
	userInFlight map[string]int
}

// New constructs a Pipeline. capacity bounds every inter-stage channel
// (spec.md §9 suggests 4).
func New(packager *hls.Packager, capacity int, log zerolog.Logger) *Pipeline {
	if capacity < 1 {
		capacity = 4
	}
	return &Pipeline{
		packager:     packager,
		capacity:     capacity,
		log:          log.With().Str("component", "pipeline").Logger(),
		watermarkIn:  make(chan job, capacity),
		segmentIn:    make(chan watermarked, capacity),
		encryptIn:    make(chan segmented, capacity),
		userInFlight: make(map[string]int),
	}
}

// Run starts the three stage goroutines and blocks until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) {
	go p.runWatermarkStage(ctx)
	go p.runSegmentStage(ctx)
	go p.runEncryptStage(ctx)
	<-ctx.Done()
}

// Submit enqueues a job for watermarking, segmenting, and encryption, and
// blocks until the result is ready or ctx is cancelled. If the first stage's
// queue is already full, Submit returns ErrQueueFull immediately rather than
// blocking — this is the pipeline's backpressure signal.
func (p *Pipeline) Submit(ctx context.Context, j Job) (*hls.Manifest, error) {
	if j.OwnerUserID != "" {
		if !p.acquireUserSlot(j.OwnerUserID) {
			metrics.RecordPackaging("too_many_concurrent", 0)
			return nil, ErrTooManyConcurrent
		}
		defer p.releaseUserSlot(j.OwnerUserID)
	}

	resultCh := make(chan Result, 1)
	select {
	case p.watermarkIn <- job{Job: j, resultCh: resultCh}:
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		metrics.RecordPackaging("queue_full", 0)
		return nil, ErrQueueFull
	}

	select {
	case res := <-resultCh:
		return res.Manifest, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// acquireUserSlot reserves one of userID's maxConcurrentPerUser slots,
// reporting false if none are free.
func (p *Pipeline) acquireUserSlot(userID string) bool {
	p.userMu.Lock()
	defer p.userMu.Unlock()
	if p.userInFlight[userID] >= maxConcurrentPerUser {
		return false
	}
	p.userInFlight[userID]++
	return true
}

func (p *Pipeline) releaseUserSlot(userID string) {
	p.userMu.Lock()
	defer p.userMu.Unlock()
	p.userInFlight[userID]--
	if p.userInFlight[userID] <= 0 {
		delete(p.userInFlight, userID)
	}
}

func (p *Pipeline) runWatermarkStage(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-p.watermarkIn:
			if !ok {
				return
			}
			sessionBytes := []byte(j.SessionID)
			wmPCM := watermark.Embed(j.PCM, j.SampleRate, j.Channels, sessionBytes)
			wj := watermarked{job: j, pcm: wmPCM}
			select {
			case p.segmentIn <- wj:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (p *Pipeline) runSegmentStage(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case wj, ok := <-p.segmentIn:
			if !ok {
				return
			}
			channels := wj.Channels
			if channels < 1 {
				channels = 1
			}
			frames := len(wj.pcm) / channels
			framesPerSeg := hls.TargetSegmentSeconds * wj.SampleRate
			numSegments := 0
			if framesPerSeg > 0 {
				numSegments = (frames + framesPerSeg - 1) / framesPerSeg
			}
			sj := segmented{watermarked: wj, numSegments: numSegments}
			select {
			case p.encryptIn <- sj:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (p *Pipeline) runEncryptStage(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sj, ok := <-p.encryptIn:
			if !ok {
				return
			}
			p.log.Debug().
				Str("track_id", sj.TrackID).
				Str("session_id", sj.SessionID).
				Int("segments", sj.numSegments).
				Msg("packaging job reached encrypt stage")

			start := time.Now()
			manifest, err := p.packager.Package(ctx, sj.TrackID, sj.SessionID, sj.OwnerUserID, sj.CallerIP, sj.pcm, sj.SampleRate, channelsOrMono(sj.Channels))
			if err != nil {
				metrics.RecordPackaging("error", time.Since(start).Seconds())
				sj.resultCh <- Result{Err: fmt.Errorf("pipeline: package: %w", err)}
				continue
			}
			metrics.RecordPackaging("success", time.Since(start).Seconds())
			sj.resultCh <- Result{Manifest: manifest}
		}
	}
}

func channelsOrMono(c int) int {
	if c < 1 {
		return 1
	}
	return c
}
