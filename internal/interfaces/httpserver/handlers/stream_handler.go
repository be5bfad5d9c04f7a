package handlers

import (
	"context"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sectify/sectify/internal/auth"
	"github.com/sectify/sectify/internal/config"
	"github.com/sectify/sectify/internal/domain/authz"
	"github.com/sectify/sectify/internal/domain/keyalias"
	"github.com/sectify/sectify/internal/domain/track"
	"github.com/sectify/sectify/internal/domain/transcode"
	"github.com/sectify/sectify/internal/infrastructure/metrics"
	"github.com/sectify/sectify/internal/interfaces/httpserver/middleware"
	"github.com/sectify/sectify/internal/interfaces/httpserver/responses"
	"github.com/sectify/sectify/internal/pipeline"
	"github.com/sectify/sectify/internal/platformerrors"
	"github.com/sectify/sectify/internal/worker"
)

// StreamHandler implements spec.md §6's playlist/segment/key routes: the
// surface that turns an AccessGrant into actual ciphertext bytes.
type StreamHandler struct {
	cfg        *config.Config
	tracks     *track.Service
	authzSvc   *authz.Service
	aliases    *keyalias.Store
	transcoder transcode.Transcoder
	decodePool *worker.Pool
	pipeline   *pipeline.Pipeline
	log        zerolog.Logger
}

// NewStreamHandler constructs a StreamHandler. decodePool runs the
// CPU-bound decrypt+decode step off the request goroutine, the same
// bounded-queue backpressure shape the packaging pipeline uses for its own
// stages.
func NewStreamHandler(cfg *config.Config, tracks *track.Service, authzSvc *authz.Service, aliases *keyalias.Store, transcoder transcode.Transcoder, decodePool *worker.Pool, pl *pipeline.Pipeline, log zerolog.Logger) *StreamHandler {
	return &StreamHandler{
		cfg:        cfg,
		tracks:     tracks,
		authzSvc:   authzSvc,
		aliases:    aliases,
		transcoder: transcoder,
		decodePool: decodePool,
		pipeline:   pl,
		log:        log.With().Str("component", "stream-handler").Logger(),
	}
}

// Playlist handles GET /stream/playlist/:track_id. A successful
// CheckTrackAccess mints one AccessGrant with a fresh session id and drives
// one packaging job through the pipeline, so every request decodes and
// packages anew; the packager's idempotency cache only joins or reuses a run
// for the same (track, session) pair.
func (h *StreamHandler) Playlist(c *gin.Context) {
	trackID := c.Param("track_id")
	userID := middleware.UserID(c)
	callerIP := c.ClientIP()

	view, grant, err := h.authzSvc.CheckTrackAccess(c.Request.Context(), trackID, userID, authz.OpStream, callerIP)
	if err != nil {
		metrics.RecordAccessGrant(string(authz.OpStream), "denied")
		responses.HandleNewError(c, h.log, authzErrKind(err), "stream access denied")
		return
	}
	metrics.RecordAccessGrant(string(authz.OpStream), "granted")

	t, err := h.tracks.Get(c.Request.Context(), view.TrackID())
	if err != nil {
		responses.HandleError(c, h.log, err, "track lookup failed")
		return
	}

	var pcm transcode.PCM
	decodeErr := h.decodePool.Submit(c.Request.Context(), func(ctx context.Context) error {
		plaintext, err := h.tracks.Decrypt(ctx, t)
		if err != nil {
			return err
		}
		pcm, err = h.transcoder.Decode(ctx, plaintext)
		return err
	})
	if decodeErr != nil {
		if decodeErr == worker.ErrQueueFull {
			c.Header("Retry-After", "2")
			pe := platformerrors.New(c.Request.Context(), platformerrors.LayerHandler, platformerrors.KindThrottled, "decode queue full", nil)
			platformerrors.Log(h.log, pe)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, responses.ErrorResponse{Code: pe.UUID, Kind: string(pe.Kind), Error: pe.Message, Message: pe.Message})
			return
		}
		responses.HandleError(c, h.log, decodeErr, "decrypt/decode track failed")
		return
	}

	manifest, err := h.pipeline.Submit(c.Request.Context(), pipeline.Job{
		TrackID:     t.ID,
		SessionID:   grant.SessionID,
		OwnerUserID: userID,
		CallerIP:    callerIP,
		PCM:         pcm.Samples,
		SampleRate:  pcm.SampleRate,
		Channels:    pcm.Channels,
	})
	if err != nil {
		switch err {
		case pipeline.ErrQueueFull:
			c.Header("Retry-After", "2")
			responses.HandleNewError(c, h.log, platformerrors.KindThrottled, "packaging queue full")
		case pipeline.ErrTooManyConcurrent:
			responses.HandleNewError(c, h.log, platformerrors.KindThrottled, "too many concurrent streams for this user")
		default:
			responses.HandleNewError(c, h.log, platformerrors.KindInternal, "packaging failed")
		}
		return
	}

	c.Data(http.StatusOK, "application/vnd.apple.mpegurl", []byte(manifest.Render()))
}

// Segment handles GET /stream/segment/:track_id/:n, re-checking access on
// every request (spec.md §4.6: grants are cheap and short-lived, not a
// substitute for per-request authorization) before serving the on-disk
// ciphertext directly.
func (h *StreamHandler) Segment(c *gin.Context) {
	trackID := c.Param("track_id")
	userID := middleware.UserID(c)

	_, _, err := h.authzSvc.CheckTrackAccess(c.Request.Context(), trackID, userID, authz.OpStream, c.ClientIP())
	if err != nil {
		metrics.RecordAccessGrant(string(authz.OpStream), "denied")
		responses.HandleNewError(c, h.log, authzErrKind(err), "stream access denied")
		return
	}
	metrics.RecordAccessGrant(string(authz.OpStream), "granted")

	n, err := strconv.Atoi(c.Param("n"))
	if err != nil || n < 0 {
		responses.HandleNewError(c, h.log, platformerrors.KindInvalid, "invalid segment index")
		return
	}

	filename := "seg_" + pad3(n) + ".ts"
	path := filepath.Join(h.cfg.HLSRoot, trackID, filename)
	c.File(path)
}

// Key handles GET /stream/key/:alias: resolving the alias back to its raw
// AES key, gated by the owner/coarse-IP binding it was minted with.
func (h *StreamHandler) Key(c *gin.Context) {
	alias := c.Param("alias")
	userID := middleware.UserID(c)
	ipHash := auth.CoarseIP(c.ClientIP())

	key, err := h.aliases.Resolve(c.Request.Context(), alias, userID, ipHash)
	if err != nil {
		switch err {
		case keyalias.ErrForbidden:
			metrics.RecordKeyAliasOp("resolve", "forbidden")
			responses.HandleNewError(c, h.log, platformerrors.KindForbidden, "key alias binding mismatch")
		default:
			metrics.RecordKeyAliasOp("resolve", "not_found")
			responses.HandleNewError(c, h.log, platformerrors.KindNotFound, "key alias not found")
		}
		return
	}
	metrics.RecordKeyAliasOp("resolve", "success")
	c.Data(http.StatusOK, "application/octet-stream", key)
}

func pad3(n int) string {
	s := strconv.Itoa(n)
	for len(s) < 3 {
		s = "0" + s
	}
	return s
}

// trackLookup adapts track.Service.Get into authz.TrackLookup, used by the
// orchestrator when wiring the authz.Service.
func trackLookup(tracks *track.Service) authz.TrackLookup {
	return func(ctx context.Context, trackID string) (authz.TrackView, error) {
		t, err := tracks.Get(ctx, trackID)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
}
