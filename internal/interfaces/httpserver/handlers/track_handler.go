package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sectify/sectify/internal/domain/authz"
	"github.com/sectify/sectify/internal/domain/track"
	"github.com/sectify/sectify/internal/infrastructure/metrics"
	"github.com/sectify/sectify/internal/interfaces/httpserver/middleware"
	"github.com/sectify/sectify/internal/interfaces/httpserver/responses"
	"github.com/sectify/sectify/internal/platformerrors"
)

// TrackHandler implements the upload, public-listing, and metadata-update
// routes from spec.md §6 plus §3's "immutable except is_public and title".
type TrackHandler struct {
	tracks *track.Service
	authz  *authz.Service
	log    zerolog.Logger
}

// NewTrackHandler constructs a TrackHandler.
func NewTrackHandler(tracks *track.Service, authzSvc *authz.Service, log zerolog.Logger) *TrackHandler {
	return &TrackHandler{tracks: tracks, authz: authzSvc, log: log.With().Str("component", "track-handler").Logger()}
}

type trackSummary struct {
	TrackID string `json:"track_id"`
	Title   string `json:"title"`
	Public  bool   `json:"public"`
}

// ListPublic handles GET /audio/tracks/public.
func (h *TrackHandler) ListPublic(c *gin.Context) {
	tracks, err := h.tracks.ListPublic(c.Request.Context())
	if err != nil {
		responses.HandleError(c, h.log, err, "list public tracks failed")
		return
	}

	out := make([]trackSummary, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, trackSummary{TrackID: t.ID, Title: t.Title, Public: t.Public})
	}
	c.JSON(http.StatusOK, out)
}

type uploadResponse struct {
	TrackID string `json:"track_id"`
}

// Upload handles POST /audio/upload: a multipart form with a "title"
// field and a "file" part, owner-only per spec.md §6.
func (h *TrackHandler) Upload(c *gin.Context) {
	title := c.PostForm("title")
	if title == "" {
		responses.HandleNewError(c, h.log, platformerrors.KindInvalid, "title is required")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		responses.HandleNewError(c, h.log, platformerrors.KindInvalid, "file is required")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		responses.HandleNewError(c, h.log, platformerrors.KindInvalid, "could not open upload")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		responses.HandleNewError(c, h.log, platformerrors.KindInvalid, "could not read upload")
		return
	}

	ownerUserID := middleware.UserID(c)
	t, err := h.tracks.Upload(c.Request.Context(), ownerUserID, title, data)
	if err != nil {
		metrics.RecordUpload("error", int64(len(data)))
		responses.HandleError(c, h.log, err, "upload failed")
		return
	}
	metrics.RecordUpload("success", int64(len(data)))
	c.JSON(http.StatusCreated, uploadResponse{TrackID: t.ID})
}

type updateTrackRequest struct {
	Title  *string `json:"title"`
	Public *bool   `json:"public"`
}

// Update handles the supplemented PATCH /audio/tracks/:track_id: spec.md
// §3 allows title and is_public to change after creation, but §6's route
// list never names how. Owner-only, gated through authz the same way
// streaming is so a non-owner gets the same 403/404 shape everywhere else.
func (h *TrackHandler) Update(c *gin.Context) {
	trackID := c.Param("track_id")
	userID := middleware.UserID(c)

	view, _, err := h.authz.CheckTrackAccess(c.Request.Context(), trackID, userID, authz.OpWrite, c.ClientIP())
	if err != nil {
		responses.HandleNewError(c, h.log, authzErrKind(err), "update denied")
		return
	}

	var req updateTrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, h.log, platformerrors.KindInvalid, "malformed update request")
		return
	}
	if req.Title == nil && req.Public == nil {
		responses.HandleNewError(c, h.log, platformerrors.KindInvalid, "nothing to update")
		return
	}

	t, err := h.tracks.Get(c.Request.Context(), view.TrackID())
	if err != nil {
		responses.HandleError(c, h.log, err, "track lookup failed")
		return
	}
	if err := h.tracks.UpdateMetadata(c.Request.Context(), t, req.Title, req.Public); err != nil {
		responses.HandleError(c, h.log, err, "update failed")
		return
	}
	c.JSON(http.StatusOK, trackSummary{TrackID: t.ID, Title: t.Title, Public: t.Public})
}

func authzErrKind(err error) platformerrors.Kind {
	switch err {
	case authz.ErrAuthRequired:
		return platformerrors.KindAuthRequired
	case authz.ErrForbidden:
		return platformerrors.KindForbidden
	default:
		return platformerrors.KindNotFound
	}
}
