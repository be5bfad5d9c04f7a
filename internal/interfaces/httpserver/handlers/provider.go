package handlers

import (
	"github.com/rs/zerolog"

	"github.com/sectify/sectify/internal/auth"
	"github.com/sectify/sectify/internal/config"
	"github.com/sectify/sectify/internal/domain/authz"
	"github.com/sectify/sectify/internal/domain/keyalias"
	"github.com/sectify/sectify/internal/domain/track"
	"github.com/sectify/sectify/internal/domain/transcode"
	"github.com/sectify/sectify/internal/domain/user"
	"github.com/sectify/sectify/internal/pipeline"
	"github.com/sectify/sectify/internal/worker"
)

// Provider wires every HTTP handler Sectify exposes.
type Provider struct {
	Auth   *AuthHandler
	Track  *TrackHandler
	Stream *StreamHandler
}

// NewProvider constructs a Provider from the domain services the
// orchestrator has already assembled.
func NewProvider(
	cfg *config.Config,
	users *user.Service,
	tokens *auth.Service,
	authzSvc *authz.Service,
	tracks *track.Service,
	aliases *keyalias.Store,
	transcoder transcode.Transcoder,
	decodePool *worker.Pool,
	pl *pipeline.Pipeline,
	ipSecret []byte,
	log zerolog.Logger,
) *Provider {
	return &Provider{
		Auth:   NewAuthHandler(cfg, users, tokens, authzSvc, ipSecret, log),
		Track:  NewTrackHandler(tracks, authzSvc, log),
		Stream: NewStreamHandler(cfg, tracks, authzSvc, aliases, transcoder, decodePool, pl, log),
	}
}

// TrackLookup exposes the track.Service -> authz.TrackLookup adapter used
// when wiring authz.Service, kept alongside the handlers that share its
// dependencies.
func TrackLookup(tracks *track.Service) authz.TrackLookup {
	return trackLookup(tracks)
}
