package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sectify/sectify/internal/auth"
	"github.com/sectify/sectify/internal/interfaces/httpserver/handlers"
	"github.com/sectify/sectify/internal/interfaces/httpserver/middleware"
)

// Routes encapsulates Sectify's versioned route registration.
type Routes struct {
	handlers *handlers.Provider
	tokens   *auth.Service
	ipSecret []byte
	log      zerolog.Logger
}

// NewRoutes constructs a Routes group backed by provider.
func NewRoutes(provider *handlers.Provider, tokens *auth.Service, ipSecret []byte, log zerolog.Logger) *Routes {
	return &Routes{handlers: provider, tokens: tokens, ipSecret: ipSecret, log: log}
}

// Register attaches every /api/v1 route from spec.md §6, plus the
// supplemented logout-all and track-update endpoints.
func (r *Routes) Register(router gin.IRouter) {
	optional := middleware.OptionalAuth(r.tokens, r.ipSecret, r.log)
	required := middleware.RequireAuth(r.tokens, r.ipSecret, r.log)

	group := router.Group("/api/v1")

	authGroup := group.Group("/auth")
	authGroup.POST("/signup", r.handlers.Auth.Signup)
	authGroup.POST("/login", r.handlers.Auth.Login)
	authGroup.POST("/login/verify-2fa", r.handlers.Auth.VerifyMFA)
	authGroup.POST("/logout-all", required, r.handlers.Auth.LogoutAll)

	audioGroup := group.Group("/audio")
	audioGroup.GET("/tracks/public", optional, r.handlers.Track.ListPublic)
	audioGroup.POST("/upload", required, r.handlers.Track.Upload)
	audioGroup.PATCH("/tracks/:track_id", required, r.handlers.Track.Update)

	streamGroup := group.Group("/stream")
	streamGroup.GET("/playlist/:track_id", optional, r.handlers.Stream.Playlist)
	streamGroup.GET("/segment/:track_id/:n", optional, r.handlers.Stream.Segment)
	streamGroup.GET("/key/:alias", optional, r.handlers.Stream.Key)
}
