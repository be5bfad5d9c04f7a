// Package middleware holds Sectify's gin middleware: request-scoped
// authentication built on internal/auth.Service rather than the external
// JWKS validation the teacher wired, since Sectify is its own IdP.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sectify/sectify/internal/auth"
	"github.com/sectify/sectify/internal/interfaces/httpserver/responses"
	"github.com/sectify/sectify/internal/platformerrors"
)

const (
	userIDKey    = "sectify_user_id"
	sessionIDKey = "sectify_session_id"
)

// UserID returns the authenticated caller's user id, or "" for an
// anonymous request that passed through OptionalAuth.
func UserID(c *gin.Context) string {
	v, _ := c.Get(userIDKey)
	s, _ := v.(string)
	return s
}

// bearerToken extracts the token from "Authorization: Bearer <token>",
// returning "" when the header is absent or malformed.
func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

// OptionalAuth verifies an access token when one is presented and stores
// the resulting user id in the request context, but lets an anonymous
// request through unauthenticated — tracks/playlist/segment/key endpoints
// need this since a public track is readable without a session.
func OptionalAuth(tokenSvc *auth.Service, ipSecret []byte, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := bearerToken(c)
		if tok == "" {
			c.Next()
			return
		}

		ipHash := auth.IPHash(ipSecret, c.ClientIP())
		claims, err := tokenSvc.Verify(tok, auth.PurposeAccess, ipHash)
		if err != nil {
			responses.HandleNewError(c, log, platformerrors.KindAuthRequired, "invalid or expired access token")
			return
		}

		c.Set(userIDKey, claims.Subject)
		c.Set(sessionIDKey, claims.SessionID)
		c.Next()
	}
}

// RequireAuth is OptionalAuth plus a hard failure when no token is
// presented at all, for endpoints with no anonymous path (upload,
// logout-all).
func RequireAuth(tokenSvc *auth.Service, ipSecret []byte, log zerolog.Logger) gin.HandlerFunc {
	optional := OptionalAuth(tokenSvc, ipSecret, log)
	return func(c *gin.Context) {
		if bearerToken(c) == "" {
			responses.HandleNewError(c, log, platformerrors.KindAuthRequired, "authentication required")
			return
		}
		optional(c)
	}
}
