package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sectify/sectify/internal/auth"
	"github.com/sectify/sectify/internal/config"
	"github.com/sectify/sectify/internal/domain/authz"
	"github.com/sectify/sectify/internal/domain/user"
	"github.com/sectify/sectify/internal/interfaces/httpserver/middleware"
	"github.com/sectify/sectify/internal/interfaces/httpserver/responses"
	"github.com/sectify/sectify/internal/platformerrors"
)

// AuthHandler implements spec.md §6's signup/login/verify-2fa routes plus
// the supplemented logout-all endpoint.
type AuthHandler struct {
	cfg      *config.Config
	users    *user.Service
	tokens   *auth.Service
	authz    *authz.Service
	ipSecret []byte
	log      zerolog.Logger
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(cfg *config.Config, users *user.Service, tokens *auth.Service, authzSvc *authz.Service, ipSecret []byte, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, users: users, tokens: tokens, authz: authzSvc, ipSecret: ipSecret, log: log.With().Str("component", "auth-handler").Logger()}
}

type signupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type signupResponse struct {
	UserID string `json:"user_id"`
}

// Signup handles POST /auth/signup.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, h.log, platformerrors.KindInvalid, "malformed signup request")
		return
	}

	u, err := h.users.Signup(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		responses.HandleError(c, h.log, err, "signup failed")
		return
	}
	c.JSON(http.StatusCreated, signupResponse{UserID: u.ID})
}

type loginResponse struct {
	AccessToken string `json:"access_token,omitempty"`
	MFARequired bool   `json:"mfa_required,omitempty"`
	MFAToken    string `json:"mfa_token,omitempty"`
}

// Login handles POST /auth/login. Per spec.md §6 the body is form-encoded
// username/password, not JSON.
func (h *AuthHandler) Login(c *gin.Context) {
	email := c.PostForm("username")
	password := c.PostForm("password")
	if email == "" || password == "" {
		responses.HandleNewError(c, h.log, platformerrors.KindInvalid, "username and password are required")
		return
	}

	u, err := h.users.Authenticate(c.Request.Context(), email, password)
	if err != nil {
		responses.HandleError(c, h.log, err, "authentication failed")
		return
	}

	ipHash := auth.IPHash(h.ipSecret, c.ClientIP())

	if u.RequiresMFA() {
		tok, err := h.tokens.IssueMFA(u.ID, ipHash)
		if err != nil {
			responses.HandleNewError(c, h.log, platformerrors.KindInternal, "issue mfa token")
			return
		}
		c.JSON(http.StatusOK, loginResponse{MFARequired: true, MFAToken: tok})
		return
	}

	tok, err := h.tokens.IssueAccess(u.ID, auth.NewOpaqueID(), ipHash)
	if err != nil {
		responses.HandleNewError(c, h.log, platformerrors.KindInternal, "issue access token")
		return
	}
	c.JSON(http.StatusOK, loginResponse{AccessToken: tok})
}

type verify2FARequest struct {
	Code string `json:"code" binding:"required"`
}

// VerifyMFA handles POST /auth/login/verify-2fa: a bearer MFA token plus a
// TOTP code, exchanged for a fresh access token.
func (h *AuthHandler) VerifyMFA(c *gin.Context) {
	tok := bearerTokenFromHeader(c)
	if tok == "" {
		responses.HandleNewError(c, h.log, platformerrors.KindAuthRequired, "mfa token required")
		return
	}

	ipHash := auth.IPHash(h.ipSecret, c.ClientIP())
	claims, err := h.tokens.Verify(tok, auth.PurposeMFAVerification, ipHash)
	if err != nil {
		responses.HandleNewError(c, h.log, platformerrors.KindAuthRequired, "invalid or expired mfa token")
		return
	}

	var req verify2FARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, h.log, platformerrors.KindInvalid, "malformed verify-2fa request")
		return
	}

	if err := h.users.VerifyMFACode(c.Request.Context(), claims.Subject, req.Code); err != nil {
		responses.HandleError(c, h.log, err, "mfa verification failed")
		return
	}

	accessTok, err := h.tokens.IssueAccess(claims.Subject, auth.NewOpaqueID(), ipHash)
	if err != nil {
		responses.HandleNewError(c, h.log, platformerrors.KindInternal, "issue access token")
		return
	}
	c.JSON(http.StatusOK, loginResponse{AccessToken: accessTok})
}

type logoutAllResponse struct {
	RevokedSessions int `json:"revoked_sessions"`
}

// LogoutAll handles the supplemented POST /auth/logout-all endpoint,
// revoking every AccessGrant issued to the authenticated caller.
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	userID := middleware.UserID(c)
	n := h.authz.RevokeUserSessions(userID)
	c.JSON(http.StatusOK, logoutAllResponse{RevokedSessions: n})
}

func bearerTokenFromHeader(c *gin.Context) string {
	const prefix = "Bearer "
	h := c.GetHeader("Authorization")
	if len(h) <= len(prefix) || h[:len(prefix)] != prefix {
		return ""
	}
	return h[len(prefix):]
}

