package responses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sectify/sectify/internal/platformerrors"
)

// ErrorResponse is the problem+json-ish body spec.md §7 wants for every
// non-2xx response: a stable kind, a human message, and a UUID a caller
// can quote back in a support request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Kind    string `json:"kind"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HandleError logs and writes the HTTP response for err. A *platformerrors.Error
// carries its own wire-safe Kind/Message; anything else is treated as an
// unexpected internal failure and never echoes err's text to the caller.
func HandleError(c *gin.Context, log zerolog.Logger, err error, fallback string) {
	var pe *platformerrors.Error
	if errors.As(err, &pe) {
		platformerrors.Log(log, pe)
		msg := pe.Message
		if msg == "" {
			msg = fallback
		}
		c.AbortWithStatusJSON(platformerrors.HTTPStatus(pe.Kind), ErrorResponse{
			Code:    pe.UUID,
			Kind:    string(pe.Kind),
			Error:   msg,
			Message: msg,
		})
		return
	}

	pe = platformerrors.New(c.Request.Context(), platformerrors.LayerHandler, platformerrors.KindInternal, fallback, err)
	platformerrors.Log(log, pe)
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
		Code:    pe.UUID,
		Kind:    string(platformerrors.KindInternal),
		Error:   fallback,
		Message: fallback,
	})
}

// HandleNewError constructs a fresh platform error at the handler layer and
// writes its response, used when a handler rejects a request before any
// domain call (malformed JSON, missing path param, and the like).
func HandleNewError(c *gin.Context, log zerolog.Logger, kind platformerrors.Kind, message string) {
	err := platformerrors.New(c.Request.Context(), platformerrors.LayerHandler, kind, message, nil)
	platformerrors.Log(log, err)
	c.AbortWithStatusJSON(platformerrors.HTTPStatus(kind), ErrorResponse{
		Code:    err.UUID,
		Kind:    string(kind),
		Error:   message,
		Message: message,
	})
}
