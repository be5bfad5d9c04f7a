// Package platformerrors defines the typed error kinds Sectify surfaces as
// problem+json, and a single translation point into HTTP status codes.
package platformerrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Kind is the wire-visible error category from spec.md §7.
type Kind string

const (
	KindAuthRequired    Kind = "AuthRequired"
	KindForbidden       Kind = "Forbidden"
	KindNotFound        Kind = "NotFound"
	KindInvalid         Kind = "Invalid"
	KindConflict        Kind = "Conflict"
	KindIntegrityError  Kind = "IntegrityError"
	KindThrottled       Kind = "Throttled"
	KindTransient       Kind = "Transient"
	KindInternal        Kind = "Internal"
)

// Layer names the subsystem an error originated in, for logging only;
// it is never part of the wire response.
type Layer string

const (
	LayerHandler        Layer = "handler"
	LayerDomain          Layer = "domain"
	LayerRepository      Layer = "repository"
	LayerInfrastructure  Layer = "infrastructure"
)

// Error carries a wire-safe Kind/Message plus an internal cause and UUID
// for correlating logs with the response seen by the caller.
type Error struct {
	UUID      string
	Layer     Layer
	Kind      Kind
	Message   string
	Cause     error
	RequestID string
	Timestamp time.Time
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s][%s][%s] %s: %v", e.Layer, e.Kind, e.UUID, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s][%s][%s] %s", e.Layer, e.Kind, e.UUID, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an Error, minting a UUID when none is supplied.
func New(ctx context.Context, layer Layer, kind Kind, message string, cause error) *Error {
	return &Error{
		UUID:      uuid.NewString(),
		Layer:     layer,
		Kind:      kind,
		Message:   message,
		Cause:     cause,
		RequestID: requestIDFromContext(ctx),
		Timestamp: time.Now(),
	}
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

type requestIDKey struct{}

// WithRequestID attaches a request id to ctx for later error correlation.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// HTTPStatus maps a Kind to the status code from spec.md §7. NotFound and
// Forbidden never leak which of the two truly applies beyond what the
// caller already has a right to see (P3).
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindAuthRequired:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalid:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindIntegrityError:
		return http.StatusInternalServerError
	case KindThrottled:
		return http.StatusTooManyRequests
	case KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}

// Log writes a structured log line for a platform error; cryptographic and
// integrity failures are always logged at error level with the request id
// per the propagation policy in spec.md §7.
func Log(log zerolog.Logger, err *Error) {
	if err == nil {
		return
	}
	event := log.Error().
		Str("error_uuid", err.UUID).
		Str("kind", string(err.Kind)).
		Str("layer", string(err.Layer)).
		Time("ts", err.Timestamp)
	if err.RequestID != "" {
		event = event.Str("request_id", err.RequestID)
	}
	if err.Cause != nil {
		event = event.Err(err.Cause)
	}
	event.Msg(err.Message)
}
