package api

import (
	"errors"
	"net/http"

	"github.com/okian/stopwatch/internal/adapters/repository"
	service "github.com/okian/stopwatch/internal/app"
	"github.com/okian/stopwatch/internal/domain/objective"
	"github.com/okian/stopwatch/internal/domain/registry"
	"github.com/okian/stopwatch/internal/domain/state"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest    = errors.New("bad request")
	ErrLimitExceeded = errors.New("limit exceeded")
	ErrDuplicate     = errors.New("request with this Idempotency-Key was already processed")
)

// classify maps an error to its HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, state.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, service.ErrStopwatchNotFound),
		errors.Is(err, service.ErrEventNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrLimitExceeded):
		return http.StatusBadRequest, "limit_exceeded"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, state.ErrUnknownEventType),
		errors.Is(err, service.ErrTransitionEvent),
		errors.Is(err, service.ErrInvalidLimit),
		errors.Is(err, registry.ErrUnregistered),
		errors.Is(err, objective.ErrInvalidConfiguration):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrNotOpen):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
