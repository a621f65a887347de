package resolver

import (
	"context"
	"errors"
	"net/http"

	"github.com/jwebster45206/gem-engine/internal/services"
	"github.com/jwebster45206/gem-engine/pkg/fallback"
	"github.com/jwebster45206/gem-engine/pkg/turn"
)

// ErrInvalidRequest wraps every input validation failure.
var ErrInvalidRequest = errors.New("invalid request")

// HTTPStatus maps a resolver error onto the status returned to API callers:
// bad input is 400, an exhausted model list is 429, no backends is 503 and a
// deadline is 504. Upstream statuses pass through; transport failures and
// unparseable output are 502.
func HTTPStatus(err error) int {
	var exhausted *fallback.ExhaustedError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.As(err, &exhausted):
		return http.StatusTooManyRequests
	case errors.Is(err, fallback.ErrNoBackends):
		return http.StatusServiceUnavailable
	}

	if status, ok := services.UpstreamStatus(err); ok {
		return status
	}
	switch {
	case errors.Is(err, services.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, turn.ErrMalformedOutput),
		errors.Is(err, services.ErrEmptyOutput),
		errors.Is(err, services.ErrNoMedia):
		return http.StatusBadGateway
	}

	var failed *fallback.FailedError
	if errors.As(err, &failed) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
