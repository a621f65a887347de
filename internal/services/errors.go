package services

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRateLimited matches any upstream quota or rate-limit rejection.
	ErrRateLimited = errors.New("upstream rate limited")
	// ErrEmptyOutput is returned when a model answered without usable text,
	// including safety-blocked responses.
	ErrEmptyOutput = errors.New("empty model output")
)

// UpstreamError is a non-success response from a third-party API.
type UpstreamError struct {
	Backend    string
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s request failed with status %d: %s", e.Backend, e.StatusCode, e.Message)
}

// Is makes a 429 UpstreamError match ErrRateLimited.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrRateLimited && e.StatusCode == http.StatusTooManyRequests
}

// UpstreamStatus returns the upstream HTTP status carried by err, if any.
func UpstreamStatus(err error) (int, bool) {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.StatusCode, true
	}
	return 0, false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
