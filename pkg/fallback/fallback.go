// Package fallback drives an ordered list of interchangeable backends,
// moving to the next one when a backend asks to be skipped.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Outcome classifies one backend invocation.
type Outcome int

const (
	// Success ends the run with the backend's value.
	Success Outcome = iota
	// Skip moves on to the next backend.
	Skip
	// Fail aborts the run with the backend's error.
	Fail
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Skip:
		return "skip"
	case Fail:
		return "fail"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Backend is one named candidate. Backup marks a lower-priority tier.
type Backend[T any] struct {
	Name   string
	Backup bool
	Call   func(ctx context.Context) (T, error)
}

// Classifier maps a non-nil backend error to Skip or Fail. Anything other
// than Skip aborts the run.
type Classifier func(err error) Outcome

// Attempt records one skipped backend.
type Attempt struct {
	Backend string
	Err     error
}

// Result is the value produced by the first successful backend.
type Result[T any] struct {
	Value    T
	Backend  string
	Backup   bool
	Attempts []Attempt
}

// ExhaustedError is returned when every backend was skipped.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	names := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		names = append(names, a.Backend)
	}
	return fmt.Sprintf("all %d backends exhausted (%s)", len(e.Attempts), strings.Join(names, ", "))
}

func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// FailedError wraps the error of the backend that aborted the run.
type FailedError struct {
	Backend  string
	Err      error
	Attempts []Attempt
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("backend %s failed: %v", e.Backend, e.Err)
}

func (e *FailedError) Unwrap() error { return e.Err }

var ErrNoBackends = errors.New("no backends configured")

// Run calls backends in order until one succeeds or fails hard.
func Run[T any](ctx context.Context, backends []Backend[T], classify Classifier) (*Result[T], error) {
	if len(backends) == 0 {
		return nil, ErrNoBackends
	}

	var attempts []Attempt
	for _, b := range backends {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		value, err := b.Call(ctx)
		if err == nil {
			return &Result[T]{Value: value, Backend: b.Name, Backup: b.Backup, Attempts: attempts}, nil
		}

		if classify(err) != Skip {
			return nil, &FailedError{Backend: b.Name, Err: err, Attempts: attempts}
		}
		attempts = append(attempts, Attempt{Backend: b.Name, Err: err})
	}
	return nil, &ExhaustedError{Attempts: attempts}
}
