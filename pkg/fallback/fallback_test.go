package fallback

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errQuota = errors.New("quota")
	errBoom  = errors.New("boom")
)

func classify(err error) Outcome {
	if errors.Is(err, errQuota) {
		return Skip
	}
	return Fail
}

func backend(name string, backup bool, value string, err error, calls *[]string) Backend[string] {
	return Backend[string]{
		Name:   name,
		Backup: backup,
		Call: func(ctx context.Context) (string, error) {
			*calls = append(*calls, name)
			return value, err
		},
	}
}

func TestRun(t *testing.T) {
	tests := []struct {
		name          string
		errs          []error
		wantBackend   string
		wantBackup    bool
		wantCalls     []string
		wantExhausted bool
		wantFailed    bool
	}{
		{
			name:        "first succeeds",
			errs:        []error{nil, nil, nil},
			wantBackend: "a",
			wantCalls:   []string{"a"},
		},
		{
			name:        "skip to second",
			errs:        []error{errQuota, nil, nil},
			wantBackend: "b",
			wantCalls:   []string{"a", "b"},
		},
		{
			name:        "backup tier answers",
			errs:        []error{errQuota, errQuota, nil},
			wantBackend: "c",
			wantBackup:  true,
			wantCalls:   []string{"a", "b", "c"},
		},
		{
			name:          "all skipped",
			errs:          []error{errQuota, errQuota, errQuota},
			wantCalls:     []string{"a", "b", "c"},
			wantExhausted: true,
		},
		{
			name:       "hard failure stops the run",
			errs:       []error{errQuota, errBoom, nil},
			wantCalls:  []string{"a", "b"},
			wantFailed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []string
			backends := []Backend[string]{
				backend("a", false, "A", tt.errs[0], &calls),
				backend("b", false, "B", tt.errs[1], &calls),
				backend("c", true, "C", tt.errs[2], &calls),
			}

			result, err := Run(context.Background(), backends, classify)
			assert.Equal(t, tt.wantCalls, calls)

			switch {
			case tt.wantExhausted:
				var exhausted *ExhaustedError
				require.ErrorAs(t, err, &exhausted)
				assert.Len(t, exhausted.Attempts, 3)
				assert.ErrorIs(t, err, errQuota)
				assert.Nil(t, result)
			case tt.wantFailed:
				var failed *FailedError
				require.ErrorAs(t, err, &failed)
				assert.Equal(t, "b", failed.Backend)
				assert.Len(t, failed.Attempts, 1)
				assert.ErrorIs(t, err, errBoom)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantBackend, result.Backend)
				assert.Equal(t, tt.wantBackup, result.Backup)
				assert.Len(t, result.Attempts, len(tt.wantCalls)-1)
			}
		})
	}
}

func TestRun_NoBackends(t *testing.T) {
	_, err := Run[string](context.Background(), nil, classify)
	assert.ErrorIs(t, err, ErrNoBackends)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls []string
	_, err := Run(ctx, []Backend[string]{backend("a", false, "A", nil, &calls)}, classify)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, calls)
}

func TestExhaustedError_Message(t *testing.T) {
	err := &ExhaustedError{Attempts: []Attempt{{Backend: "x", Err: errQuota}, {Backend: "y", Err: errQuota}}}
	assert.Equal(t, "all 2 backends exhausted (x, y)", err.Error())
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "skip", Skip.String())
	assert.Equal(t, "fail", Fail.String())
	assert.Equal(t, "outcome(9)", Outcome(9).String())
}
