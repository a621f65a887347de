package services

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestClassifyGeminiError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		rateLimited bool
		empty       bool
	}{
		{
			name:        "rest quota",
			err:         fmt.Errorf("wrapped: %w", &googleapi.Error{Code: http.StatusTooManyRequests, Message: "quota"}),
			wantStatus:  http.StatusTooManyRequests,
			rateLimited: true,
		},
		{
			name:       "rest bad request",
			err:        &googleapi.Error{Code: http.StatusBadRequest, Message: "bad"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:        "grpc resource exhausted",
			err:         status.Error(codes.ResourceExhausted, "quota"),
			wantStatus:  http.StatusTooManyRequests,
			rateLimited: true,
		},
		{
			name:       "grpc unavailable",
			err:        status.Error(codes.Unavailable, "down"),
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:  "blocked",
			err:   &genai.BlockedError{},
			empty: true,
		},
		{
			name: "transport",
			err:  errors.New("connection reset"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyGeminiError("gemini-test", tt.err)
			require.Error(t, got)

			code, ok := UpstreamStatus(got)
			if tt.wantStatus == 0 {
				assert.False(t, ok)
			} else {
				assert.True(t, ok)
				assert.Equal(t, tt.wantStatus, code)
			}
			assert.Equal(t, tt.rateLimited, errors.Is(got, ErrRateLimited))
			assert.Equal(t, tt.empty, errors.Is(got, ErrEmptyOutput))
		})
	}
}

func TestResponseText(t *testing.T) {
	assert.Equal(t, "", responseText(nil))
	assert.Equal(t, "", responseText(&genai.GenerateContentResponse{}))
	assert.Equal(t, "", responseText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(" {\"a\":"), genai.Text("1} ")}},
		}},
	}
	assert.Equal(t, `{"a":1}`, responseText(resp))
}

func TestSupportsSystemInstruction(t *testing.T) {
	assert.True(t, SupportsSystemInstruction("gemini-2.5-flash"))
	assert.False(t, SupportsSystemInstruction("gemma-3-27b-it"))
	assert.False(t, SupportsSystemInstruction("Gemma-3-12b-it"))
}

func TestHTTPStatusFromCode(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, httpStatusFromCode(codes.Unauthenticated))
	assert.Equal(t, http.StatusForbidden, httpStatusFromCode(codes.PermissionDenied))
	assert.Equal(t, http.StatusNotFound, httpStatusFromCode(codes.NotFound))
	assert.Equal(t, http.StatusGatewayTimeout, httpStatusFromCode(codes.DeadlineExceeded))
	assert.Equal(t, http.StatusBadGateway, httpStatusFromCode(codes.Internal))
}

func TestUpstreamError(t *testing.T) {
	err := &UpstreamError{Backend: "imagen", StatusCode: http.StatusTooManyRequests, Message: "slow down"}
	assert.Equal(t, "imagen request failed with status 429: slow down", err.Error())
	assert.ErrorIs(t, err, ErrRateLimited)

	notLimited := &UpstreamError{Backend: "imagen", StatusCode: http.StatusInternalServerError}
	assert.NotErrorIs(t, notLimited, ErrRateLimited)
}
