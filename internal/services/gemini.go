package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/jwebster45206/gem-engine/pkg/prompts"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	geminiTopP            = 0.95
	geminiTopK            = 40
	geminiMaxOutputTokens = 2048
	jsonMIMEType          = "application/json"
)

// GeminiService implements TextModel for one Gemini API model.
type GeminiService struct {
	client    *genai.Client
	modelName string
	timeout   time.Duration
	logger    *slog.Logger
}

var _ TextModel = (*GeminiService)(nil)

// NewGeminiClient opens a Gemini API client shared by all models.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return client, nil
}

// NewGeminiService creates a text model bound to modelName.
func NewGeminiService(client *genai.Client, modelName string, timeout time.Duration, logger *slog.Logger) *GeminiService {
	return &GeminiService{
		client:    client,
		modelName: modelName,
		timeout:   timeout,
		logger:    logger,
	}
}

func (g *GeminiService) Name() string {
	return g.modelName
}

// Generate sends one generateContent call. Gemma models take neither a
// system instruction nor a JSON response type, so the instruction is folded
// into the prompt for them.
func (g *GeminiService) Generate(ctx context.Context, prompt prompts.Prompt, opts GenerateOptions) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(opts.Temperature)
	model.SetTopP(geminiTopP)
	model.SetTopK(geminiTopK)
	model.SetMaxOutputTokens(geminiMaxOutputTokens)

	text := prompt.User
	if SupportsSystemInstruction(g.modelName) {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(prompt.System)}}
		if opts.JSON {
			model.ResponseMIMEType = jsonMIMEType
		}
	} else {
		text = prompt.Combined()
	}

	start := time.Now()
	resp, err := model.GenerateContent(ctx, genai.Text(text))
	if err != nil {
		return "", classifyGeminiError(g.modelName, err)
	}

	out := responseText(resp)
	g.logger.Debug("Gemini response received",
		"model", g.modelName,
		"duration", time.Since(start),
		"length", len(out))
	if out == "" {
		return "", fmt.Errorf("%w from %s", ErrEmptyOutput, g.modelName)
	}
	return out, nil
}

// SupportsSystemInstruction reports whether a model accepts a separate
// system instruction and a JSON response type.
func SupportsSystemInstruction(modelName string) bool {
	return !strings.HasPrefix(strings.ToLower(modelName), "gemma")
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return strings.TrimSpace(sb.String())
}

// classifyGeminiError maps SDK errors onto UpstreamError and the sentinel
// errors of this package. Unrecognized errors are transport failures.
func classifyGeminiError(modelName string, err error) error {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return fmt.Errorf("%w from %s: %v", ErrEmptyOutput, modelName, err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &UpstreamError{Backend: modelName, StatusCode: apiErr.Code, Message: apiErr.Message}
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.OK && st.Code() != codes.Unknown {
		return &UpstreamError{Backend: modelName, StatusCode: httpStatusFromCode(st.Code()), Message: st.Message()}
	}

	return fmt.Errorf("gemini %s request failed: %w", modelName, err)
}

func httpStatusFromCode(code codes.Code) int {
	switch code {
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.Unimplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusBadGateway
	}
}
