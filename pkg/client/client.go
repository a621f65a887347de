// Package client is a typed HTTP client for the GEM Engine API.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jwebster45206/gem-engine/pkg/turn"
	"github.com/jwebster45206/gem-engine/pkg/world"
)

// DefaultTimeout covers the slowest endpoint (image generation).
const DefaultTimeout = 200 * time.Second

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Message)
}

type errorResponse struct {
	Error string `json:"error"`
}

// Client talks to one API server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a client for baseURL. A nil httpClient gets DefaultTimeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Health reports whether the server answers /health with 200.
func (c *Client) Health(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// Turn resolves one narrative turn.
func (c *Client) Turn(ctx context.Context, req *turn.Request) (*turn.Response, error) {
	var resp turn.Response
	if err := c.postJSON(ctx, "/v1/turn", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Candidates asks for one generated setting per genre key.
func (c *Client) Candidates(ctx context.Context, genreKeys []string) ([]world.Candidate, error) {
	var out []world.Candidate
	body := struct {
		SelectedGenres []string `json:"selectedGenres"`
	}{genreKeys}
	if err := c.postJSON(ctx, "/v1/candidates", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Genres fetches the server's world configuration.
func (c *Client) Genres(ctx context.Context) (*world.WorldConfig, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/genres", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	var cfg world.WorldConfig
	if err := c.do(req, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Image returns an illustration as a data URL. visualSummary takes priority
// over prompt on the server. Raw image answers are converted.
func (c *Client) Image(ctx context.Context, prompt, visualSummary, genreKey string) (string, error) {
	body := struct {
		Prompt        string `json:"prompt,omitempty"`
		VisualSummary string `json:"visualSummary,omitempty"`
		GenreKey      string `json:"genreKey,omitempty"`
	}{prompt, visualSummary, genreKey}

	req, err := c.newJSONRequest(ctx, "/v1/image", body)
	if err != nil {
		return "", err
	}
	resp, data, err := c.roundTrip(req)
	if err != nil {
		return "", err
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "image/") {
		return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
	}

	var out struct {
		ImageURL string `json:"imageUrl"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("failed to parse image response: %w", err)
	}
	return out.ImageURL, nil
}

// Audio returns an ambient clip as a data URL.
func (c *Client) Audio(ctx context.Context, prompt string) (string, error) {
	var out struct {
		AudioURL string `json:"audioUrl"`
	}
	body := struct {
		Prompt string `json:"prompt"`
	}{prompt}
	if err := c.postJSON(ctx, "/v1/audio", body, &out); err != nil {
		return "", err
	}
	return out.AudioURL, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	req, err := c.newJSONRequest(ctx, path, in)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newJSONRequest(ctx context.Context, path string, in any) (*http.Request, error) {
	jsonData, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	_, body, err := c.roundTrip(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// roundTrip sends req and returns the body of a 2xx answer. Other statuses
// become an *APIError.
func (c *Client) roundTrip(req *http.Request) (*http.Response, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errorResp errorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil || errorResp.Error == "" {
			return nil, nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		}
		return nil, nil, &APIError{StatusCode: resp.StatusCode, Message: errorResp.Error}
	}
	return resp, body, nil
}
