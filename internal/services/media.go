package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNoMedia is returned when an upstream answered 2xx without any payload.
var ErrNoMedia = errors.New("upstream returned no media")

// Media is a generated image or audio clip.
type Media struct {
	Data     []byte
	MIMEType string
}

// DataURL encodes the media as a base64 data URL.
func (m *Media) DataURL() string {
	return "data:" + m.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(m.Data)
}

// ParseDataURL decodes a base64 data URL produced by DataURL.
func ParseDataURL(s string) (*Media, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, fmt.Errorf("not a data url")
	}
	mime, encoded, ok := strings.Cut(rest, ";base64,")
	if !ok {
		return nil, fmt.Errorf("data url is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode data url: %w", err)
	}
	return &Media{Data: data, MIMEType: mime}, nil
}

// MediaGenerator turns a prompt into an image or audio clip.
type MediaGenerator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (*Media, error)
}

// PredictClient calls the Gemini API :predict method used by the Imagen and
// Lyria models.
type PredictClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type predictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters predictParameters `json:"parameters"`
}

type predictInstance struct {
	Prompt string `json:"prompt"`
}

type predictParameters struct {
	SampleCount int `json:"sampleCount"`
}

type predictResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MimeType           string `json:"mimeType"`
	} `json:"predictions"`
}

// NewPredictClient creates a client for baseURL, e.g.
// https://generativelanguage.googleapis.com/v1beta.
func NewPredictClient(baseURL, apiKey string, timeout time.Duration) *PredictClient {
	return &PredictClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Predict requests one sample from model and returns it decoded. The
// upstream MIME type wins over fallbackMIME when present.
func (c *PredictClient) Predict(ctx context.Context, model, prompt, fallbackMIME string) (*Media, error) {
	reqBody, err := json.Marshal(predictRequest{
		Instances:  []predictInstance{{Prompt: prompt}},
		Parameters: predictParameters{SampleCount: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:predict", c.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	body, err := doRequest(c.httpClient, req, model)
	if err != nil {
		return nil, err
	}

	var predictResp predictResponse
	if err := json.Unmarshal(body, &predictResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(predictResp.Predictions) == 0 || predictResp.Predictions[0].BytesBase64Encoded == "" {
		return nil, fmt.Errorf("%s: %w", model, ErrNoMedia)
	}

	prediction := predictResp.Predictions[0]
	data, err := base64.StdEncoding.DecodeString(prediction.BytesBase64Encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", model, err)
	}
	mime := prediction.MimeType
	if mime == "" {
		mime = fallbackMIME
	}
	return &Media{Data: data, MIMEType: mime}, nil
}

// doRequest executes req and returns the body of a 2xx response. Other
// statuses become an UpstreamError.
func doRequest(client *http.Client, req *http.Request, backend string) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Backend: backend, StatusCode: resp.StatusCode, Message: truncate(string(body), 512)}
	}
	return body, nil
}
