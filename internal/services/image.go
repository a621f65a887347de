package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const pngMIMEType = "image/png"

// ImagenBackend generates illustrations with an Imagen model.
type ImagenBackend struct {
	predict *PredictClient
	model   string
}

var _ MediaGenerator = (*ImagenBackend)(nil)

func NewImagenBackend(predict *PredictClient, model string) *ImagenBackend {
	return &ImagenBackend{predict: predict, model: model}
}

func (b *ImagenBackend) Name() string { return b.model }

func (b *ImagenBackend) Generate(ctx context.Context, prompt string) (*Media, error) {
	return b.predict.Predict(ctx, b.model, prompt, pngMIMEType)
}

// HuggingFaceBackend generates illustrations with a hosted diffusion model
// that answers with raw image bytes.
type HuggingFaceBackend struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

var _ MediaGenerator = (*HuggingFaceBackend)(nil)

type huggingFaceRequest struct {
	Inputs  string `json:"inputs"`
	Options struct {
		WaitForModel bool `json:"wait_for_model"`
	} `json:"options"`
}

func NewHuggingFaceBackend(endpoint, token string, timeout time.Duration) *HuggingFaceBackend {
	return &HuggingFaceBackend{
		endpoint: endpoint,
		token:    token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (b *HuggingFaceBackend) Name() string { return "huggingface" }

func (b *HuggingFaceBackend) Generate(ctx context.Context, prompt string) (*Media, error) {
	payload := huggingFaceRequest{Inputs: prompt}
	payload.Options.WaitForModel = true

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/png")

	body, err := doRequest(b.httpClient, req, b.Name())
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%s: %w", b.Name(), ErrNoMedia)
	}

	mime := http.DetectContentType(body)
	if !strings.HasPrefix(mime, "image/") {
		mime = pngMIMEType
	}
	return &Media{Data: body, MIMEType: mime}, nil
}

// LocalImageBackend generates illustrations with a Stable Diffusion WebUI
// instance reachable on the local network.
type LocalImageBackend struct {
	baseURL    string
	httpClient *http.Client
}

var _ MediaGenerator = (*LocalImageBackend)(nil)

type txt2imgRequest struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Steps          int    `json:"steps"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
}

type txt2imgResponse struct {
	Images []string `json:"images"`
}

func NewLocalImageBackend(baseURL string, timeout time.Duration) *LocalImageBackend {
	return &LocalImageBackend{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (b *LocalImageBackend) Name() string { return "local" }

func (b *LocalImageBackend) Generate(ctx context.Context, prompt string) (*Media, error) {
	reqBody, err := json.Marshal(txt2imgRequest{
		Prompt:         prompt,
		NegativePrompt: "text, watermark, photorealistic",
		Steps:          25,
		Width:          768,
		Height:         512,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/sdapi/v1/txt2img", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := doRequest(b.httpClient, req, b.Name())
	if err != nil {
		return nil, err
	}

	var resp txt2imgResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(resp.Images) == 0 {
		return nil, fmt.Errorf("%s: %w", b.Name(), ErrNoMedia)
	}
	data, err := base64.StdEncoding.DecodeString(resp.Images[0])
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return &Media{Data: data, MIMEType: pngMIMEType}, nil
}

const mpegMIMEType = "audio/mpeg"

// LyriaBackend generates ambient audio with a Lyria model.
type LyriaBackend struct {
	predict *PredictClient
	model   string
}

var _ MediaGenerator = (*LyriaBackend)(nil)

func NewLyriaBackend(predict *PredictClient, model string) *LyriaBackend {
	return &LyriaBackend{predict: predict, model: model}
}

func (b *LyriaBackend) Name() string { return b.model }

// Generate always labels the clip audio/mpeg, which is what the client plays.
func (b *LyriaBackend) Generate(ctx context.Context, prompt string) (*Media, error) {
	media, err := b.predict.Predict(ctx, b.model, prompt, mpegMIMEType)
	if err != nil {
		return nil, err
	}
	media.MIMEType = mpegMIMEType
	return media, nil
}
