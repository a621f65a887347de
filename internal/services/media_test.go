package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/gem-engine/internal/metrics"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestMedia_DataURL(t *testing.T) {
	m := &Media{Data: []byte("hello"), MIMEType: "image/png"}
	url := m.DataURL()
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", url)

	parsed, err := ParseDataURL(url)
	require.NoError(t, err)
	assert.Equal(t, m, parsed)

	for _, bad := range []string{"", "http://x", "data:image/png,raw", "data:image/png;base64,%%%"} {
		_, err := ParseDataURL(bad)
		assert.Error(t, err, bad)
	}
}

func TestPredictClient_Predict(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantMIME   string
		wantErr    error
		wantStatus int
	}{
		{
			name:     "success with upstream mime",
			status:   http.StatusOK,
			body:     `{"predictions":[{"bytesBase64Encoded":"aGVsbG8=","mimeType":"image/jpeg"}]}`,
			wantMIME: "image/jpeg",
		},
		{
			name:     "success uses fallback mime",
			status:   http.StatusOK,
			body:     `{"predictions":[{"bytesBase64Encoded":"aGVsbG8="}]}`,
			wantMIME: "image/png",
		},
		{
			name:    "no predictions",
			status:  http.StatusOK,
			body:    `{"predictions":[]}`,
			wantErr: ErrNoMedia,
		},
		{
			name:       "rate limited",
			status:     http.StatusTooManyRequests,
			body:       `{"error":{"message":"quota"}}`,
			wantErr:    ErrRateLimited,
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name:       "server error",
			status:     http.StatusInternalServerError,
			body:       `boom`,
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath, gotKey string
			var gotReq predictRequest
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotKey = r.Header.Get("x-goog-api-key")
				_ = json.NewDecoder(r.Body).Decode(&gotReq)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewPredictClient(srv.URL+"/", "secret", 5*time.Second)
			media, err := client.Predict(context.Background(), "imagen-3.0-generate-001", "a castle", "image/png")

			assert.Equal(t, "/models/imagen-3.0-generate-001:predict", gotPath)
			assert.Equal(t, "secret", gotKey)
			require.Len(t, gotReq.Instances, 1)
			assert.Equal(t, "a castle", gotReq.Instances[0].Prompt)
			assert.Equal(t, 1, gotReq.Parameters.SampleCount)

			if tt.wantErr != nil || tt.wantStatus != 0 {
				require.Error(t, err)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				if tt.wantStatus != 0 {
					status, ok := UpstreamStatus(err)
					assert.True(t, ok)
					assert.Equal(t, tt.wantStatus, status)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []byte("hello"), media.Data)
			assert.Equal(t, tt.wantMIME, media.MIMEType)
		})
	}
}

func TestImagenAndLyriaBackends(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"predictions":[{"bytesBase64Encoded":"aGVsbG8=","mimeType":"audio/wav"}]}`))
	}))
	defer srv.Close()

	predict := NewPredictClient(srv.URL, "k", time.Second)

	imagen := NewImagenBackend(predict, "imagen-3.0-generate-001")
	assert.Equal(t, "imagen-3.0-generate-001", imagen.Name())
	_, err := imagen.Generate(context.Background(), "p")
	require.NoError(t, err)

	lyria := NewLyriaBackend(predict, "lyria-002")
	media, err := lyria.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "audio/mpeg", media.MIMEType, "audio is always served as mpeg")
}

func TestHuggingFaceBackend(t *testing.T) {
	var gotAuth string
	var gotReq huggingFaceRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_, _ = w.Write(pngHeader)
	}))
	defer srv.Close()

	backend := NewHuggingFaceBackend(srv.URL, "hf_token", time.Second)
	media, err := backend.Generate(context.Background(), "a forest")
	require.NoError(t, err)

	assert.Equal(t, "Bearer hf_token", gotAuth)
	assert.Equal(t, "a forest", gotReq.Inputs)
	assert.True(t, gotReq.Options.WaitForModel)
	assert.Equal(t, "image/png", media.MIMEType)
	assert.Equal(t, pngHeader, media.Data)
}

func TestHuggingFaceBackend_Errors(t *testing.T) {
	t.Run("loading model", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"Model is currently loading"}`))
		}))
		defer srv.Close()

		_, err := NewHuggingFaceBackend(srv.URL, "t", time.Second).Generate(context.Background(), "p")
		status, ok := UpstreamStatus(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusServiceUnavailable, status)
	})

	t.Run("empty body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer srv.Close()

		_, err := NewHuggingFaceBackend(srv.URL, "t", time.Second).Generate(context.Background(), "p")
		assert.ErrorIs(t, err, ErrNoMedia)
	})
}

func TestLocalImageBackend(t *testing.T) {
	var gotPath string
	var gotReq txt2imgRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode(txt2imgResponse{Images: []string{base64.StdEncoding.EncodeToString(pngHeader)}})
	}))
	defer srv.Close()

	backend := NewLocalImageBackend(srv.URL+"/", time.Second)
	media, err := backend.Generate(context.Background(), "a ship")
	require.NoError(t, err)

	assert.Equal(t, "/sdapi/v1/txt2img", gotPath)
	assert.Equal(t, "a ship", gotReq.Prompt)
	assert.Equal(t, pngHeader, media.Data)
	assert.Equal(t, "image/png", media.MIMEType)
}

func TestLocalImageBackend_NoImages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"images":[]}`))
	}))
	defer srv.Close()

	_, err := NewLocalImageBackend(srv.URL, time.Second).Generate(context.Background(), "p")
	assert.ErrorIs(t, err, ErrNoMedia)
}

func TestCachedGenerator(t *testing.T) {
	ctx := context.Background()
	media := &Media{Data: []byte("img"), MIMEType: "image/png"}
	next := NewMockMediaGenerator("imagen", media)
	cache := NewMockCache()
	m := metrics.New()

	gen := NewCachedGenerator(next, cache, "image", time.Hour, m, testLogger())
	assert.Equal(t, "imagen", gen.Name())

	key := gen.CacheKey("a castle")
	assert.True(t, strings.HasPrefix(key, "image:"))
	assert.Equal(t, key, gen.CacheKey("a castle"), "keys are deterministic")
	assert.NotEqual(t, key, gen.CacheKey("a cave"))

	first, err := gen.Generate(ctx, "a castle")
	require.NoError(t, err)
	assert.Equal(t, media, first)
	require.Len(t, cache.SetCalls, 1)
	assert.Equal(t, key, cache.SetCalls[0].Key)
	assert.Equal(t, time.Hour, cache.SetCalls[0].Expiration)

	second, err := gen.Generate(ctx, "a castle")
	require.NoError(t, err)
	assert.Equal(t, media, second)
	assert.Len(t, next.Prompts(), 1, "second call is served from cache")
}

func TestCachedGenerator_CacheFailuresAreIgnored(t *testing.T) {
	ctx := context.Background()
	next := NewMockMediaGenerator("imagen", &Media{Data: []byte("img"), MIMEType: "image/png"})
	cache := NewMockCache()
	cache.GetFunc = func(ctx context.Context, key string) (string, error) {
		return "", errors.New("connection refused")
	}
	cache.SetFunc = func(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
		return errors.New("connection refused")
	}

	gen := NewCachedGenerator(next, cache, "image", time.Hour, nil, testLogger())
	media, err := gen.Generate(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, []byte("img"), media.Data)
}

func TestCachedGenerator_CorruptEntry(t *testing.T) {
	ctx := context.Background()
	next := NewMockMediaGenerator("lyria-002", &Media{Data: []byte("mp3"), MIMEType: "audio/mpeg"})
	cache := NewMockCache()
	gen := NewCachedGenerator(next, cache, "audio", time.Hour, nil, testLogger())

	key := gen.CacheKey("rain")
	require.NoError(t, cache.Set(ctx, key, "garbage", 0))

	media, err := gen.Generate(ctx, "rain")
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3"), media.Data)
	require.Len(t, cache.DelCalls, 1)
	assert.Equal(t, []string{key}, cache.DelCalls[0])
}

func TestCachedGenerator_UpstreamError(t *testing.T) {
	next := &MockMediaGenerator{GeneratorName: "imagen", Err: ErrNoMedia}
	cache := NewMockCache()
	gen := NewCachedGenerator(next, cache, "image", time.Hour, nil, testLogger())

	_, err := gen.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, ErrNoMedia)
	assert.Empty(t, cache.SetCalls)
}
