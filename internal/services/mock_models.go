package services

import (
	"context"
	"sync"

	"github.com/jwebster45206/gem-engine/pkg/prompts"
)

// GenerateCall records one MockTextModel.Generate invocation.
type GenerateCall struct {
	Prompt  prompts.Prompt
	Options GenerateOptions
}

// MockTextModel is a TextModel for tests.
type MockTextModel struct {
	ModelName    string
	GenerateFunc func(ctx context.Context, prompt prompts.Prompt, opts GenerateOptions) (string, error)

	// Response and Err are used when GenerateFunc is nil.
	Response string
	Err      error

	mu    sync.Mutex
	calls []GenerateCall
}

var _ TextModel = (*MockTextModel)(nil)

// NewMockTextModel returns a model that always answers response.
func NewMockTextModel(name, response string) *MockTextModel {
	return &MockTextModel{ModelName: name, Response: response}
}

// NewFailingTextModel returns a model that always fails with err.
func NewFailingTextModel(name string, err error) *MockTextModel {
	return &MockTextModel{ModelName: name, Err: err}
}

func (m *MockTextModel) Name() string { return m.ModelName }

func (m *MockTextModel) Generate(ctx context.Context, prompt prompts.Prompt, opts GenerateOptions) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, GenerateCall{Prompt: prompt, Options: opts})
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt, opts)
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

// Calls returns a copy of the recorded calls.
func (m *MockTextModel) Calls() []GenerateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]GenerateCall(nil), m.calls...)
}

// CallCount returns how many times Generate ran.
func (m *MockTextModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// MockMediaGenerator is a MediaGenerator for tests.
type MockMediaGenerator struct {
	GeneratorName string
	GenerateFunc  func(ctx context.Context, prompt string) (*Media, error)

	Media *Media
	Err   error

	mu      sync.Mutex
	prompts []string
}

var _ MediaGenerator = (*MockMediaGenerator)(nil)

func NewMockMediaGenerator(name string, media *Media) *MockMediaGenerator {
	return &MockMediaGenerator{GeneratorName: name, Media: media}
}

func (m *MockMediaGenerator) Name() string { return m.GeneratorName }

func (m *MockMediaGenerator) Generate(ctx context.Context, prompt string) (*Media, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Media, nil
}

// Prompts returns the prompts Generate received, in order.
func (m *MockMediaGenerator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}
