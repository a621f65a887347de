package services

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockCache is an in-memory Cache for tests. Func fields override the
// default map-backed behavior.
type MockCache struct {
	PingFunc              func(ctx context.Context) error
	SetFunc               func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	GetFunc               func(ctx context.Context, key string) (string, error)
	DelFunc               func(ctx context.Context, keys ...string) error
	CloseFunc             func() error
	WaitForConnectionFunc func(ctx context.Context) error

	// Track calls for testing
	PingCalls              int
	SetCalls               []SetCall
	GetCalls               []string
	DelCalls               [][]string
	CloseCalls             int
	WaitForConnectionCalls int

	mu   sync.Mutex
	data map[string]string
}

type SetCall struct {
	Key        string
	Value      interface{}
	Expiration time.Duration
}

// NewMockCache creates a new mock cache
func NewMockCache() *MockCache {
	return &MockCache{data: make(map[string]string)}
}

// Ping mocks cache ping
func (m *MockCache) Ping(ctx context.Context) error {
	m.mu.Lock()
	m.PingCalls++
	fn := m.PingFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return nil
}

// Set stores value under key unless SetFunc is provided.
func (m *MockCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	m.mu.Lock()
	m.SetCalls = append(m.SetCalls, SetCall{Key: key, Value: value, Expiration: expiration})
	fn := m.SetFunc
	if fn == nil {
		m.data[key] = fmt.Sprint(value)
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, key, value, expiration)
	}
	return nil
}

// Get returns the stored value, or "" when the key is missing.
func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	m.GetCalls = append(m.GetCalls, key)
	fn := m.GetFunc
	value := m.data[key]
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, key)
	}
	return value, nil
}

// Del mocks cache delete
func (m *MockCache) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	m.DelCalls = append(m.DelCalls, keys)
	fn := m.DelFunc
	if fn == nil {
		for _, k := range keys {
			delete(m.data, k)
		}
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, keys...)
	}
	return nil
}

// Close mocks cache close
func (m *MockCache) Close() error {
	m.mu.Lock()
	m.CloseCalls++
	fn := m.CloseFunc
	m.mu.Unlock()

	if fn != nil {
		return fn()
	}
	return nil
}

// WaitForConnection mocks cache connection waiting
func (m *MockCache) WaitForConnection(ctx context.Context) error {
	m.mu.Lock()
	m.WaitForConnectionCalls++
	fn := m.WaitForConnectionFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return nil
}

// Reset clears stored data and call tracking
func (m *MockCache) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]string)
	m.PingCalls = 0
	m.SetCalls = nil
	m.GetCalls = nil
	m.DelCalls = nil
	m.CloseCalls = 0
	m.WaitForConnectionCalls = 0
}

// SetPingError sets up the mock to return an error on Ping
func (m *MockCache) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PingFunc = func(ctx context.Context) error {
		return err
	}
}

// SetPingSuccess sets up the mock to return success on Ping
func (m *MockCache) SetPingSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PingFunc = nil
}

// Ensure MockCache implements Cache interface
var _ Cache = (*MockCache)(nil)
