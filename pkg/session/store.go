package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DefaultStateFile is the name of the single save slot.
const DefaultStateFile = "gem-engine-state.json"

// Store persists the one saved session. Load returns nil, nil when nothing
// has been saved.
type Store interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, s State) error
	Clear(ctx context.Context) error
}

// FileStore keeps the session as one JSON document. Every Save overwrites
// the previous one.
type FileStore struct {
	path string
	mu   sync.Mutex
}

var _ Store = (*FileStore)(nil)

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultStatePath returns DefaultStateFile under the user config directory,
// falling back to the working directory.
func DefaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return DefaultStateFile
	}
	return filepath.Join(dir, "gem-engine", DefaultStateFile)
}

func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Load(_ context.Context) (*State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read saved session: %w", err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse saved session: %w", err)
	}
	return &s, nil
}

// Save writes to a temp file and renames it over the slot so a crash never
// leaves a half-written document.
func (f *FileStore) Save(_ context.Context, s State) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".gem-engine-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close session file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

func (f *FileStore) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove saved session: %w", err)
	}
	return nil
}

// MemoryStore keeps the session in memory.
type MemoryStore struct {
	mu    sync.RWMutex
	saved *State
	saves int
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.saved == nil {
		return nil, nil
	}
	s := m.saved.Clone()
	return &s, nil
}

func (m *MemoryStore) Save(_ context.Context, s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := s.Clone()
	c.IsLoading = false
	c.Error = ""
	m.saved = &c
	m.saves++
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = nil
	return nil
}

// Saves returns how many times Save was called.
func (m *MemoryStore) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}
