package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jwebster45206/story-graph/pkg/player"
	"github.com/jwebster45206/story-graph/pkg/story"
)

// MockStorage is an in-memory implementation of Storage for testing.
// Documents and sessions are stored serialized so callers never share
// memory with the store.
type MockStorage struct {
	mu        sync.RWMutex
	stories   map[string][]byte
	sessions  map[uuid.UUID]*player.Session
	assets    map[string][]byte
	pingError error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		stories:  make(map[string][]byte),
		sessions: make(map[uuid.UUID]*player.Session),
		assets:   make(map[string][]byte),
	}
}

// SetPingError configures the mock to fail on ping with the given error.
// A nil error makes ping succeed again.
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockStorage) Close() error {
	return nil
}

func (m *MockStorage) ListStories(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.stories))
	for id := range m.stories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MockStorage) LoadStory(ctx context.Context, id string) (story.Document, error) {
	m.mu.RLock()
	data, exists := m.stories[id]
	m.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("story %q: %w", id, ErrNotFound)
	}
	return story.ParseDocument(data)
}

func (m *MockStorage) SaveStory(ctx context.Context, id string, doc story.Document) error {
	if doc == nil {
		return errors.New("document cannot be nil")
	}
	data, err := doc.Marshal()
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stories[id] = data
	return nil
}

func (m *MockStorage) DeleteStory(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stories, id)
	return nil
}

func (m *MockStorage) UploadAsset(ctx context.Context, data []byte, ext string) (string, error) {
	name := NewAssetName(ext)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assets[name] = append([]byte(nil), data...)
	return name, nil
}

func (m *MockStorage) ReadAsset(ctx context.Context, name string) ([]byte, error) {
	if err := ValidateAssetName(name); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, exists := m.assets[name]
	if !exists {
		return nil, fmt.Errorf("asset %q: %w", name, ErrNotFound)
	}
	return data, nil
}

func (m *MockStorage) DeleteAssets(ctx context.Context, names []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	for _, name := range names {
		if err := ValidateAssetName(name); err != nil {
			errs = append(errs, fmt.Errorf("%q: %w", name, err))
			continue
		}
		delete(m.assets, name)
	}
	return errors.Join(errs...)
}

// AddAsset stores an asset under a fixed name (for testing).
func (m *MockStorage) AddAsset(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assets[name] = data
}

// HasAsset reports whether an asset is stored (for testing).
func (m *MockStorage) HasAsset(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.assets[name]
	return ok
}

func (m *MockStorage) SavePlaySession(ctx context.Context, s *player.Session) error {
	if s == nil {
		return errors.New("session cannot be nil")
	}
	cp := *s
	cp.Vars = s.Vars.Clone()
	cp.History = append([]player.HistoryEntry(nil), s.History...)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = &cp
	return nil
}

func (m *MockStorage) LoadPlaySession(ctx context.Context, id uuid.UUID) (*player.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, exists := m.sessions[id]
	if !exists {
		return nil, nil
	}
	cp := *s
	cp.Vars = s.Vars.Clone()
	cp.History = append([]player.HistoryEntry(nil), s.History...)
	return &cp, nil
}

func (m *MockStorage) DeletePlaySession(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}
