package session

import (
	"context"
	"errors"
	"log"
	"sync"
)

// ErrMiss is returned by TransientStorage.Get when the key is absent.
var ErrMiss = errors.New("session: key not found")

// TransientStorage holds values for the lifetime of one browser session.
type TransientStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Context is the explicit per-session value handed to a conversation controller.
type Context struct {
	ID string
}

// IDFunc mints new session identifiers.
type IDFunc func() (string, error)

type Manager struct {
	storage TransientStorage
	newID   IDFunc
}

func NewManager(storage TransientStorage, newID IDFunc) *Manager {
	return &Manager{storage: storage, newID: newID}
}

func storageKey(tabKey string) string {
	return "chat:tab:" + tabKey + ":session"
}

// GetOrCreateSessionID returns the id already recorded for tabKey, or mints and
// records a new one. Storage failures degrade to an unrecorded id that is only
// valid for the current request.
func (m *Manager) GetOrCreateSessionID(ctx context.Context, tabKey string) string {
	id, _ := m.Resolve(ctx, tabKey)
	return id
}

// Resolve is GetOrCreateSessionID that also reports whether the id was
// recorded. An unrecorded id will not be seen again for this tab.
func (m *Manager) Resolve(ctx context.Context, tabKey string) (string, bool) {
	key := storageKey(tabKey)

	existing, err := m.storage.Get(ctx, key)
	switch {
	case err == nil && existing != "":
		return existing, true
	case err != nil && !errors.Is(err, ErrMiss):
		log.Printf("[GetOrCreateSessionID] storage get failed tab=%s err=%v", tabKey, err)
		return m.mint(tabKey), false
	}

	id := m.mint(tabKey)
	if err := m.storage.Set(ctx, key, id); err != nil {
		log.Printf("[GetOrCreateSessionID] storage set failed tab=%s err=%v", tabKey, err)
		return id, false
	}
	// a concurrent request from the same tab may have won the write
	if stored, err := m.storage.Get(ctx, key); err == nil && stored != "" {
		return stored, true
	}
	return id, true
}

func (m *Manager) mint(tabKey string) string {
	id, err := m.newID()
	if err != nil || id == "" {
		// entropy failure; fall back to the tab key itself, which is already random
		log.Printf("[GetOrCreateSessionID] id generation failed tab=%s err=%v", tabKey, err)
		return tabKey
	}
	return id
}

// MemoryStorage keeps values in process. Used when redis is not configured.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (s *MemoryStorage) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return "", ErrMiss
	}
	return v, nil
}

func (s *MemoryStorage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}
