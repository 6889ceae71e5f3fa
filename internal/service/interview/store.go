package interview

import (
	"context"
	"sync"

	model "github.com/zhouzirui/mockview/backend/internal/model/interview"
)

// SessionStore is the session registry. Implementations must be safe for concurrent use.
// A store shared between processes should also implement keylock.Interface; the engine then
// takes its session lock from the store instead of an in-process one.
type SessionStore interface {
	// Get returns ok=false when the id is unknown or expired.
	Get(ctx context.Context, id string) (s model.Session, ok bool, err error)
	Put(ctx context.Context, s model.Session) error
	Remove(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]model.Session
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]model.Session)}
}

func (m *MemoryStore) Get(_ context.Context, id string) (model.Session, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return model.Session{}, false, nil
	}
	return s.Clone(), true, nil
}

func (m *MemoryStore) Put(_ context.Context, s model.Session) error {
	m.mu.Lock()
	m.sessions[s.ID] = s.Clone()
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Exists(_ context.Context, id string) (bool, error) {
	m.mu.RLock()
	_, ok := m.sessions[id]
	m.mu.RUnlock()
	return ok, nil
}

// Len reports how many sessions are registered.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
