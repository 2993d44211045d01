package records

import (
	"context"
	"sync"
)

// MemoryStore keeps the snapshot in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	snap *Snapshot

	// Error injection
	LoadError error
	SaveError error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snap: NewSnapshot()}
}

// Load returns a copy of the stored snapshot.
func (m *MemoryStore) Load(ctx context.Context) (*Snapshot, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap.Clone(), nil
}

// Save replaces the stored snapshot with a copy of snap.
func (m *MemoryStore) Save(ctx context.Context, snap *Snapshot) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	if err := snap.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = snap.Clone()
	return nil
}
