package cache

import (
	"sync"
	"time"

	"tokenscout/internal/domain/model"
)

// MemoryStore holds exactly one snapshot in process memory. It exists to
// bridge redis outages and is intentionally lost on restart. Validity is
// decided by the caller against the snapshot's write time.
type MemoryStore struct {
	mu   sync.RWMutex
	snap *model.Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Set replaces the held snapshot wholesale.
func (s *MemoryStore) Set(snap model.Snapshot) {
	s.mu.Lock()
	s.snap = &snap
	s.mu.Unlock()
}

// Get returns the held snapshot if its age is below ttl.
func (s *MemoryStore) Get(ttl time.Duration) (*model.Snapshot, bool) {
	s.mu.RLock()
	snap := s.snap
	s.mu.RUnlock()

	if snap == nil {
		return nil, false
	}
	if time.Since(snap.WrittenAt) >= ttl {
		return nil, false
	}
	return snap, true
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	s.snap = nil
	s.mu.Unlock()
}
