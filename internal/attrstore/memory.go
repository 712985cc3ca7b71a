package attrstore

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-process fallback Store for environments without
// Redis. Snapshots do not survive restarts, which only costs deferred
// corrections their lookup data.
type MemoryStore struct {
	mu    sync.RWMutex
	ttl   time.Duration
	snaps map[string]memoryEntry
}

type memoryEntry struct {
	snap      Snapshot
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, snaps: map[string]memoryEntry{}}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Save(ctx context.Context, email string, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[normalizeEmail(email)] = memoryEntry{
		snap:      snap,
		expiresAt: time.Now().Add(s.ttl),
	}
	return nil
}

func (s *MemoryStore) Lookup(ctx context.Context, email string) (Snapshot, bool, error) {
	s.mu.RLock()
	entry, ok := s.snaps[normalizeEmail(email)]
	s.mu.RUnlock()

	if !ok {
		return Snapshot{}, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.snaps, normalizeEmail(email))
		s.mu.Unlock()
		return Snapshot{}, false, nil
	}
	return entry.snap, true, nil
}
