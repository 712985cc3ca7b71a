// Package touch owns session and touchpoint state across page loads. It is
// the single writer of the session's first-touch record and touch counter.
// Storage is abstracted behind a key-value capability so the logic runs
// against browser-backed storage, Redis, or plain memory.
package touch

import "sync"

// Store is the durable key-value capability backing a session. Absent keys
// return ("", nil). Implementations must be safe to call after failures:
// the manager treats any error as "no persisted state" and keeps working
// in memory.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
}

// MemoryStore is an in-memory Store. It backs sessions when durable
// storage is unavailable, and the tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]string{}}
}

func (s *MemoryStore) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data[key], nil
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *MemoryStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

var _ Store = (*MemoryStore)(nil)
