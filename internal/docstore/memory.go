package docstore

import (
	"context"
	"sync"
)

// MemoryStore keeps documents in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

func (s *MemoryStore) Read(_ context.Context, collection string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.docs[collection]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *MemoryStore) Write(_ context.Context, collection string, data []byte) error {
	if err := validateName(collection); err != nil {
		return err
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[collection] = stored
	return nil
}
