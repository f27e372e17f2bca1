package memory

import (
	"context"
	"encoding/json"
	"sync"
)

// Store is an in-memory implementation of storage.Store, used when no
// backend is configured and as the baseline for tests.
type Store struct {
	mu     sync.RWMutex
	values map[string]json.RawMessage
}

func NewStore() *Store {
	return &Store{values: make(map[string]json.RawMessage)}
}

func (s *Store) Save(_ context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = data
	return nil
}

func (s *Store) Load(_ context.Context, key string, out any) (bool, error) {
	s.mu.RLock()
	data, ok := s.values[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
