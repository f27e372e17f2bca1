package history

import (
	"context"
	"log"
	"sync"

	"hastyquiz-service/internal/domain"
	"hastyquiz-service/internal/storage"
)

// Store is the append-only log of completed session summaries. CompletedAt
// acts as the natural idempotency key for a single completion event, so the
// same summary can never be recorded twice.
type Store struct {
	backend storage.Store

	mu      sync.RWMutex
	entries []domain.Summary
}

// NewStore loads any persisted history; a read failure starts empty.
func NewStore(ctx context.Context, backend storage.Store) *Store {
	var entries []domain.Summary
	if _, err := backend.Load(ctx, storage.KeyHistory, &entries); err != nil {
		log.Printf("history: load failed, starting empty: %v", err)
		entries = nil
	}
	return &Store{backend: backend, entries: entries}
}

// Append records a summary unless one with the same CompletedAt already
// exists. It reports whether the summary was actually added.
func (s *Store) Append(ctx context.Context, summary domain.Summary) bool {
	s.mu.Lock()
	for _, existing := range s.entries {
		if existing.CompletedAt.Equal(summary.CompletedAt) {
			s.mu.Unlock()
			return false
		}
	}
	s.entries = append(s.entries, summary)
	snapshot := make([]domain.Summary, len(s.entries))
	copy(snapshot, s.entries)
	s.mu.Unlock()

	if err := s.backend.Save(ctx, storage.KeyHistory, snapshot); err != nil {
		log.Printf("history: persist failed: %v", err)
	}
	return true
}

// All returns a copy of the recorded summaries in append order.
func (s *Store) All() []domain.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Summary, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len reports the number of recorded summaries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
