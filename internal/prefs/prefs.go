package prefs

import (
	"context"
	"log"
	"sync"

	"hastyquiz-service/internal/domain"
	"hastyquiz-service/internal/storage"
)

// Defaults returns the hardcoded preference defaults.
func Defaults() domain.Preferences {
	return domain.Preferences{
		TimePerQuestion:  30,
		RestartOnError:   false,
		ShowExplanations: domain.ExplainAfterEach,
		ShuffleQuestions: false,
		ShuffleOptions:   false,
		Theme:            "light",
	}
}

// Patch is a partial preference update. Nil fields are left untouched;
// unknown keys in persisted documents are ignored during decoding.
type Patch struct {
	TimePerQuestion  *int                    `json:"timePerQuestion,omitempty"`
	RestartOnError   *bool                   `json:"restartOnError,omitempty"`
	ShowExplanations *domain.ExplanationMode `json:"showExplanations,omitempty"`
	ShuffleQuestions *bool                   `json:"shuffleQuestions,omitempty"`
	ShuffleOptions   *bool                   `json:"shuffleOptions,omitempty"`
	Theme            *string                 `json:"theme,omitempty"`
}

// Store holds the current preferences and mirrors every mutation to the
// storage backend. It performs no range validation: out-of-range values are
// the input layer's problem.
type Store struct {
	backend storage.Store

	mu      sync.RWMutex
	current domain.Preferences
}

// NewStore loads persisted preferences merged over the defaults. A read
// failure falls back to the defaults.
func NewStore(ctx context.Context, backend storage.Store) *Store {
	current := Defaults()

	var persisted Patch
	ok, err := backend.Load(ctx, storage.KeyPreferences, &persisted)
	if err != nil {
		log.Printf("prefs: load failed, using defaults: %v", err)
	} else if ok {
		current = apply(current, persisted)
	}

	return &Store{backend: backend, current: current}
}

// Current returns the effective preferences.
func (s *Store) Current() domain.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update shallow-merges the patch and persists before returning.
func (s *Store) Update(ctx context.Context, patch Patch) domain.Preferences {
	s.mu.Lock()
	s.current = apply(s.current, patch)
	updated := s.current
	s.mu.Unlock()

	s.persist(ctx, updated)
	return updated
}

// Reset restores the hardcoded defaults and persists them.
func (s *Store) Reset(ctx context.Context) domain.Preferences {
	s.mu.Lock()
	s.current = Defaults()
	updated := s.current
	s.mu.Unlock()

	s.persist(ctx, updated)
	return updated
}

func (s *Store) persist(ctx context.Context, prefs domain.Preferences) {
	if err := s.backend.Save(ctx, storage.KeyPreferences, prefs); err != nil {
		log.Printf("prefs: persist failed: %v", err)
	}
}

func apply(base domain.Preferences, patch Patch) domain.Preferences {
	if patch.TimePerQuestion != nil {
		base.TimePerQuestion = *patch.TimePerQuestion
	}
	if patch.RestartOnError != nil {
		base.RestartOnError = *patch.RestartOnError
	}
	if patch.ShowExplanations != nil {
		base.ShowExplanations = *patch.ShowExplanations
	}
	if patch.ShuffleQuestions != nil {
		base.ShuffleQuestions = *patch.ShuffleQuestions
	}
	if patch.ShuffleOptions != nil {
		base.ShuffleOptions = *patch.ShuffleOptions
	}
	if patch.Theme != nil {
		base.Theme = *patch.Theme
	}
	return base
}
