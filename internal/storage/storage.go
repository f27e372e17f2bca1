package storage

import "context"

// Well-known keys shared across the application. The engine and the stores
// below are the only writers; the presentation layer may read but not mutate.
const (
	KeyPreferences     = "quiz-app-preferences"
	KeySavedQuizzes    = "quiz-app-saved-quizzes"
	KeyHistory         = "quiz-app-history"
	KeyGeneratorConfig = "quiz-app-last-generator-config"
	KeyCurrentQuiz     = "quiz-app-current-quiz"
	KeyCurrentResults  = "quiz-app-current-results"
	KeyCurrentSummary  = "quiz-app-current-summary"
)

// Store is the key/value persistence boundary. Values round-trip as JSON
// documents. Writes are best-effort from the caller's perspective: the
// in-memory state stays authoritative and failures are logged, not fatal.
type Store interface {
	// Save serializes value under key, replacing any previous value.
	Save(ctx context.Context, key string, value any) error
	// Load deserializes the value under key into out. It reports false
	// without touching out when the key is absent.
	Load(ctx context.Context, key string, out any) (bool, error)
	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
