package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"hastyquiz-service/internal/domain"
	"hastyquiz-service/internal/storage"
)

// QuizLibrary is the saved-quiz collection, persisted as a single document
// under the saved-quizzes key and fronted by a TTL cache so repeated lookups
// of the same quiz do not hit the backend.
type QuizLibrary struct {
	backend storage.Store
	ttl     time.Duration
	clock   func() time.Time
	sf      singleflight.Group
	rnd     *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewQuizLibrary(backend storage.Store, ttl time.Duration) *QuizLibrary {
	return &QuizLibrary{
		backend: backend,
		ttl:     ttl,
		clock:   time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:   make(map[string]cachedQuiz),
	}
}

// SaveQuiz adds or replaces a quiz in the library.
func (l *QuizLibrary) SaveQuiz(ctx context.Context, quiz domain.Quiz) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	quizzes, err := l.loadAll(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range quizzes {
		if quizzes[i].ID == quiz.ID {
			quizzes[i] = quiz
			replaced = true
			break
		}
	}
	if !replaced {
		quizzes = append(quizzes, quiz)
	}
	if err := l.backend.Save(ctx, storage.KeySavedQuizzes, quizzes); err != nil {
		return err
	}
	delete(l.cache, quiz.ID)
	return nil
}

// GetQuiz returns a saved quiz by id, serving from cache when fresh.
// Concurrent misses for the same id collapse to a single backend read.
func (l *QuizLibrary) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	now := l.clock()

	l.mu.RLock()
	if entry, ok := l.cache[quizID]; ok && entry.expiresAt.After(now) {
		l.mu.RUnlock()
		return entry.quiz, nil
	}
	l.mu.RUnlock()

	result, err, _ := l.sf.Do(quizID, func() (interface{}, error) {
		now := l.clock()
		l.mu.RLock()
		if entry, ok := l.cache[quizID]; ok && entry.expiresAt.After(now) {
			l.mu.RUnlock()
			return entry.quiz, nil
		}
		l.mu.RUnlock()

		l.mu.Lock()
		defer l.mu.Unlock()
		quizzes, err := l.loadAll(ctx)
		if err != nil {
			return domain.Quiz{}, err
		}
		for _, quiz := range quizzes {
			if quiz.ID == quizID {
				l.cache[quizID] = cachedQuiz{quiz: quiz, expiresAt: now.Add(l.ttlWithJitter())}
				return quiz, nil
			}
		}
		return domain.Quiz{}, domain.ErrQuizNotFound
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// ListQuizzes returns every saved quiz.
func (l *QuizLibrary) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loadAll(ctx)
}

func (l *QuizLibrary) loadAll(ctx context.Context) ([]domain.Quiz, error) {
	var quizzes []domain.Quiz
	if _, err := l.backend.Load(ctx, storage.KeySavedQuizzes, &quizzes); err != nil {
		return nil, err
	}
	return quizzes, nil
}

func (l *QuizLibrary) ttlWithJitter() time.Duration {
	if l.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(l.ttl) / 10
	return l.ttl + time.Duration(l.rnd.Int63n(jitterMax+1))
}
