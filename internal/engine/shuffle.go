package engine

import (
	"math/rand"

	"hastyquiz-service/internal/domain"
)

// copyQuiz deep-copies the question and option slices so a shuffled session
// arrangement never aliases the caller's quiz.
func copyQuiz(quiz domain.Quiz) domain.Quiz {
	questions := make([]domain.Question, len(quiz.Questions))
	copy(questions, quiz.Questions)
	for i := range questions {
		options := make([]domain.Option, len(questions[i].Options))
		copy(options, questions[i].Options)
		questions[i].Options = options
	}
	quiz.Questions = questions
	return quiz
}

// shuffleQuestions applies a Fisher-Yates permutation in place.
func shuffleQuestions(rnd *rand.Rand, questions []domain.Question) {
	for i := len(questions) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		questions[i], questions[j] = questions[j], questions[i]
	}
}

// shuffleOptions applies a Fisher-Yates permutation in place.
func shuffleOptions(rnd *rand.Rand, options []domain.Option) {
	for i := len(options) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		options[i], options[j] = options[j], options[i]
	}
}
