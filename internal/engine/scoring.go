package engine

import (
	"math"

	"hastyquiz-service/internal/domain"
)

// Percent computes the score as a rounded percentage. It depends only on
// the summary, so the history view can recompute it for past attempts
// without the original quiz.
func Percent(summary domain.Summary) int {
	if summary.TotalQuestions == 0 {
		return 0
	}
	return int(math.Round(float64(summary.CorrectAnswers) / float64(summary.TotalQuestions) * 100))
}

// AverageTime computes the rounded average seconds spent per question.
func AverageTime(summary domain.Summary) int {
	if summary.TotalQuestions == 0 {
		return 0
	}
	return int(math.Round(float64(summary.TotalTime) / float64(summary.TotalQuestions)))
}

// Feedback maps a score percentage to the message tier shown on the
// results screen.
func Feedback(percent int) string {
	switch {
	case percent >= 90:
		return "Excellent! You're a master of this topic!"
	case percent >= 70:
		return "Great job! You have a solid understanding."
	case percent >= 50:
		return "Good effort! Keep practicing to improve."
	default:
		return "Don't give up! Try again to improve your score."
	}
}
