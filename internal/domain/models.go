package domain

import "time"

// QuestionType discriminates multiple-choice from true/false questions.
type QuestionType string

const (
	QuestionMultiple  QuestionType = "multiple"
	QuestionTrueFalse QuestionType = "truefalse"
)

// Option represents a possible answer for a question.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"isCorrect"`
}

// Question models a question with exactly one correct option.
// TrueFalse questions always carry exactly two options.
type Question struct {
	ID          string       `json:"id"`
	Text        string       `json:"text"`
	Options     []Option     `json:"options"`
	Explanation string       `json:"explanation,omitempty"`
	Type        QuestionType `json:"type"`
}

// Quiz is the validated quiz content. Once loaded into the engine it is
// read-only to everything outside it.
type Quiz struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Language    string     `json:"language"`
	Questions   []Question `json:"questions"`
}

// ExplanationMode controls when explanations are shown to the user.
type ExplanationMode string

const (
	ExplainAfterEach ExplanationMode = "after-each"
	ExplainAtEnd     ExplanationMode = "at-end"
	ExplainNever     ExplanationMode = "never"
)

// Preferences holds the user-configurable playback options.
type Preferences struct {
	TimePerQuestion  int             `json:"timePerQuestion"` // seconds
	RestartOnError   bool            `json:"restartOnError"`
	ShowExplanations ExplanationMode `json:"showExplanations"`
	ShuffleQuestions bool            `json:"shuffleQuestions"`
	ShuffleOptions   bool            `json:"shuffleOptions"`
	Theme            string          `json:"theme"` // "light" or "dark"
}

// Result records the outcome of a single question within one attempt.
// SelectedOptionID is empty when the question timed out.
type Result struct {
	QuestionID       string `json:"questionId"`
	SelectedOptionID string `json:"selectedOptionId,omitempty"`
	Correct          bool   `json:"isCorrect"`
	TimeTaken        int    `json:"timeTaken"` // seconds, clamped to [0, timePerQuestion]
}

// Summary is the immutable scored record of a finished session.
type Summary struct {
	QuizID         string    `json:"quizId"`
	QuizTitle      string    `json:"quizTitle"`
	TotalQuestions int       `json:"totalQuestions"`
	CorrectAnswers int       `json:"correctAnswers"`
	TotalTime      int       `json:"totalTime"`
	Results        []Result  `json:"results"`
	CompletedAt    time.Time `json:"completedAt"`
}

// GeneratorConfig is the last-used authoring form configuration, carried
// between sessions of the authoring flow.
type GeneratorConfig struct {
	QuestionCount int    `json:"questionCount"`
	OptionCount   int    `json:"optionCount"`
	Difficulty    string `json:"difficulty"`
}
