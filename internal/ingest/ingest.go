package ingest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"hastyquiz-service/internal/domain"
)

// Issue is a single schema violation, addressed by a JSON-ish field path.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports why a raw document was rejected. No partial quiz
// is ever produced alongside one.
type ValidationError struct {
	Issues []Issue `json:"issues"`
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "invalid quiz document"
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Field+": "+issue.Message)
	}
	return "invalid quiz document: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, message string) {
	e.Issues = append(e.Issues, Issue{Field: field, Message: message})
}

// rawQuiz mirrors the accepted wire shape. IDs and question types are
// optional on input and backfilled during normalization.
type rawQuiz struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Language    string        `json:"language"`
	Questions   []rawQuestion `json:"questions"`
}

type rawQuestion struct {
	ID          string              `json:"id"`
	Text        string              `json:"text"`
	Options     []rawOption         `json:"options"`
	Explanation string              `json:"explanation"`
	Type        domain.QuestionType `json:"type"`
}

type rawOption struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"isCorrect"`
}

// Parse validates rawText and returns a fully normalized quiz: every id is
// populated, every question carries an explicit type, and the data-model
// invariants hold. On failure it returns a *ValidationError and no quiz.
func Parse(rawText string) (domain.Quiz, error) {
	var raw rawQuiz
	if err := json.Unmarshal([]byte(rawText), &raw); err != nil {
		verr := &ValidationError{}
		verr.add("$", "malformed JSON: "+err.Error())
		return domain.Quiz{}, verr
	}
	return normalize(raw)
}

// normalize applies the schema rules to an already-decoded document.
func normalize(raw rawQuiz) (domain.Quiz, error) {
	verr := &ValidationError{}

	if len(strings.TrimSpace(raw.Title)) < 3 {
		verr.add("title", "title must have at least 3 characters")
	}
	if len(raw.Questions) == 0 {
		verr.add("questions", "at least 1 question is required")
	}

	questions := make([]domain.Question, 0, len(raw.Questions))
	for i, rq := range raw.Questions {
		field := fmt.Sprintf("questions[%d]", i)

		if len(strings.TrimSpace(rq.Text)) < 3 {
			verr.add(field+".text", "question must have at least 3 characters")
		}
		if len(rq.Options) < 2 {
			verr.add(field+".options", "at least 2 options are required")
			continue
		}

		correct := 0
		options := make([]domain.Option, 0, len(rq.Options))
		for j, ro := range rq.Options {
			if strings.TrimSpace(ro.Text) == "" {
				verr.add(fmt.Sprintf("%s.options[%d].text", field, j), "option text cannot be empty")
			}
			if ro.Correct {
				correct++
			}
			id := ro.ID
			if id == "" {
				id = uuid.NewString()
			}
			options = append(options, domain.Option{ID: id, Text: ro.Text, Correct: ro.Correct})
		}
		if correct != 1 {
			verr.add(field+".options", fmt.Sprintf("exactly one option must be correct, found %d", correct))
		}

		qType := rq.Type
		if qType == "" {
			qType = inferType(len(options))
		}
		switch qType {
		case domain.QuestionMultiple:
		case domain.QuestionTrueFalse:
			if len(options) != 2 {
				verr.add(field+".options", "true/false questions must have exactly 2 options")
			}
		default:
			verr.add(field+".type", "type must be \"multiple\" or \"truefalse\"")
		}

		id := rq.ID
		if id == "" {
			id = uuid.NewString()
		}
		questions = append(questions, domain.Question{
			ID:          id,
			Text:        rq.Text,
			Options:     options,
			Explanation: rq.Explanation,
			Type:        qType,
		})
	}

	if len(verr.Issues) > 0 {
		return domain.Quiz{}, verr
	}

	id := raw.ID
	if id == "" {
		id = uuid.NewString()
	}
	return domain.Quiz{
		ID:          id,
		Title:       raw.Title,
		Description: raw.Description,
		Language:    raw.Language,
		Questions:   questions,
	}, nil
}

// inferType derives the question type from the option count when the input
// omits it: more than two options can only be multiple choice.
func inferType(optionCount int) domain.QuestionType {
	if optionCount > 2 {
		return domain.QuestionMultiple
	}
	return domain.QuestionTrueFalse
}
