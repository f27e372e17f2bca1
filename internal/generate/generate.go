package generate

import (
	"context"
	"fmt"
	"log"
	"strings"

	"hastyquiz-service/internal/domain"
	"hastyquiz-service/internal/ingest"
	"hastyquiz-service/internal/storage"
)

// Settings describes the quiz the user wants the model to author.
type Settings struct {
	QuestionCount       int                   `json:"questionCount"`
	OptionCount         int                   `json:"optionCount"`
	Topic               string                `json:"topic"`
	QuestionTypes       []domain.QuestionType `json:"questionTypes"`
	Language            string                `json:"language"`
	IncludeExplanations bool                  `json:"includeExplanations"`
	Difficulty          string                `json:"difficulty"`
}

// Provider is the external LLM call. Implementations live outside this
// module; the quiz core only consumes the returned text.
type Provider interface {
	GenerateQuiz(ctx context.Context, prompt string) (string, error)
}

// Model describes an available generation model for the authoring form.
type Model struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Speed       string `json:"speed"`
	Quality     string `json:"quality"`
	Description string `json:"description"`
}

// AvailableModels lists the generation models offered to the user.
func AvailableModels() []Model {
	return []Model{
		{
			ID:          "google/gemini-2.0-flash-exp:free",
			Name:        "Gemini Flash",
			Speed:       "fast",
			Quality:     "good",
			Description: "Fast and efficient, good answers in most cases.",
		},
		{
			ID:          "google/gemini-2.5-pro-exp-03-25:free",
			Name:        "Gemini Pro",
			Speed:       "medium",
			Quality:     "excellent",
			Description: "Excellent quality, good balance of speed and accuracy.",
		},
		{
			ID:          "deepseek/deepseek-r1:free",
			Name:        "DeepSeek R1",
			Speed:       "medium",
			Quality:     "excellent",
			Description: "More precise for complex, structured tasks.",
		},
		{
			ID:          "deepseek/deepseek-v3-base:free",
			Name:        "DeepSeek Base",
			Speed:       "fast",
			Quality:     "good",
			Description: "Solid general performance for medium-difficulty quizzes.",
		},
	}
}

// BuildPrompt renders the generation prompt for the given settings.
func BuildPrompt(s Settings) string {
	mixed := len(s.QuestionTypes) > 1
	hasMultiple := false
	for _, t := range s.QuestionTypes {
		if t == domain.QuestionMultiple {
			hasMultiple = true
		}
	}

	var typeText string
	switch {
	case mixed:
		typeText = fmt.Sprintf("a mix of multiple-choice questions with %d options and true/false questions", s.OptionCount)
	case hasMultiple:
		typeText = fmt.Sprintf("multiple-choice questions with %d options each", s.OptionCount)
	default:
		typeText = "true/false questions"
	}

	explanationsText := "Explanations for the answers are not required."
	if s.IncludeExplanations {
		explanationsText = "Please include an explanation for each answer."
	}

	difficultyText := fmt.Sprintf("The difficulty level must be %q.", s.Difficulty)
	if s.Difficulty == "varied" {
		difficultyText = "Create questions with varied difficulty, from very easy to very hard."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Create a quiz about %q with %d %s in %s. %s %s\n",
		s.Topic, s.QuestionCount, typeText, s.Language, difficultyText, explanationsText)
	if mixed {
		b.WriteString("\nMix both question types and mark each question with a \"type\" field: ")
		b.WriteString("\"multiple\" for multiple choice, \"truefalse\" for true/false (exactly 2 options).\n")
	}
	b.WriteString(`
Format your response as a JSON object with this structure:
{
  "title": "Quiz title",
  "description": "Short quiz description",
  "questions": [
    {
      "text": "Question text here?",
      "type": "multiple",
      "options": [
        { "text": "Option 1", "isCorrect": false },
        { "text": "Option 2", "isCorrect": true }
      ],
      "explanation": "Explanation for the correct answer."
    }
  ]
}

Make sure that:
1. Every question has exactly one correct answer
2. The content is accurate and educational
3. The JSON is well formed and valid
4. True/false questions have exactly 2 options
5. Questions match the requested difficulty level`)
	return b.String()
}

// ParseResponse turns raw model output into a validated quiz. Models often
// wrap JSON in markdown fences, so those are stripped before validation.
func ParseResponse(raw string) (domain.Quiz, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.Trim(clean, "`")
	return ingest.Parse(clean)
}

// LoadLastConfig reads the last-used authoring form configuration, falling
// back to the zero config.
func LoadLastConfig(ctx context.Context, store storage.Store) domain.GeneratorConfig {
	var cfg domain.GeneratorConfig
	if _, err := store.Load(ctx, storage.KeyGeneratorConfig, &cfg); err != nil {
		log.Printf("generate: load config failed: %v", err)
		return domain.GeneratorConfig{}
	}
	return cfg
}

// SaveLastConfig persists the authoring form configuration.
func SaveLastConfig(ctx context.Context, store storage.Store, cfg domain.GeneratorConfig) {
	if err := store.Save(ctx, storage.KeyGeneratorConfig, cfg); err != nil {
		log.Printf("generate: save config failed: %v", err)
	}
}
