package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Difficulty represents the requested exam difficulty.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// MaxQuestions is the largest exam a single request may ask for.
const MaxQuestions = 50

// GenerationRequest describes the exam to ask the model for.
type GenerationRequest struct {
	Subject             string       `json:"subject" validate:"required,max=200"`
	Grade               string       `json:"grade" validate:"required,max=100"`
	Difficulty          Difficulty   `json:"difficulty" validate:"required,oneof=easy medium hard"`
	QuestionType        QuestionType `json:"questionType" validate:"required,oneof=multiple_choice true_false fill_in_the_blank essay"`
	NumQuestions        int          `json:"numQuestions" validate:"min=1,max=50"`
	Randomize           bool         `json:"randomize"`
	IncludeExplanations bool         `json:"includeExplanations"`
	SourceText          string       `json:"sourceText,omitempty" validate:"max=20000"`
}

// DefaultGenerationRequest mirrors the initial state of the generation form.
func DefaultGenerationRequest() GenerationRequest {
	return GenerationRequest{
		Subject:             "Hóa học",
		Grade:               "Lớp 12",
		Difficulty:          DifficultyMedium,
		QuestionType:        TypeMultipleChoice,
		NumQuestions:        3,
		Randomize:           true,
		IncludeExplanations: true,
	}
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report JSON field names so messages match the form and API.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks the request and returns a readable error listing every bad field.
func (r GenerationRequest) Validate() error {
	err := requestValidator().Struct(r)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, describeFieldError(fe))
	}
	return fmt.Errorf("invalid request: %s", strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}

// SuggestedDuration is the time the prompt proposes for an exam of n questions.
func SuggestedDuration(n int) float64 {
	return float64(n) * 1.5
}
