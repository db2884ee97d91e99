package model

import (
	"errors"
	"fmt"
)

// QuestionType is the discriminator tag of a question.
type QuestionType string

const (
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeTrueFalse      QuestionType = "true_false"
	TypeFillInTheBlank QuestionType = "fill_in_the_blank"
	TypeEssay          QuestionType = "essay"
)

// The two truth values a true/false sub-question can take.
const (
	True  = "Đúng"
	False = "Sai"
)

var (
	// ErrUnknownQuestionType is returned when decoding a question with an unsupported type tag.
	ErrUnknownQuestionType = errors.New("unknown question type")
	// ErrQuestionNotFound is returned when no question matches the requested ID.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrMissingBody is returned when a question has no variant body.
	ErrMissingBody = errors.New("question has no body")
)

// Exam is the canonical in-memory exam document read by every exporter.
type Exam struct {
	Title     string     `json:"title" yaml:"title"`
	Metadata  Metadata   `json:"metadata" yaml:"metadata"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// Metadata describes how the exam is taken.
// NumQuestions is informational; it may differ from len(Exam.Questions).
type Metadata struct {
	Duration     string `json:"duration" yaml:"duration"`
	NumQuestions int    `json:"numQuestions" yaml:"numQuestions"`
	Instructions string `json:"instructions" yaml:"instructions"`
}

// Question holds the fields shared by every variant plus the variant body.
type Question struct {
	ID          int
	Text        string
	Explanation string
	Body        Body
}

// Body is one of MultipleChoice, TrueFalse, FillInTheBlank or Essay.
type Body interface {
	Type() QuestionType
	isBody()
}

// MultipleChoice offers lettered options; Answer is the letter of the correct one.
type MultipleChoice struct {
	Options []string
	Answer  string
}

// TrueFalse is a stem whose gradable content lives in SubQuestions.
// Answer is carried for round-tripping only and never exported.
type TrueFalse struct {
	SubQuestions []SubQuestion
	Answer       string
}

// FillInTheBlank expects the literal Answer, compared trimmed and case-insensitively.
type FillInTheBlank struct {
	Answer string
}

// Essay carries a suggested answer that is never graded automatically.
type Essay struct {
	SuggestedAnswer string
}

// SubQuestion is one statement of a true/false question.
type SubQuestion struct {
	ID          string `json:"id" yaml:"id"`
	Text        string `json:"text" yaml:"text"`
	Answer      string `json:"answer" yaml:"answer"`
	Explanation string `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

func (MultipleChoice) Type() QuestionType { return TypeMultipleChoice }
func (TrueFalse) Type() QuestionType      { return TypeTrueFalse }
func (FillInTheBlank) Type() QuestionType { return TypeFillInTheBlank }
func (Essay) Type() QuestionType          { return TypeEssay }

func (MultipleChoice) isBody() {}
func (TrueFalse) isBody()      {}
func (FillInTheBlank) isBody() {}
func (Essay) isBody()          {}

// Type returns the question's discriminator, or an empty string if it has no body.
func (q Question) Type() QuestionType {
	if q.Body == nil {
		return ""
	}
	return q.Body.Type()
}

// Question returns the question with the given ID.
func (e Exam) Question(id int) (Question, bool) {
	for _, q := range e.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// ReplaceQuestion swaps in q for the question with the same ID.
func (e *Exam) ReplaceQuestion(q Question) error {
	if q.Body == nil {
		return fmt.Errorf("question %d: %w", q.ID, ErrMissingBody)
	}
	for i := range e.Questions {
		if e.Questions[i].ID == q.ID {
			e.Questions[i] = q.Clone()
			return nil
		}
	}
	return fmt.Errorf("question %d: %w", q.ID, ErrQuestionNotFound)
}

// Validate reports structural problems: missing bodies and duplicate IDs.
func (e Exam) Validate() error {
	var errs []error
	seen := make(map[int]bool, len(e.Questions))
	for i, q := range e.Questions {
		if q.Body == nil {
			errs = append(errs, fmt.Errorf("question #%d (id %d): %w", i+1, q.ID, ErrMissingBody))
		}
		if seen[q.ID] {
			errs = append(errs, fmt.Errorf("question #%d: duplicate id %d", i+1, q.ID))
		}
		seen[q.ID] = true
	}
	return errors.Join(errs...)
}

// Clone returns a deep copy of the exam.
func (e Exam) Clone() Exam {
	out := e
	if e.Questions != nil {
		out.Questions = make([]Question, len(e.Questions))
		for i, q := range e.Questions {
			out.Questions[i] = q.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the question.
func (q Question) Clone() Question {
	out := q
	switch b := q.Body.(type) {
	case MultipleChoice:
		if b.Options != nil {
			b.Options = append([]string(nil), b.Options...)
		}
		out.Body = b
	case TrueFalse:
		if b.SubQuestions != nil {
			b.SubQuestions = append([]SubQuestion(nil), b.SubQuestions...)
		}
		out.Body = b
	}
	return out
}
