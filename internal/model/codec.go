package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// wireQuestion is the flat on-disk shape of a question; field order is the canonical output order.
type wireQuestion struct {
	ID           int           `json:"id" yaml:"id"`
	Text         string        `json:"text" yaml:"text"`
	Type         QuestionType  `json:"type" yaml:"type"`
	Options      *[]string      `json:"options,omitempty" yaml:"options,omitempty"`
	Answer       string         `json:"answer" yaml:"answer"`
	Explanation  string         `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	SubQuestions *[]SubQuestion `json:"sub_questions,omitempty" yaml:"sub_questions,omitempty"`
}

// The collection a variant owns is always written, as [] when empty, and
// always decoded to a non-nil slice.

func wireOptions(opts []string) *[]string {
	out := append([]string{}, opts...)
	return &out
}

func wireSubQuestions(subs []SubQuestion) *[]SubQuestion {
	out := append([]SubQuestion{}, subs...)
	return &out
}

func fromWire[T any](p *[]T) []T {
	if p == nil || *p == nil {
		return []T{}
	}
	return *p
}

func (q Question) toWire() (wireQuestion, error) {
	w := wireQuestion{ID: q.ID, Text: q.Text, Explanation: q.Explanation}
	switch b := q.Body.(type) {
	case MultipleChoice:
		w.Type = TypeMultipleChoice
		w.Options = wireOptions(b.Options)
		w.Answer = b.Answer
	case TrueFalse:
		w.Type = TypeTrueFalse
		w.SubQuestions = wireSubQuestions(b.SubQuestions)
		w.Answer = b.Answer
	case FillInTheBlank:
		w.Type = TypeFillInTheBlank
		w.Answer = b.Answer
	case Essay:
		w.Type = TypeEssay
		w.Answer = b.SuggestedAnswer
	case nil:
		return w, fmt.Errorf("question %d: %w", q.ID, ErrMissingBody)
	default:
		return w, fmt.Errorf("question %d: %w: %T", q.ID, ErrUnknownQuestionType, b)
	}
	return w, nil
}

func (w wireQuestion) toQuestion() (Question, error) {
	q := Question{ID: w.ID, Text: w.Text, Explanation: w.Explanation}
	switch w.Type {
	case TypeMultipleChoice:
		q.Body = MultipleChoice{Options: fromWire(w.Options), Answer: w.Answer}
	case TypeTrueFalse:
		q.Body = TrueFalse{SubQuestions: fromWire(w.SubQuestions), Answer: w.Answer}
	case TypeFillInTheBlank:
		q.Body = FillInTheBlank{Answer: w.Answer}
	case TypeEssay:
		q.Body = Essay{SuggestedAnswer: w.Answer}
	default:
		return q, fmt.Errorf("question %d: %w: %q", w.ID, ErrUnknownQuestionType, w.Type)
	}
	return q, nil
}

// MarshalJSON encodes the question in its flat tagged form.
func (q Question) MarshalJSON() ([]byte, error) {
	w, err := q.toWire()
	if err != nil {
		return nil, err
	}
	return marshalJSON(w, "")
}

// UnmarshalJSON decodes the flat tagged form into the matching variant.
func (q *Question) UnmarshalJSON(data []byte) error {
	var w wireQuestion
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	decoded, err := w.toQuestion()
	if err != nil {
		return err
	}
	*q = decoded
	return nil
}

// MarshalYAML encodes the question in its flat tagged form.
func (q Question) MarshalYAML() (any, error) {
	return q.toWire()
}

// UnmarshalYAML decodes the flat tagged form into the matching variant.
func (q *Question) UnmarshalYAML(value *yaml.Node) error {
	var w wireQuestion
	if err := value.Decode(&w); err != nil {
		return err
	}
	decoded, err := w.toQuestion()
	if err != nil {
		return err
	}
	*q = decoded
	return nil
}

// MarshalIndentJSON encodes v without HTML escaping so math markup such as
// "a < b" stays readable in the output.
func MarshalIndentJSON(v any, indent string) ([]byte, error) {
	return marshalJSON(v, indent)
}

func marshalJSON(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// DecodeExam parses an exam from JSON, or from YAML when format is "yaml" or "yml".
func DecodeExam(data []byte, format string) (Exam, error) {
	var exam Exam
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &exam); err != nil {
			return Exam{}, fmt.Errorf("parse YAML exam: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &exam); err != nil {
			return Exam{}, fmt.Errorf("parse JSON exam: %w", err)
		}
	}
	if err := exam.Validate(); err != nil {
		return Exam{}, fmt.Errorf("invalid exam: %w", err)
	}
	return exam, nil
}

// EncodeExam serializes an exam to JSON (2-space indent) or YAML.
func EncodeExam(exam Exam, format string) ([]byte, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "yaml", "yml":
		return yaml.Marshal(exam)
	default:
		return MarshalIndentJSON(exam, "  ")
	}
}

// LoadExamFile reads an exam file, choosing the decoder from the extension.
func LoadExamFile(path string) (Exam, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Exam{}, fmt.Errorf("read %s: %w", path, err)
	}
	exam, err := DecodeExam(data, filepath.Ext(path))
	if err != nil {
		return Exam{}, fmt.Errorf("%s: %w", path, err)
	}
	return exam, nil
}
