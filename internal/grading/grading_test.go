package grading

import (
	"errors"
	"testing"
)

const scoreText = "Kết quả: {score} / {total} câu hỏi có thể chấm điểm."

func TestMatches(t *testing.T) {
	tests := []struct {
		name     string
		typ      string
		key      string
		response string
		answered bool
		want     bool
	}{
		{"radio exact", "multiple_choice", "B", "B", true, true},
		{"radio case sensitive", "multiple_choice", "B", "b", true, false},
		{"radio unanswered", "multiple_choice", "B", "", false, false},
		{"true false", "true_false", "Đúng", "Đúng", true, true},
		{"true false wrong", "true_false", "Đúng", "Sai", true, false},
		{"blank lower", "fill_in_the_blank", "  Paris ", "paris", true, true},
		{"blank trailing space", "fill_in_the_blank", "  Paris ", "paris ", true, true},
		{"blank typo", "fill_in_the_blank", "  Paris ", "pariss", true, false},
		{"blank empty", "fill_in_the_blank", "Paris", "", true, false},
		{"blank byte order mark", "fill_in_the_blank", "Paris", "\uFEFFParis", true, true},
		{"blank no-break space", "fill_in_the_blank", "Paris", "Paris\u00A0", true, true},
		{"blank next line kept", "fill_in_the_blank", "Paris", "Paris\u0085", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.typ, tt.key, tt.response, tt.answered); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGradeSkipsUnscorable(t *testing.T) {
	units := []Unit{
		{ID: "question-1", Type: "multiple_choice", Key: "A", HasKey: true},
		{ID: "question-2", Type: "composite"},
		{ID: "question-2-a", Type: "true_false", Key: "Đúng", HasKey: true},
		{ID: "question-2-b", Type: "true_false", Key: "Sai", HasKey: true},
		{ID: "question-3", Type: "essay"},
	}
	s := NewSession(units, scoreText, "Đáp án đúng:")
	r, err := s.Grade(map[string]string{
		"question-1":   "A",
		"question-2-a": "Sai",
	})
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if r.Correct != 1 || r.Total != 3 {
		t.Errorf("got %d/%d, want 1/3", r.Correct, r.Total)
	}
	if r.Text != "Kết quả: 1 / 3 câu hỏi có thể chấm điểm." {
		t.Errorf("text: %q", r.Text)
	}
	if len(r.Outcomes) != 3 {
		t.Fatalf("got %d outcomes", len(r.Outcomes))
	}
	if o := r.Outcomes[1]; o.Correct || o.Note != "Đáp án đúng: Đúng" {
		t.Errorf("wrong sub-question outcome: %+v", o)
	}
	if o := r.Outcomes[2]; o.Correct || o.UnitID != "question-2-b" {
		t.Errorf("unanswered unit should be incorrect: %+v", o)
	}
}

func TestGradeRunsOnce(t *testing.T) {
	s := NewSession([]Unit{{ID: "q", Type: "multiple_choice", Key: "A", HasKey: true}}, scoreText, "")
	if s.State() != Ungraded {
		t.Fatalf("new session should be ungraded")
	}
	if _, err := s.Grade(nil); err != nil {
		t.Fatalf("first Grade: %v", err)
	}
	if s.State() != Graded {
		t.Errorf("state after grading: %v", s.State())
	}
	if _, err := s.Grade(map[string]string{"q": "A"}); !errors.Is(err, ErrAlreadyGraded) {
		t.Errorf("second Grade: expected ErrAlreadyGraded, got %v", err)
	}
}

func TestGradeNoScorableUnits(t *testing.T) {
	s := NewSession([]Unit{{ID: "q", Type: "essay"}}, scoreText, "")
	r, err := s.Grade(nil)
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if r.Text != "Kết quả: 0 / 0 câu hỏi có thể chấm điểm." || !r.ExplanationsVisible {
		t.Errorf("got %+v", r)
	}
}
