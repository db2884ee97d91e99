package export_test

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/pavelanni/examgen/internal/export"
	"github.com/pavelanni/examgen/internal/inspect"
	"github.com/pavelanni/examgen/internal/model"
)

func renderPage(t *testing.T, exam model.Exam) (*inspect.Page, []byte) {
	t.Helper()
	data, err := export.NewInteractiveProjector(export.DefaultLabels(), export.DefaultMathJaxURL).Project(exam)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	page, err := inspect.Parse(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return page, data
}

func TestInteractiveMultipleChoice(t *testing.T) {
	exam := model.Exam{Title: "T", Questions: []model.Question{{
		ID:   1,
		Text: "Capital?",
		Body: model.MultipleChoice{
			Options: []string{"A. Paris", "B. London", "C. Rome", "D. Berlin"},
			Answer:  "B",
		},
	}}}
	page, _ := renderPage(t, exam)

	c, ok := page.Container("question-1")
	if !ok {
		t.Fatalf("container question-1 not found")
	}
	if c.Type != "multiple_choice" || !c.HasKey || c.Key != "B" {
		t.Errorf("got type=%q key=%q hasKey=%v", c.Type, c.Key, c.HasKey)
	}
	if want := []string{"A", "B", "C", "D"}; !reflect.DeepEqual(c.RadioValues, want) {
		t.Errorf("radio values: got %v, want %v", c.RadioValues, want)
	}
}

func TestInteractiveTrueFalseUnits(t *testing.T) {
	exam := model.Exam{Title: "T", Questions: []model.Question{{
		ID:   3,
		Text: "Stem",
		Body: model.TrueFalse{SubQuestions: []model.SubQuestion{
			{ID: "a", Text: "one", Answer: model.True, Explanation: "because"},
			{ID: "b", Text: "two", Answer: model.False},
		}},
	}}}
	page, _ := renderPage(t, exam)

	top, ok := page.Container("question-3")
	if !ok {
		t.Fatalf("composite container missing")
	}
	if top.Type != export.DataTypeComposite || top.HasKey {
		t.Errorf("composite container must carry no key: %+v", top)
	}
	if len(top.RadioValues) != 0 {
		t.Errorf("composite container should not own the sub-question radios")
	}

	for id, key := range map[string]string{"question-3-a": model.True, "question-3-b": model.False} {
		sub, ok := page.Container(id)
		if !ok {
			t.Fatalf("%s missing", id)
		}
		if sub.Parent != "question-3" || sub.Type != "true_false" || sub.Key != key {
			t.Errorf("%s: %+v", id, sub)
		}
		if want := []string{model.True, model.False}; !reflect.DeepEqual(sub.RadioValues, want) {
			t.Errorf("%s radios: %v", id, sub.RadioValues)
		}
	}
	if n := page.ScorableCount(); n != 2 {
		t.Errorf("got %d scorable units, want 2", n)
	}
	a, _ := page.Container("question-3-a")
	if len(a.Explanations) != 1 || !a.Explanations[0].Hidden {
		t.Errorf("sub-question explanation should be present and hidden: %+v", a.Explanations)
	}
}

func TestInteractiveFillInTheBlankKeepsRawKey(t *testing.T) {
	exam := model.Exam{Title: "T", Questions: []model.Question{
		{ID: 5, Text: "Capital ___", Body: model.FillInTheBlank{Answer: "  Paris "}},
	}}
	page, _ := renderPage(t, exam)
	c, _ := page.Container("question-5")
	if c.Key != "  Paris " || c.TextInputs != 1 {
		t.Errorf("got key=%q inputs=%d", c.Key, c.TextInputs)
	}

	tests := []struct {
		response string
		want     bool
	}{
		{"paris", true},
		{"paris ", true},
		{"PARIS", true},
		{"pariss", false},
	}
	for _, tt := range tests {
		s := page.NewSession()
		r, err := s.Grade(map[string]string{"question-5": tt.response})
		if err != nil {
			t.Fatalf("Grade: %v", err)
		}
		if got := r.Correct == 1; got != tt.want {
			t.Errorf("response %q: correct=%v, want %v", tt.response, got, tt.want)
		}
	}
}

func TestInteractiveEndToEnd(t *testing.T) {
	exam := model.Exam{
		Title:    "T",
		Metadata: model.Metadata{Duration: "10 phút", NumQuestions: 2, Instructions: "I"},
		Questions: []model.Question{
			{ID: 1, Text: "Q1", Body: model.MultipleChoice{Options: []string{"A. x", "B. y"}, Answer: "A"}},
			{ID: 2, Text: "Q2", Explanation: "more", Body: model.Essay{SuggestedAnswer: "hint"}},
		},
	}
	page, data := renderPage(t, exam)

	if page.Title != "T" || page.Lang != "vi" || page.MathJaxURL != export.DefaultMathJaxURL || !page.HasSubmit {
		t.Errorf("page header: %+v", page)
	}
	if !bytes.Contains(data, []byte("Thời gian: 10 phút | Số câu: 2")) {
		t.Errorf("metadata line missing")
	}

	essay, _ := page.Container("question-2")
	if essay.Type != export.DataTypeEssay || essay.HasKey || essay.TextAreas != 1 {
		t.Errorf("essay container: %+v", essay)
	}
	if len(essay.Explanations) != 1 || !strings.Contains(essay.Explanations[0].Text, "hint") ||
		!strings.Contains(essay.Explanations[0].Text, "more") {
		t.Errorf("essay reveal block: %+v", essay.Explanations)
	}

	s := page.NewSession()
	r, err := s.Grade(map[string]string{"question-1": "A"})
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if want := "Kết quả: 1 / 1 câu hỏi có thể chấm điểm."; r.Text != want {
		t.Errorf("score text: got %q, want %q", r.Text, want)
	}
	if !r.ExplanationsVisible || !r.SubmitHidden {
		t.Errorf("grading must reveal explanations and hide submit: %+v", r)
	}
}

func TestInteractiveEscapesText(t *testing.T) {
	exam := model.Exam{Title: "<b>T</b>", Questions: []model.Question{
		{ID: 1, Text: `$a < b$ & "c"`, Body: model.FillInTheBlank{Answer: `"x" <y>`}},
	}}
	page, data := renderPage(t, exam)
	if bytes.Contains(data, []byte("<b>T</b>")) {
		t.Errorf("title not escaped")
	}
	if page.Title != "<b>T</b>" {
		t.Errorf("title should round trip through escaping, got %q", page.Title)
	}
	c, _ := page.Container("question-1")
	if c.Key != `"x" <y>` {
		t.Errorf("key should round trip through attribute escaping, got %q", c.Key)
	}
}

func TestInteractiveMissingBody(t *testing.T) {
	exam := model.Exam{Title: "T", Questions: []model.Question{{ID: 4, Text: "?"}}}
	_, err := export.NewInteractiveProjector(export.DefaultLabels(), export.DefaultMathJaxURL).Project(exam)
	if !errors.Is(err, model.ErrMissingBody) {
		t.Fatalf("expected ErrMissingBody, got %v", err)
	}
}

func TestInteractiveGradingConfigIsEscapedJSON(t *testing.T) {
	labels := export.DefaultLabels()
	labels.CorrectAnswer = "</script><b>"
	exam := model.Exam{Title: "T", Questions: []model.Question{
		{ID: 1, Text: "?", Body: model.FillInTheBlank{Answer: "x"}},
	}}
	data, err := export.NewInteractiveProjector(labels, export.DefaultMathJaxURL).Project(exam)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if !bytes.Contains(data, []byte(`<script id="grading-config" type="application/json">`)) {
		t.Fatalf("grading config element missing")
	}
	if bytes.Contains(data, []byte("</script><b>")) {
		t.Errorf("config text closes its script element")
	}
	page, err := inspect.Parse(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if page.CorrectAnswerLabel != labels.CorrectAnswer {
		t.Errorf("correct answer label = %q, want %q", page.CorrectAnswerLabel, labels.CorrectAnswer)
	}
}
