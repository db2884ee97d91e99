package export

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/pavelanni/examgen/internal/model"
)

//go:generate templ generate

//go:embed assets/grade.js
var gradeScript string

//go:embed assets/page.css
var pageStyle string

// Values of the data-type attribute. Units tagged composite or essay are never scored.
const (
	DataTypeComposite = "composite"
	DataTypeEssay     = "essay"
)

// gradingConfig is embedded as a JSON script element and read by the page script.
type gradingConfig struct {
	CorrectAnswer string   `json:"correctAnswer"`
	ScoreText     string   `json:"scoreText"`
	Scorable      []string `json:"scorable"`
}

// InteractiveProjector renders a standalone HTML page that grades itself in the browser.
type InteractiveProjector struct {
	labels     Labels
	mathJaxURL string
}

// NewInteractiveProjector returns a projector printing the given labels and
// loading the math engine from mathJaxURL.
func NewInteractiveProjector(labels Labels, mathJaxURL string) InteractiveProjector {
	return InteractiveProjector{labels: labels, mathJaxURL: mathJaxURL}
}

// Project implements Projector.
func (p InteractiveProjector) Project(exam model.Exam) ([]byte, error) {
	for _, q := range exam.Questions {
		if q.Body == nil {
			return nil, fmt.Errorf("question %d: %w", q.ID, model.ErrMissingBody)
		}
	}
	cfg := gradingConfig{
		CorrectAnswer: p.labels.CorrectAnswer,
		ScoreText:     p.labels.ScoreText,
		Scorable:      ScorableTypes(),
	}
	var buf bytes.Buffer
	if err := p.page(exam, cfg).Render(context.Background(), &buf); err != nil {
		return nil, fmt.Errorf("render interactive page: %w", err)
	}
	return buf.Bytes(), nil
}

// OptionValue is the radio value of a multiple-choice option: the text before the first ".".
func OptionValue(option string) string {
	letter, _, _ := strings.Cut(option, ".")
	return letter
}

// ScorableTypes lists the data-type values the page script grades.
func ScorableTypes() []string {
	return []string{
		string(model.TypeMultipleChoice),
		string(model.TypeTrueFalse),
		string(model.TypeFillInTheBlank),
	}
}

// inlineStyle and inlineScript embed trusted assets shipped with the binary.
func inlineStyle(css string) templ.Component {
	return templ.Raw("<style>\n" + css + "</style>")
}

func inlineScript(js string) templ.Component {
	return templ.Raw("<script>\n" + js + "</script>")
}

var trueFalseChoices = []struct{ suffix, value string }{
	{"true", model.True},
	{"false", model.False},
}

func unitID(questionID int) string {
	return "question-" + strconv.Itoa(questionID)
}

func fieldName(questionID int) string {
	return "q_" + strconv.Itoa(questionID)
}

func subFieldName(questionID int, subID string) string {
	return fmt.Sprintf("q_%d_%s", questionID, subID)
}

func optionID(questionID, i int) string {
	return fmt.Sprintf("q%d-o%d", questionID, i)
}
