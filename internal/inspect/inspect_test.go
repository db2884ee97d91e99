package inspect

import (
	"errors"
	"strings"
	"testing"
)

const page = `<!DOCTYPE html>
<html lang="en"><head><title>Quiz</title>
<script src="https://example.com/mj.js" id="MathJax-script" async></script></head>
<body>
<div class="question" id="question-1" data-type="multiple_choice" data-answer="C">
  <div class="options answer-area">
    <input type="radio" name="q_1" value="A"><input type="radio" name="q_1" value="C">
  </div>
  <div class="explanation" style="display: none;"><p>why</p></div>
</div>
<div class="question" id="question-2" data-type="composite">
  <div class="sub-question" id="question-2-a" data-type="true_false" data-answer="True">
    <input type="radio" value="True"><input type="radio" value="False">
  </div>
</div>
<button id="submit-btn" type="button">Submit</button>
<script type="application/json" id="grading-config">{"correctAnswer":"Correct:","scoreText":"{score} of {total}","scorable":["multiple_choice","true_false","fill_in_the_blank"]}</script>
</body></html>`

func TestParse(t *testing.T) {
	p, err := Parse(strings.NewReader(page))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Title != "Quiz" || p.Lang != "en" || p.MathJaxURL != "https://example.com/mj.js" {
		t.Errorf("header: %+v", p)
	}
	if p.ScoreText != "{score} of {total}" || p.CorrectAnswerLabel != "Correct:" || len(p.Scorable) != 3 {
		t.Errorf("config: %+v", p)
	}
	if len(p.Containers) != 3 {
		t.Fatalf("got %d containers, want 3", len(p.Containers))
	}

	mc := p.Containers[0]
	if mc.Key != "C" || len(mc.RadioValues) != 2 || len(mc.Explanations) != 1 || !mc.Explanations[0].Hidden {
		t.Errorf("multiple choice: %+v", mc)
	}
	if mc.Explanations[0].Text != "why" {
		t.Errorf("explanation text: %q", mc.Explanations[0].Text)
	}

	comp := p.Containers[1]
	if comp.HasKey || len(comp.RadioValues) != 0 {
		t.Errorf("composite should own nothing: %+v", comp)
	}
	if sub := p.Containers[2]; sub.Parent != "question-2" || sub.Key != "True" {
		t.Errorf("sub-question: %+v", sub)
	}
	if n := p.ScorableCount(); n != 2 {
		t.Errorf("scorable: got %d, want 2", n)
	}

	r, err := p.NewSession().Grade(map[string]string{"question-1": "C", "question-2-a": "False"})
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if r.Text != "1 of 2" {
		t.Errorf("score: %q", r.Text)
	}
}

func TestParseWithoutConfig(t *testing.T) {
	_, err := Parse(strings.NewReader("<html><body><p>hi</p></body></html>"))
	if !errors.Is(err, ErrNoConfig) {
		t.Fatalf("expected ErrNoConfig, got %v", err)
	}
}
