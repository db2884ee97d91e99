// Package grading models the one-shot scoring routine embedded in the
// interactive exam page, so it can be checked and replayed outside a browser.
package grading

import (
	"errors"
	"strings"
	"unicode"

	"github.com/pavelanni/examgen/internal/export"
	"github.com/pavelanni/examgen/internal/model"
)

// ErrAlreadyGraded is returned when Grade is called on a graded session.
var ErrAlreadyGraded = errors.New("session already graded")

// State is the page's grading state. The only transition is Ungraded to Graded.
type State int

const (
	Ungraded State = iota
	Graded
)

func (s State) String() string {
	if s == Graded {
		return "graded"
	}
	return "ungraded"
}

// Unit is one element of the page carrying a data-type tag.
type Unit struct {
	ID     string
	Type   string
	Key    string
	HasKey bool
}

// Scorable reports whether units of type t are counted in the score.
func Scorable(t string) bool {
	switch model.QuestionType(t) {
	case model.TypeMultipleChoice, model.TypeTrueFalse, model.TypeFillInTheBlank:
		return true
	}
	return false
}

// Counts reports whether u contributes to the denominator.
func (u Unit) Counts() bool {
	return u.HasKey && Scorable(u.Type)
}

// Matches compares a response to a grading key. Free text ignores case and
// surrounding whitespace; radio values must match exactly. An unanswered unit never matches.
func Matches(t, key, response string, answered bool) bool {
	if !answered {
		return false
	}
	if model.QuestionType(t) == model.TypeFillInTheBlank {
		return normalize(response) == normalize(key)
	}
	return response == key
}

// normalize mirrors the page script: String.prototype.trim then toLowerCase.
func normalize(s string) string {
	return strings.ToLower(strings.TrimFunc(s, isScriptSpace))
}

// isScriptSpace reports the runes String.prototype.trim strips.
func isScriptSpace(r rune) bool {
	switch r {
	case '\uFEFF':
		return true
	case '\u0085':
		return false
	}
	return unicode.IsSpace(r)
}

// Outcome is the verdict for one scorable unit.
type Outcome struct {
	UnitID  string
	Correct bool
	// Note is the correct-answer line inserted after the answer area of a wrong unit.
	Note string
}

// Result is what the page shows after grading.
type Result struct {
	Outcomes            []Outcome
	Correct             int
	Total               int
	Text                string
	ExplanationsVisible bool
	SubmitHidden        bool
}

// Session grades one page load.
type Session struct {
	units         []Unit
	scoreText     string
	correctAnswer string
	state         State
}

// NewSession prepares a session over the page's units in document order.
// scoreText uses {score} and {total}; correctAnswer prefixes the note on wrong units.
func NewSession(units []Unit, scoreText, correctAnswer string) *Session {
	return &Session{
		units:         append([]Unit(nil), units...),
		scoreText:     scoreText,
		correctAnswer: correctAnswer,
	}
}

// State returns the current state.
func (s *Session) State() State {
	return s.state
}

// Grade scores responses, keyed by unit ID, and moves the session to Graded.
// A unit absent from responses counts as unanswered.
func (s *Session) Grade(responses map[string]string) (Result, error) {
	if s.state != Ungraded {
		return Result{}, ErrAlreadyGraded
	}
	s.state = Graded

	var r Result
	for _, u := range s.units {
		if !u.Counts() {
			continue
		}
		r.Total++
		resp, answered := responses[u.ID]
		o := Outcome{UnitID: u.ID}
		if Matches(u.Type, u.Key, resp, answered) {
			o.Correct = true
			r.Correct++
		} else {
			o.Note = s.correctAnswer + " " + u.Key
		}
		r.Outcomes = append(r.Outcomes, o)
	}
	r.Text = export.FormatScore(s.scoreText, r.Correct, r.Total)
	r.ExplanationsVisible = true
	r.SubmitHidden = true
	return r, nil
}
