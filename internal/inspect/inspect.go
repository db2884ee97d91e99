// Package inspect reads an interactive exam page back into its machine-readable
// structure: the tagged containers, their grading keys and the embedded grading config.
package inspect

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/pavelanni/examgen/internal/grading"
)

// ErrNoConfig is returned when the page has no grading config script.
var ErrNoConfig = errors.New("grading config not found")

// Container is one element tagged with data-type.
type Container struct {
	ID     string
	Type   string
	Key    string
	HasKey bool
	// Parent is the ID of the enclosing tagged element, empty at top level.
	Parent       string
	RadioValues  []string
	TextInputs   int
	TextAreas    int
	Explanations []Explanation
}

// Explanation is a reveal block attached to a container.
type Explanation struct {
	Text   string
	Hidden bool
}

// Page is the parsed interactive page.
type Page struct {
	Title              string
	Lang               string
	MathJaxURL         string
	ScoreText          string
	CorrectAnswerLabel string
	Scorable           []string
	HasSubmit          bool
	Containers         []Container
}

type config struct {
	CorrectAnswer string   `json:"correctAnswer"`
	ScoreText     string   `json:"scoreText"`
	Scorable      []string `json:"scorable"`
}

// Parse reads a page produced by the interactive projector.
func Parse(r io.Reader) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	p := &Page{}
	var cfgFound bool
	var walk func(n *html.Node, parent string) error
	walk = func(n *html.Node, parent string) error {
		if n.Type == html.ElementNode {
			switch {
			case n.DataAtom == atom.Html:
				p.Lang = attr(n, "lang")
			case n.DataAtom == atom.Title && p.Title == "":
				p.Title = text(n)
			case n.DataAtom == atom.Script && attr(n, "id") == "MathJax-script":
				p.MathJaxURL = attr(n, "src")
			case n.DataAtom == atom.Script && attr(n, "id") == "grading-config":
				var c config
				if err := json.Unmarshal([]byte(text(n)), &c); err != nil {
					return fmt.Errorf("decode grading config: %w", err)
				}
				p.ScoreText, p.CorrectAnswerLabel, p.Scorable = c.ScoreText, c.CorrectAnswer, c.Scorable
				cfgFound = true
			case n.DataAtom == atom.Button && attr(n, "id") == "submit-btn":
				p.HasSubmit = true
			}
			if t, ok := lookup(n, "data-type"); ok {
				c := Container{ID: attr(n, "id"), Type: t, Parent: parent}
				c.Key, c.HasKey = lookup(n, "data-answer")
				collect(n, &c)
				p.Containers = append(p.Containers, c)
				parent = c.ID
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if err := walk(child, parent); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(doc, ""); err != nil {
		return nil, err
	}
	if !cfgFound {
		return nil, ErrNoConfig
	}
	return p, nil
}

// Container returns the container with the given element ID.
func (p *Page) Container(id string) (Container, bool) {
	for _, c := range p.Containers {
		if c.ID == id {
			return c, true
		}
	}
	return Container{}, false
}

// Units returns every tagged container as a grading unit, in document order.
func (p *Page) Units() []grading.Unit {
	units := make([]grading.Unit, 0, len(p.Containers))
	for _, c := range p.Containers {
		units = append(units, grading.Unit{ID: c.ID, Type: c.Type, Key: c.Key, HasKey: c.HasKey})
	}
	return units
}

// ScorableCount is the denominator the page script would use.
func (p *Page) ScorableCount() int {
	n := 0
	for _, u := range p.Units() {
		if u.Counts() {
			n++
		}
	}
	return n
}

// NewSession starts a grading session over the page.
func (p *Page) NewSession() *grading.Session {
	return grading.NewSession(p.Units(), p.ScoreText, p.CorrectAnswerLabel)
}

// collect gathers the controls and explanation blocks that belong to c,
// stopping at nested tagged elements.
func collect(n *html.Node, c *Container) {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.ElementNode {
			continue
		}
		if _, nested := lookup(child, "data-type"); nested {
			continue
		}
		switch {
		case child.DataAtom == atom.Input && attr(child, "type") == "radio":
			c.RadioValues = append(c.RadioValues, attr(child, "value"))
		case child.DataAtom == atom.Input && attr(child, "type") == "text":
			c.TextInputs++
		case child.DataAtom == atom.Textarea:
			c.TextAreas++
		case hasClass(child, "explanation"):
			c.Explanations = append(c.Explanations, Explanation{
				Text:   strings.TrimSpace(text(child)),
				Hidden: strings.Contains(strings.ReplaceAll(attr(child, "style"), " ", ""), "display:none"),
			})
			continue
		}
		collect(child, c)
	}
}

func lookup(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func attr(n *html.Node, key string) string {
	v, _ := lookup(n, key)
	return v
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
