package export

import (
	"fmt"

	"github.com/pavelanni/examgen/internal/model"
)

// Indentation in twentieths of a point.
const (
	indentOption      = 720
	indentKey         = 400
	indentKeyExtended = 800
)

type docRun struct {
	Text   string
	Bold   bool
	Italic bool
}

type docParagraph struct {
	Runs      []docRun
	Style     string // paragraph style id: "Title", "Heading1" or empty
	Center    bool
	Indent    int
	PageBreak bool
}

// docBlock is everything printed for one question in one section.
type docBlock struct {
	QuestionID int
	Paragraphs []docParagraph
}

// docLayout is the page document before it is encoded to WordprocessingML.
type docLayout struct {
	Header    []docParagraph
	Body      []docBlock
	KeyHeader []docParagraph
	Key       []docBlock
}

// DocumentProjector renders the exam as a DOCX file: the questions, a page
// break, then the answer key with explanations.
type DocumentProjector struct {
	labels Labels
}

// NewDocumentProjector returns a projector printing the given labels.
func NewDocumentProjector(labels Labels) DocumentProjector {
	return DocumentProjector{labels: labels}
}

// Project implements Projector.
func (p DocumentProjector) Project(exam model.Exam) ([]byte, error) {
	for _, q := range exam.Questions {
		if q.Body == nil {
			return nil, fmt.Errorf("question %d: %w", q.ID, model.ErrMissingBody)
		}
	}
	data, err := packDocx(p.layout(exam).paragraphs())
	if err != nil {
		return nil, fmt.Errorf("assemble document: %w", err)
	}
	return data, nil
}

func (p DocumentProjector) layout(exam model.Exam) docLayout {
	l := p.labels
	var doc docLayout

	doc.Header = []docParagraph{
		{Runs: []docRun{{Text: exam.Title}}, Style: "Title", Center: true},
		{Runs: []docRun{{Text: l.DocumentMetaLine(exam.Metadata.Duration, exam.Metadata.NumQuestions)}}, Center: true},
		{Runs: []docRun{{Text: exam.Metadata.Instructions, Italic: true}}, Center: true},
	}
	for i, q := range exam.Questions {
		doc.Body = append(doc.Body, p.bodyBlock(i+1, q))
	}

	doc.KeyHeader = []docParagraph{
		{PageBreak: true},
		{Runs: []docRun{{Text: l.AnswerKeyTitle}}, Style: "Heading1", Center: true},
	}
	for i, q := range exam.Questions {
		doc.Key = append(doc.Key, p.keyBlock(i+1, q))
	}
	return doc
}

func (p DocumentProjector) bodyBlock(n int, q model.Question) docBlock {
	b := docBlock{QuestionID: q.ID}
	b.add(docParagraph{Runs: []docRun{
		{Text: p.labels.Question(n) + " ", Bold: true},
		{Text: q.Text},
	}})

	switch body := q.Body.(type) {
	case model.MultipleChoice:
		for _, opt := range body.Options {
			b.add(docParagraph{Runs: []docRun{{Text: opt}}, Indent: indentOption})
		}
	case model.TrueFalse:
		for _, sub := range body.SubQuestions {
			b.add(docParagraph{Runs: []docRun{{Text: sub.ID + ") " + sub.Text}}, Indent: indentOption})
		}
	case model.FillInTheBlank:
		b.add(docParagraph{Runs: []docRun{{Text: p.labels.BlankAnswerLine}}, Indent: indentOption})
	case model.Essay:
		b.add(docParagraph{}, docParagraph{}, docParagraph{})
	}
	return b
}

func (p DocumentProjector) keyBlock(n int, q model.Question) docBlock {
	l := p.labels
	b := docBlock{QuestionID: q.ID}
	b.add(docParagraph{Runs: []docRun{{Text: l.Question(n), Bold: true}}})

	switch body := q.Body.(type) {
	case model.MultipleChoice:
		b.add(labeled(l.Answer, body.Answer, indentKey))
	case model.FillInTheBlank:
		b.add(labeled(l.Answer, body.Answer, indentKey))
	case model.Essay:
		b.add(labeled(l.SuggestedAnswer, body.SuggestedAnswer, indentKey))
	case model.TrueFalse:
		for _, sub := range body.SubQuestions {
			b.add(docParagraph{
				Runs:   []docRun{{Text: sub.ID + ") ", Bold: true}, {Text: sub.Answer}},
				Indent: indentKey,
			})
			if sub.Explanation != "" {
				b.add(docParagraph{
					Runs: []docRun{
						{Text: l.Explanation + " ", Bold: true, Italic: true},
						{Text: sub.Explanation, Italic: true},
					},
					Indent: indentKeyExtended,
				})
			}
		}
	}

	// A true/false question may print its explanation twice: once per
	// sub-question above and once here.
	if q.Explanation != "" {
		b.add(labeled(l.Explanation, q.Explanation, indentKey))
	}
	return b
}

func labeled(label, value string, indent int) docParagraph {
	return docParagraph{
		Runs:   []docRun{{Text: label + " ", Bold: true}, {Text: value}},
		Indent: indent,
	}
}

func (b *docBlock) add(ps ...docParagraph) {
	b.Paragraphs = append(b.Paragraphs, ps...)
}

// paragraphs flattens the layout. Each section header and each question
// block is followed by one blank spacer paragraph.
func (d docLayout) paragraphs() []docParagraph {
	var out []docParagraph
	spacer := docParagraph{}

	out = append(out, d.Header...)
	out = append(out, spacer)
	for _, b := range d.Body {
		out = append(out, b.Paragraphs...)
		out = append(out, spacer)
	}
	out = append(out, d.KeyHeader...)
	out = append(out, spacer)
	for _, b := range d.Key {
		out = append(out, b.Paragraphs...)
		out = append(out, spacer)
	}
	return out
}
