// Package termview prints an exam to the terminal.
package termview

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pavelanni/examgen/internal/export"
	"github.com/pavelanni/examgen/internal/model"
)

// Options controls what Render prints.
type Options struct {
	Answers bool // include answers and explanations
	NoColor bool
}

// Render formats exam as plain or colored text using the artifact labels.
func Render(exam model.Exam, labels export.Labels, opts Options) string {
	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteByte('\n')
	}

	line(stylize(exam.Title, opts.NoColor, lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))))
	line(stylize(labels.DocumentMetaLine(exam.Metadata.Duration, exam.Metadata.NumQuestions), opts.NoColor, muted))
	if exam.Metadata.Instructions != "" {
		line(stylize(exam.Metadata.Instructions, opts.NoColor, lipgloss.NewStyle().Italic(true)))
	}

	for i, q := range exam.Questions {
		line("")
		line(stylize(labels.Question(i+1), opts.NoColor, lipgloss.NewStyle().Bold(true)) + " " + q.Text)
		switch body := q.Body.(type) {
		case model.MultipleChoice:
			for _, opt := range body.Options {
				line(indent + opt)
			}
			if opts.Answers {
				line(answerLine(labels.Answer, body.Answer, opts.NoColor))
			}
		case model.TrueFalse:
			for _, sub := range body.SubQuestions {
				s := indent + sub.ID + ") " + sub.Text
				if opts.Answers {
					s += " " + stylize("["+sub.Answer+"]", opts.NoColor, correct)
				}
				line(s)
				if opts.Answers && sub.Explanation != "" {
					line(indent + indent + stylize(labels.Explanation+" "+sub.Explanation, opts.NoColor, muted))
				}
			}
		case model.FillInTheBlank:
			line(indent + labels.BlankAnswerLine)
			if opts.Answers {
				line(answerLine(labels.Answer, body.Answer, opts.NoColor))
			}
		case model.Essay:
			if opts.Answers {
				line(answerLine(labels.SuggestedAnswer, body.SuggestedAnswer, opts.NoColor))
			}
		}
		if opts.Answers && q.Explanation != "" {
			line(indent + stylize(labels.Explanation+" "+q.Explanation, opts.NoColor, muted))
		}
	}
	return b.String()
}

const indent = "    "

var (
	muted   = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	correct = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))
)

func answerLine(label, value string, noColor bool) string {
	return indent + stylize(label+" "+value, noColor, correct)
}

// stylize applies optional styling.
func stylize(text string, noColor bool, style lipgloss.Style) string {
	if noColor {
		return text
	}
	return style.Render(text)
}
