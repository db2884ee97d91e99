package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/pavelanni/examgen/internal/export"
	"github.com/pavelanni/examgen/internal/model"
)

var (
	errEmptyText     = errors.New("question text is required")
	errNoOptions     = errors.New("at least two options are required")
	errBadOption     = errors.New("answer must be the letter of one of the options")
	errBadSubAnswer  = fmt.Errorf("sub-question answer must be %q or %q", model.True, model.False)
	errEmptyFileName = errors.New("no file uploaded")
)

// parseGenerationForm reads the generation form. Unchecked checkboxes are absent from the form.
func parseGenerationForm(r *http.Request) (model.GenerationRequest, error) {
	req := model.GenerationRequest{
		Subject:             strings.TrimSpace(r.FormValue("subject")),
		Grade:               strings.TrimSpace(r.FormValue("grade")),
		Difficulty:          model.Difficulty(r.FormValue("difficulty")),
		QuestionType:        model.QuestionType(r.FormValue("questionType")),
		Randomize:           r.FormValue("randomize") != "",
		IncludeExplanations: r.FormValue("includeExplanations") != "",
		SourceText:          strings.TrimSpace(r.FormValue("sourceText")),
	}
	n, err := strconv.Atoi(strings.TrimSpace(r.FormValue("numQuestions")))
	if err != nil {
		return req, errors.New("numQuestions must be a number")
	}
	req.NumQuestions = n
	return req, nil
}

// parseImportForm decodes the uploaded exam file, picking YAML by extension.
func parseImportForm(r *http.Request) (model.Exam, error) {
	if err := r.ParseMultipartForm(maxExamBytes); err != nil {
		return model.Exam{}, fmt.Errorf("read upload: %w", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return model.Exam{}, errEmptyFileName
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxExamBytes))
	if err != nil {
		return model.Exam{}, fmt.Errorf("read upload: %w", err)
	}
	return model.DecodeExam(data, filepath.Ext(header.Filename))
}

// parseQuestionForm applies the edit form to q. The returned question keeps q's ID and
// type and carries the submitted values even when it is rejected, so the form can be re-shown.
func parseQuestionForm(r *http.Request, q model.Question) (model.Question, error) {
	edited := q.Clone()
	edited.Text = strings.TrimSpace(r.FormValue("text"))
	edited.Explanation = strings.TrimSpace(r.FormValue("explanation"))

	var errs []error
	if edited.Text == "" {
		errs = append(errs, errEmptyText)
	}

	switch body := edited.Body.(type) {
	case model.MultipleChoice:
		body.Options = splitLines(r.FormValue("options"))
		body.Answer = strings.TrimSpace(r.FormValue("answer"))
		if len(body.Options) < 2 {
			errs = append(errs, errNoOptions)
		}
		letters := make([]string, len(body.Options))
		for i, opt := range body.Options {
			letters[i] = export.OptionValue(opt)
		}
		if !slices.Contains(letters, body.Answer) {
			errs = append(errs, errBadOption)
		}
		edited.Body = body
	case model.TrueFalse:
		subs := make([]model.SubQuestion, len(body.SubQuestions))
		for i, sub := range body.SubQuestions {
			prefix := "sub_" + strconv.Itoa(i) + "_"
			sub.Text = strings.TrimSpace(r.FormValue(prefix + "text"))
			sub.Answer = r.FormValue(prefix + "answer")
			sub.Explanation = strings.TrimSpace(r.FormValue(prefix + "explanation"))
			if sub.Answer != model.True && sub.Answer != model.False {
				errs = append(errs, fmt.Errorf("%s: %w", sub.ID, errBadSubAnswer))
			}
			subs[i] = sub
		}
		body.SubQuestions = subs
		edited.Body = body
	case model.FillInTheBlank:
		body.Answer = strings.TrimSpace(r.FormValue("answer"))
		edited.Body = body
	case model.Essay:
		body.SuggestedAnswer = strings.TrimSpace(r.FormValue("answer"))
		edited.Body = body
	default:
		errs = append(errs, model.ErrMissingBody)
	}
	return edited, errors.Join(errs...)
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
