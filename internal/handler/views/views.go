// Package views renders the web UI pages as templ components.
package views

//go:generate templ generate

import (
	"context"

	"github.com/a-h/templ"

	"github.com/pavelanni/examgen/internal/export"
	appI18n "github.com/pavelanni/examgen/internal/i18n"
	"github.com/pavelanni/examgen/internal/model"
	"github.com/pavelanni/examgen/internal/store"
)

// Chrome is what every page needs besides its body.
type Chrome struct {
	Lang       string
	ShowLogout bool
	MathJaxURL string // empty on pages without math
}

// IndexData feeds the home page.
type IndexData struct {
	Chrome
	Form  model.GenerationRequest
	Exams []store.ExamSummary
	Error string
}

// ExamData feeds the exam display page.
type ExamData struct {
	Chrome
	Stored  model.StoredExam
	Exports []model.ExportRecord
	Labels  export.Labels
}

// EditData feeds the single-question edit form.
type EditData struct {
	Chrome
	ExamID   string
	Question model.Question
	Error    string
}

var (
	difficulties  = []model.Difficulty{model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard}
	questionTypes = []model.QuestionType{model.TypeMultipleChoice, model.TypeTrueFalse, model.TypeFillInTheBlank, model.TypeEssay}
)

// url prefixes an app path with the deployment base path.
func url(ctx context.Context, path string) templ.SafeURL {
	return templ.URL(model.BasePathFromContext(ctx) + path)
}

func pageLang(ctx context.Context, c Chrome) string {
	if c.Lang != "" {
		return c.Lang
	}
	return appI18n.T(ctx, "ExportLang")
}

func typeLabel(ctx context.Context, t model.QuestionType) string {
	return appI18n.T(ctx, "QuestionType_"+string(t))
}

func editTitle(ctx context.Context, id int) string {
	return appI18n.Td(ctx, "EditQuestion", map[string]any{"ID": id})
}

func difficultyLabel(d model.Difficulty) string {
	switch d {
	case model.DifficultyEasy:
		return "DifficultyEasy"
	case model.DifficultyHard:
		return "DifficultyHard"
	}
	return "DifficultyMedium"
}
