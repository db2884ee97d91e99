package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/pavelanni/examgen/internal/model"
)

// Templates holds the built-in generation prompts.
//
//go:embed templates/*.txt
var Templates embed.FS

var sourceTextRegex = regexp.MustCompile(`(?i)</?\s*source-text\b[^>]*>`)

const maxSourceRunes = 20000

// Language selects the prompt template.
type Language string

const (
	LanguageVietnamese Language = "vi"
	LanguageEnglish    Language = "en"
)

var validLanguages = map[Language]bool{
	LanguageVietnamese: true,
	LanguageEnglish:    true,
}

var (
	loadOnce          sync.Once
	loadErr           error
	generateTemplates map[Language]*template.Template
)

// IsValidLanguage checks if a prompt language is available.
func IsValidLanguage(l string) bool {
	return validLanguages[Language(l)]
}

// GenerateData holds template data for generation prompts.
type GenerateData struct {
	Subject             string
	Grade               string
	NumQuestions        int
	Difficulty          string
	QuestionType        string
	Duration            string
	IncludeExplanations bool
	Randomize           bool
	SourceText          string
}

// Load parses the generation templates from fsys.
// It uses sync.Once to ensure templates are loaded only once.
func Load(fsys fs.FS) error {
	loadOnce.Do(func() {
		generateTemplates = make(map[Language]*template.Template)
		for l := range validLanguages {
			file := "templates/generate_" + string(l) + ".txt"
			content, err := fs.ReadFile(fsys, file)
			if err != nil {
				loadErr = fmt.Errorf("read prompt file %s: %w", file, err)
				return
			}
			tmpl, err := template.New("generate_" + string(l)).Parse(string(content))
			if err != nil {
				loadErr = fmt.Errorf("parse prompt template %s: %w", file, err)
				return
			}
			generateTemplates[l] = tmpl
		}
	})
	return loadErr
}

// BuildGeneratePrompt renders the generation prompt for req in language l.
func BuildGeneratePrompt(l Language, req model.GenerationRequest) (string, error) {
	if generateTemplates == nil {
		return "", errors.New("templates not initialized: call Load first")
	}
	tmpl, ok := generateTemplates[l]
	if !ok {
		if loadErr != nil {
			return "", fmt.Errorf("templates load failed: %w", loadErr)
		}
		return "", errors.New("invalid prompt language: " + string(l))
	}

	data := GenerateData{
		Subject:             req.Subject,
		Grade:               req.Grade,
		NumQuestions:        req.NumQuestions,
		Difficulty:          string(req.Difficulty),
		QuestionType:        string(req.QuestionType),
		Duration:            strconv.FormatFloat(model.SuggestedDuration(req.NumQuestions), 'f', -1, 64),
		IncludeExplanations: req.IncludeExplanations,
		Randomize:           req.Randomize,
		SourceText:          sanitizeSource(req.SourceText),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// sanitizeSource strips delimiter look-alikes and caps the length of user text.
func sanitizeSource(text string) string {
	text = sourceTextRegex.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) > maxSourceRunes {
		runes := []rune(text)
		text = string(runes[:maxSourceRunes])
	}
	return text
}
