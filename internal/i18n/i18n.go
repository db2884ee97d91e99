package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/pavelanni/examgen/internal/export"
)

var jsonUnmarshal = json.Unmarshal

// ErrUnsupportedLanguage is returned by Init for a language without a locale file.
var ErrUnsupportedLanguage = errors.New("unsupported language")

//go:embed locales/*.json
var localeFS embed.FS

type ctxKey struct{}

var (
	bundle      *i18n.Bundle
	defaultLang = "vi"
)

// Init loads the embedded locale files. lang must be one of them and becomes
// the fallback for contexts that carry no localizer.
func Init(lang string) error {
	tag, err := language.Parse(lang)
	if err != nil {
		return fmt.Errorf("parse language %q: %w", lang, err)
	}

	b := i18n.NewBundle(tag)
	b.RegisterUnmarshalFunc("json", jsonUnmarshal)
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return fmt.Errorf("read locales dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			return fmt.Errorf("read locale file %s: %w", e.Name(), err)
		}
		if _, err := b.ParseMessageFileBytes(data, e.Name()); err != nil {
			return fmt.Errorf("parse locale file %s: %w", e.Name(), err)
		}
		slog.Debug("loaded locale file", "file", e.Name())
	}
	if !slices.Contains(b.LanguageTags(), tag) {
		return fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}

	bundle = b
	defaultLang = tag.String()
	return nil
}

// Languages lists the languages with an embedded locale file.
func Languages() []string {
	var out []string
	for _, tag := range bundle.LanguageTags() {
		out = append(out, tag.String())
	}
	return out
}

// NewLocalizer creates a localizer for the given language.
func NewLocalizer(lang string) *i18n.Localizer {
	return i18n.NewLocalizer(bundle, lang)
}

// WithLocalizer stores a localizer in the context.
func WithLocalizer(ctx context.Context, loc *i18n.Localizer) context.Context {
	return context.WithValue(ctx, ctxKey{}, loc)
}

func localize(ctx context.Context, cfg *i18n.LocalizeConfig) string {
	loc, ok := ctx.Value(ctxKey{}).(*i18n.Localizer)
	if !ok {
		loc = i18n.NewLocalizer(bundle, defaultLang)
	}
	s, err := loc.Localize(cfg)
	if err != nil {
		slog.Warn("missing translation", "id", cfg.MessageID, "error", err)
		return cfg.MessageID
	}
	return s
}

// T translates a message by ID. Unknown IDs come back unchanged.
func T(ctx context.Context, msgID string) string {
	return localize(ctx, &i18n.LocalizeConfig{MessageID: msgID})
}

// Td translates a message by ID with template data.
func Td(ctx context.Context, msgID string, data map[string]any) string {
	return localize(ctx, &i18n.LocalizeConfig{MessageID: msgID, TemplateData: data})
}

// Tp translates a pluralized message; the template sees the count as .Count.
func Tp(ctx context.Context, msgID string, count int) string {
	return localize(ctx, &i18n.LocalizeConfig{
		MessageID:    msgID,
		PluralCount:  count,
		TemplateData: map[string]any{"Count": count},
	})
}

// ExportLabels returns the artifact labels for the context's language.
func ExportLabels(ctx context.Context) export.Labels {
	return export.Labels{
		Lang:              T(ctx, "ExportLang"),
		QuestionHeading:   T(ctx, "ExportQuestionHeading"),
		DocumentMeta:      T(ctx, "ExportDocumentMeta"),
		PageMeta:          T(ctx, "ExportPageMeta"),
		AnswerKeyTitle:    T(ctx, "ExportAnswerKeyTitle"),
		Answer:            T(ctx, "ExportAnswer"),
		SuggestedAnswer:   T(ctx, "ExportSuggestedAnswer"),
		Explanation:       T(ctx, "ExportExplanation"),
		ExtraExplanation:  T(ctx, "ExportExtraExplanation"),
		BlankAnswerLine:   T(ctx, "ExportBlankAnswerLine"),
		AnswerPlaceholder: T(ctx, "ExportAnswerPlaceholder"),
		Submit:            T(ctx, "ExportSubmit"),
		CorrectAnswer:     T(ctx, "ExportCorrectAnswer"),
		ScoreText:         T(ctx, "ExportScoreText"),
	}
}

// LabelsFor returns the artifact labels for lang, outside any request.
func LabelsFor(lang string) export.Labels {
	return ExportLabels(WithLocalizer(context.Background(), NewLocalizer(lang)))
}
