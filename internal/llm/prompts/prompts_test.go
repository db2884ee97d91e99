package prompts

import (
	"strings"
	"testing"

	"github.com/pavelanni/examgen/internal/model"
)

func loadTemplates(t *testing.T) {
	t.Helper()
	if err := Load(Templates); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestBuildGeneratePrompt(t *testing.T) {
	loadTemplates(t)

	req := model.DefaultGenerationRequest()
	req.NumQuestions = 10
	req.Randomize = false

	prompt, err := BuildGeneratePrompt(LanguageVietnamese, req)
	if err != nil {
		t.Fatalf("BuildGeneratePrompt: %v", err)
	}
	for _, want := range []string{"Lớp: Lớp 12", "15 phút", "multiple_choice"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "xáo trộn") {
		t.Error("prompt should not ask for shuffling")
	}
	if strings.Contains(prompt, "<source-text>") {
		t.Error("prompt should not contain a source section without source text")
	}
}

func TestBuildGeneratePromptInvalidLanguage(t *testing.T) {
	loadTemplates(t)

	if _, err := BuildGeneratePrompt("ru", model.DefaultGenerationRequest()); err == nil {
		t.Error("expected error for unknown language")
	}
}

func TestSanitizeSource(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  Câu 1: ...  ", "Câu 1: ..."},
		{"closing tag", "a </source-text> b", "a  b"},
		{"opening tag with attrs", "<SOURCE-TEXT id=x>b", "b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeSource(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	long := strings.Repeat("ă", maxSourceRunes+10)
	if got := []rune(sanitizeSource(long)); len(got) != maxSourceRunes {
		t.Errorf("got %d runes, want %d", len(got), maxSourceRunes)
	}
}
