package llm

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	openai "github.com/sashabaranov/go-openai"

	"github.com/pavelanni/examgen/internal/llm/prompts"
	"github.com/pavelanni/examgen/internal/model"
)

//go:embed schema/exam.schema.json
var examSchema string

const (
	schemaURL          = "exam.schema.json"
	defaultTemperature = 0.7
)

// GenerationError is a failed generation attempt. Its message is safe to show to the user.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return "failed to generate exam: " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api         *openai.Client
	model       string
	lang        prompts.Language
	temperature float32
	schema      *jsonschema.Schema
}

// Option configures a Client.
type Option func(*Client)

// WithLanguage selects the prompt language (vi or en).
func WithLanguage(lang string) Option {
	return func(c *Client) {
		c.lang = prompts.Language(lang)
	}
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float32) Option {
	return func(c *Client) {
		c.temperature = t
	}
}

// New creates a new LLM client.
func New(baseURL, apiKey, modelName string, opts ...Option) (*Client, error) {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	c := &Client{
		api:         openai.NewClientWithConfig(config),
		model:       modelName,
		lang:        prompts.LanguageVietnamese,
		temperature: defaultTemperature,
	}
	for _, opt := range opts {
		opt(c)
	}
	if !prompts.IsValidLanguage(string(c.lang)) {
		return nil, fmt.Errorf("unsupported prompt language %q", c.lang)
	}
	if err := prompts.Load(prompts.Templates); err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, strings.NewReader(examSchema)); err != nil {
		return nil, fmt.Errorf("add exam schema: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile exam schema: %w", err)
	}
	c.schema = schema
	return c, nil
}

// Ping checks that the endpoint answers and knows the configured model.
func (c *Client) Ping(ctx context.Context) error {
	models, err := c.api.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	for _, m := range models.Models {
		if m.ID == c.model {
			return nil
		}
	}
	return fmt.Errorf("model %q not served by endpoint", c.model)
}

// Generate asks the model for an exam matching req. Any failure is returned
// as a *GenerationError; nothing is retried.
func (c *Client) Generate(ctx context.Context, req model.GenerationRequest) (model.Exam, error) {
	exam, err := c.generate(ctx, req)
	if err != nil {
		slog.Error("exam generation failed", "subject", req.Subject, "type", req.QuestionType, "error", err)
		return model.Exam{}, &GenerationError{Err: err}
	}
	slog.Info("generated exam", "title", exam.Title, "questions", len(exam.Questions))
	return exam, nil
}

func (c *Client) generate(ctx context.Context, req model.GenerationRequest) (model.Exam, error) {
	if err := req.Validate(); err != nil {
		return model.Exam{}, err
	}
	prompt, err := prompts.BuildGeneratePrompt(c.lang, req)
	if err != nil {
		return model.Exam{}, fmt.Errorf("build prompt: %w", err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "exam",
				Schema: json.RawMessage(examSchema),
			},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		return model.Exam{}, fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return model.Exam{}, errors.New("LLM returned no choices")
	}

	raw := stripCodeFence(resp.Choices[0].Message.Content)
	slog.Debug("LLM response", "raw", raw)
	return c.parseExam([]byte(raw))
}

// parseExam checks the response against the exam schema before decoding it.
// Endpoints that ignore the requested response format are caught here.
func (c *Client) parseExam(data []byte) (model.Exam, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return model.Exam{}, fmt.Errorf("parse LLM response: %w", err)
	}
	if err := c.schema.Validate(doc); err != nil {
		return model.Exam{}, fmt.Errorf("LLM response does not match exam schema: %w", err)
	}
	exam, err := model.DecodeExam(data, "json")
	if err != nil {
		return model.Exam{}, fmt.Errorf("decode exam: %w", err)
	}
	return exam, nil
}

// stripCodeFence removes a ```json ... ``` wrapper some models add despite structured output.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
