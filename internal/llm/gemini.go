package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiConfig captures the settings needed to call Gemini.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// GeminiClient implements Completer using Google Gemini.
type GeminiClient struct {
	client *genai.Client
	model  string
}

var _ Completer = (*GeminiClient)(nil)

// NewGeminiClient creates a Gemini API backed client.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini: api key required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return newGeminiClient(client, cfg.Model), nil
}

func newGeminiClient(client *genai.Client, model string) *GeminiClient {
	model = strings.TrimSpace(model)
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiClient{client: client, model: model}
}

// Model returns the configured model name.
func (c *GeminiClient) Model() string {
	return c.model
}

// Complete generates content for req and returns the response text.
func (c *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	op := req.op()
	if err := req.validate(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if c.client == nil {
		return "", fmt.Errorf("%s: gemini client not configured", op)
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, BuildContents(req), BuildConfig(req))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if result == nil {
		return "", fmt.Errorf("%s: gemini returned nil result", op)
	}
	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", fmt.Errorf("%s: empty output", op)
	}
	return text, nil
}

// BuildConfig maps the request knobs onto a GenerateContentConfig.
func BuildConfig(req Request) *genai.GenerateContentConfig {
	temp := float32(req.Temperature)
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		},
		Temperature: &temp,
	}
	if req.MaxOutputTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxOutputTokens)
	}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}
	return config
}

// BuildContents turns the user messages into a single user turn.
func BuildContents(req Request) []*genai.Content {
	parts := make([]*genai.Part, 0, len(req.Messages))
	for _, m := range req.Messages {
		parts = append(parts, &genai.Part{Text: m})
	}
	return []*genai.Content{{Role: string(genai.RoleUser), Parts: parts}}
}
