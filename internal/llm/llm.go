// Package llm talks to the language-model providers used for article
// generation and semantic dedup. Both providers sit behind Completer so the
// callers never see wire formats.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/valpere/sheetpub/internal/postprocess"
)

// Provider names accepted in configuration.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Request is a provider-neutral completion request.
type Request struct {
	// Op labels errors, e.g. "generate" or "semantic dedup".
	Op              string
	System          string
	Messages        []string
	Temperature     float64
	MaxOutputTokens int
	// JSON asks the provider for a JSON-only answer when it supports it.
	JSON bool
}

// Completer returns the text of a single model completion.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

func (r Request) validate() error {
	if strings.TrimSpace(r.System) == "" {
		return errors.New("system prompt required")
	}
	if len(r.Messages) == 0 {
		return errors.New("at least one user message required")
	}
	for i, m := range r.Messages {
		if strings.TrimSpace(m) == "" {
			return fmt.Errorf("user message %d is empty", i)
		}
	}
	return nil
}

func (r Request) op() string {
	if r.Op == "" {
		return "llm complete"
	}
	return "llm " + r.Op
}

// DecodeJSON decodes a JSON payload out of a model answer, tolerating code
// fences, reasoning blocks and leading prose.
func DecodeJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty payload")
	}

	directErr := json.Unmarshal([]byte(trimmed), target)
	if directErr == nil {
		return nil
	}

	sanitized := postprocess.ExtractJSON(trimmed)
	if sanitized == "" || sanitized == trimmed {
		return fmt.Errorf("%w (payload snippet: %s)", directErr, Snippet(trimmed))
	}
	if err := json.Unmarshal([]byte(sanitized), target); err != nil {
		return fmt.Errorf("%w (sanitized payload snippet: %s)", err, Snippet(sanitized))
	}
	return nil
}

// Snippet collapses whitespace and cuts content to a loggable length.
func Snippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	const limit = 160
	r := []rune(clean)
	if len(r) > limit {
		clean = string(r[:limit]) + "..."
	}
	return clean
}

// MarshalPrompt encodes v as compact JSON for use as a user message.
// Non-ASCII text and HTML characters are kept literal.
func MarshalPrompt(v any) (string, error) {
	var sb strings.Builder
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// HealthCheck issues a tiny JSON request to verify credentials and model.
func HealthCheck(ctx context.Context, c Completer) error {
	content, err := c.Complete(ctx, Request{
		Op:              "health",
		System:          "You must respond with JSON only.",
		Messages:        []string{`Respond with {"ok":true}`},
		Temperature:     0,
		MaxOutputTokens: 20,
		JSON:            true,
	})
	if err != nil {
		return err
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := DecodeJSON(content, &parsed); err != nil {
		return fmt.Errorf("llm health: parse payload: %w", err)
	}
	if !parsed.OK {
		return errors.New("llm health: unexpected response")
	}
	return nil
}
