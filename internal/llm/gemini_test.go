package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestBuildConfig(t *testing.T) {
	cfg := BuildConfig(Request{
		System:          "Actúas como analista editorial.",
		Messages:        []string{"u"},
		Temperature:     0,
		MaxOutputTokens: 400,
		JSON:            true,
	})

	require.NotNil(t, cfg.SystemInstruction)
	require.Len(t, cfg.SystemInstruction.Parts, 1)
	assert.Equal(t, "Actúas como analista editorial.", cfg.SystemInstruction.Parts[0].Text)
	require.NotNil(t, cfg.Temperature)
	assert.Equal(t, float32(0), *cfg.Temperature)
	assert.Equal(t, int32(400), cfg.MaxOutputTokens)
	assert.Equal(t, "application/json", cfg.ResponseMIMEType)
}

func TestBuildConfig_PlainText(t *testing.T) {
	cfg := BuildConfig(Request{System: "s", Messages: []string{"u"}, Temperature: 0.6})

	assert.Empty(t, cfg.ResponseMIMEType)
	assert.Zero(t, cfg.MaxOutputTokens)
	assert.InDelta(t, 0.6, float64(*cfg.Temperature), 1e-6)
}

func TestBuildContents(t *testing.T) {
	contents := BuildContents(Request{Messages: []string{"instrucciones", `{"keyword":"x"}`}})

	require.Len(t, contents, 1)
	assert.Equal(t, string(genai.RoleUser), contents[0].Role)
	require.Len(t, contents[0].Parts, 2)
	assert.Equal(t, "instrucciones", contents[0].Parts[0].Text)
	assert.Equal(t, `{"keyword":"x"}`, contents[0].Parts[1].Text)
}

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), GeminiConfig{APIKey: "  "})
	assert.ErrorContains(t, err, "api key required")
}

func TestNewGeminiClient_DefaultModel(t *testing.T) {
	c := newGeminiClient(nil, "")
	assert.Equal(t, defaultGeminiModel, c.Model())

	_, err := c.Complete(context.Background(), Request{System: "s", Messages: []string{"u"}})
	assert.ErrorContains(t, err, "gemini client not configured")
}
