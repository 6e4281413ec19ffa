// Package generator turns a sheet row into a publishable SEO article with
// a single language-model call.
package generator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/valpere/sheetpub/internal"
	"github.com/valpere/sheetpub/internal/llm"
	"github.com/valpere/sheetpub/internal/markdown"
	"github.com/valpere/sheetpub/internal/validator"
)

const (
	DefaultTemperature = 0.6
	maxOutputTokens    = 2000
)

// Options tunes generation and post-processing.
type Options struct {
	Temperature float64
	// RenderFAQ appends the FAQ section and its JSON-LD to the body.
	RenderFAQ bool
	// Language, when set, rejects bodies not written in this ISO 639-1 language.
	Language string
}

// Generator produces articles through a Completer.
type Generator struct {
	llm       llm.Completer
	opts      Options
	validator *validator.Validator
	logger    *zap.Logger
}

// New builds a Generator. The language validator is only built when
// opts.Language is set.
func New(completer llm.Completer, opts Options, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Generator{llm: completer, opts: opts, logger: logger}
	if opts.Language != "" {
		g.validator = validator.New(opts.Language)
	}
	return g
}

// Generate asks the model for an article about row and validates the reply.
func (g *Generator) Generate(ctx context.Context, row internal.Row) (*Article, error) {
	userPrompt, err := BuildPrompt(row)
	if err != nil {
		return nil, fmt.Errorf("generate: build prompt: %w", err)
	}

	content, err := g.llm.Complete(ctx, llm.Request{
		Op:              "generate",
		System:          systemPrompt,
		Messages:        []string{formatMessage, userPrompt},
		Temperature:     g.opts.Temperature,
		MaxOutputTokens: maxOutputTokens,
		JSON:            true,
	})
	if err != nil {
		g.logger.Error("llm call failed", zap.Int("row", row.Number), zap.Error(err))
		return nil, fmt.Errorf("generate: %w", err)
	}

	article, err := ParseArticle(content)
	if err != nil {
		g.logger.Error("model reply rejected",
			zap.Int("row", row.Number),
			zap.String("reply", llm.Snippet(content)),
			zap.Error(err))
		return nil, fmt.Errorf("generate: %w", err)
	}

	if err := g.finish(article); err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	return article, nil
}

func (g *Generator) finish(a *Article) error {
	a.ContentHTML = markdown.Normalize(a.ContentHTML)

	if g.validator != nil {
		if err := g.validator.Check(markdown.PlainText(a.ContentHTML), g.opts.Language); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidArticle, err)
		}
	}

	if g.opts.RenderFAQ {
		faq, err := RenderFAQ(a.FAQs)
		if err != nil {
			return fmt.Errorf("render faq: %w", err)
		}
		if faq != "" {
			a.ContentHTML += "\n" + faq
		}
	}
	return nil
}
