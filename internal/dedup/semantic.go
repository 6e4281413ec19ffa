package dedup

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/valpere/sheetpub/internal"
	"github.com/valpere/sheetpub/internal/llm"
)

const (
	semanticSystemPrompt = "Actúas como analista editorial. Identificas duplicados temáticos " +
		"en una base de contenidos existente."
	semanticFormatMessage = "Devuelve exclusivamente JSON válido con los campos duplicate (bool), " +
		"reason (string) y match_slug (string)."
	semanticInstructions = "Evalúa si el candidato trata el mismo tema o intención que alguna entrada existente. " +
		`Responde solo con JSON {"duplicate": bool, "reason": string, "match_slug": string}.`

	semanticMaxOutputTokens = 400
)

// Verdict is the model's answer to a semantic duplicate query.
type Verdict struct {
	Duplicate bool   `json:"duplicate"`
	Reason    string `json:"reason"`
	MatchSlug string `json:"match_slug"`
}

// SemanticChecker asks a language model whether a candidate covers the same
// topic as an existing post.
type SemanticChecker struct {
	llm    llm.Completer
	limit  int
	logger *zap.Logger
}

// NewSemanticChecker builds a checker. A non-positive limit uses DefaultRelevantLimit.
func NewSemanticChecker(completer llm.Completer, limit int, logger *zap.Logger) *SemanticChecker {
	if limit <= 0 {
		limit = DefaultRelevantLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SemanticChecker{llm: completer, limit: limit, logger: logger}
}

type semanticCandidate struct {
	Title       string `json:"title"`
	Keyword     string `json:"keyword"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Slug        string `json:"slug"`
	URL         string `json:"url"`
}

type semanticPayload struct {
	Candidate     semanticCandidate `json:"candidate"`
	ExistingPosts []RelevantRecord  `json:"existing_posts"`
	Instructions  string            `json:"instrucciones"`
}

// Check runs the semantic query and returns the model's verdict. Errors are
// returned to the caller untouched.
func (s *SemanticChecker) Check(ctx context.Context, candidate internal.Row, index []internal.IndexRecord) (Verdict, error) {
	relevant := SelectRelevant(candidate, index, s.limit)
	if len(relevant) == 0 {
		return Verdict{}, nil
	}

	prompt, err := buildSemanticPrompt(candidate, relevant)
	if err != nil {
		return Verdict{}, err
	}

	content, err := s.llm.Complete(ctx, llm.Request{
		Op:              "semantic dedup",
		System:          semanticSystemPrompt,
		Messages:        []string{semanticFormatMessage, prompt},
		Temperature:     0,
		MaxOutputTokens: semanticMaxOutputTokens,
		JSON:            true,
	})
	if err != nil {
		return Verdict{}, err
	}
	return parseVerdict(content)
}

// IsDuplicate reports whether the model considers the candidate a duplicate.
// Model or parse failures are logged and count as not a duplicate.
func (s *SemanticChecker) IsDuplicate(ctx context.Context, candidate internal.Row, index []internal.IndexRecord) (bool, Verdict) {
	verdict, err := s.Check(ctx, candidate, index)
	if err != nil {
		s.logger.Error("semantic duplicate check failed",
			zap.Int("row", candidate.Number),
			zap.Error(err))
		return false, Verdict{}
	}
	if verdict.Duplicate {
		reason := verdict.Reason
		if reason == "" {
			reason = "sin motivo"
		}
		s.logger.Info("model detected duplicate",
			zap.Int("row", candidate.Number),
			zap.String("reason", reason),
			zap.String("match_slug", verdict.MatchSlug))
	}
	return verdict.Duplicate, verdict
}

func buildSemanticPrompt(candidate internal.Row, relevant []RelevantRecord) (string, error) {
	payload := semanticPayload{
		Candidate: semanticCandidate{
			Title:       candidate.Title,
			Keyword:     candidate.Keyword,
			Description: candidate.Description,
			Category:    candidate.Category,
			Slug:        candidate.Slug,
			URL:         candidate.URL,
		},
		ExistingPosts: relevant,
		Instructions:  semanticInstructions,
	}
	encoded, err := llm.MarshalPrompt(payload)
	if err != nil {
		return "", fmt.Errorf("semantic dedup: encode prompt: %w", err)
	}
	return encoded, nil
}

func parseVerdict(content string) (Verdict, error) {
	var v Verdict
	if err := llm.DecodeJSON(content, &v); err != nil {
		return Verdict{}, fmt.Errorf("semantic dedup: parse verdict: %w", err)
	}
	return v, nil
}
