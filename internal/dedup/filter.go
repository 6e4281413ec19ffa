package dedup

import (
	"context"

	"github.com/valpere/sheetpub/internal"
)

// Match says which check flagged a candidate.
type Match int

const (
	NoMatch Match = iota
	ExactMatch
	SemanticMatch
)

func (m Match) String() string {
	switch m {
	case ExactMatch:
		return "exact"
	case SemanticMatch:
		return "semantic"
	default:
		return "none"
	}
}

// Result is the outcome of running a candidate through the Filter.
type Result struct {
	Match   Match
	Verdict Verdict
}

// Duplicate reports whether either check fired.
func (r Result) Duplicate() bool {
	return r.Match != NoMatch
}

// Filter runs the exact check and then, if that passes, the semantic check.
// A nil semantic checker disables the second stage.
type Filter struct {
	semantic *SemanticChecker
}

// NewFilter returns a Filter backed by semantic.
func NewFilter(semantic *SemanticChecker) *Filter {
	return &Filter{semantic: semantic}
}

// Check classifies candidate against index.
func (f *Filter) Check(ctx context.Context, candidate internal.Row, index []internal.IndexRecord) Result {
	if IsDuplicate(candidate.Title, candidate.Keyword, candidate.Slug, index) {
		return Result{Match: ExactMatch}
	}
	if f.semantic == nil {
		return Result{}
	}
	if dup, verdict := f.semantic.IsDuplicate(ctx, candidate, index); dup {
		return Result{Match: SemanticMatch, Verdict: verdict}
	}
	return Result{}
}
