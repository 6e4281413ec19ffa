// Package dedup decides whether a candidate row repeats content that is
// already in the historical index.
package dedup

import (
	"strings"

	"github.com/valpere/sheetpub/internal"
	"github.com/valpere/sheetpub/internal/textutil"
)

// DefaultRelevantLimit caps how many index records are sent to the semantic check.
const DefaultRelevantLimit = 25

// IsDuplicate reports whether any index record matches the candidate on
// slug, title or keyword.
func IsDuplicate(title, keyword, slug string, index []internal.IndexRecord) bool {
	titleKey := textutil.FoldKey(title)
	keywordKey := textutil.FoldKey(keyword)
	slugKey := textutil.ExtractSlug(slug)

	for _, rec := range index {
		recSlug := strings.ToLower(strings.TrimSpace(rec.Slug))
		if recSlug == "" {
			recSlug = textutil.ExtractSlug(rec.URL)
		}
		if slugKey != "" && recSlug != "" && recSlug == slugKey {
			return true
		}
		if recTitle := textutil.FoldKey(rec.Title); recTitle != "" && recTitle == titleKey {
			return true
		}
		if recKeyword := textutil.FoldKey(rec.Keyword); keywordKey != "" && recKeyword != "" && recKeyword == keywordKey {
			return true
		}
	}
	return false
}

// RelevantRecord is the projection of an index record sent to the model.
type RelevantRecord struct {
	Title    string `json:"title"`
	Keyword  string `json:"keyword"`
	Category string `json:"category"`
	Slug     string `json:"slug"`
	URL      string `json:"url"`
}

// SelectRelevant narrows the index to records sharing the candidate keyword
// (substring) or category. When nothing matches the whole index is used.
// At most limit records are returned.
func SelectRelevant(candidate internal.Row, index []internal.IndexRecord, limit int) []RelevantRecord {
	keyword := strings.ToLower(strings.TrimSpace(candidate.Keyword))
	category := strings.ToLower(strings.TrimSpace(candidate.Category))

	filtered := make([]internal.IndexRecord, 0, len(index))
	for _, rec := range index {
		recKeyword := strings.ToLower(strings.TrimSpace(rec.Keyword))
		recCategory := strings.ToLower(strings.TrimSpace(rec.Category))
		switch {
		case keyword != "" && recKeyword != "" && strings.Contains(recKeyword, keyword):
			filtered = append(filtered, rec)
		case category != "" && recCategory != "" && category == recCategory:
			filtered = append(filtered, rec)
		}
	}
	if len(filtered) == 0 {
		filtered = index
	}
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}

	out := make([]RelevantRecord, 0, len(filtered))
	for _, rec := range filtered {
		out = append(out, RelevantRecord{
			Title:    rec.Title,
			Keyword:  rec.Keyword,
			Category: rec.Category,
			Slug:     rec.Slug,
			URL:      rec.URL,
		})
	}
	return out
}
