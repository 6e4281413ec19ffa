// Package textutil holds the small string helpers shared by the sheet reader,
// the dedup filter and the pipeline.
package textutil

import (
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SanitizeStatus normalizes a status cell for comparison.
func SanitizeStatus(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// IsHTTPURL reports whether value starts with an http or https scheme.
func IsHTTPURL(value string) bool {
	lower := strings.ToLower(strings.TrimSpace(value))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// ExtractSlug derives a slug from either a bare slug or a full post URL.
// For URLs the last path segment is used. The result is lowercased.
func ExtractSlug(value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return ""
	}

	candidate := raw
	if IsHTTPURL(raw) {
		candidate = ""
		if parsed, err := url.Parse(raw); err == nil {
			path := strings.TrimRight(parsed.Path, "/")
			if idx := strings.LastIndex(path, "/"); idx >= 0 {
				candidate = path[idx+1:]
			} else {
				candidate = path
			}
		}
	}
	return strings.ToLower(strings.TrimSpace(candidate))
}

// BuildPostURL joins base and slug with exactly one slash.
// It returns "" when either part is empty.
func BuildPostURL(base, slug string) string {
	if base == "" || slug == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(slug, "/")
}

// Truncate returns at most max runes of s.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// Chunked splits items into consecutive chunks of at most size elements.
func Chunked[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 {
		return [][]T{items}
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

// FoldKey produces a comparison key: trimmed, NFC-normalized, stripped of
// combining marks and case-folded. "Guía " and "guia" fold to the same key.
func FoldKey(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = norm.NFC.String(s)
	}
	return cases.Fold().String(stripped)
}
