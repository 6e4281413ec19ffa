// Package postprocess strips the wrapping that language models put around
// their answers, so the payload underneath can be decoded as JSON.
//
// It is applied to every raw completion before llm.DecodeJSON parses it.
package postprocess

import (
	"regexp"
	"strings"
)

// Clean removes model artifacts and returns the trimmed result:
//  1. thinking / reasoning blocks
//  2. introductory echoes ("Here is the JSON:")
//  3. a matching pair of outer quotes
func Clean(text string) string {
	text = removeThinkingBlocks(text)
	text = removeEchoes(text)
	text = removeQuoteWrapping(text)
	return strings.TrimSpace(text)
}

// ExtractJSON returns the JSON document embedded in text. Code fences are
// stripped and, when the text does not start with an object or array, the
// outermost {...} (or [...]) span is returned.
func ExtractJSON(text string) string {
	trimmed := strings.TrimSpace(stripCodeFence(Clean(text)))
	if trimmed == "" {
		return ""
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return trimmed
	}
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			return strings.TrimSpace(trimmed[start : end+1])
		}
	}
	if start := strings.Index(trimmed, "["); start >= 0 {
		if end := strings.LastIndex(trimmed, "]"); end > start {
			return strings.TrimSpace(trimmed[start : end+1])
		}
	}
	return trimmed
}

// Go's RE2 has no backreferences, so each tag pair is listed.
var thinkingBlockRe = regexp.MustCompile(
	`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>|<reflection>.*?</reflection>`,
)

// An opened tag with no closing tag: the model was cut off mid-thought.
var truncatedThinkingRe = regexp.MustCompile(
	`(?is)(?:<thinking>|<think>|<reasoning>|<reflection>).*$`,
)

func removeThinkingBlocks(text string) string {
	text = thinkingBlockRe.ReplaceAllString(text, "")
	text = truncatedThinkingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// echoPatterns are anchored at the start and applied in order, so
// "Sure! Here is the JSON:" loses both parts.
var echoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(?:certainly|sure|of course|claro)[,.!]?\s*`),
	regexp.MustCompile(`(?i)^here(?:'s| is)(?: the| your)? (?:requested |valid )?(?:json|response|article|result)(?: object)?\s*:`),
	regexp.MustCompile(`(?i)^aqu[ií] (?:tienes|est[aá])(?: el| la)? (?:json|respuesta|art[ií]culo)\s*:`),
}

func removeEchoes(text string) string {
	for _, re := range echoPatterns {
		if loc := re.FindStringIndex(text); loc != nil && loc[0] == 0 {
			text = strings.TrimSpace(text[loc[1]:])
		}
	}
	return text
}

// removeQuoteWrapping strips one matching pair of outer quotes:
//
//	"…"  '…'  «…»  “…”  ‘…’
func removeQuoteWrapping(text string) string {
	r := []rune(text)
	n := len(r)
	if n < 2 {
		return text
	}
	first, last := r[0], r[n-1]
	if (first == '"' && last == '"') ||
		(first == '\'' && last == '\'') ||
		(first == '«' && last == '»') ||
		(first == '“' && last == '”') ||
		(first == '‘' && last == '’') {
		return strings.TrimSpace(string(r[1 : n-1]))
	}
	return text
}

func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := strings.TrimLeft(trimmed[3:], " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = strings.TrimLeft(body[4:], " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}
