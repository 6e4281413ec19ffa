package generator

import (
	"html"
	"strings"

	"github.com/valpere/sheetpub/internal/llm"
	"github.com/valpere/sheetpub/internal/markdown"
	"github.com/valpere/sheetpub/internal/textutil"
)

// ExcerptLength is the number of characters kept for the sheet excerpt column.
const ExcerptLength = 200

const faqHeading = "Preguntas frecuentes"

type faqAnswer struct {
	Type string `json:"@type"`
	Text string `json:"text"`
}

type faqQuestion struct {
	Type           string    `json:"@type"`
	Name           string    `json:"name"`
	AcceptedAnswer faqAnswer `json:"acceptedAnswer"`
}

type faqPage struct {
	Context    string        `json:"@context"`
	Type       string        `json:"@type"`
	MainEntity []faqQuestion `json:"mainEntity"`
}

// RenderFAQ returns an HTML FAQ section followed by its FAQPage JSON-LD
// block. FAQs without both a question and an answer are skipped; when none
// remain the result is "".
func RenderFAQ(faqs []FAQ) (string, error) {
	page := faqPage{Context: "https://schema.org", Type: "FAQPage"}
	var sb strings.Builder
	for _, f := range faqs {
		q, a := strings.TrimSpace(f.Question), strings.TrimSpace(f.Answer)
		if q == "" || a == "" {
			continue
		}
		if len(page.MainEntity) == 0 {
			sb.WriteString("<section class=\"faq\">\n<h2>" + faqHeading + "</h2>\n")
		}
		sb.WriteString("<h3>" + html.EscapeString(q) + "</h3>\n")
		sb.WriteString("<p>" + html.EscapeString(a) + "</p>\n")
		page.MainEntity = append(page.MainEntity, faqQuestion{
			Type:           "Question",
			Name:           q,
			AcceptedAnswer: faqAnswer{Type: "Answer", Text: a},
		})
	}
	if len(page.MainEntity) == 0 {
		return "", nil
	}
	sb.WriteString("</section>\n")

	ld, err := llm.MarshalPrompt(page)
	if err != nil {
		return "", err
	}
	// A literal "</" would close the script element early.
	ld = strings.ReplaceAll(ld, "</", `<\/`)
	sb.WriteString(`<script type="application/ld+json">` + ld + "</script>")
	return sb.String(), nil
}

// Excerpt returns the meta description cut to max characters, falling back
// to the body's text when the description is empty.
func Excerpt(a *Article, max int) string {
	if a == nil {
		return ""
	}
	if meta := strings.TrimSpace(a.MetaDescription); meta != "" {
		return textutil.Truncate(meta, max)
	}
	return strings.TrimSpace(textutil.Truncate(markdown.PlainText(a.ContentHTML), max))
}
