// Package markdown normalizes model-written article bodies to HTML and
// extracts readable text from them.
package markdown

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

var blockTagPattern = regexp.MustCompile(`(?i)<(p|h[1-6]|ul|ol|li|table|div|section|article|blockquote|strong|em|a|br)[\s>/]`)

// ToHTML renders Markdown to HTML.
func ToHTML(md string) string {
	opts := html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank,
	}
	renderer := html.NewRenderer(opts)
	ext := parser.CommonExtensions | parser.Attributes
	p := parser.NewWithExtensions(ext)
	doc := p.Parse([]byte(md))
	return strings.TrimSpace(string(markdown.Render(doc, renderer)))
}

// LooksLikeHTML reports whether content already carries HTML markup.
func LooksLikeHTML(content string) bool {
	return blockTagPattern.MatchString(content)
}

// Normalize returns content as HTML, rendering it from Markdown when it has
// no markup of its own.
func Normalize(content string) string {
	content = strings.TrimSpace(content)
	if content == "" || LooksLikeHTML(content) {
		return content
	}
	return ToHTML(content)
}

// PlainText returns the visible text of an HTML fragment with whitespace
// collapsed. Script and style elements are dropped.
func PlainText(htmlContent string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return strings.Join(strings.Fields(htmlContent), " ")
	}
	doc.Find("script, style").Remove()
	// Keep adjacent blocks from running together.
	doc.Find("p, h1, h2, h3, h4, h5, h6, li, td, th, div, section, br").AppendHtml(" ")
	return strings.Join(strings.Fields(doc.Text()), " ")
}
