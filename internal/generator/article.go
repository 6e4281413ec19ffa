package generator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/valpere/sheetpub/internal/llm"
)

// ErrInvalidArticle wraps every rejection of a model reply.
var ErrInvalidArticle = errors.New("invalid article")

const minFAQs = 5

var requiredFields = []string{"title", "meta_description", "h1", "content_html", "faqs", "image_prompts"}

// FAQ is a question and answer pair.
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// UnmarshalJSON accepts question/answer or pregunta/respuesta keys, or a bare
// string taken as the question.
func (f *FAQ) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &f.Question)
	}
	var raw struct {
		Question  string `json:"question"`
		Answer    string `json:"answer"`
		Pregunta  string `json:"pregunta"`
		Respuesta string `json:"respuesta"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.Question = firstNonEmpty(raw.Question, raw.Pregunta)
	f.Answer = firstNonEmpty(raw.Answer, raw.Respuesta)
	return nil
}

// Article is the validated content the model produced for one row.
type Article struct {
	Title           string   `json:"title"`
	MetaDescription string   `json:"meta_description"`
	H1              string   `json:"h1"`
	ContentHTML     string   `json:"content_html"`
	FAQs            []FAQ    `json:"faqs"`
	ImagePrompts    []string `json:"image_prompts"`
	Category        string   `json:"categoria,omitempty"`
}

// ParseArticle decodes and validates a model reply.
func ParseArticle(content string) (*Article, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: empty model reply", ErrInvalidArticle)
	}

	var fields map[string]json.RawMessage
	if err := llm.DecodeJSON(content, &fields); err != nil {
		return nil, fmt.Errorf("%w: reply is not valid JSON: %v", ErrInvalidArticle, err)
	}

	var missing []string
	for _, name := range requiredFields {
		if _, ok := fields[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing fields %s", ErrInvalidArticle, strings.Join(missing, ", "))
	}

	var faqs []json.RawMessage
	if err := json.Unmarshal(fields["faqs"], &faqs); err != nil || len(faqs) < minFAQs {
		return nil, fmt.Errorf("%w: at least %d FAQs required", ErrInvalidArticle, minFAQs)
	}
	var prompts []json.RawMessage
	if err := json.Unmarshal(fields["image_prompts"], &prompts); err != nil || len(prompts) == 0 {
		return nil, fmt.Errorf("%w: image prompts required", ErrInvalidArticle)
	}

	var article Article
	if err := llm.DecodeJSON(content, &article); err != nil {
		return nil, fmt.Errorf("%w: decode article: %v", ErrInvalidArticle, err)
	}
	return &article, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
