package generator

import (
	"github.com/valpere/sheetpub/internal"
	"github.com/valpere/sheetpub/internal/llm"
)

const (
	systemPrompt = "Eres un redactor SEO senior que crea artículos con tono humano, " +
		"alineados con EEAT, fáciles de escanear y listos para publicar."

	formatMessage = "Devuelve **exclusivamente** un JSON válido. " +
		"El JSON debe tener: title, meta_description, h1, content_html, " +
		"faqs (lista de objetos con question y answer) e image_prompts " +
		"(lista de strings)."
)

var seoRules = []string{
	"usar variaciones semánticas",
	"incluir listas y tablas cuando aporten claridad",
	"usar H2/H3 jerárquicos",
	"redactar FAQs con respuestas completas",
	"sugerir prompts de imágenes generativas",
}

type promptInstructions struct {
	Tone           string   `json:"tono"`
	SEO            []string `json:"seo"`
	ResponseFormat string   `json:"formato_respuesta"`
}

type requestedFields struct {
	Title           string `json:"title"`
	MetaDescription string `json:"meta_description"`
	H1              string `json:"h1"`
	ContentHTML     string `json:"content_html"`
	FAQs            string `json:"faqs"`
	ImagePrompts    string `json:"image_prompts"`
}

type prompt struct {
	Keyword      string             `json:"keyword_principal"`
	Description  string             `json:"descripcion"`
	BaseTitle    string             `json:"titulo_base"`
	Category     string             `json:"categoria"`
	Instructions promptInstructions `json:"instrucciones"`
	Fields       requestedFields    `json:"campos_solicitados"`
}

// BuildPrompt renders the generation brief for row as JSON. Accented text is
// kept as is.
func BuildPrompt(row internal.Row) (string, error) {
	p := prompt{
		Keyword:     row.Keyword,
		Description: row.Description,
		BaseTitle:   row.Title,
		Category:    row.Category,
		Instructions: promptInstructions{
			Tone:           "humano, cercano, experto",
			SEO:            seoRules,
			ResponseFormat: "JSON válido con campos especificados",
		},
		Fields: requestedFields{
			Title:           "Título optimizado",
			MetaDescription: "Máximo 155 caracteres",
			H1:              "Encabezado principal",
			ContentHTML:     "Contenido completo en HTML semántico",
			FAQs:            "Lista de 5 objetos con pregunta y respuesta",
			ImagePrompts:    "Lista de al menos 3 prompts de imagen",
		},
	}
	return llm.MarshalPrompt(p)
}
