package sheet

import (
	"fmt"
	"strings"

	"github.com/valpere/sheetpub/internal"
	"github.com/valpere/sheetpub/internal/textutil"
)

// Canonical column names.
const (
	ColTitle       = "título"
	ColKeyword     = "keyword principal"
	ColDescription = "descripción para el gpt"
	ColCategory    = "categoría"
	ColStatus      = "ejecutar?"
	ColSlug        = "slug"
)

// Result columns written back after publishing.
const (
	FieldSlug    = "slug"
	FieldURL     = "url"
	FieldPostID  = "post_id"
	FieldExcerpt = "excerpt"
)

// defaultStatusColumn is column E, used when the header has no status column.
const defaultStatusColumn = 4

var columnOrder = []string{ColTitle, ColKeyword, ColDescription, ColCategory, ColStatus, ColSlug}

// Aliases are tried in order; the first present header wins.
var headerAliases = map[string][]string{
	ColTitle:       {"título", "titulo"},
	ColKeyword:     {"keyword principal", "keyword_principal"},
	ColDescription: {"descripción para el gpt", "descripcion para el gpt", "descripcion", "descripción"},
	ColCategory:    {"categoría", "categoria"},
	ColStatus:      {"ejecutar?", "ejecutar", "status", "estado"},
	ColSlug:        {"slug", "url"},
}

var fieldAliases = map[string][]string{
	FieldSlug:    {"slug", "url"},
	FieldURL:     {"url", "link"},
	FieldPostID:  {"post_id", "post id", "id", "postid"},
	FieldExcerpt: {"extracto", "extracto_200", "extracto 200", "resumen", "excerpt"},
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// header is the resolved layout of a sheet's first row.
type header struct {
	length     int
	normalized map[string]int
	resolved   map[string]int
}

func parseHeader(row []string) *header {
	h := &header{
		length:     len(row),
		normalized: make(map[string]int, len(row)),
		resolved:   make(map[string]int, len(columnOrder)),
	}
	// A repeated header name resolves to its rightmost column.
	for i, cell := range row {
		h.normalized[normalizeHeader(cell)] = i
	}
	for _, canonical := range columnOrder {
		for _, alias := range headerAliases[canonical] {
			if idx, ok := h.normalized[alias]; ok {
				h.resolved[canonical] = idx
				break
			}
		}
	}
	return h
}

func (h *header) empty() bool {
	return h == nil || h.length == 0
}

func (h *header) statusColumn() int {
	if h != nil {
		if idx, ok := h.resolved[ColStatus]; ok {
			return idx
		}
	}
	return defaultStatusColumn
}

// column finds the index a result field should be written to.
func (h *header) column(key string) (int, bool) {
	if h.empty() {
		return 0, false
	}
	key = normalizeHeader(key)
	if key == "" {
		return 0, false
	}
	candidates := []string{key}
	candidates = append(candidates, headerAliases[key]...)
	candidates = append(candidates, fieldAliases[key]...)
	for _, c := range candidates {
		if idx, ok := h.normalized[c]; ok {
			return idx, true
		}
	}
	return 0, false
}

func cell(row []string, idx int, ok bool) string {
	if !ok || idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func (h *header) get(row []string, canonical string) string {
	idx, ok := h.resolved[canonical]
	return cell(row, idx, ok)
}

func (h *header) getNormalized(row []string, key string) string {
	idx, ok := h.normalized[key]
	return cell(row, idx, ok)
}

// parseRows turns raw sheet values into rows. The header is the first
// row; data rows are numbered from 2.
func parseRows(values [][]string) (*header, []internal.Row) {
	if len(values) == 0 {
		return parseHeader(nil), nil
	}
	h := parseHeader(values[0])
	rows := make([]internal.Row, 0, len(values)-1)
	for i, raw := range values[1:] {
		slugRaw := h.get(raw, ColSlug)
		url := httpURL(h.getNormalized(raw, "url"))
		if url == "" {
			url = httpURL(slugRaw)
		}
		rows = append(rows, internal.Row{
			Number:      i + 2,
			Title:       h.get(raw, ColTitle),
			Keyword:     h.get(raw, ColKeyword),
			Description: h.get(raw, ColDescription),
			Category:    h.get(raw, ColCategory),
			Status:      h.get(raw, ColStatus),
			SlugRaw:     slugRaw,
			Slug:        textutil.ExtractSlug(slugRaw),
			URL:         url,
		})
	}
	return h, rows
}

func httpURL(value string) string {
	value = strings.TrimSpace(value)
	if textutil.IsHTTPURL(value) {
		return value
	}
	return ""
}

// ColumnLetter converts a zero-based column index to A1 notation:
// 0 is A, 25 is Z, 26 is AA. Negative indexes map to A.
func ColumnLetter(index int) string {
	if index < 0 {
		return "A"
	}
	var out []byte
	for n := index + 1; n > 0; {
		n--
		out = append([]byte{byte('A' + n%26)}, out...)
		n /= 26
	}
	return string(out)
}

// a1 builds a range reference, quoting the sheet name when needed.
func a1(sheetName, ref string) string {
	return quoteSheet(sheetName) + "!" + ref
}

func quoteSheet(name string) string {
	for _, r := range name {
		if !(r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return "'" + strings.ReplaceAll(name, "'", "''") + "'"
		}
	}
	return name
}

func cellRef(sheetName string, col, row int) string {
	return a1(sheetName, fmt.Sprintf("%s%d", ColumnLetter(col), row))
}
