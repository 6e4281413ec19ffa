package internal

import "time"

// Row is a candidate article row read from the main sheet.
type Row struct {
	Number      int    `json:"row_number"`
	Title       string `json:"titulo"`
	Keyword     string `json:"keyword"`
	Description string `json:"descripcion"`
	Category    string `json:"categoria"`
	Status      string `json:"ejecutar"`
	SlugRaw     string `json:"slug_raw"`
	Slug        string `json:"slug"`
	URL         string `json:"url"`
}

// IndexRecord is an already-published entry of the historical index.
type IndexRecord struct {
	Title    string `json:"titulo"`
	Keyword  string `json:"keyword"`
	Category string `json:"categoria"`
	Slug     string `json:"slug"`
	URL      string `json:"url"`
	PostID   string `json:"post_id,omitempty"`
	Excerpt  string `json:"excerpt,omitempty"`
}

// IndexRecord projects a parsed index-sheet row into an index record.
func (r Row) IndexRecord() IndexRecord {
	return IndexRecord{
		Title:    r.Title,
		Keyword:  r.Keyword,
		Category: r.Category,
		Slug:     r.Slug,
		URL:      r.URL,
	}
}

// Outcome is the terminal state of one processed row.
type Outcome string

const (
	OutcomePublished         Outcome = "published"
	OutcomeDuplicate         Outcome = "duplicate"
	OutcomeSemanticDuplicate Outcome = "semantic_duplicate"
	OutcomeGenerated         Outcome = "generated"
	OutcomeError             Outcome = "error"
)

// RowResult records what happened to a single row during a run.
type RowResult struct {
	RunID    string        `json:"run_id"`
	Row      int           `json:"row"`
	Title    string        `json:"title"`
	Keyword  string        `json:"keyword"`
	Outcome  Outcome       `json:"outcome"`
	PostID   string        `json:"post_id,omitempty"`
	Slug     string        `json:"slug,omitempty"`
	URL      string        `json:"url,omitempty"`
	Reason   string        `json:"reason,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}
