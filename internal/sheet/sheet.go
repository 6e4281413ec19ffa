// Package sheet reads candidate rows and the historical index from a Google
// spreadsheet and writes statuses and publishing results back.
package sheet

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/valpere/sheetpub/internal"
	"github.com/valpere/sheetpub/internal/textutil"
)

// Defaults for the sheet names and the row trigger.
const (
	DefaultMainSheet  = "contenidos"
	DefaultIndexSheet = "indice_contenido"
	DefaultTrigger    = "si"

	batchSize = 50
)

// ValueRange is a range and the values to write into it.
type ValueRange struct {
	Range  string
	Values [][]string
}

// ValuesAPI is the subset of the Sheets values service the client needs.
type ValuesAPI interface {
	Get(ctx context.Context, spreadsheetID, rng string) ([][]string, error)
	Update(ctx context.Context, spreadsheetID, rng string, values [][]string) error
	BatchUpdate(ctx context.Context, spreadsheetID string, data []ValueRange) error
	Append(ctx context.Context, spreadsheetID, rng string, values [][]string) error
}

// Config names the spreadsheet and its two tabs.
type Config struct {
	SpreadsheetID string `mapstructure:"spreadsheet_id"`
	MainSheet     string `mapstructure:"main_sheet"`
	IndexSheet    string `mapstructure:"index_sheet"`
	// Trigger is the status value that marks a row for processing.
	Trigger string `mapstructure:"trigger"`
}

// StatusUpdate pairs a sheet row with the status to write.
type StatusUpdate struct {
	Row    int
	Status string
}

// Client reads and writes the main and index sheets.
type Client struct {
	api    ValuesAPI
	cfg    Config
	logger *zap.Logger

	mu          sync.Mutex
	mainHeader  *header
	indexHeader *header
}

// New builds a client over api.
func New(api ValuesAPI, cfg Config, logger *zap.Logger) *Client {
	if cfg.MainSheet == "" {
		cfg.MainSheet = DefaultMainSheet
	}
	if cfg.IndexSheet == "" {
		cfg.IndexSheet = DefaultIndexSheet
	}
	if cfg.Trigger == "" {
		cfg.Trigger = DefaultTrigger
	}
	cfg.Trigger = textutil.SanitizeStatus(cfg.Trigger)
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{api: api, cfg: cfg, logger: logger}
}

func (c *Client) fetch(ctx context.Context, sheetName string) ([][]string, error) {
	values, err := c.api.Get(ctx, c.cfg.SpreadsheetID, a1(sheetName, "A:Z"))
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheetName, err)
	}
	return values, nil
}

func (c *Client) loadMain(ctx context.Context) ([]internal.Row, error) {
	values, err := c.fetch(ctx, c.cfg.MainSheet)
	if err != nil {
		return nil, err
	}
	h, rows := parseRows(values)
	c.mu.Lock()
	c.mainHeader = h
	c.mu.Unlock()
	return rows, nil
}

// RowsToProcess returns the main-sheet rows whose status is the trigger.
// Read failures are logged and yield no rows.
func (c *Client) RowsToProcess(ctx context.Context) []internal.Row {
	rows, err := c.loadMain(ctx)
	if err != nil {
		c.logger.Error("cannot read main sheet", zap.String("sheet", c.cfg.MainSheet), zap.Error(err))
		return nil
	}
	var out []internal.Row
	for _, r := range rows {
		if textutil.SanitizeStatus(r.Status) == c.cfg.Trigger {
			out = append(out, r)
		}
	}
	c.logger.Info("rows to process", zap.Int("count", len(out)))
	return out
}

// IndexRecords returns every entry of the index sheet. Read failures are
// logged and yield an empty index.
func (c *Client) IndexRecords(ctx context.Context) []internal.IndexRecord {
	values, err := c.fetch(ctx, c.cfg.IndexSheet)
	if err != nil {
		c.logger.Error("cannot read index sheet", zap.String("sheet", c.cfg.IndexSheet), zap.Error(err))
		return nil
	}
	h, rows := parseRows(values)
	c.mu.Lock()
	c.indexHeader = h
	c.mu.Unlock()

	out := make([]internal.IndexRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.IndexRecord())
	}
	return out
}

// Probe reads the main sheet's header row to verify access.
func (c *Client) Probe(ctx context.Context) error {
	_, err := c.api.Get(ctx, c.cfg.SpreadsheetID, a1(c.cfg.MainSheet, "A1:Z1"))
	if err != nil {
		return fmt.Errorf("read sheet %s: %w", c.cfg.MainSheet, err)
	}
	return nil
}

func (c *Client) statusRef(row int) string {
	c.mu.Lock()
	col := c.mainHeader.statusColumn()
	c.mu.Unlock()
	return cellRef(c.cfg.MainSheet, col, row)
}

// MarkStatus writes status into the row's status cell.
func (c *Client) MarkStatus(ctx context.Context, row int, status string) error {
	ref := c.statusRef(row)
	if err := c.api.Update(ctx, c.cfg.SpreadsheetID, ref, [][]string{{status}}); err != nil {
		return fmt.Errorf("update %s: %w", ref, err)
	}
	return nil
}

// BatchMarkStatus writes many statuses, batchSize cells per request. It
// stops at the first failed batch.
func (c *Client) BatchMarkStatus(ctx context.Context, updates []StatusUpdate) error {
	for _, chunk := range textutil.Chunked(updates, batchSize) {
		data := make([]ValueRange, 0, len(chunk))
		for _, u := range chunk {
			data = append(data, ValueRange{Range: c.statusRef(u.Row), Values: [][]string{{u.Status}}})
		}
		if err := c.api.BatchUpdate(ctx, c.cfg.SpreadsheetID, data); err != nil {
			return fmt.Errorf("batch status update: %w", err)
		}
	}
	return nil
}

// UpdateRow writes result fields (slug, url, post_id, excerpt) into their
// columns on row. Fields without a matching column are skipped. The header is
// read first when it is not known yet.
func (c *Client) UpdateRow(ctx context.Context, row int, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}

	c.mu.Lock()
	h := c.mainHeader
	c.mu.Unlock()
	if h.empty() {
		if _, err := c.loadMain(ctx); err != nil {
			return err
		}
		c.mu.Lock()
		h = c.mainHeader
		c.mu.Unlock()
	}
	if h.empty() {
		c.logger.Warn("main sheet has no header, skipping row update", zap.Int("row", row))
		return nil
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var data []ValueRange
	var summary []string
	for _, key := range keys {
		idx, ok := h.column(key)
		if !ok {
			c.logger.Debug("no column for field", zap.String("field", key))
			continue
		}
		ref := cellRef(c.cfg.MainSheet, idx, row)
		data = append(data, ValueRange{Range: ref, Values: [][]string{{fields[key]}}})
		summary = append(summary, fmt.Sprintf("%s%d=%s", ColumnLetter(idx), row, fields[key]))
	}
	if len(data) == 0 {
		return nil
	}

	c.logger.Info("updating row",
		zap.Int("row", row),
		zap.String("sheet", c.cfg.MainSheet),
		zap.String("columns", strings.Join(summary, ", ")))
	if err := c.api.BatchUpdate(ctx, c.cfg.SpreadsheetID, data); err != nil {
		return fmt.Errorf("update row %d: %w", row, err)
	}
	return nil
}

// AppendIndex adds a published entry to the bottom of the index sheet,
// placing each value under its matching header.
func (c *Client) AppendIndex(ctx context.Context, rec internal.IndexRecord) error {
	c.mu.Lock()
	h := c.indexHeader
	c.mu.Unlock()
	if h.empty() {
		values, err := c.fetch(ctx, c.cfg.IndexSheet)
		if err != nil {
			return err
		}
		h, _ = parseRows(values)
		c.mu.Lock()
		c.indexHeader = h
		c.mu.Unlock()
	}

	row := indexRow(h, rec)
	if err := c.api.Append(ctx, c.cfg.SpreadsheetID, a1(c.cfg.IndexSheet, "A1"), [][]string{row}); err != nil {
		return fmt.Errorf("append to %s: %w", c.cfg.IndexSheet, err)
	}
	return nil
}

func indexRow(h *header, rec internal.IndexRecord) []string {
	ordered := []struct {
		key   string
		value string
	}{
		{ColTitle, rec.Title},
		{ColKeyword, rec.Keyword},
		{ColCategory, rec.Category},
		{FieldSlug, rec.Slug},
		{FieldURL, rec.URL},
		{FieldPostID, rec.PostID},
		{FieldExcerpt, rec.Excerpt},
	}
	if h.empty() {
		out := make([]string, len(ordered))
		for i, o := range ordered {
			out[i] = o.value
		}
		return out
	}

	out := make([]string, h.length)
	for _, o := range ordered {
		idx, ok := h.column(o.key)
		if !ok {
			continue
		}
		out[idx] = o.value
	}
	return out
}
