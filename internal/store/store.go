package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"

	"github.com/valpere/sheetpub/internal"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		dry_run BOOLEAN DEFAULT FALSE,
		total INTEGER DEFAULT 0,
		published INTEGER DEFAULT 0,
		duplicates INTEGER DEFAULT 0,
		semantic_duplicates INTEGER DEFAULT 0,
		generated INTEGER DEFAULT 0,
		errors INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS row_results (
		run_id TEXT NOT NULL,
		row_number INTEGER NOT NULL,
		title TEXT,
		keyword TEXT,
		outcome TEXT NOT NULL,
		post_id TEXT,
		slug TEXT,
		url TEXT,
		reason TEXT,
		error TEXT,
		duration_ms INTEGER,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (run_id, row_number),
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	-- categories caches WordPress category ids by normalised name
	CREATE TABLE IF NOT EXISTS categories (
		name TEXT PRIMARY KEY,
		wp_id INTEGER NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_results_outcome ON row_results(outcome);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Counts tallies row outcomes for one run.
type Counts struct {
	Total              int
	Published          int
	Duplicates         int
	SemanticDuplicates int
	Generated          int
	Errors             int
}

// Add counts one more row with outcome o.
func (c *Counts) Add(o internal.Outcome) {
	c.Total++
	switch o {
	case internal.OutcomePublished:
		c.Published++
	case internal.OutcomeDuplicate:
		c.Duplicates++
	case internal.OutcomeSemanticDuplicate:
		c.SemanticDuplicates++
	case internal.OutcomeGenerated:
		c.Generated++
	case internal.OutcomeError:
		c.Errors++
	}
}

// Run is a row from the runs table.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	DryRun     bool
	Counts     Counts
}

func (s *Store) StartRun(ctx context.Context, id string, startedAt time.Time, dryRun bool) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, dry_run) VALUES (?, ?, ?)`,
		id, startedAt.UTC(), dryRun)
	return err
}

func (s *Store) FinishRun(ctx context.Context, id string, finishedAt time.Time, c Counts) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, total = ?, published = ?, duplicates = ?, semantic_duplicates = ?, generated = ?, errors = ? WHERE id = ?`,
		finishedAt.UTC(), c.Total, c.Published, c.Duplicates, c.SemanticDuplicates, c.Generated, c.Errors, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

func (s *Store) SaveRowResult(ctx context.Context, r internal.RowResult) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO row_results (run_id, row_number, title, keyword, outcome, post_id, slug, url, reason, error, duration_ms) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Row, r.Title, r.Keyword, string(r.Outcome), r.PostID, r.Slug, r.URL, r.Reason, r.Error, r.Duration.Milliseconds())
	return err
}

// ListRuns returns the most recent runs first. A non-positive limit returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, started_at, finished_at, dry_run, total, published, duplicates, semantic_duplicates, generated, errors FROM runs ORDER BY started_at DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.StartedAt, &finished, &r.DryRun,
			&r.Counts.Total, &r.Counts.Published, &r.Counts.Duplicates,
			&r.Counts.SemanticDuplicates, &r.Counts.Generated, &r.Counts.Errors); err != nil {
			return nil, err
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunResults returns the row results of one run in sheet order.
func (s *Store) RunResults(ctx context.Context, runID string) ([]internal.RowResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, row_number, title, keyword, outcome, post_id, slug, url, reason, error, duration_ms FROM row_results WHERE run_id = ? ORDER BY row_number`,
		runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []internal.RowResult
	for rows.Next() {
		var r internal.RowResult
		var outcome string
		var ms int64
		if err := rows.Scan(&r.RunID, &r.Row, &r.Title, &r.Keyword, &outcome, &r.PostID, &r.Slug, &r.URL, &r.Reason, &r.Error, &ms); err != nil {
			return nil, err
		}
		r.Outcome = internal.Outcome(outcome)
		r.Duration = time.Duration(ms) * time.Millisecond
		results = append(results, r)
	}
	return results, rows.Err()
}

// Stats summarises the whole ledger.
type Stats struct {
	Runs       int
	Rows       int
	ByOutcome  map[internal.Outcome]int
	Categories int
	LastRun    *time.Time
}

func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{ByOutcome: make(map[internal.Outcome]int)}

	var last sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), MAX(started_at) FROM runs`).Scan(&stats.Runs, &last)
	if err != nil {
		return nil, err
	}
	if last.Valid {
		if t, err := parseTimestamp(last.String); err == nil {
			stats.LastRun = &t
		}
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&stats.Categories); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM row_results GROUP BY outcome`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		stats.ByOutcome[internal.Outcome(outcome)] = n
		stats.Rows += n
	}
	return stats, rows.Err()
}

// Clear removes all runs and row results. The category cache is kept.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM row_results`); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs`)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

// Category returns the cached WordPress id for a category name.
func (s *Store) Category(ctx context.Context, name string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT wp_id FROM categories WHERE name = ?`, normalizeText(name)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (s *Store) SaveCategory(ctx context.Context, name string, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO categories (name, wp_id, updated_at) VALUES (?, ?, ?)`,
		normalizeText(name), id, time.Now().UTC())
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// normalizeText trims, lowercases and applies Unicode NFC normalization
// for consistent key comparison.
func normalizeText(text string) string {
	return norm.NFC.String(strings.ToLower(strings.TrimSpace(text)))
}

// parseTimestamp reads the text forms the sqlite driver uses for TIMESTAMP
// aggregates, which come back as strings rather than time.Time.
func parseTimestamp(v string) (time.Time, error) {
	layouts := []string{
		"2006-01-02 15:04:05.999999999 -0700 MST",
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02T15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999Z07:00",
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", v)
}
