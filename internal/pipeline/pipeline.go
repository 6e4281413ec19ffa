// Package pipeline runs one publishing pass over the sheet: dedup, generate,
// publish and write back, one row at a time in sheet order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/valpere/sheetpub/internal"
	"github.com/valpere/sheetpub/internal/dedup"
	"github.com/valpere/sheetpub/internal/generator"
	"github.com/valpere/sheetpub/internal/sheet"
	"github.com/valpere/sheetpub/internal/store"
	"github.com/valpere/sheetpub/internal/textutil"
	"github.com/valpere/sheetpub/internal/wordpress"
)

type Sheet interface {
	RowsToProcess(ctx context.Context) []internal.Row
	IndexRecords(ctx context.Context) []internal.IndexRecord
	MarkStatus(ctx context.Context, row int, status string) error
	UpdateRow(ctx context.Context, row int, fields map[string]string) error
	AppendIndex(ctx context.Context, rec internal.IndexRecord) error
}

type DuplicateFilter interface {
	Check(ctx context.Context, candidate internal.Row, index []internal.IndexRecord) dedup.Result
}

type ArticleGenerator interface {
	Generate(ctx context.Context, row internal.Row) (*generator.Article, error)
}

type Publisher interface {
	PublishPost(ctx context.Context, p wordpress.Post) (*wordpress.Published, error)
	BaseURL() string
}

// Ledger persists run history.
type Ledger interface {
	StartRun(ctx context.Context, id string, startedAt time.Time, dryRun bool) error
	FinishRun(ctx context.Context, id string, finishedAt time.Time, c store.Counts) error
	SaveRowResult(ctx context.Context, r internal.RowResult) error
}

// Recorder receives per-row and per-run measurements.
type Recorder interface {
	ObserveRow(outcome internal.Outcome, d time.Duration)
	RunFinished(at time.Time)
}

// Statuses are the values written to the status column.
type Statuses struct {
	Done      string
	Duplicate string
	Error     string
}

type PipelineConfig struct {
	Statuses Statuses
	// DryRun dedups and generates but neither publishes nor writes the sheet.
	DryRun bool
	// Limit caps the rows processed per run; 0 means no cap.
	Limit int
	// AppendIndex also writes each published entry to the index sheet.
	AppendIndex bool
}

// Summary describes a finished run.
type Summary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	DryRun     bool
	Counts     store.Counts
	Results    []internal.RowResult
}

type Pipeline struct {
	sheet     Sheet
	filter    DuplicateFilter
	generator ArticleGenerator
	publisher Publisher
	config    PipelineConfig

	ledger   Ledger
	recorder Recorder
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

type Option func(*Pipeline)

func WithLedger(l Ledger) Option {
	return func(p *Pipeline) { p.ledger = l }
}

func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithIDGenerator replaces the random run id.
func WithIDGenerator(newID func() string) Option {
	return func(p *Pipeline) { p.newID = newID }
}

func New(sh Sheet, filter DuplicateFilter, gen ArticleGenerator, pub Publisher, config PipelineConfig, opts ...Option) *Pipeline {
	if config.Statuses.Done == "" {
		config.Statuses.Done = "hecho"
	}
	if config.Statuses.Duplicate == "" {
		config.Statuses.Duplicate = "duplicado"
	}
	if config.Statuses.Error == "" {
		config.Statuses.Error = "error"
	}
	p := &Pipeline{
		sheet:     sh,
		filter:    filter,
		generator: gen,
		publisher: pub,
		config:    config,
		logger:    zap.NewNop(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Execute runs one pass. Row failures are recorded and never abort the run;
// the returned error is only set when ctx is cancelled mid-run. Cancellation
// is checked between rows.
func (p *Pipeline) Execute(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		RunID:     p.newID(),
		StartedAt: p.now(),
		DryRun:    p.config.DryRun,
		Results:   make([]internal.RowResult, 0),
	}
	logger := p.logger.With(zap.String("run_id", summary.RunID))
	if p.config.DryRun {
		logger.Info("dry run: nothing will be published or written to the sheet")
	}
	p.startRun(ctx, summary, logger)

	rows := p.sheet.RowsToProcess(ctx)
	if len(rows) == 0 {
		logger.Info("no rows to process")
		p.finishRun(ctx, summary, logger)
		return summary, nil
	}
	if p.config.Limit > 0 && len(rows) > p.config.Limit {
		logger.Info("limiting rows", zap.Int("available", len(rows)), zap.Int("limit", p.config.Limit))
		rows = rows[:p.config.Limit]
	}

	index := p.sheet.IndexRecords(ctx)
	logger.Info("starting run", zap.Int("rows", len(rows)), zap.Int("index_entries", len(index)))

	// A row that has started runs to completion: once a post is live its
	// status and ledger entry must land, or the next run would publish it again.
	rowCtx := context.WithoutCancel(ctx)

	var runErr error
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			logger.Warn("run interrupted", zap.Error(err))
			runErr = err
			break
		}

		result, rec := p.processRow(rowCtx, summary.RunID, row, index, logger)
		if rec != nil {
			index = append(index, *rec)
		}
		summary.Results = append(summary.Results, result)
		summary.Counts.Add(result.Outcome)

		if p.recorder != nil {
			p.recorder.ObserveRow(result.Outcome, result.Duration)
		}
		if p.ledger != nil {
			if err := p.ledger.SaveRowResult(rowCtx, result); err != nil {
				logger.Warn("cannot record row result", zap.Int("row", row.Number), zap.Error(err))
			}
		}
	}

	p.finishRun(ctx, summary, logger)
	return summary, runErr
}

func (p *Pipeline) startRun(ctx context.Context, s *Summary, logger *zap.Logger) {
	if p.ledger == nil {
		return
	}
	if err := p.ledger.StartRun(ctx, s.RunID, s.StartedAt, s.DryRun); err != nil {
		logger.Warn("cannot record run start", zap.Error(err))
	}
}

func (p *Pipeline) finishRun(ctx context.Context, s *Summary, logger *zap.Logger) {
	s.FinishedAt = p.now()
	if p.recorder != nil {
		p.recorder.RunFinished(s.FinishedAt)
	}
	if p.ledger != nil {
		// The run row is closed even when ctx was cancelled.
		if err := p.ledger.FinishRun(context.WithoutCancel(ctx), s.RunID, s.FinishedAt, s.Counts); err != nil {
			logger.Warn("cannot record run end", zap.Error(err))
		}
	}
	logger.Info("run finished",
		zap.Int("total", s.Counts.Total),
		zap.Int("published", s.Counts.Published),
		zap.Int("duplicates", s.Counts.Duplicates+s.Counts.SemanticDuplicates),
		zap.Int("generated", s.Counts.Generated),
		zap.Int("errors", s.Counts.Errors),
		zap.Duration("elapsed", s.FinishedAt.Sub(s.StartedAt)))
}

// processRow handles one candidate. The returned record, when non-nil, is the
// freshly published entry to add to the in-memory index.
func (p *Pipeline) processRow(ctx context.Context, runID string, row internal.Row, index []internal.IndexRecord, runLogger *zap.Logger) (internal.RowResult, *internal.IndexRecord) {
	started := p.now()
	logger := runLogger.With(zap.Int("row", row.Number), zap.String("title", row.Title))
	result := internal.RowResult{
		RunID:   runID,
		Row:     row.Number,
		Title:   row.Title,
		Keyword: row.Keyword,
	}

	rec, err := p.handle(ctx, row, index, &result, logger)
	if err != nil {
		logger.Error("row failed", zap.Error(err))
		result.Outcome = internal.OutcomeError
		result.Error = err.Error()
		p.mark(ctx, row.Number, p.config.Statuses.Error, logger)
	}
	result.Duration = p.now().Sub(started)
	return result, rec
}

func (p *Pipeline) handle(ctx context.Context, row internal.Row, index []internal.IndexRecord, result *internal.RowResult, logger *zap.Logger) (*internal.IndexRecord, error) {
	if match := p.filter.Check(ctx, row, index); match.Duplicate() {
		result.Outcome = internal.OutcomeDuplicate
		result.Reason = "exact match"
		if match.Match == dedup.SemanticMatch {
			result.Outcome = internal.OutcomeSemanticDuplicate
			result.Reason = firstNonEmpty(match.Verdict.Reason, "semantic match")
			result.Slug = match.Verdict.MatchSlug
		}
		logger.Info("duplicate, skipping", zap.String("match", match.Match.String()), zap.String("reason", result.Reason))
		p.mark(ctx, row.Number, p.config.Statuses.Duplicate, logger)
		return nil, nil
	}

	article, err := p.generator.Generate(ctx, row)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	title := firstNonEmpty(article.Title, row.Title)

	if p.config.DryRun {
		logger.Info("dry run: article generated", zap.String("article_title", title))
		result.Outcome = internal.OutcomeGenerated
		result.Slug = row.Slug
		return nil, nil
	}

	published, err := p.publisher.PublishPost(ctx, wordpress.Post{
		Title:           title,
		Content:         article.ContentHTML,
		MetaDescription: article.MetaDescription,
		Category:        firstNonEmpty(row.Category, article.Category),
		Slug:            row.Slug,
	})
	if err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}
	if published == nil {
		return nil, errors.New("publish: empty response")
	}

	slug := firstNonEmpty(published.Slug, row.Slug)
	url := firstNonEmpty(published.Link, textutil.BuildPostURL(p.publisher.BaseURL(), slug))
	postID := published.PostID()
	excerpt := generator.Excerpt(article, generator.ExcerptLength)

	p.mark(ctx, row.Number, p.config.Statuses.Done, logger)
	if err := p.sheet.UpdateRow(ctx, row.Number, map[string]string{
		sheet.FieldSlug:    slug,
		sheet.FieldURL:     url,
		sheet.FieldPostID:  postID,
		sheet.FieldExcerpt: excerpt,
	}); err != nil {
		logger.Warn("cannot write results to sheet", zap.Error(err))
	}

	rec := &internal.IndexRecord{
		Title:    title,
		Keyword:  row.Keyword,
		Category: row.Category,
		Slug:     slug,
		URL:      url,
		PostID:   postID,
		Excerpt:  excerpt,
	}
	if p.config.AppendIndex {
		if err := p.sheet.AppendIndex(ctx, *rec); err != nil {
			logger.Warn("cannot append to index sheet", zap.Error(err))
		}
	}

	logger.Info("published", zap.String("post_id", postID), zap.String("url", url))
	result.Outcome = internal.OutcomePublished
	result.PostID = postID
	result.Slug = slug
	result.URL = url
	return rec, nil
}

// mark writes a status; failures are logged and never change the outcome.
func (p *Pipeline) mark(ctx context.Context, row int, status string, logger *zap.Logger) {
	if p.config.DryRun {
		return
	}
	if err := p.sheet.MarkStatus(ctx, row, status); err != nil {
		logger.Warn("cannot write status", zap.String("status", status), zap.Error(err))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
