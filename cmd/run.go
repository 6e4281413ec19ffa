/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valpere/sheetpub/internal"
	"github.com/valpere/sheetpub/internal/dedup"
	"github.com/valpere/sheetpub/internal/generator"
	"github.com/valpere/sheetpub/internal/metrics"
	"github.com/valpere/sheetpub/internal/pipeline"
)

var (
	dryRun   bool
	rowLimit int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one publishing pass over the sheet",
	Long: `Process every row whose status is the trigger value ("si" by default):

  1. skip it as "duplicado" when the title, keyword or slug is already in the
     index, or when the LLM judges it a duplicate of an indexed post
  2. generate the article with the configured LLM
  3. publish it to WordPress and mark the row "hecho", writing back the slug,
     URL, post ID and excerpt

A row that fails at any step is marked "error" and the run moves on.
Only one run may hold the lock at a time.

  --dry-run     dedup and generate only; nothing is published or written
  --limit N     process at most N rows`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer logger.Sync()

		lock := flock.New(cfg.Run.LockPath)
		locked, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire lock: %w", err)
		}
		if !locked {
			return fmt.Errorf("another run is in progress (lock %s)", cfg.Run.LockPath)
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				logger.Warn("failed to release lock", zap.Error(err))
			}
		}()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		completer, err := buildCompleter(ctx, cfg)
		if err != nil {
			return err
		}
		sh, err := buildSheet(ctx, cfg, logger)
		if err != nil {
			return err
		}
		wp, err := buildPublisher(cfg, db, logger)
		if err != nil {
			return err
		}

		filter := dedup.NewFilter(dedup.NewSemanticChecker(completer, cfg.Dedup.SemanticLimit, logger))
		gen := generator.New(completer, generator.Options{
			Temperature: cfg.Generation.Temperature,
			RenderFAQ:   cfg.Generation.RenderFAQ,
			Language:    cfg.Generation.Language,
		}, logger)
		m := metrics.New()

		p := pipeline.New(sh, filter, gen, wp, pipeline.PipelineConfig{
			Statuses: pipeline.Statuses{
				Done:      cfg.Status.Done,
				Duplicate: cfg.Status.Duplicate,
				Error:     cfg.Status.Error,
			},
			DryRun:      dryRun,
			Limit:       rowLimit,
			AppendIndex: cfg.Index.Append,
		},
			pipeline.WithLedger(db),
			pipeline.WithRecorder(m),
			pipeline.WithLogger(logger),
		)

		summary, runErr := p.Execute(ctx)

		if err := m.Push(context.WithoutCancel(ctx), cfg.Metrics.PushgatewayURL); err != nil {
			logger.Warn("cannot push metrics", zap.Error(err))
		}

		if summary != nil && len(summary.Results) > 0 {
			fmt.Fprintln(cmd.OutOrStdout(), renderSummary(summary))
		}
		return runErr
	},
}

func renderSummary(s *pipeline.Summary) string {
	rows := make([][]string, 0, len(s.Results))
	for _, r := range s.Results {
		detail := r.URL
		switch r.Outcome {
		case internal.OutcomeError:
			detail = r.Error
		case internal.OutcomeDuplicate, internal.OutcomeSemanticDuplicate:
			detail = r.Reason
		}
		rows = append(rows, []string{
			strconv.Itoa(r.Row),
			r.Title,
			string(r.Outcome),
			r.PostID,
			detail,
		})
	}
	out := renderTable(
		[]string{"ROW", "TITLE", "OUTCOME", "POST ID", "DETAIL"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
	)
	c := s.Counts
	return out + fmt.Sprintf("\nrun %s: %d rows, %d published, %d duplicates, %d generated, %d errors",
		s.RunID, c.Total, c.Published, c.Duplicates+c.SemanticDuplicates, c.Generated, c.Errors)
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Dedup and generate without publishing or writing the sheet")
	runCmd.Flags().IntVar(&rowLimit, "limit", 0, "Process at most N rows (0 = all)")
}
