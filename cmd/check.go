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
	"io"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/valpere/sheetpub/internal/llm"
)

var checkTimeout time.Duration

type probe struct {
	name string
	run  func(context.Context) error
}

type probeResult struct {
	name    string
	elapsed time.Duration
	err     error
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate settings and probe Sheets, the LLM and WordPress",
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

		ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
		defer cancel()

		completer, err := buildCompleter(ctx, cfg)
		if err != nil {
			return err
		}
		sh, err := buildSheet(ctx, cfg, logger)
		if err != nil {
			return err
		}
		wp, err := buildPublisher(cfg, nil, logger)
		if err != nil {
			return err
		}

		return checkComponents(ctx, cmd.OutOrStdout(), []probe{
			{"sheets", sh.Probe},
			{"llm (" + cfg.LLM.Provider + ")", func(ctx context.Context) error { return llm.HealthCheck(ctx, completer) }},
			{"wordpress", wp.Ping},
		})
	},
}

// runProbes runs every probe concurrently. A failure does not cancel the
// others; results keep probe order and the error is the first failure.
func runProbes(ctx context.Context, probes []probe) ([]probeResult, error) {
	results := make([]probeResult, len(probes))
	var g errgroup.Group
	for i, p := range probes {
		g.Go(func() error {
			started := time.Now()
			err := p.run(ctx)
			results[i] = probeResult{name: p.name, elapsed: time.Since(started), err: err}
			if err != nil {
				return fmt.Errorf("%s: %w", p.name, err)
			}
			return nil
		})
	}
	return results, g.Wait()
}

// checkComponents prints one table row per probe and fails if any probe did.
func checkComponents(ctx context.Context, w io.Writer, probes []probe) error {
	results, firstErr := runProbes(ctx, probes)

	failed := 0
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		status, detail := "ok", ""
		if r.err != nil {
			failed++
			status, detail = "FAIL", r.err.Error()
		}
		rows = append(rows, []string{r.name, status, r.elapsed.Round(time.Millisecond).String(), detail})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"COMPONENT", "STATUS", "TIME", "DETAIL"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	))

	if firstErr != nil {
		return fmt.Errorf("%d of %d checks failed: %w", failed, len(results), firstErr)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 60*time.Second, "Overall time allowed for the probes")
}
