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
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/valpere/sheetpub/internal"
	"github.com/valpere/sheetpub/internal/store"
)

var (
	historyDBPath string
	historyLimit  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the run ledger",
	Long:  `List past runs and their row results, show totals, or clear the SQLite run ledger.`,
}

// openHistoryStore opens the ledger named by --db, falling back to the
// configured path.
func openHistoryStore(cmd *cobra.Command) (*store.Store, error) {
	path := historyDBPath
	if path == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return nil, err
		}
		path = cfg.Run.DBPath
	}
	db, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

var historyListCmd = &cobra.Command{
	Use:   "list [run-id]",
	Short: "List recent runs, or the rows of one run",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openHistoryStore(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		out := cmd.OutOrStdout()
		if len(args) == 1 {
			results, err := db.RunResults(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to list results: %w", err)
			}
			if len(results) == 0 {
				fmt.Fprintf(out, "No rows recorded for run %s.\n", args[0])
				return nil
			}
			fmt.Fprintln(out, renderResults(results))
			return nil
		}

		runs, err := db.ListRuns(cmd.Context(), historyLimit)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Fprintln(out, "No runs recorded.")
			return nil
		}
		fmt.Fprintln(out, renderRuns(runs))
		return nil
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show ledger totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openHistoryStore(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Runs:              %d\n", stats.Runs)
		fmt.Fprintf(out, "Rows:              %d\n", stats.Rows)
		fmt.Fprintf(out, "Cached categories: %d\n", stats.Categories)
		if stats.LastRun != nil {
			fmt.Fprintf(out, "Last run:          %s\n", stats.LastRun.Local().Format("2006-01-02 15:04"))
		}
		if len(stats.ByOutcome) > 0 {
			fmt.Fprintln(out, renderOutcomes(stats.ByOutcome))
		}
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all runs and row results (the category cache is kept)",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openHistoryStore(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.Clear(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d runs from the ledger.\n", n)
		return nil
	},
}

func renderRuns(runs []store.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		finished := "-"
		if r.FinishedAt != nil {
			finished = r.FinishedAt.Local().Format("15:04:05")
		}
		mode := ""
		if r.DryRun {
			mode = "dry-run"
		}
		c := r.Counts
		rows = append(rows, []string{
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			finished,
			mode,
			strconv.Itoa(c.Total),
			strconv.Itoa(c.Published),
			strconv.Itoa(c.Duplicates + c.SemanticDuplicates),
			strconv.Itoa(c.Errors),
		})
	}
	return renderTable(
		[]string{"RUN", "STARTED", "FINISHED", "MODE", "ROWS", "PUBLISHED", "DUPLICATES", "ERRORS"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
	)
}

func renderResults(results []internal.RowResult) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		detail := r.URL
		if r.Error != "" {
			detail = r.Error
		} else if r.Reason != "" {
			detail = r.Reason
		}
		rows = append(rows, []string{
			strconv.Itoa(r.Row),
			r.Title,
			string(r.Outcome),
			r.PostID,
			r.Duration.String(),
			detail,
		})
	}
	return renderTable(
		[]string{"ROW", "TITLE", "OUTCOME", "POST ID", "TIME", "DETAIL"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	)
}

func renderOutcomes(byOutcome map[internal.Outcome]int) string {
	outcomes := make([]string, 0, len(byOutcome))
	for o := range byOutcome {
		outcomes = append(outcomes, string(o))
	}
	sort.Strings(outcomes)

	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		rows = append(rows, []string{o, strconv.Itoa(byOutcome[internal.Outcome(o)])})
	}
	return renderTable([]string{"OUTCOME", "ROWS"}, rows, []columnAlignment{alignLeft, alignRight})
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.PersistentFlags().StringVar(&historyDBPath, "db", "", "Ledger path (defaults to SHEETPUB_DB_PATH)")
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of runs to show (0 = all)")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyStatsCmd)
	historyCmd.AddCommand(historyClearCmd)
}
