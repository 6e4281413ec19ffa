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
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/sheetpub/internal"
	"github.com/valpere/sheetpub/internal/pipeline"
	"github.com/valpere/sheetpub/internal/store"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		historyDBPath = ""
	})
	err := rootCmd.Execute()
	return buf.String(), err
}

func seedLedger(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	db, err := store.New(path)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	started := time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)
	require.NoError(t, db.StartRun(ctx, "run-abc", started, false))
	require.NoError(t, db.SaveRowResult(ctx, internal.RowResult{
		RunID: "run-abc", Row: 2, Title: "Regar plantas", Outcome: internal.OutcomePublished,
		PostID: "42", URL: "https://blog.test/regar-plantas/",
	}))
	require.NoError(t, db.SaveRowResult(ctx, internal.RowResult{
		RunID: "run-abc", Row: 3, Title: "Repetida", Outcome: internal.OutcomeDuplicate, Reason: "exact match",
	}))
	require.NoError(t, db.FinishRun(ctx, "run-abc", started.Add(time.Minute), store.Counts{Total: 2, Published: 1, Duplicates: 1}))
	return path
}

func TestHistoryList(t *testing.T) {
	path := seedLedger(t)

	out, err := executeCommand(t, "history", "list", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "run-abc")
	assert.Contains(t, out, "PUBLISHED")
}

func TestHistoryListRun(t *testing.T) {
	path := seedLedger(t)

	out, err := executeCommand(t, "history", "list", "run-abc", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Regar plantas")
	assert.Contains(t, out, "https://blog.test/regar-plantas/")
	assert.Contains(t, out, "exact match")
}

func TestHistoryStatsAndClear(t *testing.T) {
	path := seedLedger(t)

	out, err := executeCommand(t, "history", "stats", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Runs:              1")
	assert.Contains(t, out, "published")

	out, err = executeCommand(t, "history", "clear", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared 1 runs")

	out, err = executeCommand(t, "history", "list", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded.")
}

func TestRenderSummary(t *testing.T) {
	out := renderSummary(&pipeline.Summary{
		RunID:   "run-1",
		Counts:  store.Counts{Total: 3, Published: 1, SemanticDuplicates: 1, Errors: 1},
		Results: []internal.RowResult{
			{Row: 2, Title: "Uno", Outcome: internal.OutcomePublished, PostID: "7", URL: "https://blog.test/uno/"},
			{Row: 3, Title: "Dos", Outcome: internal.OutcomeSemanticDuplicate, Reason: "mismo tema"},
			{Row: 4, Title: "Tres", Outcome: internal.OutcomeError, Error: "publish: wordpress: 500"},
		},
	})

	assert.Contains(t, out, "https://blog.test/uno/")
	assert.Contains(t, out, "mismo tema")
	assert.Contains(t, out, "publish: wordpress: 500")
	assert.True(t, strings.HasSuffix(out, "run run-1: 3 rows, 1 published, 1 duplicates, 0 generated, 1 errors"))
}

func TestRenderTable_PadsShortRows(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"only"}}, nil)
	assert.Contains(t, out, "only")
	assert.Equal(t, "", renderTable(nil, nil, nil))
}

// setRunEnv supplies a complete configuration so run gets as far as the lock.
func setRunEnv(t *testing.T, lockPath string) {
	t.Helper()
	for k, v := range map[string]string{
		"GOOGLE_SPREADSHEET_ID":   "sheet-1",
		"GOOGLE_CREDENTIALS_JSON": `{"type":"service_account"}`,
		"GOOGLE_CREDENTIALS_FILE": "",
		"LLM_PROVIDER":            "openai",
		"OPENAI_API_KEY":          "sk-test",
		"GENERATION_TEMPERATURE":  "",
		"WORDPRESS_BASE_URL":      "https://blog.test",
		"WORDPRESS_AUTH_METHOD":   "application_password",
		"WORDPRESS_USER":          "editor",
		"WORDPRESS_PASSWORD":      "secret",
		"STATUS_DONE":             "",
		"STATUS_DUPLICATE":        "",
		"STATUS_ERROR":            "",
		"SHEETPUB_DB_PATH":        filepath.Join(t.TempDir(), "ledger.db"),
		"SHEETPUB_LOCK_PATH":      lockPath,
		"LOG_LEVEL":               "ERROR",
		"LOG_FILE":                "",
	} {
		t.Setenv(k, v)
	}
}

func TestRun_RefusesWhileLocked(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "sheetpub.lock")
	setRunEnv(t, lockPath)

	held := flock.New(lockPath)
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer held.Unlock()

	_, err = executeCommand(t, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "another run is in progress")
	assert.Contains(t, err.Error(), lockPath)
}

func TestCheckComponents_AllHealthy(t *testing.T) {
	ok := func(context.Context) error { return nil }
	var buf bytes.Buffer

	err := checkComponents(context.Background(), &buf, []probe{
		{"sheets", ok}, {"llm (openai)", ok}, {"wordpress", ok},
	})

	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(buf.String(), " ok "))
	assert.NotContains(t, buf.String(), "FAIL")
}

func TestCheckComponents_ReportsFailuresConcurrently(t *testing.T) {
	var started sync.WaitGroup
	started.Add(3)
	all := make(chan struct{})
	go func() {
		started.Wait()
		close(all)
	}()

	// Each probe waits until all three are running, so a sequential
	// fan-out would time out instead of passing.
	barrier := func(fail error) func(context.Context) error {
		return func(context.Context) error {
			started.Done()
			select {
			case <-all:
				return fail
			case <-time.After(5 * time.Second):
				return errors.New("probes did not run concurrently")
			}
		}
	}

	var buf bytes.Buffer
	err := checkComponents(context.Background(), &buf, []probe{
		{"sheets", barrier(nil)},
		{"llm (openai)", barrier(nil)},
		{"wordpress", barrier(errors.New("401 unauthorized"))},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 checks failed")
	assert.Contains(t, err.Error(), "wordpress: 401 unauthorized")
	assert.Contains(t, buf.String(), "FAIL")
	assert.Contains(t, buf.String(), "401 unauthorized")
	assert.NotContains(t, buf.String(), "did not run concurrently")
}
