package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/valpere/sheetpub/internal"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_New(t *testing.T) {
	s := newTestStore(t)
	if s == nil {
		t.Fatal("expected non-nil store")
	}
}

func TestStore_New_InvalidPath(t *testing.T) {
	_, err := New("/nonexistent/path/test.db")
	if err == nil {
		t.Error("expected error for invalid path")
	}
}

func TestStore_RunLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	started := time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)

	if err := s.StartRun(ctx, "run-1", started, false); err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	var counts Counts
	counts.Add(internal.OutcomePublished)
	counts.Add(internal.OutcomeDuplicate)
	counts.Add(internal.OutcomeError)

	if err := s.FinishRun(ctx, "run-1", started.Add(time.Minute), counts); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	runs, err := s.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	r := runs[0]
	if r.ID != "run-1" {
		t.Errorf("expected run-1, got %q", r.ID)
	}
	if r.FinishedAt == nil {
		t.Fatal("expected finished_at to be set")
	}
	if !r.StartedAt.Equal(started) {
		t.Errorf("expected started %v, got %v", started, r.StartedAt)
	}
	if r.Counts != counts {
		t.Errorf("expected counts %+v, got %+v", counts, r.Counts)
	}
}

func TestStore_FinishRun_Unknown(t *testing.T) {
	s := newTestStore(t)
	if err := s.FinishRun(context.Background(), "missing", time.Now(), Counts{}); err == nil {
		t.Error("expected error for unknown run")
	}
}

func TestStore_ListRuns_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		if err := s.StartRun(ctx, id, base.Add(time.Duration(i)*time.Hour), i == 1); err != nil {
			t.Fatalf("StartRun failed: %v", err)
		}
	}

	runs, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "c" || runs[1].ID != "b" {
		t.Errorf("unexpected order: %s, %s", runs[0].ID, runs[1].ID)
	}
	if !runs[1].DryRun {
		t.Error("expected run b to be a dry run")
	}
	if runs[0].FinishedAt != nil {
		t.Error("expected unfinished run")
	}

	all, err := s.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 runs, got %d", len(all))
	}
}

func TestStore_RowResults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.StartRun(ctx, "run-1", time.Now(), false); err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	results := []internal.RowResult{
		{RunID: "run-1", Row: 5, Title: "Segundo", Outcome: internal.OutcomeError, Error: "wordpress: 500"},
		{RunID: "run-1", Row: 2, Title: "Primero", Keyword: "kw", Outcome: internal.OutcomePublished,
			PostID: "42", Slug: "primero", URL: "https://site.test/primero/", Duration: 1500 * time.Millisecond},
	}
	for _, r := range results {
		if err := s.SaveRowResult(ctx, r); err != nil {
			t.Fatalf("SaveRowResult failed: %v", err)
		}
	}

	got, err := s.RunResults(ctx, "run-1")
	if err != nil {
		t.Fatalf("RunResults failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0] != results[1] {
		t.Errorf("expected %+v, got %+v", results[1], got[0])
	}
	if got[1].Outcome != internal.OutcomeError || got[1].Error != "wordpress: 500" {
		t.Errorf("unexpected second result %+v", got[1])
	}
}

func TestStore_SaveRowResult_Replaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.StartRun(ctx, "run-1", time.Now(), false)

	s.SaveRowResult(ctx, internal.RowResult{RunID: "run-1", Row: 2, Outcome: internal.OutcomeError})
	s.SaveRowResult(ctx, internal.RowResult{RunID: "run-1", Row: 2, Outcome: internal.OutcomePublished})

	got, err := s.RunResults(ctx, "run-1")
	if err != nil {
		t.Fatalf("RunResults failed: %v", err)
	}
	if len(got) != 1 || got[0].Outcome != internal.OutcomePublished {
		t.Errorf("expected a single published result, got %+v", got)
	}
}

func TestStore_Stats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Empty stats
	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Runs != 0 || stats.Rows != 0 {
		t.Errorf("expected empty stats, got %+v", stats)
	}
	if stats.LastRun != nil {
		t.Error("expected no last run")
	}

	started := time.Date(2026, 10, 19, 6, 40, 7, 351624857, time.UTC)
	s.StartRun(ctx, "run-1", started, false)
	s.SaveRowResult(ctx, internal.RowResult{RunID: "run-1", Row: 2, Outcome: internal.OutcomePublished})
	s.SaveRowResult(ctx, internal.RowResult{RunID: "run-1", Row: 3, Outcome: internal.OutcomePublished})
	s.SaveRowResult(ctx, internal.RowResult{RunID: "run-1", Row: 4, Outcome: internal.OutcomeSemanticDuplicate})
	s.SaveCategory(ctx, "Jardín", 7)

	stats, err = s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Runs != 1 {
		t.Errorf("expected 1 run, got %d", stats.Runs)
	}
	if stats.Rows != 3 {
		t.Errorf("expected 3 rows, got %d", stats.Rows)
	}
	if stats.ByOutcome[internal.OutcomePublished] != 2 {
		t.Errorf("expected 2 published, got %d", stats.ByOutcome[internal.OutcomePublished])
	}
	if stats.ByOutcome[internal.OutcomeSemanticDuplicate] != 1 {
		t.Errorf("expected 1 semantic duplicate, got %d", stats.ByOutcome[internal.OutcomeSemanticDuplicate])
	}
	if stats.Categories != 1 {
		t.Errorf("expected 1 category, got %d", stats.Categories)
	}
	if stats.LastRun == nil {
		t.Fatal("expected last run timestamp")
	}
	if !stats.LastRun.Equal(started) {
		t.Errorf("expected last run %v, got %v", started, *stats.LastRun)
	}
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2026, 10, 19, 6, 40, 7, 351624857, time.UTC)
	inputs := []string{
		"2026-10-19 06:40:07.351624857 +0000 UTC",
		"2026-10-19 06:40:07.351624857+00:00",
		"2026-10-19T06:40:07.351624857Z",
	}
	for _, in := range inputs {
		got, err := parseTimestamp(in)
		if err != nil {
			t.Errorf("parseTimestamp(%q) failed: %v", in, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("parseTimestamp(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := parseTimestamp("yesterday"); err == nil {
		t.Error("expected error for unrecognised timestamp")
	}
}

func TestStore_Clear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.StartRun(ctx, "run-1", time.Now(), false)
	s.StartRun(ctx, "run-2", time.Now(), true)
	s.SaveRowResult(ctx, internal.RowResult{RunID: "run-1", Row: 2, Outcome: internal.OutcomePublished})
	s.SaveCategory(ctx, "Hogar", 3)

	count, err := s.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 cleared, got %d", count)
	}

	runs, _ := s.ListRuns(ctx, 0)
	if len(runs) != 0 {
		t.Errorf("expected 0 runs after clear, got %d", len(runs))
	}
	results, _ := s.RunResults(ctx, "run-1")
	if len(results) != 0 {
		t.Errorf("expected 0 results after clear, got %d", len(results))
	}

	// Category cache survives
	if _, found, _ := s.Category(ctx, "Hogar"); !found {
		t.Error("expected category to survive clear")
	}
}

func TestStore_Category(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, found, err := s.Category(ctx, "Jardín")
	if err != nil {
		t.Fatalf("Category failed: %v", err)
	}
	if found || id != 0 {
		t.Errorf("expected miss, got %d %v", id, found)
	}

	if err := s.SaveCategory(ctx, " Jardín ", 12); err != nil {
		t.Fatalf("SaveCategory failed: %v", err)
	}

	id, found, err = s.Category(ctx, "JARDÍN")
	if err != nil {
		t.Fatalf("Category failed: %v", err)
	}
	if !found || id != 12 {
		t.Errorf("expected 12, got %d %v", id, found)
	}

	// Decomposed accent matches the composed form
	id, found, _ = s.Category(ctx, "jardín")
	if !found || id != 12 {
		t.Errorf("expected NFC match, got %d %v", id, found)
	}

	s.SaveCategory(ctx, "jardín", 15)
	id, _, _ = s.Category(ctx, "Jardín")
	if id != 15 {
		t.Errorf("expected overwrite to 15, got %d", id)
	}
}

func TestCounts_Add(t *testing.T) {
	var c Counts
	for _, o := range []internal.Outcome{
		internal.OutcomePublished,
		internal.OutcomeGenerated,
		internal.OutcomeDuplicate,
		internal.OutcomeSemanticDuplicate,
		internal.OutcomeError,
		internal.OutcomeError,
	} {
		c.Add(o)
	}
	want := Counts{Total: 6, Published: 1, Generated: 1, Duplicates: 1, SemanticDuplicates: 1, Errors: 2}
	if c != want {
		t.Errorf("expected %+v, got %+v", want, c)
	}
}

func TestNormalizeText(t *testing.T) {
	if got := normalizeText("  Café "); got != "café" {
		t.Errorf("expected café, got %q", got)
	}
}
