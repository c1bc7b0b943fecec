package lode

import (
	"context"
	"errors"
	"testing"

	"github.com/justapithecus/lode/lode"

	"github.com/justapithecus/contribuart/metrics"
)

// sharedFactory returns a StoreFactory that always returns the given store.
// This allows write and read datasets to share the same in-memory state.
func sharedFactory(store lode.Store) lode.StoreFactory {
	return func() (lode.Store, error) { return store, nil }
}

func commitRecords(runID string, n int) []CommitRecord {
	out := make([]CommitRecord, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, CommitRecord{
			RunID:     runID,
			Owner:     "octocat",
			Repo:      "art",
			Day:       "2026-02-03",
			Date:      "2024-03-05",
			Seq:       i,
			Count:     n,
			CommitSHA: runID + "-c" + string(rune('0'+i)),
			TreeSHA:   runID + "-t" + string(rune('0'+i)),
			Ts:        "2026-02-03T10:00:00Z",
		})
	}
	return out
}

func TestJournal_WriteAndQueryCommits(t *testing.T) {
	factory := sharedFactory(lode.NewMemory())
	j, err := NewJournal(factory)
	if err != nil {
		t.Fatalf("NewJournal: %v", err)
	}

	if err := j.WriteCommits(t.Context(), commitRecords("run-1", 3)); err != nil {
		t.Fatalf("WriteCommits: %v", err)
	}
	if err := j.WriteCommits(t.Context(), commitRecords("run-10", 2)); err != nil {
		t.Fatalf("WriteCommits: %v", err)
	}

	got, err := QueryCommits(t.Context(), j.Dataset(), "run-1")
	if err != nil {
		t.Fatalf("QueryCommits: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d commits, want 3 (run-10 must not match run-1)", len(got))
	}
	for i, c := range got {
		if c.Seq != i+1 || c.Count != 3 || c.Date != "2024-03-05" {
			t.Errorf("commit %d = %+v", i, c)
		}
	}
}

func TestJournal_WriteCommitsEmptyIsNoop(t *testing.T) {
	j, err := NewJournal(lode.NewMemoryFactory())
	if err != nil {
		t.Fatalf("NewJournal: %v", err)
	}
	if err := j.WriteCommits(t.Context(), nil); err != nil {
		t.Errorf("WriteCommits(nil) = %v", err)
	}
}

func TestQueryRuns_NewestFirstAndFiltered(t *testing.T) {
	factory := sharedFactory(lode.NewMemory())
	j, err := NewJournal(factory)
	if err != nil {
		t.Fatalf("NewJournal: %v", err)
	}

	runs := []RunRecord{
		{RunID: "run-a", Owner: "octocat", Repo: "art", Day: "2026-02-01", Mode: "transactional",
			Outcome: "completed", Progress: 21, Total: 21, StartedAt: "2026-02-01T09:00:00Z"},
		{RunID: "run-b", Owner: "octocat", Repo: "art", Day: "2026-02-02", Mode: "incremental",
			Outcome: "cancelled", Progress: 4, Total: 10, StartedAt: "2026-02-02T09:00:00Z", RefUpdates: 1},
		{RunID: "run-c", Owner: "octocat", Repo: "other", Day: "2026-02-03", Mode: "incremental",
			Outcome: "failed", StartedAt: "2026-02-03T09:00:00Z"},
	}
	for _, r := range runs {
		if err := j.WriteRun(t.Context(), r); err != nil {
			t.Fatalf("WriteRun %s: %v", r.RunID, err)
		}
	}
	// Commit records must not leak into run queries.
	if err := j.WriteCommits(t.Context(), commitRecords("run-a", 1)); err != nil {
		t.Fatalf("WriteCommits: %v", err)
	}

	// Read through an independent dataset over the same store.
	ds, err := newDataset(factory)
	if err != nil {
		t.Fatalf("newDataset: %v", err)
	}

	got, err := QueryRuns(t.Context(), ds, "octocat", "art")
	if err != nil {
		t.Fatalf("QueryRuns: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d runs, want 2: %+v", len(got), got)
	}
	if got[0].RunID != "run-b" || got[1].RunID != "run-a" {
		t.Errorf("order = %s, %s; want run-b, run-a", got[0].RunID, got[1].RunID)
	}
	if got[0].Progress != 4 || got[0].Total != 10 || got[0].RefUpdates != 1 || got[0].Outcome != "cancelled" {
		t.Errorf("decoded run = %+v", got[0])
	}

	all, err := QueryRuns(t.Context(), ds, "", "")
	if err != nil {
		t.Fatalf("QueryRuns all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d runs without filters, want 3", len(all))
	}
}

func TestNewReadDatasetFS(t *testing.T) {
	dir := t.TempDir()
	j, err := NewJournalFS(dir)
	if err != nil {
		t.Fatalf("NewJournalFS: %v", err)
	}
	if err := j.WriteRun(t.Context(), RunRecord{RunID: "run-fs", Owner: "o", Repo: "r", Day: "2026-02-03",
		Outcome: "completed", StartedAt: "2026-02-03T00:00:00Z"}); err != nil {
		t.Fatalf("WriteRun: %v", err)
	}

	ds, err := NewReadDatasetFS(dir)
	if err != nil {
		t.Fatalf("NewReadDatasetFS: %v", err)
	}
	if ds.ID() != Dataset {
		t.Errorf("Dataset ID = %q, want %q", ds.ID(), Dataset)
	}
	runs, err := QueryRuns(t.Context(), ds, "o", "r")
	if err != nil {
		t.Fatalf("QueryRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != "run-fs" {
		t.Errorf("runs = %+v", runs)
	}
}

type failingWriter struct{ err error }

func (f failingWriter) WriteCommits(context.Context, []CommitRecord) error { return f.err }
func (f failingWriter) WriteRun(context.Context, RunRecord) error          { return f.err }

func TestInstrumentedWriter(t *testing.T) {
	c := metrics.NewCollector("memory", "")

	ok, err := NewJournal(lode.NewMemoryFactory())
	if err != nil {
		t.Fatalf("NewJournal: %v", err)
	}
	w := NewInstrumentedWriter(ok, c)
	_ = w.WriteCommits(t.Context(), commitRecords("run-1", 2))
	_ = w.WriteRun(t.Context(), RunRecord{RunID: "run-1", Owner: "o", Repo: "r", Day: "2026-02-03"})

	boom := errors.New("disk full")
	bad := NewInstrumentedWriter(failingWriter{err: boom}, c)
	if err := bad.WriteRun(t.Context(), RunRecord{}); !errors.Is(err, boom) {
		t.Errorf("error not propagated: %v", err)
	}

	s := c.Snapshot()
	if s.JournalWriteSuccess != 2 || s.JournalWriteFailure != 1 {
		t.Errorf("success/failure = %d/%d, want 2/1", s.JournalWriteSuccess, s.JournalWriteFailure)
	}
}

func TestSummarize(t *testing.T) {
	runs := []RunRecord{
		{RunID: "a", Outcome: "completed", Progress: 6, RefUpdates: 1},
		{RunID: "b", Outcome: "cancelled", Progress: 2},
		{RunID: "c", Outcome: "failed", Progress: 3, RefUpdates: 1},
		{RunID: "d", Outcome: "completed", Progress: 4, RefUpdates: 2},
	}

	s := Summarize(runs)
	want := RunSummary{Total: 4, Completed: 2, Cancelled: 1, Failed: 1, Commits: 15, RefUpdates: 4}
	if *s != want {
		t.Errorf("Summarize = %+v, want %+v", *s, want)
	}

	if empty := Summarize(nil); empty.Total != 0 {
		t.Errorf("empty Total = %d, want 0", empty.Total)
	}
}
