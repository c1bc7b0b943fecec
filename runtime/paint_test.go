package runtime_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	lodelib "github.com/justapithecus/lode/lode"

	"github.com/justapithecus/contribuart/adapter"
	"github.com/justapithecus/contribuart/lode"
	"github.com/justapithecus/contribuart/log"
	"github.com/justapithecus/contribuart/memremote"
	"github.com/justapithecus/contribuart/metrics"
	"github.com/justapithecus/contribuart/plan"
	"github.com/justapithecus/contribuart/retry"
	"github.com/justapithecus/contribuart/runtime"
	"github.com/justapithecus/contribuart/types"
)

func noSleep(context.Context, time.Duration) error { return nil }

func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 3, BaseDelay: time.Second, Sleep: noSleep}
}

// threeCells needs 5, 0 and 1 commits.
func threeCells(incremental bool) *types.PaintRequest {
	return &types.PaintRequest{
		Owner: "octocat",
		Repo:  "art",
		Cells: []types.PaintCell{
			{Date: "2024-03-05", Intensity: 2},
			{Date: "2024-03-06", Intensity: 4, ExistingCount: 15},
			{Date: "2024-03-07", Intensity: 1},
		},
		Incremental: incremental,
	}
}

type recordingAdapter struct {
	mu     sync.Mutex
	events []*adapter.PaintCompletedEvent
	err    error
}

func (a *recordingAdapter) Publish(_ context.Context, event *adapter.PaintCompletedEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
	return a.err
}

func (a *recordingAdapter) Close() error { return nil }

func newOrchestrator(t *testing.T, cfg *runtime.PaintConfig) *runtime.PaintOrchestrator {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = log.Nop()
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = fastRetry()
	}
	if cfg.Identity.Login == "" {
		cfg.Identity = types.Identity{Login: "octocat", Name: "Octo Cat", Email: "octocat@example.com"}
	}
	o, err := runtime.NewPaintOrchestrator(cfg)
	if err != nil {
		t.Fatalf("NewPaintOrchestrator: %v", err)
	}
	return o
}

func countDone(events []types.ProgressEvent) int {
	n := 0
	for _, e := range events {
		if e.Done {
			n++
		}
	}
	return n
}

func TestExecute_TransactionalCompletes(t *testing.T) {
	remote, root := memremote.NewWithBranch("heads/main")
	sink := &runtime.RecordingSink{}
	collector := metrics.NewCollector("", "")
	o := newOrchestrator(t, &runtime.PaintConfig{
		Request:   threeCells(false),
		Remote:    remote,
		Sink:      sink,
		Collector: collector,
	})

	result, err := o.Execute(t.Context())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Outcome.Status != types.OutcomeCompleted {
		t.Fatalf("outcome = %s (%v), want completed", result.Outcome.Status, result.Outcome.Err)
	}
	if o.State() != runtime.StateCompleted {
		t.Errorf("state = %s, want completed", o.State())
	}
	if got := remote.Count(memremote.OpCreateCommit); got != 6 {
		t.Errorf("commits created = %d, want 6", got)
	}
	if got := remote.Count(memremote.OpUpdateRef); got != 1 {
		t.Errorf("ref updates = %d, want 1", got)
	}
	head := remote.RefSHA("heads/main")
	if head != result.Head.HeadCommitSHA {
		t.Errorf("branch = %s, want head %s", head, result.Head.HeadCommitSHA)
	}
	ancestry := remote.Ancestry(head)
	if len(ancestry) != 7 || ancestry[6] != root {
		t.Errorf("ancestry = %v, want 6 commits on top of root", ancestry)
	}

	events := sink.Events()
	wantMessages := []string{
		"Painted 2024-03-05 (1/5)",
		"Painted 2024-03-05 (2/5)",
		"Painted 2024-03-05 (3/5)",
		"Painted 2024-03-05 (4/5)",
		"Painted 2024-03-05 (5/5)",
		"Skipped 2024-03-06 (already at 15 commits, target: 15)",
		"Painted 2024-03-07 (1/1)",
		runtime.MessageCompleted,
	}
	if len(events) != len(wantMessages) {
		t.Fatalf("got %d events, want %d: %+v", len(events), len(wantMessages), events)
	}
	for i, want := range wantMessages {
		if events[i].Message != want {
			t.Errorf("event %d message = %q, want %q", i, events[i].Message, want)
		}
		if events[i].Total != 6 {
			t.Errorf("event %d total = %d, want 6", i, events[i].Total)
		}
	}
	for i := 1; i < len(events); i++ {
		if events[i].Progress < events[i-1].Progress {
			t.Errorf("progress decreased at event %d", i)
		}
	}
	last := events[len(events)-1]
	if !last.Done || last.Progress != 6 {
		t.Errorf("terminal event = %+v, want done with progress 6", last)
	}
	if countDone(events) != 1 {
		t.Errorf("done events = %d, want 1", countDone(events))
	}

	snap := collector.Snapshot()
	if snap.CommitsCreated != 6 || snap.CellsSkipped != 1 || snap.RefUpdates != 1 || snap.PaintsCompleted != 1 {
		t.Errorf("metrics = %+v", snap)
	}
	if snap.PaintsByMode["transactional"] != 1 {
		t.Errorf("paints_by_mode = %v", snap.PaintsByMode)
	}
}

func TestExecute_FullIntensityDay(t *testing.T) {
	for _, mode := range []types.PaintMode{types.ModeTransactional, types.ModeIncremental} {
		incremental := mode == types.ModeIncremental
		t.Run(string(mode), func(t *testing.T) {
			remote, _ := memremote.NewWithBranch("heads/main")
			sink := &runtime.RecordingSink{}
			o := newOrchestrator(t, &runtime.PaintConfig{
				Request: &types.PaintRequest{
					Owner:       "octocat",
					Repo:        "art",
					Cells:       []types.PaintCell{{Date: "2024-01-01", Intensity: 4}},
					Incremental: incremental,
				},
				Remote: remote,
				Sink:   sink,
			})
			if total := o.Plan().Total; total != 15 {
				t.Fatalf("plan total = %d, want 15", total)
			}

			result, err := o.Execute(t.Context())
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if result.Outcome.Status != types.OutcomeCompleted {
				t.Fatalf("outcome = %s (%v), want completed", result.Outcome.Status, result.Outcome.Err)
			}

			events := sink.Events()
			if len(events) != 16 {
				t.Fatalf("got %d events, want 15 progress events and a terminal one", len(events))
			}
			// Progress increments across non-terminal events add up to the plan total.
			sum, prev := 0, 0
			for i, e := range events[:15] {
				if e.Done {
					t.Fatalf("event %d is terminal: %+v", i, e)
				}
				if e.Progress != i+1 || e.Total != 15 {
					t.Errorf("event %d = %d/%d, want %d/15", i, e.Progress, e.Total, i+1)
				}
				sum += e.Progress - prev
				prev = e.Progress
			}
			if sum != 15 {
				t.Errorf("progress increments sum to %d, want 15", sum)
			}
			last := events[15]
			if !last.Done || last.Progress != 15 || last.Total != 15 || last.Message != runtime.MessageCompleted {
				t.Errorf("terminal event = %+v", last)
			}
			if got := remote.Count(memremote.OpUpdateRef); got != 1 {
				t.Errorf("ref updates = %d, want 1 for a single cell", got)
			}
		})
	}
}

func TestExecute_CommitFilesAndDates(t *testing.T) {
	remote, _ := memremote.NewWithBranch("heads/main")
	o := newOrchestrator(t, &runtime.PaintConfig{
		Request: threeCells(false),
		Remote:  remote,
		Sink:    &runtime.RecordingSink{},
	})
	result, err := o.Execute(t.Context())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	files := remote.TreeFiles(result.Head.HeadTreeSHA)
	for _, path := range []string{
		".contribuart/20240305_0.txt",
		".contribuart/20240305_4.txt",
		".contribuart/20240307_0.txt",
	} {
		if _, ok := files[path]; !ok {
			t.Errorf("tree missing %s", path)
		}
	}
	if _, ok := files[".contribuart/20240306_0.txt"]; ok {
		t.Error("skipped cell has a file")
	}

	c, ok := remote.Commit(result.Head.HeadCommitSHA)
	if !ok {
		t.Fatal("head commit not found")
	}
	if got := c.Spec.Author.Date.UTC().Format(time.RFC3339); got != "2024-03-07T12:00:00Z" {
		t.Errorf("author date = %s, want 2024-03-07T12:00:00Z", got)
	}
}

func TestExecute_IncrementalUpdatesPerCell(t *testing.T) {
	remote, _ := memremote.NewWithBranch("heads/main")
	o := newOrchestrator(t, &runtime.PaintConfig{
		Request: threeCells(true),
		Remote:  remote,
		Sink:    &runtime.RecordingSink{},
	})

	result, err := o.Execute(t.Context())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Outcome.Status != types.OutcomeCompleted {
		t.Fatalf("outcome = %s", result.Outcome.Status)
	}
	if got := remote.Count(memremote.OpUpdateRef); got != 2 {
		t.Errorf("ref updates = %d, want 2 (one per painted cell)", got)
	}
	if result.PolicyStats.RefUpdates != 2 {
		t.Errorf("policy ref updates = %d, want 2", result.PolicyStats.RefUpdates)
	}
	if remote.RefSHA("heads/main") != result.Head.HeadCommitSHA {
		t.Error("branch not at final head")
	}
}

func TestExecute_MasterFallback(t *testing.T) {
	remote, _ := memremote.NewWithBranch("heads/master")
	o := newOrchestrator(t, &runtime.PaintConfig{
		Request: threeCells(false),
		Remote:  remote,
		Sink:    &runtime.RecordingSink{},
	})

	result, err := o.Execute(t.Context())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Outcome.Status != types.OutcomeCompleted {
		t.Fatalf("outcome = %s (%v)", result.Outcome.Status, result.Outcome.Err)
	}
	if result.Head.BranchRef != "heads/master" {
		t.Errorf("branch = %s, want heads/master", result.Head.BranchRef)
	}
	if remote.RefSHA("heads/master") != result.Head.HeadCommitSHA {
		t.Error("master not advanced")
	}
}

func TestExecute_NoBranchFails(t *testing.T) {
	remote := memremote.New()
	sink := &runtime.RecordingSink{}
	o := newOrchestrator(t, &runtime.PaintConfig{
		Request: threeCells(false),
		Remote:  remote,
		Sink:    sink,
	})

	result, err := o.Execute(t.Context())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Outcome.Status != types.OutcomeFailed {
		t.Fatalf("outcome = %s, want failed", result.Outcome.Status)
	}
	events := sink.Events()
	if len(events) != 1 {
		t.Fatalf("got %d events, want only the terminal event", len(events))
	}
	if !events[0].Done || !events[0].IsError() || events[0].Progress != 0 {
		t.Errorf("terminal event = %+v", events[0])
	}
	if remote.Count(memremote.OpCreateCommit) != 0 {
		t.Error("commits created without a branch")
	}
	if runtime.ExitCode(result.Outcome) != runtime.ExitCodeFailed {
		t.Errorf("exit code = %d", runtime.ExitCode(result.Outcome))
	}
}

func TestExecute_CancelMidway(t *testing.T) {
	remote, root := memremote.NewWithBranch("heads/main")
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	painted := 0
	sink := &runtime.RecordingSink{
		OnSend: func(e types.ProgressEvent) {
			if strings.HasPrefix(e.Message, "Painted") {
				painted++
				if painted == 3 {
					cancel()
				}
			}
		},
	}
	o := newOrchestrator(t, &runtime.PaintConfig{
		Request: threeCells(false),
		Remote:  remote,
		Sink:    sink,
	})

	result, err := o.Execute(ctx)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Outcome.Status != types.OutcomeCancelled {
		t.Fatalf("outcome = %s, want cancelled", result.Outcome.Status)
	}
	if got := remote.Count(memremote.OpCreateCommit); got != 3 {
		t.Errorf("commits created = %d, want 3", got)
	}
	if got := remote.Count(memremote.OpUpdateRef); got != 0 {
		t.Errorf("ref updates = %d, want 0", got)
	}
	if remote.RefSHA("heads/main") != root {
		t.Error("transactional cancel moved the branch")
	}

	last, _ := sink.Last()
	if !last.Done || last.Message != runtime.MessageCancelled || last.Progress != 3 {
		t.Errorf("terminal event = %+v", last)
	}
	if o.State() != runtime.StateCancelled {
		t.Errorf("state = %s", o.State())
	}
	if runtime.ExitCode(result.Outcome) != runtime.ExitCodeCancelled {
		t.Errorf("exit code = %d", runtime.ExitCode(result.Outcome))
	}
}

func TestExecute_IncrementalCancelKeepsPublishedCells(t *testing.T) {
	remote, _ := memremote.NewWithBranch("heads/main")
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	req := threeCells(true)
	sink := &runtime.RecordingSink{
		OnSend: func(e types.ProgressEvent) {
			if strings.HasPrefix(e.Message, "Skipped") {
				cancel()
			}
		},
	}
	o := newOrchestrator(t, &runtime.PaintConfig{Request: req, Remote: remote, Sink: sink})

	result, err := o.Execute(ctx)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Outcome.Status != types.OutcomeCancelled {
		t.Fatalf("outcome = %s", result.Outcome.Status)
	}
	if got := remote.Count(memremote.OpCreateCommit); got != 5 {
		t.Errorf("commits = %d, want 5", got)
	}
	if got := len(remote.Ancestry(remote.RefSHA("heads/main"))); got != 6 {
		t.Errorf("branch depth = %d, want first cell published", got)
	}
}

func TestExecute_SinkFailureCancels(t *testing.T) {
	remote, _ := memremote.NewWithBranch("heads/main")
	sink := &runtime.RecordingSink{FailAfter: 2}
	o := newOrchestrator(t, &runtime.PaintConfig{
		Request: threeCells(false),
		Remote:  remote,
		Sink:    sink,
	})

	result, err := o.Execute(t.Context())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Outcome.Status != types.OutcomeCancelled {
		t.Fatalf("outcome = %s, want cancelled", result.Outcome.Status)
	}
	if got := remote.Count(memremote.OpCreateCommit); got != 3 {
		t.Errorf("commits created = %d, want 3", got)
	}
	if len(sink.Events()) != 2 {
		t.Errorf("accepted events = %d, want 2", len(sink.Events()))
	}
}

func TestExecute_RemoteFailure(t *testing.T) {
	remote, root := memremote.NewWithBranch("heads/main")
	remote.FailNext(memremote.OpCreateBlob, nil, nil, &memremote.Error{Code: http.StatusUnprocessableEntity, Message: "bad blob"})
	sink := &runtime.RecordingSink{}
	collector := metrics.NewCollector("", "")
	o := newOrchestrator(t, &runtime.PaintConfig{
		Request:   threeCells(false),
		Remote:    remote,
		Sink:      sink,
		Collector: collector,
	})

	result, err := o.Execute(t.Context())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Outcome.Status != types.OutcomeFailed {
		t.Fatalf("outcome = %s, want failed", result.Outcome.Status)
	}
	if result.Progress != 2 {
		t.Errorf("progress = %d, want 2", result.Progress)
	}
	last, _ := sink.Last()
	if !last.Done || !strings.HasPrefix(last.Message, "Error: create blob:") {
		t.Errorf("terminal event = %+v", last)
	}
	if remote.RefSHA("heads/main") != root {
		t.Error("failed transactional paint moved the branch")
	}
	if collector.Snapshot().PaintsFailed != 1 {
		t.Error("paints_failed not recorded")
	}
	if o.State() != runtime.StateFailed {
		t.Errorf("state = %s", o.State())
	}
}

func TestExecute_RetriesTransientErrors(t *testing.T) {
	remote, _ := memremote.NewWithBranch("heads/main")
	remote.FailNext(memremote.OpCreateCommit, &memremote.Error{Code: http.StatusBadGateway, Message: "bad gateway"})
	collector := metrics.NewCollector("", "")
	o := newOrchestrator(t, &runtime.PaintConfig{
		Request:   threeCells(false),
		Remote:    remote,
		Sink:      &runtime.RecordingSink{},
		Collector: collector,
	})

	result, err := o.Execute(t.Context())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Outcome.Status != types.OutcomeCompleted {
		t.Fatalf("outcome = %s (%v)", result.Outcome.Status, result.Outcome.Err)
	}
	if got := remote.Count(memremote.OpCreateCommit); got != 7 {
		t.Errorf("create commit calls = %d, want 7 (6 + 1 retry)", got)
	}
	if got := collector.Snapshot().RemoteRetries; got != 1 {
		t.Errorf("remote retries = %d, want 1", got)
	}
}

func TestExecute_RefUpdateFailure(t *testing.T) {
	remote, _ := memremote.NewWithBranch("heads/main")
	remote.FailNext(memremote.OpUpdateRef, &memremote.Error{Code: http.StatusUnprocessableEntity, Message: "Update is not a fast forward"})
	sink := &runtime.RecordingSink{}
	o := newOrchestrator(t, &runtime.PaintConfig{Request: threeCells(false), Remote: remote, Sink: sink})

	result, err := o.Execute(t.Context())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Outcome.Status != types.OutcomeFailed {
		t.Fatalf("outcome = %s", result.Outcome.Status)
	}
	last, _ := sink.Last()
	if !strings.Contains(last.Message, "update ref heads/main") {
		t.Errorf("terminal message = %q", last.Message)
	}
	if result.Progress != 6 || last.Progress != 6 {
		t.Errorf("progress = %d/%d, want all commits created", result.Progress, last.Progress)
	}
}

func TestExecute_JournalAndNotify(t *testing.T) {
	store := lodelib.NewMemory()
	j, err := lode.NewJournal(func() (lodelib.Store, error) { return store, nil })
	if err != nil {
		t.Fatalf("NewJournal: %v", err)
	}
	notifier := &recordingAdapter{}
	remote, _ := memremote.NewWithBranch("heads/main")
	o := newOrchestrator(t, &runtime.PaintConfig{
		Request:  threeCells(true),
		Remote:   remote,
		Sink:     &runtime.RecordingSink{},
		Journal:  j,
		Notifier: notifier,
	})

	result, err := o.Execute(t.Context())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	runs, err := lode.QueryRuns(t.Context(), j.Dataset(), "octocat", "art")
	if err != nil {
		t.Fatalf("QueryRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
	run := runs[0]
	if run.RunID != result.Meta.RunID || run.Outcome != "completed" || run.Progress != 6 || run.Mode != "incremental" {
		t.Errorf("run record = %+v", run)
	}
	if run.HeadSHA != result.Head.HeadCommitSHA || run.RefUpdates != 2 {
		t.Errorf("run record head = %s updates = %d", run.HeadSHA, run.RefUpdates)
	}

	commits, err := lode.QueryCommits(t.Context(), j.Dataset(), result.Meta.RunID)
	if err != nil {
		t.Fatalf("QueryCommits: %v", err)
	}
	if len(commits) != 6 {
		t.Errorf("commit records = %d, want 6", len(commits))
	}

	if len(notifier.events) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notifier.events))
	}
	ev := notifier.events[0]
	if ev.EventType != adapter.EventTypePaintCompleted || ev.Outcome != "completed" || ev.RunID != result.Meta.RunID {
		t.Errorf("event = %+v", ev)
	}
}

func TestExecute_NotifyFailureIsBestEffort(t *testing.T) {
	remote, _ := memremote.NewWithBranch("heads/main")
	collector := metrics.NewCollector("", "webhook")
	o := newOrchestrator(t, &runtime.PaintConfig{
		Request:   threeCells(false),
		Remote:    remote,
		Sink:      &runtime.RecordingSink{},
		Notifier:  &recordingAdapter{err: errors.New("connection refused")},
		Collector: collector,
	})

	result, err := o.Execute(t.Context())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Outcome.Status != types.OutcomeCompleted {
		t.Errorf("outcome = %s, want completed", result.Outcome.Status)
	}
	if collector.Snapshot().NotifyFailures != 1 {
		t.Error("notify failure not counted")
	}
}

func TestNewPaintOrchestrator_Rejects(t *testing.T) {
	remote, _ := memremote.NewWithBranch("heads/main")
	tests := []struct {
		name    string
		req     *types.PaintRequest
		wantErr error
	}{
		{
			name:    "missing owner",
			req:     &types.PaintRequest{Repo: "art", Cells: []types.PaintCell{{Date: "2024-03-05", Intensity: 1}}},
			wantErr: types.ErrInvalidRequest,
		},
		{
			name:    "no cells",
			req:     &types.PaintRequest{Owner: "o", Repo: "r"},
			wantErr: types.ErrInvalidRequest,
		},
		{
			name: "nothing to paint",
			req: &types.PaintRequest{Owner: "o", Repo: "r", Cells: []types.PaintCell{
				{Date: "2024-03-05", Intensity: 0},
				{Date: "2024-03-06", Intensity: 2, ExistingCount: 9},
			}},
			wantErr: plan.ErrNothingToPaint,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runtime.NewPaintOrchestrator(&runtime.PaintConfig{
				Request: tt.req,
				Remote:  remote,
				Sink:    &runtime.RecordingSink{},
				Logger:  log.Nop(),
			})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
	if len(remote.Calls()) != 0 {
		t.Error("validation made remote calls")
	}
}
