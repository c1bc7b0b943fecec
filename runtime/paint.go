// Package runtime drives a paint end-to-end.
//
// The PaintOrchestrator resolves the branch, walks the plan in caller order
// building one commit at a time, hands cell boundaries to the branch policy
// and reports every step to a ProgressSink. Exactly one terminal event
// (done=true) ends every paint that started running.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/justapithecus/contribuart/adapter"
	"github.com/justapithecus/contribuart/chain"
	"github.com/justapithecus/contribuart/lode"
	"github.com/justapithecus/contribuart/log"
	"github.com/justapithecus/contribuart/metrics"
	"github.com/justapithecus/contribuart/plan"
	"github.com/justapithecus/contribuart/policy"
	"github.com/justapithecus/contribuart/retry"
	"github.com/justapithecus/contribuart/types"
)

// sideEffectTimeout bounds journal writes and notifications after a paint.
const sideEffectTimeout = 10 * time.Second

// PaintConfig configures a single paint.
type PaintConfig struct {
	// Meta is the run identity. Use NewPaintMeta to derive it from Request.
	Meta *types.PaintMeta
	// Request is the validated paint request.
	Request *types.PaintRequest
	// Identity is the author of every commit.
	Identity types.Identity
	// Remote is the Git Data API.
	Remote chain.Remote
	// Branches are the ref candidates tried in order (default heads/main,
	// heads/master).
	Branches []string
	// ForceUpdate allows non-fast-forward ref updates.
	ForceUpdate bool
	// Retry configures remote call retries (default 3 attempts, 1s base).
	Retry retry.Config
	// Sink receives progress events (required).
	Sink ProgressSink
	// Policy overrides the branch policy derived from Meta.Mode (for tests).
	Policy policy.Policy
	// Journal, if set, records commits and the run outcome.
	Journal lode.Writer
	// Notifier, if set, receives a completion event after every terminal state.
	Notifier adapter.Adapter
	// Collector records process metrics. Nil disables metrics.
	Collector *metrics.Collector
	// Logger overrides the default paint logger.
	Logger *log.Logger
	// Clock overrides time.Now.
	Clock func() time.Time
}

// PaintResult is the result of a paint.
type PaintResult struct {
	Meta    *types.PaintMeta
	Outcome *types.PaintOutcome
	// Progress is the number of commits created.
	Progress int
	// Total is the number of commits planned.
	Total int
	// Head is the chain state at the end of the paint. The branch ref may
	// not point at it (cancelled, failed, or transactional without Finish).
	Head        types.ChainState
	PolicyStats policy.Stats
	Duration    time.Duration
}

// PaintOrchestrator orchestrates a single paint.
type PaintOrchestrator struct {
	config *PaintConfig
	plan   *plan.Plan
	policy policy.Policy
	logger *log.Logger
	now    func() time.Time

	mu    sync.Mutex
	state State

	startTime time.Time
	progress  int
	sinkErr   error
}

// NewPaintMeta derives run metadata for req with a fresh run ID.
func NewPaintMeta(req *types.PaintRequest) *types.PaintMeta {
	return &types.PaintMeta{
		RunID: uuid.NewString(),
		Owner: req.Owner,
		Repo:  req.Repo,
		Mode:  req.Mode(),
	}
}

// NewPaintOrchestrator validates the paint and builds its plan.
// Errors wrap types.ErrInvalidRequest or plan.ErrNothingToPaint; no remote
// call has been made when they are returned.
func NewPaintOrchestrator(config *PaintConfig) (*PaintOrchestrator, error) {
	if config.Request == nil {
		return nil, fmt.Errorf("%w: missing request", types.ErrInvalidRequest)
	}
	p, err := plan.ForRequest(config.Request)
	if err != nil {
		return nil, err
	}
	if config.Meta == nil {
		config.Meta = NewPaintMeta(config.Request)
	}
	if err := config.Meta.Validate(); err != nil {
		return nil, fmt.Errorf("invalid paint metadata: %w", err)
	}
	if config.Remote == nil || config.Sink == nil {
		return nil, errors.New("paint requires a remote and a progress sink")
	}
	if len(config.Branches) == 0 {
		config.Branches = chain.DefaultBranches
	}
	if config.Retry.MaxAttempts == 0 {
		config.Retry = retry.DefaultConfig()
	}

	logger := config.Logger
	if logger == nil {
		logger = log.NewLogger(config.Meta)
	}
	now := config.Clock
	if now == nil {
		now = time.Now
	}

	o := &PaintOrchestrator{
		config: config,
		plan:   p,
		logger: logger,
		now:    now,
		state:  StateInitializing,
	}
	o.config.Retry = o.instrumentRetry(config.Retry)

	pol := config.Policy
	if pol == nil {
		pub := &chain.RefPublisher{
			Remote: config.Remote,
			Owner:  config.Meta.Owner,
			Repo:   config.Meta.Repo,
			Force:  config.ForceUpdate,
			Retry:  o.config.Retry,
		}
		pol, err = policy.New(config.Meta.Mode, pub, logger)
		if err != nil {
			return nil, err
		}
	}
	o.policy = pol

	return o, nil
}

// Plan returns the commit plan.
func (o *PaintOrchestrator) Plan() *plan.Plan {
	return o.plan
}

// State returns the current lifecycle state.
func (o *PaintOrchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *PaintOrchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// instrumentRetry counts and logs every retried remote call.
func (o *PaintOrchestrator) instrumentRetry(cfg retry.Config) retry.Config {
	inner := cfg.OnRetry
	cfg.OnRetry = func(attempt int, delay time.Duration, err error) {
		o.config.Collector.IncRemoteRetry()
		o.logger.Warn("retrying remote call", map[string]any{
			"attempt": attempt,
			"delay":   delay.String(),
			"error":   err.Error(),
		})
		if inner != nil {
			inner(attempt, delay, err)
		}
	}
	return cfg
}

// Execute runs the paint to a terminal state.
//
// Execution flow:
//  1. Resolve the branch and its tip tree
//  2. For each cell in order: skip, or create its commits one at a time
//     (cancellation checked before every commit), then CellComplete
//  3. Finish the policy
//  4. Emit the terminal event, journal the run, notify
//
// Remote calls run on a context detached from ctx cancellation, so an
// in-flight call always completes; cancellation takes effect at the next
// commit boundary.
func (o *PaintOrchestrator) Execute(ctx context.Context) (*PaintResult, error) {
	o.startTime = o.now()
	o.setState(StateRunning)
	meta := o.config.Meta
	o.config.Collector.IncPaintStarted(string(meta.Mode))

	o.logger.Info("starting paint", map[string]any{
		"cells":  len(o.plan.Entries),
		"total":  o.plan.Total,
		"policy": string(o.policy.Name()),
	})

	remoteCtx := context.WithoutCancel(ctx)

	head, err := chain.Resolve(remoteCtx, o.config.Remote, meta.Owner, meta.Repo, o.config.Branches, o.config.Retry)
	if err != nil {
		return o.finish(ctx, head, o.failed(fmt.Errorf("resolve branch: %w", err))), nil
	}
	o.logger.Debug("resolved branch", map[string]any{
		"ref":  head.BranchRef,
		"head": head.HeadCommitSHA,
	})

	builder := chain.NewBuilder(o.config.Remote, meta.Owner, meta.Repo, o.config.Identity,
		chain.WithRetry(o.config.Retry), chain.WithClock(o.now))

	for _, entry := range o.plan.Entries {
		cell := entry.Cell
		if entry.Needed == 0 {
			o.config.Collector.IncCellSkipped()
			o.emit(types.ProgressEvent{
				Message:  SkipMessage(cell.Date, cell.ExistingCount, entry.Target),
				Progress: o.progress,
				Total:    o.plan.Total,
			})
			continue
		}

		records := make([]lode.CommitRecord, 0, entry.Needed)
		for seq := 1; seq <= entry.Needed; seq++ {
			if o.cancelled(ctx) {
				o.journalCommits(ctx, records)
				return o.finish(ctx, head, &types.PaintOutcome{
					Status:  types.OutcomeCancelled,
					Message: MessageCancelled,
				}), nil
			}

			next, err := builder.AddCommit(remoteCtx, head, cell.Date, seq, entry.Needed)
			if err != nil {
				o.journalCommits(ctx, records)
				return o.finish(ctx, head, o.failed(err)), nil
			}
			head = next
			o.progress++
			o.config.Collector.IncCommitCreated()
			records = append(records, o.commitRecord(cell.Date, seq, entry.Needed, head))

			o.emit(types.ProgressEvent{
				Message:  PaintedMessage(cell.Date, seq, entry.Needed),
				Progress: o.progress,
				Total:    o.plan.Total,
			})
		}
		o.journalCommits(ctx, records)

		if err := o.policy.CellComplete(remoteCtx, head); err != nil {
			return o.finish(ctx, head, o.failed(err)), nil
		}
	}

	if err := o.policy.Finish(remoteCtx, head); err != nil {
		return o.finish(ctx, head, o.failed(err)), nil
	}

	return o.finish(ctx, head, &types.PaintOutcome{
		Status:  types.OutcomeCompleted,
		Message: MessageCompleted,
	}), nil
}

// cancelled reports whether the caller went away, either through ctx or a
// failed sink write.
func (o *PaintOrchestrator) cancelled(ctx context.Context) bool {
	return ctx.Err() != nil || o.sinkErr != nil
}

func (o *PaintOrchestrator) failed(err error) *types.PaintOutcome {
	return &types.PaintOutcome{
		Status:  types.OutcomeFailed,
		Message: ErrorMessage(err),
		Err:     err,
	}
}

// emit sends an event. The first sink failure is remembered and treated as
// cancellation at the next commit boundary.
func (o *PaintOrchestrator) emit(event types.ProgressEvent) {
	if err := o.config.Sink.Send(event); err != nil && o.sinkErr == nil {
		o.sinkErr = err
		o.logger.Warn("progress sink failed", map[string]any{
			"error": err.Error(),
		})
	}
}

// finish records the outcome, emits the terminal event and runs best-effort
// side effects.
func (o *PaintOrchestrator) finish(ctx context.Context, head types.ChainState, outcome *types.PaintOutcome) *PaintResult {
	result := &PaintResult{
		Meta:        o.config.Meta,
		Outcome:     outcome,
		Progress:    o.progress,
		Total:       o.plan.Total,
		Head:        head,
		PolicyStats: o.policy.Stats(),
		Duration:    o.now().Sub(o.startTime),
	}

	switch outcome.Status {
	case types.OutcomeCompleted:
		o.config.Collector.IncPaintCompleted()
	case types.OutcomeCancelled:
		o.config.Collector.IncPaintCancelled()
	default:
		o.config.Collector.IncPaintFailed()
	}
	o.config.Collector.AbsorbRefUpdates(result.PolicyStats.RefUpdates)

	progress := o.progress
	if outcome.Status == types.OutcomeCompleted {
		progress = o.plan.Total
	}
	o.emit(types.ProgressEvent{
		Message:  outcome.Message,
		Progress: progress,
		Total:    o.plan.Total,
		Done:     true,
	})
	o.setState(stateFor(outcome.Status))

	fields := map[string]any{
		"outcome":     string(outcome.Status),
		"progress":    result.Progress,
		"total":       result.Total,
		"ref_updates": result.PolicyStats.RefUpdates,
		"duration":    result.Duration.String(),
	}
	if outcome.Err != nil {
		fields["error"] = outcome.Err.Error()
		o.logger.Error("paint failed", fields)
	} else {
		o.logger.Info("paint finished", fields)
	}

	o.journalRun(ctx, result)
	o.notify(ctx, result)
	return result
}

func (o *PaintOrchestrator) commitRecord(date string, seq, count int, head types.ChainState) lode.CommitRecord {
	return lode.CommitRecord{
		RunID:     o.config.Meta.RunID,
		Owner:     o.config.Meta.Owner,
		Repo:      o.config.Meta.Repo,
		Day:       lode.DeriveDay(o.startTime),
		Date:      date,
		Seq:       seq,
		Count:     count,
		CommitSHA: head.HeadCommitSHA,
		TreeSHA:   head.HeadTreeSHA,
		Ts:        o.now().UTC().Format(time.RFC3339Nano),
	}
}

// journalCommits writes a cell's commit records. Failures are logged only.
func (o *PaintOrchestrator) journalCommits(ctx context.Context, records []lode.CommitRecord) {
	if o.config.Journal == nil || len(records) == 0 {
		return
	}
	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	if err := o.config.Journal.WriteCommits(jctx, records); err != nil {
		o.logger.Warn("journal commit write failed (best effort)", map[string]any{
			"records": len(records),
			"error":   err.Error(),
		})
	}
}

func (o *PaintOrchestrator) journalRun(ctx context.Context, result *PaintResult) {
	if o.config.Journal == nil {
		return
	}
	record := lode.RunRecord{
		RunID:      result.Meta.RunID,
		Owner:      result.Meta.Owner,
		Repo:       result.Meta.Repo,
		Day:        lode.DeriveDay(o.startTime),
		Mode:       string(result.Meta.Mode),
		Outcome:    string(result.Outcome.Status),
		Message:    result.Outcome.Message,
		Progress:   int64(result.Progress),
		Total:      int64(result.Total),
		Branch:     result.Head.BranchRef,
		HeadSHA:    result.Head.HeadCommitSHA,
		RefUpdates: result.PolicyStats.RefUpdates,
		StartedAt:  o.startTime.UTC().Format(time.RFC3339Nano),
		DurationMs: result.Duration.Milliseconds(),
	}
	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	if err := o.config.Journal.WriteRun(jctx, record); err != nil {
		o.logger.Warn("journal run write failed (best effort)", map[string]any{
			"error": err.Error(),
		})
	}
}

func (o *PaintOrchestrator) notify(ctx context.Context, result *PaintResult) {
	if o.config.Notifier == nil {
		return
	}
	event := &adapter.PaintCompletedEvent{
		RunID:      result.Meta.RunID,
		Owner:      result.Meta.Owner,
		Repo:       result.Meta.Repo,
		Mode:       string(result.Meta.Mode),
		Outcome:    string(result.Outcome.Status),
		Message:    result.Outcome.Message,
		Progress:   result.Progress,
		Total:      result.Total,
		Branch:     result.Head.BranchRef,
		HeadSHA:    result.Head.HeadCommitSHA,
		DurationMs: result.Duration.Milliseconds(),
	}
	event.Stamp(o.now())

	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	if err := o.config.Notifier.Publish(nctx, event); err != nil {
		o.config.Collector.IncNotifyFailure()
		o.logger.Warn("completion notification failed (best effort)", map[string]any{
			"error": err.Error(),
		})
	}
}
