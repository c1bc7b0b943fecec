// Package metrics provides process-wide paint counters.
//
// The Collector accumulates counters across all paints served by a process.
// It is a leaf package with no internal dependencies. Ref update counts are
// absorbed from policy stats when a paint ends rather than recorded live.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
type Snapshot struct {
	// Paint lifecycle
	PaintsStarted   int64            `json:"paints_started"`
	PaintsCompleted int64            `json:"paints_completed"`
	PaintsCancelled int64            `json:"paints_cancelled"`
	PaintsFailed    int64            `json:"paints_failed"`
	PaintsByMode    map[string]int64 `json:"paints_by_mode"`

	// Remote
	CommitsCreated int64 `json:"commits_created"`
	CellsSkipped   int64 `json:"cells_skipped"`
	RefUpdates     int64 `json:"ref_updates"`
	RemoteRetries  int64 `json:"remote_retries"`

	// Journal / notifications
	JournalWriteSuccess int64 `json:"journal_write_success"`
	JournalWriteFailure int64 `json:"journal_write_failure"`
	NotifyFailures      int64 `json:"notify_failures"`

	// Dimensions (informational, set at construction)
	JournalBackend string `json:"journal_backend"`
	Adapter        string `json:"adapter"`
}

// Collector accumulates counters. Thread-safe via sync.Mutex.
// All methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	paintsStarted   int64
	paintsCompleted int64
	paintsCancelled int64
	paintsFailed    int64
	paintsByMode    map[string]int64

	commitsCreated int64
	cellsSkipped   int64
	refUpdates     int64
	remoteRetries  int64

	journalWriteSuccess int64
	journalWriteFailure int64
	notifyFailures      int64

	journalBackend string
	adapter        string
}

// NewCollector creates a Collector with dimension labels. Empty labels
// mean the component is disabled.
func NewCollector(journalBackend, adapter string) *Collector {
	return &Collector{
		paintsByMode:   make(map[string]int64),
		journalBackend: journalBackend,
		adapter:        adapter,
	}
}

func (c *Collector) add(field *int64, n int64) {
	c.mu.Lock()
	*field += n
	c.mu.Unlock()
}

// --- Paint lifecycle ---

// IncPaintStarted records a paint start in the given mode.
func (c *Collector) IncPaintStarted(mode string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.paintsStarted++
	c.paintsByMode[mode]++
	c.mu.Unlock()
}

// IncPaintCompleted records a completed paint.
func (c *Collector) IncPaintCompleted() {
	if c == nil {
		return
	}
	c.add(&c.paintsCompleted, 1)
}

// IncPaintCancelled records a paint cancelled by the client.
func (c *Collector) IncPaintCancelled() {
	if c == nil {
		return
	}
	c.add(&c.paintsCancelled, 1)
}

// IncPaintFailed records a paint that ended with an error.
func (c *Collector) IncPaintFailed() {
	if c == nil {
		return
	}
	c.add(&c.paintsFailed, 1)
}

// --- Remote ---

// IncCommitCreated records one commit object created on the remote.
func (c *Collector) IncCommitCreated() {
	if c == nil {
		return
	}
	c.add(&c.commitsCreated, 1)
}

// IncCellSkipped records a cell that needed no commits.
func (c *Collector) IncCellSkipped() {
	if c == nil {
		return
	}
	c.add(&c.cellsSkipped, 1)
}

// IncRemoteRetry records a retried remote call.
func (c *Collector) IncRemoteRetry() {
	if c == nil {
		return
	}
	c.add(&c.remoteRetries, 1)
}

// AbsorbRefUpdates adds the ref updates a paint's policy performed.
func (c *Collector) AbsorbRefUpdates(n int64) {
	if c == nil {
		return
	}
	c.add(&c.refUpdates, n)
}

// --- Journal / notifications ---

// IncJournalWriteSuccess records a successful journal write (per call).
func (c *Collector) IncJournalWriteSuccess() {
	if c == nil {
		return
	}
	c.add(&c.journalWriteSuccess, 1)
}

// IncJournalWriteFailure records a failed journal write (per call).
func (c *Collector) IncJournalWriteFailure() {
	if c == nil {
		return
	}
	c.add(&c.journalWriteFailure, 1)
}

// IncNotifyFailure records a failed completion notification.
func (c *Collector) IncNotifyFailure() {
	if c == nil {
		return
	}
	c.add(&c.notifyFailures, 1)
}

// --- Snapshot ---

// Snapshot returns a point-in-time copy of all counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{PaintsByMode: map[string]int64{}}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	byMode := make(map[string]int64, len(c.paintsByMode))
	for k, v := range c.paintsByMode {
		byMode[k] = v
	}

	return Snapshot{
		PaintsStarted:   c.paintsStarted,
		PaintsCompleted: c.paintsCompleted,
		PaintsCancelled: c.paintsCancelled,
		PaintsFailed:    c.paintsFailed,
		PaintsByMode:    byMode,

		CommitsCreated: c.commitsCreated,
		CellsSkipped:   c.cellsSkipped,
		RefUpdates:     c.refUpdates,
		RemoteRetries:  c.remoteRetries,

		JournalWriteSuccess: c.journalWriteSuccess,
		JournalWriteFailure: c.journalWriteFailure,
		NotifyFailures:      c.notifyFailures,

		JournalBackend: c.journalBackend,
		Adapter:        c.adapter,
	}
}
