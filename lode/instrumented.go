package lode

import (
	"context"

	"github.com/justapithecus/contribuart/metrics"
)

// InstrumentedWriter wraps a Writer and counts journal write outcomes on a
// metrics collector. Counters are per call, not per record.
type InstrumentedWriter struct {
	inner     Writer
	collector *metrics.Collector
}

// NewInstrumentedWriter wraps a writer with metrics instrumentation.
func NewInstrumentedWriter(inner Writer, collector *metrics.Collector) *InstrumentedWriter {
	return &InstrumentedWriter{inner: inner, collector: collector}
}

// WriteCommits delegates to the inner writer and records success or failure.
func (w *InstrumentedWriter) WriteCommits(ctx context.Context, records []CommitRecord) error {
	err := w.inner.WriteCommits(ctx, records)
	w.record(err)
	return err
}

// WriteRun delegates to the inner writer and records success or failure.
func (w *InstrumentedWriter) WriteRun(ctx context.Context, record RunRecord) error {
	err := w.inner.WriteRun(ctx, record)
	w.record(err)
	return err
}

func (w *InstrumentedWriter) record(err error) {
	if err != nil {
		w.collector.IncJournalWriteFailure()
	} else {
		w.collector.IncJournalWriteSuccess()
	}
}

// Verify InstrumentedWriter implements Writer.
var _ Writer = (*InstrumentedWriter)(nil)
