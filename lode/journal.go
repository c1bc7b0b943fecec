// Package lode persists the paint journal to a Lode dataset.
//
// Records are JSONL, Hive-partitioned by owner/repo/day/run_id/record_kind,
// on the local filesystem or S3. The journal is an audit trail: callers
// treat write failures as non-fatal.
package lode

import (
	"context"
	"fmt"

	"github.com/justapithecus/lode/lode"
)

// Writer is the journal write contract used by the orchestrator.
type Writer interface {
	// WriteCommits persists a batch of commit records in order.
	WriteCommits(ctx context.Context, records []CommitRecord) error
	// WriteRun persists a terminal run record.
	WriteRun(ctx context.Context, record RunRecord) error
}

// Journal is a Lode-backed Writer.
type Journal struct {
	dataset lode.Dataset
}

// newDataset opens the journal dataset over factory. The write and read
// paths share this layout.
func newDataset(factory lode.StoreFactory) (lode.Dataset, error) {
	return lode.NewDataset(
		lode.DatasetID(Dataset),
		factory,
		lode.WithHiveLayout("owner", "repo", "day", "run_id", "record_kind"),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
}

// NewJournal creates a journal over a custom store factory.
// Use lode.NewMemoryFactory() for testing.
func NewJournal(factory lode.StoreFactory) (*Journal, error) {
	ds, err := newDataset(factory)
	if err != nil {
		return nil, WrapInitError(err, Dataset)
	}
	return &Journal{dataset: ds}, nil
}

// NewJournalFS creates a journal rooted at a local directory.
func NewJournalFS(root string) (*Journal, error) {
	return NewJournal(lode.NewFSFactory(root))
}

// NewJournalS3 creates a journal in an S3 bucket.
// Uses the AWS SDK default credential chain.
func NewJournalS3(ctx context.Context, s3cfg S3Config) (*Journal, error) {
	factory, err := newS3Factory(ctx, s3cfg)
	if err != nil {
		return nil, err
	}
	return NewJournal(factory)
}

// Dataset returns the underlying dataset for queries.
func (j *Journal) Dataset() lode.Dataset {
	return j.dataset
}

// WriteCommits implements Writer.
func (j *Journal) WriteCommits(ctx context.Context, records []CommitRecord) error {
	if len(records) == 0 {
		return nil
	}
	data := make([]any, 0, len(records))
	for _, r := range records {
		data = append(data, r.toMap())
	}
	if _, err := j.dataset.Write(ctx, data, lode.Metadata{}); err != nil {
		first := records[0]
		return WrapWriteError(err, fmt.Sprintf("%s/%s/%s/%s", first.Owner, first.Repo, first.RunID, RecordKindCommit))
	}
	return nil
}

// WriteRun implements Writer.
func (j *Journal) WriteRun(ctx context.Context, record RunRecord) error {
	if _, err := j.dataset.Write(ctx, []any{record.toMap()}, lode.Metadata{}); err != nil {
		return WrapWriteError(err, fmt.Sprintf("%s/%s/%s/%s", record.Owner, record.Repo, record.RunID, RecordKindRun))
	}
	return nil
}

// Verify Journal implements Writer.
var _ Writer = (*Journal)(nil)
