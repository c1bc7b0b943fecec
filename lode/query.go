package lode

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/justapithecus/lode/lode"

	"github.com/justapithecus/contribuart/types"
)

// NewReadDatasetFS opens the journal dataset on a local directory for reads.
func NewReadDatasetFS(rootPath string) (lode.Dataset, error) {
	return newDataset(lode.NewFSFactory(rootPath))
}

// NewReadDatasetS3 opens the journal dataset in S3 for reads.
func NewReadDatasetS3(ctx context.Context, s3cfg S3Config) (lode.Dataset, error) {
	factory, err := newS3Factory(ctx, s3cfg)
	if err != nil {
		return nil, err
	}
	return newDataset(factory)
}

// QueryRuns returns run records for owner/repo, newest first.
// Empty owner or repo matches everything.
func QueryRuns(ctx context.Context, ds lode.Dataset, owner, repo string) ([]RunRecord, error) {
	items, err := readKind(ctx, ds, RecordKindRun, map[string]string{"owner": owner, "repo": repo})
	if err != nil {
		return nil, err
	}

	runs := make([]RunRecord, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, m := range items {
		rec := runRecordFromMap(m)
		if owner != "" && rec.Owner != owner {
			continue
		}
		if repo != "" && rec.Repo != repo {
			continue
		}
		// Snapshots may carry earlier records again.
		if _, dup := seen[rec.RunID]; dup {
			continue
		}
		seen[rec.RunID] = struct{}{}
		runs = append(runs, rec)
	}
	// RFC3339 timestamps sort lexically.
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt > runs[j].StartedAt
	})
	return runs, nil
}

// QueryCommits returns the commit records of one run in creation order.
func QueryCommits(ctx context.Context, ds lode.Dataset, runID string) ([]CommitRecord, error) {
	items, err := readKind(ctx, ds, RecordKindCommit, map[string]string{"run_id": runID})
	if err != nil {
		return nil, err
	}

	commits := make([]CommitRecord, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, m := range items {
		rec := commitRecordFromMap(m)
		if rec.RunID != runID {
			continue
		}
		if _, dup := seen[rec.CommitSHA]; dup {
			continue
		}
		seen[rec.CommitSHA] = struct{}{}
		commits = append(commits, rec)
	}
	return commits, nil
}

// readKind reads every record of kind from snapshots whose manifest matches
// filters. Manifest paths are a coarse pre-filter; callers re-check record
// fields.
func readKind(ctx context.Context, ds lode.Dataset, kind string, filters map[string]string) ([]map[string]any, error) {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return nil, WrapReadError(err, Dataset+"/snapshots")
	}

	var out []map[string]any
	for _, snap := range snapshots {
		if !snapshotMatchesFilter(snap, "record_kind", kind) {
			continue
		}
		matched := true
		for key, value := range filters {
			if !snapshotMatchesFilter(snap, key, value) {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}

		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return nil, WrapReadError(err, fmt.Sprintf("%s/snapshot/%s", Dataset, snap.ID))
		}
		for _, item := range data {
			record, ok := item.(map[string]any)
			if !ok || record["record_kind"] != kind {
				continue
			}
			out = append(out, record)
		}
	}
	return out, nil
}

// snapshotMatchesFilter checks if a snapshot's file paths contain the
// key=value partition. An empty value matches everything.
func snapshotMatchesFilter(snap *lode.DatasetSnapshot, key, value string) bool {
	if value == "" {
		return true
	}
	for _, f := range snap.Manifest.Files {
		if matchesPartitionValue(f.Path, key, value) {
			return true
		}
	}
	return false
}

// matchesPartitionValue checks for an exact key=value path segment, so
// run_id=run-1 does not match run_id=run-10.
func matchesPartitionValue(path, key, value string) bool {
	segment := key + "=" + value
	for _, part := range strings.Split(path, "/") {
		if part == segment {
			return true
		}
	}
	return false
}

// RunSummary aggregates run records for the history stats view.
type RunSummary struct {
	Total      int64 `json:"total"`
	Completed  int64 `json:"completed"`
	Cancelled  int64 `json:"cancelled"`
	Failed     int64 `json:"failed"`
	Commits    int64 `json:"commits"`
	RefUpdates int64 `json:"ref_updates"`
}

// Summarize counts runs by outcome. Commits sums run progress.
func Summarize(runs []RunRecord) *RunSummary {
	s := &RunSummary{}
	for _, r := range runs {
		s.Total++
		switch types.OutcomeStatus(r.Outcome) {
		case types.OutcomeCompleted:
			s.Completed++
		case types.OutcomeCancelled:
			s.Cancelled++
		default:
			s.Failed++
		}
		s.Commits += r.Progress
		s.RefUpdates += r.RefUpdates
	}
	return s
}
