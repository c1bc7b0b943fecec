package lode

import (
	"time"

	"github.com/justapithecus/contribuart/types"
)

// Dataset is the Lode dataset ID for the paint journal.
const Dataset = "contribuart"

// Record kind discriminators. record_kind is also the last Hive partition.
const (
	RecordKindCommit = "commit"
	RecordKindRun    = "run"
)

// DeriveDay computes the partition day from a run start time (YYYY-MM-DD UTC).
func DeriveDay(startTime time.Time) string {
	return startTime.UTC().Format(types.DateLayout)
}

// CommitRecord journals one commit created by a paint.
type CommitRecord struct {
	RunID string `json:"run_id"`
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
	// Day is the run partition day, not the painted date.
	Day string `json:"day"`

	// Date is the painted calendar day.
	Date      string `json:"date"`
	Seq       int    `json:"seq"`
	Count     int    `json:"count"`
	CommitSHA string `json:"commit_sha"`
	TreeSHA   string `json:"tree_sha"`
	Ts        string `json:"ts"`
}

func (r CommitRecord) toMap() map[string]any {
	return map[string]any{
		"record_kind": RecordKindCommit,
		"run_id":      r.RunID,
		"owner":       r.Owner,
		"repo":        r.Repo,
		"day":         r.Day,
		"date":        r.Date,
		"seq":         r.Seq,
		"count":       r.Count,
		"commit_sha":  r.CommitSHA,
		"tree_sha":    r.TreeSHA,
		"ts":          r.Ts,
	}
}

// RunRecord journals the terminal state of a paint.
type RunRecord struct {
	RunID      string `json:"run_id"`
	Owner      string `json:"owner"`
	Repo       string `json:"repo"`
	Day        string `json:"day"`
	Mode       string `json:"mode"`
	Outcome    string `json:"outcome"`
	Message    string `json:"message"`
	Progress   int64  `json:"progress"`
	Total      int64  `json:"total"`
	Branch     string `json:"branch"`
	HeadSHA    string `json:"head_sha"`
	RefUpdates int64  `json:"ref_updates"`
	StartedAt  string `json:"started_at"`
	DurationMs int64  `json:"duration_ms"`
}

func (r RunRecord) toMap() map[string]any {
	return map[string]any{
		"record_kind": RecordKindRun,
		"run_id":      r.RunID,
		"owner":       r.Owner,
		"repo":        r.Repo,
		"day":         r.Day,
		"mode":        r.Mode,
		"outcome":     r.Outcome,
		"message":     r.Message,
		"progress":    r.Progress,
		"total":       r.Total,
		"branch":      r.Branch,
		"head_sha":    r.HeadSHA,
		"ref_updates": r.RefUpdates,
		"started_at":  r.StartedAt,
		"duration_ms": r.DurationMs,
	}
}

// runRecordFromMap decodes a stored run record. Numbers arrive as float64
// from the JSONL codec.
func runRecordFromMap(m map[string]any) RunRecord {
	return RunRecord{
		RunID:      toString(m["run_id"]),
		Owner:      toString(m["owner"]),
		Repo:       toString(m["repo"]),
		Day:        toString(m["day"]),
		Mode:       toString(m["mode"]),
		Outcome:    toString(m["outcome"]),
		Message:    toString(m["message"]),
		Progress:   toInt64(m["progress"]),
		Total:      toInt64(m["total"]),
		Branch:     toString(m["branch"]),
		HeadSHA:    toString(m["head_sha"]),
		RefUpdates: toInt64(m["ref_updates"]),
		StartedAt:  toString(m["started_at"]),
		DurationMs: toInt64(m["duration_ms"]),
	}
}

func commitRecordFromMap(m map[string]any) CommitRecord {
	return CommitRecord{
		RunID:     toString(m["run_id"]),
		Owner:     toString(m["owner"]),
		Repo:      toString(m["repo"]),
		Day:       toString(m["day"]),
		Date:      toString(m["date"]),
		Seq:       int(toInt64(m["seq"])),
		Count:     int(toInt64(m["count"])),
		CommitSHA: toString(m["commit_sha"]),
		TreeSHA:   toString(m["tree_sha"]),
		Ts:        toString(m["ts"]),
	}
}

// toString converts a value to string, returning empty string for nil/non-string.
func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
