// Package chain builds linear commit chains through a remote Git Data API.
//
// Each commit is produced by three remote calls (blob, tree, commit) and
// is threaded through an immutable types.ChainState. The chain is not
// visible on the branch until a RefPublisher moves the ref.
package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/justapithecus/contribuart/retry"
	"github.com/justapithecus/contribuart/types"
)

// Remote is the subset of a Git Data API needed to paint.
type Remote interface {
	// GetRef returns the named ref (e.g. "heads/main").
	GetRef(ctx context.Context, owner, repo, ref string) (types.Ref, error)
	// GetCommitTree returns the tree SHA of a commit.
	GetCommitTree(ctx context.Context, owner, repo, commitSHA string) (string, error)
	// CreateBlob stores UTF-8 content and returns its SHA.
	CreateBlob(ctx context.Context, owner, repo, content string) (string, error)
	// CreateTree layers entries onto baseTree and returns the new tree SHA.
	CreateTree(ctx context.Context, owner, repo, baseTree string, entries []types.TreeEntry) (string, error)
	// CreateCommit creates a commit object and returns its SHA.
	CreateCommit(ctx context.Context, owner, repo string, spec types.CommitSpec) (string, error)
	// UpdateRef moves ref to sha.
	UpdateRef(ctx context.Context, owner, repo, ref, sha string, force bool) error
}

const (
	// PathPrefix is the directory painted files are written under.
	PathPrefix = ".contribuart"
	// MessagePrefix starts every painted commit message.
	MessagePrefix = "contribuart"
	// commitHour pins commits to midday UTC so the calendar day is stable
	// across viewer timezones.
	commitHour = 12
)

// DefaultBranches are the branch candidates tried in order by Resolve.
var DefaultBranches = []string{"heads/main", "heads/master"}

// ErrNoBranch is returned when no candidate is given to Resolve.
var ErrNoBranch = errors.New("no branch candidates")

// Option configures a Builder.
type Option func(*Builder)

// WithRetry sets the retry configuration for remote calls.
func WithRetry(cfg retry.Config) Option {
	return func(b *Builder) { b.retry = cfg }
}

// WithClock overrides the clock used for blob timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// Builder appends backdated commits to a chain.
type Builder struct {
	remote   Remote
	owner    string
	repo     string
	identity types.Identity
	retry    retry.Config
	now      func() time.Time
}

// NewBuilder creates a builder for owner/repo committing as identity.
func NewBuilder(remote Remote, owner, repo string, identity types.Identity, opts ...Option) *Builder {
	b := &Builder{
		remote:   remote,
		owner:    owner,
		repo:     repo,
		identity: identity,
		retry:    retry.DefaultConfig(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BlobContent returns the file content for commit seq of count on date.
func BlobContent(date string, seq, count int, at time.Time) string {
	return fmt.Sprintf("%s\nDate: %s\nCommit: %d/%d\nTimestamp: %d\n",
		MessagePrefix, date, seq, count, at.UnixMilli())
}

// FilePath returns the tree path for commit seq (1-based) on date.
func FilePath(date string, seq int) string {
	return fmt.Sprintf("%s/%s_%d.txt", PathPrefix, types.PaintCell{Date: date}.CompactDate(), seq-1)
}

// CommitMessage returns the message for a painted commit.
func CommitMessage(date string) string {
	return MessagePrefix + ": " + date
}

// CommitTime returns the pinned author/committer time for date.
func CommitTime(date string) (time.Time, error) {
	day, err := time.ParseInLocation(types.DateLayout, date, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	return day.Add(commitHour * time.Hour), nil
}

// AddCommit creates commit seq of count for date on top of state and
// returns the advanced state. The ref is not touched.
func (b *Builder) AddCommit(ctx context.Context, state types.ChainState, date string, seq, count int) (types.ChainState, error) {
	when, err := CommitTime(date)
	if err != nil {
		return state, err
	}

	blobSHA, err := retry.Do(ctx, b.retry, func(ctx context.Context) (string, error) {
		return b.remote.CreateBlob(ctx, b.owner, b.repo, BlobContent(date, seq, count, b.now()))
	})
	if err != nil {
		return state, fmt.Errorf("create blob: %w", err)
	}

	entries := []types.TreeEntry{types.BlobEntry(FilePath(date, seq), blobSHA)}
	treeSHA, err := retry.Do(ctx, b.retry, func(ctx context.Context) (string, error) {
		return b.remote.CreateTree(ctx, b.owner, b.repo, state.HeadTreeSHA, entries)
	})
	if err != nil {
		return state, fmt.Errorf("create tree: %w", err)
	}

	sig := b.identity.Signature(when)
	spec := types.CommitSpec{
		Message:   CommitMessage(date),
		TreeSHA:   treeSHA,
		Parents:   []string{state.HeadCommitSHA},
		Author:    sig,
		Committer: sig,
	}
	commitSHA, err := retry.Do(ctx, b.retry, func(ctx context.Context) (string, error) {
		return b.remote.CreateCommit(ctx, b.owner, b.repo, spec)
	})
	if err != nil {
		return state, fmt.Errorf("create commit: %w", err)
	}

	return state.Advance(commitSHA, treeSHA), nil
}

// Resolve finds the branch to paint on by trying candidates in order and
// reads the tip commit's tree. The first candidate that resolves wins; if
// none do, the last failure is returned.
func Resolve(ctx context.Context, remote Remote, owner, repo string, candidates []string, rc retry.Config) (types.ChainState, error) {
	if len(candidates) == 0 {
		return types.ChainState{}, ErrNoBranch
	}

	var (
		ref     types.Ref
		lastErr error
	)
	for _, candidate := range candidates {
		r, err := retry.Do(ctx, rc, func(ctx context.Context) (types.Ref, error) {
			return remote.GetRef(ctx, owner, repo, candidate)
		})
		if err == nil {
			ref, lastErr = r, nil
			break
		}
		lastErr = fmt.Errorf("get ref %s: %w", candidate, err)
	}
	if lastErr != nil {
		return types.ChainState{}, lastErr
	}

	treeSHA, err := retry.Do(ctx, rc, func(ctx context.Context) (string, error) {
		return remote.GetCommitTree(ctx, owner, repo, ref.SHA)
	})
	if err != nil {
		return types.ChainState{}, fmt.Errorf("get commit %s: %w", ref.SHA, err)
	}

	return types.ChainState{
		HeadCommitSHA: ref.SHA,
		HeadTreeSHA:   treeSHA,
		BranchRef:     strings.TrimPrefix(ref.Name, "refs/"),
	}, nil
}

// RefPublisher moves a branch ref to a chain head through a Remote.
type RefPublisher struct {
	Remote Remote
	Owner  string
	Repo   string
	// Force allows non-fast-forward updates.
	Force bool
	Retry retry.Config
}

// Publish points state.BranchRef at state.HeadCommitSHA.
func (p *RefPublisher) Publish(ctx context.Context, state types.ChainState) error {
	_, err := retry.Do(ctx, p.Retry, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, p.Remote.UpdateRef(ctx, p.Owner, p.Repo, state.BranchRef, state.HeadCommitSHA, p.Force)
	})
	if err != nil {
		return fmt.Errorf("update ref %s: %w", state.BranchRef, err)
	}
	return nil
}
