// Package memremote is an in-memory Git Data remote.
//
// Objects are content-addressed with git object hashes, so SHAs are
// deterministic for identical content. It backs dry runs and tests, and
// supports per-operation failure injection.
package memremote

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/justapithecus/contribuart/types"
)

// Op names a remote operation for call logs and failure injection.
type Op string

// Remote operations.
const (
	OpGetRef       Op = "get_ref"
	OpGetCommit    Op = "get_commit"
	OpCreateBlob   Op = "create_blob"
	OpCreateTree   Op = "create_tree"
	OpCreateCommit Op = "create_commit"
	OpUpdateRef    Op = "update_ref"
)

// Error is a remote failure carrying an HTTP-like status.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.Code)
}

// HTTPStatus returns the status code.
func (e *Error) HTTPStatus() int {
	return e.Code
}

// Commit is a stored commit object.
type Commit struct {
	SHA     string
	Spec    types.CommitSpec
	TreeSHA string
}

// Call is one recorded remote invocation.
type Call struct {
	Op  Op
	Arg string
}

// Remote is an in-memory Git Data remote for a single repository.
// Owner and repo arguments are accepted and ignored.
type Remote struct {
	mu sync.Mutex

	blobs   map[string]string
	trees   map[string]map[string]types.TreeEntry
	commits map[string]*Commit
	refs    map[string]string

	calls    []Call
	failures map[Op][]error

	// OnCall, if set, runs before every operation (outside the lock).
	OnCall func(op Op)
}

// New creates an empty remote with no refs.
func New() *Remote {
	return &Remote{
		blobs:    make(map[string]string),
		trees:    make(map[string]map[string]types.TreeEntry),
		commits:  make(map[string]*Commit),
		refs:     make(map[string]string),
		failures: make(map[Op][]error),
	}
}

// NewWithBranch creates a remote holding one root commit on branch
// (e.g. "heads/main") and returns it with the root commit SHA.
func NewWithBranch(branch string) (*Remote, string) {
	r := New()
	treeSHA := r.storeTree(map[string]types.TreeEntry{})
	sha := r.storeCommit(types.CommitSpec{Message: "Initial commit", TreeSHA: treeSHA})
	r.refs[refKey(branch)] = sha
	return r, sha
}

// FailNext queues errs to be returned by the next calls of op, in order.
func (r *Remote) FailNext(op Op, errs ...error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[op] = append(r.failures[op], errs...)
}

// Calls returns the recorded call log.
func (r *Remote) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Count returns how many times op was invoked, including failed calls.
func (r *Remote) Count(op Op) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// RefSHA returns the commit a ref points at, or "" if absent.
func (r *Remote) RefSHA(ref string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refs[refKey(ref)]
}

// Commit returns a stored commit.
func (r *Remote) Commit(sha string) (*Commit, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.commits[sha]
	return c, ok
}

// Blob returns stored blob content.
func (r *Remote) Blob(sha string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.blobs[sha]
	return b, ok
}

// TreeFiles returns the path-to-entry map of a stored tree.
func (r *Remote) TreeFiles(sha string) map[string]types.TreeEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]types.TreeEntry, len(r.trees[sha]))
	for k, v := range r.trees[sha] {
		out[k] = v
	}
	return out
}

// Ancestry returns the first-parent chain from sha back to the root,
// newest first.
func (r *Remote) Ancestry(sha string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for sha != "" {
		c, ok := r.commits[sha]
		if !ok {
			break
		}
		out = append(out, sha)
		if len(c.Spec.Parents) == 0 {
			break
		}
		sha = c.Spec.Parents[0]
	}
	return out
}

// GetRef implements chain.Remote.
func (r *Remote) GetRef(_ context.Context, _, _, ref string) (types.Ref, error) {
	if err := r.begin(OpGetRef, ref); err != nil {
		return types.Ref{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	sha, ok := r.refs[refKey(ref)]
	if !ok {
		return types.Ref{}, &Error{Code: http.StatusNotFound, Message: "Not Found"}
	}
	return types.Ref{Name: refKey(ref), SHA: sha}, nil
}

// GetCommitTree implements chain.Remote.
func (r *Remote) GetCommitTree(_ context.Context, _, _, commitSHA string) (string, error) {
	if err := r.begin(OpGetCommit, commitSHA); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.commits[commitSHA]
	if !ok {
		return "", &Error{Code: http.StatusNotFound, Message: "No commit found for SHA: " + commitSHA}
	}
	return c.TreeSHA, nil
}

// CreateBlob implements chain.Remote.
func (r *Remote) CreateBlob(_ context.Context, _, _, content string) (string, error) {
	if err := r.begin(OpCreateBlob, ""); err != nil {
		return "", err
	}
	sha := plumbing.ComputeHash(plumbing.BlobObject, []byte(content)).String()
	r.mu.Lock()
	r.blobs[sha] = content
	r.mu.Unlock()
	return sha, nil
}

// CreateTree implements chain.Remote.
func (r *Remote) CreateTree(_ context.Context, _, _, baseTree string, entries []types.TreeEntry) (string, error) {
	if err := r.begin(OpCreateTree, baseTree); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	files := make(map[string]types.TreeEntry)
	if baseTree != "" {
		base, ok := r.trees[baseTree]
		if !ok {
			return "", &Error{Code: http.StatusUnprocessableEntity, Message: "base_tree is not a valid tree"}
		}
		for k, v := range base {
			files[k] = v
		}
	}
	for _, e := range entries {
		if _, ok := r.blobs[e.SHA]; !ok {
			return "", &Error{Code: http.StatusUnprocessableEntity, Message: "tree.sha " + e.SHA + " is not a valid blob"}
		}
		files[e.Path] = e
	}
	return r.storeTree(files), nil
}

// CreateCommit implements chain.Remote.
func (r *Remote) CreateCommit(_ context.Context, _, _ string, spec types.CommitSpec) (string, error) {
	if err := r.begin(OpCreateCommit, spec.TreeSHA); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.trees[spec.TreeSHA]; !ok {
		return "", &Error{Code: http.StatusUnprocessableEntity, Message: "tree " + spec.TreeSHA + " does not exist"}
	}
	for _, p := range spec.Parents {
		if _, ok := r.commits[p]; !ok {
			return "", &Error{Code: http.StatusUnprocessableEntity, Message: "parent " + p + " does not exist"}
		}
	}
	return r.storeCommit(spec), nil
}

// UpdateRef implements chain.Remote. Without force, the update must be a
// fast-forward.
func (r *Remote) UpdateRef(_ context.Context, _, _, ref, sha string, force bool) error {
	if err := r.begin(OpUpdateRef, ref+"="+sha); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	key := refKey(ref)
	current, ok := r.refs[key]
	if !ok {
		return &Error{Code: http.StatusUnprocessableEntity, Message: "Reference does not exist"}
	}
	if _, ok := r.commits[sha]; !ok {
		return &Error{Code: http.StatusUnprocessableEntity, Message: "Object does not exist"}
	}
	if !force && !r.descendsLocked(sha, current) {
		return &Error{Code: http.StatusUnprocessableEntity, Message: "Update is not a fast forward"}
	}
	r.refs[key] = sha
	return nil
}

// begin records the call and pops an injected failure, if any.
func (r *Remote) begin(op Op, arg string) error {
	if r.OnCall != nil {
		r.OnCall(op)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Op: op, Arg: arg})
	if q := r.failures[op]; len(q) > 0 {
		err := q[0]
		r.failures[op] = q[1:]
		return err
	}
	return nil
}

func (r *Remote) descendsLocked(sha, ancestor string) bool {
	for sha != "" {
		if sha == ancestor {
			return true
		}
		c, ok := r.commits[sha]
		if !ok || len(c.Spec.Parents) == 0 {
			return false
		}
		sha = c.Spec.Parents[0]
	}
	return false
}

// storeTree hashes a flat path listing. Caller must hold r.mu or own r.
func (r *Remote) storeTree(files map[string]types.TreeEntry) string {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var buf bytes.Buffer
	for _, p := range paths {
		e := files[p]
		fmt.Fprintf(&buf, "%s %s\x00%s\n", e.Mode, p, e.SHA)
	}
	sha := plumbing.ComputeHash(plumbing.TreeObject, buf.Bytes()).String()
	r.trees[sha] = files
	return sha
}

// storeCommit hashes a commit body. Caller must hold r.mu or own r.
func (r *Remote) storeCommit(spec types.CommitSpec) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", spec.TreeSHA)
	for _, p := range spec.Parents {
		fmt.Fprintf(&buf, "parent %s\n", p)
	}
	fmt.Fprintf(&buf, "author %s <%s> %d +0000\n", spec.Author.Name, spec.Author.Email, spec.Author.Date.Unix())
	fmt.Fprintf(&buf, "committer %s <%s> %d +0000\n", spec.Committer.Name, spec.Committer.Email, spec.Committer.Date.Unix())
	fmt.Fprintf(&buf, "\n%s\n", spec.Message)

	sha := plumbing.ComputeHash(plumbing.CommitObject, buf.Bytes()).String()
	r.commits[sha] = &Commit{SHA: sha, Spec: spec, TreeSHA: spec.TreeSHA}
	return sha
}

func refKey(ref string) string {
	if strings.HasPrefix(ref, "refs/") {
		return ref
	}
	return "refs/" + ref
}
