package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/justapithecus/contribuart/types"
)

func repoPath(owner, repo string) string {
	return "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo)
}

// refPath escapes each segment of a ref like "heads/main".
func refPath(ref string) string {
	ref = strings.TrimPrefix(ref, "refs/")
	parts := strings.Split(ref, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

type shaResponse struct {
	SHA string `json:"sha"`
}

// GetRef reads a single ref, e.g. "heads/main".
func (c *Client) GetRef(ctx context.Context, owner, repo, ref string) (types.Ref, error) {
	var out struct {
		Ref    string `json:"ref"`
		Object struct {
			SHA string `json:"sha"`
		} `json:"object"`
	}
	if err := c.do(ctx, http.MethodGet, repoPath(owner, repo)+"/git/ref/"+refPath(ref), nil, &out); err != nil {
		return types.Ref{}, err
	}
	return types.Ref{Name: out.Ref, SHA: out.Object.SHA}, nil
}

// GetCommitTree returns the tree SHA of a commit.
func (c *Client) GetCommitTree(ctx context.Context, owner, repo, commitSHA string) (string, error) {
	var out struct {
		Tree shaResponse `json:"tree"`
	}
	if err := c.do(ctx, http.MethodGet, repoPath(owner, repo)+"/git/commits/"+url.PathEscape(commitSHA), nil, &out); err != nil {
		return "", err
	}
	return out.Tree.SHA, nil
}

// CreateBlob stores a utf-8 blob.
func (c *Client) CreateBlob(ctx context.Context, owner, repo, content string) (string, error) {
	body := map[string]string{"content": content, "encoding": "utf-8"}
	var out shaResponse
	if err := c.do(ctx, http.MethodPost, repoPath(owner, repo)+"/git/blobs", body, &out); err != nil {
		return "", err
	}
	return out.SHA, nil
}

// CreateTree creates a tree from baseTree plus entries.
func (c *Client) CreateTree(ctx context.Context, owner, repo, baseTree string, entries []types.TreeEntry) (string, error) {
	body := struct {
		BaseTree string            `json:"base_tree,omitempty"`
		Tree     []types.TreeEntry `json:"tree"`
	}{BaseTree: baseTree, Tree: entries}
	var out shaResponse
	if err := c.do(ctx, http.MethodPost, repoPath(owner, repo)+"/git/trees", body, &out); err != nil {
		return "", err
	}
	return out.SHA, nil
}

// CreateCommit creates a commit object. It does not move any ref.
func (c *Client) CreateCommit(ctx context.Context, owner, repo string, spec types.CommitSpec) (string, error) {
	body := struct {
		Message   string          `json:"message"`
		Tree      string          `json:"tree"`
		Parents   []string        `json:"parents"`
		Author    types.Signature `json:"author"`
		Committer types.Signature `json:"committer"`
	}{
		Message:   spec.Message,
		Tree:      spec.TreeSHA,
		Parents:   spec.Parents,
		Author:    spec.Author,
		Committer: spec.Committer,
	}
	if body.Parents == nil {
		body.Parents = []string{}
	}
	var out shaResponse
	if err := c.do(ctx, http.MethodPost, repoPath(owner, repo)+"/git/commits", body, &out); err != nil {
		return "", err
	}
	return out.SHA, nil
}

// UpdateRef points ref at sha.
func (c *Client) UpdateRef(ctx context.Context, owner, repo, ref, sha string, force bool) error {
	body := struct {
		SHA   string `json:"sha"`
		Force bool   `json:"force"`
	}{SHA: sha, Force: force}
	if err := c.do(ctx, http.MethodPatch, repoPath(owner, repo)+"/git/refs/"+refPath(ref), body, nil); err != nil {
		return fmt.Errorf("patch ref: %w", err)
	}
	return nil
}
