package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// Repository is the subset of repository fields clients choose from.
type Repository struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	DefaultBranch string `json:"default_branch"`
	Private       bool   `json:"private"`
	Fork          bool   `json:"fork"`
}

func (r Repository) normalized() Repository {
	if r.DefaultBranch == "" {
		r.DefaultBranch = "main"
	}
	return r
}

var repoNamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// Repository name validation errors.
var (
	ErrRepoNameRequired = errors.New("repository name is required")
	ErrRepoNameInvalid  = errors.New("repository name can only contain alphanumeric characters, hyphens, underscores, and dots")
)

// ValidateRepoName checks a new repository name.
func ValidateRepoName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrRepoNameRequired
	}
	if !repoNamePattern.MatchString(name) {
		return ErrRepoNameInvalid
	}
	return nil
}

// ListRepos returns the user's own non-fork repositories, most recently
// updated first.
func (c *Client) ListRepos(ctx context.Context) ([]Repository, error) {
	var all []Repository
	path := "/user/repos?affiliation=owner&sort=updated&per_page=100"
	if err := c.do(ctx, http.MethodGet, path, nil, &all); err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	out := make([]Repository, 0, len(all))
	for _, r := range all {
		if r.Fork {
			continue
		}
		out = append(out, r.normalized())
	}
	return out, nil
}

// CreateRepo creates a repository initialized with a README, so it has a
// branch to paint on.
func (c *Client) CreateRepo(ctx context.Context, name string, private bool) (Repository, error) {
	if err := ValidateRepoName(name); err != nil {
		return Repository{}, err
	}
	body := struct {
		Name     string `json:"name"`
		Private  bool   `json:"private"`
		AutoInit bool   `json:"auto_init"`
	}{Name: strings.TrimSpace(name), Private: private, AutoInit: true}

	var repo Repository
	if err := c.do(ctx, http.MethodPost, "/user/repos", body, &repo); err != nil {
		return Repository{}, fmt.Errorf("create repository: %w", err)
	}
	return repo.normalized(), nil
}
