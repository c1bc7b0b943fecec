package cmd

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/contribuart/cli/render"
	"github.com/justapithecus/contribuart/github"
)

// ReposCommand returns the repos command with subcommands.
func ReposCommand() *cli.Command {
	return &cli.Command{
		Name:  "repos",
		Usage: "List or create repositories to paint into",
		Subcommands: []*cli.Command{
			reposListCommand(),
			reposCreateCommand(),
		},
	}
}

func reposListCommand() *cli.Command {
	return &cli.Command{
		Name:   "list",
		Usage:  "List repositories owned by the token's user (forks excluded)",
		Flags:  GitHubFlags(),
		Action: reposListAction,
	}
}

func reposListAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	if err := rejectTUI(c, "repos"); err != nil {
		return err
	}

	client, err := reposClient(c)
	if err != nil {
		return err
	}
	repos, err := client.ListRepos(c.Context)
	if err != nil {
		return cli.Exit(fmt.Sprintf("list repositories: %v", err), 1)
	}
	return r.Render(repos)
}

func reposCreateCommand() *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "Create a repository with an initial commit",
		ArgsUsage: "<name>",
		Flags: append(GitHubFlags(),
			&cli.BoolFlag{
				Name:  "private",
				Usage: "Create a private repository",
			},
		),
		Action: reposCreateAction,
	}
}

func reposCreateAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("repository name required", 1)
	}
	name := c.Args().First()

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	if err := rejectTUI(c, "repos"); err != nil {
		return err
	}
	if err := github.ValidateRepoName(name); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	client, err := reposClient(c)
	if err != nil {
		return err
	}
	repo, err := client.CreateRepo(c.Context, name, c.Bool("private"))
	if err != nil {
		var apiErr *github.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnprocessableEntity {
			return cli.Exit(fmt.Sprintf("A repository with the name %q already exists", name), 1)
		}
		return cli.Exit(fmt.Sprintf("create repository: %v", err), 1)
	}
	return r.Render(repo)
}

func reposClient(c *cli.Context) (*github.Client, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, cli.Exit(err.Error(), 1)
	}
	token, err := tokenFrom(c, cfg)
	if err != nil {
		return nil, cli.Exit(err.Error(), 1)
	}
	return newGitHubClient(cfg, token), nil
}
