package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/contribuart/cli/render"
	"github.com/justapithecus/contribuart/lode"
)

// historyWarningThreshold is the number of runs above which we suggest --limit.
const historyWarningThreshold = 100

// RunsView is the history list payload.
type RunsView []lode.RunRecord

// TableHeaders implements render.Tabular.
func (v RunsView) TableHeaders() []string {
	return []string{"RUN ID", "REPOSITORY", "MODE", "OUTCOME", "COMMITS", "STARTED", "DURATION"}
}

// TableRows implements render.Tabular.
func (v RunsView) TableRows() [][]string {
	rows := make([][]string, 0, len(v))
	for _, r := range v {
		rows = append(rows, []string{
			r.RunID,
			r.Owner + "/" + r.Repo,
			r.Mode,
			r.Outcome,
			fmt.Sprintf("%d/%d", r.Progress, r.Total),
			r.StartedAt,
			(time.Duration(r.DurationMs) * time.Millisecond).String(),
		})
	}
	return rows
}

// HistoryCommand returns the history command. It reads the paint journal
// and never contacts GitHub.
func HistoryCommand() *cli.Command {
	flags := append(ReadOnlyFlags(), ConfigFlag,
		&cli.StringFlag{
			Name:  "owner",
			Usage: "Filter by repository owner",
		},
		&cli.StringFlag{
			Name:  "repo",
			Usage: "Filter by repository name",
		},
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Maximum number of runs to return (0 = no limit)",
		},
	)
	flags = append(flags, journalFlags()...)

	showFlags := append(ReadOnlyFlags(), ConfigFlag)
	showFlags = append(showFlags, journalFlags()...)

	return &cli.Command{
		Name:   "history",
		Usage:  "List paints recorded in the journal, newest first",
		Flags:  flags,
		Action: historyAction,
		Subcommands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "List the commits one paint created",
				ArgsUsage: "<run-id>",
				Flags:     showFlags,
				Action:    historyShowAction,
			},
		},
	}
}

func historyAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	if err := rejectTUI(c, "history (use stats history --tui)"); err != nil {
		return err
	}

	runs, err := queryRuns(c)
	if err != nil {
		return err
	}
	limit := c.Int("limit")
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}

	// Warn on large output only on a TTY to avoid noise in pipelines.
	if len(runs) > historyWarningThreshold && limit == 0 && isStderrTTY() {
		fmt.Fprintf(os.Stderr, "Warning: returning %d results. Consider using --limit to reduce output.\n\n", len(runs))
	}

	return r.Render(RunsView(runs))
}

func historyShowAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("run-id required", 1)
	}
	runID := c.Args().First()

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	if err := rejectTUI(c, "history show"); err != nil {
		return err
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	ds, err := openJournalDataset(c.Context, cfg.Journal)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	commits, err := lode.QueryCommits(c.Context, ds, runID)
	if err != nil {
		return cli.Exit(fmt.Sprintf("read journal: %v", err), 1)
	}
	if len(commits) == 0 {
		return cli.Exit(fmt.Sprintf("no commits recorded for run %s", runID), 1)
	}
	return r.Render(commits)
}

// queryRuns reads run records using the journal named by config and flags.
func queryRuns(c *cli.Context) ([]lode.RunRecord, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, cli.Exit(err.Error(), 1)
	}
	ds, err := openJournalDataset(c.Context, cfg.Journal)
	if err != nil {
		return nil, cli.Exit(err.Error(), 1)
	}
	runs, err := lode.QueryRuns(c.Context, ds, c.String("owner"), c.String("repo"))
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("read journal: %v", err), 1)
	}
	return runs, nil
}
