package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/contribuart/cli/render"
	"github.com/justapithecus/contribuart/cli/tui"
	"github.com/justapithecus/contribuart/iox"
	"github.com/justapithecus/contribuart/lode"
	"github.com/justapithecus/contribuart/metrics"
)

const metricsTimeout = 10 * time.Second

// StatsCommand returns the stats command with subcommands.
// Stats returns aggregated counts rather than individual records.
func StatsCommand() *cli.Command {
	historyFlags := append(ReadOnlyFlags(), ConfigFlag,
		&cli.StringFlag{
			Name:  "owner",
			Usage: "Filter by repository owner",
		},
		&cli.StringFlag{
			Name:  "repo",
			Usage: "Filter by repository name",
		},
	)
	historyFlags = append(historyFlags, journalFlags()...)

	return &cli.Command{
		Name:  "stats",
		Usage: "Show aggregate statistics (history, server)",
		Subcommands: []*cli.Command{
			{
				Name:   "history",
				Usage:  "Summarize paints recorded in the journal",
				Flags:  historyFlags,
				Action: statsHistoryAction,
			},
			{
				Name:  "server",
				Usage: "Show a running server's metrics",
				Flags: append(ReadOnlyFlags(),
					&cli.StringFlag{
						Name:     "server",
						Usage:    "Server base URL",
						Required: true,
					},
				),
				Action: statsServerAction,
			},
		},
	}
}

func statsHistoryAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	runs, err := queryRuns(c)
	if err != nil {
		return err
	}
	summary := lode.Summarize(runs)

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewStatsHistory, summary)
	}
	return r.Render(summary)
}

func statsServerAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	snapshot, err := fetchMetrics(c, c.String("server"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewStatsMetrics, snapshot)
	}
	return r.Render(snapshot)
}

func fetchMetrics(c *cli.Context, baseURL string) (*metrics.Snapshot, error) {
	client := &http.Client{Timeout: metricsTimeout}
	req, err := http.NewRequestWithContext(c.Context, http.MethodGet, strings.TrimRight(baseURL, "/")+"/api/metrics", nil)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch metrics: %w", err)
	}
	defer iox.DiscardClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch metrics: server returned %d", resp.StatusCode)
	}
	var snapshot metrics.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("decode metrics: %w", err)
	}
	return &snapshot, nil
}
