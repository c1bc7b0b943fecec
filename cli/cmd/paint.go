package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/contribuart/chain"
	"github.com/justapithecus/contribuart/cli/config"
	"github.com/justapithecus/contribuart/cli/render"
	"github.com/justapithecus/contribuart/cli/tui"
	"github.com/justapithecus/contribuart/iox"
	"github.com/justapithecus/contribuart/log"
	"github.com/justapithecus/contribuart/memremote"
	"github.com/justapithecus/contribuart/metrics"
	"github.com/justapithecus/contribuart/plan"
	"github.com/justapithecus/contribuart/runtime"
	"github.com/justapithecus/contribuart/stream"
	"github.com/justapithecus/contribuart/types"
)

// PaintCommand returns the paint command.
// This is the only command that writes to GitHub.
func PaintCommand() *cli.Command {
	flags := append(cellFlags(),
		ConfigFlag,
		TokenFlag,
		&cli.StringSliceFlag{
			Name:  "branch",
			Usage: "Branch ref candidates in order (default heads/main, heads/master)",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Paint into an in-memory repository instead of GitHub",
		},
		&cli.StringFlag{
			Name:  "server",
			Usage: "Paint through a running contribuart server at this URL",
		},
		&cli.BoolFlag{
			Name:  "tui",
			Usage: "Show an interactive progress bar",
		},
		&cli.BoolFlag{
			Name:  "quiet",
			Usage: "Only print the terminal event and result",
		},
	)
	flags = append(flags, journalFlags()...)

	return &cli.Command{
		Name:   "paint",
		Usage:  "Paint cells onto a repository's contribution graph",
		Flags:  flags,
		Action: paintAction,
	}
}

func paintAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
	}
	req, err := paintRequestFromFlags(c, os.Stdin)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
	}
	p, err := plan.ForRequest(req)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
	}

	ctx, stop := signalContext(c.Context)
	defer stop()

	if serverURL := c.String("server"); serverURL != "" {
		token, err := tokenFrom(c, cfg)
		if err != nil {
			return cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
		}
		return paintViaServer(ctx, c, serverURL, token, req, p.Total)
	}
	return paintLocal(ctx, c, cfg, req, p.Total)
}

// paintLocal runs the orchestrator in-process against GitHub, or against an
// in-memory remote for --dry-run.
func paintLocal(ctx context.Context, c *cli.Context, cfg *config.Config, req *types.PaintRequest, total int) error {
	var (
		remote   chain.Remote
		identity types.Identity
	)
	if c.Bool("dry-run") {
		mem, _ := memremote.NewWithBranch(chain.DefaultBranches[0])
		remote = mem
		identity = types.Identity{Login: req.Owner}
	} else {
		token, err := tokenFrom(c, cfg)
		if err != nil {
			return cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
		}
		client := newGitHubClient(cfg, token)
		identity, err = client.Identity(ctx)
		if err != nil {
			return cli.Exit(fmt.Sprintf("cannot resolve GitHub identity: %v", err), runtime.ExitCodeFailed)
		}
		remote = client
	}

	collector := metrics.NewCollector(cfg.Journal.Backend, cfg.Adapter.Type)
	journal, err := openJournal(ctx, cfg.Journal, collector)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeFailed)
	}
	notifier, err := newNotifier(cfg.Adapter)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeFailed)
	}
	if notifier != nil {
		defer iox.DiscardClose(notifier)
	}

	branches := cfg.GitHub.Branches
	if flagged := c.StringSlice("branch"); len(flagged) > 0 {
		branches = flagged
	}

	paintCfg := &runtime.PaintConfig{
		Request:     req,
		Identity:    identity,
		Remote:      remote,
		Branches:    branches,
		ForceUpdate: cfg.GitHub.ForceUpdate,
		Retry:       cfg.RetryPolicy(),
		Journal:     journal,
		Notifier:    notifier,
		Collector:   collector,
	}

	var result *runtime.PaintResult
	execute := func(ctx context.Context, sink runtime.ProgressSink) error {
		paintCfg.Sink = sink
		orch, err := runtime.NewPaintOrchestrator(paintCfg)
		if err != nil {
			return err
		}
		result, err = orch.Execute(ctx)
		return err
	}

	if c.Bool("tui") {
		// Log lines would tear the progress view.
		paintCfg.Logger = log.Nop()
		_, err = tui.RunPaint(ctx, paintTitle(req), total, execute)
	} else {
		err = execute(ctx, newLineSink(os.Stdout, c.Bool("quiet")))
	}
	if err != nil {
		return cli.Exit(fmt.Sprintf("paint failed: %v", err), runtime.ExitCodeFailed)
	}

	printPaintResult(os.Stdout, result, c.Bool("dry-run"))
	return cli.Exit("", runtime.ExitCode(result.Outcome))
}

// paintViaServer posts the request to a server's paint endpoint and follows
// its msgpack progress stream. Interrupting the client drops the connection,
// which cancels the paint server-side at the next commit.
func paintViaServer(ctx context.Context, c *cli.Context, baseURL, token string, req *types.PaintRequest, total int) error {
	body, err := json.Marshal(req)
	if err != nil {
		return cli.Exit(fmt.Sprintf("encode request: %v", err), runtime.ExitCodeInvalidInput)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+"/api/paint", bytes.NewReader(body))
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid server URL: %v", err), runtime.ExitCodeInvalidInput)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", stream.ContentTypeMsgpack)
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return cli.Exit(fmt.Sprintf("server request failed: %v", err), runtime.ExitCodeFailed)
	}
	defer iox.DiscardClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		code := runtime.ExitCodeFailed
		if resp.StatusCode == http.StatusBadRequest {
			code = runtime.ExitCodeInvalidInput
		}
		return cli.Exit(fmt.Sprintf("server rejected paint (%d): %s", resp.StatusCode, serverErrorMessage(resp.Body)), code)
	}

	reader := stream.NewFrameReader(resp.Body)
	var (
		final     types.ProgressEvent
		cancelled bool
	)
	follow := func(ctx context.Context, sink runtime.ProgressSink) error {
		// Dropping the connection is how a client cancels a server paint.
		stop := context.AfterFunc(ctx, func() { iox.DiscardClose(resp.Body) })
		defer stop()

		var err error
		final, err = stream.Drain(reader, func(e types.ProgressEvent) { _ = sink.Send(e) })
		cancelled = err != nil && ctx.Err() != nil
		return err
	}

	if c.Bool("tui") {
		_, err = tui.RunPaint(ctx, paintTitle(req), total, follow)
	} else {
		err = follow(ctx, newLineSink(os.Stdout, c.Bool("quiet")))
	}

	code := terminalExitCode(cancelled, final, err)
	if err != nil && code != runtime.ExitCodeCancelled {
		return cli.Exit(fmt.Sprintf("progress stream failed: %v", err), code)
	}
	return cli.Exit("", code)
}

// terminalExitCode maps a remote paint's terminal event to an exit code.
func terminalExitCode(cancelled bool, final types.ProgressEvent, err error) int {
	switch {
	case cancelled:
		return runtime.ExitCodeCancelled
	case err != nil, final.IsError():
		return runtime.ExitCodeFailed
	case final.Message == runtime.MessageCancelled:
		return runtime.ExitCodeCancelled
	default:
		return runtime.ExitCodeCompleted
	}
}

func serverErrorMessage(r io.Reader) string {
	var body struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(r, 64<<10))
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(data))
}

func paintTitle(req *types.PaintRequest) string {
	return fmt.Sprintf("Painting %s/%s (%s)", req.Owner, req.Repo, req.Mode())
}

// lineSink prints one line per progress event.
type lineSink struct {
	w     io.Writer
	quiet bool
}

func newLineSink(w io.Writer, quiet bool) lineSink {
	return lineSink{w: w, quiet: quiet}
}

// Send implements runtime.ProgressSink.
func (s lineSink) Send(event types.ProgressEvent) error {
	if s.quiet && !event.Done {
		return nil
	}
	_, err := fmt.Fprintf(s.w, "[%d/%d] %s\n", event.Progress, event.Total, event.Message)
	return err
}

func printPaintResult(w io.Writer, result *runtime.PaintResult, dryRun bool) {
	fmt.Fprintf(w, "\nrun_id=%s, mode=%s, outcome=%s, duration=%s\n",
		result.Meta.RunID,
		result.Meta.Mode,
		result.Outcome.Status,
		result.Duration.Round(time.Millisecond),
	)

	fmt.Fprintf(w, "\n=== Paint Result ===\n")
	fmt.Fprintf(w, "Run ID:       %s\n", result.Meta.RunID)
	fmt.Fprintf(w, "Repository:   %s/%s\n", result.Meta.Owner, result.Meta.Repo)
	fmt.Fprintf(w, "Mode:         %s\n", result.Meta.Mode)
	fmt.Fprintf(w, "Outcome:      %s\n", result.Outcome.Status)
	fmt.Fprintf(w, "Message:      %s\n", result.Outcome.Message)
	fmt.Fprintf(w, "Commits:      %d/%d\n", result.Progress, result.Total)
	if result.Head.BranchRef != "" {
		fmt.Fprintf(w, "Branch:       %s\n", result.Head.BranchRef)
	}
	if result.PolicyStats.Published != "" {
		fmt.Fprintf(w, "Published:    %s\n", result.PolicyStats.Published)
	}
	fmt.Fprintf(w, "Ref Updates:  %d\n", result.PolicyStats.RefUpdates)
	if dryRun {
		fmt.Fprintf(w, "\nDry run: nothing was written to GitHub.\n")
	}
}

// PlanView is the plan command payload.
type PlanView struct {
	plan.Plan `yaml:",inline"`
	Cells     int `json:"cells" yaml:"cells"`
}

// TableHeaders implements render.Tabular.
func (v PlanView) TableHeaders() []string {
	return []string{"DATE", "INTENSITY", "EXISTING", "TARGET", "NEEDED"}
}

// TableRows implements render.Tabular. The last row carries the total.
func (v PlanView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Entries)+1)
	for _, e := range v.Entries {
		rows = append(rows, []string{
			e.Cell.Date,
			fmt.Sprint(e.Cell.Intensity),
			fmt.Sprint(e.Cell.ExistingCount),
			fmt.Sprint(e.Target),
			fmt.Sprint(e.Needed),
		})
	}
	if len(rows) > 0 {
		rows = append(rows, []string{"TOTAL", "", "", "", fmt.Sprint(v.Total)})
	}
	return rows
}

// PlanCommand returns the plan command. It computes per-cell commit counts
// without contacting GitHub.
func PlanCommand() *cli.Command {
	return &cli.Command{
		Name:   "plan",
		Usage:  "Show the commits a paint would create",
		Flags:  append(ReadOnlyFlags(), cellFlags()...),
		Action: planAction,
	}
}

func planAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	if err := rejectTUI(c, "plan"); err != nil {
		return err
	}

	req, err := paintRequestFromFlags(c, os.Stdin)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
	}
	if err := req.Validate(); err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
	}

	p := plan.Build(req.Cells)
	if p.Empty() && isStderrTTY() {
		fmt.Fprintln(os.Stderr, "Warning: "+plan.ErrNothingToPaint.Error())
	}
	return r.Render(PlanView{Plan: *p, Cells: p.PaintedCells()})
}
