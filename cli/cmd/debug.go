package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/contribuart/cli/render"
	"github.com/justapithecus/contribuart/iox"
	"github.com/justapithecus/contribuart/stream"
	"github.com/justapithecus/contribuart/types"
)

// DebugCommand returns the debug command with subcommands.
// Debug commands are opt-in diagnostic tools and never contact GitHub.
func DebugCommand() *cli.Command {
	return &cli.Command{
		Name:  "debug",
		Usage: "Diagnostic tools (frames)",
		Subcommands: []*cli.Command{
			debugFramesCommand(),
		},
	}
}

func debugFramesCommand() *cli.Command {
	return &cli.Command{
		Name:      "frames",
		Usage:     "Decode a captured msgpack progress stream",
		ArgsUsage: "<file|->",
		Flags:     ReadOnlyFlags(),
		Action:    debugFramesAction,
	}
}

// FramesReport is the result of decoding a captured stream.
type FramesReport struct {
	Events   []types.ProgressEvent `json:"events"`
	Terminal bool                  `json:"terminal"`
	Error    string                `json:"error,omitempty"`
}

func debugFramesAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("file required (- for stdin)", 1)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	if err := rejectTUI(c, "debug commands"); err != nil {
		return err
	}

	var in io.Reader = os.Stdin
	if path := c.Args().First(); path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return cli.Exit(fmt.Sprintf("open capture: %v", err), 1)
		}
		defer iox.DiscardClose(f)
		in = f
	}

	report := decodeFrames(in)
	if err := r.Render(report); err != nil {
		return err
	}
	if report.Error != "" {
		return cli.Exit("", 1)
	}
	return nil
}

// decodeFrames reads every frame, including any after the terminal event,
// and records the first decode error.
func decodeFrames(in io.Reader) *FramesReport {
	fr := stream.NewFrameReader(in)
	report := &FramesReport{Events: []types.ProgressEvent{}}
	for {
		payload, err := fr.ReadFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			report.Error = err.Error()
			break
		}
		event, err := stream.DecodeEvent(payload)
		if err != nil {
			report.Error = err.Error()
			break
		}
		report.Events = append(report.Events, event)
		report.Terminal = report.Terminal || event.Done
	}
	if !report.Terminal && report.Error == "" {
		report.Error = stream.ErrTruncated.Error()
	}
	return report
}
