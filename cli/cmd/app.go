package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/contribuart/types"
)

// NewApp assembles the contribuart command tree. The caller installs the
// exit handler.
func NewApp(commit string) *cli.App {
	return &cli.App{
		Name:    "contribuart",
		Usage:   "Paint pictures on a GitHub contribution graph",
		Version: fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		Commands: []*cli.Command{
			ServeCommand(),
			PaintCommand(),
			PlanCommand(),
			CalendarCommand(),
			ReposCommand(),
			HistoryCommand(),
			StatsCommand(),
			DebugCommand(),
			VersionCommand(commit),
		},
	}
}
