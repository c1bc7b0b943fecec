package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/contribuart/cli/render"
	"github.com/justapithecus/contribuart/cli/tui"
	"github.com/justapithecus/contribuart/github"
	"github.com/justapithecus/contribuart/types"
)

// CalendarView is the calendar command payload.
type CalendarView struct {
	Login                      string `json:"login" yaml:"login"`
	Year                       int    `json:"year" yaml:"year"`
	types.ContributionCalendar `yaml:",inline"`
}

// TableHeaders implements render.Tabular.
func (v CalendarView) TableHeaders() []string {
	return []string{"DATE", "COUNT", "LEVEL"}
}

// TableRows implements render.Tabular.
func (v CalendarView) TableRows() [][]string {
	days := v.Days()
	rows := make([][]string, 0, len(days))
	for _, d := range days {
		rows = append(rows, []string{d.Date, fmt.Sprint(d.ContributionCount), string(d.ContributionLevel)})
	}
	return rows
}

// CalendarCommand returns the calendar command.
func CalendarCommand() *cli.Command {
	return &cli.Command{
		Name:  "calendar",
		Usage: "Show a user's contribution calendar",
		Flags: append(GitHubFlags(),
			&cli.IntFlag{
				Name:  "year",
				Usage: "Calendar year (default current year)",
			},
			&cli.StringFlag{
				Name:  "login",
				Usage: "GitHub login (default the token's user)",
			},
			&cli.BoolFlag{
				Name:  "as-cells",
				Usage: "Print the calendar as paint cells with existing counts",
			},
		),
		Action: calendarAction,
	}
}

func calendarAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	if c.Bool("as-cells") && c.Bool("tui") {
		return cli.Exit("--tui cannot be combined with --as-cells", 1)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	token, err := tokenFrom(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	now := time.Now()
	year := now.Year()
	if c.IsSet("year") {
		year = c.Int("year")
	}
	if !github.ValidYear(year, now) {
		return cli.Exit(fmt.Sprintf("year must be between %d and %d", github.FirstCalendarYear, now.Year()+1), 1)
	}

	ctx := c.Context
	login := c.String("login")
	if login == "" {
		identity, err := newGitHubClient(cfg, token).Identity(ctx)
		if err != nil {
			return cli.Exit(fmt.Sprintf("cannot resolve GitHub identity: %v", err), 1)
		}
		login = identity.Login
	}

	cal, err := newCalendar(ctx, cfg, token).Fetch(ctx, login, year)
	if err != nil {
		return cli.Exit(fmt.Sprintf("fetch calendar: %v", err), 1)
	}

	if c.Bool("as-cells") {
		return r.Render(calendarCells(cal))
	}
	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewCalendar, cal)
	}
	return r.Render(CalendarView{Login: login, Year: year, ContributionCalendar: *cal})
}

// calendarCells turns the calendar into paint cells carrying today's counts,
// a starting point for editing and repainting.
func calendarCells(cal *types.ContributionCalendar) []types.PaintCell {
	days := cal.Days()
	cells := make([]types.PaintCell, 0, len(days))
	for _, d := range days {
		cells = append(cells, types.PaintCell{
			Date:          d.Date,
			Intensity:     d.ContributionLevel.Intensity(),
			ExistingCount: d.ContributionCount,
		})
	}
	return cells
}
