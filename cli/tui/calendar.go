package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/justapithecus/contribuart/types"
)

const (
	cellGlyph  = "■"
	emptyGlyph = " "
)

// weekdayLabels are shown for alternating rows, like the web graph.
var weekdayLabels = [7]string{"", "Mon", "", "Wed", "", "Fri", ""}

// CalendarModel is a Bubble Tea model for the contribution heatmap.
type CalendarModel struct {
	data     any
	quitting bool
}

// NewCalendarModel creates a calendar model. data must be a
// *types.ContributionCalendar.
func NewCalendarModel(data any) CalendarModel {
	return CalendarModel{data: data}
}

// Init implements tea.Model.
func (m CalendarModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m CalendarModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model.
func (m CalendarModel) View() string {
	if m.quitting {
		return ""
	}

	cal, ok := m.data.(*types.ContributionCalendar)
	if !ok {
		return "Invalid data type for calendar"
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return RenderCalendar(cal) + "\n" + help
}

// RenderCalendar draws the calendar as seven weekday rows of colored cells.
func RenderCalendar(cal *types.ContributionCalendar) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("%d contributions", cal.TotalContributions)))
	b.WriteString("\n")

	grid := calendarGrid(cal)
	for row := range 7 {
		fmt.Fprintf(&b, "%-4s", weekdayLabels[row])
		for _, cell := range grid[row] {
			b.WriteString(cell)
			b.WriteString(" ")
		}
		b.WriteString("\n")
	}

	b.WriteString("\n    Less ")
	for i := range levelColors {
		b.WriteString(LevelStyle(i).Render(cellGlyph))
		b.WriteString(" ")
	}
	b.WriteString("More")
	return b.String()
}

// calendarGrid places each day in its weekday row. Weeks are columns; the
// first and last weeks may be partial and are padded with blanks.
func calendarGrid(cal *types.ContributionCalendar) [7][]string {
	var grid [7][]string
	for _, week := range cal.Weeks {
		var column [7]string
		for i := range column {
			column[i] = emptyGlyph
		}
		for _, day := range week.ContributionDays {
			t, err := time.Parse(types.DateLayout, day.Date)
			if err != nil {
				continue
			}
			column[t.Weekday()] = LevelStyle(day.ContributionLevel.Intensity()).Render(cellGlyph)
		}
		for i := range column {
			grid[i] = append(grid[i], column[i])
		}
	}
	return grid
}
