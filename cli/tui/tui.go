package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// View types accepted by Run.
const (
	ViewCalendar     = "calendar"
	ViewStatsHistory = "stats_history"
	ViewStatsMetrics = "stats_metrics"
)

type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// Run starts the read-only TUI for viewType.
// Returns an error if the view type doesn't support TUI.
func Run(viewType string, data any) error {
	if !IsTUISupported(viewType) {
		return fmt.Errorf("TUI mode is not supported for %s", viewType)
	}

	var model tea.Model
	switch {
	case viewType == ViewCalendar:
		model = NewCalendarModel(data)
	case strings.HasPrefix(viewType, "stats_"):
		model = NewStatsModel(viewType, data)
	default:
		return fmt.Errorf("unknown view type: %s", viewType)
	}

	_, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

// IsTUISupported returns true if the view type supports TUI mode.
// The paint progress view is started through RunPaint instead.
func IsTUISupported(viewType string) bool {
	for _, v := range SupportedTUIViews() {
		if v == viewType {
			return true
		}
	}
	return false
}

// SupportedTUIViews returns a list of view types that support TUI.
func SupportedTUIViews() []string {
	return []string{
		ViewCalendar,
		ViewStatsHistory,
		ViewStatsMetrics,
	}
}
