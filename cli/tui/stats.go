package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/justapithecus/contribuart/lode"
	"github.com/justapithecus/contribuart/metrics"
)

// StatsModel is a Bubble Tea model for stats views.
type StatsModel struct {
	viewType string
	data     any
	width    int
	height   int
	quitting bool
}

// NewStatsModel creates a new stats model.
func NewStatsModel(viewType string, data any) StatsModel {
	return StatsModel{
		viewType: viewType,
		data:     data,
	}
}

// Init implements tea.Model.
func (m StatsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m StatsModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case ViewStatsHistory:
		content = m.renderHistory()
	case ViewStatsMetrics:
		content = m.renderMetrics()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m StatsModel) renderHistory() string {
	data, ok := m.data.(*lode.RunSummary)
	if !ok {
		return "Invalid data type for stats_history"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Paint History"))
	b.WriteString("\n\n")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderStatBox("Paints", data.Total, highlightColor),
		m.renderStatBox("Completed", data.Completed, successColor),
		m.renderStatBox("Cancelled", data.Cancelled, warningColor),
		m.renderStatBox("Failed", data.Failed, errorColor),
	))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderStatBox("Commits", data.Commits, highlightColor),
		m.renderStatBox("Ref Updates", data.RefUpdates, highlightColor),
	))

	return b.String()
}

func (m StatsModel) renderMetrics() string {
	data, ok := m.data.(*metrics.Snapshot)
	if !ok {
		return "Invalid data type for stats_metrics"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Server Metrics"))
	b.WriteString("\n\n")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderStatBox("Started", data.PaintsStarted, highlightColor),
		m.renderStatBox("Completed", data.PaintsCompleted, successColor),
		m.renderStatBox("Cancelled", data.PaintsCancelled, warningColor),
		m.renderStatBox("Failed", data.PaintsFailed, errorColor),
	))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderStatBox("Commits", data.CommitsCreated, highlightColor),
		m.renderStatBox("Ref Updates", data.RefUpdates, highlightColor),
		m.renderStatBox("Retries", data.RemoteRetries, warningColor),
		m.renderStatBox("Notify Failures", data.NotifyFailures, errorColor),
	))

	if data.JournalBackend != "" {
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s %s (%d ok, %d failed)",
			LabelStyle.Render("Journal:"),
			ValueStyle.Render(data.JournalBackend),
			data.JournalWriteSuccess, data.JournalWriteFailure)
	}

	return b.String()
}

func (m StatsModel) renderStatBox(label string, value int64, color lipgloss.Color) string {
	style := StatBoxStyle.BorderForeground(color)

	labelStr := StatLabelStyle.Render(label)
	valueStr := StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value))

	content := lipgloss.JoinVertical(lipgloss.Center, labelStr, valueStr)
	return style.Render(content)
}
