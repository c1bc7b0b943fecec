package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/justapithecus/contribuart/runtime"
	"github.com/justapithecus/contribuart/types"
)

const maxBarWidth = 60

// EventMsg delivers one progress event to the paint view.
type EventMsg types.ProgressEvent

// FinishedMsg reports that the paint function returned.
type FinishedMsg struct {
	Err error
}

// PaintModel follows a paint's progress events. Quitting before the terminal
// event cancels the paint and waits for it to stop at a commit boundary.
type PaintModel struct {
	title      string
	bar        progress.Model
	last       types.ProgressEvent
	cancel     context.CancelFunc
	cancelling bool
	done       bool
	err        error
}

// NewPaintModel creates a paint view for total commits. cancel is invoked on
// the first quit key.
func NewPaintModel(title string, total int, cancel context.CancelFunc) PaintModel {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = maxBarWidth
	return PaintModel{
		title:  title,
		bar:    bar,
		last:   types.ProgressEvent{Total: total},
		cancel: cancel,
	}
}

// Init implements tea.Model.
func (m PaintModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m PaintModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = min(msg.Width-4, maxBarWidth)
		return m, nil

	case tea.KeyMsg:
		if !key.Matches(msg, keys.Quit) {
			return m, nil
		}
		if m.done {
			return m, tea.Quit
		}
		if !m.cancelling {
			m.cancelling = true
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil

	case EventMsg:
		m.last = types.ProgressEvent(msg)
		if m.last.Done {
			m.done = true
			return m, tea.Quit
		}
		return m, nil

	case FinishedMsg:
		m.err = msg.Err
		m.done = true
		return m, tea.Quit
	}

	return m, nil
}

// Percent returns the fraction of commits created.
func (m PaintModel) Percent() float64 {
	if m.last.Total <= 0 {
		if m.done && !m.last.IsError() {
			return 1
		}
		return 0
	}
	return min(float64(m.last.Progress)/float64(m.last.Total), 1)
}

// Last returns the most recent event.
func (m PaintModel) Last() types.ProgressEvent {
	return m.last
}

// View implements tea.Model.
func (m PaintModel) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(m.title))
	b.WriteString("\n")
	b.WriteString(m.bar.ViewAs(m.Percent()))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n",
		LabelStyle.Render("Commits:"),
		ValueStyle.Render(fmt.Sprintf("%d/%d", m.last.Progress, m.last.Total)))

	if m.last.Message != "" {
		b.WriteString(m.messageStyle().Render(m.last.Message))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(ErrorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}

	switch {
	case m.done:
	case m.cancelling:
		b.WriteString(HelpStyle.Render("Cancelling at the next commit..."))
	default:
		b.WriteString(HelpStyle.Render("Press q or Ctrl+C to cancel"))
	}
	return b.String()
}

func (m PaintModel) messageStyle() lipgloss.Style {
	switch {
	case m.last.IsError():
		return ErrorStyle
	case m.last.Done && m.last.Progress < m.last.Total:
		return WarningStyle
	case m.last.Done:
		return SuccessStyle
	default:
		return ValueStyle
	}
}

// ProgramSink forwards progress events into a running program.
type ProgramSink struct {
	p *tea.Program
}

// Send implements runtime.ProgressSink.
func (s ProgramSink) Send(event types.ProgressEvent) error {
	s.p.Send(EventMsg(event))
	return nil
}

var _ runtime.ProgressSink = ProgramSink{}

// RunPaint shows the paint view while paint runs on its own goroutine. paint
// receives a context cancelled by the quit key and a sink feeding the view.
// It returns the last event seen and paint's error.
func RunPaint(ctx context.Context, title string, total int, paint func(ctx context.Context, sink runtime.ProgressSink) error) (types.ProgressEvent, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewPaintModel(title, total, cancel))

	errCh := make(chan error, 1)
	go func() {
		err := paint(ctx, ProgramSink{p: p})
		p.Send(FinishedMsg{Err: err})
		errCh <- err
	}()

	final, runErr := p.Run()
	if runErr != nil {
		cancel()
		<-errCh
		return types.ProgressEvent{}, fmt.Errorf("paint view: %w", runErr)
	}

	paintErr := <-errCh
	if pm, ok := final.(PaintModel); ok {
		return pm.Last(), paintErr
	}
	return types.ProgressEvent{}, paintErr
}
