// Package progress renders a live view of one running batch: a spinner, a
// completion bar, and the pause before the next action.
package progress

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/PreboozedGoose/Vulture/internal/application"
	"github.com/PreboozedGoose/Vulture/internal/domain"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Event mirrors the executor's progress callback.
type Event struct {
	Completed int
	Total     int
	NextDelay time.Duration
}

type eventMsg Event

type doneMsg struct {
	result application.BatchResult
}

type model struct {
	spinner spinner.Model
	bar     progress.Model
	label   string

	events <-chan Event
	done   <-chan application.BatchResult

	completed int
	total     int
	nextDelay time.Duration
	result    *application.BatchResult
}

func newModel(label string, total int, events <-chan Event, done <-chan application.BatchResult) model {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return model{
		spinner: s,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
		label:   label,
		events:  events,
		done:    done,
		total:   total,
	}
}

func waitActivity(events <-chan Event, done <-chan application.BatchResult) tea.Cmd {
	return func() tea.Msg {
		select {
		case event := <-events:
			return eventMsg(event)
		case result := <-done:
			return doneMsg{result: result}
		}
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitActivity(m.events, m.done))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case eventMsg:
		m.completed = msg.Completed
		m.total = msg.Total
		m.nextDelay = msg.NextDelay
		return m, waitActivity(m.events, m.done)
	case doneMsg:
		result := msg.result
		m.result = &result
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m model) View() string {
	if m.result != nil {
		return ""
	}

	fraction := 0.0
	if m.total > 0 {
		fraction = float64(m.completed) / float64(m.total)
	}

	line := fmt.Sprintf("%s %s %s %d/%d", m.spinner.View(), m.label, m.bar.ViewAs(fraction), m.completed, m.total)
	if m.nextDelay > 0 && m.completed < m.total {
		line += fmt.Sprintf("  next action in %s", m.nextDelay.Round(time.Second))
	}
	return line + "\n"
}

// Summary formats the terminal line printed after the program exits.
func Summary(result application.BatchResult) string {
	line := fmt.Sprintf("%s: %d succeeded, %d failed, %d skipped",
		result.Status,
		result.CountOf(domain.OutcomeSucceeded),
		result.FailureCount(),
		result.CountOf(domain.OutcomeSkipped))
	if result.Reason != "" {
		line += fmt.Sprintf(" (%s)", result.Reason)
	}
	return line
}

// Run drives the view until the batch result arrives on done.
func Run(ctx context.Context, output io.Writer, label string, total int, events <-chan Event, done <-chan application.BatchResult) (application.BatchResult, error) {
	p := tea.NewProgram(
		newModel(label, total, events, done),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return application.BatchResult{}, err
	}

	final, ok := finalModel.(model)
	if !ok || final.result == nil {
		return application.BatchResult{}, fmt.Errorf("unexpected final progress model type %T", finalModel)
	}

	return *final.result, nil
}
