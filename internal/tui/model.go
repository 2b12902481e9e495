// Package tui is the optional live terminal view of a chaos run.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"chaosq/internal/runner"
	"chaosq/internal/stats"
	"chaosq/internal/tui/live"
	"chaosq/internal/tui/result"
	"chaosq/internal/tui/styles"
)

// DoneMsg tells the view the run is over.
type DoneMsg struct {
	Pass     bool
	Reason   string
	Counters stats.Counters
	Latency  stats.Latency
	Report   string
	Err      error
}

type Model struct {
	Cfg     runner.Config
	Updates runner.StatsUpdateChan
	Live    live.Model

	// Cancel stops the run when the operator quits early.
	Cancel func()

	Done     *DoneMsg
	Quitting bool
}

func NewModel(cfg runner.Config, updates runner.StatsUpdateChan, cancel func()) Model {
	return Model{
		Cfg:     cfg,
		Updates: updates,
		Live:    live.NewModel(cfg.Duration),
		Cancel:  cancel,
	}
}

func waitForUpdate(sub runner.StatsUpdateChan) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-sub
		if !ok {
			return nil
		}
		return s
	}
}

func (m Model) Init() tea.Cmd {
	return waitForUpdate(m.Updates)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.Done != nil {
				return m, tea.Quit
			}
			// Stop the run; the report is still written
			m.Quitting = true
			if m.Cancel != nil {
				m.Cancel()
			}
			return m, nil
		}
		return m, nil

	case DoneMsg:
		// keep the verdict on screen until the operator leaves
		m.Done = &msg
		return m, nil

	case stats.Snapshot:
		var cmd tea.Cmd
		m.Live, cmd = m.Live.Update(msg)
		return m, tea.Batch(cmd, waitForUpdate(m.Updates))
	}

	// window size, progress frames
	var cmd tea.Cmd
	m.Live, cmd = m.Live.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	s := strings.Builder{}

	s.WriteString(styles.Title.Render("chaosq"))
	s.WriteString("\n")
	s.WriteString(styles.Subtle.Render(fmt.Sprintf(
		"%s | users %d | abort %.2f | churn %.2f | %s",
		m.Cfg.Target, m.Cfg.Users, m.Cfg.Chaos.AbortProbability, m.Cfg.Chaos.ChurnProbability,
		time.Since(m.Live.StartTime).Round(time.Second),
	)))
	s.WriteString("\n\n")
	s.WriteString(m.Live.View())
	s.WriteString("\n")

	switch {
	case m.Done != nil && m.Done.Err != nil:
		s.WriteString(styles.Fail.Render("error: " + m.Done.Err.Error()))
	case m.Done != nil:
		s.WriteString(result.Model{
			Pass:     m.Done.Pass,
			Reason:   m.Done.Reason,
			Counters: m.Done.Counters,
			Latency:  m.Done.Latency,
			Report:   m.Done.Report,
		}.View())
		s.WriteString(styles.Subtle.Render("Press q to quit"))
	case m.Quitting:
		s.WriteString(styles.Warn.Render("stopping, closing connections..."))
	default:
		s.WriteString(styles.Subtle.Render("Press q to stop"))
	}
	s.WriteString("\n")
	return s.String()
}
