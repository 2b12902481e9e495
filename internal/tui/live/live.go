package live

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"chaosq/internal/stats"
	"chaosq/internal/tui/components"
	"chaosq/internal/tui/styles"
	"chaosq/internal/verdict"
)

// Model renders the counters of a running chaos test.
type Model struct {
	Stats    stats.Snapshot
	Progress progress.Model

	RateLine    components.Sparkline
	LatencyLine components.Sparkline

	StartTime  time.Time
	Duration   time.Duration
	LastUpdate time.Time
	LastReqs   uint64

	Width  int
	Height int
}

func NewModel(totalDur time.Duration) Model {
	return Model{
		Progress:    progress.New(progress.WithDefaultGradient()),
		RateLine:    components.NewSparkline(40, "req/s", "", styles.Active),
		LatencyLine: components.NewSparkline(40, "p90", "ms", styles.Warn),
		StartTime:   time.Now(),
		Duration:    totalDur,
		LastUpdate:  time.Now(),
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stats.Snapshot:
		now := time.Now()
		dt := now.Sub(m.LastUpdate).Seconds()
		if dt < 0.01 {
			dt = 0.01
		}

		// 1. Request rate since the last snapshot
		delta := msg.RequestsIssued - m.LastReqs
		m.RateLine.Add(float64(delta) / dt)
		m.LatencyLine.Add(msg.Latency.P90Ms)

		// 2. Update State
		m.Stats = msg
		m.LastReqs = msg.RequestsIssued
		m.LastUpdate = now

		// 3. Update Progress
		pct := 1.0
		if m.Duration > 0 {
			pct = float64(time.Since(m.StartTime)) / float64(m.Duration)
		}
		if pct > 1.0 {
			pct = 1.0
		}
		return m, m.Progress.SetPercent(pct)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Progress.Width = msg.Width - 4

		half := (msg.Width / 2) - 6
		if half < 10 {
			half = 10
		}
		m.RateLine.Width = half
		m.LatencyLine.Width = half
		return m, nil

	case progress.FrameMsg:
		prog, cmd := m.Progress.Update(msg)
		m.Progress = prog.(progress.Model)
		return m, cmd
	}

	return m, nil
}

// FailureStyle colours the failure rate against the verdict threshold.
func FailureStyle(rate float64) lipgloss.Style {
	switch {
	case rate >= verdict.MaxFailureRate:
		return styles.Fail
	case rate >= verdict.MaxFailureRate/2:
		return styles.Warn
	default:
		return styles.Pass
	}
}

func (m Model) View() string {
	s := strings.Builder{}
	c := m.Stats.Counters
	rate := c.FailureRate()

	requests := fmt.Sprintf("REQ:  %d\nFAIL: %d\nINF:  %d",
		c.RequestsIssued, c.RequestsFailed, m.Stats.Inflight)
	failure := FailureStyle(rate).Render(fmt.Sprintf("FAIL RATE\n%.2f%%", rate*100))
	conns := fmt.Sprintf("CONN: %d/%d\nCLOSE: %d\nERR:  %d",
		c.ConnectionOpens, c.ConnectionAttempts, c.ConnectionCloses, c.ConnectionErrors)

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(requests),
		styles.Box.Render(failure),
		styles.Box.Render(conns),
	))
	s.WriteString("\n\n")

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(m.RateLine.View()),
		styles.Box.Render(m.LatencyLine.View()),
	))
	s.WriteString("\n\n")

	s.WriteString(styles.Subtle.Render(fmt.Sprintf(
		"P50: %.1f ms  |  P90: %.1f ms  |  P99: %.1f ms  |  Max: %.1f ms  |  events: %d",
		m.Stats.Latency.P50Ms, m.Stats.Latency.P90Ms, m.Stats.Latency.P99Ms, m.Stats.Latency.MaxMs, m.Stats.Events,
	)))
	s.WriteString("\n\n")
	s.WriteString(m.Progress.View())

	return s.String()
}
