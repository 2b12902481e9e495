// Package result renders the end-of-run verdict panel.
package result

import (
	"fmt"
	"strings"

	"chaosq/internal/stats"
	"chaosq/internal/tui/styles"
)

type Model struct {
	Pass     bool
	Reason   string
	Counters stats.Counters
	Latency  stats.Latency
	Report   string
}

func (m Model) View() string {
	s := strings.Builder{}
	c := m.Counters

	s.WriteString(styles.Verdict(m.Pass) + " " + m.Reason)
	s.WriteString("\n\n")

	// 1. Requests
	s.WriteString(styles.Active.Render("Requests"))
	s.WriteString("\n")
	requests := fmt.Sprintf(
		"Issued:       %d\nFailed:       %d\nFailure rate: %.2f%%",
		c.RequestsIssued, c.RequestsFailed, c.FailureRate()*100,
	)
	s.WriteString(styles.Box.Render(requests))
	s.WriteString("\n\n")

	// 2. Connections
	s.WriteString(styles.Active.Render("Connections"))
	s.WriteString("\n")
	conns := fmt.Sprintf(
		"Attempts: %d\nOpens:    %d\nCloses:   %d\nErrors:   %d",
		c.ConnectionAttempts, c.ConnectionOpens, c.ConnectionCloses, c.ConnectionErrors,
	)
	s.WriteString(styles.Box.Render(conns))
	s.WriteString("\n\n")

	// 3. Latency
	s.WriteString(styles.Active.Render("Latency"))
	s.WriteString("\n")
	latency := fmt.Sprintf(
		"Avg: %.2f ms\nP50: %.2f ms\nP90: %.2f ms\nP99: %.2f ms\nMax: %.2f ms",
		m.Latency.MeanMs, m.Latency.P50Ms, m.Latency.P90Ms, m.Latency.P99Ms, m.Latency.MaxMs,
	)
	s.WriteString(styles.Box.Render(latency))
	s.WriteString("\n")

	if m.Report != "" {
		s.WriteString("\n")
		s.WriteString(styles.Subtle.Render(m.Report))
		s.WriteString("\n")
	}
	return s.String()
}
