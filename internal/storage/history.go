package storage

import (
	"errors"
	"time"

	"chaosq/internal/report"
	"chaosq/internal/stats"
)

var ErrNotFound = errors.New("run not found")

// HistoryItem indexes one persisted report.
type HistoryItem struct {
	ID        string     `json:"id"`
	Timestamp time.Time  `json:"timestamp"`
	Target    string     `json:"target"`
	Users     int        `json:"users"`
	Path      string     `json:"path"`
	Summary   RunSummary `json:"summary"`
}

type RunSummary struct {
	Pass        bool           `json:"pass"`
	Reason      string         `json:"reason"`
	FailureRate float64        `json:"failure_rate"`
	Counters    stats.Counters `json:"counters"`
	P99Ms       float64        `json:"p99_ms"`
}

func ItemFromReport(r *report.Report, path string) HistoryItem {
	return HistoryItem{
		ID:        r.ID,
		Timestamp: r.StartedAt,
		Target:    r.Config.Target,
		Users:     r.Config.Users,
		Path:      path,
		Summary: RunSummary{
			Pass:        r.Summary.Pass,
			Reason:      r.Summary.Reason,
			FailureRate: r.Summary.FailureRate,
			Counters:    r.Summary.Counters,
			P99Ms:       r.Summary.Latency.P99Ms,
		},
	}
}
