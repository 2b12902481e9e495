// Package report assembles and persists the record of one run.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"chaosq/internal/config"
	"chaosq/internal/stats"
	"chaosq/internal/verdict"
)

type Summary struct {
	verdict.Verdict
	Counters stats.Counters `json:"counters"`
	Latency  stats.Latency  `json:"latency"`
}

type Report struct {
	ID         string           `json:"id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Config     config.RunConfig `json:"config"`
	Summary    Summary          `json:"summary"`
	Events     []stats.Event    `json:"events"`
	// EventsTotal counts events appended during the run, including discarded ones.
	EventsTotal uint64 `json:"events_total"`
}

// Build freezes the aggregator state into a report. Call it only after every
// virtual user has finished.
func Build(cfg config.RunConfig, started, finished time.Time, agg *stats.Aggregator, v verdict.Verdict) *Report {
	events := agg.Events.Tail()
	if len(events) > stats.MaxEvents {
		events = events[len(events)-stats.MaxEvents:]
	}
	return &Report{
		ID:         NewID(started),
		StartedAt:  started.UTC(),
		FinishedAt: finished.UTC(),
		Config:     cfg,
		Summary: Summary{
			Verdict:  v,
			Counters: agg.Counters(),
			Latency:  agg.Latency(),
		},
		Events:      events,
		EventsTotal: agg.Events.Total(),
	}
}

// NewID is a UTC timestamp plus a random suffix so runs started in the same
// second never share a file.
func NewID(t time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return t.UTC().Format("20060102T150405Z") + "-" + suffix
}

func FileName(id string) string {
	return "report-" + id + ".json"
}

// Write stores r under dir and returns the file path. It refuses to
// overwrite an existing file.
func Write(dir string, r *Report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}

	path := filepath.Join(dir, FileName(r.ID))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", fmt.Errorf("write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close report: %w", err)
	}
	return path, nil
}

func Read(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &r, nil
}
