package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaosq/internal/runner"
	"chaosq/internal/stats"
)

func newTestModel(cancel func()) Model {
	cfg := runner.Config{Target: "http://localhost:8080", Users: 3, Duration: time.Second}
	return NewModel(cfg, make(runner.StatsUpdateChan, 1), cancel)
}

func TestModel_SnapshotUpdatesLiveView(t *testing.T) {
	m := newTestModel(nil)

	snap := stats.Snapshot{Counters: stats.Counters{RequestsIssued: 10, RequestsFailed: 2, ConnectionOpens: 3}}
	next, cmd := m.Update(snap)
	require.NotNil(t, cmd)

	got := next.(Model)
	assert.Equal(t, uint64(10), got.Live.Stats.RequestsIssued)
	assert.Contains(t, got.View(), "REQ:  10")
	assert.Contains(t, got.View(), "20.00%")
}

func TestModel_QuitCancelsRun(t *testing.T) {
	cancelled := false
	m := newTestModel(func() { cancelled = true })

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	got := next.(Model)

	assert.True(t, cancelled)
	assert.True(t, got.Quitting)
	assert.Contains(t, got.View(), "stopping")
}

func TestModel_DoneShowsVerdictUntilQuit(t *testing.T) {
	m := newTestModel(nil)

	next, cmd := m.Update(DoneMsg{
		Pass:     true,
		Reason:   "ok",
		Counters: stats.Counters{RequestsIssued: 4},
		Report:   "reports/report-x.json",
	})
	assert.Nil(t, cmd)

	view := next.(Model).View()
	assert.Contains(t, view, "PASS")
	assert.Contains(t, view, "Issued:       4")
	assert.Contains(t, view, "reports/report-x.json")

	_, cmd = next.(Model).Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	next, _ = m.Update(DoneMsg{Err: errors.New("disk full")})
	assert.Contains(t, next.(Model).View(), "disk full")
}
