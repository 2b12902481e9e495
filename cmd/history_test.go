package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaosq/internal/stats"
	"chaosq/internal/storage"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func seedHistory(t *testing.T, dir string) {
	t.Helper()
	store, err := storage.NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(storage.HistoryItem{
		ID:        "20261019T120000Z-abcd1234",
		Timestamp: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
		Target:    "http://localhost:8080",
		Users:     20,
		Path:      dir + "/report-20261019T120000Z-abcd1234.json",
		Summary: storage.RunSummary{
			Pass:        true,
			Reason:      "ok",
			FailureRate: 0.05,
			Counters:    stats.Counters{RequestsIssued: 100, RequestsFailed: 5},
		},
	}))
}

func TestHistoryList_Empty(t *testing.T) {
	dir := t.TempDir()
	stdout, stderr, err := execute(t, "history", "list", "--out", dir)
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "no runs recorded in "+dir)
}

func TestHistoryListAndShow(t *testing.T) {
	dir := t.TempDir()
	seedHistory(t, dir)

	stdout, _, err := execute(t, "history", "list", "--out", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "20261019T120000Z-abcd1234")
	assert.Contains(t, stdout, "PASS")
	assert.Contains(t, stdout, "5.00%")

	stdout, _, err = execute(t, "history", "show", "20261019T120000Z-abcd1234", "--out", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, `"requests_issued": 100`)
}

func TestHistoryShow_Unknown(t *testing.T) {
	_, _, err := execute(t, "history", "show", "nope", "--out", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no run with id "nope"`)
}

func TestHistoryTable_ColumnsStayAligned(t *testing.T) {
	items := []storage.HistoryItem{
		{ID: "a", Target: "http://localhost:8080", Users: 5, Summary: storage.RunSummary{Pass: true}},
		{ID: "bbbbbbbb", Target: "https://svc.example", Users: 200, Summary: storage.RunSummary{Pass: false, FailureRate: 0.5}},
	}

	out := historyTable(items).Render()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Greater(t, len(lines), 3)

	width := lipgloss.Width(lines[0])
	for _, line := range lines {
		assert.Equal(t, width, lipgloss.Width(line), line)
	}
	assert.Contains(t, out, "VERDICT")
	assert.Contains(t, out, "PASS")
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "50.00%")
}
