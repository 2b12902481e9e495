package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"chaosq/internal/banner"
	"chaosq/internal/config"
	"chaosq/internal/report"
	"chaosq/internal/tui/styles"
)

const rule = "======================================================================"

func printHeader(w io.Writer, cfg config.RunConfig) {
	fmt.Fprintln(w, banner.GetString())
	fmt.Fprintln(w, styles.Title.Render("STARTING CHAOS RUN"))
	fmt.Fprintln(w, styles.Row("Target", cfg.Target+cfg.ReadPath))
	fmt.Fprintln(w, styles.Row("Stream", cfg.StreamPath))
	fmt.Fprintln(w, styles.Row("Users", fmt.Sprintf("%d", cfg.Users)))
	fmt.Fprintln(w, styles.Row("Duration", cfg.Duration().String()))
	fmt.Fprintln(w, styles.Row("Abort / Churn", fmt.Sprintf("%.2f / %.2f", cfg.AbortProbability, cfg.ChurnProbability)))
	fmt.Fprintln(w, styles.Row("Jitter", cfg.JitterMax().String()))
	fmt.Fprintln(w, styles.Row("Timeout", cfg.RequestTimeout().String()))
	if cfg.Probe && cfg.ProbeURL != "" {
		fmt.Fprintln(w, styles.Row("Probe", cfg.ProbeURL))
	}
	fmt.Fprintln(w, rule)
}

func printSummary(w io.Writer, rep *report.Report, path string) {
	s := rep.Summary
	c := s.Counters

	fmt.Fprintln(w)
	fmt.Fprintln(w, styles.Title.Render("CHAOS RUN RESULTS"))
	fmt.Fprintln(w, styles.Row("Verdict", styles.Verdict(s.Pass)+" "+s.Reason))
	fmt.Fprintln(w, styles.Row("Elapsed", rep.FinishedAt.Sub(rep.StartedAt).Round(time.Millisecond).String()))
	fmt.Fprintln(w, styles.Row("Requests", fmt.Sprintf("%d issued, %d failed (%.2f%%)", c.RequestsIssued, c.RequestsFailed, s.FailureRate*100)))
	fmt.Fprintln(w, styles.Row("Connections", fmt.Sprintf("%d attempts, %d opens, %d closes, %d errors",
		c.ConnectionAttempts, c.ConnectionOpens, c.ConnectionCloses, c.ConnectionErrors)))
	fmt.Fprintln(w, styles.Row("Latency", fmt.Sprintf("mean %.1fms  p50 %.1fms  p90 %.1fms  p99 %.1fms",
		s.Latency.MeanMs, s.Latency.P50Ms, s.Latency.P90Ms, s.Latency.P99Ms)))
	fmt.Fprintln(w, styles.Row("Notes", strings.Join(s.Notes, "; ")))
	fmt.Fprintln(w, styles.Row("Report", path))
	fmt.Fprintln(w, rule)
}
