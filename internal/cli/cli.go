// Package cli runs one chaos test end to end: probe, virtual users, verdict,
// report, summary line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"chaosq/internal/auth"
	"chaosq/internal/chaos"
	"chaosq/internal/config"
	"chaosq/internal/metrics"
	"chaosq/internal/probe"
	"chaosq/internal/report"
	"chaosq/internal/runner"
	"chaosq/internal/stats"
	"chaosq/internal/storage"
	"chaosq/internal/tui"
	"chaosq/internal/verdict"
)

// OrchestratorID owns events that do not belong to a virtual user.
const OrchestratorID = "orchestrator"

type Options struct {
	Config config.RunConfig
	TUI    bool

	Log    *zap.Logger
	Prober probe.Prober
	Stdout io.Writer
	Stderr io.Writer

	// ProgressInterval is how often headless runs log progress.
	ProgressInterval time.Duration
}

// SummaryLine is the single machine-readable line written to stdout.
type SummaryLine struct {
	Pass        bool           `json:"pass"`
	Reason      string         `json:"reason"`
	Report      string         `json:"report"`
	FailureRate float64        `json:"failure_rate"`
	Counters    stats.Counters `json:"counters"`
}

type Result struct {
	Report *report.Report
	Path   string
}

func (o *Options) applyDefaults() {
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	if o.Prober == nil {
		o.Prober = probe.NewBrowser()
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.ProgressInterval <= 0 {
		o.ProgressInterval = 5 * time.Second
	}
}

// Start executes the run. Only setup and persistence failures are returned;
// a failing verdict is not an error.
func Start(ctx context.Context, opts Options) (*Result, error) {
	opts.applyDefaults()
	cfg := opts.Config
	log := opts.Log

	if !opts.TUI {
		printHeader(opts.Stderr, cfg)
	}

	// 1. Output location must exist before anything runs
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", cfg.OutDir, err)
	}

	tokens, err := auth.New(cfg.Token)
	if err != nil {
		return nil, err
	}
	agg := stats.NewAggregator()

	run, err := runner.NewRunner(runnerConfig(cfg), agg, tokens, log)
	if err != nil {
		return nil, err
	}

	// 2. Optional metrics endpoint
	if cfg.MetricsAddr != "" {
		ms, err := metrics.Serve(cfg.MetricsAddr, agg, log)
		if err != nil {
			return nil, fmt.Errorf("metrics server: %w", err)
		}
		defer ms.Shutdown(context.Background())
		log.Info("serving metrics", zap.String("addr", ms.Addr()))
	}

	started := time.Now()

	// 3. Best-effort probe alongside the run, cut off when the users finish
	probeCtx, cancelProbe := context.WithCancel(ctx)
	defer cancelProbe()

	var probeWG sync.WaitGroup
	if cfg.Probe && cfg.ProbeURL != "" {
		probeWG.Add(1)
		go func() {
			defer probeWG.Done()
			runProbe(probeCtx, opts.Prober, cfg.ProbeURL, agg, log)
		}()
	}

	// Verdict and report, once every user and the probe are done
	finish := func() (*Result, error) {
		cancelProbe()
		probeWG.Wait()
		finished := time.Now()

		v := verdict.Evaluate(agg.Counters(), cfg.Users, tokens.Source())
		rep := report.Build(cfg, started, finished, agg, v)

		path, err := persist(cfg.OutDir, rep)
		if err != nil {
			return nil, err
		}
		log.Info("run complete",
			zap.Bool("pass", v.Pass),
			zap.String("report", path),
			zap.Duration("elapsed", finished.Sub(started)),
		)
		return &Result{Report: rep, Path: path}, nil
	}

	// 4. Virtual users
	var res *Result
	if opts.TUI {
		res, err = runWithTUI(ctx, run, finish, log)
	} else if err = runHeadless(ctx, run, opts.ProgressInterval, log); err == nil {
		res, err = finish()
	}
	if err != nil {
		return nil, err
	}

	if !opts.TUI {
		printSummary(opts.Stderr, res.Report, res.Path)
	}
	if err := writeSummaryLine(opts.Stdout, res.Report, res.Path); err != nil {
		return nil, err
	}
	return res, nil
}

func runnerConfig(cfg config.RunConfig) runner.Config {
	return runner.Config{
		Target:         cfg.Target,
		ReadPath:       cfg.ReadPath,
		StreamPath:     cfg.StreamPath,
		Users:          cfg.Users,
		Duration:       cfg.Duration(),
		RequestTimeout: cfg.RequestTimeout(),
		Chaos: chaos.Config{
			AbortProbability: cfg.AbortProbability,
			ChurnProbability: cfg.ChurnProbability,
			JitterMax:        cfg.JitterMax(),
		},
	}
}

func runProbe(ctx context.Context, p probe.Prober, url string, agg *stats.Aggregator, log *zap.Logger) {
	res, err := p.Probe(ctx, url)
	if err != nil {
		agg.Emit(OrchestratorID, stats.EventProbeFailed, err.Error())
		log.Warn("sanity probe failed", zap.String("url", url), zap.Error(err))
		return
	}
	agg.Emit(OrchestratorID, stats.EventProbeOK, fmt.Sprintf("%q in %s", res.Title, res.Duration.Round(time.Millisecond)))
	log.Info("sanity probe ok", zap.String("url", url), zap.String("title", res.Title))
}

// runHeadless mirrors the TUI loop with periodic progress logs.
func runHeadless(ctx context.Context, run *runner.Runner, every time.Duration, log *zap.Logger) error {
	done := make(chan error, 1)
	go func() { done <- run.Run(ctx) }()

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case err := <-done:
			return err
		case <-ticker.C:
			c := run.Stats.Counters()
			log.Info("progress",
				zap.Uint64("requests", c.RequestsIssued),
				zap.Uint64("failed", c.RequestsFailed),
				zap.Uint64("opens", c.ConnectionOpens),
				zap.Uint64("conn_errors", c.ConnectionErrors),
			)
		}
	}
}

// runWithTUI keeps the dashboard up until the operator quits after the verdict.
func runWithTUI(ctx context.Context, run *runner.Runner, finish func() (*Result, error), log *zap.Logger) (*Result, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	run.Updates = make(runner.StatsUpdateChan, 100)
	p := tea.NewProgram(tui.NewModel(run.Cfg, run.Updates, cancel), tea.WithAltScreen())

	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		var o outcome
		if o.err = run.Run(runCtx); o.err == nil {
			o.res, o.err = finish()
		}
		done <- o

		msg := tui.DoneMsg{Err: o.err}
		if o.res != nil {
			s := o.res.Report.Summary
			msg.Pass = s.Pass
			msg.Reason = s.Reason
			msg.Counters = s.Counters
			msg.Latency = s.Latency
			msg.Report = o.res.Path
		}
		p.Send(msg)
	}()

	if _, err := p.Run(); err != nil {
		log.Warn("live view unavailable, continuing headless", zap.Error(err))
	}
	o := <-done
	return o.res, o.err
}

func persist(dir string, rep *report.Report) (string, error) {
	path, err := report.Write(dir, rep)
	if err != nil {
		return "", err
	}

	store, err := storage.NewStore(dir)
	if err != nil {
		return "", fmt.Errorf("open history: %w", err)
	}
	defer store.Close()

	if err := store.Save(storage.ItemFromReport(rep, path)); err != nil {
		return "", fmt.Errorf("record history: %w", err)
	}
	return path, nil
}

func writeSummaryLine(w io.Writer, rep *report.Report, path string) error {
	line := SummaryLine{
		Pass:        rep.Summary.Pass,
		Reason:      rep.Summary.Reason,
		Report:      path,
		FailureRate: rep.Summary.FailureRate,
		Counters:    rep.Summary.Counters,
	}
	if err := json.NewEncoder(w).Encode(line); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}
