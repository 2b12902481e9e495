package runner

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"chaosq/internal/auth"
	"chaosq/internal/chaos"
	"chaosq/internal/stats"
)

// StatsUpdateChan carries periodic snapshots to live views.
type StatsUpdateChan chan stats.Snapshot

type Runner struct {
	Cfg      Config
	Stats    *stats.Aggregator
	Client   *http.Client
	Dialer   Dialer
	Tokens   auth.TokenProvider
	Injector *chaos.Injector
	Log      *zap.Logger

	// Users is populated by Run.
	Users   []*VirtualUser
	started atomic.Int64

	// Event Channel, optional
	Updates StatsUpdateChan

	// OnPhase, if set, sees every phase change of every user. It is called
	// from the user goroutines.
	OnPhase func(userID string, from, to Phase)
}

func NewRunner(cfg Config, agg *stats.Aggregator, tokens auth.TokenProvider, log *zap.Logger) (*Runner, error) {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 2000
	t.MaxConnsPerHost = 2000
	t.MaxIdleConnsPerHost = 2000
	t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}

	streamURL, err := cfg.StreamURL()
	if err != nil {
		return nil, fmt.Errorf("stream url: %w", err)
	}
	dialer := NewWSDialer(streamURL, cfg.RequestTimeout)
	dialer.Dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}

	if log == nil {
		log = zap.NewNop()
	}
	if agg == nil {
		agg = stats.NewAggregator()
	}

	return &Runner{
		Cfg:      cfg,
		Stats:    agg,
		Client:   &http.Client{Transport: t},
		Dialer:   dialer,
		Tokens:   tokens,
		Injector: chaos.NewInjector(cfg.Chaos),
		Log:      log,
	}, nil
}

// Started reports how many virtual users have begun running.
func (r *Runner) Started() int64 {
	return r.started.Load()
}

// StartTickLoop starts a goroutine that pushes stats updates
func (r *Runner) StartTickLoop(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sendUpdate()
			}
		}
	}()
}

func (r *Runner) sendUpdate() {
	// Non-blocking send
	select {
	case r.Updates <- r.Stats.Snapshot():
	default:
		// Drop update if channel full, UI acts as backpressure
	}
}

// Run spawns Cfg.Users virtual users and blocks until every one of them has
// finished. Individual user faults never stop the run.
func (r *Runner) Run(ctx context.Context) error {
	// 1. Mint credentials up front; each user owns its own
	users := make([]*VirtualUser, r.Cfg.Users)
	for i := range users {
		id := fmt.Sprintf("user-%d", i+1)
		tok, err := r.Tokens.Token(id)
		if err != nil {
			return fmt.Errorf("token for %s: %w", id, err)
		}
		users[i] = newVirtualUser(id, tok, r)
	}
	r.Users = users

	// 2. Live updates
	tickCtx, stopTicks := context.WithCancel(ctx)
	defer stopTicks()
	if r.Updates != nil {
		r.StartTickLoop(tickCtx, 200*time.Millisecond)
	}

	// 3. Spawn and join
	deadline := time.Now().Add(r.Cfg.Duration)
	r.Log.Info("starting virtual users",
		zap.Int("users", len(users)),
		zap.Duration("duration", r.Cfg.Duration),
		zap.String("target", r.Cfg.Target),
	)

	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func(u *VirtualUser) {
			defer wg.Done()
			r.started.Add(1)
			u.Run(ctx, deadline)
		}(u)
	}
	wg.Wait()

	if r.Updates != nil {
		r.sendUpdate()
	}
	r.Log.Info("virtual users finished", zap.Int64("users", r.Started()))
	return nil
}
