package runner

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// VirtualUser drives one simulated end-user: connect, request loop with
// churn, disconnect. Its state is only touched by its own goroutine.
type VirtualUser struct {
	ID        string
	StartedAt time.Time

	token  string
	phase  Phase
	stream Stream
	r      *Runner
}

func newVirtualUser(id, token string, r *Runner) *VirtualUser {
	return &VirtualUser{
		ID:    id,
		token: token,
		phase: PhaseDisconnected,
		r:     r,
	}
}

// Phase is safe to read once Run has returned.
func (u *VirtualUser) Phase() Phase { return u.phase }

func (u *VirtualUser) Run(ctx context.Context, deadline time.Time) {
	inj := u.r.Injector
	u.StartedAt = time.Now()

	u.connect(ctx)

	for time.Now().Before(deadline) && ctx.Err() == nil {
		if !sleep(ctx, inj.Jitter()) {
			break
		}

		if u.phase == PhaseOpen && inj.ShouldChurn() {
			// OPEN -> CONNECTING, the backoff is part of reconnecting
			u.closeStream()
			u.setPhase(PhaseConnecting)
			if !sleep(ctx, inj.ChurnBackoff()) {
				break
			}
			u.connect(ctx)
		}

		u.request(ctx)
	}

	if u.phase == PhaseOpen {
		u.closeStream()
	}
	u.setPhase(PhaseClosed)
}

func (u *VirtualUser) setPhase(p Phase) {
	if p == u.phase {
		return
	}
	from := u.phase
	u.phase = p
	if u.r.OnPhase != nil {
		u.r.OnPhase(u.ID, from, p)
	}
}

func (u *VirtualUser) connect(ctx context.Context) {
	u.setPhase(PhaseConnecting)
	u.r.Stats.ConnectionAttempt()

	dctx, cancel := context.WithTimeout(ctx, u.r.Cfg.RequestTimeout)
	s, err := u.r.Dialer.Dial(dctx, u.token)
	cancel()

	if err != nil {
		u.setPhase(PhaseDisconnected)
		u.r.Stats.ConnectionFailed(u.ID, err)
		u.r.Log.Debug("connect failed", zap.String("user", u.ID), zap.Error(err))
		return
	}

	u.stream = s
	u.setPhase(PhaseOpen)
	u.r.Stats.ConnectionOpened(u.ID)
}

// closeStream closes the open stream; the caller sets the next phase.
func (u *VirtualUser) closeStream() {
	if err := u.stream.Close(); err != nil {
		u.r.Log.Debug("close", zap.String("user", u.ID), zap.Error(err))
	}
	u.stream = nil
	u.r.Stats.ConnectionClosed(u.ID)
}

// request issues one authenticated read. The hard timeout always applies;
// an abort trial may cancel it earlier.
func (u *VirtualUser) request(ctx context.Context) {
	timeout := u.r.Cfg.RequestTimeout
	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var aborted atomic.Bool
	if u.r.Injector.ShouldAbort() {
		t := time.AfterFunc(u.r.Injector.AbortDelay(timeout), func() {
			aborted.Store(true)
			cancel()
		})
		defer t.Stop()
	}

	start := time.Now()
	u.r.Stats.RequestStarted()
	err := u.do(rctx)
	switch {
	case err != nil && aborted.Load():
		err = fmt.Errorf("aborted: %w", err)
	case err != nil && ctx.Err() != nil:
		// the run is stopping; the target never answered
		u.r.Stats.RequestCancelled()
		u.r.Log.Debug("request cancelled", zap.String("user", u.ID))
		return
	}
	u.r.Stats.RequestDone(u.ID, time.Since(start), err)

	if err != nil {
		u.r.Log.Debug("request failed", zap.String("user", u.ID), zap.Error(err))
	}
}

func (u *VirtualUser) do(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.r.Cfg.ReadURL(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+u.token)
	req.Header.Set("X-Chaosq-User", u.ID)

	resp, err := u.r.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, err = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return err
}

// sleep waits for d or until ctx is done, reporting whether it slept fully.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
