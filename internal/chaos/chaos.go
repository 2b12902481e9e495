// Package chaos decides when to inject network faults into a virtual user.
//
// Every trial is an independent Bernoulli draw, so no two users (and no two
// attempts of the same user) share a fault pattern.
package chaos

import (
	"math/rand"
	"sync"
	"time"
)

const (
	AbortDelayMin   = 25 * time.Millisecond
	AbortDelayMax   = 250 * time.Millisecond
	ChurnBackoffMin = 100 * time.Millisecond
	ChurnBackoffMax = 350 * time.Millisecond
)

// Config holds the fault probabilities for a run.
type Config struct {
	AbortProbability float64
	ChurnProbability float64
	JitterMax        time.Duration
}

// Injector draws fault trials. It is safe for concurrent use.
type Injector struct {
	cfg Config

	mu  sync.Mutex
	rng *rand.Rand
}

func NewInjector(cfg Config) *Injector {
	return NewInjectorWithSource(cfg, rand.NewSource(time.Now().UnixNano()))
}

// NewInjectorWithSource is used by tests that need a reproducible sequence.
func NewInjectorWithSource(cfg Config, src rand.Source) *Injector {
	return &Injector{
		cfg: cfg,
		rng: rand.New(src),
	}
}

func (i *Injector) Config() Config { return i.cfg }

// ShouldAbort is the per-request abort trial.
func (i *Injector) ShouldAbort() bool {
	return i.trial(i.cfg.AbortProbability)
}

// ShouldChurn is the per-iteration churn trial for an open connection.
func (i *Injector) ShouldChurn() bool {
	return i.trial(i.cfg.ChurnProbability)
}

// AbortDelay picks when an aborted request is cancelled. The delay is always
// strictly shorter than timeout so the abort fires first.
func (i *Injector) AbortDelay(timeout time.Duration) time.Duration {
	d := i.between(AbortDelayMin, AbortDelayMax)
	if timeout > 0 && d >= timeout {
		d = timeout / 2
	}
	return d
}

func (i *Injector) ChurnBackoff() time.Duration {
	return i.between(ChurnBackoffMin, ChurnBackoffMax)
}

// Jitter is the think time before each loop iteration.
func (i *Injector) Jitter() time.Duration {
	if i.cfg.JitterMax <= 0 {
		return 0
	}
	return i.between(0, i.cfg.JitterMax)
}

func (i *Injector) trial(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.rng.Float64() < p
}

// between returns a uniform duration in [min, max].
func (i *Injector) between(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	return min + time.Duration(i.rng.Int63n(int64(max-min)+1))
}
