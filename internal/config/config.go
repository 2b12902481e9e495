// Package config resolves the immutable configuration of a chaos run.
package config

import (
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Keys shared by flags, the config file and CHAOSQ_* environment variables.
const (
	KeyTarget      = "target"
	KeyProbeURL    = "probe-url"
	KeyUsers       = "users"
	KeyDuration    = "duration"
	KeyAbortProb   = "abort-prob"
	KeyChurnProb   = "churn-prob"
	KeyJitterMaxMs = "jitter-max-ms"
	KeyProbe       = "probe"
	KeyToken       = "token"
	KeyReadPath    = "read-path"
	KeyStreamPath  = "stream-path"
	KeyTimeout     = "timeout"
	KeyOutDir      = "out"
	KeyMetricsAddr = "metrics-addr"
)

const (
	DefaultTarget      = "http://localhost:8080"
	DefaultUsers       = 20
	DefaultDurationSec = 90
	DefaultAbortProb   = 0.08
	DefaultChurnProb   = 0.05
	DefaultJitterMaxMs = 250
	DefaultReadPath    = "/api/me"
	DefaultStreamPath  = "/ws"
	DefaultTimeoutSec  = 8
	DefaultOutDir      = "reports"

	MinUsers       = 1
	MinDurationSec = 10
	MaxProbability = 0.9
	MinTimeoutSec  = 1
	MaxTimeoutSec  = 60
)

// RunConfig is the resolved configuration snapshot. It is not modified after Resolve.
type RunConfig struct {
	Target           string  `json:"target"`
	ProbeURL         string  `json:"probe_url,omitempty"`
	Users            int     `json:"users"`
	DurationSec      int     `json:"duration_sec"`
	AbortProbability float64 `json:"abort_probability"`
	ChurnProbability float64 `json:"churn_probability"`
	JitterMaxMs      int     `json:"jitter_max_ms"`
	Probe            bool    `json:"probe"`
	Token            string  `json:"-"`
	TokenSupplied    bool    `json:"token_supplied"`

	ReadPath    string `json:"read_path"`
	StreamPath  string `json:"stream_path"`
	TimeoutSec  int    `json:"timeout_sec"`
	OutDir      string `json:"out_dir"`
	MetricsAddr string `json:"metrics_addr,omitempty"`
}

func (c RunConfig) Duration() time.Duration {
	return time.Duration(c.DurationSec) * time.Second
}

func (c RunConfig) JitterMax() time.Duration {
	return time.Duration(c.JitterMaxMs) * time.Millisecond
}

func (c RunConfig) RequestTimeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyTarget, DefaultTarget)
	v.SetDefault(KeyProbeURL, "")
	v.SetDefault(KeyUsers, DefaultUsers)
	v.SetDefault(KeyDuration, DefaultDurationSec)
	v.SetDefault(KeyAbortProb, DefaultAbortProb)
	v.SetDefault(KeyChurnProb, DefaultChurnProb)
	v.SetDefault(KeyJitterMaxMs, DefaultJitterMaxMs)
	v.SetDefault(KeyProbe, true)
	v.SetDefault(KeyToken, "")
	v.SetDefault(KeyReadPath, DefaultReadPath)
	v.SetDefault(KeyStreamPath, DefaultStreamPath)
	v.SetDefault(KeyTimeout, DefaultTimeoutSec)
	v.SetDefault(KeyOutDir, DefaultOutDir)
	v.SetDefault(KeyMetricsAddr, "")
}

// Resolve reads v once, applying defaults and clamping out-of-range values.
func Resolve(v *viper.Viper) (RunConfig, error) {
	SetDefaults(v)

	cfg := RunConfig{
		Target:           strings.TrimRight(strings.TrimSpace(v.GetString(KeyTarget)), "/"),
		ProbeURL:         strings.TrimSpace(v.GetString(KeyProbeURL)),
		Users:            atLeast(v.GetInt(KeyUsers), MinUsers),
		DurationSec:      atLeast(v.GetInt(KeyDuration), MinDurationSec),
		AbortProbability: ClampProbability(v.GetFloat64(KeyAbortProb)),
		ChurnProbability: ClampProbability(v.GetFloat64(KeyChurnProb)),
		JitterMaxMs:      atLeast(v.GetInt(KeyJitterMaxMs), 0),
		Probe:            v.GetBool(KeyProbe),
		Token:            strings.TrimSpace(v.GetString(KeyToken)),
		ReadPath:         withSlash(v.GetString(KeyReadPath), DefaultReadPath),
		StreamPath:       withSlash(v.GetString(KeyStreamPath), DefaultStreamPath),
		TimeoutSec:       clampInt(v.GetInt(KeyTimeout), MinTimeoutSec, MaxTimeoutSec),
		OutDir:           strings.TrimSpace(v.GetString(KeyOutDir)),
		MetricsAddr:      strings.TrimSpace(v.GetString(KeyMetricsAddr)),
	}
	cfg.TokenSupplied = cfg.Token != ""

	if cfg.Target == "" {
		cfg.Target = DefaultTarget
	}
	if cfg.OutDir == "" {
		cfg.OutDir = DefaultOutDir
	}

	u, err := url.Parse(cfg.Target)
	if err != nil {
		return RunConfig{}, fmt.Errorf("parse target %q: %w", cfg.Target, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return RunConfig{}, fmt.Errorf("target %q: scheme must be http or https", cfg.Target)
	}
	if u.Host == "" {
		return RunConfig{}, fmt.Errorf("target %q: missing host", cfg.Target)
	}

	return cfg, nil
}

// ClampProbability forces p into [0, 0.9]. NaN counts as 0.
func ClampProbability(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > MaxProbability {
		return MaxProbability
	}
	return p
}

func atLeast(v, min int) int {
	if v < min {
		return min
	}
	return v
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func withSlash(p, def string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return def
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
