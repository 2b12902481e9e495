package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_Defaults(t *testing.T) {
	cfg, err := Resolve(viper.New())
	require.NoError(t, err)

	assert.Equal(t, DefaultTarget, cfg.Target)
	assert.Equal(t, 20, cfg.Users)
	assert.Equal(t, 90, cfg.DurationSec)
	assert.Equal(t, 90*time.Second, cfg.Duration())
	assert.Equal(t, 0.08, cfg.AbortProbability)
	assert.Equal(t, 0.05, cfg.ChurnProbability)
	assert.Equal(t, 250*time.Millisecond, cfg.JitterMax())
	assert.True(t, cfg.Probe)
	assert.False(t, cfg.TokenSupplied)
	assert.Equal(t, "/api/me", cfg.ReadPath)
	assert.Equal(t, "/ws", cfg.StreamPath)
	assert.Equal(t, 8*time.Second, cfg.RequestTimeout())
	assert.Equal(t, "reports", cfg.OutDir)
}

func TestResolve_Clamps(t *testing.T) {
	v := viper.New()
	v.Set(KeyUsers, 0)
	v.Set(KeyDuration, 3)
	v.Set(KeyAbortProb, 1.5)
	v.Set(KeyChurnProb, -0.2)
	v.Set(KeyJitterMaxMs, -10)
	v.Set(KeyTimeout, 600)
	v.Set(KeyReadPath, "health")
	v.Set(KeyTarget, "http://example.test:9000/")
	v.Set(KeyToken, " secret ")

	cfg, err := Resolve(v)
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Users)
	assert.Equal(t, 10, cfg.DurationSec)
	assert.Equal(t, 0.9, cfg.AbortProbability)
	assert.Equal(t, 0.0, cfg.ChurnProbability)
	assert.Equal(t, 0, cfg.JitterMaxMs)
	assert.Equal(t, MaxTimeoutSec, cfg.TimeoutSec)
	assert.Equal(t, "/health", cfg.ReadPath)
	assert.Equal(t, "http://example.test:9000", cfg.Target)
	assert.Equal(t, "secret", cfg.Token)
	assert.True(t, cfg.TokenSupplied)
}

func TestResolve_RejectsBadTarget(t *testing.T) {
	for _, target := range []string{"ftp://host", "localhost:8080", "http://"} {
		v := viper.New()
		v.Set(KeyTarget, target)
		_, err := Resolve(v)
		assert.Error(t, err, target)
	}
}

func TestResolve_ReadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chaosq.yaml")
	require.NoError(t, os.WriteFile(path, []byte("users: 7\nchurn-prob: 0.3\nprobe: false\n"), 0o644))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Resolve(v)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Users)
	assert.Equal(t, 0.3, cfg.ChurnProbability)
	assert.False(t, cfg.Probe)
}

func TestClampProbability(t *testing.T) {
	assert.Equal(t, 0.0, ClampProbability(math.NaN()))
	assert.Equal(t, 0.5, ClampProbability(0.5))
	assert.Equal(t, 0.9, ClampProbability(0.95))
}
