package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaosq/internal/config"
)

func TestFlagsAreBoundToViper(t *testing.T) {
	keys := []string{
		config.KeyTarget, config.KeyProbeURL, config.KeyUsers, config.KeyDuration,
		config.KeyAbortProb, config.KeyChurnProb, config.KeyJitterMaxMs, config.KeyProbe,
		config.KeyToken, config.KeyReadPath, config.KeyStreamPath, config.KeyTimeout,
		config.KeyOutDir, config.KeyMetricsAddr, keyTUI, keyLogLevel,
	}
	for _, k := range keys {
		flag := rootCmd.Flags().Lookup(k)
		if flag == nil {
			flag = rootCmd.PersistentFlags().Lookup(k)
		}
		require.NotNil(t, flag, k)
		assert.Equal(t, flag.Value.String(), v.GetString(k), k)
	}
}

func TestFlagOverridesDefault(t *testing.T) {
	require.NoError(t, rootCmd.Flags().Set(config.KeyUsers, "7"))
	t.Cleanup(func() {
		f := rootCmd.Flags().Lookup(config.KeyUsers)
		f.Value.Set(f.DefValue)
		f.Changed = false
	})
	assert.Equal(t, 7, v.GetInt(config.KeyUsers))
}
