package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"chaosq/internal/banner"
	"chaosq/internal/cli"
	"chaosq/internal/config"
	"chaosq/internal/logging"
)

const (
	keyTUI      = "tui"
	keyLogLevel = "log-level"
	envPrefix   = "CHAOSQ"
)

var (
	cfgFile string
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "chaosq",
	Short: "chaosq - client-driven chaos testing for realtime services",
	Long: `
chaosq simulates many concurrent users against an HTTP API and its
streaming endpoint, injects aborted requests and connection churn,
and renders a pass/fail verdict plus a JSON report.

Runs headless by default. Pass --tui for the live dashboard.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Resolve(v)
		if err != nil {
			return err
		}

		tui := v.GetBool(keyTUI)
		level := v.GetString(keyLogLevel)
		if tui {
			// keep the alt screen clean
			level = "error"
		}
		log, err := logging.New(level)
		if err != nil {
			return err
		}
		defer log.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Info("starting run",
			zap.String("target", cfg.Target),
			zap.Int("users", cfg.Users),
			zap.Duration("duration", cfg.Duration()),
		)
		_, err = cli.Start(ctx, cli.Options{
			Config: cfg,
			TUI:    tui,
			Log:    log,
			Stdout: cmd.OutOrStdout(),
			Stderr: cmd.ErrOrStderr(),
		})
		return err
	},
}

func Execute() {
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.ErrOrStderr(), banner.GetString())
		cmd.Usage()
	})

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(dummyCmd)
	rootCmd.AddCommand(historyCmd)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.chaosq.yaml)")
	rootCmd.PersistentFlags().String(keyLogLevel, "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringP(config.KeyOutDir, "o", config.DefaultOutDir, "Directory for reports and the history index")

	f := rootCmd.Flags()
	f.StringP(config.KeyTarget, "u", config.DefaultTarget, "Base URL of the service under test")
	f.String(config.KeyProbeURL, "", "Frontend URL for the headless-browser sanity probe")
	f.IntP(config.KeyUsers, "U", config.DefaultUsers, "Number of virtual users")
	f.IntP(config.KeyDuration, "d", config.DefaultDurationSec, "Run duration in seconds (min 10)")
	f.Float64(config.KeyAbortProb, config.DefaultAbortProb, "Probability a request is aborted [0, 0.9]")
	f.Float64(config.KeyChurnProb, config.DefaultChurnProb, "Probability an open connection is churned per iteration [0, 0.9]")
	f.Int(config.KeyJitterMaxMs, config.DefaultJitterMaxMs, "Max random delay before each iteration (ms)")
	f.Bool(config.KeyProbe, true, "Run the sanity probe when --probe-url is set")
	f.String(config.KeyToken, "", "Bearer token to use instead of synthetic credentials")
	f.String(config.KeyReadPath, config.DefaultReadPath, "Path of the authenticated read endpoint")
	f.String(config.KeyStreamPath, config.DefaultStreamPath, "Path of the streaming endpoint")
	f.Int(config.KeyTimeout, config.DefaultTimeoutSec, "Per-request timeout in seconds")
	f.String(config.KeyMetricsAddr, "", "Serve Prometheus metrics on this address during the run")
	f.Bool(keyTUI, false, "Show the live terminal dashboard")

	cobra.CheckErr(v.BindPFlags(rootCmd.PersistentFlags()))
	cobra.CheckErr(v.BindPFlags(f))
}

func initConfig() {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
			v.SetConfigType("yaml")
			v.SetConfigName(".chaosq")
		}
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", v.ConfigFileUsed())
	}
}
