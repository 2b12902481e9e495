package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chaosq/internal/dummy"
	"chaosq/internal/logging"
)

var dummyCmd = &cobra.Command{
	Use:   "dummy",
	Short: "Run a local target with read, failing, slow and stream endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		slowMs, _ := cmd.Flags().GetInt("slow-ms")
		requireAuth, _ := cmd.Flags().GetBool("require-auth")

		log, err := logging.New(v.GetString(keyLogLevel))
		if err != nil {
			return err
		}
		defer log.Sync()

		server, addr, err := dummy.Start(dummy.ServerConfig{
			Port:        port,
			SlowDelay:   time.Duration(slowMs) * time.Millisecond,
			RequireAuth: requireAuth,
		}, log)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "dummy target listening on %s\n", addr)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("dummy shutdown", zap.Error(err))
		}
		return nil
	},
}

func init() {
	dummyCmd.Flags().IntP("port", "p", 8080, "Port to run dummy server on")
	dummyCmd.Flags().Int("slow-ms", 1000, "Delay of /api/slow in milliseconds")
	dummyCmd.Flags().Bool("require-auth", true, "Reject requests without a bearer token")
}
