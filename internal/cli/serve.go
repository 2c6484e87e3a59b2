package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the staging sweeper and the Telegram bot",
		Long: `Serve the JSON API under /api together with /healthz and the metrics
endpoint. Expired staging rows are swept every SWEEP_INTERVAL. When
TELEGRAM_BOT_TOKEN is set the Telegram import bot runs as well.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, logger, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.Info("Service started. Press Ctrl+C to stop.")
			if err := a.Serve(ctx); err != nil {
				return err
			}
			logger.Info("Service stopped gracefully")
			return nil
		},
	}
}
