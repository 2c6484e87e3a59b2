package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// SweepCmd returns the sweep command
func SweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete staged import rows older than STAGING_TTL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cfg, _, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.Sweep(context.Background(), cfg.StagingTTL)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d staged rows older than %s\n", n, cfg.StagingTTL)
			return nil
		},
	}
}
