package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"health-records/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "healthrecords",
		Short: "Employee health records with staged spreadsheet imports",
		Long: `healthrecords keeps one health record per employee and year.
Records and the employee directory are loaded from .xlsx files through a
staged import: upload, review the preview, then commit or cancel.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.ImportCmd())
	rootCmd.AddCommand(cli.TemplateCmd())
	rootCmd.AddCommand(cli.SweepCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
