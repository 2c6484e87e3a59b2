package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"health-records/internal/app"
	"health-records/internal/config"
	"health-records/internal/importer"
)

// TemplateCmd returns the template command
func TemplateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "template {records|employees} OUT",
		Short: "Write a sample import workbook",
		Long: `Write an .xlsx file with the expected header row and one example row.
Headers follow IMPORT_ALIASES_FILE when it is set.

Examples:
  healthrecords template records mau-kham-suc-khoe.xlsx`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{kindRecords, kindEmployees},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, out := args[0], args[1]

			records, employees, err := app.Columns(config.GetConfig().ImportAliasesFile)
			if err != nil {
				return err
			}

			var specs []importer.ColumnSpec
			switch kind {
			case kindRecords:
				specs = records
			case kindEmployees:
				specs = employees
			default:
				return fmt.Errorf("unknown template kind %q, want records or employees", kind)
			}

			data, err := importer.TemplateWorkbook(specs)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.New(color.FgGreen).Sprint("✓ Template written:"), out)
			return nil
		},
	}
}
