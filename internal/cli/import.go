package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"health-records/internal/service"
)

const (
	kindRecords   = "records"
	kindEmployees = "employees"
)

// maxPrintedRows caps the invalid rows listed under a preview.
const maxPrintedRows = 50

// ImportCmd returns the import command
func ImportCmd() *cobra.Command {
	var commit bool

	cmd := &cobra.Command{
		Use:   "import {records|employees} FILE",
		Short: "Stage a spreadsheet and print its preview",
		Long: `Parse and validate an .xlsx file, stage it and print the preview.

Without --commit the batch stays staged: commit or cancel it later through
the API with the printed batch id, or let the sweeper expire it.

Examples:
  healthrecords import records kham-suc-khoe-2024.xlsx
  healthrecords import employees nhan-vien.xlsx --commit`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{kindRecords, kindEmployees},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, path := args[0], args[1]
			if kind != kindRecords && kind != kindEmployees {
				return fmt.Errorf("unknown import kind %q, want records or employees", kind)
			}

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			a, _, _, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := context.Background()
			out := cmd.OutOrStdout()

			var batchID string
			var valid int
			if kind == kindEmployees {
				preview, err := a.Services.EmployeeImport.Stage(ctx, f)
				if err != nil {
					return err
				}
				printEmployeePreview(out, preview)
				batchID, valid = preview.BatchID, preview.ValidCount
			} else {
				preview, err := a.Services.RecordImport.Stage(ctx, f)
				if err != nil {
					return err
				}
				printRecordPreview(out, preview)
				batchID, valid = preview.BatchID, preview.ValidCount
			}

			if !commit {
				fmt.Fprintf(out, "\nBatch %s staged. Re-run with --commit to import it directly.\n", batchID)
				return nil
			}
			if valid == 0 {
				return service.ErrNothingToImport
			}

			var res *service.CommitResult
			if kind == kindEmployees {
				res, err = a.Services.EmployeeImport.Commit(ctx, batchID)
			} else {
				res, err = a.Services.RecordImport.Commit(ctx, batchID)
			}
			if err != nil {
				return err
			}
			printCommitResult(out, res)
			return nil
		},
	}

	cmd.Flags().BoolVar(&commit, "commit", false, "commit the valid rows right after staging")
	return cmd
}

func printCounts(w io.Writer, title, batchID string, total, valid, invalid int) {
	fmt.Fprintf(w, "📋 %s preview: batch %s\n\n", title, batchID)
	fmt.Fprintf(w, "  Rows:    %d\n", total)
	fmt.Fprintf(w, "  Valid:   %s\n", color.New(color.FgGreen).Sprint(valid))
	if invalid > 0 {
		fmt.Fprintf(w, "  Invalid: %s\n", color.New(color.FgRed).Sprint(invalid))
	} else {
		fmt.Fprintf(w, "  Invalid: %d\n", invalid)
	}
}

func printRecordPreview(w io.Writer, p *service.RecordPreview) {
	printCounts(w, "Health records", p.BatchID, p.Total, p.ValidCount, p.InvalidCount)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	printed := 0
	for _, row := range p.Rows {
		if row.ErrorMessage == nil || printed >= maxPrintedRows {
			continue
		}
		if printed == 0 {
			fmt.Fprintln(tw, "\nROW\tSTATUS\tCODE\tMESSAGE")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", row.RowNumber, rowStatus(row.IsValid), value(row.EmployeeCode), *row.ErrorMessage)
		printed++
	}
	tw.Flush()
}

func printEmployeePreview(w io.Writer, p *service.EmployeePreview) {
	printCounts(w, "Employees", p.BatchID, p.Total, p.ValidCount, p.InvalidCount)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	printed := 0
	for _, row := range p.Rows {
		if row.ErrorMessage == nil || printed >= maxPrintedRows {
			continue
		}
		if printed == 0 {
			fmt.Fprintln(tw, "\nROW\tSTATUS\tCODE\tMESSAGE")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", row.RowNumber, rowStatus(row.IsValid), value(row.Code), *row.ErrorMessage)
		printed++
	}
	tw.Flush()
}

func printCommitResult(w io.Writer, res *service.CommitResult) {
	fmt.Fprintf(w, "\n%s created %d, updated %d", color.New(color.FgGreen).Sprint("✓ Imported:"), res.Created, res.Updated)
	if res.Skipped > 0 {
		fmt.Fprintf(w, ", %s", color.New(color.FgYellow).Sprintf("skipped %d", res.Skipped))
	}
	fmt.Fprintln(w)
}

func rowStatus(valid bool) string {
	if valid {
		return color.New(color.FgYellow).Sprint("WARN")
	}
	return color.New(color.FgRed).Sprint("ERROR")
}

func value(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
