package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"health-records/internal/models"
	"health-records/internal/service"
)

func init() {
	color.NoColor = true
}

func strPtr(s string) *string { return &s }

func TestPrintRecordPreview(t *testing.T) {
	var buf bytes.Buffer
	printRecordPreview(&buf, &service.RecordPreview{
		BatchID:      "ab12cd34",
		Total:        2,
		ValidCount:   1,
		InvalidCount: 1,
		Rows: []models.StagingRow{
			{RowNumber: 2, EmployeeCode: strPtr("NV001"), IsValid: true},
			{RowNumber: 3, EmployeeCode: strPtr("NV404"), ErrorMessage: strPtr("employee not found")},
		},
	})

	out := buf.String()
	require.Contains(t, out, "batch ab12cd34")
	require.Contains(t, out, "Invalid: 1")
	require.Contains(t, out, "NV404")
	require.Contains(t, out, "employee not found")
	require.NotContains(t, out, "NV001")
}

func TestPrintCommitResult(t *testing.T) {
	var buf bytes.Buffer
	printCommitResult(&buf, &service.CommitResult{Created: 3, Updated: 1, Skipped: 2})
	require.Contains(t, buf.String(), "created 3, updated 1, skipped 2")
}

func TestTemplateCmd(t *testing.T) {
	out := filepath.Join(t.TempDir(), "records.xlsx")

	cmd := TemplateCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"records", out})
	require.NoError(t, cmd.Execute())
	require.Contains(t, stdout.String(), out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Equal(t, "Mã nhân viên", rows[0][0])
}

func TestTemplateCmd_UnknownKind(t *testing.T) {
	cmd := TemplateCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"payroll", filepath.Join(t.TempDir(), "x.xlsx")})
	require.Error(t, cmd.Execute())
}
