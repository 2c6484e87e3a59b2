package importer

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"health-records/internal/models"
)

const (
	templateSheet = "Template"
	exportSheet   = "Health records"
	dateFormat    = "02/01/2006"
)

// TemplateWorkbook renders a sample workbook: one header row made of the
// preferred alias of every non-legacy column, and one example row.
func TemplateWorkbook(specs []ColumnSpec) ([]byte, error) {
	var headers, example []any
	for _, spec := range specs {
		if spec.Legacy || len(spec.Aliases) == 0 {
			continue
		}
		headers = append(headers, spec.Aliases[0])
		example = append(example, spec.Example)
	}
	return writeWorkbook(templateSheet, headers, [][]any{example})
}

type exportColumn struct {
	header string
	value  func(r *models.HealthRecord) any
}

var exportColumns = []exportColumn{
	{"Mã nhân viên", func(r *models.HealthRecord) any { return employeeField(r, func(e *models.Employee) string { return e.Code }) }},
	{"Họ và tên", func(r *models.HealthRecord) any { return employeeField(r, func(e *models.Employee) string { return e.FullName }) }},
	{"Khoa/Phòng", func(r *models.HealthRecord) any { return employeeField(r, (*models.Employee).DepartmentName) }},
	{"Năm khám", func(r *models.HealthRecord) any { return r.Year }},
	{"Ngày khám", func(r *models.HealthRecord) any { return formatDate(r.ExamDate) }},
	{"Loại khám", func(r *models.HealthRecord) any {
		if r.ExaminationType == nil {
			return ""
		}
		return r.ExaminationType.Name
	}},
	{"Cơ sở khám", func(r *models.HealthRecord) any { return deref(r.ClinicName) }},
	{"Chiều cao (cm)", func(r *models.HealthRecord) any { return formatDecimal(r.HeightCm.Valid, r.HeightCm.Decimal.String()) }},
	{"Cân nặng (kg)", func(r *models.HealthRecord) any { return formatDecimal(r.WeightKg.Valid, r.WeightKg.Decimal.String()) }},
	{"Huyết áp (mmHg)", func(r *models.HealthRecord) any { return deref(r.BloodPressure) }},
	{"Phân loại sức khoẻ", func(r *models.HealthRecord) any {
		if r.HealthClassification == nil {
			return ""
		}
		return r.HealthClassification.Name
	}},
	{"Kết luận", func(r *models.HealthRecord) any { return r.Conclusion() }},
	{"Đã tiêm vắc-xin", func(r *models.HealthRecord) any { return deref(r.VaccineName) }},
	{"Ngày tiêm chủng", func(r *models.HealthRecord) any { return formatDate(r.VaccinationDate) }},
	{"Ghi chú", func(r *models.HealthRecord) any { return deref(r.Note) }},
	{"Trạng thái", func(r *models.HealthRecord) any { return string(r.Status) }},
}

// RecordsWorkbook renders health records, with the derived conclusion, as xlsx.
// Records are expected to carry their Employee, Department, ExaminationType
// and HealthClassification associations.
func RecordsWorkbook(records []models.HealthRecord) ([]byte, error) {
	headers := make([]any, len(exportColumns))
	for i, col := range exportColumns {
		headers[i] = col.header
	}

	rows := make([][]any, 0, len(records))
	for i := range records {
		row := make([]any, len(exportColumns))
		for j, col := range exportColumns {
			row[j] = col.value(&records[i])
		}
		rows = append(rows, row)
	}
	return writeWorkbook(exportSheet, headers, rows)
}

func writeWorkbook(sheet string, headers []any, rows [][]any) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if len(headers) > 0 {
		last, err := excelize.CoordinatesToCellName(len(headers), 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return nil, fmt.Errorf("style header: %w", err)
		}
		lastCol, err := excelize.ColumnNumberToName(len(headers))
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheet, "A", lastCol, 20); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return bytes.Clone(buf.Bytes()), nil
}

func employeeField(r *models.HealthRecord, get func(*models.Employee) string) string {
	if r.Employee == nil {
		return ""
	}
	return get(r.Employee)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateFormat)
}

func formatDecimal(valid bool, s string) string {
	if !valid {
		return ""
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
