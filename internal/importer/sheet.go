package importer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrEmptyUpload is returned for a zero-byte upload.
	ErrEmptyUpload = errors.New("no file uploaded")
	// ErrUnreadableFile is returned when the upload is not a readable workbook.
	ErrUnreadableFile = errors.New("unreadable spreadsheet")
)

// RawRow is one data row keyed by canonical field.
type RawRow struct {
	// Number is the 1-based spreadsheet row, header included.
	Number int
	Cells  map[Field]Cell
}

// Get returns the cell of f, empty when the field is unmapped or the row is short.
func (r RawRow) Get(f Field) Cell {
	return r.Cells[f]
}

// Text returns the trimmed text of f.
func (r RawRow) Text(f Field) string {
	return r.Cells[f].String()
}

// Sheet is the parsed first worksheet of a workbook.
type Sheet struct {
	Name    string
	Headers []string
	Columns ColumnMap
	Rows    []RawRow
}

// ReadSheet reads the first worksheet of an .xlsx stream. Row 1 is the
// header, fully blank data rows are dropped.
func ReadSheet(r io.Reader, specs []ColumnSpec) (*Sheet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyUpload
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	defer f.Close()

	name := f.GetSheetName(0)
	if name == "" {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrUnreadableFile)
	}

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}

	sheet := &Sheet{Name: name}
	if len(rows) == 0 {
		sheet.Columns = ColumnMap{}
		return sheet, nil
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	sheet.Headers = rows[0]
	sheet.Columns = ResolveColumns(sheet.Headers, specs)

	for i, values := range rows[1:] {
		if isBlank(values) {
			continue
		}
		row := RawRow{Number: i + 2, Cells: make(map[Field]Cell, len(sheet.Columns))}
		for field, idx := range sheet.Columns {
			if idx >= len(values) {
				continue
			}
			cell := Cell{Text: values[idx]}
			if dateFields[field] {
				cell.Time = numericDate(f, name, idx+1, row.Number, values[idx], date1904)
			}
			row.Cells[field] = cell
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet, nil
}

var dateFields = map[Field]bool{
	FieldExamDate:        true,
	FieldVaccinationDate: true,
}

// maxExcelSerial is 9999-12-31 in the 1900 date system.
const maxExcelSerial = 2958465

// numericDate converts a numeric cell holding an Excel date serial. Text
// cells, even all-digit ones, yield nil and are parsed as text.
func numericDate(f *excelize.File, sheet string, col, row int, raw string, date1904 bool) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return nil
	}
	typ, err := f.GetCellType(sheet, ref)
	if err != nil || (typ != excelize.CellTypeUnset && typ != excelize.CellTypeNumber) {
		return nil
	}

	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil || serial < 1 || serial > maxExcelSerial {
		return nil
	}
	t, err := excelize.ExcelDateToTime(serial, date1904)
	if err != nil {
		return nil
	}
	return &t
}

func isBlank(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
