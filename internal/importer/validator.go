package importer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"health-records/internal/models"
)

// Row error fragments. Only the classification warning keeps a row valid.
const (
	MsgMissingEmployeeCode    = "missing employee code"
	MsgEmployeeNotFound       = "employee code not found"
	MsgInvalidExamDate        = "invalid exam date"
	MsgInvalidVaccinationDate = "invalid vaccination date"
	MsgInvalidHeight          = "invalid height format"
	MsgInvalidWeight          = "invalid weight format"
	MsgHeightOutOfRange       = "height out of range"
	MsgWeightOutOfRange       = "weight out of range"
	MsgClassificationNotFound = "health classification not in catalog"
	MsgMissingCodeOrName      = "missing employee code or full name"
	MsgInvalidBirthYear       = "invalid birth year"
	msgDepartmentNotFoundFmt  = "department '%s' not found"
	msgTooLongFmt             = "%s too long (max %d characters)"
	errorFragmentSeparator    = "; "
)

// Column widths of the staging and live tables.
const (
	maxCodeLen          = 50
	maxNameLen          = 200
	maxCatalogNameLen   = 100
	maxTextLen          = 255
	maxBloodPressureLen = 50
)

// maxMeasure is the smallest value a decimal(6,2) column cannot hold.
var maxMeasure = decimal.NewFromInt(10000)

// issues accumulates every problem found in a row.
type issues struct {
	fragments []string
	hard      bool
}

func (i *issues) fail(msg string) {
	i.fragments = append(i.fragments, msg)
	i.hard = true
}

func (i *issues) warn(msg string) {
	i.fragments = append(i.fragments, msg)
}

// clip records a hard error when value is wider than its column and cuts it
// to fit so the row can still be staged for the preview.
func (i *issues) clip(label string, value *string, limit int) *string {
	if value == nil || utf8.RuneCountInString(*value) <= limit {
		return value
	}
	i.fail(fmt.Sprintf(msgTooLongFmt, label, limit))
	cut := string([]rune(*value)[:limit])
	return &cut
}

// bound drops a measure that is negative or too large for its column.
func (i *issues) bound(d decimal.NullDecimal, msg string) decimal.NullDecimal {
	if !d.Valid || (!d.Decimal.IsNegative() && d.Decimal.LessThan(maxMeasure)) {
		return d
	}
	i.fail(msg)
	return decimal.NullDecimal{}
}

func (i *issues) message() *string {
	if len(i.fragments) == 0 {
		return nil
	}
	msg := strings.Join(i.fragments, errorFragmentSeparator)
	return &msg
}

// RowValidator turns raw health-record rows into staging rows.
type RowValidator struct {
	lookup Lookup
}

func NewRowValidator(lookup Lookup) *RowValidator {
	return &RowValidator{lookup: lookup}
}

// Validate normalizes one row. It never stops at the first problem: every
// fragment is joined into ErrorMessage and IsValid is false only when a hard
// error was found.
func (v *RowValidator) Validate(row RawRow) models.StagingRow {
	staged := models.StagingRow{RowNumber: row.Number}
	var errs issues

	code := row.Text(FieldEmployeeCode)
	if code == "" {
		errs.fail(MsgMissingEmployeeCode)
	} else {
		staged.EmployeeCode = &code
		if emp, ok := v.lookup.EmployeeByCode(code); ok {
			name := emp.FullName
			staged.EmployeeName = &name
		} else {
			errs.fail(MsgEmployeeNotFound)
		}
	}
	if staged.EmployeeName == nil {
		staged.EmployeeName = optional(row.Text(FieldEmployeeName))
	}

	examDate, err := ParseDate(row.Get(FieldExamDate))
	if err != nil {
		errs.fail(MsgInvalidExamDate)
	}
	staged.ExamDate = examDate

	vaccinationDate, err := ParseDate(row.Get(FieldVaccinationDate))
	if err != nil {
		errs.fail(MsgInvalidVaccinationDate)
	}
	staged.VaccinationDate = vaccinationDate

	if staged.HeightCm, err = ParseMeasure(row.Get(FieldHeight), "cm"); err != nil {
		errs.fail(MsgInvalidHeight)
	}
	staged.HeightCm = errs.bound(staged.HeightCm, MsgHeightOutOfRange)
	if staged.WeightKg, err = ParseMeasure(row.Get(FieldWeight), "kg"); err != nil {
		errs.fail(MsgInvalidWeight)
	}
	staged.WeightKg = errs.bound(staged.WeightKg, MsgWeightOutOfRange)

	staged.Year = ParseYear(row.Get(FieldYear))
	if staged.Year == nil && examDate != nil {
		year := examDate.Year()
		staged.Year = &year
	}

	staged.ExaminationTypeName = optional(row.Text(FieldExaminationType))
	staged.ClinicName = optional(row.Text(FieldClinicName))
	staged.BloodPressure = optional(row.Text(FieldBloodPressure))
	staged.ConclusionText = optional(row.Text(FieldConclusionText))
	staged.Note = optional(row.Text(FieldNote))

	if name := row.Text(FieldHealthClassification); name != "" {
		staged.HealthClassificationName = &name
		if _, ok := v.lookup.ClassificationByName(name); !ok {
			errs.warn(MsgClassificationNotFound)
		}
	}

	vaccines := SplitVaccines(row.Text(FieldVaccines))
	for _, legacy := range legacyBrands {
		if IsTruthy(row.Text(legacy.Field)) {
			vaccines = appendUnique(vaccines, legacy.Brand)
		}
	}
	if len(vaccines) > 0 {
		joined := JoinVaccines(vaccines)
		staged.Vaccinated = true
		staged.VaccineName = &joined
	} else if vaccinationDate != nil {
		staged.Vaccinated = true
	}

	staged.EmployeeCode = errs.clip("employee code", staged.EmployeeCode, maxCodeLen)
	staged.EmployeeName = errs.clip("employee name", staged.EmployeeName, maxNameLen)
	staged.ExaminationTypeName = errs.clip("examination type", staged.ExaminationTypeName, maxCatalogNameLen)
	staged.ClinicName = errs.clip("clinic name", staged.ClinicName, maxTextLen)
	staged.BloodPressure = errs.clip("blood pressure", staged.BloodPressure, maxBloodPressureLen)
	staged.HealthClassificationName = errs.clip("health classification", staged.HealthClassificationName, maxCatalogNameLen)
	staged.ConclusionText = errs.clip("conclusion", staged.ConclusionText, maxTextLen)
	staged.VaccineName = errs.clip("vaccine list", staged.VaccineName, maxTextLen)

	staged.IsValid = !errs.hard
	staged.ErrorMessage = errs.message()
	return staged
}

func appendUnique(names []string, name string) []string {
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return names
		}
	}
	return append(names, name)
}
