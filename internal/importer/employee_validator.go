package importer

import (
	"fmt"

	"health-records/internal/models"
)

// EmployeeRowValidator turns raw employee rows into staging rows.
type EmployeeRowValidator struct {
	lookup Lookup
}

func NewEmployeeRowValidator(lookup Lookup) *EmployeeRowValidator {
	return &EmployeeRowValidator{lookup: lookup}
}

func (v *EmployeeRowValidator) Validate(row RawRow) models.EmployeeStagingRow {
	staged := models.EmployeeStagingRow{
		RowNumber: row.Number,
		Code:      optional(row.Text(FieldCode)),
		FullName:  optional(row.Text(FieldFullName)),
		JobTitle:  optional(row.Text(FieldJobTitle)),
		Position:  optional(row.Text(FieldPosition)),
		Gender:    NormalizeGender(row.Text(FieldGender)),
	}
	var errs issues

	if staged.Code == nil || staged.FullName == nil {
		errs.fail(MsgMissingCodeOrName)
	}

	if cell := row.Get(FieldBirthYear); !cell.IsEmpty() {
		staged.BirthYear = ParseYear(cell)
		if staged.BirthYear == nil {
			errs.fail(MsgInvalidBirthYear)
		}
	}

	if name := row.Text(FieldDepartment); name != "" {
		staged.DepartmentName = &name
		if _, ok := v.lookup.DepartmentByName(name); !ok {
			errs.fail(fmt.Sprintf(msgDepartmentNotFoundFmt, name))
		}
	}

	staged.Code = errs.clip("code", staged.Code, maxCodeLen)
	staged.FullName = errs.clip("full name", staged.FullName, maxNameLen)
	staged.JobTitle = errs.clip("job title", staged.JobTitle, maxNameLen)
	staged.Position = errs.clip("position", staged.Position, maxNameLen)
	staged.DepartmentName = errs.clip("department", staged.DepartmentName, maxCatalogNameLen)

	staged.IsValid = !errs.hard
	staged.ErrorMessage = errs.message()
	return staged
}

// NormalizeGender maps free-text gender cells (Vietnamese or English).
func NormalizeGender(s string) models.Gender {
	switch foldKey(s) {
	case "nam", "male", "m":
		return models.GenderMale
	case "nu", "female", "f":
		return models.GenderFemale
	}
	return models.GenderUnknown
}
