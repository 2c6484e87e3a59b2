package importer

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Health-record import fields.
const (
	FieldEmployeeCode         Field = "employee_code"
	FieldEmployeeName         Field = "employee_name"
	FieldYear                 Field = "year"
	FieldExamDate             Field = "exam_date"
	FieldExaminationType      Field = "examination_type"
	FieldClinicName           Field = "clinic_name"
	FieldHeight               Field = "height_cm"
	FieldWeight               Field = "weight_kg"
	FieldBloodPressure        Field = "blood_pressure"
	FieldHealthClassification Field = "health_classification"
	FieldConclusionText       Field = "conclusion_text"
	FieldVaccines             Field = "vaccines"
	FieldVaccinationDate      Field = "vaccination_date"
	FieldNote                 Field = "note"
	FieldLegacyInfluvac       Field = "legacy_influvac"
	FieldLegacyVaxigrip       Field = "legacy_vaxigrip"
)

// Employee-directory import fields.
const (
	FieldCode       Field = "code"
	FieldFullName   Field = "full_name"
	FieldBirthYear  Field = "birth_year"
	FieldGender     Field = "gender"
	FieldJobTitle   Field = "job_title"
	FieldPosition   Field = "position"
	FieldDepartment Field = "department"
)

// legacyBrands maps the old one-checkbox-per-brand columns to vaccine names.
var legacyBrands = []struct {
	Field Field
	Brand string
}{
	{FieldLegacyInfluvac, "Influvac"},
	{FieldLegacyVaxigrip, "Vaxigrip"},
}

// DefaultRecordColumns returns the header aliases of the health-record sheet.
func DefaultRecordColumns() []ColumnSpec {
	return []ColumnSpec{
		{Field: FieldEmployeeCode, Aliases: []string{"Mã nhân viên", "Mã NV", "Employee code"}, Example: "NV001"},
		{Field: FieldEmployeeName, Aliases: []string{"Họ và tên", "Họ tên", "Full name"}, Example: "Nguyễn Văn A"},
		{Field: FieldYear, Aliases: []string{"Năm khám", "Exam year"}, Example: "2024"},
		{Field: FieldExamDate, Aliases: []string{"Ngày khám", "Exam date"}, Example: "01/02/2024"},
		{Field: FieldExaminationType, Aliases: []string{"Loại khám", "Examination type"}, Example: "Khám định kỳ"},
		{Field: FieldClinicName, Aliases: []string{"Cơ sở khám", "Clinic"}, Example: "Bệnh viện Đa khoa Tỉnh"},
		{Field: FieldHeight, Aliases: []string{"Chiều cao (cm)", "Chiều cao", "Height"}, Example: "165"},
		{Field: FieldWeight, Aliases: []string{"Cân nặng (kg)", "Cân nặng", "Weight"}, Example: "60,5"},
		{Field: FieldBloodPressure, Aliases: []string{"Huyết áp (mmHg)", "Huyết áp", "Blood pressure"}, Example: "120/80"},
		{Field: FieldHealthClassification, Aliases: []string{"Phân loại sức khoẻ", "Phân loại sức khỏe", "Health classification"}, Example: "II"},
		{Field: FieldConclusionText, Aliases: []string{"Kết luận (nếu muốn nhập tay)", "Kết luận", "Conclusion"}, Example: ""},
		{Field: FieldVaccines, Aliases: []string{"Đã tiêm vắc-xin", "Tên vắc-xin", "Vaccines"}, Example: "Vaxigrip; Influvac"},
		{Field: FieldVaccinationDate, Aliases: []string{"Ngày tiêm chủng", "Ngày tiêm", "Vaccination date"}, Example: "15/10/2024"},
		{Field: FieldNote, Aliases: []string{"Ghi chú", "Note"}, Example: ""},
		{Field: FieldLegacyInfluvac, Aliases: []string{"Đã tiêm Influvac"}, Legacy: true},
		{Field: FieldLegacyVaxigrip, Aliases: []string{"Đã tiêm Vaxigrip"}, Legacy: true},
	}
}

// DefaultEmployeeColumns returns the header aliases of the employee sheet.
func DefaultEmployeeColumns() []ColumnSpec {
	return []ColumnSpec{
		{Field: FieldCode, Aliases: []string{"Mã nhân viên", "Mã NV", "Employee code"}, Example: "NV001"},
		{Field: FieldFullName, Aliases: []string{"Họ và tên", "Họ tên", "Full name"}, Example: "Nguyễn Văn A"},
		{Field: FieldBirthYear, Aliases: []string{"Năm sinh", "Birth year"}, Example: "1990"},
		{Field: FieldGender, Aliases: []string{"Giới tính", "Gender"}, Example: "Nam"},
		{Field: FieldJobTitle, Aliases: []string{"Chức danh nghề nghiệp", "Chức danh", "Job title"}, Example: "Điều dưỡng"},
		{Field: FieldPosition, Aliases: []string{"Chức vụ", "Position"}, Example: "Nhân viên"},
		{Field: FieldDepartment, Aliases: []string{"Khoa/Phòng", "Khoa phòng", "Department"}, Example: "Khoa Nội"},
	}
}

// AliasOverrides replaces the aliases of named fields, per sheet kind.
type AliasOverrides struct {
	Records   map[Field][]string `yaml:"records"`
	Employees map[Field][]string `yaml:"employees"`
}

// LoadAliasOverrides reads overrides from a YAML file.
func LoadAliasOverrides(path string) (*AliasOverrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read aliases file: %w", err)
	}

	var overrides AliasOverrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse aliases file %s: %w", path, err)
	}
	return &overrides, nil
}

// ApplyOverrides returns a copy of specs with the aliases of overridden fields
// replaced. Unknown fields are rejected so typos surface at startup.
func ApplyOverrides(specs []ColumnSpec, overrides map[Field][]string) ([]ColumnSpec, error) {
	out := make([]ColumnSpec, len(specs))
	copy(out, specs)

	known := make(map[Field]int, len(out))
	for i, spec := range out {
		known[spec.Field] = i
	}

	for field, aliases := range overrides {
		idx, ok := known[field]
		if !ok {
			return nil, fmt.Errorf("unknown import field %q", field)
		}
		if len(aliases) == 0 {
			return nil, fmt.Errorf("import field %q has no aliases", field)
		}
		out[idx].Aliases = append([]string(nil), aliases...)
	}
	return out, nil
}
