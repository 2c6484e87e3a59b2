package models

import "time"

type Gender string

const (
	GenderMale    Gender = "Male"
	GenderFemale  Gender = "Female"
	GenderUnknown Gender = "Unknown"
)

type Employee struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	Code         string      `gorm:"size:50;not null;uniqueIndex" json:"code"`
	FullName     string      `gorm:"size:200;not null" json:"full_name"`
	BirthYear    *int        `json:"birth_year"`
	Gender       Gender      `gorm:"size:10;not null;default:'Unknown'" json:"gender"`
	JobTitle     *string     `gorm:"size:200" json:"job_title"`
	Position     *string     `gorm:"size:200" json:"position"`
	DepartmentID *uint       `gorm:"index" json:"department_id"`
	Department   *Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
	CreatedAt    time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Employee) TableName() string {
	return "employees"
}

// DepartmentName returns the department name or an empty string.
func (e *Employee) DepartmentName() string {
	if e.Department == nil {
		return ""
	}
	return e.Department.Name
}

// IsValidGender reports whether g is one of the known values.
func IsValidGender(g Gender) bool {
	return g == GenderMale || g == GenderFemale || g == GenderUnknown
}
