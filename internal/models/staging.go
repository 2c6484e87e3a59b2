package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StagingRow is one parsed spreadsheet row of a health-record import batch.
// Rows live only until their batch is committed, cancelled or swept.
type StagingRow struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	BatchID   string `gorm:"size:16;not null;index" json:"batch_id"`
	RowNumber int    `gorm:"not null" json:"row_number"`

	EmployeeCode             *string             `gorm:"size:50;index" json:"employee_code"`
	EmployeeName             *string             `gorm:"size:200" json:"employee_name"`
	Year                     *int                `json:"year"`
	ExamDate                 *time.Time          `gorm:"type:date" json:"exam_date"`
	ExaminationTypeName      *string             `gorm:"size:100" json:"examination_type_name"`
	ClinicName               *string             `gorm:"size:255" json:"clinic_name"`
	HeightCm                 decimal.NullDecimal `gorm:"type:decimal(6,2)" json:"height_cm"`
	WeightKg                 decimal.NullDecimal `gorm:"type:decimal(6,2)" json:"weight_kg"`
	BloodPressure            *string             `gorm:"size:50" json:"blood_pressure"`
	HealthClassificationName *string             `gorm:"size:100" json:"health_classification_name"`
	ConclusionText           *string             `gorm:"size:255" json:"conclusion_text"`
	Vaccinated               bool                `gorm:"not null;default:false" json:"vaccinated"`
	VaccineName              *string             `gorm:"size:255" json:"vaccine_name"`
	VaccinationDate          *time.Time          `gorm:"type:date" json:"vaccination_date"`
	Note                     *string             `gorm:"type:text" json:"note"`

	IsValid      bool      `gorm:"not null;index" json:"is_valid"`
	ErrorMessage *string   `gorm:"type:text" json:"error_message"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (StagingRow) TableName() string {
	return "health_record_staging"
}

// Valid implements the staging contract shared by import batches.
func (r StagingRow) Valid() bool {
	return r.IsValid
}

// EmployeeStagingRow is one parsed row of an employee-directory import batch.
type EmployeeStagingRow struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	BatchID   string `gorm:"size:16;not null;index" json:"batch_id"`
	RowNumber int    `gorm:"not null" json:"row_number"`

	Code           *string `gorm:"size:50;index" json:"code"`
	FullName       *string `gorm:"size:200" json:"full_name"`
	BirthYear      *int    `json:"birth_year"`
	Gender         Gender  `gorm:"size:10;not null;default:'Unknown'" json:"gender"`
	JobTitle       *string `gorm:"size:200" json:"job_title"`
	Position       *string `gorm:"size:200" json:"position"`
	DepartmentName *string `gorm:"size:100" json:"department_name"`

	IsValid      bool      `gorm:"not null;index" json:"is_valid"`
	ErrorMessage *string   `gorm:"type:text" json:"error_message"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (EmployeeStagingRow) TableName() string {
	return "employee_staging"
}

func (r EmployeeStagingRow) Valid() bool {
	return r.IsValid
}
