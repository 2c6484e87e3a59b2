package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type RecordStatus string

const (
	StatusDone    RecordStatus = "done"
	StatusPending RecordStatus = "pending"
)

const (
	ConclusionFitForWork          = "fit for work"
	ConclusionFitWithRestrictions = "fit with restrictions"
)

type HealthRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	EmployeeID uint      `gorm:"not null;uniqueIndex:idx_health_records_employee_year" json:"employee_id"`
	Employee   *Employee `gorm:"foreignKey:EmployeeID" json:"employee,omitempty"`
	Year       int       `gorm:"not null;uniqueIndex:idx_health_records_employee_year;index;check:year > 0" json:"year"`

	ExamDate          *time.Time       `gorm:"type:date" json:"exam_date"`
	ExaminationTypeID *uint            `gorm:"index" json:"examination_type_id"`
	ExaminationType   *ExaminationType `gorm:"foreignKey:ExaminationTypeID" json:"examination_type,omitempty"`
	ClinicName        *string          `gorm:"size:255" json:"clinic_name"`

	// Measurements
	HeightCm      decimal.NullDecimal `gorm:"type:decimal(6,2)" json:"height_cm"`
	WeightKg      decimal.NullDecimal `gorm:"type:decimal(6,2)" json:"weight_kg"`
	BloodPressure *string             `gorm:"size:50" json:"blood_pressure"`

	// Vaccination
	Vaccinated      bool       `gorm:"not null;default:false" json:"vaccinated"`
	VaccineName     *string    `gorm:"size:255" json:"vaccine_name"`
	VaccinationDate *time.Time `gorm:"type:date" json:"vaccination_date"`

	HealthClassificationID *uint                 `gorm:"index" json:"health_classification_id"`
	HealthClassification   *HealthClassification `gorm:"foreignKey:HealthClassificationID" json:"health_classification,omitempty"`
	ConclusionText         *string               `gorm:"size:255" json:"conclusion_text"`

	ResultFile *string      `gorm:"size:255" json:"result_file"`
	Group      *string      `gorm:"column:record_group;size:50" json:"group"`
	Note       *string      `gorm:"type:text" json:"note"`
	Status     RecordStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (HealthRecord) TableName() string {
	return "health_records"
}

// Conclusion is recomputed on every read and never stored.
func (r *HealthRecord) Conclusion() string {
	var text, classification string
	if r.ConclusionText != nil {
		text = *r.ConclusionText
	}
	if r.HealthClassification != nil {
		classification = r.HealthClassification.Name
	}
	return DeriveConclusion(text, classification)
}

// DeriveConclusion prefers a hand-written conclusion and otherwise maps the
// classification grade.
func DeriveConclusion(conclusionText, classificationName string) string {
	if text := strings.TrimSpace(conclusionText); text != "" {
		return text
	}

	switch strings.ToUpper(strings.TrimSpace(classificationName)) {
	case "I", "II", "III":
		return ConclusionFitForWork
	case "IV":
		return ConclusionFitWithRestrictions
	}
	return ""
}

// IsValidStatus reports whether s is one of the known statuses.
func IsValidStatus(s RecordStatus) bool {
	return s == StatusDone || s == StatusPending
}
