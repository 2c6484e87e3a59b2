package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"health-records/internal/importer"
	"health-records/internal/models"
	"health-records/internal/repository"
)

// DefaultPageSize is the record list page size when none is requested.
const DefaultPageSize = 15

// RecordInput creates or replaces a health record. Dates accept the same
// textual formats as the spreadsheet import.
type RecordInput struct {
	EmployeeID             uint                `json:"employee_id" validate:"required"`
	Year                   int                 `json:"year" validate:"required,gt=0"`
	ExamDate               *string             `json:"exam_date"`
	ExaminationTypeID      *uint               `json:"examination_type_id"`
	ClinicName             *string             `json:"clinic_name" validate:"omitempty,max=255"`
	HeightCm               decimal.NullDecimal `json:"height_cm"`
	WeightKg               decimal.NullDecimal `json:"weight_kg"`
	BloodPressure          *string             `json:"blood_pressure" validate:"omitempty,max=50"`
	Vaccinated             bool                `json:"vaccinated"`
	VaccineName            *string             `json:"vaccine_name" validate:"omitempty,max=255"`
	VaccinationDate        *string             `json:"vaccination_date"`
	HealthClassificationID *uint               `json:"health_classification_id"`
	ConclusionText         *string             `json:"conclusion_text" validate:"omitempty,max=255"`
	ResultFile             *string             `json:"result_file" validate:"omitempty,max=255"`
	Group                  *string             `json:"group" validate:"omitempty,max=50"`
	Note                   *string             `json:"note"`
	Status                 models.RecordStatus `json:"status" validate:"omitempty,oneof=done pending"`
}

func (in *RecordInput) normalize() {
	in.ClinicName = trimOptional(in.ClinicName)
	in.BloodPressure = trimOptional(in.BloodPressure)
	in.VaccineName = trimOptional(in.VaccineName)
	in.ConclusionText = trimOptional(in.ConclusionText)
	in.ResultFile = trimOptional(in.ResultFile)
	in.Group = trimOptional(in.Group)
	in.Note = trimOptional(in.Note)
	in.ExamDate = trimOptional(in.ExamDate)
	in.VaccinationDate = trimOptional(in.VaccinationDate)
	if in.Status == "" {
		in.Status = models.StatusPending
	}
}

// RecordPage is one page of the record list.
type RecordPage struct {
	Records  []RecordView `json:"records"`
	Total    int64        `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
}

// RecordView is a record with its derived conclusion.
type RecordView struct {
	models.HealthRecord
	Conclusion string `json:"conclusion"`
}

func newRecordView(r models.HealthRecord) RecordView {
	return RecordView{HealthRecord: r, Conclusion: r.Conclusion()}
}

type HealthRecordService struct {
	recordRepo         repository.HealthRecordRepository
	employeeRepo       repository.EmployeeRepository
	examTypeRepo       repository.CatalogRepository[models.ExaminationType]
	classificationRepo repository.CatalogRepository[models.HealthClassification]
	logger             *logrus.Logger
}

func NewHealthRecordService(
	recordRepo repository.HealthRecordRepository,
	employeeRepo repository.EmployeeRepository,
	examTypeRepo repository.CatalogRepository[models.ExaminationType],
	classificationRepo repository.CatalogRepository[models.HealthClassification],
	logger *logrus.Logger,
) *HealthRecordService {
	return &HealthRecordService{
		recordRepo:         recordRepo,
		employeeRepo:       employeeRepo,
		examTypeRepo:       examTypeRepo,
		classificationRepo: classificationRepo,
		logger:             logger,
	}
}

func (s *HealthRecordService) List(ctx context.Context, filter repository.RecordFilter, page repository.Page) (*RecordPage, error) {
	if page.Number < 1 {
		page.Number = 1
	}
	if page.Size <= 0 {
		page.Size = DefaultPageSize
	}

	records, total, err := s.recordRepo.List(ctx, filter, page)
	if err != nil {
		return nil, fmt.Errorf("list health records: %w", err)
	}

	views := make([]RecordView, 0, len(records))
	for _, r := range records {
		views = append(views, newRecordView(r))
	}
	return &RecordPage{
		Records:  views,
		Total:    total,
		Page:     page.Number,
		PageSize: page.Size,
	}, nil
}

func (s *HealthRecordService) Get(ctx context.Context, id uint) (*RecordView, error) {
	record, err := s.recordRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get health record %d: %w", id, err)
	}
	if record == nil {
		return nil, fmt.Errorf("health record %d: %w", id, ErrNotFound)
	}
	view := newRecordView(*record)
	return &view, nil
}

func (s *HealthRecordService) Create(ctx context.Context, in RecordInput) (*RecordView, error) {
	record := &models.HealthRecord{}
	if err := s.apply(ctx, record, in); err != nil {
		return nil, err
	}

	if err := s.recordRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("create health record: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"id":          record.ID,
		"employee_id": record.EmployeeID,
		"year":        record.Year,
	}).Info("Health record created")
	return s.Get(ctx, record.ID)
}

func (s *HealthRecordService) Update(ctx context.Context, id uint, in RecordInput) (*RecordView, error) {
	existing, err := s.recordRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get health record %d: %w", id, err)
	}
	if existing == nil {
		return nil, fmt.Errorf("health record %d: %w", id, ErrNotFound)
	}

	existing.Employee = nil
	existing.ExaminationType = nil
	existing.HealthClassification = nil
	if err := s.apply(ctx, existing, in); err != nil {
		return nil, err
	}
	if err := s.recordRepo.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("update health record %d: %w", id, err)
	}
	return s.Get(ctx, id)
}

func (s *HealthRecordService) Delete(ctx context.Context, id uint) error {
	if err := s.recordRepo.Delete(ctx, id); err != nil {
		if notFound(err) {
			return fmt.Errorf("health record %d: %w", id, ErrNotFound)
		}
		return fmt.Errorf("delete health record %d: %w", id, err)
	}
	return nil
}

// Export renders every record matching filter as an xlsx workbook.
func (s *HealthRecordService) Export(ctx context.Context, filter repository.RecordFilter) ([]byte, error) {
	records, _, err := s.recordRepo.List(ctx, filter, repository.Page{})
	if err != nil {
		return nil, fmt.Errorf("list health records: %w", err)
	}

	data, err := importer.RecordsWorkbook(records)
	if err != nil {
		return nil, fmt.Errorf("render export: %w", err)
	}

	s.logger.WithField("records", len(records)).Info("Health records exported")
	return data, nil
}

func (s *HealthRecordService) apply(ctx context.Context, record *models.HealthRecord, in RecordInput) error {
	in.normalize()
	if err := validateInput(&in); err != nil {
		return err
	}

	examDate, err := parseInputDate("exam_date", in.ExamDate)
	if err != nil {
		return err
	}
	vaccinationDate, err := parseInputDate("vaccination_date", in.VaccinationDate)
	if err != nil {
		return err
	}

	employee, err := s.employeeRepo.GetByID(ctx, in.EmployeeID)
	if err != nil {
		return fmt.Errorf("lookup employee %d: %w", in.EmployeeID, err)
	}
	if employee == nil {
		return invalidField("employee_id", "unknown employee")
	}

	if in.ExaminationTypeID != nil {
		examType, err := s.examTypeRepo.GetByID(ctx, *in.ExaminationTypeID)
		if err != nil {
			return fmt.Errorf("lookup examination type: %w", err)
		}
		if examType == nil {
			return invalidField("examination_type_id", "unknown examination type")
		}
	}
	if in.HealthClassificationID != nil {
		classification, err := s.classificationRepo.GetByID(ctx, *in.HealthClassificationID)
		if err != nil {
			return fmt.Errorf("lookup health classification: %w", err)
		}
		if classification == nil {
			return invalidField("health_classification_id", "unknown health classification")
		}
	}

	other, err := s.recordRepo.GetByEmployeeAndYear(ctx, in.EmployeeID, in.Year)
	if err != nil {
		return fmt.Errorf("lookup health record: %w", err)
	}
	if other != nil && other.ID != record.ID {
		return fmt.Errorf("health record for employee %d in %d: %w", in.EmployeeID, in.Year, ErrDuplicate)
	}

	record.EmployeeID = in.EmployeeID
	record.Year = in.Year
	record.ExamDate = examDate
	record.ExaminationTypeID = in.ExaminationTypeID
	record.ClinicName = in.ClinicName
	record.HeightCm = in.HeightCm
	record.WeightKg = in.WeightKg
	record.BloodPressure = in.BloodPressure
	record.Vaccinated = in.Vaccinated || in.VaccineName != nil || vaccinationDate != nil
	record.VaccineName = in.VaccineName
	record.VaccinationDate = vaccinationDate
	record.HealthClassificationID = in.HealthClassificationID
	record.ConclusionText = in.ConclusionText
	record.ResultFile = in.ResultFile
	record.Group = in.Group
	record.Note = in.Note
	record.Status = in.Status
	return nil
}

func parseInputDate(field string, value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	t, err := importer.ParseDateString(*value)
	if err != nil {
		return nil, invalidField(field, "unrecognised date")
	}
	return &t, nil
}
