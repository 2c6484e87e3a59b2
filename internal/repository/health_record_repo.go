package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"health-records/internal/models"
)

// RecordFilter narrows the record list. Nil and empty fields are ignored.
type RecordFilter struct {
	Query              string
	Year               *int
	ClassificationID   *uint
	ClassificationName string
	ConclusionText     string
	Vaccinated         *bool
	DepartmentID       *uint
	Status             models.RecordStatus
}

// Page selects a 1-based page. A non-positive Size disables paging.
type Page struct {
	Number int
	Size   int
}

func (p Page) offset() int {
	if p.Number <= 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

type HealthRecordRepository interface {
	Create(ctx context.Context, record *models.HealthRecord) error
	Update(ctx context.Context, record *models.HealthRecord) error
	GetByID(ctx context.Context, id uint) (*models.HealthRecord, error)
	GetByEmployeeAndYear(ctx context.Context, employeeID uint, year int) (*models.HealthRecord, error)
	List(ctx context.Context, filter RecordFilter, page Page) ([]models.HealthRecord, int64, error)
	Delete(ctx context.Context, id uint) error
	WithTx(tx *gorm.DB) HealthRecordRepository
}

type GormHealthRecordRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormHealthRecordRepository(db *gorm.DB, logger *logrus.Logger) (*GormHealthRecordRepository, error) {
	if err := db.AutoMigrate(&models.HealthRecord{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate health_records table")
		return nil, err
	}

	logger.Info("Health record repository initialized")

	return &GormHealthRecordRepository{
		db:     db,
		logger: logger,
	}, nil
}

func (r *GormHealthRecordRepository) WithTx(tx *gorm.DB) HealthRecordRepository {
	return &GormHealthRecordRepository{db: tx, logger: r.logger}
}

func (r *GormHealthRecordRepository) Create(ctx context.Context, record *models.HealthRecord) error {
	err := r.db.WithContext(ctx).
		Omit("Employee", "ExaminationType", "HealthClassification").
		Create(record).Error
	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"employee_id": record.EmployeeID,
			"year":        record.Year,
		}).Error("Failed to create health record")
		return err
	}
	return nil
}

func (r *GormHealthRecordRepository) Update(ctx context.Context, record *models.HealthRecord) error {
	err := r.db.WithContext(ctx).
		Omit("Employee", "ExaminationType", "HealthClassification").
		Save(record).Error
	if err != nil {
		r.logger.WithError(err).WithField("id", record.ID).Error("Failed to update health record")
		return err
	}
	return nil
}

func (r *GormHealthRecordRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Employee.Department").
		Preload("ExaminationType").
		Preload("HealthClassification")
}

func (r *GormHealthRecordRepository) GetByID(ctx context.Context, id uint) (*models.HealthRecord, error) {
	var record models.HealthRecord
	err := r.preloaded(ctx).First(&record, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *GormHealthRecordRepository) GetByEmployeeAndYear(ctx context.Context, employeeID uint, year int) (*models.HealthRecord, error) {
	var record models.HealthRecord
	err := r.db.WithContext(ctx).
		Where("employee_id = ? AND year = ?", employeeID, year).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// List returns one page of matching records and the total match count,
// newest year first.
func (r *GormHealthRecordRepository) List(ctx context.Context, filter RecordFilter, page Page) ([]models.HealthRecord, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.HealthRecord{}).
		Joins("JOIN employees ON employees.id = health_records.employee_id").
		Joins("LEFT JOIN health_classifications ON health_classifications.id = health_records.health_classification_id")

	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(employees.code) LIKE ? OR LOWER(employees.full_name) LIKE ?", like, like)
	}
	if filter.Year != nil {
		query = query.Where("health_records.year = ?", *filter.Year)
	}
	if filter.ClassificationID != nil {
		query = query.Where("health_records.health_classification_id = ?", *filter.ClassificationID)
	}
	if name := strings.TrimSpace(filter.ClassificationName); name != "" {
		query = query.Where("LOWER(health_classifications.name) = ?", strings.ToLower(name))
	}
	if text := strings.TrimSpace(filter.ConclusionText); text != "" {
		query = query.Where("LOWER(health_records.conclusion_text) LIKE ?", "%"+strings.ToLower(text)+"%")
	}
	if filter.Vaccinated != nil {
		query = query.Where("health_records.vaccinated = ?", *filter.Vaccinated)
	}
	if filter.DepartmentID != nil {
		query = query.Where("employees.department_id = ?", *filter.DepartmentID)
	}
	if filter.Status != "" {
		query = query.Where("health_records.status = ?", filter.Status)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.
		Preload("Employee.Department").
		Preload("ExaminationType").
		Preload("HealthClassification").
		Order("health_records.year DESC").
		Order("employees.code ASC")
	if page.Size > 0 {
		query = query.Offset(page.offset()).Limit(page.Size)
	}

	var records []models.HealthRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (r *GormHealthRecordRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.HealthRecord{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
