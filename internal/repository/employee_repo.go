package repository

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"health-records/internal/models"
)

// EmployeeFilter narrows the employee list. Zero values are ignored.
type EmployeeFilter struct {
	Query        string
	DepartmentID *uint
	JobTitle     string
	SortBy       string
	Desc         bool
}

var employeeSortColumns = map[string]string{
	"code":       "employees.code",
	"full_name":  "employees.full_name",
	"department": "departments.name",
}

type EmployeeRepository interface {
	Create(ctx context.Context, employee *models.Employee) error
	Update(ctx context.Context, employee *models.Employee) error
	GetByID(ctx context.Context, id uint) (*models.Employee, error)
	GetByCode(ctx context.Context, code string) (*models.Employee, error)
	List(ctx context.Context, filter EmployeeFilter) ([]models.Employee, error)
	Delete(ctx context.Context, id uint) error
	WithTx(tx *gorm.DB) EmployeeRepository
}

type GormEmployeeRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormEmployeeRepository(db *gorm.DB, logger *logrus.Logger) (*GormEmployeeRepository, error) {
	if err := db.AutoMigrate(&models.Employee{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate employees table")
		return nil, err
	}

	logger.Info("Employee repository initialized")

	return &GormEmployeeRepository{
		db:     db,
		logger: logger,
	}, nil
}

func (r *GormEmployeeRepository) WithTx(tx *gorm.DB) EmployeeRepository {
	return &GormEmployeeRepository{db: tx, logger: r.logger}
}

func (r *GormEmployeeRepository) Create(ctx context.Context, employee *models.Employee) error {
	if err := r.db.WithContext(ctx).Omit("Department").Create(employee).Error; err != nil {
		r.logger.WithError(err).WithField("code", employee.Code).Error("Failed to create employee")
		return err
	}
	return nil
}

func (r *GormEmployeeRepository) Update(ctx context.Context, employee *models.Employee) error {
	if err := r.db.WithContext(ctx).Omit("Department").Save(employee).Error; err != nil {
		r.logger.WithError(err).WithField("id", employee.ID).Error("Failed to update employee")
		return err
	}
	return nil
}

func (r *GormEmployeeRepository) GetByID(ctx context.Context, id uint) (*models.Employee, error) {
	var employee models.Employee
	err := r.db.WithContext(ctx).Preload("Department").First(&employee, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &employee, nil
}

// GetByCode matches the code case-insensitively. SQLite's LOWER only folds
// ASCII, so a miss on a non-ASCII code is retried with Unicode folding in Go.
func (r *GormEmployeeRepository) GetByCode(ctx context.Context, code string) (*models.Employee, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}

	var employee models.Employee
	err := r.db.WithContext(ctx).
		Preload("Department").
		Where("LOWER(code) = ?", strings.ToLower(code)).
		First(&employee).Error
	if err == nil {
		return &employee, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if isASCII(code) {
		return nil, nil
	}

	var keys []models.Employee
	if err := r.db.WithContext(ctx).Select("id", "code").Find(&keys).Error; err != nil {
		return nil, err
	}
	for _, k := range keys {
		if strings.EqualFold(strings.TrimSpace(k.Code), code) {
			return r.GetByID(ctx, k.ID)
		}
	}
	return nil, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func (r *GormEmployeeRepository) List(ctx context.Context, filter EmployeeFilter) ([]models.Employee, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Employee{}).
		Preload("Department").
		Joins("LEFT JOIN departments ON departments.id = employees.department_id")

	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(employees.code) LIKE ? OR LOWER(employees.full_name) LIKE ?", like, like)
	}
	if filter.DepartmentID != nil {
		query = query.Where("employees.department_id = ?", *filter.DepartmentID)
	}
	if jt := strings.TrimSpace(filter.JobTitle); jt != "" {
		query = query.Where("LOWER(employees.job_title) LIKE ?", "%"+strings.ToLower(jt)+"%")
	}

	column, ok := employeeSortColumns[filter.SortBy]
	if !ok {
		column = employeeSortColumns["code"]
	}
	direction := " ASC"
	if filter.Desc {
		direction = " DESC"
	}
	query = query.Order(column + direction).Order("employees.id ASC")

	var employees []models.Employee
	if err := query.Find(&employees).Error; err != nil {
		return nil, err
	}
	return employees, nil
}

// Delete removes the employee together with all of their health records.
func (r *GormEmployeeRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		records := tx.Where("employee_id = ?", id).Delete(&models.HealthRecord{})
		if records.Error != nil {
			r.logger.WithError(records.Error).WithField("employee_id", id).Error("Failed to delete health records")
			return records.Error
		}

		result := tx.Delete(&models.Employee{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		r.logger.WithFields(logrus.Fields{
			"employee_id":     id,
			"records_deleted": records.RowsAffected,
		}).Info("Employee deleted")
		return nil
	})
}
