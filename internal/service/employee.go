package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"health-records/internal/models"
	"health-records/internal/repository"
)

// EmployeeInput creates or replaces an employee.
type EmployeeInput struct {
	Code         string        `json:"code" validate:"required,max=50"`
	FullName     string        `json:"full_name" validate:"required,max=200"`
	BirthYear    *int          `json:"birth_year" validate:"omitempty,gt=1900,lt=2200"`
	Gender       models.Gender `json:"gender" validate:"omitempty,oneof=Male Female Unknown"`
	JobTitle     *string       `json:"job_title" validate:"omitempty,max=200"`
	Position     *string       `json:"position" validate:"omitempty,max=200"`
	DepartmentID *uint         `json:"department_id"`
}

func (in *EmployeeInput) normalize() {
	in.Code = strings.TrimSpace(in.Code)
	in.FullName = strings.TrimSpace(in.FullName)
	in.JobTitle = trimOptional(in.JobTitle)
	in.Position = trimOptional(in.Position)
	if in.Gender == "" {
		in.Gender = models.GenderUnknown
	}
}

type EmployeeService struct {
	employeeRepo   repository.EmployeeRepository
	departmentRepo repository.CatalogRepository[models.Department]
	logger         *logrus.Logger
}

func NewEmployeeService(
	employeeRepo repository.EmployeeRepository,
	departmentRepo repository.CatalogRepository[models.Department],
	logger *logrus.Logger,
) *EmployeeService {
	return &EmployeeService{
		employeeRepo:   employeeRepo,
		departmentRepo: departmentRepo,
		logger:         logger,
	}
}

func (s *EmployeeService) List(ctx context.Context, filter repository.EmployeeFilter) ([]models.Employee, error) {
	employees, err := s.employeeRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	return employees, nil
}

func (s *EmployeeService) Get(ctx context.Context, id uint) (*models.Employee, error) {
	employee, err := s.employeeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get employee %d: %w", id, err)
	}
	if employee == nil {
		return nil, fmt.Errorf("employee %d: %w", id, ErrNotFound)
	}
	return employee, nil
}

func (s *EmployeeService) Create(ctx context.Context, in EmployeeInput) (*models.Employee, error) {
	employee := &models.Employee{}
	if err := s.apply(ctx, employee, in); err != nil {
		return nil, err
	}

	if err := s.employeeRepo.Create(ctx, employee); err != nil {
		return nil, fmt.Errorf("create employee: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"id":   employee.ID,
		"code": employee.Code,
	}).Info("Employee created")
	return s.Get(ctx, employee.ID)
}

func (s *EmployeeService) Update(ctx context.Context, id uint, in EmployeeInput) (*models.Employee, error) {
	employee, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, employee, in); err != nil {
		return nil, err
	}

	employee.Department = nil
	if err := s.employeeRepo.Update(ctx, employee); err != nil {
		return nil, fmt.Errorf("update employee %d: %w", id, err)
	}
	return s.Get(ctx, id)
}

// Delete removes the employee and every health record they own.
func (s *EmployeeService) Delete(ctx context.Context, id uint) error {
	if err := s.employeeRepo.Delete(ctx, id); err != nil {
		if notFound(err) {
			return fmt.Errorf("employee %d: %w", id, ErrNotFound)
		}
		return fmt.Errorf("delete employee %d: %w", id, err)
	}
	return nil
}

func (s *EmployeeService) apply(ctx context.Context, employee *models.Employee, in EmployeeInput) error {
	in.normalize()
	if err := validateInput(&in); err != nil {
		return err
	}

	existing, err := s.employeeRepo.GetByCode(ctx, in.Code)
	if err != nil {
		return fmt.Errorf("lookup employee %q: %w", in.Code, err)
	}
	if existing != nil && existing.ID != employee.ID {
		return fmt.Errorf("employee code %q: %w", in.Code, ErrDuplicate)
	}

	if in.DepartmentID != nil {
		dept, err := s.departmentRepo.GetByID(ctx, *in.DepartmentID)
		if err != nil {
			return fmt.Errorf("lookup department %d: %w", *in.DepartmentID, err)
		}
		if dept == nil {
			return invalidField("department_id", "unknown department")
		}
	}

	employee.Code = in.Code
	employee.FullName = in.FullName
	employee.BirthYear = in.BirthYear
	employee.Gender = in.Gender
	employee.JobTitle = in.JobTitle
	employee.Position = in.Position
	employee.DepartmentID = in.DepartmentID
	return nil
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
