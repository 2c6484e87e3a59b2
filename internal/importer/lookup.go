package importer

import (
	"strings"

	"health-records/internal/models"
)

// Lookup is the read-only view of the directory and catalogs a validator needs.
// Names and codes match case-insensitively.
type Lookup interface {
	EmployeeByCode(code string) (*models.Employee, bool)
	ClassificationByName(name string) (*models.HealthClassification, bool)
	DepartmentByName(name string) (*models.Department, bool)
}

// Snapshot is an in-memory Lookup loaded once per uploaded file.
type Snapshot struct {
	employees       map[string]*models.Employee
	classifications map[string]*models.HealthClassification
	departments     map[string]*models.Department
}

func NewSnapshot(
	employees []models.Employee,
	departments []models.Department,
	classifications []models.HealthClassification,
) *Snapshot {
	s := &Snapshot{
		employees:       make(map[string]*models.Employee, len(employees)),
		classifications: make(map[string]*models.HealthClassification, len(classifications)),
		departments:     make(map[string]*models.Department, len(departments)),
	}
	for i := range employees {
		s.employees[lookupKey(employees[i].Code)] = &employees[i]
	}
	for i := range departments {
		s.departments[lookupKey(departments[i].Name)] = &departments[i]
	}
	for i := range classifications {
		s.classifications[lookupKey(classifications[i].Name)] = &classifications[i]
	}
	return s
}

func (s *Snapshot) EmployeeByCode(code string) (*models.Employee, bool) {
	e, ok := s.employees[lookupKey(code)]
	return e, ok
}

func (s *Snapshot) ClassificationByName(name string) (*models.HealthClassification, bool) {
	c, ok := s.classifications[lookupKey(name)]
	return c, ok
}

func (s *Snapshot) DepartmentByName(name string) (*models.Department, bool) {
	d, ok := s.departments[lookupKey(name)]
	return d, ok
}

func lookupKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
