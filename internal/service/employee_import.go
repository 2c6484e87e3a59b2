package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"health-records/internal/importer"
	"health-records/internal/models"
	"health-records/internal/repository"
)

// EmployeeImportService loads the employee directory from a spreadsheet with
// the same staged lifecycle as health records. Rows upsert by code.
type EmployeeImportService struct {
	*batches[models.EmployeeStagingRow]
	repos   Repositories
	columns []importer.ColumnSpec
}

func NewEmployeeImportService(
	db *gorm.DB,
	staging repository.StagingRepository[models.EmployeeStagingRow],
	repos Repositories,
	columns []importer.ColumnSpec,
	logger *logrus.Logger,
) *EmployeeImportService {
	return &EmployeeImportService{
		batches: newBatches(db, staging, importKindEmployees, logger),
		repos:   repos,
		columns: columns,
	}
}

func (s *EmployeeImportService) Template() ([]byte, error) {
	return importer.TemplateWorkbook(s.columns)
}

func (s *EmployeeImportService) Stage(ctx context.Context, r io.Reader) (*EmployeePreview, error) {
	sheet, err := importer.ReadSheet(r, s.columns)
	if err != nil {
		return nil, err
	}

	lookup, err := s.repos.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	v := importer.NewEmployeeRowValidator(lookup)
	rows := make([]models.EmployeeStagingRow, 0, len(sheet.Rows))
	for _, raw := range sheet.Rows {
		rows = append(rows, v.Validate(raw))
	}

	batchID, err := s.store(ctx, rows, func(row *models.EmployeeStagingRow, id string) {
		row.BatchID = id
	})
	if err != nil {
		return nil, err
	}
	return s.Preview(ctx, batchID)
}

func (s *EmployeeImportService) Commit(ctx context.Context, batchID string) (*CommitResult, error) {
	var res CommitResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		staging := s.staging.WithTx(tx)
		repos := s.repos.WithTx(tx)

		rows, err := staging.ListValid(ctx, batchID)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return ErrNothingToImport
		}

		resolve := newCommitResolver(ctx, repos)
		for i := range rows {
			row := &rows[i]
			if row.Code == nil || row.FullName == nil {
				res.Skipped++
				continue
			}

			departmentID, err := resolve.department(row.DepartmentName)
			if err != nil {
				return err
			}

			employee, err := repos.Employees.GetByCode(ctx, *row.Code)
			if err != nil {
				return err
			}

			created := employee == nil
			if created {
				employee = &models.Employee{Code: strings.TrimSpace(*row.Code)}
			}
			employee.Department = nil
			employee.FullName = strings.TrimSpace(*row.FullName)
			employee.BirthYear = row.BirthYear
			employee.Gender = row.Gender
			employee.JobTitle = row.JobTitle
			employee.Position = row.Position
			employee.DepartmentID = departmentID

			if created {
				if err := repos.Employees.Create(ctx, employee); err != nil {
					return err
				}
				res.Created++
				continue
			}
			if err := repos.Employees.Update(ctx, employee); err != nil {
				return err
			}
			res.Updated++
		}

		_, err = staging.DeleteBatch(ctx, batchID)
		return err
	})
	if err != nil {
		s.commitFailed(batchID, err)
		if errors.Is(err, ErrNothingToImport) {
			return nil, err
		}
		return nil, fmt.Errorf("commit employees batch %s: %w", batchID, err)
	}

	s.committed(batchID, res)
	return &res, nil
}
