package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"health-records/internal/importer"
	"health-records/internal/models"
	"health-records/internal/repository"
)

// RecordImportService runs the health-record spreadsheet import:
// stage, preview, then commit or cancel.
type RecordImportService struct {
	*batches[models.StagingRow]
	repos   Repositories
	columns []importer.ColumnSpec
	now     func() time.Time
}

func NewRecordImportService(
	db *gorm.DB,
	staging repository.StagingRepository[models.StagingRow],
	repos Repositories,
	columns []importer.ColumnSpec,
	logger *logrus.Logger,
) *RecordImportService {
	return &RecordImportService{
		batches: newBatches(db, staging, importKindRecords, logger),
		repos:   repos,
		columns: columns,
		now:     time.Now,
	}
}

// Template returns a sample workbook with the expected headers.
func (s *RecordImportService) Template() ([]byte, error) {
	return importer.TemplateWorkbook(s.columns)
}

// Stage parses and validates the whole upload and stores every row under a
// new batch. File-level errors stage nothing.
func (s *RecordImportService) Stage(ctx context.Context, r io.Reader) (*RecordPreview, error) {
	sheet, err := importer.ReadSheet(r, s.columns)
	if err != nil {
		return nil, err
	}

	lookup, err := s.repos.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	v := importer.NewRowValidator(lookup)
	rows := make([]models.StagingRow, 0, len(sheet.Rows))
	for _, raw := range sheet.Rows {
		rows = append(rows, v.Validate(raw))
	}

	batchID, err := s.store(ctx, rows, func(row *models.StagingRow, id string) {
		row.BatchID = id
	})
	if err != nil {
		return nil, err
	}
	return s.Preview(ctx, batchID)
}

// Commit upserts every valid row of the batch by (employee, year) and
// deletes the batch, all in one transaction. On failure nothing is written
// and the batch stays staged.
func (s *RecordImportService) Commit(ctx context.Context, batchID string) (*CommitResult, error) {
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

			employee, err := resolve.employee(row.EmployeeCode)
			if err != nil {
				return err
			}
			if employee == nil {
				s.logger.WithFields(logrus.Fields{
					"batch_id": batchID,
					"row":      row.RowNumber,
				}).Warn("Employee no longer exists, row skipped")
				res.Skipped++
				continue
			}

			examTypeID, err := resolve.examType(row.ExaminationTypeName)
			if err != nil {
				return err
			}
			classificationID, err := resolve.classification(row.HealthClassificationName)
			if err != nil {
				return err
			}

			year := s.recordYear(row)
			record, err := repos.Records.GetByEmployeeAndYear(ctx, employee.ID, year)
			if err != nil {
				return err
			}

			if record == nil {
				record = &models.HealthRecord{
					EmployeeID: employee.ID,
					Year:       year,
					Status:     models.StatusPending,
				}
				applyStagedRow(record, row, examTypeID, classificationID)
				if err := repos.Records.Create(ctx, record); err != nil {
					return err
				}
				res.Created++
				continue
			}

			applyStagedRow(record, row, examTypeID, classificationID)
			if err := repos.Records.Update(ctx, record); err != nil {
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
		return nil, fmt.Errorf("commit records batch %s: %w", batchID, err)
	}

	s.committed(batchID, res)
	return &res, nil
}

func (s *RecordImportService) recordYear(row *models.StagingRow) int {
	if row.Year != nil {
		return *row.Year
	}
	if row.ExamDate != nil {
		return row.ExamDate.Year()
	}
	return s.now().Year()
}

// applyStagedRow overwrites every imported field. Status is left alone.
func applyStagedRow(record *models.HealthRecord, row *models.StagingRow, examTypeID, classificationID *uint) {
	record.ExamDate = row.ExamDate
	record.ExaminationTypeID = examTypeID
	record.ClinicName = row.ClinicName
	record.HeightCm = row.HeightCm
	record.WeightKg = row.WeightKg
	record.BloodPressure = row.BloodPressure
	record.HealthClassificationID = classificationID
	record.ConclusionText = row.ConclusionText
	record.Vaccinated = row.Vaccinated
	record.VaccineName = nil
	if row.Vaccinated {
		record.VaccineName = row.VaccineName
	}
	record.VaccinationDate = row.VaccinationDate
	record.Note = row.Note
}

// commitResolver re-resolves names against the live tables, caching by
// lower-cased name for the length of one commit.
type commitResolver struct {
	ctx             context.Context
	repos           Repositories
	employees       map[string]*models.Employee
	examTypes       map[string]*uint
	classifications map[string]*uint
	departments     map[string]*uint
}

func newCommitResolver(ctx context.Context, repos Repositories) *commitResolver {
	return &commitResolver{
		ctx:             ctx,
		repos:           repos,
		employees:       make(map[string]*models.Employee),
		examTypes:       make(map[string]*uint),
		classifications: make(map[string]*uint),
		departments:     make(map[string]*uint),
	}
}

func (r *commitResolver) employee(code *string) (*models.Employee, error) {
	key := cacheKey(code)
	if key == "" {
		return nil, nil
	}
	if e, ok := r.employees[key]; ok {
		return e, nil
	}
	e, err := r.repos.Employees.GetByCode(r.ctx, *code)
	if err != nil {
		return nil, err
	}
	r.employees[key] = e
	return e, nil
}

func (r *commitResolver) examType(name *string) (*uint, error) {
	return resolveID(r.ctx, r.examTypes, r.repos.ExamTypes, name)
}

func (r *commitResolver) classification(name *string) (*uint, error) {
	return resolveID(r.ctx, r.classifications, r.repos.Classifications, name)
}

func (r *commitResolver) department(name *string) (*uint, error) {
	return resolveID(r.ctx, r.departments, r.repos.Departments, name)
}

// resolveID returns the id of the catalog entry called name, or nil when the
// name is blank or no longer in the catalog.
func resolveID[T repository.CatalogItem, PT catalogPtr[T]](
	ctx context.Context,
	cache map[string]*uint,
	repo repository.CatalogRepository[T],
	name *string,
) (*uint, error) {
	key := cacheKey(name)
	if key == "" {
		return nil, nil
	}
	if id, ok := cache[key]; ok {
		return id, nil
	}

	item, err := repo.GetByName(ctx, *name)
	if err != nil {
		return nil, err
	}

	var id *uint
	if item != nil {
		v := PT(item).Entry().ID
		id = &v
	}
	cache[key] = id
	return id, nil
}

func cacheKey(s *string) string {
	if s == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(*s))
}
