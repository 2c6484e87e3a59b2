package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"health-records/internal/importer"
	"health-records/internal/models"
	"health-records/internal/repository"
)

const (
	batchIDLength   = 8
	batchIDAttempts = 5
)

// Preview is the reviewable state of a staged batch.
type Preview[T repository.StagedRow] struct {
	BatchID      string `json:"batch_id"`
	Total        int    `json:"total"`
	ValidCount   int    `json:"valid_count"`
	InvalidCount int    `json:"invalid_count"`
	AllValid     bool   `json:"all_valid"`
	Rows         []T    `json:"rows"`
}

type (
	RecordPreview   = Preview[models.StagingRow]
	EmployeePreview = Preview[models.EmployeeStagingRow]
)

// Repositories bundles the stores an import reads from and writes to.
type Repositories struct {
	Employees       repository.EmployeeRepository
	Records         repository.HealthRecordRepository
	Departments     repository.CatalogRepository[models.Department]
	ExamTypes       repository.CatalogRepository[models.ExaminationType]
	Classifications repository.CatalogRepository[models.HealthClassification]
}

// WithTx binds every repository to tx.
func (r Repositories) WithTx(tx *gorm.DB) Repositories {
	return Repositories{
		Employees:       r.Employees.WithTx(tx),
		Records:         r.Records.WithTx(tx),
		Departments:     r.Departments.WithTx(tx),
		ExamTypes:       r.ExamTypes.WithTx(tx),
		Classifications: r.Classifications.WithTx(tx),
	}
}

// snapshot loads the directory and catalogs a validator checks rows against.
func (r Repositories) snapshot(ctx context.Context) (*importer.Snapshot, error) {
	employees, err := r.Employees.List(ctx, repository.EmployeeFilter{})
	if err != nil {
		return nil, fmt.Errorf("load employees: %w", err)
	}
	departments, err := r.Departments.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load departments: %w", err)
	}
	classifications, err := r.Classifications.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load health classifications: %w", err)
	}
	return importer.NewSnapshot(employees, departments, classifications), nil
}

// CommitResult counts what a commit did with the valid rows of a batch.
type CommitResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

func (r CommitResult) record(kind string) {
	m := metrics()
	m.writtenRows.WithLabelValues(kind, "created").Add(float64(r.Created))
	m.writtenRows.WithLabelValues(kind, "updated").Add(float64(r.Updated))
	m.writtenRows.WithLabelValues(kind, "skipped").Add(float64(r.Skipped))
}

type validRow interface {
	Valid() bool
}

// batches holds the staging lifecycle shared by every import kind:
// staging rows under a fresh batch id, preview, cancel and expiry.
type batches[T repository.StagedRow] struct {
	db      *gorm.DB
	staging repository.StagingRepository[T]
	kind    string
	logger  *logrus.Logger
	newID   func() string
}

func newBatches[T repository.StagedRow](db *gorm.DB, staging repository.StagingRepository[T], kind string, logger *logrus.Logger) *batches[T] {
	return &batches[T]{
		db:      db,
		staging: staging,
		kind:    kind,
		logger:  logger,
		newID:   randomBatchID,
	}
}

func randomBatchID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:batchIDLength]
}

// store writes rows under a batch id that is not in use yet. All rows land
// in one transaction, or none do.
func (b *batches[T]) store(ctx context.Context, rows []T, setBatch func(*T, string)) (string, error) {
	batchID, err := b.freshID(ctx)
	if err != nil {
		return "", err
	}

	for i := range rows {
		setBatch(&rows[i], batchID)
	}

	err = b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return b.staging.WithTx(tx).Insert(ctx, rows)
	})
	if err != nil {
		return "", fmt.Errorf("stage %s batch: %w", b.kind, err)
	}

	valid := 0
	for i := range rows {
		if any(&rows[i]).(validRow).Valid() {
			valid++
		}
	}
	m := metrics()
	m.stagedRows.WithLabelValues(b.kind, "true").Add(float64(valid))
	m.stagedRows.WithLabelValues(b.kind, "false").Add(float64(len(rows) - valid))

	b.logger.WithFields(logrus.Fields{
		"kind":     b.kind,
		"batch_id": batchID,
		"rows":     len(rows),
		"valid":    valid,
	}).Info("Import batch staged")
	return batchID, nil
}

func (b *batches[T]) freshID(ctx context.Context) (string, error) {
	for attempt := 0; attempt < batchIDAttempts; attempt++ {
		id := b.newID()
		exists, err := b.staging.BatchExists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("check batch id: %w", err)
		}
		if !exists {
			return id, nil
		}
		b.logger.WithField("batch_id", id).Warn("Batch id collision, retrying")
	}
	return "", fmt.Errorf("could not allocate a free batch id after %d attempts", batchIDAttempts)
}

// Preview lists a batch ordered for review. An unknown batch yields an empty preview.
func (b *batches[T]) Preview(ctx context.Context, batchID string) (*Preview[T], error) {
	rows, err := b.staging.ListBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("load %s batch %s: %w", b.kind, batchID, err)
	}
	return newPreview(batchID, rows), nil
}

func newPreview[T repository.StagedRow](batchID string, rows []T) *Preview[T] {
	p := &Preview[T]{BatchID: batchID, Total: len(rows), Rows: rows}
	if p.Rows == nil {
		p.Rows = []T{}
	}
	for i := range rows {
		if any(&rows[i]).(validRow).Valid() {
			p.ValidCount++
		} else {
			p.InvalidCount++
		}
	}
	p.AllValid = p.InvalidCount == 0
	return p
}

// Cancel drops a batch. Cancelling an unknown or already cleared batch is not an error.
func (b *batches[T]) Cancel(ctx context.Context, batchID string) error {
	n, err := b.staging.DeleteBatch(ctx, batchID)
	if err != nil {
		return fmt.Errorf("cancel %s batch %s: %w", b.kind, batchID, err)
	}
	metrics().cancelledRows.WithLabelValues(b.kind).Add(float64(n))

	b.logger.WithFields(logrus.Fields{
		"kind":     b.kind,
		"batch_id": batchID,
		"rows":     n,
	}).Info("Import batch cancelled")
	return nil
}

// Sweep deletes staging rows older than ttl.
func (b *batches[T]) Sweep(ctx context.Context, ttl time.Duration) (int64, error) {
	n, err := b.staging.DeleteOlderThan(ctx, time.Now().Add(-ttl))
	if err != nil {
		return 0, fmt.Errorf("sweep %s staging: %w", b.kind, err)
	}
	metrics().sweptRows.WithLabelValues(b.kind).Add(float64(n))
	return n, nil
}

func (b *batches[T]) commitFailed(batchID string, err error) {
	result := "error"
	if errors.Is(err, ErrNothingToImport) {
		result = "empty"
	}
	metrics().commits.WithLabelValues(b.kind, result).Inc()
	b.logger.WithError(err).WithFields(logrus.Fields{
		"kind":     b.kind,
		"batch_id": batchID,
	}).Warn("Import batch commit failed")
}

func (b *batches[T]) committed(batchID string, res CommitResult) {
	metrics().commits.WithLabelValues(b.kind, "ok").Inc()
	res.record(b.kind)
	b.logger.WithFields(logrus.Fields{
		"kind":     b.kind,
		"batch_id": batchID,
		"created":  res.Created,
		"updated":  res.Updated,
		"skipped":  res.Skipped,
	}).Info("Import batch committed")
}
