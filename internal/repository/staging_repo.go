package repository

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"health-records/internal/models"
)

const stagingInsertBatchSize = 200

// StagedRow is any staging table row.
type StagedRow interface {
	models.StagingRow | models.EmployeeStagingRow
}

type StagingRepository[T StagedRow] interface {
	Insert(ctx context.Context, rows []T) error
	BatchExists(ctx context.Context, batchID string) (bool, error)
	ListBatch(ctx context.Context, batchID string) ([]T, error)
	ListValid(ctx context.Context, batchID string) ([]T, error)
	DeleteBatch(ctx context.Context, batchID string) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	WithTx(tx *gorm.DB) StagingRepository[T]
}

type GormStagingRepository[T StagedRow] struct {
	db      *gorm.DB
	logger  *logrus.Logger
	orderBy string
}

func newGormStagingRepository[T StagedRow](db *gorm.DB, logger *logrus.Logger, orderBy string) (*GormStagingRepository[T], error) {
	if err := db.AutoMigrate(new(T)); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate staging table")
		return nil, err
	}

	return &GormStagingRepository[T]{
		db:      db,
		logger:  logger,
		orderBy: orderBy,
	}, nil
}

// NewRecordStagingRepository previews rows ordered by employee code, then row number.
func NewRecordStagingRepository(db *gorm.DB, logger *logrus.Logger) (*GormStagingRepository[models.StagingRow], error) {
	return newGormStagingRepository[models.StagingRow](db, logger, "employee_code ASC, row_number ASC")
}

func NewEmployeeStagingRepository(db *gorm.DB, logger *logrus.Logger) (*GormStagingRepository[models.EmployeeStagingRow], error) {
	return newGormStagingRepository[models.EmployeeStagingRow](db, logger, "code ASC, row_number ASC")
}

func (r *GormStagingRepository[T]) WithTx(tx *gorm.DB) StagingRepository[T] {
	return &GormStagingRepository[T]{db: tx, logger: r.logger, orderBy: r.orderBy}
}

func (r *GormStagingRepository[T]) Insert(ctx context.Context, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(rows, stagingInsertBatchSize).Error
}

func (r *GormStagingRepository[T]) BatchExists(ctx context.Context, batchID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(new(T)).Where("batch_id = ?", batchID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormStagingRepository[T]) ListBatch(ctx context.Context, batchID string) ([]T, error) {
	var rows []T
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order(r.orderBy).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *GormStagingRepository[T]) ListValid(ctx context.Context, batchID string) ([]T, error) {
	var rows []T
	err := r.db.WithContext(ctx).
		Where("batch_id = ? AND is_valid = ?", batchID, true).
		Order("row_number ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *GormStagingRepository[T]) DeleteBatch(ctx context.Context, batchID string) (int64, error) {
	result := r.db.WithContext(ctx).Where("batch_id = ?", batchID).Delete(new(T))
	return result.RowsAffected, result.Error
}

func (r *GormStagingRepository[T]) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(new(T))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		r.logger.WithFields(logrus.Fields{
			"rows":   result.RowsAffected,
			"cutoff": cutoff.Format("2006-01-02 15:04:05"),
		}).Info("Expired staging rows swept")
	}
	return result.RowsAffected, nil
}
