package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"health-records/internal/models"
)

// CatalogItem is any of the reference catalogs.
type CatalogItem interface {
	models.Department | models.ExaminationType | models.HealthClassification
}

type CatalogRepository[T CatalogItem] interface {
	Create(ctx context.Context, item *T) error
	Update(ctx context.Context, item *T) error
	GetByID(ctx context.Context, id uint) (*T, error)
	GetByName(ctx context.Context, name string) (*T, error)
	List(ctx context.Context) ([]T, error)
	Delete(ctx context.Context, id uint) error
	WithTx(tx *gorm.DB) CatalogRepository[T]
}

// reference is a nullable foreign key column that points at a catalog row.
type reference struct {
	model  any
	column string
}

type GormCatalogRepository[T CatalogItem] struct {
	db         *gorm.DB
	logger     *logrus.Logger
	references []reference
}

func newGormCatalogRepository[T CatalogItem](db *gorm.DB, logger *logrus.Logger, refs ...reference) (*GormCatalogRepository[T], error) {
	if err := db.AutoMigrate(new(T)); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate catalog table")
		return nil, err
	}

	return &GormCatalogRepository[T]{
		db:         db,
		logger:     logger,
		references: refs,
	}, nil
}

func NewDepartmentRepository(db *gorm.DB, logger *logrus.Logger) (*GormCatalogRepository[models.Department], error) {
	return newGormCatalogRepository[models.Department](db, logger,
		reference{model: &models.Employee{}, column: "department_id"},
	)
}

func NewExaminationTypeRepository(db *gorm.DB, logger *logrus.Logger) (*GormCatalogRepository[models.ExaminationType], error) {
	return newGormCatalogRepository[models.ExaminationType](db, logger,
		reference{model: &models.HealthRecord{}, column: "examination_type_id"},
	)
}

func NewHealthClassificationRepository(db *gorm.DB, logger *logrus.Logger) (*GormCatalogRepository[models.HealthClassification], error) {
	return newGormCatalogRepository[models.HealthClassification](db, logger,
		reference{model: &models.HealthRecord{}, column: "health_classification_id"},
	)
}

func (r *GormCatalogRepository[T]) WithTx(tx *gorm.DB) CatalogRepository[T] {
	return &GormCatalogRepository[T]{db: tx, logger: r.logger, references: r.references}
}

func (r *GormCatalogRepository[T]) Create(ctx context.Context, item *T) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		r.logger.WithError(err).Error("Failed to create catalog entry")
		return err
	}
	return nil
}

func (r *GormCatalogRepository[T]) Update(ctx context.Context, item *T) error {
	if err := r.db.WithContext(ctx).Save(item).Error; err != nil {
		r.logger.WithError(err).Error("Failed to update catalog entry")
		return err
	}
	return nil
}

// GetByID returns nil, nil when the row does not exist.
func (r *GormCatalogRepository[T]) GetByID(ctx context.Context, id uint) (*T, error) {
	var item T
	err := r.db.WithContext(ctx).First(&item, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetByName matches case-insensitively (Unicode folding, not SQL LOWER) and
// ignores surrounding whitespace.
func (r *GormCatalogRepository[T]) GetByName(ctx context.Context, name string) (*T, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	items, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if strings.EqualFold(strings.TrimSpace(entryOf(&items[i]).Name), name) {
			return &items[i], nil
		}
	}
	return nil, nil
}

func (r *GormCatalogRepository[T]) List(ctx context.Context) ([]T, error) {
	var items []T
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Delete removes the entry and nulls every reference to it in one transaction.
func (r *GormCatalogRepository[T]) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, ref := range r.references {
			err := tx.Model(ref.model).
				Where(ref.column+" = ?", id).
				Update(ref.column, nil).Error
			if err != nil {
				r.logger.WithError(err).WithField("column", ref.column).Error("Failed to detach catalog references")
				return err
			}
		}

		result := tx.Delete(new(T), id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		r.logger.WithField("id", id).Info("Catalog entry deleted")
		return nil
	})
}

func entryOf[T CatalogItem](item *T) *models.CatalogEntry {
	switch v := any(item).(type) {
	case *models.Department:
		return &v.CatalogEntry
	case *models.ExaminationType:
		return &v.CatalogEntry
	case *models.HealthClassification:
		return &v.CatalogEntry
	}
	return nil
}
