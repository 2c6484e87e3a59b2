package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"health-records/internal/models"
	"health-records/internal/repository"
)

// CatalogInput creates or replaces a catalog entry.
type CatalogInput struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

func (in *CatalogInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	if in.Description != nil {
		d := strings.TrimSpace(*in.Description)
		if d == "" {
			in.Description = nil
		} else {
			in.Description = &d
		}
	}
}

// catalogPtr lets generic code reach the embedded CatalogEntry of *T.
type catalogPtr[T repository.CatalogItem] interface {
	*T
	Entry() *models.CatalogEntry
}

// CatalogService manages one reference catalog.
type CatalogService[T repository.CatalogItem, PT catalogPtr[T]] struct {
	repo   repository.CatalogRepository[T]
	name   string
	logger *logrus.Logger
}

func NewCatalogService[T repository.CatalogItem, PT catalogPtr[T]](
	repo repository.CatalogRepository[T],
	name string,
	logger *logrus.Logger,
) *CatalogService[T, PT] {
	return &CatalogService[T, PT]{repo: repo, name: name, logger: logger}
}

type (
	DepartmentService           = CatalogService[models.Department, *models.Department]
	ExaminationTypeService      = CatalogService[models.ExaminationType, *models.ExaminationType]
	HealthClassificationService = CatalogService[models.HealthClassification, *models.HealthClassification]
)

func (s *CatalogService[T, PT]) List(ctx context.Context) ([]T, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.name, err)
	}
	return items, nil
}

func (s *CatalogService[T, PT]) Get(ctx context.Context, id uint) (*T, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get %s %d: %w", s.name, id, err)
	}
	if item == nil {
		return nil, fmt.Errorf("%s %d: %w", s.name, id, ErrNotFound)
	}
	return item, nil
}

func (s *CatalogService[T, PT]) Create(ctx context.Context, in CatalogInput) (*T, error) {
	in.normalize()
	if err := validateInput(&in); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, in.Name, 0); err != nil {
		return nil, err
	}

	item := new(T)
	entry := PT(item).Entry()
	entry.Name = in.Name
	entry.Description = in.Description

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create %s: %w", s.name, err)
	}

	s.logger.WithFields(logrus.Fields{
		"catalog": s.name,
		"id":      entry.ID,
		"name":    entry.Name,
	}).Info("Catalog entry created")
	return item, nil
}

func (s *CatalogService[T, PT]) Update(ctx context.Context, id uint, in CatalogInput) (*T, error) {
	in.normalize()
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, in.Name, id); err != nil {
		return nil, err
	}

	entry := PT(item).Entry()
	entry.Name = in.Name
	entry.Description = in.Description
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("update %s %d: %w", s.name, id, err)
	}
	return item, nil
}

// Delete removes the entry; rows that referenced it keep existing with a null reference.
func (s *CatalogService[T, PT]) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if notFound(err) {
			return fmt.Errorf("%s %d: %w", s.name, id, ErrNotFound)
		}
		return fmt.Errorf("delete %s %d: %w", s.name, id, err)
	}
	return nil
}

func (s *CatalogService[T, PT]) ensureUniqueName(ctx context.Context, name string, selfID uint) error {
	existing, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return fmt.Errorf("lookup %s %q: %w", s.name, name, err)
	}
	if existing != nil && PT(existing).Entry().ID != selfID {
		return fmt.Errorf("%s %q: %w", s.name, name, ErrDuplicate)
	}
	return nil
}
