package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"health-records/internal/repository"
)

func TestCatalogService_CRUD(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	desc := "  Khám sức khoẻ định kỳ hằng năm  "
	created, err := env.examTypes.Create(ctx, CatalogInput{Name: " Định kỳ ", Description: &desc})
	require.NoError(t, err)
	require.Equal(t, "Định kỳ", created.Name)
	require.Equal(t, "Khám sức khoẻ định kỳ hằng năm", *created.Description)

	_, err = env.examTypes.Create(ctx, CatalogInput{Name: "định kỳ"})
	require.ErrorIs(t, err, ErrDuplicate)

	_, err = env.examTypes.Create(ctx, CatalogInput{Name: "   "})
	require.ErrorIs(t, err, ErrInvalidInput)

	updated, err := env.examTypes.Update(ctx, created.ID, CatalogInput{Name: "ĐỊNH KỲ"})
	require.NoError(t, err)
	require.Equal(t, "ĐỊNH KỲ", updated.Name)
	require.Nil(t, updated.Description)

	items, err := env.examTypes.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)

	require.NoError(t, env.examTypes.Delete(ctx, created.ID))
	require.ErrorIs(t, env.examTypes.Delete(ctx, created.ID), ErrNotFound)

	_, err = env.examTypes.Get(ctx, created.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogService_DeleteDetachesReferences(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()

	empID := env.employeeID(t, "NV001")
	emp, err := env.employees.Get(ctx, empID)
	require.NoError(t, err)
	require.NotNil(t, emp.DepartmentID)

	classifications, err := env.classifications.List(ctx)
	require.NoError(t, err)
	classificationID := classifications[0].ID

	record, err := env.records.Create(ctx, RecordInput{
		EmployeeID:             empID,
		Year:                   2024,
		HealthClassificationID: &classificationID,
	})
	require.NoError(t, err)

	require.NoError(t, env.departments.Delete(ctx, *emp.DepartmentID))
	require.NoError(t, env.classifications.Delete(ctx, classificationID))

	emp, err = env.employees.Get(ctx, empID)
	require.NoError(t, err)
	require.Nil(t, emp.DepartmentID)

	view, err := env.records.Get(ctx, record.ID)
	require.NoError(t, err)
	require.Nil(t, view.HealthClassificationID)
	require.Empty(t, view.Conclusion)

	employees, err := env.employees.List(ctx, repository.EmployeeFilter{})
	require.NoError(t, err)
	require.Len(t, employees, 2)
}
