package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"health-records/internal/models"
	"health-records/internal/repository"
)

func TestHealthRecordService_CreateValidates(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()

	empID := env.employeeID(t, "NV001")
	examDate := "05/03/2024"
	vaccine := "Vaxigrip"

	view, err := env.records.Create(ctx, RecordInput{
		EmployeeID:  empID,
		Year:        2024,
		ExamDate:    &examDate,
		HeightCm:    decimal.NewNullDecimal(decimal.RequireFromString("171.5")),
		VaccineName: &vaccine,
	})
	require.NoError(t, err)
	require.True(t, view.Vaccinated)
	require.Equal(t, 2024, view.ExamDate.Year())
	require.Equal(t, models.StatusPending, view.Status)
	require.Equal(t, "NV001", view.Employee.Code)

	_, err = env.records.Create(ctx, RecordInput{EmployeeID: empID, Year: 2024})
	require.ErrorIs(t, err, ErrDuplicate)

	_, err = env.records.Create(ctx, RecordInput{EmployeeID: 999, Year: 2024})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.records.Create(ctx, RecordInput{EmployeeID: empID, Year: 0})
	require.ErrorIs(t, err, ErrInvalidInput)

	bad := "someday"
	_, err = env.records.Create(ctx, RecordInput{EmployeeID: empID, Year: 2025, ExamDate: &bad})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.records.Create(ctx, RecordInput{EmployeeID: empID, Year: 2025, Status: "archived"})
	require.ErrorIs(t, err, ErrInvalidInput)

	text := "Cần nghỉ ngơi"
	updated, err := env.records.Update(ctx, view.ID, RecordInput{
		EmployeeID:     empID,
		Year:           2024,
		ConclusionText: &text,
		Status:         models.StatusDone,
	})
	require.NoError(t, err)
	require.Equal(t, "Cần nghỉ ngơi", updated.Conclusion)
	require.Equal(t, models.StatusDone, updated.Status)
	require.False(t, updated.Vaccinated)

	require.NoError(t, env.records.Delete(ctx, view.ID))
	require.ErrorIs(t, env.records.Delete(ctx, view.ID), ErrNotFound)
}

func TestHealthRecordService_ListFiltersAndPages(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()

	classifications, err := env.classifications.List(ctx)
	require.NoError(t, err)
	byName := map[string]uint{}
	for _, c := range classifications {
		byName[c.Name] = c.ID
	}
	ii, iv := byName["II"], byName["IV"]

	a, b := env.employeeID(t, "NV001"), env.employeeID(t, "NV002")
	for year := 2010; year < 2027; year++ {
		_, err := env.records.Create(ctx, RecordInput{EmployeeID: a, Year: year, HealthClassificationID: &ii})
		require.NoError(t, err)
	}
	_, err = env.records.Create(ctx, RecordInput{EmployeeID: b, Year: 2024, HealthClassificationID: &iv, Vaccinated: true})
	require.NoError(t, err)

	page, err := env.records.List(ctx, repository.RecordFilter{}, repository.Page{})
	require.NoError(t, err)
	require.Equal(t, int64(18), page.Total)
	require.Len(t, page.Records, DefaultPageSize)
	require.Equal(t, 2026, page.Records[0].Year)

	page, err = env.records.List(ctx, repository.RecordFilter{}, repository.Page{Number: 2})
	require.NoError(t, err)
	require.Len(t, page.Records, 3)

	year := 2024
	page, err = env.records.List(ctx, repository.RecordFilter{Year: &year}, repository.Page{})
	require.NoError(t, err)
	require.Equal(t, int64(2), page.Total)
	require.Equal(t, "NV001", page.Records[0].Employee.Code)

	vaccinated := true
	page, err = env.records.List(ctx, repository.RecordFilter{Vaccinated: &vaccinated}, repository.Page{})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	require.Equal(t, models.ConclusionFitWithRestrictions, page.Records[0].Conclusion)

	page, err = env.records.List(ctx, repository.RecordFilter{ClassificationName: "iv"}, repository.Page{})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)

	page, err = env.records.List(ctx, repository.RecordFilter{Query: "trần"}, repository.Page{})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)

	dept := env.employeeDepartment(t, "NV001")
	page, err = env.records.List(ctx, repository.RecordFilter{DepartmentID: &dept}, repository.Page{})
	require.NoError(t, err)
	require.Equal(t, int64(17), page.Total)
}

func TestHealthRecordService_Export(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()

	classifications, err := env.classifications.List(ctx)
	require.NoError(t, err)
	id := classifications[0].ID

	_, err = env.records.Create(ctx, RecordInput{EmployeeID: env.employeeID(t, "NV001"), Year: 2024, HealthClassificationID: &id})
	require.NoError(t, err)

	data, err := env.records.Export(ctx, repository.RecordFilter{})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "Mã nhân viên", rows[0][0])
	require.Equal(t, "NV001", rows[1][0])
	require.Equal(t, "Khoa Nội", rows[1][2])
	require.Contains(t, rows[1], models.ConclusionFitForWork)
}
