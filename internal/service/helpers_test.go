package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"health-records/internal/importer"
	"health-records/internal/models"
	"health-records/internal/repository"
	"health-records/internal/testutil"
)

type testEnv struct {
	db              *gorm.DB
	repos           Repositories
	recordStaging   *repository.GormStagingRepository[models.StagingRow]
	employeeStaging *repository.GormStagingRepository[models.EmployeeStagingRow]
	departments     *DepartmentService
	examTypes       *ExaminationTypeService
	classifications *HealthClassificationService
	employees       *EmployeeService
	records         *HealthRecordService
	recordImports   *RecordImportService
	employeeImports *EmployeeImportService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewDB(t)
	logger := testutil.Logger()

	departments, err := repository.NewDepartmentRepository(db, logger)
	require.NoError(t, err)
	examTypes, err := repository.NewExaminationTypeRepository(db, logger)
	require.NoError(t, err)
	classifications, err := repository.NewHealthClassificationRepository(db, logger)
	require.NoError(t, err)
	employees, err := repository.NewGormEmployeeRepository(db, logger)
	require.NoError(t, err)
	records, err := repository.NewGormHealthRecordRepository(db, logger)
	require.NoError(t, err)
	recordStaging, err := repository.NewRecordStagingRepository(db, logger)
	require.NoError(t, err)
	employeeStaging, err := repository.NewEmployeeStagingRepository(db, logger)
	require.NoError(t, err)

	repos := Repositories{
		Employees:       employees,
		Records:         records,
		Departments:     departments,
		ExamTypes:       examTypes,
		Classifications: classifications,
	}

	return &testEnv{
		db:              db,
		repos:           repos,
		recordStaging:   recordStaging,
		employeeStaging: employeeStaging,
		departments:     NewCatalogService[models.Department, *models.Department](departments, "department", logger),
		examTypes:       NewCatalogService[models.ExaminationType, *models.ExaminationType](examTypes, "examination type", logger),
		classifications: NewCatalogService[models.HealthClassification, *models.HealthClassification](classifications, "health classification", logger),
		employees:       NewEmployeeService(employees, departments, logger),
		records:         NewHealthRecordService(records, employees, examTypes, classifications, logger),
		recordImports:   NewRecordImportService(db, recordStaging, repos, importer.DefaultRecordColumns(), logger),
		employeeImports: NewEmployeeImportService(db, employeeStaging, repos, importer.DefaultEmployeeColumns(), logger),
	}
}

// seed creates department "Khoa Nội", employees NV001/NV002, classifications
// I, II, IV and examination type "Khám định kỳ".
func (e *testEnv) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	dept, err := e.departments.Create(ctx, CatalogInput{Name: "Khoa Nội"})
	require.NoError(t, err)

	for _, name := range []string{"I", "II", "IV"} {
		_, err := e.classifications.Create(ctx, CatalogInput{Name: name})
		require.NoError(t, err)
	}
	_, err = e.examTypes.Create(ctx, CatalogInput{Name: "Khám định kỳ"})
	require.NoError(t, err)

	_, err = e.employees.Create(ctx, EmployeeInput{Code: "NV001", FullName: "Nguyễn Văn A", DepartmentID: &dept.ID})
	require.NoError(t, err)
	_, err = e.employees.Create(ctx, EmployeeInput{Code: "NV002", FullName: "Trần Thị B"})
	require.NoError(t, err)
}

func (e *testEnv) employeeID(t *testing.T, code string) uint {
	t.Helper()
	emp, err := e.repos.Employees.GetByCode(context.Background(), code)
	require.NoError(t, err)
	require.NotNil(t, emp)
	return emp.ID
}

func (e *testEnv) countRecords(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.HealthRecord{}).Count(&n).Error)
	return n
}

func (e *testEnv) countStaged(t *testing.T, batchID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.StagingRow{}).Where("batch_id = ?", batchID).Count(&n).Error)
	return n
}
