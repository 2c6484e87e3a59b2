package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"health-records/internal/importer"
	"health-records/internal/models"
	"health-records/internal/testutil"
)

var recordHeader = []any{
	"Mã nhân viên", "Họ và tên", "Năm khám", "Ngày khám", "Loại khám",
	"Chiều cao (cm)", "Cân nặng (kg)", "Phân loại sức khoẻ",
	"Kết luận (nếu muốn nhập tay)", "Đã tiêm vắc-xin", "Ngày tiêm chủng",
}

func stageRecords(t *testing.T, env *testEnv, rows ...[]any) *RecordPreview {
	t.Helper()
	data := testutil.BuildWorkbook(t, append([][]any{recordHeader}, rows...)...)
	preview, err := env.recordImports.Stage(context.Background(), bytes.NewReader(data))
	require.NoError(t, err)
	return preview
}

func TestRecordImport_StageAndPreview(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	preview := stageRecords(t, env,
		[]any{"NV002", "", "", "01/02/2024", "Khám định kỳ", "160", "50,5", "II", "", "Vaxigrip; Influvac", ""},
		[]any{"NV999", "Ghost", "", "01/02/2024", "", "", "", "", "", "", ""},
		[]any{"NV001", "", "", "2024-03-05", "", "170 cm", "", "VII", "", "", "10/10/2024"},
	)

	require.Len(t, preview.BatchID, 8)
	require.Equal(t, 3, preview.Total)
	require.Equal(t, 2, preview.ValidCount)
	require.Equal(t, 1, preview.InvalidCount)
	require.False(t, preview.AllValid)

	codes := make([]string, 0, len(preview.Rows))
	for _, row := range preview.Rows {
		codes = append(codes, *row.EmployeeCode)
	}
	require.Equal(t, []string{"NV001", "NV002", "NV999"}, codes)

	warned := preview.Rows[0]
	require.True(t, warned.IsValid)
	require.Equal(t, importer.MsgClassificationNotFound, *warned.ErrorMessage)
	require.True(t, warned.Vaccinated)
	require.Equal(t, 4, warned.RowNumber)

	invalid := preview.Rows[2]
	require.False(t, invalid.IsValid)
	require.Equal(t, importer.MsgEmployeeNotFound, *invalid.ErrorMessage)

	again, err := env.recordImports.Preview(context.Background(), preview.BatchID)
	require.NoError(t, err)
	require.Equal(t, preview.Total, again.Total)
}

func TestRecordImport_CommitCreatesThenUpdates(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()

	preview := stageRecords(t, env,
		[]any{"NV001", "", "", "01/02/2024", "khám định kỳ", "165", "60,5", " ii ", "", "Vaxigrip", ""},
		[]any{"NV002", "", "2024", "", "", "", "", "IV", "", "", ""},
	)

	res, err := env.recordImports.Commit(ctx, preview.BatchID)
	require.NoError(t, err)
	require.Equal(t, CommitResult{Created: 2}, *res)
	require.Equal(t, int64(2), env.countRecords(t))
	require.Zero(t, env.countStaged(t, preview.BatchID))

	record, err := env.repos.Records.GetByEmployeeAndYear(ctx, env.employeeID(t, "NV001"), 2024)
	require.NoError(t, err)
	require.NotNil(t, record)
	require.NotNil(t, record.ExaminationTypeID)
	require.NotNil(t, record.HealthClassificationID)
	require.Equal(t, "60.5", record.WeightKg.Decimal.String())
	require.True(t, record.Vaccinated)
	require.Equal(t, "Vaxigrip", *record.VaccineName)
	require.Equal(t, models.StatusPending, record.Status)

	view, err := env.records.Get(ctx, record.ID)
	require.NoError(t, err)
	require.Equal(t, models.ConclusionFitForWork, view.Conclusion)

	// Same (employee, year) again: overwrite, never duplicate.
	second := stageRecords(t, env,
		[]any{"nv001", "", "", "15/06/2024", "", "166", "", "", "Cần theo dõi", "", ""},
	)
	res, err = env.recordImports.Commit(ctx, second.BatchID)
	require.NoError(t, err)
	require.Equal(t, CommitResult{Updated: 1}, *res)
	require.Equal(t, int64(2), env.countRecords(t))

	view, err = env.records.Get(ctx, record.ID)
	require.NoError(t, err)
	require.Equal(t, "166", view.HeightCm.Decimal.String())
	require.False(t, view.WeightKg.Valid)
	require.Nil(t, view.ExaminationTypeID)
	require.Nil(t, view.HealthClassificationID)
	require.False(t, view.Vaccinated)
	require.Nil(t, view.VaccineName)
	require.Equal(t, "Cần theo dõi", view.Conclusion)
	require.True(t, time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC).Equal(*view.ExamDate))
}

func TestRecordImport_CommitMatchesAccentedCodeCaseInsensitively(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()

	_, err := env.employees.Create(ctx, EmployeeInput{Code: "NVĐ01", FullName: "Đỗ Văn Đạt"})
	require.NoError(t, err)

	preview := stageRecords(t, env,
		[]any{"nvđ01", "", "2024", "", "", "", "", "I", "", "", ""},
	)
	require.Equal(t, 1, preview.ValidCount)

	res, err := env.recordImports.Commit(ctx, preview.BatchID)
	require.NoError(t, err)
	require.Equal(t, CommitResult{Created: 1}, *res)

	record, err := env.repos.Records.GetByEmployeeAndYear(ctx, env.employeeID(t, "NVĐ01"), 2024)
	require.NoError(t, err)
	require.NotNil(t, record)
}

func TestRecordImport_NothingToImport(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()

	preview := stageRecords(t, env,
		[]any{"", "No code", "", "", "", "", "", "", "", "", ""},
	)
	require.Equal(t, 0, preview.ValidCount)

	_, err := env.recordImports.Commit(ctx, preview.BatchID)
	require.ErrorIs(t, err, ErrNothingToImport)
	require.Equal(t, int64(1), env.countStaged(t, preview.BatchID))

	_, err = env.recordImports.Commit(ctx, "missing1")
	require.ErrorIs(t, err, ErrNothingToImport)
}

func TestRecordImport_CancelIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()

	preview := stageRecords(t, env, []any{"NV001", "", "2024"})

	require.NoError(t, env.recordImports.Cancel(ctx, preview.BatchID))
	require.NoError(t, env.recordImports.Cancel(ctx, preview.BatchID))
	require.Zero(t, env.countStaged(t, preview.BatchID))

	empty, err := env.recordImports.Preview(ctx, preview.BatchID)
	require.NoError(t, err)
	require.Equal(t, 0, empty.Total)
	require.True(t, empty.AllValid)
	require.NotNil(t, empty.Rows)

	_, err = env.recordImports.Commit(ctx, preview.BatchID)
	require.ErrorIs(t, err, ErrNothingToImport)
	require.Zero(t, env.countRecords(t))
}

func TestRecordImport_SkipsEmployeeDeletedAfterStaging(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()

	preview := stageRecords(t, env,
		[]any{"NV001", "", "2024"},
		[]any{"NV002", "", "2024"},
	)
	require.Equal(t, 2, preview.ValidCount)

	require.NoError(t, env.employees.Delete(ctx, env.employeeID(t, "NV002")))

	res, err := env.recordImports.Commit(ctx, preview.BatchID)
	require.NoError(t, err)
	require.Equal(t, CommitResult{Created: 1, Skipped: 1}, *res)
}

func TestRecordImport_YearFallsBackToNow(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()
	env.recordImports.now = func() time.Time {
		return time.Date(2030, time.January, 2, 0, 0, 0, 0, time.UTC)
	}

	preview := stageRecords(t, env, []any{"NV001", "", "", "", "", "170"})
	require.Nil(t, preview.Rows[0].Year)

	_, err := env.recordImports.Commit(ctx, preview.BatchID)
	require.NoError(t, err)

	record, err := env.repos.Records.GetByEmployeeAndYear(ctx, env.employeeID(t, "NV001"), 2030)
	require.NoError(t, err)
	require.NotNil(t, record)
}

func TestRecordImport_FailureRollsBackAndKeepsBatch(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()

	preview := stageRecords(t, env,
		[]any{"NV001", "", "2024"},
		[]any{"NV002", "", "2024"},
	)

	created := 0
	err := env.db.Callback().Create().Before("gorm:create").Register("test:fail_second_record", func(tx *gorm.DB) {
		if tx.Statement.Table != "health_records" {
			return
		}
		created++
		if created == 2 {
			_ = tx.AddError(errors.New("disk full"))
		}
	})
	require.NoError(t, err)

	_, err = env.recordImports.Commit(ctx, preview.BatchID)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "disk full"))

	require.Zero(t, env.countRecords(t))
	require.Equal(t, int64(2), env.countStaged(t, preview.BatchID))
}

func TestRecordImport_FileErrorsStageNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.recordImports.Stage(ctx, bytes.NewReader(nil))
	require.ErrorIs(t, err, importer.ErrEmptyUpload)

	_, err = env.recordImports.Stage(ctx, strings.NewReader("garbage"))
	require.ErrorIs(t, err, importer.ErrUnreadableFile)

	var n int64
	require.NoError(t, env.db.Model(&models.StagingRow{}).Count(&n).Error)
	require.Zero(t, n)
}

func TestRecordImport_BatchIDCollisionRetries(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	first := stageRecords(t, env, []any{"NV001", "", "2024"})

	ids := []string{first.BatchID, "fresh123"}
	env.recordImports.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	second := stageRecords(t, env, []any{"NV002", "", "2024"})
	require.Equal(t, "fresh123", second.BatchID)
	require.Equal(t, int64(1), env.countStaged(t, first.BatchID))
}

func TestRecordImport_SweepRemovesExpiredRows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	old := models.StagingRow{BatchID: "oldbatch", RowNumber: 2, CreatedAt: time.Now().Add(-2 * time.Hour)}
	fresh := models.StagingRow{BatchID: "newbatch", RowNumber: 2}
	require.NoError(t, env.db.Create(&old).Error)
	require.NoError(t, env.db.Create(&fresh).Error)

	n, err := env.recordImports.Sweep(ctx, time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	require.Zero(t, env.countStaged(t, "oldbatch"))
	require.Equal(t, int64(1), env.countStaged(t, "newbatch"))
}

func TestRecordImport_Template(t *testing.T) {
	env := newTestEnv(t)

	data, err := env.recordImports.Template()
	require.NoError(t, err)

	sheet, err := importer.ReadSheet(bytes.NewReader(data), importer.DefaultRecordColumns())
	require.NoError(t, err)
	require.Len(t, sheet.Rows, 1)
	require.Equal(t, "NV001", sheet.Rows[0].Text(importer.FieldEmployeeCode))
}
