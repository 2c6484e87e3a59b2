package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"health-records/internal/models"
	"health-records/internal/testutil"
)

var employeeHeader = []any{"Mã nhân viên", "Họ và tên", "Năm sinh", "Giới tính", "Chức danh nghề nghiệp", "Chức vụ", "Khoa/Phòng"}

func TestEmployeeImport_StageAndCommit(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()

	data := testutil.BuildWorkbook(t,
		employeeHeader,
		[]any{"NV001", "Nguyễn Văn A (mới)", "1985", "Nam", "Bác sĩ", "Trưởng khoa", "khoa nội"},
		[]any{"NV010", "Lê Thị C", "1992", "nữ", "Điều dưỡng", "", ""},
		[]any{"NV011", "Phạm D", "", "", "", "", "Khoa Ngoại"},
		[]any{"", "Không mã", "", "", "", "", ""},
	)

	preview, err := env.employeeImports.Stage(ctx, bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 4, preview.Total)
	require.Equal(t, 2, preview.ValidCount)
	require.Equal(t, 2, preview.InvalidCount)

	// Rows without a code sort first.
	require.Nil(t, preview.Rows[0].Code)
	require.Equal(t, "missing employee code or full name", *preview.Rows[0].ErrorMessage)
	require.Equal(t, "department 'Khoa Ngoại' not found", *preview.Rows[3].ErrorMessage)

	res, err := env.employeeImports.Commit(ctx, preview.BatchID)
	require.NoError(t, err)
	require.Equal(t, CommitResult{Created: 1, Updated: 1}, *res)

	updated, err := env.repos.Employees.GetByCode(ctx, "NV001")
	require.NoError(t, err)
	require.Equal(t, "Nguyễn Văn A (mới)", updated.FullName)
	require.Equal(t, models.GenderMale, updated.Gender)
	require.Equal(t, 1985, *updated.BirthYear)
	require.Equal(t, "Khoa Nội", updated.DepartmentName())

	created, err := env.repos.Employees.GetByCode(ctx, "NV010")
	require.NoError(t, err)
	require.NotNil(t, created)
	require.Equal(t, models.GenderFemale, created.Gender)
	require.Nil(t, created.DepartmentID)
	require.Nil(t, created.Position)

	missing, err := env.repos.Employees.GetByCode(ctx, "NV011")
	require.NoError(t, err)
	require.Nil(t, missing)

	var staged int64
	require.NoError(t, env.db.Model(&models.EmployeeStagingRow{}).Count(&staged).Error)
	require.Zero(t, staged)
}

func TestEmployeeImport_NothingToImport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	data := testutil.BuildWorkbook(t, employeeHeader)
	preview, err := env.employeeImports.Stage(ctx, bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 0, preview.Total)
	require.True(t, preview.AllValid)

	_, err = env.employeeImports.Commit(ctx, preview.BatchID)
	require.ErrorIs(t, err, ErrNothingToImport)
	require.NoError(t, env.employeeImports.Cancel(ctx, preview.BatchID))
}
