package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/campuspulse/participation-api/internal/models"
)

func TestAttendanceRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO attendances")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("att-1"))

	att := &models.Attendance{StudentID: "stu-1", EventID: "evt-1", Method: "qr_code"}
	err := repo.Create(context.Background(), att)
	require.NoError(t, err)
	require.NotEmpty(t, att.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO attendances")).
		WillReturnError(sql.ErrNoRows)

	err := repo.Create(context.Background(), &models.Attendance{StudentID: "stu-1", EventID: "evt-1"})
	require.ErrorIs(t, err, ErrPairExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryCreateDefaultsMethod(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO attendances")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("att-1"))

	att := &models.Attendance{StudentID: "stu-1", EventID: "evt-1"}
	require.NoError(t, repo.Create(context.Background(), att))
	require.Equal(t, "manual", att.Method)
	require.NoError(t, mock.ExpectationsWereMet())
}
