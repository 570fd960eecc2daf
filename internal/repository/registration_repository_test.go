package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/campuspulse/participation-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRegistrationRepositoryCreateAdmitting(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacity FROM events WHERE id = $1 FOR UPDATE")).
		WithArgs("evt-1").
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(50))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO registrations")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("reg-1"))
	mock.ExpectCommit()

	reg := &models.Registration{StudentID: "stu-1", EventID: "evt-1"}
	err := repo.CreateAdmitting(context.Background(), reg)
	require.NoError(t, err)
	require.NotEmpty(t, reg.ID)
	require.False(t, reg.RegisteredAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryCreateAdmittingEventMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacity FROM events WHERE id = $1 FOR UPDATE")).
		WithArgs("evt-missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.CreateAdmitting(context.Background(), &models.Registration{StudentID: "stu-1", EventID: "evt-missing"})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryCreateAdmittingDuplicatePair(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacity FROM events WHERE id = $1 FOR UPDATE")).
		WithArgs("evt-1").
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(50))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO registrations")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM registrations WHERE student_id = $1 AND event_id = $2")).
		WithArgs("stu-1", "evt-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.CreateAdmitting(context.Background(), &models.Registration{StudentID: "stu-1", EventID: "evt-1"})
	require.ErrorIs(t, err, ErrPairExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryCreateAdmittingFull(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacity FROM events WHERE id = $1 FOR UPDATE")).
		WithArgs("evt-1").
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO registrations")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM registrations WHERE student_id = $1 AND event_id = $2")).
		WithArgs("stu-2", "evt-1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.CreateAdmitting(context.Background(), &models.Registration{StudentID: "stu-2", EventID: "evt-1"})
	require.ErrorIs(t, err, ErrEventFull)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryCountByEvent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM registrations WHERE event_id = $1")).
		WithArgs("evt-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.CountByEvent(context.Background(), "evt-1")
	require.NoError(t, err)
	require.Equal(t, 7, count)
	require.NoError(t, mock.ExpectationsWereMet())
}
