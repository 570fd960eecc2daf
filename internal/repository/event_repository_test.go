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

func TestEventRepositoryCancel(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE events SET status = $2 WHERE id = $1 AND status = $3")).
		WithArgs("evt-1", models.EventStatusCancelled, models.EventStatusActive).
		WillReturnResult(sqlmock.NewResult(0, 1))

	cancelled, err := repo.Cancel(context.Background(), "evt-1")
	require.NoError(t, err)
	require.True(t, cancelled)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryCancelAlreadyCancelled(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE events SET status = $2")).
		WithArgs("evt-1", models.EventStatusCancelled, models.EventStatusActive).
		WillReturnResult(sqlmock.NewResult(0, 0))

	cancelled, err := repo.Cancel(context.Background(), "evt-1")
	require.NoError(t, err)
	require.False(t, cancelled)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateDuplicateEmail(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO students")).
		WillReturnError(sql.ErrNoRows)

	err := repo.Create(context.Background(), &models.Student{CollegeID: "col-1", Name: "Ana", Email: "ana@uni.edu"})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFeedbackRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO feedbacks")).
		WillReturnError(sql.ErrNoRows)

	err := repo.Create(context.Background(), &models.Feedback{StudentID: "stu-1", EventID: "evt-1", Rating: 4})
	require.ErrorIs(t, err, ErrPairExists)
	require.NoError(t, mock.ExpectationsWereMet())
}
