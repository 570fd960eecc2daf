package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestParticipationRepositoryFind(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewParticipationRepository(db)

	rows := sqlmock.NewRows([]string{"registered", "attended", "feedback_given"}).
		AddRow(true, true, false)
	mock.ExpectQuery(regexp.QuoteMeta("EXISTS(SELECT 1 FROM registrations WHERE student_id = $1 AND event_id = $2) AS registered")).
		WithArgs("stu-1", "evt-1").
		WillReturnRows(rows)

	state, err := repo.Find(context.Background(), "stu-1", "evt-1")
	require.NoError(t, err)
	require.True(t, state.Registered)
	require.True(t, state.Attended)
	require.False(t, state.FeedbackGiven)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipationRepositoryFindUnknownPair(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewParticipationRepository(db)

	rows := sqlmock.NewRows([]string{"registered", "attended", "feedback_given"}).
		AddRow(false, false, false)
	mock.ExpectQuery("EXISTS").WithArgs("stu-x", "evt-x").WillReturnRows(rows)

	state, err := repo.Find(context.Background(), "stu-x", "evt-x")
	require.NoError(t, err)
	require.False(t, state.Registered)
	require.False(t, state.Attended)
	require.False(t, state.FeedbackGiven)
	require.NoError(t, mock.ExpectationsWereMet())
}
