package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campuspulse/participation-api/internal/models"
)

// ParticipationRepository resolves the derived lifecycle state of a
// (student, event) pair from row presence across the three ledger tables.
type ParticipationRepository struct {
	db *sqlx.DB
}

// NewParticipationRepository constructs the repository.
func NewParticipationRepository(db *sqlx.DB) *ParticipationRepository {
	return &ParticipationRepository{db: db}
}

// Find returns the pair state in a single round trip.
func (r *ParticipationRepository) Find(ctx context.Context, studentID, eventID string) (*models.ParticipationState, error) {
	const query = `SELECT
EXISTS(SELECT 1 FROM registrations WHERE student_id = $1 AND event_id = $2) AS registered,
EXISTS(SELECT 1 FROM attendances WHERE student_id = $1 AND event_id = $2) AS attended,
EXISTS(SELECT 1 FROM feedbacks WHERE student_id = $1 AND event_id = $2) AS feedback_given`
	var state models.ParticipationState
	if err := r.db.GetContext(ctx, &state, query, studentID, eventID); err != nil {
		return nil, fmt.Errorf("find participation state: %w", err)
	}
	return &state, nil
}
