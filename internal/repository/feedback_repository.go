package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuspulse/participation-api/internal/dto"
	"github.com/campuspulse/participation-api/internal/models"
)

// FeedbackRepository handles persistence of event feedback.
type FeedbackRepository struct {
	db *sqlx.DB
}

// NewFeedbackRepository constructs the repository.
func NewFeedbackRepository(db *sqlx.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Create inserts a feedback row, returning ErrPairExists when the pair has
// already submitted feedback. Rating bounds are validated upstream; the
// check constraint on the column is the last line of defence.
func (r *FeedbackRepository) Create(ctx context.Context, feedback *models.Feedback) error {
	if feedback.ID == "" {
		feedback.ID = uuid.NewString()
	}
	if feedback.SubmittedAt.IsZero() {
		feedback.SubmittedAt = time.Now().UTC()
	}
	const query = `INSERT INTO feedbacks (id, student_id, event_id, rating, comment, submitted_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (student_id, event_id) DO NOTHING
RETURNING id`
	var insertedID string
	err := r.db.QueryRowxContext(ctx, query,
		feedback.ID, feedback.StudentID, feedback.EventID, feedback.Rating, feedback.Comment, feedback.SubmittedAt).
		Scan(&insertedID)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrPairExists
		}
		return fmt.Errorf("create feedback: %w", err)
	}
	return nil
}

// CountByEvent returns the number of feedback entries for an event.
func (r *FeedbackRepository) CountByEvent(ctx context.Context, eventID string) (int, error) {
	const query = `SELECT COUNT(*) FROM feedbacks WHERE event_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, eventID); err != nil {
		return 0, fmt.Errorf("count feedbacks: %w", err)
	}
	return count, nil
}

// ListByStudent returns a student's feedback entries resolved against event
// titles, ordered by submission time.
func (r *FeedbackRepository) ListByStudent(ctx context.Context, studentID string) ([]dto.FeedbackEntry, error) {
	const query = `SELECT f.event_id, e.title AS event_title, f.rating, f.comment, f.submitted_at
FROM feedbacks f
JOIN events e ON e.id = f.event_id
WHERE f.student_id = $1
ORDER BY f.submitted_at ASC`
	var entries []dto.FeedbackEntry
	if err := r.db.SelectContext(ctx, &entries, query, studentID); err != nil {
		return nil, fmt.Errorf("list student feedbacks: %w", err)
	}
	return entries, nil
}
