package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuspulse/participation-api/internal/models"
)

// AttendanceRepository handles persistence of attendance check-ins.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Create inserts an attendance row. The unique index on the pair makes the
// insert atomic against concurrent duplicates; ErrPairExists is returned
// when a row already holds the pair.
func (r *AttendanceRepository) Create(ctx context.Context, attendance *models.Attendance) error {
	if attendance.ID == "" {
		attendance.ID = uuid.NewString()
	}
	if attendance.CheckedInAt.IsZero() {
		attendance.CheckedInAt = time.Now().UTC()
	}
	if attendance.Method == "" {
		attendance.Method = "manual"
	}
	const query = `INSERT INTO attendances (id, student_id, event_id, checked_in_at, method)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (student_id, event_id) DO NOTHING
RETURNING id`
	var insertedID string
	err := r.db.QueryRowxContext(ctx, query,
		attendance.ID, attendance.StudentID, attendance.EventID, attendance.CheckedInAt, attendance.Method).
		Scan(&insertedID)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrPairExists
		}
		return fmt.Errorf("create attendance: %w", err)
	}
	return nil
}

// CountByEvent returns the number of check-ins for an event.
func (r *AttendanceRepository) CountByEvent(ctx context.Context, eventID string) (int, error) {
	const query = `SELECT COUNT(*) FROM attendances WHERE event_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, eventID); err != nil {
		return 0, fmt.Errorf("count attendances: %w", err)
	}
	return count, nil
}

// ListEventsByStudent returns the events a student checked in to.
func (r *AttendanceRepository) ListEventsByStudent(ctx context.Context, studentID string) ([]models.Event, error) {
	const query = `SELECT e.id, e.college_id, e.title, e.description, e.event_type, e.start_time, e.end_time, e.capacity, e.status, e.created_at
FROM events e
JOIN attendances a ON a.event_id = e.id
WHERE a.student_id = $1
ORDER BY a.checked_in_at ASC`
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, studentID); err != nil {
		return nil, fmt.Errorf("list attended events: %w", err)
	}
	return events, nil
}
