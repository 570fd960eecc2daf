package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuspulse/participation-api/internal/models"
)

// Admission outcomes surfaced by CreateAdmitting. Services translate these
// into the API error taxonomy.
var (
	// ErrPairExists signals the (student, event) pair already holds a row.
	ErrPairExists = errors.New("row exists for student and event pair")
	// ErrEventFull signals the registration count reached the event capacity.
	ErrEventFull = errors.New("event is at full capacity")
)

// RegistrationRepository handles persistence of registrations and owns the
// capacity admission decision.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs the repository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// CreateAdmitting inserts a registration only while the event still has free
// seats. The count-and-admit decision and the insert run as one atomic unit:
// the transaction takes a row lock on the event so concurrent admissions
// serialize, and the insert itself is conditional on the current count so a
// lost lock can never over-book. Returns sql.ErrNoRows when the event is
// missing, ErrPairExists on a duplicate registration and ErrEventFull when
// no seat is left.
func (r *RegistrationRepository) CreateAdmitting(ctx context.Context, registration *models.Registration) error {
	if registration.ID == "" {
		registration.ID = uuid.NewString()
	}
	if registration.RegisteredAt.IsZero() {
		registration.RegisteredAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin registration: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	const lockQuery = `SELECT capacity FROM events WHERE id = $1 FOR UPDATE`
	var capacity int
	if err := tx.GetContext(ctx, &capacity, lockQuery, registration.EventID); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("lock event: %w", err)
	}

	const insertQuery = `INSERT INTO registrations (id, student_id, event_id, registered_at)
SELECT $1, $2, $3, $4
WHERE (SELECT COUNT(*) FROM registrations WHERE event_id = $3) < $5
ON CONFLICT (student_id, event_id) DO NOTHING
RETURNING id`
	var insertedID string
	err = tx.QueryRowxContext(ctx, insertQuery,
		registration.ID, registration.StudentID, registration.EventID, registration.RegisteredAt, capacity).
		Scan(&insertedID)
	if err != nil {
		if err != sql.ErrNoRows {
			return fmt.Errorf("insert registration: %w", err)
		}
		// No row came back: either the pair is already registered or the
		// event is full. Disambiguate inside the same transaction.
		const pairQuery = `SELECT 1 FROM registrations WHERE student_id = $1 AND event_id = $2`
		var one int
		pairErr := tx.GetContext(ctx, &one, pairQuery, registration.StudentID, registration.EventID)
		if pairErr == nil {
			return ErrPairExists
		}
		if pairErr != sql.ErrNoRows {
			return fmt.Errorf("check registration pair: %w", pairErr)
		}
		return ErrEventFull
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit registration: %w", err)
	}
	commit = true
	return nil
}

// CountByEvent returns the number of registrations for an event.
func (r *RegistrationRepository) CountByEvent(ctx context.Context, eventID string) (int, error) {
	const query = `SELECT COUNT(*) FROM registrations WHERE event_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, eventID); err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return count, nil
}

// ListEventsByStudent returns the events a student registered for.
func (r *RegistrationRepository) ListEventsByStudent(ctx context.Context, studentID string) ([]models.Event, error) {
	const query = `SELECT e.id, e.college_id, e.title, e.description, e.event_type, e.start_time, e.end_time, e.capacity, e.status, e.created_at
FROM events e
JOIN registrations r ON r.event_id = e.id
WHERE r.student_id = $1
ORDER BY r.registered_at ASC`
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, studentID); err != nil {
		return nil, fmt.Errorf("list registered events: %w", err)
	}
	return events, nil
}
