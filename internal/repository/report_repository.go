package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campuspulse/participation-api/internal/dto"
)

// ReportRepository runs read-only aggregations over the participation
// ledger. All queries run outside transactions; dashboard staleness of a few
// milliseconds is acceptable.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// EventPopularity ranks events by registration count. Ties are broken by
// title ascending so repeated calls return the same order.
func (r *ReportRepository) EventPopularity(ctx context.Context, collegeID string) ([]dto.EventPopularityRow, error) {
	query := `SELECT e.id AS event_id, e.title, e.event_type, e.capacity, COUNT(r.id) AS registration_count
FROM events e
LEFT JOIN registrations r ON r.event_id = e.id`
	var args []interface{}
	if collegeID != "" {
		query += ` WHERE e.college_id = $1`
		args = append(args, collegeID)
	}
	query += `
GROUP BY e.id, e.title, e.event_type, e.capacity
ORDER BY registration_count DESC, e.title ASC`

	var rows []dto.EventPopularityRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("event popularity: %w", err)
	}
	return rows, nil
}

// EventCounts returns registration, attendance and feedback counts plus the
// raw rating average for one event in a single round trip.
func (r *ReportRepository) EventCounts(ctx context.Context, eventID string) (*dto.EventCountsRow, error) {
	const query = `SELECT
(SELECT COUNT(*) FROM registrations WHERE event_id = $1) AS registration_count,
(SELECT COUNT(*) FROM attendances WHERE event_id = $1) AS attendance_count,
(SELECT COUNT(*) FROM feedbacks WHERE event_id = $1) AS feedback_count,
(SELECT AVG(rating) FROM feedbacks WHERE event_id = $1) AS average_rating`
	var row dto.EventCountsRow
	if err := r.db.GetContext(ctx, &row, query, eventID); err != nil {
		return nil, fmt.Errorf("event counts: %w", err)
	}
	return &row, nil
}

// TopActiveStudents ranks students by attendance count, tie-broken by name
// ascending, truncated to limit.
func (r *ReportRepository) TopActiveStudents(ctx context.Context, collegeID string, limit int) ([]dto.TopStudentRow, error) {
	if limit < 1 {
		limit = 3
	}
	query := `SELECT s.id AS student_id, s.name, s.email, COUNT(a.id) AS attendance_count
FROM students s
JOIN attendances a ON a.student_id = s.id`
	args := []interface{}{limit}
	if collegeID != "" {
		query += ` WHERE s.college_id = $2`
		args = append(args, collegeID)
	}
	query += `
GROUP BY s.id, s.name, s.email
ORDER BY attendance_count DESC, s.name ASC
LIMIT $1`

	var rows []dto.TopStudentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("top active students: %w", err)
	}
	return rows, nil
}

// EventTypeStats aggregates ledger activity per event type for the
// dashboard. Distinct counts guard against join fan-out across the three
// ledger tables.
func (r *ReportRepository) EventTypeStats(ctx context.Context, collegeID string) ([]dto.EventTypeStats, error) {
	query := `SELECT e.event_type,
COUNT(DISTINCT e.id) AS total_events,
COUNT(DISTINCT r.id) AS total_registrations,
COUNT(DISTINCT a.id) AS total_attendances,
AVG(f.rating) AS average_rating
FROM events e
LEFT JOIN registrations r ON r.event_id = e.id
LEFT JOIN attendances a ON a.event_id = e.id
LEFT JOIN feedbacks f ON f.event_id = e.id`
	var args []interface{}
	if collegeID != "" {
		query += ` WHERE e.college_id = $1`
		args = append(args, collegeID)
	}
	query += `
GROUP BY e.event_type
ORDER BY total_registrations DESC, e.event_type ASC`

	var rows []dto.EventTypeStats
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("event type stats: %w", err)
	}
	return rows, nil
}
