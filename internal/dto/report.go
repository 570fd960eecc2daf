package dto

import (
	"time"

	"github.com/campuspulse/participation-api/internal/models"
)

// EventPopularityRow is a single entry in the popularity ranking. Rows are
// ordered by registration count descending with ties broken by title.
type EventPopularityRow struct {
	EventID           string `db:"event_id" json:"event_id"`
	Title             string `db:"title" json:"title"`
	EventType         string `db:"event_type" json:"event_type"`
	Capacity          int    `db:"capacity" json:"capacity"`
	RegistrationCount int    `db:"registration_count" json:"registration_count"`
}

// EventAttendanceReport aggregates attendance for one event.
// AverageRating is nil when no feedback exists; a zero rating is never valid.
type EventAttendanceReport struct {
	Event                models.Event `json:"event"`
	RegistrationCount    int          `json:"registration_count"`
	AttendanceCount      int          `json:"attendance_count"`
	AttendancePercentage float64      `json:"attendance_percentage"`
	AverageRating        *float64     `json:"average_rating"`
	FeedbackCount        int          `json:"feedback_count"`
}

// EventCountsRow carries the raw per-event aggregates before rounding.
type EventCountsRow struct {
	RegistrationCount int      `db:"registration_count"`
	AttendanceCount   int      `db:"attendance_count"`
	FeedbackCount     int      `db:"feedback_count"`
	AverageRating     *float64 `db:"average_rating"`
}

// FeedbackEntry is a feedback record resolved against its event title.
type FeedbackEntry struct {
	EventID     string    `db:"event_id" json:"event_id"`
	EventTitle  string    `db:"event_title" json:"event_title"`
	Rating      int       `db:"rating" json:"rating"`
	Comment     string    `db:"comment" json:"comment"`
	SubmittedAt time.Time `db:"submitted_at" json:"submitted_at"`
}

// StudentParticipationReport summarises one student's activity.
type StudentParticipationReport struct {
	Student          models.Student  `json:"student"`
	EventsRegistered int             `json:"events_registered"`
	EventsAttended   int             `json:"events_attended"`
	AttendanceRate   float64         `json:"attendance_rate"`
	FeedbacksGiven   int             `json:"feedbacks_given"`
	RegisteredEvents []models.Event  `json:"registered_events"`
	AttendedEvents   []models.Event  `json:"attended_events"`
	Feedbacks        []FeedbackEntry `json:"feedbacks"`
}

// TopStudentRow is a single entry in the most-active ranking. Rows are
// ordered by attendance count descending with ties broken by name.
type TopStudentRow struct {
	StudentID       string `db:"student_id" json:"student_id"`
	Name            string `db:"name" json:"name"`
	Email           string `db:"email" json:"email"`
	AttendanceCount int    `db:"attendance_count" json:"attendance_count"`
}

// EventTypeStats aggregates activity per event type for the dashboard.
type EventTypeStats struct {
	EventType          string   `db:"event_type" json:"event_type"`
	TotalEvents        int      `db:"total_events" json:"total_events"`
	TotalRegistrations int      `db:"total_registrations" json:"total_registrations"`
	TotalAttendances   int      `db:"total_attendances" json:"total_attendances"`
	AverageRating      *float64 `db:"average_rating" json:"average_rating"`
}

// DashboardReport is the composite admin dashboard payload.
type DashboardReport struct {
	Popularity     []EventPopularityRow `json:"popularity"`
	TopStudents    []TopStudentRow      `json:"top_students"`
	EventTypeStats []EventTypeStats     `json:"event_type_stats"`
	GeneratedAt    time.Time            `json:"generated_at"`
}

// ReportRequest asks for an asynchronous report export.
type ReportRequest struct {
	Type      models.ReportType   `json:"type" binding:"required"`
	CollegeID *string             `json:"college_id,omitempty"`
	Limit     int                 `json:"limit,omitempty"`
	Format    models.ReportFormat `json:"format" binding:"required"`
}

// ReportJobResponse is returned when an export job is accepted.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes export job progress to pollers.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ReportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"result_url,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
