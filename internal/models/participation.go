package models

import "time"

// Registration links a student to an event. At most one row exists per
// (student, event) pair, enforced by a unique index.
type Registration struct {
	ID           string    `db:"id" json:"id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	EventID      string    `db:"event_id" json:"event_id"`
	RegisteredAt time.Time `db:"registered_at" json:"registered_at"`
}

// Attendance records a check-in for a registered student. The method tag is
// free-form (manual, qr_code, app).
type Attendance struct {
	ID          string    `db:"id" json:"id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	EventID     string    `db:"event_id" json:"event_id"`
	CheckedInAt time.Time `db:"checked_in_at" json:"checked_in_at"`
	Method      string    `db:"method" json:"method"`
}

// Feedback records a post-attendance rating between 1 and 5 with an
// optional comment.
type Feedback struct {
	ID          string    `db:"id" json:"id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	EventID     string    `db:"event_id" json:"event_id"`
	Rating      int       `db:"rating" json:"rating"`
	Comment     string    `db:"comment" json:"comment"`
	SubmittedAt time.Time `db:"submitted_at" json:"submitted_at"`
}

// ParticipationState is the derived lifecycle position of a (student, event)
// pair, computed from row presence rather than a persisted status column so
// it can never drift from the underlying records.
type ParticipationState struct {
	Registered    bool `db:"registered" json:"registered"`
	Attended      bool `db:"attended" json:"attended"`
	FeedbackGiven bool `db:"feedback_given" json:"feedback_given"`
}
