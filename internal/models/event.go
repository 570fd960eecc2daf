package models

import "time"

// EventStatus enumerates the event status flag.
type EventStatus string

const (
	EventStatusActive    EventStatus = "active"
	EventStatusCancelled EventStatus = "cancelled"
)

// Event is a campus event with a finite seat capacity. Status transitions
// one-way from active to cancelled.
type Event struct {
	ID          string      `db:"id" json:"id"`
	CollegeID   string      `db:"college_id" json:"college_id"`
	Title       string      `db:"title" json:"title"`
	Description string      `db:"description" json:"description"`
	EventType   string      `db:"event_type" json:"event_type"`
	StartTime   time.Time   `db:"start_time" json:"start_time"`
	EndTime     time.Time   `db:"end_time" json:"end_time"`
	Capacity    int         `db:"capacity" json:"capacity"`
	Status      EventStatus `db:"status" json:"status"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

// EventFilter narrows event listings.
type EventFilter struct {
	CollegeID string
	EventType string
	Status    string
	Page      int
	PageSize  int
}
