package models

import "time"

// College is the scoping boundary for students and events. All report
// queries are implicitly filtered by college when a filter is supplied.
type College struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
