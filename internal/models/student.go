package models

import "time"

// Student belongs to exactly one college. Rows are immutable after creation;
// there is no deletion or update lifecycle.
type Student struct {
	ID        string    `db:"id" json:"id"`
	CollegeID string    `db:"college_id" json:"college_id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// StudentFilter narrows student listings.
type StudentFilter struct {
	CollegeID string
	Email     string
	Page      int
	PageSize  int
}
