package models

import "time"

// Subject belongs to one semester and carries a unique code.
type Subject struct {
	ID         string    `db:"id" json:"id"`
	SemesterID string    `db:"semester_id" json:"semester_id"`
	Name       string    `db:"name" json:"name"`
	Code       string    `db:"code" json:"code"`
	Credits    int       `db:"credits" json:"credits"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// SubjectDetail adds semester/course context.
type SubjectDetail struct {
	Subject
	SemesterName string `db:"semester_name" json:"semester_name"`
	CourseID     string `db:"course_id" json:"course_id"`
	CourseName   string `db:"course_name" json:"course_name"`
}

// SubjectFilter encapsulates allowed search parameters for listing subjects.
type SubjectFilter struct {
	SemesterID  string
	SemesterIDs []string
	Search      string
	Active      *bool
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}
