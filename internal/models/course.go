package models

import "time"

// Course represents a degree program. Creating a course cascades into one
// Semester row per total_semesters, numbered 1..N.
type Course struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Code           string    `db:"code" json:"code"`
	DurationYears  int       `db:"duration_years" json:"duration_years"`
	TotalSemesters int       `db:"total_semesters" json:"total_semesters"`
	Description    *string   `db:"description" json:"description,omitempty"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// CourseFilter encapsulates allowed search parameters for listing courses.
type CourseFilter struct {
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Semester belongs to one course.
type Semester struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	Number    int       `db:"number" json:"number"`
	Name      string    `db:"name" json:"name"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SemesterDetail adds course context for listings.
type SemesterDetail struct {
	Semester
	CourseName string `db:"course_name" json:"course_name"`
	CourseCode string `db:"course_code" json:"course_code"`
}
