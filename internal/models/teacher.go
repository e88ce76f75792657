package models

import "time"

// Teacher is the role-specific record for a user holding the TEACHER role.
type Teacher struct {
	ID            string     `db:"id" json:"id"`
	UserID        string     `db:"user_id" json:"user_id"`
	EmployeeID    string     `db:"employee_id" json:"employee_id"`
	Department    *string    `db:"department" json:"department,omitempty"`
	Designation   *string    `db:"designation" json:"designation,omitempty"`
	Qualification *string    `db:"qualification" json:"qualification,omitempty"`
	JoiningDate   *time.Time `db:"joining_date" json:"joining_date,omitempty"`
	Active        bool       `db:"active" json:"active"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// TeacherDetail joins in profile fields from the users table.
type TeacherDetail struct {
	Teacher
	Email    string  `db:"email" json:"email"`
	FullName string  `db:"full_name" json:"full_name"`
	Phone    *string `db:"phone" json:"phone,omitempty"`
}

// TeacherFilter encapsulates allowed search parameters for listing teachers.
type TeacherFilter struct {
	Search     string
	Department string
	Active     *bool
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// SemesterAssignment binds a teacher to one semester and one subject.
// SubjectID is nullable; SubjectName carries a free-text name when no
// Subject row exists yet.
type SemesterAssignment struct {
	ID          string    `db:"id" json:"id"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	SemesterID  string    `db:"semester_id" json:"semester_id"`
	SubjectID   *string   `db:"subject_id" json:"subject_id,omitempty"`
	SubjectName string    `db:"subject_name" json:"subject_name"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// SemesterAssignmentDetail adds semester/course naming for listings.
type SemesterAssignmentDetail struct {
	SemesterAssignment
	SemesterName string `db:"semester_name" json:"semester_name"`
	CourseName   string `db:"course_name" json:"course_name"`
}
