package models

import "time"

// Student is the role-specific record for a user holding the STUDENT role.
// RollNumber is unique per course; CurrentSemesterID is mutable as students
// progress and must belong to the student's course.
type Student struct {
	ID                string    `db:"id" json:"id"`
	UserID            string    `db:"user_id" json:"user_id"`
	RollNumber        string    `db:"roll_number" json:"roll_number"`
	CourseID          string    `db:"course_id" json:"course_id"`
	CurrentSemesterID *string   `db:"current_semester_id" json:"current_semester_id,omitempty"`
	EnrollmentYear    int       `db:"enrollment_year" json:"enrollment_year"`
	GuardianName      *string   `db:"guardian_name" json:"guardian_name,omitempty"`
	GuardianPhone     *string   `db:"guardian_phone" json:"guardian_phone,omitempty"`
	Address           *string   `db:"address" json:"address,omitempty"`
	Active            bool      `db:"active" json:"active"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// StudentDetail joins in profile and course context.
type StudentDetail struct {
	Student
	Email        string  `db:"email" json:"email"`
	FullName     string  `db:"full_name" json:"full_name"`
	Phone        *string `db:"phone" json:"phone,omitempty"`
	CourseName   string  `db:"course_name" json:"course_name"`
	CourseCode   string  `db:"course_code" json:"course_code"`
	SemesterName *string `db:"semester_name" json:"semester_name,omitempty"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search      string
	CourseID    string
	SemesterID  string
	SemesterIDs []string
	Active      *bool
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}
