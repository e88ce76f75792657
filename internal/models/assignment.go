package models

import "time"

// SubmissionStatus is derived, never stored: a pure function of the due date
// and whether a submission row exists.
type SubmissionStatus string

const (
	SubmissionPending   SubmissionStatus = "pending"
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionPastDue   SubmissionStatus = "past_due"
)

// DeriveSubmissionStatus computes the student-facing status of an assignment.
func DeriveSubmissionStatus(dueDate time.Time, submitted bool, now time.Time) SubmissionStatus {
	if submitted {
		return SubmissionSubmitted
	}
	if now.After(dueDate) {
		return SubmissionPastDue
	}
	return SubmissionPending
}

// Assignment belongs to a teacher and a semester, optionally a subject.
type Assignment struct {
	ID          string    `db:"id" json:"id"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	SemesterID  string    `db:"semester_id" json:"semester_id"`
	SubjectID   *string   `db:"subject_id" json:"subject_id,omitempty"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description,omitempty"`
	FilePath    *string   `db:"file_path" json:"file_path,omitempty"`
	FileName    *string   `db:"file_name" json:"file_name,omitempty"`
	DueDate     time.Time `db:"due_date" json:"due_date"`
	MaxMarks    int       `db:"max_marks" json:"max_marks"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// AssignmentDetail decorates an assignment with the caller's derived status.
type AssignmentDetail struct {
	Assignment
	TeacherName string           `db:"teacher_name" json:"teacher_name"`
	SubjectName *string          `db:"subject_name" json:"subject_name,omitempty"`
	Status      SubmissionStatus `db:"-" json:"status,omitempty"`
	Submitted   bool             `db:"submitted" json:"-"`
}

// AssignmentFilter defines query filters for listing assignments.
type AssignmentFilter struct {
	TeacherID   string
	SemesterID  string
	SubjectID   string
	SemesterIDs []string
	Active      *bool
	Page        int
	PageSize    int
}

// Submission records one student's upload for an assignment. At most one row
// exists per (assignment, student) pair; re-submission replaces the row.
type Submission struct {
	ID            string     `db:"id" json:"id"`
	AssignmentID  string     `db:"assignment_id" json:"assignment_id"`
	StudentID     string     `db:"student_id" json:"student_id"`
	FilePath      *string    `db:"file_path" json:"file_path,omitempty"`
	FileName      *string    `db:"file_name" json:"file_name,omitempty"`
	SubmittedAt   time.Time  `db:"submitted_at" json:"submitted_at"`
	MarksObtained *int       `db:"marks_obtained" json:"marks_obtained,omitempty"`
	Feedback      *string    `db:"feedback" json:"feedback,omitempty"`
	GradedAt      *time.Time `db:"graded_at" json:"graded_at,omitempty"`
	GradedBy      *string    `db:"graded_by" json:"graded_by,omitempty"`
}

// SubmissionDetail adds student naming for grading review.
type SubmissionDetail struct {
	Submission
	StudentName string `db:"student_name" json:"student_name"`
	RollNumber  string `db:"roll_number" json:"roll_number"`
}
