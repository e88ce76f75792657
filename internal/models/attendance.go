package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceExcused AttendanceStatus = "excused"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceExcused:
		return true
	default:
		return false
	}
}

// Attendance represents one student's status for one session. Sessions are
// keyed by (semester_id, subject_id, date) and always replaced as a unit.
type Attendance struct {
	ID         string           `db:"id" json:"id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	SemesterID string           `db:"semester_id" json:"semester_id"`
	SubjectID  *string          `db:"subject_id" json:"subject_id,omitempty"`
	TeacherID  *string          `db:"teacher_id" json:"teacher_id,omitempty"`
	Date       time.Time        `db:"date" json:"date"`
	Status     AttendanceStatus `db:"status" json:"status"`
	Remarks    *string          `db:"remarks" json:"remarks,omitempty"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
}

// AttendanceRecord extends a row with student naming for listings.
type AttendanceRecord struct {
	Attendance
	StudentName string `db:"student_name" json:"student_name"`
	RollNumber  string `db:"roll_number" json:"roll_number"`
}

// RosterKey identifies one recording session.
type RosterKey struct {
	SemesterID string
	SubjectID  string
	Date       time.Time
}

// RosterEntry is one student's status within a roster save.
type RosterEntry struct {
	StudentID string           `json:"student_id" validate:"required"`
	Status    AttendanceStatus `json:"status" validate:"required"`
	Remarks   *string          `json:"remarks,omitempty"`
}

// AttendanceFilter defines query filters for attendance history.
type AttendanceFilter struct {
	StudentID   string
	SemesterID  string
	SubjectID   string
	SemesterIDs []string
	DateFrom    *time.Time
	DateTo      *time.Time
	Page        int
	PageSize    int
}

// AttendanceSummary aggregates a student's recorded sessions. Percent counts
// present and late as attended.
type AttendanceSummary struct {
	Present int     `json:"present"`
	Absent  int     `json:"absent"`
	Late    int     `json:"late"`
	Excused int     `json:"excused"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}
