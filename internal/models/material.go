package models

import "time"

// Material is a study resource shared by a teacher with a semester,
// optionally scoped to a subject.
type Material struct {
	ID          string    `db:"id" json:"id"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	SemesterID  string    `db:"semester_id" json:"semester_id"`
	SubjectID   *string   `db:"subject_id" json:"subject_id,omitempty"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description,omitempty"`
	FilePath    *string   `db:"file_path" json:"file_path,omitempty"`
	FileName    *string   `db:"file_name" json:"file_name,omitempty"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// MaterialDetail decorates a material with teacher/subject naming.
type MaterialDetail struct {
	Material
	TeacherName string  `db:"teacher_name" json:"teacher_name"`
	SubjectName *string `db:"subject_name" json:"subject_name,omitempty"`
}

// MaterialFilter defines query filters for listing materials.
type MaterialFilter struct {
	TeacherID   string
	SemesterID  string
	SubjectID   string
	SemesterIDs []string
	Search      string
	Active      *bool
	Page        int
	PageSize    int
}
