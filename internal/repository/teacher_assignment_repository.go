package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/acadsuite/campus-portal-api/internal/models"
)

// TeacherAssignmentRepository persists teacher-to-semester/subject bindings.
// These rows are what the role scoping resolver reads to compute a teacher's
// visibility set.
type TeacherAssignmentRepository struct {
	db *sqlx.DB
}

// NewTeacherAssignmentRepository constructs the repository.
func NewTeacherAssignmentRepository(db *sqlx.DB) *TeacherAssignmentRepository {
	return &TeacherAssignmentRepository{db: db}
}

// ListByTeacher returns the teacher's active assignments with naming context.
func (r *TeacherAssignmentRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.SemesterAssignmentDetail, error) {
	const query = `
SELECT tsa.id, tsa.teacher_id, tsa.semester_id, tsa.subject_id, tsa.subject_name, tsa.active, tsa.created_at,
       sem.name AS semester_name, c.name AS course_name
FROM teacher_semester_assignments tsa
JOIN semesters sem ON sem.id = tsa.semester_id
JOIN courses c ON c.id = sem.course_id
WHERE tsa.teacher_id = $1 AND tsa.active = TRUE
ORDER BY c.name ASC, sem.number ASC`
	var assignments []models.SemesterAssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, teacherID); err != nil {
		return nil, fmt.Errorf("list semester assignments: %w", err)
	}
	return assignments, nil
}

// ScopeIDs returns the distinct semester and subject IDs covered by the
// teacher's active assignments.
func (r *TeacherAssignmentRepository) ScopeIDs(ctx context.Context, teacherID string) (semesterIDs, subjectIDs []string, err error) {
	const query = `SELECT semester_id, subject_id FROM teacher_semester_assignments
        WHERE teacher_id = $1 AND active = TRUE`
	rows := []struct {
		SemesterID string  `db:"semester_id"`
		SubjectID  *string `db:"subject_id"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, teacherID); err != nil {
		return nil, nil, fmt.Errorf("load teacher scope: %w", err)
	}
	semesterSeen := make(map[string]struct{})
	for _, row := range rows {
		if _, ok := semesterSeen[row.SemesterID]; !ok {
			semesterSeen[row.SemesterID] = struct{}{}
			semesterIDs = append(semesterIDs, row.SemesterID)
		}
		if row.SubjectID != nil {
			subjectIDs = append(subjectIDs, *row.SubjectID)
		}
	}
	return semesterIDs, subjectIDs, nil
}

// Exists checks whether an active binding for the tuple is already present.
func (r *TeacherAssignmentRepository) Exists(ctx context.Context, teacherID, semesterID, subjectName string) (bool, error) {
	const query = `SELECT 1 FROM teacher_semester_assignments
        WHERE teacher_id = $1 AND semester_id = $2 AND LOWER(subject_name) = LOWER($3) AND active = TRUE LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, teacherID, semesterID, subjectName); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check semester assignment: %w", err)
	}
	return true, nil
}

// Create inserts a new binding.
func (r *TeacherAssignmentRepository) Create(ctx context.Context, assignment *models.SemesterAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO teacher_semester_assignments (id, teacher_id, semester_id, subject_id, subject_name, active, created_at)
        VALUES (:id, :teacher_id, :semester_id, :subject_id, :subject_name, :active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create semester assignment: %w", err)
	}
	return nil
}

// Deactivate retires a binding without touching rows recorded under it.
func (r *TeacherAssignmentRepository) Deactivate(ctx context.Context, teacherID, assignmentID string) error {
	const query = `UPDATE teacher_semester_assignments SET active = FALSE WHERE id = $1 AND teacher_id = $2`
	result, err := r.db.ExecContext(ctx, query, assignmentID, teacherID)
	if err != nil {
		return fmt.Errorf("deactivate semester assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deactivated assignment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
