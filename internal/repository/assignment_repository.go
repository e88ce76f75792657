package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/acadsuite/campus-portal-api/internal/models"
)

// AssignmentRepository manages persistence for assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// List returns assignments matching the filter. When forStudentID is set the
// query joins submission existence so callers can derive per-student status.
func (r *AssignmentRepository) List(ctx context.Context, filter models.AssignmentFilter, forStudentID string) ([]models.AssignmentDetail, int, error) {
	base := `FROM assignments a
JOIN teachers t ON t.id = a.teacher_id
JOIN users u ON u.id = t.user_id
LEFT JOIN subjects sub ON sub.id = a.subject_id`
	selectExtra := "FALSE AS submitted"
	conditions := []string{"1=1"}
	args := []interface{}{}

	if forStudentID != "" {
		base += fmt.Sprintf("\nLEFT JOIN assignment_submissions asub ON asub.assignment_id = a.id AND asub.student_id = $%d", len(args)+1)
		args = append(args, forStudentID)
		selectExtra = "(asub.id IS NOT NULL) AS submitted"
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("a.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.SemesterID != "" {
		conditions = append(conditions, fmt.Sprintf("a.semester_id = $%d", len(args)+1))
		args = append(args, filter.SemesterID)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("a.subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("a.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if len(filter.SemesterIDs) > 0 {
		placeholders := make([]string, len(filter.SemesterIDs))
		for i, id := range filter.SemesterIDs {
			placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
			args = append(args, id)
		}
		conditions = append(conditions, fmt.Sprintf("a.semester_id IN (%s)", strings.Join(placeholders, ", ")))
	}
	whereClause := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT a.id, a.teacher_id, a.semester_id, a.subject_id, a.title, a.description, a.file_path, a.file_name,
        a.due_date, a.max_marks, a.active, a.created_at, a.updated_at,
        u.full_name AS teacher_name, sub.name AS subject_name, %s
        %s WHERE %s ORDER BY a.due_date DESC LIMIT %d OFFSET %d`, selectExtra, base, whereClause, size, offset)

	var assignments []models.AssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list assignments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count assignments: %w", err)
	}
	return assignments, total, nil
}

// FindByID fetches an assignment by ID.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	const query = `SELECT id, teacher_id, semester_id, subject_id, title, description, file_path, file_name, due_date, max_marks, active, created_at, updated_at
        FROM assignments WHERE id = $1`
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// Create inserts a new assignment.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = now
	}
	assignment.UpdatedAt = now
	const query = `INSERT INTO assignments (id, teacher_id, semester_id, subject_id, title, description, file_path, file_name, due_date, max_marks, active, created_at, updated_at)
        VALUES (:id, :teacher_id, :semester_id, :subject_id, :title, :description, :file_path, :file_name, :due_date, :max_marks, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// Update modifies mutable assignment fields.
func (r *AssignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	assignment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE assignments SET title = :title, description = :description, due_date = :due_date, max_marks = :max_marks,
        file_path = :file_path, file_name = :file_name, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	return nil
}

// Deactivate soft-deletes the assignment. Submissions are preserved.
func (r *AssignmentRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE assignments SET active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate assignment: %w", err)
	}
	return nil
}

// CountActive returns the number of active assignments narrowed to a teacher
// or semester set when provided.
func (r *AssignmentRepository) CountActive(ctx context.Context, teacherID string, semesterIDs []string) (int, error) {
	conditions := []string{"active = TRUE"}
	args := []interface{}{}
	if teacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, teacherID)
	}
	if len(semesterIDs) > 0 {
		placeholders := make([]string, len(semesterIDs))
		for i, id := range semesterIDs {
			placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
			args = append(args, id)
		}
		conditions = append(conditions, fmt.Sprintf("semester_id IN (%s)", strings.Join(placeholders, ", ")))
	}
	query := fmt.Sprintf("SELECT COUNT(*) FROM assignments WHERE %s", strings.Join(conditions, " AND "))
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count assignments: %w", err)
	}
	return count, nil
}
