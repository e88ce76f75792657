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

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students with profile and course context matching the filters.
// SemesterIDs narrows the result to a caller's scope when set.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := `FROM students s
JOIN users u ON u.id = s.user_id
JOIN courses c ON c.id = s.course_id
LEFT JOIN semesters sem ON sem.id = s.current_semester_id`
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("s.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.SemesterID != "" {
		conditions = append(conditions, fmt.Sprintf("s.current_semester_id = $%d", len(args)+1))
		args = append(args, filter.SemesterID)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("s.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(u.full_name) LIKE $%d OR LOWER(s.roll_number) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(filter.SemesterIDs) > 0 {
		placeholders := make([]string, len(filter.SemesterIDs))
		for i, id := range filter.SemesterIDs {
			placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
			args = append(args, id)
		}
		conditions = append(conditions, fmt.Sprintf("s.current_semester_id IN (%s)", strings.Join(placeholders, ", ")))
	}
	whereClause := strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"full_name":   "u.full_name",
		"roll_number": "s.roll_number",
		"created_at":  "s.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "s.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT s.id, s.user_id, s.roll_number, s.course_id, s.current_semester_id, s.enrollment_year,
        s.guardian_name, s.guardian_phone, s.address, s.active, s.created_at, s.updated_at,
        u.email, u.full_name, u.phone, c.name AS course_name, c.code AS course_code, sem.name AS semester_name
        %s WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, whereClause, column, order, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student detail by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	const query = `SELECT s.id, s.user_id, s.roll_number, s.course_id, s.current_semester_id, s.enrollment_year,
        s.guardian_name, s.guardian_phone, s.address, s.active, s.created_at, s.updated_at,
        u.email, u.full_name, u.phone, c.name AS course_name, c.code AS course_code, sem.name AS semester_name
        FROM students s
        JOIN users u ON u.id = s.user_id
        JOIN courses c ON c.id = s.course_id
        LEFT JOIN semesters sem ON sem.id = s.current_semester_id
        WHERE s.id = $1`
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindByUserID fetches the student record bound to a user, active or not.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	const query = `SELECT id, user_id, roll_number, course_id, current_semester_id, enrollment_year,
        guardian_name, guardian_phone, address, active, created_at, updated_at
        FROM students WHERE user_id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, userID); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByRollNumberAny probes the (roll_number, course) unique pair regardless
// of the active flag.
func (r *StudentRepository) FindByRollNumberAny(ctx context.Context, rollNumber, courseID string) (*models.Student, error) {
	const query = `SELECT id, user_id, roll_number, course_id, current_semester_id, enrollment_year,
        guardian_name, guardian_phone, address, active, created_at, updated_at
        FROM students WHERE LOWER(roll_number) = LOWER($1) AND course_id = $2`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, rollNumber, courseID); err != nil {
		return nil, err
	}
	return &student, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, user_id, roll_number, course_id, current_semester_id, enrollment_year, guardian_name, guardian_phone, address, active, created_at, updated_at)
        VALUES (:id, :user_id, :roll_number, :course_id, :current_semester_id, :enrollment_year, :guardian_name, :guardian_phone, :address, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies mutable student fields.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET current_semester_id = :current_semester_id, guardian_name = :guardian_name,
        guardian_phone = :guardian_phone, address = :address, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Reactivate flips a soft-deleted student back to active with fresh fields.
func (r *StudentRepository) Reactivate(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET current_semester_id = :current_semester_id, enrollment_year = :enrollment_year,
        guardian_name = :guardian_name, guardian_phone = :guardian_phone, address = :address, active = TRUE, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("reactivate student: %w", err)
	}
	return nil
}

// Deactivate marks a student inactive. Attendance and submission history is
// preserved and stays fetchable by ID.
func (r *StudentRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE students SET active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate student: %w", err)
	}
	return nil
}

// Delete removes a student row outright (provisioning compensation only).
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM students WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}

// CountActive returns the number of active students, optionally narrowed to
// a semester set.
func (r *StudentRepository) CountActive(ctx context.Context, semesterIDs []string) (int, error) {
	if len(semesterIDs) == 0 {
		var count int
		if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM students WHERE active = TRUE"); err != nil {
			return 0, fmt.Errorf("count students: %w", err)
		}
		return count, nil
	}
	query, args, err := sqlx.In("SELECT COUNT(*) FROM students WHERE active = TRUE AND current_semester_id IN (?)", semesterIDs)
	if err != nil {
		return 0, fmt.Errorf("build student count: %w", err)
	}
	query = r.db.Rebind(query)
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return count, nil
}
