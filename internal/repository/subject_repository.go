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

// SubjectRepository manages persistence for subjects.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs a SubjectRepository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// List returns subjects matching the provided filters. SemesterIDs narrows
// results to a caller's scope when set.
func (r *SubjectRepository) List(ctx context.Context, filter models.SubjectFilter) ([]models.SubjectDetail, int, error) {
	base := `FROM subjects sub
JOIN semesters sem ON sem.id = sub.semester_id
JOIN courses c ON c.id = sem.course_id`
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.SemesterID != "" {
		conditions = append(conditions, fmt.Sprintf("sub.semester_id = $%d", len(args)+1))
		args = append(args, filter.SemesterID)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("sub.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(sub.name) LIKE $%d OR LOWER(sub.code) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(filter.SemesterIDs) > 0 {
		placeholders := make([]string, len(filter.SemesterIDs))
		for i, id := range filter.SemesterIDs {
			placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
			args = append(args, id)
		}
		conditions = append(conditions, fmt.Sprintf("sub.semester_id IN (%s)", strings.Join(placeholders, ", ")))
	}
	whereClause := strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"name":       "sub.name",
		"code":       "sub.code",
		"created_at": "sub.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "sub.name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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

	query := fmt.Sprintf(`SELECT sub.id, sub.semester_id, sub.name, sub.code, sub.credits, sub.active, sub.created_at,
        sem.name AS semester_name, c.id AS course_id, c.name AS course_name
        %s WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, whereClause, column, order, size, offset)

	var subjects []models.SubjectDetail
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list subjects: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count subjects: %w", err)
	}
	return subjects, total, nil
}

// FindByID fetches a subject by ID.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	const query = `SELECT id, semester_id, name, code, credits, active, created_at FROM subjects WHERE id = $1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// FindByCodeAny fetches a subject by unique code regardless of the active flag.
func (r *SubjectRepository) FindByCodeAny(ctx context.Context, code string) (*models.Subject, error) {
	const query = `SELECT id, semester_id, name, code, credits, active, created_at FROM subjects WHERE LOWER(code) = LOWER($1)`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, code); err != nil {
		return nil, err
	}
	return &subject, nil
}

// Create inserts a new subject row.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO subjects (id, semester_id, name, code, credits, active, created_at)
        VALUES (:id, :semester_id, :name, :code, :credits, :active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// Update modifies mutable subject fields.
func (r *SubjectRepository) Update(ctx context.Context, subject *models.Subject) error {
	const query = `UPDATE subjects SET name = :name, semester_id = :semester_id, credits = :credits WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	return nil
}

// Reactivate flips a soft-deleted subject back to active with fresh fields.
func (r *SubjectRepository) Reactivate(ctx context.Context, subject *models.Subject) error {
	const query = `UPDATE subjects SET name = :name, semester_id = :semester_id, credits = :credits, active = TRUE WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("reactivate subject: %w", err)
	}
	return nil
}

// Deactivate marks a subject inactive. Dependent assignments and attendance
// are left untouched.
func (r *SubjectRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE subjects SET active = FALSE WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("deactivate subject: %w", err)
	}
	return nil
}

// CountActive returns the number of active subjects.
func (r *SubjectRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM subjects WHERE active = TRUE"); err != nil {
		return 0, fmt.Errorf("count subjects: %w", err)
	}
	return count, nil
}
