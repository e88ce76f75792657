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

// MaterialRepository manages persistence for study materials.
type MaterialRepository struct {
	db *sqlx.DB
}

// NewMaterialRepository constructs the repository.
func NewMaterialRepository(db *sqlx.DB) *MaterialRepository {
	return &MaterialRepository{db: db}
}

// List returns materials matching the filter, scoped by SemesterIDs when set.
func (r *MaterialRepository) List(ctx context.Context, filter models.MaterialFilter) ([]models.MaterialDetail, int, error) {
	base := `FROM materials m
JOIN teachers t ON t.id = m.teacher_id
JOIN users u ON u.id = t.user_id
LEFT JOIN subjects sub ON sub.id = m.subject_id`
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("m.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.SemesterID != "" {
		conditions = append(conditions, fmt.Sprintf("m.semester_id = $%d", len(args)+1))
		args = append(args, filter.SemesterID)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("m.subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("m.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(m.title) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(filter.SemesterIDs) > 0 {
		placeholders := make([]string, len(filter.SemesterIDs))
		for i, id := range filter.SemesterIDs {
			placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
			args = append(args, id)
		}
		conditions = append(conditions, fmt.Sprintf("m.semester_id IN (%s)", strings.Join(placeholders, ", ")))
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

	query := fmt.Sprintf(`SELECT m.id, m.teacher_id, m.semester_id, m.subject_id, m.title, m.description, m.file_path, m.file_name,
        m.active, m.created_at, m.updated_at,
        u.full_name AS teacher_name, sub.name AS subject_name
        %s WHERE %s ORDER BY m.created_at DESC LIMIT %d OFFSET %d`, base, whereClause, size, offset)

	var materials []models.MaterialDetail
	if err := r.db.SelectContext(ctx, &materials, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list materials: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count materials: %w", err)
	}
	return materials, total, nil
}

// FindByID fetches a material by ID.
func (r *MaterialRepository) FindByID(ctx context.Context, id string) (*models.Material, error) {
	const query = `SELECT id, teacher_id, semester_id, subject_id, title, description, file_path, file_name, active, created_at, updated_at
        FROM materials WHERE id = $1`
	var material models.Material
	if err := r.db.GetContext(ctx, &material, query, id); err != nil {
		return nil, err
	}
	return &material, nil
}

// Create inserts a new material.
func (r *MaterialRepository) Create(ctx context.Context, material *models.Material) error {
	if material.ID == "" {
		material.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if material.CreatedAt.IsZero() {
		material.CreatedAt = now
	}
	material.UpdatedAt = now
	const query = `INSERT INTO materials (id, teacher_id, semester_id, subject_id, title, description, file_path, file_name, active, created_at, updated_at)
        VALUES (:id, :teacher_id, :semester_id, :subject_id, :title, :description, :file_path, :file_name, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, material); err != nil {
		return fmt.Errorf("create material: %w", err)
	}
	return nil
}

// Update modifies mutable material fields.
func (r *MaterialRepository) Update(ctx context.Context, material *models.Material) error {
	material.UpdatedAt = time.Now().UTC()
	const query = `UPDATE materials SET title = :title, description = :description, subject_id = :subject_id,
        file_path = :file_path, file_name = :file_name, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, material); err != nil {
		return fmt.Errorf("update material: %w", err)
	}
	return nil
}

// Deactivate soft-deletes the material.
func (r *MaterialRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE materials SET active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate material: %w", err)
	}
	return nil
}

// CountActive returns the number of active materials narrowed to a teacher
// or semester set when provided.
func (r *MaterialRepository) CountActive(ctx context.Context, teacherID string, semesterIDs []string) (int, error) {
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
	query := fmt.Sprintf("SELECT COUNT(*) FROM materials WHERE %s", strings.Join(conditions, " AND "))
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count materials: %w", err)
	}
	return count, nil
}
