package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/acadsuite/campus-portal-api/internal/models"
)

// SemesterRepository reads semester rows. Semesters are created through the
// course cascade, never directly.
type SemesterRepository struct {
	db *sqlx.DB
}

// NewSemesterRepository constructs a SemesterRepository.
func NewSemesterRepository(db *sqlx.DB) *SemesterRepository {
	return &SemesterRepository{db: db}
}

// ListByCourse returns the active semesters of a course in sequence order.
func (r *SemesterRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Semester, error) {
	const query = `SELECT id, course_id, number, name, active, created_at
        FROM semesters WHERE course_id = $1 AND active = TRUE ORDER BY number ASC`
	var semesters []models.Semester
	if err := r.db.SelectContext(ctx, &semesters, query, courseID); err != nil {
		return nil, fmt.Errorf("list semesters: %w", err)
	}
	return semesters, nil
}

// ListByIDs returns semester details for the given set, course context
// included. Used by scoped listings.
func (r *SemesterRepository) ListByIDs(ctx context.Context, ids []string) ([]models.SemesterDetail, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT s.id, s.course_id, s.number, s.name, s.active, s.created_at,
        c.name AS course_name, c.code AS course_code
        FROM semesters s JOIN courses c ON c.id = s.course_id
        WHERE s.id IN (?) ORDER BY c.name ASC, s.number ASC`, ids)
	if err != nil {
		return nil, fmt.Errorf("build semester query: %w", err)
	}
	query = r.db.Rebind(query)
	var semesters []models.SemesterDetail
	if err := r.db.SelectContext(ctx, &semesters, query, args...); err != nil {
		return nil, fmt.Errorf("list semesters by ids: %w", err)
	}
	return semesters, nil
}

// FindByID fetches a semester by ID.
func (r *SemesterRepository) FindByID(ctx context.Context, id string) (*models.Semester, error) {
	const query = `SELECT id, course_id, number, name, active, created_at FROM semesters WHERE id = $1`
	var semester models.Semester
	if err := r.db.GetContext(ctx, &semester, query, id); err != nil {
		return nil, err
	}
	return &semester, nil
}

// FindByCourseAndNumber fetches the semester with the given ordinal within a
// course. Used by semester progression.
func (r *SemesterRepository) FindByCourseAndNumber(ctx context.Context, courseID string, number int) (*models.Semester, error) {
	const query = `SELECT id, course_id, number, name, active, created_at FROM semesters WHERE course_id = $1 AND number = $2`
	var semester models.Semester
	if err := r.db.GetContext(ctx, &semester, query, courseID, number); err != nil {
		return nil, err
	}
	return &semester, nil
}

// BelongsToCourse reports whether the semester is part of the given course.
func (r *SemesterRepository) BelongsToCourse(ctx context.Context, semesterID, courseID string) (bool, error) {
	const query = `SELECT 1 FROM semesters WHERE id = $1 AND course_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, semesterID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check semester course: %w", err)
	}
	return true, nil
}
