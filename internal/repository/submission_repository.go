package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/acadsuite/campus-portal-api/internal/models"
)

// SubmissionRepository manages persistence for assignment submissions. At
// most one row exists per (assignment, student); re-submission replaces it.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// FindByAssignmentAndStudent fetches the student's submission if present.
func (r *SubmissionRepository) FindByAssignmentAndStudent(ctx context.Context, assignmentID, studentID string) (*models.Submission, error) {
	const query = `SELECT id, assignment_id, student_id, file_path, file_name, submitted_at, marks_obtained, feedback, graded_at, graded_by
        FROM assignment_submissions WHERE assignment_id = $1 AND student_id = $2`
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, assignmentID, studentID); err != nil {
		return nil, err
	}
	return &submission, nil
}

// Upsert inserts the submission or replaces the student's prior upload,
// resetting any grade the stale file carried.
func (r *SubmissionRepository) Upsert(ctx context.Context, submission *models.Submission) (*models.Submission, error) {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	if submission.SubmittedAt.IsZero() {
		submission.SubmittedAt = time.Now().UTC()
	}
	const query = `INSERT INTO assignment_submissions (id, assignment_id, student_id, file_path, file_name, submitted_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (assignment_id, student_id)
        DO UPDATE SET file_path = EXCLUDED.file_path, file_name = EXCLUDED.file_name, submitted_at = EXCLUDED.submitted_at,
            marks_obtained = NULL, feedback = NULL, graded_at = NULL, graded_by = NULL
        RETURNING id, assignment_id, student_id, file_path, file_name, submitted_at, marks_obtained, feedback, graded_at, graded_by`
	var stored models.Submission
	if err := r.db.GetContext(ctx, &stored, query, submission.ID, submission.AssignmentID, submission.StudentID, submission.FilePath, submission.FileName, submission.SubmittedAt); err != nil {
		return nil, fmt.Errorf("upsert submission: %w", err)
	}
	return &stored, nil
}

// ListByAssignment returns submissions for grading review, most recent first.
func (r *SubmissionRepository) ListByAssignment(ctx context.Context, assignmentID string) ([]models.SubmissionDetail, error) {
	const query = `SELECT sub.id, sub.assignment_id, sub.student_id, sub.file_path, sub.file_name, sub.submitted_at,
        sub.marks_obtained, sub.feedback, sub.graded_at, sub.graded_by,
        u.full_name AS student_name, s.roll_number
        FROM assignment_submissions sub
        JOIN students s ON s.id = sub.student_id
        JOIN users u ON u.id = s.user_id
        WHERE sub.assignment_id = $1
        ORDER BY sub.submitted_at DESC`
	var submissions []models.SubmissionDetail
	if err := r.db.SelectContext(ctx, &submissions, query, assignmentID); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return submissions, nil
}

// ListByStudent returns the student's own submissions, most recent first.
func (r *SubmissionRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Submission, error) {
	const query = `SELECT id, assignment_id, student_id, file_path, file_name, submitted_at, marks_obtained, feedback, graded_at, graded_by
        FROM assignment_submissions WHERE student_id = $1 ORDER BY submitted_at DESC`
	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query, studentID); err != nil {
		return nil, fmt.Errorf("list student submissions: %w", err)
	}
	return submissions, nil
}

// Grade records marks and feedback for a submission.
func (r *SubmissionRepository) Grade(ctx context.Context, id string, marks int, feedback *string, gradedBy *string) error {
	const query = `UPDATE assignment_submissions SET marks_obtained = $2, feedback = $3, graded_by = $4, graded_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, marks, feedback, gradedBy, time.Now().UTC()); err != nil {
		return fmt.Errorf("grade submission: %w", err)
	}
	return nil
}

// FindByID fetches a submission by ID.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	const query = `SELECT id, assignment_id, student_id, file_path, file_name, submitted_at, marks_obtained, feedback, graded_at, graded_by
        FROM assignment_submissions WHERE id = $1`
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		return nil, err
	}
	return &submission, nil
}
