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

// AttendanceRepository handles persistence for attendance sessions. A
// session keyed by (semester_id, subject_id, date) is always replaced as a
// whole, never patched row by row.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// ReplaceRoster deletes every row under the session key and inserts the new
// entries in the same transaction. An empty entry slice clears the session.
func (r *AttendanceRepository) ReplaceRoster(ctx context.Context, key models.RosterKey, teacherID *string, entries []models.RosterEntry) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin replace roster: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback() //nolint:errcheck
		}
	}()

	const deleteQuery = `DELETE FROM attendance WHERE semester_id = $1 AND subject_id = $2 AND date = $3`
	if _, err := tx.ExecContext(ctx, deleteQuery, key.SemesterID, key.SubjectID, key.Date); err != nil {
		return 0, fmt.Errorf("clear roster: %w", err)
	}

	const insertQuery = `INSERT INTO attendance (id, student_id, semester_id, subject_id, teacher_id, date, status, remarks, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	now := time.Now().UTC()
	for _, entry := range entries {
		if _, err := tx.ExecContext(ctx, insertQuery, uuid.NewString(), entry.StudentID, key.SemesterID, key.SubjectID, teacherID, key.Date, entry.Status, entry.Remarks, now); err != nil {
			return 0, fmt.Errorf("insert roster entry for student %s: %w", entry.StudentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit replace roster: %w", err)
	}
	committed = true
	return len(entries), nil
}

// Roster loads the saved session so a caller can pre-populate edits.
func (r *AttendanceRepository) Roster(ctx context.Context, key models.RosterKey) ([]models.AttendanceRecord, error) {
	const query = `SELECT a.id, a.student_id, a.semester_id, a.subject_id, a.teacher_id, a.date, a.status, a.remarks, a.created_at,
        u.full_name AS student_name, s.roll_number
        FROM attendance a
        JOIN students s ON s.id = a.student_id
        JOIN users u ON u.id = s.user_id
        WHERE a.semester_id = $1 AND a.subject_id = $2 AND a.date = $3
        ORDER BY s.roll_number ASC`
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, key.SemesterID, key.SubjectID, key.Date); err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	return records, nil
}

// List returns attendance history rows matching the provided filter.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	base := `FROM attendance a
JOIN students s ON s.id = a.student_id
JOIN users u ON u.id = s.user_id`
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("a.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.SemesterID != "" {
		conditions = append(conditions, fmt.Sprintf("a.semester_id = $%d", len(args)+1))
		args = append(args, filter.SemesterID)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("a.subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("a.date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("a.date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
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
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT a.id, a.student_id, a.semester_id, a.subject_id, a.teacher_id, a.date, a.status, a.remarks, a.created_at,
        u.full_name AS student_name, s.roll_number
        %s WHERE %s ORDER BY a.date DESC, s.roll_number ASC LIMIT %d OFFSET %d`, base, whereClause, size, offset)

	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}
	return records, total, nil
}

// StudentSummary aggregates a student's recorded sessions across all
// subjects. Zero records yields a zero summary, not an error.
func (r *AttendanceRepository) StudentSummary(ctx context.Context, studentID string) (*models.AttendanceSummary, error) {
	const query = `SELECT status, COUNT(*) AS cnt FROM attendance WHERE student_id = $1 GROUP BY status`
	rows := []struct {
		Status string `db:"status"`
		Count  int    `db:"cnt"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("student attendance summary: %w", err)
	}
	summary := &models.AttendanceSummary{}
	for _, row := range rows {
		switch models.AttendanceStatus(row.Status) {
		case models.AttendancePresent:
			summary.Present += row.Count
		case models.AttendanceAbsent:
			summary.Absent += row.Count
		case models.AttendanceLate:
			summary.Late += row.Count
		case models.AttendanceExcused:
			summary.Excused += row.Count
		}
		summary.Total += row.Count
	}
	if summary.Total > 0 {
		summary.Percent = float64(summary.Present+summary.Late) / float64(summary.Total) * 100
	}
	return summary, nil
}
