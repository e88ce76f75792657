package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadsuite/campus-portal-api/internal/models"
)

func newSubmissionMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func submissionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "assignment_id", "student_id", "file_path", "file_name", "submitted_at", "marks_obtained", "feedback", "graded_at", "graded_by"})
}

func TestSubmissionRepositoryUpsertReturnsStoredRow(t *testing.T) {
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	submittedAt := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO assignment_submissions").
		WithArgs(sqlmock.AnyArg(), "a1", "s1", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(submissionRows().AddRow("existing-id", "a1", "s1", "path/new.pdf", "new.pdf", submittedAt, nil, nil, nil, nil))

	stored, err := repo.Upsert(context.Background(), &models.Submission{AssignmentID: "a1", StudentID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "existing-id", stored.ID)
	assert.Nil(t, stored.MarksObtained)
	assert.Nil(t, stored.GradedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryFindByAssignmentAndStudentNotFound(t *testing.T) {
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE assignment_id = $1 AND student_id = $2")).
		WithArgs("a1", "s1").
		WillReturnRows(submissionRows())

	_, err := repo.FindByAssignmentAndStudent(context.Background(), "a1", "s1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryGrade(t *testing.T) {
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	feedback := "Good work"
	grader := "t1"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE assignment_submissions SET marks_obtained = $2, feedback = $3, graded_by = $4, graded_at = $5 WHERE id = $1")).
		WithArgs("sub1", 85, &feedback, &grader, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Grade(context.Background(), "sub1", 85, &feedback, &grader))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryGradeWithoutGrader(t *testing.T) {
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE assignment_submissions SET marks_obtained = $2, feedback = $3, graded_by = $4, graded_at = $5 WHERE id = $1")).
		WithArgs("sub1", 70, nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Grade(context.Background(), "sub1", 70, nil, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryListByAssignment(t *testing.T) {
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	rows := sqlmock.NewRows([]string{"id", "assignment_id", "student_id", "file_path", "file_name", "submitted_at",
		"marks_obtained", "feedback", "graded_at", "graded_by", "student_name", "roll_number"}).
		AddRow("sub1", "a1", "s1", "path/a.pdf", "a.pdf", nowUTC(), nil, nil, nil, nil, "Student One", "CS-001")
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY sub.submitted_at DESC")).
		WithArgs("a1").
		WillReturnRows(rows)

	submissions, err := repo.ListByAssignment(context.Background(), "a1")
	require.NoError(t, err)
	assert.Len(t, submissions, 1)
	assert.Equal(t, "CS-001", submissions[0].RollNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}
