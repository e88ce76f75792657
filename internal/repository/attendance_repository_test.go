package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadsuite/campus-portal-api/internal/models"
)

func newAttendanceMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAttendanceRepositoryReplaceRoster(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	key := models.RosterKey{SemesterID: "sem1", SubjectID: "sub1", Date: date}
	teacherID := "t1"
	entries := []models.RosterEntry{
		{StudentID: "s1", Status: models.AttendancePresent},
		{StudentID: "s2", Status: models.AttendanceAbsent},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM attendance WHERE semester_id = $1 AND subject_id = $2 AND date = $3")).
		WithArgs("sem1", "sub1", date).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO attendance").
		WithArgs(sqlmock.AnyArg(), "s1", "sem1", "sub1", &teacherID, date, models.AttendancePresent, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO attendance").
		WithArgs(sqlmock.AnyArg(), "s2", "sem1", "sub1", &teacherID, date, models.AttendanceAbsent, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	count, err := repo.ReplaceRoster(context.Background(), key, &teacherID, entries)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryReplaceRosterEmptyClearsSession(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM attendance").
		WithArgs("sem1", "sub1", date).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	count, err := repo.ReplaceRoster(context.Background(), models.RosterKey{SemesterID: "sem1", SubjectID: "sub1", Date: date}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryReplaceRosterRollsBackOnInsertFailure(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM attendance").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO attendance").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := repo.ReplaceRoster(context.Background(), models.RosterKey{SemesterID: "sem1", SubjectID: "sub1", Date: date}, nil,
		[]models.RosterEntry{{StudentID: "s1", Status: models.AttendanceLate}})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryStudentSummary(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	rows := sqlmock.NewRows([]string{"status", "cnt"}).
		AddRow("present", 14).
		AddRow("late", 2).
		AddRow("absent", 3).
		AddRow("excused", 1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*) AS cnt FROM attendance WHERE student_id = $1 GROUP BY status")).
		WithArgs("s1").
		WillReturnRows(rows)

	summary, err := repo.StudentSummary(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 20, summary.Total)
	assert.Equal(t, 14, summary.Present)
	assert.Equal(t, 2, summary.Late)
	assert.InDelta(t, 80.0, summary.Percent, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryStudentSummaryNoRecords(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery("SELECT status, COUNT").
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "cnt"}))

	summary, err := repo.StudentSummary(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Total)
	assert.Equal(t, 0.0, summary.Percent)
	assert.NoError(t, mock.ExpectationsWereMet())
}
