package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadsuite/campus-portal-api/internal/models"
)

func newStudentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "postgres"), mock, func() { db.Close() }
}

func studentDetailRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "roll_number", "course_id", "current_semester_id", "enrollment_year",
		"guardian_name", "guardian_phone", "address", "active", "created_at", "updated_at",
		"email", "full_name", "phone", "course_name", "course_code", "semester_name"})
}

func TestStudentRepositoryList(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := studentDetailRows().
		AddRow("s1", "u1", "CS-001", "c1", "sem1", 2024, nil, nil, nil, true, nowUTC(), nowUTC(),
			"student@campus.edu", "Student One", nil, "B.Sc. Computer Science", "BSC-CS", "Semester 1")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 ORDER BY s.created_at DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students s")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListScopedBySemesters(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("s.current_semester_id IN ($1, $2)")).
		WithArgs("sem1", "sem2").
		WillReturnRows(studentDetailRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("sem1", "sem2").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	students, total, err := repo.List(context.Background(), models.StudentFilter{SemesterIDs: []string{"sem1", "sem2"}})
	require.NoError(t, err)
	assert.Empty(t, students)
	assert.Equal(t, 0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByRollNumberAny(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "roll_number", "course_id", "current_semester_id", "enrollment_year",
		"guardian_name", "guardian_phone", "address", "active", "created_at", "updated_at"}).
		AddRow("s1", "u1", "CS-001", "c1", nil, 2023, nil, nil, nil, false, nowUTC(), nowUTC())
	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE LOWER(roll_number) = LOWER($1) AND course_id = $2")).
		WithArgs("cs-001", "c1").
		WillReturnRows(rows)

	student, err := repo.FindByRollNumberAny(context.Background(), "cs-001", "c1")
	require.NoError(t, err)
	assert.False(t, student.Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{UserID: "u1", RollNumber: "CS-002", CourseID: "c1", EnrollmentYear: 2026, Active: true}
	require.NoError(t, repo.Create(context.Background(), student))
	assert.NotEmpty(t, student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCountActiveWithSemesterScope(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students WHERE active = TRUE AND current_semester_id IN ($1, $2)")).
		WithArgs("sem1", "sem2").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	count, err := repo.CountActive(context.Background(), []string{"sem1", "sem2"})
	require.NoError(t, err)
	assert.Equal(t, 12, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
