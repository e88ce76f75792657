package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/acadsuite/campus-portal-api/internal/models"
	appErrors "github.com/acadsuite/campus-portal-api/pkg/errors"
)

type mockCourseRepo struct {
	byID        *models.Course
	byCode      *models.Course
	created     *models.Course
	revived     *models.Course
	deactivated []string
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	return nil, 0, nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if m.byID == nil {
		return nil, sql.ErrNoRows
	}
	return m.byID, nil
}

func (m *mockCourseRepo) FindByCodeAny(ctx context.Context, code string) (*models.Course, error) {
	if m.byCode == nil {
		return nil, sql.ErrNoRows
	}
	return m.byCode, nil
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	course.ID = "course-new"
	m.created = course
	return nil
}

func (m *mockCourseRepo) Update(ctx context.Context, course *models.Course) error {
	return nil
}

func (m *mockCourseRepo) Reactivate(ctx context.Context, course *models.Course) error {
	m.revived = course
	return nil
}

func (m *mockCourseRepo) Deactivate(ctx context.Context, id string) error {
	m.deactivated = append(m.deactivated, id)
	return nil
}

type mockCourseSemesterRepo struct {
	semesters []models.Semester
}

func (m *mockCourseSemesterRepo) ListByCourse(ctx context.Context, courseID string) ([]models.Semester, error) {
	return m.semesters, nil
}

func TestCourseCreate(t *testing.T) {
	repo := &mockCourseRepo{}
	svc := NewCourseService(repo, &mockCourseSemesterRepo{}, nil, zap.NewNop())

	course, err := svc.Create(context.Background(), CreateCourseRequest{
		Name:           "Computer Science",
		Code:           "CS",
		DurationYears:  4,
		TotalSemesters: 8,
	})
	require.NoError(t, err)
	assert.Equal(t, "course-new", course.ID)
	assert.True(t, course.Active)
	assert.Equal(t, 8, course.TotalSemesters)
}

func TestCourseCreateActiveCodeConflicts(t *testing.T) {
	repo := &mockCourseRepo{byCode: &models.Course{ID: "course-1", Code: "CS", Active: true}}
	svc := NewCourseService(repo, &mockCourseSemesterRepo{}, nil, zap.NewNop())

	_, err := svc.Create(context.Background(), CreateCourseRequest{
		Name:           "Computer Science",
		Code:           "CS",
		DurationYears:  4,
		TotalSemesters: 8,
	})
	assertErrCode(t, err, appErrors.ErrAlreadyExists.Code)
	assert.Nil(t, repo.created)
}

func TestCourseCreateReactivatesInactiveCode(t *testing.T) {
	repo := &mockCourseRepo{byCode: &models.Course{ID: "course-1", Code: "CS", Name: "Old Name", Active: false}}
	svc := NewCourseService(repo, &mockCourseSemesterRepo{}, nil, zap.NewNop())

	course, err := svc.Create(context.Background(), CreateCourseRequest{
		Name:           "Computer Science",
		Code:           "CS",
		DurationYears:  4,
		TotalSemesters: 8,
	})
	require.NoError(t, err)
	assert.Equal(t, "course-1", course.ID)
	assert.Equal(t, "Computer Science", course.Name)
	require.NotNil(t, repo.revived)
	assert.Nil(t, repo.created)
}

func TestCourseGetWithSemesters(t *testing.T) {
	repo := &mockCourseRepo{byID: &models.Course{ID: "course-1", TotalSemesters: 2}}
	semesters := &mockCourseSemesterRepo{semesters: []models.Semester{{ID: "sem-1", Number: 1}, {ID: "sem-2", Number: 2}}}
	svc := NewCourseService(repo, semesters, nil, zap.NewNop())

	course, rows, err := svc.Get(context.Background(), "course-1")
	require.NoError(t, err)
	assert.Equal(t, "course-1", course.ID)
	assert.Len(t, rows, 2)
}

func TestCourseGetNotFound(t *testing.T) {
	svc := NewCourseService(&mockCourseRepo{}, &mockCourseSemesterRepo{}, nil, zap.NewNop())

	_, _, err := svc.Get(context.Background(), "missing")
	assertErrCode(t, err, appErrors.ErrNotFound.Code)
}

func TestCourseDeleteSoft(t *testing.T) {
	repo := &mockCourseRepo{byID: &models.Course{ID: "course-1", Active: true}}
	svc := NewCourseService(repo, &mockCourseSemesterRepo{}, nil, zap.NewNop())

	require.NoError(t, svc.Delete(context.Background(), "course-1"))
	assert.Equal(t, []string{"course-1"}, repo.deactivated)
}
