package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadsuite/campus-portal-api/internal/models"
	appErrors "github.com/acadsuite/campus-portal-api/pkg/errors"
)

type mockStudentRecordRepo struct {
	detail      *models.StudentDetail
	updated     []models.Student
	deactivated []string
}

func (m *mockStudentRecordRepo) List(_ context.Context, _ models.StudentFilter) ([]models.StudentDetail, int, error) {
	if m.detail == nil {
		return []models.StudentDetail{}, 0, nil
	}
	return []models.StudentDetail{*m.detail}, 1, nil
}

func (m *mockStudentRecordRepo) FindByID(_ context.Context, id string) (*models.StudentDetail, error) {
	if m.detail == nil || m.detail.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.detail, nil
}

func (m *mockStudentRecordRepo) Update(_ context.Context, student *models.Student) error {
	m.updated = append(m.updated, *student)
	m.detail.Student = *student
	return nil
}

func (m *mockStudentRecordRepo) Deactivate(_ context.Context, id string) error {
	m.deactivated = append(m.deactivated, id)
	return nil
}

type mockStudentUserRepo struct {
	profileUpdates []string
	deactivated    []string
}

func (m *mockStudentUserRepo) UpdateProfile(_ context.Context, id, _ string, _ *string) error {
	m.profileUpdates = append(m.profileUpdates, id)
	return nil
}

func (m *mockStudentUserRepo) Deactivate(_ context.Context, id string) error {
	m.deactivated = append(m.deactivated, id)
	return nil
}

type mockStudentSemesterRepo struct {
	semesters map[string]*models.Semester
	belongs   bool
}

func (m *mockStudentSemesterRepo) FindByID(_ context.Context, id string) (*models.Semester, error) {
	if sem, ok := m.semesters[id]; ok {
		return sem, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentSemesterRepo) FindByCourseAndNumber(_ context.Context, courseID string, number int) (*models.Semester, error) {
	for _, sem := range m.semesters {
		if sem.CourseID == courseID && sem.Number == number {
			return sem, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentSemesterRepo) BelongsToCourse(_ context.Context, _, _ string) (bool, error) {
	return m.belongs, nil
}

func enrolledStudent(semesterID string) *models.StudentDetail {
	sem := semesterID
	return &models.StudentDetail{
		Student: models.Student{
			ID:                "student-1",
			UserID:            "user-1",
			RollNumber:        "BCA-042",
			CourseID:          "course-1",
			CurrentSemesterID: &sem,
			EnrollmentYear:    2024,
			Active:            true,
		},
		Email:    "sam@example.edu",
		FullName: "Sam Lee",
	}
}

func TestStudentProgressMovesToNextSemester(t *testing.T) {
	repo := &mockStudentRecordRepo{detail: enrolledStudent("sem-3")}
	semesters := &mockStudentSemesterRepo{semesters: map[string]*models.Semester{
		"sem-3": {ID: "sem-3", CourseID: "course-1", Number: 3},
		"sem-4": {ID: "sem-4", CourseID: "course-1", Number: 4},
	}}
	svc := NewStudentService(repo, &mockStudentUserRepo{}, semesters, nil, nil)

	updated, err := svc.Progress(context.Background(), "student-1")

	require.NoError(t, err)
	require.NotNil(t, updated.CurrentSemesterID)
	assert.Equal(t, "sem-4", *updated.CurrentSemesterID)
	require.Len(t, repo.updated, 1)
}

func TestStudentProgressFinalSemesterRejected(t *testing.T) {
	repo := &mockStudentRecordRepo{detail: enrolledStudent("sem-6")}
	semesters := &mockStudentSemesterRepo{semesters: map[string]*models.Semester{
		"sem-6": {ID: "sem-6", CourseID: "course-1", Number: 6},
	}}
	svc := NewStudentService(repo, &mockStudentUserRepo{}, semesters, nil, nil)

	_, err := svc.Progress(context.Background(), "student-1")

	assertErrCode(t, err, appErrors.ErrValidation.Code)
	assert.Empty(t, repo.updated)
}

func TestStudentUpdateRejectsForeignCourseSemester(t *testing.T) {
	repo := &mockStudentRecordRepo{detail: enrolledStudent("sem-3")}
	semesters := &mockStudentSemesterRepo{belongs: false}
	svc := NewStudentService(repo, &mockStudentUserRepo{}, semesters, nil, nil)

	other := "sem-other-course"
	_, err := svc.Update(context.Background(), "student-1", UpdateStudentRequest{
		FullName:          "Sam Lee",
		CurrentSemesterID: &other,
	})

	assertErrCode(t, err, appErrors.ErrValidation.Code)
	assert.Empty(t, repo.updated)
}

func TestStudentGetSelfOnlyForStudents(t *testing.T) {
	repo := &mockStudentRecordRepo{detail: enrolledStudent("sem-3")}
	svc := NewStudentService(repo, &mockStudentUserRepo{}, &mockStudentSemesterRepo{}, nil, nil)

	_, err := svc.Get(context.Background(), "student-1", models.Scope{
		Role:      models.RoleStudent,
		StudentID: "student-2",
	})

	assertErrCode(t, err, appErrors.ErrForbidden.Code)
}

func TestStudentGetOutsideTeacherSemestersForbidden(t *testing.T) {
	repo := &mockStudentRecordRepo{detail: enrolledStudent("sem-3")}
	svc := NewStudentService(repo, &mockStudentUserRepo{}, &mockStudentSemesterRepo{}, nil, nil)

	_, err := svc.Get(context.Background(), "student-1", models.Scope{
		Role:        models.RoleTeacher,
		TeacherID:   "teacher-1",
		SemesterIDs: []string{"sem-9"},
	})

	assertErrCode(t, err, appErrors.ErrForbidden.Code)
}

func TestStudentDeleteDeactivatesRecordAndLogin(t *testing.T) {
	repo := &mockStudentRecordRepo{detail: enrolledStudent("sem-3")}
	users := &mockStudentUserRepo{}
	svc := NewStudentService(repo, users, &mockStudentSemesterRepo{}, nil, nil)

	err := svc.Delete(context.Background(), "student-1")

	require.NoError(t, err)
	assert.Equal(t, []string{"student-1"}, repo.deactivated)
	assert.Equal(t, []string{"user-1"}, users.deactivated)
}
