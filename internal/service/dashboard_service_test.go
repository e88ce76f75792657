package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/acadsuite/campus-portal-api/internal/models"
	appErrors "github.com/acadsuite/campus-portal-api/pkg/errors"
)

type stubCacheRepo struct {
	store map[string][]byte
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	if s.store == nil {
		return appErrors.ErrCacheMiss
	}
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	for key := range s.store {
		delete(s.store, key)
	}
	return nil
}

type stubCounter struct {
	count int
	calls int
}

func (s *stubCounter) CountActive(ctx context.Context) (int, error) {
	s.calls++
	return s.count, nil
}

type stubScopedCounter struct {
	count int
	calls int
}

func (s *stubScopedCounter) CountActive(ctx context.Context, teacherID string, semesterIDs []string) (int, error) {
	s.calls++
	return s.count, nil
}

type stubStudentCounter struct {
	count int
	calls int
}

func (s *stubStudentCounter) CountActive(ctx context.Context, semesterIDs []string) (int, error) {
	s.calls++
	return s.count, nil
}

type stubBindingLister struct {
	rows []models.SemesterAssignmentDetail
}

func (s *stubBindingLister) ListByTeacher(ctx context.Context, teacherID string) ([]models.SemesterAssignmentDetail, error) {
	return s.rows, nil
}

type stubSummarizer struct {
	summary *models.AttendanceSummary
}

func (s *stubSummarizer) StudentSummary(ctx context.Context, studentID string) (*models.AttendanceSummary, error) {
	return s.summary, nil
}

type stubAssignmentLister struct {
	rows []models.AssignmentDetail
}

func (s *stubAssignmentLister) List(ctx context.Context, filter models.AssignmentFilter, forStudentID string) ([]models.AssignmentDetail, int, error) {
	return s.rows, len(s.rows), nil
}

func newDashboardFixture() (*DashboardService, *stubCounter, *stubCacheRepo) {
	courses := &stubCounter{count: 3}
	cacheRepo := &stubCacheRepo{}
	cacheSvc := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	svc := NewDashboardService(DashboardServiceParams{
		Courses:         courses,
		Subjects:        &stubCounter{count: 12},
		Teachers:        &stubCounter{count: 5},
		Students:        &stubStudentCounter{count: 90},
		Assignments:     &stubScopedCounter{count: 4},
		Materials:       &stubScopedCounter{count: 7},
		TeacherBindings: &stubBindingLister{},
		Attendance:      &stubSummarizer{summary: &models.AttendanceSummary{Total: 20, Present: 16, Percent: 80}},
		AssignmentRows:  &stubAssignmentLister{},
		Cache:           cacheSvc,
		Logger:          zap.NewNop(),
	})
	return svc, courses, cacheRepo
}

func TestAdminDashboardCachesCounts(t *testing.T) {
	svc, courses, _ := newDashboardFixture()
	scope := models.Scope{Role: models.RoleAdmin}

	first, hit, err := svc.Admin(context.Background(), scope)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 3, first.Courses)
	assert.Equal(t, 90, first.Students)
	assert.Equal(t, 1, courses.calls)

	second, hit, err := svc.Admin(context.Background(), scope)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first.Courses, second.Courses)
	assert.Equal(t, 1, courses.calls)
}

func TestAdminDashboardRejectsNonAdmins(t *testing.T) {
	svc, _, _ := newDashboardFixture()

	_, _, err := svc.Admin(context.Background(), models.Scope{Role: models.RoleTeacher})
	assertErrCode(t, err, appErrors.ErrForbidden.Code)
}

func TestTeacherDashboardRequiresTeacherRecord(t *testing.T) {
	svc, _, _ := newDashboardFixture()

	_, _, err := svc.Teacher(context.Background(), models.Scope{Role: models.RoleTeacher})
	assertErrCode(t, err, appErrors.ErrForbidden.Code)
}

func TestTeacherDashboardComposesWorkload(t *testing.T) {
	svc, _, _ := newDashboardFixture()

	dashboard, hit, err := svc.Teacher(context.Background(), teacherScope())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 90, dashboard.Students)
	assert.Equal(t, 4, dashboard.ActiveAssignments)
	assert.Equal(t, 7, dashboard.Materials)

	_, hit, err = svc.Teacher(context.Background(), teacherScope())
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestStudentDashboardCountsPendingWork(t *testing.T) {
	cacheSvc := NewCacheService(&stubCacheRepo{}, nil, time.Minute, zap.NewNop(), true)
	rows := &stubAssignmentLister{rows: []models.AssignmentDetail{
		{Assignment: models.Assignment{DueDate: time.Now().UTC().Add(time.Hour)}},
		{Assignment: models.Assignment{DueDate: time.Now().UTC().Add(-time.Hour)}},
		{Assignment: models.Assignment{DueDate: time.Now().UTC().Add(-time.Hour)}, Submitted: true},
	}}
	svc := NewDashboardService(DashboardServiceParams{
		Students:       &stubStudentCounter{},
		Attendance:     &stubSummarizer{summary: &models.AttendanceSummary{Total: 20, Present: 16, Percent: 80}},
		AssignmentRows: rows,
		Cache:          cacheSvc,
		Logger:         zap.NewNop(),
	})

	dashboard, _, err := svc.Student(context.Background(), studentScope())
	require.NoError(t, err)
	assert.Equal(t, 80.0, dashboard.Attendance.Percent)
	assert.Equal(t, 1, dashboard.PendingAssignments)
	assert.Equal(t, 1, dashboard.PastDueAssignments)
}

func TestInvalidateTeacherDropsCachedDashboard(t *testing.T) {
	svc, _, cacheRepo := newDashboardFixture()

	_, _, err := svc.Teacher(context.Background(), teacherScope())
	require.NoError(t, err)
	require.NotEmpty(t, cacheRepo.store)

	svc.InvalidateTeacher(context.Background(), "teacher-1")
	assert.Empty(t, cacheRepo.store)
}
