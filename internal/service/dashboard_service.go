package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/acadsuite/campus-portal-api/internal/models"
	appErrors "github.com/acadsuite/campus-portal-api/pkg/errors"
)

type courseCounter interface {
	CountActive(ctx context.Context) (int, error)
}

type subjectCounter interface {
	CountActive(ctx context.Context) (int, error)
}

type teacherCounter interface {
	CountActive(ctx context.Context) (int, error)
}

type studentCounter interface {
	CountActive(ctx context.Context, semesterIDs []string) (int, error)
}

type assignmentCounter interface {
	CountActive(ctx context.Context, teacherID string, semesterIDs []string) (int, error)
}

type materialCounter interface {
	CountActive(ctx context.Context, teacherID string, semesterIDs []string) (int, error)
}

type dashboardAssignmentLister interface {
	ListByTeacher(ctx context.Context, teacherID string) ([]models.SemesterAssignmentDetail, error)
}

type dashboardAttendanceSummarizer interface {
	StudentSummary(ctx context.Context, studentID string) (*models.AttendanceSummary, error)
}

type dashboardAssignmentRepository interface {
	List(ctx context.Context, filter models.AssignmentFilter, forStudentID string) ([]models.AssignmentDetail, int, error)
}

// AdminDashboard aggregates portal-wide counts for administrators.
type AdminDashboard struct {
	Courses  int                 `json:"courses"`
	Subjects int                 `json:"subjects"`
	Teachers int                 `json:"teachers"`
	Students int                 `json:"students"`
	System   models.SystemMetrics `json:"system"`
}

// TeacherDashboard summarises one teacher's workload.
type TeacherDashboard struct {
	Assignments       []models.SemesterAssignmentDetail `json:"assignments"`
	Students          int                               `json:"students"`
	ActiveAssignments int                               `json:"active_assignments"`
	Materials         int                               `json:"materials"`
}

// StudentDashboard summarises one student's standing.
type StudentDashboard struct {
	Attendance         *models.AttendanceSummary `json:"attendance"`
	PendingAssignments int                       `json:"pending_assignments"`
	PastDueAssignments int                       `json:"past_due_assignments"`
}

// DashboardService composes role dashboards, caching composed payloads.
type DashboardService struct {
	courses         courseCounter
	subjects        subjectCounter
	teachers        teacherCounter
	students        studentCounter
	assignments     assignmentCounter
	materials       materialCounter
	teacherBindings dashboardAssignmentLister
	attendance      dashboardAttendanceSummarizer
	assignmentRows  dashboardAssignmentRepository
	cache           *CacheService
	metrics         *MetricsService
	cacheTTL        time.Duration
	logger          *zap.Logger
	now             func() time.Time
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Courses         courseCounter
	Subjects        subjectCounter
	Teachers        teacherCounter
	Students        studentCounter
	Assignments     assignmentCounter
	Materials       materialCounter
	TeacherBindings dashboardAssignmentLister
	Attendance      dashboardAttendanceSummarizer
	AssignmentRows  dashboardAssignmentRepository
	Cache           *CacheService
	Metrics         *MetricsService
	CacheTTL        time.Duration
	Logger          *zap.Logger
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	ttl := params.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		courses:         params.Courses,
		subjects:        params.Subjects,
		teachers:        params.Teachers,
		students:        params.Students,
		assignments:     params.Assignments,
		materials:       params.Materials,
		teacherBindings: params.TeacherBindings,
		attendance:      params.Attendance,
		assignmentRows:  params.AssignmentRows,
		cache:           params.Cache,
		metrics:         params.Metrics,
		cacheTTL:        ttl,
		logger:          logger,
		now:             time.Now,
	}
}

// Admin returns portal-wide counts plus a live metrics snapshot. Counts are
// cached; the metrics snapshot never is.
func (s *DashboardService) Admin(ctx context.Context, scope models.Scope) (*AdminDashboard, bool, error) {
	if !scope.Unrestricted() {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "admin dashboard is admin only")
	}

	const cacheKey = "dash:admin:counts"
	var dashboard AdminDashboard
	hit := false
	if s.cache != nil {
		var err error
		hit, err = s.cache.Get(ctx, cacheKey, &dashboard)
		if err != nil {
			s.logger.Warn("admin dashboard cache read failed", zap.Error(err))
			hit = false
		}
	}
	if !hit {
		var err error
		if dashboard.Courses, err = s.courses.CountActive(ctx); err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count courses")
		}
		if dashboard.Subjects, err = s.subjects.CountActive(ctx); err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count subjects")
		}
		if dashboard.Teachers, err = s.teachers.CountActive(ctx); err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count teachers")
		}
		if dashboard.Students, err = s.students.CountActive(ctx, nil); err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
		}
		s.persistCache(ctx, cacheKey, dashboard)
	}

	if s.metrics != nil {
		dashboard.System = s.metrics.Snapshot()
	}
	return &dashboard, hit, nil
}

// Teacher returns the caller's workload summary.
func (s *DashboardService) Teacher(ctx context.Context, scope models.Scope) (*TeacherDashboard, bool, error) {
	if scope.TeacherID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "teacher dashboard requires a teacher record")
	}

	cacheKey := fmt.Sprintf("dash:teacher:%s", scope.TeacherID)
	var dashboard TeacherDashboard
	if s.cache != nil {
		hit, err := s.cache.Get(ctx, cacheKey, &dashboard)
		if err == nil && hit {
			return &dashboard, true, nil
		}
	}

	assignments, err := s.teacherBindings.ListByTeacher(ctx, scope.TeacherID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	dashboard.Assignments = assignments

	if len(scope.SemesterIDs) > 0 {
		if dashboard.Students, err = s.students.CountActive(ctx, scope.SemesterIDs); err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
		}
	}
	if dashboard.ActiveAssignments, err = s.assignments.CountActive(ctx, scope.TeacherID, nil); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count assignments")
	}
	if dashboard.Materials, err = s.materials.CountActive(ctx, scope.TeacherID, nil); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count materials")
	}

	s.persistCache(ctx, cacheKey, dashboard)
	return &dashboard, false, nil
}

// Student returns the caller's standing: attendance aggregate plus pending
// and past-due assignment counts derived at read time.
func (s *DashboardService) Student(ctx context.Context, scope models.Scope) (*StudentDashboard, bool, error) {
	if scope.StudentID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "student dashboard requires a student record")
	}

	summary, err := s.attendance.StudentSummary(ctx, scope.StudentID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance summary")
	}
	dashboard := &StudentDashboard{Attendance: summary}

	if len(scope.SemesterIDs) > 0 {
		active := true
		rows, _, err := s.assignmentRows.List(ctx, models.AssignmentFilter{
			SemesterIDs: scope.SemesterIDs,
			Active:      &active,
			Page:        1,
			PageSize:    100,
		}, scope.StudentID)
		if err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
		}
		now := s.now().UTC()
		for _, row := range rows {
			switch models.DeriveSubmissionStatus(row.DueDate, row.Submitted, now) {
			case models.SubmissionPending:
				dashboard.PendingAssignments++
			case models.SubmissionPastDue:
				dashboard.PastDueAssignments++
			}
		}
	}
	return dashboard, false, nil
}

// InvalidateTeacher drops the cached teacher dashboard after a workload
// mutation.
func (s *DashboardService) InvalidateTeacher(ctx context.Context, teacherID string) {
	if s.cache == nil || teacherID == "" {
		return
	}
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("dash:teacher:%s", teacherID)); err != nil {
		s.logger.Warn("teacher dashboard invalidation failed", zap.Error(err))
	}
}

func (s *DashboardService) persistCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}
