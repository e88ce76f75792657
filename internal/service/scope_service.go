package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/acadsuite/campus-portal-api/internal/models"
	appErrors "github.com/acadsuite/campus-portal-api/pkg/errors"
)

type scopeTeacherRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.Teacher, error)
}

type scopeStudentRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
}

type scopeAssignmentRepository interface {
	ScopeIDs(ctx context.Context, teacherID string) (semesterIDs, subjectIDs []string, err error)
}

// ScopeService resolves the visibility set for a caller. Admins see
// everything; teachers see their assigned semesters and subjects; students
// see their own current semester. A caller whose role record is missing gets
// an empty scope so listings stay empty instead of failing.
type ScopeService struct {
	teachers    scopeTeacherRepository
	students    scopeStudentRepository
	assignments scopeAssignmentRepository
	logger      *zap.Logger
}

// NewScopeService constructs the resolver.
func NewScopeService(teachers scopeTeacherRepository, students scopeStudentRepository, assignments scopeAssignmentRepository, logger *zap.Logger) *ScopeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScopeService{teachers: teachers, students: students, assignments: assignments, logger: logger}
}

// Resolve computes the scope for the given user and role.
func (s *ScopeService) Resolve(ctx context.Context, userID string, role models.UserRole) (models.Scope, error) {
	scope := models.Scope{Role: role, UserID: userID}

	switch role {
	case models.RoleAdmin:
		return scope, nil

	case models.RoleTeacher:
		teacher, err := s.teachers.FindByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				s.logger.Warn("teacher record missing for user", zap.String("user_id", userID))
				return scope, nil
			}
			return scope, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve teacher scope")
		}
		scope.TeacherID = teacher.ID
		semesterIDs, subjectIDs, err := s.assignments.ScopeIDs(ctx, teacher.ID)
		if err != nil {
			return scope, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher assignments")
		}
		scope.SemesterIDs = semesterIDs
		scope.SubjectIDs = subjectIDs
		return scope, nil

	case models.RoleStudent:
		student, err := s.students.FindByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				s.logger.Warn("student record missing for user", zap.String("user_id", userID))
				return scope, nil
			}
			return scope, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve student scope")
		}
		scope.StudentID = student.ID
		scope.CourseID = student.CourseID
		if student.CurrentSemesterID != nil {
			scope.SemesterIDs = []string{*student.CurrentSemesterID}
		}
		return scope, nil

	default:
		return scope, appErrors.Clone(appErrors.ErrForbidden, "unknown role")
	}
}
