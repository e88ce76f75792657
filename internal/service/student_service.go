package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/acadsuite/campus-portal-api/internal/models"
	appErrors "github.com/acadsuite/campus-portal-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	Update(ctx context.Context, student *models.Student) error
	Deactivate(ctx context.Context, id string) error
}

type studentUserRepository interface {
	UpdateProfile(ctx context.Context, id, fullName string, phone *string) error
	Deactivate(ctx context.Context, id string) error
}

type studentSemesterRepository interface {
	FindByID(ctx context.Context, id string) (*models.Semester, error)
	FindByCourseAndNumber(ctx context.Context, courseID string, number int) (*models.Semester, error)
	BelongsToCourse(ctx context.Context, semesterID, courseID string) (bool, error)
}

// UpdateStudentRequest holds payload for updating a student record.
type UpdateStudentRequest struct {
	FullName          string  `json:"full_name" validate:"required"`
	Phone             *string `json:"phone"`
	CurrentSemesterID *string `json:"current_semester_id"`
	GuardianName      *string `json:"guardian_name"`
	GuardianPhone     *string `json:"guardian_phone"`
	Address           *string `json:"address"`
}

// StudentService handles student record use-cases. Creation goes through the
// provisioning service, never here.
type StudentService struct {
	repo      studentRepository
	users     studentUserRepository
	semesters studentSemesterRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, users studentUserRepository, semesters studentSemesterRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, users: users, semesters: semesters, validator: validate, logger: logger}
}

// List returns students narrowed to the caller's scope. A teacher with no
// assignments gets an empty page.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter, scope models.Scope) ([]models.StudentDetail, *models.Pagination, error) {
	if !scope.Unrestricted() {
		if len(scope.SemesterIDs) == 0 {
			return []models.StudentDetail{}, paginationFor(filter.Page, filter.PageSize, 0), nil
		}
		filter.SemesterIDs = scope.SemesterIDs
	}
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns one student with profile and course context. Students may only
// read their own record.
func (s *StudentService) Get(ctx context.Context, id string, scope models.Scope) (*models.StudentDetail, error) {
	if scope.Role == models.RoleStudent && scope.StudentID != id {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students may only view their own record")
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if scope.Role == models.RoleTeacher {
		if student.CurrentSemesterID == nil || !scope.AllowsSemester(*student.CurrentSemesterID) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "student is outside your assigned semesters")
		}
	}
	return student, nil
}

// Update modifies a student's profile and record fields. A semester change
// must stay inside the student's course.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	if req.CurrentSemesterID != nil {
		ok, err := s.semesters.BelongsToCourse(ctx, *req.CurrentSemesterID, detail.CourseID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify semester")
		}
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "semester does not belong to the student's course")
		}
	}

	if err := s.users.UpdateProfile(ctx, detail.UserID, req.FullName, req.Phone); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student profile")
	}

	student := detail.Student
	student.CurrentSemesterID = req.CurrentSemesterID
	student.GuardianName = req.GuardianName
	student.GuardianPhone = req.GuardianPhone
	student.Address = req.Address
	if err := s.repo.Update(ctx, &student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload student")
	}
	return updated, nil
}

// Progress advances a student to the next semester of their course. The
// current semester must be set and must not be the final one.
func (s *StudentService) Progress(ctx context.Context, id string) (*models.StudentDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if detail.CurrentSemesterID == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student has no current semester")
	}
	current, err := s.semesters.FindByID(ctx, *detail.CurrentSemesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current semester")
	}
	next, err := s.semesters.FindByCourseAndNumber(ctx, detail.CourseID, current.Number+1)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "student is already in the final semester")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load next semester")
	}

	student := detail.Student
	student.CurrentSemesterID = &next.ID
	if err := s.repo.Update(ctx, &student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to progress student")
	}
	s.logger.Info("student progressed",
		zap.String("student_id", id),
		zap.Int("from_semester", current.Number),
		zap.Int("to_semester", next.Number))

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload student")
	}
	return updated, nil
}

// Delete soft-deletes the student record and its login. Attendance and
// submission history is preserved.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	if err := s.users.Deactivate(ctx, detail.UserID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate student login")
	}
	return nil
}
