package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/acadsuite/campus-portal-api/internal/models"
	appErrors "github.com/acadsuite/campus-portal-api/pkg/errors"
)

type teacherRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.TeacherDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.TeacherDetail, error)
	Update(ctx context.Context, teacher *models.Teacher) error
	Deactivate(ctx context.Context, id string) error
}

type teacherUserRepository interface {
	UpdateProfile(ctx context.Context, id, fullName string, phone *string) error
	Deactivate(ctx context.Context, id string) error
}

type teacherAssignmentRepository interface {
	ListByTeacher(ctx context.Context, teacherID string) ([]models.SemesterAssignmentDetail, error)
	Exists(ctx context.Context, teacherID, semesterID, subjectName string) (bool, error)
	Create(ctx context.Context, assignment *models.SemesterAssignment) error
	Deactivate(ctx context.Context, teacherID, assignmentID string) error
}

type assignmentSemesterRepository interface {
	FindByID(ctx context.Context, id string) (*models.Semester, error)
}

type assignmentSubjectRepository interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

// UpdateTeacherRequest holds payload for updating a teacher record.
type UpdateTeacherRequest struct {
	FullName      string     `json:"full_name" validate:"required"`
	Phone         *string    `json:"phone"`
	Department    *string    `json:"department"`
	Designation   *string    `json:"designation"`
	Qualification *string    `json:"qualification"`
	JoiningDate   *time.Time `json:"joining_date"`
}

// AssignSemesterRequest binds a teacher to a semester and subject. SubjectID
// wins over SubjectName when both are given.
type AssignSemesterRequest struct {
	SemesterID  string  `json:"semester_id" validate:"required"`
	SubjectID   *string `json:"subject_id"`
	SubjectName string  `json:"subject_name"`
}

// TeacherService handles teacher record and assignment use-cases. Creation
// goes through the provisioning service, never here.
type TeacherService struct {
	repo        teacherRepository
	users       teacherUserRepository
	assignments teacherAssignmentRepository
	semesters   assignmentSemesterRepository
	subjects    assignmentSubjectRepository
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewTeacherService constructs the teacher service.
func NewTeacherService(repo teacherRepository, users teacherUserRepository, assignments teacherAssignmentRepository, semesters assignmentSemesterRepository, subjects assignmentSubjectRepository, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, users: users, assignments: assignments, semesters: semesters, subjects: subjects, validator: validate, logger: logger}
}

// List returns teachers and pagination metadata.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.TeacherDetail, *models.Pagination, error) {
	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	return teachers, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns one teacher with profile context.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.TeacherDetail, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

// Update modifies a teacher's profile and record fields. Profile fields live
// on the users table, the rest on the teachers table.
func (s *TeacherService) Update(ctx context.Context, id string, req UpdateTeacherRequest) (*models.TeacherDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	if err := s.users.UpdateProfile(ctx, detail.UserID, req.FullName, req.Phone); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher profile")
	}

	teacher := detail.Teacher
	teacher.Department = req.Department
	teacher.Designation = req.Designation
	teacher.Qualification = req.Qualification
	teacher.JoiningDate = req.JoiningDate
	if err := s.repo.Update(ctx, &teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}

	return s.Get(ctx, id)
}

// Delete soft-deletes the teacher record and its login. Assignments stay in
// place so historical records keep their teacher reference.
func (s *TeacherService) Delete(ctx context.Context, id string) error {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete teacher")
	}
	if err := s.users.Deactivate(ctx, detail.UserID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate teacher login")
	}
	return nil
}

// Assignments lists the teacher's active semester assignments.
func (s *TeacherService) Assignments(ctx context.Context, teacherID string) ([]models.SemesterAssignmentDetail, error) {
	if _, err := s.repo.FindByID(ctx, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	assignments, err := s.assignments.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, nil
}

// Assign binds a teacher to a semester and subject. A duplicate active
// binding is a conflict, not an upsert.
func (s *TeacherService) Assign(ctx context.Context, teacherID string, req AssignSemesterRequest) (*models.SemesterAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if _, err := s.repo.FindByID(ctx, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if _, err := s.semesters.FindByID(ctx, req.SemesterID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "semester not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify semester")
	}

	subjectName := req.SubjectName
	if req.SubjectID != nil {
		subject, err := s.subjects.FindByID(ctx, *req.SubjectID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify subject")
		}
		if subject.SemesterID != req.SemesterID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "subject does not belong to the semester")
		}
		subjectName = subject.Name
	}
	if subjectName == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject_id or subject_name is required")
	}

	exists, err := s.assignments.Exists(ctx, teacherID, req.SemesterID, subjectName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrAlreadyExists, "teacher already assigned to this semester and subject")
	}

	assignment := &models.SemesterAssignment{
		TeacherID:   teacherID,
		SemesterID:  req.SemesterID,
		SubjectID:   req.SubjectID,
		SubjectName: subjectName,
		Active:      true,
	}
	if err := s.assignments.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}
	return assignment, nil
}

// Unassign deactivates one assignment belonging to the teacher.
func (s *TeacherService) Unassign(ctx context.Context, teacherID, assignmentID string) error {
	if err := s.assignments.Deactivate(ctx, teacherID, assignmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove assignment")
	}
	return nil
}
