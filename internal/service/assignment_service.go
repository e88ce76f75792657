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
	"github.com/acadsuite/campus-portal-api/pkg/storage"
)

type assignmentRepository interface {
	List(ctx context.Context, filter models.AssignmentFilter, forStudentID string) ([]models.AssignmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, assignment *models.Assignment) error
	Deactivate(ctx context.Context, id string) error
}

type submissionRepository interface {
	FindByAssignmentAndStudent(ctx context.Context, assignmentID, studentID string) (*models.Submission, error)
	Upsert(ctx context.Context, submission *models.Submission) (*models.Submission, error)
	ListByAssignment(ctx context.Context, assignmentID string) ([]models.SubmissionDetail, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Submission, error)
	Grade(ctx context.Context, id string, marks int, feedback *string, gradedBy *string) error
	FindByID(ctx context.Context, id string) (*models.Submission, error)
}

type uploadStore interface {
	Save(filename string, data []byte) (string, error)
	Delete(filename string) error
}

// CreateAssignmentRequest holds payload for publishing an assignment.
type CreateAssignmentRequest struct {
	SemesterID  string    `json:"semester_id" validate:"required"`
	SubjectID   *string   `json:"subject_id"`
	Title       string    `json:"title" validate:"required"`
	Description *string   `json:"description"`
	DueDate     time.Time `json:"due_date" validate:"required"`
	MaxMarks    int       `json:"max_marks" validate:"required,min=1,max=1000"`
	FileName    string    `json:"-"`
	FileData    []byte    `json:"-"`
}

// UpdateAssignmentRequest holds payload for editing an assignment.
type UpdateAssignmentRequest struct {
	Title       string    `json:"title" validate:"required"`
	Description *string   `json:"description"`
	DueDate     time.Time `json:"due_date" validate:"required"`
	MaxMarks    int       `json:"max_marks" validate:"required,min=1,max=1000"`
}

// SubmitAssignmentRequest carries a student's upload.
type SubmitAssignmentRequest struct {
	FileName string `validate:"required"`
	FileData []byte `validate:"required"`
}

// GradeSubmissionRequest records marks and feedback.
type GradeSubmissionRequest struct {
	Marks    int     `json:"marks" validate:"min=0"`
	Feedback *string `json:"feedback"`
}

// AssignmentService handles assignment and submission use-cases.
type AssignmentService struct {
	repo        assignmentRepository
	submissions submissionRepository
	uploads     uploadStore
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAssignmentService constructs the assignment service.
func NewAssignmentService(repo assignmentRepository, submissions submissionRepository, uploads uploadStore, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{repo: repo, submissions: submissions, uploads: uploads, validator: validate, logger: logger}
}

// List returns assignments narrowed to the caller's scope. For students each
// row carries a derived status computed against the due date and their own
// submission.
func (s *AssignmentService) List(ctx context.Context, filter models.AssignmentFilter, scope models.Scope) ([]models.AssignmentDetail, *models.Pagination, error) {
	forStudentID := ""
	switch scope.Role {
	case models.RoleStudent:
		if scope.StudentID == "" || len(scope.SemesterIDs) == 0 {
			return []models.AssignmentDetail{}, paginationFor(filter.Page, filter.PageSize, 0), nil
		}
		forStudentID = scope.StudentID
		filter.SemesterIDs = scope.SemesterIDs
	case models.RoleTeacher:
		if scope.TeacherID == "" {
			return []models.AssignmentDetail{}, paginationFor(filter.Page, filter.PageSize, 0), nil
		}
		filter.TeacherID = scope.TeacherID
	}

	assignments, total, err := s.repo.List(ctx, filter, forStudentID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	if forStudentID != "" {
		now := time.Now().UTC()
		for i := range assignments {
			assignments[i].Status = models.DeriveSubmissionStatus(assignments[i].DueDate, assignments[i].Submitted, now)
		}
	}
	return assignments, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns one assignment.
func (s *AssignmentService) Get(ctx context.Context, id string) (*models.Assignment, error) {
	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return assignment, nil
}

// Create publishes an assignment inside the teacher's assigned scope.
func (s *AssignmentService) Create(ctx context.Context, req CreateAssignmentRequest, scope models.Scope) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if scope.TeacherID == "" && !scope.Unrestricted() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers publish assignments")
	}
	subjectID := ""
	if req.SubjectID != nil {
		subjectID = *req.SubjectID
	}
	if !scope.AllowsSemester(req.SemesterID) || !scope.AllowsSubject(subjectID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "semester or subject is outside your assignments")
	}

	assignment := &models.Assignment{
		TeacherID:   scope.TeacherID,
		SemesterID:  req.SemesterID,
		SubjectID:   req.SubjectID,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		MaxMarks:    req.MaxMarks,
		Active:      true,
	}

	if len(req.FileData) > 0 {
		relPath := storage.ObjectPath("assignments", scope.TeacherID, req.FileName)
		stored, err := s.uploads.Save(relPath, req.FileData)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store attachment")
		}
		assignment.FilePath = &stored
		assignment.FileName = &req.FileName
	}

	if err := s.repo.Create(ctx, assignment); err != nil {
		if assignment.FilePath != nil {
			if cleanupErr := s.uploads.Delete(*assignment.FilePath); cleanupErr != nil {
				s.logger.Warn("failed to remove orphaned attachment", zap.Error(cleanupErr))
			}
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}
	return assignment, nil
}

// Update edits an assignment owned by the caller.
func (s *AssignmentService) Update(ctx context.Context, id string, req UpdateAssignmentRequest, scope models.Scope) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	assignment, err := s.ownedAssignment(ctx, id, scope)
	if err != nil {
		return nil, err
	}
	assignment.Title = req.Title
	assignment.Description = req.Description
	assignment.DueDate = req.DueDate
	assignment.MaxMarks = req.MaxMarks
	if err := s.repo.Update(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}
	return assignment, nil
}

// Delete soft-deletes an assignment owned by the caller. Submissions stay
// intact.
func (s *AssignmentService) Delete(ctx context.Context, id string, scope models.Scope) error {
	if _, err := s.ownedAssignment(ctx, id, scope); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}
	return nil
}

// Submit stores a student's upload for an assignment. Submissions after the
// due date are rejected; re-submission before the deadline replaces the
// prior upload and voids any grade on it.
func (s *AssignmentService) Submit(ctx context.Context, assignmentID string, req SubmitAssignmentRequest, scope models.Scope) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}
	if scope.StudentID == "" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students submit assignments")
	}

	assignment, err := s.repo.FindByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	if !assignment.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}
	if !scope.AllowsSemester(assignment.SemesterID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "assignment is outside your semester")
	}
	if time.Now().UTC().After(assignment.DueDate) {
		return nil, appErrors.Clone(appErrors.ErrSubmissionClosed, "assignment is past due")
	}

	prior, err := s.submissions.FindByAssignmentAndStudent(ctx, assignmentID, scope.StudentID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check prior submission")
	}

	relPath := storage.ObjectPath("submissions", scope.StudentID, req.FileName)
	stored, err := s.uploads.Save(relPath, req.FileData)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store submission file")
	}

	submission, err := s.submissions.Upsert(ctx, &models.Submission{
		AssignmentID: assignmentID,
		StudentID:    scope.StudentID,
		FilePath:     &stored,
		FileName:     &req.FileName,
	})
	if err != nil {
		if cleanupErr := s.uploads.Delete(stored); cleanupErr != nil {
			s.logger.Warn("failed to remove orphaned submission file", zap.Error(cleanupErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save submission")
	}
	if prior != nil && prior.FilePath != nil && *prior.FilePath != stored {
		if err := s.uploads.Delete(*prior.FilePath); err != nil {
			s.logger.Warn("failed to remove replaced submission file",
				zap.String("path", *prior.FilePath), zap.Error(err))
		}
	}
	return submission, nil
}

// Submissions lists all uploads for an assignment owned by the caller.
func (s *AssignmentService) Submissions(ctx context.Context, assignmentID string, scope models.Scope) ([]models.SubmissionDetail, error) {
	if _, err := s.ownedAssignment(ctx, assignmentID, scope); err != nil {
		return nil, err
	}
	submissions, err := s.submissions.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return submissions, nil
}

// MySubmissions lists the calling student's uploads.
func (s *AssignmentService) MySubmissions(ctx context.Context, scope models.Scope) ([]models.Submission, error) {
	if scope.StudentID == "" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students have submissions")
	}
	submissions, err := s.submissions.ListByStudent(ctx, scope.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return submissions, nil
}

// GradeSubmission records marks for one submission. Marks cannot exceed the
// assignment's maximum.
func (s *AssignmentService) GradeSubmission(ctx context.Context, submissionID string, req GradeSubmissionRequest, scope models.Scope) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	submission, err := s.submissions.FindByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	assignment, err := s.ownedAssignment(ctx, submission.AssignmentID, scope)
	if err != nil {
		return err
	}
	if req.Marks > assignment.MaxMarks {
		return appErrors.Clone(appErrors.ErrValidation, "marks exceed the assignment maximum")
	}
	// Admins carry no teacher record, so their grades leave graded_by unset.
	var gradedBy *string
	if scope.TeacherID != "" {
		gradedBy = &scope.TeacherID
	}
	if err := s.submissions.Grade(ctx, submissionID, req.Marks, req.Feedback, gradedBy); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to grade submission")
	}
	return nil
}

func (s *AssignmentService) ownedAssignment(ctx context.Context, id string, scope models.Scope) (*models.Assignment, error) {
	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	if !scope.Unrestricted() && assignment.TeacherID != scope.TeacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "assignment belongs to another teacher")
	}
	return assignment, nil
}
