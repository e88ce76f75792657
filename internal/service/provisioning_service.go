package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/acadsuite/campus-portal-api/internal/models"
	appErrors "github.com/acadsuite/campus-portal-api/pkg/errors"
)

type provisioningUserRepository interface {
	FindByEmailAny(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, id, fullName string, phone *string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetMustChangePassword(ctx context.Context, id string, value bool) error
	Reactivate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type provisioningTeacherRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.Teacher, error)
	FindByEmployeeIDAny(ctx context.Context, employeeID string) (*models.Teacher, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	Reactivate(ctx context.Context, teacher *models.Teacher) error
	Delete(ctx context.Context, id string) error
}

type provisioningAssignmentRepository interface {
	Create(ctx context.Context, assignment *models.SemesterAssignment) error
}

type provisioningStudentRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
	FindByRollNumberAny(ctx context.Context, rollNumber, courseID string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Reactivate(ctx context.Context, student *models.Student) error
}

type provisioningCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type provisioningSemesterRepository interface {
	BelongsToCourse(ctx context.Context, semesterID, courseID string) (bool, error)
}

// ProvisionUserRequest creates a login plus its role record in one call.
type ProvisionUserRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	FullName string          `json:"full_name" validate:"required"`
	Phone    *string         `json:"phone"`
	Role     models.UserRole `json:"role" validate:"required"`

	// Teacher fields.
	EmployeeID          string                  `json:"employee_id"`
	Department          *string                 `json:"department"`
	Designation         *string                 `json:"designation"`
	Qualification       *string                 `json:"qualification"`
	JoiningDate         *time.Time              `json:"joining_date"`
	SemesterAssignments []AssignSemesterRequest `json:"semester_assignments" validate:"omitempty,dive"`

	// Student fields.
	RollNumber        string  `json:"roll_number"`
	CourseID          string  `json:"course_id"`
	CurrentSemesterID *string `json:"current_semester_id"`
	EnrollmentYear    int     `json:"enrollment_year"`
	GuardianName      *string `json:"guardian_name"`
	GuardianPhone     *string `json:"guardian_phone"`
	Address           *string `json:"address"`
}

// ProvisionUserResult reports the outcome of a provisioning call.
type ProvisionUserResult struct {
	User        models.UserInfo `json:"user"`
	Reactivated bool            `json:"reactivated"`
	TeacherID   string          `json:"teacher_id,omitempty"`
	StudentID   string          `json:"student_id,omitempty"`
}

// ProvisioningService creates users together with their role records. New
// accounts get the configured default password and must change it on first
// login. Re-using the email of a soft-deleted account reactivates it instead
// of failing; a half-created account is rolled back with a compensating
// delete when the role record cannot be written.
type ProvisioningService struct {
	users           provisioningUserRepository
	teachers        provisioningTeacherRepository
	assignments     provisioningAssignmentRepository
	students        provisioningStudentRepository
	courses         provisioningCourseRepository
	semesters       provisioningSemesterRepository
	defaultPassword string
	validator       *validator.Validate
	logger          *zap.Logger
}

// NewProvisioningService constructs the provisioning service.
func NewProvisioningService(users provisioningUserRepository, teachers provisioningTeacherRepository, assignments provisioningAssignmentRepository, students provisioningStudentRepository, courses provisioningCourseRepository, semesters provisioningSemesterRepository, defaultPassword string, validate *validator.Validate, logger *zap.Logger) *ProvisioningService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultPassword == "" {
		defaultPassword = "Welcome@123"
	}
	return &ProvisioningService{
		users:           users,
		teachers:        teachers,
		assignments:     assignments,
		students:        students,
		courses:         courses,
		semesters:       semesters,
		defaultPassword: defaultPassword,
		validator:       validate,
		logger:          logger,
	}
}

// CreateUser provisions a login and role record. Only admins reach this.
func (s *ProvisioningService) CreateUser(ctx context.Context, req ProvisionUserRequest, actorID string) (*ProvisionUserResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid provisioning payload")
	}
	if !req.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}
	if err := s.validateRoleFields(ctx, req); err != nil {
		return nil, err
	}

	existing, err := s.users.FindByEmailAny(ctx, req.Email)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}
	if existing != nil {
		if existing.Active {
			return nil, appErrors.Clone(appErrors.ErrAlreadyExists, "email already in use")
		}
		if existing.Role != req.Role {
			return nil, appErrors.Clone(appErrors.ErrValidation, "email previously held a different role")
		}
		return s.reactivate(ctx, existing, req, actorID)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(s.defaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash default password")
	}

	user := &models.User{
		Email:              req.Email,
		PasswordHash:       string(hash),
		FullName:           req.FullName,
		Phone:              req.Phone,
		Role:               req.Role,
		MustChangePassword: true,
		Active:             true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	result := &ProvisionUserResult{
		User: models.UserInfo{ID: user.ID, Email: user.Email, FullName: user.FullName, Role: user.Role},
	}

	switch req.Role {
	case models.RoleTeacher:
		teacher := &models.Teacher{
			UserID:        user.ID,
			EmployeeID:    req.EmployeeID,
			Department:    req.Department,
			Designation:   req.Designation,
			Qualification: req.Qualification,
			JoiningDate:   req.JoiningDate,
			Active:        true,
		}
		if err := s.teachers.Create(ctx, teacher); err != nil {
			s.compensate(ctx, user.ID)
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher record")
		}
		for _, binding := range req.SemesterAssignments {
			assignment := &models.SemesterAssignment{
				TeacherID:   teacher.ID,
				SemesterID:  binding.SemesterID,
				SubjectID:   binding.SubjectID,
				SubjectName: binding.SubjectName,
				Active:      true,
			}
			if err := s.assignments.Create(ctx, assignment); err != nil {
				s.compensateTeacher(ctx, user.ID, teacher.ID)
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create semester assignment")
			}
		}
		result.TeacherID = teacher.ID

	case models.RoleStudent:
		student := &models.Student{
			UserID:            user.ID,
			RollNumber:        req.RollNumber,
			CourseID:          req.CourseID,
			CurrentSemesterID: req.CurrentSemesterID,
			EnrollmentYear:    req.EnrollmentYear,
			GuardianName:      req.GuardianName,
			GuardianPhone:     req.GuardianPhone,
			Address:           req.Address,
			Active:            true,
		}
		if err := s.students.Create(ctx, student); err != nil {
			s.compensate(ctx, user.ID)
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student record")
		}
		result.StudentID = student.ID
	}

	s.audit(ctx, actorID, user.ID, req.Role, false)
	return result, nil
}

// reactivate revives a soft-deleted account with refreshed fields, the
// default password, and a forced password change.
func (s *ProvisioningService) reactivate(ctx context.Context, user *models.User, req ProvisionUserRequest, actorID string) (*ProvisionUserResult, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(s.defaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash default password")
	}
	if err := s.users.Reactivate(ctx, user.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reactivate user")
	}
	if err := s.users.UpdateProfile(ctx, user.ID, req.FullName, req.Phone); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to refresh profile")
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset password")
	}
	// UpdatePassword clears must_change_password, so flip it back on.
	if err := s.users.SetMustChangePassword(ctx, user.ID, true); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to flag password change")
	}

	result := &ProvisionUserResult{
		User:        models.UserInfo{ID: user.ID, Email: user.Email, FullName: req.FullName, Role: user.Role},
		Reactivated: true,
	}

	switch req.Role {
	case models.RoleTeacher:
		teacher, err := s.teachers.FindByUserID(ctx, user.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				teacher = &models.Teacher{UserID: user.ID, EmployeeID: req.EmployeeID, Department: req.Department, Designation: req.Designation, Qualification: req.Qualification, JoiningDate: req.JoiningDate, Active: true}
				if err := s.teachers.Create(ctx, teacher); err != nil {
					return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher record")
				}
				result.TeacherID = teacher.ID
				break
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher record")
		}
		teacher.Department = req.Department
		teacher.Designation = req.Designation
		teacher.Qualification = req.Qualification
		teacher.JoiningDate = req.JoiningDate
		if err := s.teachers.Reactivate(ctx, teacher); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reactivate teacher record")
		}
		result.TeacherID = teacher.ID

	case models.RoleStudent:
		student, err := s.students.FindByUserID(ctx, user.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				student = &models.Student{UserID: user.ID, RollNumber: req.RollNumber, CourseID: req.CourseID, CurrentSemesterID: req.CurrentSemesterID, EnrollmentYear: req.EnrollmentYear, GuardianName: req.GuardianName, GuardianPhone: req.GuardianPhone, Address: req.Address, Active: true}
				if err := s.students.Create(ctx, student); err != nil {
					return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student record")
				}
				result.StudentID = student.ID
				break
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student record")
		}
		student.CurrentSemesterID = req.CurrentSemesterID
		student.EnrollmentYear = req.EnrollmentYear
		student.GuardianName = req.GuardianName
		student.GuardianPhone = req.GuardianPhone
		student.Address = req.Address
		if err := s.students.Reactivate(ctx, student); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reactivate student record")
		}
		result.StudentID = student.ID
	}

	s.logger.Info("reactivated account on email reuse",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)))
	s.audit(ctx, actorID, user.ID, req.Role, true)
	return result, nil
}

func (s *ProvisioningService) validateRoleFields(ctx context.Context, req ProvisionUserRequest) error {
	switch req.Role {
	case models.RoleTeacher:
		if req.EmployeeID == "" {
			return appErrors.Clone(appErrors.ErrValidation, "employee_id is required for teachers")
		}
		existing, err := s.teachers.FindByEmployeeIDAny(ctx, req.EmployeeID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check employee id")
		}
		if existing != nil && existing.Active {
			return appErrors.Clone(appErrors.ErrDuplicateKey, "employee_id already in use")
		}
		for _, binding := range req.SemesterAssignments {
			if binding.SubjectID == nil && binding.SubjectName == "" {
				return appErrors.Clone(appErrors.ErrValidation, "subject_id or subject_name is required for assignments")
			}
		}

	case models.RoleStudent:
		if req.RollNumber == "" || req.CourseID == "" {
			return appErrors.Clone(appErrors.ErrValidation, "roll_number and course_id are required for students")
		}
		if req.EnrollmentYear < 1900 {
			return appErrors.Clone(appErrors.ErrValidation, "enrollment_year is required for students")
		}
		course, err := s.courses.FindByID(ctx, req.CourseID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "course not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify course")
		}
		if !course.Active {
			return appErrors.Clone(appErrors.ErrValidation, "course is inactive")
		}
		if req.CurrentSemesterID != nil {
			ok, err := s.semesters.BelongsToCourse(ctx, *req.CurrentSemesterID, req.CourseID)
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify semester")
			}
			if !ok {
				return appErrors.Clone(appErrors.ErrValidation, "semester does not belong to the course")
			}
		}
		existing, err := s.students.FindByRollNumberAny(ctx, req.RollNumber, req.CourseID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check roll number")
		}
		if existing != nil && existing.Active {
			return appErrors.Clone(appErrors.ErrDuplicateKey, "roll_number already in use for this course")
		}
	}
	return nil
}

// compensate removes a half-provisioned user so the email is not burned.
func (s *ProvisioningService) compensate(ctx context.Context, userID string) {
	if err := s.users.Delete(ctx, userID); err != nil {
		s.logger.Error("failed to roll back half-provisioned user",
			zap.String("user_id", userID), zap.Error(err))
	}
}

// compensateTeacher unwinds in reverse order, teacher row first, then login.
func (s *ProvisioningService) compensateTeacher(ctx context.Context, userID, teacherID string) {
	if err := s.teachers.Delete(ctx, teacherID); err != nil {
		s.logger.Error("failed to roll back half-provisioned teacher",
			zap.String("teacher_id", teacherID), zap.Error(err))
	}
	s.compensate(ctx, userID)
}

func (s *ProvisioningService) audit(ctx context.Context, actorID, subjectID string, role models.UserRole, reactivated bool) {
	payload, _ := json.Marshal(map[string]interface{}{"role": role, "reactivated": reactivated})
	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionProvision,
		Resource:   "users",
		ResourceID: &subjectID,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("failed to record provisioning audit log", zap.Error(err))
	}
}
