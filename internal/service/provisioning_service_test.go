package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/acadsuite/campus-portal-api/internal/models"
	appErrors "github.com/acadsuite/campus-portal-api/pkg/errors"
)

type mockProvisioningUserRepo struct {
	existing        *models.User
	created         *models.User
	createErr       error
	deleted         []string
	reactivated     []string
	passwordHash    string
	mustChangeCalls []bool
	profileCalls    int
	auditLogs       []*models.AuditLog
}

func (m *mockProvisioningUserRepo) FindByEmailAny(ctx context.Context, email string) (*models.User, error) {
	if m.existing == nil {
		return nil, sql.ErrNoRows
	}
	return m.existing, nil
}

func (m *mockProvisioningUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	user.ID = "user-new"
	m.created = user
	return nil
}

func (m *mockProvisioningUserRepo) UpdateProfile(ctx context.Context, id, fullName string, phone *string) error {
	m.profileCalls++
	return nil
}

func (m *mockProvisioningUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	m.passwordHash = passwordHash
	return nil
}

func (m *mockProvisioningUserRepo) SetMustChangePassword(ctx context.Context, id string, value bool) error {
	m.mustChangeCalls = append(m.mustChangeCalls, value)
	return nil
}

func (m *mockProvisioningUserRepo) Reactivate(ctx context.Context, id string) error {
	m.reactivated = append(m.reactivated, id)
	return nil
}

func (m *mockProvisioningUserRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockProvisioningUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

type mockProvisioningTeacherRepo struct {
	byUserID   *models.Teacher
	byEmployee *models.Teacher
	created    *models.Teacher
	createErr  error
	revived    *models.Teacher
	deleted    []string
}

func (m *mockProvisioningTeacherRepo) FindByUserID(ctx context.Context, userID string) (*models.Teacher, error) {
	if m.byUserID == nil {
		return nil, sql.ErrNoRows
	}
	return m.byUserID, nil
}

func (m *mockProvisioningTeacherRepo) FindByEmployeeIDAny(ctx context.Context, employeeID string) (*models.Teacher, error) {
	if m.byEmployee == nil {
		return nil, sql.ErrNoRows
	}
	return m.byEmployee, nil
}

func (m *mockProvisioningTeacherRepo) Create(ctx context.Context, teacher *models.Teacher) error {
	if m.createErr != nil {
		return m.createErr
	}
	teacher.ID = "teacher-new"
	m.created = teacher
	return nil
}

func (m *mockProvisioningTeacherRepo) Update(ctx context.Context, teacher *models.Teacher) error {
	return nil
}

func (m *mockProvisioningTeacherRepo) Reactivate(ctx context.Context, teacher *models.Teacher) error {
	m.revived = teacher
	return nil
}

func (m *mockProvisioningTeacherRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type mockProvisioningAssignmentRepo struct {
	created   []models.SemesterAssignment
	createErr error
}

func (m *mockProvisioningAssignmentRepo) Create(ctx context.Context, assignment *models.SemesterAssignment) error {
	if m.createErr != nil {
		return m.createErr
	}
	assignment.ID = "binding-new"
	m.created = append(m.created, *assignment)
	return nil
}

type mockProvisioningStudentRepo struct {
	byUserID  *models.Student
	byRoll    *models.Student
	created   *models.Student
	createErr error
	revived   *models.Student
}

func (m *mockProvisioningStudentRepo) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	if m.byUserID == nil {
		return nil, sql.ErrNoRows
	}
	return m.byUserID, nil
}

func (m *mockProvisioningStudentRepo) FindByRollNumberAny(ctx context.Context, rollNumber, courseID string) (*models.Student, error) {
	if m.byRoll == nil {
		return nil, sql.ErrNoRows
	}
	return m.byRoll, nil
}

func (m *mockProvisioningStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if m.createErr != nil {
		return m.createErr
	}
	student.ID = "student-new"
	m.created = student
	return nil
}

func (m *mockProvisioningStudentRepo) Reactivate(ctx context.Context, student *models.Student) error {
	m.revived = student
	return nil
}

type mockProvisioningCourseRepo struct {
	course *models.Course
}

func (m *mockProvisioningCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if m.course == nil {
		return nil, sql.ErrNoRows
	}
	return m.course, nil
}

type mockProvisioningSemesterRepo struct {
	belongs bool
}

func (m *mockProvisioningSemesterRepo) BelongsToCourse(ctx context.Context, semesterID, courseID string) (bool, error) {
	return m.belongs, nil
}

func newProvisioningService(users *mockProvisioningUserRepo, teachers *mockProvisioningTeacherRepo, students *mockProvisioningStudentRepo, courses *mockProvisioningCourseRepo, semesters *mockProvisioningSemesterRepo) *ProvisioningService {
	return NewProvisioningService(users, teachers, &mockProvisioningAssignmentRepo{}, students, courses, semesters, "", nil, zap.NewNop())
}

func assertErrCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
}

func TestProvisioningCreatesTeacherWithDefaultPassword(t *testing.T) {
	users := &mockProvisioningUserRepo{}
	teachers := &mockProvisioningTeacherRepo{}
	svc := newProvisioningService(users, teachers, &mockProvisioningStudentRepo{}, &mockProvisioningCourseRepo{}, &mockProvisioningSemesterRepo{})

	result, err := svc.CreateUser(context.Background(), ProvisionUserRequest{
		Email:      "jane@campus.edu",
		FullName:   "Jane Roe",
		Role:       models.RoleTeacher,
		EmployeeID: "EMP-42",
	}, "admin-1")
	require.NoError(t, err)

	assert.False(t, result.Reactivated)
	assert.Equal(t, "teacher-new", result.TeacherID)
	require.NotNil(t, users.created)
	assert.True(t, users.created.MustChangePassword)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users.created.PasswordHash), []byte("Welcome@123")))
	require.NotNil(t, teachers.created)
	assert.Equal(t, "user-new", teachers.created.UserID)
	require.Len(t, users.auditLogs, 1)
	assert.Equal(t, models.AuditActionProvision, users.auditLogs[0].Action)
}

func TestProvisioningCreatesTeacherWithInitialAssignments(t *testing.T) {
	users := &mockProvisioningUserRepo{}
	teachers := &mockProvisioningTeacherRepo{}
	bindings := &mockProvisioningAssignmentRepo{}
	svc := NewProvisioningService(users, teachers, bindings, &mockProvisioningStudentRepo{}, &mockProvisioningCourseRepo{}, &mockProvisioningSemesterRepo{}, "", nil, zap.NewNop())

	dbms := "sub-dbms"
	result, err := svc.CreateUser(context.Background(), ProvisionUserRequest{
		Email:      "jane@campus.edu",
		FullName:   "Jane Roe",
		Role:       models.RoleTeacher,
		EmployeeID: "EMP-42",
		SemesterAssignments: []AssignSemesterRequest{
			{SemesterID: "sem-3", SubjectID: &dbms, SubjectName: "DBMS"},
			{SemesterID: "sem-4", SubjectName: "Operating Systems"},
		},
	}, "admin-1")
	require.NoError(t, err)

	assert.Equal(t, "teacher-new", result.TeacherID)
	require.Len(t, bindings.created, 2)
	assert.Equal(t, "teacher-new", bindings.created[0].TeacherID)
	assert.Equal(t, "sem-3", bindings.created[0].SemesterID)
	assert.Equal(t, "DBMS", bindings.created[0].SubjectName)
	assert.True(t, bindings.created[1].Active)
	assert.Nil(t, bindings.created[1].SubjectID)
}

func TestProvisioningCompensatesWhenAssignmentFails(t *testing.T) {
	users := &mockProvisioningUserRepo{}
	teachers := &mockProvisioningTeacherRepo{}
	bindings := &mockProvisioningAssignmentRepo{createErr: assert.AnError}
	svc := NewProvisioningService(users, teachers, bindings, &mockProvisioningStudentRepo{}, &mockProvisioningCourseRepo{}, &mockProvisioningSemesterRepo{}, "", nil, zap.NewNop())

	_, err := svc.CreateUser(context.Background(), ProvisionUserRequest{
		Email:      "jane@campus.edu",
		FullName:   "Jane Roe",
		Role:       models.RoleTeacher,
		EmployeeID: "EMP-42",
		SemesterAssignments: []AssignSemesterRequest{
			{SemesterID: "sem-3", SubjectName: "DBMS"},
		},
	}, "admin-1")

	require.Error(t, err)
	assert.Equal(t, []string{"teacher-new"}, teachers.deleted)
	assert.Equal(t, []string{"user-new"}, users.deleted)
}

func TestProvisioningRejectsActiveEmail(t *testing.T) {
	users := &mockProvisioningUserRepo{existing: &models.User{ID: "user-1", Email: "jane@campus.edu", Role: models.RoleTeacher, Active: true}}
	svc := newProvisioningService(users, &mockProvisioningTeacherRepo{}, &mockProvisioningStudentRepo{}, &mockProvisioningCourseRepo{}, &mockProvisioningSemesterRepo{})

	_, err := svc.CreateUser(context.Background(), ProvisionUserRequest{
		Email:      "jane@campus.edu",
		FullName:   "Jane Roe",
		Role:       models.RoleTeacher,
		EmployeeID: "EMP-42",
	}, "admin-1")
	assertErrCode(t, err, appErrors.ErrAlreadyExists.Code)
}

func TestProvisioningRejectsRoleChangeOnReuse(t *testing.T) {
	users := &mockProvisioningUserRepo{existing: &models.User{ID: "user-1", Email: "jane@campus.edu", Role: models.RoleStudent, Active: false}}
	svc := newProvisioningService(users, &mockProvisioningTeacherRepo{}, &mockProvisioningStudentRepo{}, &mockProvisioningCourseRepo{}, &mockProvisioningSemesterRepo{})

	_, err := svc.CreateUser(context.Background(), ProvisionUserRequest{
		Email:      "jane@campus.edu",
		FullName:   "Jane Roe",
		Role:       models.RoleTeacher,
		EmployeeID: "EMP-42",
	}, "admin-1")
	assertErrCode(t, err, appErrors.ErrValidation.Code)
}

func TestProvisioningReactivatesInactiveAccount(t *testing.T) {
	users := &mockProvisioningUserRepo{existing: &models.User{ID: "user-1", Email: "jane@campus.edu", Role: models.RoleTeacher, Active: false}}
	teachers := &mockProvisioningTeacherRepo{byUserID: &models.Teacher{ID: "teacher-1", UserID: "user-1", EmployeeID: "EMP-42"}}
	svc := newProvisioningService(users, teachers, &mockProvisioningStudentRepo{}, &mockProvisioningCourseRepo{}, &mockProvisioningSemesterRepo{})

	result, err := svc.CreateUser(context.Background(), ProvisionUserRequest{
		Email:      "jane@campus.edu",
		FullName:   "Jane Roe",
		Role:       models.RoleTeacher,
		EmployeeID: "EMP-42",
	}, "admin-1")
	require.NoError(t, err)

	assert.True(t, result.Reactivated)
	assert.Equal(t, "teacher-1", result.TeacherID)
	assert.Equal(t, []string{"user-1"}, users.reactivated)
	require.NotNil(t, teachers.revived)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users.passwordHash), []byte("Welcome@123")))
	// The password reset clears the forced-change flag; reuse must restore it.
	assert.Equal(t, []bool{true}, users.mustChangeCalls)
}

func TestProvisioningCompensatesWhenRoleRecordFails(t *testing.T) {
	users := &mockProvisioningUserRepo{}
	teachers := &mockProvisioningTeacherRepo{createErr: assert.AnError}
	svc := newProvisioningService(users, teachers, &mockProvisioningStudentRepo{}, &mockProvisioningCourseRepo{}, &mockProvisioningSemesterRepo{})

	_, err := svc.CreateUser(context.Background(), ProvisionUserRequest{
		Email:      "jane@campus.edu",
		FullName:   "Jane Roe",
		Role:       models.RoleTeacher,
		EmployeeID: "EMP-42",
	}, "admin-1")
	require.Error(t, err)
	assert.Equal(t, []string{"user-new"}, users.deleted)
}

func TestProvisioningRejectsDuplicateEmployeeID(t *testing.T) {
	teachers := &mockProvisioningTeacherRepo{byEmployee: &models.Teacher{ID: "teacher-1", EmployeeID: "EMP-42", Active: true}}
	svc := newProvisioningService(&mockProvisioningUserRepo{}, teachers, &mockProvisioningStudentRepo{}, &mockProvisioningCourseRepo{}, &mockProvisioningSemesterRepo{})

	_, err := svc.CreateUser(context.Background(), ProvisionUserRequest{
		Email:      "jane@campus.edu",
		FullName:   "Jane Roe",
		Role:       models.RoleTeacher,
		EmployeeID: "EMP-42",
	}, "admin-1")
	assertErrCode(t, err, appErrors.ErrDuplicateKey.Code)
}

func TestProvisioningStudentRequiresSemesterInCourse(t *testing.T) {
	courses := &mockProvisioningCourseRepo{course: &models.Course{ID: "course-1", Active: true}}
	semesters := &mockProvisioningSemesterRepo{belongs: false}
	svc := newProvisioningService(&mockProvisioningUserRepo{}, &mockProvisioningTeacherRepo{}, &mockProvisioningStudentRepo{}, courses, semesters)

	semID := "sem-9"
	_, err := svc.CreateUser(context.Background(), ProvisionUserRequest{
		Email:             "sam@campus.edu",
		FullName:          "Sam Lee",
		Role:              models.RoleStudent,
		RollNumber:        "CS-001",
		CourseID:          "course-1",
		CurrentSemesterID: &semID,
		EnrollmentYear:    2026,
	}, "admin-1")
	assertErrCode(t, err, appErrors.ErrValidation.Code)
}

func TestProvisioningCreatesStudent(t *testing.T) {
	users := &mockProvisioningUserRepo{}
	students := &mockProvisioningStudentRepo{}
	courses := &mockProvisioningCourseRepo{course: &models.Course{ID: "course-1", Active: true}}
	semesters := &mockProvisioningSemesterRepo{belongs: true}
	svc := newProvisioningService(users, &mockProvisioningTeacherRepo{}, students, courses, semesters)

	semID := "sem-1"
	result, err := svc.CreateUser(context.Background(), ProvisionUserRequest{
		Email:             "sam@campus.edu",
		FullName:          "Sam Lee",
		Role:              models.RoleStudent,
		RollNumber:        "CS-001",
		CourseID:          "course-1",
		CurrentSemesterID: &semID,
		EnrollmentYear:    2026,
	}, "admin-1")
	require.NoError(t, err)

	assert.Equal(t, "student-new", result.StudentID)
	require.NotNil(t, students.created)
	assert.Equal(t, "CS-001", students.created.RollNumber)
	assert.Equal(t, &semID, students.created.CurrentSemesterID)
}
