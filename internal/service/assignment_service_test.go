package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/acadsuite/campus-portal-api/internal/models"
	appErrors "github.com/acadsuite/campus-portal-api/pkg/errors"
)

type mockAssignmentRepo struct {
	byID        *models.Assignment
	findErr     error
	list        []models.AssignmentDetail
	listTotal   int
	lastFilter  models.AssignmentFilter
	lastStudent string
	created     *models.Assignment
	createErr   error
	deactivated []string
}

func (m *mockAssignmentRepo) List(ctx context.Context, filter models.AssignmentFilter, forStudentID string) ([]models.AssignmentDetail, int, error) {
	m.lastFilter = filter
	m.lastStudent = forStudentID
	return m.list, m.listTotal, nil
}

func (m *mockAssignmentRepo) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.byID == nil {
		return nil, sql.ErrNoRows
	}
	return m.byID, nil
}

func (m *mockAssignmentRepo) Create(ctx context.Context, assignment *models.Assignment) error {
	if m.createErr != nil {
		return m.createErr
	}
	assignment.ID = "assignment-new"
	m.created = assignment
	return nil
}

func (m *mockAssignmentRepo) Update(ctx context.Context, assignment *models.Assignment) error {
	return nil
}

func (m *mockAssignmentRepo) Deactivate(ctx context.Context, id string) error {
	m.deactivated = append(m.deactivated, id)
	return nil
}

type mockSubmissionRepo struct {
	byID       *models.Submission
	byPair     *models.Submission
	upserted   *models.Submission
	upsertErr  error
	graded     bool
	gradeMarks int
	gradedBy   *string
}

func (m *mockSubmissionRepo) FindByAssignmentAndStudent(ctx context.Context, assignmentID, studentID string) (*models.Submission, error) {
	if m.byPair == nil {
		return nil, sql.ErrNoRows
	}
	return m.byPair, nil
}

func (m *mockSubmissionRepo) Upsert(ctx context.Context, submission *models.Submission) (*models.Submission, error) {
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	submission.ID = "submission-new"
	submission.SubmittedAt = time.Now().UTC()
	m.upserted = submission
	return submission, nil
}

func (m *mockSubmissionRepo) ListByAssignment(ctx context.Context, assignmentID string) ([]models.SubmissionDetail, error) {
	return nil, nil
}

func (m *mockSubmissionRepo) ListByStudent(ctx context.Context, studentID string) ([]models.Submission, error) {
	return nil, nil
}

func (m *mockSubmissionRepo) Grade(ctx context.Context, id string, marks int, feedback *string, gradedBy *string) error {
	m.graded = true
	m.gradeMarks = marks
	m.gradedBy = gradedBy
	return nil
}

func (m *mockSubmissionRepo) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	if m.byID == nil {
		return nil, sql.ErrNoRows
	}
	return m.byID, nil
}

type mockUploadStore struct {
	saved   []string
	deleted []string
	saveErr error
}

func (m *mockUploadStore) Save(filename string, data []byte) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	m.saved = append(m.saved, filename)
	return filename, nil
}

func (m *mockUploadStore) Delete(filename string) error {
	m.deleted = append(m.deleted, filename)
	return nil
}

func studentScope() models.Scope {
	return models.Scope{Role: models.RoleStudent, StudentID: "student-1", SemesterIDs: []string{"sem-1"}}
}

func openAssignment() *models.Assignment {
	return &models.Assignment{
		ID:         "assignment-1",
		TeacherID:  "teacher-1",
		SemesterID: "sem-1",
		Title:      "Graph homework",
		DueDate:    time.Now().UTC().Add(24 * time.Hour),
		MaxMarks:   100,
		Active:     true,
	}
}

func TestAssignmentListDerivesStatusForStudents(t *testing.T) {
	repo := &mockAssignmentRepo{
		listTotal: 2,
		list: []models.AssignmentDetail{
			{Assignment: models.Assignment{ID: "a1", DueDate: time.Now().UTC().Add(time.Hour)}, Submitted: false},
			{Assignment: models.Assignment{ID: "a2", DueDate: time.Now().UTC().Add(-time.Hour)}, Submitted: false},
		},
	}
	svc := NewAssignmentService(repo, &mockSubmissionRepo{}, &mockUploadStore{}, nil, zap.NewNop())

	assignments, _, err := svc.List(context.Background(), models.AssignmentFilter{Page: 1, PageSize: 20}, studentScope())
	require.NoError(t, err)

	assert.Equal(t, "student-1", repo.lastStudent)
	assert.Equal(t, []string{"sem-1"}, repo.lastFilter.SemesterIDs)
	require.Len(t, assignments, 2)
	assert.Equal(t, models.SubmissionPending, assignments[0].Status)
	assert.Equal(t, models.SubmissionPastDue, assignments[1].Status)
}

func TestAssignmentListTeacherPinnedToOwnRows(t *testing.T) {
	repo := &mockAssignmentRepo{}
	svc := NewAssignmentService(repo, &mockSubmissionRepo{}, &mockUploadStore{}, nil, zap.NewNop())

	_, _, err := svc.List(context.Background(), models.AssignmentFilter{TeacherID: "someone-else", Page: 1, PageSize: 20}, teacherScope())
	require.NoError(t, err)
	assert.Equal(t, "teacher-1", repo.lastFilter.TeacherID)
	assert.Empty(t, repo.lastStudent)
}

func TestAssignmentCreateOutsideScopeForbidden(t *testing.T) {
	svc := NewAssignmentService(&mockAssignmentRepo{}, &mockSubmissionRepo{}, &mockUploadStore{}, nil, zap.NewNop())

	_, err := svc.Create(context.Background(), CreateAssignmentRequest{
		SemesterID: "sem-9",
		Title:      "Graph homework",
		DueDate:    time.Now().UTC().Add(24 * time.Hour),
		MaxMarks:   100,
	}, teacherScope())
	assertErrCode(t, err, appErrors.ErrForbidden.Code)
}

func TestAssignmentCreateCleansUpAttachmentOnFailure(t *testing.T) {
	repo := &mockAssignmentRepo{createErr: assert.AnError}
	uploads := &mockUploadStore{}
	svc := NewAssignmentService(repo, &mockSubmissionRepo{}, uploads, nil, zap.NewNop())

	_, err := svc.Create(context.Background(), CreateAssignmentRequest{
		SemesterID: "sem-1",
		Title:      "Graph homework",
		DueDate:    time.Now().UTC().Add(24 * time.Hour),
		MaxMarks:   100,
		FileName:   "brief.pdf",
		FileData:   []byte("pdf-bytes"),
	}, teacherScope())
	require.Error(t, err)
	require.Len(t, uploads.saved, 1)
	assert.Equal(t, uploads.saved, uploads.deleted)
}

func TestSubmitStoresUpload(t *testing.T) {
	repo := &mockAssignmentRepo{byID: openAssignment()}
	submissions := &mockSubmissionRepo{}
	uploads := &mockUploadStore{}
	svc := NewAssignmentService(repo, submissions, uploads, nil, zap.NewNop())

	submission, err := svc.Submit(context.Background(), "assignment-1", SubmitAssignmentRequest{
		FileName: "answer.pdf",
		FileData: []byte("pdf-bytes"),
	}, studentScope())
	require.NoError(t, err)

	assert.Equal(t, "submission-new", submission.ID)
	assert.Equal(t, "student-1", submission.StudentID)
	require.Len(t, uploads.saved, 1)
	assert.Contains(t, uploads.saved[0], "submissions/student-1/")
}

func TestResubmitRemovesReplacedUpload(t *testing.T) {
	oldPath := "submissions/student-1/old-answer.pdf"
	submissions := &mockSubmissionRepo{byPair: &models.Submission{
		ID:           "submission-1",
		AssignmentID: "assignment-1",
		StudentID:    "student-1",
		FilePath:     &oldPath,
	}}
	uploads := &mockUploadStore{}
	svc := NewAssignmentService(&mockAssignmentRepo{byID: openAssignment()}, submissions, uploads, nil, zap.NewNop())

	_, err := svc.Submit(context.Background(), "assignment-1", SubmitAssignmentRequest{
		FileName: "answer-v2.pdf",
		FileData: []byte("pdf-bytes"),
	}, studentScope())

	require.NoError(t, err)
	require.Len(t, uploads.saved, 1)
	assert.Equal(t, []string{oldPath}, uploads.deleted)
}

func TestSubmitPastDueRejected(t *testing.T) {
	assignment := openAssignment()
	assignment.DueDate = time.Now().UTC().Add(-time.Minute)
	svc := NewAssignmentService(&mockAssignmentRepo{byID: assignment}, &mockSubmissionRepo{}, &mockUploadStore{}, nil, zap.NewNop())

	_, err := svc.Submit(context.Background(), "assignment-1", SubmitAssignmentRequest{
		FileName: "answer.pdf",
		FileData: []byte("pdf-bytes"),
	}, studentScope())
	assertErrCode(t, err, appErrors.ErrSubmissionClosed.Code)
}

func TestSubmitInactiveAssignmentLooksAbsent(t *testing.T) {
	assignment := openAssignment()
	assignment.Active = false
	svc := NewAssignmentService(&mockAssignmentRepo{byID: assignment}, &mockSubmissionRepo{}, &mockUploadStore{}, nil, zap.NewNop())

	_, err := svc.Submit(context.Background(), "assignment-1", SubmitAssignmentRequest{
		FileName: "answer.pdf",
		FileData: []byte("pdf-bytes"),
	}, studentScope())
	assertErrCode(t, err, appErrors.ErrNotFound.Code)
}

func TestSubmitCleansUpFileWhenUpsertFails(t *testing.T) {
	submissions := &mockSubmissionRepo{upsertErr: assert.AnError}
	uploads := &mockUploadStore{}
	svc := NewAssignmentService(&mockAssignmentRepo{byID: openAssignment()}, submissions, uploads, nil, zap.NewNop())

	_, err := svc.Submit(context.Background(), "assignment-1", SubmitAssignmentRequest{
		FileName: "answer.pdf",
		FileData: []byte("pdf-bytes"),
	}, studentScope())
	require.Error(t, err)
	assert.Equal(t, uploads.saved, uploads.deleted)
}

func TestGradeSubmissionCapsMarks(t *testing.T) {
	submissions := &mockSubmissionRepo{byID: &models.Submission{ID: "submission-1", AssignmentID: "assignment-1", StudentID: "student-1"}}
	svc := NewAssignmentService(&mockAssignmentRepo{byID: openAssignment()}, submissions, &mockUploadStore{}, nil, zap.NewNop())

	err := svc.GradeSubmission(context.Background(), "submission-1", GradeSubmissionRequest{Marks: 150}, teacherScope())
	assertErrCode(t, err, appErrors.ErrValidation.Code)
	assert.False(t, submissions.graded)

	err = svc.GradeSubmission(context.Background(), "submission-1", GradeSubmissionRequest{Marks: 85}, teacherScope())
	require.NoError(t, err)
	assert.True(t, submissions.graded)
	assert.Equal(t, 85, submissions.gradeMarks)
	require.NotNil(t, submissions.gradedBy)
	assert.Equal(t, "teacher-1", *submissions.gradedBy)
}

func TestGradeSubmissionByAdminLeavesGraderUnset(t *testing.T) {
	submissions := &mockSubmissionRepo{byID: &models.Submission{ID: "submission-1", AssignmentID: "assignment-1", StudentID: "student-1"}}
	svc := NewAssignmentService(&mockAssignmentRepo{byID: openAssignment()}, submissions, &mockUploadStore{}, nil, zap.NewNop())

	err := svc.GradeSubmission(context.Background(), "submission-1", GradeSubmissionRequest{Marks: 70}, models.Scope{Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.True(t, submissions.graded)
	assert.Nil(t, submissions.gradedBy)
}

func TestGradeSubmissionOtherTeacherForbidden(t *testing.T) {
	submissions := &mockSubmissionRepo{byID: &models.Submission{ID: "submission-1", AssignmentID: "assignment-1"}}
	assignment := openAssignment()
	assignment.TeacherID = "teacher-2"
	svc := NewAssignmentService(&mockAssignmentRepo{byID: assignment}, submissions, &mockUploadStore{}, nil, zap.NewNop())

	err := svc.GradeSubmission(context.Background(), "submission-1", GradeSubmissionRequest{Marks: 50}, teacherScope())
	assertErrCode(t, err, appErrors.ErrForbidden.Code)
}
