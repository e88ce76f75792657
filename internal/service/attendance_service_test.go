package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/acadsuite/campus-portal-api/internal/models"
	appErrors "github.com/acadsuite/campus-portal-api/pkg/errors"
)

type mockAttendanceRepo struct {
	replacedKey     models.RosterKey
	replacedTeacher *string
	replacedEntries []models.RosterEntry
	replaceErr      error
	listRecords     []models.AttendanceRecord
	listTotal       int
	listFilters     []models.AttendanceFilter
	summary         *models.AttendanceSummary
}

func (m *mockAttendanceRepo) ReplaceRoster(ctx context.Context, key models.RosterKey, teacherID *string, entries []models.RosterEntry) (int, error) {
	if m.replaceErr != nil {
		return 0, m.replaceErr
	}
	m.replacedKey = key
	m.replacedTeacher = teacherID
	m.replacedEntries = entries
	return len(entries), nil
}

func (m *mockAttendanceRepo) Roster(ctx context.Context, key models.RosterKey) ([]models.AttendanceRecord, error) {
	return m.listRecords, nil
}

func (m *mockAttendanceRepo) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	m.listFilters = append(m.listFilters, filter)
	return m.listRecords, m.listTotal, nil
}

func (m *mockAttendanceRepo) StudentSummary(ctx context.Context, studentID string) (*models.AttendanceSummary, error) {
	return m.summary, nil
}

type mockSemesterFinder struct {
	semester *models.Semester
	err      error
}

func (m *mockSemesterFinder) FindByID(ctx context.Context, id string) (*models.Semester, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.semester, nil
}

type mockSubjectFinder struct {
	subject *models.Subject
	err     error
}

func (m *mockSubjectFinder) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.subject, nil
}

func teacherScope() models.Scope {
	return models.Scope{
		Role:        models.RoleTeacher,
		TeacherID:   "teacher-1",
		SemesterIDs: []string{"sem-1"},
		SubjectIDs:  []string{"sub-1"},
	}
}

func newAttendanceTestService(repo *mockAttendanceRepo) *AttendanceService {
	semesters := &mockSemesterFinder{semester: &models.Semester{ID: "sem-1", CourseID: "course-1", Number: 1}}
	subjects := &mockSubjectFinder{subject: &models.Subject{ID: "sub-1", SemesterID: "sem-1", Name: "Algorithms"}}
	return NewAttendanceService(repo, semesters, subjects, nil, zap.NewNop())
}

func TestSaveRosterReplacesSession(t *testing.T) {
	repo := &mockAttendanceRepo{}
	svc := newAttendanceTestService(repo)

	result, err := svc.SaveRoster(context.Background(), SaveRosterRequest{
		SemesterID: "sem-1",
		SubjectID:  "sub-1",
		Date:       time.Date(2026, 3, 9, 14, 30, 0, 0, time.UTC),
		Entries: []models.RosterEntry{
			{StudentID: "student-1", Status: models.AttendancePresent},
			{StudentID: "student-2", Status: models.AttendanceAbsent},
		},
	}, teacherScope())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Records)
	// Session keys are day-granular regardless of the submitted clock time.
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), repo.replacedKey.Date)
	require.NotNil(t, repo.replacedTeacher)
	assert.Equal(t, "teacher-1", *repo.replacedTeacher)
}

func TestSaveRosterEmptyEntriesClearsSession(t *testing.T) {
	repo := &mockAttendanceRepo{}
	svc := newAttendanceTestService(repo)

	result, err := svc.SaveRoster(context.Background(), SaveRosterRequest{
		SemesterID: "sem-1",
		SubjectID:  "sub-1",
		Date:       time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
	}, teacherScope())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Records)
	assert.Empty(t, repo.replacedEntries)
}

func TestSaveRosterOutsideScopeForbidden(t *testing.T) {
	svc := newAttendanceTestService(&mockAttendanceRepo{})

	_, err := svc.SaveRoster(context.Background(), SaveRosterRequest{
		SemesterID: "sem-9",
		SubjectID:  "sub-1",
		Date:       time.Now(),
		Entries:    []models.RosterEntry{{StudentID: "student-1", Status: models.AttendancePresent}},
	}, teacherScope())
	assertErrCode(t, err, appErrors.ErrForbidden.Code)
}

func TestSaveRosterRejectsUnknownStatus(t *testing.T) {
	svc := newAttendanceTestService(&mockAttendanceRepo{})

	_, err := svc.SaveRoster(context.Background(), SaveRosterRequest{
		SemesterID: "sem-1",
		SubjectID:  "sub-1",
		Date:       time.Now(),
		Entries:    []models.RosterEntry{{StudentID: "student-1", Status: "sleeping"}},
	}, teacherScope())
	assertErrCode(t, err, appErrors.ErrValidation.Code)
}

func TestListPinsStudentsToTheirOwnRecords(t *testing.T) {
	repo := &mockAttendanceRepo{listTotal: 1, listRecords: []models.AttendanceRecord{{}}}
	svc := newAttendanceTestService(repo)

	scope := models.Scope{Role: models.RoleStudent, StudentID: "student-7"}
	_, _, err := svc.List(context.Background(), models.AttendanceFilter{StudentID: "student-1", Page: 1, PageSize: 50}, scope)
	require.NoError(t, err)
	require.Len(t, repo.listFilters, 1)
	assert.Equal(t, "student-7", repo.listFilters[0].StudentID)
}

func TestListEmptyTeacherScopeReturnsEmptyPage(t *testing.T) {
	repo := &mockAttendanceRepo{}
	svc := newAttendanceTestService(repo)

	records, pagination, err := svc.List(context.Background(), models.AttendanceFilter{Page: 1, PageSize: 50}, models.Scope{Role: models.RoleTeacher})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 0, pagination.TotalCount)
	assert.Empty(t, repo.listFilters)
}

func TestStudentSummarySelfOnly(t *testing.T) {
	repo := &mockAttendanceRepo{summary: &models.AttendanceSummary{Total: 10, Present: 8, Percent: 80}}
	svc := newAttendanceTestService(repo)

	scope := models.Scope{Role: models.RoleStudent, StudentID: "student-1"}
	summary, err := svc.StudentSummary(context.Background(), "student-1", scope)
	require.NoError(t, err)
	assert.Equal(t, 10, summary.Total)

	_, err = svc.StudentSummary(context.Background(), "student-2", scope)
	assertErrCode(t, err, appErrors.ErrForbidden.Code)
}

func TestExportRegisterRendersCSV(t *testing.T) {
	remarks := "left early"
	repo := &mockAttendanceRepo{
		listTotal: 1,
		listRecords: []models.AttendanceRecord{{
			Attendance: models.Attendance{
				Date:    time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
				Status:  models.AttendanceLate,
				Remarks: &remarks,
			},
			StudentName: "Sam Lee",
			RollNumber:  "CS-001",
		}},
	}
	svc := newAttendanceTestService(repo)

	content, contentType, err := svc.ExportRegister(context.Background(), models.AttendanceFilter{SemesterID: "sem-1", SubjectID: "sub-1"}, "csv", teacherScope())
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	body := string(content)
	assert.True(t, strings.Contains(body, "2026-03-09"))
	assert.True(t, strings.Contains(body, "Sam Lee"))
	assert.True(t, strings.Contains(body, "late"))
}

func TestExportRegisterRejectsUnknownFormat(t *testing.T) {
	svc := newAttendanceTestService(&mockAttendanceRepo{})

	_, _, err := svc.ExportRegister(context.Background(), models.AttendanceFilter{SemesterID: "sem-1", SubjectID: "sub-1"}, "xlsx", teacherScope())
	assertErrCode(t, err, appErrors.ErrValidation.Code)
}
