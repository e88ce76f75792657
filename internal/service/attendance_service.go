package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/acadsuite/campus-portal-api/internal/models"
	appErrors "github.com/acadsuite/campus-portal-api/pkg/errors"
	"github.com/acadsuite/campus-portal-api/pkg/export"
)

type attendanceRepository interface {
	ReplaceRoster(ctx context.Context, key models.RosterKey, teacherID *string, entries []models.RosterEntry) (int, error)
	Roster(ctx context.Context, key models.RosterKey) ([]models.AttendanceRecord, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error)
	StudentSummary(ctx context.Context, studentID string) (*models.AttendanceSummary, error)
}

type attendanceSemesterRepository interface {
	FindByID(ctx context.Context, id string) (*models.Semester, error)
}

type attendanceSubjectRepository interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

// SaveRosterRequest replaces the whole session keyed by semester, subject and
// date. An empty entries slice clears the session.
type SaveRosterRequest struct {
	SemesterID string               `json:"semester_id" validate:"required"`
	SubjectID  string               `json:"subject_id" validate:"required"`
	Date       time.Time            `json:"date" validate:"required"`
	Entries    []models.RosterEntry `json:"entries" validate:"dive"`
}

// SaveRosterResult reports how many records the save produced.
type SaveRosterResult struct {
	SemesterID string    `json:"semester_id"`
	SubjectID  string    `json:"subject_id"`
	Date       time.Time `json:"date"`
	Records    int       `json:"records"`
}

// AttendanceService handles roster recording and history use-cases.
type AttendanceService struct {
	repo      attendanceRepository
	semesters attendanceSemesterRepository
	subjects  attendanceSubjectRepository
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(repo attendanceRepository, semesters attendanceSemesterRepository, subjects attendanceSubjectRepository, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		repo:      repo,
		semesters: semesters,
		subjects:  subjects,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
	}
}

// SaveRoster validates the session and replaces it atomically. Teachers can
// only record inside their assigned semesters and subjects.
func (s *AttendanceService) SaveRoster(ctx context.Context, req SaveRosterRequest, scope models.Scope) (*SaveRosterResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid roster payload")
	}
	if !scope.AllowsSemester(req.SemesterID) || !scope.AllowsSubject(req.SubjectID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "semester or subject is outside your assignments")
	}
	for _, entry := range req.Entries {
		if !entry.Status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid attendance status %q", entry.Status))
		}
	}

	if _, err := s.semesters.FindByID(ctx, req.SemesterID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "semester not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify semester")
	}
	if _, err := s.subjects.FindByID(ctx, req.SubjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify subject")
	}

	key := models.RosterKey{SemesterID: req.SemesterID, SubjectID: req.SubjectID, Date: truncateToDay(req.Date)}
	var teacherID *string
	if scope.TeacherID != "" {
		teacherID = &scope.TeacherID
	}
	if len(req.Entries) == 0 {
		s.logger.Warn("saving empty roster clears the session",
			zap.String("semester_id", key.SemesterID),
			zap.String("subject_id", key.SubjectID),
			zap.Time("date", key.Date))
	}
	count, err := s.repo.ReplaceRoster(ctx, key, teacherID, req.Entries)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save roster")
	}
	return &SaveRosterResult{SemesterID: key.SemesterID, SubjectID: key.SubjectID, Date: key.Date, Records: count}, nil
}

// Roster loads a saved session so the recording form can be pre-populated.
func (s *AttendanceService) Roster(ctx context.Context, semesterID, subjectID string, date time.Time, scope models.Scope) ([]models.AttendanceRecord, error) {
	if !scope.AllowsSemester(semesterID) || !scope.AllowsSubject(subjectID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "semester or subject is outside your assignments")
	}
	records, err := s.repo.Roster(ctx, models.RosterKey{SemesterID: semesterID, SubjectID: subjectID, Date: truncateToDay(date)})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return records, nil
}

// List returns attendance history narrowed to the caller's scope. Students
// are pinned to their own records regardless of the filter.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter, scope models.Scope) ([]models.AttendanceRecord, *models.Pagination, error) {
	switch scope.Role {
	case models.RoleStudent:
		if scope.StudentID == "" {
			return []models.AttendanceRecord{}, paginationFor(filter.Page, filter.PageSize, 0), nil
		}
		filter.StudentID = scope.StudentID
	case models.RoleTeacher:
		if len(scope.SemesterIDs) == 0 {
			return []models.AttendanceRecord{}, paginationFor(filter.Page, filter.PageSize, 0), nil
		}
		filter.SemesterIDs = scope.SemesterIDs
	}
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return records, paginationFor(filter.Page, filter.PageSize, total), nil
}

// StudentSummary aggregates one student's attendance. Students may only see
// their own numbers.
func (s *AttendanceService) StudentSummary(ctx context.Context, studentID string, scope models.Scope) (*models.AttendanceSummary, error) {
	if scope.Role == models.RoleStudent && scope.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students may only view their own summary")
	}
	summary, err := s.repo.StudentSummary(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance summary")
	}
	return summary, nil
}

// ExportRegister renders the attendance register for one semester/subject and
// date range as CSV or PDF bytes.
func (s *AttendanceService) ExportRegister(ctx context.Context, filter models.AttendanceFilter, format string, scope models.Scope) ([]byte, string, error) {
	if !scope.AllowsSemester(filter.SemesterID) || !scope.AllowsSubject(filter.SubjectID) {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "semester or subject is outside your assignments")
	}
	filter.Page = 1
	filter.PageSize = 200
	var rows []map[string]string
	for {
		records, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load register")
		}
		for _, record := range records {
			remarks := ""
			if record.Remarks != nil {
				remarks = *record.Remarks
			}
			rows = append(rows, map[string]string{
				"Date":        record.Date.Format("2006-01-02"),
				"Roll Number": record.RollNumber,
				"Student":     record.StudentName,
				"Status":      string(record.Status),
				"Remarks":     remarks,
			})
		}
		if filter.Page*filter.PageSize >= total || len(records) == 0 {
			break
		}
		filter.Page++
	}

	register := export.Register{
		Columns: []string{"Date", "Roll Number", "Student", "Status", "Remarks"},
		Rows:    rows,
	}
	switch format {
	case "csv":
		content, err := s.csv.Render(register)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv register")
		}
		return content, "text/csv", nil
	case "pdf":
		content, err := s.pdf.Render(register)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf register")
		}
		return content, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
