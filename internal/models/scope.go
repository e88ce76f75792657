package models

// Scope is the subset of rows a caller's role permits them to read or write.
// Admin scope is unrestricted; a caller with no matching role record gets an
// empty (non-nil) scope and downstream listings come back empty rather than
// erroring.
type Scope struct {
	Role        UserRole
	UserID      string
	TeacherID   string
	StudentID   string
	CourseID    string
	SemesterIDs []string
	SubjectIDs  []string
}

// Unrestricted reports whether the scope bypasses row filtering.
func (s Scope) Unrestricted() bool {
	return s.Role == RoleAdmin
}

// AllowsSemester reports whether the scope covers the given semester.
func (s Scope) AllowsSemester(semesterID string) bool {
	if s.Unrestricted() {
		return true
	}
	for _, id := range s.SemesterIDs {
		if id == semesterID {
			return true
		}
	}
	return false
}

// AllowsSubject reports whether the scope covers the given subject. An empty
// subject ID (semester-wide records) falls back to the semester check alone.
func (s Scope) AllowsSubject(subjectID string) bool {
	if s.Unrestricted() || subjectID == "" {
		return true
	}
	for _, id := range s.SubjectIDs {
		if id == subjectID {
			return true
		}
	}
	return false
}
