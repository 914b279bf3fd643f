package model

import (
	"time"

	"github.com/google/uuid"
)

// Status is a per-day attendance mark.
type Status string

const (
	StatusPresent Status = "PRESENT"
	StatusAbsent  Status = "ABSENT"
	StatusNone    Status = "NONE"
)

// Record is one attendance mark for a (date, course) slot.
// Identity is the (Date, CourseID) pair; there is no synthetic id.
type Record struct {
	Date      string `json:"date"` // YYYY-MM-DD
	Status    Status `json:"status"`
	CourseID  string `json:"courseId"`
	Note      string `json:"note,omitempty"`
	UpdatedAt int64  `json:"updatedAt"`
	IsSynced  bool   `json:"isSynced"`
}

// Key returns the merge identity for a record.
func (r Record) Key() string { return r.Date + "|" + r.CourseID }

// Course groups records under a semester.
type Course struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Color      string `json:"color"`
	SemesterID string `json:"semesterId"`
	Code       string `json:"code,omitempty"`
	UpdatedAt  int64  `json:"updatedAt"`
	IsSynced   bool   `json:"isSynced"`
}

// Semester is the top-level grouping. Never deleted through the app.
type Semester struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UpdatedAt int64  `json:"updatedAt"`
	IsSynced  bool   `json:"isSynced"`
}

// UserProfile identifies the signed-in user. Email doubles as the
// remote partition key. Persisted locally only, never synced.
type UserProfile struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Avatar  string `json:"avatar,omitempty"`
	IDToken string `json:"idToken,omitempty"`
}

// CourseColors is the palette cycled through as courses are added.
var CourseColors = []string{
	"#818cf8", "#34d399", "#fbbf24", "#f87171", "#22d3ee",
	"#f472b6", "#a78bfa", "#38bdf8", "#fb923c", "#4ade80",
}

// NewSemester creates a semester with a fresh id and write timestamp.
func NewSemester(name string, now time.Time) Semester {
	return Semester{
		ID:        uuid.NewString(),
		Name:      name,
		UpdatedAt: now.UnixMilli(),
	}
}

// NewCourse creates a course under a semester. ordinal is the current
// course count and picks the palette color.
func NewCourse(name, code, semesterID string, ordinal int, now time.Time) Course {
	return Course{
		ID:         uuid.NewString(),
		Name:       name,
		Code:       code,
		SemesterID: semesterID,
		Color:      CourseColors[ordinal%len(CourseColors)],
		UpdatedAt:  now.UnixMilli(),
	}
}

// Mark sets the status for a (date, course) slot, replacing any existing
// record for that slot. A NONE status removes the record instead of
// storing it. Returns a new slice; the input is not mutated.
func Mark(records []Record, date, courseID string, status Status, now time.Time) []Record {
	out := make([]Record, 0, len(records)+1)
	for _, r := range records {
		if r.Date == date && r.CourseID == courseID {
			continue
		}
		out = append(out, r)
	}
	if status == StatusNone {
		return out
	}
	return append(out, Record{
		Date:      date,
		Status:    status,
		CourseID:  courseID,
		UpdatedAt: now.UnixMilli(),
	})
}

// Unmark removes the record for a (date, course) slot.
func Unmark(records []Record, date, courseID string, now time.Time) []Record {
	return Mark(records, date, courseID, StatusNone, now)
}

// DeleteCourse removes a course and cascades to every record that
// references it. Other courses' records are untouched.
func DeleteCourse(courses []Course, records []Record, id string) ([]Course, []Record) {
	outCourses := make([]Course, 0, len(courses))
	for _, c := range courses {
		if c.ID != id {
			outCourses = append(outCourses, c)
		}
	}
	outRecords := make([]Record, 0, len(records))
	for _, r := range records {
		if r.CourseID != id {
			outRecords = append(outRecords, r)
		}
	}
	return outCourses, outRecords
}
