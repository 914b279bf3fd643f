package model

import (
	"testing"
	"time"
)

var testNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

func TestMarkReplacesSlot(t *testing.T) {
	records := Mark(nil, "2024-03-01", "c1", StatusPresent, testNow)
	records = Mark(records, "2024-03-01", "c1", StatusAbsent, testNow.Add(time.Minute))

	if len(records) != 1 {
		t.Fatalf("expected one record per (date, course) slot, got %d", len(records))
	}
	if records[0].Status != StatusAbsent {
		t.Errorf("second mark must replace the first, got %s", records[0].Status)
	}
	if records[0].IsSynced {
		t.Error("fresh marks must start unsynced")
	}
}

func TestMarkNoneRemovesRecord(t *testing.T) {
	records := Mark(nil, "2024-03-01", "c1", StatusPresent, testNow)
	records = Mark(records, "2024-03-01", "c1", StatusNone, testNow)

	if len(records) != 0 {
		t.Fatalf("NONE must remove the record, not store it; got %d records", len(records))
	}
}

func TestUnmarkLeavesOtherSlots(t *testing.T) {
	records := Mark(nil, "2024-03-01", "c1", StatusPresent, testNow)
	records = Mark(records, "2024-03-02", "c1", StatusPresent, testNow)
	records = Mark(records, "2024-03-01", "c2", StatusAbsent, testNow)

	records = Unmark(records, "2024-03-01", "c1", testNow)

	if len(records) != 2 {
		t.Fatalf("expected 2 records after unmark, got %d", len(records))
	}
	for _, r := range records {
		if r.Date == "2024-03-01" && r.CourseID == "c1" {
			t.Errorf("unmarked slot still present: %+v", r)
		}
	}
}

func TestDeleteCourseCascades(t *testing.T) {
	courses := []Course{
		{ID: "c1", Name: "Physics"},
		{ID: "c2", Name: "Chemistry"},
	}
	records := []Record{
		{Date: "2024-03-01", CourseID: "c1", Status: StatusPresent},
		{Date: "2024-03-02", CourseID: "c1", Status: StatusAbsent},
		{Date: "2024-03-01", CourseID: "c2", Status: StatusPresent},
	}

	courses, records = DeleteCourse(courses, records, "c1")

	if len(courses) != 1 || courses[0].ID != "c2" {
		t.Errorf("expected only c2 to remain, got %+v", courses)
	}
	if len(records) != 1 || records[0].CourseID != "c2" {
		t.Errorf("c1 records must cascade away, leaving c2's: %+v", records)
	}
}

func TestNewCourseCyclesPalette(t *testing.T) {
	first := NewCourse("A", "", "s1", 0, testNow)
	wrapped := NewCourse("B", "", "s1", len(CourseColors), testNow)

	if first.Color != CourseColors[0] || wrapped.Color != CourseColors[0] {
		t.Errorf("palette must cycle: got %s and %s", first.Color, wrapped.Color)
	}
	if first.ID == wrapped.ID {
		t.Error("course ids must be unique per creation")
	}
	if first.UpdatedAt != testNow.UnixMilli() {
		t.Errorf("updatedAt must be the creation time in ms, got %d", first.UpdatedAt)
	}
}

func TestNewSemester(t *testing.T) {
	sem := NewSemester("Fall 2024", testNow)
	if sem.ID == "" || sem.Name != "Fall 2024" || sem.IsSynced {
		t.Errorf("unexpected semester: %+v", sem)
	}
}
