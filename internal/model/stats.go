package model

import "time"

// Stats summarizes one course's attendance for a single month.
type Stats struct {
	TotalDays            int     `json:"totalDays"`
	PresentCount         int     `json:"presentCount"`
	AbsentCount          int     `json:"absentCount"`
	AttendancePercentage float64 `json:"attendancePercentage"`
}

// ComputeStats computes monthly statistics for one course, for the month
// containing now. The percentage denominator is the number of marked days
// in that month, not the number of days in the month; with nothing marked
// the percentage is 0.
func ComputeStats(records []Record, courseID string, now time.Time) Stats {
	year, month, _ := now.Date()

	var present, absent, marked int
	for _, r := range records {
		if r.CourseID != courseID {
			continue
		}
		d, err := time.Parse("2006-01-02", r.Date)
		if err != nil {
			continue
		}
		if d.Year() != year || d.Month() != month {
			continue
		}
		marked++
		switch r.Status {
		case StatusPresent:
			present++
		case StatusAbsent:
			absent++
		}
	}

	stats := Stats{
		// Day 0 of the next month is the last day of this one.
		TotalDays:    time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day(),
		PresentCount: present,
		AbsentCount:  absent,
	}
	if marked > 0 {
		stats.AttendancePercentage = float64(present) / float64(marked) * 100
	}
	return stats
}
