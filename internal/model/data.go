package model

// Data is a full snapshot of the three synced collections.
type Data struct {
	Records   []Record   `json:"records"`
	Courses   []Course   `json:"courses"`
	Semesters []Semester `json:"semesters"`
}

// Empty reports whether the snapshot holds nothing at all.
func (d Data) Empty() bool {
	return len(d.Records) == 0 && len(d.Courses) == 0 && len(d.Semesters) == 0
}
