// Package merge reconciles local and remote collection snapshots with a
// last-writer-wins rule over a logical timestamp.
package merge

import "campusmark/internal/model"

// ByUpdatedAt merges two collections of the same entity kind into one.
// Identity comes from the key extractor, so each kind chooses its own:
// records key on (date, courseId), courses and semesters on id.
//
// Local items are folded in first, then remote; an incoming item replaces
// the stored one when its updatedAt is greater or equal, so equal
// timestamps deterministically keep the remote side. Every identity in
// either input appears exactly once in the output, in first-insertion
// order.
func ByUpdatedAt[T any](local, remote []T, key func(T) string, updatedAt func(T) int64) []T {
	idx := make(map[string]int, len(local)+len(remote))
	out := make([]T, 0, len(local)+len(remote))

	for _, src := range [][]T{local, remote} {
		for _, item := range src {
			k := key(item)
			if i, ok := idx[k]; ok {
				if updatedAt(item) >= updatedAt(out[i]) {
					out[i] = item
				}
				continue
			}
			idx[k] = len(out)
			out = append(out, item)
		}
	}
	return out
}

// Records merges attendance records keyed by (date, courseId).
func Records(local, remote []model.Record) []model.Record {
	return ByUpdatedAt(local, remote,
		func(r model.Record) string { return r.Key() },
		func(r model.Record) int64 { return r.UpdatedAt })
}

// Courses merges courses keyed by id.
func Courses(local, remote []model.Course) []model.Course {
	return ByUpdatedAt(local, remote,
		func(c model.Course) string { return c.ID },
		func(c model.Course) int64 { return c.UpdatedAt })
}

// Semesters merges semesters keyed by id.
func Semesters(local, remote []model.Semester) []model.Semester {
	return ByUpdatedAt(local, remote,
		func(s model.Semester) string { return s.ID },
		func(s model.Semester) int64 { return s.UpdatedAt })
}
