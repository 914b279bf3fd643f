package server

import (
	"context"
	"database/sql"
	"fmt"

	"campusmark/internal/model"
)

// Repository persists user collections in Postgres. Every document is
// partitioned by user_id; upserts are atomic per item via ON CONFLICT
// on the identity filter.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the three collection tables when absent.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS attendance_records (
			user_id    TEXT NOT NULL,
			date       TEXT NOT NULL,
			course_id  TEXT NOT NULL,
			status     TEXT NOT NULL,
			note       TEXT NOT NULL DEFAULT '',
			updated_at BIGINT NOT NULL,
			synced_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, date, course_id)
		);
		CREATE TABLE IF NOT EXISTS courses (
			user_id     TEXT NOT NULL,
			id          TEXT NOT NULL,
			name        TEXT NOT NULL,
			color       TEXT NOT NULL DEFAULT '',
			semester_id TEXT NOT NULL,
			code        TEXT NOT NULL DEFAULT '',
			updated_at  BIGINT NOT NULL,
			synced_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, id)
		);
		CREATE TABLE IF NOT EXISTS semesters (
			user_id    TEXT NOT NULL,
			id         TEXT NOT NULL,
			name       TEXT NOT NULL,
			updated_at BIGINT NOT NULL,
			synced_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, id)
		);
	`)
	return err
}

// UpsertRecords writes attendance records for a user, keyed by
// (user_id, date, course_id). Returns the number of items written.
func (r *Repository) UpsertRecords(ctx context.Context, userID string, records []model.Record) (int, error) {
	for _, rec := range records {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO attendance_records (user_id, date, course_id, status, note, updated_at, synced_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())
			ON CONFLICT (user_id, date, course_id) DO UPDATE SET
				status = EXCLUDED.status,
				note = EXCLUDED.note,
				updated_at = EXCLUDED.updated_at,
				synced_at = NOW()
		`, userID, rec.Date, rec.CourseID, rec.Status, rec.Note, rec.UpdatedAt)
		if err != nil {
			return 0, fmt.Errorf("upsert record %s: %w", rec.Key(), err)
		}
	}
	return len(records), nil
}

// UpsertCourses writes courses for a user, keyed by (user_id, id).
func (r *Repository) UpsertCourses(ctx context.Context, userID string, courses []model.Course) (int, error) {
	for _, c := range courses {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO courses (user_id, id, name, color, semester_id, code, updated_at, synced_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			ON CONFLICT (user_id, id) DO UPDATE SET
				name = EXCLUDED.name,
				color = EXCLUDED.color,
				semester_id = EXCLUDED.semester_id,
				code = EXCLUDED.code,
				updated_at = EXCLUDED.updated_at,
				synced_at = NOW()
		`, userID, c.ID, c.Name, c.Color, c.SemesterID, c.Code, c.UpdatedAt)
		if err != nil {
			return 0, fmt.Errorf("upsert course %s: %w", c.ID, err)
		}
	}
	return len(courses), nil
}

// UpsertSemesters writes semesters for a user, keyed by (user_id, id).
func (r *Repository) UpsertSemesters(ctx context.Context, userID string, semesters []model.Semester) (int, error) {
	for _, s := range semesters {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO semesters (user_id, id, name, updated_at, synced_at)
			VALUES ($1, $2, $3, $4, NOW())
			ON CONFLICT (user_id, id) DO UPDATE SET
				name = EXCLUDED.name,
				updated_at = EXCLUDED.updated_at,
				synced_at = NOW()
		`, userID, s.ID, s.Name, s.UpdatedAt)
		if err != nil {
			return 0, fmt.Errorf("upsert semester %s: %w", s.ID, err)
		}
	}
	return len(semesters), nil
}

// FetchUserData returns the full snapshot for one user. Everything the
// server hands back is synced by definition.
func (r *Repository) FetchUserData(ctx context.Context, userID string) (model.Data, error) {
	var d model.Data

	rows, err := r.db.QueryContext(ctx, `
		SELECT date, course_id, status, note, updated_at
		FROM attendance_records WHERE user_id = $1
	`, userID)
	if err != nil {
		return model.Data{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var rec model.Record
		if err := rows.Scan(&rec.Date, &rec.CourseID, &rec.Status, &rec.Note, &rec.UpdatedAt); err != nil {
			return model.Data{}, err
		}
		rec.IsSynced = true
		d.Records = append(d.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return model.Data{}, err
	}

	courseRows, err := r.db.QueryContext(ctx, `
		SELECT id, name, color, semester_id, code, updated_at
		FROM courses WHERE user_id = $1
	`, userID)
	if err != nil {
		return model.Data{}, err
	}
	defer courseRows.Close()
	for courseRows.Next() {
		var c model.Course
		if err := courseRows.Scan(&c.ID, &c.Name, &c.Color, &c.SemesterID, &c.Code, &c.UpdatedAt); err != nil {
			return model.Data{}, err
		}
		c.IsSynced = true
		d.Courses = append(d.Courses, c)
	}
	if err := courseRows.Err(); err != nil {
		return model.Data{}, err
	}

	semRows, err := r.db.QueryContext(ctx, `
		SELECT id, name, updated_at
		FROM semesters WHERE user_id = $1
	`, userID)
	if err != nil {
		return model.Data{}, err
	}
	defer semRows.Close()
	for semRows.Next() {
		var s model.Semester
		if err := semRows.Scan(&s.ID, &s.Name, &s.UpdatedAt); err != nil {
			return model.Data{}, err
		}
		s.IsSynced = true
		d.Semesters = append(d.Semesters, s)
	}
	return d, semRows.Err()
}

// DeleteUserData removes every document belonging to one user.
func (r *Repository) DeleteUserData(ctx context.Context, userID string) error {
	for _, table := range []string{"attendance_records", "courses", "semesters"} {
		if _, err := r.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	return nil
}
