// Package localstore is the offline-first persistence substrate: a small
// key-value table in sqlite holding JSON blobs under fixed keys, the same
// shape the web client keeps in localStorage.
package localstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"campusmark/internal/model"
)

// Fixed storage keys. The _v3 suffix tracks the persisted schema
// generation of the collection blobs.
const (
	KeyRecords   = "campusmark_records_v3"
	KeyCourses   = "campusmark_courses_v3"
	KeySemesters = "campusmark_semesters_v3"
	KeyUser      = "campusmark_user"
)

// ErrNoUser is returned when no user profile has been persisted.
var ErrNoUser = errors.New("no user profile stored")

// Store persists JSON blobs under opaque string keys.
type Store struct {
	db *sql.DB
}

// Open creates or opens the store at path. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// One writer connection: sqlite locks per-connection, and :memory:
	// databases are per-connection too.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the raw blob under key, or ("", false) when absent.
func (s *Store) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set writes the blob under key, replacing any previous value.
func (s *Store) Set(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

// Delete removes key if present.
func (s *Store) Delete(key string) error {
	_, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key)
	return err
}

// Data reads the three collections. An unparseable blob is quarantined
// under a corrupt_ key for later inspection and read as empty, so a
// corrupted store never blocks startup.
func (s *Store) Data() model.Data {
	var d model.Data
	readInto(s, KeyRecords, &d.Records)
	readInto(s, KeyCourses, &d.Courses)
	readInto(s, KeySemesters, &d.Semesters)
	return d
}

func readInto[T any](s *Store, key string, out *[]T) {
	blob, ok, err := s.Get(key)
	if err != nil || !ok {
		return
	}
	if err := json.Unmarshal([]byte(blob), out); err != nil {
		log.Printf("storage corruption under %s, quarantining: %v", key, err)
		s.quarantine(key, blob)
		*out = nil
	}
}

// quarantine preserves a corrupted blob under a timestamped key before
// the live key is reset.
func (s *Store) quarantine(key, blob string) {
	qkey := fmt.Sprintf("corrupt_%s_%d", key, time.Now().UnixMilli())
	if err := s.Set(qkey, blob); err != nil {
		log.Printf("quarantine write failed for %s: %v", key, err)
	}
	_ = s.Delete(key)
}

// SaveCollections overwrites the three collection blobs. Errors are
// storage-substrate failures and propagate to the caller.
func (s *Store) SaveCollections(d model.Data) error {
	for _, kv := range []struct {
		key string
		val any
	}{
		{KeyRecords, d.Records},
		{KeyCourses, d.Courses},
		{KeySemesters, d.Semesters},
	} {
		blob, err := json.Marshal(kv.val)
		if err != nil {
			return err
		}
		if err := s.Set(kv.key, string(blob)); err != nil {
			return fmt.Errorf("persist %s: %w", kv.key, err)
		}
	}
	return nil
}

// User returns the stored user profile, or ErrNoUser.
func (s *Store) User() (model.UserProfile, error) {
	blob, ok, err := s.Get(KeyUser)
	if err != nil {
		return model.UserProfile{}, err
	}
	if !ok {
		return model.UserProfile{}, ErrNoUser
	}
	var u model.UserProfile
	if err := json.Unmarshal([]byte(blob), &u); err != nil {
		return model.UserProfile{}, err
	}
	return u, nil
}

// SaveUser persists the user profile.
func (s *Store) SaveUser(u model.UserProfile) error {
	blob, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return s.Set(KeyUser, string(blob))
}

// DeleteUser removes the stored profile (logout).
func (s *Store) DeleteUser() error {
	return s.Delete(KeyUser)
}

// Clear wipes every key, including backups and quarantined blobs.
func (s *Store) Clear() error {
	_, err := s.db.Exec(`DELETE FROM kv`)
	return err
}

// backupBlob is the snapshot format written by WriteBackup.
type backupBlob struct {
	Records   []model.Record   `json:"records"`
	Courses   []model.Course   `json:"courses"`
	Semesters []model.Semester `json:"semesters"`
	Timestamp int64            `json:"timestamp"`
}

// WriteBackup writes an immutable timestamped snapshot of the current
// collections. Backups are disaster-recovery artifacts only; nothing
// reads them back.
func (s *Store) WriteBackup(d model.Data, now time.Time) (string, error) {
	name := "backup_" + now.UTC().Format(time.RFC3339)
	blob, err := json.Marshal(backupBlob{
		Records:   d.Records,
		Courses:   d.Courses,
		Semesters: d.Semesters,
		Timestamp: now.UnixMilli(),
	})
	if err != nil {
		return "", err
	}
	if err := s.Set(name, string(blob)); err != nil {
		return "", err
	}
	return name, nil
}

// Backups lists the stored backup keys, oldest first.
func (s *Store) Backups() ([]string, error) {
	rows, err := s.db.Query(`SELECT key FROM kv WHERE key LIKE 'backup_%' ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
