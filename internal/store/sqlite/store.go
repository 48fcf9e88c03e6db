// Package sqlite is the sqlite-backed Store, the default for single-node
// deployments and for store-level tests (":memory:").
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/just-aakash/cyberknights/internal/store"
)

// Store persists records in a sqlite database.
type Store struct {
	db *sql.DB
}

// New opens (and creates, if needed) the database at path and migrates
// the schema.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && !isMemory(path) {
		_ = os.MkdirAll(dir, 0o755)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func isMemory(path string) bool { return path == ":memory:" }

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS credentials (
		username      TEXT PRIMARY KEY,
		password_hash TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS students (
		roll_no    TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		photo_a    TEXT NOT NULL DEFAULT '',
		photo_b    TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS lectures (
		id      TEXT PRIMARY KEY,
		name    TEXT NOT NULL,
		room    TEXT NOT NULL DEFAULT '',
		section TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS attendance_marks (
		lecture_id TEXT NOT NULL,
		day        TEXT NOT NULL,
		student_id TEXT NOT NULL,
		marked_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (lecture_id, day, student_id)
	);
	`
	_, err := db.Exec(schema)
	return err
}

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) GetCredential(ctx context.Context, username string) (store.Credential, error) {
	var cred store.Credential
	row := s.db.QueryRowContext(ctx,
		`SELECT username, password_hash FROM credentials WHERE username = ?`, username)
	if err := row.Scan(&cred.Username, &cred.PasswordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Credential{}, fmt.Errorf("credential %q: %w", username, store.ErrNotFound)
		}
		return store.Credential{}, err
	}
	return cred, nil
}

func (s *Store) PutCredential(ctx context.Context, cred store.Credential) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (username, password_hash)
		VALUES (?, ?)
		ON CONFLICT (username) DO UPDATE SET password_hash = excluded.password_hash
	`, cred.Username, cred.PasswordHash)
	return err
}

func (s *Store) CreateStudent(ctx context.Context, st store.Student) error {
	photoA, photoB := splitPhotos(st.Photos)
	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO students (roll_no, name, photo_a, photo_b, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, st.RollNo, st.Name, photoA, photoB, st.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("roll number %q: %w", st.RollNo, store.ErrConflict)
	}
	return err
}

func (s *Store) GetStudent(ctx context.Context, rollNo string) (store.Student, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT roll_no, name, photo_a, photo_b, created_at FROM students WHERE roll_no = ?
	`, rollNo)
	st, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Student{}, fmt.Errorf("student %q: %w", rollNo, store.ErrNotFound)
	}
	return st, err
}

func (s *Store) ListStudents(ctx context.Context) ([]store.Student, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT roll_no, name, photo_a, photo_b, created_at FROM students ORDER BY created_at, roll_no
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []store.Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) CreateLecture(ctx context.Context, l store.Lecture) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lectures (id, name, room, section) VALUES (?, ?, ?, ?)
	`, l.ID, l.Name, l.Room, l.Section)
	if isUniqueViolation(err) {
		return fmt.Errorf("lecture %q: %w", l.ID, store.ErrConflict)
	}
	return err
}

func (s *Store) GetLecture(ctx context.Context, id string) (store.Lecture, error) {
	var l store.Lecture
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, room, section FROM lectures WHERE id = ?`, id)
	if err := row.Scan(&l.ID, &l.Name, &l.Room, &l.Section); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Lecture{}, fmt.Errorf("lecture %q: %w", id, store.ErrNotFound)
		}
		return store.Lecture{}, err
	}
	return l, nil
}

func (s *Store) ListLectures(ctx context.Context) ([]store.Lecture, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, room, section FROM lectures ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []store.Lecture
	for rows.Next() {
		var l store.Lecture
		if err := rows.Scan(&l.ID, &l.Name, &l.Room, &l.Section); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// AddMark relies on the composite primary key for the
// exactly-once-per-day guarantee; a duplicate insert is a Conflict.
func (s *Store) AddMark(ctx context.Context, lectureID, studentID string, day time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attendance_marks (lecture_id, day, student_id, marked_at)
		VALUES (?, ?, ?, ?)
	`, lectureID, store.DayKey(day), studentID, time.Now().UTC())
	if isUniqueViolation(err) {
		return fmt.Errorf("student %q already marked: %w", studentID, store.ErrConflict)
	}
	return err
}

func (s *Store) ListMarks(ctx context.Context, lectureID string, day time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT student_id FROM attendance_marks
		WHERE lecture_id = ? AND day = ?
		ORDER BY marked_at
	`, lectureID, store.DayKey(day))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStudent(row scanner) (store.Student, error) {
	var st store.Student
	var photoA, photoB string
	if err := row.Scan(&st.RollNo, &st.Name, &photoA, &photoB, &st.CreatedAt); err != nil {
		return store.Student{}, err
	}
	st.Photos = []string{photoA, photoB}
	return st, nil
}

func splitPhotos(photos []string) (string, string) {
	var a, b string
	if len(photos) > 0 {
		a = photos[0]
	}
	if len(photos) > 1 {
		b = photos[1]
	}
	return a, b
}

func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.Code == sqlite3.ErrConstraint
	}
	return false
}
