// Package postgres is the Postgres-backed Store, for shared deployments.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/just-aakash/cyberknights/internal/store"
)

// Store persists records in Postgres via the pgx stdlib driver.
type Store struct {
	db *sql.DB
}

// New creates a Postgres connection with sane pool defaults and migrates
// the schema.
func New(connString string) (*Store, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

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
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
		marked_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
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
		`SELECT username, password_hash FROM credentials WHERE username = $1`, username)
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
		VALUES ($1, $2)
		ON CONFLICT (username) DO UPDATE SET password_hash = EXCLUDED.password_hash
	`, cred.Username, cred.PasswordHash)
	return err
}

func (s *Store) CreateStudent(ctx context.Context, st store.Student) error {
	photoA, photoB := splitPhotos(st.Photos)
	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO students (roll_no, name, photo_a, photo_b, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (roll_no) DO NOTHING
	`, st.RollNo, st.Name, photoA, photoB, st.CreatedAt)
	if err != nil {
		return err
	}
	return conflictWhenUntouched(res, fmt.Sprintf("roll number %q", st.RollNo))
}

func (s *Store) GetStudent(ctx context.Context, rollNo string) (store.Student, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT roll_no, name, photo_a, photo_b, created_at FROM students WHERE roll_no = $1
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
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO lectures (id, name, room, section)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, l.ID, l.Name, l.Room, l.Section)
	if err != nil {
		return err
	}
	return conflictWhenUntouched(res, fmt.Sprintf("lecture %q", l.ID))
}

func (s *Store) GetLecture(ctx context.Context, id string) (store.Lecture, error) {
	var l store.Lecture
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, room, section FROM lectures WHERE id = $1`, id)
	if err := row.Scan(&l.ID, &l.Name, &l.Room, &l.Section); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Lecture{}, fmt.Errorf("lecture %q: %w", id, store.ErrNotFound)
		}
		return store.Lecture{}, err
	}
	return l, nil
}

func (s *Store) ListLectures(ctx context.Context) ([]store.Lecture, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, room, section FROM lectures ORDER BY name`)
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

// AddMark uses ON CONFLICT DO NOTHING on the composite primary key, so
// concurrent duplicate marks race safely and exactly one wins.
func (s *Store) AddMark(ctx context.Context, lectureID, studentID string, day time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO attendance_marks (lecture_id, day, student_id, marked_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (lecture_id, day, student_id) DO NOTHING
	`, lectureID, store.DayKey(day), studentID, time.Now().UTC())
	if err != nil {
		return err
	}
	return conflictWhenUntouched(res, fmt.Sprintf("student %q already marked", studentID))
}

func (s *Store) ListMarks(ctx context.Context, lectureID string, day time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT student_id FROM attendance_marks
		WHERE lecture_id = $1 AND day = $2
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

func conflictWhenUntouched(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, store.ErrConflict)
	}
	return nil
}
