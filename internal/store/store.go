// Package store defines the persistent record store consumed by the
// identity, roster and ledger services, together with the shared error
// taxonomy the services translate at the HTTP boundary.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound reports a missing credential, student or lecture.
	ErrNotFound = errors.New("not found")
	// ErrConflict reports a unique-key violation: a duplicate roll number
	// or an attendance mark that already exists for the day.
	ErrConflict = errors.New("conflict")
	// ErrInvalidInput reports missing or malformed caller-supplied fields.
	ErrInvalidInput = errors.New("invalid input")
)

// Credential is a username/password-hash pair.
type Credential struct {
	Username     string
	PasswordHash string
}

// Student is a registered student. RollNo is the natural key and is
// immutable; Photos holds exactly two stable photo references in upload
// order.
type Student struct {
	RollNo    string    `json:"rollNo"`
	Name      string    `json:"name"`
	Photos    []string  `json:"photos"`
	CreatedAt time.Time `json:"createdAt"`
}

// Lecture is a scheduled class.
type Lecture struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Room    string `json:"room"`
	Section string `json:"section"`
}

// Store is the persistence capability shared by all services.
// Implementations must make AddMark atomic per (lecture, day, student):
// two concurrent calls for the same triple must not both succeed.
type Store interface {
	// Credentials.
	GetCredential(ctx context.Context, username string) (Credential, error)
	PutCredential(ctx context.Context, cred Credential) error

	// Roster.
	CreateStudent(ctx context.Context, s Student) error
	GetStudent(ctx context.Context, rollNo string) (Student, error)
	ListStudents(ctx context.Context) ([]Student, error)
	CreateLecture(ctx context.Context, l Lecture) error
	GetLecture(ctx context.Context, id string) (Lecture, error)
	ListLectures(ctx context.Context) ([]Lecture, error)

	// Ledger. Marks are keyed by (lecture, day, student); day is the
	// truncated window start, see DayKey.
	AddMark(ctx context.Context, lectureID, studentID string, day time.Time) error
	ListMarks(ctx context.Context, lectureID string, day time.Time) ([]string, error)

	// Ping reports whether the backing records are reachable.
	Ping(ctx context.Context) error

	Close() error
}

// dayFormat is how calendar days are keyed in every backend.
const dayFormat = "2006-01-02"

// DayKey renders a timestamp's calendar day as the storage key shared by
// all backends.
func DayKey(t time.Time) string {
	return t.Format(dayFormat)
}
