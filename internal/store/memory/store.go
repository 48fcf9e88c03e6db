// Package memory is a mutex-guarded in-memory Store, used in dev mode
// and as the backend for service-level tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/just-aakash/cyberknights/internal/store"
)

// Store keeps all records in process memory. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	creds    map[string]store.Credential
	students map[string]store.Student
	rolls    []string
	lectures map[string]store.Lecture
	lectIDs  []string
	marks    map[markKey][]string
}

// markKey is a struct so lecture IDs can never alias into the day part,
// whatever characters they contain.
type markKey struct {
	lecture string
	day     string
}

// New creates an empty store.
func New() *Store {
	return &Store{
		creds:    make(map[string]store.Credential),
		students: make(map[string]store.Student),
		lectures: make(map[string]store.Lecture),
		marks:    make(map[markKey][]string),
	}
}

func (s *Store) GetCredential(_ context.Context, username string) (store.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.creds[username]
	if !ok {
		return store.Credential{}, fmt.Errorf("credential %q: %w", username, store.ErrNotFound)
	}
	return cred, nil
}

func (s *Store) PutCredential(_ context.Context, cred store.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[cred.Username] = cred
	return nil
}

func (s *Store) CreateStudent(_ context.Context, st store.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.students[st.RollNo]; ok {
		return fmt.Errorf("roll number %q: %w", st.RollNo, store.ErrConflict)
	}
	s.students[st.RollNo] = st
	s.rolls = append(s.rolls, st.RollNo)
	return nil
}

func (s *Store) GetStudent(_ context.Context, rollNo string) (store.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.students[rollNo]
	if !ok {
		return store.Student{}, fmt.Errorf("student %q: %w", rollNo, store.ErrNotFound)
	}
	return st, nil
}

func (s *Store) ListStudents(_ context.Context) ([]store.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Student, 0, len(s.rolls))
	for _, roll := range s.rolls {
		out = append(out, s.students[roll])
	}
	return out, nil
}

func (s *Store) CreateLecture(_ context.Context, l store.Lecture) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lectures[l.ID]; ok {
		return fmt.Errorf("lecture %q: %w", l.ID, store.ErrConflict)
	}
	s.lectures[l.ID] = l
	s.lectIDs = append(s.lectIDs, l.ID)
	return nil
}

func (s *Store) GetLecture(_ context.Context, id string) (store.Lecture, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.lectures[id]
	if !ok {
		return store.Lecture{}, fmt.Errorf("lecture %q: %w", id, store.ErrNotFound)
	}
	return l, nil
}

func (s *Store) ListLectures(_ context.Context) ([]store.Lecture, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Lecture, 0, len(s.lectIDs))
	for _, id := range s.lectIDs {
		out = append(out, s.lectures[id])
	}
	return out, nil
}

// AddMark holds the write lock across the membership check and the
// append, so the duplicate check and the mutation are atomic together.
func (s *Store) AddMark(_ context.Context, lectureID, studentID string, day time.Time) error {
	key := keyFor(lectureID, day)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.marks[key] {
		if id == studentID {
			return fmt.Errorf("student %q already marked: %w", studentID, store.ErrConflict)
		}
	}
	s.marks[key] = append(s.marks[key], studentID)
	return nil
}

func (s *Store) ListMarks(_ context.Context, lectureID string, day time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.marks[keyFor(lectureID, day)]
	out := make([]string, len(ids))
	copy(out, ids)
	return out, nil
}

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func keyFor(lectureID string, day time.Time) markKey {
	return markKey{lecture: lectureID, day: store.DayKey(day)}
}
