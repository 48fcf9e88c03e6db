// Package roster manages the student and lecture records.
package roster

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/just-aakash/cyberknights/internal/store"
)

// seedLectures is the fixed set created when the lecture table is
// observed empty. IDs are stable slugs derived from the names.
var seedLectures = []store.Lecture{
	{ID: "discrete-mathematics", Name: "Discrete Mathematics", Room: "CS2005", Section: "2FA"},
	{ID: "computer-organisation", Name: "Computer Organisation", Room: "BSCS100", Section: "2AA"},
	{ID: "dbms", Name: "DBMS", Room: "BCO1005", Section: "2CA"},
	{ID: "english", Name: "English", Room: "BELH 0081", Section: "2XX"},
	{ID: "html", Name: "HTML", Room: "PCPH0001", Section: "2XN"},
}

// Service manages student registration and the lecture catalogue.
type Service struct {
	st store.Store
}

// NewService creates a service backed by the given store.
func NewService(st store.Store) *Service {
	return &Service{st: st}
}

// RegisterStudent stores a new student. rollNo and name must be
// non-empty and photoRefs must hold exactly the two intake references;
// a duplicate roll number is a Conflict.
func (s *Service) RegisterStudent(ctx context.Context, rollNo, name string, photoRefs []string) (store.Student, error) {
	if rollNo == "" || name == "" {
		return store.Student{}, fmt.Errorf("roll number and name required: %w", store.ErrInvalidInput)
	}
	if len(photoRefs) != 2 {
		return store.Student{}, fmt.Errorf("exactly 2 photos required, got %d: %w", len(photoRefs), store.ErrInvalidInput)
	}
	st := store.Student{
		RollNo:    rollNo,
		Name:      name,
		Photos:    photoRefs,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.st.CreateStudent(ctx, st); err != nil {
		return store.Student{}, err
	}
	return st, nil
}

// ListStudents returns all registered students.
func (s *Service) ListStudents(ctx context.Context) ([]store.Student, error) {
	return s.st.ListStudents(ctx)
}

// ListLectures returns the lecture catalogue, seeding the fixed set
// first when the store is observed empty. The emptiness guard keeps the
// seed idempotent across calls.
func (s *Service) ListLectures(ctx context.Context) ([]store.Lecture, error) {
	lectures, err := s.st.ListLectures(ctx)
	if err != nil {
		return nil, err
	}
	if len(lectures) > 0 {
		return lectures, nil
	}
	log.Printf("seeding %d lectures", len(seedLectures))
	for _, l := range seedLectures {
		if err := s.st.CreateLecture(ctx, l); err != nil {
			return nil, err
		}
	}
	return s.st.ListLectures(ctx)
}
