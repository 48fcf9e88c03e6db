// Package ledger records per-lecture, per-day attendance.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/just-aakash/cyberknights/internal/store"
)

// Record is the attendance for one lecture on one calendar day. Date is
// the start of the day window; StudentsPresent carries the full student
// entities, resolved at read time.
type Record struct {
	Lecture         string          `json:"lecture"`
	Date            time.Time       `json:"date"`
	StudentsPresent []store.Student `json:"studentsPresent"`
}

// Service coordinates attendance marking and day-window lookups.
type Service struct {
	st store.Store
}

// NewService creates a service backed by the given store.
func NewService(st store.Store) *Service {
	return &Service{st: st}
}

// DayStart truncates t to local midnight, the anchor of its day window.
func DayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ParseDate interprets a client-supplied date string. Unparseable input
// falls back to the current time instead of erroring; existing clients
// depend on that fallback, so it is kept even though it swallows typos.
func ParseDate(s string) time.Time {
	if s == "" {
		return time.Now()
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Now()
}

// Query returns the attendance record for the lecture on at's calendar
// day. A day with no marks yields an empty record anchored at the window
// start, never a not-found error.
func (s *Service) Query(ctx context.Context, lectureID string, at time.Time) (Record, error) {
	ids, err := s.st.ListMarks(ctx, lectureID, at)
	if err != nil {
		return Record{}, err
	}
	students := make([]store.Student, 0, len(ids))
	for _, id := range ids {
		st, err := s.st.GetStudent(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return Record{}, err
		}
		students = append(students, st)
	}
	return Record{
		Lecture:         lectureID,
		Date:            DayStart(at),
		StudentsPresent: students,
	}, nil
}

// MarkPresent adds the student to the lecture's present-set for at's
// calendar day, creating the day's record on first mark. A repeat mark
// for the same (lecture, student, day) is a Conflict and leaves the set
// unchanged. Both the lecture and the student must exist.
func (s *Service) MarkPresent(ctx context.Context, lectureID, studentID string, at time.Time) (Record, error) {
	if lectureID == "" || studentID == "" {
		return Record{}, store.ErrInvalidInput
	}
	if _, err := s.st.GetLecture(ctx, lectureID); err != nil {
		return Record{}, err
	}
	if _, err := s.st.GetStudent(ctx, studentID); err != nil {
		return Record{}, err
	}
	if err := s.st.AddMark(ctx, lectureID, studentID, at); err != nil {
		return Record{}, err
	}
	return s.Query(ctx, lectureID, at)
}
