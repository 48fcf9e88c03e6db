package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/just-aakash/cyberknights/internal/store"
)

var day = time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local)

func TestCredentialRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.GetCredential(ctx, "Akash")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.PutCredential(ctx, store.Credential{Username: "Akash", PasswordHash: "h1"}))
	cred, err := s.GetCredential(ctx, "Akash")
	require.NoError(t, err)
	assert.Equal(t, "h1", cred.PasswordHash)

	// Put is an upsert so password change reuses it.
	require.NoError(t, s.PutCredential(ctx, store.Credential{Username: "Akash", PasswordHash: "h2"}))
	cred, err = s.GetCredential(ctx, "Akash")
	require.NoError(t, err)
	assert.Equal(t, "h2", cred.PasswordHash)
}

func TestStudentUniqueness(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.CreateStudent(ctx, store.Student{RollNo: "R1", Name: "Priya"}))
	err := s.CreateStudent(ctx, store.Student{RollNo: "R1", Name: "Dup"})
	assert.ErrorIs(t, err, store.ErrConflict)

	students, err := s.ListStudents(ctx)
	require.NoError(t, err)
	assert.Len(t, students, 1)
}

func TestListStudentsInsertionOrder(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, roll := range []string{"R3", "R1", "R2"} {
		require.NoError(t, s.CreateStudent(ctx, store.Student{RollNo: roll, Name: roll}))
	}
	students, err := s.ListStudents(ctx)
	require.NoError(t, err)
	require.Len(t, students, 3)
	assert.Equal(t, "R3", students[0].RollNo)
	assert.Equal(t, "R2", students[2].RollNo)
}

func TestAddMarkDuplicate(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.AddMark(ctx, "dbms", "R1", day))
	assert.ErrorIs(t, s.AddMark(ctx, "dbms", "R1", day), store.ErrConflict)

	ids, err := s.ListMarks(ctx, "dbms", day)
	require.NoError(t, err)
	assert.Equal(t, []string{"R1"}, ids)
}

func TestAddMarkSameStudentRace(t *testing.T) {
	s := New()
	ctx := context.Background()

	const attempts = 32
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.AddMark(ctx, "dbms", "R1", day)
		}()
	}
	wg.Wait()
	close(results)

	var ok, conflict int
	for err := range results {
		switch {
		case err == nil:
			ok++
		default:
			require.ErrorIs(t, err, store.ErrConflict)
			conflict++
		}
	}
	assert.Equal(t, 1, ok, "exactly one racing mark wins")
	assert.Equal(t, attempts-1, conflict)
}

func TestMarksIsolatedByLectureAndDay(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.AddMark(ctx, "dbms", "R1", day))
	require.NoError(t, s.AddMark(ctx, "english", "R1", day))
	require.NoError(t, s.AddMark(ctx, "dbms", "R1", day.AddDate(0, 0, 1)))

	ids, err := s.ListMarks(ctx, "dbms", day)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestMarksAwkwardLectureIDs(t *testing.T) {
	s := New()
	ctx := context.Background()

	// Lecture IDs containing separators must still key independently.
	require.NoError(t, s.AddMark(ctx, "cs@2026-03-03", "R1", day))
	require.NoError(t, s.AddMark(ctx, "cs", "R1", day))

	ids, err := s.ListMarks(ctx, "cs", day)
	require.NoError(t, err)
	assert.Equal(t, []string{"R1"}, ids)

	ids, err = s.ListMarks(ctx, "cs@2026-03-03", day)
	require.NoError(t, err)
	assert.Equal(t, []string{"R1"}, ids)
}
