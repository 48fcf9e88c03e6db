package roster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/just-aakash/cyberknights/internal/store"
	"github.com/just-aakash/cyberknights/internal/store/memory"
)

var twoPhotos = []string{"/uploads/a.jpg", "/uploads/b.jpg"}

func TestRegisterStudent(t *testing.T) {
	svc := NewService(memory.New())
	ctx := context.Background()

	st, err := svc.RegisterStudent(ctx, "R1", "Priya", twoPhotos)
	require.NoError(t, err)
	assert.Equal(t, "R1", st.RollNo)
	assert.Equal(t, twoPhotos, st.Photos)

	students, err := svc.ListStudents(ctx)
	require.NoError(t, err)
	assert.Len(t, students, 1)
}

func TestRegisterStudentDuplicateRollNo(t *testing.T) {
	svc := NewService(memory.New())
	ctx := context.Background()

	_, err := svc.RegisterStudent(ctx, "R1", "Priya", twoPhotos)
	require.NoError(t, err)

	_, err = svc.RegisterStudent(ctx, "R1", "Someone Else", twoPhotos)
	assert.ErrorIs(t, err, store.ErrConflict)

	students, err := svc.ListStudents(ctx)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "Priya", students[0].Name, "first registration wins")
}

func TestRegisterStudentPhotoCount(t *testing.T) {
	svc := NewService(memory.New())
	ctx := context.Background()

	for _, photos := range [][]string{
		nil,
		{"/uploads/a.jpg"},
		{"/uploads/a.jpg", "/uploads/b.jpg", "/uploads/c.jpg"},
	} {
		_, err := svc.RegisterStudent(ctx, "R1", "Priya", photos)
		assert.ErrorIs(t, err, store.ErrInvalidInput)
	}

	students, err := svc.ListStudents(ctx)
	require.NoError(t, err)
	assert.Empty(t, students, "failed registrations must not touch the store")
}

func TestRegisterStudentEmptyFields(t *testing.T) {
	svc := NewService(memory.New())
	ctx := context.Background()

	_, err := svc.RegisterStudent(ctx, "", "Priya", twoPhotos)
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	_, err = svc.RegisterStudent(ctx, "R1", "", twoPhotos)
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestListLecturesSeedsOnce(t *testing.T) {
	svc := NewService(memory.New())
	ctx := context.Background()

	first, err := svc.ListLectures(ctx)
	require.NoError(t, err)
	require.Len(t, first, 5)

	want := map[string][2]string{
		"Discrete Mathematics":  {"CS2005", "2FA"},
		"Computer Organisation": {"BSCS100", "2AA"},
		"DBMS":                  {"BCO1005", "2CA"},
		"English":               {"BELH 0081", "2XX"},
		"HTML":                  {"PCPH0001", "2XN"},
	}
	for _, l := range first {
		rs, ok := want[l.Name]
		require.True(t, ok, "unexpected lecture %q", l.Name)
		assert.Equal(t, rs[0], l.Room)
		assert.Equal(t, rs[1], l.Section)
	}

	second, err := svc.ListLectures(ctx)
	require.NoError(t, err)
	assert.Len(t, second, 5, "second read must not duplicate the seed")
}
