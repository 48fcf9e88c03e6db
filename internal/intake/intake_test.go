package intake

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskSave(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDisk(dir, "/uploads")
	require.NoError(t, err)

	ref, err := d.Save(context.Background(), strings.NewReader("jpeg-bytes"), "face.JPG")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "/uploads/"), "ref %q", ref)
	assert.True(t, strings.HasSuffix(ref, ".jpg"), "extension is lowercased: %q", ref)

	data, err := os.ReadFile(filepath.Join(dir, filepath.Base(ref)))
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
}

func TestDiskSaveRefsAreUnique(t *testing.T) {
	d, err := NewDisk(t.TempDir(), "/uploads")
	require.NoError(t, err)

	refA, err := d.Save(context.Background(), strings.NewReader("a"), "same.jpg")
	require.NoError(t, err)
	refB, err := d.Save(context.Background(), strings.NewReader("b"), "same.jpg")
	require.NoError(t, err)
	assert.NotEqual(t, refA, refB)
}

func TestDiskRemove(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDisk(dir, "/uploads")
	require.NoError(t, err)

	ref, err := d.Save(context.Background(), strings.NewReader("a"), "face.jpg")
	require.NoError(t, err)
	require.NoError(t, d.Remove(context.Background(), ref))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDiskSaveNoExtension(t *testing.T) {
	d, err := NewDisk(t.TempDir(), "/uploads")
	require.NoError(t, err)

	ref, err := d.Save(context.Background(), strings.NewReader("a"), "photo")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(ref, ".jpg"))
}
