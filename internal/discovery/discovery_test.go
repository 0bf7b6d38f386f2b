package discovery

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"autometa/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, size int) {
	t.Helper()
	data := make([]byte, size)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name string
		want model.FileCategory
		ok   bool
	}{
		{"photo.jpg", model.CategoryImage, true},
		{"PHOTO.JPEG", model.CategoryImage, true},
		{"icon.png", model.CategoryImage, true},
		{"logo.eps", model.CategoryVector, true},
		{"draft.ai", model.CategoryVector, true},
		{"shape.svg", model.CategoryVector, true},
		{"clip.mp4", model.CategoryVideo, true},
		{"clip.MOV", model.CategoryVideo, true},
		{"notes.txt", "", false},
		{"archive.zip", "", false},
		{"noext", "", false},
	}
	for _, tt := range tests {
		cat, ok := Categorize(tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		if tt.ok {
			assert.Equal(t, tt.want, cat, tt.name)
		}
	}
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.jpg", 2048)
	writeFile(t, dir, "a.png", 512)
	writeFile(t, dir, "clip.mp4", 4096)
	writeFile(t, dir, "notes.txt", 1024)     // unsupported
	writeFile(t, dir, ".hidden.jpg", 2048)   // hidden
	writeFile(t, dir, "placeholder.jpg", 10) // below minimum size
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	jobs, err := Scan(dir, discardLogger())
	require.NoError(t, err)

	require.Len(t, jobs, 3)
	assert.Equal(t, filepath.Join(dir, "a.png"), jobs[0].Path)
	assert.Equal(t, filepath.Join(dir, "b.jpg"), jobs[1].Path)
	assert.Equal(t, filepath.Join(dir, "clip.mp4"), jobs[2].Path)
	assert.Equal(t, model.CategoryVideo, jobs[2].Category)
	for _, job := range jobs {
		assert.Equal(t, model.StatusPending, job.Status)
	}
}

func TestScan_MissingDirectory(t *testing.T) {
	_, err := Scan("/does/not/exist", discardLogger())
	assert.Error(t, err)
}

func TestScan_EmptyDirectory(t *testing.T) {
	jobs, err := Scan(t.TempDir(), discardLogger())
	require.NoError(t, err)
	assert.Empty(t, jobs)
}
