package upload_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socratic-tutor/backend/internal/upload"
)

// Smallest valid PNG header is enough for content sniffing.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

func TestSave_DetectsExtensionAndKeepsOriginalName(t *testing.T) {
	root := t.TempDir()
	s, err := upload.NewStore(root)
	require.NoError(t, err)

	ref, err := s.Save("c1", "task", "Фото задачи.JPG", bytes.NewReader(pngBytes))
	require.NoError(t, err)
	assert.Equal(t, "c1/task.png", ref.Path)
	assert.Equal(t, "Фото задачи.JPG", ref.OriginalName)

	_, err = os.Stat(filepath.Join(root, "c1", "task.png"))
	assert.NoError(t, err)

	data, mimeType, err := s.Load(ref.Path)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
	assert.Equal(t, "image/png", mimeType)
}

func TestSave_NestedOwner(t *testing.T) {
	s, err := upload.NewStore(t.TempDir())
	require.NoError(t, err)

	ref, err := s.Save("estimations/e1", "student_work", "work.png", bytes.NewReader(pngBytes))
	require.NoError(t, err)
	assert.Equal(t, "estimations/e1/student_work.png", ref.Path)
}

func TestSave_Rejects(t *testing.T) {
	s, err := upload.NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Save("../x", "task", "a.png", bytes.NewReader(pngBytes))
	assert.ErrorIs(t, err, upload.ErrInvalidRef)

	_, err = s.Save("c1", "../task", "a.png", bytes.NewReader(pngBytes))
	assert.ErrorIs(t, err, upload.ErrInvalidSlot)

	_, err = s.Save("c1", "task", "notes.txt", strings.NewReader("just text"))
	assert.ErrorIs(t, err, upload.ErrNotAnImage)

	small := s.WithMaxBytes(8)
	_, err = small.Save("c1", "task", "a.png", bytes.NewReader(pngBytes))
	assert.ErrorIs(t, err, upload.ErrTooLarge)
}

func TestRemove(t *testing.T) {
	root := t.TempDir()
	s, err := upload.NewStore(root)
	require.NoError(t, err)

	_, err = s.Save("estimations/e1", "task", "a.png", bytes.NewReader(pngBytes))
	require.NoError(t, err)
	_, err = s.Save("estimations/e2", "task", "b.png", bytes.NewReader(pngBytes))
	require.NoError(t, err)

	require.NoError(t, s.Remove("estimations/e1"))
	_, err = os.Stat(filepath.Join(root, "estimations", "e1"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "estimations", "e2", "task.png"))
	assert.NoError(t, err, "other owners are untouched")

	assert.NoError(t, s.Remove("never-saved"))
	assert.ErrorIs(t, s.Remove("../"+filepath.Base(root)), upload.ErrInvalidRef)
	assert.ErrorIs(t, s.Remove(""), upload.ErrInvalidRef)
}

func TestLoad_RejectsTraversal(t *testing.T) {
	s, err := upload.NewStore(t.TempDir())
	require.NoError(t, err)

	for _, ref := range []string{"", "../secret", "/etc/passwd", "a/../../b", "a\\b", "."} {
		_, _, err := s.Load(ref)
		assert.ErrorIs(t, err, upload.ErrInvalidRef, ref)
	}
}
