package service_test

import (
	"bytes"
	"io/fs"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/socratic-tutor/backend/internal/infrastructure/config"
	"github.com/socratic-tutor/backend/internal/llm"
	"github.com/socratic-tutor/backend/internal/logger"
	"github.com/socratic-tutor/backend/internal/service"
	"github.com/socratic-tutor/backend/internal/store"
	"github.com/socratic-tutor/backend/internal/upload"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

func pngFile(name string) *service.FileInput {
	return &service.FileInput{Name: name, Body: bytes.NewReader(pngHeader)}
}

type fakeSettings struct {
	mu sync.Mutex
	s  config.Settings
}

func (f *fakeSettings) Snapshot() config.Settings {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.s
}

func (f *fakeSettings) set(fn func(*config.Settings)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(&f.s)
}

type fixture struct {
	store    *store.FileStore
	uploads  *upload.Store
	gateway  *llm.Mock
	settings *fakeSettings

	conversations *service.ConversationService
	estimations   *service.EstimationService
	exports       *service.ExportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.Discard()

	st, err := store.NewFileStore(t.TempDir(), log)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	up, err := upload.NewStore(t.TempDir())
	require.NoError(t, err)

	f := &fixture{
		store:    st,
		uploads:  up,
		gateway:  &llm.Mock{Reply: "ok"},
		settings: &fakeSettings{},
	}
	f.conversations = service.NewConversationService(st, f.gateway, up, f.settings, log)
	f.estimations = service.NewEstimationService(st, f.gateway, up, f.settings, log)
	f.exports = service.NewExportService(st, log)
	return f
}

// storedFiles lists the regular files under the upload root, relative to it.
func (f *fixture) storedFiles(t *testing.T) []string {
	t.Helper()
	var files []string
	root := f.uploads.Root()
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			rel, _ := filepath.Rel(root, p)
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	require.NoError(t, err)
	return files
}
