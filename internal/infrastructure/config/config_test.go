package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socratic-tutor/backend/internal/infrastructure/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no stray .env
	t.Setenv("LLM_API_KEY", "k")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, config.StoreFile, cfg.StoreBackend)
	assert.Equal(t, 120*time.Second, cfg.LLMTimeout)
	assert.Equal(t, "k", cfg.LLMAPIKey)
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE_BACKEND", "postgres")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_BadDuration(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LLM_TIMEOUT", "soon")

	_, err := config.Load()
	assert.Error(t, err)
}

const settingsYAML = `model:
  name: gemini-pro
  temperature: 0.2
prompt_template: "Задача: {{task}}"
estimation_template: "Оцени {{student_work}}"
credentials:
  api_key: should-not-survive
ui:
  theme: dark
`

func TestSettings_LoadAndSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(settingsYAML), 0o644))

	s, err := config.LoadSettings(path)
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, "gemini-pro", snap.ModelName())
	assert.Equal(t, "Задача: {{task}}", snap.PromptTemplate)
	assert.Equal(t, "Оцени {{student_work}}", snap.EstimationTemplate)

	assert.NotContains(t, s.Document(), "credentials")
}

func TestSettings_UpdateMergesAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(settingsYAML), 0o644))
	s, err := config.LoadSettings(path)
	require.NoError(t, err)

	before := s.Snapshot()
	doc, err := s.Update(map[string]any{
		"model":           map[string]any{"name": "gemini-flash"},
		"prompt_template": "Новый {{task}}",
		"credentials":     map[string]any{"api_key": "leak"},
	})
	require.NoError(t, err)

	model := doc["model"].(map[string]any)
	assert.Equal(t, "gemini-flash", model["name"])
	assert.Equal(t, 0.2, model["temperature"], "nested keys are merged")
	assert.NotContains(t, doc, "credentials")

	assert.Equal(t, "gemini-pro", before.ModelName(), "snapshots are frozen")
	assert.Equal(t, "Новый {{task}}", s.Snapshot().PromptTemplate)

	reloaded, err := config.LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini-flash", reloaded.Snapshot().ModelName())
	assert.Equal(t, "dark", reloaded.Document()["ui"].(map[string]any)["theme"])

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "leak")
	assert.NotContains(t, string(raw), "should-not-survive")
}

func TestSettings_MissingFile(t *testing.T) {
	s, err := config.LoadSettings(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultModel, s.Snapshot().ModelName())
	assert.Empty(t, s.Snapshot().PromptTemplate)
}

func TestSettings_RejectsWrongShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	s, err := config.LoadSettings(path)
	require.NoError(t, err)

	_, err = s.Update(map[string]any{"prompt_template": map[string]any{"nested": true}})
	assert.ErrorIs(t, err, config.ErrInvalidSettings)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "nothing written on rejection")
}
