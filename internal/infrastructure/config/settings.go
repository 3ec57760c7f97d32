package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// credentialsKey is never read from or written to the settings file.
const credentialsKey = "credentials"

const DefaultModel = "gemini-2.0-flash"

// ErrInvalidSettings is returned by Update when the merged document does not
// fit the Settings shape.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings is the admin-editable part of the configuration.
type Settings struct {
	Model              ModelSettings `yaml:"model" json:"model"`
	PromptTemplate     string        `yaml:"prompt_template" json:"prompt_template"`
	EstimationTemplate string        `yaml:"estimation_template" json:"estimation_template"`
}

type ModelSettings struct {
	Name string `yaml:"name" json:"name"`
}

// ModelName returns the configured model, or DefaultModel.
func (s Settings) ModelName() string {
	if s.Model.Name == "" {
		return DefaultModel
	}
	return s.Model.Name
}

// SettingsStore holds the settings document and persists it as YAML.
//
// The document is kept as a generic map so keys this program does not know
// about survive a round trip through PUT /api/config.
type SettingsStore struct {
	path string

	mu  sync.RWMutex
	doc map[string]any
}

// LoadSettings reads path. A missing file yields an empty document.
func LoadSettings(path string) (*SettingsStore, error) {
	doc := map[string]any{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading settings: %w", err)
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing settings %s: %w", path, err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
	}
	delete(doc, credentialsKey)
	return &SettingsStore{path: path, doc: doc}, nil
}

// Snapshot returns a typed copy of the current settings. Later updates do
// not affect it.
func (s *SettingsStore) Snapshot() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out Settings
	data, err := yaml.Marshal(s.doc)
	if err != nil {
		return out
	}
	_ = yaml.Unmarshal(data, &out)
	return out
}

// Document returns a deep copy of the whole settings document.
func (s *SettingsStore) Document() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneDoc(s.doc)
}

// Update merges patch into the document and writes it to disk. Nested maps
// are merged one level deep; anything else replaces the old value. A
// "credentials" key is dropped.
func (s *SettingsStore) Update(patch map[string]any) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneDoc(s.doc)
	for k, v := range patch {
		if k == credentialsKey {
			continue
		}
		newMap, newIsMap := v.(map[string]any)
		oldMap, oldIsMap := next[k].(map[string]any)
		if newIsMap && oldIsMap {
			for nk, nv := range newMap {
				oldMap[nk] = nv
			}
			continue
		}
		next[k] = v
	}

	// Reject documents the typed view cannot read.
	data, err := yaml.Marshal(next)
	if err != nil {
		return nil, fmt.Errorf("encoding settings: %w", err)
	}
	var typed Settings
	if err := yaml.Unmarshal(data, &typed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}

	if err := writeFileAtomic(s.path, data); err != nil {
		return nil, fmt.Errorf("writing settings: %w", err)
	}
	s.doc = next
	return cloneDoc(next), nil
}

func cloneDoc(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneDoc(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	}
	return v
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
