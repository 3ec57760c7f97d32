// Package upload stores images submitted with conversations and estimations
// and loads them back for the LLM gateway.
package upload

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/socratic-tutor/backend/internal/id"
)

// DefaultMaxBytes caps a single upload.
const DefaultMaxBytes = 20 << 20

var (
	ErrInvalidRef  = errors.New("invalid upload reference")
	ErrTooLarge    = errors.New("upload too large")
	ErrNotAnImage  = errors.New("upload is not an image")
	ErrInvalidSlot = errors.New("invalid upload slot")
)

var imageExts = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Ref points at a stored upload. Path is relative to the store root and uses
// forward slashes, e.g. "3f2a.../task.png".
type Ref struct {
	Path         string `json:"path"`
	OriginalName string `json:"original_name"`
}

// Store keeps uploads under a root directory, one subdirectory per owner.
type Store struct {
	root     string
	maxBytes int64
}

func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	return &Store{root: root, maxBytes: DefaultMaxBytes}, nil
}

// WithMaxBytes returns a copy of the store with a different size cap.
func (s *Store) WithMaxBytes(n int64) *Store {
	cp := *s
	cp.maxBytes = n
	return &cp
}

func (s *Store) Root() string {
	return s.root
}

// Save writes r as <owner>/<slot>.<ext>. owner may have several segments
// ("estimations/<id>"); each segment must be a valid identifier. The
// extension comes from the detected content type, so a misnamed file still
// gets the right one. The original file name is kept in the returned Ref only.
func (s *Store) Save(owner, slot, filename string, r io.Reader) (Ref, error) {
	if !validOwner(owner) {
		return Ref{}, fmt.Errorf("%w: owner %q", ErrInvalidRef, owner)
	}
	if !id.Valid(slot) {
		return Ref{}, fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return Ref{}, fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return Ref{}, ErrTooLarge
	}

	ext, ok := imageExts[http.DetectContentType(data)]
	if !ok {
		return Ref{}, fmt.Errorf("%w: %s", ErrNotAnImage, filepath.Base(filename))
	}

	rel := path.Join(owner, slot+ext)
	full := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return Ref{}, err
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return Ref{}, fmt.Errorf("writing upload: %w", err)
	}
	return Ref{Path: rel, OriginalName: filepath.Base(filename)}, nil
}

// Remove deletes everything stored for owner. A missing owner is not an error.
func (s *Store) Remove(owner string) error {
	if !validOwner(owner) {
		return fmt.Errorf("%w: owner %q", ErrInvalidRef, owner)
	}
	return os.RemoveAll(filepath.Join(s.root, filepath.FromSlash(owner)))
}

// Load returns the bytes and MIME type of a stored upload.
func (s *Store) Load(ref string) ([]byte, string, error) {
	full, err := s.resolve(ref)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, "", err
	}
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(full)))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return data, mimeType, nil
}

func (s *Store) resolve(ref string) (string, error) {
	if ref == "" || strings.Contains(ref, "\\") || path.IsAbs(ref) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	clean := path.Clean(ref)
	if clean != ref || clean == "." || strings.HasPrefix(clean, "../") || clean == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

func validOwner(owner string) bool {
	if owner == "" {
		return false
	}
	for _, seg := range strings.Split(owner, "/") {
		if !id.Valid(seg) {
			return false
		}
	}
	return true
}
