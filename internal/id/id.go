package id

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var validID = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// New returns a fresh random identifier: a version 4 UUID in its 32-character hex form.
func New() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Valid reports whether s can be used as an identifier. Identifiers end up in
// file names, so anything outside [a-zA-Z0-9_-] is rejected.
func Valid(s string) bool {
	return validID.MatchString(s)
}
