package id_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/socratic-tutor/backend/internal/id"
)

func TestNew_FormatAndUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		v := id.New()
		assert.Len(t, v, 32)
		assert.True(t, id.Valid(v), "generated id %q should be valid", v)
		assert.False(t, seen[v], "duplicate id %q", v)
		seen[v] = true
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"abc123", true},
		{"a_b-c", true},
		{"", false},
		{"../etc", false},
		{"a/b", false},
		{"a b", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, id.Valid(tt.in), "Valid(%q)", tt.in)
	}
}
