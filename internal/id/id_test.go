package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunID(t *testing.T) {
	ids := make(map[string]bool)

	for range 500 {
		id, err := NewRunID()
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(id, "run-"))
		assert.Len(t, id, len("run-")+nanoidLength)
		assert.True(t, HasPrefix(id, PrefixRun), "generated id should validate: %s", id)
		assert.False(t, ids[id], "ID should be unique: %s", id)
		ids[id] = true
	}
}

func TestHasPrefix(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"valid", "run-V1StGXR8_Z5jdHi6B-myT", true},
		{"wrong prefix", "job-V1StGXR8_Z5jdHi6B-myT", false},
		{"too short", "run-abc", false},
		{"bad characters", "run-V1StGXR8/Z5jdHi6B-myT", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasPrefix(tt.in, PrefixRun))
		})
	}
}
