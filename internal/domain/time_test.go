package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttemptDate(t *testing.T) {
	tests := []struct {
		name string
		ts   string
		want string
		ok   bool
	}{
		{"full timestamp with Z", "2024-03-15T10:30:00.000Z", "2024-03-15", true},
		{"full timestamp without Z", "2024-03-15T10:30:00.000", "2024-03-15", true},
		{"nanosecond precision", "2024-03-15T10:30:00.123456789Z", "2024-03-15", true},
		{"bare date", "2024-03-15", "2024-03-15", true},
		{"garbage", "not-a-timestamp", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AttemptDate(tt.ts)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeTimestampKey(t *testing.T) {
	key := SanitizeTimestampKey("2024-03-15T10:30:00.000Z")
	assert.Equal(t, "2024-03-15T10-30-00-000Z", key)
	assert.NotContains(t, key, ":")
	assert.NotContains(t, key, ".")
}
