package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"45s", "45s"},
		{"3m7s", "3m 7s"},
		{"2h0m1s", "2h 0m 1s"},
		{"72h30m15s", "3d 0h 30m 15s"},
		{"garbage", "garbage"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatUptime(tt.in), tt.in)
	}
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "1m 30s", FormatAge(now.Add(-90*time.Second), now))
	assert.Equal(t, "0s", FormatAge(now.Add(time.Minute), now))
	assert.Equal(t, "-", FormatAge(time.Time{}, now))
}
