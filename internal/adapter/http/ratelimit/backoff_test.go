package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff_Duration(t *testing.T) {
	b := NewBackoff(time.Minute, 16*time.Minute, 2.0)
	b.Jitter = false

	tests := []struct {
		strike int
		want   time.Duration
	}{
		{strike: -3, want: time.Minute},
		{strike: 0, want: time.Minute},
		{strike: 1, want: time.Minute},
		{strike: 2, want: 2 * time.Minute},
		{strike: 3, want: 4 * time.Minute},
		{strike: 5, want: 16 * time.Minute},
		{strike: 6, want: 16 * time.Minute},
		{strike: 5000, want: 16 * time.Minute},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, b.Duration(tt.strike), "strike %d", tt.strike)
	}
}

func TestBackoff_Duration_WithJitter(t *testing.T) {
	b := NewBackoff(100*time.Millisecond, 5*time.Second, 2.0)

	expected := 400 * time.Millisecond
	for range 100 {
		d := b.Duration(3)
		assert.GreaterOrEqual(t, d, expected/2)
		assert.LessOrEqual(t, d, expected)
	}
}

func TestNewBackoff_Defaults(t *testing.T) {
	b := NewBackoff(100*time.Millisecond, 5*time.Second, 2.0)
	assert.Equal(t, 100*time.Millisecond, b.Min)
	assert.Equal(t, 5*time.Second, b.Max)
	assert.Equal(t, 2.0, b.Factor)
	assert.True(t, b.Jitter)
}
