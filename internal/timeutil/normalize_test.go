package timeutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTime(t *testing.T) {
	testCases := []struct {
		name     string
		input    int64
		expected int64
	}{
		{
			name:     "Zero stays zero",
			input:    0,
			expected: 0,
		},
		{
			name:     "Second epoch passes through",
			input:    1704067200, // 2024-01-01T00:00:00Z
			expected: 1704067200,
		},
		{
			name:     "Millisecond epoch is folded to seconds",
			input:    1704067200000,
			expected: 1704067200,
		},
		{
			name:     "Millisecond remainder truncates toward zero",
			input:    1704067200999,
			expected: 1704067200,
		},
		{
			name:     "Value at the threshold is treated as seconds",
			input:    10_000_000_000,
			expected: 10_000_000_000,
		},
		{
			name:     "Value just above the threshold is treated as milliseconds",
			input:    10_000_000_001,
			expected: 10_000_000,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, NormalizeTime(tc.input))
		})
	}
}

func TestNormalizeTimeIdempotent(t *testing.T) {
	inputs := []int64{0, 1, 999, 1704067200, 9_999_999_999, 10_000_000_001, 1704067200123}
	for _, v := range inputs {
		once := NormalizeTime(v)
		assert.Equal(t, once, NormalizeTime(once), "input %d", v)
	}
}
