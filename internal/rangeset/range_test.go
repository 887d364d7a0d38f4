package rangeset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRange(t *testing.T) {
	t.Run("Size", func(t *testing.T) {
		testCases := []struct {
			name     string
			r        Range
			expected uint64
		}{
			{"positive size", Range{Start: 10, End: 20}, 10},
			{"zero size", Range{Start: 5, End: 5}, 0},
			{"inverted", Range{Start: 6, End: 5}, 0},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				assert.Equal(t, tc.expected, tc.r.Size())
				assert.Equal(t, tc.expected > 0, tc.r.Valid())
			})
		}
	})

	t.Run("Overlaps", func(t *testing.T) {
		testCases := []struct {
			name     string
			r1, r2   Range
			expected bool
		}{
			{"r2 starts during r1", Range{Start: 1, End: 6}, Range{Start: 5, End: 10}, true},
			{"r1 and r2 touch", Range{Start: 1, End: 6}, Range{Start: 6, End: 10}, false},
			{"r2 contains r1", Range{Start: 10, End: 20}, Range{Start: 5, End: 25}, true},
			{"no overlap", Range{Start: 3, End: 5}, Range{Start: 7, End: 9}, false},
			{"identical ranges", Range{Start: 10, End: 20}, Range{Start: 10, End: 20}, true},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				assert.Equal(t, tc.expected, tc.r1.Overlaps(tc.r2))
				assert.Equal(t, tc.expected, tc.r2.Overlaps(tc.r1))
			})
		}
	})

	t.Run("Contains", func(t *testing.T) {
		r := Range{Start: 1, End: 10}
		assert.True(t, r.Contains(1))
		assert.True(t, r.Contains(9))
		assert.False(t, r.Contains(10))
		assert.False(t, r.Contains(0))
	})

	t.Run("Merge", func(t *testing.T) {
		assert.Equal(t, Range{Start: 1, End: 3}, Range{Start: 2, End: 3}.Merge(Range{Start: 1, End: 2}))
		assert.Equal(t, Range{Start: 1, End: 10}, Range{Start: 1, End: 10}.Merge(Range{Start: 3, End: 5}))
		assert.Panics(t, func() { Range{Start: 1, End: 2}.Merge(Range{Start: 3, End: 4}) })
	})

	t.Run("String", func(t *testing.T) {
		assert.Equal(t, "[1, 10)", Range{Start: 1, End: 10}.String())
	})
}

func TestByteRange(t *testing.T) {
	testCases := []struct {
		name           string
		offset, length uint64
		expected       Range
	}{
		{"exact block", 4096, 4096, Range{Start: 1, End: 2}},
		{"single byte", 4095, 1, Range{Start: 0, End: 1}},
		{"straddles boundary", 4096*3 - 1, 4096 * 7, Range{Start: 2, End: 10}},
		{"one past boundary", 4096*15 + 1, 4096 * 4, Range{Start: 15, End: 20}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, byteRange(tc.offset, tc.length, BlockSize))
		})
	}
}
