package span

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLengthAddAcrossNewline(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Length
		expected Length
	}{
		{
			name:     "same row accumulates columns",
			a:        Length{Bytes: 4, Point: Point{Row: 0, Column: 4}},
			b:        Length{Bytes: 3, Point: Point{Row: 0, Column: 3}},
			expected: Length{Bytes: 7, Point: Point{Row: 0, Column: 7}},
		},
		{
			name:     "crossing a newline resets the column",
			a:        Length{Bytes: 4, Point: Point{Row: 0, Column: 4}},
			b:        Length{Bytes: 6, Point: Point{Row: 1, Column: 2}},
			expected: Length{Bytes: 10, Point: Point{Row: 1, Column: 2}},
		},
		{
			name:     "both sides multi-line",
			a:        Length{Bytes: 10, Point: Point{Row: 2, Column: 1}},
			b:        Length{Bytes: 5, Point: Point{Row: 1, Column: 0}},
			expected: Length{Bytes: 15, Point: Point{Row: 3, Column: 0}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.a.Add(tt.b))
		})
	}
}

func TestLengthSubInvertsAdd(t *testing.T) {
	a := Length{Bytes: 12, Point: Point{Row: 1, Column: 3}}
	b := Length{Bytes: 5, Point: Point{Row: 0, Column: 5}}
	assert.Equal(t, b, a.Add(b).Sub(a))
	assert.True(t, a.Sub(a).IsZero())
}

func TestLengthString(t *testing.T) {
	l := Length{Bytes: 9, Point: Point{Row: 1, Column: 2}}
	assert.Equal(t, "(9 bytes, 1:2)", l.String())
}

func TestErrorSentinelsAreDistinct(t *testing.T) {
	assert.NotErrorIs(t, ErrScanner, ErrCancelled)
	assert.NotErrorIs(t, ErrCancelled, ErrUnsupportedLanguage)
}

func TestCostConstants(t *testing.T) {
	assert.Equal(t, 18*ErrorCostPerSkippedTree, MaxCostDifference)
	assert.Greater(t, ErrorCostPerSkippedLine, ErrorCostPerSkippedChar)
}
