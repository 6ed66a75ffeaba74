package sourcemap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionFor(t *testing.T) {
	src := "line one\nline two\r\nline three"
	m := New(src, "wf.md")

	tests := []struct {
		name   string
		offset int
		want   Position
	}{
		{"start of file", 0, Position{Line: 1, Column: 0, Offset: 0}},
		{"mid first line", 4, Position{Line: 1, Column: 4, Offset: 4}},
		{"start of second line", 9, Position{Line: 2, Column: 0, Offset: 9}},
		{"crlf carried into third line", 19, Position{Line: 3, Column: 0, Offset: 19}},
		{"clamped below zero", -5, Position{Line: 1, Column: 0, Offset: 0}},
		{"clamped past end", len(src) + 50, Position{Line: 3, Column: 10, Offset: len(src)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.PositionFor(tt.offset))
		})
	}
}

func TestPositionOffsetRoundTrip(t *testing.T) {
	src := "alpha\nbeta\ngamma\ndelta\n"
	m := New(src, "wf.md")

	for offset := 0; offset <= len(src); offset++ {
		pos := m.PositionFor(offset)
		require.Equal(t, offset, m.OffsetFor(pos.Line, pos.Column), "offset %d did not round-trip", offset)
	}
}

func TestLocationFor(t *testing.T) {
	m := New("abc\ndef", "wf.md")
	loc := m.LocationFor(1, 5)
	assert.Equal(t, 1, loc.Start.Offset)
	assert.Equal(t, 5, loc.End.Offset)
	assert.Equal(t, 2, loc.End.Line)
}
