// Package sourcemap indexes a source text so byte offsets can be converted
// to line/column positions (and back) in O(log n), and carries the file
// path alongside so diagnostics can point at a precise location.
package sourcemap

import (
	"sort"
)

// Position is a single point in source text.
type Position struct {
	Line   int `json:"line"`   // 1-indexed
	Column int `json:"column"` // 0-indexed, in bytes from the start of Line
	Offset int `json:"offset"` // 0-indexed byte offset from the start of the source
}

// Location is a span in source text.
type Location struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Map indexes a source string for fast offset<->position conversion.
type Map struct {
	Source     string
	FilePath   string
	lineOffset []int // byte offset where each line begins; lineOffset[0] == 0
}

// New builds a Map over source, recognizing both LF and CRLF line endings.
func New(source, filePath string) *Map {
	offsets := []int{0}
	for i := 0; i < len(source); i++ {
		if source[i] == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return &Map{Source: source, FilePath: filePath, lineOffset: offsets}
}

// PositionFor converts a byte offset into a Position. Offsets outside
// [0, len(source)] are clamped.
func (m *Map) PositionFor(offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(m.Source) {
		offset = len(m.Source)
	}
	// last lineOffset <= offset
	line := sort.Search(len(m.lineOffset), func(i int) bool {
		return m.lineOffset[i] > offset
	}) - 1
	if line < 0 {
		line = 0
	}
	col := offset - m.lineOffset[line]
	return Position{Line: line + 1, Column: col, Offset: offset}
}

// OffsetFor converts a 1-indexed line and 0-indexed column back to a byte
// offset. This is the inverse of PositionFor and satisfies the
// offset->position->offset round-trip law.
func (m *Map) OffsetFor(line, column int) int {
	idx := line - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(m.lineOffset) {
		idx = len(m.lineOffset) - 1
	}
	return m.lineOffset[idx] + column
}

// LocationFor builds a Location spanning [startOffset, endOffset).
func (m *Map) LocationFor(startOffset, endOffset int) Location {
	return Location{Start: m.PositionFor(startOffset), End: m.PositionFor(endOffset)}
}
