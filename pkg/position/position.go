// Package position holds the document model shared by every layer: byte
// offsets into the text, and the zero-based line/UTF-16 character places
// that LSP clients speak.
package position

import (
	"fmt"
	"slices"
	"unicode/utf16"
	"unicode/utf8"
)

// Place is a zero-based line and UTF-16 character offset within that line.
type Place struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

func (p Place) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Character)
}

type Range struct {
	Start Place `json:"start"`
	End   Place `json:"end"`
}

func (r Range) String() string {
	return fmt.Sprintf("%s-%s", r.Start, r.End)
}

// Document is an immutable snapshot of a text document. All offsets are byte
// offsets into Text(); out-of-range inputs are clamped the way editors clamp
// them rather than rejected.
type Document struct {
	URI     string
	Version int32

	text       string
	lineStarts []int
}

// NewDocument indexes text for offset/place conversion.
func NewDocument(uri string, version int32, text string) *Document {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Document{
		URI:        uri,
		Version:    version,
		text:       text,
		lineStarts: starts,
	}
}

func (d *Document) Text() string {
	return d.text
}

func (d *Document) Len() int {
	return len(d.text)
}

// PositionAt converts a byte offset to a place.
func (d *Document) PositionAt(offset int) Place {
	offset = d.clampOffset(offset)

	line := d.lineForOffset(offset)
	start, _, contentEnd := d.lineBounds(line)

	// offsets inside a line terminator land on the end of the line content
	if offset > contentEnd {
		offset = contentEnd
	}

	return Place{
		Line:      line,
		Character: utf16Units(d.text[start:offset]),
	}
}

// OffsetAt converts a place to a byte offset.
func (d *Document) OffsetAt(p Place) int {
	if p.Line < 0 {
		return 0
	}
	if p.Line >= len(d.lineStarts) {
		return len(d.text)
	}
	if p.Character <= 0 {
		return d.lineStarts[p.Line]
	}

	start, _, contentEnd := d.lineBounds(p.Line)
	return start + byteOffsetForUnits(d.text[start:contentEnd], p.Character)
}

// RangeAt converts the byte span [start, end) to a range.
func (d *Document) RangeAt(start, end int) Range {
	if end < start {
		end = start
	}
	return Range{Start: d.PositionAt(start), End: d.PositionAt(end)}
}

// Full returns the range spanning the whole document.
func (d *Document) Full() Range {
	return d.RangeAt(0, len(d.text))
}

// Apply returns the text produced by replacing r with newText. A nil range
// replaces the whole document.
func (d *Document) Apply(r *Range, newText string) string {
	if r == nil {
		return newText
	}
	start := d.OffsetAt(r.Start)
	end := d.OffsetAt(r.End)
	if end < start {
		start, end = end, start
	}
	return d.text[:start] + newText + d.text[end:]
}

func (d *Document) clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	if offset > len(d.text) {
		return len(d.text)
	}
	return offset
}

func (d *Document) lineForOffset(offset int) int {
	// largest i such that lineStarts[i] <= offset
	i, found := slices.BinarySearch(d.lineStarts, offset)
	if found {
		return i
	}
	return i - 1
}

func (d *Document) lineBounds(line int) (start, nextStart, contentEnd int) {
	start = d.lineStarts[line]
	if line+1 < len(d.lineStarts) {
		nextStart = d.lineStarts[line+1]
	} else {
		nextStart = len(d.text)
	}
	contentEnd = nextStart
	if contentEnd > start && d.text[contentEnd-1] == '\n' {
		contentEnd--
		if contentEnd > start && d.text[contentEnd-1] == '\r' {
			contentEnd--
		}
	}
	return start, nextStart, contentEnd
}

func utf16Units(s string) int {
	units := 0
	for _, r := range s {
		units += runeUnits(r)
	}
	return units
}

// byteOffsetForUnits walks line until want UTF-16 units have been consumed.
// A place that splits a surrogate pair resolves to the start of the rune.
func byteOffsetForUnits(line string, want int) int {
	units := 0
	for i := 0; i < len(line); {
		if units >= want {
			return i
		}
		r, size := utf8.DecodeRuneInString(line[i:])
		n := runeUnits(r)
		if units+n > want {
			return i
		}
		units += n
		i += size
	}
	return len(line)
}

func runeUnits(r rune) int {
	if r == utf8.RuneError || utf16.IsSurrogate(r) {
		return 1
	}
	if r <= 0xFFFF {
		return 1
	}
	return 2
}
