/*
Package lexer implements the positional byte reader the driver lexes
from: a cursor over the caller's input callback with included-range
snapping. The byte-range mechanics here
are deliberately simple; a language's actual token recognition lives in
package lexmode and the grammar's external scanner.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>
*/
package lexer

import (
	"unicode/utf8"

	"github.com/npillmayer/grit/span"
)

// Input supplies source bytes on demand: given an absolute byte offset
// and the point it corresponds to, it returns a chunk starting at that
// offset (which may be shorter than the whole remaining input) and
// whether the offset is at or past the end of input.
type Input func(byteOffset uint32, point span.Point) (chunk []byte, eof bool)

// Lexer is a single-threaded cursor over Input, advancing rune by rune
// and tracking (byte, row, column) position. Reset/StartToken/Advance/
// MarkEnd/Finish are the operations the driver's lexing loop is built on.
type Lexer struct {
	input Input

	chunk      []byte
	chunkStart uint32

	pos   uint32
	point span.Point

	tokenStart      uint32
	tokenStartPoint span.Point
	lookaheadEnd    uint32

	ranges   []span.Range
	rangeIdx int
}

// New creates a Lexer reading from input, restricted to ranges (nil or
// empty means "the whole input is included").
func New(input Input, ranges []span.Range) *Lexer {
	return &Lexer{input: input, ranges: ranges}
}

// SetIncludedRanges replaces the lexer's included ranges.
func (l *Lexer) SetIncludedRanges(ranges []span.Range) {
	l.ranges = ranges
	l.rangeIdx = 0
}

// IncludedRanges returns the lexer's current included ranges.
func (l *Lexer) IncludedRanges() []span.Range { return l.ranges }

// Reset repositions the lexer at pos/point, discarding any buffered
// chunk so the next Advance re-reads from Input.
func (l *Lexer) Reset(pos uint32, point span.Point) {
	l.pos = pos
	l.point = point
	l.chunk = nil
	l.chunkStart = 0
	l.snapToIncludedRange()
}

// Position returns the lexer's current absolute byte offset and point.
func (l *Lexer) Position() (uint32, span.Point) { return l.pos, l.point }

// StartToken marks the current position as the start of a new token.
func (l *Lexer) StartToken() {
	l.tokenStart = l.pos
	l.tokenStartPoint = l.point
	l.lookaheadEnd = l.pos
}

// TokenStart returns the position StartToken last recorded.
func (l *Lexer) TokenStart() (uint32, span.Point) { return l.tokenStart, l.tokenStartPoint }

func (l *Lexer) fill() bool {
	if l.chunk != nil && l.pos-l.chunkStart < uint32(len(l.chunk)) {
		return true
	}
	chunk, eof := l.input(l.pos, l.point)
	l.chunk = chunk
	l.chunkStart = l.pos
	return !eof && len(chunk) > 0
}

// AtEOF reports whether the cursor has reached the end of the included
// input.
func (l *Lexer) AtEOF() bool {
	if !l.fill() {
		return true
	}
	if len(l.ranges) > 0 && l.rangeIdx < len(l.ranges) {
		return l.pos >= l.ranges[len(l.ranges)-1].EndByte
	}
	return false
}

// Lookahead returns the next rune without consuming it, or utf8.RuneError
// at EOF.
func (l *Lexer) Lookahead() rune {
	if !l.fill() {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeRune(l.chunk[l.pos-l.chunkStart:])
	return r
}

// Advance consumes and returns the next rune. If skip is true the bytes
// are consumed but not counted as part of the token's lookahead window
// (used by the lexer to skip bytes outside an included range).
func (l *Lexer) Advance(skip bool) (rune, bool) {
	l.snapToIncludedRange()
	if !l.fill() {
		return utf8.RuneError, false
	}
	r, size := utf8.DecodeRune(l.chunk[l.pos-l.chunkStart:])
	if r == utf8.RuneError && size <= 1 {
		size = 1
	}
	l.pos += uint32(size)
	if r == '\n' {
		l.point.Row++
		l.point.Column = 0
	} else {
		l.point.Column += uint32(size)
	}
	if skip {
		l.lookaheadEnd = l.pos
	}
	return r, true
}

// snapToIncludedRange jumps l.pos forward past any excluded gap, so the
// lexer never sees bytes outside the included ranges.
func (l *Lexer) snapToIncludedRange() {
	if len(l.ranges) == 0 {
		return
	}
	for l.rangeIdx < len(l.ranges) && l.pos >= l.ranges[l.rangeIdx].EndByte {
		l.rangeIdx++
	}
	if l.rangeIdx >= len(l.ranges) {
		return
	}
	r := l.ranges[l.rangeIdx]
	if l.pos < r.StartByte {
		l.pos = r.StartByte
		l.point = r.StartPoint
		l.chunk = nil
	}
}

// MarkEnd records the current position as the token's recognized end,
// independent of any further lookahead the lexer performs past it.
func (l *Lexer) MarkEnd() {
	l.lookaheadEnd = l.pos
}

// Finish returns the token span recognized since StartToken: start/end
// bytes and points, plus how far past the marked end the lexer had to
// peek.
func (l *Lexer) Finish() (start, end uint32, startPoint, endPoint span.Point, lookaheadPastEnd uint32) {
	lookaheadPastEnd = 0
	if l.pos > l.lookaheadEnd {
		lookaheadPastEnd = l.pos - l.lookaheadEnd
	}
	return l.tokenStart, l.lookaheadEnd, l.tokenStartPoint, l.pointAt(l.lookaheadEnd), lookaheadPastEnd
}

// pointAt approximates the point for a byte offset at or before the
// current position; exact for offsets equal to l.pos or l.tokenStart.
func (l *Lexer) pointAt(offset uint32) span.Point {
	if offset == l.pos {
		return l.point
	}
	if offset == l.tokenStart {
		return l.tokenStartPoint
	}
	return l.point
}

// HasIncludedRangeDifference reports whether [start,end) crosses a
// boundary introduced or removed between oldRanges and the lexer's
// current ranges. The driver checks this before reusing a candidate
// subtree spanning that byte range.
func HasIncludedRangeDifference(oldRanges, newRanges []span.Range, start, end uint32) bool {
	if len(oldRanges) == 0 && len(newRanges) == 0 {
		return false
	}
	oldCovers := coveringSet(oldRanges, start, end)
	newCovers := coveringSet(newRanges, start, end)
	return oldCovers != newCovers
}

func coveringSet(ranges []span.Range, start, end uint32) string {
	var s []byte
	for _, r := range ranges {
		if r.EndByte <= start || r.StartByte >= end {
			continue
		}
		lo, hi := r.StartByte, r.EndByte
		if lo < start {
			lo = start
		}
		if hi > end {
			hi = end
		}
		s = append(s, []byte{byte(lo), byte(lo >> 8), byte(lo >> 16), byte(lo >> 24),
			byte(hi), byte(hi >> 8), byte(hi >> 16), byte(hi >> 24)}...)
	}
	return string(s)
}
