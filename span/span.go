/*
Package span holds the low-level position, length and edit primitives
shared by every layer of the parser (root package, driver, gss, lexer,
reuse, subtree): a leaf package with no dependency back on package grit,
so those subpackages can use these types without creating an import
cycle with the root package that depends on them. Package grit re-
exports everything here under its own name, so callers of the public
API never see the split.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package span

import (
	"errors"
	"fmt"
)

// --- Points and lengths -----------------------------------------------

// Point is a (row, column) position within a source text. Column is
// measured in bytes from the start of the row, not runes.
type Point struct {
	Row    uint32
	Column uint32
}

// Length is an additive measure of input consumed: a byte count plus the
// (row, column) delta it represents. The zero value is the identity for
// Add/Sub.
type Length struct {
	Bytes uint32
	Point Point
}

// Add returns l + other. Addition is associative: row deltas accumulate,
// and a length that crosses a newline resets the running column to the
// other length's trailing column.
func (l Length) Add(other Length) Length {
	sum := Length{Bytes: l.Bytes + other.Bytes}
	if other.Point.Row > 0 {
		sum.Point.Row = l.Point.Row + other.Point.Row
		sum.Point.Column = other.Point.Column
	} else {
		sum.Point.Row = l.Point.Row
		sum.Point.Column = l.Point.Column + other.Point.Column
	}
	return sum
}

// Sub returns l - other, where other is a prefix of l: it undoes Add from
// the left, so a.Add(b).Sub(a) == b. When l spans more rows than other,
// the result keeps l's column.
func (l Length) Sub(other Length) Length {
	diff := Length{Bytes: l.Bytes - other.Bytes}
	if l.Point.Row > other.Point.Row {
		diff.Point.Row = l.Point.Row - other.Point.Row
		diff.Point.Column = l.Point.Column
	} else {
		diff.Point.Row = 0
		diff.Point.Column = l.Point.Column - other.Point.Column
	}
	return diff
}

// IsZero reports whether l is the additive identity.
func (l Length) IsZero() bool {
	return l == Length{}
}

func (l Length) String() string {
	return fmt.Sprintf("(%d bytes, %d:%d)", l.Bytes, l.Point.Row, l.Point.Column)
}

// --- Ranges and edits ---------------------------------------------------

// Range is a disjoint byte span of the input that should actually be
// parsed; bytes outside of any Range are skipped over by the lexer
// without being fed to the grammar. Used for embedded-language parsing.
type Range struct {
	StartByte  uint32
	EndByte    uint32
	StartPoint Point
	EndPoint   Point
}

// Edit describes how a previous parse's input text changed, so a
// follow-up parse can reuse the unaffected parts of the previous tree.
type Edit struct {
	StartByte   uint32
	OldEndByte  uint32
	NewEndByte  uint32
	StartPoint  Point
	OldEndPoint Point
	NewEndPoint Point
}

// Encoding names the byte encoding of a parser's input.
type Encoding uint8

const (
	UTF8 Encoding = iota
	UTF16LE
	UTF16BE
)

// --- Error kinds -------------------------------------------

// ErrScanner names a fatal external-scanner failure. No code path in this
// module returns it: the native scanner ABI has no way to report a
// failure, and a wasm scan error is logged and treated as "no token".
var ErrScanner = errors.New("grit: external scanner reported a fatal error")

// ErrCancelled is returned when a parse is stopped cooperatively, either
// via the cancellation flag, the timeout, or a progress callback. The
// parser retains enough state to resume on the next call to Parse with
// the same language and input.
var ErrCancelled = errors.New("grit: parse cancelled")

// ErrUnsupportedLanguage is returned (wrapped) by package grit's
// Parser.ParseStringWithEncoding for any encoding other than UTF8. No
// ABI-version or wasm-store check is made on a language.
var ErrUnsupportedLanguage = errors.New("grit: unsupported language ABI")

// --- Compile-time constants ---------------------------------

const (
	// ErrorCostPerSkippedTree is the flat cost charged for each subtree
	// folded into an ERROR/ERROR_REPEAT node during recovery, and for
	// each paused GSS version.
	ErrorCostPerSkippedTree uint32 = 500

	// ErrorCostPerSkippedChar is charged per skipped input byte.
	ErrorCostPerSkippedChar uint32 = 3

	// ErrorCostPerSkippedLine is charged per skipped input line.
	ErrorCostPerSkippedLine uint32 = 30

	// MaxCostDifference bounds how much better a version must be before
	// it strictly dominates another.
	MaxCostDifference uint32 = 18 * ErrorCostPerSkippedTree

	// MaxVersionCount is the steady-state cap on live GSS versions after
	// a condense pass.
	MaxVersionCount uint32 = 6

	// MaxVersionCountOverflow is the transient overflow tolerated inside
	// a single reduce, before the next condense prunes back down.
	MaxVersionCountOverflow uint32 = 4

	// MaxSummaryDepth bounds the recovery summary ring kept per version.
	MaxSummaryDepth uint32 = 16

	// OpCountPerParserTimeoutCheck is how many units of driver work pass
	// between cooperative-cancellation checks.
	OpCountPerParserTimeoutCheck uint32 = 100
)
