package grit

import "github.com/npillmayer/grit/span"

// --- Points and lengths -----------------------------------------------
//
// These are aliases onto package span, which holds the actual
// definitions so that driver, gss, lexer, reuse and subtree can depend
// on them without importing this root package back.

// Point is a (row, column) position within a source text. Column is
// measured in bytes from the start of the row, not runes.
type Point = span.Point

// Length is an additive measure of input consumed: a byte count plus the
// (row, column) delta it represents. The zero value is the identity for
// Add/Sub.
type Length = span.Length

// --- Ranges and edits ---------------------------------------------------

// Range is a disjoint byte span of the input that should actually be
// parsed; bytes outside of any Range are skipped over by the lexer
// without being fed to the grammar. Used for embedded-language parsing.
type Range = span.Range

// Edit describes how a previous parse's input text changed, so a
// follow-up parse can reuse the unaffected parts of the previous tree.
type Edit = span.Edit

// Encoding names the byte encoding of a parser's input.
type Encoding = span.Encoding

const (
	UTF8    = span.UTF8
	UTF16LE = span.UTF16LE
	UTF16BE = span.UTF16BE
)

// --- Error kinds -------------------------------------------

// ErrScanner names a fatal external-scanner failure. No code path in this
// module returns it: the native scanner ABI has no way to report a
// failure, and a wasm scan error is logged and treated as "no token".
var ErrScanner = span.ErrScanner

// ErrCancelled is returned when a parse is stopped cooperatively, either
// via the cancellation flag, the timeout, or a progress callback. The
// parser retains enough state to resume on the next call to Parse with
// the same language and input.
var ErrCancelled = span.ErrCancelled

// ErrUnsupportedLanguage is returned (wrapped) by
// Parser.ParseStringWithEncoding for any encoding other than UTF8. No
// ABI-version or wasm-store check is made on a language.
var ErrUnsupportedLanguage = span.ErrUnsupportedLanguage

// --- Compile-time constants ---------------------------------

const (
	// ErrorCostPerSkippedTree is the flat cost charged for each subtree
	// folded into an ERROR/ERROR_REPEAT node during recovery, and for
	// each paused GSS version.
	ErrorCostPerSkippedTree = span.ErrorCostPerSkippedTree

	// ErrorCostPerSkippedChar is charged per skipped input byte.
	ErrorCostPerSkippedChar = span.ErrorCostPerSkippedChar

	// ErrorCostPerSkippedLine is charged per skipped input line.
	ErrorCostPerSkippedLine = span.ErrorCostPerSkippedLine

	// MaxCostDifference bounds how much better a version must be before
	// it strictly dominates another.
	MaxCostDifference = span.MaxCostDifference

	// MaxVersionCount is the steady-state cap on live GSS versions after
	// a condense pass.
	MaxVersionCount = span.MaxVersionCount

	// MaxVersionCountOverflow is the transient overflow tolerated inside
	// a single reduce, before the next condense prunes back down.
	MaxVersionCountOverflow = span.MaxVersionCountOverflow

	// MaxSummaryDepth bounds the recovery summary ring kept per version.
	MaxSummaryDepth = span.MaxSummaryDepth

	// OpCountPerParserTimeoutCheck is how many units of driver work pass
	// between cooperative-cancellation checks.
	OpCountPerParserTimeoutCheck = span.OpCountPerParserTimeoutCheck
)
