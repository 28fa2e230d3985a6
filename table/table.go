/*
Package table defines the read-only parse-table contract the driver
consults: states, lexer modes, actions, goto transitions and the external
scanner ABI. Building this table — grammar analysis, conflict resolution,
CFSM construction — is explicitly out of scope; grit only
ever reads one that was compiled elsewhere.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package table

import "fmt"

// Symbol identifies a terminal or non-terminal grammar symbol. Symbol 0 is
// reserved for the end-of-input marker.
type Symbol uint16

// EOF is the end-of-input symbol, valid in every language.
const EOF Symbol = 0

// State identifies a parser automaton state.
type State uint32

// NoLookaheadLexState marks a state whose lex_mode means "there is no
// lookahead to compute" — the fixed end-of-non-terminal-extra reduction
// path.
const NoLookaheadLexState uint16 = 0xFFFF

// LexMode is the per-state lexer configuration.
type LexMode struct {
	// LexState selects the internal lexer's DFA entry state.
	// NoLookaheadLexState means "no lookahead: reduce on EOF".
	LexState uint16
	// ExternalLexState is nonzero when the external scanner should be
	// tried before the internal lexer in this state.
	ExternalLexState uint16
}

// HasLookahead reports whether this state computes a lookahead at all.
func (m LexMode) HasLookahead() bool {
	return m.LexState != NoLookaheadLexState
}

// ActionKind distinguishes the four kinds of parse-table action.
type ActionKind uint8

const (
	Shift ActionKind = iota
	Reduce
	Accept
	Recover
)

func (k ActionKind) String() string {
	switch k {
	case Shift:
		return "shift"
	case Reduce:
		return "reduce"
	case Accept:
		return "accept"
	case Recover:
		return "recover"
	default:
		return "unknown"
	}
}

// Action is one parse-table entry for a (state, symbol) pair. Fields not
// relevant to Kind are zero.
type Action struct {
	Kind ActionKind

	// Shift fields.
	State      State
	Extra      bool
	Repetition bool

	// Reduce fields.
	Symbol            Symbol
	ChildCount        uint16
	DynamicPrecedence int32
	ProductionID      uint32
	IsFragile         bool
	EndOfNonTermExtra bool
}

func (a Action) String() string {
	switch a.Kind {
	case Shift:
		return fmt.Sprintf("shift(state:%d extra:%v)", a.State, a.Extra)
	case Reduce:
		return fmt.Sprintf("reduce(sym:%d children:%d prec:%d)", a.Symbol, a.ChildCount, a.DynamicPrecedence)
	case Accept:
		return "accept"
	case Recover:
		return "recover"
	default:
		return "?"
	}
}

// Language is the compiled parse table contract a grit.Parser consumes.
// Implementations are read-only and must be safe for concurrent reads
// from a single parser at a time (grit never parses two inputs with the
// same *Parser concurrently, but a Language may be shared by many
// parsers).
type Language interface {
	// Name identifies the language, for logging.
	Name() string

	// LexMode returns the lexer configuration for state.
	LexMode(state State) LexMode

	// Actions returns the ordered actions for (state, symbol). Order
	// matters: the driver processes actions in table order.
	Actions(state State, symbol Symbol) []Action

	// HasActions reports whether any action exists for (state, symbol),
	// without allocating the slice Actions would.
	HasActions(state State, symbol Symbol) bool

	// Goto returns the successor state after shifting/reducing symbol
	// from state.
	Goto(state State, symbol Symbol) State

	// IsReservedWord reports whether symbol is a reserved word in state,
	// blocking the keyword-fallback rewrite.
	IsReservedWord(state State, symbol Symbol) bool

	// IsReusableLeaf reports whether the table marks (state, symbol) as
	// eligible for reuse without a byte-for-byte lex-mode match.
	IsReusableLeaf(state State, symbol Symbol) bool

	// KeywordCaptureToken is the symbol the internal lexer produces for
	// any identifier-shaped lexeme, before keyword resolution.
	KeywordCaptureToken() Symbol

	// DefaultWordToken is the symbol keyword-fallback rewrites an
	// unreserved keyword lookahead to, when it has no action of its own.
	DefaultWordToken() Symbol

	// ExtraSymbol reports whether symbol is an "extra" token (whitespace,
	// comments) allowed between grammar symbols without changing state.
	ExtraSymbol(symbol Symbol) bool

	// SymbolName renders symbol for logging and error trees.
	SymbolName(symbol Symbol) string

	// ExternalScanner returns the external-scanner ABI for this
	// language, or nil if the grammar defines none.
	ExternalScanner() ExternalScannerABI
}

// ExternalScannerABI is the hook set an external scanner supplies:
// create/destroy/scan/serialize/deserialize plus a symbol map. Package
// extscanner adapts this into the driver's lexing path, either calling it
// natively or routing it through a wasm store.
type ExternalScannerABI interface {
	// Create returns a fresh opaque scanner payload.
	Create() interface{}
	// Destroy releases a payload previously returned by Create.
	Destroy(payload interface{})
	// Scan runs the scanner; validSymbols is indexed by the language's
	// external symbol numbering (0..SymbolCount-1). Returns whether a
	// token was recognized and which external symbol it carries; the
	// caller maps that to a table.Symbol via Symbol(externalIndex).
	Scan(payload interface{}, lexer ExternalLexer, validSymbols []bool) (ok bool, externalIndex int)
	// Serialize writes payload's state into buf, returning the number of
	// bytes used. buf must not be retained past the call.
	Serialize(payload interface{}, buf []byte) int
	// Deserialize restores payload's state from state. state must not be
	// retained past the call.
	Deserialize(payload interface{}, state []byte)
	// SymbolCount is the number of distinct external tokens.
	SymbolCount() int
	// Symbol maps an external token index to a table.Symbol.
	Symbol(externalIndex int) Symbol
}

// ExternalLexer is the subset of the lexer's cursor API an external
// scanner hook is allowed to drive.
type ExternalLexer interface {
	Advance(skip bool) (r rune, ok bool)
	MarkEnd()
	Lookahead() rune
	AtEOF() bool
}
