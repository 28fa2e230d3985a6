/*
Package lexmode implements the default internal lexer: a bank of
lexmachine DFAs, one per grammar lex_state, plus a separate keyword DFA
used for the keyword-capture/keyword-fallback dance. Each recognition
copies a window of up to 4096 bytes off a scratch copy of a lexer.Lexer
cursor (so the driver's included-range snapping applies to what the DFA
sees), scans that []byte, and then advances the real cursor by exactly
the matched length.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>
*/
package lexmode

import (
	"fmt"
	"unicode/utf8"

	"github.com/npillmayer/grit/lexer"
	"github.com/npillmayer/schuko/tracing"
	"github.com/timtadh/lexmachine"
	"github.com/timtadh/lexmachine/machines"
)

// tracer traces with key "grit.lexmode".
func tracer() tracing.Trace {
	return tracing.Select("grit.lexmode")
}

// Rule is one lexmachine pattern -> symbol mapping fed to AddState/
// SetKeywordRules.
type Rule struct {
	Pattern string // lexmachine regex syntax
	Symbol  uint16
}

// Bank compiles one lexmachine DFA per lex_state plus one keyword DFA,
// and recognizes tokens against a lexer.Lexer cursor.
type Bank struct {
	states  map[uint16]*lexmachine.Lexer
	keyword *lexmachine.Lexer
}

// NewBank creates an empty bank.
func NewBank() *Bank {
	return &Bank{states: map[uint16]*lexmachine.Lexer{}}
}

// AddState compiles a DFA for lexState from rules. Earlier rules take
// priority on ties, matching lexmachine's documented longest-match/
// first-added tie-break.
func (b *Bank) AddState(lexState uint16, rules []Rule) error {
	lx := lexmachine.NewLexer()
	for _, r := range rules {
		sym := r.Symbol
		lx.Add([]byte(r.Pattern), func(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
			return s.Token(int(sym), sym, m), nil
		})
	}
	if err := lx.Compile(); err != nil {
		return fmt.Errorf("lexmode: compiling state %d: %w", lexState, err)
	}
	b.states[lexState] = lx
	return nil
}

// SetKeywordRules compiles the keyword-resolution DFA: given the bytes
// of a just-lexed keyword-capture-token lexeme, decide which reserved
// word (if any) it actually names.
func (b *Bank) SetKeywordRules(rules []Rule) error {
	lx := lexmachine.NewLexer()
	for _, r := range rules {
		sym := r.Symbol
		lx.Add([]byte(r.Pattern), func(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
			return s.Token(int(sym), sym, m), nil
		})
	}
	if err := lx.Compile(); err != nil {
		return fmt.Errorf("lexmode: compiling keyword table: %w", err)
	}
	b.keyword = lx
	return nil
}

// Result is the outcome of one recognition attempt.
type Result struct {
	Symbol uint16
	Ok     bool
}

// Recognize runs lexState's DFA starting at l's current token-start
// position, consuming runes from l via Advance/MarkEnd and returning the
// matched symbol. It returns ok=false (without having advanced l's
// lookahead end) if no rule matches at this position.
func (b *Bank) Recognize(l *lexer.Lexer, lexState uint16) Result {
	lx, ok := b.states[lexState]
	if !ok {
		tracer().Errorf("no DFA registered for lex_state %d", lexState)
		return Result{}
	}
	return b.run(l, lx)
}

// RecognizeKeyword runs the keyword DFA over the already-lexed lexeme
// starting at tokenStart (captured via l.TokenStart before the caller
// reset l back to it).
func (b *Bank) RecognizeKeyword(l *lexer.Lexer) Result {
	if b.keyword == nil {
		return Result{}
	}
	return b.run(l, b.keyword)
}

// window is how many bytes of lookahead we materialize per recognition
// attempt; lexmachine needs a concrete []byte to scan.
const window = 4096

func (b *Bank) run(l *lexer.Lexer, lx *lexmachine.Lexer) Result {
	start, _ := l.TokenStart()

	// lexmachine wants one concrete []byte to scan; materialize a
	// lookahead window off a scratch copy of the cursor so the real
	// lexer l is only ever advanced by the winning match's byte length.
	// The shallow copy is safe: its slice-typed fields (chunk, ranges)
	// are read-only from here, never appended to in place.
	scratch := *l
	buf := make([]byte, 0, window)
	for len(buf) < window && !scratch.AtEOF() {
		r, ok := scratch.Advance(false)
		if !ok {
			break
		}
		buf = utf8.AppendRune(buf, r)
	}

	scanner, err := lx.Scanner(buf)
	if err != nil {
		tracer().Errorf("lexmode: scanner: %v", err)
		return Result{}
	}
	tok, err, eof := scanner.Next()
	if eof || err != nil || tok == nil {
		return Result{}
	}
	match := tok.(*lexmachine.Token)
	sym := match.Value.(uint16)

	// Replay the real lexer forward by exactly the matched byte count.
	matchLen := uint32(len(match.Lexeme))
	for {
		cur, _ := l.Position()
		if cur-start >= matchLen {
			break
		}
		if _, ok := l.Advance(false); !ok {
			break
		}
	}
	l.MarkEnd()
	return Result{Symbol: sym, Ok: true}
}
