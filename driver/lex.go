package driver

import (
	"github.com/npillmayer/grit/gss"
	"github.com/npillmayer/grit/span"
	"github.com/npillmayer/grit/subtree"
	"github.com/npillmayer/grit/table"
)

// lexOne computes the next lookahead: try the token cache, then the external
// scanner (if the state's lex mode calls for one), then the internal
// lexmachine bank; extras fold into padding and are skipped past. Bytes
// nothing recognizes are accumulated into an error span and returned as
// a single error leaf once a recognizable token (or EOF) is reached; the
// lexer is rewound to the point that error span ends at so the next
// lexOne call re-lexes the real token from scratch. Keyword-capture tokens are resolved against the keyword
// DFA and, absent an action for the resolved reserved word, rewritten to
// the language's default word token.
func (d *Driver) lexOne(v *gss.Version) (subtree.ID, error) {
	mode := d.lang.LexMode(table.State(v.State))
	if !mode.HasLookahead() {
		return subtree.Nil, nil
	}

	// Re-sync the lexer to this version's position: versions sit at
	// different offsets, and a version retrying a lookahead it did not
	// consume (missing-token insertion, stack breakdown) needs the lexer
	// rewound to where that token starts. The rewind is what makes the
	// token cache hit on the retry instead of re-lexing.
	if pos, _ := d.lex.Position(); pos != v.Position.Bytes {
		d.lex.Reset(v.Position.Bytes, v.Position.Point)
	}

	// Tokens are cached at the offset lexing began, leading extras
	// included, which is exactly where a retrying version's lexer gets
	// reset to.
	tokenPos, _ := d.lex.Position()
	if cached, ok := d.cache.Get(tokenPos, v.LastExternalToken); ok {
		// The cache's reference stays with the cache; the caller gets its
		// own.
		return d.pool.Retain(cached), nil
	}

	var padding span.Length
	var errStart uint32
	var errStartPoint span.Point
	haveErr := false

	for {
		start, startPoint := d.lex.Position()
		d.lex.StartToken()

		if d.lex.AtEOF() {
			if haveErr {
				return d.emitErrorSpan(errStart, errStartPoint, start, startPoint, padding), nil
			}
			leaf := d.pool.NewLeaf(uint16(table.EOF), padding, span.Length{}, span.Length{}, 0)
			d.cache.Store(leaf, tokenPos, v.LastExternalToken)
			return leaf, nil
		}

		if sym, extState, ok := d.tryExternal(mode, v); ok {
			if haveErr {
				d.lex.Reset(start, startPoint)
				return d.emitErrorSpan(errStart, errStartPoint, start, startPoint, padding), nil
			}
			size, lookahead := d.tokenExtent(start)
			leaf := d.pool.NewExternalLeaf(uint16(sym), padding, size, lookahead, extState, subtree.FlagHasExternalTokens)
			v.LastExternalToken = extState
			d.cache.Store(leaf, tokenPos, extState)
			return leaf, nil
		}

		res := d.bank.Recognize(d.lex, mode.LexState)
		if !res.Ok {
			if !haveErr {
				errStart, errStartPoint = start, startPoint
				haveErr = true
			}
			if _, ok := d.lex.Advance(false); !ok {
				end, endPoint := d.lex.Position()
				return d.emitErrorSpan(errStart, errStartPoint, end, endPoint, padding), nil
			}
			d.lex.MarkEnd()
			continue
		}

		if haveErr {
			// A real token begins at start: rewind past it and flush the
			// accumulated error span first; the token itself is re-lexed
			// on the next call.
			d.lex.Reset(start, startPoint)
			return d.emitErrorSpan(errStart, errStartPoint, start, startPoint, padding), nil
		}

		sym := res.Symbol
		if table.Symbol(sym) == d.lang.KeywordCaptureToken() {
			resolved := sym
			// The keyword DFA has to see the lexeme itself: rewind to the
			// token start, adopt its match only if it ends where the token
			// ends, then put the lexer back at the token's end.
			endPos, endPoint := d.lex.Position()
			d.lex.Reset(start, startPoint)
			d.lex.StartToken()
			if kw := d.bank.RecognizeKeyword(d.lex); kw.Ok {
				if kwEnd, _ := d.lex.Position(); kwEnd == endPos {
					resolved = kw.Symbol
				}
			}
			d.lex.Reset(endPos, endPoint)
			d.lex.MarkEnd()
			state := table.State(v.State)
			if !d.lang.HasActions(state, table.Symbol(resolved)) && !d.lang.IsReservedWord(state, table.Symbol(resolved)) {
				resolved = uint16(d.lang.DefaultWordToken())
			}
			sym = resolved
		}

		size, lookahead := d.tokenExtent(start)
		if d.lang.ExtraSymbol(table.Symbol(sym)) {
			padding = padding.Add(size)
			continue
		}

		leaf := d.pool.NewLeaf(sym, padding, size, lookahead, 0)
		d.cache.Store(leaf, tokenPos, v.LastExternalToken)
		return leaf, nil
	}
}

// tryExternal attempts the external scanner when mode calls for one,
// restricted to the symbols with an action in v's current state, and
// returns the resolved table.Symbol plus the scanner's serialized state
// on success.
func (d *Driver) tryExternal(mode table.LexMode, v *gss.Version) (uint16, []byte, bool) {
	if mode.ExternalLexState == 0 || d.ext == nil {
		return 0, nil, false
	}
	if len(v.LastExternalToken) > 0 {
		d.ext.Deserialize(v.LastExternalToken)
	}
	count := d.ext.SymbolCount()
	if count == 0 {
		return 0, nil, false
	}
	valid := make([]bool, count)
	state := table.State(v.State)
	for i := 0; i < count; i++ {
		if d.lang.HasActions(state, d.ext.Symbol(i)) {
			valid[i] = true
		}
	}
	ok, sym := d.ext.Scan(d.lex, valid)
	if !ok {
		return 0, nil, false
	}
	buf := make([]byte, 256)
	state2 := d.ext.Serialize(buf)
	return uint16(sym), state2, true
}

// emitErrorSpan builds the error leaf for a run of unrecognized bytes
// [start,end), carrying whatever extras-padding had accumulated before
// the bad bytes began.
func (d *Driver) emitErrorSpan(start uint32, startPoint span.Point, end uint32, endPoint span.Point, padding span.Length) subtree.ID {
	size := span.Length{Bytes: end - start, Point: pointDelta(startPoint, endPoint)}
	return d.pool.NewErrorLeaf(padding, size)
}

// tokenExtent reads the just-finished token's size and lookahead-past-end
// length off the lexer, relative to start.
func (d *Driver) tokenExtent(start uint32) (size, lookahead span.Length) {
	tokenStart, end, startPoint, endPoint, lookaheadPast := d.lex.Finish()
	_ = tokenStart
	size = span.Length{Bytes: end - start, Point: pointDelta(startPoint, endPoint)}
	lookahead = span.Length{Bytes: lookaheadPast}
	return
}

func pointDelta(a, b span.Point) span.Point {
	if b.Row > a.Row {
		return span.Point{Row: b.Row - a.Row, Column: b.Column}
	}
	return span.Point{Row: 0, Column: b.Column - a.Column}
}

// pointAdd offsets position a by the (row, column) delta of a Length.
func pointAdd(a, delta span.Point) span.Point {
	if delta.Row > 0 {
		return span.Point{Row: a.Row + delta.Row, Column: delta.Column}
	}
	return span.Point{Row: a.Row, Column: a.Column + delta.Column}
}
