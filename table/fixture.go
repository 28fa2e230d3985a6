package table

// Builder assembles small, hand-written Language fixtures for tests. It
// builds a table directly rather than deriving one from grammar rules,
// since table construction itself is out of scope here.
//
//	b := table.NewBuilder("tiny")
//	b.Shift(0, symA, 1, false)
//	b.Reduce(1, EOF, symS, 2 /*children*/, 0 /*prec*/, 0)
//	b.Goto(0, symS, 9)
//	lang := b.Build()
type Builder struct {
	name        string
	lex         map[State]LexMode
	actions     map[stateSymbol][]Action
	gotos       map[stateSymbol]State
	reserved    map[stateSymbol]bool
	reusable    map[stateSymbol]bool
	extra       map[Symbol]bool
	names       map[Symbol]string
	keywordTok  Symbol
	wordTok     Symbol
	extScanner  ExternalScannerABI
}

type stateSymbol struct {
	state  State
	symbol Symbol
}

// NewBuilder creates an empty fixture builder.
func NewBuilder(name string) *Builder {
	return &Builder{
		name:     name,
		lex:      map[State]LexMode{},
		actions:  map[stateSymbol][]Action{},
		gotos:    map[stateSymbol]State{},
		reserved: map[stateSymbol]bool{},
		reusable: map[stateSymbol]bool{},
		extra:    map[Symbol]bool{},
		names:    map[Symbol]string{0: "$EOF"},
	}
}

// Name sets the symbol's display name.
func (b *Builder) Name(sym Symbol, name string) *Builder {
	b.names[sym] = name
	return b
}

// LexMode sets the lexer mode for a state.
func (b *Builder) LexMode(state State, mode LexMode) *Builder {
	b.lex[state] = mode
	return b
}

// Shift adds a shift action for (state, symbol) -> next.
func (b *Builder) Shift(state State, symbol Symbol, next State, extra bool) *Builder {
	key := stateSymbol{state, symbol}
	b.actions[key] = append(b.actions[key], Action{Kind: Shift, State: next, Extra: extra})
	return b
}

// Reduce adds a reduce action for (state, symbol).
func (b *Builder) Reduce(state State, symbol Symbol, lhs Symbol, childCount uint16, prec int32, productionID uint32) *Builder {
	key := stateSymbol{state, symbol}
	b.actions[key] = append(b.actions[key], Action{
		Kind: Reduce, Symbol: lhs, ChildCount: childCount,
		DynamicPrecedence: prec, ProductionID: productionID,
	})
	return b
}

// Accept adds an accept action for (state, symbol).
func (b *Builder) Accept(state State, symbol Symbol) *Builder {
	key := stateSymbol{state, symbol}
	b.actions[key] = append(b.actions[key], Action{Kind: Accept})
	return b
}

// Recover adds a plain recover action for (state, symbol), with no
// missing-token symbol to synthesize (driver.recoverToState/skipLookahead
// apply instead of driver.insertMissingToken).
func (b *Builder) Recover(state State, symbol Symbol) *Builder {
	key := stateSymbol{state, symbol}
	b.actions[key] = append(b.actions[key], Action{Kind: Recover})
	return b
}

// RecoverInsert adds a recover action for (state, symbol) naming missing
// as the symbol driver.insertMissingToken should synthesize and push
// before retrying the real lookahead.
func (b *Builder) RecoverInsert(state State, symbol, missing Symbol) *Builder {
	key := stateSymbol{state, symbol}
	b.actions[key] = append(b.actions[key], Action{Kind: Recover, Symbol: missing})
	return b
}

// Goto records the goto transition for (state, symbol).
func (b *Builder) Goto(state State, symbol Symbol, next State) *Builder {
	b.gotos[stateSymbol{state, symbol}] = next
	return b
}

// Reserved marks symbol as a reserved word in state.
func (b *Builder) Reserved(state State, symbol Symbol) *Builder {
	b.reserved[stateSymbol{state, symbol}] = true
	return b
}

// Reusable marks (state, symbol) as a reusable-leaf table entry.
func (b *Builder) Reusable(state State, symbol Symbol) *Builder {
	b.reusable[stateSymbol{state, symbol}] = true
	return b
}

// Extra marks symbol as an "extra" token.
func (b *Builder) Extra(symbol Symbol) *Builder {
	b.extra[symbol] = true
	return b
}

// KeywordCaptureToken sets the symbol the lexer produces for any
// identifier-shaped lexeme before keyword resolution.
func (b *Builder) KeywordCaptureToken(sym Symbol) *Builder {
	b.keywordTok = sym
	return b
}

// DefaultWordToken sets the fallback word-token symbol.
func (b *Builder) DefaultWordToken(sym Symbol) *Builder {
	b.wordTok = sym
	return b
}

// ExternalScanner attaches an external scanner ABI to the built language.
func (b *Builder) ExternalScanner(abi ExternalScannerABI) *Builder {
	b.extScanner = abi
	return b
}

// Build freezes the builder into an immutable Language.
func (b *Builder) Build() Language {
	return &fixtureLanguage{
		name:       b.name,
		lex:        cloneLex(b.lex),
		actions:    cloneActions(b.actions),
		gotos:      cloneGotos(b.gotos),
		reserved:   cloneBools(b.reserved),
		reusable:   cloneBools(b.reusable),
		extra:      cloneExtra(b.extra),
		names:      cloneNames(b.names),
		keywordTok: b.keywordTok,
		wordTok:    b.wordTok,
		extScanner: b.extScanner,
	}
}

func cloneLex(m map[State]LexMode) map[State]LexMode {
	out := make(map[State]LexMode, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneActions(m map[stateSymbol][]Action) map[stateSymbol][]Action {
	out := make(map[stateSymbol][]Action, len(m))
	for k, v := range m {
		cp := make([]Action, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

func cloneGotos(m map[stateSymbol]State) map[stateSymbol]State {
	out := make(map[stateSymbol]State, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneBools(m map[stateSymbol]bool) map[stateSymbol]bool {
	out := make(map[stateSymbol]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneExtra(m map[Symbol]bool) map[Symbol]bool {
	out := make(map[Symbol]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneNames(m map[Symbol]string) map[Symbol]string {
	out := make(map[Symbol]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type fixtureLanguage struct {
	name       string
	lex        map[State]LexMode
	actions    map[stateSymbol][]Action
	gotos      map[stateSymbol]State
	reserved   map[stateSymbol]bool
	reusable   map[stateSymbol]bool
	extra      map[Symbol]bool
	names      map[Symbol]string
	keywordTok Symbol
	wordTok    Symbol
	extScanner ExternalScannerABI
}

func (f *fixtureLanguage) Name() string { return f.name }

func (f *fixtureLanguage) LexMode(state State) LexMode {
	return f.lex[state]
}

func (f *fixtureLanguage) Actions(state State, symbol Symbol) []Action {
	return f.actions[stateSymbol{state, symbol}]
}

func (f *fixtureLanguage) HasActions(state State, symbol Symbol) bool {
	return len(f.actions[stateSymbol{state, symbol}]) > 0
}

func (f *fixtureLanguage) Goto(state State, symbol Symbol) State {
	if next, ok := f.gotos[stateSymbol{state, symbol}]; ok {
		return next
	}
	// For a terminal, the successor state is the shift action's target;
	// only non-terminals need an explicit goto entry.
	for _, a := range f.actions[stateSymbol{state, symbol}] {
		if a.Kind == Shift {
			return a.State
		}
	}
	return 0
}

func (f *fixtureLanguage) IsReservedWord(state State, symbol Symbol) bool {
	return f.reserved[stateSymbol{state, symbol}]
}

func (f *fixtureLanguage) IsReusableLeaf(state State, symbol Symbol) bool {
	return f.reusable[stateSymbol{state, symbol}]
}

func (f *fixtureLanguage) KeywordCaptureToken() Symbol { return f.keywordTok }

func (f *fixtureLanguage) DefaultWordToken() Symbol { return f.wordTok }

func (f *fixtureLanguage) ExtraSymbol(symbol Symbol) bool { return f.extra[symbol] }

func (f *fixtureLanguage) SymbolName(symbol Symbol) string {
	if n, ok := f.names[symbol]; ok {
		return n
	}
	return "?"
}

func (f *fixtureLanguage) ExternalScanner() ExternalScannerABI { return f.extScanner }
