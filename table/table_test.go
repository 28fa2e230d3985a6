package table

import "testing"

func TestBuilderRoundTripsActionsAndGotos(t *testing.T) {
	const symA Symbol = 1
	const symS Symbol = 2

	lang := NewBuilder("tiny").
		Shift(0, symA, 1, false).
		Reduce(1, EOF, symS, 1, 0, 42).
		Accept(2, EOF).
		Goto(0, symS, 2).
		Name(symA, "a").
		Name(symS, "S").
		Build()

	if lang.Name() != "tiny" {
		t.Fatalf("Name: got %q", lang.Name())
	}
	if !lang.HasActions(0, symA) {
		t.Fatal("expected a shift action at (0, a)")
	}
	actions := lang.Actions(0, symA)
	if len(actions) != 1 || actions[0].Kind != Shift || actions[0].State != 1 {
		t.Fatalf("unexpected actions: %+v", actions)
	}
	if got := lang.Goto(0, symS); got != 2 {
		t.Fatalf("Goto: got %d want 2", got)
	}
	if lang.SymbolName(symA) != "a" {
		t.Fatalf("SymbolName: got %q", lang.SymbolName(symA))
	}
	if lang.SymbolName(Symbol(999)) != "?" {
		t.Fatal("unnamed symbol should render as ?")
	}
}

func TestBuilderReservedAndReusableFlags(t *testing.T) {
	const kw Symbol = 3
	lang := NewBuilder("t").Reserved(0, kw).Reusable(0, kw).Build()
	if !lang.IsReservedWord(0, kw) {
		t.Fatal("expected kw reserved in state 0")
	}
	if !lang.IsReusableLeaf(0, kw) {
		t.Fatal("expected kw reusable in state 0")
	}
	if lang.IsReservedWord(1, kw) {
		t.Fatal("reserved flag must not leak to other states")
	}
}

func TestLexModeHasLookahead(t *testing.T) {
	m := LexMode{LexState: NoLookaheadLexState}
	if m.HasLookahead() {
		t.Fatal("NoLookaheadLexState must report HasLookahead() == false")
	}
	m2 := LexMode{LexState: 0}
	if !m2.HasLookahead() {
		t.Fatal("an ordinary lex state must report HasLookahead() == true")
	}
}

func TestActionOrderIsPreserved(t *testing.T) {
	const symX Symbol = 9
	b := NewBuilder("t")
	b.Reduce(0, symX, 1, 1, 0, 1)
	b.Reduce(0, symX, 1, 1, 0, 2)
	actions := b.Build().Actions(0, symX)
	if len(actions) != 2 || actions[0].ProductionID != 1 || actions[1].ProductionID != 2 {
		t.Fatalf("expected actions in insertion order, got %+v", actions)
	}
}
