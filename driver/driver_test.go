package driver

import (
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"

	"github.com/npillmayer/grit/lexmode"
	"github.com/npillmayer/grit/span"
	"github.com/npillmayer/grit/subtree"
	"github.com/npillmayer/grit/table"
)

func stringInput(s string) func(uint32, span.Point) ([]byte, bool) {
	b := []byte(s)
	return func(byteOffset uint32, _ span.Point) ([]byte, bool) {
		if int(byteOffset) >= len(b) {
			return nil, true
		}
		return b[byteOffset:], false
	}
}

// abLanguage builds a tiny grammar S -> a b, shared by every scenario
// below: state 0 shifts 'a' to state 1, state 1 shifts 'b' to state 2 (or,
// for the missing-token scenario, synthesizes a 'b' on EOF), state 2
// reduces to S on EOF, and state 3 (the goto target for S) accepts.
func abLanguage(withMissingB bool) (table.Language, *lexmode.Bank) {
	const (
		symA table.Symbol = 1
		symB table.Symbol = 2
		symS table.Symbol = 3
	)
	b := table.NewBuilder("ab")
	b.Name(symA, "a").Name(symB, "b").Name(symS, "S")
	for _, s := range []table.State{0, 1, 2, 3} {
		b.LexMode(s, table.LexMode{LexState: 0})
	}
	b.Shift(0, symA, 1, false)
	b.Shift(1, symB, 2, false)
	if withMissingB {
		b.RecoverInsert(1, table.EOF, symB)
	}
	b.Reduce(2, table.EOF, symS, 2, 0, 1)
	b.Goto(0, symS, 3)
	b.Accept(3, table.EOF)
	lang := b.Build()

	bank := lexmode.NewBank()
	if err := bank.AddState(0, []lexmode.Rule{
		{Pattern: "a", Symbol: uint16(symA)},
		{Pattern: "b", Symbol: uint16(symB)},
	}); err != nil {
		panic(err)
	}
	return lang, bank
}

func TestDriverPlainAccept(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "grit.driver")
	defer teardown()
	//
	lang, bank := abLanguage(false)
	pool := subtree.NewPool()
	d := New(lang, pool, bank, nil, stringInput("ab"), Options{})

	tree, err := d.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if pool.Symbol(tree) != 3 {
		t.Fatalf("expected root symbol S(3), got %d", pool.Symbol(tree))
	}
	if pool.ChildCount(tree) != 2 {
		t.Fatalf("expected 2 children, got %d", pool.ChildCount(tree))
	}
	if pool.Symbol(pool.Child(tree, 0)) != 1 || pool.Symbol(pool.Child(tree, 1)) != 2 {
		t.Fatalf("expected children [a b], got [%d %d]",
			pool.Symbol(pool.Child(tree, 0)), pool.Symbol(pool.Child(tree, 1)))
	}
	if got := pool.Footprint(tree); got.Bytes != 2 {
		t.Fatalf("expected root footprint 2 bytes, got %d", got.Bytes)
	}
}

func TestDriverMissingTokenInsertion(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "grit.driver")
	defer teardown()
	//
	lang, bank := abLanguage(true)
	pool := subtree.NewPool()
	d := New(lang, pool, bank, nil, stringInput("a"), Options{})

	tree, err := d.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if pool.Symbol(tree) != 3 {
		t.Fatalf("expected root symbol S(3), got %d", pool.Symbol(tree))
	}
	if pool.ChildCount(tree) != 2 {
		t.Fatalf("expected 2 children (a, missing b), got %d", pool.ChildCount(tree))
	}
	missing := pool.Child(tree, 1)
	if pool.Symbol(missing) != 2 {
		t.Fatalf("expected second child symbol b(2), got %d", pool.Symbol(missing))
	}
	if !pool.Has(missing, subtree.FlagMissing) {
		t.Fatal("expected the synthesized b to carry FlagMissing")
	}
	if got := pool.Footprint(tree); got.Bytes != 1 {
		t.Fatalf("expected root footprint 1 byte (only 'a' consumed bytes), got %d", got.Bytes)
	}
}

// TestDriverSkipsUnrecognizedBytes exercises lexical-error recovery:
// a byte no DFA rule matches is folded into an ERROR_REPEAT node rather
// than aborting the parse, and the parse still finishes covering every
// byte of the input. The exact tree shape around the recovered span is
// intentionally not pinned down here (it depends on GSS origin-state
// bookkeeping this grammar is too small to exercise meaningfully) — what
// matters is that Run succeeds, nothing is lost, and an error-flagged
// node is somewhere in the result.
func TestDriverSkipsUnrecognizedBytes(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "grit.driver")
	defer teardown()
	//
	lang, bank := abLanguage(false)
	pool := subtree.NewPool()
	d := New(lang, pool, bank, nil, stringInput("Xa"), Options{})

	// This fixture only has actions for symbol a at state 0; there is no
	// rule for "S -> a" alone, so the version never finds an ACCEPT action
	// and instead gets forced through the end-of-input-in-error path
	// once it pauses with nowhere left to recover to.
	// That's fine: we only care that lexing recovered from the garbage
	// byte and the parse still terminates with every byte accounted for,
	// not that this particular toy grammar completes a clean parse.
	tree, err := d.Run()
	if err != nil {
		t.Fatalf("Run: unexpected error %v", err)
	}
	if tree == subtree.Nil {
		t.Fatal("expected a non-nil tree from the forced error-accept path")
	}

	found := false
	var walk func(id subtree.ID)
	walk = func(id subtree.ID) {
		if id == subtree.Nil || found {
			return
		}
		if pool.Has(id, subtree.FlagIsError) {
			found = true
			return
		}
		for i := 0; i < pool.ChildCount(id); i++ {
			walk(pool.Child(id, i))
		}
	}
	walk(tree)
	if !found {
		t.Fatal("expected an error-flagged node to appear while recovering from the unrecognized byte")
	}
	if got := pool.Footprint(tree); got.Bytes != 2 {
		t.Fatalf("expected the whole 2-byte input accounted for, got %d", got.Bytes)
	}
}

// TestSelectTreePrefersHigherDynamicPrecedence pins the tie-break used
// when two versions derive the same symbol over the same span: the tree
// carrying the higher summed dynamic precedence wins, error trees lose
// to clean ones outright.
func TestSelectTreePrefersHigherDynamicPrecedence(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "grit.driver")
	defer teardown()
	//
	lang, bank := abLanguage(false)
	pool := subtree.NewPool()
	d := New(lang, pool, bank, nil, stringInput(""), Options{})

	leafA := pool.NewLeaf(1, span.Length{}, span.Length{Bytes: 1}, span.Length{}, 0)
	leafB := pool.NewLeaf(1, span.Length{}, span.Length{Bytes: 1}, span.Length{}, 0)
	low := pool.NewNode(9, 1, []subtree.ID{leafA}, 0, subtree.StateNone, 0)
	high := pool.NewNode(9, 2, []subtree.ID{leafB}, 5, subtree.StateNone, 0)

	if got := d.selectTree(low, high); got != high {
		t.Fatalf("expected the precedence-5 tree to win over precedence-0, got %v", got)
	}
	if got := d.selectTree(high, low); got != high {
		t.Fatalf("selection must not depend on argument order, got %v", got)
	}

	errLeaf := pool.NewErrorLeaf(span.Length{}, span.Length{Bytes: 1})
	errTree := pool.NewNode(9, 3, []subtree.ID{errLeaf}, 99, subtree.StateNone, subtree.FlagIsError)
	if got := d.selectTree(errTree, low); got != low {
		t.Fatal("a clean tree must beat an error tree regardless of precedence")
	}
}

// ambiguousLanguage builds a grammar with two productions for E, both
// deriving the single token x but carrying different dynamic
// precedences: a reduce-reduce conflict the driver must resolve by
// forking one version per reduction and letting the higher-precedence
// tree win.
func ambiguousLanguage() (table.Language, *lexmode.Bank) {
	const (
		symX table.Symbol = 1
		symE table.Symbol = 2
	)
	b := table.NewBuilder("amb")
	b.Name(symX, "x").Name(symE, "E")
	for _, s := range []table.State{0, 1, 2} {
		b.LexMode(s, table.LexMode{LexState: 0})
	}
	b.Shift(0, symX, 1, false)
	b.Reduce(1, table.EOF, symE, 1, 0, 1)
	b.Reduce(1, table.EOF, symE, 1, 5, 2)
	b.Goto(0, symE, 2)
	b.Accept(2, table.EOF)
	lang := b.Build()

	bank := lexmode.NewBank()
	if err := bank.AddState(0, []lexmode.Rule{{Pattern: "x", Symbol: uint16(symX)}}); err != nil {
		panic(err)
	}
	return lang, bank
}

// TestDriverAmbiguityResolvedByPrecedence drives the reduce-reduce
// conflict end to end: both reductions run against the same pre-reduce
// stack, the two resulting versions merge at the same (state, position),
// and accept picks the higher-precedence derivation as the root.
func TestDriverAmbiguityResolvedByPrecedence(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "grit.driver")
	defer teardown()
	//
	lang, bank := ambiguousLanguage()
	pool := subtree.NewPool()
	d := New(lang, pool, bank, nil, stringInput("x"), Options{})

	tree, err := d.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if pool.Symbol(tree) != 2 {
		t.Fatalf("expected root symbol E(2), got %d", pool.Symbol(tree))
	}
	if got := pool.DynamicPrecedence(tree); got != 5 {
		t.Fatalf("expected the precedence-5 derivation to win, got %d", got)
	}
	if got := pool.ProductionID(tree); got != 2 {
		t.Fatalf("expected production 2 at the root, got %d", got)
	}
	if got := pool.Footprint(tree); got.Bytes != 1 {
		t.Fatalf("expected the whole 1-byte input covered, got %d", got.Bytes)
	}
	if got := pool.ChildCount(tree); got != 1 {
		t.Fatalf("expected E over the single x leaf, got %d children", got)
	}
}
