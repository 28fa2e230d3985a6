package grit

import (
	"strings"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"

	"github.com/npillmayer/grit/driver"
	"github.com/npillmayer/grit/lexmode"
	"github.com/npillmayer/grit/subtree"
	"github.com/npillmayer/grit/table"
)

// abcLanguage builds a tiny grammar S -> a b c: one shift per symbol,
// then a single reduce on EOF.
func abcLanguage() (table.Language, *lexmode.Bank) {
	const (
		symA table.Symbol = 1
		symB table.Symbol = 2
		symC table.Symbol = 3
		symS table.Symbol = 4
	)
	b := table.NewBuilder("abc")
	for _, s := range []table.State{0, 1, 2, 3} {
		b.LexMode(s, table.LexMode{LexState: 0})
	}
	b.Shift(0, symA, 1, false)
	b.Shift(1, symB, 2, false)
	b.Shift(2, symC, 3, false)
	b.Reusable(0, symA).Reusable(1, symB).Reusable(2, symC)
	b.Reduce(3, table.EOF, symS, 3, 0, 1)
	b.Goto(0, symS, 9)
	b.Accept(9, table.EOF)
	lang := b.Build()

	bank := lexmode.NewBank()
	if err := bank.AddState(0, []lexmode.Rule{
		{Pattern: "a", Symbol: uint16(symA)},
		{Pattern: "b", Symbol: uint16(symB)},
		{Pattern: "c", Symbol: uint16(symC)},
	}); err != nil {
		panic(err)
	}
	return lang, bank
}

func TestParserParseStringAccepts(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "grit")
	defer teardown()
	//
	lang, bank := abcLanguage()
	p := NewParser(lang, bank, nil)

	tree, err := p.ParseString([]byte("abc"))
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	if p.pool.Symbol(tree) != 4 {
		t.Fatalf("expected root symbol S(4), got %d", p.pool.Symbol(tree))
	}
	if p.pool.ChildCount(tree) != 3 {
		t.Fatalf("expected 3 children, got %d", p.pool.ChildCount(tree))
	}
	if got := p.pool.Footprint(tree); got.Bytes != 3 {
		t.Fatalf("expected footprint 3 bytes, got %d", got.Bytes)
	}
}

// TestParserReparseAfterEditStillAccepts exercises the Edit/SetOldTree/
// reuse-cursor wiring end to end: a second Parse call over the same text,
// preceded by a small Edit, must still produce the same shape of tree
// rather than erroring or corrupting the result.
func TestParserReparseAfterEditStillAccepts(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "grit")
	defer teardown()
	//
	lang, bank := abcLanguage()
	p := NewParser(lang, bank, nil)

	first, err := p.ParseString([]byte("abc"))
	if err != nil {
		t.Fatalf("first ParseString: %v", err)
	}
	if p.pool.ChildCount(first) != 3 {
		t.Fatalf("expected 3 children after first parse, got %d", p.pool.ChildCount(first))
	}

	// Mark the middle byte ('b') as having been rewritten in place, same
	// length, so the reuse cursor is exercised without actually changing
	// the text fed to the second Parse call.
	p.Edit(Edit{
		StartByte: 1, OldEndByte: 2, NewEndByte: 2,
		StartPoint: Point{Row: 0, Column: 1}, OldEndPoint: Point{Row: 0, Column: 2}, NewEndPoint: Point{Row: 0, Column: 2},
	})

	second, err := p.ParseString([]byte("abc"))
	if err != nil {
		t.Fatalf("second ParseString: %v", err)
	}
	if p.pool.Symbol(second) != 4 {
		t.Fatalf("expected root symbol S(4) after reparse, got %d", p.pool.Symbol(second))
	}
	if p.pool.ChildCount(second) != 3 {
		t.Fatalf("expected 3 children after reparse, got %d", p.pool.ChildCount(second))
	}
	if got := p.pool.Footprint(second); got.Bytes != 3 {
		t.Fatalf("expected footprint 3 bytes after reparse, got %d", got.Bytes)
	}
}

// repeatingLanguage builds a grammar that just shifts 'a' back onto
// itself forever and accepts on EOF, used to drive the driver through
// enough rounds to cross a grit.OpCountPerParserTimeoutCheck boundary.
func repeatingLanguage() (table.Language, *lexmode.Bank) {
	const symA table.Symbol = 1
	b := table.NewBuilder("repeat")
	b.LexMode(0, table.LexMode{LexState: 0})
	b.Shift(0, symA, 0, false)
	b.Accept(0, table.EOF)
	lang := b.Build()

	bank := lexmode.NewBank()
	if err := bank.AddState(0, []lexmode.Rule{{Pattern: "a", Symbol: uint16(symA)}}); err != nil {
		panic(err)
	}
	return lang, bank
}

// TestParserCancellationResumes checks that a Parse call stopped by the
// progress callback returns ErrCancelled, and the following Parse call on
// the same Parser picks the same driver state back up and finishes,
// rather than restarting the input from byte zero.
func TestParserCancellationResumes(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "grit")
	defer teardown()
	//
	lang, bank := repeatingLanguage()
	p := NewParser(lang, bank, nil)

	calls := 0
	p.SetProgressCallback(func(driver.ProgressState) bool {
		calls++
		return calls == 1
	})

	input := strings.Repeat("a", 150)
	tree, err := p.ParseString([]byte(input))
	if err != ErrCancelled {
		t.Fatalf("expected ErrCancelled on the first call, got %v (tree %v)", err, tree)
	}
	if tree != subtree.Nil {
		t.Fatalf("expected no tree on a cancelled parse, got %v", tree)
	}
	if p.resumeDriver == nil {
		t.Fatal("expected resumeDriver to be retained after cancellation")
	}

	tree, err = p.ParseString([]byte(input))
	if err != nil {
		t.Fatalf("resumed ParseString: %v", err)
	}
	if tree == subtree.Nil {
		t.Fatal("expected a tree from the resumed parse")
	}
	if p.resumeDriver != nil {
		t.Fatal("expected resumeDriver to be cleared after a successful resumed parse")
	}
	if got := p.pool.Footprint(tree); got.Bytes != 150 {
		t.Fatalf("expected the whole 150-byte input accounted for, got %d", got.Bytes)
	}
}

// TestParserIncrementalReuseSharesLeaves checks that a reparse after an
// edit reuses the untouched leaves by identity: the edit rewrites only
// the middle byte, so the first and last leaf of the new tree must be
// the very same pool handles as in the old tree, not re-lexed copies.
func TestParserIncrementalReuseSharesLeaves(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "grit")
	defer teardown()
	//
	lang, bank := abcLanguage()
	p := NewParser(lang, bank, nil)

	first, err := p.ParseString([]byte("abc"))
	if err != nil {
		t.Fatalf("first ParseString: %v", err)
	}
	oldA := p.pool.Child(first, 0)
	oldB := p.pool.Child(first, 1)
	oldC := p.pool.Child(first, 2)

	p.Edit(Edit{
		StartByte: 1, OldEndByte: 2, NewEndByte: 2,
		StartPoint: Point{Row: 0, Column: 1}, OldEndPoint: Point{Row: 0, Column: 2}, NewEndPoint: Point{Row: 0, Column: 2},
	})
	second, err := p.ParseString([]byte("abc"))
	if err != nil {
		t.Fatalf("second ParseString: %v", err)
	}
	if got := p.pool.Child(second, 0); got != oldA {
		t.Fatalf("leaf a should be reused by identity: got %v want %v", got, oldA)
	}
	if got := p.pool.Child(second, 2); got != oldC {
		t.Fatalf("leaf c should be reused by identity: got %v want %v", got, oldC)
	}
	if got := p.pool.Child(second, 1); got == oldB {
		t.Fatal("the edited leaf b must have been re-lexed, not reused")
	}
}
