package gss

import (
	"testing"

	"github.com/npillmayer/grit/span"
	"github.com/npillmayer/grit/subtree"
	"github.com/npillmayer/grit/table"
)

func TestPushAdvancesStateAndPosition(t *testing.T) {
	pool := subtree.NewPool()
	g := NewGraph(pool)
	v := g.NewVersion(0)

	leaf := pool.NewLeaf(1, span.Length{}, span.Length{Bytes: 3}, span.Length{}, 0)
	v.Push(5, leaf)

	if v.State != 5 {
		t.Fatalf("State: got %d want 5", v.State)
	}
	if v.Position.Bytes != 3 {
		t.Fatalf("Position: got %d want 3", v.Position.Bytes)
	}
}

func TestPopNReturnsPushedChildrenInOrder(t *testing.T) {
	pool := subtree.NewPool()
	g := NewGraph(pool)
	v := g.NewVersion(0)

	a := pool.NewLeaf(1, span.Length{}, span.Length{Bytes: 1}, span.Length{}, 0)
	b := pool.NewLeaf(2, span.Length{}, span.Length{Bytes: 1}, span.Length{}, 0)
	v.Push(1, a)
	v.Push(2, b)

	slices := v.PopN(2)
	if len(slices) != 1 {
		t.Fatalf("expected a single unambiguous slice, got %d", len(slices))
	}
	got := slices[0].Children
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Fatalf("expected [a b] in source order, got %v", got)
	}
	if slices[0].Origin != Root {
		t.Fatalf("expected origin to be Root after popping everything, got %v", slices[0].Origin)
	}
}

func TestPositionIsUnchangedAcrossAReduce(t *testing.T) {
	pool := subtree.NewPool()
	g := NewGraph(pool)
	v := g.NewVersion(0)

	a := pool.NewLeaf(1, span.Length{}, span.Length{Bytes: 2}, span.Length{}, 0)
	b := pool.NewLeaf(2, span.Length{}, span.Length{Bytes: 3}, span.Length{}, 0)
	v.Push(1, a)
	v.Push(2, b)
	if v.Position.Bytes != 5 {
		t.Fatalf("after two shifts expected position 5, got %d", v.Position.Bytes)
	}

	slices := v.PopN(2)
	if len(slices) != 1 {
		t.Fatalf("expected one slice, got %d", len(slices))
	}
	// Popping must undo exactly what the two Pushes added, landing back
	// at the pre-shift position.
	if v.Position.Bytes != 0 {
		t.Fatalf("expected position 0 immediately after popping everything back to Root, got %d", v.Position.Bytes)
	}

	parent := pool.NewNode(10, 0, slices[0].Children, 0, 0, 0)
	v.Push(3, parent)
	// The reduced parent's footprint equals the sum of its children's
	// footprints, so re-pushing it must restore the original position
	// rather than doubling it.
	if v.Position.Bytes != 5 {
		t.Fatalf("expected position 5 after re-pushing the reduced parent, got %d", v.Position.Bytes)
	}
}

func TestPopNStackUnderflowYieldsNoSlices(t *testing.T) {
	pool := subtree.NewPool()
	g := NewGraph(pool)
	v := g.NewVersion(0)
	if slices := v.PopN(1); len(slices) != 0 {
		t.Fatalf("popping more than was pushed must yield no slices, got %d", len(slices))
	}
}

func TestPauseResumeRoundTrips(t *testing.T) {
	pool := subtree.NewPool()
	g := NewGraph(pool)
	v := g.NewVersion(0)
	tok := pool.NewLeaf(1, span.Length{}, span.Length{Bytes: 1}, span.Length{}, 0)

	costBefore := v.ErrorCost
	v.Pause(tok)
	if !v.Paused {
		t.Fatal("Pause must set Paused")
	}
	if v.ErrorCost != costBefore+span.ErrorCostPerSkippedTree {
		t.Fatalf("Pause must charge ErrorCostPerSkippedTree, got delta %d", v.ErrorCost-costBefore)
	}
	got := v.Resume()
	if got != tok {
		t.Fatalf("Resume must return the parked lookahead, got %v want %v", got, tok)
	}
	if v.Paused {
		t.Fatal("Resume must clear Paused")
	}
}

func TestSummaryCapsAtMaxDepth(t *testing.T) {
	pool := subtree.NewPool()
	g := NewGraph(pool)
	v := g.NewVersion(0)
	for i := uint32(0); i < span.MaxSummaryDepth+5; i++ {
		v.PushSummary(table.State(i), i)
	}
	got := v.Summary()
	if uint32(len(got)) != span.MaxSummaryDepth {
		t.Fatalf("summary should be capped at %d entries, got %d", span.MaxSummaryDepth, len(got))
	}
	// Oldest entries should have been evicted: the remaining window is the
	// most recently pushed MaxSummaryDepth states.
	firstExpected := table.State(5)
	if got[0].State != firstExpected {
		t.Fatalf("expected oldest surviving entry state %d, got %d", firstExpected, got[0].State)
	}
}

func TestClearSummaryEmpties(t *testing.T) {
	pool := subtree.NewPool()
	g := NewGraph(pool)
	v := g.NewVersion(0)
	v.PushSummary(1, 1)
	v.ClearSummary()
	if got := v.Summary(); len(got) != 0 {
		t.Fatalf("expected empty summary after Clear, got %d entries", len(got))
	}
}

func TestTryMergeSameStateAndPosition(t *testing.T) {
	pool := subtree.NewPool()
	g := NewGraph(pool)
	v1 := g.NewVersion(0)
	v2 := g.NewVersion(0)

	tok := pool.NewLeaf(1, span.Length{}, span.Length{Bytes: 2}, span.Length{}, 0)
	v1.Push(5, tok)
	v2.Push(5, tok)

	if v1.State != v2.State || v1.Position != v2.Position {
		t.Fatal("test setup expects matching (state, position)")
	}
	if !v1.TryMerge(v2) {
		t.Fatal("versions at the same (state, position) must merge")
	}
	// Each Push allocates its own stack node, so v1 gains v2's node as a
	// second alternative top; the identical slices the two tops yield are
	// collapsed when popped.
	if len(v1.Tops()) != 2 {
		t.Fatalf("merging two versions with distinct top nodes should keep both as alternatives, got %d", len(v1.Tops()))
	}
	if got := v1.PopAll(); len(got) != 1 {
		t.Fatalf("identical histories under the two tops should pop as one slice, got %d", len(got))
	}
}

func TestTryMergeDifferentPositionFails(t *testing.T) {
	pool := subtree.NewPool()
	g := NewGraph(pool)
	v1 := g.NewVersion(0)
	v2 := g.NewVersion(0)
	tok1 := pool.NewLeaf(1, span.Length{}, span.Length{Bytes: 1}, span.Length{}, 0)
	tok2 := pool.NewLeaf(1, span.Length{}, span.Length{Bytes: 2}, span.Length{}, 0)
	v1.Push(5, tok1)
	v2.Push(5, tok2)
	if v1.TryMerge(v2) {
		t.Fatal("versions at different positions must not merge")
	}
}

// TestMergeAfterIndependentRecoveries exercises two stack versions
// merging at recovery time, a branch that is hard to reach through a
// full grammar-driven parse but still worth pinning down: two versions that diverged (e.g. one
// skipped an error token, one inserted a missing token) can still
// converge back onto the same (state, position) and merge into one,
// carrying forward alternative tops rather than needing a single fused
// node (see package doc).
func TestMergeAfterIndependentRecoveries(t *testing.T) {
	pool := subtree.NewPool()
	g := NewGraph(pool)

	v1 := g.NewVersion(0)
	errTok := pool.NewErrorLeaf(span.Length{}, span.Length{Bytes: 1})
	v1.Push(5, errTok) // v1 recovered by wrapping a skipped byte

	v2 := g.NewVersion(0)
	missing := pool.NewMissing(9, span.Length{})
	v2.Push(4, missing) // v2 recovered by inserting a missing token...
	tok := pool.NewLeaf(1, span.Length{}, span.Length{Bytes: 1}, span.Length{}, 0)
	v2.Push(5, tok) // ...and then shifted the 1-byte token v1 skipped

	// Both recoveries land on state 5 at byte 1: v1's error leaf covers
	// the byte, while v2's missing token is zero-width and the shifted
	// token covers it.
	if v1.State != v2.State {
		t.Fatalf("expected both recoveries to land on state 5, got %d and %d", v1.State, v2.State)
	}

	merged := v1.TryMerge(v2)
	if v1.Position == v2.Position && !merged {
		t.Fatal("equal (state, position) versions must merge")
	}
	if v1.Position != v2.Position && merged {
		t.Fatal("TryMerge must not merge versions at different positions")
	}
}
