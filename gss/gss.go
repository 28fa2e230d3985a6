/*
Package gss implements the graph-structured parse stack: a DAG of arena-
indexed stack nodes shared across GSS versions, with push/pop/pause/
resume/merge and the per-version recovery summary ring. Nodes
are addressed by integer index into an arena rather than by pointer, so
merges and removals stay cheap and the graph is trivially walkable for
debugging (see package debug).

A version's "top" is not a single node but a small set of alternative
top nodes: when two versions are found equivalent at the same (state,
position) and merged, the survivor simply gains the other's top as an
additional alternative, rather than physically unifying subtrees. Pop
then explores every alternative (and every merge point along the way),
yielding one slice per distinct history: multiple paths exist wherever
earlier merges joined stacks back together.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>
*/
package gss

import (
	"github.com/emirpasic/gods/lists/arraylist"
	"github.com/npillmayer/grit/span"
	"github.com/npillmayer/grit/subtree"
	"github.com/npillmayer/grit/table"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key "grit.gss".
func tracer() tracing.Trace {
	return tracing.Select("grit.gss")
}

// NodeID indexes a stack node in a Graph's arena. Root is the sentinel
// base of every version, below which there is nothing left to pop.
type NodeID int32

// Root is the sentinel node every version starts on top of.
const Root NodeID = -1

type stackNode struct {
	state    table.State
	subtree  subtree.ID
	parents  []NodeID
	refcount int32
}

// Graph is the arena backing every version's stack. It owns subtree
// refcounts for nodes it creates via Push, and releases them when a node
// becomes unreachable.
type Graph struct {
	pool  *subtree.Pool
	nodes []stackNode
	free  []NodeID
}

// NewGraph creates an empty graph backed by pool for subtree refcounts.
func NewGraph(pool *subtree.Pool) *Graph {
	return &Graph{pool: pool}
}

// NodeCount returns the number of arena slots ever allocated, including
// freed ones still holding their index. Exported for debug.WriteDot, which
// walks every slot to render the GSS.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// NodeState returns the state stored at id, or 0 for a freed/Root slot.
// Exported for debug.WriteDot.
func (g *Graph) NodeState(id NodeID) table.State {
	if id == Root || g.nodes[id].refcount == 0 {
		return 0
	}
	return g.nodes[id].state
}

// NodeSubtree returns the subtree stored at id, or subtree.Nil for a
// freed/Root slot. Exported for debug.WriteDot.
func (g *Graph) NodeSubtree(id NodeID) subtree.ID {
	if id == Root || g.nodes[id].refcount == 0 {
		return subtree.Nil
	}
	return g.nodes[id].subtree
}

// NodeParents returns id's parent edges, or nil for a freed/Root slot.
// Exported for debug.WriteDot.
func (g *Graph) NodeParents(id NodeID) []NodeID {
	if id == Root || g.nodes[id].refcount == 0 {
		return nil
	}
	return g.nodes[id].parents
}

// NodeLive reports whether id still holds a live node (refcount > 0).
// Exported for debug.WriteDot.
func (g *Graph) NodeLive(id NodeID) bool {
	return id != Root && g.nodes[id].refcount > 0
}

func (g *Graph) alloc(n stackNode) NodeID {
	n.refcount = 1
	if len(g.free) > 0 {
		id := g.free[len(g.free)-1]
		g.free = g.free[:len(g.free)-1]
		g.nodes[id] = n
		return id
	}
	g.nodes = append(g.nodes, n)
	return NodeID(len(g.nodes) - 1)
}

func (g *Graph) retain(id NodeID) {
	if id == Root {
		return
	}
	g.nodes[id].refcount++
}

func (g *Graph) release(id NodeID) {
	if id == Root {
		return
	}
	n := &g.nodes[id]
	n.refcount--
	if n.refcount > 0 {
		return
	}
	g.pool.Release(n.subtree)
	for _, p := range n.parents {
		g.release(p)
	}
	*n = stackNode{}
	g.free = append(g.free, id)
}

// SummaryEntry is one (state, depth, position) triple recorded while a
// version is in error, for snap-back recovery.
type SummaryEntry struct {
	State    table.State
	Depth    uint32
	Position span.Length
}

// Version is one branch of the GSS. The zero value is not usable;
// create with Graph.NewVersion.
type Version struct {
	graph *Graph

	tops []NodeID // alternative top nodes, see package doc

	State    table.State
	Position span.Length

	ErrorCost           uint32
	NodeCountSinceError uint32
	DynPrecedenceSum    int32
	IsInError           bool

	summary *arraylist.List // of SummaryEntry, capped at span.MaxSummaryDepth

	Paused          bool
	PausedLookahead subtree.ID

	LastExternalToken []byte

	Halted bool
}

// NewVersion creates a fresh version rooted at state, with an empty
// stack (top == Root).
func (g *Graph) NewVersion(state table.State) *Version {
	return &Version{
		graph:   g,
		tops:    []NodeID{Root},
		State:   state,
		summary: arraylist.New(),
	}
}

// Tops returns the version's alternative top nodes. Exported for
// debug.WriteDot.
func (v *Version) Tops() []NodeID { return v.tops }

// ReplaceTops releases v's current tops and adopts newTops as the
// version's owned references instead, retaining each. Used by Reduce
// after PopN/PopAll to rebase a version onto the origin
// node a particular popped slice came from, before pushing the reduced
// node back on.
func (v *Version) ReplaceTops(newTops []NodeID) {
	for _, t := range v.tops {
		v.graph.release(t)
	}
	tops := make([]NodeID, len(newTops))
	for i, t := range newTops {
		v.graph.retain(t)
		tops[i] = t
	}
	v.tops = tops
}

// Push shifts sub onto every alternative top, under state, collapsing
// back to a single new top. Both Shift and a reduce's final push of
// the new parent go through here.
func (v *Version) Push(state table.State, sub subtree.ID) {
	parents := append([]NodeID(nil), v.tops...)
	for _, p := range parents {
		v.graph.retain(p)
	}
	id := v.graph.alloc(stackNode{state: state, subtree: sub, parents: parents})
	v.graph.pool.Retain(sub)
	for _, t := range v.tops {
		v.graph.release(t)
	}
	v.tops = []NodeID{id}
	v.State = state
	v.Position = v.Position.Add(v.graph.pool.Footprint(sub))
}

// Slice is one concrete path popped off the stack: the popped subtrees
// in child (source) order, and the state/top the stack had just before
// they were pushed.
type Slice struct {
	Children []subtree.ID
	Origin   NodeID
	State    table.State
}

// PopN pops count nodes off v's stack, branching at every merge point
// along the way, and returns one Slice per distinct history. The
// returned Children are borrowed references, kept alive by the stack
// nodes themselves (which stay in the graph until the version's tops
// are replaced or released); a consumer that wants to keep a child must
// retain it.
//
// Every alternative history pops the same byte span (they are different
// derivations of the same prefix), so v.Position is decremented once, by
// the first slice's total footprint, undoing the accumulation Push did
// when those children were originally pushed — a subsequent Push of a
// reduced parent covering the same span re-adds exactly that amount,
// leaving Position net unchanged across a reduce.
func (v *Version) PopN(count int) []Slice {
	var out []Slice
	for _, top := range v.tops {
		out = append(out, popFrom(v.graph, top, count, nil)...)
	}
	out = dedupeSlices(out)
	if len(out) > 0 {
		v.Position = v.Position.Sub(sliceFootprint(v.graph, out[0]))
	}
	return out
}

// PopAll pops everything back to Root, used by Accept
// and by error-wrap recovery. See PopN's doc comment for the Position
// bookkeeping.
func (v *Version) PopAll() []Slice {
	var out []Slice
	for _, top := range v.tops {
		out = append(out, popAllFrom(v.graph, top, nil)...)
	}
	out = dedupeSlices(out)
	if len(out) > 0 {
		v.Position = v.Position.Sub(sliceFootprint(v.graph, out[0]))
	}
	return out
}

func sliceFootprint(g *Graph, s Slice) span.Length {
	var total span.Length
	for _, c := range s.Children {
		total = total.Add(g.pool.Footprint(c))
	}
	return total
}

func popFrom(g *Graph, node NodeID, remaining int, acc []subtree.ID) []Slice {
	if remaining == 0 {
		state := table.State(0)
		if node != Root {
			state = g.nodes[node].state
		}
		children := make([]subtree.ID, len(acc))
		copy(children, acc)
		return []Slice{{Children: children, Origin: node, State: state}}
	}
	if node == Root {
		// Stack underflow: nothing left to pop. Treat as an empty-slice
		// dead end; the driver's reduce will simply see no slices and
		// skip this origin.
		return nil
	}
	n := &g.nodes[node]
	// Prepend, since we are walking from top (last pushed) backwards.
	prepended := make([]subtree.ID, len(acc)+1)
	prepended[0] = n.subtree
	copy(prepended[1:], acc)
	var out []Slice
	for _, p := range n.parents {
		out = append(out, popFrom(g, p, remaining-1, prepended)...)
	}
	return out
}

func popAllFrom(g *Graph, node NodeID, acc []subtree.ID) []Slice {
	if node == Root {
		children := make([]subtree.ID, len(acc))
		copy(children, acc)
		return []Slice{{Children: children, Origin: Root, State: 0}}
	}
	n := &g.nodes[node]
	prepended := make([]subtree.ID, len(acc)+1)
	prepended[0] = n.subtree
	copy(prepended[1:], acc)
	var out []Slice
	for _, p := range n.parents {
		out = append(out, popAllFrom(g, p, prepended)...)
	}
	return out
}

// dedupeSlices drops exact duplicates (same origin, same children),
// which arise when alternative tops share their whole popped region. Two
// slices with the same origin but different children are both kept: they
// are competing derivations, and choosing between them is the driver's
// job, not the stack's.
func dedupeSlices(in []Slice) []Slice {
	if len(in) <= 1 {
		return in
	}
	seen := map[string]bool{}
	out := in[:0]
	for _, s := range in {
		key := sliceSignature(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

func sliceSignature(s Slice) string {
	b := make([]byte, 0, 4+4*len(s.Children))
	b = append(b, byte(s.Origin), byte(s.Origin>>8), byte(s.Origin>>16), byte(s.Origin>>24))
	for _, c := range s.Children {
		b = append(b, byte(c), byte(c>>8), byte(c>>16), byte(c>>24))
	}
	return string(b)
}

// Pause parks the version together with its lookahead, for later
// resume, when stack breakdown makes no progress. A paused version
// contributes a flat
// span.ErrorCostPerSkippedTree penalty.
func (v *Version) Pause(lookahead subtree.ID) {
	v.Paused = true
	v.PausedLookahead = lookahead
	v.ErrorCost += span.ErrorCostPerSkippedTree
}

// Resume clears the paused flag and returns the parked lookahead.
func (v *Version) Resume() subtree.ID {
	v.Paused = false
	lookahead := v.PausedLookahead
	v.PausedLookahead = subtree.Nil
	return lookahead
}

// PushSummary records a (state, depth, position) triple, evicting the
// oldest entry once MaxSummaryDepth is reached.
func (v *Version) PushSummary(state table.State, depth uint32) {
	if uint32(v.summary.Size()) >= span.MaxSummaryDepth {
		v.summary.Remove(0)
	}
	v.summary.Add(SummaryEntry{State: state, Depth: depth, Position: v.Position})
}

// Summary returns a snapshot of the recorded recovery summary, oldest
// first.
func (v *Version) Summary() []SummaryEntry {
	out := make([]SummaryEntry, 0, v.summary.Size())
	v.summary.Each(func(_ int, val interface{}) {
		out = append(out, val.(SummaryEntry))
	})
	return out
}

// ClearSummary empties the recovery summary, done once a version leaves
// the error state.
func (v *Version) ClearSummary() {
	v.summary.Clear()
}

// TryMerge merges other into v if they represent the same (state,
// position) — the condition both reduce's fold-into-an-existing-version
// step and the condense pass rely on. On success v gains other's alternative tops and true is
// returned; the caller must discard other (it becomes a dangling
// duplicate, not released here since its tops are now shared).
func (v *Version) TryMerge(other *Version) bool {
	if v.Paused || other.Paused {
		// A paused version carries a parked lookahead that a merge would
		// silently drop.
		return false
	}
	if v.State != other.State || v.Position != other.Position {
		return false
	}
	existing := map[NodeID]bool{}
	for _, t := range v.tops {
		existing[t] = true
	}
	for _, t := range other.tops {
		if !existing[t] {
			v.tops = append(v.tops, t)
			existing[t] = true
		} else {
			v.graph.release(t)
		}
	}
	if other.DynPrecedenceSum > v.DynPrecedenceSum {
		v.DynPrecedenceSum = other.DynPrecedenceSum
	}
	if other.ErrorCost < v.ErrorCost {
		v.ErrorCost = other.ErrorCost
	}
	tracer().Debugf("merge state:%d pos:%v", v.State, v.Position)
	return true
}

// TopSubtree returns the subtree most recently pushed onto v's stack,
// valid only when v has exactly one top (no pending unmerged ambiguity
// at this position); returns subtree.Nil otherwise, including on an
// empty stack. Used by error recovery's Strategy B to grow an existing
// ERROR_REPEAT node in place instead of nesting a new one under it every
// skipped token.
func (v *Version) TopSubtree() subtree.ID {
	if len(v.tops) != 1 || v.tops[0] == Root {
		return subtree.Nil
	}
	return v.graph.nodes[v.tops[0]].subtree
}

// Release drops this version's references into the graph, along with
// any parked lookahead. Call once a version is removed by condense,
// accept, or a dominated comparison.
func (v *Version) Release() {
	for _, t := range v.tops {
		v.graph.release(t)
	}
	v.tops = nil
	if v.Paused && v.PausedLookahead != subtree.Nil {
		v.graph.pool.Release(v.PausedLookahead)
		v.PausedLookahead = subtree.Nil
	}
	v.Paused = false
}
