/*
Package subtree implements the reference-counted pool of immutable
concrete-syntax nodes the driver builds trees out of. The
pool is the sole allocator and deallocator: a Subtree handle is only ever
a small value (pool pointer + arena index), so cloning a subtree for
sharing across GSS versions is a cheap refcount bump, never a deep copy.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>
*/
package subtree

import (
	"fmt"

	"github.com/cnf/structhash"
	"github.com/npillmayer/grit/span"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key "grit.subtree".
func tracer() tracing.Trace {
	return tracing.Select("grit.subtree")
}

// Flags records a node's boolean properties.
type Flags uint16

const (
	FlagExtra Flags = 1 << iota
	FlagIsError
	FlagMissing
	FlagFragileLeft
	FlagFragileRight
	FlagHasChanges
	FlagHasExternalTokens
	FlagHasExternalScannerStateChange
	FlagIsKeyword
	FlagIsInline
	FlagIsFragile
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

// State is the generic stand-in for a table.State recorded on a node, so
// this package need not import package table (which would create an
// import cycle with the driver). StateNone is TS_TREE_STATE_NONE.
type State uint32

// StateNone marks a node produced during ambiguity, or one whose parent
// state cannot be safely reused incrementally.
const StateNone State = ^State(0)

// ID is a handle into a Pool's arena. The zero ID never denotes a live
// node; Pool reserves index 0 as "no subtree".
type ID uint32

// Nil is the absence of a subtree.
const Nil ID = 0

type node struct {
	refcount     int32
	symbol       uint16
	productionID uint32
	padding      span.Length
	size         span.Length
	lookahead    span.Length
	parseState   State
	flags        Flags
	dynPrec      int32
	extState     []byte
	children     []ID
}

func (n *node) footprint() span.Length {
	return n.padding.Add(n.size)
}

// Pool is the sole allocator/deallocator of Subtree nodes. The zero value
// is not usable; construct with NewPool.
type Pool struct {
	nodes []node // nodes[0] is the unused sentinel
	free  []ID
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{nodes: make([]node, 1, 256)}
}

func (p *Pool) alloc(n node) ID {
	n.refcount = 1
	if len(p.free) > 0 {
		id := p.free[len(p.free)-1]
		p.free = p.free[:len(p.free)-1]
		p.nodes[id] = n
		return id
	}
	p.nodes = append(p.nodes, n)
	return ID(len(p.nodes) - 1)
}

func (p *Pool) at(id ID) *node {
	if id == Nil {
		panic("subtree: operation on Nil handle")
	}
	return &p.nodes[id]
}

// --- Constructors --------------------------------------------------------

// NewLeaf creates a plain token leaf. child_count is zero by construction.
func (p *Pool) NewLeaf(symbol uint16, padding, size, lookahead span.Length, flags Flags) ID {
	return p.alloc(node{
		symbol: symbol, padding: padding, size: size, lookahead: lookahead,
		flags: flags, parseState: 0,
	})
}

// NewExternalLeaf creates a leaf produced by the external scanner,
// carrying its serialized state.
func (p *Pool) NewExternalLeaf(symbol uint16, padding, size, lookahead span.Length, extState []byte, flags Flags) ID {
	return p.alloc(node{
		symbol: symbol, padding: padding, size: size, lookahead: lookahead,
		flags: flags | FlagHasExternalTokens, extState: extState,
	})
}

// NewErrorLeaf wraps a span of unrecognized bytes skipped by the lexer
// , without aborting the parse.
func (p *Pool) NewErrorLeaf(padding, size span.Length) ID {
	return p.alloc(node{
		symbol: errorSymbol, padding: padding, size: size,
		flags: FlagIsError, parseState: StateNone,
	})
}

// NewMissing creates a zero-size placeholder for a token the recovery
// strategy inferred should have been present.
func (p *Pool) NewMissing(symbol uint16, padding span.Length) ID {
	return p.alloc(node{
		symbol: symbol, padding: padding, flags: FlagMissing, parseState: StateNone,
	})
}

// NewNode constructs a parent over children, as performed by a reduce.
// dynamicPrecedence is this production's own contribution; the stored
// DynamicPrecedence is the invariant sum of that and every child's
// contribution. If any fragile flag is set, parseState is forced to
// StateNone: a fragile node's parse state is never trusted.
//
// The new node retains each child; the caller keeps whatever references
// it already held. That lets a reduce build a parent over subtrees that
// are still live on another stack version without disturbing it.
func (p *Pool) NewNode(symbol uint16, productionID uint32, children []ID, dynamicPrecedence int32, parseState State, flags Flags) ID {
	total := dynamicPrecedence
	var padding, size span.Length
	for i, c := range children {
		total += p.DynamicPrecedence(c)
		if i == 0 {
			padding = p.Padding(c)
		}
		size = size.Add(p.Footprint(c))
	}
	if len(children) > 0 {
		size = size.Sub(padding)
	}
	if flags.Has(FlagFragileLeft) || flags.Has(FlagFragileRight) || flags.Has(FlagIsFragile) {
		parseState = StateNone
	}
	cs := make([]ID, len(children))
	for i, c := range children {
		cs[i] = p.Retain(c)
	}
	return p.alloc(node{
		symbol: symbol, productionID: productionID, children: cs,
		padding: padding, size: size, dynPrec: total,
		parseState: parseState, flags: flags,
	})
}

// NewErrorWrap folds a run of popped subtrees into a single ERROR node,
// as both recovery strategies and Accept's final fold do.
func (p *Pool) NewErrorWrap(children []ID) ID {
	return p.NewNode(errorSymbol, 0, children, 0, StateNone, FlagIsError)
}

// AppendErrorRepeat builds an ERROR_REPEAT node holding existing's
// children plus token, or just token if existing is Nil. existing and
// token are borrowed; the new node takes its own references.
func (p *Pool) AppendErrorRepeat(existing ID, token ID) ID {
	var children []ID
	if existing != Nil {
		children = append(children, p.Children(existing)...)
	}
	children = append(children, token)
	return p.NewNode(errorRepeatSymbol, 0, children, 0, StateNone, FlagIsError)
}

// errorSymbol and errorRepeatSymbol are reserved symbol numbers outside
// any language's own numbering, so a table.Language lookup with one finds
// no action; the driver recognizes error nodes through subtree.Flags and
// IsErrorRepeatSymbol.
const (
	errorSymbol       uint16 = 0xFFFE
	errorRepeatSymbol uint16 = 0xFFFD
)

// IsErrorSymbol reports whether symbol is the synthetic ERROR marker.
func IsErrorSymbol(symbol uint16) bool { return symbol == errorSymbol }

// IsErrorRepeatSymbol reports whether symbol is the synthetic
// ERROR_REPEAT marker.
func IsErrorRepeatSymbol(symbol uint16) bool { return symbol == errorRepeatSymbol }

// --- Refcounting -----------------------------------------------------------

// Retain increments id's refcount, the "clone" half of copy-on-write
// sharing.
func (p *Pool) Retain(id ID) ID {
	if id == Nil {
		return Nil
	}
	p.at(id).refcount++
	return id
}

// Release decrements id's refcount, releasing it (and recursively its
// children) when it reaches zero.
func (p *Pool) Release(id ID) {
	if id == Nil {
		return
	}
	n := p.at(id)
	n.refcount--
	if n.refcount > 0 {
		return
	}
	for _, c := range n.children {
		p.Release(c)
	}
	children := n.children
	*n = node{}
	_ = children
	p.free = append(p.free, id)
}

// Mutable is an exclusive handle to a node obtained via TryMutate,
// allowing in-place edits without violating the immutability other
// sharers observe.
type Mutable struct {
	pool *Pool
	id   ID
}

// TryMutate returns an exclusive handle to id's node iff its refcount is
// exactly 1.
func (p *Pool) TryMutate(id ID) (*Mutable, bool) {
	if id == Nil || p.at(id).refcount != 1 {
		return nil, false
	}
	return &Mutable{pool: p, id: id}, true
}

// SetChildren replaces the mutable node's children in place, used by the
// rebalance pass for structural compression. The node's references on
// its previous children are released; ownership of one reference to
// each new child transfers to the node.
func (m *Mutable) SetChildren(children []ID) {
	n := m.pool.at(m.id)
	old := n.children
	n.children = append([]ID(nil), children...)
	for _, c := range old {
		m.pool.Release(c)
	}
}

// Commit returns the (now possibly mutated) subtree's id.
func (m *Mutable) Commit() ID { return m.id }

// --- Accessors ---------------------------------------------------------

func (p *Pool) Symbol(id ID) uint16 {
	if id == Nil {
		return 0
	}
	return p.at(id).symbol
}

func (p *Pool) ProductionID(id ID) uint32 { return p.at(id).productionID }

func (p *Pool) ChildCount(id ID) int {
	if id == Nil {
		return 0
	}
	return len(p.at(id).children)
}

func (p *Pool) Children(id ID) []ID {
	if id == Nil {
		return nil
	}
	return p.at(id).children
}

func (p *Pool) Child(id ID, i int) ID { return p.at(id).children[i] }

func (p *Pool) Padding(id ID) span.Length {
	if id == Nil {
		return span.Length{}
	}
	return p.at(id).padding
}

func (p *Pool) Size(id ID) span.Length {
	if id == Nil {
		return span.Length{}
	}
	return p.at(id).size
}

func (p *Pool) Footprint(id ID) span.Length {
	if id == Nil {
		return span.Length{}
	}
	return p.at(id).footprint()
}

func (p *Pool) LookaheadBytes(id ID) span.Length {
	if id == Nil {
		return span.Length{}
	}
	return p.at(id).lookahead
}

func (p *Pool) Flags(id ID) Flags {
	if id == Nil {
		return 0
	}
	return p.at(id).flags
}

func (p *Pool) Has(id ID, bit Flags) bool { return p.Flags(id).Has(bit) }

func (p *Pool) ParseState(id ID) State {
	if id == Nil {
		return StateNone
	}
	return p.at(id).parseState
}

func (p *Pool) DynamicPrecedence(id ID) int32 {
	if id == Nil {
		return 0
	}
	return p.at(id).dynPrec
}

func (p *Pool) ExternalState(id ID) []byte {
	if id == Nil {
		return nil
	}
	return p.at(id).extState
}

func (p *Pool) RefCount(id ID) int32 {
	if id == Nil {
		return 0
	}
	return p.at(id).refcount
}

// --- Edit application --------------

// ApplyEdit rewrites root to reflect edit having been applied to the text
// it was parsed from, without re-lexing anything: nodes entirely before
// edit.StartByte or entirely at/after edit.OldEndByte keep their identity
// untouched (their padding/size are offsets relative to a sibling, not
// absolute positions, so they need no adjustment — only the ancestor
// chain down to whichever leaf the edit actually falls inside is rebuilt).
// That leaf, and every ancestor on the path to it, is cloned with
// FlagHasChanges set and, for the leaf itself, its size adjusted by the
// edit's byte delta; reuse.Reusable then correctly refuses
// to reuse it, and the driver re-lexes from there. The returned ID is a
// new reference the caller owns; it does not release root (the caller
// still holds its own reference and must Release it once done with the
// pre-edit tree, e.g. after also updating any other live snapshot of it).
func (p *Pool) ApplyEdit(root ID, edit span.Edit) ID {
	newRoot, changed := p.applyEdit(root, edit, 0)
	if !changed {
		return p.Retain(root)
	}
	return newRoot
}

// applyEdit returns (newID, changed). When changed is false, newID is the
// zero value and the caller must use the original id (already implicitly
// retained by the parent's Retain-on-unchanged-child path, or — at the
// root — by ApplyEdit's own Retain).
func (p *Pool) applyEdit(id ID, edit span.Edit, startByte uint32) (ID, bool) {
	if id == Nil {
		return Nil, false
	}
	n := p.at(id)
	absStart := startByte + n.padding.Bytes
	absEnd := absStart + n.size.Bytes
	if absEnd <= edit.StartByte || absStart >= edit.OldEndByte {
		return Nil, false // unaffected: relative offsets stay valid as-is
	}
	delta := int64(edit.NewEndByte) - int64(edit.OldEndByte)
	if len(n.children) == 0 {
		newSize := n.size
		grown := int64(newSize.Bytes) + delta
		if grown < 0 {
			grown = 0
		}
		newSize.Bytes = uint32(grown)
		clone := *n
		clone.size = newSize
		clone.flags |= FlagHasChanges
		return p.alloc(clone), true
	}
	childStart := absStart
	children := make([]ID, len(n.children))
	anyChanged := false
	for i, c := range n.children {
		if newC, ok := p.applyEdit(c, edit, childStart); ok {
			children[i] = newC
			anyChanged = true
		} else {
			children[i] = p.Retain(c)
		}
		childStart += p.Footprint(c).Bytes
	}
	if !anyChanged {
		for _, c := range children {
			p.Release(c)
		}
		return Nil, false
	}
	clone := *n
	clone.children = children
	clone.flags |= FlagHasChanges
	var padding, size span.Length
	for i, c := range children {
		if i == 0 {
			padding = p.Padding(c)
		}
		size = size.Add(p.Footprint(c))
	}
	size = size.Sub(padding)
	clone.padding, clone.size = padding, size
	return p.alloc(clone), true
}

// --- Structural comparison -----------------------------

// hashable is the structural signature structhash.Hash digests: just
// enough shape to decide "these two subtrees are definitely different"
// cheaply, before falling back to a full recursive Compare.
type hashable struct {
	Symbol   uint16
	Children []uint16 `hash:"set"`
	Size     uint32
}

// StructHash returns a stable structural-shape hash for id, used to
// short-circuit Compare. Error recovery does not use it: snap-back makes
// no check for a duplicate version at the same position and state.
func (p *Pool) StructHash(id ID) string {
	if id == Nil {
		return "nil"
	}
	n := p.at(id)
	shape := hashable{Symbol: n.symbol, Size: n.size.Bytes}
	for _, c := range n.children {
		shape.Children = append(shape.Children, p.Symbol(c))
	}
	h, err := structhash.Hash(shape, 1)
	if err != nil {
		// structhash only fails on unhashable types; shape is plain data.
		tracer().Errorf("structhash: %v", err)
		return fmt.Sprintf("sym:%d:%d", n.symbol, n.size.Bytes)
	}
	return h
}

// Compare is a deterministic structural comparison: it returns
// -1/0/+1 by symbol order and recursive child comparison. A nonzero
// result means "inspected and found left/right order"; 0 means
// structurally equal (keep the existing/left one).
func (p *Pool) Compare(left, right ID) int {
	if left == right {
		return 0
	}
	if p.StructHash(left) == p.StructHash(right) {
		return p.compareChildren(left, right)
	}
	ls, rs := p.Symbol(left), p.Symbol(right)
	switch {
	case ls < rs:
		return -1
	case ls > rs:
		return 1
	default:
		return p.compareChildren(left, right)
	}
}

func (p *Pool) compareChildren(left, right ID) int {
	lc, rc := p.Children(left), p.Children(right)
	n := len(lc)
	if len(rc) < n {
		n = len(rc)
	}
	for i := 0; i < n; i++ {
		if c := p.Compare(lc[i], rc[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(lc) < len(rc):
		return -1
	case len(lc) > len(rc):
		return 1
	default:
		return 0
	}
}
