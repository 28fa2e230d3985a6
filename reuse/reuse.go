/*
Package reuse implements a reusable-node cursor over a previous parse tree: a
walk over a previous parse tree in source order, offering the driver a
candidate subtree at the current byte offset and letting it descend into
finer-grained children or advance past a whole candidate it accepted.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>
*/
package reuse

import (
	"github.com/npillmayer/grit/span"
	"github.com/npillmayer/grit/subtree"
)

type ancestorFrame struct {
	node       subtree.ID
	childIndex int
}

// Cursor is a position inside a previous tree, expressed as a path plus a
// byte offset and the last external-scanner token seen on entry.
type Cursor struct {
	pool    *subtree.Pool
	root    subtree.ID
	stack   []ancestorFrame
	current subtree.ID
	pos     uint32

	lastExternalToken []byte
}

// NewCursor creates a cursor over root, positioned at the start of the
// tree.
func NewCursor(pool *subtree.Pool, root subtree.ID, lastExternalToken []byte) *Cursor {
	return &Cursor{pool: pool, root: root, current: root, lastExternalToken: lastExternalToken}
}

// AtEnd reports whether the cursor has walked past the end of the tree.
func (c *Cursor) AtEnd() bool { return c.current == subtree.Nil }

// Candidate returns the subtree node starting at the cursor's current
// byte offset, or subtree.Nil past the end of the tree.
func (c *Cursor) Candidate() subtree.ID { return c.current }

// Position returns the cursor's current absolute byte offset.
func (c *Cursor) Position() uint32 { return c.pos }

// LastExternalToken returns the external-scanner state recorded by
// NewCursor or the last SetLastExternalToken call. Package driver does
// not read it: its reuse gate compares the candidate's own stored
// external state with the version's.
func (c *Cursor) LastExternalToken() []byte { return c.lastExternalToken }

// SetLastExternalToken records the external-scanner state as of the
// cursor's current position. Package driver does not call it.
func (c *Cursor) SetLastExternalToken(state []byte) { c.lastExternalToken = state }

// FirstLeaf returns the leftmost leaf under the current candidate,
// without moving the cursor. The driver tests this leaf's reusability
// even when considering a larger enclosing candidate.
func (c *Cursor) FirstLeaf() subtree.ID {
	n := c.current
	for n != subtree.Nil && c.pool.ChildCount(n) > 0 {
		n = c.pool.Child(n, 0)
	}
	return n
}

// Descend moves the cursor into the current candidate's first child,
// narrowing the next Candidate() to a smaller subtree at the same start
// offset. Returns false for a leaf (nothing to descend into).
func (c *Cursor) Descend() bool {
	if c.current == subtree.Nil || c.pool.ChildCount(c.current) == 0 {
		return false
	}
	child := c.pool.Child(c.current, 0)
	c.stack = append(c.stack, ancestorFrame{node: c.current, childIndex: 0})
	c.current = child
	return true
}

// Advance consumes the current candidate's entire footprint and moves
// the cursor to whatever node starts next in source order: the next
// sibling, or the next sibling of the nearest ancestor that has one.
func (c *Cursor) Advance() {
	if c.current == subtree.Nil {
		return
	}
	c.pos += c.pool.Footprint(c.current).Bytes
	for {
		if len(c.stack) == 0 {
			c.current = subtree.Nil
			return
		}
		top := &c.stack[len(c.stack)-1]
		siblingCount := c.pool.ChildCount(top.node)
		if top.childIndex+1 < siblingCount {
			top.childIndex++
			c.current = c.pool.Child(top.node, top.childIndex)
			return
		}
		c.stack = c.stack[:len(c.stack)-1]
		if len(c.stack) > 0 {
			c.current = c.stack[len(c.stack)-1].node
		}
	}
}

// Reposition re-walks the cursor from root until its candidate starts at
// or after byteOffset, descending into nodes that straddle the target so
// the cursor lands on the smallest node whose start equals byteOffset (or
// the nearest node after it, if no node starts exactly there).
func (c *Cursor) Reposition(byteOffset uint32) {
	c.stack = c.stack[:0]
	c.current = c.root
	c.pos = 0
	for c.current != subtree.Nil {
		if c.pos == byteOffset {
			return
		}
		footprint := c.pool.Footprint(c.current).Bytes
		if c.pos+footprint <= byteOffset {
			c.Advance()
			continue
		}
		if !c.Descend() {
			return
		}
	}
}

// Reusable applies the flag-only half of the reuse gate: none of
// has_changes/is_error/missing/is_fragile may be set. The
// remaining conditions (byte offset, external-scanner state, included-
// range overlap, table lookahead match) depend on driver/table state and
// are checked by the driver itself.
func Reusable(pool *subtree.Pool, candidate subtree.ID) bool {
	if candidate == subtree.Nil {
		return false
	}
	f := pool.Flags(candidate)
	return !f.Has(subtree.FlagHasChanges) && !f.Has(subtree.FlagIsError) &&
		!f.Has(subtree.FlagMissing) && !f.Has(subtree.FlagIsFragile)
}

// SpansIncludedRangeDifference reports whether candidate's byte span
// crosses an included-range boundary that changed between the ranges the
// previous tree was built under and the ranges this parse uses. Such a
// candidate must not be reused, whatever its flags say.
func SpansIncludedRangeDifference(pool *subtree.Pool, candidateStart uint32, candidate subtree.ID, oldRanges, newRanges []span.Range) bool {
	footprint := pool.Footprint(candidate).Bytes
	return rangesDiffer(oldRanges, newRanges, candidateStart, candidateStart+footprint)
}

func rangesDiffer(oldRanges, newRanges []span.Range, start, end uint32) bool {
	return coveringSignature(oldRanges, start, end) != coveringSignature(newRanges, start, end)
}

func coveringSignature(ranges []span.Range, start, end uint32) string {
	var sig []byte
	for _, r := range ranges {
		if r.EndByte <= start || r.StartByte >= end {
			continue
		}
		lo, hi := r.StartByte, r.EndByte
		if lo < start {
			lo = start
		}
		if hi > end {
			hi = end
		}
		sig = append(sig, byte(lo), byte(lo>>8), byte(lo>>16), byte(lo>>24),
			byte(hi), byte(hi>>8), byte(hi>>16), byte(hi>>24))
	}
	return string(sig)
}
