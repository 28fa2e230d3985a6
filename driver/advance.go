package driver

import (
	"github.com/npillmayer/grit/gss"
	"github.com/npillmayer/grit/reuse"
	"github.com/npillmayer/grit/subtree"
	"github.com/npillmayer/grit/table"
)

// advance runs one step of the parse loop for version v: try reusing a
// node from the previous tree at v's current position, otherwise lex a
// fresh lookahead token, then dispatch on the table's action for
// (v.State, lookahead). Returns (tree, true) once v accepts. Callers
// never pass a paused version here — see step's handling of v.Paused.
func (d *Driver) advance(v *gss.Version) (subtree.ID, bool) {
	if reused, ok := d.tryReuse(v); ok {
		symbol := table.Symbol(d.pool.Symbol(reused))
		next := d.lang.Goto(table.State(v.State), symbol)
		v.Push(next, reused)
		return subtree.Nil, false
	}

	lookahead, err := d.lexOne(v)
	if err != nil {
		tracer().Errorf("lex: %v", err)
		v.Halted = true
		v.Release()
		return subtree.Nil, false
	}
	return d.dispatch(v, lookahead)
}

// dispatch processes the table actions for v's (state, symbol) in table
// order. Each Reduce action forks a new version off v's untouched stack;
// a Shift, Accept, or Recover terminates processing for v this step. If
// every action was a reduce, v's work lives on in the reduction products
// and v itself is folded away. dispatch owns the lookahead reference and
// releases it before returning on every path.
func (d *Driver) dispatch(v *gss.Version, lookahead subtree.ID) (subtree.ID, bool) {
	// A null lookahead (a state with no lookahead to compute) is driven
	// by the table's EOF entry.
	symbol := table.EOF
	if lookahead != subtree.Nil {
		symbol = table.Symbol(d.pool.Symbol(lookahead))
	}
	state := table.State(v.State)
	if !d.lang.HasActions(state, symbol) {
		if !d.recover(v, lookahead) {
			v.Halted = true
			v.Release()
		}
		d.pool.Release(lookahead)
		return subtree.Nil, false
	}

	reduced := false
	for _, action := range d.lang.Actions(state, symbol) {
		switch action.Kind {
		case table.Reduce:
			d.reduce(v, action)
			reduced = true
		case table.Shift:
			v.Push(action.State, lookahead)
			d.pool.Release(lookahead)
			tracer().Debugf("shift state:%d sym:%d", action.State, symbol)
			return subtree.Nil, false
		case table.Accept:
			d.pool.Release(lookahead)
			tree := d.accept(v)
			tracer().Infof("done")
			return tree, true
		case table.Recover:
			d.recover(v, lookahead)
			d.pool.Release(lookahead)
			return subtree.Nil, false
		}
	}
	if reduced {
		v.Halted = true
		v.Release()
	}
	d.pool.Release(lookahead)
	return subtree.Nil, false
}

// tryReuse consults the reusable-node cursor
// at the lexer's current byte offset, testing candidates from the
// coarsest enclosing node down to its first leaf, and accept the
// coarsest one that passes every condition.
func (d *Driver) tryReuse(v *gss.Version) (subtree.ID, bool) {
	if d.reuseCursor == nil || len(d.versions) != 1 {
		// Reuse is only attempted while a single version is live: with
		// several versions at different positions a shared cursor would
		// thrash.
		return subtree.Nil, false
	}
	pos, point := d.lex.Position()
	if d.reuseCursor.Position() != pos {
		d.reuseCursor.Reposition(pos)
	}
	for {
		candidate := d.reuseCursor.Candidate()
		if candidate == subtree.Nil {
			return subtree.Nil, false
		}
		if d.reusable(v, candidate, pos) {
			d.reuseCursor.Advance()
			// The reused node's bytes are consumed without lexing, so the
			// lexer has to be moved past them by hand. The old tree keeps
			// the candidate alive; Push takes the stack's own reference.
			fp := d.pool.Footprint(candidate)
			d.lex.Reset(pos+fp.Bytes, pointAdd(point, fp.Point))
			return candidate, true
		}
		if !d.reuseCursor.Descend() {
			return subtree.Nil, false
		}
	}
}

// reusable is the full reuse gate: flag conditions (via
// package reuse), included-range crossing, external-scanner state match,
// and either a reusable-leaf table marking or an unchanged non-terminal
// whose lookahead the parse table still accepts and whose first leaf
// carries the reusable-leaf marking too.
func (d *Driver) reusable(v *gss.Version, candidate subtree.ID, pos uint32) bool {
	if !reuse.Reusable(d.pool, candidate) {
		return false
	}
	if reuse.SpansIncludedRangeDifference(d.pool, pos, candidate, d.oldRanges, d.newRanges) {
		return false
	}
	if d.pool.Has(candidate, subtree.FlagHasExternalTokens) {
		if !bytesEqual(d.pool.ExternalState(candidate), v.LastExternalToken) {
			return false
		}
	}
	symbol := table.Symbol(d.pool.Symbol(candidate))
	state := table.State(v.State)
	if d.pool.ChildCount(candidate) == 0 {
		return d.lang.IsReusableLeaf(state, symbol)
	}
	leaf := d.reuseCursor.FirstLeaf()
	if !d.lang.IsReusableLeaf(state, table.Symbol(d.pool.Symbol(leaf))) {
		return false
	}
	return d.lang.HasActions(state, symbol)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
