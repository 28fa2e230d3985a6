package driver

import (
	"github.com/npillmayer/grit/gss"
	"github.com/npillmayer/grit/span"
	"github.com/npillmayer/grit/subtree"
	"github.com/npillmayer/grit/table"
)

// doAllPotentialReductions repeatedly applies the reduce actions
// available for symbol, following the first reduction product each
// round, until a state able to shift or accept symbol is reached or the
// round budget of span.MaxVersionCount iterations is spent. Reports
// whether symbol became consumable. Intermediate products stay live as
// ordinary versions for condense to merge or prune.
func (d *Driver) doAllPotentialReductions(v *gss.Version, symbol table.Symbol) bool {
	cur := v
	for i := uint32(0); i < span.MaxVersionCount; i++ {
		state := table.State(cur.State)
		for _, action := range d.lang.Actions(state, symbol) {
			if action.Kind == table.Shift || action.Kind == table.Accept {
				return true
			}
		}
		var next *gss.Version
		for _, action := range d.lang.Actions(state, symbol) {
			if action.Kind != table.Reduce {
				continue
			}
			if nv := d.reduce(cur, action); nv != nil && next == nil {
				next = nv
			}
		}
		if next == nil {
			return false
		}
		cur = next
	}
	return false
}

// recover is the error-recovery entry point. Before declaring an error
// at all, a reused non-terminal on top of the stack is broken back down
// into its children, since the real parse may just need the finer-
// grained states inside it. Then the strategies proper: missing-token
// insertion forks a version and the original continues regardless, so
// both interpretations stay live; snap-back to a recorded summary state
// mutates v and ends the step; otherwise the lookahead is folded into a
// growing error span. Returns false only when none of these apply,
// meaning v cannot make further progress.
func (d *Driver) recover(v *gss.Version, lookahead subtree.ID) bool {
	if d.breakDownTopOfStack(v) {
		return true
	}
	if !v.IsInError {
		v.IsInError = true
		v.NodeCountSinceError = 0
		v.PushSummary(v.State, 0)
		tracer().Debugf("detect_error state:%d", v.State)
	}
	if lookahead == subtree.Nil {
		// Null lookahead with no EOF action: nothing to insert or skip.
		if d.betterVersionExists(v) {
			return false
		}
		v.Pause(subtree.Nil)
		return true
	}

	d.insertMissingToken(v, lookahead)

	if d.recoverToState(v, lookahead) {
		return true
	}
	if d.pool.Symbol(lookahead) == uint16(table.EOF) {
		if d.betterVersionExists(v) {
			return false
		}
		v.Pause(d.pool.Retain(lookahead))
		return true
	}
	d.skipLookahead(v, lookahead)
	return true
}

// breakDownTopOfStack pops a non-terminal (typically one reused from a
// previous tree) off the top of v's stack and re-pushes its children
// one by one, re-deriving each intermediate state through the goto
// table, so the next round can retry the same lookahead against the
// finer-grained states inside it. Returns false when the top is a leaf
// or the stack is empty.
func (d *Driver) breakDownTopOfStack(v *gss.Version) bool {
	top := v.TopSubtree()
	if top == subtree.Nil || d.pool.ChildCount(top) == 0 {
		return false
	}
	if d.pool.Has(top, subtree.FlagIsError) {
		// An ERROR/ERROR_REPEAT wrapper on top is recovery's own work in
		// progress, not a reused non-terminal; dismantling it would undo
		// the fold-into-one-wrapper behavior of skipLookahead.
		return false
	}
	slices := v.PopN(1)
	if len(slices) == 0 {
		return false
	}
	s := slices[0]
	// Keep the popped node alive across the rebase: replacing the tops
	// may free the stack node that carried it.
	node := d.pool.Retain(s.Children[0])
	v.ReplaceTops([]gss.NodeID{s.Origin})
	tracer().Debugf("breakdown sym:%d children:%d", d.pool.Symbol(node), d.pool.ChildCount(node))
	state := s.State
	for _, c := range d.pool.Children(node) {
		state = d.lang.Goto(state, table.Symbol(d.pool.Symbol(c)))
		v.Push(state, c)
	}
	d.pool.Release(node)
	return true
}

// insertMissingToken forks a version that pushes a zero-width MISSING
// node for the symbol a Recover table action names, keeping the fork
// only if the stack can then actually reduce its way to consuming the
// real lookahead. v itself is left alone either way, so skip-based
// recovery still runs on it in parallel.
func (d *Driver) insertMissingToken(v *gss.Version, lookahead subtree.ID) bool {
	state := table.State(v.State)
	symbol := table.Symbol(d.pool.Symbol(lookahead))
	for _, action := range d.lang.Actions(state, symbol) {
		if action.Kind != table.Recover || action.Symbol == table.EOF {
			continue
		}
		mark := len(d.versions)
		nv := d.forkVersion(v)
		missing := d.pool.NewMissing(uint16(action.Symbol), span.Length{})
		nv.Push(d.lang.Goto(state, action.Symbol), missing)
		d.pool.Release(missing)
		nv.ErrorCost += span.ErrorCostPerSkippedTree
		if d.doAllPotentialReductions(nv, symbol) {
			d.addVersion(nv)
			tracer().Debugf("insert_missing sym:%d", action.Symbol)
			return true
		}
		nv.Release()
		for _, extra := range d.versions[mark:] {
			extra.Release()
			extra.Halted = true
		}
	}
	return false
}

// forkVersion creates a new version sharing v's stack tops and error
// bookkeeping.
func (d *Driver) forkVersion(v *gss.Version) *gss.Version {
	nv := d.graph.NewVersion(v.State)
	nv.ReplaceTops(v.Tops())
	nv.Position = v.Position
	nv.ErrorCost = v.ErrorCost
	nv.IsInError = v.IsInError
	nv.DynPrecedenceSum = v.DynPrecedenceSum
	nv.NodeCountSinceError = v.NodeCountSinceError
	nv.LastExternalToken = v.LastExternalToken
	return nv
}

// recoverToState implements snap-back: walk v's recorded summary
// (most recent first), folding everything popped since the first entry
// whose state accepts the current lookahead into one ERROR node, then
// resuming from there.
func (d *Driver) recoverToState(v *gss.Version, lookahead subtree.ID) bool {
	symbol := table.Symbol(d.pool.Symbol(lookahead))
	summary := v.Summary()
	for i := len(summary) - 1; i >= 0; i-- {
		entry := summary[i]
		if !d.lang.HasActions(entry.State, symbol) {
			continue
		}
		if entry.Depth == 0 {
			continue
		}
		slices := v.PopN(int(entry.Depth))
		if len(slices) == 0 {
			continue
		}
		s := slices[0]
		errNode := d.pool.NewErrorWrap(s.Children)
		v.ReplaceTops([]gss.NodeID{s.Origin})
		v.Push(entry.State, errNode)
		d.pool.Release(errNode)
		v.ErrorCost += span.ErrorCostPerSkippedTree
		v.ClearSummary()
		tracer().Debugf("recover snap-back state:%d depth:%d", entry.State, entry.Depth)
		return true
	}
	return false
}

// skipLookahead folds the unexpected lookahead into a growing
// ERROR_REPEAT node sitting on top of v's stack, charging its footprint
// in bytes and lines.
func (d *Driver) skipLookahead(v *gss.Version, lookahead subtree.ID) {
	existing := v.TopSubtree()
	var base subtree.ID
	var origin gss.NodeID
	haveOrigin := false
	if existing != subtree.Nil && subtree.IsErrorRepeatSymbol(d.pool.Symbol(existing)) {
		if slices := v.PopN(1); len(slices) > 0 {
			base = slices[0].Children[0]
			origin = slices[0].Origin
			haveOrigin = true
		}
	}
	// Build the replacement before rebasing the tops: the rebase may
	// free the old wrapper, and the new node has to capture its children
	// first.
	updated := d.pool.AppendErrorRepeat(base, lookahead)
	if haveOrigin {
		v.ReplaceTops([]gss.NodeID{origin})
	}
	v.Push(v.State, updated)
	d.pool.Release(updated)

	footprint := d.pool.Footprint(lookahead)
	v.ErrorCost += span.ErrorCostPerSkippedChar * footprint.Bytes
	if footprint.Point.Row > 0 {
		v.ErrorCost += span.ErrorCostPerSkippedLine * footprint.Point.Row
	}
	v.NodeCountSinceError = 0
	tracer().Debugf("recover skip_lookahead sym:%d", d.pool.Symbol(lookahead))
}
