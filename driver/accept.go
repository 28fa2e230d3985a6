package driver

import (
	"github.com/npillmayer/grit/gss"
	"github.com/npillmayer/grit/span"
	"github.com/npillmayer/grit/subtree"
	"github.com/npillmayer/grit/table"
	expslices "golang.org/x/exp/slices"
)

// rootSymbol is a synthetic symbol for the wrapper node accept builds
// when a version's stack popped to more than one child at the top level;
// it is never looked up in a table.Language, only tested structurally.
const rootSymbol uint16 = 0xFFFC

// accept finishes a parse on an ACCEPT action: pop v's stack to the
// bottom, ignoring a trailing EOF leaf, wrap the remaining children into
// one root node (selecting the best alternative if popping branched at a
// merge point), release every other live version, and run the tree
// through rebalance before handing it back.
func (d *Driver) accept(v *gss.Version) subtree.ID {
	slices := v.PopAll()

	var best subtree.ID
	for _, s := range slices {
		root := d.rootFromChildren(s.Children)
		if best == subtree.Nil {
			best = root
			continue
		}
		chosen := d.selectTree(best, root)
		if chosen == best {
			d.pool.Release(root)
		} else {
			d.pool.Release(best)
			best = root
		}
	}

	for _, other := range d.versions {
		if other != v {
			other.Release()
			other.Halted = true
		}
	}
	v.Release()
	d.versions = nil

	return d.rebalance(best)
}

// rootFromChildren wraps one popped history into a root the caller
// owns. The children are borrowed from the stack, so the single-child
// shortcut retains it and the wrapper node takes references of its own.
func (d *Driver) rootFromChildren(children []subtree.ID) subtree.ID {
	filtered := children
	if n := len(filtered); n > 0 && d.pool.Symbol(filtered[n-1]) == uint16(table.EOF) {
		filtered = filtered[:n-1]
	}
	if len(filtered) == 1 {
		return d.pool.Retain(filtered[0])
	}
	return d.pool.NewNode(rootSymbol, 0, filtered, 0, subtree.StateNone, 0)
}

// condense prunes the version list after each advance round: drop halted
// versions, then compare every ordered pair and act on the outcome —
// a dominated version is removed outright, a merely-worse one is merged
// into the better (or, when it ranks ahead but cannot merge, swapped in
// front), and only once the steady-state cap is still exceeded are the
// trailing survivors released.
//
// If every surviving version is paused, none of them can make further
// progress on its own: condense picks the best-performing one, drops the
// rest, and forces it through the end-of-input-in-error path, returning
// the resulting tree.
func (d *Driver) condense() (subtree.ID, bool) {
	d.versions = expslices.DeleteFunc(d.versions, func(v *gss.Version) bool { return v.Halted })

	for i := len(d.versions) - 1; i > 0; i-- {
		if i >= len(d.versions) {
			continue
		}
		vi := d.versions[i]
		for j := 0; j < i; j++ {
			vj := d.versions[j]
			done := false
			switch compareErrorStatus(d.status(vj), d.status(vi)) {
			case ErrorComparisonTakeLeft:
				vi.Release()
				d.removeVersion(i)
				done = true
			case ErrorComparisonPreferLeft, ErrorComparisonNone:
				if vj.TryMerge(vi) {
					d.removeVersion(i)
					done = true
				}
			case ErrorComparisonPreferRight:
				if vj.TryMerge(vi) {
					d.removeVersion(i)
					done = true
				} else {
					d.versions[i], d.versions[j] = d.versions[j], d.versions[i]
					vi = d.versions[i]
				}
			case ErrorComparisonTakeRight:
				vj.Release()
				d.removeVersion(j)
				i--
				j--
			}
			if done {
				break
			}
		}
	}

	if uint32(len(d.versions)) > span.MaxVersionCount {
		for _, v := range d.versions[span.MaxVersionCount:] {
			v.Release()
		}
		d.versions = d.versions[:span.MaxVersionCount]
		tracer().Debugf("condense kept:%d", len(d.versions))
	}

	if len(d.versions) == 0 {
		return subtree.Nil, false
	}
	best := d.versions[0]
	allPaused := true
	for _, v := range d.versions {
		if !v.Paused {
			allPaused = false
		}
		switch compareErrorStatus(d.status(best), d.status(v)) {
		case ErrorComparisonPreferRight, ErrorComparisonTakeRight:
			best = v
		}
	}
	if !allPaused {
		return subtree.Nil, false
	}
	tracer().Debugf("condense: every surviving version is paused, forcing error accept")
	return d.acceptInError(best, best.Resume()), true
}

// removeVersion deletes the version at index i from the list, keeping
// order. The caller has already released it or merged it away.
func (d *Driver) removeVersion(i int) {
	d.versions = append(d.versions[:i], d.versions[i+1:]...)
}

// acceptInError is the end-of-input fallback: the
// version is stuck in error with nowhere left to recover to, so whatever
// remains of its stack is wrapped into one ERROR node and accepted
// directly, rather than looping on recovery that can never succeed.
func (d *Driver) acceptInError(v *gss.Version, lookahead subtree.ID) subtree.ID {
	d.pool.Release(lookahead)
	slices := v.PopAll()

	var best subtree.ID
	for _, s := range slices {
		wrapped := d.pool.NewErrorWrap(s.Children)
		if best == subtree.Nil {
			best = wrapped
			continue
		}
		chosen := d.selectTree(best, wrapped)
		if chosen == best {
			d.pool.Release(wrapped)
		} else {
			d.pool.Release(best)
			best = wrapped
		}
	}

	for _, other := range d.versions {
		if other != v {
			other.Release()
			other.Halted = true
		}
	}
	v.Release()
	d.versions = nil

	return d.rebalance(best)
}
