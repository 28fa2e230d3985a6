package driver

import (
	"github.com/npillmayer/grit/gss"
	"github.com/npillmayer/grit/span"
	"github.com/npillmayer/grit/subtree"
	"github.com/npillmayer/grit/table"
)

// reduce forks one new version per distinct popped history of
// action.ChildCount subtrees, leaving v itself untouched so the
// remaining actions for the same lookahead — another reduce, or a shift
// — still see the pre-reduce stack. Each fork rebases onto its slice's
// origin, pushes a fresh parent node under the table's goto state, and
// is merged into an existing version at the same (state, position) where
// possible. Returns the first surviving fork, or nil when nothing could
// be popped.
//
// Trailing "extra" tokens (whitespace/comments shifted after the last
// grammar symbol of a production but before the reduce) are a known
// simplification here: this driver relies on such extras having already
// been folded into the popped children's own padding by lexOne, rather
// than re-popping action.EndOfNonTermExtra as a distinct trailing slot.
// See DESIGN.md.
func (d *Driver) reduce(v *gss.Version, action table.Action) *gss.Version {
	savedPos := v.Position
	slices := d.collapseSameOrigin(v.PopN(int(action.ChildCount)))
	popPos := v.Position
	v.Position = savedPos
	if len(slices) == 0 {
		tracer().Debugf("reduce: stack underflow for production %d", action.ProductionID)
		return nil
	}

	var first *gss.Version
	for _, s := range slices {
		node := d.pool.NewNode(uint16(action.Symbol), action.ProductionID, s.Children,
			action.DynamicPrecedence, subtree.State(s.State), flagsForReduce(action))
		nextState := d.lang.Goto(s.State, action.Symbol)

		nv := d.graph.NewVersion(nextState)
		nv.ReplaceTops([]gss.NodeID{s.Origin})
		nv.Position = popPos
		nv.Push(nextState, node)
		d.pool.Release(node)
		nv.ErrorCost = v.ErrorCost
		nv.IsInError = v.IsInError
		nv.DynPrecedenceSum = v.DynPrecedenceSum + action.DynamicPrecedence
		nv.NodeCountSinceError = v.NodeCountSinceError + 1
		nv.LastExternalToken = v.LastExternalToken
		surviving := d.addVersion(nv)
		if first == nil {
			first = surviving
		}
		tracer().Debugf("reduce sym:%d children:%d -> state:%d", action.Symbol, action.ChildCount, nextState)
	}
	return first
}

// collapseSameOrigin keeps one slice per origin. Two slices sharing an
// origin are competing derivations of the same popped region; the
// preferred arrangement is chosen child-by-child with selectTree. The
// slices hold borrowed references only, so the losing children need no
// release here.
func (d *Driver) collapseSameOrigin(slices []gss.Slice) []gss.Slice {
	if len(slices) <= 1 {
		return slices
	}
	byOrigin := map[gss.NodeID]int{}
	out := slices[:0]
	for _, s := range slices {
		j, ok := byOrigin[s.Origin]
		if !ok {
			byOrigin[s.Origin] = len(out)
			out = append(out, s)
			continue
		}
		if len(out[j].Children) != len(s.Children) {
			continue
		}
		out[j].Children = d.selectChildren(out[j].Children, s.Children)
	}
	return out
}

func flagsForReduce(action table.Action) subtree.Flags {
	var f subtree.Flags
	if action.IsFragile {
		f |= subtree.FlagIsFragile
	}
	if action.Extra {
		f |= subtree.FlagExtra
	}
	return f
}

// addVersion merges nv into an existing version at the same (state,
// position) if one exists, else appends it. When even the transient
// overflow cap is exhausted the new version is discarded outright — the
// established versions stay untouched and the next condense pass settles
// the count precisely. Returns the version nv's work now lives in (the
// merge target, or nv itself), or nil when it was discarded.
func (d *Driver) addVersion(nv *gss.Version) *gss.Version {
	for _, existing := range d.versions {
		if existing.TryMerge(nv) {
			return existing
		}
	}
	halted := 0
	for _, v := range d.versions {
		if v.Halted {
			halted++
		}
	}
	if uint32(len(d.versions)-halted) >= span.MaxVersionCount+span.MaxVersionCountOverflow {
		nv.Release()
		tracer().Debugf("version cap reached, discarding fork")
		return nil
	}
	d.versions = append(d.versions, nv)
	return nv
}
