package driver

import (
	"github.com/npillmayer/grit/gss"
	"github.com/npillmayer/grit/span"
	"github.com/npillmayer/grit/subtree"
)

// ErrorComparison is the outcome of comparing two versions' error
// standing. "Take" means the preferred side strictly dominates and the
// other can be discarded; "Prefer" means it ranks ahead but the other is
// still worth keeping (or merging).
type ErrorComparison int

const (
	ErrorComparisonTakeLeft ErrorComparison = iota
	ErrorComparisonPreferLeft
	ErrorComparisonNone
	ErrorComparisonPreferRight
	ErrorComparisonTakeRight
)

// status snapshots v's error bookkeeping for comparison.
func (d *Driver) status(v *gss.Version) ErrorStatus {
	return ErrorStatus{
		Cost:                v.ErrorCost,
		NodeCountSinceError: v.NodeCountSinceError,
		DynamicPrecedence:   v.DynPrecedenceSum,
		IsInError:           v.IsInError,
	}
}

// compareErrorStatus ranks a against b. A version that is not in error
// beats one that is: strictly-cheaper takes, otherwise it is merely
// preferred. Among the same error class, the cheaper side takes outright
// only when the cost gap, weighted by how many nodes the cheaper side
// has built since its last error, exceeds span.MaxCostDifference — a
// freshly-recovered version with little progress to its name should not
// kill an alternative over a small gap. Within the gap the cheaper side
// is preferred; exact ties break on dynamic precedence, then None.
func compareErrorStatus(a, b ErrorStatus) ErrorComparison {
	if a.IsInError && !b.IsInError {
		if b.Cost < a.Cost {
			return ErrorComparisonTakeRight
		}
		return ErrorComparisonPreferRight
	}
	if b.IsInError && !a.IsInError {
		if a.Cost < b.Cost {
			return ErrorComparisonTakeLeft
		}
		return ErrorComparisonPreferLeft
	}
	if a.Cost < b.Cost {
		if uint64(b.Cost-a.Cost)*uint64(1+a.NodeCountSinceError) > uint64(span.MaxCostDifference) {
			return ErrorComparisonTakeLeft
		}
		return ErrorComparisonPreferLeft
	}
	if b.Cost < a.Cost {
		if uint64(a.Cost-b.Cost)*uint64(1+b.NodeCountSinceError) > uint64(span.MaxCostDifference) {
			return ErrorComparisonTakeRight
		}
		return ErrorComparisonPreferRight
	}
	if a.DynamicPrecedence > b.DynamicPrecedence {
		return ErrorComparisonPreferLeft
	}
	if b.DynamicPrecedence > a.DynamicPrecedence {
		return ErrorComparisonPreferRight
	}
	return ErrorComparisonNone
}

// betterVersionExists is used by recovery to decide whether to keep
// investing in v: true when some other live version, at or beyond v's
// byte position, either strictly dominates v or ranks ahead of it while
// sitting at the same (state, position), where a merge would fold v's
// work in anyway.
func (d *Driver) betterVersionExists(v *gss.Version) bool {
	mine := d.status(v)
	for _, other := range d.versions {
		if other == v || other.Halted {
			continue
		}
		if other.Position.Bytes < v.Position.Bytes {
			continue
		}
		switch compareErrorStatus(mine, d.status(other)) {
		case ErrorComparisonTakeRight:
			return true
		case ErrorComparisonPreferRight:
			if other.State == v.State && other.Position == v.Position {
				return true
			}
		}
	}
	return false
}

// selectTree breaks the tie between two candidate
// trees for the same symbol at the same position: prefer the non-error
// one, then higher dynamic precedence, then the structurally earlier one
// (package subtree's Compare), keeping a deterministic choice when both
// are otherwise indistinguishable.
func (d *Driver) selectTree(a, b subtree.ID) subtree.ID {
	if a == subtree.Nil {
		return b
	}
	if b == subtree.Nil {
		return a
	}
	aErr, bErr := d.pool.Has(a, subtree.FlagIsError), d.pool.Has(b, subtree.FlagIsError)
	if aErr != bErr {
		if aErr {
			return b
		}
		return a
	}
	ap, bp := d.pool.DynamicPrecedence(a), d.pool.DynamicPrecedence(b)
	if ap != bp {
		if ap > bp {
			return a
		}
		return b
	}
	if d.pool.Compare(a, b) <= 0 {
		return a
	}
	return b
}

// selectChildren applies selectTree pairwise to two equal-length child
// lists that reduced the same production from the same origin but via
// distinct ambiguous sub-derivations, picking the preferred subtree at
// each position.
func (d *Driver) selectChildren(a, b []subtree.ID) []subtree.ID {
	if len(a) != len(b) {
		if len(a) == 0 {
			return b
		}
		return a
	}
	out := make([]subtree.ID, len(a))
	for i := range a {
		out[i] = d.selectTree(a[i], b[i])
	}
	return out
}
