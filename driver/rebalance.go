package driver

import "github.com/npillmayer/grit/subtree"

// balanceThreshold is the direct-child fan-out above which a node gets
// regrouped into same-symbol intermediate wrappers.
const balanceThreshold = 32

// groupSize is how many children one intermediate wrapper holds.
const groupSize = 8

// rebalance runs a structural compression pass over
// an accepted tree, driven by a worklist stored on the Driver
// (d.rebalanceQueue) rather than by call-stack recursion. The loop does
// not poll for cancellation: once started, it runs to completion within
// the same Run call. It never changes root's own identity, only the fan-out of nodes
// reachable under it, so callers can hold onto the returned id across a
// resumed call.
func (d *Driver) rebalance(root subtree.ID) subtree.ID {
	if root == subtree.Nil {
		return root
	}
	if len(d.rebalanceQueue) == 0 {
		d.rebalanceQueue = append(d.rebalanceQueue, root)
	}
	for len(d.rebalanceQueue) > 0 {
		id := d.rebalanceQueue[len(d.rebalanceQueue)-1]
		d.rebalanceQueue = d.rebalanceQueue[:len(d.rebalanceQueue)-1]
		d.rebalanceOne(id)
	}
	return root
}

// rebalanceOne regroups id's children if there are more than
// balanceThreshold of them, then queues id's (possibly now fewer, deeper)
// children for their own pass.
func (d *Driver) rebalanceOne(id subtree.ID) {
	children := d.pool.Children(id)
	if len(children) > balanceThreshold {
		if m, ok := d.pool.TryMutate(id); ok {
			m.SetChildren(d.groupChildren(id, children))
		} else {
			tracer().Debugf("rebalance: node %d shared, skipping regroup", id)
		}
	}
	for _, c := range d.pool.Children(id) {
		if d.pool.ChildCount(c) > 0 {
			d.rebalanceQueue = append(d.rebalanceQueue, c)
		}
	}
}

// groupChildren wraps runs of groupSize children into same-symbol
// intermediate nodes. NewNode takes its own reference on each original
// child, and the caller's SetChildren then drops id's references on the
// old child list, so each original child ends up held once, by the
// wrapper that now contains it.
func (d *Driver) groupChildren(id subtree.ID, children []subtree.ID) []subtree.ID {
	symbol := d.pool.Symbol(id)
	prodID := d.pool.ProductionID(id)
	out := make([]subtree.ID, 0, (len(children)+groupSize-1)/groupSize)
	for i := 0; i < len(children); i += groupSize {
		end := i + groupSize
		if end > len(children) {
			end = len(children)
		}
		out = append(out, d.pool.NewNode(symbol, prodID, children[i:end], 0, subtree.StateNone, 0))
	}
	return out
}
