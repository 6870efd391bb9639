// Package arrange computes automatic box layouts for a patchbay canvas.
//
// Given a snapshot of the canvas graph, the arranger assigns every box a
// discrete column and a pixel position so that signal flow reads left to
// right, hardware devices sit on the outer columns, and no two boxes
// overlap. Cyclic topologies are resolved by splitting the offending
// group into an input half and an output half and restarting the column
// resolution, which terminates because each split permanently removes the
// re-entrant edge that caused it.
//
// The engine is pure computation over an in-memory snapshot: it runs to
// completion synchronously within one call and keeps no state between
// runs. External collaborators provide box sizes ([MetricsProvider]) and
// receive split/join and placement requests ([Callbacks]).
package arrange

import (
	"github.com/patchgrid/patchgrid/pkg/patch"
)

// Callbacks connects the arranger to the surrounding canvas. All
// callbacks must be synchronous and must not re-enter the arranger.
type Callbacks struct {
	// JoinGroup merges the two boxes of a split group back into one.
	// Idempotent; may change the snapshot's group order.
	JoinGroup func(groupID int)

	// SplitGroup splits a unified group into two boxes, one per port
	// direction. Idempotent; may change the snapshot's group order.
	SplitGroup func(groupID int)

	// ApplyBox moves the boxes of one group to their final positions.
	// Called once per group after placement. Nil to only collect the
	// [Result].
	ApplyBox func(p GroupPlacement)
}

// Arranger coordinates one arrangement run: it builds the node graph from
// the snapshot, drives the column fixpoint, reconciles group split state,
// and performs the geometric placement. Create a fresh Arranger for every
// run.
type Arranger struct {
	snap    *patch.Snapshot
	metrics MetricsProvider
	cb      Callbacks
	opts    Options

	nodes    []*node
	networks [][]*node

	// toSplit is set when the fixpoint detects a looping topology around
	// one node; the driver splits it and restarts.
	toSplit  *node
	restarts int
}

// New creates an arranger over the given snapshot.
//
// When metrics is nil, [NewEstimator] is used. When the join/split
// callbacks are nil they default to toggling the snapshot's split flags,
// which is enough for headless use.
func New(snap *patch.Snapshot, metrics MetricsProvider, cb Callbacks, opts Options) *Arranger {
	opts.setDefaults()
	if metrics == nil {
		metrics = NewEstimator()
	}
	if cb.JoinGroup == nil {
		cb.JoinGroup = func(groupID int) { snap.SetSplit(groupID, false) }
	}
	if cb.SplitGroup == nil {
		cb.SplitGroup = func(groupID int) { snap.SetSplit(groupID, true) }
	}

	a := &Arranger{snap: snap, metrics: metrics, cb: cb, opts: opts}
	a.buildNodes()
	return a
}

// buildNodes creates one node per (group, side) and resolves the
// connection adjacency. Hardware groups and groups with a self loop are
// built split from the start; everything else starts unified.
func (a *Arranger) buildNodes() {
	selfLoops := a.snap.SelfLoopGroups()

	for _, g := range a.snap.Groups() {
		if g.Type == patch.BoxTypeHardware || selfLoops[g.ID] {
			a.nodes = append(a.nodes, newNode(a, g, patch.PortModeOutput))
			a.nodes = append(a.nodes, newNode(a, g, patch.PortModeInput))
		} else {
			a.nodes = append(a.nodes, newNode(a, g, patch.PortModeBoth))
		}
	}

	for _, conn := range a.snap.Connections() {
		for _, n := range a.nodes {
			if n.isOwner(conn.OutGroup, patch.PortModeOutput) {
				n.connsIn[conn.InGroup] = true
			}
			if n.isOwner(conn.InGroup, patch.PortModeInput) {
				n.connsOut[conn.OutGroup] = true
			}
		}
	}

	for _, n := range a.nodes {
		n.resolveNeighbors(a.nodes)
	}
}

// Arrange runs the full pipeline: column fixpoint (with split-and-retry),
// split/join reconciliation against the real graph, metrics loading and
// geometric placement. The returned result is also pushed box by box
// through the ApplyBox callback when one is set.
func (a *Arranger) Arrange() *Result {
	if len(a.nodes) == 0 {
		return &Result{Columns: a.opts.MinColumns}
	}

	for {
		for _, n := range a.nodes {
			n.reset()
			if a.opts.HardwareOnSides && n.boxType == patch.BoxTypeHardware {
				if n.mode.Has(patch.PortModeOutput) {
					n.colLeft = 1
					n.colLeftFixed = true
				} else {
					n.colRight = -1
					n.colRightFixed = true
				}
			}
		}

		if a.resolveColumns() {
			break
		}
		a.applySplit()
		a.restarts++
	}

	a.reconcileSplits()
	a.loadMetrics()

	result := a.place()
	if a.cb.ApplyBox != nil {
		for _, p := range result.Placements {
			a.cb.ApplyBox(p)
		}
	}
	return result
}

// Restarts returns how many split-and-retry rounds the last Arrange run
// needed. Zero for acyclic graphs.
func (a *Arranger) Restarts() int { return a.restarts }

// resolveColumns runs one full column-resolution pass. It reports false
// when a cyclic topology was detected, in which case toSplit names the
// node to break apart.
func (a *Arranger) resolveColumns() bool {
	a.toSplit = nil
	a.networks = a.networks[:0]

	// Discover networks starting from the anchored edges first: left
	// anchors, then right anchors, then whatever remains.
	for _, n := range a.nodes {
		if n.colLeft == 1 && n.colLeftFixed && !n.analyzed {
			if !a.discoverNetwork(n) {
				return false
			}
		}
	}
	for _, n := range a.nodes {
		if n.colRight == -1 && n.colRightFixed && !n.analyzed {
			if !a.discoverNetwork(n) {
				return false
			}
		}
	}
	for _, n := range a.nodes {
		if !n.analyzed {
			if !a.discoverNetwork(n) {
				return false
			}
		}
	}

	nColumns := a.opts.MinColumns
	for _, n := range a.nodes {
		if needed := n.neededColumns(); needed > nColumns {
			nColumns = needed
		}
	}

	// Nodes spanning the full width are pinned on both sides.
	for _, n := range a.nodes {
		if n.neededColumns() == nColumns {
			n.colLeftFixed = true
			n.colRightFixed = true
		}
	}

	for _, network := range a.networks {
		a.fixNetwork(network, nColumns)
	}

	a.opts.Logger.Debug("columns resolved",
		"columns", nColumns, "nodes", len(a.nodes), "networks", len(a.networks))
	return true
}

func (a *Arranger) discoverNetwork(root *node) bool {
	var network []*node
	root.parseAll(&network)
	if a.toSplit != nil {
		return false
	}
	a.networks = append(a.networks, network)
	return true
}

// fixNetwork pins every node of one network to a column. Unfixed nodes
// are tightened from fixed neighbors one column at a time; a network with
// no naturally fixed node gets its first node seeded.
func (a *Arranger) fixNetwork(network []*node, nColumns int) {
	if len(network) == 0 {
		return
	}

	anyFixed := false
	for _, n := range network {
		if n.colLeftFixed || n.colRightFixed {
			anyFixed = true
			break
		}
	}
	if !anyFixed {
		network[0].colLeftFixed = true
	}

	for {
		progress := false
		for _, n := range network {
			if n.bringCloserFromFixed() {
				progress = true
			}
		}
		if !progress {
			break
		}
	}

	for _, n := range network {
		if !n.colLeftFixed && !n.colRightFixed {
			n.colLeftFixed = true
		}
		n.deriveFromColumns(nColumns)
	}
}

// applySplit breaks the recorded node in two: the input half becomes a
// new node taking over the upstream adjacency, the original keeps the
// downstream side. All column state is reset for the retry.
func (a *Arranger) applySplit() {
	if a.toSplit == nil {
		return
	}
	orig := a.toSplit

	group, ok := a.snap.Group(orig.groupID)
	if !ok {
		// The snapshot no longer knows the group; nothing sane to split.
		a.opts.Logger.Error("cannot split unknown group", "group", orig.groupID)
		a.toSplit = nil
		return
	}

	a.opts.Logger.Debug("splitting looping group", "group", group.Name, "id", group.ID)

	inHalf := newNode(a, group, patch.PortModeInput)
	inHalf.ins = orig.ins
	inHalf.connsOut = orig.connsOut

	// The input half takes the original's slot in each upstream list, so
	// neighbor traversal order is unchanged by the split.
	for _, up := range orig.ins {
		for i, out := range up.outs {
			if out == orig {
				up.outs[i] = inHalf
			}
		}
	}

	orig.ins = nil
	orig.connsOut = make(map[int]bool)
	orig.mode = patch.PortModeOutput

	a.nodes = append(a.nodes, inHalf)
	a.toSplit = nil

	for _, n := range a.nodes {
		n.reset()
	}
}

// groupIDsToSplit returns the groups that ended up represented by two
// half nodes.
func (a *Arranger) groupIDsToSplit() map[int]bool {
	ids := make(map[int]bool)
	for _, n := range a.nodes {
		if n.mode != patch.PortModeBoth {
			ids[n.groupID] = true
		}
	}
	return ids
}

// reconcileSplits converges the real graph's split state to the resolved
// one. Each join/split may reorder the snapshot's group list, so the scan
// restarts after every change until a full pass finds nothing to do.
func (a *Arranger) reconcileSplits() {
	required := a.groupIDsToSplit()

	for {
		changed := false
		for _, g := range a.snap.Groups() {
			if g.Split {
				if g.Type != patch.BoxTypeHardware && !required[g.ID] {
					a.cb.JoinGroup(g.ID)
					changed = true
					break
				}
			} else if g.Type == patch.BoxTypeHardware || required[g.ID] {
				a.cb.SplitGroup(g.ID)
				changed = true
				break
			}
		}
		if !changed {
			return
		}
	}
}

// loadMetrics caches box sizes for both layout modes on every node.
// A node whose box cannot be measured is logged and laid out zero-sized
// rather than failing the run.
func (a *Arranger) loadMetrics() {
	for _, n := range a.nodes {
		group, ok := a.snap.Group(n.groupID)
		if !ok {
			a.opts.Logger.Warn("node lost its group", "group", n.groupID, "side", n.mode)
			continue
		}

		high, okHigh := a.metrics.BoxMetrics(group, n.mode, patch.LayoutHigh)
		large, okLarge := a.metrics.BoxMetrics(group, n.mode, patch.LayoutLarge)
		if !okHigh || !okLarge {
			a.opts.Logger.Warn("box has no metrics, using zero size",
				"group", group.Name, "side", n.mode)
		}
		n.metricsHigh = high
		n.metricsLarge = large
		n.layoutMode = patch.LayoutHigh
	}
}
