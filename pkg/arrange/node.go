package arrange

import (
	"fmt"
	"slices"

	"github.com/patchgrid/patchgrid/pkg/patch"
)

// Column bound start values. colLeft is a lower bound counted from the
// left edge, colRight an upper bound counted from the right edge as a
// negative offset. Hardware anchors override these with fixed 1 / -1.
const (
	startColLeft  = 2
	startColRight = -2
)

// boxAlign is the horizontal alignment of a box inside its column.
type boxAlign int

const (
	alignLeft boxAlign = iota
	alignCenter
	alignRight
)

// node is the arranger's view of one box: one per (group, port side).
// A unified group has a single BOTH node; hardware groups and groups
// involved in a cycle carry one OUTPUT and one INPUT node.
//
// The node graph is rebuilt from scratch for every arrangement run and
// owned exclusively by the Arranger, so the mutual ins/outs references
// need no synchronization.
type node struct {
	arr *Arranger

	// The group is referenced by ID only: it can be split while this
	// node is alive, which would invalidate a direct reference.
	groupID int
	name    string
	boxType patch.BoxType
	mode    patch.PortMode

	// Group IDs attributed during the connection scan, resolved into
	// direct node references once all nodes exist.
	connsIn  map[int]bool // groups fed by this node's outputs
	connsOut map[int]bool // groups feeding this node's inputs
	ins      []*node      // upstream neighbors
	outs     []*node      // downstream neighbors

	colLeft         int
	colRight        int
	colLeftFixed    bool
	colRightFixed   bool
	colLeftCounted  bool
	colRightCounted bool
	analyzed        bool

	column int
	yPos   float64

	metricsHigh  BoxMetrics
	metricsLarge BoxMetrics
	layoutMode   patch.BoxLayoutMode
	wrapped      bool
}

func newNode(arr *Arranger, g patch.Group, mode patch.PortMode) *node {
	return &node{
		arr:      arr,
		groupID:  g.ID,
		name:     g.Name,
		boxType:  g.Type,
		mode:     mode,
		connsIn:  make(map[int]bool),
		connsOut: make(map[int]bool),
		colLeft:  startColLeft,
		colRight: startColRight,
	}
}

func (n *node) String() string {
	return fmt.Sprintf("node(%s, %s)", n.name, n.mode)
}

// isOwner reports whether this node represents the given group for the
// given port direction.
func (n *node) isOwner(groupID int, mode patch.PortMode) bool {
	return n.groupID == groupID && n.mode&mode != 0
}

// connCount is the total neighbor-connection count, used by the
// deterministic adjacency comparator.
func (n *node) connCount() int { return len(n.connsIn) + len(n.connsOut) }

// nodeLess is the deterministic adjacency comparator: hardware and other
// non-application boxes sort before applications, then higher connection
// counts first, then ascending group ID.
func nodeLess(a, b *node) bool {
	if a.boxType != b.boxType {
		if a.boxType == patch.BoxTypeApplication {
			return false
		}
		if b.boxType == patch.BoxTypeApplication {
			return true
		}
		return a.boxType < b.boxType
	}
	if ca, cb := a.connCount(), b.connCount(); ca != cb {
		return ca > cb
	}
	return a.groupID < b.groupID
}

// resolveNeighbors turns the collected group-ID sets into direct node
// references, matching each ID against the node owning the opposite port
// direction, then sorts both lists for reproducible traversal order.
func (n *node) resolveNeighbors(all []*node) {
	for groupID := range n.connsIn {
		for _, other := range all {
			if other.isOwner(groupID, patch.PortModeInput) {
				n.outs = append(n.outs, other)
				break
			}
		}
	}
	for groupID := range n.connsOut {
		for _, other := range all {
			if other.isOwner(groupID, patch.PortModeOutput) {
				n.ins = append(n.ins, other)
				break
			}
		}
	}
	slices.SortFunc(n.ins, cmpNodes)
	slices.SortFunc(n.outs, cmpNodes)
}

func cmpNodes(a, b *node) int {
	switch {
	case nodeLess(a, b):
		return -1
	case nodeLess(b, a):
		return 1
	}
	return 0
}

// countLeft finalizes the left bound of every upstream neighbor, then
// raises this node's left bound above the highest of them. The path is
// copied on descend; if this node reappears in its own recursion path the
// topology is cyclic and the node is recorded for splitting.
func (n *node) countLeft(path []*node) {
	if n.arr.toSplit != nil {
		return
	}
	if n.colLeftFixed || n.colLeftCounted {
		return
	}
	if slices.Contains(path, n) {
		n.arr.toSplit = n
		return
	}
	path = append(slices.Clone(path), n)

	for _, in := range n.ins {
		in.countLeft(path)
	}

	left := n.colLeft
	fixed := 0
	for _, in := range n.ins {
		if in.colLeft+1 > left {
			left = in.colLeft + 1
		}
		if in.colLeftFixed {
			fixed++
		}
	}

	n.colLeft = left
	if fixed > 0 && fixed == len(n.ins) {
		n.colLeftFixed = true
	}
	n.colLeftCounted = true
}

// countRight is the mirror of countLeft over downstream neighbors,
// lowering the right bound below the lowest of them.
func (n *node) countRight(path []*node) {
	if n.arr.toSplit != nil {
		return
	}
	if n.colRightFixed || n.colRightCounted {
		return
	}
	if slices.Contains(path, n) {
		n.arr.toSplit = n
		return
	}
	path = append(slices.Clone(path), n)

	for _, out := range n.outs {
		out.countRight(path)
	}

	right := n.colRight
	fixed := 0
	for _, out := range n.outs {
		if out.colRight-1 < right {
			right = out.colRight - 1
		}
		if out.colRightFixed {
			fixed++
		}
	}

	n.colRight = right
	if fixed > 0 && fixed == len(n.outs) {
		n.colRightFixed = true
	}
	n.colRightCounted = true
}

// parseAll walks the connected component containing this node, counting
// both bounds on the way. The network slice doubles as the visited guard,
// so nodes already collected are not re-descended.
func (n *node) parseAll(network *[]*node) {
	if n.arr.toSplit != nil {
		return
	}
	if slices.Contains(*network, n) {
		return
	}
	*network = append(*network, n)

	n.countLeft(nil)
	if n.arr.toSplit != nil {
		return
	}
	n.countRight(nil)
	if n.arr.toSplit != nil {
		return
	}

	for _, in := range n.ins {
		in.parseAll(network)
	}
	for _, out := range n.outs {
		out.parseAll(network)
	}
	n.analyzed = true
}

// neededColumns is the minimum column span implied by this node's bounds.
func (n *node) neededColumns() int { return n.colLeft - n.colRight - 1 }

// level resolves the final column index given the total column count.
func (n *node) level(nColumns int) int {
	if n.colLeftFixed {
		return n.colLeft
	}
	if n.colRightFixed {
		return nColumns + n.colRight + 1
	}
	return n.colLeft
}

// bringCloserFromFixed tightens one unfixed bound from an already-fixed
// neighbor exactly one column away. Reports whether the node became
// fixed. Bounds only move in their monotone direction: a candidate that
// would lower colLeft or raise colRight is skipped.
func (n *node) bringCloserFromFixed() bool {
	if n.colLeftFixed || n.colRightFixed {
		return false
	}
	for _, in := range n.ins {
		if in.colLeftFixed {
			if in.colLeft+1 > n.colLeft {
				n.colLeft = in.colLeft + 1
			}
			n.colLeftFixed = true
			return true
		}
	}
	for _, out := range n.outs {
		if out.colRightFixed {
			if out.colRight-1 < n.colRight {
				n.colRight = out.colRight - 1
			}
			n.colRightFixed = true
			return true
		}
	}
	for _, out := range n.outs {
		if out.colLeftFixed && out.colLeft-1 >= n.colLeft {
			n.colLeft = out.colLeft - 1
			n.colLeftFixed = true
			return true
		}
	}
	for _, in := range n.ins {
		if in.colRightFixed && in.colRight+1 <= n.colRight {
			n.colRight = in.colRight + 1
			n.colRightFixed = true
			return true
		}
	}
	return false
}

// deriveFromColumns completes the opposite bound of a one-side-fixed node
// so that its span equals the resolved column count.
func (n *node) deriveFromColumns(nColumns int) {
	switch {
	case n.colLeftFixed && !n.colRightFixed:
		n.colRight = n.colLeft - 1 - nColumns
		n.colRightFixed = true
	case n.colRightFixed && !n.colLeftFixed:
		n.colLeft = nColumns + n.colRight + 1
		n.colLeftFixed = true
	}
}

// align picks the in-column alignment from the port side and the
// presence of neighbors on each side.
func (n *node) align() boxAlign {
	if n.mode == patch.PortModeOutput {
		return alignRight
	}
	if n.mode == patch.PortModeInput {
		return alignLeft
	}
	if len(n.outs) > 0 && len(n.ins) > 0 {
		return alignCenter
	}
	if len(n.outs) > 0 {
		return alignRight
	}
	if len(n.ins) > 0 {
		return alignLeft
	}
	return alignCenter
}

// reset restores the column state for a fresh fixpoint pass. Adjacency
// and metrics survive a reset, bounds and flags do not.
func (n *node) reset() {
	n.colLeft = startColLeft
	n.colLeftCounted = false
	n.colLeftFixed = false
	n.colRight = startColRight
	n.colRightCounted = false
	n.colRightFixed = false
	n.analyzed = false
}
