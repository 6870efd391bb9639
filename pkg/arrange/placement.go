package arrange

import (
	"slices"

	"github.com/patchgrid/patchgrid/pkg/patch"
)

// goTo is the horizontal direction of a network walk, inferred from
// successive column deltas.
type goTo int

const (
	goNone goTo = iota
	goLeft
	goRight
)

// BoxPlacement is the final target of one box: its column, its
// grid-snapped position and the layout it should adopt.
type BoxPlacement struct {
	Column  int
	X       float64
	Y       float64
	Layout  patch.BoxLayoutMode
	Wrapped bool
}

// GroupPlacement bundles the box placements of one group, keyed by port
// side. A unified group has a single BOTH entry; a split group has an
// OUTPUT and an INPUT entry.
type GroupPlacement struct {
	GroupID     int
	Name        string
	ForcedSplit bool
	Boxes       map[patch.PortMode]BoxPlacement
}

// Result is the outcome of one arrangement run.
type Result struct {
	// Columns is the resolved column count (at least the configured
	// minimum, even for an empty graph).
	Columns int

	// Restarts counts the split-and-retry rounds that were needed.
	Restarts int

	// SplitGroups lists the group IDs that ended up split, ascending.
	SplitGroups []int

	// Placements holds one entry per group, sorted by group ID.
	Placements []GroupPlacement
}

// place runs the two geometric passes over the resolved node graph and
// assembles the result. Multi-node networks are walked in traversal
// order so connected chains stay visually level; isolated boxes fill the
// least-loaded interior column afterwards.
func (a *Arranger) place() *Result {
	nCols := a.opts.MinColumns
	for _, n := range a.nodes {
		if needed := n.neededColumns(); needed > nCols {
			nCols = needed
		}
	}

	bottoms := make(map[int]float64, nCols)
	for c := 1; c <= nCols; c++ {
		bottoms[c] = 0
	}

	a.placeNetworks(nCols, bottoms)
	a.placeSingletons(nCols, bottoms)

	// Column widths from the widest box each column holds, compact
	// metric, then cumulative x origins.
	widths := make(map[int]float64, nCols)
	for _, n := range a.nodes {
		if w := n.boxWidth(); w > widths[n.column] {
			widths[n.column] = w
		}
	}
	origins := make(map[int]float64, nCols)
	lastPos := 0.0
	for c := 1; c <= nCols; c++ {
		origins[c] = lastPos
		lastPos += widths[c] + a.opts.ColumnSpacing
	}

	// Align the aggregate vertical center of the hardware columns with
	// the center of the interior ones.
	maxHardware, maxMiddle := 0.0, 0.0
	for c, bottom := range bottoms {
		if c == 1 || c == nCols {
			maxHardware = max(maxHardware, bottom)
		} else {
			maxMiddle = max(maxMiddle, bottom)
		}
	}

	splitIDs := a.groupIDsToSplit()
	byGroup := make(map[int]*GroupPlacement)

	for _, n := range a.nodes {
		var yOffset float64
		if n.column == 1 || n.column == nCols {
			yOffset = (bottoms[n.column] - maxHardware) / 2
		} else {
			yOffset = (maxHardware - maxMiddle) / 2
		}

		var x float64
		switch n.align() {
		case alignCenter:
			x = origins[n.column] + (widths[n.column]-n.boxWidth())/2
		case alignRight:
			x = origins[n.column] + widths[n.column] - n.boxWidth()
		default:
			x = origins[n.column]
		}

		gx, gy := a.opts.snap(x, n.yPos+yOffset)

		gp, ok := byGroup[n.groupID]
		if !ok {
			gp = &GroupPlacement{
				GroupID:     n.groupID,
				Name:        n.name,
				ForcedSplit: splitIDs[n.groupID],
				Boxes:       make(map[patch.PortMode]BoxPlacement),
			}
			byGroup[n.groupID] = gp
		}
		gp.Boxes[n.mode] = BoxPlacement{
			Column:  n.column,
			X:       gx,
			Y:       gy,
			Layout:  n.layoutMode,
			Wrapped: n.wrapped,
		}
	}

	result := &Result{Columns: nCols, Restarts: a.restarts}
	for id := range splitIDs {
		result.SplitGroups = append(result.SplitGroups, id)
	}
	slices.Sort(result.SplitGroups)
	for _, gp := range byGroup {
		result.Placements = append(result.Placements, *gp)
	}
	slices.SortFunc(result.Placements, func(x, y GroupPlacement) int {
		return x.GroupID - y.GroupID
	})
	return result
}

// placeNetworks assigns vertical positions to every node of the
// multi-node networks. A node on an edge (hardware) column drops to that
// column's running bottom; inside the canvas, a node continuing in the
// same direction aligns to the previous node's top, while a direction
// reversal starts a new visual row below everything the current row
// touched.
func (a *Arranger) placeNetworks(nCols int, bottoms map[int]float64) {
	lastTop, lastBottom := 0.0, 0.0
	direction := goNone
	previousColumn := 0

	for _, network := range a.networks {
		if len(network) <= 1 {
			continue
		}

		for _, n := range network {
			column := n.level(nCols)

			if direction == goNone {
				if column > previousColumn {
					direction = goRight
				} else if column < previousColumn {
					direction = goLeft
				}
			}

			var y float64
			switch {
			case column == 1 || column == nCols:
				y = bottoms[column]
			case (direction == goRight && column > previousColumn) ||
				(direction == goLeft && column < previousColumn):
				y = lastTop
			default:
				y = lastBottom
				lastBottom = 0
				direction = goNone
			}

			n.column = column
			n.yPos = y

			if column != 1 && column != nCols {
				lastTop = y
			}

			bottom := y + n.boxHeight() + a.opts.BoxSpacing
			bottoms[column] = bottom
			if column != 1 && column != nCols && bottom > lastBottom {
				lastBottom = bottom
			}

			previousColumn = column
		}
	}
}

// placeSingletons drops isolated boxes into place after the networks.
// Hardware singletons go to their anchored edge column; anything else
// fills whichever interior column currently ends nearest the top, first
// match winning ties.
func (a *Arranger) placeSingletons(nCols int, bottoms map[int]float64) {
	for _, network := range a.networks {
		if len(network) != 1 {
			continue
		}
		n := network[0]

		if lvl := n.level(nCols); lvl == 1 || lvl == nCols {
			n.column = lvl
			n.yPos = bottoms[lvl]
			bottoms[lvl] += n.boxHeight() + a.opts.BoxSpacing
			continue
		}

		chosen := 2
		bottomMin := bottoms[2]
		for c := 2; c < nCols; c++ {
			if bottoms[c] < bottomMin {
				bottomMin = bottoms[c]
			}
		}
		for c := 2; c < nCols; c++ {
			if bottoms[c] == bottomMin {
				chosen = c
				break
			}
		}

		n.column = chosen
		n.yPos = bottomMin
		bottoms[chosen] += n.boxHeight() + a.opts.BoxSpacing
	}
}

// boxMetrics returns the metrics of the node's effective layout mode.
func (n *node) boxMetrics() BoxMetrics {
	if n.layoutMode == patch.LayoutLarge {
		return n.metricsLarge
	}
	return n.metricsHigh
}

func (n *node) boxWidth() float64 {
	if n.wrapped {
		return n.boxMetrics().WrappedWidth
	}
	return n.boxMetrics().Width
}

func (n *node) boxHeight() float64 {
	if n.wrapped {
		return n.boxMetrics().WrappedHeight
	}
	return n.boxMetrics().Height
}
