package arrange

import (
	"slices"

	"github.com/patchgrid/patchgrid/pkg/patch"
)

// ArrangeFaceToFace runs the alternate non-column arrangement: every
// group is forced split, all output boxes stack on the left and all
// input boxes stack on the right, facing each other. Each box adopts the
// layout mode with the smallest collapsed height and is wrapped, and the
// shorter stack is shifted to center on the taller one.
func (a *Arranger) ArrangeFaceToFace() *Result {
	groups := a.snap.Groups()
	if len(groups) == 0 {
		return &Result{Columns: a.opts.MinColumns}
	}

	// The real graph must show two boxes per group before positions are
	// applied.
	for _, g := range groups {
		if !g.Split {
			a.cb.SplitGroup(g.ID)
		}
	}

	type half struct {
		group   patch.Group
		mode    patch.PortMode
		metrics BoxMetrics
		layout  patch.BoxLayoutMode
	}

	var outs, ins []half
	for _, g := range groups {
		for _, mode := range []patch.PortMode{patch.PortModeOutput, patch.PortModeInput} {
			high, okHigh := a.metrics.BoxMetrics(g, mode, patch.LayoutHigh)
			large, okLarge := a.metrics.BoxMetrics(g, mode, patch.LayoutLarge)
			if !okHigh || !okLarge {
				a.opts.Logger.Warn("box has no metrics, using zero size",
					"group", g.Name, "side", mode)
			}

			h := half{group: g, mode: mode, metrics: high, layout: patch.LayoutHigh}
			if large.WrappedHeight < high.WrappedHeight {
				h.metrics = large
				h.layout = patch.LayoutLarge
			}

			if mode == patch.PortModeOutput {
				outs = append(outs, h)
			} else {
				ins = append(ins, h)
			}
		}
	}

	stackHeight := func(stack []half) float64 {
		total := 0.0
		for _, h := range stack {
			total += h.metrics.WrappedHeight + a.opts.BoxSpacing
		}
		return total
	}
	outHeight, inHeight := stackHeight(outs), stackHeight(ins)

	maxOutWidth := 0.0
	for _, h := range outs {
		maxOutWidth = max(maxOutWidth, h.metrics.WrappedWidth)
	}
	inX := maxOutWidth + a.opts.ColumnSpacing

	// The shorter stack starts lower so both stacks share a center.
	outShift, inShift := 0.0, 0.0
	if outHeight < inHeight {
		outShift = (inHeight - outHeight) / 2
	} else {
		inShift = (outHeight - inHeight) / 2
	}

	byGroup := make(map[int]*GroupPlacement)
	placeStack := func(stack []half, column int, baseY float64, xFor func(h half) float64) {
		y := baseY
		for _, h := range stack {
			gx, gy := a.opts.snap(xFor(h), y)
			gp, ok := byGroup[h.group.ID]
			if !ok {
				gp = &GroupPlacement{
					GroupID:     h.group.ID,
					Name:        h.group.Name,
					ForcedSplit: true,
					Boxes:       make(map[patch.PortMode]BoxPlacement),
				}
				byGroup[h.group.ID] = gp
			}
			gp.Boxes[h.mode] = BoxPlacement{
				Column:  column,
				X:       gx,
				Y:       gy,
				Layout:  h.layout,
				Wrapped: true,
			}
			y += h.metrics.WrappedHeight + a.opts.BoxSpacing
		}
	}

	placeStack(outs, 1, outShift, func(h half) float64 {
		return maxOutWidth - h.metrics.WrappedWidth
	})
	placeStack(ins, 2, inShift, func(half) float64 { return inX })

	result := &Result{Columns: 2}
	for _, g := range groups {
		result.SplitGroups = append(result.SplitGroups, g.ID)
	}
	slices.Sort(result.SplitGroups)
	for _, gp := range byGroup {
		result.Placements = append(result.Placements, *gp)
	}
	slices.SortFunc(result.Placements, func(x, y GroupPlacement) int {
		return x.GroupID - y.GroupID
	})

	if a.cb.ApplyBox != nil {
		for _, p := range result.Placements {
			a.cb.ApplyBox(p)
		}
	}
	return result
}
