package arrange

import "github.com/patchgrid/patchgrid/pkg/patch"

// BoxMetrics describes the pixel footprint of one box under a given
// layout mode. Wrapped dimensions are the collapsed (folded) variant
// where only the title bar is visible.
type BoxMetrics struct {
	Width         float64
	Height        float64
	WrappedWidth  float64
	WrappedHeight float64
	HeaderHeight  float64
}

// MetricsProvider resolves box sizes for the arranger. The canvas widget
// toolkit implements this against real widgets; [Estimator] provides a
// standalone approximation so the engine runs headless.
type MetricsProvider interface {
	// BoxMetrics returns the size of the box showing the given port side
	// of the group under the given layout mode. The second return value
	// is false when no box can be resolved for that side.
	BoxMetrics(g patch.Group, mode patch.PortMode, layout patch.BoxLayoutMode) (BoxMetrics, bool)
}

// Estimator approximates box sizes from port counts and title length.
// It matches the proportions of the canvas theme closely enough for
// arrangement purposes without needing a widget toolkit.
type Estimator struct {
	// CharWidth is the mean glyph width of the title font.
	CharWidth float64
	// PortHeight is the height of one port row.
	PortHeight float64
	// HeaderHeight is the title bar height.
	HeaderHeight float64
	// MinWidth is the narrowest a box can get.
	MinWidth float64
}

// NewEstimator returns an estimator with canvas theme proportions.
func NewEstimator() *Estimator {
	return &Estimator{
		CharWidth:    7.5,
		PortHeight:   16,
		HeaderHeight: 26,
		MinWidth:     70,
	}
}

// BoxMetrics implements [MetricsProvider].
func (e *Estimator) BoxMetrics(g patch.Group, mode patch.PortMode, layout patch.BoxLayoutMode) (BoxMetrics, bool) {
	titleWidth := e.CharWidth*float64(len(g.Name)) + 2*e.CharWidth
	if titleWidth < e.MinWidth {
		titleWidth = e.MinWidth
	}

	ins := g.PortCount(patch.PortModeInput)
	outs := g.PortCount(patch.PortModeOutput)
	if !mode.Has(patch.PortModeInput) {
		ins = 0
	}
	if !mode.Has(patch.PortModeOutput) {
		outs = 0
	}

	var width, height float64
	switch layout {
	case patch.LayoutLarge:
		// Two port columns, title on the side.
		width = titleWidth + e.MinWidth
		height = e.HeaderHeight + float64(max(ins, outs))*e.PortHeight
	default:
		// Ports stacked under the title.
		width = titleWidth
		height = e.HeaderHeight + float64(ins+outs)*e.PortHeight
	}

	return BoxMetrics{
		Width:         width,
		Height:        height,
		WrappedWidth:  width,
		WrappedHeight: e.HeaderHeight,
		HeaderHeight:  e.HeaderHeight,
	}, true
}
