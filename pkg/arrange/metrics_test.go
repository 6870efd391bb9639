package arrange

import (
	"testing"

	"github.com/patchgrid/patchgrid/pkg/patch"
)

func TestEstimatorHighLayout(t *testing.T) {
	e := NewEstimator()
	g := patch.Group{ID: 1, Name: "mixer", Ports: []patch.Port{
		{ID: 1, Mode: patch.PortModeInput},
		{ID: 2, Mode: patch.PortModeInput},
		{ID: 3, Mode: patch.PortModeOutput},
	}}

	m, ok := e.BoxMetrics(g, patch.PortModeBoth, patch.LayoutHigh)
	if !ok {
		t.Fatal("BoxMetrics returned !ok")
	}

	// "mixer" is 5 chars: 5*7.5 + 2*7.5 = 52.5, clamped to MinWidth.
	if m.Width != e.MinWidth {
		t.Errorf("Width = %v, want MinWidth %v", m.Width, e.MinWidth)
	}
	// Title bar plus all three ports stacked.
	wantHeight := e.HeaderHeight + 3*e.PortHeight
	if m.Height != wantHeight {
		t.Errorf("Height = %v, want %v", m.Height, wantHeight)
	}
	if m.WrappedHeight != e.HeaderHeight {
		t.Errorf("WrappedHeight = %v, want header %v", m.WrappedHeight, e.HeaderHeight)
	}
}

func TestEstimatorLargeLayout(t *testing.T) {
	e := NewEstimator()
	g := patch.Group{ID: 1, Name: "mixer", Ports: []patch.Port{
		{ID: 1, Mode: patch.PortModeInput},
		{ID: 2, Mode: patch.PortModeInput},
		{ID: 3, Mode: patch.PortModeOutput},
	}}

	m, _ := e.BoxMetrics(g, patch.PortModeBoth, patch.LayoutLarge)

	// Side by side port columns: height follows the taller side only.
	wantHeight := e.HeaderHeight + 2*e.PortHeight
	if m.Height != wantHeight {
		t.Errorf("Height = %v, want %v", m.Height, wantHeight)
	}
	if m.Width != e.MinWidth+e.MinWidth {
		t.Errorf("Width = %v, want %v", m.Width, e.MinWidth+e.MinWidth)
	}
}

func TestEstimatorLongTitle(t *testing.T) {
	e := NewEstimator()
	g := patch.Group{ID: 1, Name: "a-rather-long-client-name"}

	m, _ := e.BoxMetrics(g, patch.PortModeBoth, patch.LayoutHigh)

	want := e.CharWidth*float64(len(g.Name)) + 2*e.CharWidth
	if m.Width != want {
		t.Errorf("Width = %v, want %v", m.Width, want)
	}
}

func TestEstimatorHalfBoxIgnoresOtherSide(t *testing.T) {
	e := NewEstimator()
	g := patch.Group{ID: 1, Name: "io", Ports: []patch.Port{
		{ID: 1, Mode: patch.PortModeInput},
		{ID: 2, Mode: patch.PortModeInput},
		{ID: 3, Mode: patch.PortModeOutput},
	}}

	m, _ := e.BoxMetrics(g, patch.PortModeOutput, patch.LayoutHigh)

	// Only the single output port counts for the output half.
	want := e.HeaderHeight + 1*e.PortHeight
	if m.Height != want {
		t.Errorf("Height = %v, want %v", m.Height, want)
	}
}
