package arrange

import (
	"io"

	"github.com/charmbracelet/log"
)

// Default layout constants. These mirror the canvas defaults: a 16x12
// pixel layout grid, 10 pixels between stacked boxes, 80 pixels between
// columns, and at least 3 columns so hardware anchors never collapse onto
// the middle.
const (
	DefaultCellWidth     = 16
	DefaultCellHeight    = 12
	DefaultBoxSpacing    = 10.0
	DefaultColumnSpacing = 80.0
	DefaultMinColumns    = 3
)

// Options configures an arrangement run.
type Options struct {
	// HardwareOnSides anchors hardware capture devices to the leftmost
	// column and hardware playback devices to the rightmost one.
	HardwareOnSides bool

	// MinColumns is the floor for the column count (default 3).
	MinColumns int

	// BoxSpacing is the vertical gap between stacked boxes in pixels.
	BoxSpacing float64

	// ColumnSpacing is the horizontal gap between columns in pixels.
	ColumnSpacing float64

	// CellWidth and CellHeight define the layout grid final positions are
	// snapped to.
	CellWidth  int
	CellHeight int

	// Logger receives arrangement diagnostics (split events, fixpoint
	// restarts, missing metrics). Defaults to a discarding logger.
	Logger *log.Logger
}

// DefaultOptions returns the canvas defaults with hardware anchoring on.
func DefaultOptions() Options {
	opts := Options{HardwareOnSides: true}
	opts.setDefaults()
	return opts
}

func (o *Options) setDefaults() {
	if o.MinColumns <= 0 {
		o.MinColumns = DefaultMinColumns
	}
	if o.BoxSpacing <= 0 {
		o.BoxSpacing = DefaultBoxSpacing
	}
	if o.ColumnSpacing <= 0 {
		o.ColumnSpacing = DefaultColumnSpacing
	}
	if o.CellWidth <= 0 {
		o.CellWidth = DefaultCellWidth
	}
	if o.CellHeight <= 0 {
		o.CellHeight = DefaultCellHeight
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// snap rounds a coordinate pair to the nearest grid cell corner.
func (o *Options) snap(x, y float64) (float64, float64) {
	cw, ch := float64(o.CellWidth), float64(o.CellHeight)
	return roundTo(x, cw), roundTo(y, ch)
}

func roundTo(v, step float64) float64 {
	n := int(v/step + 0.5)
	if v < 0 {
		n = int(v/step - 0.5)
	}
	return float64(n) * step
}
