// Package pipeline provides the core arrange → render pipeline for Patchgrid.
//
// This package implements the complete snapshot → layout → artifact pipeline
// that can be used by CLI and server components. Centralizing this logic
// keeps behavior consistent across entry points and avoids duplicated
// caching code.
//
// # Architecture
//
// The pipeline consists of two stages:
//
//  1. Arrange: Compute column assignments and box positions for a snapshot
//  2. Render: Generate output in various formats (DOT, SVG, PNG, JSON)
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Mode:    pipeline.ModeColumns,
//	    Formats: []string{"svg"},
//	}
//	result, err := runner.Execute(ctx, snapshot, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/patchgrid/patchgrid/pkg/arrange"
	"github.com/patchgrid/patchgrid/pkg/cache"
	"github.com/patchgrid/patchgrid/pkg/layout"
)

// Arrangement mode constants, re-exported for callers that do not
// import pkg/layout directly.
const (
	ModeColumns    = layout.ModeColumns
	ModeFaceToFace = layout.ModeFaceToFace
)

// Format constants for output formats.
const (
	FormatDOT  = "dot"
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatJSON = "json"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatDOT:  true,
	FormatSVG:  true,
	FormatPNG:  true,
	FormatJSON: true,
}

// ValidModes is the set of supported arrangement modes.
var ValidModes = map[string]bool{
	ModeColumns:    true,
	ModeFaceToFace: true,
}

// Options contains all configuration for the arrangement pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Arrange options
	Mode            string  `json:"mode,omitempty"`
	HardwareOnSides *bool   `json:"hardware_on_sides,omitempty"`
	MinColumns      int     `json:"min_columns,omitempty"`
	BoxSpacing      float64 `json:"box_spacing,omitempty"`
	ColumnSpacing   float64 `json:"column_spacing,omitempty"`
	CellWidth       int     `json:"cell_width,omitempty"`
	CellHeight      int     `json:"cell_height,omitempty"`

	// Render options
	Formats  []string `json:"formats,omitempty"`
	Detailed bool     `json:"detailed,omitempty"`

	// Refresh bypasses the cache and recomputes everything.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger  *log.Logger             `json:"-"`
	Metrics arrange.MetricsProvider `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID uniquely identifies this pipeline execution.
	RunID string

	// SnapshotHash is the content hash of the input snapshot.
	SnapshotHash string

	// Layout contains the computed box positions.
	Layout layout.Layout

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	GroupCount      int
	ConnectionCount int
	ArrangeTime     time.Duration
	RenderTime      time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LayoutHit bool // Whether the layout came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format: %q (must be one of: dot, svg, png, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateMode checks that an arrangement mode is valid.
func ValidateMode(mode string) error {
	if !ValidModes[mode] {
		return fmt.Errorf("invalid mode: %q (must be one of: columns, face_to_face)", mode)
	}
	return nil
}

// ValidateAndSetDefaults checks fields and applies defaults for the full pipeline.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForArrange(); err != nil {
		return err
	}
	o.SetRenderDefaults()
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForArrange validates and sets defaults for the arrange stage.
func (o *Options) ValidateForArrange() error {
	o.SetArrangeDefaults()
	return ValidateMode(o.Mode)
}

// SetArrangeDefaults sets default values for arrangement.
func (o *Options) SetArrangeDefaults() {
	if o.Mode == "" {
		o.Mode = ModeColumns
	}
	if o.MinColumns == 0 {
		o.MinColumns = arrange.DefaultMinColumns
	}
	if o.BoxSpacing == 0 {
		o.BoxSpacing = arrange.DefaultBoxSpacing
	}
	if o.ColumnSpacing == 0 {
		o.ColumnSpacing = arrange.DefaultColumnSpacing
	}
	if o.CellWidth == 0 {
		o.CellWidth = arrange.DefaultCellWidth
	}
	if o.CellHeight == 0 {
		o.CellHeight = arrange.DefaultCellHeight
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	o.SetArrangeDefaults()
	o.SetRenderDefaults()
	if err := ValidateMode(o.Mode); err != nil {
		return err
	}
	return ValidateFormats(o.Formats)
}

// HardwareSides resolves the HardwareOnSides option, defaulting to true.
func (o *Options) HardwareSides() bool {
	if o.HardwareOnSides == nil {
		return true
	}
	return *o.HardwareOnSides
}

// IsFaceToFace returns true if this is a face-to-face arrangement.
func (o *Options) IsFaceToFace() bool {
	return o.Mode == ModeFaceToFace
}

// ArrangeOptions converts pipeline options into arrangement options.
func (o *Options) ArrangeOptions() arrange.Options {
	return arrange.Options{
		HardwareOnSides: o.HardwareSides(),
		MinColumns:      o.MinColumns,
		BoxSpacing:      o.BoxSpacing,
		ColumnSpacing:   o.ColumnSpacing,
		CellWidth:       o.CellWidth,
		CellHeight:      o.CellHeight,
		Logger:          o.Logger,
	}
}

// LayoutKeyOpts returns cache key options for the arrange stage.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		Mode:            o.Mode,
		HardwareOnSides: o.HardwareSides(),
		MinColumns:      o.MinColumns,
		BoxSpacing:      o.BoxSpacing,
		ColumnSpacing:   o.ColumnSpacing,
		CellWidth:       o.CellWidth,
		CellHeight:      o.CellHeight,
	}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:   format,
		Detailed: o.Detailed,
	}
}
