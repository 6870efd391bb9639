// Package pkg provides the core libraries for Patchgrid canvas arrangement.
//
// # Overview
//
// Patchgrid takes a snapshot of a patchbay canvas (groups of audio ports
// and the connections between them) and computes a deterministic column
// layout: hardware capture on the left edge, hardware playback on the
// right, and applications flowing between them. The pkg directory is
// organized into these areas:
//
//  1. [patch] - Snapshot model (groups, ports, connections)
//  2. [arrange] - Column assignment and geometric placement
//  3. [layout] - Serialization types for computed layouts
//  4. [render] - Graphviz DOT, SVG, and PNG output
//  5. [pipeline] - Orchestration with caching (arrange → render)
//  6. [cache], [store], [server] - Infrastructure for CLI and serve mode
//
// # Architecture
//
// The typical data flow through Patchgrid:
//
//	Snapshot JSON
//	         ↓
//	    [patch] package (snapshot model)
//	         ↓
//	    [arrange] package (columns + positions)
//	         ↓
//	    [render] package (DOT / SVG / PNG)
//	         ↓
//	    diagram output
//
// # Quick Start
//
// Arrange a snapshot and render it:
//
//	import (
//	    "github.com/patchgrid/patchgrid/pkg/arrange"
//	    "github.com/patchgrid/patchgrid/pkg/layout"
//	    "github.com/patchgrid/patchgrid/pkg/patch"
//	    "github.com/patchgrid/patchgrid/pkg/render"
//	)
//
//	// 1. Load a snapshot
//	snap, _ := patch.ReadSnapshotFile("canvas.json")
//
//	// 2. Arrange it into columns
//	arranger := arrange.New(snap, nil, arrange.Callbacks{}, arrange.DefaultOptions())
//	res := arranger.Arrange()
//
//	// 3. Serialize or render
//	l := layout.FromResult(res, layout.ModeColumns)
//	dot := render.ToDOT(snap, l, render.Options{})
//	svg, _ := render.RenderSVG(dot)
package pkg
