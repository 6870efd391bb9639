// Package render turns an arranged canvas into Graphviz DOT and rasters.
//
// Box positions computed by the arranger are pinned through DOT pos
// attributes, so the neato engine reproduces the engine's geometry
// instead of computing its own.
package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/patchgrid/patchgrid/pkg/layout"
	"github.com/patchgrid/patchgrid/pkg/patch"
)

// Options configures DOT emission.
type Options struct {
	// Detailed includes column and split information in box labels.
	// When false, only the group name is shown.
	Detailed bool
}

// dotScale converts canvas pixels to DOT points (1/72 inch positions
// scaled down so labels stay readable).
const dotScale = 0.02

// ToDOT converts a snapshot and its computed layout to Graphviz DOT.
// The resulting string can be rendered with [RenderSVG] or [RenderPNG].
//
// Split groups appear as two boxes; the output half links to the input
// half of its downstream neighbors exactly as the wires run on the
// canvas.
func ToDOT(snap *patch.Snapshot, l layout.Layout, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph patchbay {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=11, margin=\"0.15,0.08\"];\n")
	buf.WriteString("\n")

	sides := make(map[int][]string)
	for _, b := range l.Boxes {
		label := fmtLabel(b, opts.Detailed)
		attrs := fmtAttrs(snap, b, label)
		fmt.Fprintf(&buf, "  %q [%s];\n", boxID(b.GroupID, b.Side), strings.Join(attrs, ", "))
		sides[b.GroupID] = append(sides[b.GroupID], b.Side)
	}

	buf.WriteString("\n")
	for _, c := range snap.Connections() {
		from := boxID(c.OutGroup, sideFor(sides[c.OutGroup], "output"))
		to := boxID(c.InGroup, sideFor(sides[c.InGroup], "input"))
		fmt.Fprintf(&buf, "  %q -> %q;\n", from, to)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func boxID(groupID int, side string) string {
	return fmt.Sprintf("%d/%s", groupID, side)
}

// sideFor picks the box of a group carrying the wanted direction: the
// matching half of a split group, or the unified box.
func sideFor(available []string, want string) string {
	for _, s := range available {
		if s == want {
			return s
		}
	}
	return "both"
}

func fmtLabel(b layout.Box, detailed bool) string {
	name := b.Name
	if b.Side != "both" {
		name = fmt.Sprintf("%s (%s)", b.Name, b.Side)
	}
	if !detailed {
		return name
	}
	parts := []string{fmt.Sprintf("column: %d", b.Column)}
	if b.ForcedSplit {
		parts = append(parts, "split")
	}
	if b.Wrapped {
		parts = append(parts, "wrapped")
	}
	return name + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(snap *patch.Snapshot, b layout.Box, label string) []string {
	attrs := []string{
		fmt.Sprintf("label=%q", label),
		// DOT's y axis grows upward, the canvas grows downward.
		fmt.Sprintf("pos=\"%.2f,%.2f!\"", b.X*dotScale, -b.Y*dotScale),
	}
	if g, ok := snap.Group(b.GroupID); ok && g.Type == patch.BoxTypeHardware {
		attrs = append(attrs, "fillcolor=lightyellow")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	return renderFormat(dot, graphviz.SVG)
}

// RenderPNG renders a DOT graph to PNG using Graphviz.
func RenderPNG(dot string) ([]byte, error) {
	return renderFormat(dot, graphviz.PNG)
}

func renderFormat(dot string, format graphviz.Format) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
