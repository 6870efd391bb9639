// Package layout is the serialization format for arrangement results.
//
// A Layout captures what the engine decided for one snapshot: the column
// count, which groups were split, and the target position and layout mode
// of every box. It is the unit stored by the cache and the layout store
// and consumed by the render and view commands.
package layout

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/patchgrid/patchgrid/pkg/arrange"
	"github.com/patchgrid/patchgrid/pkg/patch"
)

// Arrangement modes.
const (
	ModeColumns    = "columns"
	ModeFaceToFace = "face_to_face"
)

// Layout is the canonical serialization of one arrangement result.
type Layout struct {
	// Mode is the arrangement mode used ("columns" or "face_to_face").
	Mode string `json:"mode" bson:"mode"`

	// SnapshotHash is the content hash of the arranged snapshot, when
	// known. It ties a stored layout back to its input.
	SnapshotHash string `json:"snapshot_hash,omitempty" bson:"snapshot_hash,omitempty"`

	Columns     int   `json:"columns" bson:"columns"`
	Restarts    int   `json:"restarts,omitempty" bson:"restarts,omitempty"`
	SplitGroups []int `json:"split_groups,omitempty" bson:"split_groups,omitempty"`

	Boxes []Box `json:"boxes" bson:"boxes"`
}

// Box is the positioned target of one box on the canvas.
type Box struct {
	GroupID     int     `json:"group_id" bson:"group_id"`
	Name        string  `json:"name" bson:"name"`
	Side        string  `json:"side" bson:"side"`
	Column      int     `json:"column" bson:"column"`
	X           float64 `json:"x" bson:"x"`
	Y           float64 `json:"y" bson:"y"`
	Layout      string  `json:"layout,omitempty" bson:"layout,omitempty"`
	Wrapped     bool    `json:"wrapped,omitempty" bson:"wrapped,omitempty"`
	ForcedSplit bool    `json:"forced_split,omitempty" bson:"forced_split,omitempty"`
}

// FromResult converts an arrangement result into its serialized form.
// Boxes are emitted in group-ID order, output side before input side, so
// identical results serialize identically.
func FromResult(res *arrange.Result, mode string) Layout {
	l := Layout{
		Mode:        mode,
		Columns:     res.Columns,
		Restarts:    res.Restarts,
		SplitGroups: slices.Clone(res.SplitGroups),
	}
	sideOrder := []patch.PortMode{patch.PortModeOutput, patch.PortModeInput, patch.PortModeBoth}
	for _, gp := range res.Placements {
		for _, side := range sideOrder {
			bp, ok := gp.Boxes[side]
			if !ok {
				continue
			}
			l.Boxes = append(l.Boxes, Box{
				GroupID:     gp.GroupID,
				Name:        gp.Name,
				Side:        side.String(),
				Column:      bp.Column,
				X:           bp.X,
				Y:           bp.Y,
				Layout:      bp.Layout.String(),
				Wrapped:     bp.Wrapped,
				ForcedSplit: gp.ForcedSplit,
			})
		}
	}
	return l
}

// Marshal serializes a Layout to pretty-printed JSON bytes.
func Marshal(l Layout) ([]byte, error) {
	return json.MarshalIndent(l, "", "  ")
}

// Unmarshal deserializes JSON bytes into a Layout and validates the
// arrangement mode.
func Unmarshal(data []byte) (Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("unmarshal layout: %w", err)
	}
	if l.Mode == "" {
		l.Mode = ModeColumns
	}
	if l.Mode != ModeColumns && l.Mode != ModeFaceToFace {
		return Layout{}, fmt.Errorf("invalid layout mode %q", l.Mode)
	}
	return l, nil
}

// WriteFile writes a Layout to a JSON file.
func WriteFile(l Layout, path string) error {
	data, err := Marshal(l)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadFile reads a Layout from a JSON file.
func ReadFile(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Unmarshal(data)
}
