package layout

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/patchgrid/patchgrid/pkg/arrange"
	"github.com/patchgrid/patchgrid/pkg/patch"
)

func sampleResult() *arrange.Result {
	return &arrange.Result{
		Columns:     3,
		Restarts:    1,
		SplitGroups: []int{1},
		Placements: []arrange.GroupPlacement{
			{
				GroupID: 1,
				Name:    "system",
				Boxes: map[patch.PortMode]arrange.BoxPlacement{
					patch.PortModeOutput: {Column: 1, X: 0, Y: 0, Layout: patch.LayoutHigh},
					patch.PortModeInput:  {Column: 3, X: 320, Y: 0, Layout: patch.LayoutHigh},
				},
			},
			{
				GroupID: 2,
				Name:    "reverb",
				Boxes: map[patch.PortMode]arrange.BoxPlacement{
					patch.PortModeBoth: {Column: 2, X: 160, Y: 12, Layout: patch.LayoutLarge},
				},
			},
		},
	}
}

func TestFromResultBoxOrder(t *testing.T) {
	l := FromResult(sampleResult(), ModeColumns)

	if l.Mode != ModeColumns || l.Columns != 3 || l.Restarts != 1 {
		t.Errorf("header = %+v, want columns mode, 3 columns, 1 restart", l)
	}

	// Output side before input side, groups in placement order.
	type key struct {
		id   int
		side string
	}
	var got []key
	for _, b := range l.Boxes {
		got = append(got, key{b.GroupID, b.Side})
	}
	want := []key{{1, "output"}, {1, "input"}, {2, "both"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("box order = %v, want %v", got, want)
	}

	if l.Boxes[2].Layout != "large" {
		t.Errorf("box layout = %q, want large", l.Boxes[2].Layout)
	}
}

func TestRoundTrip(t *testing.T) {
	l := FromResult(sampleResult(), ModeFaceToFace)
	l.SnapshotHash = "abc123"

	data, err := Marshal(l)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	back, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(back, l) {
		t.Errorf("round trip:\ngot  %+v\nwant %+v", back, l)
	}
}

func TestUnmarshalModeValidation(t *testing.T) {
	tests := []struct {
		name     string
		json     string
		wantMode string
		wantErr  string
	}{
		{"explicit columns", `{"mode":"columns","columns":3,"boxes":[]}`, ModeColumns, ""},
		{"missing mode defaults", `{"columns":3,"boxes":[]}`, ModeColumns, ""},
		{"face to face", `{"mode":"face_to_face","columns":2,"boxes":[]}`, ModeFaceToFace, ""},
		{"unknown mode", `{"mode":"spiral","columns":3,"boxes":[]}`, "", "invalid layout mode"},
		{"not json", `{{`, "", "unmarshal layout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := Unmarshal([]byte(tt.json))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if l.Mode != tt.wantMode {
				t.Errorf("Mode = %q, want %q", l.Mode, tt.wantMode)
			}
		})
	}
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canvas.layout.json")

	l := FromResult(sampleResult(), ModeColumns)
	if err := WriteFile(l, path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	back, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !reflect.DeepEqual(back, l) {
		t.Errorf("file round trip:\ngot  %+v\nwant %+v", back, l)
	}

	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("ReadFile on missing file returned nil error")
	}
}
