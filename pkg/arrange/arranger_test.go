package arrange

import (
	"reflect"
	"slices"
	"testing"

	"github.com/patchgrid/patchgrid/pkg/patch"
)

// buildSnapshot assembles a snapshot from groups and connections,
// failing the test on any invalid input.
func buildSnapshot(t *testing.T, groups []patch.Group, conns []patch.Connection) *patch.Snapshot {
	t.Helper()
	snap := patch.New()
	for _, g := range groups {
		if err := snap.AddGroup(g); err != nil {
			t.Fatalf("AddGroup(%d): %v", g.ID, err)
		}
	}
	for _, c := range conns {
		if err := snap.AddConnection(c); err != nil {
			t.Fatalf("AddConnection(%+v): %v", c, err)
		}
	}
	return snap
}

func hardwareGroup(id int, name string, mode patch.PortMode, portIDs ...int) patch.Group {
	g := patch.Group{ID: id, Name: name, Type: patch.BoxTypeHardware}
	for _, pid := range portIDs {
		g.Ports = append(g.Ports, patch.Port{ID: pid, Name: name, Mode: mode})
	}
	return g
}

func appGroup(id int, name string, inPort, outPort int) patch.Group {
	return patch.Group{ID: id, Name: name, Type: patch.BoxTypeApplication, Ports: []patch.Port{
		{ID: inPort, Name: "in", Mode: patch.PortModeInput},
		{ID: outPort, Name: "out", Mode: patch.PortModeOutput},
	}}
}

// placementFor returns the placement of one group, failing if absent.
func placementFor(t *testing.T, res *Result, groupID int) GroupPlacement {
	t.Helper()
	for _, p := range res.Placements {
		if p.GroupID == groupID {
			return p
		}
	}
	t.Fatalf("no placement for group %d", groupID)
	return GroupPlacement{}
}

func TestArrangeEmptySnapshot(t *testing.T) {
	a := New(patch.New(), nil, Callbacks{}, DefaultOptions())
	res := a.Arrange()

	if res.Columns != DefaultMinColumns {
		t.Errorf("Columns = %d, want %d", res.Columns, DefaultMinColumns)
	}
	if len(res.Placements) != 0 {
		t.Errorf("Placements = %v, want none", res.Placements)
	}
	if res.Restarts != 0 {
		t.Errorf("Restarts = %d, want 0", res.Restarts)
	}
}

func TestArrangeHardwareChain(t *testing.T) {
	// capture -> app -> playback: the classic three column canvas.
	snap := buildSnapshot(t,
		[]patch.Group{
			hardwareGroup(1, "system:capture", patch.PortModeOutput, 1),
			appGroup(2, "reverb", 2, 3),
			hardwareGroup(3, "system:playback", patch.PortModeInput, 4),
		},
		[]patch.Connection{
			{OutGroup: 1, OutPort: 1, InGroup: 2, InPort: 2},
			{OutGroup: 2, OutPort: 3, InGroup: 3, InPort: 4},
		},
	)

	a := New(snap, nil, Callbacks{}, DefaultOptions())
	res := a.Arrange()

	if res.Columns != 3 {
		t.Fatalf("Columns = %d, want 3", res.Columns)
	}
	if res.Restarts != 0 {
		t.Errorf("Restarts = %d, want 0", res.Restarts)
	}

	capture := placementFor(t, res, 1)
	if got := capture.Boxes[patch.PortModeOutput].Column; got != 1 {
		t.Errorf("capture output column = %d, want 1", got)
	}
	app := placementFor(t, res, 2)
	if got := app.Boxes[patch.PortModeBoth].Column; got != 2 {
		t.Errorf("app column = %d, want 2", got)
	}
	playback := placementFor(t, res, 3)
	if got := playback.Boxes[patch.PortModeInput].Column; got != 3 {
		t.Errorf("playback input column = %d, want 3", got)
	}

	// Hardware groups are always shown split.
	if !slices.Equal(res.SplitGroups, []int{1, 3}) {
		t.Errorf("SplitGroups = %v, want [1 3]", res.SplitGroups)
	}
	for _, id := range []int{1, 3} {
		g, _ := snap.Group(id)
		if !g.Split {
			t.Errorf("group %d not split in snapshot after reconciliation", id)
		}
	}
}

func TestArrangeTwoNodeCycle(t *testing.T) {
	// Two applications feeding each other. The fixpoint must split one
	// of them and settle in a single retry.
	snap := buildSnapshot(t,
		[]patch.Group{
			appGroup(10, "looper", 1, 2),
			appGroup(20, "delay", 3, 4),
		},
		[]patch.Connection{
			{OutGroup: 10, OutPort: 2, InGroup: 20, InPort: 3},
			{OutGroup: 20, OutPort: 4, InGroup: 10, InPort: 1},
		},
	)

	a := New(snap, nil, Callbacks{}, DefaultOptions())
	res := a.Arrange()

	if res.Restarts != 1 {
		t.Errorf("Restarts = %d, want 1", res.Restarts)
	}
	if !slices.Equal(res.SplitGroups, []int{10}) {
		t.Errorf("SplitGroups = %v, want [10]", res.SplitGroups)
	}

	// The broken cycle reads output half -> other group -> input half.
	split := placementFor(t, res, 10)
	outCol := split.Boxes[patch.PortModeOutput].Column
	inCol := split.Boxes[patch.PortModeInput].Column
	midCol := placementFor(t, res, 20).Boxes[patch.PortModeBoth].Column
	if !(outCol < midCol && midCol < inCol) {
		t.Errorf("columns out=%d mid=%d in=%d, want strictly increasing", outCol, midCol, inCol)
	}

	g, _ := snap.Group(10)
	if !g.Split {
		t.Error("group 10 not split in snapshot after reconciliation")
	}
}

func TestArrangeSelfLoop(t *testing.T) {
	// A group feeding itself is split while the node graph is built, so
	// no fixpoint restart is needed at all.
	snap := buildSnapshot(t,
		[]patch.Group{appGroup(5, "feedback", 1, 2)},
		[]patch.Connection{{OutGroup: 5, OutPort: 2, InGroup: 5, InPort: 1}},
	)

	a := New(snap, nil, Callbacks{}, DefaultOptions())
	res := a.Arrange()

	if res.Restarts != 0 {
		t.Errorf("Restarts = %d, want 0", res.Restarts)
	}
	if !slices.Equal(res.SplitGroups, []int{5}) {
		t.Errorf("SplitGroups = %v, want [5]", res.SplitGroups)
	}

	p := placementFor(t, res, 5)
	outCol := p.Boxes[patch.PortModeOutput].Column
	inCol := p.Boxes[patch.PortModeInput].Column
	if outCol >= inCol {
		t.Errorf("columns out=%d in=%d, want output left of input", outCol, inCol)
	}
}

func TestArrangeIsolatedGroupsStackWithoutOverlap(t *testing.T) {
	snap := buildSnapshot(t,
		[]patch.Group{
			appGroup(1, "metronome", 1, 2),
			appGroup(2, "tuner", 3, 4),
		},
		nil,
	)

	a := New(snap, nil, Callbacks{}, DefaultOptions())
	res := a.Arrange()

	b1 := placementFor(t, res, 1).Boxes[patch.PortModeBoth]
	b2 := placementFor(t, res, 2).Boxes[patch.PortModeBoth]

	if b1.Column != b2.Column {
		t.Fatalf("columns %d and %d, want isolated groups to share a column", b1.Column, b2.Column)
	}
	if b1.Y == b2.Y {
		t.Errorf("both boxes at y=%v, want stacked without overlap", b1.Y)
	}
}

func TestArrangeDiamondNoOverlap(t *testing.T) {
	// A fans out to B and C which both feed D. B and C share a column
	// and must not collide.
	snap := buildSnapshot(t,
		[]patch.Group{
			appGroup(1, "source", 1, 2),
			appGroup(2, "left", 3, 4),
			appGroup(3, "right", 5, 6),
			appGroup(4, "mixdown", 7, 8),
		},
		[]patch.Connection{
			{OutGroup: 1, OutPort: 2, InGroup: 2, InPort: 3},
			{OutGroup: 1, OutPort: 2, InGroup: 3, InPort: 5},
			{OutGroup: 2, OutPort: 4, InGroup: 4, InPort: 7},
			{OutGroup: 3, OutPort: 6, InGroup: 4, InPort: 7},
		},
	)

	a := New(snap, nil, Callbacks{}, DefaultOptions())
	res := a.Arrange()

	if res.Restarts != 0 {
		t.Errorf("Restarts = %d, want 0 for an acyclic graph", res.Restarts)
	}

	colOf := func(id int) int {
		return placementFor(t, res, id).Boxes[patch.PortModeBoth].Column
	}
	if !(colOf(1) < colOf(2) && colOf(2) == colOf(3) && colOf(3) < colOf(4)) {
		t.Errorf("columns source=%d left=%d right=%d mixdown=%d, want source < left == right < mixdown",
			colOf(1), colOf(2), colOf(3), colOf(4))
	}

	// The parallel branches share a column but not a vertical range.
	left := placementFor(t, res, 2).Boxes[patch.PortModeBoth]
	right := placementFor(t, res, 3).Boxes[patch.PortModeBoth]
	if left.Y == right.Y {
		t.Errorf("parallel branches both at y=%v", left.Y)
	}
}

func TestArrangeDeterministic(t *testing.T) {
	build := func() *patch.Snapshot {
		return buildSnapshot(t,
			[]patch.Group{
				hardwareGroup(1, "system:capture", patch.PortModeOutput, 1),
				appGroup(2, "chain-a", 2, 3),
				appGroup(3, "chain-b", 4, 5),
				appGroup(4, "floater", 6, 7),
				hardwareGroup(5, "system:playback", patch.PortModeInput, 8),
			},
			[]patch.Connection{
				{OutGroup: 1, OutPort: 1, InGroup: 2, InPort: 2},
				{OutGroup: 2, OutPort: 3, InGroup: 3, InPort: 4},
				{OutGroup: 3, OutPort: 5, InGroup: 5, InPort: 8},
			},
		)
	}

	first := New(build(), nil, Callbacks{}, DefaultOptions()).Arrange()
	second := New(build(), nil, Callbacks{}, DefaultOptions()).Arrange()

	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical snapshots arranged differently:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestArrangeWithoutHardwareAnchoring(t *testing.T) {
	snap := buildSnapshot(t,
		[]patch.Group{
			hardwareGroup(1, "system:capture", patch.PortModeOutput, 1),
			appGroup(2, "reverb", 2, 3),
		},
		[]patch.Connection{{OutGroup: 1, OutPort: 1, InGroup: 2, InPort: 2}},
	)

	opts := DefaultOptions()
	opts.HardwareOnSides = false
	res := New(snap, nil, Callbacks{}, opts).Arrange()

	// Hardware is still shown split, it just loses its edge anchor.
	p := placementFor(t, res, 1)
	if _, ok := p.Boxes[patch.PortModeOutput]; !ok {
		t.Error("hardware group lost its output box")
	}
	if _, ok := p.Boxes[patch.PortModeInput]; !ok {
		t.Error("hardware group lost its input box")
	}
	if got := p.Boxes[patch.PortModeOutput].Column; got == 1 {
		t.Logf("hardware still in column 1 (allowed, just not forced)")
	}
}

// failingMetrics resolves no box at all, forcing the zero-size path.
type failingMetrics struct{}

func (failingMetrics) BoxMetrics(patch.Group, patch.PortMode, patch.BoxLayoutMode) (BoxMetrics, bool) {
	return BoxMetrics{}, false
}

func TestArrangeMissingMetricsUsesZeroSize(t *testing.T) {
	// A provider that cannot measure any box must not abort the run:
	// boxes are laid out zero-sized in their resolved columns.
	snap := buildSnapshot(t,
		[]patch.Group{
			hardwareGroup(1, "system:capture", patch.PortModeOutput, 1),
			appGroup(2, "reverb", 2, 3),
			hardwareGroup(3, "system:playback", patch.PortModeInput, 4),
		},
		[]patch.Connection{
			{OutGroup: 1, OutPort: 1, InGroup: 2, InPort: 2},
			{OutGroup: 2, OutPort: 3, InGroup: 3, InPort: 4},
		},
	)

	a := New(snap, failingMetrics{}, Callbacks{}, DefaultOptions())
	res := a.Arrange()

	if res.Columns != 3 {
		t.Fatalf("Columns = %d, want 3", res.Columns)
	}
	if len(res.Placements) != 3 {
		t.Fatalf("Placements = %d groups, want 3", len(res.Placements))
	}
	if got := placementFor(t, res, 1).Boxes[patch.PortModeOutput].Column; got != 1 {
		t.Errorf("capture output column = %d, want 1", got)
	}
	if got := placementFor(t, res, 2).Boxes[patch.PortModeBoth].Column; got != 2 {
		t.Errorf("app column = %d, want 2", got)
	}
	if got := placementFor(t, res, 3).Boxes[patch.PortModeInput].Column; got != 3 {
		t.Errorf("playback input column = %d, want 3", got)
	}
}

func TestReconcileSplitsCallbacks(t *testing.T) {
	// A pre-split application with a plain linear topology must be
	// joined back; unsplit hardware must be split.
	snap := buildSnapshot(t,
		[]patch.Group{
			hardwareGroup(1, "system:capture", patch.PortModeOutput, 1),
			{ID: 2, Name: "synth", Type: patch.BoxTypeApplication, Split: true, Ports: []patch.Port{
				{ID: 2, Name: "in", Mode: patch.PortModeInput},
			}},
		},
		[]patch.Connection{{OutGroup: 1, OutPort: 1, InGroup: 2, InPort: 2}},
	)

	var joined, split []int
	cb := Callbacks{
		JoinGroup: func(id int) {
			joined = append(joined, id)
			snap.SetSplit(id, false)
		},
		SplitGroup: func(id int) {
			split = append(split, id)
			snap.SetSplit(id, true)
		},
	}
	New(snap, nil, cb, DefaultOptions()).Arrange()

	if !slices.Contains(joined, 2) {
		t.Errorf("joined = %v, want it to contain application group 2", joined)
	}
	if !slices.Contains(split, 1) {
		t.Errorf("split = %v, want it to contain hardware group 1", split)
	}
}

func TestArrangeAppliesCallback(t *testing.T) {
	snap := buildSnapshot(t,
		[]patch.Group{appGroup(1, "sampler", 1, 2)},
		nil,
	)

	var applied []int
	cb := Callbacks{ApplyBox: func(p GroupPlacement) {
		applied = append(applied, p.GroupID)
	}}
	New(snap, nil, cb, DefaultOptions()).Arrange()

	if !slices.Equal(applied, []int{1}) {
		t.Errorf("applied = %v, want [1]", applied)
	}
}

func TestArrangePositionsSnapToGrid(t *testing.T) {
	snap := buildSnapshot(t,
		[]patch.Group{
			hardwareGroup(1, "system:capture", patch.PortModeOutput, 1),
			appGroup(2, "reverb", 2, 3),
		},
		[]patch.Connection{{OutGroup: 1, OutPort: 1, InGroup: 2, InPort: 2}},
	)

	opts := DefaultOptions()
	res := New(snap, nil, Callbacks{}, opts).Arrange()

	for _, p := range res.Placements {
		for mode, box := range p.Boxes {
			if remX := int(box.X) % opts.CellWidth; remX != 0 {
				t.Errorf("group %d %s: x=%v not on %dpx grid", p.GroupID, mode, box.X, opts.CellWidth)
			}
			if remY := int(box.Y) % opts.CellHeight; remY != 0 {
				t.Errorf("group %d %s: y=%v not on %dpx grid", p.GroupID, mode, box.Y, opts.CellHeight)
			}
		}
	}
}
