// Package patch models a patchbay canvas snapshot: the groups (boxes),
// their ports, and the directed connections between them.
//
// A Snapshot is the read-only input of the arrangement engine. It is built
// once from the live canvas, handed to the arranger, and discarded. The
// only mutation the engine performs goes through SetSplit, driven by the
// split/join reconciliation callbacks.
package patch

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrInvalidGroupID is returned by [Snapshot.AddGroup] when the group ID
	// is negative. Group IDs mirror the client IDs of the audio server and
	// are always non-negative.
	ErrInvalidGroupID = errors.New("group ID must not be negative")

	// ErrDuplicateGroupID is returned by [Snapshot.AddGroup] when a group
	// with the same ID already exists in the snapshot.
	ErrDuplicateGroupID = errors.New("duplicate group ID")

	// ErrUnknownOutGroup is returned by [Snapshot.AddConnection] when the
	// sending group does not exist.
	ErrUnknownOutGroup = errors.New("unknown out group")

	// ErrUnknownInGroup is returned by [Snapshot.AddConnection] when the
	// receiving group does not exist.
	ErrUnknownInGroup = errors.New("unknown in group")
)

// PortMode is a bit flag describing which port direction(s) a box carries.
type PortMode uint8

const (
	// PortModeNull is the zero PortMode.
	PortModeNull PortMode = 0x00
	// PortModeInput marks input ports (signal sinks).
	PortModeInput PortMode = 0x01
	// PortModeOutput marks output ports (signal sources).
	PortModeOutput PortMode = 0x02
	// PortModeBoth marks a unified box carrying both directions.
	PortModeBoth = PortModeInput | PortModeOutput
)

// Has reports whether m includes all bits of other.
func (m PortMode) Has(other PortMode) bool { return m&other == other }

// Opposite returns the mirrored mode: INPUT for OUTPUT and vice versa,
// NULL for BOTH and BOTH for NULL.
func (m PortMode) Opposite() PortMode {
	switch m {
	case PortModeInput:
		return PortModeOutput
	case PortModeOutput:
		return PortModeInput
	case PortModeBoth:
		return PortModeNull
	}
	return PortModeBoth
}

// String returns the lower-case mode name.
func (m PortMode) String() string {
	switch m {
	case PortModeInput:
		return "input"
	case PortModeOutput:
		return "output"
	case PortModeBoth:
		return "both"
	}
	return "null"
}

// ParsePortMode converts a mode name back to a PortMode.
func ParsePortMode(s string) (PortMode, error) {
	switch s {
	case "input":
		return PortModeInput, nil
	case "output":
		return PortModeOutput, nil
	case "both":
		return PortModeBoth, nil
	case "null", "":
		return PortModeNull, nil
	}
	return PortModeNull, fmt.Errorf("invalid port mode %q", s)
}

// BoxType categorizes a group. The arranger only distinguishes hardware
// from everything else, but the full taxonomy of the canvas is kept so
// snapshots round-trip without loss.
type BoxType int

const (
	// BoxTypeApplication is a regular software client.
	BoxTypeApplication BoxType = iota
	// BoxTypeHardware is a physical device (sound card, MIDI interface).
	BoxTypeHardware
	// BoxTypeMonitor is a monitor/meter client.
	BoxTypeMonitor
	// BoxTypeClient is a generic named client.
	BoxTypeClient
	// BoxTypeInternal is a client internal to the session manager.
	BoxTypeInternal
)

var boxTypeNames = map[BoxType]string{
	BoxTypeApplication: "application",
	BoxTypeHardware:    "hardware",
	BoxTypeMonitor:     "monitor",
	BoxTypeClient:      "client",
	BoxTypeInternal:    "internal",
}

// String returns the lower-case type name.
func (t BoxType) String() string {
	if s, ok := boxTypeNames[t]; ok {
		return s
	}
	return "application"
}

// ParseBoxType converts a type name back to a BoxType.
func ParseBoxType(s string) (BoxType, error) {
	for t, name := range boxTypeNames {
		if name == s {
			return t, nil
		}
	}
	if s == "" {
		return BoxTypeApplication, nil
	}
	return BoxTypeApplication, fmt.Errorf("invalid box type %q", s)
}

// BoxLayoutMode selects how ports are arranged inside a box.
type BoxLayoutMode int

const (
	// LayoutAuto lets the engine pick between HIGH and LARGE.
	LayoutAuto BoxLayoutMode = iota
	// LayoutHigh stacks ports top to bottom under the title (compact).
	LayoutHigh
	// LayoutLarge puts inputs and outputs side by side (wide).
	LayoutLarge
)

// String returns the lower-case layout name.
func (l BoxLayoutMode) String() string {
	switch l {
	case LayoutHigh:
		return "high"
	case LayoutLarge:
		return "large"
	}
	return "auto"
}

// ParseBoxLayoutMode converts a layout name back to a BoxLayoutMode.
func ParseBoxLayoutMode(s string) (BoxLayoutMode, error) {
	switch s {
	case "high":
		return LayoutHigh, nil
	case "large":
		return LayoutLarge, nil
	case "auto", "":
		return LayoutAuto, nil
	}
	return LayoutAuto, fmt.Errorf("invalid layout mode %q", s)
}

// Port is one connectable endpoint of a group.
type Port struct {
	ID   int
	Name string
	Mode PortMode
}

// Group is one connectable entity of the canvas: an audio client or a
// hardware device. When Split is true the group is shown as two boxes,
// one per port direction.
type Group struct {
	ID    int
	Name  string
	Type  BoxType
	Split bool
	Ports []Port
}

// PortCount returns the number of ports matching mode.
func (g Group) PortCount(mode PortMode) int {
	count := 0
	for _, p := range g.Ports {
		if p.Mode.Has(mode) {
			count++
		}
	}
	return count
}

// Connection is a directed edge from an output port to an input port.
type Connection struct {
	OutGroup int
	OutPort  int
	InGroup  int
	InPort   int
}

// Snapshot is an immutable view of the canvas graph.
//
// The zero value is not usable - use New. Snapshot is not safe for
// concurrent use without external synchronization.
type Snapshot struct {
	groups []Group
	conns  []Connection
	index  map[int]int // group ID -> position in groups
}

// New creates an empty snapshot.
func New() *Snapshot {
	return &Snapshot{index: make(map[int]int)}
}

// AddGroup appends a group to the snapshot.
// Returns ErrInvalidGroupID for negative IDs or ErrDuplicateGroupID when
// the ID is already taken.
func (s *Snapshot) AddGroup(g Group) error {
	if g.ID < 0 {
		return ErrInvalidGroupID
	}
	if _, exists := s.index[g.ID]; exists {
		return ErrDuplicateGroupID
	}
	s.index[g.ID] = len(s.groups)
	s.groups = append(s.groups, g)
	return nil
}

// AddConnection appends a directed connection between two existing groups.
// Returns ErrUnknownOutGroup or ErrUnknownInGroup when an endpoint is
// missing. Self loops (OutGroup == InGroup) are allowed; the arranger
// resolves them by splitting the group.
func (s *Snapshot) AddConnection(c Connection) error {
	if _, ok := s.index[c.OutGroup]; !ok {
		return ErrUnknownOutGroup
	}
	if _, ok := s.index[c.InGroup]; !ok {
		return ErrUnknownInGroup
	}
	s.conns = append(s.conns, c)
	return nil
}

// Groups returns a copy of all groups in insertion order.
func (s *Snapshot) Groups() []Group { return slices.Clone(s.groups) }

// Connections returns a copy of all connections in insertion order.
func (s *Snapshot) Connections() []Connection { return slices.Clone(s.conns) }

// GroupCount returns the number of groups.
func (s *Snapshot) GroupCount() int { return len(s.groups) }

// ConnectionCount returns the number of connections.
func (s *Snapshot) ConnectionCount() int { return len(s.conns) }

// Group returns the group with the given ID and true, or a zero Group and
// false if it does not exist.
func (s *Snapshot) Group(id int) (Group, bool) {
	i, ok := s.index[id]
	if !ok {
		return Group{}, false
	}
	return s.groups[i], true
}

// SetSplit updates the split state of a group. It reports whether the
// group exists. This is the single mutation the arranger's reconciliation
// callbacks perform on a snapshot.
func (s *Snapshot) SetSplit(id int, split bool) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.groups[i].Split = split
	return true
}

// HasSelfLoop reports whether any connection goes from the group back to
// itself.
func (s *Snapshot) HasSelfLoop(id int) bool {
	for _, c := range s.conns {
		if c.OutGroup == id && c.InGroup == id {
			return true
		}
	}
	return false
}

// SelfLoopGroups returns the set of group IDs carrying a self loop.
func (s *Snapshot) SelfLoopGroups() map[int]bool {
	loops := make(map[int]bool)
	for _, c := range s.conns {
		if c.OutGroup == c.InGroup {
			loops[c.OutGroup] = true
		}
	}
	return loops
}
