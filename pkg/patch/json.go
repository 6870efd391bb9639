package patch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// =============================================================================
// Snapshot Serialization API
// =============================================================================

// Document is the canonical serialization format for canvas snapshots.
// The format is human-readable and designed for round-trip fidelity:
// import → arrange → export → re-import produces identical results.
type Document struct {
	Groups      []GroupDoc      `json:"groups" bson:"groups"`
	Connections []ConnectionDoc `json:"connections,omitempty" bson:"connections,omitempty"`
}

// GroupDoc is the serialized form of a [Group].
type GroupDoc struct {
	ID    int       `json:"id" bson:"id"`
	Name  string    `json:"name" bson:"name"`
	Type  string    `json:"type,omitempty" bson:"type,omitempty"`
	Split bool      `json:"split,omitempty" bson:"split,omitempty"`
	Ports []PortDoc `json:"ports,omitempty" bson:"ports,omitempty"`
}

// PortDoc is the serialized form of a [Port].
type PortDoc struct {
	ID   int    `json:"id" bson:"id"`
	Name string `json:"name,omitempty" bson:"name,omitempty"`
	Mode string `json:"mode" bson:"mode"`
}

// ConnectionDoc is the serialized form of a [Connection].
type ConnectionDoc struct {
	OutGroup int `json:"out_group" bson:"out_group"`
	OutPort  int `json:"out_port,omitempty" bson:"out_port,omitempty"`
	InGroup  int `json:"in_group" bson:"in_group"`
	InPort   int `json:"in_port,omitempty" bson:"in_port,omitempty"`
}

// FromSnapshot converts a snapshot to its serialization format.
func FromSnapshot(s *Snapshot) Document {
	doc := Document{Groups: make([]GroupDoc, 0, s.GroupCount())}
	for _, g := range s.Groups() {
		gd := GroupDoc{
			ID:    g.ID,
			Name:  g.Name,
			Type:  g.Type.String(),
			Split: g.Split,
		}
		for _, p := range g.Ports {
			gd.Ports = append(gd.Ports, PortDoc{ID: p.ID, Name: p.Name, Mode: p.Mode.String()})
		}
		doc.Groups = append(doc.Groups, gd)
	}
	for _, c := range s.Connections() {
		doc.Connections = append(doc.Connections, ConnectionDoc{
			OutGroup: c.OutGroup,
			OutPort:  c.OutPort,
			InGroup:  c.InGroup,
			InPort:   c.InPort,
		})
	}
	return doc
}

// ToSnapshot converts a serialized document back into a snapshot.
// Returns validation errors for malformed documents (unknown types,
// duplicate IDs, dangling connection endpoints).
func ToSnapshot(doc Document) (*Snapshot, error) {
	s := New()
	for _, gd := range doc.Groups {
		boxType, err := ParseBoxType(gd.Type)
		if err != nil {
			return nil, fmt.Errorf("group %d: %w", gd.ID, err)
		}
		g := Group{ID: gd.ID, Name: gd.Name, Type: boxType, Split: gd.Split}
		for _, pd := range gd.Ports {
			mode, err := ParsePortMode(pd.Mode)
			if err != nil {
				return nil, fmt.Errorf("group %d port %d: %w", gd.ID, pd.ID, err)
			}
			g.Ports = append(g.Ports, Port{ID: pd.ID, Name: pd.Name, Mode: mode})
		}
		if err := s.AddGroup(g); err != nil {
			return nil, fmt.Errorf("group %d: %w", gd.ID, err)
		}
	}
	for _, cd := range doc.Connections {
		conn := Connection{
			OutGroup: cd.OutGroup,
			OutPort:  cd.OutPort,
			InGroup:  cd.InGroup,
			InPort:   cd.InPort,
		}
		if err := s.AddConnection(conn); err != nil {
			return nil, fmt.Errorf("connection %d->%d: %w", cd.OutGroup, cd.InGroup, err)
		}
	}
	return s, nil
}

// MarshalSnapshot converts a snapshot to JSON bytes.
func MarshalSnapshot(s *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeSnapshotTo(s, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteSnapshot writes a snapshot as JSON to an io.Writer.
func WriteSnapshot(s *Snapshot, w io.Writer) error {
	return writeSnapshotTo(s, w)
}

// WriteSnapshotFile writes a snapshot to a JSON file.
// The file is created with 0644 permissions.
func WriteSnapshotFile(s *Snapshot, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return writeSnapshotTo(s, f)
}

// ReadSnapshot decodes a JSON snapshot from an io.Reader.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return ToSnapshot(doc)
}

// ReadSnapshotFile reads a JSON file and returns the decoded snapshot.
func ReadSnapshotFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadSnapshot(f)
}

func writeSnapshotTo(s *Snapshot, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(FromSnapshot(s)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
