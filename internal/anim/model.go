// Package anim builds a format-independent animation model from a decoded clip.
package anim

import (
	"errors"
	"fmt"
	"strings"
)

// TimeBasis selects how sample times are derived from frame indices.
type TimeBasis string

const (
	// Normalized maps frame i of n to i/n, in [0, 1).
	Normalized TimeBasis = "normalized"
	// Absolute maps frame i to i * sample interval, in seconds.
	Absolute TimeBasis = "absolute"
)

// ParseTimeBasis validates a time basis name.
func ParseTimeBasis(s string) (TimeBasis, error) {
	switch b := TimeBasis(strings.ToLower(strings.TrimSpace(s))); b {
	case Normalized, Absolute:
		return b, nil
	default:
		return "", fmt.Errorf("unknown time basis %q (want normalized or absolute)", s)
	}
}

// Property is the node property a track animates.
type Property string

const (
	Translation Property = "translation"
	Rotation    Property = "rotation"
	Scale       Property = "scale"
)

// Arity returns the number of components per sample.
// Properties other than translation, rotation and scale are custom scalar channels.
func (p Property) Arity() int {
	switch p {
	case Translation, Scale:
		return 3
	case Rotation:
		return 4
	default:
		return 1
	}
}

// NoParent marks a root node.
const NoParent = -1

// Node is one element of the node forest.
type Node struct {
	ID          int
	Name        string
	Parent      int // NoParent or the ID of an earlier node
	Translation [3]float32
	Rotation    [4]float32 // Quaternion x, y, z, w
}

// Track is the time-ordered samples of one property of one node.
type Track struct {
	Node     int
	Property Property
	Times    []float32
	Values   []float32 // len(Times) * Property.Arity() components, sample-major
}

// Len returns the number of samples.
func (t *Track) Len() int {
	return len(t.Times)
}

// Sample returns the value vector of sample i.
func (t *Track) Sample(i int) []float32 {
	n := t.Property.Arity()
	return t.Values[i*n : (i+1)*n]
}

// Model owns the nodes and tracks of one animation.
// It is read-only once Build returns.
type Model struct {
	Name      string
	TimeBasis TimeBasis
	Nodes     []Node
	Tracks    []Track
}

// Roots returns the IDs of nodes without a parent.
func (m *Model) Roots() []int {
	var roots []int
	for _, n := range m.Nodes {
		if n.Parent == NoParent {
			roots = append(roots, n.ID)
		}
	}
	return roots
}

// TrackName returns "<node>.<property>" for diagnostics.
func (m *Model) TrackName(i int) string {
	t := &m.Tracks[i]
	if t.Node >= 0 && t.Node < len(m.Nodes) {
		return m.Nodes[t.Node].Name + "." + string(t.Property)
	}
	return fmt.Sprintf("track%d.%s", i, t.Property)
}

var (
	errNodeOrder     = errors.New("node IDs must be sequential")
	errParentOrder   = errors.New("parent must precede child")
	errEmptyTrack    = errors.New("track has no samples")
	errTimeOrder     = errors.New("sample times must be strictly increasing and non-negative")
	errValueCount    = errors.New("value count does not match sample count and arity")
	errUnknownTarget = errors.New("track targets a missing node")
)

// Validate checks the forest and track invariants.
func (m *Model) Validate() error {
	for i, n := range m.Nodes {
		if n.ID != i {
			return fmt.Errorf("node %q: %w", n.Name, errNodeOrder)
		}
		if n.Parent != NoParent && (n.Parent < 0 || n.Parent >= n.ID) {
			return fmt.Errorf("node %q: %w", n.Name, errParentOrder)
		}
	}

	for i := range m.Tracks {
		t := &m.Tracks[i]
		if t.Node < 0 || t.Node >= len(m.Nodes) {
			return fmt.Errorf("track %d: %w", i, errUnknownTarget)
		}
		if t.Len() == 0 {
			return fmt.Errorf("track %s: %w", m.TrackName(i), errEmptyTrack)
		}
		if len(t.Values) != t.Len()*t.Property.Arity() {
			return fmt.Errorf("track %s: %w", m.TrackName(i), errValueCount)
		}
		for k, tm := range t.Times {
			if tm < 0 || (k > 0 && tm <= t.Times[k-1]) {
				return fmt.Errorf("track %s sample %d: %w", m.TrackName(i), k, errTimeOrder)
			}
		}
	}
	return nil
}
