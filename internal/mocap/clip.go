// Package mocap reads motion capture files into a uniform frame sequence.
//
// A Clip is the only shape later stages see: a list of entities (joints or
// markers) and, per frame, one Sample per entity. Format-specific decoders
// live behind Read and never leak their own types.
package mocap

import (
	"fmt"
	"strings"
)

// Format selects the source decoder. There is no auto-detection.
type Format string

const (
	FormatBVH Format = "bvh"
	FormatC3D Format = "c3d"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatBVH, FormatC3D:
		return f, nil
	default:
		return "", fmt.Errorf("unknown source format %q (want bvh or c3d)", s)
	}
}

// Kind distinguishes joint hierarchies from free marker clouds.
type Kind uint8

const (
	Hierarchical Kind = iota
	PointCloud
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case Hierarchical:
		return "hierarchical"
	case PointCloud:
		return "point-cloud"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// NoParent marks a root entity.
const NoParent = -1

// Entity is one channel-bearing joint or marker.
type Entity struct {
	Name           string
	Parent         int // Index into Clip.Entities, or NoParent; always < own index
	Offset         [3]float32
	HasTranslation bool
	HasRotation    bool
}

// Sample is the decoded state of one entity in one frame.
// Only the fields flagged on the Entity carry data.
type Sample struct {
	Translation [3]float32
	Rotation    [4]float32 // Quaternion x, y, z, w
}

// Clip is a decoded source file.
type Clip struct {
	Path           string
	Format         Format
	Kind           Kind
	Entities       []Entity
	Frames         [][]Sample // Frames[frame][entity]
	FrameRate      float64    // 0 when the source declares no usable rate
	SampleInterval float64    // Seconds between frames; 0 when FrameRate is 0
	Info           Info
}

// FrameCount returns the number of frames.
func (c *Clip) FrameCount() int {
	return len(c.Frames)
}

// Info is descriptive metadata for reports. It is not used by conversion.
type Info struct {
	Units          string
	AnalogChannels int
	AnalogRate     float64
	Groups         []ParamGroup
	Events         []Event
}

// ParamGroup is a named group of source parameters.
type ParamGroup struct {
	Name        string
	Description string
	Params      []Param
}

// ValueKind tags a parameter value.
type ValueKind uint8

const (
	ValueBytes ValueKind = iota
	ValueText
	ValueNumeric
)

// String returns the kind name.
func (k ValueKind) String() string {
	switch k {
	case ValueBytes:
		return "bytes"
	case ValueText:
		return "text"
	case ValueNumeric:
		return "numeric"
	default:
		return fmt.Sprintf("ValueKind(%d)", k)
	}
}

// Param is one source parameter with an explicitly tagged value.
// Bytes values are opaque: no float reinterpretation is attempted.
type Param struct {
	Name    string
	Kind    ValueKind
	Bytes   []byte
	Text    []string
	Numbers []float64
	Display string
}

// Event is a labelled instant in the source timeline.
type Event struct {
	Label string
	Time  float64
}
