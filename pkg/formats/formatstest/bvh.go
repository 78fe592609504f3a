package formatstest

import (
	"fmt"
	"strings"
)

// Joint describes one joint of a synthetic BVH hierarchy.
type Joint struct {
	Name     string
	Offset   [3]float32
	Channels []string
	Children []Joint
	EndSite  bool
}

// BVH describes a synthetic BVH file.
type BVH struct {
	Root      Joint
	FrameTime float32
	Frames    [][]float32
	// DeclaredFrames overrides the "Frames:" count; 0 means len(Frames).
	DeclaredFrames int
}

// String renders the file in BVH text form.
func (b BVH) String() string {
	var sb strings.Builder
	sb.WriteString("HIERARCHY\n")
	writeJoint(&sb, b.Root, "ROOT", 0)
	sb.WriteString("MOTION\n")
	declared := b.DeclaredFrames
	if declared == 0 {
		declared = len(b.Frames)
	}
	fmt.Fprintf(&sb, "Frames: %d\n", declared)
	fmt.Fprintf(&sb, "Frame Time: %g\n", b.FrameTime)
	for _, row := range b.Frames {
		vals := make([]string, len(row))
		for i, v := range row {
			vals[i] = fmt.Sprintf("%g", v)
		}
		sb.WriteString(strings.Join(vals, " "))
		sb.WriteString("\n")
	}
	return sb.String()
}

// Bytes returns the file contents.
func (b BVH) Bytes() []byte {
	return []byte(b.String())
}

func writeJoint(sb *strings.Builder, j Joint, kind string, depth int) {
	indent := strings.Repeat("\t", depth)
	fmt.Fprintf(sb, "%s%s %s\n%s{\n", indent, kind, j.Name, indent)
	fmt.Fprintf(sb, "%s\tOFFSET %g %g %g\n", indent, j.Offset[0], j.Offset[1], j.Offset[2])
	if len(j.Channels) > 0 {
		fmt.Fprintf(sb, "%s\tCHANNELS %d %s\n", indent, len(j.Channels), strings.Join(j.Channels, " "))
	}
	for _, c := range j.Children {
		writeJoint(sb, c, "JOINT", depth+1)
	}
	if j.EndSite {
		fmt.Fprintf(sb, "%s\tEnd Site\n%s\t{\n%s\t\tOFFSET 0 1 0\n%s\t}\n", indent, indent, indent, indent)
	}
	fmt.Fprintf(sb, "%s}\n", indent)
}
