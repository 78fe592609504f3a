package scene

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/scottpetrovic/mocap2gltf/internal/errs"
	"github.com/scottpetrovic/mocap2gltf/internal/pack"
)

var validPaths = map[string]bool{
	"translation": true,
	"rotation":    true,
	"scale":       true,
	"weights":     true,
}

// Validate checks the document's references and byte ranges. Every
// violation found is reported in a single *errs.SchemaViolation.
func (d *Document) Validate() error {
	var err error
	add := func(format string, args ...any) {
		err = multierr.Append(err, fmt.Errorf(format, args...))
	}

	if d.Asset.Version != Version {
		add("asset.version is %q, want %q", d.Asset.Version, Version)
	}

	d.validateNodes(add)
	d.validateBuffers(add)
	d.validateAnimations(add)

	if err != nil {
		return &errs.SchemaViolation{Err: err}
	}
	return nil
}

func (d *Document) validateNodes(add func(string, ...any)) {
	n := len(d.Nodes)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = -1
	}

	for i, node := range d.Nodes {
		for _, c := range node.Children {
			switch {
			case c < 0 || c >= n:
				add("nodes[%d].children references missing node %d", i, c)
			case c == i:
				add("nodes[%d] lists itself as a child", i)
			case parent[c] != -1:
				add("nodes[%d] has parents %d and %d", c, parent[c], i)
			default:
				parent[c] = i
			}
		}
	}

	for s, sc := range d.Scenes {
		for _, r := range sc.Nodes {
			if r < 0 || r >= n {
				add("scenes[%d].nodes references missing node %d", s, r)
			} else if parent[r] != -1 {
				add("scenes[%d] root %d has parent %d", s, r, parent[r])
			}
		}
	}

	// Walking up from each node must reach a root within n steps.
	for i := range d.Nodes {
		steps := 0
		for p := parent[i]; p != -1; p = parent[p] {
			if steps++; steps > n {
				add("nodes[%d] is part of a cycle", i)
				break
			}
		}
	}
}

func (d *Document) validateBuffers(add func(string, ...any)) {
	type span struct{ view, start, end int }
	spans := make(map[int][]span)

	for i, b := range d.Buffers {
		if b.ByteLength <= 0 {
			add("buffers[%d].byteLength must be positive", i)
		}
		if b.URI == "" {
			add("buffers[%d].uri is empty", i)
		}
	}

	for i, v := range d.BufferViews {
		if v.Buffer < 0 || v.Buffer >= len(d.Buffers) {
			add("bufferViews[%d].buffer references missing buffer %d", i, v.Buffer)
			continue
		}
		if v.ByteOffset < 0 || v.ByteLength <= 0 {
			add("bufferViews[%d] has invalid range %d+%d", i, v.ByteOffset, v.ByteLength)
			continue
		}
		if v.ByteOffset%pack.ComponentSize != 0 {
			add("bufferViews[%d].byteOffset %d is not %d-byte aligned", i, v.ByteOffset, pack.ComponentSize)
		}
		if end := v.ByteOffset + v.ByteLength; end > d.Buffers[v.Buffer].ByteLength {
			add("bufferViews[%d] ends at %d beyond buffer %d length %d", i, end, v.Buffer, d.Buffers[v.Buffer].ByteLength)
		}
		for _, o := range spans[v.Buffer] {
			if v.ByteOffset < o.end && o.start < v.ByteOffset+v.ByteLength {
				add("bufferViews[%d] overlaps bufferViews[%d]", i, o.view)
			}
		}
		spans[v.Buffer] = append(spans[v.Buffer], span{i, v.ByteOffset, v.ByteOffset + v.ByteLength})
	}

	for i, a := range d.Accessors {
		if a.BufferView < 0 || a.BufferView >= len(d.BufferViews) {
			add("accessors[%d].bufferView references missing view %d", i, a.BufferView)
			continue
		}
		if a.ComponentType != pack.ComponentFloat {
			add("accessors[%d].componentType %d is not FLOAT", i, a.ComponentType)
		}
		arity := typeArity(a.Type)
		if arity == 0 {
			add("accessors[%d].type %q is not supported", i, a.Type)
			continue
		}
		if a.Count <= 0 {
			add("accessors[%d].count must be positive", i)
		}
		if want, got := a.Count*pack.ComponentSize*arity, d.BufferViews[a.BufferView].ByteLength; want != got {
			add("accessors[%d] needs %d bytes, bufferView %d holds %d", i, want, a.BufferView, got)
		}
	}
}

func (d *Document) validateAnimations(add func(string, ...any)) {
	for ai, anm := range d.Animations {
		for si, s := range anm.Samplers {
			if s.Interpolation != string(Linear) && s.Interpolation != string(Step) {
				add("animations[%d].samplers[%d].interpolation %q is not supported", ai, si, s.Interpolation)
			}
			in, out := d.accessor(s.Input), d.accessor(s.Output)
			if in == nil {
				add("animations[%d].samplers[%d].input references missing accessor %d", ai, si, s.Input)
			}
			if out == nil {
				add("animations[%d].samplers[%d].output references missing accessor %d", ai, si, s.Output)
			}
			if in == nil || out == nil {
				continue
			}
			if in.Type != SCALAR {
				add("animations[%d].samplers[%d].input must be SCALAR, got %s", ai, si, in.Type)
			}
			if in.Min == nil || in.Max == nil {
				add("animations[%d].samplers[%d].input needs min and max", ai, si)
			}
			if in.Count != out.Count {
				add("animations[%d].samplers[%d] has %d times and %d values", ai, si, in.Count, out.Count)
			}
		}

		for ci, c := range anm.Channels {
			if c.Sampler < 0 || c.Sampler >= len(anm.Samplers) {
				add("animations[%d].channels[%d].sampler references missing sampler %d", ai, ci, c.Sampler)
			}
			if c.Target.Node < 0 || c.Target.Node >= len(d.Nodes) {
				add("animations[%d].channels[%d] targets missing node %d", ai, ci, c.Target.Node)
			}
			if !validPaths[c.Target.Path] {
				add("animations[%d].channels[%d] has invalid path %q", ai, ci, c.Target.Path)
			}
		}
	}
}

func (d *Document) accessor(i int) *Accessor {
	if i < 0 || i >= len(d.Accessors) {
		return nil
	}
	return &d.Accessors[i]
}
