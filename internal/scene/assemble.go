package scene

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/scottpetrovic/mocap2gltf/internal/anim"
	"github.com/scottpetrovic/mocap2gltf/internal/logger"
	"github.com/scottpetrovic/mocap2gltf/internal/pack"
	pkgmath "github.com/scottpetrovic/mocap2gltf/pkg/math"
)

// identityEpsilon is how close a static rotation must be to identity to be omitted.
const identityEpsilon = 1e-6

// ParseInterpolation validates an interpolation mode name.
func ParseInterpolation(s string) (Interpolation, error) {
	switch i := Interpolation(strings.ToUpper(strings.TrimSpace(s))); i {
	case Linear, Step:
		return i, nil
	default:
		return "", fmt.Errorf("unknown interpolation %q (want LINEAR or STEP)", s)
	}
}

// Options controls document assembly.
type Options struct {
	// BaseName names the binary payload files: "<base>.bin" when grouped,
	// "<base>_<i>.bin" per array.
	BaseName      string
	Generator     string
	Copyright     string
	Interpolation Interpolation // Empty means Linear
}

// BufferURI returns the relative uri of buffer i for the given policy.
func BufferURI(base string, policy pack.Policy, i int) string {
	if policy == pack.PerArray {
		return fmt.Sprintf("%s_%d.bin", base, i)
	}
	return base + ".bin"
}

// Assemble builds the document for m and its packed buffers and validates it.
// A validation failure is returned as *errs.SchemaViolation.
func Assemble(m *anim.Model, p *pack.Packed, opts Options) (*Document, error) {
	if len(p.Slots) != len(m.Tracks) {
		return nil, fmt.Errorf("packed %d tracks, model has %d", len(p.Slots), len(m.Tracks))
	}

	interp := opts.Interpolation
	if interp == "" {
		interp = Linear
	}
	base := opts.BaseName
	if base == "" {
		base = m.Name
	}

	doc := &Document{
		Asset: Asset{
			Version:   Version,
			Generator: opts.Generator,
			Copyright: opts.Copyright,
		},
		Scenes: []Scene{{Nodes: roots(m)}},
		Nodes:  nodes(m),
	}

	anm := Animation{
		Name:     m.Name,
		Channels: make([]Channel, 0, len(m.Tracks)),
		Samplers: make([]ASampler, 0, len(m.Tracks)),
	}
	for i := range m.Tracks {
		t := &m.Tracks[i]
		slots := p.Slots[i]

		input := doc.addAccessor(p, slots.Input)
		output := doc.addAccessor(p, slots.Output)

		anm.Samplers = append(anm.Samplers, ASampler{
			Input:         input,
			Interpolation: string(interp),
			Output:        output,
		})
		anm.Channels = append(anm.Channels, Channel{
			Sampler: i,
			Target:  Target{Node: t.Node, Path: string(t.Property)},
		})
	}
	doc.Animations = []Animation{anm}

	doc.Buffers = make([]Buffer, len(p.Buffers))
	for i, b := range p.Buffers {
		doc.Buffers[i] = Buffer{ByteLength: len(b), URI: BufferURI(base, p.Policy, i)}
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}

	logger.Stage("assemble").Debug("document assembled",
		zap.String("animation", m.Name),
		zap.Int("nodes", len(doc.Nodes)),
		zap.Int("accessors", len(doc.Accessors)),
		zap.Int("buffers", len(doc.Buffers)),
		zap.String("interpolation", string(interp)),
	)

	return doc, nil
}

// roots returns the scene's top-level nodes.
func roots(m *anim.Model) []int {
	r := m.Roots()
	if r == nil {
		r = []int{}
	}
	return r
}

// nodes emits one record per model node. Children lists come from grouping
// every node under its parent id.
func nodes(m *anim.Model) []Node {
	children := make(map[int][]int, len(m.Nodes))
	for _, n := range m.Nodes {
		if n.Parent != anim.NoParent {
			children[n.Parent] = append(children[n.Parent], n.ID)
		}
	}

	out := make([]Node, len(m.Nodes))
	for i, n := range m.Nodes {
		out[i] = Node{
			Name:        n.Name,
			Children:    children[n.ID],
			Translation: n.Translation,
		}
		if n.Rotation != [4]float32{} && !pkgmath.QuatFromArray(n.Rotation).IsIdentity(identityEpsilon) {
			r := n.Rotation
			out[i].Rotation = &r
		}
	}
	return out
}

// addAccessor appends a buffer view and accessor for slot s and returns the
// accessor index. Views and accessors share indices.
func (d *Document) addAccessor(p *pack.Packed, s pack.Slot) int {
	view := len(d.BufferViews)
	d.BufferViews = append(d.BufferViews, BufferView{
		Buffer:     s.Buffer,
		ByteOffset: s.ByteOffset,
		ByteLength: s.ByteLength,
	})

	lo, hi := bounds(p.Floats(s), s.Arity)
	d.Accessors = append(d.Accessors, Accessor{
		BufferView:    view,
		ComponentType: pack.ComponentFloat,
		Count:         s.Count,
		Type:          accessorType(s.Arity),
		Min:           lo,
		Max:           hi,
	})
	return len(d.Accessors) - 1
}

// bounds returns the per-component minimum and maximum of values.
func bounds(values []float32, arity int) (lo, hi []float32) {
	if arity <= 0 || len(values) < arity {
		return nil, nil
	}
	lo = append([]float32(nil), values[:arity]...)
	hi = append([]float32(nil), values[:arity]...)
	for i := arity; i < len(values); i++ {
		c := i % arity
		if values[i] < lo[c] {
			lo[c] = values[i]
		}
		if values[i] > hi[c] {
			hi[c] = values[i]
		}
	}
	return lo, hi
}
