// Package pack serializes animation tracks into little-endian float32 buffers.
//
// Every track contributes two arrays, its sample times and its sample values.
// A Policy decides whether each array gets its own buffer or all arrays share
// one buffer back to back. Offsets inside a shared buffer are 4-byte aligned and
// views never overlap.
package pack

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/scottpetrovic/mocap2gltf/internal/anim"
	"github.com/scottpetrovic/mocap2gltf/internal/errs"
	"github.com/scottpetrovic/mocap2gltf/internal/logger"
)

// Policy selects how arrays are distributed over buffers.
type Policy string

const (
	// Grouped concatenates every array into a single buffer.
	Grouped Policy = "grouped"
	// PerArray gives every array its own buffer.
	PerArray Policy = "per_array"
)

// ParsePolicy validates a packing policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case Grouped, PerArray:
		return p, nil
	default:
		return "", fmt.Errorf("unknown packing policy %q (want grouped or per_array)", s)
	}
}

// ComponentFloat is the glTF componentType for 32-bit floats.
const ComponentFloat = 5126

// ComponentSize is the byte size of one float32 component.
const ComponentSize = 4

var errEmptyArray = errors.New("array has no samples")

// Slot locates one packed array.
type Slot struct {
	Buffer     int
	ByteOffset int
	ByteLength int
	Count      int // Number of elements
	Arity      int // Components per element
}

// TrackSlots holds the slots of one track's time and value arrays.
type TrackSlots struct {
	Input  Slot
	Output Slot
}

// Packed is the result of packing a model. Slots is parallel to the
// model's Tracks. It must not be modified after Pack returns.
type Packed struct {
	Policy  Policy
	Buffers [][]byte
	Slots   []TrackSlots
}

// TotalBytes returns the combined length of all buffers.
func (p *Packed) TotalBytes() int {
	total := 0
	for _, b := range p.Buffers {
		total += len(b)
	}
	return total
}

// Floats decodes the components stored in slot s.
func (p *Packed) Floats(s Slot) []float32 {
	buf := p.Buffers[s.Buffer][s.ByteOffset : s.ByteOffset+s.ByteLength]
	out := make([]float32, len(buf)/ComponentSize)
	for i := range out {
		out[i] = readFloat32(buf, i*ComponentSize)
	}
	return out
}

// Pack writes every track of m according to policy. An empty policy means Grouped.
func Pack(m *anim.Model, policy Policy) (*Packed, error) {
	if policy == "" {
		policy = Grouped
	}
	if policy != Grouped && policy != PerArray {
		return nil, &errs.PackingError{Track: "*", Err: fmt.Errorf("unknown policy %q", policy)}
	}

	w := &writer{policy: policy}
	slots := make([]TrackSlots, len(m.Tracks))

	for i := range m.Tracks {
		t := &m.Tracks[i]
		name := m.TrackName(i)

		if t.Len() == 0 {
			return nil, &errs.PackingError{Track: name, Err: errEmptyArray}
		}
		arity := t.Property.Arity()
		if len(t.Values) != t.Len()*arity {
			return nil, &errs.PackingError{
				Track: name,
				Err:   fmt.Errorf("%d values for %d samples of arity %d", len(t.Values), t.Len(), arity),
			}
		}

		slots[i].Input = w.put(t.Times, 1)
		slots[i].Output = w.put(t.Values, arity)
	}

	p := &Packed{Policy: policy, Buffers: w.buffers, Slots: slots}

	logger.Stage("pack").Debug("buffers packed",
		zap.String("policy", string(policy)),
		zap.Int("buffers", len(p.Buffers)),
		zap.Int("bytes", p.TotalBytes()),
	)

	return p, nil
}

type writer struct {
	policy  Policy
	buffers [][]byte
}

// put appends values to the current buffer, or to a fresh one for PerArray.
func (w *writer) put(values []float32, arity int) Slot {
	if w.policy == PerArray || len(w.buffers) == 0 {
		w.buffers = append(w.buffers, nil)
	}
	idx := len(w.buffers) - 1
	buf := w.buffers[idx]

	offset := align(len(buf), ComponentSize)
	length := len(values) * ComponentSize

	buf = append(buf, make([]byte, offset-len(buf)+length)...)
	for i, v := range values {
		writeFloat32(buf, offset+i*ComponentSize, v)
	}
	w.buffers[idx] = buf

	return Slot{
		Buffer:     idx,
		ByteOffset: offset,
		ByteLength: length,
		Count:      len(values) / arity,
		Arity:      arity,
	}
}

func align(n, to int) int {
	if r := n % to; r != 0 {
		return n + to - r
	}
	return n
}

func writeFloat32(buf []byte, offset int, v float32) {
	binary.LittleEndian.PutUint32(buf[offset:], math.Float32bits(v))
}

func readFloat32(buf []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[offset:]))
}
