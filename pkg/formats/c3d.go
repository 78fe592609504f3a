// C3D (Coordinate 3D) marker motion capture parser.
package formats

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/scottpetrovic/mocap2gltf/pkg/encoding"
)

// C3D format errors.
var (
	ErrInvalidC3DMagic         = errors.New("invalid C3D magic: expected 0x50 in header")
	ErrUnsupportedC3DProcessor = errors.New("unsupported C3D processor type")
	ErrTruncatedC3DData        = errors.New("truncated C3D data")
	ErrMalformedC3D            = errors.New("malformed C3D data")
	ErrC3DPointCountMismatch   = errors.New("C3D point count mismatch")
)

const (
	c3dBlockSize   = 512
	c3dMagic       = 0x50
	c3dEventKey    = 12345
	c3dMaxEvents   = 18
	processorIntel = 84
	processorDEC   = 85
	processorMIPS  = 86
)

// C3DProcessor identifies the numeric encoding of the file.
type C3DProcessor uint8

// String returns the processor family name.
func (p C3DProcessor) String() string {
	switch p {
	case processorIntel:
		return "Intel"
	case processorDEC:
		return "DEC"
	case processorMIPS:
		return "MIPS"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(p))
	}
}

// C3DHeader holds the fixed first block of a C3D file.
type C3DHeader struct {
	ParamBlock     uint8
	PointCount     uint16
	AnalogPerFrame uint16 // Total analog measurements per 3D frame
	FirstFrame     uint16
	LastFrame      uint16
	MaxGap         uint16
	ScaleFactor    float32 // Negative means float point data
	DataBlock      uint16
	AnalogSamples  uint16 // Analog samples per 3D frame, per channel
	FrameRate      float32
	Events         []C3DEvent
}

// IsFloat returns true if point data is stored as float32.
func (h *C3DHeader) IsFloat() bool {
	return h.ScaleFactor < 0
}

// FrameCount returns the number of 3D frames declared by the header.
func (h *C3DHeader) FrameCount() int {
	if h.LastFrame < h.FirstFrame {
		return 0
	}
	return int(h.LastFrame) - int(h.FirstFrame) + 1
}

// C3DEvent is a labelled time event from the header.
type C3DEvent struct {
	Label   string
	Time    float32
	Display bool
}

// C3DParamType is the element type of a parameter.
type C3DParamType int8

const (
	C3DChar  C3DParamType = -1
	C3DByte  C3DParamType = 1
	C3DInt16 C3DParamType = 2
	C3DFloat C3DParamType = 4
)

// C3DValueKind tags the decoded representation of a parameter value.
type C3DValueKind uint8

const (
	C3DValueBytes C3DValueKind = iota
	C3DValueText
	C3DValueNumeric
)

// String returns the kind name.
func (k C3DValueKind) String() string {
	switch k {
	case C3DValueBytes:
		return "Bytes"
	case C3DValueText:
		return "Text"
	case C3DValueNumeric:
		return "Numeric"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// C3DValue is a parameter value resolved by its declared type.
// Byte parameters stay opaque; their encoding is not defined by the format.
type C3DValue struct {
	Kind    C3DValueKind
	Bytes   []byte
	Text    []string
	Numbers []float64
}

// String formats the value for display.
func (v C3DValue) String() string {
	switch v.Kind {
	case C3DValueText:
		if len(v.Text) == 1 {
			return v.Text[0]
		}
		return "[" + strings.Join(v.Text, ", ") + "]"
	case C3DValueNumeric:
		if len(v.Numbers) == 1 {
			return fmt.Sprintf("%g", v.Numbers[0])
		}
		return fmt.Sprintf("%g", v.Numbers)
	default:
		return fmt.Sprintf("% x", v.Bytes)
	}
}

// C3DParam is one parameter of a group.
type C3DParam struct {
	Name        string
	Description string
	Type        C3DParamType
	Dims        []int
	Locked      bool
	Value       C3DValue
}

// Int returns the first numeric element as an int.
func (p *C3DParam) Int() (int, bool) {
	if p.Value.Kind != C3DValueNumeric || len(p.Value.Numbers) == 0 {
		return 0, false
	}
	return int(p.Value.Numbers[0]), true
}

// C3DGroup is a named parameter group such as POINT or ANALOG.
type C3DGroup struct {
	ID          int
	Name        string
	Description string
	Locked      bool
	Params      []*C3DParam
}

// Param returns the parameter with the given name (case-insensitive), or nil.
func (g *C3DGroup) Param(name string) *C3DParam {
	for _, p := range g.Params {
		if strings.EqualFold(p.Name, name) {
			return p
		}
	}
	return nil
}

// C3DPoint is one marker sample.
type C3DPoint struct {
	X, Y, Z  float32
	Residual float32 // Negative when the marker was not reconstructed
}

// Valid returns true if the marker was reconstructed in this frame.
func (p C3DPoint) Valid() bool {
	return p.Residual >= 0
}

// C3D represents a parsed C3D file.
type C3D struct {
	Header    C3DHeader
	Processor C3DProcessor
	Groups    []*C3DGroup
	Frames    [][]C3DPoint
}

// Group returns the group with the given name (case-insensitive), or nil.
func (c *C3D) Group(name string) *C3DGroup {
	for _, g := range c.Groups {
		if strings.EqualFold(g.Name, name) {
			return g
		}
	}
	return nil
}

// Param looks up GROUP:PARAM, returning nil if either is missing.
func (c *C3D) Param(group, name string) *C3DParam {
	g := c.Group(group)
	if g == nil {
		return nil
	}
	return g.Param(name)
}

// PointLabels returns marker labels from POINT:LABELS and POINT:LABELS2.
func (c *C3D) PointLabels() []string {
	var labels []string
	for _, name := range []string{"LABELS", "LABELS2"} {
		p := c.Param("POINT", name)
		if p != nil && p.Value.Kind == C3DValueText {
			labels = append(labels, p.Value.Text...)
		}
	}
	return labels
}

// PointUnits returns POINT:UNITS, or "" if absent.
func (c *C3D) PointUnits() string {
	p := c.Param("POINT", "UNITS")
	if p == nil || p.Value.Kind != C3DValueText || len(p.Value.Text) == 0 {
		return ""
	}
	return p.Value.Text[0]
}

// AnalogChannels returns ANALOG:USED, or 0 if absent.
func (c *C3D) AnalogChannels() int {
	if p := c.Param("ANALOG", "USED"); p != nil {
		if n, ok := p.Int(); ok {
			return n
		}
	}
	return 0
}

// AnalogRate returns the analog sample rate in Hz.
func (c *C3D) AnalogRate() float64 {
	return float64(c.Header.FrameRate) * float64(c.Header.AnalogSamples)
}

// ParseC3D parses a C3D file from raw bytes.
func ParseC3D(data []byte) (*C3D, error) {
	if len(data) < c3dBlockSize {
		return nil, fmt.Errorf("%w: header block", ErrTruncatedC3DData)
	}
	if data[1] != c3dMagic {
		return nil, ErrInvalidC3DMagic
	}

	c3d := &C3D{}

	paramOff := (int(data[0]) - 1) * c3dBlockSize
	if data[0] == 0 || paramOff+4 > len(data) {
		return nil, fmt.Errorf("%w: parameter section at block %d", ErrTruncatedC3DData, data[0])
	}
	c3d.Processor = C3DProcessor(data[paramOff+3])
	if c3d.Processor != processorIntel {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedC3DProcessor, c3d.Processor)
	}

	c3d.Header = parseC3DHeader(data)

	paramEnd := paramOff + int(data[paramOff+2])*c3dBlockSize
	if paramEnd > len(data) {
		return nil, fmt.Errorf("%w: parameter section declares %d blocks", ErrTruncatedC3DData, data[paramOff+2])
	}
	groups, err := parseC3DParams(data[paramOff+4 : paramEnd])
	if err != nil {
		return nil, fmt.Errorf("parsing parameters: %w", err)
	}
	c3d.Groups = groups

	if p := c3d.Param("POINT", "USED"); p != nil {
		if used, ok := p.Int(); ok && used != int(c3d.Header.PointCount) {
			return nil, fmt.Errorf("%w: header declares %d points, POINT:USED is %d",
				ErrC3DPointCountMismatch, c3d.Header.PointCount, used)
		}
	}

	frames, err := parseC3DFrames(data, &c3d.Header)
	if err != nil {
		return nil, err
	}
	c3d.Frames = frames

	return c3d, nil
}

// ParseC3DFile parses a C3D file from disk.
func ParseC3DFile(path string) (*C3D, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading C3D file: %w", err)
	}
	return ParseC3D(data)
}

func parseC3DHeader(data []byte) C3DHeader {
	le := binary.LittleEndian
	h := C3DHeader{
		ParamBlock:     data[0],
		PointCount:     le.Uint16(data[2:4]),
		AnalogPerFrame: le.Uint16(data[4:6]),
		FirstFrame:     le.Uint16(data[6:8]),
		LastFrame:      le.Uint16(data[8:10]),
		MaxGap:         le.Uint16(data[10:12]),
		ScaleFactor:    math.Float32frombits(le.Uint32(data[12:16])),
		DataBlock:      le.Uint16(data[16:18]),
		AnalogSamples:  le.Uint16(data[18:20]),
		FrameRate:      math.Float32frombits(le.Uint32(data[20:24])),
	}

	// Event block: key at word 150, count at word 151
	if le.Uint16(data[298:300]) == c3dEventKey {
		count := int(le.Uint16(data[300:302]))
		if count > c3dMaxEvents {
			count = c3dMaxEvents
		}
		for i := 0; i < count; i++ {
			h.Events = append(h.Events, C3DEvent{
				Time:    math.Float32frombits(le.Uint32(data[304+i*4:])),
				Display: data[376+i] != 0,
				Label:   encoding.CleanLabel(data[396+i*4 : 400+i*4]),
			})
		}
	}

	return h
}

// parseC3DParams walks the linked list of group and parameter records.
func parseC3DParams(sec []byte) ([]*C3DGroup, error) {
	groupsByID := make(map[int]*C3DGroup)
	var order []int

	groupFor := func(id int) *C3DGroup {
		g, ok := groupsByID[id]
		if !ok {
			g = &C3DGroup{ID: id}
			groupsByID[id] = g
			order = append(order, id)
		}
		return g
	}

	pos := 0
	for pos+2 <= len(sec) {
		nameLen := int(int8(sec[pos]))
		groupID := int(int8(sec[pos+1]))
		if nameLen == 0 {
			break
		}
		locked := nameLen < 0
		if locked {
			nameLen = -nameLen
		}

		nameEnd := pos + 2 + nameLen
		if nameEnd+2 > len(sec) {
			return nil, fmt.Errorf("%w: record name at offset %d", ErrTruncatedC3DData, pos)
		}
		name := encoding.CleanLabel(sec[pos+2 : nameEnd])
		next := int(int16(binary.LittleEndian.Uint16(sec[nameEnd : nameEnd+2])))
		body := nameEnd + 2

		if groupID < 0 {
			g := groupFor(-groupID)
			g.Name = name
			g.Locked = locked
			desc, _, err := readC3DDescription(sec, body)
			if err != nil {
				return nil, fmt.Errorf("group %s: %w", name, err)
			}
			g.Description = desc
		} else {
			param, err := parseC3DParam(sec, body)
			if err != nil {
				return nil, fmt.Errorf("parameter %s: %w", name, err)
			}
			param.Name = name
			param.Locked = locked
			g := groupFor(groupID)
			g.Params = append(g.Params, param)
		}

		if next == 0 {
			break
		}
		pos = nameEnd + next
		if next < 0 || pos <= nameEnd {
			return nil, fmt.Errorf("%w: record %s links backwards", ErrMalformedC3D, name)
		}
	}

	groups := make([]*C3DGroup, 0, len(order))
	for _, id := range order {
		groups = append(groups, groupsByID[id])
	}
	return groups, nil
}

func parseC3DParam(sec []byte, pos int) (*C3DParam, error) {
	if pos+2 > len(sec) {
		return nil, fmt.Errorf("%w: parameter type", ErrTruncatedC3DData)
	}
	ptype := C3DParamType(int8(sec[pos]))
	ndims := int(sec[pos+1])
	pos += 2

	if pos+ndims > len(sec) {
		return nil, fmt.Errorf("%w: parameter dimensions", ErrTruncatedC3DData)
	}
	var elemSize int
	switch ptype {
	case C3DChar, C3DByte:
		elemSize = 1
	case C3DInt16:
		elemSize = 2
	case C3DFloat:
		elemSize = 4
	default:
		return nil, fmt.Errorf("%w: parameter type %d", ErrMalformedC3D, ptype)
	}

	// The running size never exceeds the bytes left, so it cannot overflow
	remaining := len(sec) - pos - ndims
	dims := make([]int, ndims)
	size := elemSize
	for i := range dims {
		dims[i] = int(sec[pos+i])
		size *= dims[i]
		if size > remaining {
			return nil, fmt.Errorf("%w: parameter dimensions %v need more than %d bytes",
				ErrTruncatedC3DData, sec[pos:pos+i+1], remaining)
		}
	}
	if size > remaining {
		return nil, fmt.Errorf("%w: parameter data (%d bytes)", ErrTruncatedC3DData, size)
	}
	pos += ndims
	raw := sec[pos : pos+size]
	pos += size

	desc, _, err := readC3DDescription(sec, pos)
	if err != nil {
		return nil, err
	}

	return &C3DParam{
		Description: desc,
		Type:        ptype,
		Dims:        dims,
		Value:       decodeC3DValue(ptype, dims, raw),
	}, nil
}

// decodeC3DValue resolves raw parameter bytes by declared type.
func decodeC3DValue(ptype C3DParamType, dims []int, raw []byte) C3DValue {
	switch ptype {
	case C3DChar:
		if len(dims) <= 1 {
			return C3DValue{Kind: C3DValueText, Text: []string{encoding.CleanLabel(raw)}}
		}
		return C3DValue{Kind: C3DValueText, Text: encoding.SplitLabels(raw, dims[0])}

	case C3DInt16:
		nums := make([]float64, len(raw)/2)
		for i := range nums {
			nums[i] = float64(int16(binary.LittleEndian.Uint16(raw[i*2:])))
		}
		return C3DValue{Kind: C3DValueNumeric, Numbers: nums}

	case C3DFloat:
		nums := make([]float64, len(raw)/4)
		for i := range nums {
			nums[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:])))
		}
		return C3DValue{Kind: C3DValueNumeric, Numbers: nums}

	default:
		b := make([]byte, len(raw))
		copy(b, raw)
		return C3DValue{Kind: C3DValueBytes, Bytes: b}
	}
}

func readC3DDescription(sec []byte, pos int) (string, int, error) {
	if pos >= len(sec) {
		return "", pos, fmt.Errorf("%w: description length", ErrTruncatedC3DData)
	}
	n := int(sec[pos])
	pos++
	if pos+n > len(sec) {
		return "", pos, fmt.Errorf("%w: description", ErrTruncatedC3DData)
	}
	return encoding.CleanLabel(sec[pos : pos+n]), pos + n, nil
}

// parseC3DFrames decodes the point records of every frame, skipping analog samples.
func parseC3DFrames(data []byte, h *C3DHeader) ([][]C3DPoint, error) {
	if h.DataBlock < 2 {
		return nil, fmt.Errorf("%w: data block %d", ErrMalformedC3D, h.DataBlock)
	}

	compSize := 2
	if h.IsFloat() {
		compSize = 4
	}
	scale := float32(math.Abs(float64(h.ScaleFactor)))
	if !h.IsFloat() && !(scale > 0 && !math.IsInf(float64(scale), 0)) {
		return nil, fmt.Errorf("%w: integer point data with scale factor %g", ErrMalformedC3D, h.ScaleFactor)
	}

	pointCount := int(h.PointCount)
	pointBytes := 4 * compSize
	frameBytes := pointCount*pointBytes + int(h.AnalogPerFrame)*compSize

	start := (int(h.DataBlock) - 1) * c3dBlockSize
	frameCount := h.FrameCount()
	frames := make([][]C3DPoint, 0, frameCount)

	le := binary.LittleEndian
	for f := 0; f < frameCount; f++ {
		off := start + f*frameBytes
		if off+frameBytes > len(data) {
			have := 0
			if off < len(data) {
				have = (len(data) - off) / pointBytes
				if have > pointCount {
					have = pointCount
				}
			}
			return nil, &FrameError{Frame: f, Err: fmt.Errorf("%w: header declares %d points, record holds %d",
				ErrTruncatedC3DData, pointCount, have)}
		}

		points := make([]C3DPoint, pointCount)
		for i := range points {
			p := data[off+i*pointBytes:]
			if h.IsFloat() {
				points[i] = C3DPoint{
					X:        math.Float32frombits(le.Uint32(p[0:])),
					Y:        math.Float32frombits(le.Uint32(p[4:])),
					Z:        math.Float32frombits(le.Uint32(p[8:])),
					Residual: math.Float32frombits(le.Uint32(p[12:])),
				}
				continue
			}
			word := int16(le.Uint16(p[6:]))
			residual := float32(-1)
			if word >= 0 {
				residual = float32(word&0xFF) * scale
			}
			points[i] = C3DPoint{
				X:        float32(int16(le.Uint16(p[0:]))) * scale,
				Y:        float32(int16(le.Uint16(p[2:]))) * scale,
				Z:        float32(int16(le.Uint16(p[4:]))) * scale,
				Residual: residual,
			}
		}
		frames = append(frames, points)
	}

	return frames, nil
}
