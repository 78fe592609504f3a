// BVH (Biovision Hierarchy) motion capture parser.
package formats

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/scottpetrovic/mocap2gltf/pkg/encoding"
)

// BVH format errors.
var (
	ErrInvalidBVHHeader  = errors.New("invalid BVH header: expected 'HIERARCHY'")
	ErrMalformedBVH      = errors.New("malformed BVH data")
	ErrTruncatedBVHData  = errors.New("truncated BVH data")
	ErrBVHChannelCount   = errors.New("BVH frame channel count mismatch")
	ErrUnknownBVHChannel = errors.New("unknown BVH channel")
)

// BVHChannel identifies one animated degree of freedom of a joint.
type BVHChannel uint8

const (
	BVHXPosition BVHChannel = iota
	BVHYPosition
	BVHZPosition
	BVHXRotation
	BVHYRotation
	BVHZRotation
)

var bvhChannelNames = [...]string{"Xposition", "Yposition", "Zposition", "Xrotation", "Yrotation", "Zrotation"}

// String returns the channel name as written in BVH files.
func (c BVHChannel) String() string {
	if int(c) < len(bvhChannelNames) {
		return bvhChannelNames[c]
	}
	return fmt.Sprintf("Unknown(%d)", c)
}

// IsPosition returns true for the three translation channels.
func (c BVHChannel) IsPosition() bool {
	return c <= BVHZPosition
}

// Axis returns the axis index (0=X, 1=Y, 2=Z).
func (c BVHChannel) Axis() int {
	return int(c) % 3
}

func parseBVHChannel(name string) (BVHChannel, bool) {
	for i, n := range bvhChannelNames {
		if strings.EqualFold(n, name) {
			return BVHChannel(i), true
		}
	}
	return 0, false
}

// BVHJoint is one ROOT or JOINT entry of the hierarchy.
type BVHJoint struct {
	Name          string
	Parent        int // -1 for roots
	Offset        [3]float32
	Channels      []BVHChannel
	ChannelOffset int // Index of the joint's first channel in a frame row
	EndSite       *[3]float32
}

// HasPosition returns true if any translation channel is present.
func (j *BVHJoint) HasPosition() bool {
	for _, c := range j.Channels {
		if c.IsPosition() {
			return true
		}
	}
	return false
}

// HasRotation returns true if any rotation channel is present.
func (j *BVHJoint) HasRotation() bool {
	for _, c := range j.Channels {
		if !c.IsPosition() {
			return true
		}
	}
	return false
}

// BVH represents a parsed BVH file.
type BVH struct {
	Joints    []BVHJoint // Depth-first order; parents precede children
	FrameTime float32    // Seconds per frame
	Frames    [][]float32
}

// ChannelCount returns the number of values in each frame row.
func (b *BVH) ChannelCount() int {
	n := 0
	for i := range b.Joints {
		n += len(b.Joints[i].Channels)
	}
	return n
}

// FrameRate returns frames per second, or 0 if the frame time is not positive.
func (b *BVH) FrameRate() float64 {
	if b.FrameTime <= 0 {
		return 0
	}
	return 1 / float64(b.FrameTime)
}

// FrameError reports a problem with one data record.
type FrameError struct {
	Frame int
	Err   error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame %d: %v", e.Frame, e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// ParseBVH parses a BVH file from raw bytes.
func ParseBVH(data []byte) (*BVH, error) {
	p := &bvhParser{lines: strings.Split(string(bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))), "\n")}

	tok, ok := p.next()
	if !ok || !strings.EqualFold(tok, "HIERARCHY") {
		return nil, ErrInvalidBVHHeader
	}

	bvh := &BVH{}

	for {
		tok, ok := p.next()
		if !ok {
			return nil, fmt.Errorf("%w: missing MOTION section", ErrTruncatedBVHData)
		}
		if strings.EqualFold(tok, "MOTION") {
			break
		}
		if !strings.EqualFold(tok, "ROOT") {
			return nil, fmt.Errorf("%w: line %d: expected ROOT or MOTION, got %q", ErrMalformedBVH, p.tokLine, tok)
		}
		if err := p.parseJoint(bvh, -1); err != nil {
			return nil, err
		}
	}

	if len(bvh.Joints) == 0 {
		return nil, fmt.Errorf("%w: no ROOT joint", ErrMalformedBVH)
	}

	if err := p.parseMotion(bvh); err != nil {
		return nil, err
	}

	return bvh, nil
}

// ParseBVHFile parses a BVH file from disk.
func ParseBVHFile(path string) (*BVH, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading BVH file: %w", err)
	}
	return ParseBVH(data)
}

type bvhParser struct {
	lines   []string
	line    int      // Index of the next unread line
	toks    []string // Remaining tokens of the current line
	tokLine int      // 1-based line number of the current line
}

func (p *bvhParser) next() (string, bool) {
	for len(p.toks) == 0 {
		if p.line >= len(p.lines) {
			return "", false
		}
		p.toks = strings.Fields(p.lines[p.line])
		p.line++
		p.tokLine = p.line
	}
	tok := p.toks[0]
	p.toks = p.toks[1:]
	return tok, true
}

func (p *bvhParser) expect(want string) error {
	tok, ok := p.next()
	if !ok {
		return fmt.Errorf("%w: expected %q", ErrTruncatedBVHData, want)
	}
	if !strings.EqualFold(tok, want) {
		return fmt.Errorf("%w: line %d: expected %q, got %q", ErrMalformedBVH, p.tokLine, want, tok)
	}
	return nil
}

func (p *bvhParser) float() (float32, error) {
	tok, ok := p.next()
	if !ok {
		return 0, fmt.Errorf("%w: expected number", ErrTruncatedBVHData)
	}
	v, err := strconv.ParseFloat(tok, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d: invalid number %q", ErrMalformedBVH, p.tokLine, tok)
	}
	return float32(v), nil
}

func (p *bvhParser) vec3() ([3]float32, error) {
	var v [3]float32
	for i := range v {
		f, err := p.float()
		if err != nil {
			return v, err
		}
		v[i] = f
	}
	return v, nil
}

// restOfLine consumes the remaining tokens on the current line.
func (p *bvhParser) restOfLine() string {
	s := strings.Join(p.toks, " ")
	p.toks = nil
	return s
}

func (p *bvhParser) parseJoint(bvh *BVH, parent int) error {
	name := encoding.LabelToUTF8([]byte(p.restOfLine()))
	if name == "" {
		return fmt.Errorf("%w: line %d: joint without name", ErrMalformedBVH, p.tokLine)
	}

	idx := len(bvh.Joints)
	bvh.Joints = append(bvh.Joints, BVHJoint{Name: name, Parent: parent})

	if err := p.expect("{"); err != nil {
		return fmt.Errorf("joint %q: %w", name, err)
	}

	for {
		tok, ok := p.next()
		if !ok {
			return fmt.Errorf("%w: joint %q not closed", ErrTruncatedBVHData, name)
		}

		switch {
		case tok == "}":
			return nil

		case strings.EqualFold(tok, "OFFSET"):
			off, err := p.vec3()
			if err != nil {
				return fmt.Errorf("joint %q offset: %w", name, err)
			}
			bvh.Joints[idx].Offset = off

		case strings.EqualFold(tok, "CHANNELS"):
			if err := p.parseChannels(bvh, idx); err != nil {
				return fmt.Errorf("joint %q: %w", name, err)
			}

		case strings.EqualFold(tok, "JOINT"):
			if err := p.parseJoint(bvh, idx); err != nil {
				return err
			}

		case strings.EqualFold(tok, "End"):
			end, err := p.parseEndSite()
			if err != nil {
				return fmt.Errorf("joint %q end site: %w", name, err)
			}
			bvh.Joints[idx].EndSite = &end

		default:
			return fmt.Errorf("%w: line %d: unexpected token %q in joint %q", ErrMalformedBVH, p.tokLine, tok, name)
		}
	}
}

func (p *bvhParser) parseChannels(bvh *BVH, idx int) error {
	tok, ok := p.next()
	if !ok {
		return fmt.Errorf("%w: expected channel count", ErrTruncatedBVHData)
	}
	count, err := strconv.Atoi(tok)
	if err != nil || count < 0 || count > 6 {
		return fmt.Errorf("%w: line %d: invalid channel count %q", ErrMalformedBVH, p.tokLine, tok)
	}

	// Channel offsets follow declaration order, which is depth-first
	bvh.Joints[idx].ChannelOffset = bvh.ChannelCount()

	channels := make([]BVHChannel, 0, count)
	for i := 0; i < count; i++ {
		tok, ok := p.next()
		if !ok {
			return fmt.Errorf("%w: expected %d channels, got %d", ErrTruncatedBVHData, count, i)
		}
		ch, known := parseBVHChannel(tok)
		if !known {
			return fmt.Errorf("%w: line %d: %q", ErrUnknownBVHChannel, p.tokLine, tok)
		}
		channels = append(channels, ch)
	}
	bvh.Joints[idx].Channels = channels
	return nil
}

func (p *bvhParser) parseEndSite() ([3]float32, error) {
	if err := p.expect("Site"); err != nil {
		return [3]float32{}, err
	}
	if err := p.expect("{"); err != nil {
		return [3]float32{}, err
	}
	if err := p.expect("OFFSET"); err != nil {
		return [3]float32{}, err
	}
	off, err := p.vec3()
	if err != nil {
		return off, err
	}
	return off, p.expect("}")
}

func (p *bvhParser) parseMotion(bvh *BVH) error {
	if err := p.expect("Frames:"); err != nil {
		return err
	}
	tok, ok := p.next()
	if !ok {
		return fmt.Errorf("%w: expected frame count", ErrTruncatedBVHData)
	}
	frameCount, err := strconv.Atoi(tok)
	if err != nil || frameCount < 0 {
		return fmt.Errorf("%w: line %d: invalid frame count %q", ErrMalformedBVH, p.tokLine, tok)
	}

	if err := p.expect("Frame"); err != nil {
		return err
	}
	if err := p.expect("Time:"); err != nil {
		return err
	}
	frameTime, err := p.float()
	if err != nil {
		return err
	}
	bvh.FrameTime = frameTime

	if len(p.toks) != 0 {
		return fmt.Errorf("%w: line %d: trailing data after frame time", ErrMalformedBVH, p.tokLine)
	}

	channelCount := bvh.ChannelCount()
	// Capacity bounded by the rows actually present, not the declared count
	bvh.Frames = make([][]float32, 0, min(frameCount, len(p.lines)-p.line))

	for ; p.line < len(p.lines); p.line++ {
		fields := strings.Fields(p.lines[p.line])
		if len(fields) == 0 {
			continue
		}
		frame := len(bvh.Frames)
		if frame >= frameCount {
			return &FrameError{Frame: frame, Err: fmt.Errorf("%w: line %d: more frames than the declared %d", ErrMalformedBVH, p.line+1, frameCount)}
		}
		if len(fields) != channelCount {
			return &FrameError{Frame: frame, Err: fmt.Errorf("%w: line %d: expected %d values, got %d", ErrBVHChannelCount, p.line+1, channelCount, len(fields))}
		}

		row := make([]float32, channelCount)
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 32)
			if err != nil {
				return &FrameError{Frame: frame, Err: fmt.Errorf("%w: line %d: invalid number %q", ErrMalformedBVH, p.line+1, f)}
			}
			row[i] = float32(v)
		}
		bvh.Frames = append(bvh.Frames, row)
	}

	if len(bvh.Frames) != frameCount {
		return &FrameError{Frame: len(bvh.Frames), Err: fmt.Errorf("%w: expected %d frames, got %d", ErrTruncatedBVHData, frameCount, len(bvh.Frames))}
	}

	return nil
}
