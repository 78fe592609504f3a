// Package formatstest builds synthetic BVH and C3D files for tests.
package formatstest

import (
	"bytes"
	"encoding/binary"
	"math"
)

// C3D describes a synthetic C3D file.
type C3D struct {
	Labels     []string // One per declared point
	FrameRate  float32
	Frames     [][][3]float32 // Frames[f][p]
	Residuals  [][]float32    // Optional, same shape as Frames; defaults to 0
	IntScale   float32        // >0 writes scaled int16 data, otherwise float32
	Analog     int            // Analog values per frame (written as zeros)
	Units      string         // POINT:UNITS, omitted when empty
	PointUsed  int            // POINT:USED override; 0 means len(Labels)
	Processor  byte           // 0 means Intel (84)
	Events     []Event
	FirstFrame uint16 // 0 means 1
	// ExtraParams are appended to the POINT group as written, unchecked.
	ExtraParams []Param
	// StoredPoints overrides how many point records each frame holds on disk.
	StoredPoints int
}

// Param is a raw parameter record.
type Param struct {
	Name string
	Type int8
	Dims []byte
	Data []byte
}

// Event is a header time event.
type Event struct {
	Label string
	Time  float32
}

const blockSize = 512

// Bytes encodes the file: header block, one parameter block, then data.
func (c C3D) Bytes() []byte {
	le := binary.LittleEndian
	pointCount := len(c.Labels)
	first := c.FirstFrame
	if first == 0 {
		first = 1
	}

	// Header
	header := make([]byte, blockSize)
	header[0] = 2 // Parameter section at block 2
	header[1] = 0x50
	le.PutUint16(header[2:], uint16(pointCount))
	le.PutUint16(header[4:], uint16(c.Analog))
	le.PutUint16(header[6:], first)
	le.PutUint16(header[8:], first+uint16(len(c.Frames))-1)
	scale := float32(-1)
	if c.IntScale > 0 {
		scale = c.IntScale
	}
	le.PutUint32(header[12:], math.Float32bits(scale))
	le.PutUint16(header[16:], 3) // Data at block 3
	if c.Analog > 0 {
		le.PutUint16(header[18:], 1)
	}
	le.PutUint32(header[20:], math.Float32bits(c.FrameRate))
	if len(c.Events) > 0 {
		le.PutUint16(header[298:], 12345)
		le.PutUint16(header[300:], uint16(len(c.Events)))
		for i, ev := range c.Events {
			le.PutUint32(header[304+i*4:], math.Float32bits(ev.Time))
			header[376+i] = 1
			label := make([]byte, 4)
			copy(label, ev.Label)
			copy(header[396+i*4:], label)
		}
	}

	// Parameters
	params := make([]byte, 4, blockSize)
	params[1] = 0x50
	params[2] = 1
	params[3] = 84
	if c.Processor != 0 {
		params[3] = c.Processor
	}

	var recs bytes.Buffer
	writeGroup(&recs, 1, "POINT", "3-D point parameters")
	used := c.PointUsed
	if used == 0 {
		used = pointCount
	}
	writeParam(&recs, 1, "USED", 2, nil, int16Bytes(int16(used)))
	writeParam(&recs, 1, "RATE", 4, nil, float32Bytes(c.FrameRate))
	if pointCount > 0 {
		labels := make([]byte, 0, pointCount*4)
		for _, l := range c.Labels {
			b := make([]byte, 4)
			for i := range b {
				b[i] = ' '
			}
			copy(b, l)
			labels = append(labels, b...)
		}
		writeParam(&recs, 1, "LABELS", -1, []byte{4, byte(pointCount)}, labels)
	}
	if c.Units != "" {
		writeParam(&recs, 1, "UNITS", -1, []byte{byte(len(c.Units))}, []byte(c.Units))
	}
	for _, p := range c.ExtraParams {
		writeParam(&recs, 1, p.Name, p.Type, p.Dims, p.Data)
	}
	writeGroup(&recs, 2, "ANALOG", "")
	writeParam(&recs, 2, "USED", 2, nil, int16Bytes(int16(c.Analog)))
	writeParam(&recs, 2, "GAIN", 1, []byte{2}, []byte{0xDE, 0xAD})
	recs.Write([]byte{0, 0}) // Terminator

	params = append(params, recs.Bytes()...)
	params = append(params, make([]byte, blockSize-len(params))...)

	// Data
	stored := pointCount
	if c.StoredPoints > 0 {
		stored = c.StoredPoints
	}
	var data bytes.Buffer
	for f, frame := range c.Frames {
		for p := 0; p < stored && p < len(frame); p++ {
			var residual float32
			if c.Residuals != nil {
				residual = c.Residuals[f][p]
			}
			v := frame[p]
			if c.IntScale > 0 {
				for _, comp := range v {
					binary.Write(&data, le, int16(comp/c.IntScale))
				}
				word := int16(residual / c.IntScale)
				if residual < 0 {
					word = -1
				}
				binary.Write(&data, le, word)
				continue
			}
			for _, comp := range v {
				binary.Write(&data, le, comp)
			}
			binary.Write(&data, le, residual)
		}
		for a := 0; a < c.Analog; a++ {
			if c.IntScale > 0 {
				binary.Write(&data, le, int16(0))
			} else {
				binary.Write(&data, le, float32(0))
			}
		}
	}

	out := append(header, params...)
	return append(out, data.Bytes()...)
}

func writeGroup(buf *bytes.Buffer, id int8, name, desc string) {
	buf.WriteByte(byte(int8(len(name))))
	buf.WriteByte(byte(-id))
	buf.WriteString(name)
	binary.Write(buf, binary.LittleEndian, int16(2+1+len(desc)))
	buf.WriteByte(byte(len(desc)))
	buf.WriteString(desc)
}

func writeParam(buf *bytes.Buffer, group int8, name string, ptype int8, dims []byte, data []byte) {
	buf.WriteByte(byte(int8(len(name))))
	buf.WriteByte(byte(group))
	buf.WriteString(name)
	binary.Write(buf, binary.LittleEndian, int16(2+2+len(dims)+len(data)+1))
	buf.WriteByte(byte(ptype))
	buf.WriteByte(byte(len(dims)))
	buf.Write(dims)
	buf.Write(data)
	buf.WriteByte(0) // No description
}

func int16Bytes(v int16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, uint16(v))
	return b
}

func float32Bytes(v float32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	return b
}
