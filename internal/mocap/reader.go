package mocap

import (
	"errors"
	"fmt"
	"math"
	"os"

	"go.uber.org/zap"

	"github.com/scottpetrovic/mocap2gltf/internal/errs"
	"github.com/scottpetrovic/mocap2gltf/internal/logger"
	"github.com/scottpetrovic/mocap2gltf/pkg/formats"
)

var errNoFrames = errors.New("source contains no frames")

// decoder turns raw file bytes into a Clip.
type decoder func(path string, data []byte) (*Clip, error)

var decoders = map[Format]decoder{
	FormatBVH: decodeBVH,
	FormatC3D: decodeC3D,
}

// Read decodes the file at path using the selected format.
//
// Errors are *errs.IOError when the file cannot be read, *errs.FormatError
// when the data is malformed or inconsistent, and *errs.UnsupportedRateError
// when a point-cloud source declares a frame rate <= 0.
func Read(path string, format Format) (*Clip, error) {
	decode, ok := decoders[format]
	if !ok {
		return nil, fmt.Errorf("unknown source format %q", format)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errs.IOError{Op: "read", Path: path, Err: err}
	}

	clip, err := decode(path, data)
	if err != nil {
		return nil, err
	}

	if err := clip.validate(); err != nil {
		return nil, err
	}

	logger.Stage("read").Debug("source decoded",
		zap.String("input", path),
		zap.String("format", string(format)),
		zap.Stringer("kind", clip.Kind),
		zap.Int("entities", len(clip.Entities)),
		zap.Int("frames", clip.FrameCount()),
		zap.Float64("frame_rate", clip.FrameRate),
	)

	return clip, nil
}

// validate enforces frame/channel consistency across the whole clip.
func (c *Clip) validate() error {
	if len(c.Frames) == 0 {
		return &errs.FormatError{Path: c.Path, Record: errs.NoRecord, Err: errNoFrames}
	}
	if len(c.Entities) == 0 {
		return &errs.FormatError{Path: c.Path, Record: errs.NoRecord, Err: errors.New("source declares no joints or markers")}
	}
	for i, e := range c.Entities {
		if e.Parent != NoParent && (e.Parent < 0 || e.Parent >= i) {
			return &errs.FormatError{Path: c.Path, Record: errs.NoRecord,
				Err: fmt.Errorf("entity %q: parent %d must precede it", e.Name, e.Parent)}
		}
	}
	for f, frame := range c.Frames {
		if len(frame) != len(c.Entities) {
			return &errs.FormatError{Path: c.Path, Record: f,
				Err: fmt.Errorf("frame holds %d entries, header declares %d", len(frame), len(c.Entities))}
		}
		for e, s := range frame {
			if !finite(s.Translation[:]) || !finite(s.Rotation[:]) {
				return &errs.FormatError{Path: c.Path, Record: f,
					Err: fmt.Errorf("entity %q has a non-finite value", c.Entities[e].Name)}
			}
		}
	}
	return nil
}

func finite(vals []float32) bool {
	for _, v := range vals {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return false
		}
	}
	return true
}

// formatError attaches the path and, when known, the failing record.
func formatError(path string, err error) error {
	record := errs.NoRecord
	var frameErr *formats.FrameError
	if errors.As(err, &frameErr) {
		record = frameErr.Frame
		err = frameErr.Err
	}
	return &errs.FormatError{Path: path, Record: record, Err: err}
}
