package anim

import (
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/scottpetrovic/mocap2gltf/internal/errs"
	"github.com/scottpetrovic/mocap2gltf/internal/logger"
	"github.com/scottpetrovic/mocap2gltf/internal/mocap"
	pkgmath "github.com/scottpetrovic/mocap2gltf/pkg/math"
)

// DefaultRootName names the synthetic root of point-cloud models.
const DefaultRootName = "RootNode"

// Options controls model construction.
type Options struct {
	TimeBasis TimeBasis
	// RootName names the synthetic point-cloud root; empty means DefaultRootName.
	RootName string
	// PointTransform is applied to every point-cloud marker position.
	// The zero value is treated as identity.
	PointTransform pkgmath.Mat4
}

// Build converts a decoded clip into a Model.
//
// Hierarchical clips produce one node per joint with translation and rotation
// tracks for the channels the joint carries. Point clouds produce a synthetic
// root parenting one node per marker, each with a translation track.
func Build(clip *mocap.Clip, opts Options) (*Model, error) {
	basis := opts.TimeBasis
	if basis == "" {
		basis = Normalized
	}

	times, err := sampleTimes(clip, basis)
	if err != nil {
		return nil, err
	}

	m := &Model{
		Name:      modelName(clip.Path),
		TimeBasis: basis,
	}

	switch clip.Kind {
	case mocap.PointCloud:
		buildPointCloud(m, clip, times, opts)
	default:
		buildHierarchy(m, clip, times)
	}

	if err := m.Validate(); err != nil {
		return nil, &errs.FormatError{Path: clip.Path, Record: errs.NoRecord, Err: err}
	}

	logger.Stage("build").Debug("model built",
		zap.String("input", clip.Path),
		zap.String("time_basis", string(basis)),
		zap.Int("nodes", len(m.Nodes)),
		zap.Int("tracks", len(m.Tracks)),
	)

	return m, nil
}

// sampleTimes returns one time per frame.
func sampleTimes(clip *mocap.Clip, basis TimeBasis) ([]float32, error) {
	n := clip.FrameCount()
	times := make([]float32, n)

	switch basis {
	case Absolute:
		if !(clip.FrameRate > 0) || !(clip.SampleInterval > 0) {
			return nil, &errs.UnsupportedRateError{Path: clip.Path, Rate: clip.FrameRate}
		}
		for i := range times {
			times[i] = float32(float64(i) * clip.SampleInterval)
		}
	default:
		for i := range times {
			times[i] = float32(float64(i) / float64(n))
		}
	}
	return times, nil
}

func buildHierarchy(m *Model, clip *mocap.Clip, times []float32) {
	m.Nodes = make([]Node, len(clip.Entities))
	for i, e := range clip.Entities {
		m.Nodes[i] = Node{
			ID:          i,
			Name:        e.Name,
			Parent:      e.Parent,
			Translation: e.Offset,
			Rotation:    pkgmath.QuatIdentity().Array(),
		}
	}

	for i, e := range clip.Entities {
		if e.HasTranslation {
			m.Tracks = append(m.Tracks, translationTrack(i, i, clip, times, pkgmath.Identity()))
		}
		if e.HasRotation {
			m.Tracks = append(m.Tracks, rotationTrack(i, i, clip, times))
		}
	}
}

func buildPointCloud(m *Model, clip *mocap.Clip, times []float32, opts Options) {
	rootName := opts.RootName
	if rootName == "" {
		rootName = DefaultRootName
	}
	xf := opts.PointTransform
	if xf == (pkgmath.Mat4{}) {
		xf = pkgmath.Identity()
	}

	m.Nodes = make([]Node, 0, len(clip.Entities)+1)
	m.Nodes = append(m.Nodes, Node{
		ID:       0,
		Name:     rootName,
		Parent:   NoParent,
		Rotation: pkgmath.QuatIdentity().Array(),
	})

	for i, e := range clip.Entities {
		id := i + 1
		m.Nodes = append(m.Nodes, Node{
			ID:   id,
			Name: e.Name,
			// Point clouds have no intrinsic hierarchy
			Parent:      0,
			Translation: xf.TransformPoint(clip.Frames[0][i].Translation),
			Rotation:    pkgmath.QuatIdentity().Array(),
		})
		m.Tracks = append(m.Tracks, translationTrack(id, i, clip, times, xf))
	}
}

func translationTrack(node, entity int, clip *mocap.Clip, times []float32, xf pkgmath.Mat4) Track {
	values := make([]float32, 0, len(times)*3)
	identity := xf.IsIdentity()
	for _, frame := range clip.Frames {
		p := frame[entity].Translation
		if !identity {
			p = xf.TransformPoint(p)
		}
		values = append(values, p[:]...)
	}
	return Track{Node: node, Property: Translation, Times: times, Values: values}
}

// rotationTrack keeps consecutive quaternions in the same hemisphere so
// linear interpolation takes the short path.
func rotationTrack(node, entity int, clip *mocap.Clip, times []float32) Track {
	values := make([]float32, 0, len(times)*4)
	var prev pkgmath.Quat
	for f, frame := range clip.Frames {
		r := frame[entity].Rotation
		q := pkgmath.Quat{X: r[0], Y: r[1], Z: r[2], W: r[3]}
		if f > 0 && prev.Dot(q) < 0 {
			q = pkgmath.Quat{X: -q.X, Y: -q.Y, Z: -q.Z, W: -q.W}
		}
		prev = q
		a := q.Array()
		values = append(values, a[:]...)
	}
	return Track{Node: node, Property: Rotation, Times: times, Values: values}
}

func modelName(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "animation"
	}
	return name
}
