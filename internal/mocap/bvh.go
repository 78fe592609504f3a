package mocap

import (
	"github.com/scottpetrovic/mocap2gltf/pkg/formats"
	pkgmath "github.com/scottpetrovic/mocap2gltf/pkg/math"
)

func decodeBVH(path string, data []byte) (*Clip, error) {
	bvh, err := formats.ParseBVH(data)
	if err != nil {
		return nil, formatError(path, err)
	}

	clip := &Clip{
		Path:      path,
		Format:    FormatBVH,
		Kind:      Hierarchical,
		Entities:  make([]Entity, len(bvh.Joints)),
		Frames:    make([][]Sample, len(bvh.Frames)),
		FrameRate: bvh.FrameRate(),
	}
	if clip.FrameRate > 0 {
		clip.SampleInterval = float64(bvh.FrameTime)
	}

	for i := range bvh.Joints {
		j := &bvh.Joints[i]
		clip.Entities[i] = Entity{
			Name:           j.Name,
			Parent:         j.Parent,
			Offset:         j.Offset,
			HasTranslation: j.HasPosition(),
			HasRotation:    j.HasRotation(),
		}
	}

	for f, row := range bvh.Frames {
		samples := make([]Sample, len(bvh.Joints))
		for i := range bvh.Joints {
			samples[i] = jointSample(&bvh.Joints[i], row)
		}
		clip.Frames[f] = samples
	}

	return clip, nil
}

// jointSample evaluates one joint's channels for a frame row.
// Position channels replace the matching OFFSET axis; Euler rotations are
// composed in channel order.
func jointSample(j *formats.BVHJoint, row []float32) Sample {
	s := Sample{
		Translation: j.Offset,
		Rotation:    pkgmath.QuatIdentity().Array(),
	}

	var axes []pkgmath.Axis
	var degrees []float32
	for k, ch := range j.Channels {
		v := row[j.ChannelOffset+k]
		if ch.IsPosition() {
			s.Translation[ch.Axis()] = v
			continue
		}
		axes = append(axes, pkgmath.Axis(ch.Axis()))
		degrees = append(degrees, v)
	}

	if len(axes) > 0 {
		s.Rotation = pkgmath.QuatFromEuler(axes, degrees).Array()
	}
	return s
}
