package mocap

import (
	"fmt"
	"math"

	"github.com/scottpetrovic/mocap2gltf/internal/errs"
	"github.com/scottpetrovic/mocap2gltf/pkg/formats"
)

func decodeC3D(path string, data []byte) (*Clip, error) {
	c3d, err := formats.ParseC3D(data)
	if err != nil {
		return nil, formatError(path, err)
	}

	rate := float64(c3d.Header.FrameRate)
	if !(rate > 0) || math.IsInf(rate, 0) {
		return nil, &errs.UnsupportedRateError{Path: path, Rate: rate}
	}

	names := markerNames(c3d.PointLabels(), int(c3d.Header.PointCount))

	clip := &Clip{
		Path:           path,
		Format:         FormatC3D,
		Kind:           PointCloud,
		Entities:       make([]Entity, len(names)),
		Frames:         make([][]Sample, len(c3d.Frames)),
		FrameRate:      rate,
		SampleInterval: 1 / rate,
		Info:           c3dInfo(c3d),
	}

	for i, name := range names {
		clip.Entities[i] = Entity{Name: name, Parent: NoParent, HasTranslation: true}
	}

	for f, points := range c3d.Frames {
		samples := make([]Sample, len(points))
		for i, p := range points {
			samples[i] = Sample{Translation: [3]float32{p.X, p.Y, p.Z}}
		}
		clip.Frames[f] = samples
	}

	return clip, nil
}

// markerNames pairs labels with points, filling gaps and making names unique.
func markerNames(labels []string, count int) []string {
	names := make([]string, count)
	seen := make(map[string]bool, count)
	for i := range names {
		name := ""
		if i < len(labels) {
			name = labels[i]
		}
		if name == "" {
			name = fmt.Sprintf("Marker%d", i+1)
		}
		base := name
		for n := 2; seen[name]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		seen[name] = true
		names[i] = name
	}
	return names
}

func c3dInfo(c3d *formats.C3D) Info {
	info := Info{
		Units:          c3d.PointUnits(),
		AnalogChannels: c3d.AnalogChannels(),
		AnalogRate:     c3d.AnalogRate(),
	}

	for _, g := range c3d.Groups {
		group := ParamGroup{Name: g.Name, Description: g.Description}
		for _, p := range g.Params {
			param := Param{Name: p.Name, Display: p.Value.String()}
			switch p.Value.Kind {
			case formats.C3DValueText:
				param.Kind = ValueText
				param.Text = p.Value.Text
			case formats.C3DValueNumeric:
				param.Kind = ValueNumeric
				param.Numbers = p.Value.Numbers
			default:
				param.Kind = ValueBytes
				param.Bytes = p.Value.Bytes
			}
			group.Params = append(group.Params, param)
		}
		info.Groups = append(info.Groups, group)
	}

	for _, ev := range c3d.Header.Events {
		info.Events = append(info.Events, Event{Label: ev.Label, Time: float64(ev.Time)})
	}

	return info
}
