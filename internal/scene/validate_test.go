package scene

import (
	"errors"
	"strings"
	"testing"

	"github.com/scottpetrovic/mocap2gltf/internal/errs"
	"github.com/scottpetrovic/mocap2gltf/internal/pack"
)

// validDocument returns a minimal two-node document with one animated track.
func validDocument() *Document {
	return &Document{
		Asset:  Asset{Version: Version},
		Scenes: []Scene{{Nodes: []int{0}}},
		Nodes: []Node{
			{Name: "root", Children: []int{1}},
			{Name: "child"},
		},
		Animations: []Animation{{
			Name:     "clip",
			Channels: []Channel{{Sampler: 0, Target: Target{Node: 1, Path: "translation"}}},
			Samplers: []ASampler{{Input: 0, Interpolation: "LINEAR", Output: 1}},
		}},
		Accessors: []Accessor{
			{BufferView: 0, ComponentType: pack.ComponentFloat, Count: 2, Type: SCALAR, Min: []float32{0}, Max: []float32{0.5}},
			{BufferView: 1, ComponentType: pack.ComponentFloat, Count: 2, Type: VEC3},
		},
		BufferViews: []BufferView{
			{Buffer: 0, ByteOffset: 0, ByteLength: 8},
			{Buffer: 0, ByteOffset: 8, ByteLength: 24},
		},
		Buffers: []Buffer{{ByteLength: 32, URI: "clip.bin"}},
	}
}

func TestValidate_Valid(t *testing.T) {
	if err := validDocument().Validate(); err != nil {
		t.Errorf("expected valid document, got %v", err)
	}
}

func TestValidate_Violations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *Document)
		want   string
	}{
		{"version", func(d *Document) { d.Asset.Version = "1.0" }, "asset.version"},
		{"missing view", func(d *Document) { d.Accessors[1].BufferView = 7 }, "missing view 7"},
		{"view past buffer", func(d *Document) { d.Buffers[0].ByteLength = 28 }, "beyond buffer"},
		{"missing buffer", func(d *Document) { d.BufferViews[1].Buffer = 2 }, "missing buffer 2"},
		{"overlap", func(d *Document) { d.BufferViews[1].ByteOffset = 4; d.Buffers[0].ByteLength = 28 }, "overlaps"},
		{"misaligned", func(d *Document) { d.BufferViews[1].ByteOffset = 9; d.Buffers[0].ByteLength = 40 }, "aligned"},
		{"accessor size", func(d *Document) { d.Accessors[1].Type = VEC4 }, "needs 32 bytes"},
		{"component type", func(d *Document) { d.Accessors[0].ComponentType = 5123 }, "not FLOAT"},
		{"self child", func(d *Document) { d.Nodes[1].Children = []int{1} }, "itself"},
		{"missing child", func(d *Document) { d.Nodes[1].Children = []int{5} }, "missing node 5"},
		{"two parents", func(d *Document) {
			d.Nodes = append(d.Nodes, Node{Name: "other", Children: []int{1}})
			d.Scenes[0].Nodes = []int{0, 2}
		}, "has parents"},
		{"cycle", func(d *Document) { d.Nodes[1].Children = []int{0} }, "cycle"},
		{"missing sampler accessor", func(d *Document) { d.Animations[0].Samplers[0].Output = 9 }, "missing accessor 9"},
		{"count mismatch", func(d *Document) {
			d.Accessors[1].Count = 1
			d.BufferViews[1].ByteLength = 12
		}, "2 times and 1 values"},
		{"input min max", func(d *Document) { d.Accessors[0].Min = nil }, "min and max"},
		{"interpolation", func(d *Document) { d.Animations[0].Samplers[0].Interpolation = "" }, "interpolation"},
		{"channel node", func(d *Document) { d.Animations[0].Channels[0].Target.Node = 3 }, "missing node 3"},
		{"channel path", func(d *Document) { d.Animations[0].Channels[0].Target.Path = "color" }, "invalid path"},
		{"empty uri", func(d *Document) { d.Buffers[0].URI = "" }, "uri is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDocument()
			tt.mutate(d)

			err := d.Validate()
			var sv *errs.SchemaViolation
			if !errors.As(err, &sv) {
				t.Fatalf("expected SchemaViolation, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected violation containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestValidate_ReportsEveryViolation(t *testing.T) {
	d := validDocument()
	d.Asset.Version = ""
	d.Accessors[0].BufferView = 4
	d.Animations[0].Channels[0].Target.Path = "color"

	err := d.Validate()
	var sv *errs.SchemaViolation
	if !errors.As(err, &sv) {
		t.Fatalf("expected SchemaViolation, got %v", err)
	}
	if n := len(sv.Violations()); n != 3 {
		t.Errorf("expected 3 violations, got %d: %v", n, err)
	}
}
