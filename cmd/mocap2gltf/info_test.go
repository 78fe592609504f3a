package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/scottpetrovic/mocap2gltf/internal/mocap"
)

func TestPrintInfo(t *testing.T) {
	clip := &mocap.Clip{
		Path:   "trial.c3d",
		Format: mocap.FormatC3D,
		Kind:   mocap.PointCloud,
		Entities: []mocap.Entity{
			{Name: "LASI", Parent: mocap.NoParent, HasTranslation: true},
			{Name: "RASI", Parent: mocap.NoParent, HasTranslation: true},
		},
		Frames:         make([][]mocap.Sample, 240),
		FrameRate:      120,
		SampleInterval: 1.0 / 120,
		Info: mocap.Info{
			Units:          "mm",
			AnalogChannels: 8,
			AnalogRate:     1200,
			Events:         []mocap.Event{{Label: "Foot Strike", Time: 0.5}},
			Groups: []mocap.ParamGroup{{
				Name:        "POINT",
				Description: "3-D point parameters",
				Params: []mocap.Param{
					{Name: "UNITS", Kind: mocap.ValueText, Display: "mm"},
					{Name: "SCALE", Kind: mocap.ValueNumeric, Display: strings.Repeat("1 ", 50)},
				},
			}},
		},
	}

	showParams = true
	var buf bytes.Buffer
	printInfo(&buf, clip, 2048)
	out := buf.String()

	for _, want := range []string{
		"Format:   c3d (point-cloud)",
		"Frames:   240",
		"Rate:     120 fps (2s)",
		"Size:     2.0 kB",
		"Units:    mm",
		"Analog:   8 channels @ 1200 Hz",
		"Markers (2):",
		"Foot Strike",
		"POINT  (3-D point parameters)",
		"UNITS",
		"...",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q\n%s", want, out)
		}
	}
}

func TestPrintInfo_Hierarchy(t *testing.T) {
	clip := &mocap.Clip{
		Path:   "walk.bvh",
		Format: mocap.FormatBVH,
		Kind:   mocap.Hierarchical,
		Entities: []mocap.Entity{
			{Name: "Hips", Parent: mocap.NoParent, HasTranslation: true, HasRotation: true},
			{Name: "Spine", Parent: 0, HasRotation: true},
			{Name: "Head", Parent: 1, HasRotation: true},
		},
		Frames: make([][]mocap.Sample, 3),
	}

	var buf bytes.Buffer
	printInfo(&buf, clip, 0)
	out := buf.String()

	if !strings.Contains(out, "Rate:     none") {
		t.Errorf("expected no rate, got\n%s", out)
	}
	if !strings.Contains(out, "Joints (3):") {
		t.Errorf("expected joint listing, got\n%s", out)
	}
	if !strings.Contains(out, "      Head  [rotation]") {
		t.Errorf("expected Head indented two levels, got\n%s", out)
	}
	if !strings.Contains(out, "  Hips  [translation rotation]") {
		t.Errorf("expected Hips channels, got\n%s", out)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("expected short, got %s", got)
	}
	if got := truncate("abcdefghij", 6); got != "abc..." {
		t.Errorf("expected abc..., got %s", got)
	}
}
