package mocap

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/scottpetrovic/mocap2gltf/internal/errs"
	"github.com/scottpetrovic/mocap2gltf/pkg/formats"
	"github.com/scottpetrovic/mocap2gltf/pkg/formats/formatstest"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func armBVH() formatstest.BVH {
	return formatstest.BVH{
		Root: formatstest.Joint{
			Name:     "Hips",
			Channels: []string{"Xposition", "Yposition", "Zposition", "Zrotation", "Xrotation", "Yrotation"},
			Children: []formatstest.Joint{{
				Name:     "Arm",
				Offset:   [3]float32{0, 5, 0},
				Channels: []string{"Zrotation"},
				EndSite:  true,
			}},
		},
		FrameTime: 0.04,
		Frames: [][]float32{
			{1, 2, 3, 0, 0, 0, 0},
			{4, 5, 6, 0, 0, 0, 90},
		},
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(" BVH "); err != nil || f != FormatBVH {
		t.Errorf("expected bvh, got %q (%v)", f, err)
	}
	if f, err := ParseFormat("c3d"); err != nil || f != FormatC3D {
		t.Errorf("expected c3d, got %q (%v)", f, err)
	}
	if _, err := ParseFormat("fbx"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestRead_BVH(t *testing.T) {
	path := writeFile(t, "arm.bvh", armBVH().Bytes())

	clip, err := Read(path, FormatBVH)
	if err != nil {
		t.Fatalf("failed to read BVH: %v", err)
	}

	if clip.Kind != Hierarchical {
		t.Errorf("expected hierarchical clip, got %s", clip.Kind)
	}
	if len(clip.Entities) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(clip.Entities))
	}

	hips, arm := clip.Entities[0], clip.Entities[1]
	if hips.Parent != NoParent || !hips.HasTranslation || !hips.HasRotation {
		t.Errorf("unexpected root entity %+v", hips)
	}
	if arm.Parent != 0 || arm.HasTranslation || !arm.HasRotation {
		t.Errorf("unexpected arm entity %+v", arm)
	}
	if arm.Offset != [3]float32{0, 5, 0} {
		t.Errorf("expected arm offset (0,5,0), got %v", arm.Offset)
	}

	if clip.FrameCount() != 2 {
		t.Fatalf("expected 2 frames, got %d", clip.FrameCount())
	}
	if got := clip.Frames[1][0].Translation; got != [3]float32{4, 5, 6} {
		t.Errorf("expected root translation (4,5,6), got %v", got)
	}
	if got := clip.Frames[0][0].Rotation; got != [4]float32{0, 0, 0, 1} {
		t.Errorf("expected identity rotation, got %v", got)
	}

	// 90 degrees around Z
	rot := clip.Frames[1][1].Rotation
	half := float32(math.Sqrt2 / 2)
	if math.Abs(float64(rot[2]-half)) > 1e-5 || math.Abs(float64(rot[3]-half)) > 1e-5 {
		t.Errorf("expected (0,0,%f,%f), got %v", half, half, rot)
	}

	if math.Abs(clip.FrameRate-25) > 1e-3 {
		t.Errorf("expected 25 fps, got %f", clip.FrameRate)
	}
	if math.Abs(clip.SampleInterval-0.04) > 1e-6 {
		t.Errorf("expected 0.04s interval, got %f", clip.SampleInterval)
	}
}

func TestRead_BVHZeroFrameTime(t *testing.T) {
	b := armBVH()
	b.FrameTime = 0
	clip, err := Read(writeFile(t, "arm.bvh", b.Bytes()), FormatBVH)
	if err != nil {
		t.Fatalf("zero frame time should be readable: %v", err)
	}
	if clip.FrameRate != 0 || clip.SampleInterval != 0 {
		t.Errorf("expected no usable rate, got %f / %f", clip.FrameRate, clip.SampleInterval)
	}
}

func TestRead_BVHChannelMismatch(t *testing.T) {
	b := armBVH()
	b.Frames[1] = b.Frames[1][:6]

	_, err := Read(writeFile(t, "bad.bvh", b.Bytes()), FormatBVH)
	var formatErr *errs.FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected FormatError, got %v", err)
	}
	if formatErr.Record != 1 {
		t.Errorf("expected record 1, got %d", formatErr.Record)
	}
	if !errors.Is(err, formats.ErrBVHChannelCount) {
		t.Errorf("expected ErrBVHChannelCount in chain, got %v", err)
	}
}

func TestRead_BVHNoFrames(t *testing.T) {
	b := armBVH()
	b.Frames = nil
	_, err := Read(writeFile(t, "empty.bvh", b.Bytes()), FormatBVH)
	var formatErr *errs.FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected FormatError, got %v", err)
	}
}

func TestRead_C3D(t *testing.T) {
	c := formatstest.C3D{
		Labels:    []string{"LFHD", "", "LFHD"},
		FrameRate: 100,
		Units:     "mm",
		Frames: [][][3]float32{
			{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}},
		},
	}

	clip, err := Read(writeFile(t, "markers.c3d", c.Bytes()), FormatC3D)
	if err != nil {
		t.Fatalf("failed to read C3D: %v", err)
	}

	if clip.Kind != PointCloud {
		t.Errorf("expected point cloud, got %s", clip.Kind)
	}
	want := []string{"LFHD", "Marker2", "LFHD_2"}
	for i, e := range clip.Entities {
		if e.Name != want[i] {
			t.Errorf("entity %d: expected %q, got %q", i, want[i], e.Name)
		}
		if e.Parent != NoParent || !e.HasTranslation || e.HasRotation {
			t.Errorf("unexpected marker entity %+v", e)
		}
	}
	if got := clip.Frames[0][2].Translation; got != [3]float32{7, 8, 9} {
		t.Errorf("expected (7,8,9), got %v", got)
	}
	if clip.SampleInterval != 0.01 {
		t.Errorf("expected 0.01s interval, got %f", clip.SampleInterval)
	}
	if clip.Info.Units != "mm" {
		t.Errorf("expected units mm, got %q", clip.Info.Units)
	}
	if len(clip.Info.Groups) != 2 {
		t.Errorf("expected 2 parameter groups, got %d", len(clip.Info.Groups))
	}
}

func TestRead_C3DInfoTaggedValues(t *testing.T) {
	c := formatstest.C3D{Labels: []string{"A"}, FrameRate: 50, Frames: [][][3]float32{{{0, 0, 0}}}}
	clip, err := Read(writeFile(t, "info.c3d", c.Bytes()), FormatC3D)
	if err != nil {
		t.Fatalf("failed to read C3D: %v", err)
	}

	kinds := make(map[string]ValueKind)
	for _, g := range clip.Info.Groups {
		for _, p := range g.Params {
			kinds[g.Name+":"+p.Name] = p.Kind
		}
	}
	if kinds["POINT:USED"] != ValueNumeric {
		t.Errorf("expected POINT:USED numeric, got %s", kinds["POINT:USED"])
	}
	if kinds["POINT:LABELS"] != ValueText {
		t.Errorf("expected POINT:LABELS text, got %s", kinds["POINT:LABELS"])
	}
	if kinds["ANALOG:GAIN"] != ValueBytes {
		t.Errorf("expected ANALOG:GAIN bytes, got %s", kinds["ANALOG:GAIN"])
	}
}

func TestRead_C3DUnsupportedRate(t *testing.T) {
	c := formatstest.C3D{Labels: []string{"A"}, FrameRate: 0, Frames: [][][3]float32{{{0, 0, 0}}}}

	_, err := Read(writeFile(t, "norate.c3d", c.Bytes()), FormatC3D)
	var rateErr *errs.UnsupportedRateError
	if !errors.As(err, &rateErr) {
		t.Fatalf("expected UnsupportedRateError, got %v", err)
	}
}

func TestRead_C3DShortFrameRecord(t *testing.T) {
	c := formatstest.C3D{
		Labels:       []string{"A", "B", "C", "D", "E"},
		FrameRate:    60,
		Frames:       [][][3]float32{{{0, 0, 0}, {1, 1, 1}, {2, 2, 2}, {3, 3, 3}}},
		StoredPoints: 4,
	}

	_, err := Read(writeFile(t, "short.c3d", c.Bytes()), FormatC3D)
	var formatErr *errs.FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected FormatError, got %v", err)
	}
	if formatErr.Record != 0 {
		t.Errorf("expected record 0, got %d", formatErr.Record)
	}
}

func TestRead_C3DZeroScaleFactor(t *testing.T) {
	c := formatstest.C3D{
		Labels:    []string{"A"},
		FrameRate: 60,
		Frames:    [][][3]float32{{{10, 20, 30}}},
		IntScale:  0.1,
	}
	data := c.Bytes()
	binary.LittleEndian.PutUint32(data[12:], 0)

	_, err := Read(writeFile(t, "zeroscale.c3d", data), FormatC3D)
	var formatErr *errs.FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected FormatError, got %v", err)
	}
	if !errors.Is(err, formats.ErrMalformedC3D) {
		t.Errorf("expected ErrMalformedC3D beneath, got %v", err)
	}
}

func TestRead_BVHHugeFrameCount(t *testing.T) {
	b := armBVH()
	b.DeclaredFrames = 999999999999

	_, err := Read(writeFile(t, "huge.bvh", b.Bytes()), FormatBVH)
	var formatErr *errs.FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected FormatError, got %v", err)
	}
}

func TestRead_MissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.bvh"), FormatBVH)
	var ioErr *errs.IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected IOError, got %v", err)
	}
	if ioErr.Op != "read" {
		t.Errorf("expected read op, got %q", ioErr.Op)
	}
}

func TestRead_UnknownFormat(t *testing.T) {
	if _, err := Read("x", Format("fbx")); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestClipValidate_InconsistentFrame(t *testing.T) {
	clip := &Clip{
		Path:     "synthetic",
		Entities: []Entity{{Name: "a", Parent: NoParent}, {Name: "b", Parent: NoParent}},
		Frames:   [][]Sample{{{}, {}}, {{}}},
	}
	err := clip.validate()
	var formatErr *errs.FormatError
	if !errors.As(err, &formatErr) || formatErr.Record != 1 {
		t.Errorf("expected FormatError at record 1, got %v", err)
	}
}

func TestClipValidate_ParentOrder(t *testing.T) {
	clip := &Clip{
		Path:     "synthetic",
		Entities: []Entity{{Name: "a", Parent: 1}, {Name: "b", Parent: NoParent}},
		Frames:   [][]Sample{{{}, {}}},
	}
	if err := clip.validate(); err == nil {
		t.Error("expected error for parent following child")
	}
}

func TestClipValidate_NonFinite(t *testing.T) {
	nan := float32(math.NaN())
	clip := &Clip{
		Path:     "synthetic",
		Entities: []Entity{{Name: "a", Parent: NoParent}},
		Frames:   [][]Sample{{{Translation: [3]float32{nan, 0, 0}}}},
	}
	if err := clip.validate(); err == nil {
		t.Error("expected error for NaN sample")
	}
}
