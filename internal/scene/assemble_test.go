package scene

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/scottpetrovic/mocap2gltf/internal/anim"
	"github.com/scottpetrovic/mocap2gltf/internal/errs"
	"github.com/scottpetrovic/mocap2gltf/internal/pack"
)

// skeleton returns a three-joint chain plus a second root, with one
// translation track on the first root and a rotation track on every joint.
func skeleton(frames int) *anim.Model {
	times := make([]float32, frames)
	for i := range times {
		times[i] = float32(i) / float32(frames)
	}
	trans := make([]float32, 0, frames*3)
	rot := make([]float32, 0, frames*4)
	for i := 0; i < frames; i++ {
		trans = append(trans, float32(i), 1, -float32(i))
		rot = append(rot, 0, 0, 0, 1)
	}

	identity := [4]float32{0, 0, 0, 1}
	m := &anim.Model{
		Name: "walk",
		Nodes: []anim.Node{
			{ID: 0, Name: "Hips", Parent: anim.NoParent, Rotation: identity},
			{ID: 1, Name: "Spine", Parent: 0, Translation: [3]float32{0, 10, 0}, Rotation: identity},
			{ID: 2, Name: "Head", Parent: 1, Translation: [3]float32{0, 5, 0}, Rotation: identity},
			{ID: 3, Name: "LeftLeg", Parent: 0, Rotation: identity},
			{ID: 4, Name: "Prop", Parent: anim.NoParent, Rotation: [4]float32{0, 1, 0, 0}},
		},
		Tracks: []anim.Track{
			{Node: 0, Property: anim.Translation, Times: times, Values: trans},
		},
	}
	for id := 0; id < 4; id++ {
		m.Tracks = append(m.Tracks, anim.Track{Node: id, Property: anim.Rotation, Times: times, Values: rot})
	}
	return m
}

func assemble(t *testing.T, m *anim.Model, policy pack.Policy, opts Options) *Document {
	t.Helper()
	p, err := pack.Pack(m, policy)
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	doc, err := Assemble(m, p, opts)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	return doc
}

func marshal(t *testing.T, doc *Document) []byte {
	t.Helper()
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("failed to marshal document: %v", err)
	}
	return data
}

func TestAssemble_SingleRootScenario(t *testing.T) {
	times := make([]float32, 10)
	values := make([]float32, 30)
	for i := range times {
		times[i] = float32(i) / 10
	}
	m := &anim.Model{
		Name:   "root",
		Nodes:  []anim.Node{{ID: 0, Name: "Hips", Parent: anim.NoParent, Rotation: [4]float32{0, 0, 0, 1}}},
		Tracks: []anim.Track{{Node: 0, Property: anim.Translation, Times: times, Values: values}},
	}

	doc := assemble(t, m, pack.Grouped, Options{})

	if len(doc.Nodes) != 1 || len(doc.Animations) != 1 {
		t.Fatalf("expected 1 node and 1 animation, got %d and %d", len(doc.Nodes), len(doc.Animations))
	}
	s := doc.Animations[0].Samplers
	if len(s) != 1 {
		t.Fatalf("expected 1 sampler, got %d", len(s))
	}
	in, out := doc.Accessors[s[0].Input], doc.Accessors[s[0].Output]
	if in.Count != 10 || in.Type != SCALAR {
		t.Errorf("expected 10 SCALAR times, got %d %s", in.Count, in.Type)
	}
	if out.Count != 10 || out.Type != VEC3 {
		t.Errorf("expected 10 VEC3 values, got %d %s", out.Count, out.Type)
	}
	if in.Min[0] != 0 || in.Max[0] != 0.9 {
		t.Errorf("expected time range [0, 0.9], got [%v, %v]", in.Min[0], in.Max[0])
	}
	if doc.Animations[0].Channels[0].Target.Path != "translation" {
		t.Errorf("expected translation channel, got %q", doc.Animations[0].Channels[0].Target.Path)
	}
	if doc.Buffers[0].URI != "root.bin" {
		t.Errorf("expected uri root.bin, got %q", doc.Buffers[0].URI)
	}
	if doc.Buffers[0].ByteLength != (10+30)*4 {
		t.Errorf("expected byteLength 160, got %d", doc.Buffers[0].ByteLength)
	}
}

func TestAssemble_ChildrenInverseOfParent(t *testing.T) {
	m := skeleton(3)
	doc := assemble(t, m, pack.Grouped, Options{})

	parentOf := make(map[int]int)
	for i, n := range doc.Nodes {
		for _, c := range n.Children {
			if _, dup := parentOf[c]; dup {
				t.Errorf("node %d listed as child twice", c)
			}
			parentOf[c] = i
		}
	}
	for _, n := range m.Nodes {
		got, ok := parentOf[n.ID]
		if n.Parent == anim.NoParent {
			if ok {
				t.Errorf("root %q listed as child of %d", n.Name, got)
			}
			continue
		}
		if !ok || got != n.Parent {
			t.Errorf("node %q: expected parent %d, got %d (listed=%v)", n.Name, n.Parent, got, ok)
		}
	}

	if roots := doc.Scenes[0].Nodes; len(roots) != 2 || roots[0] != 0 || roots[1] != 4 {
		t.Errorf("expected scene roots [0 4], got %v", roots)
	}
	if got := doc.Nodes[0].Children; len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("expected Hips children [1 3], got %v", got)
	}
}

func TestAssemble_JSONShape(t *testing.T) {
	data := marshal(t, assemble(t, skeleton(2), pack.Grouped, Options{}))

	var keys []string
	gjson.ParseBytes(data).ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.String())
		return true
	})
	want := []string{"asset", "scenes", "nodes", "animations", "accessors", "bufferViews", "buffers"}
	if strings.Join(keys, ",") != strings.Join(want, ",") {
		t.Errorf("expected key order %v, got %v", want, keys)
	}

	for _, field := range []string{"asset.generator", "asset.copyright"} {
		r := gjson.GetBytes(data, field)
		if !r.Exists() || r.Type != gjson.String {
			t.Errorf("expected %s to be a string, got %s", field, r.Type)
		}
	}
	if v := gjson.GetBytes(data, "asset.version").String(); v != "2.0" {
		t.Errorf("expected version 2.0, got %q", v)
	}
	for _, field := range []string{"extensionsUsed", "extensionsRequired"} {
		if gjson.GetBytes(data, field).Exists() {
			t.Errorf("expected %s to be omitted", field)
		}
	}

	// Leaf nodes carry no children key; translation is always present.
	if gjson.GetBytes(data, "nodes.2.children").Exists() {
		t.Error("expected leaf node without children")
	}
	if !gjson.GetBytes(data, "nodes.3.translation").IsArray() {
		t.Error("expected translation on every node")
	}
	if gjson.GetBytes(data, "nodes.0.rotation").Exists() {
		t.Error("expected identity rotation to be omitted")
	}
	if n := len(gjson.GetBytes(data, "nodes.4.rotation").Array()); n != 4 {
		t.Errorf("expected non-identity rotation with 4 components, got %d", n)
	}
	if !gjson.GetBytes(data, "bufferViews.0.byteOffset").Exists() {
		t.Error("expected byteOffset on every buffer view")
	}
}

func TestAssemble_StaticRotation(t *testing.T) {
	m := skeleton(3)
	m.Nodes[1].Rotation = [4]float32{0, 0, 0, -1}
	m.Nodes[2].Rotation = [4]float32{0, 0, 0.7071068, 0.7071068}

	doc := assemble(t, m, pack.Grouped, Options{BaseName: "clip"})

	if doc.Nodes[1].Rotation != nil {
		t.Errorf("expected negated identity to be omitted, got %v", *doc.Nodes[1].Rotation)
	}
	if doc.Nodes[2].Rotation == nil || doc.Nodes[2].Rotation[2] != 0.7071068 {
		t.Errorf("expected rotation kept on Head, got %v", doc.Nodes[2].Rotation)
	}
}

func TestAssemble_AssetStrings(t *testing.T) {
	doc := assemble(t, skeleton(1), pack.Grouped, Options{Generator: "mocap2gltf", Copyright: "(c) studio"})
	data := marshal(t, doc)
	if g := gjson.GetBytes(data, "asset.generator").String(); g != "mocap2gltf" {
		t.Errorf("expected generator mocap2gltf, got %q", g)
	}
	if c := gjson.GetBytes(data, "asset.copyright").String(); c != "(c) studio" {
		t.Errorf("expected copyright, got %q", c)
	}
}

func TestAssemble_PerArrayURIs(t *testing.T) {
	m := skeleton(2)
	doc := assemble(t, m, pack.PerArray, Options{BaseName: "clip"})

	if len(doc.Buffers) != 2*len(m.Tracks) {
		t.Fatalf("expected %d buffers, got %d", 2*len(m.Tracks), len(doc.Buffers))
	}
	if doc.Buffers[0].URI != "clip_0.bin" || doc.Buffers[9].URI != "clip_9.bin" {
		t.Errorf("unexpected uris %q, %q", doc.Buffers[0].URI, doc.Buffers[9].URI)
	}
}

func TestAssemble_Interpolation(t *testing.T) {
	doc := assemble(t, skeleton(2), pack.Grouped, Options{})
	if got := doc.Animations[0].Samplers[0].Interpolation; got != "LINEAR" {
		t.Errorf("expected default LINEAR, got %q", got)
	}

	doc = assemble(t, skeleton(2), pack.Grouped, Options{Interpolation: Step})
	for _, s := range doc.Animations[0].Samplers {
		if s.Interpolation != "STEP" {
			t.Errorf("expected STEP, got %q", s.Interpolation)
		}
	}
}

func TestAssemble_SingleFrame(t *testing.T) {
	doc := assemble(t, skeleton(1), pack.Grouped, Options{})
	for i, a := range doc.Accessors {
		if a.Count != 1 {
			t.Errorf("accessor %d: expected count 1, got %d", i, a.Count)
		}
	}
	if doc.Buffers[0].ByteLength == 0 {
		t.Error("expected non-empty buffer")
	}
}

func TestAssemble_MinMax(t *testing.T) {
	doc := assemble(t, skeleton(4), pack.Grouped, Options{})
	out := doc.Accessors[doc.Animations[0].Samplers[0].Output]
	// x runs 0..3, y is 1, z runs 0..-3
	wantMin := []float32{0, 1, -3}
	wantMax := []float32{3, 1, 0}
	for c := 0; c < 3; c++ {
		if out.Min[c] != wantMin[c] || out.Max[c] != wantMax[c] {
			t.Errorf("component %d: expected [%v, %v], got [%v, %v]", c, wantMin[c], wantMax[c], out.Min[c], out.Max[c])
		}
	}
}

func TestAssemble_TrackMismatch(t *testing.T) {
	m := skeleton(2)
	p, err := pack.Pack(m, pack.Grouped)
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	m.Tracks = m.Tracks[:1]
	if _, err := Assemble(m, p, Options{}); err == nil {
		t.Error("expected error when slots and tracks disagree")
	}
}

func TestParseInterpolation(t *testing.T) {
	if i, err := ParseInterpolation("step"); err != nil || i != Step {
		t.Errorf("expected STEP, got %q (%v)", i, err)
	}
	if _, err := ParseInterpolation("CUBICSPLINE"); err == nil {
		t.Error("expected error for unsupported interpolation")
	}
}

func TestBufferURI(t *testing.T) {
	if got := BufferURI("walk", pack.Grouped, 0); got != "walk.bin" {
		t.Errorf("expected walk.bin, got %q", got)
	}
	if got := BufferURI("walk", pack.PerArray, 3); got != "walk_3.bin" {
		t.Errorf("expected walk_3.bin, got %q", got)
	}
}

func TestAssemble_ValidationFailureIsSchemaViolation(t *testing.T) {
	m := skeleton(2)
	p, err := pack.Pack(m, pack.Grouped)
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	// Cycle through a parent that follows its child
	m.Nodes[0].Parent = 2

	_, err = Assemble(m, p, Options{})
	var sv *errs.SchemaViolation
	if !errors.As(err, &sv) {
		t.Fatalf("expected SchemaViolation, got %v", err)
	}
}
