// Package scene assembles and validates the glTF document describing an
// animation model and its packed buffers.
package scene

// Document is the root glTF object. Field order is the serialized key order.
type Document struct {
	Asset              Asset        `json:"asset"`
	Scenes             []Scene      `json:"scenes"`
	Nodes              []Node       `json:"nodes"`
	Animations         []Animation  `json:"animations"`
	Accessors          []Accessor   `json:"accessors"`
	BufferViews        []BufferView `json:"bufferViews"`
	Buffers            []Buffer     `json:"buffers"`
	ExtensionsUsed     []string     `json:"extensionsUsed,omitempty"`
	ExtensionsRequired []string     `json:"extensionsRequired,omitempty"`
}

// Asset is glTF.asset. Generator and Copyright are always emitted, even when empty.
type Asset struct {
	Version   string `json:"version"`
	Generator string `json:"generator"`
	Copyright string `json:"copyright"`
}

// Version is the glTF version written to every document.
const Version = "2.0"

// glTF.scenes' element.
type Scene struct {
	Nodes []int `json:"nodes"`
}

// glTF.nodes' element.
type Node struct {
	Name        string      `json:"name"`
	Children    []int       `json:"children,omitempty"`
	Translation [3]float32  `json:"translation"`
	Rotation    *[4]float32 `json:"rotation,omitempty"` // Default is [0, 0, 0, 1].
}

// glTF.animations' element.
type Animation struct {
	Name     string     `json:"name"`
	Channels []Channel  `json:"channels"`
	Samplers []ASampler `json:"samplers"`
}

// animation.channels' element.
type Channel struct {
	Sampler int    `json:"sampler"`
	Target  Target `json:"target"`
}

// animation.channel.target.
type Target struct {
	Node int    `json:"node"`
	Path string `json:"path"`
}

// animation.samplers' element.
type ASampler struct {
	Input         int    `json:"input"`
	Interpolation string `json:"interpolation"`
	Output        int    `json:"output"`
}

// Interpolation is an animation sampler interpolation mode.
type Interpolation string

// animation.sampler.interpolation values.
const (
	Linear Interpolation = "LINEAR"
	Step   Interpolation = "STEP"
)

// glTF.accessors' element.
type Accessor struct {
	BufferView    int       `json:"bufferView"`
	ComponentType int       `json:"componentType"`
	Count         int       `json:"count"`
	Type          string    `json:"type"`
	Min           []float32 `json:"min,omitempty"`
	Max           []float32 `json:"max,omitempty"`
}

// accessor.type values.
const (
	SCALAR = "SCALAR"
	VEC2   = "VEC2"
	VEC3   = "VEC3"
	VEC4   = "VEC4"
)

// glTF.bufferViews' element.
type BufferView struct {
	Buffer     int `json:"buffer"`
	ByteOffset int `json:"byteOffset"`
	ByteLength int `json:"byteLength"`
}

// glTF.buffers' element.
type Buffer struct {
	ByteLength int    `json:"byteLength"`
	URI        string `json:"uri"`
}

// accessorType maps a component arity to an accessor type, or "" if none fits.
func accessorType(arity int) string {
	switch arity {
	case 1:
		return SCALAR
	case 2:
		return VEC2
	case 3:
		return VEC3
	case 4:
		return VEC4
	default:
		return ""
	}
}

// typeArity is the inverse of accessorType.
func typeArity(t string) int {
	switch t {
	case SCALAR:
		return 1
	case VEC2:
		return 2
	case VEC3:
		return 3
	case VEC4:
		return 4
	default:
		return 0
	}
}
