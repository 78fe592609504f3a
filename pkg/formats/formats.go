// Package formats provides parsers for motion capture file formats.
//
// Each format decodes into its own types with no interpretation beyond what
// the file declares: BVH yields a joint hierarchy with raw channel values,
// C3D yields header, parameter groups and per-frame marker points.
// Conversion into a common clip lives in internal/mocap.
package formats

// Note: BVH (Biovision Hierarchy) is implemented in bvh.go
// Note: C3D (Coordinate 3D) is implemented in c3d.go, Intel byte order only
