// Package math provides the vector, quaternion and matrix types used to
// normalise motion capture transforms.
package math

// Vec3 is a 3D vector.
type Vec3 struct {
	X, Y, Z float32
}
