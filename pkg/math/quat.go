package math

import (
	"fmt"
	"math"
)

// Axis names a principal axis.
type Axis uint8

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// String returns "X", "Y" or "Z".
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	case AxisZ:
		return "Z"
	default:
		return fmt.Sprintf("Axis(%d)", uint8(a))
	}
}

// Unit returns the unit vector along the axis.
func (a Axis) Unit() Vec3 {
	switch a {
	case AxisX:
		return Vec3{X: 1}
	case AxisY:
		return Vec3{Y: 1}
	default:
		return Vec3{Z: 1}
	}
}

// Quat represents a quaternion for 3D rotations.
// Components are stored as X, Y, Z, W where W is the scalar part.
type Quat struct {
	X, Y, Z, W float32
}

// QuatIdentity returns an identity quaternion (no rotation).
func QuatIdentity() Quat {
	return Quat{X: 0, Y: 0, Z: 0, W: 1}
}

// QuatFromAxisAngle creates a quaternion from axis-angle rotation.
// axis should be normalized, angle is in radians.
func QuatFromAxisAngle(axis Vec3, angle float32) Quat {
	halfAngle := float64(angle) / 2
	s := float32(math.Sin(halfAngle))
	return Quat{
		X: axis.X * s,
		Y: axis.Y * s,
		Z: axis.Z * s,
		W: float32(math.Cos(halfAngle)),
	}
}

// QuatFromEuler composes per-axis rotations given in degrees.
// The rotations are applied in the listed order as intrinsic rotations,
// so axes [Z, X, Y] yield Rz * Rx * Ry. axes and degrees must be the same length.
func QuatFromEuler(axes []Axis, degrees []float32) Quat {
	q := QuatIdentity()
	for i, axis := range axes {
		rad := degrees[i] * math.Pi / 180
		q = q.Mul(QuatFromAxisAngle(axis.Unit(), rad))
	}
	return q.Normalize()
}

// Normalize returns a normalized quaternion.
func (q Quat) Normalize() Quat {
	length := float32(math.Sqrt(float64(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)))
	if length < 0.0001 {
		return QuatIdentity()
	}
	invLen := 1.0 / length
	return Quat{
		X: q.X * invLen,
		Y: q.Y * invLen,
		Z: q.Z * invLen,
		W: q.W * invLen,
	}
}

// Dot returns the dot product of two quaternions.
func (q Quat) Dot(other Quat) float32 {
	return q.X*other.X + q.Y*other.Y + q.Z*other.Z + q.W*other.W
}

// Mul multiplies two quaternions (combines rotations).
func (q Quat) Mul(other Quat) Quat {
	return Quat{
		X: q.W*other.X + q.X*other.W + q.Y*other.Z - q.Z*other.Y,
		Y: q.W*other.Y - q.X*other.Z + q.Y*other.W + q.Z*other.X,
		Z: q.W*other.Z + q.X*other.Y - q.Y*other.X + q.Z*other.W,
		W: q.W*other.W - q.X*other.X - q.Y*other.Y - q.Z*other.Z,
	}
}

// QuatFromArray builds a quaternion from [x, y, z, w].
func QuatFromArray(a [4]float32) Quat {
	return Quat{X: a[0], Y: a[1], Z: a[2], W: a[3]}
}

// Array returns the quaternion as [x, y, z, w], the glTF component order.
func (q Quat) Array() [4]float32 {
	return [4]float32{q.X, q.Y, q.Z, q.W}
}

// IsIdentity reports whether q is the identity rotation within epsilon.
func (q Quat) IsIdentity(epsilon float32) bool {
	// q and -q encode the same rotation
	return float32(math.Abs(float64(q.Dot(QuatIdentity())))) >= 1-epsilon
}
