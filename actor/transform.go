package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Transform represents a rigid placement in 3D space: a rotation followed by a translation
type Transform struct {
	Position        mgl64.Vec3
	Rotation        mgl64.Quat
	InverseRotation mgl64.Quat
}

// NewTransform creates an identity transform
func NewTransform() Transform {
	return Transform{
		Position:        mgl64.Vec3{0, 0, 0},
		Rotation:        mgl64.QuatIdent(),
		InverseRotation: mgl64.QuatIdent(),
	}
}

// NewTransformFrom creates a transform from a position and a rotation, the rotation is normalized
func NewTransformFrom(position mgl64.Vec3, rotation mgl64.Quat) Transform {
	if rotation.Len() == 0 {
		rotation = mgl64.QuatIdent()
	}
	rotation = rotation.Normalize()

	return Transform{
		Position:        position,
		Rotation:        rotation,
		InverseRotation: rotation.Inverse(),
	}
}

// NewTranslation creates a transform with no rotation
func NewTranslation(position mgl64.Vec3) Transform {
	return NewTransformFrom(position, mgl64.QuatIdent())
}

// rotation guards against the zero value of Transform, which carries a zero quaternion
func (t Transform) rotation() mgl64.Quat {
	if t.Rotation.Len() == 0 {
		return mgl64.QuatIdent()
	}
	return t.Rotation
}

// Mul composes two transforms: other is applied first, then t.
// For a bone, parentComponentSpace.Mul(childLocal) gives childComponentSpace.
func (t Transform) Mul(other Transform) Transform {
	q := t.rotation()

	return NewTransformFrom(
		t.Position.Add(q.Rotate(other.Position)),
		q.Mul(other.rotation()),
	)
}

// Inverse returns the transform undoing t
func (t Transform) Inverse() Transform {
	inv := t.rotation().Inverse()

	return NewTransformFrom(inv.Rotate(t.Position.Mul(-1)), inv)
}

// Relative expresses t in the frame of other, so that other.Mul(t.Relative(other)) == t
func (t Transform) Relative(other Transform) Transform {
	return other.Inverse().Mul(t)
}

// TransformPoint maps a point from the local frame of t
func (t Transform) TransformPoint(p mgl64.Vec3) mgl64.Vec3 {
	return t.Position.Add(t.rotation().Rotate(p))
}

// TransformVector maps a direction from the local frame of t, ignoring translation
func (t Transform) TransformVector(v mgl64.Vec3) mgl64.Vec3 {
	return t.rotation().Rotate(v)
}

// InverseTransformPoint maps a point into the local frame of t
func (t Transform) InverseTransformPoint(p mgl64.Vec3) mgl64.Vec3 {
	return t.rotation().Inverse().Rotate(p.Sub(t.Position))
}

// InverseTransformVector maps a direction into the local frame of t
func (t Transform) InverseTransformVector(v mgl64.Vec3) mgl64.Vec3 {
	return t.rotation().Inverse().Rotate(v)
}

// ApproxEqual compares positions and rotations component-wise within an absolute epsilon,
// rotations up to the quaternion double cover
func (t Transform) ApproxEqual(other Transform, epsilon float64) bool {
	for i := 0; i < 3; i++ {
		if math.Abs(t.Position[i]-other.Position[i]) > epsilon {
			return false
		}
	}
	a, b := t.rotation(), other.rotation()
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	if math.Abs(a.W-b.W) > epsilon {
		return false
	}
	for i := 0; i < 3; i++ {
		if math.Abs(a.V[i]-b.V[i]) > epsilon {
			return false
		}
	}

	return true
}
