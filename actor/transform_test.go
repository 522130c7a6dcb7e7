package actor

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}

func vec3AlmostEqual(a, b mgl64.Vec3, epsilon float64) bool {
	return almostEqual(a.X(), b.X(), epsilon) &&
		almostEqual(a.Y(), b.Y(), epsilon) &&
		almostEqual(a.Z(), b.Z(), epsilon)
}

func TestTransform_ZeroValueIsIdentity(t *testing.T) {
	var transform Transform
	point := mgl64.Vec3{1, 2, 3}

	if got := transform.TransformPoint(point); !vec3AlmostEqual(got, point, 1e-12) {
		t.Errorf("TransformPoint() = %v, want %v", got, point)
	}
	if !transform.ApproxEqual(NewTransform(), 1e-12) {
		t.Errorf("zero Transform should equal the identity")
	}
}

func TestNewTransformFrom_NormalizesRotation(t *testing.T) {
	transform := NewTransformFrom(mgl64.Vec3{}, mgl64.Quat{W: 2})
	if !almostEqual(transform.Rotation.Len(), 1, 1e-12) {
		t.Errorf("rotation length = %v, want 1", transform.Rotation.Len())
	}
	if !almostEqual(transform.InverseRotation.W, 1, 1e-12) {
		t.Errorf("InverseRotation = %v, want identity", transform.InverseRotation)
	}
}

func TestTransform_Mul(t *testing.T) {
	parent := NewTransformFrom(mgl64.Vec3{10, 0, 0}, mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1}))
	child := NewTranslation(mgl64.Vec3{1, 0, 0})

	got := parent.Mul(child)

	// the child offset along X is rotated onto Y
	want := mgl64.Vec3{10, 1, 0}
	if !vec3AlmostEqual(got.Position, want, 1e-9) {
		t.Errorf("Mul().Position = %v, want %v", got.Position, want)
	}
	if !got.ApproxEqual(NewTransformFrom(want, parent.Rotation), 1e-9) {
		t.Errorf("Mul() = %v, want rotation of the parent", got)
	}
}

func TestTransform_InverseAndRelative(t *testing.T) {
	tests := []struct {
		name string
		a    Transform
		b    Transform
	}{
		{
			name: "translations",
			a:    NewTranslation(mgl64.Vec3{1, 2, 3}),
			b:    NewTranslation(mgl64.Vec3{-4, 0, 2}),
		},
		{
			name: "rotations",
			a:    NewTransformFrom(mgl64.Vec3{0, 5, 0}, mgl64.QuatRotate(0.3, mgl64.Vec3{1, 0, 0})),
			b:    NewTransformFrom(mgl64.Vec3{2, 0, 1}, mgl64.QuatRotate(-1.2, mgl64.Vec3{0, 1, 1}.Normalize())),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Mul(tt.a.Inverse()); !got.ApproxEqual(NewTransform(), 1e-9) {
				t.Errorf("a * a^-1 = %v, want identity", got)
			}

			relative := tt.a.Relative(tt.b)
			if got := tt.b.Mul(relative); !got.ApproxEqual(tt.a, 1e-9) {
				t.Errorf("b * a.Relative(b) = %v, want %v", got, tt.a)
			}
		})
	}
}

func TestTransform_PointRoundTrip(t *testing.T) {
	transform := NewTransformFrom(mgl64.Vec3{3, -1, 7}, mgl64.QuatRotate(2.1, mgl64.Vec3{1, 1, 0}.Normalize()))
	point := mgl64.Vec3{0.5, 4, -2}

	local := transform.InverseTransformPoint(point)
	if got := transform.TransformPoint(local); !vec3AlmostEqual(got, point, 1e-9) {
		t.Errorf("TransformPoint(InverseTransformPoint(p)) = %v, want %v", got, point)
	}

	vector := mgl64.Vec3{0, 0, 1}
	if got := transform.TransformVector(transform.InverseTransformVector(vector)); !vec3AlmostEqual(got, vector, 1e-9) {
		t.Errorf("vector round trip = %v, want %v", got, vector)
	}
}

func TestTransform_ApproxEqual_DoubleCover(t *testing.T) {
	q := mgl64.QuatRotate(0.7, mgl64.Vec3{0, 1, 0})
	a := NewTransformFrom(mgl64.Vec3{1, 1, 1}, q)
	b := NewTransformFrom(mgl64.Vec3{1, 1, 1}, q.Scale(-1))

	if !a.ApproxEqual(b, 1e-12) {
		t.Errorf("q and -q should describe the same rotation")
	}
	if a.ApproxEqual(NewTranslation(mgl64.Vec3{1, 1, 1}), 1e-6) {
		t.Errorf("different rotations reported equal")
	}
}
