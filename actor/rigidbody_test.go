package actor

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

// =============================================================================
// Construction Tests
// =============================================================================

func TestBodyType_String(t *testing.T) {
	tests := []struct {
		bodyType BodyType
		want     string
	}{
		{BodyTypeDynamic, "dynamic"},
		{BodyTypeKinematic, "kinematic"},
		{BodyTypeStatic, "static"},
		{BodyType(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.bodyType.String(); got != tt.want {
			t.Errorf("BodyType(%d).String() = %q, want %q", tt.bodyType, got, tt.want)
		}
	}
}

func TestNewRigidBody_Dynamic(t *testing.T) {
	rb := NewRigidBody(NewTranslation(mgl64.Vec3{0, 0, 5}), &Box{HalfExtents: mgl64.Vec3{1, 2, 0.5}}, BodyTypeDynamic, 2.0)

	if !almostEqual(rb.Material.GetMass(), 16, 1e-12) {
		t.Errorf("mass = %v, want 16", rb.Material.GetMass())
	}
	if !almostEqual(rb.GetInverseMass(), 1.0/16, 1e-12) {
		t.Errorf("inverse mass = %v, want 1/16", rb.GetInverseMass())
	}
	aabb := rb.Shape.GetAABB()
	if !vec3AlmostEqual(aabb.Min, mgl64.Vec3{-1, -2, 4.5}, 1e-12) || !vec3AlmostEqual(aabb.Max, mgl64.Vec3{1, 2, 5.5}, 1e-12) {
		t.Errorf("AABB = %v, want the box around its position", aabb)
	}
}

func TestNewRigidBody_KinematicHasInfiniteMass(t *testing.T) {
	for _, bodyType := range []BodyType{BodyTypeKinematic, BodyTypeStatic} {
		rb := NewRigidBody(NewTransform(), &Sphere{Radius: 1}, bodyType, 10)

		if !math.IsInf(rb.Material.GetMass(), 1) {
			t.Errorf("%v mass = %v, want +Inf", bodyType, rb.Material.GetMass())
		}
		if rb.GetInverseMass() != 0 {
			t.Errorf("%v inverse mass = %v, want 0", bodyType, rb.GetInverseMass())
		}
		if rb.GetInverseInertiaWorld() != (mgl64.Mat3{}) {
			t.Errorf("%v inverse inertia should be zero", bodyType)
		}
	}
}

func TestNewRigidBodyFromSetup_ClonesShape(t *testing.T) {
	shape := &Sphere{Radius: 2}
	setup := BodySetup{
		Shape:    shape,
		Density:  1,
		Material: Material{Restitution: 0.3, LinearDamping: 0.1},
	}

	a := NewRigidBodyFromSetup(setup, NewTranslation(mgl64.Vec3{10, 0, 0}), BodyTypeDynamic)
	b := NewRigidBodyFromSetup(setup, NewTranslation(mgl64.Vec3{-10, 0, 0}), BodyTypeDynamic)

	if a.Shape == ShapeInterface(shape) || a.Shape == b.Shape {
		t.Fatalf("bodies should own their shape")
	}
	if a.Shape.GetAABB() == b.Shape.GetAABB() {
		t.Errorf("cloned shapes should cache their own AABB")
	}
	if a.Material.Restitution != 0.3 || a.Material.LinearDamping != 0.1 {
		t.Errorf("material not copied: %+v", a.Material)
	}
}

// =============================================================================
// Integration Tests
// =============================================================================

func TestIntegrate_Gravity(t *testing.T) {
	rb := NewRigidBody(NewTransform(), &Sphere{Radius: 1}, BodyTypeDynamic, 1)
	gravity := mgl64.Vec3{0, 0, -10}

	rb.Integrate(0.1, gravity)

	if !vec3AlmostEqual(rb.Velocity, mgl64.Vec3{0, 0, -1}, 1e-12) {
		t.Errorf("Velocity = %v, want (0, 0, -1)", rb.Velocity)
	}
	if !vec3AlmostEqual(rb.Transform.Position, mgl64.Vec3{0, 0, -0.1}, 1e-12) {
		t.Errorf("Position = %v, want (0, 0, -0.1)", rb.Transform.Position)
	}
	if rb.PreviousTransform.Position != (mgl64.Vec3{}) {
		t.Errorf("PreviousTransform = %v, want origin", rb.PreviousTransform.Position)
	}
}

func TestIntegrate_ForceAndAcceleration(t *testing.T) {
	rb := NewRigidBody(NewTransform(), &Box{HalfExtents: mgl64.Vec3{0.5, 0.5, 0.5}}, BodyTypeDynamic, 2) // mass 2

	rb.AddForce(mgl64.Vec3{4, 0, 0})
	rb.AddAcceleration(mgl64.Vec3{0, 3, 0})
	rb.Integrate(1, mgl64.Vec3{})

	if !vec3AlmostEqual(rb.Velocity, mgl64.Vec3{2, 3, 0}, 1e-12) {
		t.Errorf("Velocity = %v, want (2, 3, 0)", rb.Velocity)
	}

	rb.EndStep()
	if rb.AccumulatedForce() != (mgl64.Vec3{}) || rb.AccumulatedAcceleration() != (mgl64.Vec3{}) {
		t.Errorf("EndStep() should clear the accumulated forces")
	}
}

func TestIntegrate_IgnoresNonDynamic(t *testing.T) {
	rb := NewRigidBody(NewTranslation(mgl64.Vec3{1, 1, 1}), &Sphere{Radius: 1}, BodyTypeKinematic, 1)
	rb.AddForce(mgl64.Vec3{100, 0, 0})
	rb.Integrate(1, mgl64.Vec3{0, 0, -10})

	if rb.Transform.Position != (mgl64.Vec3{1, 1, 1}) {
		t.Errorf("kinematic body moved to %v", rb.Transform.Position)
	}
	if rb.AccumulatedForce() != (mgl64.Vec3{}) {
		t.Errorf("kinematic body accumulated a force")
	}
}

func TestUpdate_DerivesVelocity(t *testing.T) {
	rb := NewRigidBody(NewTransform(), &Sphere{Radius: 1}, BodyTypeDynamic, 1)
	rb.PreviousTransform = NewTransform()
	rb.Transform = NewTranslation(mgl64.Vec3{0.5, 0, 0})

	rb.Update(0.25)

	if !vec3AlmostEqual(rb.Velocity, mgl64.Vec3{2, 0, 0}, 1e-12) {
		t.Errorf("Velocity = %v, want (2, 0, 0)", rb.Velocity)
	}
}

// =============================================================================
// Kinematic Tests
// =============================================================================

func TestMoveKinematic_Interpolates(t *testing.T) {
	rb := NewRigidBody(NewTransform(), &Box{HalfExtents: mgl64.Vec3{1, 1, 1}}, BodyTypeKinematic, 0)
	target := NewTransformFrom(mgl64.Vec3{4, 0, 0}, mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1}))
	rb.SetKinematicTarget(target)

	rb.MoveKinematic(0.5)
	if !vec3AlmostEqual(rb.Transform.Position, mgl64.Vec3{2, 0, 0}, 1e-12) {
		t.Errorf("half way position = %v, want (2, 0, 0)", rb.Transform.Position)
	}
	halfway := mgl64.QuatRotate(math.Pi/4, mgl64.Vec3{0, 0, 1})
	if !rb.Transform.ApproxEqual(NewTransformFrom(mgl64.Vec3{2, 0, 0}, halfway), 1e-9) {
		t.Errorf("half way rotation = %v, want %v", rb.Transform.Rotation, halfway)
	}

	rb.MoveKinematic(1)
	if !rb.Transform.ApproxEqual(target, 1e-9) {
		t.Errorf("end transform = %v, want %v", rb.Transform, target)
	}

	rb.EndStep()
	if _, ok := rb.KinematicTarget(); ok {
		t.Errorf("target should be consumed by EndStep()")
	}

	// without a new target the body stays where it is
	rb.MoveKinematic(1)
	if !rb.Transform.ApproxEqual(target, 1e-9) {
		t.Errorf("body moved without target to %v", rb.Transform)
	}
	if !rb.PreviousTransform.ApproxEqual(target, 1e-9) {
		t.Errorf("PreviousTransform = %v, want %v", rb.PreviousTransform, target)
	}
}

func TestSetKinematicTarget_IgnoredByDynamic(t *testing.T) {
	rb := NewRigidBody(NewTransform(), &Sphere{Radius: 1}, BodyTypeDynamic, 1)
	rb.SetKinematicTarget(NewTranslation(mgl64.Vec3{1, 0, 0}))

	if _, ok := rb.KinematicTarget(); ok {
		t.Errorf("dynamic body accepted a kinematic target")
	}
}

func TestSetWorldTransform_Teleports(t *testing.T) {
	rb := NewRigidBody(NewTransform(), &Sphere{Radius: 1}, BodyTypeKinematic, 0)
	rb.SetKinematicTarget(NewTranslation(mgl64.Vec3{5, 0, 0}))

	destination := NewTranslation(mgl64.Vec3{0, 3, 0})
	rb.SetWorldTransform(destination)

	if _, ok := rb.KinematicTarget(); ok {
		t.Errorf("SetWorldTransform() should drop the pending target")
	}
	if rb.PreviousTransform != rb.Transform {
		t.Errorf("PreviousTransform = %v, want %v", rb.PreviousTransform, rb.Transform)
	}
	if !rb.Shape.GetAABB().ContainsPoint(mgl64.Vec3{0, 3, 0}) {
		t.Errorf("AABB not moved with the body")
	}
}

// =============================================================================
// Force Tests
// =============================================================================

func TestAddRadialForce(t *testing.T) {
	tests := []struct {
		name     string
		position mgl64.Vec3
		falloff  RadialFalloff
		mode     ForceMode
		force    mgl64.Vec3
		accel    mgl64.Vec3
	}{
		{
			name:     "constant",
			position: mgl64.Vec3{5, 0, 0},
			falloff:  RadialFalloffConstant,
			mode:     ForceModeForce,
			force:    mgl64.Vec3{100, 0, 0},
		},
		{
			name:     "linear half way",
			position: mgl64.Vec3{0, 5, 0},
			falloff:  RadialFalloffLinear,
			mode:     ForceModeForce,
			force:    mgl64.Vec3{0, 50, 0},
		},
		{
			name:     "acceleration",
			position: mgl64.Vec3{0, 0, -2},
			falloff:  RadialFalloffConstant,
			mode:     ForceModeAcceleration,
			accel:    mgl64.Vec3{0, 0, -100},
		},
		{
			name:     "out of radius",
			position: mgl64.Vec3{11, 0, 0},
			falloff:  RadialFalloffConstant,
			mode:     ForceModeForce,
		},
		{
			name:     "at the origin",
			position: mgl64.Vec3{0, 0, 0},
			falloff:  RadialFalloffConstant,
			mode:     ForceModeForce,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rb := NewRigidBody(NewTranslation(tt.position), &Sphere{Radius: 1}, BodyTypeDynamic, 1)
			rb.AddRadialForce(mgl64.Vec3{}, 100, 10, tt.falloff, tt.mode)

			if !vec3AlmostEqual(rb.AccumulatedForce(), tt.force, 1e-9) {
				t.Errorf("force = %v, want %v", rb.AccumulatedForce(), tt.force)
			}
			if !vec3AlmostEqual(rb.AccumulatedAcceleration(), tt.accel, 1e-9) {
				t.Errorf("acceleration = %v, want %v", rb.AccumulatedAcceleration(), tt.accel)
			}
		})
	}
}
