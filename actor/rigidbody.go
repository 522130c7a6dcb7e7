package actor

import (
	"log/slog"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// BodyType represents the type of rigid body
type BodyType int

const (
	// BodyTypeDynamic bodies are affected by forces, gravity, joints and collisions
	BodyTypeDynamic BodyType = iota

	// BodyTypeKinematic bodies follow a target transform set from outside each step
	// They push dynamic bodies but are never pushed back
	BodyTypeKinematic

	// BodyTypeStatic bodies are immovable and have infinite mass (e.g., ground, walls)
	BodyTypeStatic
)

func (t BodyType) String() string {
	switch t {
	case BodyTypeDynamic:
		return "dynamic"
	case BodyTypeKinematic:
		return "kinematic"
	case BodyTypeStatic:
		return "static"
	}
	return "unknown"
}

// ForceMode selects how AddRadialForce interprets its strength
type ForceMode int

const (
	// ForceModeForce divides the strength by the body mass
	ForceModeForce ForceMode = iota
	// ForceModeAcceleration applies the strength as is, whatever the mass
	ForceModeAcceleration
)

// RadialFalloff shapes the strength of a radial force along its radius
type RadialFalloff int

const (
	RadialFalloffConstant RadialFalloff = iota
	// RadialFalloffLinear fades from full strength at the origin to zero at the radius
	RadialFalloffLinear
)

type Material struct {
	Density     float64
	mass        float64
	Restitution float64 // 0= no rebound, 1= perfect restitution

	StaticFriction  float64
	DynamicFriction float64
	LinearDamping   float64 // 0.0 - 1.0, typical: 0.01
	AngularDamping  float64 // 0.0 - 1.0, typical: 0.05
}

func (material Material) GetMass() float64 {
	return material.mass
}

// GetInverseMass is zero for infinite masses
func (material Material) GetInverseMass() float64 {
	if material.mass <= 0 || math.IsInf(material.mass, 1) {
		return 0
	}
	return 1.0 / material.mass
}

// BodySetup describes the geometry and mass of a body before it is created.
// The shape is cloned for every created body.
type BodySetup struct {
	Shape    ShapeInterface
	Density  float64
	Material Material
}

// RigidBody represents a rigid body in the physics simulation
type RigidBody struct {
	// Spatial properties
	PreviousTransform Transform
	Transform         Transform

	// Linear motion
	PresolveVelocity mgl64.Vec3
	Velocity         mgl64.Vec3

	// Angular motion
	PresolveAngularVelocity mgl64.Vec3
	AngularVelocity         mgl64.Vec3
	InertiaLocal            mgl64.Mat3
	InverseInertiaLocal     mgl64.Mat3

	accumulatedForce        mgl64.Vec3
	accumulatedTorque       mgl64.Vec3
	accumulatedAcceleration mgl64.Vec3

	// kinematic interpolation, from kinematicStart to kinematicTarget over one Simulate call
	kinematicStart  Transform
	kinematicTarget Transform
	hasTarget       bool

	Material Material
	BodyType BodyType

	Shape ShapeInterface
}

// NewRigidBody creates a new rigid body with the given properties
// density is used to calculate mass for dynamic bodies (ignored otherwise)
func NewRigidBody(transform Transform, shape ShapeInterface, bodyType BodyType, density float64) *RigidBody {
	transform = NewTransformFrom(transform.Position, transform.Rotation)
	rb := &RigidBody{
		PreviousTransform: transform,
		Transform:         transform,
		Shape:             shape,
		BodyType:          bodyType,
	}

	if bodyType == BodyTypeDynamic {
		rb.Material = Material{
			Density: density,
			mass:    shape.ComputeMass(density),
		}
		rb.InertiaLocal = shape.ComputeInertia(rb.Material.mass)
		rb.InverseInertiaLocal = rb.InertiaLocal.Inv()
	} else {
		rb.Material = Material{mass: math.Inf(1)}
	}
	rb.Shape.ComputeAABB(rb.Transform)

	return rb
}

// NewRigidBodyFromSetup clones the setup shape and copies its surface and damping coefficients
func NewRigidBodyFromSetup(setup BodySetup, transform Transform, bodyType BodyType) *RigidBody {
	rb := NewRigidBody(transform, setup.Shape.Clone(), bodyType, setup.Density)
	rb.Material.Restitution = setup.Material.Restitution
	rb.Material.StaticFriction = setup.Material.StaticFriction
	rb.Material.DynamicFriction = setup.Material.DynamicFriction
	rb.Material.LinearDamping = setup.Material.LinearDamping
	rb.Material.AngularDamping = setup.Material.AngularDamping

	return rb
}

func (rb *RigidBody) IsDynamic() bool {
	return rb.BodyType == BodyTypeDynamic
}

// Integrate predicts the dynamic body position for a substep of length dt
func (rb *RigidBody) Integrate(dt float64, gravity mgl64.Vec3) {
	if rb.BodyType != BodyTypeDynamic {
		return
	}

	rb.PreviousTransform = rb.Transform

	// Linear: gravity and accelerations are mass independent, forces are not
	acceleration := gravity.Add(rb.accumulatedAcceleration).Add(rb.accumulatedForce.Mul(rb.Material.GetInverseMass()))
	rb.Velocity = rb.Velocity.Add(acceleration.Mul(dt))
	rb.Velocity = rb.Velocity.Mul(math.Exp(-rb.Material.LinearDamping * dt))
	position := rb.Transform.Position.Add(rb.Velocity.Mul(dt))

	// Angular
	angularAcceleration := rb.GetInverseInertiaWorld().Mul3x1(rb.accumulatedTorque)
	rb.AngularVelocity = rb.AngularVelocity.Add(angularAcceleration.Mul(dt))
	rb.AngularVelocity = rb.AngularVelocity.Mul(math.Exp(-rb.Material.AngularDamping * dt))

	omega := mgl64.Quat{V: rb.AngularVelocity, W: 0}
	qDot := omega.Mul(rb.Transform.Rotation).Scale(0.5)
	rotation := rb.Transform.Rotation.Add(qDot.Scale(dt))

	rb.Transform = NewTransformFrom(position, rotation)
	rb.PresolveVelocity = rb.Velocity
	rb.PresolveAngularVelocity = rb.AngularVelocity

	rb.Shape.ComputeAABB(rb.Transform)
}

// MoveKinematic places a kinematic body at the fraction alpha of the way to its target
func (rb *RigidBody) MoveKinematic(alpha float64) {
	if rb.BodyType != BodyTypeKinematic {
		return
	}

	rb.PreviousTransform = rb.Transform
	if !rb.hasTarget {
		return
	}

	alpha = mgl64.Clamp(alpha, 0, 1)
	position := rb.kinematicStart.Position.Add(rb.kinematicTarget.Position.Sub(rb.kinematicStart.Position).Mul(alpha))
	rotation := mgl64.QuatSlerp(rb.kinematicStart.rotation(), rb.kinematicTarget.rotation(), alpha)
	rb.Transform = NewTransformFrom(position, rotation)

	rb.Shape.ComputeAABB(rb.Transform)
}

// Update derives the velocities from the solved positions
func (rb *RigidBody) Update(dt float64) {
	if rb.BodyType == BodyTypeStatic || dt <= 0 {
		return
	}

	rb.Velocity = rb.Transform.Position.Sub(rb.PreviousTransform.Position).Mul(1.0 / dt)
	qDelta := rb.Transform.Rotation.Mul(rb.PreviousTransform.Rotation.Conjugate()).Normalize()
	if qDelta.W >= 0.0 {
		rb.AngularVelocity = qDelta.V.Mul(2.0 / dt)
	} else {
		rb.AngularVelocity = qDelta.V.Mul(-2.0 / dt)
	}

	if rb.BodyType == BodyTypeDynamic {
		rb.Shape.ComputeAABB(rb.Transform)
	}
}

// EndStep drops the forces accumulated for the step and the consumed kinematic target
func (rb *RigidBody) EndStep() {
	rb.ClearForces()
	if rb.hasTarget {
		rb.kinematicStart = rb.kinematicTarget
		rb.hasTarget = false
	}
}

// SetWorldTransform teleports the body, no velocity is derived from the move
func (rb *RigidBody) SetWorldTransform(transform Transform) {
	transform = NewTransformFrom(transform.Position, transform.Rotation)
	rb.Transform = transform
	rb.PreviousTransform = transform
	rb.kinematicStart = transform
	rb.kinematicTarget = transform
	rb.hasTarget = false

	rb.Shape.ComputeAABB(rb.Transform)
}

func (rb *RigidBody) GetWorldTransform() Transform {
	return rb.Transform
}

// SetKinematicTarget sets where a kinematic body ends the next Simulate call
func (rb *RigidBody) SetKinematicTarget(target Transform) {
	if rb.BodyType != BodyTypeKinematic {
		return
	}
	if !rb.hasTarget {
		rb.kinematicStart = rb.Transform
	}
	rb.kinematicTarget = NewTransformFrom(target.Position, target.Rotation)
	rb.hasTarget = true
}

// KinematicTarget returns the pending target, if any
func (rb *RigidBody) KinematicTarget() (Transform, bool) {
	return rb.kinematicTarget, rb.hasTarget
}

func (rb *RigidBody) SetLinearVelocity(velocity mgl64.Vec3) {
	if rb.BodyType == BodyTypeDynamic {
		rb.Velocity = velocity
	}
}

func (rb *RigidBody) SetAngularVelocity(velocity mgl64.Vec3) {
	if rb.BodyType == BodyTypeDynamic {
		rb.AngularVelocity = velocity
	}
}

// AddForce accumulates a force in Newtons (mass units × length units / s²) until the end of the step
func (rb *RigidBody) AddForce(force mgl64.Vec3) {
	if rb.BodyType == BodyTypeDynamic {
		rb.accumulatedForce = rb.accumulatedForce.Add(force)
	}
}

// AddTorque accumulates a torque until the end of the step
func (rb *RigidBody) AddTorque(torque mgl64.Vec3) {
	if rb.BodyType == BodyTypeDynamic {
		rb.accumulatedTorque = rb.accumulatedTorque.Add(torque)
	}
}

// AddAcceleration accumulates a mass independent acceleration until the end of the step
func (rb *RigidBody) AddAcceleration(acceleration mgl64.Vec3) {
	if rb.BodyType == BodyTypeDynamic {
		rb.accumulatedAcceleration = rb.accumulatedAcceleration.Add(acceleration)
	}
}

// AddRadialForce pushes the body away from origin when it lies within radius
func (rb *RigidBody) AddRadialForce(origin mgl64.Vec3, strength, radius float64, falloff RadialFalloff, mode ForceMode) {
	if rb.BodyType != BodyTypeDynamic {
		return
	}

	delta := rb.Transform.Position.Sub(origin)
	distance := delta.Len()
	if distance > radius || distance == 0 {
		return
	}

	if falloff == RadialFalloffLinear {
		strength *= 1.0 - distance/radius
	}
	push := delta.Mul(strength / distance)

	switch mode {
	case ForceModeAcceleration:
		rb.AddAcceleration(push)
	default:
		rb.AddForce(push)
	}
}

func (rb *RigidBody) GetInverseMass() float64 {
	return rb.Material.GetInverseMass()
}

func (rb *RigidBody) ClearForces() {
	rb.accumulatedForce = mgl64.Vec3{}
	rb.accumulatedTorque = mgl64.Vec3{}
	rb.accumulatedAcceleration = mgl64.Vec3{}
}

// AccumulatedForce returns the force gathered since the last step
func (rb *RigidBody) AccumulatedForce() mgl64.Vec3 {
	return rb.accumulatedForce
}

// AccumulatedAcceleration returns the acceleration gathered since the last step
func (rb *RigidBody) AccumulatedAcceleration() mgl64.Vec3 {
	return rb.accumulatedAcceleration
}

// SupportWorld returns the farthest point of the body along a world direction
func (rb *RigidBody) SupportWorld(direction mgl64.Vec3) mgl64.Vec3 {
	localSupport := rb.Shape.Support(rb.Transform.InverseTransformVector(direction))
	return rb.Transform.TransformPoint(localSupport)
}

// ContactFeatureWorld returns the world vertices of the shape feature facing a world direction
func (rb *RigidBody) ContactFeatureWorld(direction mgl64.Vec3) []mgl64.Vec3 {
	feature := rb.Shape.ContactFeature(rb.Transform.InverseTransformVector(direction))
	for i, vertex := range feature {
		feature[i] = rb.Transform.TransformPoint(vertex)
	}

	return feature
}

// GetInverseInertiaWorld returns R * I_local^-1 * R^T, zero for non dynamic bodies
func (rb *RigidBody) GetInverseInertiaWorld() mgl64.Mat3 {
	if rb.BodyType != BodyTypeDynamic {
		return mgl64.Mat3{}
	}

	R := rb.Transform.rotation().Mat4().Mat3()
	return R.Mul3(rb.InverseInertiaLocal).Mul3(R.Transpose())
}

func (rb *RigidBody) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("type", rb.BodyType.String()),
		slog.Any("position", rb.Transform.Position),
		slog.Float64("inverse_mass", rb.GetInverseMass()),
	)
}
