package constraint

import (
	"math"

	"github.com/akmonengine/ragdoll/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Constraint is solved once per substep: positions first, then velocities once the bodies
// have been updated from their corrected positions
type Constraint interface {
	SolvePosition(dt float64)
	SolveVelocity(dt float64)
}

var (
	_ Constraint = (*Joint)(nil)
	_ Constraint = (*ContactConstraint)(nil)
)

func ComputeRestitution(matA, matB actor.Material) float64 {
	return (matA.Restitution + matB.Restitution) / 2.0
}

func ComputeStaticFriction(matA, matB actor.Material) float64 {
	return math.Sqrt(matA.StaticFriction * matB.StaticFriction)
}

func ComputeDynamicFriction(matA, matB actor.Material) float64 {
	return math.Sqrt(matA.DynamicFriction * matB.DynamicFriction)
}

func clampSmallVelocities(rb *actor.RigidBody) {
	const velocityThreshold = 1e-5

	if rb.Velocity.Len() < velocityThreshold {
		rb.Velocity = mgl64.Vec3{0, 0, 0}
	}
	if rb.AngularVelocity.Len() < velocityThreshold {
		rb.AngularVelocity = mgl64.Vec3{0, 0, 0}
	}
}

// generalizedInverseMass is w = 1/m + (r × n)ᵀ I⁻¹ (r × n), the resistance of a body
// to a positional correction along n applied at offset r from its center
func generalizedInverseMass(rb *actor.RigidBody, r, n mgl64.Vec3) float64 {
	rCrossN := r.Cross(n)
	return rb.GetInverseMass() + rb.GetInverseInertiaWorld().Mul3x1(rCrossN).Dot(rCrossN)
}

// applyPositionalImpulse moves a dynamic body by the positional impulse p applied at offset r
func applyPositionalImpulse(rb *actor.RigidBody, p, r mgl64.Vec3) {
	if !rb.IsDynamic() {
		return
	}

	position := rb.Transform.Position.Add(p.Mul(rb.GetInverseMass()))

	rotation := rb.Transform.Rotation
	deltaRot := rb.GetInverseInertiaWorld().Mul3x1(r.Cross(p))
	if deltaRot.Len() > 1e-10 {
		// small angle: q_delta ≈ [1, δθ/2]
		qDelta := mgl64.Quat{W: 1.0, V: deltaRot.Mul(0.5)}.Normalize()
		rotation = qDelta.Mul(rotation)
	}

	rb.Transform = actor.NewTransformFrom(position, rotation)
}
