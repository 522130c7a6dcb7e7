package constraint

import (
	"math"

	"github.com/akmonengine/ragdoll/actor"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// DefaultCompliance controls soft constraint stiffness for contact resolution.
	// Lower values = stiffer contacts (less penetration, potential jitter)
	// Higher values = softer contacts (more penetration, smoother)
	DefaultCompliance = 1e-7

	penetrationSlop = 1e-8
)

type ContactPoint struct {
	Position    mgl64.Vec3
	Penetration float64
}

// ContactConstraint separates two bodies, Normal points from BodyA toward BodyB
type ContactConstraint struct {
	BodyA  *actor.RigidBody
	BodyB  *actor.RigidBody
	Points []ContactPoint
	Normal mgl64.Vec3
}

// SolvePosition resolves penetration with one global correction (XPBD, no lambda accumulation)
func (c *ContactConstraint) SolvePosition(dt float64) {
	if len(c.Points) == 0 || dt <= 0 {
		return
	}

	bodyA := c.BodyA
	bodyB := c.BodyB

	var totalWeight, totalPenetration float64
	for _, point := range c.Points {
		if point.Penetration <= penetrationSlop {
			continue
		}
		rA := point.Position.Sub(bodyA.Transform.Position)
		rB := point.Position.Sub(bodyB.Transform.Position)

		totalWeight += generalizedInverseMass(bodyA, rA, c.Normal) + generalizedInverseMass(bodyB, rB, c.Normal)
		totalPenetration += point.Penetration
	}
	if totalWeight <= 1e-8 {
		return
	}

	alphaTilde := DefaultCompliance / (dt * dt)
	deltaLambda := -totalPenetration / (totalWeight + alphaTilde)
	impulse := c.Normal.Mul(deltaLambda)

	// every point shares the same impulse, the torque arm is the mean contact point
	var center mgl64.Vec3
	var count float64
	for _, point := range c.Points {
		if point.Penetration > penetrationSlop {
			center = center.Add(point.Position)
			count++
		}
	}
	center = center.Mul(1 / count)

	rA := center.Sub(bodyA.Transform.Position)
	rB := center.Sub(bodyB.Transform.Position)
	applyPositionalImpulse(bodyA, impulse, rA)
	applyPositionalImpulse(bodyB, impulse.Mul(-1), rB)
}

// SolveVelocity applies restitution and Coulomb friction
func (c *ContactConstraint) SolveVelocity(dt float64) {
	if len(c.Points) == 0 {
		return
	}

	bodyA := c.BodyA
	bodyB := c.BodyB

	invMassA := bodyA.GetInverseMass()
	invMassB := bodyB.GetInverseMass()
	IA_inv := bodyA.GetInverseInertiaWorld()
	IB_inv := bodyB.GetInverseInertiaWorld()

	restitution := ComputeRestitution(bodyA.Material, bodyB.Material)
	staticFriction := ComputeStaticFriction(bodyA.Material, bodyB.Material)
	dynamicFriction := ComputeDynamicFriction(bodyA.Material, bodyB.Material)

	var linearA, linearB, angularA, angularB mgl64.Vec3

	for _, point := range c.Points {
		rA := point.Position.Sub(bodyA.Transform.Position)
		rB := point.Position.Sub(bodyB.Transform.Position)

		vA := bodyA.Velocity.Add(bodyA.AngularVelocity.Cross(rA))
		vB := bodyB.Velocity.Add(bodyB.AngularVelocity.Cross(rB))
		relativeVel := vB.Sub(vA)
		normalVel := relativeVel.Dot(c.Normal)

		vAPrev := bodyA.PresolveVelocity.Add(bodyA.PresolveAngularVelocity.Cross(rA))
		vBPrev := bodyB.PresolveVelocity.Add(bodyB.PresolveAngularVelocity.Cross(rB))
		normalVelPrev := vBPrev.Sub(vAPrev).Dot(c.Normal)

		effectiveMassNormal := generalizedInverseMass(bodyA, rA, c.Normal) + generalizedInverseMass(bodyB, rB, c.Normal)
		if effectiveMassNormal < 1e-10 {
			continue
		}

		lambdaNormal := (-restitution*normalVelPrev - normalVel) / effectiveMassNormal
		// never pull the bodies together
		if lambdaNormal < 0 {
			lambdaNormal = 0
		}
		normalImpulse := c.Normal.Mul(lambdaNormal)

		linearA = linearA.Sub(normalImpulse.Mul(invMassA))
		linearB = linearB.Add(normalImpulse.Mul(invMassB))
		angularA = angularA.Add(IA_inv.Mul3x1(rA.Cross(normalImpulse.Mul(-1))))
		angularB = angularB.Add(IB_inv.Mul3x1(rB.Cross(normalImpulse)))

		if lambdaNormal == 0 {
			continue
		}

		tangentVel := relativeVel.Sub(c.Normal.Mul(normalVel))
		tangentSpeed := tangentVel.Len()
		if tangentSpeed <= 1e-6 {
			continue
		}
		tangentDir := tangentVel.Mul(1.0 / tangentSpeed)

		effectiveMassTangent := generalizedInverseMass(bodyA, rA, tangentDir) + generalizedInverseMass(bodyB, rB, tangentDir)
		if effectiveMassTangent < 1e-10 {
			continue
		}
		lambdaTangent := -tangentSpeed / effectiveMassTangent

		// Coulomb: |F_friction| ≤ μ |F_normal|
		var frictionImpulse mgl64.Vec3
		if math.Abs(lambdaTangent) <= staticFriction*lambdaNormal {
			frictionImpulse = tangentDir.Mul(lambdaTangent)
		} else {
			frictionImpulse = tangentDir.Mul(-dynamicFriction * lambdaNormal)
		}

		linearA = linearA.Sub(frictionImpulse.Mul(invMassA))
		linearB = linearB.Add(frictionImpulse.Mul(invMassB))
		angularA = angularA.Add(IA_inv.Mul3x1(rA.Cross(frictionImpulse.Mul(-1))))
		angularB = angularB.Add(IB_inv.Mul3x1(rB.Cross(frictionImpulse)))
	}

	if bodyA.IsDynamic() {
		bodyA.Velocity = bodyA.Velocity.Add(linearA)
		bodyA.AngularVelocity = bodyA.AngularVelocity.Add(angularA)
		clampSmallVelocities(bodyA)
	}
	if bodyB.IsDynamic() {
		bodyB.Velocity = bodyB.Velocity.Add(linearB)
		bodyB.AngularVelocity = bodyB.AngularVelocity.Add(angularB)
		clampSmallVelocities(bodyB)
	}
}
