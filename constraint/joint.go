package constraint

import (
	"github.com/akmonengine/ragdoll/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// JointSetup holds the parameters of a spherical (ball and socket) joint
type JointSetup struct {
	// Anchors expressed in the local frame of each body, they coincide when the joint is satisfied
	LocalAnchorA mgl64.Vec3
	LocalAnchorB mgl64.Vec3
	// Compliance is the inverse stiffness, 0 is rigid
	Compliance float64
	// DisableCollision stops the two jointed bodies from colliding together
	DisableCollision bool
}

// Joint pins an anchor of BodyA onto an anchor of BodyB
type Joint struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
	Setup JointSetup
}

func NewJoint(setup JointSetup, bodyA, bodyB *actor.RigidBody) *Joint {
	return &Joint{BodyA: bodyA, BodyB: bodyB, Setup: setup}
}

// WorldAnchors returns both anchors in world space
func (j *Joint) WorldAnchors() (mgl64.Vec3, mgl64.Vec3) {
	return j.BodyA.Transform.TransformPoint(j.Setup.LocalAnchorA), j.BodyB.Transform.TransformPoint(j.Setup.LocalAnchorB)
}

// Separation is the distance between the two anchors
func (j *Joint) Separation() float64 {
	a, b := j.WorldAnchors()
	return b.Sub(a).Len()
}

// SolvePosition closes the gap between the anchors (XPBD, one iteration per substep)
func (j *Joint) SolvePosition(dt float64) {
	if dt <= 0 {
		return
	}

	anchorA, anchorB := j.WorldAnchors()
	delta := anchorB.Sub(anchorA)
	c := delta.Len()
	if c < 1e-9 {
		return
	}
	n := delta.Mul(1 / c)

	rA := anchorA.Sub(j.BodyA.Transform.Position)
	rB := anchorB.Sub(j.BodyB.Transform.Position)
	w := generalizedInverseMass(j.BodyA, rA, n) + generalizedInverseMass(j.BodyB, rB, n)
	if w <= 1e-12 {
		return
	}

	alphaTilde := j.Setup.Compliance / (dt * dt)
	deltaLambda := -c / (w + alphaTilde)
	impulse := n.Mul(deltaLambda)

	// A moves toward B and B toward A
	applyPositionalImpulse(j.BodyA, impulse.Mul(-1), rA)
	applyPositionalImpulse(j.BodyB, impulse, rB)
}

// SolveVelocity has nothing to do, the velocities come from the solved positions
func (j *Joint) SolveVelocity(dt float64) {}
