package ragdoll

import (
	"github.com/akmonengine/ragdoll/actor"
)

// BodyKind tells whether a body is driven by the solver or by the animation
type BodyKind int

const (
	BodyKindSimulated BodyKind = iota
	BodyKindKinematic
)

func (k BodyKind) String() string {
	if k == BodyKindKinematic {
		return "kinematic"
	}
	return "simulated"
}

// CollisionResponse of a body, disabled bodies only interact through joints
type CollisionResponse int

const (
	CollisionResponseEnabled CollisionResponse = iota
	CollisionResponseDisabled
)

// BodyTemplate describes the body attached to one bone
type BodyTemplate struct {
	BoneName          string
	Kind              BodyKind
	CollisionResponse CollisionResponse
	Setup             actor.BodySetup
}

// JointTemplate links the bodies of two bones. The pivot sits at the origin of Bone2.
type JointTemplate struct {
	Bone1 string
	Bone2 string
	// Compliance is the inverse stiffness of the joint, 0 falls back to the node default
	Compliance float64
	// DisableCollision prevents the two jointed bodies from colliding together
	DisableCollision bool
}

// DisablePair references two entries of PhysicsAsset.Bodies that must never collide
type DisablePair struct {
	BodyA int
	BodyB int
}

// PhysicsAsset is the read-only template a node builds its simulation from
type PhysicsAsset struct {
	Bodies             []BodyTemplate
	Joints             []JointTemplate
	DisabledCollisions []DisablePair
}
