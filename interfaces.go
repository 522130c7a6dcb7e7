package ragdoll

import (
	"github.com/akmonengine/ragdoll/actor"
	"github.com/akmonengine/ragdoll/constraint"
	"github.com/akmonengine/ragdoll/geometry"
	"github.com/akmonengine/ragdoll/immediate"
	"github.com/akmonengine/ragdoll/skeleton"
	"github.com/go-gl/mathgl/mgl64"
)

// BoneContainer exposes the bone hierarchy and the bones required at each LOD.
// LOD 0 is the most detailed level, NumLODs()-1 the least detailed.
type BoneContainer interface {
	NumBones() int
	BoneIndex(name string) (int, bool)
	ParentIndex(bone int) int
	NumLODs() int
	// RequiredBones returns sorted bone indices, parents before children
	RequiredBones(lod int) []int
}

// PoseSource is an evaluated pose
type PoseSource interface {
	ComponentSpaceTransform(bone int) actor.Transform
	LocalSpaceTransform(bone int) actor.Transform
}

// OutputSink receives the simulated component space transforms, parents before children
type OutputSink interface {
	AddOutputBoneTransform(bone int, transform actor.Transform)
}

// Simulation is the rigid body solver driven by a node. A node exclusively owns its simulation
// and calls it from one goroutine at a time.
type Simulation interface {
	CreateDynamicActor(setup actor.BodySetup, transform actor.Transform) *actor.RigidBody
	CreateKinematicActor(setup actor.BodySetup, transform actor.Transform) *actor.RigidBody
	CreateStaticActor(setup actor.BodySetup, transform actor.Transform) *actor.RigidBody
	CreateJoint(setup constraint.JointSetup, bodyA, bodyB *actor.RigidBody) *constraint.Joint
	SetIgnoreCollisionPairTable(pairs []immediate.IgnorePair)
	SetIgnoreCollisionActors(actors []*actor.RigidBody)
	// SetNumActiveBodies enables exactly the first count bodies in insertion order
	SetNumActiveBodies(count int)
	Simulate(dt float64, gravity mgl64.Vec3)
	Destroy()
}

// SimulationFactory creates the solver of a node on (re)initialization
type SimulationFactory func() Simulation

// WorldQuery finds static world geometry. Implementations must be safe for concurrent use.
type WorldQuery interface {
	OverlapSphere(center mgl64.Vec3, radius float64, channel uint32) []geometry.Collider
}

var (
	_ Simulation = (*immediate.Simulation)(nil)
	_ WorldQuery = (*geometry.World)(nil)
)

var (
	_ BoneContainer = (*skeleton.Skeleton)(nil)
	_ PoseSource    = (*skeleton.Pose)(nil)
	_ OutputSink    = (*skeleton.Pose)(nil)
)
