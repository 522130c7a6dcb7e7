// Package immediate is a small rigid body solver owned by a single simulation instance.
//
// Bodies are kept in insertion order. Only the first NumActiveBodies of them take part in
// a step, which lets a caller drop the tail of the list without reordering anything.
// Static actors are always active.
package immediate

import (
	"unsafe"

	"github.com/akmonengine/ragdoll/actor"
	"github.com/akmonengine/ragdoll/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	DEFAULT_WORKERS  = 1
	DEFAULT_SUBSTEPS = 4
)

// IgnorePair is a pair of actors that never collide together
type IgnorePair struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

type pairKey struct {
	bodyA *actor.RigidBody
	bodyB *actor.RigidBody
}

type Simulation struct {
	// Dynamic and kinematic bodies, in insertion order
	Bodies []*actor.RigidBody
	// Static actors, always active
	Statics []*actor.RigidBody
	Joints  []*constraint.Joint

	// Substeps per Simulate call
	Substeps int
	Workers  int

	numActive     int
	bodyIndex     map[*actor.RigidBody]int
	ignoredPairs  map[pairKey]struct{}
	jointPairs    map[pairKey]struct{}
	ignoredActors map[*actor.RigidBody]struct{}
	destroyed     bool
}

func New() *Simulation {
	return &Simulation{
		Substeps:      DEFAULT_SUBSTEPS,
		Workers:       DEFAULT_WORKERS,
		bodyIndex:     make(map[*actor.RigidBody]int),
		ignoredPairs:  make(map[pairKey]struct{}),
		jointPairs:    make(map[pairKey]struct{}),
		ignoredActors: make(map[*actor.RigidBody]struct{}),
	}
}

func makePairKey(bodyA, bodyB *actor.RigidBody) pairKey {
	if uintptr(unsafe.Pointer(bodyB)) < uintptr(unsafe.Pointer(bodyA)) {
		bodyA, bodyB = bodyB, bodyA
	}
	return pairKey{bodyA: bodyA, bodyB: bodyB}
}

// CreateDynamicActor adds a body driven by forces, joints and collisions
func (s *Simulation) CreateDynamicActor(setup actor.BodySetup, transform actor.Transform) *actor.RigidBody {
	return s.addBody(actor.NewRigidBodyFromSetup(setup, transform, actor.BodyTypeDynamic))
}

// CreateKinematicActor adds a body following the targets given by SetKinematicTarget
func (s *Simulation) CreateKinematicActor(setup actor.BodySetup, transform actor.Transform) *actor.RigidBody {
	return s.addBody(actor.NewRigidBodyFromSetup(setup, transform, actor.BodyTypeKinematic))
}

// CreateStaticActor adds immovable world geometry
func (s *Simulation) CreateStaticActor(setup actor.BodySetup, transform actor.Transform) *actor.RigidBody {
	if s.destroyed {
		return nil
	}
	body := actor.NewRigidBodyFromSetup(setup, transform, actor.BodyTypeStatic)
	s.Statics = append(s.Statics, body)

	return body
}

func (s *Simulation) addBody(body *actor.RigidBody) *actor.RigidBody {
	if s.destroyed {
		return nil
	}
	s.bodyIndex[body] = len(s.Bodies)
	s.Bodies = append(s.Bodies, body)
	s.numActive = len(s.Bodies)

	return body
}

// CreateJoint links two actors of this simulation
func (s *Simulation) CreateJoint(setup constraint.JointSetup, bodyA, bodyB *actor.RigidBody) *constraint.Joint {
	if s.destroyed || bodyA == nil || bodyB == nil {
		return nil
	}
	joint := constraint.NewJoint(setup, bodyA, bodyB)
	s.Joints = append(s.Joints, joint)
	if setup.DisableCollision {
		s.jointPairs[makePairKey(bodyA, bodyB)] = struct{}{}
	}

	return joint
}

// SetIgnoreCollisionPairTable replaces the set of pairs that never collide
func (s *Simulation) SetIgnoreCollisionPairTable(pairs []IgnorePair) {
	clear(s.ignoredPairs)
	for _, pair := range pairs {
		s.ignoredPairs[makePairKey(pair.BodyA, pair.BodyB)] = struct{}{}
	}
}

// SetIgnoreCollisionActors replaces the set of actors that collide with nothing
func (s *Simulation) SetIgnoreCollisionActors(actors []*actor.RigidBody) {
	clear(s.ignoredActors)
	for _, body := range actors {
		s.ignoredActors[body] = struct{}{}
	}
}

// SetNumActiveBodies enables exactly the first count bodies in insertion order
func (s *Simulation) SetNumActiveBodies(count int) {
	s.numActive = max(0, min(count, len(s.Bodies)))
}

func (s *Simulation) NumActiveBodies() int {
	return s.numActive
}

// IsActive reports whether body takes part in the next step
func (s *Simulation) IsActive(body *actor.RigidBody) bool {
	if body.BodyType == actor.BodyTypeStatic {
		return true
	}
	index, ok := s.bodyIndex[body]
	return ok && index < s.numActive
}

func (s *Simulation) canCollide(bodyA, bodyB *actor.RigidBody) bool {
	if _, ok := s.ignoredActors[bodyA]; ok {
		return false
	}
	if _, ok := s.ignoredActors[bodyB]; ok {
		return false
	}
	key := makePairKey(bodyA, bodyB)
	if _, ok := s.ignoredPairs[key]; ok {
		return false
	}
	_, jointed := s.jointPairs[key]
	return !jointed
}

// Simulate advances the active bodies by dt, split in Substeps
func (s *Simulation) Simulate(dt float64, gravity mgl64.Vec3) {
	if s.destroyed || dt <= 0 {
		return
	}

	s.Workers = max(DEFAULT_WORKERS, s.Workers)
	s.Substeps = max(1, s.Substeps)
	h := dt / float64(s.Substeps)
	active := s.Bodies[:s.numActive]
	joints := s.activeJoints()

	for step := range s.Substeps {
		alpha := float64(step+1) / float64(s.Substeps)
		s.integrate(active, h, gravity, alpha)

		constraints := gatherConstraints(joints, s.detectCollision(active))
		solvePositions(constraints, h)
		s.update(active, h)
		solveVelocities(constraints, h)
	}

	for _, body := range active {
		body.EndStep()
	}
}

func (s *Simulation) activeJoints() []*constraint.Joint {
	joints := make([]*constraint.Joint, 0, len(s.Joints))
	for _, joint := range s.Joints {
		if s.IsActive(joint.BodyA) && s.IsActive(joint.BodyB) {
			joints = append(joints, joint)
		}
	}

	return joints
}

// gatherConstraints lists the joints first so contacts get the last word on penetration
func gatherConstraints(joints []*constraint.Joint, contacts []*constraint.ContactConstraint) []constraint.Constraint {
	constraints := make([]constraint.Constraint, 0, len(joints)+len(contacts))
	for _, joint := range joints {
		constraints = append(constraints, joint)
	}
	for _, contact := range contacts {
		constraints = append(constraints, contact)
	}

	return constraints
}

// solvePositions and solveVelocities run sequentially, constraints share bodies
func solvePositions(constraints []constraint.Constraint, h float64) {
	for _, c := range constraints {
		c.SolvePosition(h)
	}
}

func solveVelocities(constraints []constraint.Constraint, h float64) {
	for _, c := range constraints {
		c.SolveVelocity(h)
	}
}

func (s *Simulation) integrate(bodies []*actor.RigidBody, h float64, gravity mgl64.Vec3, alpha float64) {
	task(s.Workers, bodies, func(body *actor.RigidBody) {
		switch body.BodyType {
		case actor.BodyTypeDynamic:
			body.Integrate(h, gravity)
		case actor.BodyTypeKinematic:
			body.MoveKinematic(alpha)
		}
	})
}

func (s *Simulation) update(bodies []*actor.RigidBody, h float64) {
	task(s.Workers, bodies, func(body *actor.RigidBody) {
		body.Update(h)
	})
}

// Destroy releases every actor and joint, the simulation ignores any later call
func (s *Simulation) Destroy() {
	s.Bodies = nil
	s.Statics = nil
	s.Joints = nil
	s.numActive = 0
	clear(s.bodyIndex)
	clear(s.ignoredPairs)
	clear(s.jointPairs)
	clear(s.ignoredActors)
	s.destroyed = true
}
