package immediate

import (
	"github.com/akmonengine/ragdoll/actor"
	"github.com/akmonengine/ragdoll/constraint"
)

// CollisionPair represents a pair of rigid bodies that potentially collide
type CollisionPair struct {
	BodyA   *actor.RigidBody
	BodyB   *actor.RigidBody
	contact *constraint.ContactConstraint
}

// BroadPhase returns the pairs whose AABBs overlap: every active body against the active bodies
// inserted after it, and every active dynamic body against the static actors.
// Pairs without a dynamic body, ignored actors and ignored pairs are skipped.
// This is an O(n²) approach, a ragdoll only holds a few dozen bodies.
func (s *Simulation) BroadPhase(active []*actor.RigidBody) []*CollisionPair {
	pairs := make([]*CollisionPair, 0, len(active))

	for i, bodyA := range active {
		for _, bodyB := range active[i+1:] {
			if !bodyA.IsDynamic() && !bodyB.IsDynamic() {
				continue
			}
			if s.canCollide(bodyA, bodyB) && bodyA.Shape.GetAABB().Overlaps(bodyB.Shape.GetAABB()) {
				pairs = append(pairs, &CollisionPair{BodyA: bodyA, BodyB: bodyB})
			}
		}

		if !bodyA.IsDynamic() {
			continue
		}
		for _, static := range s.Statics {
			if s.canCollide(bodyA, static) && bodyA.Shape.GetAABB().Overlaps(static.Shape.GetAABB()) {
				pairs = append(pairs, &CollisionPair{BodyA: static, BodyB: bodyA})
			}
		}
	}

	return pairs
}

// NarrowPhase builds the contact constraints of the colliding pairs, in the pairs order
func NarrowPhase(pairs []*CollisionPair, workersCount int) []*constraint.ContactConstraint {
	task(workersCount, pairs, func(pair *CollisionPair) {
		pair.contact = Collide(pair.BodyA, pair.BodyB)
	})

	contacts := make([]*constraint.ContactConstraint, 0, len(pairs))
	for _, pair := range pairs {
		if pair.contact != nil {
			contacts = append(contacts, pair.contact)
		}
	}

	return contacts
}

func (s *Simulation) detectCollision(active []*actor.RigidBody) []*constraint.ContactConstraint {
	return NarrowPhase(s.BroadPhase(active), s.Workers)
}
