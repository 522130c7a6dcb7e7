package ragdoll

import (
	"sync"

	"github.com/akmonengine/ragdoll/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// RadialForce pushes the simulated bodies within Radius of Origin away from it.
// Origin is in world space.
type RadialForce struct {
	Origin   mgl64.Vec3
	Radius   float64
	Strength float64
	Falloff  actor.RadialFalloff
	// MassIndependent applies Strength as an acceleration instead of sharing it between bodies by mass
	MassIndependent bool
}

// forceQueue collects the forces requested between two evaluations
type forceQueue struct {
	mu      sync.Mutex
	pending []RadialForce
}

func (q *forceQueue) push(force RadialForce) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, force)
}

func (q *forceQueue) drain() []RadialForce {
	q.mu.Lock()
	defer q.mu.Unlock()
	forces := q.pending
	q.pending = nil
	return forces
}

func (q *forceQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// StrengthPerBody shares strength between the bodies of a ragdoll weighing totalMass,
// the heavier bodies taking the larger part
func StrengthPerBody(strength, totalMass, inverseMass float64) float64 {
	if totalMass <= 0 || inverseMass <= 0 {
		return 0
	}
	return strength / (totalMass * inverseMass)
}

// applyForces adds the external force and the radial forces to the active simulated bodies.
// Nothing is applied to a ragdoll without mass.
func applyForces(bodies []Body, numActive int, totalMass float64, frame SpaceFrame, external mgl64.Vec3, radial []RadialForce) {
	if totalMass <= 0 {
		return
	}

	externalSim := ConvertWorldVectorToSim(frame, external)
	hasExternal := external.LenSqr() > 0

	for i := 0; i < numActive && i < len(bodies); i++ {
		body := bodies[i]
		if !body.Simulated {
			continue
		}
		inverseMass := body.Actor.GetInverseMass()

		if hasExternal {
			body.Actor.AddForce(externalSim.Mul(StrengthPerBody(1.0, totalMass, inverseMass)))
		}

		for _, force := range radial {
			origin := ConvertWorldPositionToSim(frame, force.Origin)
			if force.MassIndependent {
				body.Actor.AddRadialForce(origin, force.Strength, force.Radius, force.Falloff, actor.ForceModeAcceleration)
				continue
			}
			body.Actor.AddRadialForce(origin, StrengthPerBody(force.Strength, totalMass, inverseMass), force.Radius, force.Falloff, actor.ForceModeForce)
		}
	}
}
