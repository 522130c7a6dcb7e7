package immediate

import (
	"math"

	"github.com/akmonengine/ragdoll/actor"
	"github.com/akmonengine/ragdoll/constraint"
	"github.com/akmonengine/ragdoll/epa"
	"github.com/akmonengine/ragdoll/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

// Collide returns the contact between two bodies, nil when they are apart.
// The returned constraint may swap the bodies, its normal always points from its BodyA to its BodyB.
func Collide(bodyA, bodyB *actor.RigidBody) *constraint.ContactConstraint {
	switch shapeA := bodyA.Shape.(type) {
	case *actor.Plane:
		return collidePlane(bodyA, shapeA, bodyB)
	case *actor.Sphere:
		switch shapeB := bodyB.Shape.(type) {
		case *actor.Plane:
			return collidePlane(bodyB, shapeB, bodyA)
		case *actor.Sphere:
			return collideSpheres(bodyA, shapeA, bodyB, shapeB)
		case *actor.Box:
			return collideSphereBox(bodyA, shapeA, bodyB, shapeB)
		}
	case *actor.Box:
		switch shapeB := bodyB.Shape.(type) {
		case *actor.Plane:
			return collidePlane(bodyB, shapeB, bodyA)
		case *actor.Sphere:
			return collideSphereBox(bodyB, shapeB, bodyA, shapeA)
		case *actor.Box:
			return collideConvex(bodyA, bodyB)
		}
	}

	return nil
}

func collidePlane(planeBody *actor.RigidBody, plane *actor.Plane, object *actor.RigidBody) *constraint.ContactConstraint {
	normal, _ := plane.WorldPlane(planeBody.Transform)

	var points []constraint.ContactPoint
	switch shape := object.Shape.(type) {
	case *actor.Sphere:
		center := object.Transform.Position
		penetration := shape.Radius - plane.SignedDistance(planeBody.Transform, center)
		if penetration > 0 {
			points = append(points, constraint.ContactPoint{
				Position:    center.Sub(normal.Mul(shape.Radius)),
				Penetration: penetration,
			})
		}
	case *actor.Box:
		for _, corner := range shape.Corners(object.Transform) {
			if distance := plane.SignedDistance(planeBody.Transform, corner); distance < 0 {
				points = append(points, constraint.ContactPoint{Position: corner, Penetration: -distance})
			}
		}
	}

	if len(points) == 0 {
		return nil
	}
	return &constraint.ContactConstraint{BodyA: planeBody, BodyB: object, Normal: normal, Points: points}
}

func collideSpheres(bodyA *actor.RigidBody, a *actor.Sphere, bodyB *actor.RigidBody, b *actor.Sphere) *constraint.ContactConstraint {
	delta := bodyB.Transform.Position.Sub(bodyA.Transform.Position)
	distance := delta.Len()
	penetration := a.Radius + b.Radius - distance
	if penetration <= 0 {
		return nil
	}

	normal := mgl64.Vec3{0, 0, 1}
	if distance > 1e-9 {
		normal = delta.Mul(1 / distance)
	}

	return &constraint.ContactConstraint{
		BodyA:  bodyA,
		BodyB:  bodyB,
		Normal: normal,
		Points: []constraint.ContactPoint{{
			Position:    bodyA.Transform.Position.Add(normal.Mul(a.Radius - penetration/2)),
			Penetration: penetration,
		}},
	}
}

// collideSphereBox returns a contact from the box toward the sphere
func collideSphereBox(sphereBody *actor.RigidBody, sphere *actor.Sphere, boxBody *actor.RigidBody, box *actor.Box) *constraint.ContactConstraint {
	center := boxBody.Transform.InverseTransformPoint(sphereBody.Transform.Position)
	halfExtents := box.HalfExtents
	local := actor.AABB{Min: halfExtents.Mul(-1), Max: halfExtents}
	closest := local.ClosestPoint(center)

	var localNormal, localPoint mgl64.Vec3
	var penetration float64

	if closest == center {
		// center inside the box: leave through the nearest face
		axis, faceDistance := 0, math.Inf(1)
		for i := range 3 {
			if d := halfExtents[i] - math.Abs(center[i]); d < faceDistance {
				axis, faceDistance = i, d
			}
		}
		sign := math.Copysign(1, center[axis])
		localNormal[axis] = sign
		localPoint = center
		localPoint[axis] = sign * halfExtents[axis]
		penetration = sphere.Radius + faceDistance
	} else {
		delta := center.Sub(closest)
		distance := delta.Len()
		penetration = sphere.Radius - distance
		if penetration <= 0 {
			return nil
		}
		localNormal = delta.Mul(1 / distance)
		localPoint = closest
	}

	return &constraint.ContactConstraint{
		BodyA:  boxBody,
		BodyB:  sphereBody,
		Normal: boxBody.Transform.TransformVector(localNormal),
		Points: []constraint.ContactPoint{{
			Position:    boxBody.Transform.TransformPoint(localPoint),
			Penetration: penetration,
		}},
	}
}

// collideConvex runs GJK then EPA, the contact keeps bodyA first
func collideConvex(bodyA, bodyB *actor.RigidBody) *constraint.ContactConstraint {
	simplex := gjk.SimplexPool.Get().(*gjk.Simplex)
	defer gjk.SimplexPool.Put(simplex)
	simplex.Reset()

	if !gjk.GJK(bodyA, bodyB, simplex) {
		return nil
	}
	contact, err := epa.EPA(bodyA, bodyB, simplex)
	if err != nil {
		return nil
	}

	return &contact
}
