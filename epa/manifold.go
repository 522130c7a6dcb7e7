package epa

import (
	"math"
	"slices"

	"github.com/akmonengine/ragdoll/actor"
	"github.com/akmonengine/ragdoll/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	maxManifoldPoints = 4
	clipTolerance     = 1e-9
)

// GenerateManifold returns the contact points of two bodies penetrating by depth along normal,
// from bodyA toward bodyB.
//
// The feature with the most vertices is the reference, the other one, the incident feature,
// is clipped by the side planes of the reference (Sutherland-Hodgman). The clipped vertices
// below the reference plane are the contact points, each with its own penetration.
func GenerateManifold(bodyA, bodyB *actor.RigidBody, normal mgl64.Vec3, depth float64) []constraint.ContactPoint {
	featureA := bodyA.ContactFeatureWorld(normal)
	featureB := bodyB.ContactFeatureWorld(normal.Mul(-1))

	// referenceNormal points out of the reference body
	reference, incident, referenceNormal := featureA, featureB, normal
	if len(featureB) > len(featureA) {
		reference, incident, referenceNormal = featureB, featureA, normal.Mul(-1)
	}

	var points []constraint.ContactPoint
	if len(reference) > 0 && len(incident) > 0 {
		offset := math.Inf(-1)
		for _, vertex := range reference {
			offset = math.Max(offset, vertex.Dot(referenceNormal))
		}

		for _, vertex := range clipIncident(incident, reference, normal) {
			if penetration := offset - vertex.Dot(referenceNormal); penetration >= 0 {
				points = append(points, constraint.ContactPoint{Position: vertex, Penetration: penetration})
			}
		}
	}

	if len(points) == 0 {
		return []constraint.ContactPoint{{
			Position:    bodyB.SupportWorld(normal.Mul(-1)),
			Penetration: depth,
		}}
	}

	return reduce(points, normal)
}

// clipIncident trims the incident polygon to the prism spanned by the reference face along normal
func clipIncident(incident, reference []mgl64.Vec3, normal mgl64.Vec3) []mgl64.Vec3 {
	if len(reference) < 3 {
		return incident
	}

	center := centroid(reference)
	output := incident
	for i, v1 := range reference {
		if len(output) == 0 {
			break
		}
		v2 := reference[(i+1)%len(reference)]

		planeNormal := v2.Sub(v1).Cross(normal)
		length := planeNormal.Len()
		if length < clipTolerance {
			continue
		}
		planeNormal = planeNormal.Mul(1 / length)
		if planeNormal.Dot(center.Sub(v1)) < 0 {
			planeNormal = planeNormal.Mul(-1)
		}

		output = clipPolygon(output, v1, planeNormal)
	}

	return output
}

// clipPolygon keeps the part of polygon on the side of the plane its normal points to
func clipPolygon(polygon []mgl64.Vec3, planePoint, planeNormal mgl64.Vec3) []mgl64.Vec3 {
	if len(polygon) == 1 {
		if polygon[0].Sub(planePoint).Dot(planeNormal) >= -clipTolerance {
			return polygon
		}
		return nil
	}

	output := make([]mgl64.Vec3, 0, len(polygon)+1)
	for i, current := range polygon {
		next := polygon[(i+1)%len(polygon)]
		currentDistance := current.Sub(planePoint).Dot(planeNormal)
		nextDistance := next.Sub(planePoint).Dot(planeNormal)

		if currentDistance >= -clipTolerance {
			output = append(output, current)
		}
		if (currentDistance >= -clipTolerance) != (nextDistance >= -clipTolerance) {
			t := currentDistance / (currentDistance - nextDistance)
			output = append(output, current.Add(next.Sub(current).Mul(t)))
		}
	}

	return output
}

func centroid(points []mgl64.Vec3) mgl64.Vec3 {
	var sum mgl64.Vec3
	for _, p := range points {
		sum = sum.Add(p)
	}

	return sum.Mul(1 / float64(len(points)))
}

func tangentBasis(normal mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	tangent := mgl64.Vec3{1, 0, 0}
	if math.Abs(normal.X()) > 0.9 {
		tangent = mgl64.Vec3{0, 1, 0}
	}
	tangent = tangent.Sub(normal.Mul(tangent.Dot(normal))).Normalize()

	return tangent, normal.Cross(tangent).Normalize()
}

// reduce keeps the points at the extremes of the contact plane
func reduce(points []constraint.ContactPoint, normal mgl64.Vec3) []constraint.ContactPoint {
	if len(points) <= maxManifoldPoints {
		return points
	}

	tangent1, tangent2 := tangentBasis(normal)
	var extremes [maxManifoldPoints]int
	for i, point := range points {
		x, y := point.Position.Dot(tangent1), point.Position.Dot(tangent2)
		if x < points[extremes[0]].Position.Dot(tangent1) {
			extremes[0] = i
		}
		if x > points[extremes[1]].Position.Dot(tangent1) {
			extremes[1] = i
		}
		if y < points[extremes[2]].Position.Dot(tangent2) {
			extremes[2] = i
		}
		if y > points[extremes[3]].Position.Dot(tangent2) {
			extremes[3] = i
		}
	}

	reduced := make([]constraint.ContactPoint, 0, maxManifoldPoints)
	for i, index := range extremes {
		if !slices.Contains(extremes[:i], index) {
			reduced = append(reduced, points[index])
		}
	}

	return reduced
}
