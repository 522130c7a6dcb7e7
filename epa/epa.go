// Package epa implements the Expanding Polytope Algorithm, run once gjk found an overlap.
//
// The polytope starts from the gjk simplex and grows toward the boundary of the Minkowski
// difference A - B until the face closest to the origin is a face of the difference itself.
// That face gives the contact normal, from A toward B, and the penetration depth. The contact
// points are then clipped from the features of both shapes, see GenerateManifold.
package epa

import (
	"errors"
	"math"

	"github.com/akmonengine/ragdoll/actor"
	"github.com/akmonengine/ragdoll/constraint"
	"github.com/akmonengine/ragdoll/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// MaxIterations bounds the expansion, the closest face found so far is kept past it
	MaxIterations = 64

	// ConvergenceTolerance is the distance a new support point must gain over the closest face
	// for the polytope to keep expanding
	ConvergenceTolerance = 1e-4

	// completionEpsilon is how far a support point must lie from the simplex to extend it
	completionEpsilon = 1e-9

	degenerateFaceArea = 1e-12
	visibilityEpsilon  = 1e-10

	polytopeInitialCapacity = 16
)

var (
	ErrDegenerate     = errors.New("epa: the Minkowski difference has no volume")
	ErrNotPenetrating = errors.New("epa: the shapes are only touching")
)

var axes = [6]mgl64.Vec3{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}}

// EPA computes the contact of two overlapping bodies from the simplex gjk.GJK left.
// The returned normal points from a toward b.
func EPA(a, b *actor.RigidBody, simplex *gjk.Simplex) (constraint.ContactConstraint, error) {
	if !completeSimplex(a, b, simplex) {
		return constraint.ContactConstraint{}, ErrDegenerate
	}

	p := polytopePool.Get().(*polytope)
	defer polytopePool.Put(p)
	p.reset()

	for i := range 4 {
		p.addPoint(simplex.Points[i])
	}
	p.addFace(0, 1, 2)
	p.addFace(0, 1, 3)
	p.addFace(0, 2, 3)
	p.addFace(1, 2, 3)

	var closest Face
	for range MaxIterations {
		closest = p.closestFace()
		if math.IsInf(closest.Distance, 1) {
			return constraint.ContactConstraint{}, ErrDegenerate
		}

		support := gjk.MinkowskiSupport(a, b, closest.Normal)
		if support.Dot(closest.Normal)-closest.Distance < ConvergenceTolerance {
			break
		}
		p.expand(support)
	}

	if closest.Distance <= 0 {
		return constraint.ContactConstraint{}, ErrNotPenetrating
	}

	return constraint.ContactConstraint{
		BodyA:  a,
		BodyB:  b,
		Normal: closest.Normal,
		Points: GenerateManifold(a, b, closest.Normal, closest.Distance),
	}, nil
}

// completeSimplex grows a simplex gjk stopped early, when the origin lies on one of its
// features, into a tetrahedron of the Minkowski difference
func completeSimplex(a, b *actor.RigidBody, simplex *gjk.Simplex) bool {
	if simplex.Count == 0 {
		simplex.Points[0] = gjk.MinkowskiSupport(a, b, axes[0])
		simplex.Count = 1
	}

	for simplex.Count < 4 {
		extended := false
		for _, direction := range completionDirections(simplex) {
			point := gjk.MinkowskiSupport(a, b, direction)
			if extends(simplex, point) {
				simplex.Points[simplex.Count] = point
				simplex.Count++
				extended = true
				break
			}
		}
		if !extended {
			return false
		}
	}

	return true
}

func completionDirections(simplex *gjk.Simplex) []mgl64.Vec3 {
	switch simplex.Count {
	case 1:
		return axes[:]
	case 2:
		line := simplex.Points[1].Sub(simplex.Points[0])
		// the axis the least aligned with the line
		axis := 0
		for i := 1; i < 3; i++ {
			if math.Abs(line[i]) < math.Abs(line[axis]) {
				axis = i
			}
		}
		u := line.Cross(axes[2*axis])
		v := line.Cross(u)
		return []mgl64.Vec3{u, u.Mul(-1), v, v.Mul(-1)}
	default:
		normal := simplex.Points[1].Sub(simplex.Points[0]).Cross(simplex.Points[2].Sub(simplex.Points[0]))
		return []mgl64.Vec3{normal, normal.Mul(-1)}
	}
}

// extends reports whether point lies off the affine hull of the simplex
func extends(simplex *gjk.Simplex, point mgl64.Vec3) bool {
	origin := simplex.Points[0]
	offset := point.Sub(origin)

	switch simplex.Count {
	case 1:
		return offset.Len() > completionEpsilon
	case 2:
		line := simplex.Points[1].Sub(origin)
		return offset.Cross(line).Len() > completionEpsilon*line.Len()
	default:
		normal := simplex.Points[1].Sub(origin).Cross(simplex.Points[2].Sub(origin))
		return math.Abs(offset.Dot(normal)) > completionEpsilon*normal.Len()
	}
}
