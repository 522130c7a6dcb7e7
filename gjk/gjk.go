// Package gjk implements the Gilbert-Johnson-Keerthi overlap test between two convex bodies.
//
// Two shapes overlap when their Minkowski difference A - B contains the origin. GJK grows a
// simplex of support points of that difference toward the origin, and stops as soon as the
// simplex encloses it or a support point proves that the origin cannot be reached.
//
// Shapes only provide a support function, see actor.RigidBody.SupportWorld.
package gjk

import (
	"sync"

	"github.com/akmonengine/ragdoll/actor"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// MaxIterations bounds the search, convex shapes usually settle in less than 10
	MaxIterations = 32

	// degenerateLenSqr is the squared length under which a search direction is treated as zero,
	// the origin then lies on the simplex
	degenerateLenSqr = 1e-18
)

// Simplex holds 1 to 4 points of the Minkowski difference, the newest first
type Simplex struct {
	Points [4]mgl64.Vec3
	Count  int
}

func (s *Simplex) Reset() {
	s.Count = 0
}

// push inserts point as the newest one
func (s *Simplex) push(point mgl64.Vec3) {
	copy(s.Points[1:], s.Points[:3])
	s.Points[0] = point
	s.Count = min(s.Count+1, len(s.Points))
}

func (s *Simplex) set(points ...mgl64.Vec3) {
	s.Count = copy(s.Points[:], points)
}

var SimplexPool = sync.Pool{
	New: func() interface{} {
		return &Simplex{}
	},
}

// MinkowskiSupport is the farthest point of A - B along direction
func MinkowskiSupport(a, b *actor.RigidBody, direction mgl64.Vec3) mgl64.Vec3 {
	return a.SupportWorld(direction).Sub(b.SupportWorld(direction.Mul(-1)))
}

// GJK reports whether a and b overlap. When they do, simplex encloses the origin, or holds it
// on one of its features when the shapes are barely touching; EPA starts from it.
func GJK(a, b *actor.RigidBody, simplex *Simplex) bool {
	direction := b.Transform.Position.Sub(a.Transform.Position)
	if direction.LenSqr() < degenerateLenSqr {
		direction = mgl64.Vec3{1, 0, 0}
	}

	simplex.Reset()
	simplex.push(MinkowskiSupport(a, b, direction))
	direction = simplex.Points[0].Mul(-1)

	for range MaxIterations {
		if direction.LenSqr() < degenerateLenSqr {
			return true
		}

		point := MinkowskiSupport(a, b, direction)
		// the farthest point does not pass the origin: A - B cannot contain it
		if point.Dot(direction) <= 0 {
			return false
		}

		simplex.push(point)
		if nextSimplex(simplex, &direction) {
			return true
		}
	}

	return false
}

// nextSimplex keeps the feature of the simplex closest to the origin and points direction
// from it toward the origin. It returns true once a tetrahedron encloses the origin.
func nextSimplex(simplex *Simplex, direction *mgl64.Vec3) bool {
	switch simplex.Count {
	case 2:
		return line(simplex, direction)
	case 3:
		return triangle(simplex, direction)
	case 4:
		return tetrahedron(simplex, direction)
	}

	return false
}

func sameDirection(a, b mgl64.Vec3) bool {
	return a.Dot(b) > 0
}

func line(simplex *Simplex, direction *mgl64.Vec3) bool {
	a, b := simplex.Points[0], simplex.Points[1]
	ab := b.Sub(a)
	ao := a.Mul(-1)

	if sameDirection(ab, ao) {
		*direction = ab.Cross(ao).Cross(ab)
	} else {
		simplex.set(a)
		*direction = ao
	}

	return false
}

// triangle keeps the winding of the simplex so that its normal faces the origin,
// the tetrahedron test relies on it
func triangle(simplex *Simplex, direction *mgl64.Vec3) bool {
	a, b, c := simplex.Points[0], simplex.Points[1], simplex.Points[2]
	ab := b.Sub(a)
	ac := c.Sub(a)
	ao := a.Mul(-1)
	abc := ab.Cross(ac)

	if abc.LenSqr() < degenerateLenSqr {
		// collinear points
		simplex.set(a, b)
		return line(simplex, direction)
	}

	if sameDirection(abc.Cross(ac), ao) {
		if sameDirection(ac, ao) {
			simplex.set(a, c)
			*direction = ac.Cross(ao).Cross(ac)
			return false
		}
		simplex.set(a, b)
		return line(simplex, direction)
	}

	if sameDirection(ab.Cross(abc), ao) {
		simplex.set(a, b)
		return line(simplex, direction)
	}

	if sameDirection(abc, ao) {
		*direction = abc
	} else {
		simplex.set(a, c, b)
		*direction = abc.Mul(-1)
	}

	return false
}

func tetrahedron(simplex *Simplex, direction *mgl64.Vec3) bool {
	a, b, c, d := simplex.Points[0], simplex.Points[1], simplex.Points[2], simplex.Points[3]
	ab := b.Sub(a)
	ac := c.Sub(a)
	ad := d.Sub(a)
	ao := a.Mul(-1)

	// outward normals of the faces holding the newest point
	abc := ab.Cross(ac)
	acd := ac.Cross(ad)
	adb := ad.Cross(ab)

	if sameDirection(abc, ao) {
		simplex.set(a, b, c)
		return triangle(simplex, direction)
	}
	if sameDirection(acd, ao) {
		simplex.set(a, c, d)
		return triangle(simplex, direction)
	}
	if sameDirection(adb, ao) {
		simplex.set(a, d, b)
		return triangle(simplex, direction)
	}

	return true
}
