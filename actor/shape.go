package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ShapeType represents the type of collision shape
type ShapeType int

const (
	ShapeTypeSphere ShapeType = iota
	ShapeTypeBox
	ShapeTypePlane
)

// ShapeInterface is the interface that all collision shapes must implement
type ShapeInterface interface {
	Type() ShapeType
	// ComputeAABB calculates the axis-aligned bounding box for the shape
	// at the given transform
	ComputeAABB(transform Transform)
	GetAABB() AABB
	// ComputeMass calculates the mass of the shape given a density
	ComputeMass(density float64) float64
	ComputeInertia(mass float64) mgl64.Mat3
	Support(direction mgl64.Vec3) mgl64.Vec3
	// ContactFeature returns the local vertices of the feature facing direction, in winding order.
	// A box gives a face, a sphere a single point, a plane nothing.
	ContactFeature(direction mgl64.Vec3) []mgl64.Vec3
	// Clone returns a copy carrying its own cached AABB, shapes are shared by templates
	// but every actor owns its instance
	Clone() ShapeInterface
}

// Box represents an oriented box collision shape
// The box is defined by its half-extents (half-width, half-height, half-depth)
type Box struct {
	HalfExtents mgl64.Vec3
	aabb        AABB
}

func (b *Box) Type() ShapeType { return ShapeTypeBox }

// ComputeAABB projects the half extents on the world axes through the absolute rotation matrix
func (b *Box) ComputeAABB(transform Transform) {
	r := transform.rotation().Mat4().Mat3()
	var extent mgl64.Vec3
	for row := 0; row < 3; row++ {
		extent[row] = math.Abs(r.At(row, 0))*b.HalfExtents[0] +
			math.Abs(r.At(row, 1))*b.HalfExtents[1] +
			math.Abs(r.At(row, 2))*b.HalfExtents[2]
	}

	b.aabb = AABB{Min: transform.Position.Sub(extent), Max: transform.Position.Add(extent)}
}

func (b *Box) GetAABB() AABB {
	return b.aabb
}

// ComputeMass calculates mass data for the box
func (b *Box) ComputeMass(density float64) float64 {
	// Volume = 8 * hx * hy * hz (full dimensions are 2*halfExtents)
	return density * 8.0 * b.HalfExtents.X() * b.HalfExtents.Y() * b.HalfExtents.Z()
}

func (b *Box) ComputeInertia(mass float64) mgl64.Mat3 {
	x := b.HalfExtents.X() * 2
	y := b.HalfExtents.Y() * 2
	z := b.HalfExtents.Z() * 2

	// I = (m/12) * (d1² + d2²)
	factor := mass / 12.0
	return mgl64.Diag3(mgl64.Vec3{
		factor * (y*y + z*z),
		factor * (x*x + z*z),
		factor * (x*x + y*y),
	})
}

func (b *Box) Support(direction mgl64.Vec3) mgl64.Vec3 {
	support := b.HalfExtents
	for i := range 3 {
		if direction[i] < 0 {
			support[i] = -support[i]
		}
	}

	return support
}

// ContactFeature returns the face whose normal is the closest to direction
func (b *Box) ContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	axis := 0
	for i := 1; i < 3; i++ {
		if math.Abs(direction[i]) > math.Abs(direction[axis]) {
			axis = i
		}
	}
	sign := math.Copysign(1, direction[axis])
	j, k := (axis+1)%3, (axis+2)%3

	face := make([]mgl64.Vec3, 0, 4)
	for _, corner := range [4][2]float64{{1, 1}, {-1, 1}, {-1, -1}, {1, -1}} {
		var vertex mgl64.Vec3
		vertex[axis] = sign * b.HalfExtents[axis]
		vertex[j] = corner[0] * b.HalfExtents[j]
		vertex[k] = corner[1] * b.HalfExtents[k]
		face = append(face, vertex)
	}

	return face
}

// Corners returns the 8 box vertices in world space
func (b *Box) Corners(transform Transform) [8]mgl64.Vec3 {
	var corners [8]mgl64.Vec3
	for i := range corners {
		local := b.HalfExtents
		if i&1 != 0 {
			local[0] = -local[0]
		}
		if i&2 != 0 {
			local[1] = -local[1]
		}
		if i&4 != 0 {
			local[2] = -local[2]
		}
		corners[i] = transform.TransformPoint(local)
	}

	return corners
}

func (b *Box) Clone() ShapeInterface {
	return &Box{HalfExtents: b.HalfExtents}
}

// Sphere represents a spherical collision shape
type Sphere struct {
	Radius float64
	aabb   AABB
}

func (s *Sphere) Type() ShapeType { return ShapeTypeSphere }

// ComputeAABB calculates the axis-aligned bounding box for the sphere, rotation has no effect
func (s *Sphere) ComputeAABB(transform Transform) {
	s.aabb = Bounds{Center: transform.Position, Radius: s.Radius}.AABB()
}

func (s *Sphere) GetAABB() AABB {
	return s.aabb
}

// ComputeMass calculates mass data for the sphere
func (s *Sphere) ComputeMass(density float64) float64 {
	return density * (4.0 / 3.0) * math.Pi * s.Radius * s.Radius * s.Radius
}

func (s *Sphere) ComputeInertia(mass float64) mgl64.Mat3 {
	// I = (2/5) * m * r² on every axis
	i := (2.0 / 5.0) * mass * s.Radius * s.Radius

	return mgl64.Diag3(mgl64.Vec3{i, i, i})
}

func (s *Sphere) Support(direction mgl64.Vec3) mgl64.Vec3 {
	if direction.Len() == 0 {
		return mgl64.Vec3{s.Radius, 0, 0}
	}
	return direction.Normalize().Mul(s.Radius)
}

func (s *Sphere) ContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	return []mgl64.Vec3{s.Support(direction)}
}

func (s *Sphere) Clone() ShapeInterface {
	return &Sphere{Radius: s.Radius}
}

// Plane represents an infinite plane collision shape
// The plane is defined in its local frame by: Normal · p + Distance = 0
// where Normal is the plane's normal vector (must be normalized)
type Plane struct {
	Normal   mgl64.Vec3
	Distance float64
	aabb     AABB
}

func (p *Plane) Type() ShapeType { return ShapeTypePlane }

// planeExtent stands for infinity in the plane AABB
const planeExtent = 1e10

// ComputeAABB returns an unbounded box, planes are tested against every body
func (p *Plane) ComputeAABB(transform Transform) {
	p.aabb = AABB{
		Min: mgl64.Vec3{-planeExtent, -planeExtent, -planeExtent},
		Max: mgl64.Vec3{planeExtent, planeExtent, planeExtent},
	}
}

func (p *Plane) GetAABB() AABB {
	return p.aabb
}

// ComputeMass is infinite, planes are always static
func (p *Plane) ComputeMass(density float64) float64 {
	return math.Inf(1)
}

func (p *Plane) ComputeInertia(mass float64) mgl64.Mat3 {
	return mgl64.Mat3{}
}

func (p *Plane) Support(direction mgl64.Vec3) mgl64.Vec3 {
	return direction.Mul(planeExtent)
}

// ContactFeature is empty, plane contacts are computed against the plane equation
func (p *Plane) ContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	return nil
}

// WorldPlane returns the world normal and the signed distance function offset of the plane
func (p *Plane) WorldPlane(transform Transform) (mgl64.Vec3, float64) {
	normal := transform.TransformVector(p.Normal).Normalize()
	return normal, p.Distance - normal.Dot(transform.Position)
}

// SignedDistance of a world point to the plane, negative below
func (p *Plane) SignedDistance(transform Transform, point mgl64.Vec3) float64 {
	normal, d := p.WorldPlane(transform)
	return normal.Dot(point) + d
}

func (p *Plane) Clone() ShapeInterface {
	return &Plane{Normal: p.Normal, Distance: p.Distance}
}
