package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// ContainsPoint checks if a point is inside the AABB
func (a AABB) ContainsPoint(point mgl64.Vec3) bool {
	return point.X() >= a.Min.X() && point.X() <= a.Max.X() &&
		point.Y() >= a.Min.Y() && point.Y() <= a.Max.Y() &&
		point.Z() >= a.Min.Z() && point.Z() <= a.Max.Z()
}

// Overlaps checks if two AABBs overlap
func (a AABB) Overlaps(other AABB) bool {
	return a.Max.X() >= other.Min.X() && a.Min.X() <= other.Max.X() &&
		a.Max.Y() >= other.Min.Y() && a.Min.Y() <= other.Max.Y() &&
		a.Max.Z() >= other.Min.Z() && a.Min.Z() <= other.Max.Z()
}

// Union returns the smallest AABB enclosing both boxes
func (a AABB) Union(other AABB) AABB {
	return AABB{
		Min: mgl64.Vec3{math.Min(a.Min[0], other.Min[0]), math.Min(a.Min[1], other.Min[1]), math.Min(a.Min[2], other.Min[2])},
		Max: mgl64.Vec3{math.Max(a.Max[0], other.Max[0]), math.Max(a.Max[1], other.Max[1]), math.Max(a.Max[2], other.Max[2])},
	}
}

// ClosestPoint clamps a point onto the box
func (a AABB) ClosestPoint(point mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{
		mgl64.Clamp(point[0], a.Min[0], a.Max[0]),
		mgl64.Clamp(point[1], a.Min[1], a.Max[1]),
		mgl64.Clamp(point[2], a.Min[2], a.Max[2]),
	}
}

// OverlapsSphere checks if a sphere touches the box
func (a AABB) OverlapsSphere(center mgl64.Vec3, radius float64) bool {
	d := a.ClosestPoint(center).Sub(center)
	return d.Dot(d) <= radius*radius
}

// Bounds is a bounding sphere
type Bounds struct {
	Center mgl64.Vec3
	Radius float64
}

// BoundsFromAABB returns the sphere circumscribing the box
func BoundsFromAABB(a AABB) Bounds {
	return Bounds{
		Center: a.Min.Add(a.Max).Mul(0.5),
		Radius: a.Max.Sub(a.Min).Len() * 0.5,
	}
}

// Contains reports whether other lies entirely inside b
func (b Bounds) Contains(other Bounds) bool {
	return other.Center.Sub(b.Center).Len()+other.Radius <= b.Radius
}

// Scale grows the radius by factor, keeping the center
func (b Bounds) Scale(factor float64) Bounds {
	return Bounds{Center: b.Center, Radius: b.Radius * factor}
}

func (b Bounds) AABB() AABB {
	r := mgl64.Vec3{b.Radius, b.Radius, b.Radius}
	return AABB{Min: b.Center.Sub(r), Max: b.Center.Add(r)}
}
