package epa

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// Face is a triangle of the polytope, its normal points away from the polytope interior
type Face struct {
	A, B, C  int
	Normal   mgl64.Vec3
	Distance float64
}

type edge struct {
	a, b int
}

// polytope is a convex hull of Minkowski difference points holding the origin
type polytope struct {
	points []mgl64.Vec3
	faces  []Face
	edges  []edge
	sum    mgl64.Vec3
}

var polytopePool = sync.Pool{
	New: func() interface{} {
		return &polytope{
			points: make([]mgl64.Vec3, 0, polytopeInitialCapacity),
			faces:  make([]Face, 0, 2*polytopeInitialCapacity),
			edges:  make([]edge, 0, polytopeInitialCapacity),
		}
	},
}

func (p *polytope) reset() {
	p.points = p.points[:0]
	p.faces = p.faces[:0]
	p.edges = p.edges[:0]
	p.sum = mgl64.Vec3{}
}

func (p *polytope) addPoint(point mgl64.Vec3) int {
	p.points = append(p.points, point)
	p.sum = p.sum.Add(point)

	return len(p.points) - 1
}

// center is strictly inside the hull once it spans a volume
func (p *polytope) center() mgl64.Vec3 {
	return p.sum.Mul(1 / float64(len(p.points)))
}

// addFace orients the triangle away from the polytope center.
// A sliver keeps its place in the hull but is never the closest face.
func (p *polytope) addFace(a, b, c int) {
	pa, pb, pc := p.points[a], p.points[b], p.points[c]
	normal := pb.Sub(pa).Cross(pc.Sub(pa))
	length := normal.Len()
	if length < degenerateFaceArea {
		p.faces = append(p.faces, Face{A: a, B: b, C: c, Distance: math.Inf(1)})
		return
	}

	normal = normal.Mul(1 / length)
	if normal.Dot(pa.Sub(p.center())) < 0 {
		normal = normal.Mul(-1)
		b, c = c, b
	}

	p.faces = append(p.faces, Face{A: a, B: b, C: c, Normal: normal, Distance: normal.Dot(pa)})
}

func (p *polytope) closestFace() Face {
	closest := p.faces[0]
	for _, face := range p.faces[1:] {
		if face.Distance < closest.Distance {
			closest = face
		}
	}

	return closest
}

// expand adds support to the hull: the faces it can see are replaced by a fan joining their
// silhouette to it
func (p *polytope) expand(support mgl64.Vec3) {
	index := p.addPoint(support)

	p.edges = p.edges[:0]
	kept := p.faces[:0]
	for _, face := range p.faces {
		if face.Normal.Dot(support.Sub(p.points[face.A])) > visibilityEpsilon {
			p.toggleEdge(face.A, face.B)
			p.toggleEdge(face.B, face.C)
			p.toggleEdge(face.C, face.A)
			continue
		}
		kept = append(kept, face)
	}
	p.faces = kept

	for _, e := range p.edges {
		p.addFace(e.a, e.b, index)
	}
}

// toggleEdge keeps the edges seen once, those shared by two visible faces are interior
func (p *polytope) toggleEdge(a, b int) {
	for i, e := range p.edges {
		if (e.a == a && e.b == b) || (e.a == b && e.b == a) {
			last := len(p.edges) - 1
			p.edges[i] = p.edges[last]
			p.edges = p.edges[:last]
			return
		}
	}
	p.edges = append(p.edges, edge{a: a, b: b})
}
