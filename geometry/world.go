// Package geometry holds the static collision geometry of a scene and answers overlap queries.
//
// A World is safe for concurrent use: queries share a read lock held for the duration of
// one query only, additions and removals take the write lock.
package geometry

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/akmonengine/ragdoll/actor"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	DEFAULT_CELL_SIZE = 100.0
	DEFAULT_NUM_CELLS = 1024

	// AllChannels matches every collider
	AllChannels uint32 = 0xFFFFFFFF
)

var (
	ErrNilShape          = errors.New("geometry: collider has no shape")
	ErrDuplicateCollider = errors.New("geometry: collider id already registered")
)

type ColliderID uint64

// Collider is a piece of static world geometry.
// Channel is a bitmask, a query only returns colliders sharing one of its bits.
type Collider struct {
	ID        ColliderID
	Shape     actor.ShapeInterface
	Transform actor.Transform
	Channel   uint32
	Material  actor.Material
}

// Setup returns the body setup to register the collider as a static actor
func (c Collider) Setup() actor.BodySetup {
	return actor.BodySetup{Shape: c.Shape, Material: c.Material}
}

type entry struct {
	collider Collider
	aabb     actor.AABB
}

type World struct {
	mu        sync.RWMutex
	grid      *spatialGrid
	colliders map[ColliderID]entry
}

func NewWorld(cellSize float64, numCells int) *World {
	if cellSize <= 0 {
		cellSize = DEFAULT_CELL_SIZE
	}
	if numCells <= 0 {
		numCells = DEFAULT_NUM_CELLS
	}

	return &World{
		grid:      newSpatialGrid(cellSize, numCells),
		colliders: make(map[ColliderID]entry),
	}
}

// Add registers a collider, its shape is copied so the caller may reuse it
func (w *World) Add(collider Collider) error {
	if collider.Shape == nil {
		return fmt.Errorf("collider %d: %w", collider.ID, ErrNilShape)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.colliders[collider.ID]; ok {
		return fmt.Errorf("collider %d: %w", collider.ID, ErrDuplicateCollider)
	}

	collider.Shape = collider.Shape.Clone()
	collider.Transform = actor.NewTransformFrom(collider.Transform.Position, collider.Transform.Rotation)
	collider.Shape.ComputeAABB(collider.Transform)
	aabb := collider.Shape.GetAABB()

	w.colliders[collider.ID] = entry{collider: collider, aabb: aabb}
	w.grid.insert(collider.ID, aabb)

	return nil
}

// Remove unregisters a collider, it returns false when the id is unknown
func (w *World) Remove(id ColliderID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.colliders[id]
	if !ok {
		return false
	}
	w.grid.remove(id, e.aabb)
	delete(w.colliders, id)

	return true
}

func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return len(w.colliders)
}

// OverlapSphere returns the colliders whose bounds touch the sphere and share a bit with channel,
// sorted by id. The returned colliders are copies owning their shapes.
func (w *World) OverlapSphere(center mgl64.Vec3, radius float64, channel uint32) []Collider {
	query := actor.Bounds{Center: center, Radius: radius}

	w.mu.RLock()
	defer w.mu.RUnlock()

	var result []Collider
	for _, id := range w.grid.candidates(query.AABB()) {
		e := w.colliders[id]
		if e.collider.Channel&channel == 0 {
			continue
		}
		if !w.touches(e, center, radius) {
			continue
		}

		c := e.collider
		c.Shape = c.Shape.Clone()
		result = append(result, c)
	}

	slices.SortFunc(result, func(a, b Collider) int {
		return cmp.Compare(a.ID, b.ID)
	})

	return result
}

func (w *World) touches(e entry, center mgl64.Vec3, radius float64) bool {
	if plane, ok := e.collider.Shape.(*actor.Plane); ok {
		return plane.SignedDistance(e.collider.Transform, center) <= radius
	}

	return e.aabb.OverlapsSphere(center, radius)
}
