package ragdoll

import (
	"github.com/akmonengine/ragdoll/actor"
	"github.com/akmonengine/ragdoll/config"
	"github.com/akmonengine/ragdoll/geometry"
)

// GeometryHandoff carries the result of a world overlap query from Update to Evaluate.
// It holds copies of the colliders, never the world itself.
type GeometryHandoff struct {
	Bounds    actor.Bounds
	Colliders []geometry.Collider
}

// WorldGeometryCache avoids querying the world every frame. A query is only issued when the
// character leaves CachedBounds, a scaled up copy of its bounds at the time of the last query.
type WorldGeometryCache struct {
	Bounds       actor.Bounds
	CachedBounds actor.Bounds

	scale    float64
	valid    bool
	queries  int
	inserted map[geometry.ColliderID]*actor.RigidBody
}

func NewWorldGeometryCache(scale float64) *WorldGeometryCache {
	return &WorldGeometryCache{
		scale:    config.ClampBoundsScale(scale),
		inserted: make(map[geometry.ColliderID]*actor.RigidBody),
	}
}

func (c *WorldGeometryCache) Scale() float64 {
	return c.scale
}

// NeedsQuery records bounds as the current character bounds and reports whether a new
// overlap query must be issued, in which case CachedBounds is grown around bounds
func (c *WorldGeometryCache) NeedsQuery(bounds actor.Bounds) bool {
	c.Bounds = bounds
	if c.valid && c.CachedBounds.Contains(bounds) {
		return false
	}

	c.CachedBounds = bounds.Scale(c.scale)
	c.valid = true
	c.queries++

	return true
}

// Queries is the number of overlap queries issued since the last reset
func (c *WorldGeometryCache) Queries() int {
	return c.queries
}

// Integrate registers the colliders not seen yet as static actors of sim.
// Colliders are never removed, even when they leave the cached bounds.
func (c *WorldGeometryCache) Integrate(sim Simulation, colliders []geometry.Collider) int {
	added := 0
	for _, collider := range colliders {
		if _, ok := c.inserted[collider.ID]; ok {
			continue
		}
		body := sim.CreateStaticActor(collider.Setup(), collider.Transform)
		if body == nil {
			continue
		}
		c.inserted[collider.ID] = body
		added++
	}

	return added
}

func (c *WorldGeometryCache) IsInserted(id geometry.ColliderID) bool {
	_, ok := c.inserted[id]
	return ok
}

func (c *WorldGeometryCache) NumInserted() int {
	return len(c.inserted)
}

// Reset forgets the cached bounds and the inserted colliders, their actors belong to the destroyed simulation
func (c *WorldGeometryCache) Reset() {
	c.Bounds = actor.Bounds{}
	c.CachedBounds = actor.Bounds{}
	c.valid = false
	c.queries = 0
	clear(c.inserted)
}
