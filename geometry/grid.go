package geometry

import (
	"math"
	"slices"

	"github.com/akmonengine/ragdoll/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// maxCellSpan is the widest footprint, in cells per axis, a collider may cover before it is
// kept out of the grid and tested on every query instead
const maxCellSpan = 64

// CellKey is the coordinate of a cell in 3D space
type CellKey struct {
	X, Y, Z int
}

// Cell holds the colliders overlapping a cell
type Cell struct {
	colliders []ColliderID
}

// spatialGrid is a uniform grid hashed into a fixed number of buckets
type spatialGrid struct {
	cellSize float64
	cells    []Cell
	cellMask int
	// colliders too large for the grid, planes for instance
	unbounded []ColliderID
}

func newSpatialGrid(cellSize float64, numCells int) *spatialGrid {
	numCells = nextPowerOfTwo(numCells)

	cells := make([]Cell, numCells)
	for i := range cells {
		cells[i].colliders = make([]ColliderID, 0, 4)
	}

	return &spatialGrid{
		cellSize: cellSize,
		cells:    cells,
		cellMask: numCells - 1,
	}
}

// nextPowerOfTwo rounds n up to a power of two
func nextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++
	return n
}

// span returns the cell range covered by aabb, false when it is too large for the grid
func (sg *spatialGrid) span(aabb actor.AABB) (CellKey, CellKey, bool) {
	minCell := sg.worldToCell(aabb.Min)
	maxCell := sg.worldToCell(aabb.Max)
	if maxCell.X-minCell.X >= maxCellSpan || maxCell.Y-minCell.Y >= maxCellSpan || maxCell.Z-minCell.Z >= maxCellSpan {
		return minCell, maxCell, false
	}

	return minCell, maxCell, true
}

func (sg *spatialGrid) forEachCell(minCell, maxCell CellKey, fn func(cell *Cell)) {
	for x := minCell.X; x <= maxCell.X; x++ {
		for y := minCell.Y; y <= maxCell.Y; y++ {
			for z := minCell.Z; z <= maxCell.Z; z++ {
				fn(&sg.cells[sg.hashCell(CellKey{x, y, z})])
			}
		}
	}
}

// insert registers id in every cell its AABB occupies
func (sg *spatialGrid) insert(id ColliderID, aabb actor.AABB) {
	minCell, maxCell, ok := sg.span(aabb)
	if !ok {
		sg.unbounded = append(sg.unbounded, id)
		return
	}

	sg.forEachCell(minCell, maxCell, func(cell *Cell) {
		if !slices.Contains(cell.colliders, id) {
			cell.colliders = append(cell.colliders, id)
		}
	})
}

// remove undoes insert, aabb must be the one given to insert
func (sg *spatialGrid) remove(id ColliderID, aabb actor.AABB) {
	minCell, maxCell, ok := sg.span(aabb)
	if !ok {
		sg.unbounded = slices.DeleteFunc(sg.unbounded, func(other ColliderID) bool { return other == id })
		return
	}

	sg.forEachCell(minCell, maxCell, func(cell *Cell) {
		cell.colliders = slices.DeleteFunc(cell.colliders, func(other ColliderID) bool { return other == id })
	})
}

// candidates returns the ids sharing a cell with aabb, plus the unbounded ones, without duplicates.
// Different cells may hash to the same bucket: callers still test the exact bounds.
func (sg *spatialGrid) candidates(aabb actor.AABB) []ColliderID {
	seen := make(map[ColliderID]struct{})
	result := make([]ColliderID, 0, len(sg.unbounded)+8)

	add := func(id ColliderID) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			result = append(result, id)
		}
	}

	for _, id := range sg.unbounded {
		add(id)
	}

	minCell, maxCell, ok := sg.span(aabb)
	if !ok {
		// the query covers more than the grid can enumerate cheaply, scan every bucket
		for i := range sg.cells {
			for _, id := range sg.cells[i].colliders {
				add(id)
			}
		}
		return result
	}

	sg.forEachCell(minCell, maxCell, func(cell *Cell) {
		for _, id := range cell.colliders {
			add(id)
		}
	})

	return result
}

// worldToCell converts a world position to cell coordinates
func (sg *spatialGrid) worldToCell(pos mgl64.Vec3) CellKey {
	return CellKey{
		X: int(math.Floor(pos.X() / sg.cellSize)),
		Y: int(math.Floor(pos.Y() / sg.cellSize)),
		Z: int(math.Floor(pos.Z() / sg.cellSize)),
	}
}

// hashCell maps a cell to a bucket index
func (sg *spatialGrid) hashCell(key CellKey) int {
	h := (key.X * 73856093) ^ (key.Y * 19349663) ^ (key.Z * 83492791)
	return h & sg.cellMask
}
