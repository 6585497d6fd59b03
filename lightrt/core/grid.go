package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// maxCellsPerOccluder bounds how many cells a single occluder is stamped into. Larger
// occluders go to the oversized list which every query tests.
const maxCellsPerOccluder = 1024

// OccluderGrid is a 2D spatial hash over one frame's occluders. Shadow queries only test
// occluders registered in the cells the segment's bounding box touches.
//
// Build mutates the grid; Blocked is read-only and safe to call from many goroutines.
type OccluderGrid struct {
	cellSize  float32
	cells     map[uint64][]int
	oversized []int
	occluders []ExtractedOccluder
}

func NewOccluderGrid(cellSize float32) *OccluderGrid {
	if !(cellSize > 0) {
		cellSize = 64
	}
	return &OccluderGrid{
		cellSize: cellSize,
		cells:    make(map[uint64][]int),
	}
}

func (grid *OccluderGrid) CellSize() float32 {
	return grid.cellSize
}

func (grid *OccluderGrid) Clear() {
	clear(grid.cells)
	grid.oversized = grid.oversized[:0]
	grid.occluders = grid.occluders[:0]
}

// Build replaces the grid contents with the given occluders. Inert occluders are dropped.
func (grid *OccluderGrid) Build(occluders []ExtractedOccluder) {
	grid.Clear()
	for _, o := range occluders {
		if o.Inert() {
			continue
		}
		grid.occluders = append(grid.occluders, o)
		grid.insert(len(grid.occluders)-1, o)
	}
}

func (grid *OccluderGrid) Len() int {
	return len(grid.occluders)
}

func (grid *OccluderGrid) insert(idx int, o ExtractedOccluder) {
	min, max := o.Bounds()
	minX, minY, maxX, maxY, ok := grid.cellRange(min, max, maxCellsPerOccluder)
	if !ok {
		grid.oversized = append(grid.oversized, idx)
		return
	}
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			key := grid.hashKey(x, y)
			grid.cells[key] = append(grid.cells[key], idx)
		}
	}
}

// Candidates calls fn for every occluder index registered in a cell overlapping [min, max].
// An index may be reported more than once. Returning false from fn stops the walk.
func (grid *OccluderGrid) Candidates(min, max mgl32.Vec2, fn func(idx int) bool) {
	for _, idx := range grid.oversized {
		if !fn(idx) {
			return
		}
	}

	// A long segment can touch more cells than there are occluders; walk the list instead.
	minX, minY, maxX, maxY, ok := grid.cellRange(min, max, len(grid.occluders))
	if !ok {
		for idx := range grid.occluders {
			if !fn(idx) {
				return
			}
		}
		return
	}

	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			for _, idx := range grid.cells[grid.hashKey(x, y)] {
				if !fn(idx) {
					return
				}
			}
		}
	}
}

func (grid *OccluderGrid) Blocked(from, to mgl32.Vec2) bool {
	if len(grid.occluders) == 0 {
		return false
	}
	min := mgl32.Vec2{float32(math.Min(float64(from.X()), float64(to.X()))), float32(math.Min(float64(from.Y()), float64(to.Y())))}
	max := mgl32.Vec2{float32(math.Max(float64(from.X()), float64(to.X()))), float32(math.Max(float64(from.Y()), float64(to.Y())))}

	blocked := false
	grid.Candidates(min, max, func(idx int) bool {
		if grid.occluders[idx].Blocks(from, to) {
			blocked = true
			return false
		}
		return true
	})
	return blocked
}

// maxCellIndex keeps cell coordinates well inside int range. Boxes reaching past it are
// treated like oversized ones.
const maxCellIndex = 1 << 40

// cellRange returns the cells covering [min, max]. It reports false when the box covers
// more than limit cells or lies outside the indexable range; spans are computed in
// float64 so huge coordinates never wrap.
func (grid *OccluderGrid) cellRange(min, max mgl32.Vec2, limit int) (minX, minY, maxX, maxY int, ok bool) {
	x0, x1 := grid.getCellIndex(min.X()), grid.getCellIndex(max.X())
	y0, y1 := grid.getCellIndex(min.Y()), grid.getCellIndex(max.Y())
	for _, c := range []float64{x0, x1, y0, y1} {
		if !(math.Abs(c) <= maxCellIndex) {
			return 0, 0, 0, 0, false
		}
	}
	if (x1-x0+1)*(y1-y0+1) > float64(limit) {
		return 0, 0, 0, 0, false
	}
	return int(x0), int(y0), int(x1), int(y1), true
}

func (grid *OccluderGrid) getCellIndex(pos float32) float64 {
	return math.Floor(float64(pos) / float64(grid.cellSize))
}

func (grid *OccluderGrid) hashKey(x, y int) uint64 {
	// large primes for mixing
	const p1 = 73856093
	const p2 = 19349663
	return uint64(x*p1 ^ y*p2)
}
