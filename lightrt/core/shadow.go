package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Shape codes stored in ExtractedOccluder.Kind. Zero is reserved for "no shape" so a
// zeroed GPU slot never occludes.
const (
	ShapeNone      uint32 = 0
	ShapeRectangle uint32 = 1
)

// OccluderShape is the closed set of occluder shapes. New shapes implement the unexported
// marker and get a case in ExtractOccluder and ExtractedOccluder.Blocks.
type OccluderShape interface {
	occluderShape()
}

// Rectangle is an axis-aligned box given by its half extents.
type Rectangle struct {
	HalfSize mgl32.Vec2
}

func (Rectangle) occluderShape() {}

// ExtractOccluder resolves a shape at a world-space center into its render record.
// It reports false for unknown shapes and for negative or non-finite extents.
func ExtractOccluder(shape OccluderShape, center mgl32.Vec2) (ExtractedOccluder, bool) {
	switch s := shape.(type) {
	case Rectangle:
		if !(s.HalfSize.X() >= 0) || !(s.HalfSize.Y() >= 0) || !finite2(s.HalfSize) {
			return ExtractedOccluder{}, false
		}
		return ExtractedOccluder{Center: center, HalfSize: s.HalfSize, Kind: ShapeRectangle}, true
	case *Rectangle:
		if s == nil {
			return ExtractedOccluder{}, false
		}
		return ExtractOccluder(*s, center)
	default:
		return ExtractedOccluder{}, false
	}
}

// Bounds returns the world-space AABB of the occluder.
func (o *ExtractedOccluder) Bounds() (mgl32.Vec2, mgl32.Vec2) {
	return o.Center.Sub(o.HalfSize), o.Center.Add(o.HalfSize)
}

// Inert reports whether the occluder can never block light.
func (o *ExtractedOccluder) Inert() bool {
	switch o.Kind {
	case ShapeRectangle:
		return !(o.HalfSize.X() > 0) || !(o.HalfSize.Y() > 0)
	default:
		return true
	}
}

// Blocks reports whether the occluder cuts the segment from a light at `from` to a shaded
// point at `to`. A light inside the occluder is blocked in every direction.
func (o *ExtractedOccluder) Blocks(from, to mgl32.Vec2) bool {
	switch o.Kind {
	case ShapeRectangle:
		if o.Inert() {
			return false
		}
		min, max := o.Bounds()
		return segmentHitsBox(from, to, min, max)
	default:
		return false
	}
}

// segmentHitsBox is the Liang-Barsky slab test of segment a->b against [min, max].
func segmentHitsBox(a, b, min, max mgl32.Vec2) bool {
	d := b.Sub(a)
	t0, t1 := float32(0), float32(1)
	for axis := 0; axis < 2; axis++ {
		if d[axis] > -1e-9 && d[axis] < 1e-9 {
			if a[axis] < min[axis] || a[axis] > max[axis] {
				return false
			}
			continue
		}
		inv := 1 / d[axis]
		tEnter := (min[axis] - a[axis]) * inv
		tExit := (max[axis] - a[axis]) * inv
		if tEnter > tExit {
			tEnter, tExit = tExit, tEnter
		}
		if tEnter > t0 {
			t0 = tEnter
		}
		if tExit < t1 {
			t1 = tExit
		}
		if t0 > t1 {
			return false
		}
	}
	return true
}

// Occlusion answers shadow queries for one frame's occluders.
type Occlusion interface {
	Blocked(from, to mgl32.Vec2) bool
}

// OccluderList tests every occluder, the reference the grid is checked against.
type OccluderList []ExtractedOccluder

func (l OccluderList) Blocked(from, to mgl32.Vec2) bool {
	for i := range l {
		if l[i].Blocks(from, to) {
			return true
		}
	}
	return false
}

func finite(v float32) bool {
	return v-v == 0
}

func finite2(v mgl32.Vec2) bool {
	return finite(v.X()) && finite(v.Y())
}
