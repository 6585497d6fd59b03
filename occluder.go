package light2d

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/light2d/lightrt/core"
)

// RectangleShape is an axis-aligned rectangle centered on the entity.
type RectangleShape = core.Rectangle

// LightOccluder2d blocks light from shadow-casting lights.
type LightOccluder2d struct {
	Shape core.OccluderShape
}

func NewRectangleOccluder(halfSize mgl32.Vec2) LightOccluder2d {
	return LightOccluder2d{Shape: RectangleShape{HalfSize: halfSize}}
}

func (LightOccluder2d) RequiresComponents() []any {
	return spatialRequirements()
}

var zeroVec2 mgl32.Vec2
