package light2d

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/gekko3d/light2d/lightrt/core"
)

const (
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
)

// Camera2d renders the world around Position. Zoom is pixels per world unit.
type Camera2d struct {
	ID             uuid.UUID
	Position       mgl32.Vec2
	Zoom           float32
	ViewportWidth  uint32
	ViewportHeight uint32
	HDR            bool
}

func NewCamera2d(width, height uint32) Camera2d {
	return Camera2d{
		ID:             uuid.New(),
		Zoom:           1,
		ViewportWidth:  width,
		ViewportHeight: height,
	}
}

func (c *Camera2d) WorldPerPixel() float32 {
	if !(c.Zoom > 0) {
		return 1
	}
	return 1 / c.Zoom
}

// View returns the render-side description of the camera with the given ambient.
func (c *Camera2d) View(ambient core.ExtractedAmbient) core.ExtractedView {
	return core.ExtractedView{
		ID:            c.ID.String(),
		Ambient:       ambient,
		Origin:        c.Position,
		WorldPerPixel: c.WorldPerPixel(),
		Width:         c.ViewportWidth,
		Height:        c.ViewportHeight,
		HDR:           c.HDR,
	}
}
