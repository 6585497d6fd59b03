package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// ExtractedPointLight is the render-side snapshot of a visible point light.
type ExtractedPointLight struct {
	Center      mgl32.Vec2
	Radius      float32
	Color       LinearRgba
	Intensity   float32
	Falloff     float32
	CastShadows uint32
}

// ExtractedSpotLight is the render-side snapshot of a visible spot light.
// Direction is a unit vector, angles are half-angles in radians.
type ExtractedSpotLight struct {
	Center      mgl32.Vec2
	Radius      float32
	Color       LinearRgba
	Intensity   float32
	Falloff     float32
	Direction   mgl32.Vec2
	InnerAngle  float32
	OuterAngle  float32
	SourceWidth float32
	CastShadows uint32
}

// ExtractedOccluder is the render-side snapshot of a visible occluder.
// Kind selects how HalfSize is interpreted, see ShapeRectangle.
type ExtractedOccluder struct {
	Center   mgl32.Vec2
	HalfSize mgl32.Vec2
	Kind     uint32
}

// ExtractedAmbient holds the ambient term already scaled by brightness.
type ExtractedAmbient struct {
	Color LinearRgba
}

// ExtractedView is the per-camera part of a frame snapshot.
type ExtractedView struct {
	ID      string
	Ambient ExtractedAmbient
	// Origin is the world position at the center of the viewport.
	Origin mgl32.Vec2
	// WorldPerPixel is the size of one output pixel in world units.
	WorldPerPixel float32
	Width         uint32
	Height        uint32
	HDR           bool
}

// PixelToWorld maps the center of pixel (x, y), y pointing down, into world space.
func (v ExtractedView) PixelToWorld(x, y int) mgl32.Vec2 {
	px := float32(x) + 0.5 - float32(v.Width)*0.5
	py := float32(v.Height)*0.5 - (float32(y) + 0.5)
	return v.Origin.Add(mgl32.Vec2{px, py}.Mul(v.WorldPerPixel))
}

// WorldToPixel is the inverse of PixelToWorld, returning continuous pixel coordinates.
func (v ExtractedView) WorldToPixel(p mgl32.Vec2) (float32, float32) {
	if v.WorldPerPixel == 0 {
		return 0, 0
	}
	d := p.Sub(v.Origin).Mul(1 / v.WorldPerPixel)
	return d.X() + float32(v.Width)*0.5, float32(v.Height)*0.5 - d.Y()
}

// Frame is the arena holding one frame's extracted lights and occluders.
// Reset keeps the backing arrays so steady-state extraction does not allocate.
type Frame struct {
	PointLights []ExtractedPointLight
	SpotLights  []ExtractedSpotLight
	Occluders   []ExtractedOccluder
}

func NewFrame() *Frame {
	return &Frame{
		PointLights: make([]ExtractedPointLight, 0, 16),
		SpotLights:  make([]ExtractedSpotLight, 0, 16),
		Occluders:   make([]ExtractedOccluder, 0, 32),
	}
}

func (f *Frame) Reset() {
	f.PointLights = f.PointLights[:0]
	f.SpotLights = f.SpotLights[:0]
	f.Occluders = f.Occluders[:0]
}

func (f *Frame) LightCount() int {
	return len(f.PointLights) + len(f.SpotLights)
}

// Clone returns a deep copy that does not share backing arrays with f.
func (f *Frame) Clone() *Frame {
	return &Frame{
		PointLights: append([]ExtractedPointLight(nil), f.PointLights...),
		SpotLights:  append([]ExtractedSpotLight(nil), f.SpotLights...),
		Occluders:   append([]ExtractedOccluder(nil), f.Occluders...),
	}
}
