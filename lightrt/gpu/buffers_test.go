package gpu

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/gekko3d/light2d/lightrt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f32At(buf []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
}

func u32At(buf []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(buf[off:])
}

func TestPackHeader(t *testing.T) {
	view := core.ExtractedView{
		ID:            "main",
		Ambient:       core.ExtractedAmbient{Color: core.LinearRgba{R: 0.1, G: 0.2, B: 0.3, A: 1}},
		Origin:        mgl32.Vec2{5, -7},
		WorldPerPixel: 0.5,
		Width:         640,
		Height:        360,
		HDR:           true,
	}
	frame := core.NewFrame()
	frame.PointLights = append(frame.PointLights, core.ExtractedPointLight{}, core.ExtractedPointLight{})
	frame.SpotLights = append(frame.SpotLights, core.ExtractedSpotLight{})
	frame.Occluders = append(frame.Occluders, core.ExtractedOccluder{}, core.ExtractedOccluder{}, core.ExtractedOccluder{})

	buf := PackHeader(view, frame, true)
	require.Len(t, buf, HeaderSize)
	assert.Equal(t, float32(0.1), f32At(buf, 0))
	assert.Equal(t, float32(0.3), f32At(buf, 8))
	assert.Equal(t, float32(1), f32At(buf, 12))
	assert.Equal(t, float32(5), f32At(buf, 16))
	assert.Equal(t, float32(-7), f32At(buf, 20))
	assert.Equal(t, float32(640), f32At(buf, 24))
	assert.Equal(t, float32(360), f32At(buf, 28))
	assert.Equal(t, float32(0.5), f32At(buf, 32))
	assert.Equal(t, uint32(2), u32At(buf, 36))
	assert.Equal(t, uint32(1), u32At(buf, 40))
	assert.Equal(t, uint32(3), u32At(buf, 44))
	assert.Equal(t, uint32(1), u32At(buf, 48))
	assert.Equal(t, uint32(1), u32At(buf, 52))

	empty := PackHeader(core.ExtractedView{}, nil, false)
	assert.Equal(t, make([]byte, HeaderSize), empty)
}

func TestPackPointLights(t *testing.T) {
	lights := []core.ExtractedPointLight{
		{Center: mgl32.Vec2{1, 2}, Radius: 3, Intensity: 4, Color: core.LinearRgba{R: 0.5, G: 0.6, B: 0.7, A: 1}, Falloff: 8, CastShadows: 1},
		{Center: mgl32.Vec2{-1, -2}, Radius: 30},
	}
	buf := PackPointLights(lights)
	require.Len(t, buf, 2*PointLightStride)

	assert.Equal(t, float32(1), f32At(buf, 0))
	assert.Equal(t, float32(2), f32At(buf, 4))
	assert.Equal(t, float32(3), f32At(buf, 8))
	assert.Equal(t, float32(4), f32At(buf, 12))
	assert.Equal(t, float32(0.5), f32At(buf, 16))
	assert.Equal(t, float32(0.7), f32At(buf, 24))
	assert.Equal(t, float32(8), f32At(buf, 32))
	assert.Equal(t, uint32(1), u32At(buf, 36))

	assert.Equal(t, float32(-1), f32At(buf, PointLightStride))
	assert.Equal(t, float32(30), f32At(buf, PointLightStride+8))

	assert.Len(t, PackPointLights(nil), PointLightStride)
}

func TestPackSpotLights(t *testing.T) {
	lights := []core.ExtractedSpotLight{{
		Center:      mgl32.Vec2{1, 2},
		Radius:      3,
		Intensity:   4,
		Color:       core.LinearRgba{R: 1, G: 1, B: 1, A: 1},
		Direction:   mgl32.Vec2{0, -1},
		InnerAngle:  0.25,
		OuterAngle:  0.5,
		SourceWidth: 2,
		Falloff:     6,
		CastShadows: 1,
	}}
	buf := PackSpotLights(lights)
	require.Len(t, buf, SpotLightStride)

	assert.Equal(t, float32(0), f32At(buf, 32))
	assert.Equal(t, float32(-1), f32At(buf, 36))
	assert.Equal(t, float32(0.25), f32At(buf, 40))
	assert.Equal(t, float32(0.5), f32At(buf, 44))
	assert.Equal(t, float32(2), f32At(buf, 48))
	assert.Equal(t, float32(6), f32At(buf, 52))
	assert.Equal(t, uint32(1), u32At(buf, 56))
	assert.Equal(t, uint32(0), u32At(buf, 60))

	assert.Len(t, PackSpotLights(nil), SpotLightStride)
}

func TestPackOccluders(t *testing.T) {
	buf := PackOccluders([]core.ExtractedOccluder{
		{Center: mgl32.Vec2{10, 20}, HalfSize: mgl32.Vec2{1, 2}, Kind: core.ShapeRectangle},
	})
	require.Len(t, buf, OccluderStride)
	assert.Equal(t, float32(10), f32At(buf, 0))
	assert.Equal(t, float32(20), f32At(buf, 4))
	assert.Equal(t, float32(1), f32At(buf, 8))
	assert.Equal(t, float32(2), f32At(buf, 12))
	assert.Equal(t, core.ShapeRectangle, u32At(buf, 16))

	// The padding record of an empty array must never occlude.
	empty := PackOccluders(nil)
	require.Len(t, empty, OccluderStride)
	assert.Equal(t, core.ShapeNone, u32At(empty, 16))
}
