package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Color is an authoring color in sRGB space with linear alpha.
type Color struct {
	R, G, B, A float32
}

// LinearRgba is a color in linear RGB space, the representation lighting math runs in.
type LinearRgba struct {
	R, G, B, A float32
}

var (
	White = Color{1, 1, 1, 1}
	Black = Color{0, 0, 0, 1}
)

func Srgb(r, g, b float32) Color {
	return Color{R: r, G: g, B: b, A: 1}
}

// SRGBToLinear applies the sRGB EOTF to a single channel.
func SRGBToLinear(s float32) float32 {
	if s <= 0.04045 {
		return s / 12.92
	}
	return float32(math.Pow(float64((s+0.055)/1.055), 2.4))
}

// LinearToSRGB applies the inverse sRGB transfer function to a single channel.
func LinearToSRGB(l float32) float32 {
	if l <= 0.0031308 {
		return l * 12.92
	}
	return 1.055*float32(math.Pow(float64(l), 1.0/2.4)) - 0.055
}

func (c Color) ToLinear() LinearRgba {
	return LinearRgba{
		R: SRGBToLinear(c.R),
		G: SRGBToLinear(c.G),
		B: SRGBToLinear(c.B),
		A: c.A,
	}
}

func (c LinearRgba) ToSrgb() Color {
	return Color{
		R: LinearToSRGB(c.R),
		G: LinearToSRGB(c.G),
		B: LinearToSRGB(c.B),
		A: c.A,
	}
}

// Scale multiplies the RGB channels, leaving alpha untouched.
func (c LinearRgba) Scale(s float32) LinearRgba {
	return LinearRgba{R: c.R * s, G: c.G * s, B: c.B * s, A: c.A}
}

func (c LinearRgba) RGB() mgl32.Vec3 {
	return mgl32.Vec3{c.R, c.G, c.B}
}

func (c LinearRgba) Vec4() [4]float32 {
	return [4]float32{c.R, c.G, c.B, c.A}
}

// Luminance is the Rec. 709 relative luminance of the linear color.
func (c LinearRgba) Luminance() float32 {
	return 0.2126*c.R + 0.7152*c.G + 0.0722*c.B
}
