package light2d

import (
	"github.com/gekko3d/light2d/lightrt/core"
)

// PointLight2d emits in every direction up to Radius world units.
type PointLight2d struct {
	Color       core.Color `json:"color"`
	Intensity   float32    `json:"intensity"`
	Radius      float32    `json:"radius"`
	Falloff     float32    `json:"falloff"`
	CastShadows bool       `json:"cast_shadows"`
}

func DefaultPointLight2d() PointLight2d {
	return PointLight2d{
		Color:     core.White,
		Intensity: 1,
		Radius:    0.5,
	}
}

func (PointLight2d) RequiresComponents() []any {
	return spatialRequirements()
}

// SpotLight2d emits a cone around Direction. Angles are in degrees; Direction 0 points
// along +X and grows counter-clockwise, InnerAngle and OuterAngle are half-angles from
// the beam axis. SourceWidth is the length of the emitting segment across the beam.
type SpotLight2d struct {
	Color       core.Color `json:"color"`
	Intensity   float32    `json:"intensity"`
	Radius      float32    `json:"radius"`
	Falloff     float32    `json:"falloff"`
	Direction   float32    `json:"direction"`
	InnerAngle  float32    `json:"inner_angle"`
	OuterAngle  float32    `json:"outer_angle"`
	SourceWidth float32    `json:"source_width"`
	CastShadows bool       `json:"cast_shadows"`
}

func DefaultSpotLight2d() SpotLight2d {
	return SpotLight2d{
		Color:       core.White,
		Intensity:   1,
		Radius:      0.5,
		Direction:   -90,
		InnerAngle:  30,
		OuterAngle:  45,
		SourceWidth: 1,
	}
}

func (SpotLight2d) RequiresComponents() []any {
	return spatialRequirements()
}

// AmbientLight2d lights every pixel of a view uniformly. White at brightness 1 leaves
// the scene unchanged.
type AmbientLight2d struct {
	Color      core.Color `json:"color"`
	Brightness float32    `json:"brightness"`
}

func DefaultAmbientLight2d() AmbientLight2d {
	return AmbientLight2d{Color: core.White, Brightness: 1}
}

// Light2d enables the lighting pass for the Camera2d on the same entity.
type Light2d struct {
	Ambient AmbientLight2d `json:"ambient"`
}

func NewLight2d() Light2d {
	return Light2d{Ambient: DefaultAmbientLight2d()}
}

func (Light2d) RequiresComponents() []any {
	return []any{NewCamera2d(DefaultViewportWidth, DefaultViewportHeight)}
}

func spatialRequirements() []any {
	return []any{
		NewTransform(zeroVec2),
		GlobalTransform{},
		Visibility{},
		ViewVisibility{},
	}
}
