package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Attenuation returns the distance falloff of a light in [0, 1].
//
// The curve is (1 - s²)² / (1 + falloff·s²) with s = distance/radius, see
// https://lisyarus.github.io/blog/posts/point-light-attenuation.html. It is 1 at the
// light's center, reaches 0 with a zero slope at the radius and is 0 beyond it.
func Attenuation(distance, radius, falloff float32) float32 {
	// Negated comparisons also reject NaN inputs.
	if !(radius > 0) || !(distance < radius) {
		return 0
	}
	if distance < 0 {
		distance = -distance
	}
	if !(falloff > 0) {
		falloff = 0
	}
	s := distance / radius
	s2 := s * s
	num := 1 - s2
	return num * num / (1 + falloff*s2)
}

func smoothstep(edge0, edge1, x float32) float32 {
	if x <= edge0 {
		return 0
	}
	if x >= edge1 {
		return 1
	}
	t := (x - edge0) / (edge1 - edge0)
	return t * t * (3 - 2*t)
}

func clampAngle(a float32) float32 {
	if !(a > 0) {
		return 0
	}
	if a > math.Pi {
		return math.Pi
	}
	return a
}

// ConeFactor returns how much of a spot light's beam reaches p, in [0, 1].
//
// The angle is measured at the point of the emitting segment nearest to p. The segment is
// centered on the light, SourceWidth long and perpendicular to the beam, so a wide source
// spreads the full-strength region sideways before the cone starts to taper.
func ConeFactor(l *ExtractedSpotLight, p mgl32.Vec2) float32 {
	dir := l.Direction
	dirLen := dir.Len()
	if !(dirLen > 0) {
		return 0
	}
	dir = dir.Mul(1 / dirLen)
	perp := mgl32.Vec2{-dir.Y(), dir.X()}

	rel := p.Sub(l.Center)
	half := l.SourceWidth * 0.5
	if !(half > 0) {
		half = 0
	}
	lateral := mgl32.Clamp(rel.Dot(perp), -half, half)
	v := rel.Sub(perp.Mul(lateral))

	dist := v.Len()
	if dist < 1e-6 {
		return 1
	}
	cosTheta := v.Dot(dir) / dist

	cosOuter := float32(math.Cos(float64(clampAngle(l.OuterAngle))))
	cosInner := float32(math.Cos(float64(clampAngle(l.InnerAngle))))
	if cosInner <= cosOuter {
		// Malformed cone, no band to interpolate across.
		if cosTheta >= cosOuter {
			return 1
		}
		return 0
	}
	return smoothstep(cosOuter, cosInner, cosTheta)
}

// PointLightContribution is the linear RGB light a point light delivers at p, ignoring occlusion.
func PointLightContribution(l *ExtractedPointLight, p mgl32.Vec2) mgl32.Vec3 {
	if !(l.Intensity > 0) {
		return mgl32.Vec3{}
	}
	a := Attenuation(p.Sub(l.Center).Len(), l.Radius, l.Falloff)
	if a == 0 {
		return mgl32.Vec3{}
	}
	return l.Color.RGB().Mul(l.Intensity * a)
}

// SpotLightContribution is the linear RGB light a spot light delivers at p, ignoring occlusion.
func SpotLightContribution(l *ExtractedSpotLight, p mgl32.Vec2) mgl32.Vec3 {
	if !(l.Intensity > 0) {
		return mgl32.Vec3{}
	}
	a := Attenuation(p.Sub(l.Center).Len(), l.Radius, l.Falloff)
	if a == 0 {
		return mgl32.Vec3{}
	}
	cone := ConeFactor(l, p)
	if cone == 0 {
		return mgl32.Vec3{}
	}
	return l.Color.RGB().Mul(l.Intensity * a * cone)
}
