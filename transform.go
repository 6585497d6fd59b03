package light2d

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// TransformComponent is the local 2D transform of an entity, relative to its Parent
// when it has one. Rotation is in radians, Z orders entities and does not affect lighting.
type TransformComponent struct {
	Position mgl32.Vec2
	Rotation float32
	Scale    mgl32.Vec2
	Z        float32
}

func NewTransform(position mgl32.Vec2) TransformComponent {
	return TransformComponent{Position: position, Scale: mgl32.Vec2{1, 1}}
}

// GlobalTransform is written by the hierarchy system. Valid is false until the
// entity's transform has been propagated, or when any ancestor is unresolved.
type GlobalTransform struct {
	Position mgl32.Vec2
	Rotation float32
	Scale    mgl32.Vec2
	Z        float32
	Valid    bool
}

type Parent struct {
	Entity EntityId
}

// Finite reports whether every field holds a finite number.
func (g GlobalTransform) Finite() bool {
	for _, v := range [...]float32{g.Position.X(), g.Position.Y(), g.Rotation, g.Scale.X(), g.Scale.Y(), g.Z} {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

func (g GlobalTransform) usable() bool {
	return g.Valid && g.Finite()
}

// Mul composes the parent transform g with a local transform.
func (g GlobalTransform) Mul(local TransformComponent) GlobalTransform {
	scaled := mgl32.Vec2{local.Position.X() * g.Scale.X(), local.Position.Y() * g.Scale.Y()}
	return GlobalTransform{
		Position: g.Position.Add(mgl32.Rotate2D(g.Rotation).Mul2x1(scaled)),
		Rotation: g.Rotation + local.Rotation,
		Scale:    mgl32.Vec2{g.Scale.X() * local.Scale.X(), g.Scale.Y() * local.Scale.Y()},
		Z:        g.Z + local.Z,
		Valid:    true,
	}
}

func rootGlobal(local TransformComponent) GlobalTransform {
	return GlobalTransform{
		Position: local.Position,
		Rotation: local.Rotation,
		Scale:    local.Scale,
		Z:        local.Z,
		Valid:    true,
	}
}
