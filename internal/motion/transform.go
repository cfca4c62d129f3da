// Package motion fuses the hand rotation rate and the gaze offset into the
// Transform applied to the rendered object.
package motion

import "github.com/go-gl/mathgl/mgl64"

// Transform is the pose of the rendered object.
type Transform struct {
	Rotation mgl64.Quat
	Position mgl64.Vec3
	Scale    float64
}

// Identity returns an unrotated transform at the origin with unit scale.
func Identity() Transform {
	return Transform{
		Rotation: mgl64.QuatIdent(),
		Scale:    1,
	}
}

// Matrix returns the model matrix: scale, then rotate, then translate.
func (t Transform) Matrix() mgl64.Mat4 {
	return mgl64.Translate3D(t.Position[0], t.Position[1], t.Position[2]).
		Mul4(t.Rotation.Mat4()).
		Mul4(mgl64.Scale3D(t.Scale, t.Scale, t.Scale))
}

// Apply transforms a model-space point.
func (t Transform) Apply(p mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Rotate(p.Mul(t.Scale)).Add(t.Position)
}
