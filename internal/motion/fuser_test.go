package motion

import (
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/sholo/internal/gaze"
	"github.com/ayusman/sholo/internal/gesture"
)

// angleOf returns the rotation angle of a unit quaternion in [0, pi].
func angleOf(q mgl64.Quat) float64 {
	return 2 * math.Acos(math.Min(1, math.Abs(q.W)))
}

func TestIdentity(t *testing.T) {
	id := Identity()
	assert.Equal(t, mgl64.QuatIdent(), id.Rotation)
	assert.Equal(t, 1.0, id.Scale)
	assert.True(t, id.Matrix().ApproxEqual(mgl64.Ident4()))

	p := mgl64.Vec3{1, 2, 3}
	assert.True(t, id.Apply(p).ApproxEqual(p))
}

func TestTransform_Apply(t *testing.T) {
	tr := Transform{
		Rotation: mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 1, 0}),
		Position: mgl64.Vec3{0, 0, -5},
		Scale:    2,
	}
	got := tr.Apply(mgl64.Vec3{1, 0, 0})
	assert.True(t, got.ApproxEqualThreshold(mgl64.Vec3{0, 0, -7}, 1e-9), "got %v", got)

	m := tr.Matrix().Mul4x1(mgl64.Vec4{1, 0, 0, 1}).Vec3()
	assert.True(t, m.ApproxEqualThreshold(got, 1e-9), "matrix %v, apply %v", m, got)
}

func TestFuser_IntegrationIsFrameRateIndependent(t *testing.T) {
	rate := gesture.RotationRate{Yaw: 0.8}
	total := time.Second

	for _, step := range []time.Duration{10 * time.Millisecond, 50 * time.Millisecond} {
		t.Run(step.String(), func(t *testing.T) {
			f := NewFuser(DefaultConfig())
			var tr Transform
			for elapsed := time.Duration(0); elapsed < total; elapsed += step {
				tr = f.Update(rate, gaze.Offset{}, step)
			}
			assert.InDelta(t, 0.8, angleOf(tr.Rotation), 1e-9)
			assert.InDelta(t, math.Sin(0.4), tr.Rotation.V[1], 1e-9, "rotation should be about Y")
		})
	}
}

func TestFuser_IrregularSteps(t *testing.T) {
	f := NewFuser(DefaultConfig())
	rate := gesture.RotationRate{Pitch: 0.3, Yaw: 0.4}
	var sum time.Duration
	for _, ms := range []int{7, 33, 12, 50, 41, 16, 29} {
		d := time.Duration(ms) * time.Millisecond
		sum += d
		f.Update(rate, gaze.Offset{}, d)
	}
	assert.InDelta(t, 0.5*sum.Seconds(), angleOf(f.HandRotation()), 1e-9)
}

func TestFuser_GazeIsNotIntegrated(t *testing.T) {
	f := NewFuser(DefaultConfig())
	off := gaze.Offset{Yaw: 0.2, Pitch: -0.1}

	first := f.Update(gesture.RotationRate{}, off, 33*time.Millisecond)
	for i := 0; i < 100; i++ {
		tr := f.Update(gesture.RotationRate{}, off, 33*time.Millisecond)
		assert.True(t, tr.Rotation.ApproxEqualThreshold(first.Rotation, 1e-12))
	}
	assert.Equal(t, mgl64.QuatIdent(), f.HandRotation())

	back := f.Update(gesture.RotationRate{}, gaze.Offset{}, 33*time.Millisecond)
	assert.True(t, back.Rotation.ApproxEqualThreshold(mgl64.QuatIdent(), 1e-12))
}

func TestFuser_ModeIndependence(t *testing.T) {
	t.Run("hand only", func(t *testing.T) {
		f := NewFuser(DefaultConfig())
		var tr Transform
		for i := 0; i < 10; i++ {
			tr = f.Update(gesture.RotationRate{Yaw: 1}, gaze.Offset{}, 20*time.Millisecond)
		}
		assert.True(t, tr.Rotation.ApproxEqualThreshold(f.HandRotation(), 1e-12))
		assert.InDelta(t, 0.2, angleOf(tr.Rotation), 1e-9)
	})

	t.Run("eye only", func(t *testing.T) {
		f := NewFuser(DefaultConfig())
		off := gaze.Offset{Yaw: 0.15}
		var tr Transform
		for i := 0; i < 10; i++ {
			tr = f.Update(gesture.RotationRate{}, off, 20*time.Millisecond)
		}
		assert.Equal(t, mgl64.QuatIdent(), f.HandRotation())
		assert.InDelta(t, 0.15, angleOf(tr.Rotation), 1e-9)
	})

	t.Run("both", func(t *testing.T) {
		f := NewFuser(DefaultConfig())
		off := gaze.Offset{Pitch: 0.1}
		tr := f.Update(gesture.RotationRate{Yaw: 1}, off, 100*time.Millisecond)

		want := mgl64.QuatRotate(0.1, mgl64.Vec3{1, 0, 0}).Mul(mgl64.QuatRotate(0.1, mgl64.Vec3{0, 1, 0}))
		assert.True(t, tr.Rotation.ApproxEqualThreshold(want, 1e-9))
	})
}

func TestFuser_ElapsedBounds(t *testing.T) {
	cfg := DefaultConfig()
	rate := gesture.RotationRate{Yaw: 1}

	f := NewFuser(cfg)
	f.Update(rate, gaze.Offset{}, -time.Second)
	assert.Equal(t, mgl64.QuatIdent(), f.HandRotation())

	f.Update(rate, gaze.Offset{}, 5*time.Second)
	assert.InDelta(t, cfg.MaxStep.Seconds(), angleOf(f.HandRotation()), 1e-9)
}

func TestFuser_PositionAndScale(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Position = [3]float64{0, 0.5, -3}
	cfg.Scale = 0.25
	f := NewFuser(cfg)

	tr := f.Update(gesture.RotationRate{Roll: 2}, gaze.Offset{}, 10*time.Millisecond)
	assert.Equal(t, mgl64.Vec3{0, 0.5, -3}, tr.Position)
	assert.Equal(t, 0.25, tr.Scale)
}

func TestFuser_Reset(t *testing.T) {
	f := NewFuser(DefaultConfig())
	f.Update(gesture.RotationRate{Yaw: 2}, gaze.Offset{}, 100*time.Millisecond)
	require.Greater(t, angleOf(f.HandRotation()), 0.0)

	f.Reset()
	assert.Equal(t, mgl64.QuatIdent(), f.HandRotation())
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Scale = 0
	cfg.MaxStep = 0
	assert.Error(t, cfg.Validate())
}
