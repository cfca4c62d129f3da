package motion

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/ayusman/sholo/internal/gaze"
	"github.com/ayusman/sholo/internal/gesture"
)

var (
	axisX = mgl64.Vec3{1, 0, 0}
	axisY = mgl64.Vec3{0, 1, 0}
)

// Fuser integrates the hand rotation rate into a base orientation and
// applies the gaze offset on top of it. Not safe for concurrent use.
type Fuser struct {
	cfg  Config
	base mgl64.Quat
}

// NewFuser creates a fuser with an identity base orientation.
func NewFuser(cfg Config) *Fuser {
	return &Fuser{cfg: cfg, base: mgl64.QuatIdent()}
}

// HandRotation returns the orientation accumulated from hand input alone.
func (f *Fuser) HandRotation() mgl64.Quat { return f.base }

// Reset discards the accumulated orientation.
func (f *Fuser) Reset() { f.base = mgl64.QuatIdent() }

// Update integrates rate over elapsed and returns the fused transform.
//
// The hand rate turns the base orientation about fixed world axes: pitch
// about X, yaw about Y, roll about Z. The gaze offset is absolute and is
// never accumulated, so a steady gaze gives a steady view.
func (f *Fuser) Update(rate gesture.RotationRate, off gaze.Offset, elapsed time.Duration) Transform {
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > f.cfg.MaxStep {
		elapsed = f.cfg.MaxStep
	}

	w := mgl64.Vec3{rate.Pitch, rate.Yaw, rate.Roll}
	if speed := w.Len(); speed > 0 && elapsed > 0 {
		step := mgl64.QuatRotate(speed*elapsed.Seconds(), w.Mul(1/speed))
		f.base = step.Mul(f.base).Normalize()
	}

	view := mgl64.QuatRotate(off.Yaw, axisY).Mul(mgl64.QuatRotate(off.Pitch, axisX))

	return Transform{
		Rotation: view.Mul(f.base).Normalize(),
		Position: mgl64.Vec3(f.cfg.Position),
		Scale:    f.cfg.Scale,
	}
}
