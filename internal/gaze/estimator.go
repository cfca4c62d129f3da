// Package gaze estimates an orientation offset from the position of the
// viewer's eyes, so the rendered object appears fixed in space behind the screen.
package gaze

import (
	"math"
	"time"

	"github.com/ayusman/sholo/internal/detector"
)

const minEyeDistance = 1e-4

// Offset is an absolute orientation offset in radians.
type Offset struct {
	Yaw   float64 // about the vertical axis, from horizontal head position
	Pitch float64 // about the horizontal axis, from vertical head position
}

// Magnitude returns the Euclidean norm of the offset.
func (o Offset) Magnitude() float64 {
	return math.Hypot(o.Yaw, o.Pitch)
}

// IsZero reports whether the offset is neutral.
func (o Offset) IsZero() bool {
	return o.Yaw == 0 && o.Pitch == 0
}

// Estimator converts face landmarks into a smoothed gaze Offset.
// Not safe for concurrent use.
type Estimator struct {
	cfg Config

	neutralX, neutralY float64
	calibrated         bool

	out      Offset
	distance float64
	lastSeen time.Time
	last     time.Time
}

// NewEstimator creates an estimator whose neutral point comes from cfg.
func NewEstimator(cfg Config) *Estimator {
	return &Estimator{
		cfg:      cfg,
		neutralX: cfg.NeutralX,
		neutralY: cfg.NeutralY,
	}
}

// SelectFace returns the highest-scoring face, or nil if there is none.
func SelectFace(faces []detector.FaceLandmarks) *detector.FaceLandmarks {
	var best *detector.FaceLandmarks
	for i := range faces {
		if best == nil || faces[i].Score > best.Score {
			best = &faces[i]
		}
	}
	return best
}

// Calibrate makes the face's current eye midpoint the neutral position.
func (e *Estimator) Calibrate(face *detector.FaceLandmarks) {
	mid := face.EyeMidpoint()
	e.neutralX, e.neutralY = mid.X, mid.Y
	e.calibrated = true
}

// Calibrated reports whether a neutral point was taken from a face.
func (e *Estimator) Calibrated() bool { return e.calibrated }

// Offset returns the most recently emitted offset.
func (e *Estimator) Offset() Offset { return e.out }

// ViewerDistance returns the estimated camera to viewer distance in cm for
// the last face seen, or 0 if it is unknown.
func (e *Estimator) ViewerDistance() float64 { return e.distance }

// Reset clears the output and any calibration.
func (e *Estimator) Reset() {
	e.neutralX, e.neutralY = e.cfg.NeutralX, e.cfg.NeutralY
	e.calibrated = false
	e.out = Offset{}
	e.distance = 0
	e.lastSeen = time.Time{}
	e.last = time.Time{}
}

// Update advances the estimator by one frame observed at now.
// A nil face means no face was detected in the frame.
func (e *Estimator) Update(face *detector.FaceLandmarks, now time.Time) Offset {
	var dt time.Duration
	if !e.last.IsZero() && now.After(e.last) {
		dt = now.Sub(e.last)
	}
	if e.last.IsZero() || now.After(e.last) {
		e.last = now
	}

	if face == nil || face.InterEyeDistance(e.cfg.Aspect) < minEyeDistance {
		return e.missing(now, dt)
	}

	if now.After(e.lastSeen) {
		e.lastSeen = now
	}
	if e.cfg.AutoCalibrate && !e.calibrated {
		e.Calibrate(face)
	}

	raw := e.raw(face)
	a := e.cfg.Smoothing
	e.out = Offset{
		Yaw:   e.out.Yaw + a*(raw.Yaw-e.out.Yaw),
		Pitch: e.out.Pitch + a*(raw.Pitch-e.out.Pitch),
	}
	return e.out
}

func (e *Estimator) missing(now time.Time, dt time.Duration) Offset {
	if e.lastSeen.IsZero() || now.Sub(e.lastSeen) <= e.cfg.GracePeriod {
		return e.out
	}
	if dt > 0 {
		k := math.Exp(-dt.Seconds() / e.cfg.DecayTime.Seconds())
		e.out = Offset{Yaw: e.out.Yaw * k, Pitch: e.out.Pitch * k}
	}
	if e.out.Magnitude() < 1e-6 {
		e.out = Offset{}
	}
	return e.out
}

// raw computes the unsmoothed offset for a face.
//
// The eye midpoint's displacement from neutral is measured in inter-eye
// distances, which makes it a physical head displacement of that many IPDs
// regardless of how far the viewer sits. The angle is the one under which
// that displacement is seen from the scene, placed SceneDepthCm behind the
// screen plus the estimated viewer distance.
func (e *Estimator) raw(face *detector.FaceLandmarks) Offset {
	ipd := face.InterEyeDistance(e.cfg.Aspect)
	mid := face.EyeMidpoint()

	lateralX := (mid.X - e.neutralX) / ipd * e.cfg.IPDCm
	lateralY := (mid.Y - e.neutralY) * e.cfg.Aspect / ipd * e.cfg.IPDCm

	e.distance = e.viewerDistance(ipd)
	depth := e.cfg.SceneDepthCm + e.distance
	limit := e.cfg.MaxAngleDegrees * math.Pi / 180

	return Offset{
		Yaw:   clamp(math.Atan2(lateralX, depth)*e.cfg.Gain, limit),
		Pitch: clamp(math.Atan2(lateralY, depth)*e.cfg.Gain, limit),
	}
}

// viewerDistance estimates the camera to viewer distance in cm from the
// fraction of the frame width spanned by the eyes.
func (e *Estimator) viewerDistance(ipd float64) float64 {
	if e.cfg.FOVDegrees <= 0 {
		return 0
	}
	half := e.cfg.FOVDegrees * math.Pi / 360
	return e.cfg.IPDCm / (ipd * 2 * math.Tan(half))
}

func clamp(v, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, v))
}
