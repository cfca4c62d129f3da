package gesture

import (
	"math"
	"time"
)

// Phase is the state of the hand gesture state machine.
type Phase int

const (
	// Idle means no rotation is being driven by the hand.
	Idle Phase = iota
	// Swiping means a swipe set the rate, which is held until a stop.
	Swiping
	// Stopping means the rate is decaying toward zero.
	Stopping
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Swiping:
		return "swiping"
	case Stopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// RotationRate is an angular velocity in rad/s.
type RotationRate struct {
	Pitch float64 // about the horizontal axis, driven by vertical motion
	Yaw   float64 // about the vertical axis, driven by horizontal motion
	Roll  float64
}

// Magnitude returns the Euclidean norm of the rate.
func (r RotationRate) Magnitude() float64 {
	return math.Sqrt(r.Pitch*r.Pitch + r.Yaw*r.Yaw + r.Roll*r.Roll)
}

// Scale returns the rate multiplied by f.
func (r RotationRate) Scale(f float64) RotationRate {
	return RotationRate{Pitch: r.Pitch * f, Yaw: r.Yaw * f, Roll: r.Roll * f}
}

func (r RotationRate) dot(o RotationRate) float64 {
	return r.Pitch*o.Pitch + r.Yaw*o.Yaw + r.Roll*o.Roll
}

// Estimator converts successive hand states into a rotation rate.
//
// While swiping, the emitted rate is the peak windowed velocity of the latest
// swipe stroke, so the object keeps spinning after the hand comes to rest.
// A sustained open hand, or losing the hand for longer than the grace period,
// starts an exponential decay to zero. Not safe for concurrent use.
type Estimator struct {
	cfg Config

	window []HandState
	phase  Phase
	rate   RotationRate

	inStroke  bool
	openSince time.Time
	lastSeen  time.Time
	last      time.Time
}

// NewEstimator creates an estimator in the Idle phase.
func NewEstimator(cfg Config) *Estimator {
	return &Estimator{
		cfg:    cfg,
		window: make([]HandState, 0, cfg.MaxSamples),
	}
}

// Phase returns the current state machine phase.
func (e *Estimator) Phase() Phase { return e.phase }

// Rate returns the most recently emitted rate.
func (e *Estimator) Rate() RotationRate { return e.rate }

// Reset returns the estimator to Idle with an empty window.
func (e *Estimator) Reset() {
	e.window = e.window[:0]
	e.phase = Idle
	e.rate = RotationRate{}
	e.inStroke = false
	e.openSince = time.Time{}
	e.lastSeen = time.Time{}
	e.last = time.Time{}
}

// Update advances the estimator by one frame observed at now.
// A nil state means no hand was detected in the frame.
func (e *Estimator) Update(state *HandState, now time.Time) RotationRate {
	dt := e.advance(now)

	if state == nil {
		return e.missing(now, dt)
	}

	if now.After(e.lastSeen) {
		e.lastSeen = now
	}
	e.push(*state)

	if state.Openness >= e.cfg.OpenThreshold {
		if e.openSince.IsZero() {
			e.openSince = state.Timestamp
		}
	} else {
		e.openSince = time.Time{}
	}

	switch e.phase {
	case Idle:
		if v, ok := e.swipe(state); ok {
			e.rate = v
			e.inStroke = true
			e.phase = Swiping
		}
	case Swiping:
		if e.stopHeld(state.Timestamp) {
			e.phase = Stopping
			e.inStroke = false
			e.decay(dt)
			break
		}
		if v, ok := e.swipe(state); ok {
			// A new stroke, or a reversal, replaces the rate; within a stroke only a faster estimate does.
			if !e.inStroke || v.dot(e.rate) < 0 || v.Magnitude() > e.rate.Magnitude() {
				e.rate = v
			}
			e.inStroke = true
		} else {
			e.inStroke = false
			e.coast(dt)
		}
	case Stopping:
		e.decay(dt)
	}

	return e.rate
}

// advance records now as the latest update time and returns the elapsed time.
func (e *Estimator) advance(now time.Time) time.Duration {
	var dt time.Duration
	if !e.last.IsZero() && now.After(e.last) {
		dt = now.Sub(e.last)
	}
	if e.last.IsZero() || now.After(e.last) {
		e.last = now
	}
	return dt
}

// missing applies the dropout policy: hold for the grace period, then decay.
func (e *Estimator) missing(now time.Time, dt time.Duration) RotationRate {
	e.openSince = time.Time{}
	e.inStroke = false

	// A stop already under way keeps decaying; only a swipe is held.
	if e.phase == Stopping {
		e.decay(dt)
		return e.rate
	}

	if e.lastSeen.IsZero() || now.Sub(e.lastSeen) <= e.cfg.GracePeriod {
		return e.rate
	}

	if e.phase == Swiping {
		e.phase = Stopping
		e.window = e.window[:0]
		e.decay(dt)
	}
	return e.rate
}

// push appends a sample and evicts samples outside the window.
// Samples older than the newest one are ignored.
func (e *Estimator) push(s HandState) {
	if n := len(e.window); n > 0 && !s.Timestamp.After(e.window[n-1].Timestamp) {
		return
	}
	e.window = append(e.window, s)

	cutoff := s.Timestamp.Add(-e.cfg.Window)
	drop := 0
	for drop < len(e.window)-1 && e.window[drop].Timestamp.Before(cutoff) {
		drop++
	}
	if over := len(e.window) - drop - e.cfg.MaxSamples; over > 0 {
		drop += over
	}
	if drop > 0 {
		e.window = append(e.window[:0], e.window[drop:]...)
	}
}

// displacement returns the centroid travel across the window and its span.
func (e *Estimator) displacement() (dx, dy float64, span time.Duration, ok bool) {
	if len(e.window) < 2 {
		return 0, 0, 0, false
	}
	oldest, newest := e.window[0], e.window[len(e.window)-1]
	span = newest.Timestamp.Sub(oldest.Timestamp)
	if span <= 0 || span < e.cfg.MinSpan {
		return 0, 0, 0, false
	}
	return newest.Position.X - oldest.Position.X, newest.Position.Y - oldest.Position.Y, span, true
}

// swipe reports the rate implied by the window if it qualifies as a swipe.
// An open hand never swipes, so raising a palm to stop cannot restart rotation.
func (e *Estimator) swipe(state *HandState) (RotationRate, bool) {
	if state.Openness >= e.cfg.OpenThreshold {
		return RotationRate{}, false
	}
	dx, dy, span, ok := e.displacement()
	if !ok {
		return RotationRate{}, false
	}
	if !e.cfg.PitchEnabled {
		dy = 0
	}
	if math.Hypot(dx, dy) < e.cfg.SwipeDistance {
		return RotationRate{}, false
	}

	secs := span.Seconds()
	return RotationRate{
		Pitch: dy / secs * e.cfg.Sensitivity,
		Yaw:   dx / secs * e.cfg.Sensitivity,
	}, true
}

func (e *Estimator) stopHeld(ts time.Time) bool {
	return !e.openSince.IsZero() && ts.Sub(e.openSince) >= e.cfg.StopDwell
}

// decay eases the rate toward zero and returns to Idle once it is negligible.
func (e *Estimator) decay(dt time.Duration) {
	if dt > 0 {
		e.rate = e.rate.Scale(math.Exp(-dt.Seconds() / e.cfg.DecayTime.Seconds()))
	}
	if e.rate.Magnitude() < e.cfg.StopEpsilon {
		e.rate = RotationRate{}
		e.phase = Idle
		e.window = e.window[:0]
	}
}

// coast applies friction to a held swipe, never slowing it below BaseSpeed.
func (e *Estimator) coast(dt time.Duration) {
	if e.cfg.Friction <= 0 || dt <= 0 {
		return
	}
	mag := e.rate.Magnitude()
	if mag <= e.cfg.BaseSpeed {
		return
	}
	next := math.Max(mag*math.Exp(-e.cfg.Friction*dt.Seconds()), e.cfg.BaseSpeed)
	e.rate = e.rate.Scale(next / mag)
}
