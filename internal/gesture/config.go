package gesture

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the tunable parameters of the hand gesture estimator.
type Config struct {
	// Velocity estimation
	Sensitivity   float64       `yaml:"sensitivity"`    // rad/s of rotation per frame-width/s of hand motion
	Window        time.Duration `yaml:"window"`         // Span of retained hand samples
	MaxSamples    int           `yaml:"max_samples"`    // Hard cap on retained samples
	MinSpan       time.Duration `yaml:"min_span"`       // Minimum sample span before a velocity is trusted
	SwipeDistance float64       `yaml:"swipe_distance"` // Window displacement that counts as a swipe (normalized)
	PitchEnabled  bool          `yaml:"pitch_enabled"`  // Map vertical motion to pitch
	Handedness    string        `yaml:"handedness"`     // "", "Left" or "Right"

	// Stop gesture
	ClosedSpread  float64       `yaml:"closed_spread"`  // Fingertip spread (palm sizes) mapped to openness 0
	OpenSpread    float64       `yaml:"open_spread"`    // Fingertip spread (palm sizes) mapped to openness 1
	OpenThreshold float64       `yaml:"open_threshold"` // Openness at or above which the hand counts as open
	StopDwell     time.Duration `yaml:"stop_dwell"`     // How long the open hand must be held

	// Decay
	DecayTime   time.Duration `yaml:"decay_time"`   // Time constant of the stop decay
	StopEpsilon float64       `yaml:"stop_epsilon"` // Rate magnitude (rad/s) treated as stopped
	GracePeriod time.Duration `yaml:"grace_period"` // Hold time before a lost hand starts decaying
	Friction    float64       `yaml:"friction"`     // Fraction of rate lost per second while coasting (0 = none)
	BaseSpeed   float64       `yaml:"base_speed"`   // Spin (rad/s) that friction settles a swipe to (0 = none)
}

// DefaultConfig returns the recommended configuration.
func DefaultConfig() Config {
	return Config{
		Sensitivity:   3.0,
		Window:        200 * time.Millisecond,
		MaxSamples:    32,
		MinSpan:       50 * time.Millisecond,
		SwipeDistance: 0.08,
		PitchEnabled:  true,

		ClosedSpread:  1.0,
		OpenSpread:    2.0,
		OpenThreshold: 0.8,
		StopDwell:     300 * time.Millisecond,

		DecayTime:   150 * time.Millisecond,
		StopEpsilon: 1e-3,
		GracePeriod: 250 * time.Millisecond,
	}
}

// Validate reports every out-of-range parameter.
func (c Config) Validate() error {
	var errs []error
	if c.Sensitivity <= 0 {
		errs = append(errs, fmt.Errorf("sensitivity must be positive, got %g", c.Sensitivity))
	}
	if c.Window <= 0 {
		errs = append(errs, fmt.Errorf("window must be positive, got %s", c.Window))
	}
	if c.MaxSamples < 2 {
		errs = append(errs, fmt.Errorf("max_samples must be at least 2, got %d", c.MaxSamples))
	}
	if c.MinSpan < 0 || c.MinSpan >= c.Window {
		errs = append(errs, fmt.Errorf("min_span must be in [0, window), got %s", c.MinSpan))
	}
	if c.SwipeDistance <= 0 || c.SwipeDistance >= 1 {
		errs = append(errs, fmt.Errorf("swipe_distance must be in (0, 1), got %g", c.SwipeDistance))
	}
	switch c.Handedness {
	case "", "Left", "Right":
	default:
		errs = append(errs, fmt.Errorf("handedness must be empty, Left or Right, got %q", c.Handedness))
	}
	if c.OpenSpread <= c.ClosedSpread {
		errs = append(errs, fmt.Errorf("open_spread (%g) must exceed closed_spread (%g)", c.OpenSpread, c.ClosedSpread))
	}
	if c.OpenThreshold <= 0 || c.OpenThreshold > 1 {
		errs = append(errs, fmt.Errorf("open_threshold must be in (0, 1], got %g", c.OpenThreshold))
	}
	if c.StopDwell < 0 {
		errs = append(errs, fmt.Errorf("stop_dwell must not be negative, got %s", c.StopDwell))
	}
	if c.DecayTime <= 0 {
		errs = append(errs, fmt.Errorf("decay_time must be positive, got %s", c.DecayTime))
	}
	if c.StopEpsilon <= 0 {
		errs = append(errs, fmt.Errorf("stop_epsilon must be positive, got %g", c.StopEpsilon))
	}
	if c.GracePeriod < 0 {
		errs = append(errs, fmt.Errorf("grace_period must not be negative, got %s", c.GracePeriod))
	}
	if c.Friction < 0 {
		errs = append(errs, fmt.Errorf("friction must not be negative, got %g", c.Friction))
	}
	if c.BaseSpeed < 0 {
		errs = append(errs, fmt.Errorf("base_speed must not be negative, got %g", c.BaseSpeed))
	}
	return errors.Join(errs...)
}
