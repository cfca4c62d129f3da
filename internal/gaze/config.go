package gaze

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the tunable parameters of the gaze estimator.
type Config struct {
	Smoothing   float64       `yaml:"smoothing"`    // Low-pass weight of the newest estimate, (0, 1]
	GracePeriod time.Duration `yaml:"grace_period"` // Hold time before a lost face starts decaying
	DecayTime   time.Duration `yaml:"decay_time"`   // Time constant of the decay toward neutral

	NeutralX      float64 `yaml:"neutral_x"`      // Eye midpoint treated as looking straight on
	NeutralY      float64 `yaml:"neutral_y"`
	AutoCalibrate bool    `yaml:"auto_calibrate"` // Use the first observed face as neutral

	// Viewing geometry
	IPDCm           float64 `yaml:"ipd_cm"`            // Real inter-pupillary distance
	SceneDepthCm    float64 `yaml:"scene_depth_cm"`    // Distance of the virtual scene behind the screen
	FOVDegrees      float64 `yaml:"fov_degrees"`       // Camera horizontal field of view; 0 ignores viewer distance
	Aspect          float64 `yaml:"aspect"`            // Frame height divided by width
	Gain            float64 `yaml:"gain"`              // Multiplier on the geometric angle
	MaxAngleDegrees float64 `yaml:"max_angle_degrees"` // Clamp on each axis
}

// DefaultConfig returns the recommended configuration.
func DefaultConfig() Config {
	return Config{
		Smoothing:   0.3,
		GracePeriod: 300 * time.Millisecond,
		DecayTime:   400 * time.Millisecond,

		NeutralX: 0.5,
		NeutralY: 0.5,

		IPDCm:           6.5,
		SceneDepthCm:    200,
		FOVDegrees:      110,
		Aspect:          0.75,
		Gain:            1,
		MaxAngleDegrees: 30,
	}
}

// Validate reports every out-of-range parameter.
func (c Config) Validate() error {
	var errs []error
	if c.Smoothing <= 0 || c.Smoothing > 1 {
		errs = append(errs, fmt.Errorf("smoothing must be in (0, 1], got %g", c.Smoothing))
	}
	if c.GracePeriod < 0 {
		errs = append(errs, fmt.Errorf("grace_period must not be negative, got %s", c.GracePeriod))
	}
	if c.DecayTime <= 0 {
		errs = append(errs, fmt.Errorf("decay_time must be positive, got %s", c.DecayTime))
	}
	if c.NeutralX < 0 || c.NeutralX > 1 || c.NeutralY < 0 || c.NeutralY > 1 {
		errs = append(errs, fmt.Errorf("neutral point must lie in the frame, got (%g, %g)", c.NeutralX, c.NeutralY))
	}
	if c.IPDCm <= 0 {
		errs = append(errs, fmt.Errorf("ipd_cm must be positive, got %g", c.IPDCm))
	}
	if c.SceneDepthCm <= 0 {
		errs = append(errs, fmt.Errorf("scene_depth_cm must be positive, got %g", c.SceneDepthCm))
	}
	if c.FOVDegrees < 0 || c.FOVDegrees >= 180 {
		errs = append(errs, fmt.Errorf("fov_degrees must be in [0, 180), got %g", c.FOVDegrees))
	}
	if c.Aspect <= 0 {
		errs = append(errs, fmt.Errorf("aspect must be positive, got %g", c.Aspect))
	}
	if c.Gain == 0 {
		errs = append(errs, errors.New("gain must not be zero"))
	}
	if c.MaxAngleDegrees <= 0 || c.MaxAngleDegrees > 90 {
		errs = append(errs, fmt.Errorf("max_angle_degrees must be in (0, 90], got %g", c.MaxAngleDegrees))
	}
	return errors.Join(errs...)
}
