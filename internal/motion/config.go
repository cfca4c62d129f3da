package motion

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the fuser parameters.
type Config struct {
	Position [3]float64    `yaml:"position"` // Constant object position
	Scale    float64       `yaml:"scale"`    // Constant uniform scale
	MaxStep  time.Duration `yaml:"max_step"` // Largest elapsed time integrated in one update
}

// DefaultConfig returns the recommended configuration.
func DefaultConfig() Config {
	return Config{
		Scale:   1,
		MaxStep: 250 * time.Millisecond,
	}
}

// Validate reports every out-of-range parameter.
func (c Config) Validate() error {
	var errs []error
	if c.Scale <= 0 {
		errs = append(errs, fmt.Errorf("scale must be positive, got %g", c.Scale))
	}
	if c.MaxStep <= 0 {
		errs = append(errs, fmt.Errorf("max_step must be positive, got %s", c.MaxStep))
	}
	return errors.Join(errs...)
}
