package render

import (
	"errors"
	"fmt"
)

// Config holds the render window parameters.
type Config struct {
	Enabled        bool    `yaml:"enabled"`         // Open the wireframe window
	Title          string  `yaml:"title"`           // Window title
	Width          int     `yaml:"width"`           // Canvas width in pixels
	Height         int     `yaml:"height"`          // Canvas height in pixels
	FPS            int     `yaml:"fps"`             // Redraw rate of the render loop
	FOVDegrees     float64 `yaml:"fov_degrees"`     // Vertical field of view of the virtual camera
	CameraDistance float64 `yaml:"camera_distance"` // Distance of the virtual camera from the origin
	Model          string  `yaml:"model"`           // glTF 2.0 model (.glb or .gltf); empty draws a cube
	HUD            bool    `yaml:"hud"`             // Overlay rotation and frame stats
	Fullscreen     bool    `yaml:"fullscreen"`      // Stretch the wireframe window over the screen
	Preview        bool    `yaml:"preview"`         // Show the annotated camera feed in a second window
}

// DefaultConfig returns the recommended configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		Title:          "SHolo",
		Width:          800,
		Height:         600,
		FPS:            60,
		FOVDegrees:     45,
		CameraDistance: 4,
		HUD:            true,
	}
}

// Validate reports every out-of-range parameter.
func (c Config) Validate() error {
	var errs []error
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size must be positive, got %dx%d", c.Width, c.Height))
	}
	if c.FPS <= 0 || c.FPS > 240 {
		errs = append(errs, fmt.Errorf("fps must be in [1, 240], got %d", c.FPS))
	}
	if c.FOVDegrees <= 0 || c.FOVDegrees >= 180 {
		errs = append(errs, fmt.Errorf("fov_degrees must be in (0, 180), got %g", c.FOVDegrees))
	}
	if c.CameraDistance <= 0 {
		errs = append(errs, fmt.Errorf("camera_distance must be positive, got %g", c.CameraDistance))
	}
	return errors.Join(errs...)
}
