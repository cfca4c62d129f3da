// Package config loads the SHolo configuration file.
//
// Every field has a default, so a configuration file only needs the values
// it changes. Durations are Go duration strings such as "250ms".
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/sholo/internal/capture"
	"github.com/ayusman/sholo/internal/detector"
	"github.com/ayusman/sholo/internal/gaze"
	"github.com/ayusman/sholo/internal/gesture"
	"github.com/ayusman/sholo/internal/motion"
	"github.com/ayusman/sholo/internal/render"
	"github.com/ayusman/sholo/internal/server"
)

// Detector backends.
const (
	BackendMediaPipe = "mediapipe" // hands and faces from the MediaPipe service
	BackendYuNet     = "yunet"     // faces only, in-process
	BackendCombined  = "combined"  // hands from MediaPipe, faces from YuNet
	BackendMock      = "mock"      // no detections; for dry runs
)

const maxFileSize = 1 << 20

// Config is the root configuration.
type Config struct {
	LogLevel string         `yaml:"log_level"`
	Camera   capture.Config `yaml:"camera"`
	Detector DetectorConfig `yaml:"detector"`
	Tracking TrackingConfig `yaml:"tracking"`
	Gesture  gesture.Config `yaml:"gesture"`
	Gaze     gaze.Config    `yaml:"gaze"`
	Motion   motion.Config  `yaml:"motion"`
	Render   render.Config  `yaml:"render"`
	Server   server.Config  `yaml:"server"`
	Tray     TrayConfig     `yaml:"tray"`
}

// DetectorConfig selects and configures the landmark detector.
type DetectorConfig struct {
	Backend         string `yaml:"backend"`
	detector.Config `yaml:",inline"`
	YuNet           detector.YuNetConfig `yaml:"yunet"`
}

// TrackingConfig controls which inputs drive the transform.
type TrackingConfig struct {
	Hands             bool `yaml:"hands"`               // Hand swipes rotate the object
	Eyes              bool `yaml:"eyes"`                // Head position offsets the view
	MaxDetectFailures int  `yaml:"max_detect_failures"` // Consecutive detector errors before giving up
}

// TrayConfig controls the system tray menu of a windowless run.
type TrayConfig struct {
	Enabled bool `yaml:"enabled"` // Show hand and eye toggles and Quit in the tray
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
		Camera:   capture.DefaultConfig(),
		Detector: DetectorConfig{
			Backend: BackendMediaPipe,
			Config:  detector.DefaultConfig(),
			YuNet:   detector.DefaultYuNetConfig(),
		},
		Tracking: TrackingConfig{
			Hands:             true,
			Eyes:              true,
			MaxDetectFailures: 30,
		},
		Gesture: gesture.DefaultConfig(),
		Gaze:    gaze.DefaultConfig(),
		Motion:  motion.DefaultConfig(),
		Render:  render.DefaultConfig(),
		Server:  server.DefaultConfig(),
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	cleanPath := filepath.Clean(path)

	info, err := os.Stat(cleanPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return Config{}, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	f, err := os.Open(cleanPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", cleanPath, err)
	}
	return cfg, nil
}

// Parse decodes YAML from r over the defaults and validates the result.
// Unknown keys are rejected.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks every section and reports all problems at once.
func (c Config) Validate() error {
	var errs []error
	add := func(section string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", section, err))
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level: unknown level %q", c.LogLevel))
	}

	add("camera", validateCamera(c.Camera))
	add("detector", c.Detector.validate())
	add("tracking", c.Tracking.validate())
	add("gesture", c.Gesture.Validate())
	add("gaze", c.Gaze.Validate())
	add("motion", c.Motion.Validate())
	add("render", c.Render.Validate())
	add("server", c.Server.Validate())

	if !c.Render.Enabled && !c.Server.Enabled {
		errs = append(errs, errors.New("at least one of render and server must be enabled"))
	}
	if c.Tray.Enabled && (c.Render.Enabled || c.Render.Preview) {
		errs = append(errs, errors.New("tray: render.enabled and render.preview must be off, the tray needs the main thread"))
	}

	return errors.Join(errs...)
}

func validateCamera(c capture.Config) error {
	var errs []error
	if c.DeviceID < 0 {
		errs = append(errs, fmt.Errorf("device_id must not be negative, got %d", c.DeviceID))
	}
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("frame size must be positive, got %dx%d", c.Width, c.Height))
	}
	if c.FPS <= 0 {
		errs = append(errs, fmt.Errorf("fps must be positive, got %d", c.FPS))
	}
	return errors.Join(errs...)
}

func (d DetectorConfig) validate() error {
	var errs []error
	switch d.Backend {
	case BackendMediaPipe, BackendYuNet, BackendCombined, BackendMock:
	default:
		errs = append(errs, fmt.Errorf("backend: unknown backend %q", d.Backend))
	}
	if d.MaxHands < 1 {
		errs = append(errs, fmt.Errorf("max_hands must be at least 1, got %d", d.MaxHands))
	}
	if d.MinConfidence < 0 || d.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("min_confidence must be in [0, 1], got %g", d.MinConfidence))
	}
	if d.MinTrackingConf < 0 || d.MinTrackingConf > 1 {
		errs = append(errs, fmt.Errorf("min_tracking_confidence must be in [0, 1], got %g", d.MinTrackingConf))
	}
	if d.Backend == BackendYuNet || d.Backend == BackendCombined {
		if d.YuNet.ModelPath == "" {
			errs = append(errs, errors.New("yunet.model_path is required"))
		}
		if d.YuNet.InputWidth <= 0 || d.YuNet.InputHeight <= 0 {
			errs = append(errs, fmt.Errorf("yunet input size must be positive, got %dx%d", d.YuNet.InputWidth, d.YuNet.InputHeight))
		}
	}
	return errors.Join(errs...)
}

func (t TrackingConfig) validate() error {
	var errs []error
	if !t.Hands && !t.Eyes {
		errs = append(errs, errors.New("at least one of hands and eyes must be enabled"))
	}
	if t.MaxDetectFailures < 1 {
		errs = append(errs, fmt.Errorf("max_detect_failures must be at least 1, got %d", t.MaxDetectFailures))
	}
	return errors.Join(errs...)
}
