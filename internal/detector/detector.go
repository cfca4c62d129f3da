package detector

import "gocv.io/x/gocv"

// Detector defines the interface for landmark detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the hand and face landmarks found in it.
	// An empty Landmarks value means nothing was detected; that is not an error.
	Detect(frame *gocv.Mat) (Landmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for landmark detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 1).
	MaxHands int `yaml:"max_hands"`

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64 `yaml:"min_confidence"`

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64 `yaml:"min_tracking_confidence"`

	// Faces requests face/eye landmarks in addition to hands.
	Faces bool `yaml:"faces"`

	// ScriptPath overrides the MediaPipe service script location.
	ScriptPath string `yaml:"script_path"`

	// PythonPath overrides the Python interpreter used for the MediaPipe service.
	PythonPath string `yaml:"python_path"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        1,
		MinConfidence:   0.7,
		MinTrackingConf: 0.7,
		Faces:           true,
	}
}
