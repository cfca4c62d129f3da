package detector

import (
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// YuNetConfig holds configuration for the YuNet face detector.
type YuNetConfig struct {
	ModelPath        string  `yaml:"model_path"`   // Path to ONNX model
	ConfidenceThresh float64 `yaml:"confidence"`   // Minimum confidence (default 0.6)
	InputWidth       int     `yaml:"input_width"`  // Model input width
	InputHeight      int     `yaml:"input_height"` // Model input height
}

// DefaultYuNetConfig returns defaults for the OpenCV Zoo YuNet model.
func DefaultYuNetConfig() YuNetConfig {
	return YuNetConfig{
		ModelPath:        "models/face_detection_yunet_2023mar.onnx",
		ConfidenceThresh: 0.6,
		InputWidth:       320,
		InputHeight:      320,
	}
}

// YuNetDetector finds faces and eye centers with OpenCV's FaceDetectorYN.
// It never reports hands; pair it with a hand detector through Combined.
type YuNetDetector struct {
	detector gocv.FaceDetectorYN
	config   YuNetConfig
	mu       sync.Mutex
}

// NewYuNet creates a YuNet face detector. The model file must exist.
func NewYuNet(cfg YuNetConfig) (*YuNetDetector, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("yunet model: %w", err)
	}

	detector := gocv.NewFaceDetectorYNWithParams(
		cfg.ModelPath,
		"",
		image.Pt(cfg.InputWidth, cfg.InputHeight),
		float32(cfg.ConfidenceThresh),
		0.3,  // NMS threshold
		5000, // Top K
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	return &YuNetDetector{
		detector: detector,
		config:   cfg,
	}, nil
}

// Detect finds faces in the frame and returns their eye centers.
func (d *YuNetDetector) Detect(frame *gocv.Mat) (Landmarks, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	result := Landmarks{Timestamp: time.Now()}
	if frame == nil || frame.Empty() {
		return result, fmt.Errorf("empty frame")
	}

	imgW := float64(frame.Cols())
	imgH := float64(frame.Rows())

	d.detector.SetInputSize(image.Pt(frame.Cols(), frame.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()

	d.detector.Detect(*frame, &faces)

	// YuNet output format (15 columns):
	// 0-3: x, y, w, h (bounding box in pixels)
	// 4-5: right eye, 6-7: left eye, 8-9: nose tip
	// 10-13: mouth corners
	// 14: face score
	at := func(r, c int) float64 { return float64(faces.GetFloatAt(r, c)) }
	for r := 0; r < faces.Rows(); r++ {
		result.Faces = append(result.Faces, FaceLandmarks{
			RightEye: Point3D{X: at(r, 4) / imgW, Y: at(r, 5) / imgH},
			LeftEye:  Point3D{X: at(r, 6) / imgW, Y: at(r, 7) / imgH},
			Score:    at(r, 14),
		})
	}

	return result, nil
}

// Close releases the detector resources.
func (d *YuNetDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detector.Close()
	return nil
}
