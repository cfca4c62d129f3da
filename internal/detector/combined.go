package detector

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// Combined takes hands from one detector and faces from another.
type Combined struct {
	hands Detector
	faces Detector
}

// NewCombined returns a detector that merges hand landmarks from hands
// with face landmarks from faces. Either may be nil.
func NewCombined(hands, faces Detector) *Combined {
	return &Combined{hands: hands, faces: faces}
}

// Detect runs both detectors on the same frame.
// A failure of either detector fails the frame.
func (c *Combined) Detect(frame *gocv.Mat) (Landmarks, error) {
	var result Landmarks

	if c.hands != nil {
		lm, err := c.hands.Detect(frame)
		if err != nil {
			return Landmarks{}, fmt.Errorf("hands: %w", err)
		}
		result.Hands = lm.Hands
		result.Timestamp = lm.Timestamp
	}

	if c.faces != nil {
		lm, err := c.faces.Detect(frame)
		if err != nil {
			return Landmarks{}, fmt.Errorf("faces: %w", err)
		}
		result.Faces = lm.Faces
		if result.Timestamp.IsZero() {
			result.Timestamp = lm.Timestamp
		}
	}

	return result, nil
}

// Close closes both detectors.
func (c *Combined) Close() error {
	var errs []error
	if c.hands != nil {
		errs = append(errs, c.hands.Close())
	}
	if c.faces != nil {
		errs = append(errs, c.faces.Close())
	}
	return errors.Join(errs...)
}
