// Package detector provides landmark detection interfaces and types for hand and eye tracking.
package detector

import (
	"math"
	"time"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// FingerTips lists the landmark indices of the five fingertips.
var FingerTips = [5]int{ThumbTip, IndexTip, MiddleTip, RingTip, PinkyTip}

// PalmPoints lists the landmarks that outline the palm: the wrist and the four finger MCP joints.
var PalmPoints = [5]int{Wrist, IndexMCP, MiddleMCP, RingMCP, PinkyMCP}

// Point3D represents a 3D point in space with x, y, z coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Mid returns the midpoint between p and q.
func (p Point3D) Mid(q Point3D) Point3D {
	return Point3D{X: (p.X + q.X) / 2, Y: (p.Y + q.Y) / 2, Z: (p.Z + q.Z) / 2}
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// FaceLandmarks holds the eye centers used for gaze estimation.
// Coordinates are normalized to the frame (0-1).
type FaceLandmarks struct {
	LeftEye  Point3D `json:"left_eye"`
	RightEye Point3D `json:"right_eye"`
	Score    float64 `json:"score"`
}

// EyeMidpoint returns the point halfway between both eye centers.
func (f *FaceLandmarks) EyeMidpoint() Point3D {
	return f.LeftEye.Mid(f.RightEye)
}

// InterEyeDistance returns the distance between both eye centers in the image
// plane, in frame widths. aspect is the frame height over its width; it
// converts the height-normalized vertical component so a tilted head measures
// the same as a level one.
func (f *FaceLandmarks) InterEyeDistance(aspect float64) float64 {
	return math.Hypot(f.LeftEye.X-f.RightEye.X, (f.LeftEye.Y-f.RightEye.Y)*aspect)
}

// Landmarks is everything a detector found in one frame.
type Landmarks struct {
	Hands     []HandLandmarks `json:"hands"`
	Faces     []FaceLandmarks `json:"faces"`
	Timestamp time.Time       `json:"timestamp"`
}

// HasHands reports whether at least one hand was detected.
func (l Landmarks) HasHands() bool { return len(l.Hands) > 0 }

// HasFaces reports whether at least one face was detected.
func (l Landmarks) HasFaces() bool { return len(l.Faces) > 0 }

// distance3D calculates the Euclidean distance between two 3D points.
func distance3D(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// PalmSize returns the distance from the wrist to the middle finger MCP.
func (h *HandLandmarks) PalmSize() float64 {
	return distance3D(h.Points[Wrist], h.Points[MiddleMCP])
}

// Normalize normalizes the hand landmarks relative to wrist position and hand size.
// The normalized landmarks have the wrist at origin (0,0,0) and are scaled
// so that the distance from wrist to middle finger MCP is 1.0.
// Returns a new HandLandmarks instance with normalized points.
func (h *HandLandmarks) Normalize() *HandLandmarks {
	if h == nil {
		return nil
	}

	normalized := &HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}

	wrist := h.Points[Wrist]
	for i := 0; i < NumLandmarks; i++ {
		normalized.Points[i] = Point3D{
			X: h.Points[i].X - wrist.X,
			Y: h.Points[i].Y - wrist.Y,
			Z: h.Points[i].Z - wrist.Z,
		}
	}

	scale := h.PalmSize()
	if scale < 1e-10 {
		return normalized
	}

	for i := 0; i < NumLandmarks; i++ {
		normalized.Points[i].X /= scale
		normalized.Points[i].Y /= scale
		normalized.Points[i].Z /= scale
	}

	return normalized
}

// Translate returns a copy of the hand with every point shifted by (dx, dy).
func (h HandLandmarks) Translate(dx, dy float64) HandLandmarks {
	for i := range h.Points {
		h.Points[i].X += dx
		h.Points[i].Y += dy
	}
	return h
}
