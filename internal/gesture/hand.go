// Package gesture turns a stream of hand landmarks into a rotation rate
// with a smooth stop gesture.
package gesture

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/sholo/internal/detector"
)

// Point is a position in normalized image coordinates.
type Point struct {
	X float64
	Y float64
}

// HandState is the per-frame summary of a tracked hand.
type HandState struct {
	Position  Point     // Palm centroid
	Openness  float64   // 0 = fist, 1 = fully open
	Timestamp time.Time // Frame time
}

// StateFromLandmarks summarizes a hand.
//
// The palm centroid is the mean of the wrist and the four finger MCP joints.
// Openness is the mean fingertip distance from that centroid, in palm sizes
// (wrist to middle MCP), mapped linearly from [closedSpread, openSpread] to [0, 1].
func StateFromLandmarks(h *detector.HandLandmarks, ts time.Time, closedSpread, openSpread float64) HandState {
	var xs, ys [len(detector.PalmPoints)]float64
	for i, idx := range detector.PalmPoints {
		xs[i] = h.Points[idx].X
		ys[i] = h.Points[idx].Y
	}

	return HandState{
		Position:  Point{X: stat.Mean(xs[:], nil), Y: stat.Mean(ys[:], nil)},
		Openness:  openness(h, closedSpread, openSpread),
		Timestamp: ts,
	}
}

func openness(h *detector.HandLandmarks, closedSpread, openSpread float64) float64 {
	if h.PalmSize() < 1e-9 || openSpread <= closedSpread {
		return 0
	}
	n := h.Normalize()

	var cx, cy [len(detector.PalmPoints)]float64
	for i, idx := range detector.PalmPoints {
		cx[i] = n.Points[idx].X
		cy[i] = n.Points[idx].Y
	}
	centerX, centerY := stat.Mean(cx[:], nil), stat.Mean(cy[:], nil)

	var dists [len(detector.FingerTips)]float64
	for i, idx := range detector.FingerTips {
		dists[i] = math.Hypot(n.Points[idx].X-centerX, n.Points[idx].Y-centerY)
	}
	spread := stat.Mean(dists[:], nil)

	return clamp((spread-closedSpread)/(openSpread-closedSpread), 0, 1)
}

// SelectHand picks the highest-scoring hand, restricted to one handedness
// unless handedness is empty. Returns nil if no hand qualifies.
func SelectHand(hands []detector.HandLandmarks, handedness string) *detector.HandLandmarks {
	var best *detector.HandLandmarks
	for i := range hands {
		if handedness != "" && hands[i].Handedness != handedness {
			continue
		}
		if best == nil || hands[i].Score > best.Score {
			best = &hands[i]
		}
	}
	return best
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
