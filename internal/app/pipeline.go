package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/sholo/internal/capture"
	"github.com/ayusman/sholo/internal/detector"
	"github.com/ayusman/sholo/internal/gaze"
	"github.com/ayusman/sholo/internal/gesture"
	"github.com/ayusman/sholo/internal/log"
	"github.com/ayusman/sholo/internal/motion"
	"github.com/ayusman/sholo/internal/render"
)

// captureLoop is the estimation side of the app. For every frame it:
//  1. reads the camera and detects landmarks
//  2. picks the tracked hand and face
//  3. updates the hand and gaze estimators
//  4. fuses both into a transform and publishes it
//  5. hands the annotated frame to the preview, if any
//
// It returns nil when the channel closes, ctx is cancelled or the camera runs
// out of frames, and an error on camera failure or when the detector fails
// MaxDetectFailures frames in a row.
func (a *App) captureLoop(ctx context.Context) error {
	defer func() {
		if err := a.camera.Close(); err != nil {
			log.Warn("closing camera", "error", err)
		}
	}()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-a.channel.Done():
			return nil
		default:
		}

		frame, err := a.camera.ReadFrame()
		if err != nil {
			if errors.Is(err, capture.ErrEndOfStream) {
				log.Info("camera stream ended")
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}

		lm, err := a.detector.Detect(frame)
		if err != nil {
			frame.Close()
			failures++
			log.Warn("landmark detection failed", "error", err, "consecutive", failures)
			if failures >= a.cfg.Tracking.MaxDetectFailures {
				return fmt.Errorf("detector failed %d frames in a row: %w", failures, err)
			}
			continue
		}
		failures = 0

		ok := a.channel.Publish(a.step(lm))
		if ok && a.frames != nil {
			a.frames.Submit(frame, lm, a.previewInfo())
		}
		frame.Close()
		if !ok {
			return nil
		}
	}
}

// step runs the estimators and the fuser on one frame's landmarks.
func (a *App) step(lm detector.Landmarks) motion.Transform {
	now := lm.Timestamp
	if now.IsZero() {
		now = time.Now()
	}

	var hand *gesture.HandState
	if a.HandTracking() {
		if h := gesture.SelectHand(lm.Hands, a.cfg.Gesture.Handedness); h != nil {
			s := gesture.StateFromLandmarks(h, now, a.cfg.Gesture.ClosedSpread, a.cfg.Gesture.OpenSpread)
			hand = &s
		}
	}

	var face *detector.FaceLandmarks
	if a.EyeTracking() {
		face = gaze.SelectFace(lm.Faces)
	}

	a.setModes(Modes{HandActive: hand != nil, EyeActive: face != nil})

	rate := a.hands.Update(hand, now)
	if phase := a.hands.Phase(); phase != a.phase {
		log.Debug("hand phase", "from", a.phase, "to", phase, "yaw", rate.Yaw, "pitch", rate.Pitch)
		a.phase = phase
	}
	offset := a.eyes.Update(face, now)

	var elapsed time.Duration
	if !a.last.IsZero() {
		elapsed = now.Sub(a.last)
	}
	if now.After(a.last) {
		a.last = now
	}

	return a.fuser.Update(rate, offset, elapsed)
}

// previewInfo summarizes the estimators for the camera preview.
func (a *App) previewInfo() render.PreviewInfo {
	off := a.eyes.Offset()
	return render.PreviewInfo{
		Phase:     a.hands.Phase().String(),
		Rate:      a.hands.Rate().Magnitude(),
		GazeYaw:   off.Yaw,
		GazePitch: off.Pitch,
		Distance:  a.eyes.ViewerDistance(),
	}
}

func (a *App) setModes(m Modes) {
	a.mu.Lock()
	changed := m != a.modes
	a.modes = m
	callback := a.onModes
	a.mu.Unlock()

	if changed {
		log.Info("tracking modes changed", "hand", m.HandActive, "eye", m.EyeActive)
		if callback != nil {
			callback(m)
		}
	}
}
