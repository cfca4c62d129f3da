package app

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/sholo/internal/capture"
	"github.com/ayusman/sholo/internal/config"
	"github.com/ayusman/sholo/internal/detector"
	"github.com/ayusman/sholo/internal/gesture"
	"github.com/ayusman/sholo/internal/motion"
	"github.com/ayusman/sholo/internal/render"
)

// stubSink records redraws and can end the render loop.
type stubSink struct {
	mu       sync.Mutex
	redraws  int
	quitAt   int
	failWith error
	closed   bool
	last     motion.Transform
}

func (s *stubSink) SetTransform(t motion.Transform) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = t
}

func (s *stubSink) Redraw() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redraws++
	if s.quitAt > 0 && s.redraws >= s.quitAt {
		if s.failWith != nil {
			return s.failWith
		}
		return render.ErrQuit
	}
	return nil
}

func (s *stubSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *stubSink) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Detector.Backend = config.BackendMock
	cfg.Render.FPS = 200
	cfg.Tracking.MaxDetectFailures = 3
	return cfg
}

func blankFrames(t *testing.T, n int) []*gocv.Mat {
	t.Helper()
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		m := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
		frames[i] = &m
	}
	t.Cleanup(func() {
		for _, f := range frames {
			f.Close()
		}
	})
	return frames
}

// swipeSequence moves a closed fist's palm centroid from x=0.3 to x=0.7 over
// 500ms at 30 FPS, then holds it still.
func swipeSequence(n int) []detector.Landmarks {
	fist := detector.FistLandmarks()
	start := time.Unix(1000, 0)
	centroid := gesture.StateFromLandmarks(&fist, start, 1, 2).Position.X

	seq := make([]detector.Landmarks, n)
	for i := range seq {
		x := 0.7
		if i <= 15 {
			x = 0.3 + 0.4*float64(i)/15
		}
		seq[i] = detector.Landmarks{
			Hands:     []detector.HandLandmarks{fist.Translate(x-centroid, 0)},
			Timestamp: start.Add(time.Duration(i) * time.Second / 30),
		}
	}
	return seq
}

func runWithTimeout(t *testing.T, a *App) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
		return nil
	}
}

func TestApp_SwipeRotatesObject(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	const n = 30
	cam := capture.NewMockCamera(blankFrames(t, n), false)
	det := detector.NewMockDetector()
	det.SetSequence(swipeSequence(n))
	sink := &stubSink{}

	a, err := New(testConfig(), Options{Camera: cam, Detector: det, Sink: sink})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := runWithTimeout(t, a); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := a.Channel().Stats().Published; got != n {
		t.Errorf("expected %d published transforms, got %d", n, got)
	}
	if a.hands.Phase() != gesture.Swiping {
		t.Errorf("expected swiping phase, got %s", a.hands.Phase())
	}

	rot := a.Channel().Current().Rotation
	angle := 2 * math.Acos(math.Min(1, math.Abs(rot.W)))
	if angle < 0.5 {
		t.Errorf("expected the swipe to rotate the object, angle = %.3f", angle)
	}
	if rot.V[1]*rot.W <= 0 {
		t.Errorf("expected a positive yaw, got %v", rot)
	}

	if !a.Modes().HandActive || a.Modes().EyeActive {
		t.Errorf("unexpected modes %+v", a.Modes())
	}
	if cam.IsOpen() {
		t.Error("camera left open")
	}
	if !det.Closed() {
		t.Error("detector not closed")
	}
	if !sink.isClosed() {
		t.Error("sink not closed")
	}
	if !a.Channel().Closed() {
		t.Error("channel not closed")
	}
}

func TestApp_EyeOnly(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	cam := capture.NewMockCamera(blankFrames(t, 20), false)
	det := detector.NewMockDetector()
	det.SetFaces([]detector.FaceLandmarks{detector.FaceAt(0.65, 0.5, 0.1)})

	a, err := New(testConfig(), Options{Camera: cam, Detector: det, Sink: &stubSink{}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := runWithTimeout(t, a); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if m := a.Modes(); m.HandActive || !m.EyeActive {
		t.Errorf("unexpected modes %+v", m)
	}
	if a.fuser.HandRotation() != motion.Identity().Rotation {
		t.Errorf("hand rotation moved without a hand: %v", a.fuser.HandRotation())
	}
	if a.Channel().Current().Rotation.V[1] <= 0 {
		t.Errorf("expected a gaze yaw, got %v", a.Channel().Current().Rotation)
	}
}

func TestApp_QuitStopsCapture(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	cam := capture.NewMockCamera(blankFrames(t, 5), true)
	det := detector.NewMockDetector()
	sink := &stubSink{quitAt: 3}

	a, err := New(testConfig(), Options{Camera: cam, Detector: det, Sink: sink})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := runWithTimeout(t, a); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if cam.IsOpen() {
		t.Error("camera left open after quit")
	}
	if cam.Closes() != 1 {
		t.Errorf("expected camera closed once, got %d", cam.Closes())
	}
	if !a.Channel().Closed() {
		t.Error("channel not closed after quit")
	}
}

func TestApp_DetectorFailures(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	boom := errors.New("service crashed")
	cam := capture.NewMockCamera(blankFrames(t, 5), true)
	det := detector.NewMockDetector()
	det.SetError(boom)
	sink := &stubSink{}

	a, err := New(testConfig(), Options{Camera: cam, Detector: det, Sink: sink})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = runWithTimeout(t, a)
	if !errors.Is(err, boom) {
		t.Fatalf("expected detector error, got %v", err)
	}
	if det.Calls() != 3 {
		t.Errorf("expected 3 detection attempts, got %d", det.Calls())
	}
	if !sink.isClosed() {
		t.Error("sink not closed after capture failure")
	}
}

func TestApp_CameraFailure(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	broken := errors.New("device unplugged")
	cam := capture.NewMockCamera(blankFrames(t, 1), true)
	cam.SetReadError(broken)

	a, err := New(testConfig(), Options{Camera: cam, Detector: detector.NewMockDetector(), Sink: &stubSink{}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = runWithTimeout(t, a)
	if !errors.Is(err, broken) {
		t.Fatalf("expected camera error, got %v", err)
	}
	if cam.IsOpen() {
		t.Error("camera left open")
	}
}

func TestApp_RenderFailure(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	gpu := errors.New("draw failed")
	cam := capture.NewMockCamera(blankFrames(t, 5), true)
	sink := &stubSink{quitAt: 2, failWith: gpu}

	a, err := New(testConfig(), Options{Camera: cam, Detector: detector.NewMockDetector(), Sink: sink})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = runWithTimeout(t, a)
	if !errors.Is(err, gpu) {
		t.Fatalf("expected render error, got %v", err)
	}
	if cam.IsOpen() {
		t.Error("capture loop kept the camera open after a render failure")
	}
	if a.Channel().Publish(motion.Identity()) {
		t.Error("publish succeeded after the render loop ended")
	}
}

// frameRecorder stands in for the camera preview.
type frameRecorder struct {
	mu     sync.Mutex
	frames int
	widths []int
	last   render.PreviewInfo
}

func (r *frameRecorder) Submit(frame *gocv.Mat, _ detector.Landmarks, info render.PreviewInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames++
	r.widths = append(r.widths, frame.Cols())
	r.last = info
}

func TestApp_PreviewReceivesFrames(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	const n = 30
	cam := capture.NewMockCamera(blankFrames(t, n), false)
	det := detector.NewMockDetector()
	det.SetSequence(swipeSequence(n))
	rec := &frameRecorder{}

	a, err := New(testConfig(), Options{Camera: cam, Detector: det, Sink: &stubSink{}, Frames: rec})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := runWithTimeout(t, a); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.frames != n {
		t.Errorf("expected %d preview frames, got %d", n, rec.frames)
	}
	for i, w := range rec.widths {
		if w != 64 {
			t.Fatalf("frame %d reached the preview with width %d", i, w)
		}
	}
	if rec.last.Phase != gesture.Swiping.String() || rec.last.Rate <= 0 {
		t.Errorf("preview info does not reflect the swipe: %+v", rec.last)
	}
}
