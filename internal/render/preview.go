package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/sholo/internal/detector"
	"github.com/ayusman/sholo/internal/motion"
)

var (
	boneColor  = color.RGBA{R: 80, G: 200, B: 80, A: 0}
	jointColor = color.RGBA{R: 60, G: 60, B: 230, A: 0}
	eyeColor   = color.RGBA{R: 230, G: 160, B: 40, A: 0}
)

// handBones joins the hand landmarks into a skeleton.
var handBones = [][2]int{
	{detector.Wrist, detector.ThumbCMC}, {detector.ThumbCMC, detector.ThumbMCP},
	{detector.ThumbMCP, detector.ThumbIP}, {detector.ThumbIP, detector.ThumbTip},
	{detector.Wrist, detector.IndexMCP}, {detector.IndexMCP, detector.IndexPIP},
	{detector.IndexPIP, detector.IndexDIP}, {detector.IndexDIP, detector.IndexTip},
	{detector.MiddleMCP, detector.MiddlePIP}, {detector.MiddlePIP, detector.MiddleDIP},
	{detector.MiddleDIP, detector.MiddleTip},
	{detector.RingMCP, detector.RingPIP}, {detector.RingPIP, detector.RingDIP},
	{detector.RingDIP, detector.RingTip},
	{detector.Wrist, detector.PinkyMCP}, {detector.PinkyMCP, detector.PinkyPIP},
	{detector.PinkyPIP, detector.PinkyDIP}, {detector.PinkyDIP, detector.PinkyTip},
	{detector.IndexMCP, detector.MiddleMCP}, {detector.MiddleMCP, detector.RingMCP},
	{detector.RingMCP, detector.PinkyMCP},
}

// PreviewInfo is the estimator state printed over the camera preview.
type PreviewInfo struct {
	Phase     string  // hand gesture phase
	Rate      float64 // hand rotation rate in rad/s
	GazeYaw   float64 // radians
	GazePitch float64 // radians
	Distance  float64 // estimated viewer distance in cm, 0 when unknown
}

// frameSlot keeps the newest submitted frame until the preview takes it.
type frameSlot struct {
	mu      sync.Mutex
	frame   gocv.Mat
	lm      detector.Landmarks
	info    PreviewInfo
	fresh   bool
	dropped uint64
}

func newFrameSlot() *frameSlot {
	return &frameSlot{frame: gocv.NewMat()}
}

// put copies frame into the slot, replacing a frame nobody took.
func (s *frameSlot) put(frame *gocv.Mat, lm detector.Landmarks, info PreviewInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fresh {
		s.dropped++
	}
	frame.CopyTo(&s.frame)
	s.lm = lm
	s.info = info
	s.fresh = true
}

// take copies the pending frame into dst. It reports false when nothing new
// was submitted since the last take.
func (s *frameSlot) take(dst *gocv.Mat) (detector.Landmarks, PreviewInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.fresh {
		return detector.Landmarks{}, PreviewInfo{}, false
	}
	s.frame.CopyTo(dst)
	s.fresh = false
	return s.lm, s.info, true
}

func (s *frameSlot) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame.Close()
}

// Preview shows the camera frames with the detected landmarks and the
// estimator state in a second HighGUI window. Submit may be called from any
// goroutine; Redraw must run on the main OS thread like Window.
type Preview struct {
	win    *gocv.Window
	slot   *frameSlot
	canvas gocv.Mat
	shown  bool
}

// NewPreview opens the preview window.
func NewPreview(title string) *Preview {
	return &Preview{
		win:    gocv.NewWindow(title),
		slot:   newFrameSlot(),
		canvas: gocv.NewMat(),
	}
}

// Submit queues a camera frame for display. The frame is copied, so the
// caller keeps ownership.
func (p *Preview) Submit(frame *gocv.Mat, lm detector.Landmarks, info PreviewInfo) {
	p.slot.put(frame, lm, info)
}

// SetTransform implements Sink. The preview shows camera frames only.
func (p *Preview) SetTransform(motion.Transform) {}

// Redraw implements Sink. It shows the newest submitted frame and polls the
// keyboard the way Window does.
func (p *Preview) Redraw() error {
	if lm, info, ok := p.slot.take(&p.canvas); ok && !p.canvas.Empty() {
		annotate(&p.canvas, lm, info)
		p.win.IMShow(p.canvas)
		p.shown = true
	}

	switch key := p.win.WaitKey(1); key {
	case 'q', 'Q', keyEscape:
		return ErrQuit
	}
	if p.shown && p.win.GetWindowProperty(gocv.WindowPropertyVisible) < 1 {
		return ErrWindowClosed
	}
	return nil
}

// Close implements Sink.
func (p *Preview) Close() error {
	if err := p.slot.close(); err != nil {
		return err
	}
	if err := p.canvas.Close(); err != nil {
		return err
	}
	return p.win.Close()
}

// annotate draws hand skeletons, eye markers and the estimator state onto img.
func annotate(img *gocv.Mat, lm detector.Landmarks, info PreviewInfo) {
	w, h := float64(img.Cols()), float64(img.Rows())
	px := func(p detector.Point3D) image.Point {
		return image.Pt(int(math.Round(p.X*w)), int(math.Round(p.Y*h)))
	}

	for i := range lm.Hands {
		pts := lm.Hands[i].Points
		for _, b := range handBones {
			gocv.Line(img, px(pts[b[0]]), px(pts[b[1]]), boneColor, 2)
		}
		for _, p := range pts {
			gocv.Circle(img, px(p), 3, jointColor, -1)
		}
	}
	for _, f := range lm.Faces {
		gocv.Circle(img, px(f.LeftEye), 5, eyeColor, 2)
		gocv.Circle(img, px(f.RightEye), 5, eyeColor, 2)
		gocv.Line(img, px(f.LeftEye), px(f.RightEye), eyeColor, 1)
	}

	lines := []string{
		fmt.Sprintf("hand %s %.2f rad/s", info.Phase, info.Rate),
		fmt.Sprintf("gaze yaw %5.1f pitch %5.1f deg", info.GazeYaw*180/math.Pi, info.GazePitch*180/math.Pi),
	}
	if info.Distance > 0 {
		lines = append(lines, fmt.Sprintf("viewer %.0f cm", info.Distance))
	}
	for i, s := range lines {
		gocv.PutText(img, s, image.Pt(10, 20+18*i), gocv.FontHersheyPlain, 1.1, textColor, 1)
	}
}
