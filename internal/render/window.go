package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"github.com/ayusman/sholo/internal/log"
	"github.com/ayusman/sholo/internal/motion"
)

var (
	background = gocv.NewScalar(24, 18, 12, 0)
	edgeColor  = color.RGBA{R: 255, G: 220, B: 90, A: 0}
	textColor  = color.RGBA{R: 200, G: 200, B: 200, A: 0}
)

const keyEscape = 27

// Window draws the mesh as a wireframe in a HighGUI window.
// All methods except Close must be called from the main OS thread.
type Window struct {
	cfg       Config
	win       *gocv.Window
	canvas    gocv.Mat
	mesh      *Mesh
	projector *Projector

	current motion.Transform
	frames  uint64
}

// NewWindow opens a window showing mesh. A nil mesh draws the cube.
func NewWindow(cfg Config, mesh *Mesh) *Window {
	if mesh == nil {
		mesh = Cube()
	}
	win := gocv.NewWindow(cfg.Title)
	win.ResizeWindow(cfg.Width, cfg.Height)
	if cfg.Fullscreen {
		if err := win.SetWindowProperty(gocv.WindowPropertyFullscreen, gocv.WindowFullscreen); err != nil {
			log.Warn("fullscreen not available", "error", err)
		}
	}

	return &Window{
		cfg:       cfg,
		win:       win,
		canvas:    gocv.NewMatWithSizeFromScalar(background, cfg.Height, cfg.Width, gocv.MatTypeCV8UC3),
		mesh:      mesh,
		projector: NewProjector(cfg.Width, cfg.Height, cfg.FOVDegrees, cfg.CameraDistance),
		current:   motion.Identity(),
	}
}

// SetTransform implements Sink.
func (w *Window) SetTransform(t motion.Transform) {
	w.current = t
}

// Redraw implements Sink. It polls the keyboard, returning ErrQuit for q or
// Esc, and ErrWindowClosed once the user closes the window.
func (w *Window) Redraw() error {
	w.canvas.SetTo(background)

	pts, ok := w.projector.Project(w.current, w.mesh.Vertices)
	for _, e := range w.mesh.Edges {
		if ok[e[0]] && ok[e[1]] {
			gocv.Line(&w.canvas, pts[e[0]], pts[e[1]], edgeColor, 1)
		}
	}
	if w.cfg.HUD {
		w.drawHUD()
	}

	w.win.IMShow(w.canvas)
	w.frames++

	switch key := w.win.WaitKey(1); key {
	case 'q', 'Q', keyEscape:
		return ErrQuit
	}
	if w.win.GetWindowProperty(gocv.WindowPropertyVisible) < 1 {
		return ErrWindowClosed
	}
	return nil
}

func (w *Window) drawHUD() {
	q := w.current.Rotation
	angle := 2 * math.Acos(math.Min(1, math.Abs(q.W)))
	lines := []string{
		fmt.Sprintf("angle %6.1f deg", angle*180/math.Pi),
		fmt.Sprintf("q [% .3f % .3f % .3f % .3f]", q.W, q.V[0], q.V[1], q.V[2]),
		fmt.Sprintf("frame %d", w.frames),
	}
	for i, s := range lines {
		gocv.PutText(&w.canvas, s, image.Pt(10, 20+18*i), gocv.FontHersheyPlain, 1.1, textColor, 1)
	}
}

// Close implements Sink.
func (w *Window) Close() error {
	if err := w.canvas.Close(); err != nil {
		return err
	}
	return w.win.Close()
}
