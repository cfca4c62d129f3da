package render

import (
	"image"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/ayusman/sholo/internal/motion"
)

// Projector maps model-space points to canvas pixels through a fixed
// perspective camera looking down -Z at the origin.
type Projector struct {
	width, height int
	view          mgl64.Mat4
	projection    mgl64.Mat4
}

// NewProjector creates a projector for a width x height canvas.
func NewProjector(width, height int, fovDegrees, distance float64) *Projector {
	aspect := float64(width) / float64(height)
	return &Projector{
		width:  width,
		height: height,
		view: mgl64.LookAtV(
			mgl64.Vec3{0, 0, distance},
			mgl64.Vec3{0, 0, 0},
			mgl64.Vec3{0, 1, 0},
		),
		projection: mgl64.Perspective(mgl64.DegToRad(fovDegrees), aspect, 0.1, 100),
	}
}

// Project returns the pixel positions of vertices under t. ok[i] is false
// for vertices behind the camera.
func (p *Projector) Project(t motion.Transform, vertices []mgl64.Vec3) (pts []image.Point, ok []bool) {
	modelView := p.view.Mul4(t.Matrix())
	pts = make([]image.Point, len(vertices))
	ok = make([]bool, len(vertices))

	for i, v := range vertices {
		eye := modelView.Mul4x1(v.Vec4(1))
		if eye[2] >= 0 {
			continue
		}
		win := mgl64.Project(v, modelView, p.projection, 0, 0, p.width, p.height)
		// Window coordinates grow upward; image rows grow downward.
		pts[i] = image.Pt(int(win[0]+0.5), p.height-int(win[1]+0.5))
		ok[i] = true
	}
	return pts, ok
}
