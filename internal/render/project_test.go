package render

import (
	"image"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/sholo/internal/motion"
)

func TestProjector_Project(t *testing.T) {
	p := NewProjector(800, 600, 45, 4)
	verts := []mgl64.Vec3{
		{0, 0, 0},
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 10}, // behind the camera
	}

	pts, ok := p.Project(motion.Identity(), verts)
	require.Len(t, pts, 4)

	assert.True(t, ok[0])
	assert.Equal(t, image.Pt(400, 300), pts[0])
	assert.Greater(t, pts[1].X, 400, "+X is to the right")
	assert.Equal(t, 300, pts[1].Y)
	assert.Less(t, pts[2].Y, 300, "+Y is up")
	assert.False(t, ok[3])
}

func TestProjector_FollowsRotation(t *testing.T) {
	p := NewProjector(800, 600, 45, 4)
	tr := motion.Identity()
	tr.Rotation = mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 1, 0})

	// A quarter turn about Y swings +X onto -Z, straight behind the origin.
	pts, ok := p.Project(tr, []mgl64.Vec3{{1, 0, 0}})
	require.True(t, ok[0])
	assert.InDelta(t, 400, pts[0].X, 1)
	assert.InDelta(t, 300, pts[0].Y, 1)
}
