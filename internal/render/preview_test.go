package render

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/ayusman/sholo/internal/detector"
)

func grayFrame(t *testing.T, level float64) *gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(level, level, level, 0), 4, 4, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { m.Close() })
	return &m
}

func TestFrameSlot_NewestWins(t *testing.T) {
	s := newFrameSlot()
	defer s.close()

	dst := gocv.NewMat()
	defer dst.Close()

	_, _, ok := s.take(&dst)
	assert.False(t, ok, "nothing submitted yet")

	s.put(grayFrame(t, 10), detector.Landmarks{}, PreviewInfo{Phase: "idle"})
	s.put(grayFrame(t, 20), detector.Landmarks{}, PreviewInfo{Phase: "swiping"})
	assert.Equal(t, uint64(1), s.dropped)

	_, info, ok := s.take(&dst)
	require.True(t, ok)
	assert.Equal(t, "swiping", info.Phase)
	assert.Equal(t, uint8(20), dst.GetVecbAt(0, 0)[0])

	_, _, ok = s.take(&dst)
	assert.False(t, ok, "a frame is shown once")
}

func TestFrameSlot_CopiesFrame(t *testing.T) {
	s := newFrameSlot()
	defer s.close()

	src := grayFrame(t, 30)
	s.put(src, detector.Landmarks{}, PreviewInfo{})
	src.SetTo(gocv.NewScalar(99, 99, 99, 0))

	dst := gocv.NewMat()
	defer dst.Close()
	_, _, ok := s.take(&dst)
	require.True(t, ok)
	assert.Equal(t, uint8(30), dst.GetVecbAt(1, 1)[0], "the caller may reuse its frame after Submit")
}

func TestAnnotate(t *testing.T) {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer img.Close()

	lm := detector.Landmarks{
		Hands: []detector.HandLandmarks{detector.OpenPalmLandmarks()},
		Faces: []detector.FaceLandmarks{detector.FaceAt(0.5, 0.3, 0.2)},
	}
	annotate(&img, lm, PreviewInfo{Phase: "swiping", Rate: 1.5, Distance: 60})

	lit := func(x, y int) bool {
		v := img.GetVecbAt(y, x)
		return v[0] != 0 || v[1] != 0 || v[2] != 0
	}
	assert.True(t, lit(320, 384), "wrist joint is drawn")
	assert.True(t, lit(320, 144), "the line between the eyes is drawn")
	assert.False(t, lit(630, 470), "the rest of the frame is untouched")
}

func TestPreview_Redraw(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping HighGUI test in short mode")
	}
	if os.Getenv("DISPLAY") == "" {
		t.Skip("no display available")
	}

	p := NewPreview("sholo preview test")
	defer p.Close()

	require.NoError(t, p.Redraw(), "an empty preview only polls the keyboard")
	assert.False(t, p.shown)

	frame := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer frame.Close()
	p.Submit(&frame, detector.Landmarks{}, PreviewInfo{Phase: "idle"})

	if err := p.Redraw(); err != nil {
		assert.ErrorIs(t, err, ErrWindowClosed)
	}
	assert.True(t, p.shown)
}
