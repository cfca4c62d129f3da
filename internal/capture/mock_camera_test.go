package capture

import (
	"errors"
	"testing"

	"gocv.io/x/gocv"
)

func TestMockCamera_Playback(t *testing.T) {
	// Create test frames
	frame1 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame1.Close()
	frame2 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame2.Close()

	cam := NewMockCamera([]*gocv.Mat{&frame1, &frame2}, false)

	if err := cam.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer cam.Close()

	// Read both frames
	f1, err := cam.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	f1.Close()

	f2, err := cam.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	f2.Close()

	// Third read reports end of stream (no loop)
	_, err = cam.ReadFrame()
	if !errors.Is(err, ErrEndOfStream) {
		t.Errorf("expected ErrEndOfStream after all frames consumed, got %v", err)
	}
}

func TestMockCamera_Loop(t *testing.T) {
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	cam := NewMockCamera([]*gocv.Mat{&frame}, true)
	cam.Open()
	defer cam.Close()

	// Should loop indefinitely
	for i := 0; i < 5; i++ {
		f, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() iteration %d error = %v", i, err)
		}
		f.Close()
	}
}

func TestMockCamera_ReadErrorAndClose(t *testing.T) {
	frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()

	cam := NewMockCamera([]*gocv.Mat{&frame}, true)

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("ReadFrame() before Open error = %v, want ErrCameraNotOpen", err)
	}

	cam.Open()
	failure := errors.New("usb disconnected")
	cam.SetReadError(failure)
	if _, err := cam.ReadFrame(); !errors.Is(err, failure) {
		t.Errorf("ReadFrame() error = %v, want %v", err, failure)
	}

	cam.Close()
	if cam.IsOpen() {
		t.Error("IsOpen() should be false after Close")
	}
	if cam.Closes() != 1 {
		t.Errorf("Closes() = %d, want 1", cam.Closes())
	}
}

func TestMockCamera_OpenError(t *testing.T) {
	cam := NewMockCamera(nil, false)
	busy := errors.New("device busy")
	cam.SetOpenError(busy)

	if err := cam.Open(); !errors.Is(err, busy) {
		t.Fatalf("Open() error = %v, want %v", err, busy)
	}
	if cam.IsOpen() {
		t.Error("camera reports open after a failed Open")
	}

	cam.SetOpenError(nil)
	if err := cam.Open(); err != nil {
		t.Fatalf("Open() error = %v after clearing", err)
	}
	if !cam.IsOpen() {
		t.Error("camera should be open")
	}
}
