// Package app coordinates the capture loop and the render loop of SHolo.
//
// The capture loop reads camera frames, detects landmarks, runs the hand and
// gaze estimators, fuses them and publishes the result to the transform
// channel. The render loop reads the channel on its own schedule and redraws
// the sinks. The channel is the only state the two loops share, apart from
// the optional camera preview, which keeps its own newest-frame slot.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/sholo/internal/capture"
	"github.com/ayusman/sholo/internal/channel"
	"github.com/ayusman/sholo/internal/config"
	"github.com/ayusman/sholo/internal/detector"
	"github.com/ayusman/sholo/internal/gaze"
	"github.com/ayusman/sholo/internal/gesture"
	"github.com/ayusman/sholo/internal/log"
	"github.com/ayusman/sholo/internal/motion"
	"github.com/ayusman/sholo/internal/render"
	"github.com/ayusman/sholo/internal/server"
)

// Modes reports which inputs contributed to the latest frame.
type Modes struct {
	HandActive bool
	EyeActive  bool
}

// FrameSink receives every processed camera frame with its landmarks. It is
// called on the capture goroutine and must not keep frame.
type FrameSink interface {
	Submit(frame *gocv.Mat, lm detector.Landmarks, info render.PreviewInfo)
}

// Options holds the collaborators the App drives. Camera, Detector and Sink
// are required; Server and Listener are optional and go together. Frames is
// optional.
type Options struct {
	Camera   capture.Camera
	Detector detector.Detector
	Sink     render.Sink
	Server   *server.Server
	Listener net.Listener
	Frames   FrameSink
}

// App is the top-level coordinator. It owns the camera, the detector, the
// sinks and the transform channel from New until Run returns.
type App struct {
	cfg      config.Config
	camera   capture.Camera
	detector detector.Detector
	sink     render.Sink
	server   *server.Server
	listener net.Listener
	frames   FrameSink

	channel *channel.Channel
	hands   *gesture.Estimator
	eyes    *gaze.Estimator
	fuser   *motion.Fuser

	// capture loop state
	last  time.Time
	phase gesture.Phase

	mu      sync.Mutex
	modes   Modes
	onModes func(Modes)

	handsOn atomic.Bool
	eyesOn  atomic.Bool
}

// New creates an App from a validated configuration.
func New(cfg config.Config, opts Options) (*App, error) {
	if opts.Camera == nil || opts.Detector == nil || opts.Sink == nil {
		return nil, errors.New("app: camera, detector and sink are required")
	}
	if (opts.Server == nil) != (opts.Listener == nil) {
		return nil, errors.New("app: server and listener must be set together")
	}

	a := &App{
		cfg:      cfg,
		camera:   opts.Camera,
		detector: opts.Detector,
		sink:     opts.Sink,
		server:   opts.Server,
		listener: opts.Listener,
		frames:   opts.Frames,
		channel:  channel.New(motion.Identity()),
		hands:    gesture.NewEstimator(cfg.Gesture),
		eyes:     gaze.NewEstimator(cfg.Gaze),
		fuser:    motion.NewFuser(cfg.Motion),
	}
	a.handsOn.Store(cfg.Tracking.Hands)
	a.eyesOn.Store(cfg.Tracking.Eyes)
	return a, nil
}

// Channel returns the transform channel.
func (a *App) Channel() *channel.Channel {
	return a.channel
}

// SetHandTracking turns hand input on or off while running. A swipe in
// progress is treated like a lost hand and decays.
func (a *App) SetHandTracking(on bool) {
	if a.handsOn.Swap(on) != on {
		log.Info("hand tracking toggled", "on", on)
	}
}

// SetEyeTracking turns eye input on or off while running. It has no effect
// on a detector that was built without face detection.
func (a *App) SetEyeTracking(on bool) {
	if a.eyesOn.Swap(on) != on {
		log.Info("eye tracking toggled", "on", on)
	}
}

// HandTracking reports whether hand input is on.
func (a *App) HandTracking() bool { return a.handsOn.Load() }

// EyeTracking reports whether eye input is on.
func (a *App) EyeTracking() bool { return a.eyesOn.Load() }

// OnModesChanged sets a callback run on the capture goroutine whenever the
// input modes change.
func (a *App) OnModesChanged(fn func(Modes)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onModes = fn
}

// Modes returns the input modes of the latest processed frame.
func (a *App) Modes() Modes {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.modes
}

// Run opens the camera, starts the capture loop in the background and runs
// the render loop on the calling goroutine, which must be the main OS thread
// when a HighGUI window is among the sinks.
//
// Run returns when the render loop ends (quit key, closed window, ctx
// cancelled) or the capture loop ends (end of stream, camera or detector
// failure). Either side ending stops the other. The camera, detector and
// sinks are closed before Run returns.
func (a *App) Run(ctx context.Context) error {
	defer func() {
		if err := a.detector.Close(); err != nil {
			log.Warn("closing detector", "error", err)
		}
	}()

	if err := a.camera.Open(); err != nil {
		if cerr := a.sink.Close(); cerr != nil {
			log.Warn("closing sinks", "error", cerr)
		}
		if a.listener != nil {
			if lerr := a.listener.Close(); lerr != nil {
				log.Warn("closing listener", "error", lerr)
			}
		}
		return fmt.Errorf("open camera: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return a.captureLoop(gctx)
	})
	if a.server != nil {
		g.Go(func() error {
			return a.server.Serve(gctx, a.listener)
		})
	}

	log.Info("sholo started",
		"hands", a.HandTracking(),
		"eyes", a.EyeTracking(),
		"preview", a.frames != nil,
		"render_fps", a.cfg.Render.FPS)

	renderErr := render.Run(gctx, a.channel, a.sink, a.cfg.Render.FPS)

	a.channel.Close()
	cancel()
	captureErr := g.Wait()

	closeErr := a.sink.Close()
	if closeErr != nil {
		closeErr = fmt.Errorf("close sinks: %w", closeErr)
	}

	st := a.channel.Stats()
	log.Info("sholo stopped", "published", st.Published, "overwritten", st.Overwritten)

	if renderErr != nil {
		renderErr = fmt.Errorf("render: %w", renderErr)
	}
	return errors.Join(renderErr, captureErr, closeErr)
}
