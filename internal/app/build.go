package app

import (
	"errors"
	"fmt"

	"github.com/ayusman/sholo/internal/capture"
	"github.com/ayusman/sholo/internal/config"
	"github.com/ayusman/sholo/internal/detector"
	"github.com/ayusman/sholo/internal/log"
	"github.com/ayusman/sholo/internal/render"
	"github.com/ayusman/sholo/internal/server"
)

// Build constructs every collaborator from cfg and returns a ready App.
// Problems that would stop the app later (missing model files, an address
// in use) are reported here, before any loop starts.
func Build(cfg config.Config) (*App, error) {
	det, err := NewDetector(cfg.Detector, cfg.Tracking)
	if err != nil {
		return nil, err
	}

	var mesh *render.Mesh
	if cfg.Render.Enabled && cfg.Render.Model != "" {
		if mesh, err = render.LoadModel(cfg.Render.Model); err != nil {
			det.Close()
			return nil, err
		}
		log.Info("model loaded", "path", cfg.Render.Model, "vertices", len(mesh.Vertices), "edges", len(mesh.Edges))
	}

	opts := Options{
		Camera:   capture.NewCamera(cfg.Camera),
		Detector: det,
	}

	var sinks render.Multi
	if cfg.Server.Enabled {
		srv := server.New(cfg.Server)
		ln, err := srv.Listen()
		if err != nil {
			det.Close()
			return nil, err
		}
		opts.Server, opts.Listener = srv, ln
		sinks = append(sinks, srv.Broadcaster())
	}
	if cfg.Render.Enabled {
		sinks = append(sinks, render.NewWindow(cfg.Render, mesh))
	}
	if cfg.Render.Preview {
		preview := render.NewPreview(cfg.Render.Title + " camera")
		sinks = append(sinks, preview)
		opts.Frames = preview
	}
	opts.Sink = sinks

	return New(cfg, opts)
}

// NewDetector creates the configured landmark detector. Face landmarks are
// only requested when eye tracking is on.
func NewDetector(cfg config.DetectorConfig, tracking config.TrackingConfig) (detector.Detector, error) {
	mpCfg := cfg.Config
	mpCfg.Faces = mpCfg.Faces && tracking.Eyes

	switch cfg.Backend {
	case config.BackendMediaPipe:
		d, err := detector.NewMediaPipeDetector(mpCfg)
		if err != nil {
			return nil, fmt.Errorf("mediapipe detector: %w", err)
		}
		return d, nil

	case config.BackendYuNet:
		if tracking.Hands {
			log.Warn("yunet detects faces only; hand tracking will stay idle")
		}
		return newYuNet(cfg.YuNet)

	case config.BackendCombined:
		mpCfg.Faces = false
		hands, err := detector.NewMediaPipeDetector(mpCfg)
		if err != nil {
			return nil, fmt.Errorf("mediapipe detector: %w", err)
		}
		var faces detector.Detector
		if tracking.Eyes {
			if faces, err = newYuNet(cfg.YuNet); err != nil {
				hands.Close()
				return nil, err
			}
		}
		return detector.NewCombined(hands, faces), nil

	case config.BackendMock:
		log.Warn("using mock detector; no landmarks will be reported")
		return detector.NewMockDetector(), nil
	}
	return nil, errors.New("unknown detector backend " + cfg.Backend)
}

func newYuNet(cfg detector.YuNetConfig) (detector.Detector, error) {
	d, err := detector.NewYuNet(cfg)
	if err != nil {
		return nil, fmt.Errorf("yunet detector: %w", err)
	}
	return d, nil
}
