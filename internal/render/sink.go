// Package render drives transform consumers from the render loop.
package render

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/sholo/internal/log"
	"github.com/ayusman/sholo/internal/motion"
)

var (
	// ErrQuit is returned by Redraw when the user asks to quit.
	ErrQuit = errors.New("render: quit requested")
	// ErrWindowClosed is returned by Redraw when the window was closed.
	ErrWindowClosed = errors.New("render: window closed")
)

// Sink consumes transforms on the render loop's schedule.
type Sink interface {
	// SetTransform records the transform to show on the next Redraw.
	SetTransform(t motion.Transform)
	// Redraw presents the current transform.
	Redraw() error
	// Close releases the sink. It may be called from outside the render loop.
	Close() error
}

// Source supplies the latest transform.
type Source interface {
	Current() motion.Transform
}

// Run redraws sink with the latest transform from src fps times per second
// until ctx is done or the sink fails. A quit request or a closed window
// ends the loop without error.
func Run(ctx context.Context, src Source, sink Sink, fps int) error {
	if fps <= 0 {
		return fmt.Errorf("render: invalid fps %d", fps)
	}

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	frames := 0
	for {
		sink.SetTransform(src.Current())
		if err := sink.Redraw(); err != nil {
			if errors.Is(err, ErrQuit) || errors.Is(err, ErrWindowClosed) {
				log.Info("render loop stopped", "reason", err, "frames", frames)
				return nil
			}
			return fmt.Errorf("redraw: %w", err)
		}
		frames++

		select {
		case <-ctx.Done():
			log.Debug("render loop cancelled", "frames", frames)
			return nil
		case <-ticker.C:
		}
	}
}

// Multi fans every call out to several sinks.
type Multi []Sink

// SetTransform forwards t to every sink.
func (m Multi) SetTransform(t motion.Transform) {
	for _, s := range m {
		s.SetTransform(t)
	}
}

// Redraw redraws every sink and joins their errors.
func (m Multi) Redraw() error {
	var errs []error
	for _, s := range m {
		if err := s.Redraw(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
