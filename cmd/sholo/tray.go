package main

import (
	"context"

	"github.com/ayusman/sholo/internal/app"
	"github.com/ayusman/sholo/internal/tray"
)

// runWithTray runs a windowless app behind a system tray menu. The tray owns
// the main thread, so the app runs on a goroutine started once the menu is up.
func runWithTray(ctx context.Context, a *app.App) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	t := tray.New(a.HandTracking(), a.EyeTracking())
	t.OnToggleHands(a.SetHandTracking)
	t.OnToggleEyes(a.SetEyeTracking)
	t.OnQuit(cancel)
	a.OnModesChanged(func(m app.Modes) { t.SetModes(m.HandActive, m.EyeActive) })

	errc := make(chan error, 1)
	t.OnReady(func() {
		go func() {
			errc <- a.Run(ctx)
			t.Quit()
		}()
	})

	// A signal ends the app, which then removes the tray.
	t.Run()
	cancel()
	return <-errc
}
