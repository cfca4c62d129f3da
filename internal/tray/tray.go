// Package tray provides the system tray menu of a windowless SHolo run.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tray is the system tray menu: hand and eye tracking toggles, the active
// input modes and Quit.
type Tray struct {
	onToggleHands func(on bool)
	onToggleEyes  func(on bool)
	onQuit        func()
	onReady       func()
	hands         bool
	eyes          bool
	status        string
	mu            sync.RWMutex

	// quit ends the tray loop; replaced in tests.
	quit func()

	menuHands  *systray.MenuItem
	menuEyes   *systray.MenuItem
	menuStatus *systray.MenuItem
}

// New creates a Tray with the initial tracking state.
func New(hands, eyes bool) *Tray {
	return &Tray{
		hands:  hands,
		eyes:   eyes,
		status: statusTitle(false, false),
		quit:   systray.Quit,
	}
}

// OnToggleHands sets the callback run when hand tracking is toggled.
func (t *Tray) OnToggleHands(fn func(on bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggleHands = fn
}

// OnToggleEyes sets the callback run when eye tracking is toggled.
func (t *Tray) OnToggleEyes(fn func(on bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggleEyes = fn
}

// OnQuit sets the callback run when Quit is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// OnReady sets the callback run once the menu is up.
func (t *Tray) OnReady(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReady = fn
}

// Run shows the tray and blocks until Quit. It must be called from the main
// OS thread.
func (t *Tray) Run() {
	systray.Run(t.ready, func() {})
}

// Quit removes the tray and makes Run return.
func (t *Tray) Quit() {
	t.quit()
}

func (t *Tray) ready() {
	systray.SetTitle("SHolo")
	systray.SetTooltip("SHolo hand and eye tracking")

	t.mu.Lock()
	t.menuHands = systray.AddMenuItem(toggleTitle("Hands", t.hands), "Toggle hand swipe rotation")
	t.menuEyes = systray.AddMenuItem(toggleTitle("Eyes", t.eyes), "Toggle head tracking")
	systray.AddSeparator()
	t.menuStatus = systray.AddMenuItem(t.status, "Inputs seen in the latest frame")
	t.menuStatus.Disable()
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit SHolo")
	callback := t.onReady
	t.mu.Unlock()

	go func() {
		for {
			select {
			case <-t.menuHands.ClickedCh:
				t.toggleHands()
			case <-t.menuEyes.ClickedCh:
				t.toggleEyes()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()

	if callback != nil {
		callback()
	}
}

func (t *Tray) toggleHands() {
	t.mu.Lock()
	t.hands = !t.hands
	on := t.hands
	if t.menuHands != nil {
		t.menuHands.SetTitle(toggleTitle("Hands", on))
	}
	callback := t.onToggleHands
	t.mu.Unlock()

	if callback != nil {
		callback(on)
	}
}

func (t *Tray) toggleEyes() {
	t.mu.Lock()
	t.eyes = !t.eyes
	on := t.eyes
	if t.menuEyes != nil {
		t.menuEyes.SetTitle(toggleTitle("Eyes", on))
	}
	callback := t.onToggleEyes
	t.mu.Unlock()

	if callback != nil {
		callback(on)
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
	t.quit()
}

// SetModes shows which inputs drove the latest frame.
func (t *Tray) SetModes(hand, eye bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = statusTitle(hand, eye)
	if t.menuStatus != nil {
		t.menuStatus.SetTitle(t.status)
	}
}

// Tracking returns the toggle state of hand and eye tracking.
func (t *Tray) Tracking() (hands, eyes bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.hands, t.eyes
}

func toggleTitle(name string, on bool) string {
	if on {
		return "● " + name
	}
	return "○ " + name
}

func statusTitle(hand, eye bool) string {
	switch {
	case hand && eye:
		return "Tracking: hand and eyes"
	case hand:
		return "Tracking: hand"
	case eye:
		return "Tracking: eyes"
	default:
		return "Tracking: nothing"
	}
}
