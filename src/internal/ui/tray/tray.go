// Package tray shows launcher progress in the system tray. It links against
// the platform tray libraries and is only imported by the launcher binary.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"
	log "github.com/sirupsen/logrus"

	"github.com/gielenor/launcher/src/internal/ui"
)

var _ ui.Sink = (*Tray)(nil)

// Tray shows the launcher state in the system tray and offers a Cancel item
type Tray struct {
	onCancel func()

	mu      sync.Mutex
	ready   bool
	phase   string
	status  string
	percent int
}

// New creates a tray sink; onCancel runs when the user picks Cancel
func New(onCancel func()) *Tray {
	return &Tray{
		onCancel: onCancel,
		percent:  -1,
	}
}

// Run shows the tray icon and calls work once the tray is ready. It blocks
// until work returns and must be called from the main goroutine, which the
// platform event loop requires.
func (t *Tray) Run(work func()) {
	systray.Run(func() {
		t.onReady()
		go func() {
			defer systray.Quit()
			work()
		}()
	}, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(icon)
	systray.SetTitle("Gielenor")
	cancelItem := systray.AddMenuItem("Cancel", "Stop updating and exit")

	t.mu.Lock()
	t.ready = true
	t.mu.Unlock()
	t.refresh()

	go func() {
		for range cancelItem.ClickedCh {
			log.Info("Cancel requested from tray")
			if t.onCancel != nil {
				t.onCancel()
			}
			cancelItem.Disable()
		}
	}()
}

func (t *Tray) onExit() {
	t.mu.Lock()
	t.ready = false
	t.mu.Unlock()
}

func (t *Tray) Phase(label string) {
	t.mu.Lock()
	t.phase = label
	t.percent = -1
	t.mu.Unlock()
	t.refresh()
}

func (t *Tray) Status(message string) {
	t.mu.Lock()
	t.status = message
	t.mu.Unlock()
	t.refresh()
}

func (t *Tray) Progress(percent int) {
	t.mu.Lock()
	t.percent = percent
	t.mu.Unlock()
	t.refresh()
}

// Fail shows a terminal error in the tray title
func (t *Tray) Fail(message string) {
	t.mu.Lock()
	t.phase = "Error"
	t.status = message
	t.percent = -1
	t.mu.Unlock()
	t.refresh()
}

func (t *Tray) refresh() {
	t.mu.Lock()
	if !t.ready {
		t.mu.Unlock()
		return
	}
	title, tooltip := t.render()
	t.mu.Unlock()

	systray.SetTitle(title)
	systray.SetTooltip(tooltip)
}

// render builds the tray title and tooltip; callers hold mu
func (t *Tray) render() (string, string) {
	title := "Gielenor"
	if t.phase != "" {
		title = fmt.Sprintf("Gielenor - %s", t.phase)
	}
	if t.percent >= 0 {
		title = fmt.Sprintf("%s (%d%%)", title, t.percent)
	}

	tooltip := t.status
	if tooltip == "" {
		tooltip = title
	}
	return title, tooltip
}
