package ui

import (
	"fmt"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
)

// timer shows the time elapsed since it was started
type timer struct {
	startTime time.Time
	mtx       sync.Mutex
	text      *canvas.Text
	start     chan struct{}
	stop      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

func newTimer() *timer {
	return &timer{
		text:  canvas.NewText("00:00", nil),
		start: make(chan struct{}),
		stop:  make(chan struct{}),
	}
}

// Start sets the start time and begins updating the text. Later calls do nothing
func (t *timer) Start(start time.Time) {
	t.startOnce.Do(func() {
		t.mtx.Lock()
		t.startTime = start
		t.mtx.Unlock()
		close(t.start)
	})
}

func (t *timer) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
}

func (t *timer) Go() {
	go func() {
		select {
		case <-t.start:
		case <-t.stop:
			return
		}

		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-t.stop:
				return
			case <-ticker.C:
			}
			fyne.Do(t.update)
		}
	}()
}

func (t *timer) update() {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	t.text.Text = formatElapsed(time.Since(t.startTime))
	t.text.Refresh()
}

func formatElapsed(elapsed time.Duration) string {
	minutes := int(elapsed.Minutes())
	seconds := int(elapsed.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
