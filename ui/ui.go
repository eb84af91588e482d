// Package ui is the fyne dashboard shown to the participant and operator during a session.
package ui

import (
	"context"
	"fmt"
	"image/color"
	"sync/atomic"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
	"github.com/calvinmclean/uromri"
	"github.com/calvinmclean/uromri/log"
)

const keyBuffer = 64

var textColor = color.RGBA{R: 20, G: 20, B: 20, A: 255}

// Dashboard shows the current phase in its color, the countdown and the flow. Escape requests an
// abort and other typed characters are forwarded to Chan, to be used as keyboard trigger.
// Dashboard methods can be called from any goroutine, but Run must be called on the main goroutine.
type Dashboard struct {
	app    fyne.App
	window fyne.Window

	background *canvas.Rectangle
	phaseText  *canvas.Text
	countdown  *canvas.Text
	flow       *widget.Label
	message    *widget.Label
	elapsed    *timer

	abort atomic.Bool
	keys  chan rune
}

// NewDashboard creates the fyne app and its window
func NewDashboard(title string) *Dashboard {
	return newDashboard(app.New(), title)
}

func newDashboard(application fyne.App, title string) *Dashboard {
	d := &Dashboard{
		app:        application,
		window:     application.NewWindow(title),
		background: canvas.NewRectangle(color.White),
		phaseText:  canvas.NewText("", textColor),
		countdown:  canvas.NewText("", textColor),
		flow:       widget.NewLabel(""),
		message:    widget.NewLabel(""),
		elapsed:    newTimer(),
		keys:       make(chan rune, keyBuffer),
	}

	d.phaseText.TextSize = 64
	d.phaseText.TextStyle = fyne.TextStyle{Bold: true}
	d.phaseText.Alignment = fyne.TextAlignCenter
	d.countdown.TextSize = 48
	d.countdown.Alignment = fyne.TextAlignCenter
	d.flow.Alignment = fyne.TextAlignCenter
	d.message.Alignment = fyne.TextAlignCenter
	d.message.Wrapping = fyne.TextWrapWord

	content := container.NewVBox(
		container.NewHBox(
			container.NewPadded(d.elapsed.text),
			layout.NewSpacer(),
		),
		layout.NewSpacer(),
		d.message,
		d.phaseText,
		d.countdown,
		d.flow,
		layout.NewSpacer(),
	)

	d.window.SetContent(container.NewStack(d.background, content))
	d.window.Resize(fyne.NewSize(800, 600))

	d.window.Canvas().SetOnTypedKey(d.onTypedKey)
	d.window.Canvas().SetOnTypedRune(d.onTypedRune)

	return d
}

func (d *Dashboard) onTypedKey(ev *fyne.KeyEvent) {
	if ev.Name == fyne.KeyEscape {
		log.WithComponent("ui").Info().Msg("abort requested")
		d.abort.Store(true)
	}
}

func (d *Dashboard) onTypedRune(r rune) {
	select {
	case d.keys <- r:
	default:
	}
}

// Chan receives typed characters
func (d *Dashboard) Chan() <-chan rune {
	return d.keys
}

// AbortRequested reports and clears a pending abort
func (d *Dashboard) AbortRequested() bool {
	return d.abort.Swap(false)
}

func (d *Dashboard) ShowPhase(text string, kind uromri.Kind) {
	d.elapsed.Start(time.Now())
	fyne.Do(func() {
		d.message.SetText("")
		d.background.FillColor = kind.Color()
		d.background.Refresh()
		d.phaseText.Text = text
		d.phaseText.Refresh()
	})
}

func (d *Dashboard) ShowFlow(volumeML, rateMLPerMin float64) {
	text := ""
	if volumeML != 0 || rateMLPerMin != 0 {
		text = fmt.Sprintf("%.2f mL at %.0f mL/min", volumeML, rateMLPerMin)
	}
	fyne.Do(func() {
		d.flow.SetText(text)
	})
}

func (d *Dashboard) ShowCountdown(seconds int) {
	text := fmt.Sprintf("%d", seconds)
	fyne.Do(func() {
		if d.countdown.Text == text {
			return
		}
		d.countdown.Text = text
		d.countdown.Refresh()
	})
}

func (d *Dashboard) ShowMessage(text string) {
	fyne.Do(func() {
		d.message.SetText(text)
	})
}

// Refresh does nothing, widgets are refreshed when they change
func (d *Dashboard) Refresh() {}

// Finish stops the elapsed timer and clears the phase, leaving the last message visible
func (d *Dashboard) Finish() {
	d.elapsed.Stop()
	fyne.Do(func() {
		d.background.FillColor = color.White
		d.background.Refresh()
		d.phaseText.Text = ""
		d.phaseText.Refresh()
		d.countdown.Text = ""
		d.countdown.Refresh()
		d.flow.SetText("")
	})
}

// Run shows the window until it is closed or ctx is done
func (d *Dashboard) Run(ctx context.Context) {
	d.elapsed.Go()
	defer d.elapsed.Stop()

	go func() {
		<-ctx.Done()
		fyne.Do(func() {
			d.app.Quit()
		})
	}()

	d.window.ShowAndRun()
}
