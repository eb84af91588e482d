package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/calvinmclean/uromri"
)

// Display prints the paradigm to a terminal. The countdown is redrawn in place on one line
type Display struct {
	mtx       sync.Mutex
	w         io.Writer
	color     bool
	countdown int
	inLine    bool
}

// NewDisplay writes to w. color enables 24-bit ANSI colors for the phase kinds
func NewDisplay(w io.Writer, color bool) *Display {
	return &Display{w: w, color: color, countdown: -1}
}

func (d *Display) ShowPhase(text string, kind uromri.Kind) {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	d.endLine()
	d.countdown = -1

	title := strings.ReplaceAll(text, "\n", " - ")
	if d.color {
		c := kind.Color()
		title = fmt.Sprintf("\x1b[1;38;2;%d;%d;%dm%s\x1b[0m", c.R, c.G, c.B, title)
	}
	fmt.Fprintf(d.w, "[%s] %s\n", kind, title)
}

func (d *Display) ShowFlow(volumeML, rateMLPerMin float64) {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if volumeML == 0 && rateMLPerMin == 0 {
		return
	}
	d.endLine()
	fmt.Fprintf(d.w, "  %.2f mL at %.0f mL/min\n", volumeML, rateMLPerMin)
}

func (d *Display) ShowCountdown(seconds int) {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if seconds == d.countdown {
		return
	}
	d.countdown = seconds
	d.inLine = true
	fmt.Fprintf(d.w, "\r  %4ds ", seconds)
}

func (d *Display) ShowMessage(text string) {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	d.endLine()
	fmt.Fprintln(d.w, text)
}

// Refresh does nothing, lines are written immediately
func (d *Display) Refresh() {}

func (d *Display) endLine() {
	if d.inLine {
		fmt.Fprintln(d.w)
		d.inLine = false
	}
}
