package controller

import (
	"time"

	"github.com/calvinmclean/uromri"
	"github.com/calvinmclean/uromri/sessionlog"
)

// Clock reports seconds since a fixed origin. The origin is never reset during a session
type Clock interface {
	Now() float64
}

type monotonicClock struct {
	origin time.Time
}

// NewClock creates a Clock with its origin at the current time. It uses the monotonic clock reading
func NewClock() Clock {
	return &monotonicClock{origin: time.Now()}
}

func (c *monotonicClock) Now() float64 {
	return time.Since(c.origin).Seconds()
}

// AbortInput reports whether the operator asked to abort since the last call. It must not block
type AbortInput interface {
	AbortRequested() bool
}

// Display shows the state of the paradigm to the operator
type Display interface {
	ShowPhase(text string, kind uromri.Kind)
	ShowFlow(volumeML, rateMLPerMin float64)
	ShowCountdown(seconds int)
	ShowMessage(text string)
	Refresh()
}

// ParadigmLog records phase transitions and the scanner trigger
type ParadigmLog interface {
	Phase(sessionlog.Record) error
	Trigger(t float64) error
}

type noopParadigmLog struct{}

func (noopParadigmLog) Phase(sessionlog.Record) error { return nil }

func (noopParadigmLog) Trigger(float64) error { return nil }

type noAbort struct{}

func (noAbort) AbortRequested() bool { return false }

type multiDisplay []Display

// MultiDisplay shows everything on all displays, in order
func MultiDisplay(displays ...Display) Display {
	return multiDisplay(displays)
}

func (m multiDisplay) ShowPhase(text string, kind uromri.Kind) {
	for _, d := range m {
		d.ShowPhase(text, kind)
	}
}

func (m multiDisplay) ShowFlow(volumeML, rateMLPerMin float64) {
	for _, d := range m {
		d.ShowFlow(volumeML, rateMLPerMin)
	}
}

func (m multiDisplay) ShowCountdown(seconds int) {
	for _, d := range m {
		d.ShowCountdown(seconds)
	}
}

func (m multiDisplay) ShowMessage(text string) {
	for _, d := range m {
		d.ShowMessage(text)
	}
}

func (m multiDisplay) Refresh() {
	for _, d := range m {
		d.Refresh()
	}
}

type anyAbort []AbortInput

// AnyAbort requests an abort when one of inputs does. Every input is polled so none keeps a stale request
func AnyAbort(inputs ...AbortInput) AbortInput {
	return anyAbort(inputs)
}

func (a anyAbort) AbortRequested() bool {
	requested := false
	for _, in := range a {
		if in.AbortRequested() {
			requested = true
		}
	}
	return requested
}
