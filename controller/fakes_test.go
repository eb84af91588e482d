package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/calvinmclean/uromri"
	"github.com/calvinmclean/uromri/sessionlog"
)

// steppingClock advances by step every time it is read
type steppingClock struct {
	t    float64
	step float64
}

func (c *steppingClock) Now() float64 {
	now := c.t
	c.t += c.step
	return now
}

type fakeActuator struct {
	mtx      sync.Mutex
	calls    []string
	busy     []bool
	setErr   error
	moveErr  error
	busyErr  error
	stopErr  error
	closeErr error
	events   *[]string
}

func (a *fakeActuator) record(format string, args ...any) {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	a.calls = append(a.calls, fmt.Sprintf(format, args...))
}

func (a *fakeActuator) SetTargetVelocity(_ context.Context, native int32) error {
	a.record("velocity %d", native)
	return a.setErr
}

func (a *fakeActuator) MoveRelative(_ context.Context, native int32) error {
	a.record("move %d", native)
	return a.moveErr
}

func (a *fakeActuator) MoveAbsolute(_ context.Context, native int32) error {
	a.record("move-abs %d", native)
	return a.moveErr
}

// IsBusy reports the queued busy values, then idle
func (a *fakeActuator) IsBusy(context.Context) (bool, error) {
	a.record("busy")
	if a.busyErr != nil {
		return false, a.busyErr
	}

	a.mtx.Lock()
	defer a.mtx.Unlock()
	if len(a.busy) == 0 {
		return false, nil
	}
	b := a.busy[0]
	a.busy = a.busy[1:]
	return b, nil
}

func (a *fakeActuator) Stop(context.Context) error {
	a.record("stop")
	return a.stopErr
}

func (a *fakeActuator) Close() error {
	a.record("close")
	if a.events != nil {
		*a.events = append(*a.events, "actuator close")
	}
	return a.closeErr
}

func (a *fakeActuator) count(call string) int {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	var n int
	for _, c := range a.calls {
		if c == call {
			n++
		}
	}
	return n
}

type flow struct {
	volume, rate float64
}

type fakeDisplay struct {
	mtx        sync.Mutex
	phases     []string
	kinds      []uromri.Kind
	flows      []flow
	countdowns []int
	messages   []string
	refreshes  int
	// events records the display calls relevant for ordering, shared with other fakes
	events *[]string
}

func (d *fakeDisplay) ShowPhase(text string, kind uromri.Kind) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.phases = append(d.phases, text)
	d.kinds = append(d.kinds, kind)
}

func (d *fakeDisplay) ShowFlow(volume, rate float64) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.flows = append(d.flows, flow{volume, rate})
}

func (d *fakeDisplay) ShowCountdown(seconds int) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.countdowns = append(d.countdowns, seconds)
}

func (d *fakeDisplay) ShowMessage(text string) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.messages = append(d.messages, text)
	if d.events != nil {
		*d.events = append(*d.events, "message: "+text)
	}
}

func (d *fakeDisplay) Refresh() {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.refreshes++
}

func (d *fakeDisplay) lastMessage() string {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	if len(d.messages) == 0 {
		return ""
	}
	return d.messages[len(d.messages)-1]
}

// abortAfter requests an abort on the n-th poll. Zero never aborts
type abortAfter struct {
	n     int
	polls int
}

func (a *abortAfter) AbortRequested() bool {
	a.polls++
	return a.n > 0 && a.polls == a.n
}

// latchedAbort keeps an abort request until it is read, like the keyboard inputs
type latchedAbort struct {
	requested atomic.Bool
}

func (a *latchedAbort) AbortRequested() bool {
	return a.requested.Swap(false)
}

type fakeParadigmLog struct {
	records  []sessionlog.Record
	triggers []float64
	err      error
}

func (l *fakeParadigmLog) Phase(r sessionlog.Record) error {
	l.records = append(l.records, r)
	return l.err
}

func (l *fakeParadigmLog) Trigger(t float64) error {
	l.triggers = append(l.triggers, t)
	return l.err
}

// fakeTrigger delivers a pulse after delay, or fails
type fakeTrigger struct {
	openErr error
	nextErr error
	delay   time.Duration
	pulses  int
	closed  bool
	events  *[]string
}

func (s *fakeTrigger) Open() error { return s.openErr }

func (s *fakeTrigger) Next(ctx context.Context) error {
	if s.nextErr != nil {
		return s.nextErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.delay):
		}
	}
	s.pulses++
	return nil
}

func (s *fakeTrigger) Close() error {
	s.closed = true
	if s.events != nil {
		*s.events = append(*s.events, "trigger close")
	}
	return errors.New("already closed")
}
