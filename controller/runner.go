package controller

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/calvinmclean/uromri/log"
	"github.com/calvinmclean/uromri/metrics"
	"github.com/calvinmclean/uromri/paradigm"
	"github.com/calvinmclean/uromri/sessionlog"
	"github.com/rs/zerolog"
)

const stopTimeout = 2 * time.Second

var (
	// ErrSetup wraps failures before the paradigm starts: connecting devices, opening logs, compiling the timeline
	ErrSetup = errors.New("setup failed")
	// ErrDispatch wraps failures commanding the actuator during a phase
	ErrDispatch = errors.New("actuator command failed")
	// ErrTrigger wraps failures while waiting for the scanner trigger
	ErrTrigger = errors.New("waiting for scanner trigger failed")
)

// Outcome is how a run of the timeline ended
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeAborted
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeAborted:
		return "aborted"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result summarizes a run of the timeline
type Result struct {
	Outcome Outcome
	// PhasesStarted counts the phases that were entered, including an aborted or failed one
	PhasesStarted int
	// AbortedPhase is the 1-based index of the phase that was aborted, 0 when nothing was aborted
	AbortedPhase int
	// StartTimes are the scheduled starts of the entered phases
	StartTimes []float64
}

// Runner executes a compiled timeline, one phase after the other, on the calling goroutine
type Runner struct {
	// Actuator is nil when running without a device
	Actuator      Actuator
	Clock         Clock
	Abort         AbortInput
	Display       Display
	Log           ParadigmLog
	FrameInterval time.Duration

	chart  twchartClient
	logger zerolog.Logger
}

// Run executes the phases. The first phase is scheduled at offset and every following phase at the
// end of the previous one's scheduled time, so rendering delays never accumulate. An abort, from the
// AbortInput or by cancelling ctx, stops the actuator once and returns OutcomeAborted without an error.
func (r *Runner) Run(ctx context.Context, phases paradigm.Compiled, offset float64) (Result, error) {
	r.init()

	var result Result
	start := offset
	for i, p := range phases {
		result.PhasesStarted = i + 1
		result.StartTimes = append(result.StartTimes, start)

		aborted, err := r.runPhase(ctx, i+1, p, start)
		if err != nil {
			result.Outcome = OutcomeFailed
			r.logger.Error().Err(err).Int("phase", i+1).Msg("phase failed")
			r.stop(ctx)
			return result, err
		}
		if aborted {
			result.Outcome = OutcomeAborted
			result.AbortedPhase = i + 1
			r.logger.Warn().Int("phase", i+1).Str("group", p.Group).Msg("experiment aborted manually")
			r.addEvent(ctx, "Aborted")
			r.stop(ctx)
			return result, nil
		}

		start += p.Duration
	}

	result.Outcome = OutcomeCompleted
	return result, nil
}

func (r *Runner) init() {
	if r.Abort == nil {
		r.Abort = noAbort{}
	}
	if r.Log == nil {
		r.Log = noopParadigmLog{}
	}
	if r.chart == nil {
		r.chart = noopTWChartClient{}
	}
	if r.Clock == nil {
		r.Clock = NewClock()
	}
	r.logger = log.WithComponent("runner")
}

func (r *Runner) runPhase(ctx context.Context, index int, p paradigm.CompiledPhase, start float64) (bool, error) {
	end := start + p.Duration

	var volume, rate float64
	if p.Motion != nil {
		volume = math.Abs(p.Motion.DistanceMM)
		rate = p.Rate
	}
	r.Display.ShowPhase(p.Text, p.Kind)
	r.Display.ShowFlow(volume, rate)

	record := sessionlog.Record{
		Group: p.Group,
		Kind:  p.Kind.String(),
		Text:  p.Text,
		Start: start,
		Wall:  r.Clock.Now(),
	}
	metrics.ObservePhase(index, record.Kind, record.Wall-record.Start)

	err := r.Log.Phase(record)
	if err != nil {
		r.logger.Error().Err(err).Msg("error writing paradigm log")
	}
	r.logger.Info().
		Str("group", p.Group).
		Stringer("kind", p.Kind).
		Str("text", strings.ReplaceAll(p.Text, "\n", " ")).
		Float64("start", record.Start).
		Float64("wall", record.Wall).
		Float64("volume_ml", volume).
		Float64("rate_ml_per_min", rate).
		Msg("presenting phase")

	err = r.chart.AddStage(ctx, strings.ReplaceAll(p.Text, "\n", " "), time.Now())
	if err != nil {
		r.logger.Warn().Err(err).Msg("error adding stage to TWChart")
	}

	if p.Motion != nil && r.Actuator != nil {
		err = r.dispatch(ctx, p.Motion)
		if err != nil {
			return false, err
		}
	}

	if r.countdown(ctx, end) {
		return true, nil
	}

	if r.Actuator == nil {
		return false, nil
	}
	return r.drain(ctx)
}

// dispatch sets the speed before starting the move. Moving with a stale speed is not safe, so
// both commands must succeed
func (r *Runner) dispatch(ctx context.Context, m *paradigm.Motion) error {
	err := r.Actuator.SetTargetVelocity(ctx, m.VelocityNative)
	metrics.ObserveCommand("set_target_velocity", err)
	if err != nil {
		return fmt.Errorf("%w: setting target velocity %d: %w", ErrDispatch, m.VelocityNative, err)
	}

	err = r.Actuator.MoveRelative(ctx, m.DistanceNative)
	metrics.ObserveCommand("move_relative", err)
	if err != nil {
		return fmt.Errorf("%w: moving %d: %w", ErrDispatch, m.DistanceNative, err)
	}

	r.logger.Debug().
		Int32("velocity", m.VelocityNative).
		Int32("distance", m.DistanceNative).
		Msg("dispatched move")
	return nil
}

// countdown redraws until the clock reaches end. It returns true if the operator aborted
func (r *Runner) countdown(ctx context.Context, end float64) bool {
	for {
		now := r.Clock.Now()
		if now >= end {
			return false
		}

		r.Display.ShowCountdown(int(math.Ceil(end - now)))
		r.Display.Refresh()

		if r.abortRequested(ctx) {
			return true
		}
		r.pace()
	}
}

// drain waits for a move that outlasts its phase to finish. There is no time limit, only an abort ends it early
func (r *Runner) drain(ctx context.Context) (bool, error) {
	start := time.Now()
	defer func() {
		metrics.ObserveDrain(time.Since(start))
	}()

	for {
		if r.abortRequested(ctx) {
			return true, nil
		}

		busy, err := r.Actuator.IsBusy(ctx)
		if err != nil {
			return false, fmt.Errorf("%w: reading status: %w", ErrDispatch, err)
		}
		if !busy {
			return false, nil
		}

		r.Display.Refresh()
		r.pace()
	}
}

func (r *Runner) abortRequested(ctx context.Context) bool {
	return ctx.Err() != nil || r.Abort.AbortRequested()
}

// stop halts the actuator. It runs after an abort or a failure, so its own failure is only logged
func (r *Runner) stop(ctx context.Context) {
	if r.Actuator == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancel()

	err := r.Actuator.Stop(ctx)
	metrics.ObserveCommand("stop", err)
	if err != nil {
		r.logger.Error().Err(err).Msg("error stopping actuator")
		return
	}
	r.logger.Info().Msg("actuator stopped")
}

func (r *Runner) addEvent(ctx context.Context, note string) {
	err := r.chart.AddEvent(context.WithoutCancel(ctx), note, time.Now())
	if err != nil {
		r.logger.Warn().Err(err).Str("note", note).Msg("error adding event to TWChart")
	}
}

func (r *Runner) pace() {
	if r.FrameInterval > 0 {
		time.Sleep(r.FrameInterval)
	}
}
