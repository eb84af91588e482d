package controller

import (
	"context"
	"errors"
	"testing"

	"github.com/calvinmclean/uromri"
	"github.com/calvinmclean/uromri/paradigm"
	"github.com/calvinmclean/uromri/zaber"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compile(t *testing.T, withConverter bool, phases ...paradigm.Phase) paradigm.Compiled {
	t.Helper()

	var conv *zaber.Converter
	if withConverter {
		c, err := zaber.NewConverterFromMicrostepSize(1.0)
		require.NoError(t, err)
		conv = &c
	}

	compiled, err := paradigm.Compile(paradigm.Timeline(phases), conv)
	require.NoError(t, err)
	return compiled
}

func rest(d float64) paradigm.Phase {
	return paradigm.Phase{Group: "g", Kind: uromri.KindRest, Duration: d, Text: "rest"}
}

func pause(d float64) paradigm.Phase {
	return paradigm.Phase{Group: "g", Kind: uromri.KindPause, Duration: d, Text: "pause"}
}

func infuse(d, rate float64) paradigm.Phase {
	return paradigm.Phase{Group: "g", Kind: uromri.KindInfuse, Duration: d, Text: "infuse", Rate: rate}
}

func withdraw(d, rate float64) paradigm.Phase {
	return paradigm.Phase{Group: "g", Kind: uromri.KindWithdraw, Duration: d, Text: "withdraw", Rate: rate}
}

type runnerFixture struct {
	runner   *Runner
	actuator *fakeActuator
	display  *fakeDisplay
	log      *fakeParadigmLog
	abort    *abortAfter
}

func newRunner(start float64, withActuator bool) runnerFixture {
	f := runnerFixture{
		display: &fakeDisplay{},
		log:     &fakeParadigmLog{},
		abort:   &abortAfter{},
	}
	f.runner = &Runner{
		Clock:   &steppingClock{t: start, step: 0.25},
		Abort:   f.abort,
		Display: f.display,
		Log:     f.log,
	}
	if withActuator {
		f.actuator = &fakeActuator{}
		f.runner.Actuator = f.actuator
	}
	return f
}

func TestRunnerCumulativeSchedule(t *testing.T) {
	f := newRunner(10, false)
	phases := compile(t, false, rest(2), pause(3), rest(1))

	result, err := f.runner.Run(context.Background(), phases, 10)
	require.NoError(t, err)

	assert.Equal(t, OutcomeCompleted, result.Outcome)
	assert.Equal(t, 3, result.PhasesStarted)
	assert.Equal(t, 0, result.AbortedPhase)
	assert.Equal(t, []float64{10, 12, 15}, result.StartTimes)
	assert.Equal(t, phases.StartTimes(10), result.StartTimes)

	require.Len(t, f.log.records, 3)
	for i, r := range f.log.records {
		assert.Equal(t, result.StartTimes[i], r.Start)
		assert.GreaterOrEqual(t, r.Wall, r.Start)
	}
	assert.Equal(t, "rest", f.log.records[0].Kind)
	assert.Equal(t, "pause", f.log.records[1].Kind)

	assert.Equal(t, []uromri.Kind{uromri.KindRest, uromri.KindPause, uromri.KindRest}, f.display.kinds)
	assert.Equal(t, 2, f.display.countdowns[0])
}

func TestRunnerCountdownRoundsUp(t *testing.T) {
	f := newRunner(0, false)
	phases := compile(t, false, rest(1))

	_, err := f.runner.Run(context.Background(), phases, 0)
	require.NoError(t, err)

	// the enter reads 0, then the countdown sees 0.25, 0.5 and 0.75
	assert.Equal(t, []int{1, 1, 1}, f.display.countdowns)
	assert.Equal(t, 3, f.display.refreshes)
}

func TestRunnerNoCommandsWithoutMotion(t *testing.T) {
	f := newRunner(0, true)
	phases := compile(t, true, rest(1), pause(1))

	result, err := f.runner.Run(context.Background(), phases, 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, result.Outcome)

	for _, call := range f.actuator.calls {
		assert.Equal(t, "busy", call)
	}
	assert.Equal(t, []flow{{0, 0}, {0, 0}}, f.display.flows)
}

func TestRunnerDispatch(t *testing.T) {
	tests := []struct {
		name     string
		phase    paradigm.Phase
		expected []string
		flow     flow
	}{
		{
			"Infuse",
			infuse(5, 300),
			[]string{"velocity 534", "move 25000", "busy"},
			flow{25, 300},
		},
		{
			"Withdraw",
			withdraw(5, 300),
			[]string{"velocity 534", "move -25000", "busy"},
			flow{25, 300},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRunner(0, true)
			phases := compile(t, true, tt.phase)

			result, err := f.runner.Run(context.Background(), phases, 0)
			require.NoError(t, err)

			assert.Equal(t, OutcomeCompleted, result.Outcome)
			assert.Equal(t, tt.expected, f.actuator.calls)
			assert.Equal(t, []flow{tt.flow}, f.display.flows)
		})
	}
}

func TestRunnerDrain(t *testing.T) {
	f := newRunner(0, true)
	f.actuator.busy = []bool{true, true}
	phases := compile(t, true, infuse(1, 60), rest(1))

	result, err := f.runner.Run(context.Background(), phases, 0)
	require.NoError(t, err)

	assert.Equal(t, OutcomeCompleted, result.Outcome)
	assert.Equal(t, 3+1, f.actuator.count("busy"))
	assert.Equal(t, 0, f.actuator.count("stop"))
}

func TestRunnerAbort(t *testing.T) {
	t.Run("DuringCountdown", func(t *testing.T) {
		f := newRunner(0, true)
		f.abort.n = 1
		phases := compile(t, true, infuse(5, 300), rest(2))

		result, err := f.runner.Run(context.Background(), phases, 0)
		require.NoError(t, err)

		assert.Equal(t, OutcomeAborted, result.Outcome)
		assert.Equal(t, 1, result.PhasesStarted)
		assert.Equal(t, 1, result.AbortedPhase)
		assert.Equal(t, []string{"velocity 534", "move 25000", "stop"}, f.actuator.calls)
		assert.Len(t, f.log.records, 1)
	})

	t.Run("DuringDrain", func(t *testing.T) {
		f := newRunner(0, true)
		f.runner.Clock = &steppingClock{step: 0.5}
		f.abort.n = 3
		f.actuator.busy = []bool{true, true, true}
		phases := compile(t, true, infuse(1, 300), rest(2))

		result, err := f.runner.Run(context.Background(), phases, 0)
		require.NoError(t, err)

		assert.Equal(t, OutcomeAborted, result.Outcome)
		assert.Equal(t, 1, result.AbortedPhase)
		assert.Equal(t, []string{"velocity 534", "move 5000", "busy", "stop"}, f.actuator.calls)
	})

	t.Run("SecondPhase", func(t *testing.T) {
		f := newRunner(0, false)
		f.runner.Clock = &steppingClock{step: 0.5}
		// phase 1 polls at 0.5, 1.0 and 1.5
		f.abort.n = 4
		phases := compile(t, false, rest(2), rest(2), rest(2))

		result, err := f.runner.Run(context.Background(), phases, 0)
		require.NoError(t, err)

		assert.Equal(t, OutcomeAborted, result.Outcome)
		assert.Equal(t, 2, result.PhasesStarted)
		assert.Equal(t, 2, result.AbortedPhase)
		assert.Len(t, f.log.records, 2)
	})

	t.Run("ContextCanceled", func(t *testing.T) {
		f := newRunner(0, true)
		phases := compile(t, true, rest(5), rest(5))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result, err := f.runner.Run(ctx, phases, 0)
		require.NoError(t, err)

		assert.Equal(t, OutcomeAborted, result.Outcome)
		assert.Equal(t, 1, f.actuator.count("stop"))
	})

	t.Run("StopFailureIsLogged", func(t *testing.T) {
		f := newRunner(0, true)
		f.abort.n = 1
		f.actuator.stopErr = errors.New("no reply")
		phases := compile(t, true, rest(5))

		result, err := f.runner.Run(context.Background(), phases, 0)
		require.NoError(t, err)

		assert.Equal(t, OutcomeAborted, result.Outcome)
		assert.Equal(t, 1, f.actuator.count("stop"))
	})
}

func TestRunnerDegradedMode(t *testing.T) {
	f := newRunner(0, false)
	phases := compile(t, false, infuse(5, 300))

	require.NotNil(t, phases[0].Motion)
	assert.Equal(t, int32(0), phases[0].Motion.DistanceNative)
	assert.Equal(t, int32(0), phases[0].Motion.VelocityNative)

	result, err := f.runner.Run(context.Background(), phases, 0)
	require.NoError(t, err)

	assert.Equal(t, OutcomeCompleted, result.Outcome)
	assert.Equal(t, []flow{{25, 300}}, f.display.flows)
}

func TestRunnerDispatchFailure(t *testing.T) {
	errDevice := errors.New("device error")

	tests := []struct {
		name     string
		setup    func(*fakeActuator)
		expected []string
	}{
		{
			"SetTargetVelocity",
			func(a *fakeActuator) { a.setErr = errDevice },
			[]string{"velocity 534", "stop"},
		},
		{
			"MoveRelative",
			func(a *fakeActuator) { a.moveErr = errDevice },
			[]string{"velocity 534", "move 25000", "stop"},
		},
		{
			"IsBusy",
			func(a *fakeActuator) { a.busyErr = errDevice },
			[]string{"velocity 534", "move 25000", "busy", "stop"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRunner(0, true)
			tt.setup(f.actuator)
			phases := compile(t, true, infuse(5, 300), rest(1))

			result, err := f.runner.Run(context.Background(), phases, 0)
			require.ErrorIs(t, err, ErrDispatch)
			require.ErrorIs(t, err, errDevice)

			assert.Equal(t, OutcomeFailed, result.Outcome)
			assert.Equal(t, 1, result.PhasesStarted)
			assert.Equal(t, tt.expected, f.actuator.calls)
		})
	}
}

func TestRunnerParadigmLogFailureContinues(t *testing.T) {
	f := newRunner(0, false)
	f.log.err = errors.New("disk full")
	phases := compile(t, false, rest(1), rest(1))

	result, err := f.runner.Run(context.Background(), phases, 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, result.Outcome)
	assert.Len(t, f.log.records, 2)
}
