package paradigm

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/calvinmclean/uromri"
	"github.com/calvinmclean/uromri/zaber"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func oneMicronConverter(t *testing.T) *zaber.Converter {
	t.Helper()
	c, err := zaber.NewConverterFromMicrostepSize(1.0)
	require.NoError(t, err)
	return &c
}

func TestCompileInfuseExample(t *testing.T) {
	tl := Timeline{{Group: "g", Kind: uromri.KindInfuse, Duration: 5, Text: "x", Rate: 300}}

	t.Run("WithActuator", func(t *testing.T) {
		compiled, err := Compile(tl, oneMicronConverter(t))
		require.NoError(t, err)
		require.Len(t, compiled, 1)
		require.NotNil(t, compiled[0].Motion)

		assert.Equal(t, Motion{DistanceMM: 25, DistanceNative: 25000, VelocityNative: 534}, *compiled[0].Motion)
	})

	t.Run("Degraded", func(t *testing.T) {
		compiled, err := Compile(tl, nil)
		require.NoError(t, err)
		require.NotNil(t, compiled[0].Motion)

		assert.Equal(t, Motion{DistanceMM: 25}, *compiled[0].Motion)
	})
}

func TestCompileOutOfRange(t *testing.T) {
	fine, err := zaber.NewConverterFromMicrostepSize(0.49609375)
	require.NoError(t, err)
	device, err := zaber.NewConverter(zaber.DefaultMechanics, 64)
	require.NoError(t, err)

	tests := []struct {
		name     string
		phase    Phase
		conv     *zaber.Converter
		expectOK bool
	}{
		{
			"LongInfuse",
			Phase{Group: "g", Kind: uromri.KindInfuse, Duration: 36000, Text: "x", Rate: 5000},
			&fine,
			false,
		},
		{
			"LongWithdraw",
			Phase{Group: "g", Kind: uromri.KindWithdraw, Duration: 36000, Text: "x", Rate: 5000},
			&fine,
			false,
		},
		{
			"FasterThanMaxSpeed",
			Phase{Group: "g", Kind: uromri.KindInfuse, Duration: 1, Text: "x", Rate: 1500},
			&device,
			false,
		},
		{
			"AtMaxSpeed",
			Phase{Group: "g", Kind: uromri.KindInfuse, Duration: 1, Text: "x", Rate: 1200},
			&device,
			true,
		},
		{
			"DegradedIsNotLimited",
			Phase{Group: "g", Kind: uromri.KindInfuse, Duration: 36000, Text: "x", Rate: 5000},
			nil,
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compiled, err := Compile(Timeline{tt.phase}, tt.conv)
			if !tt.expectOK {
				require.ErrorIs(t, err, zaber.ErrOutOfRange)
				assert.Contains(t, err.Error(), "phase 1 (g)")
				return
			}

			require.NoError(t, err)
			if tt.phase.Kind == uromri.KindInfuse {
				assert.GreaterOrEqual(t, compiled[0].Motion.DistanceNative, int32(0))
			}
		})
	}
}

func TestCompileSigns(t *testing.T) {
	conv := oneMicronConverter(t)
	for _, duration := range []float64{0.5, 1, 5, 12, 60} {
		for _, rate := range []float64{1, 100, 300, 500, 999.9} {
			tl := Timeline{
				{Group: "e", Kind: uromri.KindInfuse, Duration: duration, Text: "in", Rate: rate},
				{Group: "e", Kind: uromri.KindWithdraw, Duration: duration, Text: "out", Rate: rate},
			}
			compiled, err := Compile(tl, conv)
			require.NoError(t, err)

			in, out := compiled[0].Motion, compiled[1].Motion
			assert.Equal(t, duration*rate/60, in.DistanceMM)
			assert.GreaterOrEqual(t, in.DistanceNative, int32(0))
			assert.Equal(t, -duration*rate/60, out.DistanceMM)
			assert.LessOrEqual(t, out.DistanceNative, int32(0))
			assert.Equal(t, in.VelocityNative, out.VelocityNative)
		}
	}
}

func TestCompileRestAndPauseHaveNoMotion(t *testing.T) {
	compiled, err := Compile(Default(DefaultTimings), oneMicronConverter(t))
	require.NoError(t, err)

	for _, p := range compiled {
		if p.Kind.Moves() {
			assert.NotNil(t, p.Motion, p.Text)
		} else {
			assert.Nil(t, p.Motion, p.Text)
		}
	}
}

func TestCompileDoesNotModifyTimeline(t *testing.T) {
	tl := Default(DefaultTimings)
	before := append(Timeline(nil), tl...)

	first, err := Compile(tl, oneMicronConverter(t))
	require.NoError(t, err)
	second, err := Compile(tl, oneMicronConverter(t))
	require.NoError(t, err)

	assert.Equal(t, before, tl)
	assert.Equal(t, first, second)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		phase Phase
	}{
		{"UnknownKind", Phase{Duration: 1}},
		{"ZeroDuration", Phase{Kind: uromri.KindRest}},
		{"NegativeDuration", Phase{Kind: uromri.KindRest, Duration: -1}},
		{"InfuseWithoutRate", Phase{Kind: uromri.KindInfuse, Duration: 1}},
		{"WithdrawNegativeRate", Phase{Kind: uromri.KindWithdraw, Duration: 1, Rate: -5}},
		{"PauseWithRate", Phase{Kind: uromri.KindPause, Duration: 1, Rate: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(Timeline{tt.phase}, nil)
			assert.ErrorIs(t, err, ErrInvalidPhase)
		})
	}

	t.Run("Empty", func(t *testing.T) {
		_, err := Compile(nil, nil)
		assert.Error(t, err)
	})
}

func TestDefault(t *testing.T) {
	tl := Default(DefaultTimings)
	require.Len(t, tl, 18)
	assert.Equal(t, "baseline", tl[0].Group)
	assert.Equal(t, uromri.KindRest, tl[17].Kind)
	assert.Equal(t, "Event 2\nInfuse", tl[6].Text)
	assert.Equal(t, 2+4*(2+5+2+5)+2.0, tl.TotalDuration())

	compiled, err := Compile(tl, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0, compiled.NetDistanceMM(), 1e-9)
}

func TestStartTimes(t *testing.T) {
	tl := Timeline{
		{Group: "a", Kind: uromri.KindRest, Duration: 1.5, Text: "a"},
		{Group: "b", Kind: uromri.KindPause, Duration: 2, Text: "b"},
		{Group: "c", Kind: uromri.KindInfuse, Duration: 3, Text: "c", Rate: 60},
		{Group: "d", Kind: uromri.KindRest, Duration: 4, Text: "d"},
	}
	compiled, err := Compile(tl, nil)
	require.NoError(t, err)

	assert.Equal(t, []float64{10, 11.5, 13.5, 16.5}, compiled.StartTimes(10))
	assert.Equal(t, 10.5, compiled.TotalDuration())
}

func TestLoadYAML(t *testing.T) {
	t.Run("Phases", func(t *testing.T) {
		tl, err := LoadYAML(strings.NewReader(`
phases:
  - group: baseline
    kind: rest
    duration: 3
    text: Baseline
  - group: event 1
    kind: infuse
    duration: 12
    text: "Event 1\nInfuse"
    rate: 100
`))
		require.NoError(t, err)
		require.Len(t, tl, 2)
		assert.Equal(t, Phase{Group: "event 1", Kind: uromri.KindInfuse, Duration: 12, Text: "Event 1\nInfuse", Rate: 100}, tl[1])
	})

	t.Run("Timings", func(t *testing.T) {
		tl, err := LoadYAML(strings.NewReader(`
timings:
  baseline: 1
  runout: 1
  pause1: 1
  pause2: 1
  infuse: 12
  withdraw: 12
  infuse_rate: 100
  withdraw_rate: 100
  events: 2
`))
		require.NoError(t, err)
		assert.Len(t, tl, 10)
	})

	t.Run("UnknownField", func(t *testing.T) {
		_, err := LoadYAML(strings.NewReader("phase: []\n"))
		assert.Error(t, err)
	})

	t.Run("UnknownKind", func(t *testing.T) {
		_, err := LoadYAML(strings.NewReader("phases:\n  - {group: a, kind: flush, duration: 1, text: a}\n"))
		assert.ErrorIs(t, err, uromri.ErrUnknownKind)
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := LoadYAML(strings.NewReader(""))
		assert.Error(t, err)
	})
}

func TestLoadCSV(t *testing.T) {
	tl, err := LoadCSV(strings.NewReader(`# group, kind, duration, text, rate
baseline, rest, 3, Baseline
event 1, infuse, 12, Event 1\nInfuse, 100
event 1, withdraw, 12, Event 1\nWithdraw, 100
`))
	require.NoError(t, err)
	require.Len(t, tl, 3)
	assert.Equal(t, "Event 1\nInfuse", tl[1].Text)
	assert.Equal(t, 100.0, tl[2].Rate)
	assert.Equal(t, uromri.KindWithdraw, tl[2].Kind)

	_, err = LoadCSV(strings.NewReader("a, rest, soon, A\n"))
	assert.ErrorContains(t, err, "line 1")

	_, err = LoadCSV(strings.NewReader("a, rest\n"))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "paradigm.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("a, rest, 1, A\n"), 0o644))
	tl, err := LoadFile(csvPath)
	require.NoError(t, err)
	assert.Len(t, tl, 1)

	yamlPath := filepath.Join(dir, "paradigm.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("phases:\n  - {group: a, kind: pause, duration: 1, text: A}\n"), 0o644))
	tl, err = LoadFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, uromri.KindPause, tl[0].Kind)

	_, err = LoadFile(filepath.Join(dir, "paradigm.txt"))
	assert.Error(t, err)
}
