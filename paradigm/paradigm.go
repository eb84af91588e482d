// Package paradigm describes the experiment timeline and compiles its fluid phases into actuator moves.
package paradigm

import (
	"errors"
	"fmt"
	"math"

	"github.com/calvinmclean/uromri"
	"github.com/calvinmclean/uromri/zaber"
)

var ErrInvalidPhase = errors.New("invalid phase")

// Phase is one timed segment of the paradigm
type Phase struct {
	Group    string      `yaml:"group"`
	Kind     uromri.Kind `yaml:"kind"`
	Duration float64     `yaml:"duration"`
	Text     string      `yaml:"text"`
	// Rate is the flow in mL/min. Only infuse and withdraw phases have one
	Rate float64 `yaml:"rate,omitempty"`
}

// Validate checks a single phase
func (p Phase) Validate() error {
	if !p.Kind.Valid() {
		return fmt.Errorf("%w: %w", ErrInvalidPhase, uromri.ErrUnknownKind)
	}
	if !(p.Duration > 0) || math.IsInf(p.Duration, 0) {
		return fmt.Errorf("%w: duration must be positive, got %v", ErrInvalidPhase, p.Duration)
	}
	if p.Kind.Moves() && (!(p.Rate > 0) || math.IsInf(p.Rate, 0)) {
		return fmt.Errorf("%w: %s needs a positive rate, got %v", ErrInvalidPhase, p.Kind, p.Rate)
	}
	if !p.Kind.Moves() && p.Rate != 0 {
		return fmt.Errorf("%w: %s does not take a rate", ErrInvalidPhase, p.Kind)
	}
	return nil
}

// Timeline is the ordered list of phases. Phases run in slice order
type Timeline []Phase

// Validate checks every phase of the Timeline
func (tl Timeline) Validate() error {
	if len(tl) == 0 {
		return errors.New("timeline has no phases")
	}
	for i, p := range tl {
		err := p.Validate()
		if err != nil {
			return fmt.Errorf("phase %d (%s): %w", i+1, p.Group, err)
		}
	}
	return nil
}

// TotalDuration is the sum of all phase durations in seconds
func (tl Timeline) TotalDuration() float64 {
	var total float64
	for _, p := range tl {
		total += p.Duration
	}
	return total
}

// Timings are the adjustable durations (s) and rates (mL/min) of the default paradigm
type Timings struct {
	Baseline     float64 `yaml:"baseline"`
	Runout       float64 `yaml:"runout"`
	Pause1       float64 `yaml:"pause1"`
	Pause2       float64 `yaml:"pause2"`
	Infuse       float64 `yaml:"infuse"`
	Withdraw     float64 `yaml:"withdraw"`
	InfuseRate   float64 `yaml:"infuse_rate"`
	WithdrawRate float64 `yaml:"withdraw_rate"`
	Events       int     `yaml:"events"`
}

var DefaultTimings = Timings{
	Baseline:     2,
	Runout:       2,
	Pause1:       2,
	Pause2:       2,
	Infuse:       5,
	Withdraw:     5,
	InfuseRate:   500,
	WithdrawRate: 500,
	Events:       4,
}

// Default builds the standard paradigm: a baseline, a number of pause/infuse/pause/withdraw events and a run out
func Default(t Timings) Timeline {
	tl := Timeline{{Group: "baseline", Kind: uromri.KindRest, Duration: t.Baseline, Text: "Baseline"}}

	for i := 1; i <= t.Events; i++ {
		group := fmt.Sprintf("event %d", i)
		title := fmt.Sprintf("Event %d", i)
		tl = append(tl,
			Phase{Group: group, Kind: uromri.KindPause, Duration: t.Pause1, Text: title + "\nPause 1"},
			Phase{Group: group, Kind: uromri.KindInfuse, Duration: t.Infuse, Text: title + "\nInfuse", Rate: t.InfuseRate},
			Phase{Group: group, Kind: uromri.KindPause, Duration: t.Pause2, Text: title + "\nPause 2"},
			Phase{Group: group, Kind: uromri.KindWithdraw, Duration: t.Withdraw, Text: title + "\nWithdraw", Rate: t.WithdrawRate},
		)
	}

	return append(tl, Phase{Group: "runout", Kind: uromri.KindRest, Duration: t.Runout, Text: "Run out"})
}

// Motion is the move the actuator executes during a fluid phase
type Motion struct {
	DistanceMM     float64
	DistanceNative int32
	VelocityNative int32
}

// CompiledPhase is a Phase with its Motion resolved. Motion is nil for rest and pause
type CompiledPhase struct {
	Phase
	Motion *Motion
}

// Compiled is a Timeline whose fluid phases have been converted to actuator units.
// It is a separate type so compiled phases are never compiled a second time.
type Compiled []CompiledPhase

// Compile resolves the Motion of each fluid phase. A nil converter means there is no actuator
// attached: native distance and velocity are 0 while DistanceMM is still calculated for the display.
// The Timeline is validated first and left unchanged. With a converter, a fluid phase whose move the
// device would reject is an error wrapping zaber.ErrOutOfRange.
func Compile(tl Timeline, conv *zaber.Converter) (Compiled, error) {
	err := tl.Validate()
	if err != nil {
		return nil, err
	}

	out := make(Compiled, 0, len(tl))
	for i, p := range tl {
		cp := CompiledPhase{Phase: p}
		if p.Kind.Moves() {
			m, err := motion(p, conv)
			if err != nil {
				return nil, fmt.Errorf("phase %d (%s): %w", i+1, p.Group, err)
			}
			cp.Motion = &m
		}
		out = append(out, cp)
	}
	return out, nil
}

// motion treats 1 mL of flow as 1 mm of plunger travel, which holds for the syringes used in the setup
func motion(p Phase, conv *zaber.Converter) (Motion, error) {
	m := Motion{DistanceMM: p.Duration * p.Rate / 60}
	if conv != nil {
		err := conv.CheckMove(m.DistanceMM, p.Rate/60)
		if err != nil {
			return Motion{}, err
		}
		m.DistanceNative = conv.DistanceMMToNative(m.DistanceMM)
		m.VelocityNative = conv.VelocityMMPerSToNative(p.Rate / 60)
	}

	switch p.Kind {
	case uromri.KindInfuse:
		m.DistanceMM = math.Abs(m.DistanceMM)
		m.DistanceNative = abs(m.DistanceNative)
	case uromri.KindWithdraw:
		m.DistanceMM = -math.Abs(m.DistanceMM)
		m.DistanceNative = -abs(m.DistanceNative)
	}
	return m, nil
}

func abs(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// TotalDuration is the sum of all phase durations in seconds
func (c Compiled) TotalDuration() float64 {
	var total float64
	for _, p := range c {
		total += p.Duration
	}
	return total
}

// StartTimes is the scheduled start of each phase when the first one starts at offset
func (c Compiled) StartTimes(offset float64) []float64 {
	starts := make([]float64, len(c))
	t := offset
	for i, p := range c {
		starts[i] = t
		t += p.Duration
	}
	return starts
}

// NetDistanceMM is the plunger travel after the whole timeline has run
func (c Compiled) NetDistanceMM() float64 {
	var total float64
	for _, p := range c {
		if p.Motion != nil {
			total += p.Motion.DistanceMM
		}
	}
	return total
}
