// Package syringe calculates how many syringes of which volume are needed to fill the bladder in
// the steps used during the session.
package syringe

import (
	"fmt"
	"math"
	"strings"
)

const (
	// FirstFill is the fraction of the maximum volume filled before the first run
	FirstFill = 0.40
	// SecondFill is the fraction of the maximum volume reached before the second run
	SecondFill = 0.65

	// volumes closer than this are considered equal, so float noise never adds an almost empty syringe
	epsilon = 1e-9
)

// Partition splits volume into syringes of syringeVolume mL. All syringes are full except the last,
// which holds the rest
func Partition(volume, syringeVolume float64) ([]float64, error) {
	if !(syringeVolume > 0) || math.IsInf(syringeVolume, 0) {
		return nil, fmt.Errorf("invalid syringe volume: %v", syringeVolume)
	}
	if volume < 0 || math.IsNaN(volume) || math.IsInf(volume, 0) {
		return nil, fmt.Errorf("invalid volume: %v", volume)
	}
	if volume == 0 {
		return nil, nil
	}

	n := max(int(math.Ceil(volume/syringeVolume-epsilon)), 1)
	syringes := make([]float64, n)
	for i := range syringes {
		syringes[i] = syringeVolume
	}
	syringes[n-1] = volume - float64(n-1)*syringeVolume

	return syringes, nil
}

// Step is one filling step
type Step struct {
	Name     string
	Volume   float64
	Syringes []float64
}

// Plan is the list of syringes to prepare for each filling step
type Plan struct {
	MaxVolume     float64
	SyringeVolume float64
	Steps         []Step
}

// NewPlan calculates the syringes to fill up to 40% and then from 40% to 65% of maxVolume
func NewPlan(maxVolume, syringeVolume float64) (Plan, error) {
	if !(maxVolume > 0) || math.IsInf(maxVolume, 0) {
		return Plan{}, fmt.Errorf("invalid maximum volume: %v", maxVolume)
	}

	plan := Plan{MaxVolume: maxVolume, SyringeVolume: syringeVolume}

	first := maxVolume * FirstFill
	second := maxVolume*SecondFill - first
	for _, step := range []struct {
		fraction float64
		volume   float64
	}{
		{FirstFill, first},
		{SecondFill, second},
	} {
		syringes, err := Partition(step.volume, syringeVolume)
		if err != nil {
			return Plan{}, err
		}
		plan.Steps = append(plan.Steps, Step{
			Name:     fmt.Sprintf("Volume %.0f%%", step.fraction*100),
			Volume:   step.volume,
			Syringes: syringes,
		})
	}

	return plan, nil
}

func (p Plan) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Maximum volume %s mL, syringes of %s mL\n", formatVolume(p.MaxVolume), formatVolume(p.SyringeVolume))
	for _, step := range p.Steps {
		fmt.Fprintf(&sb, "\n%s (%s mL)\n", step.Name, formatVolume(step.Volume))
		for i, v := range step.Syringes {
			fmt.Fprintf(&sb, "  syringe %d: %s mL\n", i+1, formatVolume(v))
		}
	}
	return sb.String()
}

func formatVolume(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
