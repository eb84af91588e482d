package zaber

import (
	"errors"
	"fmt"
	"math"
)

const (
	// MicrostepMultiplier is the fixed factor in the microstep size formula for this device family.
	// It is kept exactly as the device was calibrated with; verify against the actuator manual before changing it.
	MicrostepMultiplier = 4

	// NativeVelocityPerMicrostep is the number of microsteps/s represented by one native velocity unit.
	// Like MicrostepMultiplier, this is a device constant that is used as-is.
	NativeVelocityPerMicrostep = 9.375

	// MaxRange is the largest position, and relative move, the device accepts in microsteps
	MaxRange = 16_777_215
)

// ErrOutOfRange is returned for moves the device would reject
var ErrOutOfRange = errors.New("move out of device range")

// Mechanics has the mechanical constants of the actuator that are not reported by the device
type Mechanics struct {
	LinearMotionPerRevMM float64 `yaml:"linear_motion_per_rev_mm"`
	StepsPerRev          int32   `yaml:"steps_per_rev"`
	MaxSpeedMMPerS       float64 `yaml:"max_speed_mm_per_s"`
}

// DefaultMechanics are the constants of the lead screw used in the setup
var DefaultMechanics = Mechanics{
	LinearMotionPerRevMM: 25.4,
	StepsPerRev:          200,
	MaxSpeedMMPerS:       20,
}

// Converter maps physical distances and velocities to the actuator's native units and back
type Converter struct {
	microstepSizeUM float64
	// maxSpeedMMPerS of zero does not limit the speed
	maxSpeedMMPerS float64
}

// NewConverter calculates the microstep size from the mechanics and the microstep resolution read from the device
func NewConverter(m Mechanics, microstepResolution int32) (Converter, error) {
	if microstepResolution <= 0 {
		return Converter{}, fmt.Errorf("invalid microstep resolution: %d", microstepResolution)
	}
	if m.LinearMotionPerRevMM <= 0 || m.StepsPerRev <= 0 {
		return Converter{}, errors.New("mechanics must have positive linear motion and steps per revolution")
	}

	if m.MaxSpeedMMPerS < 0 {
		return Converter{}, fmt.Errorf("invalid maximum speed: %v", m.MaxSpeedMMPerS)
	}

	size := m.LinearMotionPerRevMM / float64(m.StepsPerRev*microstepResolution*MicrostepMultiplier) * 1000
	c, err := NewConverterFromMicrostepSize(size)
	if err != nil {
		return Converter{}, err
	}
	c.maxSpeedMMPerS = m.MaxSpeedMMPerS
	return c, nil
}

// NewConverterFromMicrostepSize creates a Converter for a known microstep size in µm
func NewConverterFromMicrostepSize(um float64) (Converter, error) {
	if um <= 0 || math.IsNaN(um) || math.IsInf(um, 0) {
		return Converter{}, fmt.Errorf("invalid microstep size: %v", um)
	}
	return Converter{microstepSizeUM: um}, nil
}

// MicrostepSizeUM is the linear travel of a single microstep in µm
func (c Converter) MicrostepSizeUM() float64 {
	return c.microstepSizeUM
}

// MaxSpeedMMPerS is the fastest allowed move, 0 when there is no limit
func (c Converter) MaxSpeedMMPerS() float64 {
	return c.maxSpeedMMPerS
}

// CheckMove returns ErrOutOfRange if moving mm at mmPerS can not be sent to the device as a single
// relative move: the distance must be within MaxRange and the speed within the maximum speed
func (c Converter) CheckMove(mm, mmPerS float64) error {
	steps := math.Abs(mm * 1000 / c.microstepSizeUM)
	if !(steps <= MaxRange) {
		return fmt.Errorf("%w: %.3f mm is %.0f microsteps, more than %d", ErrOutOfRange, mm, steps, MaxRange)
	}
	if c.maxSpeedMMPerS > 0 && mmPerS > c.maxSpeedMMPerS {
		return fmt.Errorf("%w: %.3f mm/s is faster than %.3f mm/s", ErrOutOfRange, mmPerS, c.maxSpeedMMPerS)
	}
	velocity := math.Abs(mmPerS*1000/c.microstepSizeUM) / NativeVelocityPerMicrostep
	if !(velocity < math.MaxInt32) {
		return fmt.Errorf("%w: %.3f mm/s", ErrOutOfRange, mmPerS)
	}
	return nil
}

// DistanceMMToNative converts mm to microsteps. Ties round to even. The result is only valid for
// distances accepted by CheckMove
func (c Converter) DistanceMMToNative(mm float64) int32 {
	return int32(math.RoundToEven(mm * 1000 / c.microstepSizeUM))
}

// DistanceNativeToMM converts microsteps to mm
func (c Converter) DistanceNativeToMM(native int32) float64 {
	return float64(native) * c.microstepSizeUM / 1000
}

// VelocityMMPerSToNative converts mm/s to native velocity units, rounding up so the
// resulting speed is never slower than requested
func (c Converter) VelocityMMPerSToNative(mmPerS float64) int32 {
	microstepsPerS := mmPerS * 1000 / c.microstepSizeUM
	return int32(math.Ceil(microstepsPerS / NativeVelocityPerMicrostep))
}

// VelocityNativeToMMPerS converts native velocity units to mm/s
func (c Converter) VelocityNativeToMMPerS(native int32) float64 {
	return float64(native) * NativeVelocityPerMicrostep * c.microstepSizeUM / 1000
}
