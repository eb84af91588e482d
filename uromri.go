package uromri

import (
	"errors"
	"fmt"
	"image/color"
	"strings"
)

// ErrUnknownKind is returned when a phase kind is not one of rest, pause, infuse or withdraw
var ErrUnknownKind = errors.New("unknown phase kind")

// Kind is the command a phase of the paradigm executes
type Kind int

const (
	KindUnknown Kind = iota
	KindRest
	KindPause
	KindInfuse
	KindWithdraw
)

// ParseKind parses the lower-case name of a Kind. Anything else is an error, there is no fallback Kind
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rest":
		return KindRest, nil
	case "pause":
		return KindPause, nil
	case "infuse":
		return KindInfuse, nil
	case "withdraw":
		return KindWithdraw, nil
	default:
		return KindUnknown, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

func (k Kind) String() string {
	switch k {
	case KindRest:
		return "rest"
	case KindPause:
		return "pause"
	case KindInfuse:
		return "infuse"
	case KindWithdraw:
		return "withdraw"
	default:
		return "unknown"
	}
}

// Valid is true for every Kind except KindUnknown
func (k Kind) Valid() bool {
	return k >= KindRest && k <= KindWithdraw
}

// Moves is true when the phase drives the syringe
func (k Kind) Moves() bool {
	return k == KindInfuse || k == KindWithdraw
}

// Color is the text color used on the dashboard for this Kind
func (k Kind) Color() color.RGBA {
	switch k {
	case KindRest:
		return color.RGBA{R: 255, G: 198, B: 28, A: 255}
	case KindPause:
		return color.RGBA{R: 51, G: 167, B: 202, A: 255}
	case KindInfuse:
		return color.RGBA{R: 217, G: 95, B: 43, A: 255}
	case KindWithdraw:
		return color.RGBA{R: 124, G: 179, B: 62, A: 255}
	default:
		return color.RGBA{R: 255, G: 255, B: 255, A: 255}
	}
}

// UnmarshalYAML parses a Kind from its name
func (k *Kind) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// MarshalYAML writes the Kind's name
func (k Kind) MarshalYAML() (any, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return k.String(), nil
}
