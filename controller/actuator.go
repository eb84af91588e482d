package controller

import (
	"context"

	"github.com/calvinmclean/uromri/zaber"
)

// Actuator is the syringe pump's linear actuator. Values are in native units
type Actuator interface {
	SetTargetVelocity(ctx context.Context, native int32) error
	MoveRelative(ctx context.Context, native int32) error
	MoveAbsolute(ctx context.Context, native int32) error
	IsBusy(ctx context.Context) (bool, error)
	Stop(ctx context.Context) error
	Close() error
}

var _ Actuator = (*zaber.Device)(nil)
