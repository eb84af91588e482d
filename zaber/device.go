package zaber

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// statusIdle is the Return Status reply of a device that is not executing a command
const statusIdle = 0

// Config has the settings needed to connect to the actuator
type Config struct {
	Port         string        `yaml:"port"`
	BaudRate     int           `yaml:"baud_rate"`
	DeviceNumber byte          `yaml:"device_number"`
	ReplyTimeout time.Duration `yaml:"reply_timeout"`
	Mechanics    Mechanics     `yaml:"mechanics"`
}

// Device is a single linear actuator addressed over a Conn
type Device struct {
	conn      *Conn
	number    byte
	id        int32
	converter Converter
}

// Open connects to the actuator on the configured serial port and reads the constants needed for unit conversion
func Open(ctx context.Context, cfg Config) (*Device, error) {
	if cfg.Port == "" || cfg.Port == PortNone {
		return nil, errors.New("no serial port configured for the actuator")
	}

	conn, err := OpenSerial(cfg.Port, cfg.BaudRate)
	if err != nil {
		return nil, err
	}
	if cfg.ReplyTimeout > 0 {
		conn.replyTimeout = cfg.ReplyTimeout
	}

	d, err := New(ctx, conn, cfg.DeviceNumber, cfg.Mechanics)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return d, nil
}

// New identifies the device and builds its Converter from the reported microstep resolution.
// A zero device number addresses the first device in the chain.
func New(ctx context.Context, conn *Conn, number byte, mechanics Mechanics) (*Device, error) {
	if number == 0 {
		number = 1
	}
	if mechanics == (Mechanics{}) {
		mechanics = DefaultMechanics
	}

	d := &Device{conn: conn, number: number}

	reply, err := conn.Request(ctx, number, CommandReturnDeviceID, 0)
	if err != nil {
		return nil, fmt.Errorf("error reading device id: %w", err)
	}
	d.id = reply.Data

	resolution, err := d.MicrostepResolution(ctx)
	if err != nil {
		return nil, err
	}

	d.converter, err = NewConverter(mechanics, resolution)
	if err != nil {
		return nil, fmt.Errorf("error creating unit converter: %w", err)
	}

	return d, nil
}

// ID is the device id read when connecting
func (d *Device) ID() int32 {
	return d.id
}

// Converter converts physical units for this device
func (d *Device) Converter() Converter {
	return d.converter
}

// MicrostepResolution reads the microstep resolution setting
func (d *Device) MicrostepResolution(ctx context.Context) (int32, error) {
	reply, err := d.conn.Request(ctx, d.number, CommandReturnSetting, int32(CommandSetMicrostepResolution))
	if err != nil {
		return 0, fmt.Errorf("error reading microstep resolution: %w", err)
	}
	return reply.Data, nil
}

// SetTargetVelocity sets the speed used by the following moves
func (d *Device) SetTargetVelocity(ctx context.Context, native int32) error {
	_, err := d.conn.Request(ctx, d.number, CommandSetTargetSpeed, native)
	return err
}

// MoveRelative starts a move by the given number of microsteps. It does not wait for the move to finish
func (d *Device) MoveRelative(_ context.Context, native int32) error {
	return d.conn.Send(d.number, CommandMoveRelative, native)
}

// MoveAbsolute starts a move to the given position. It does not wait for the move to finish
func (d *Device) MoveAbsolute(_ context.Context, native int32) error {
	return d.conn.Send(d.number, CommandMoveAbsolute, native)
}

// IsBusy is true while the device is executing a command
func (d *Device) IsBusy(ctx context.Context) (bool, error) {
	reply, err := d.conn.Request(ctx, d.number, CommandReturnStatus, 0)
	if err != nil {
		return false, err
	}
	return reply.Data != statusIdle, nil
}

// Position reads the current absolute position in microsteps
func (d *Device) Position(ctx context.Context) (int32, error) {
	reply, err := d.conn.Request(ctx, d.number, CommandReturnCurrentPosition, 0)
	if err != nil {
		return 0, err
	}
	return reply.Data, nil
}

// Stop decelerates and stops the current move
func (d *Device) Stop(ctx context.Context) error {
	_, err := d.conn.Request(ctx, d.number, CommandStop, 0)
	return err
}

// Close closes the serial connection
func (d *Device) Close() error {
	return d.conn.Close()
}
