package zaber

import (
	"errors"
	"fmt"

	"go.bug.st/serial"
)

// PortNone is offered next to the detected ports to run without an actuator
const PortNone = "None"

// ErrNoSerialPorts is returned when no serial ports are available
var ErrNoSerialPorts = errors.New("no serial ports found")

// ListPorts returns the names of the serial ports on this machine
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("error listing serial ports: %w", err)
	}
	if len(ports) == 0 {
		return nil, ErrNoSerialPorts
	}
	return ports, nil
}
