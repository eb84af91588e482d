package zaber

import (
	"encoding/binary"
	"fmt"
)

// PacketSize is the length of every request and reply in the binary protocol
const PacketSize = 6

// Command is a binary protocol command number
type Command byte

const (
	CommandHome                   Command = 1
	CommandMoveAbsolute           Command = 20
	CommandMoveRelative           Command = 21
	CommandStop                   Command = 23
	CommandSetMicrostepResolution Command = 37
	CommandSetTargetSpeed         Command = 42
	CommandReturnDeviceID         Command = 50
	CommandReturnSetting          Command = 53
	CommandReturnStatus           Command = 54
	CommandReturnCurrentPosition  Command = 60
	CommandError                  Command = 255
)

func (c Command) String() string {
	switch c {
	case CommandHome:
		return "Home"
	case CommandMoveAbsolute:
		return "MoveAbsolute"
	case CommandMoveRelative:
		return "MoveRelative"
	case CommandStop:
		return "Stop"
	case CommandSetMicrostepResolution:
		return "SetMicrostepResolution"
	case CommandSetTargetSpeed:
		return "SetTargetSpeed"
	case CommandReturnDeviceID:
		return "ReturnDeviceID"
	case CommandReturnSetting:
		return "ReturnSetting"
	case CommandReturnStatus:
		return "ReturnStatus"
	case CommandReturnCurrentPosition:
		return "ReturnCurrentPosition"
	case CommandError:
		return "Error"
	default:
		return fmt.Sprintf("Command(%d)", byte(c))
	}
}

// replyCommand is the command number the device uses when answering a request.
// Return Setting is answered with the number of the setting that was asked for.
func replyCommand(cmd Command, data int32) Command {
	if cmd == CommandReturnSetting {
		return Command(data)
	}
	return cmd
}

// Packet is a single 6-byte message: device number, command number and little-endian data
type Packet struct {
	Device  byte
	Command Command
	Data    int32
}

// Encode writes the Packet in wire format
func (p Packet) Encode() [PacketSize]byte {
	var b [PacketSize]byte
	b[0] = p.Device
	b[1] = byte(p.Command)
	binary.LittleEndian.PutUint32(b[2:], uint32(p.Data))
	return b
}

// DecodePacket reads a Packet from wire format
func DecodePacket(b []byte) (Packet, error) {
	if len(b) != PacketSize {
		return Packet{}, fmt.Errorf("invalid packet length %d", len(b))
	}
	return Packet{
		Device:  b[0],
		Command: Command(b[1]),
		Data:    int32(binary.LittleEndian.Uint32(b[2:])),
	}, nil
}
