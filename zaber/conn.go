package zaber

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the baud rate of the binary protocol
	DefaultBaudRate = 9600

	defaultReplyTimeout = 2 * time.Second
	pollInterval        = 50 * time.Millisecond
)

// ErrReplyTimeout is returned when the device does not answer a request in time
var ErrReplyTimeout = errors.New("timed out waiting for reply")

// Port is the serial connection used by Conn. go.bug.st/serial ports implement it
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(time.Duration) error
}

// Conn sends binary protocol packets to the devices on a serial port
type Conn struct {
	port         Port
	replyTimeout time.Duration

	mtx     sync.Mutex
	partial []byte
}

// OpenSerial opens the named serial port with the binary protocol's settings (8N1)
func OpenSerial(portName string, baudRate int) (*Conn, error) {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}

	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("error opening serial port %q: %w", portName, err)
	}

	return NewConn(port, defaultReplyTimeout)
}

// NewConn creates a Conn on an already open Port
func NewConn(port Port, replyTimeout time.Duration) (*Conn, error) {
	if replyTimeout <= 0 {
		replyTimeout = defaultReplyTimeout
	}
	err := port.SetReadTimeout(pollInterval)
	if err != nil {
		return nil, fmt.Errorf("error setting read timeout: %w", err)
	}
	return &Conn{port: port, replyTimeout: replyTimeout}, nil
}

// Send writes a request without waiting for the reply
func (c *Conn) Send(device byte, cmd Command, data int32) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return c.write(Packet{Device: device, Command: cmd, Data: data})
}

// Request writes a request and waits for the matching reply. Replies to other commands,
// like the one sent when a previous move finishes, are discarded.
func (c *Conn) Request(ctx context.Context, device byte, cmd Command, data int32) (Packet, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	err := c.write(Packet{Device: device, Command: cmd, Data: data})
	if err != nil {
		return Packet{}, err
	}

	expected := replyCommand(cmd, data)
	deadline := time.Now().Add(c.replyTimeout)
	for {
		reply, err := c.read(ctx, deadline)
		if err != nil {
			return Packet{}, fmt.Errorf("%s: %w", cmd, err)
		}

		if device != 0 && reply.Device != device {
			continue
		}

		switch reply.Command {
		case CommandError:
			return Packet{}, &ReplyError{Request: cmd, Code: reply.Data}
		case expected:
			return reply, nil
		}
	}
}

// Close closes the serial port
func (c *Conn) Close() error {
	return c.port.Close()
}

func (c *Conn) write(p Packet) error {
	b := p.Encode()
	_, err := c.port.Write(b[:])
	if err != nil {
		return fmt.Errorf("error writing %s: %w", p.Command, err)
	}
	return nil
}

// read collects bytes until a full packet is available. Bytes of an incomplete packet
// are kept for the next read so the stream never gets out of alignment.
func (c *Conn) read(ctx context.Context, deadline time.Time) (Packet, error) {
	buf := make([]byte, PacketSize)
	for len(c.partial) < PacketSize {
		if err := ctx.Err(); err != nil {
			return Packet{}, err
		}
		if time.Now().After(deadline) {
			return Packet{}, ErrReplyTimeout
		}

		n, err := c.port.Read(buf[:PacketSize-len(c.partial)])
		if err != nil {
			return Packet{}, fmt.Errorf("error reading serial: %w", err)
		}
		c.partial = append(c.partial, buf[:n]...)
	}

	p, err := DecodePacket(c.partial[:PacketSize])
	c.partial = c.partial[PacketSize:]
	return p, err
}
