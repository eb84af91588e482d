package trigger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
)

// KeySource counts presses of one key, as sent by scanner interfaces that emulate a keyboard
type KeySource struct {
	keys <-chan rune
	key  rune
}

func NewKeySource(keys <-chan rune, key rune) *KeySource {
	return &KeySource{keys: keys, key: key}
}

func (s *KeySource) Open() error {
	if s.keys == nil {
		return errors.New("keyboard trigger has no key input")
	}
	return nil
}

func (s *KeySource) Next(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r, ok := <-s.keys:
			if !ok {
				return io.EOF
			}
			if r == s.key {
				return nil
			}
		}
	}
}

func (s *KeySource) Close() error {
	return nil
}

// Port is the serial port read by SerialSource
type Port interface {
	io.ReadCloser
	SetReadTimeout(time.Duration) error
}

// SerialSource counts sync bytes sent by the scanner's serial trigger interface
type SerialSource struct {
	portName string
	baudRate int
	syncByte byte

	open func(string, int) (Port, error)
	port Port
	buf  []byte
}

func NewSerialSource(portName string, baudRate int, syncByte byte) *SerialSource {
	if baudRate == 0 {
		baudRate = defaultBaudRate
	}
	return &SerialSource{
		portName: portName,
		baudRate: baudRate,
		syncByte: syncByte,
		open:     openSerial,
	}
}

func openSerial(name string, baudRate int) (Port, error) {
	return serial.Open(name, &serial.Mode{BaudRate: baudRate})
}

func (s *SerialSource) Open() error {
	port, err := s.open(s.portName, s.baudRate)
	if err != nil {
		return fmt.Errorf("error opening trigger port %q: %w", s.portName, err)
	}

	err = port.SetReadTimeout(50 * time.Millisecond)
	if err != nil {
		_ = port.Close()
		return fmt.Errorf("error setting read timeout: %w", err)
	}

	s.port = port
	return nil
}

func (s *SerialSource) Next(ctx context.Context) error {
	if s.port == nil {
		return errors.New("trigger port is not open")
	}

	for {
		for len(s.buf) > 0 {
			b := s.buf[0]
			s.buf = s.buf[1:]
			if b == s.syncByte {
				return nil
			}
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		buf := make([]byte, 64)
		n, err := s.port.Read(buf)
		if err != nil {
			return fmt.Errorf("error reading trigger port: %w", err)
		}
		s.buf = buf[:n]
	}
}

func (s *SerialSource) Close() error {
	if s.port == nil {
		return nil
	}
	return s.port.Close()
}

// DummySource emulates a scanner that sends a pulse every TR
type DummySource struct {
	tr time.Duration

	mtx    sync.Mutex
	ticker *time.Ticker
}

func NewDummySource(tr time.Duration) *DummySource {
	return &DummySource{tr: tr}
}

func (s *DummySource) Open() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.ticker == nil {
		s.ticker = time.NewTicker(s.tr)
	}
	return nil
}

func (s *DummySource) Next(ctx context.Context) error {
	s.mtx.Lock()
	ticker := s.ticker
	s.mtx.Unlock()

	if ticker == nil {
		return errors.New("dummy trigger is not open")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ticker.C:
		return nil
	}
}

func (s *DummySource) Close() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	return nil
}
