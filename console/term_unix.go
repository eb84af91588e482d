//go:build linux || darwin

package console

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// MakeRaw turns off line buffering and echo on the terminal fd so single key presses can be read.
// Signals stay enabled so Ctrl-C still interrupts. The returned function restores the previous state.
// If fd is not a terminal, nothing is changed.
func MakeRaw(fd int) (func() error, error) {
	old, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		if err == unix.ENOTTY || err == unix.ENODEV {
			return func() error { return nil }, nil
		}
		return nil, fmt.Errorf("error reading terminal settings: %w", err)
	}

	termios := *old
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.IEXTEN
	termios.Iflag &^= unix.ICRNL | unix.IXON
	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0

	err = unix.IoctlSetTermios(fd, ioctlSetTermios, &termios)
	if err != nil {
		return nil, fmt.Errorf("error setting terminal to raw mode: %w", err)
	}

	return func() error {
		return unix.IoctlSetTermios(fd, ioctlSetTermios, old)
	}, nil
}
