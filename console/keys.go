// Package console runs a session in a terminal: it reads single key presses for the abort and
// trigger keys and prints the state of the paradigm.
package console

import (
	"bufio"
	"errors"
	"io"
	"sync/atomic"

	"github.com/calvinmclean/uromri/log"
)

const (
	KeyEscape = '\x1b'
	KeyQuit   = 'q'

	keyBuffer = 64
)

// Keys reads key presses from a terminal. Escape and q request an abort, every other key is
// forwarded to the channel returned by Chan.
type Keys struct {
	keys  chan rune
	abort atomic.Bool
	done  chan struct{}
}

// ReadKeys starts reading r until it returns an error. The reader is not closed
func ReadKeys(r io.Reader) *Keys {
	k := &Keys{
		keys: make(chan rune, keyBuffer),
		done: make(chan struct{}),
	}
	go k.read(bufio.NewReader(r))
	return k
}

func (k *Keys) read(r *bufio.Reader) {
	defer close(k.done)
	defer close(k.keys)

	logger := log.WithComponent("keys")
	for {
		key, _, err := r.ReadRune()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Error().Err(err).Msg("error reading keys")
			}
			return
		}

		switch key {
		case KeyEscape, KeyQuit:
			logger.Info().Msg("abort requested")
			k.abort.Store(true)
			continue
		}

		select {
		case k.keys <- key:
		default:
			logger.Debug().Str("key", string(key)).Msg("dropped key, nobody is reading")
		}
	}
}

// Chan receives the keys that are not abort keys. It is closed when reading stops
func (k *Keys) Chan() <-chan rune {
	return k.keys
}

// AbortRequested reports and clears a pending abort
func (k *Keys) AbortRequested() bool {
	return k.abort.Swap(false)
}

// Done is closed when reading stops
func (k *Keys) Done() <-chan struct{} {
	return k.done
}
