// Package trigger waits for the MRI scanner's volume trigger pulses.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calvinmclean/uromri/log"
)

// Type selects where trigger pulses come from
type Type string

const (
	TypeKeyboard Type = "keyboard"
	TypeSerial   Type = "serial"
	TypeDummy    Type = "dummy"
)

const (
	defaultKey      = 't'
	defaultSyncByte = '5'
	defaultBaudRate = 9600
	defaultTR       = time.Second
)

// Config configures the trigger Source
type Config struct {
	Type      Type          `yaml:"type"`
	Port      string        `yaml:"port"`
	BaudRate  int           `yaml:"baud_rate"`
	SyncByte  string        `yaml:"sync_byte"`
	Key       string        `yaml:"key"`
	TR        time.Duration `yaml:"tr"`
	SkipScans int           `yaml:"skip_scans"`
	// Timeout of zero waits until the context is done
	Timeout time.Duration `yaml:"timeout"`
}

// Validate checks that the settings for the selected Type are usable
func (c Config) Validate() error {
	switch c.Type {
	case TypeKeyboard:
		if len([]rune(c.Key)) > 1 {
			return fmt.Errorf("trigger key must be a single character: %q", c.Key)
		}
	case TypeSerial:
		if c.Port == "" {
			return errors.New("serial trigger needs a port")
		}
		if len(c.SyncByte) > 1 {
			return fmt.Errorf("sync byte must be a single byte: %q", c.SyncByte)
		}
	case TypeDummy:
		if c.TR < 0 {
			return fmt.Errorf("invalid TR: %s", c.TR)
		}
	default:
		return fmt.Errorf("unsupported trigger type %q", c.Type)
	}
	if c.SkipScans < 0 {
		return fmt.Errorf("skip scans must not be negative: %d", c.SkipScans)
	}
	return nil
}

// Source produces scanner trigger pulses
type Source interface {
	Open() error
	// Next blocks until the next pulse arrives or ctx is done
	Next(ctx context.Context) error
	Close() error
}

// New creates the Source selected by cfg. Keyboard triggers read from keys
func New(cfg Config, keys <-chan rune) (Source, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	switch cfg.Type {
	case TypeKeyboard:
		key := defaultKey
		if cfg.Key != "" {
			key = []rune(cfg.Key)[0]
		}
		return NewKeySource(keys, key), nil
	case TypeSerial:
		syncByte := byte(defaultSyncByte)
		if cfg.SyncByte != "" {
			syncByte = cfg.SyncByte[0]
		}
		return NewSerialSource(cfg.Port, cfg.BaudRate, syncByte), nil
	default:
		tr := cfg.TR
		if tr == 0 {
			tr = defaultTR
		}
		return NewDummySource(tr), nil
	}
}

// WaitForTrigger skips the first skip pulses (dummy scans) and returns the clock reading at the
// next one, which becomes the time origin of the paradigm
func WaitForTrigger(ctx context.Context, src Source, skip int, now func() float64, timeout time.Duration) (float64, error) {
	logger := log.WithComponent("trigger")

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	for i := 0; i <= skip; i++ {
		err := src.Next(ctx)
		if err != nil {
			return 0, fmt.Errorf("error waiting for trigger %d: %w", i+1, err)
		}
		if i < skip {
			logger.Debug().Int("pulse", i+1).Int("skip", skip).Msg("skipped dummy scan")
		}
	}

	t := now()
	logger.Info().Float64("time", t).Msg("received scanner trigger")
	return t, nil
}
