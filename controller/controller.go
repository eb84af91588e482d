// Package controller runs an fMRI infusion session: it waits for the scanner, walks the paradigm
// phase by phase and drives the syringe pump.
package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/calvinmclean/uromri/log"
	"github.com/calvinmclean/uromri/metrics"
	"github.com/calvinmclean/uromri/paradigm"
	"github.com/calvinmclean/uromri/sessionlog"
	"github.com/calvinmclean/uromri/trigger"
	"github.com/calvinmclean/uromri/twchart"
	"github.com/calvinmclean/uromri/zaber"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const abortPollInterval = 50 * time.Millisecond

// Frontend is what the operator sees and types into
type Frontend struct {
	Display Display
	Abort   AbortInput
	// Keys feeds a keyboard trigger
	Keys <-chan rune
}

// Session holds everything one run of the paradigm needs. Nothing here is shared between sessions
type Session struct {
	// ID is unique for every run and tags the logs and the summary
	ID       string
	Name     string
	Timeline paradigm.Timeline
	// Actuator and Converter are nil in degraded mode
	Actuator  Actuator
	Converter *zaber.Converter

	Trigger        trigger.Source
	SkipScans      int
	TriggerTimeout time.Duration

	Clock         Clock
	Display       Display
	Abort         AbortInput
	Log           ParadigmLog
	FrameInterval time.Duration

	chart    twchartClient
	closeLog func() error
	logger   zerolog.Logger

	summary     sessionlog.Summary
	summaryPath string
}

// NewFromConfig connects the devices and opens the logs for a session. When the actuator is enabled,
// failing to connect to it is a setup failure. A disabled actuator runs the session without motion.
func NewFromConfig(ctx context.Context, cfg Config, fe Frontend) (*Session, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSetup, err)
	}
	if fe.Display == nil {
		return nil, fmt.Errorf("%w: missing display", ErrSetup)
	}

	clock := NewClock()
	started := time.Now()

	sessLog, err := sessionlog.Open(cfg.LogDir, cfg.SubjectID, cfg.SessionID, started, clock.Now)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSetup, err)
	}

	log.Configure(log.Config{
		Level:  cfg.LogLevel,
		Output: io.MultiWriter(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}, sessLog.Writer()),
	})

	closeLog := func() error {
		log.Configure(log.Config{Level: cfg.LogLevel})
		return sessLog.Close()
	}

	s := &Session{
		ID:             uuid.NewString(),
		Name:           fmt.Sprintf("sub-%s ses-%s", cfg.SubjectID, cfg.SessionID),
		SkipScans:      cfg.Trigger.SkipScans,
		TriggerTimeout: cfg.Trigger.Timeout,
		Clock:          clock,
		Display:        fe.Display,
		Abort:          fe.Abort,
		Log:            sessLog,
		FrameInterval:  cfg.FrameInterval,
		closeLog:       closeLog,
		summaryPath:    sessLog.SummaryPath,
	}
	s.summary = sessionlog.Summary{
		Subject:     cfg.SubjectID,
		Session:     cfg.SessionID,
		Started:     started,
		ParadigmLog: sessLog.ParadigmPath,
	}
	s.init()

	s.logger.Info().
		Str("subject", cfg.SubjectID).
		Str("session", cfg.SessionID).
		Str("paradigm_log", sessLog.ParadigmPath).
		Msg("starting session")

	if cfg.TWChartAddr != "" {
		s.chart = twchart.NewClient(cfg.TWChartAddr)
	}

	s.Timeline, err = loadTimeline(cfg.Paradigm)
	if err != nil {
		_ = s.closeLog()
		return nil, fmt.Errorf("%w: %w", ErrSetup, err)
	}

	s.Trigger, err = trigger.New(cfg.Trigger, fe.Keys)
	if err != nil {
		_ = s.closeLog()
		return nil, fmt.Errorf("%w: %w", ErrSetup, err)
	}

	if !cfg.Actuator.Enabled {
		s.logger.Info().Msg("actuator disabled, running without motion")
		return s, nil
	}

	err = s.connectActuator(ctx, cfg.Actuator.Config)
	if err != nil {
		s.Display.ShowMessage("Actuator not connected\n" + err.Error())
		_ = s.closeLog()
		return nil, fmt.Errorf("%w: %w", ErrSetup, err)
	}

	return s, nil
}

func (s *Session) connectActuator(ctx context.Context, cfg zaber.Config) error {
	device, err := zaber.Open(ctx, cfg)
	if err != nil {
		s.logger.Error().Err(err).Str("port", cfg.Port).Msg("error connecting to actuator")
		return fmt.Errorf("error connecting to actuator: %w", err)
	}

	conv := device.Converter()
	s.Actuator = device
	s.Converter = &conv
	s.logger.Info().
		Int32("device_id", device.ID()).
		Float64("microstep_size_um", conv.MicrostepSizeUM()).
		Msg("connected to actuator")
	return nil
}

func loadTimeline(path string) (paradigm.Timeline, error) {
	if path == "" {
		return paradigm.Default(paradigm.DefaultTimings), nil
	}
	return paradigm.LoadFile(path)
}

// Run compiles the timeline, waits for the scanner trigger and runs every phase. Teardown always
// happens, in order, whatever stage failed. An operator abort is not an error
func (s *Session) Run(ctx context.Context) (Result, error) {
	s.init()

	result, err := s.run(ctx)
	s.teardown(ctx, result, err)
	return result, err
}

func (s *Session) init() {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Clock == nil {
		s.Clock = NewClock()
	}
	if s.Abort == nil {
		s.Abort = noAbort{}
	}
	if s.Log == nil {
		s.Log = noopParadigmLog{}
	}
	if s.chart == nil {
		s.chart = noopTWChartClient{}
	}
	s.logger = log.WithComponent("session").With().Str("session_id", s.ID).Logger()
}

func (s *Session) run(ctx context.Context) (Result, error) {
	compiled, err := paradigm.Compile(s.Timeline, s.Converter)
	if err != nil {
		s.Display.ShowMessage("Invalid paradigm\n" + err.Error())
		return Result{Outcome: OutcomeFailed}, fmt.Errorf("%w: %w", ErrSetup, err)
	}
	s.logger.Info().
		Int("phases", len(compiled)).
		Float64("duration", compiled.TotalDuration()).
		Float64("net_distance_mm", compiled.NetDistanceMM()).
		Bool("degraded", s.Actuator == nil).
		Msg("compiled paradigm")

	_, err = s.chart.CreateSession(ctx, s.Name)
	if err != nil {
		s.logger.Warn().Err(err).Msg("error creating TWChart session")
	}

	err = s.Trigger.Open()
	if err != nil {
		s.Display.ShowMessage("Trigger not available\n" + err.Error())
		return Result{Outcome: OutcomeFailed}, fmt.Errorf("%w: %w", ErrSetup, err)
	}

	status := "Actuator connected"
	if s.Actuator == nil {
		status = "No actuator, running without motion"
	}
	s.Display.ShowMessage(status + "\nWaiting for scanner...")

	offset, aborted, err := s.waitForTrigger(ctx)
	if aborted {
		s.logger.Warn().Msg("aborted while waiting for scanner trigger")
		return Result{Outcome: OutcomeAborted}, nil
	}
	if err != nil {
		return Result{Outcome: OutcomeFailed}, fmt.Errorf("%w: %w", ErrTrigger, err)
	}

	err = s.Log.Trigger(offset)
	if err != nil {
		s.logger.Error().Err(err).Msg("error writing trigger to paradigm log")
	}
	err = s.chart.SetStartTime(ctx, time.Now())
	if err != nil {
		s.logger.Warn().Err(err).Msg("error setting TWChart start time")
	}

	runner := &Runner{
		Actuator:      s.Actuator,
		Clock:         s.Clock,
		Abort:         s.Abort,
		Display:       s.Display,
		Log:           s.Log,
		FrameInterval: s.FrameInterval,
		chart:         s.chart,
	}
	return runner.Run(ctx, compiled, offset)
}

// waitForTrigger waits for the scanner trigger until the operator aborts or ctx is done. An abort
// requested before the wait started also counts, so no phase is entered after it
func (s *Session) waitForTrigger(ctx context.Context) (float64, bool, error) {
	if s.Abort.AbortRequested() {
		return 0, true, nil
	}

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		abort atomic.Bool
		wg    sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()

		ticker := time.NewTicker(abortPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-waitCtx.Done():
				return
			case <-ticker.C:
			}

			if s.Abort.AbortRequested() {
				abort.Store(true)
				cancel()
				return
			}
		}
	}()

	offset, err := trigger.WaitForTrigger(waitCtx, s.Trigger, s.SkipScans, s.Clock.Now, s.TriggerTimeout)

	// the poller must be done before the runner reads the abort input
	cancel()
	wg.Wait()

	if abort.Load() || (err != nil && ctx.Err() != nil) {
		return 0, true, nil
	}
	return offset, false, err
}

func (s *Session) teardown(ctx context.Context, result Result, runErr error) {
	ctx = context.WithoutCancel(ctx)

	if s.Actuator != nil {
		err := s.Actuator.Close()
		if err != nil {
			s.logger.Error().Err(err).Msg("error closing actuator")
		}
	}

	if s.Trigger != nil {
		err := s.Trigger.Close()
		if err != nil {
			s.logger.Error().Err(err).Msg("error closing trigger")
		}
	}

	s.Display.ShowMessage(endMessage(result, runErr))
	s.Display.Refresh()

	err := s.chart.Done(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("error finishing TWChart session")
	}

	metrics.ObserveSession(result.Outcome.String())

	event := s.logger.Info()
	if runErr != nil {
		event = s.logger.Error().Err(runErr)
	}
	event.Stringer("outcome", result.Outcome).
		Int("phases_started", result.PhasesStarted).
		Msg("session finished")

	if s.summaryPath != "" {
		s.writeSummary(result, runErr)
	}

	if s.closeLog != nil {
		err = s.closeLog()
		if err != nil {
			s.logger.Error().Err(err).Msg("error closing session log")
		}
	}
}

func (s *Session) writeSummary(result Result, runErr error) {
	summary := s.summary
	summary.ID = s.ID
	summary.Finished = time.Now()
	summary.Outcome = result.Outcome.String()
	summary.PhasesStarted = result.PhasesStarted
	summary.AbortedPhase = result.AbortedPhase
	summary.Degraded = s.Actuator == nil
	if runErr != nil {
		summary.Error = runErr.Error()
	}

	err := sessionlog.WriteSummary(s.summaryPath, summary)
	if err != nil {
		s.logger.Error().Err(err).Msg("error writing session summary")
	}
}

func endMessage(result Result, err error) string {
	switch {
	case err != nil:
		msg := err.Error()
		if errors.Is(err, ErrSetup) {
			msg = strings.TrimPrefix(msg, ErrSetup.Error()+": ")
		}
		return "Session failed\n" + msg
	case result.Outcome == OutcomeAborted:
		return "Experiment aborted"
	default:
		return "Experiment finished"
	}
}
