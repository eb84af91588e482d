package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/calvinmclean/uromri/console"
	"github.com/calvinmclean/uromri/controller"
	"github.com/calvinmclean/uromri/log"
	"github.com/calvinmclean/uromri/status"
	"github.com/calvinmclean/uromri/trigger"
	"github.com/calvinmclean/uromri/ui"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type runFlags struct {
	configPath   string
	subjectID    string
	sessionID    string
	paradigm     string
	triggerType  string
	triggerPort  string
	skipScans    int
	actuatorPort string
	noActuator   bool
	enableUI     bool
	statusAddr   string
	twchartAddr  string
	logLevel     string
}

func newRunCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a session",
		Long: "Run a session. The config file is read first, then URO_* environment variables, then flags.\n" +
			"Press Escape (or q in the terminal) to abort.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.config(cmd)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, flags.statusAddr)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.configPath, "config", "c", "", "YAML config file")
	f.StringVar(&flags.subjectID, "subject", "", "subject ID")
	f.StringVar(&flags.sessionID, "session", "", "session ID")
	f.StringVarP(&flags.paradigm, "paradigm", "p", "", "paradigm file (.yaml or .csv), default paradigm if empty")
	f.StringVar(&flags.triggerType, "trigger", "", "trigger type: keyboard, serial or dummy")
	f.StringVar(&flags.triggerPort, "trigger-port", "", "serial port of the trigger box")
	f.IntVar(&flags.skipScans, "skip-scans", 0, "number of dummy scans to skip")
	f.StringVar(&flags.actuatorPort, "actuator-port", "", "serial port of the Zaber actuator")
	f.BoolVar(&flags.noActuator, "no-actuator", false, "run without the actuator")
	f.BoolVar(&flags.enableUI, "ui", false, "show the dashboard window")
	f.StringVar(&flags.statusAddr, "status-addr", "", "serve /status and /metrics on this address")
	f.StringVar(&flags.twchartAddr, "twchart-addr", "", "TWChart server to report the session to")
	f.StringVar(&flags.logLevel, "log-level", "", "log level")

	return cmd
}

func (f runFlags) config(cmd *cobra.Command) (controller.Config, error) {
	cfg := controller.DefaultConfig()
	if f.configPath != "" {
		var err error
		cfg, err = controller.LoadConfigFile(f.configPath)
		if err != nil {
			return controller.Config{}, err
		}
	}

	err := cfg.ApplyEnv(os.Getenv)
	if err != nil {
		return controller.Config{}, err
	}

	changed := cmd.Flags().Changed
	setString := func(name, value string, dst *string) {
		if changed(name) {
			*dst = value
		}
	}
	setString("subject", f.subjectID, &cfg.SubjectID)
	setString("session", f.sessionID, &cfg.SessionID)
	setString("paradigm", f.paradigm, &cfg.Paradigm)
	setString("trigger-port", f.triggerPort, &cfg.Trigger.Port)
	setString("actuator-port", f.actuatorPort, &cfg.Actuator.Port)
	setString("twchart-addr", f.twchartAddr, &cfg.TWChartAddr)
	setString("log-level", f.logLevel, &cfg.LogLevel)

	if changed("trigger") {
		cfg.Trigger.Type = trigger.Type(f.triggerType)
	}
	if changed("skip-scans") {
		cfg.Trigger.SkipScans = f.skipScans
	}
	if changed("no-actuator") {
		cfg.Actuator.Enabled = !f.noActuator
	}
	if changed("ui") {
		cfg.EnableUI = f.enableUI
	}

	return cfg, cfg.Validate()
}

func run(ctx context.Context, cfg controller.Config, statusAddr string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Configure(log.Config{Level: cfg.LogLevel})
	logger := log.WithComponent("main")

	board := status.NewBoard()

	serveCtx, stopServing := context.WithCancel(ctx)
	defer stopServing()
	sessionCtx, cancelSession := context.WithCancel(ctx)
	defer cancelSession()

	var g errgroup.Group
	if statusAddr != "" {
		g.Go(func() error {
			err := status.Serve(serveCtx, statusAddr, status.Handler(board))
			if err != nil {
				logger.Error().Err(err).Msg("status server stopped")
			}
			return nil
		})
	}

	var (
		fe     controller.Frontend
		finish func()
		runUI  func()
	)

	if cfg.EnableUI {
		dashboard := ui.NewDashboard("URO-MRI")
		fe = controller.Frontend{
			Display: controller.MultiDisplay(dashboard, board),
			Abort:   dashboard,
			Keys:    dashboard.Chan(),
		}
		finish = dashboard.Finish
		runUI = func() {
			// the window stays open after the session so the operator can read the result
			dashboard.Run(ctx)
			cancelSession()
		}
	} else {
		restore, err := console.MakeRaw(int(os.Stdin.Fd()))
		if err != nil {
			return err
		}
		defer func() {
			_ = restore()
		}()

		keys := console.ReadKeys(os.Stdin)
		fe = controller.Frontend{
			Display: controller.MultiDisplay(console.NewDisplay(os.Stdout, isatty.IsTerminal(os.Stdout.Fd())), board),
			Abort:   keys,
			Keys:    keys.Chan(),
		}
		finish = func() {}
	}

	var (
		session *controller.Session
		result  controller.Result
		runErr  error
	)
	// the session is created after the UI starts, since showing anything blocks until it runs
	g.Go(func() error {
		defer func() {
			finish()
			if runUI == nil {
				stopServing()
			}
		}()

		session, runErr = controller.NewFromConfig(sessionCtx, cfg, fe)
		if runErr != nil {
			fe.Display.ShowMessage("Session failed\n" + runErr.Error())
			return nil
		}
		result, runErr = session.Run(sessionCtx)
		return nil
	})

	if runUI != nil {
		runUI()
		stopServing()
	}

	_ = g.Wait()

	if runErr != nil {
		return runErr
	}
	fmt.Printf("session %s %s after %d phases\n", session.ID, result.Outcome, result.PhasesStarted)
	return nil
}
