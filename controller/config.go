package controller

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/calvinmclean/uromri/trigger"
	"github.com/calvinmclean/uromri/zaber"
	"gopkg.in/yaml.v3"
)

const defaultFrameInterval = 10 * time.Millisecond

// ActuatorConfig selects whether the syringe pump is driven and how to reach it
type ActuatorConfig struct {
	// Enabled false runs the paradigm without a device, only timing and display
	Enabled bool `yaml:"enabled"`

	zaber.Config `yaml:",inline"`
}

// Config has everything needed to run one session
type Config struct {
	SubjectID string `yaml:"subject_id"`
	SessionID string `yaml:"session_id"`
	LogDir    string `yaml:"log_dir"`
	LogLevel  string `yaml:"log_level"`
	// Paradigm is a YAML or CSV timeline file. Empty uses the default paradigm
	Paradigm      string        `yaml:"paradigm"`
	FrameInterval time.Duration `yaml:"frame_interval"`
	EnableUI      bool          `yaml:"enable_ui"`
	// TWChartAddr enables reporting the session to a TWChart server
	TWChartAddr string `yaml:"twchart_addr"`

	Trigger  trigger.Config `yaml:"trigger"`
	Actuator ActuatorConfig `yaml:"actuator"`
}

// DefaultConfig runs with a keyboard trigger and the actuator on the first serial port it is configured for
func DefaultConfig() Config {
	return Config{
		SubjectID:     "01",
		SessionID:     "01",
		LogDir:        "logs",
		LogLevel:      "info",
		FrameInterval: defaultFrameInterval,
		Trigger: trigger.Config{
			Type: trigger.TypeKeyboard,
			Key:  "t",
		},
		Actuator: ActuatorConfig{
			Enabled: true,
			Config: zaber.Config{
				BaudRate:     zaber.DefaultBaudRate,
				DeviceNumber: 1,
				Mechanics:    zaber.DefaultMechanics,
			},
		},
	}
}

// LoadConfig reads a YAML config on top of DefaultConfig. Unknown fields are an error
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	err := dec.Decode(&cfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("error decoding config: %w", err)
	}
	return cfg, nil
}

// LoadConfigFile reads the config from path
func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("error opening config: %w", err)
	}
	defer f.Close()

	return LoadConfig(f)
}

// ApplyEnv overrides cfg with the URO_* environment variables that are set
func (c *Config) ApplyEnv(getenv func(string) string) error {
	setString := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	setString("URO_SUBJECT_ID", &c.SubjectID)
	setString("URO_SESSION_ID", &c.SessionID)
	setString("URO_LOG_DIR", &c.LogDir)
	setString("URO_LOG_LEVEL", &c.LogLevel)
	setString("URO_PARADIGM", &c.Paradigm)
	setString("URO_TWCHART_ADDR", &c.TWChartAddr)
	setString("URO_TRIGGER_PORT", &c.Trigger.Port)
	setString("URO_ACTUATOR_PORT", &c.Actuator.Port)

	if v := getenv("URO_TRIGGER_TYPE"); v != "" {
		c.Trigger.Type = trigger.Type(strings.ToLower(v))
	}

	if v := getenv("ENABLE_UI"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid ENABLE_UI: %w", err)
		}
		c.EnableUI = enabled
	}

	if v := getenv("URO_ACTUATOR_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid URO_ACTUATOR_ENABLED: %w", err)
		}
		c.Actuator.Enabled = enabled
	}

	if v := getenv("URO_SKIP_SCANS"); v != "" {
		skip, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid URO_SKIP_SCANS: %w", err)
		}
		c.Trigger.SkipScans = skip
	}

	return nil
}

// Validate checks the config before a session is created
func (c Config) Validate() error {
	if strings.TrimSpace(c.SubjectID) == "" {
		return errors.New("missing subject id")
	}
	if strings.TrimSpace(c.SessionID) == "" {
		return errors.New("missing session id")
	}
	if c.LogDir == "" {
		return errors.New("missing log directory")
	}
	if c.FrameInterval < 0 {
		return fmt.Errorf("invalid frame interval: %s", c.FrameInterval)
	}

	err := c.Trigger.Validate()
	if err != nil {
		return fmt.Errorf("invalid trigger config: %w", err)
	}

	if c.Actuator.Enabled {
		m := c.Actuator.Mechanics
		if m.LinearMotionPerRevMM <= 0 || m.StepsPerRev <= 0 || m.MaxSpeedMMPerS < 0 {
			return fmt.Errorf("invalid actuator mechanics: %+v", m)
		}
	}
	return nil
}
