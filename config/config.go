// Package config loads the daemon configuration: endpoint names, run
// parameters, and process settings, from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/beamkit/go-scan/logger"
)

// DefaultWaveformLength is the element capacity of the result waveforms.
const DefaultWaveformLength = 256

// Duration is a time.Duration that unmarshals from YAML strings like "5s"
// as well as integer nanosecond counts.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case int:
		*d = Duration(v)
	case int64:
		*d = Duration(v)
	case float64:
		*d = Duration(v)
	default:
		return fmt.Errorf("cannot parse %v as duration", raw)
	}

	return nil
}

// Records names the six endpoints the orchestrator drives. Names are
// relative to Prefix.
type Records struct {
	Busy     string `yaml:"busy"`
	Motor    string `yaml:"motor"`
	Calc     string `yaml:"calc"`
	TimeSink string `yaml:"t_array"`
	PosSink  string `yaml:"x_array"`
	ValSink  string `yaml:"y_array"`
}

// Scan holds the run parameters.
type Scan struct {
	Origin      float64  `yaml:"origin"`
	StepSize    float64  `yaml:"step_size"`
	NumSteps    int      `yaml:"num_steps"`
	MoveTimeout Duration `yaml:"move_timeout"`
}

// Config is the daemon configuration.
type Config struct {
	// Prefix is prepended to every record name.
	Prefix string `yaml:"prefix"`

	Records Records `yaml:"records"`
	Scan    Scan    `yaml:"scan"`

	// WaveformLength is the element capacity of the result waveforms.
	WaveformLength int `yaml:"waveform_length"`

	// MetricsAddr is the listen address of the prometheus endpoint.
	// Empty disables it.
	MetricsAddr string `yaml:"metrics_addr"`

	// AutoTrigger, when positive, makes the daemon raise the busy flag at
	// this interval, standing in for an external operator.
	AutoTrigger Duration `yaml:"auto_trigger"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Load reads and validates the configuration at path. A missing path yields
// the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyDefaults fills unset fields with the classic demonstration values.
func (c *Config) ApplyDefaults() {
	if c.Prefix == "" {
		c.Prefix = "prj:"
	}
	if c.Records.Busy == "" {
		c.Records.Busy = "mybusy"
	}
	if c.Records.Motor == "" {
		c.Records.Motor = "m1"
	}
	if c.Records.Calc == "" {
		c.Records.Calc = "userCalc1"
	}
	if c.Records.TimeSink == "" {
		c.Records.TimeSink = "t_array"
	}
	if c.Records.PosSink == "" {
		c.Records.PosSink = "x_array"
	}
	if c.Records.ValSink == "" {
		c.Records.ValSink = "y_array"
	}
	if c.Scan.NumSteps == 0 {
		c.Scan.NumSteps = 5
	}
	if c.Scan.StepSize == 0 {
		c.Scan.StepSize = 2.1
	}
	if c.Scan.Origin == 0 {
		c.Scan.Origin = -1.23456
	}
	if c.Scan.MoveTimeout == 0 {
		c.Scan.MoveTimeout = Duration(30 * time.Second)
	}
	if c.WaveformLength == 0 {
		c.WaveformLength = DefaultWaveformLength
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Scan.NumSteps < 1 {
		return fmt.Errorf("scan.num_steps must be at least 1, got %d", c.Scan.NumSteps)
	}
	if c.WaveformLength < 1 {
		return fmt.Errorf("waveform_length must be at least 1, got %d", c.WaveformLength)
	}
	if c.Scan.NumSteps > c.WaveformLength {
		return fmt.Errorf("scan.num_steps %d exceeds waveform_length %d", c.Scan.NumSteps, c.WaveformLength)
	}
	if c.Scan.MoveTimeout < 0 {
		return errors.New("scan.move_timeout must not be negative")
	}
	if c.AutoTrigger < 0 {
		return errors.New("auto_trigger must not be negative")
	}
	if _, err := c.Level(); err != nil {
		return err
	}

	return nil
}

// PV returns the full name of a record: the prefix plus its relative name.
func (c *Config) PV(record string) string {
	return c.Prefix + record
}

// Level translates LogLevel into a logger level.
func (c *Config) Level() (logger.Level, error) {
	switch c.LogLevel {
	case "debug":
		return logger.DebugLevel, nil
	case "info":
		return logger.InfoLevel, nil
	case "warn":
		return logger.WarnLevel, nil
	case "error":
		return logger.ErrorLevel, nil
	default:
		return 0, fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
}
