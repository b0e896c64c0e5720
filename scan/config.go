package scan

import (
	"fmt"
	"time"

	"github.com/beamkit/go-scan/logger"
)

// Default run parameters, matching the classic busy-record demonstration.
const (
	// DefaultNumSteps is the default number of scan steps per run.
	DefaultNumSteps = 5
	// DefaultStepSize is the default motor step size per scan step.
	DefaultStepSize = 2.1
	// DefaultOrigin is the default motor position at the start of a run.
	DefaultOrigin = -1.23456
	// DefaultMoveTimeout bounds a single blocking motor move.
	DefaultMoveTimeout = 30 * time.Second
	// DefaultCalcExpression is written to the calc record's expression field
	// at construction, making the sampled signal randomized.
	DefaultCalcExpression = "RNDM"
)

// Config holds the run parameters of an Orchestrator. The parameters are
// fixed at construction and immutable afterwards.
type Config struct {
	// numSteps is the requested number of steps per run. The effective step
	// count is additionally bounded by the capacity of the waveform sinks.
	numSteps int

	// stepSize is the motor position increment between steps.
	stepSize float64

	// origin is the motor position of step 0. Each run starts by moving there.
	origin float64

	// moveTimeout bounds each blocking motor move.
	moveTimeout time.Duration

	// calcExpr is the expression written to the calc record's expression
	// field at construction when one is connected. Defaults to a randomized
	// signal.
	calcExpr string

	// logger used by the orchestrator.
	logger logger.Logger
}

func newConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		numSteps:    DefaultNumSteps,
		stepSize:    DefaultStepSize,
		origin:      DefaultOrigin,
		moveTimeout: DefaultMoveTimeout,
		calcExpr:    DefaultCalcExpression,
		logger:      logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Option customizes an Orchestrator's Config.
type Option func(*Config) error

// WithNumSteps sets the number of scan steps per run.
//
// The effective step count is bounded by the element capacity of the
// waveform sinks. An error is returned if n is less than 1.
//
// The default is 5.
func WithNumSteps(n int) Option {
	return func(cfg *Config) error {
		if n < 1 {
			return fmt.Errorf("num steps must be at least 1, got %d", n)
		}
		cfg.numSteps = n

		return nil
	}
}

// WithStepSize sets the motor position increment between steps.
//
// The default is 2.1.
func WithStepSize(size float64) Option {
	return func(cfg *Config) error {
		cfg.stepSize = size

		return nil
	}
}

// WithOrigin sets the motor position of step 0.
//
// The default is -1.23456.
func WithOrigin(origin float64) Option {
	return func(cfg *Config) error {
		cfg.origin = origin

		return nil
	}
}

// WithMoveTimeout bounds each blocking motor move.
// An error is returned if the timeout is not positive.
//
// The default is 30 seconds.
func WithMoveTimeout(timeout time.Duration) Option {
	return func(cfg *Config) error {
		if timeout <= 0 {
			return fmt.Errorf("move timeout must be positive, got %v", timeout)
		}
		cfg.moveTimeout = timeout

		return nil
	}
}

// WithCalcExpression sets the expression written to the calc record's
// expression field at construction, when an expression endpoint is connected.
//
// The default is the randomized expression.
func WithCalcExpression(expr string) Option {
	return func(cfg *Config) error {
		if expr == "" {
			return fmt.Errorf("calc expression must not be empty")
		}
		cfg.calcExpr = expr

		return nil
	}
}

// WithLogger sets the logger used by the orchestrator.
func WithLogger(l logger.Logger) Option {
	return func(cfg *Config) error {
		if l == nil {
			return fmt.Errorf("logger is nil")
		}
		cfg.logger = l

		return nil
	}
}
