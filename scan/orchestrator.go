package scan

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/beamkit/go-scan/logger"
	"github.com/beamkit/go-scan/pv"
)

// BusySet is the busy-flag value that initiates a run. Any other value
// observed mid-run interrupts it.
const BusySet = 1.0

// Endpoints holds the six external endpoint handles an Orchestrator drives.
type Endpoints struct {
	// Busy is the trigger flag. The external actor writes 1 to start a run;
	// the orchestrator writes 0 back when the run ends.
	Busy pv.PV

	// Motor is the scanned actuator, the independent variable.
	Motor pv.MotorPV

	// Calc is the computed signal source, the dependent variable.
	Calc pv.PV

	// CalcProc requests one recompute of Calc when written nonzero.
	CalcProc pv.PV

	// CalcExpr is the calc record's expression field. Optional; when nil the
	// signal source is left configured as-is.
	CalcExpr pv.TextPV

	// TimeSink, PositionSink, and ValueSink receive the accumulated sample
	// arrays after every step.
	TimeSink     pv.ArrayPV
	PositionSink pv.ArrayPV
	ValueSink    pv.ArrayPV
}

func (ep *Endpoints) validate() error {
	switch {
	case ep.Busy == nil:
		return fmt.Errorf("%w: busy", ErrNilEndpoint)
	case ep.Motor == nil:
		return fmt.Errorf("%w: motor", ErrNilEndpoint)
	case ep.Calc == nil:
		return fmt.Errorf("%w: calc", ErrNilEndpoint)
	case ep.CalcProc == nil:
		return fmt.Errorf("%w: calc proc", ErrNilEndpoint)
	case ep.TimeSink == nil:
		return fmt.Errorf("%w: time sink", ErrNilEndpoint)
	case ep.PositionSink == nil:
		return fmt.Errorf("%w: position sink", ErrNilEndpoint)
	case ep.ValueSink == nil:
		return fmt.Errorf("%w: value sink", ErrNilEndpoint)
	}

	return nil
}

// RunResult describes one finished run.
type RunResult struct {
	// Start and End bound the run's execution.
	Start time.Time
	End   time.Time

	// Samples is the number of samples recorded.
	Samples int

	// Interrupted reports whether the run was halted by the busy flag
	// leaving 1 before all steps completed.
	Interrupted bool

	// Err is the endpoint error that aborted the run, nil otherwise.
	// An interruption is not an error.
	Err error
}

// RunHandler is invoked after every run, whether it completed, was
// interrupted, or failed.
//
// Handlers run on the orchestrator's supervisor goroutine or on the
// goroutine that called Run directly.
type RunHandler func(result RunResult)

// Orchestrator owns the busy-record scan workflow for one set of endpoints.
//
// At most one run is active at a time, enforced by a single atomic
// test-and-set at run entry. Trigger notifications are decoupled from run
// execution by a trigger channel consumed by a supervisor goroutine, so
// the network's notification delivery never blocks on a run.
type Orchestrator struct {
	cfg     *Config
	ep      Endpoints
	logger  logger.Logger
	metrics Metrics

	// numSteps is the effective step count: the configured count bounded by
	// the sink capacities.
	numSteps int

	processing atomic.Bool
	closed     atomic.Bool

	triggerCh chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	cbMu      sync.Mutex
	cbID      pv.CallbackID
	monitored bool

	handlerMu   sync.RWMutex
	runHandlers []RunHandler
}

// NewOrchestrator creates an Orchestrator for the given endpoints, configures
// the signal source's expression (when an expression endpoint is connected),
// requests one immediate recompute, and starts the run supervisor.
//
// Call Close to stop the supervisor and release the busy subscription.
func NewOrchestrator(ep Endpoints, opts ...Option) (*Orchestrator, error) {
	if err := ep.validate(); err != nil {
		return nil, err
	}

	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		cfg:       cfg,
		ep:        ep,
		logger:    cfg.logger,
		numSteps:  effectiveSteps(cfg.numSteps, ep),
		triggerCh: make(chan struct{}, 1),
	}
	o.ctx, o.cancel = context.WithCancel(context.Background())

	ctx, cancel := context.WithTimeout(o.ctx, cfg.moveTimeout)
	defer cancel()

	if ep.CalcExpr != nil {
		if err := ep.CalcExpr.PutText(ctx, cfg.calcExpr); err != nil {
			return nil, fmt.Errorf("configure signal expression: %w", err)
		}
	}
	if err := ep.CalcProc.Put(ctx, 1); err != nil {
		return nil, fmt.Errorf("request initial recompute: %w", err)
	}

	o.wg.Add(1)
	go o.superviseTask()

	return o, nil
}

// effectiveSteps bounds the requested step count by the sink capacities.
func effectiveSteps(requested int, ep Endpoints) int {
	steps := requested
	for _, sink := range []pv.ArrayPV{ep.TimeSink, ep.PositionSink, ep.ValueSink} {
		if c := sink.Capacity(); c < steps {
			steps = c
		}
	}

	return steps
}

// Monitor registers the busy-flag subscription that triggers runs.
// It is idempotent; a second call while already subscribed is a no-op.
func (o *Orchestrator) Monitor() error {
	if o.closed.Load() {
		return ErrClosed
	}

	o.cbMu.Lock()
	defer o.cbMu.Unlock()

	if o.monitored {
		return nil
	}

	id, err := o.ep.Busy.Monitor(o.busyUpdate)
	if err != nil {
		return fmt.Errorf("monitor busy flag: %w", err)
	}
	o.cbID = id
	o.monitored = true

	return nil
}

// Unmonitor removes the busy-flag subscription if one exists.
// It is idempotent.
func (o *Orchestrator) Unmonitor() error {
	o.cbMu.Lock()
	defer o.cbMu.Unlock()

	if !o.monitored {
		return nil
	}

	if err := o.ep.Busy.Unmonitor(o.cbID); err != nil {
		return fmt.Errorf("unmonitor busy flag: %w", err)
	}
	o.monitored = false

	return nil
}

// AddRunHandler adds one or more RunHandler functions to be invoked after
// every run.
func (o *Orchestrator) AddRunHandler(handlers ...RunHandler) {
	o.handlerMu.Lock()
	defer o.handlerMu.Unlock()

	o.runHandlers = append(o.runHandlers, handlers...)
}

// Metrics returns the orchestrator's counter set.
func (o *Orchestrator) Metrics() *Metrics {
	return &o.metrics
}

// NumSteps returns the effective number of steps per run.
func (o *Orchestrator) NumSteps() int {
	return o.numSteps
}

// Processing reports whether a run is currently in progress.
func (o *Orchestrator) Processing() bool {
	return o.processing.Load()
}

// Close removes the busy subscription, stops the supervisor, and waits for a
// run in flight to finish its pending endpoint call.
func (o *Orchestrator) Close() {
	if !o.closed.CompareAndSwap(false, true) {
		return
	}

	_ = o.Unmonitor()
	o.cancel()
	o.wg.Wait()
}

// busyUpdate handles a busy-flag value change. It decides whether to request
// a run and returns immediately; it never blocks.
func (o *Orchestrator) busyUpdate(_ pv.PV, value float64) {
	if value != BusySet {
		return
	}

	if o.processing.Load() {
		o.metrics.incRunReject()
		o.logger.Warn("trigger rejected, run already in progress")
		return
	}

	select {
	case o.triggerCh <- struct{}{}:
		o.logger.Info("trigger accepted, run requested")
	default:
		o.metrics.incRunReject()
		o.logger.Warn("trigger rejected, run already requested")
	}
}

// superviseTask consumes trigger requests and executes runs serially.
func (o *Orchestrator) superviseTask() {
	defer o.wg.Done()
	defer o.logger.Debug("run supervisor terminated")

	for {
		select {
		case <-o.ctx.Done():
			return
		case <-o.triggerCh:
			if err := o.Run(o.ctx); err != nil {
				o.logger.Error("run aborted", "error", err)
			}
		}
	}
}

// Run executes one scan run. It returns ErrRunActive without side effects if
// a run is already in progress.
//
// A run moves the motor to the origin, then performs up to NumSteps steps:
// re-check the busy flag (interrupt when it is no longer 1), move, recompute
// and sample the signal, record (time, position, value), and publish the
// accumulated arrays to the sinks. The busy flag is written 0 exactly once on
// the way out, regardless of how the run ended.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.processing.CompareAndSwap(false, true) {
		o.metrics.incRunReject()
		return ErrRunActive
	}
	defer o.processing.Store(false)

	o.metrics.incRunStart()
	o.logger.Info("run start", "origin", o.cfg.origin, "stepSize", o.cfg.stepSize, "numSteps", o.numSteps)

	result := RunResult{Start: time.Now()}
	result.Err = o.runSteps(ctx, &result)
	result.End = time.Now()

	// Signal completion to the external actor even when the run was canceled
	// or failed; this is the other half of the busy-record handshake.
	clearCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.moveTimeout)
	defer cancel()
	if err := o.ep.Busy.Put(clearCtx, 0); err != nil {
		o.logger.Error("failed to clear busy flag", "error", err)
		if result.Err == nil {
			result.Err = fmt.Errorf("clear busy flag: %w", err)
		}
	}

	switch {
	case result.Err != nil:
		o.metrics.incRunFail()
	case result.Interrupted:
		// interrupt counter already bumped at the step boundary
	default:
		o.metrics.incRunComplete()
	}
	o.logger.Info("run complete",
		"samples", result.Samples,
		"interrupted", result.Interrupted,
		"duration", result.End.Sub(result.Start),
	)

	// clear the guard before notifying so a trigger raised in response to
	// the result is accepted immediately
	o.processing.Store(false)
	o.invokeRunHandlers(result)

	return result.Err
}

// runSteps performs the bounded step sequence of one run.
func (o *Orchestrator) runSteps(ctx context.Context, result *RunResult) error {
	if err := o.move(ctx, o.cfg.origin); err != nil {
		return fmt.Errorf("move to origin: %w", err)
	}

	times := make([]float64, 0, o.numSteps)
	positions := make([]float64, 0, o.numSteps)
	values := make([]float64, 0, o.numSteps)

	for step := 0; step < o.numSteps; step++ {
		busyVal, err := o.ep.Busy.Get(ctx)
		if err != nil {
			return fmt.Errorf("read busy flag: %w", err)
		}
		if busyVal != BusySet {
			result.Interrupted = true
			o.metrics.incRunInterrupt()
			o.logger.Info("run interrupted", "step", step, "busy", busyVal)
			break
		}

		target := o.cfg.origin + float64(step)*o.cfg.stepSize
		if err := o.move(ctx, target); err != nil {
			return fmt.Errorf("move to step %d: %w", step, err)
		}

		if err := o.ep.CalcProc.Put(ctx, 1); err != nil {
			return fmt.Errorf("request recompute: %w", err)
		}
		// The recompute above and the read below are not atomic; a backend
		// that has not settled yet yields the previous value.
		value, err := o.ep.Calc.Get(ctx)
		if err != nil {
			return fmt.Errorf("read signal: %w", err)
		}

		position, err := o.ep.Motor.Readback(ctx)
		if err != nil {
			return fmt.Errorf("read motor position: %w", err)
		}

		now := timeSeconds(time.Now())
		times = append(times, now)
		positions = append(positions, position)
		values = append(values, value)
		result.Samples++
		o.metrics.incSample()
		o.logger.Info("sample", "step", step, "t", now, "position", position, "value", value)

		if err := o.publish(ctx, times, positions, values); err != nil {
			return fmt.Errorf("publish step %d: %w", step, err)
		}
	}

	return nil
}

// move commands the motor to target and blocks until settled, bounded by the
// configured move timeout.
func (o *Orchestrator) move(ctx context.Context, target float64) error {
	mctx, cancel := context.WithTimeout(ctx, o.cfg.moveTimeout)
	defer cancel()

	return o.ep.Motor.Move(mctx, target)
}

// publish overwrites the three sinks with the full accumulated sequences.
func (o *Orchestrator) publish(ctx context.Context, times, positions, values []float64) error {
	if err := o.ep.TimeSink.PutArray(ctx, times); err != nil {
		return fmt.Errorf("time sink: %w", err)
	}
	if err := o.ep.PositionSink.PutArray(ctx, positions); err != nil {
		return fmt.Errorf("position sink: %w", err)
	}
	if err := o.ep.ValueSink.PutArray(ctx, values); err != nil {
		return fmt.Errorf("value sink: %w", err)
	}

	return nil
}

func (o *Orchestrator) invokeRunHandlers(result RunResult) {
	o.handlerMu.RLock()
	handlers := make([]RunHandler, len(o.runHandlers))
	copy(handlers, o.runHandlers)
	o.handlerMu.RUnlock()

	for _, handler := range handlers {
		if handler != nil {
			o.invokeRunHandler(handler, result)
		}
	}
}

// invokeRunHandler calls a run handler with panic protection so a faulty
// subscriber cannot kill the supervisor goroutine.
func (o *Orchestrator) invokeRunHandler(handler RunHandler, result RunResult) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("panic in run handler", "panic", r)
		}
	}()

	handler(result)
}

// timeSeconds converts t to seconds since the Unix epoch.
func timeSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
