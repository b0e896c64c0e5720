// busyscand runs the busy-record scan orchestrator against an in-process
// soft network.
//
// An external actor (or the --auto-trigger loop) raises the busy flag to
// start a scan; the daemon steps the motor, samples the calc signal, and
// publishes the result waveforms. The process ends on SIGINT/SIGTERM or when
// the calc signal is driven to 0.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/beamkit/go-scan/config"
	"github.com/beamkit/go-scan/logger"
	"github.com/beamkit/go-scan/memnet"
	"github.com/beamkit/go-scan/pv"
	"github.com/beamkit/go-scan/scan"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		logger.Error("daemon failed", "error", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string
	var autoTrigger time.Duration
	var debug bool

	cmd := &cobra.Command{
		Use:   "busyscand",
		Short: "Busy-record scan orchestration daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if autoTrigger > 0 {
				cfg.AutoTrigger = config.Duration(autoTrigger)
			}

			level, err := cfg.Level()
			if err != nil {
				return err
			}
			if debug {
				level = logger.DebugLevel
			}
			logger.SetLevel(level)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to YAML configuration")
	cmd.Flags().DurationVar(&autoTrigger, "auto-trigger", 0, "Raise the busy flag at this interval (0 disables)")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")

	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.GetLogger()

	net := memnet.NewNetwork(memnet.WithLogger(log))
	defer net.Close()

	ep, busy, calc, err := loadEndpoints(net, cfg)
	if err != nil {
		return err
	}

	orch, err := scan.NewOrchestrator(ep,
		scan.WithNumSteps(cfg.Scan.NumSteps),
		scan.WithStepSize(cfg.Scan.StepSize),
		scan.WithOrigin(cfg.Scan.Origin),
		scan.WithMoveTimeout(cfg.Scan.MoveTimeout.Std()),
		scan.WithLogger(log),
	)
	if err != nil {
		return err
	}
	defer orch.Close()

	if err := orch.Monitor(); err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		stopMetrics := serveMetrics(cfg.MetricsAddr, orch.Metrics(), log)
		defer stopMetrics()
	}

	// The calc signal driven to 0 is the orderly-shutdown sentinel.
	sentinelCh := make(chan struct{})
	var sentinelOnce sync.Once
	sentinelID, err := calc.Monitor(func(_ pv.PV, value float64) {
		if value == 0 {
			sentinelOnce.Do(func() { close(sentinelCh) })
		}
	})
	if err != nil {
		return fmt.Errorf("monitor shutdown sentinel: %w", err)
	}
	defer func() { _ = calc.Unmonitor(sentinelID) }()

	if cfg.AutoTrigger > 0 {
		go autoTriggerTask(ctx, busy, cfg.AutoTrigger.Std(), log)
	}

	log.Info("busyscand running",
		"busy", ep.Busy.Name(),
		"motor", ep.Motor.Name(),
		"calc", calc.Name(),
		"numSteps", orch.NumSteps(),
	)

	select {
	case <-ctx.Done():
		log.Info("shutdown on signal")
	case <-sentinelCh:
		log.Info("shutdown on sentinel, calc signal reached 0")
	}

	return nil
}

// loadEndpoints populates the soft network with the demonstration records
// and resolves the orchestrator's endpoint handles.
func loadEndpoints(net *memnet.Network, cfg *config.Config) (scan.Endpoints, pv.PV, pv.PV, error) {
	var ep scan.Endpoints

	if _, err := net.LoadScalar(cfg.PV(cfg.Records.Busy), 0); err != nil {
		return ep, nil, nil, err
	}
	if _, err := net.LoadMotor(cfg.PV(cfg.Records.Motor)); err != nil {
		return ep, nil, nil, err
	}
	if _, err := net.LoadCalc(cfg.PV(cfg.Records.Calc)); err != nil {
		return ep, nil, nil, err
	}
	for _, name := range []string{cfg.Records.TimeSink, cfg.Records.PosSink, cfg.Records.ValSink} {
		if _, err := net.LoadWaveform(cfg.PV(name), cfg.WaveformLength); err != nil {
			return ep, nil, nil, err
		}
	}

	busy, err := net.Connect(cfg.PV(cfg.Records.Busy))
	if err != nil {
		return ep, nil, nil, err
	}
	motor, err := net.ConnectMotor(cfg.PV(cfg.Records.Motor))
	if err != nil {
		return ep, nil, nil, err
	}
	calc, err := net.Connect(cfg.PV(cfg.Records.Calc))
	if err != nil {
		return ep, nil, nil, err
	}
	calcProc, err := net.Connect(cfg.PV(cfg.Records.Calc) + ".PROC")
	if err != nil {
		return ep, nil, nil, err
	}
	calcExpr, err := net.ConnectText(cfg.PV(cfg.Records.Calc) + ".CALC")
	if err != nil {
		return ep, nil, nil, err
	}
	timeSink, err := net.ConnectArray(cfg.PV(cfg.Records.TimeSink))
	if err != nil {
		return ep, nil, nil, err
	}
	posSink, err := net.ConnectArray(cfg.PV(cfg.Records.PosSink))
	if err != nil {
		return ep, nil, nil, err
	}
	valSink, err := net.ConnectArray(cfg.PV(cfg.Records.ValSink))
	if err != nil {
		return ep, nil, nil, err
	}

	ep = scan.Endpoints{
		Busy:         busy,
		Motor:        motor,
		Calc:         calc,
		CalcProc:     calcProc,
		CalcExpr:     calcExpr,
		TimeSink:     timeSink,
		PositionSink: posSink,
		ValueSink:    valSink,
	}

	return ep, busy, calc, nil
}

// autoTriggerTask periodically raises the busy flag, standing in for an
// external operator.
func autoTriggerTask(ctx context.Context, busy pv.PV, interval time.Duration, log logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := busy.Put(ctx, 1); err != nil {
				log.Error("auto trigger failed", "error", err)
				return
			}
		}
	}
}

// serveMetrics exposes the orchestrator counters on addr. The returned
// function shuts the server down.
func serveMetrics(addr string, metrics *scan.Metrics, log logger.Logger) func() {
	registry := prometheus.NewRegistry()
	registry.MustRegister(metrics.Collectors()...)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}
