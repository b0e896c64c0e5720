package scanintegration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/beamkit/go-scan/memnet"
	"github.com/beamkit/go-scan/pv"
	"github.com/beamkit/go-scan/scan"
)

const (
	busyPV  = "it:mybusy"
	motorPV = "it:m1"
	calcPV  = "it:userCalc1"
	tPV     = "it:t_array"
	xPV     = "it:x_array"
	yPV     = "it:y_array"

	waveformLength = 256
)

// buildEndpoints loads the demonstration records and resolves every handle
// through the pv.Network interface, the way a daemon wires a real backend.
func buildEndpoints(t *testing.T, loader *memnet.Network, motorOpts ...memnet.MotorOption) scan.Endpoints {
	t.Helper()
	require := require.New(t)

	_, err := loader.LoadScalar(busyPV, 0)
	require.NoError(err)
	_, err = loader.LoadMotor(motorPV, motorOpts...)
	require.NoError(err)
	_, err = loader.LoadCalc(calcPV)
	require.NoError(err)
	for _, name := range []string{tPV, xPV, yPV} {
		_, err = loader.LoadWaveform(name, waveformLength)
		require.NoError(err)
	}

	var network pv.Network = loader

	busy, err := network.Connect(busyPV)
	require.NoError(err)
	motor, err := network.ConnectMotor(motorPV)
	require.NoError(err)
	calc, err := network.Connect(calcPV)
	require.NoError(err)
	calcProc, err := network.Connect(calcPV + ".PROC")
	require.NoError(err)
	calcExpr, err := network.ConnectText(calcPV + ".CALC")
	require.NoError(err)
	tSink, err := network.ConnectArray(tPV)
	require.NoError(err)
	xSink, err := network.ConnectArray(xPV)
	require.NoError(err)
	ySink, err := network.ConnectArray(yPV)
	require.NoError(err)

	return scan.Endpoints{
		Busy:         busy,
		Motor:        motor,
		Calc:         calc,
		CalcProc:     calcProc,
		CalcExpr:     calcExpr,
		TimeSink:     tSink,
		PositionSink: xSink,
		ValueSink:    ySink,
	}
}

func waitResult(t *testing.T, ch <-chan scan.RunResult) scan.RunResult {
	t.Helper()

	select {
	case result := <-ch:
		return result
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for run result")
		return scan.RunResult{}
	}
}

func TestSerialTriggeredRuns(t *testing.T) {
	require := require.New(t)

	net := memnet.NewNetwork()
	defer net.Close()

	ep := buildEndpoints(t, net)

	// the construction recompute consumes the first sequence value; the two
	// runs then sample 2,3 and 4,5
	orch, err := scan.NewOrchestrator(ep,
		scan.WithOrigin(0),
		scan.WithStepSize(1),
		scan.WithNumSteps(2),
		scan.WithCalcExpression("SEQ:1,2,3,4,5"),
	)
	require.NoError(err)
	defer orch.Close()

	results := make(chan scan.RunResult, 2)
	orch.AddRunHandler(func(result scan.RunResult) {
		results <- result
	})

	require.NoError(orch.Monitor())

	ctx := context.Background()

	require.NoError(ep.Busy.Put(ctx, 1))
	first := waitResult(t, results)
	require.NoError(first.Err)
	require.Equal(2, first.Samples)

	values, err := ep.ValueSink.GetArray(ctx)
	require.NoError(err)
	require.Equal([]float64{2, 3}, values)

	// the flag is back to 0, the external actor may trigger again
	busyVal, err := ep.Busy.Get(ctx)
	require.NoError(err)
	require.Equal(0.0, busyVal)

	require.NoError(ep.Busy.Put(ctx, 1))
	second := waitResult(t, results)
	require.NoError(second.Err)
	require.Equal(2, second.Samples)

	values, err = ep.ValueSink.GetArray(ctx)
	require.NoError(err)
	require.Equal([]float64{4, 5}, values)

	positions, err := ep.PositionSink.GetArray(ctx)
	require.NoError(err)
	require.Equal([]float64{0, 1}, positions)

	require.Equal(uint64(2), orch.Metrics().RunStartCount.Load())
	require.Equal(uint64(2), orch.Metrics().RunCompleteCount.Load())
	require.Equal(uint64(4), orch.Metrics().SampleCount.Load())
}

func TestTriggerRejectedWhileRunning(t *testing.T) {
	require := require.New(t)

	net := memnet.NewNetwork()
	defer net.Close()

	ep := buildEndpoints(t, net, memnet.WithSettleDelay(30*time.Millisecond))

	orch, err := scan.NewOrchestrator(ep,
		scan.WithOrigin(0),
		scan.WithStepSize(1),
		scan.WithNumSteps(3),
	)
	require.NoError(err)
	defer orch.Close()

	results := make(chan scan.RunResult, 1)
	orch.AddRunHandler(func(result scan.RunResult) {
		results <- result
	})

	require.NoError(orch.Monitor())

	ctx := context.Background()
	require.NoError(ep.Busy.Put(ctx, 1))

	require.Eventually(orch.Processing, 5*time.Second, time.Millisecond)

	// a duplicate trigger mid-run is rejected and counted, not queued
	require.NoError(ep.Busy.Put(ctx, 1))
	require.Eventually(func() bool {
		return orch.Metrics().RunRejectCount.Load() >= 1
	}, 5*time.Second, time.Millisecond)

	result := waitResult(t, results)
	require.NoError(result.Err)
	require.Equal(uint64(1), orch.Metrics().RunStartCount.Load())
}

func TestSentinelShutdown(t *testing.T) {
	require := require.New(t)

	net := memnet.NewNetwork()
	defer net.Close()

	ep := buildEndpoints(t, net)

	orch, err := scan.NewOrchestrator(ep)
	require.NoError(err)
	defer orch.Close()
	require.NoError(orch.Monitor())

	ctx := context.Background()

	// the daemon observes orderly shutdown by monitoring the calc signal for
	// 0 instead of polling it
	sentinelCh := make(chan struct{})
	var once sync.Once
	_, err = ep.Calc.Monitor(func(_ pv.PV, value float64) {
		if value == 0 {
			once.Do(func() { close(sentinelCh) })
		}
	})
	require.NoError(err)

	require.NoError(ep.CalcExpr.PutText(ctx, "0"))
	require.NoError(ep.CalcProc.Put(ctx, 1))

	select {
	case <-sentinelCh:
	case <-time.After(5 * time.Second):
		t.Fatal("sentinel not observed")
	}
}
