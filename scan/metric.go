package scan

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains atomic counters for an orchestrator.
//
// The counters make run dispatch observable: in particular RunRejectCount
// exposes triggers that arrived while a run was already in progress.
type Metrics struct {
	// RunStartCount indicates the number of runs started.
	RunStartCount atomic.Uint64
	// RunCompleteCount indicates the number of runs that finished all steps.
	RunCompleteCount atomic.Uint64
	// RunInterruptCount indicates the number of runs interrupted by the busy
	// flag leaving 1 mid-run.
	RunInterruptCount atomic.Uint64
	// RunFailCount indicates the number of runs aborted by an endpoint error.
	RunFailCount atomic.Uint64
	// RunRejectCount indicates the number of trigger requests rejected
	// because a run was already in progress or queued.
	RunRejectCount atomic.Uint64
	// SampleCount indicates the total number of samples recorded.
	SampleCount atomic.Uint64
}

func (m *Metrics) incRunStart() {
	m.RunStartCount.Add(1)
}

func (m *Metrics) incRunComplete() {
	m.RunCompleteCount.Add(1)
}

func (m *Metrics) incRunInterrupt() {
	m.RunInterruptCount.Add(1)
}

func (m *Metrics) incRunFail() {
	m.RunFailCount.Add(1)
}

func (m *Metrics) incRunReject() {
	m.RunRejectCount.Add(1)
}

func (m *Metrics) incSample() {
	m.SampleCount.Add(1)
}

// Collectors returns prometheus collectors exposing the counters, for
// registration with a prometheus registry.
func (m *Metrics) Collectors() []prometheus.Collector {
	counter := func(name, help string, v *atomic.Uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: name,
			Help: help,
		}, func() float64 {
			return float64(v.Load())
		})
	}

	return []prometheus.Collector{
		counter("scan_runs_started_total", "Runs started.", &m.RunStartCount),
		counter("scan_runs_completed_total", "Runs that finished all steps.", &m.RunCompleteCount),
		counter("scan_runs_interrupted_total", "Runs interrupted by the busy flag.", &m.RunInterruptCount),
		counter("scan_runs_failed_total", "Runs aborted by an endpoint error.", &m.RunFailCount),
		counter("scan_triggers_rejected_total", "Triggers rejected while a run was active.", &m.RunRejectCount),
		counter("scan_samples_total", "Samples recorded.", &m.SampleCount),
	}
}
