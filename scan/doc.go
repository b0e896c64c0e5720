// Package scan implements busy-record scan orchestration: a client-side
// workflow that waits for an external actor to raise a busy flag, steps a
// motor through a bounded sequence of positions while sampling a computed
// signal, publishes the accumulated results to waveform sinks after every
// step, and clears the flag when the run completes or is interrupted.
//
// The orchestration follows the busy-record handshake:
//
//  1. An external actor writes 1 to the busy PV.
//  2. The orchestrator's subscription observes the update and hands a run
//     request to its supervisor goroutine; notification delivery never
//     blocks on a run.
//  3. The run moves the motor to the origin, then for each step re-checks
//     the busy PV (any value other than 1 interrupts the run), moves to
//     origin + step*stepSize, requests a recompute of the calc signal,
//     records (time, position, value), and publishes the full accumulated
//     arrays to the three sinks.
//  4. The run writes 0 back to the busy PV, signalling completion.
//
// At most one run is active at a time. The in-progress guard is a single
// atomic test-and-set, and duplicate triggers are rejected observably: they
// are counted in Metrics and logged rather than silently dropped.
package scan
