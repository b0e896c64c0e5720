// Package memnet implements the pv interfaces with an in-process soft
// network: records live in memory and monitor notifications are delivered
// asynchronously on a dedicated dispatch goroutine, mirroring the delivery
// model of a real control-system client.
//
// Supported record kinds:
//
//   - scalar records (Scalar): numeric value with monitor subscriptions.
//   - calc records (Calc): a scalar whose value is recomputed on demand from
//     an expression; the expression is exposed as the "<name>.CALC" text
//     field and recomputation is requested by writing to "<name>.PROC".
//   - waveform records (Waveform): bounded numeric arrays.
//   - motor records (Motor): positionable actuator with simulated settle
//     time and position readback.
//
// memnet backs the scan package's tests and the busyscand demo daemon.
package memnet
