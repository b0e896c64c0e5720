// Package pv defines the client-side abstraction of a process-variable (PV)
// control network: named remote values that can be read, written, and
// monitored for changes.
//
// The interfaces in this package model the endpoint kinds a scan needs:
//
//   - PV: a scalar numeric value with synchronous Get/Put and cancellable
//     value-change subscriptions.
//   - TextPV: a string-valued field, used for record configuration such as a
//     calc record's expression.
//   - ArrayPV: a bounded-length numeric waveform, readable and writable as a
//     whole.
//   - MotorPV: a positionable actuator that can be commanded to a target
//     position and reports its achieved position.
//
// A Network resolves endpoint names to handles. The memnet package provides
// an in-process implementation; adapters for real control-system transports
// implement the same interfaces.
package pv
