package pv

import "errors"

var (
	// ErrUnknownPV indicates that no record with the requested name exists in
	// the control network.
	ErrUnknownPV = errors.New("unknown PV name")

	// ErrWrongKind indicates that a record exists under the requested name but
	// is not of the requested endpoint kind.
	ErrWrongKind = errors.New("PV is not of the requested kind")

	// ErrNotMonitored indicates that no subscription with the given callback ID
	// exists on the PV.
	ErrNotMonitored = errors.New("no such monitor subscription")

	// ErrCapacityExceeded indicates that a waveform write exceeds the record's
	// element capacity.
	ErrCapacityExceeded = errors.New("waveform capacity exceeded")

	// ErrNetworkClosed indicates that the network has been shut down and no
	// longer accepts operations.
	ErrNetworkClosed = errors.New("network closed")
)
