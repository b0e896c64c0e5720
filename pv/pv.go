package pv

import "context"

// CallbackID identifies a single monitor subscription on a PV.
// It is returned by Monitor and consumed by Unmonitor.
type CallbackID uint64

// MonitorHandler is invoked for every value update of a monitored PV.
//
// Handlers run on the network's notification-delivery goroutine and must not
// block; long-running work belongs on a separate goroutine.
type MonitorHandler func(p PV, value float64)

// PV is a handle to a named scalar process variable in the control network.
type PV interface {
	// Name returns the PV's name in the control network.
	Name() string

	// Get reads the PV's current value.
	Get(ctx context.Context) (float64, error)

	// Put writes a new value to the PV.
	Put(ctx context.Context, value float64) error

	// Monitor registers a value-change subscription on the PV.
	// The returned CallbackID cancels the subscription via Unmonitor.
	Monitor(handler MonitorHandler) (CallbackID, error)

	// Unmonitor cancels the subscription identified by id.
	// It returns ErrNotMonitored if no such subscription exists.
	Unmonitor(id CallbackID) error
}

// TextPV is a handle to a named string-valued field, such as a calc record's
// expression.
type TextPV interface {
	// Name returns the field's name in the control network.
	Name() string

	// GetText reads the field's current value.
	GetText(ctx context.Context) (string, error)

	// PutText writes a new value to the field.
	PutText(ctx context.Context, value string) error
}

// ArrayPV is a handle to a named bounded-length numeric waveform.
type ArrayPV interface {
	// Name returns the waveform's name in the control network.
	Name() string

	// Capacity returns the maximum number of elements the waveform holds.
	Capacity() int

	// GetArray reads the waveform's current contents.
	GetArray(ctx context.Context) ([]float64, error)

	// PutArray replaces the waveform's contents with values.
	// It returns ErrCapacityExceeded if len(values) exceeds Capacity.
	PutArray(ctx context.Context, values []float64) error
}

// MotorPV is a handle to a positionable actuator.
type MotorPV interface {
	// Name returns the motor's name in the control network.
	Name() string

	// Move commands the motor to the target position and blocks until the
	// motor reports arrival or ctx is done.
	Move(ctx context.Context, target float64) error

	// Readback returns the motor's achieved position.
	Readback(ctx context.Context) (float64, error)
}

// Network resolves endpoint names to typed PV handles.
type Network interface {
	// Connect resolves name to a scalar PV handle.
	Connect(name string) (PV, error)

	// ConnectText resolves name to a string field handle.
	ConnectText(name string) (TextPV, error)

	// ConnectArray resolves name to a waveform handle.
	ConnectArray(name string) (ArrayPV, error)

	// ConnectMotor resolves name to a motor handle.
	ConnectMotor(name string) (MotorPV, error)
}
