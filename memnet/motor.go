package memnet

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/beamkit/go-scan/internal/pool"
	"github.com/beamkit/go-scan/pv"
)

// Motor is an in-memory positionable actuator record.
//
// A move commands the target, waits the configured settle delay, then latches
// the readback to the target. With no settle delay, moves complete
// immediately and always land exactly on target.
type Motor struct {
	net  *Network
	name string

	settleDelay time.Duration

	mu       sync.Mutex
	target   float64
	readback float64
	moving   bool

	moveCount atomic.Uint64
}

var _ pv.MotorPV = (*Motor)(nil)

// MotorOption customizes a motor record.
type MotorOption func(*Motor)

// WithSettleDelay sets the simulated time a move takes to settle.
// Defaults to zero (moves settle immediately).
func WithSettleDelay(d time.Duration) MotorOption {
	return func(m *Motor) {
		if d > 0 {
			m.settleDelay = d
		}
	}
}

func newMotor(net *Network, name string, opts ...MotorOption) *Motor {
	m := &Motor{net: net, name: name}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Name returns the record's name.
func (m *Motor) Name() string {
	return m.name
}

// Move commands the motor to target and blocks until it settles or ctx is
// done. A canceled move leaves the readback at its last settled position.
func (m *Motor) Move(ctx context.Context, target float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.net.Closed() {
		return pv.ErrNetworkClosed
	}

	m.moveCount.Add(1)

	m.mu.Lock()
	m.target = target
	m.moving = true
	m.mu.Unlock()

	if m.settleDelay > 0 {
		timer := pool.GetTimer(m.settleDelay)
		defer pool.PutTimer(timer)

		select {
		case <-ctx.Done():
			m.mu.Lock()
			m.moving = false
			m.mu.Unlock()

			return ctx.Err()
		case <-timer.C:
		}
	}

	m.mu.Lock()
	m.readback = target
	m.moving = false
	m.mu.Unlock()

	return nil
}

// Readback returns the motor's achieved position.
func (m *Motor) Readback(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if m.net.Closed() {
		return 0, pv.ErrNetworkClosed
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.readback, nil
}

// Moving reports whether a move is in flight.
func (m *Motor) Moving() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.moving
}

// MoveCount returns the number of moves commanded since creation.
func (m *Motor) MoveCount() uint64 {
	return m.moveCount.Load()
}
