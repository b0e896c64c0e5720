package memnet

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/beamkit/go-scan/pv"
)

// Scalar is an in-memory scalar record.
//
// Writes update the stored value and fan out to monitor subscribers through
// the network's dispatch goroutine.
type Scalar struct {
	net  *Network
	name string

	mu       sync.RWMutex
	value    float64
	handlers map[pv.CallbackID]pv.MonitorHandler

	nextCB atomic.Uint64

	// putHook, when set, replaces the default write behavior.
	// Used by calc records for their .PROC trigger field.
	putHook func(ctx context.Context, value float64) error
}

var _ pv.PV = (*Scalar)(nil)

func newScalar(net *Network, name string, initial float64) *Scalar {
	return &Scalar{
		net:      net,
		name:     name,
		value:    initial,
		handlers: make(map[pv.CallbackID]pv.MonitorHandler),
	}
}

// Name returns the record's name.
func (s *Scalar) Name() string {
	return s.name
}

// Get reads the record's current value.
func (s *Scalar) Get(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s.net.Closed() {
		return 0, pv.ErrNetworkClosed
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.value, nil
}

// Put writes a new value and notifies all subscribers asynchronously.
func (s *Scalar) Put(ctx context.Context, value float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.net.Closed() {
		return pv.ErrNetworkClosed
	}

	if s.putHook != nil {
		return s.putHook(ctx, value)
	}

	s.store(value)

	return nil
}

// Monitor registers a value-change subscription.
func (s *Scalar) Monitor(handler pv.MonitorHandler) (pv.CallbackID, error) {
	if s.net.Closed() {
		return 0, pv.ErrNetworkClosed
	}

	id := pv.CallbackID(s.nextCB.Add(1))

	s.mu.Lock()
	s.handlers[id] = handler
	s.mu.Unlock()

	return id, nil
}

// Unmonitor cancels a subscription.
func (s *Scalar) Unmonitor(id pv.CallbackID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.handlers[id]; !ok {
		return pv.ErrNotMonitored
	}
	delete(s.handlers, id)

	return nil
}

// Subscribers returns the number of active monitor subscriptions.
func (s *Scalar) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.handlers)
}

// store updates the value and enqueues a notification with a snapshot of the
// current subscriber set.
func (s *Scalar) store(value float64) {
	s.mu.Lock()
	s.value = value
	snapshot := make([]pv.MonitorHandler, 0, len(s.handlers))
	for _, h := range s.handlers {
		snapshot = append(snapshot, h)
	}
	s.mu.Unlock()

	s.net.notify(s, value, snapshot)
}
