package memnet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/beamkit/go-scan/logger"
	"github.com/beamkit/go-scan/pv"
)

var (
	// ErrDuplicateRecord indicates that a record with the same name is already
	// loaded into the network.
	ErrDuplicateRecord = errors.New("record name already loaded")
)

// notification carries one value update to the dispatch goroutine.
// The handler list is snapshotted at enqueue time so late subscription
// changes do not affect in-flight notifications.
type notification struct {
	src      pv.PV
	value    float64
	handlers []pv.MonitorHandler
}

// Network is an in-process control network holding records by name.
//
// All monitor notifications are delivered in order on a single dispatch
// goroutine owned by the network. Record writes never block on notification
// delivery; if the dispatch queue is full the update is dropped with a
// warning.
type Network struct {
	ctx      context.Context
	cancel   context.CancelFunc
	logger   logger.Logger
	records  *xsync.MapOf[string, any]
	notifyCh chan notification
	wg       sync.WaitGroup
	closed   atomic.Bool
}

// Option customizes a Network.
type Option func(*Network)

// WithLogger sets the logger used by the network and its records.
func WithLogger(l logger.Logger) Option {
	return func(n *Network) {
		if l != nil {
			n.logger = l
		}
	}
}

// WithNotifyBuffer sets the capacity of the notification dispatch queue.
// Defaults to 64.
func WithNotifyBuffer(size int) Option {
	return func(n *Network) {
		if size > 0 {
			n.notifyCh = make(chan notification, size)
		}
	}
}

// NewNetwork creates an empty soft network and starts its notification
// dispatch goroutine. Call Close to stop it.
func NewNetwork(opts ...Option) *Network {
	n := &Network{
		logger:   logger.GetLogger(),
		records:  xsync.NewMapOf[string, any](),
		notifyCh: make(chan notification, 64),
	}

	for _, opt := range opts {
		opt(n)
	}

	n.ctx, n.cancel = context.WithCancel(context.Background())

	n.wg.Add(1)
	go n.dispatchTask()

	return n
}

// Close stops notification delivery and marks the network closed.
// Pending notifications in the queue are discarded.
func (n *Network) Close() {
	if !n.closed.CompareAndSwap(false, true) {
		return
	}
	n.cancel()
	n.wg.Wait()
}

// Closed reports whether the network has been shut down.
func (n *Network) Closed() bool {
	return n.closed.Load()
}

// LoadScalar loads a scalar record with the given initial value.
func (n *Network) LoadScalar(name string, initial float64) (*Scalar, error) {
	s := newScalar(n, name, initial)
	if err := n.register(name, s); err != nil {
		return nil, err
	}

	return s, nil
}

// LoadCalc loads a calc record. Its expression field is registered as
// "<name>.CALC" and its recompute trigger as "<name>.PROC".
func (n *Network) LoadCalc(name string) (*Calc, error) {
	c := newCalc(n, name)
	if err := n.register(name, c); err != nil {
		return nil, err
	}
	if err := n.register(name+".CALC", c.exprField()); err != nil {
		return nil, err
	}
	if err := n.register(name+".PROC", c.procField()); err != nil {
		return nil, err
	}

	return c, nil
}

// LoadWaveform loads a waveform record with the given element capacity.
func (n *Network) LoadWaveform(name string, capacity int) (*Waveform, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("waveform %q: capacity must be positive, got %d", name, capacity)
	}

	w := &Waveform{net: n, name: name, capacity: capacity}
	if err := n.register(name, w); err != nil {
		return nil, err
	}

	return w, nil
}

// LoadMotor loads a motor record.
func (n *Network) LoadMotor(name string, opts ...MotorOption) (*Motor, error) {
	m := newMotor(n, name, opts...)
	if err := n.register(name, m); err != nil {
		return nil, err
	}

	return m, nil
}

// Connect resolves name to a scalar PV handle.
func (n *Network) Connect(name string) (pv.PV, error) {
	rec, err := n.lookup(name)
	if err != nil {
		return nil, err
	}

	p, ok := rec.(pv.PV)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a scalar", pv.ErrWrongKind, name)
	}

	return p, nil
}

// ConnectText resolves name to a text field handle.
func (n *Network) ConnectText(name string) (pv.TextPV, error) {
	rec, err := n.lookup(name)
	if err != nil {
		return nil, err
	}

	p, ok := rec.(pv.TextPV)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a text field", pv.ErrWrongKind, name)
	}

	return p, nil
}

// ConnectArray resolves name to a waveform handle.
func (n *Network) ConnectArray(name string) (pv.ArrayPV, error) {
	rec, err := n.lookup(name)
	if err != nil {
		return nil, err
	}

	p, ok := rec.(pv.ArrayPV)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a waveform", pv.ErrWrongKind, name)
	}

	return p, nil
}

// ConnectMotor resolves name to a motor handle.
func (n *Network) ConnectMotor(name string) (pv.MotorPV, error) {
	rec, err := n.lookup(name)
	if err != nil {
		return nil, err
	}

	p, ok := rec.(pv.MotorPV)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a motor", pv.ErrWrongKind, name)
	}

	return p, nil
}

var _ pv.Network = (*Network)(nil)

func (n *Network) register(name string, rec any) error {
	if _, loaded := n.records.LoadOrStore(name, rec); loaded {
		return fmt.Errorf("%w: %s", ErrDuplicateRecord, name)
	}

	return nil
}

func (n *Network) lookup(name string) (any, error) {
	rec, ok := n.records.Load(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", pv.ErrUnknownPV, name)
	}

	return rec, nil
}

// notify enqueues a value update for asynchronous delivery. It never blocks;
// a full queue drops the update.
func (n *Network) notify(src pv.PV, value float64, handlers []pv.MonitorHandler) {
	if len(handlers) == 0 || n.closed.Load() {
		return
	}

	select {
	case n.notifyCh <- notification{src: src, value: value, handlers: handlers}:
	default:
		n.logger.Warn("notification queue full, update dropped", "pv", src.Name(), "value", value)
	}
}

// dispatchTask delivers queued notifications until the network is closed.
func (n *Network) dispatchTask() {
	defer n.wg.Done()
	defer n.logger.Debug("dispatch task terminated")

	for {
		select {
		case <-n.ctx.Done():
			return
		case note := <-n.notifyCh:
			for _, handler := range note.handlers {
				n.invokeHandler(note, handler)
			}
		}
	}
}

// invokeHandler calls a monitor handler with panic protection so a faulty
// subscriber cannot kill the dispatch goroutine.
func (n *Network) invokeHandler(note notification, handler pv.MonitorHandler) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("panic in monitor handler", "pv", note.src.Name(), "panic", r)
		}
	}()

	handler(note.src, note.value)
}
