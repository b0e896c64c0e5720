package memnet

import (
	"context"
	"fmt"
	"sync"

	"github.com/beamkit/go-scan/internal/util"
	"github.com/beamkit/go-scan/pv"
)

// Waveform is an in-memory bounded array record.
type Waveform struct {
	net      *Network
	name     string
	capacity int

	mu     sync.RWMutex
	values []float64
}

var _ pv.ArrayPV = (*Waveform)(nil)

// Name returns the record's name.
func (w *Waveform) Name() string {
	return w.name
}

// Capacity returns the record's element capacity.
func (w *Waveform) Capacity() int {
	return w.capacity
}

// GetArray returns a copy of the record's current contents.
func (w *Waveform) GetArray(ctx context.Context) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if w.net.Closed() {
		return nil, pv.ErrNetworkClosed
	}

	w.mu.RLock()
	defer w.mu.RUnlock()

	return util.CloneSlice(w.values, 0), nil
}

// PutArray replaces the record's contents with a copy of values.
func (w *Waveform) PutArray(ctx context.Context, values []float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.net.Closed() {
		return pv.ErrNetworkClosed
	}
	if len(values) > w.capacity {
		return fmt.Errorf("%w: %s holds %d elements, got %d", pv.ErrCapacityExceeded, w.name, w.capacity, len(values))
	}

	w.mu.Lock()
	w.values = util.CloneSlice(values, 0)
	w.mu.Unlock()

	return nil
}
