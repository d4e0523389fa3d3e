// Package pool implements the fixed-capacity sample-block pool (§4.1).
// Buffers are pre-allocated once at construction; the hot path never
// allocates. A checkout is an exclusively owned Handle that returns its
// buffer to the free list when Release is called.
package pool

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kchmck/p25rx/internal/p25const"
)

// BytePool is a bounded pool of reusable byte buffers sized BufBytes.
type BytePool struct {
	mu   sync.Mutex
	free [][]byte
	cap  int
}

// NewBytePool allocates capacity buffers of p25const.BufBytes length.
func NewBytePool(capacity int) *BytePool {
	p := &BytePool{cap: capacity}
	p.free = make([][]byte, 0, capacity)
	for i := 0; i < capacity; i++ {
		p.free = append(p.free, make([]byte, p25const.BufBytes))
	}
	return p
}

// ByteHandle is an exclusively-owned byte buffer checked out of a BytePool.
type ByteHandle struct {
	Buf      []byte
	pool     *BytePool
	released bool
}

// Checkout returns a handle wrapping a free buffer, or nil when the
// pool is fully checked out. The buffer is reset to full length before
// being handed out.
func (p *BytePool) Checkout() *ByteHandle {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.free)
	if n == 0 {
		return nil
	}
	buf := p.free[n-1]
	p.free = p.free[:n-1]
	return &ByteHandle{Buf: buf[:p25const.BufBytes], pool: p}
}

// Release returns the buffer to the free list. Safe to call once; a
// second call is a no-op (guards against double-release bugs).
func (h *ByteHandle) Release() {
	if h == nil || h.released {
		return
	}
	h.released = true
	h.pool.mu.Lock()
	h.pool.free = append(h.pool.free, h.Buf)
	h.pool.mu.Unlock()
}

// Outstanding returns the number of buffers currently checked out.
func (p *BytePool) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cap - len(p.free)
}

// FloatPool is a bounded pool of reusable float32 buffers sized
// BufSamples.
type FloatPool struct {
	mu   sync.Mutex
	free [][]float32
	cap  int
}

// NewFloatPool allocates capacity buffers of p25const.BufSamples length.
func NewFloatPool(capacity int) *FloatPool {
	p := &FloatPool{cap: capacity}
	p.free = make([][]float32, 0, capacity)
	for i := 0; i < capacity; i++ {
		p.free = append(p.free, make([]float32, p25const.BufSamples))
	}
	return p
}

// FloatHandle is an exclusively-owned float32 buffer checked out of a
// FloatPool.
type FloatHandle struct {
	Buf      []float32
	pool     *FloatPool
	released bool
}

// Checkout returns a handle wrapping a free buffer, or nil when the
// pool is fully checked out.
func (p *FloatPool) Checkout() *FloatHandle {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.free)
	if n == 0 {
		return nil
	}
	buf := p.free[n-1]
	p.free = p.free[:n-1]
	return &FloatHandle{Buf: buf[:p25const.BufSamples], pool: p}
}

// Release returns the buffer to the free list.
func (h *FloatHandle) Release() {
	if h == nil || h.released {
		return
	}
	h.released = true
	h.pool.mu.Lock()
	h.pool.free = append(h.pool.free, h.Buf)
	h.pool.mu.Unlock()
}

// Outstanding returns the number of buffers currently checked out.
func (p *FloatPool) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cap - len(p.free)
}

// Metrics exposes pool occupancy as Prometheus gauges. Registering
// these is optional; the pool works without a registry attached.
type Metrics struct {
	bytesOutstanding  prometheus.GaugeFunc
	floatsOutstanding prometheus.GaugeFunc
}

// NewMetrics creates gauge-funcs that sample the given pools on scrape
// and registers them against reg.
func NewMetrics(reg prometheus.Registerer, bytes *BytePool, floats *FloatPool) *Metrics {
	m := &Metrics{
		bytesOutstanding: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "p25rx",
			Subsystem: "pool",
			Name:      "byte_buffers_outstanding",
			Help:      "Number of byte buffers currently checked out of the sample pool.",
		}, func() float64 { return float64(bytes.Outstanding()) }),
		floatsOutstanding: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "p25rx",
			Subsystem: "pool",
			Name:      "float_buffers_outstanding",
			Help:      "Number of float buffers currently checked out of the sample pool.",
		}, func() float64 { return float64(floats.Outstanding()) }),
	}
	reg.MustRegister(m.bytesOutstanding, m.floatsOutstanding)
	return m
}
