package insertloop

import (
	"math"
	"sync"
	"sync/atomic"
)

// Param is an automatable scalar in [0, 1]. The value is stored atomically
// so the audio thread reads it lock-free while an automation or UI thread
// writes it. Setting a bit-identical value is a strict no-op: listeners are
// not called, so redundant automation events are never produced.
type Param struct {
	name  string
	value atomic.Uint64

	mu        sync.Mutex
	listeners []func(float64)
}

// NewParam creates a parameter with the given initial value.
func NewParam(name string, initial float64) *Param {
	p := &Param{name: name}
	p.value.Store(math.Float64bits(clamp01(initial)))
	return p
}

// Name returns the parameter's display name.
func (p *Param) Name() string { return p.name }

// Value returns the current value. Safe from any thread.
func (p *Param) Value() float64 {
	return math.Float64frombits(p.value.Load())
}

// Set stores a new value and notifies listeners. Values are clamped to
// [0, 1] first; a write that lands bit-identical to the current value does
// nothing.
func (p *Param) Set(v float64) {
	v = clamp01(v)
	bits := math.Float64bits(v)
	if bits == p.value.Load() {
		return
	}
	p.value.Store(bits)

	p.mu.Lock()
	listeners := make([]func(float64), len(p.listeners))
	copy(listeners, p.listeners)
	p.mu.Unlock()
	for _, fn := range listeners {
		fn(v)
	}
}

// AddListener registers a change callback. Callbacks run synchronously on
// the writing goroutine, in registration order.
func (p *Param) AddListener(fn func(float64)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Listeners returns the number of registered callbacks.
func (p *Param) Listeners() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.listeners)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
