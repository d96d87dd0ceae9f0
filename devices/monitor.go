package devices

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Monitor handles device change detection and hotplug events by polling a
// Lister. Detection is count-based first; only when counts move does it take
// a full snapshot and notify subscribers. The polling interval backs off
// while the population is stable and snaps back on change.
type Monitor struct {
	lister Lister
	mu     sync.RWMutex

	isRunning bool
	cancel    context.CancelFunc

	// Adaptive polling
	baseInterval    time.Duration // Fast polling right after a change
	maxInterval     time.Duration // Ceiling while nothing changes
	currentInterval time.Duration
	noChangeCount   int

	// Device state tracking
	lastAudioCount int
	lastMidiCount  int

	onChange []func(*Inventory)
	onError  func(error)
}

// NewMonitor creates a monitor over the given lister. onError may be nil.
func NewMonitor(lister Lister, onError func(error)) *Monitor {
	return &Monitor{
		lister:          lister,
		baseInterval:    50 * time.Millisecond,
		maxInterval:     200 * time.Millisecond,
		currentInterval: 50 * time.Millisecond,
		onError:         onError,
	}
}

// OnChange registers a callback invoked with a fresh snapshot whenever the
// device population changes. Callbacks run on the monitor goroutine.
func (m *Monitor) OnChange(fn func(*Inventory)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}

// Start begins polling. Returns an error if already running or the initial
// snapshot fails.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isRunning {
		return fmt.Errorf("device monitor is already running")
	}

	inv, err := Snapshot(m.lister)
	if err != nil {
		return fmt.Errorf("failed to take initial device snapshot: %w", err)
	}
	m.lastAudioCount = len(inv.Audio)
	m.lastMidiCount = len(inv.MIDI)

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.isRunning = true

	go m.monitorLoop(ctx)

	return nil
}

// Stop halts monitoring. Idempotent.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isRunning {
		return
	}
	m.cancel()
	m.isRunning = false
}

// IsRunning returns whether monitoring is active
func (m *Monitor) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isRunning
}

// monitorLoop runs the device polling loop
func (m *Monitor) monitorLoop(ctx context.Context) {
	interval := m.interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkDevices()
			if next := m.interval(); next != interval {
				ticker.Reset(next)
				interval = next
			}
		}
	}
}

func (m *Monitor) interval() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentInterval
}

// checkDevices performs fast count-based change detection
func (m *Monitor) checkDevices() {
	audio, err := m.lister.Audio()
	if err != nil {
		m.reportError(fmt.Errorf("audio device enumeration failed: %w", err))
		return
	}
	midi, err := m.lister.MIDI()
	if err != nil {
		m.reportError(fmt.Errorf("MIDI device enumeration failed: %w", err))
		return
	}

	m.mu.Lock()
	changed := len(audio) != m.lastAudioCount || len(midi) != m.lastMidiCount
	if !changed {
		// No changes - back off gradually for power efficiency
		m.noChangeCount++
		if m.noChangeCount > 10 {
			next := time.Duration(float64(m.currentInterval) * 1.1)
			if next > m.maxInterval {
				next = m.maxInterval
			}
			m.currentInterval = next
		}
		m.mu.Unlock()
		return
	}

	m.lastAudioCount = len(audio)
	m.lastMidiCount = len(midi)
	m.noChangeCount = 0
	m.currentInterval = m.baseInterval
	callbacks := make([]func(*Inventory), len(m.onChange))
	copy(callbacks, m.onChange)
	m.mu.Unlock()

	inv := &Inventory{Audio: audio, MIDI: midi}
	for _, fn := range callbacks {
		fn(inv)
	}
}

func (m *Monitor) reportError(err error) {
	m.mu.RLock()
	handler := m.onError
	m.mu.RUnlock()
	if handler != nil {
		handler(err)
	}
}

// ForceCheck triggers an immediate device check (useful for testing)
func (m *Monitor) ForceCheck() {
	if m.IsRunning() {
		m.checkDevices()
	}
}
