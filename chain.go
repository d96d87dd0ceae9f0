package insertloop

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/shaban/insertloop/config"
	"github.com/shaban/insertloop/devices"
	"github.com/shaban/insertloop/queue"
)

// LatencyClass is a coarse latency preference that maps to buffer sizes.
type LatencyClass string

const (
	LatencyLow    LatencyClass = "low"    // prioritize minimal latency (smaller buffers)
	LatencyMedium LatencyClass = "medium" // balanced default
	LatencyHigh   LatencyClass = "high"   // prioritize stability (larger buffers)
)

// MapLatencyToBuffer maps a LatencyClass to a suggested block size in frames.
func MapLatencyToBuffer(c LatencyClass) int {
	switch c {
	case LatencyLow:
		return 128
	case LatencyHigh:
		return 1024
	case LatencyMedium:
		fallthrough
	default:
		return 256
	}
}

// Chain wires an Insert and an AuxSend to the persisted property set and
// the device inventory. Property changes and inventory changes funnel
// through one mutation queue so device-type re-resolution never races;
// ProcessBlock stays a plain synchronous passthrough on the caller's thread.
type Chain struct {
	log    *zap.Logger
	errs   ErrorHandler
	store  *config.Store
	lister devices.Lister
	ops    *queue.Queue

	insert *Insert
	send   *AuxSend

	mu          sync.Mutex
	blockFrames int
	sampleRate  float64
}

// NewChain builds a chain from the persisted properties. The lister supplies
// device snapshots; logger may be nil.
func NewChain(store *config.Store, lister devices.Lister, logger *zap.Logger) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}

	doc := store.Document()

	insert := NewInsert()
	insert.SetName(doc.Name)
	insert.SetInputDevice(doc.InputDevice)
	insert.SetOutputDevice(doc.OutputDevice)
	insert.SetManualAdjustMs(doc.ManualAdjustMs)

	send := NewAuxSend(doc.BusNumber)
	send.Gain().Set(doc.FaderPosition)
	send.SetLastGainBeforeMuteDb(doc.LastGainBeforeMuteDb)

	c := &Chain{
		log:    logger,
		errs:   NewLogErrorHandler(logger),
		store:  store,
		lister: lister,
		ops:    queue.New(32),
		insert: insert,
		send:   send,
	}
	c.ops.OnError(func(err error) {
		c.errs.HandleError(err)
	})
	c.ops.Start()

	// Persist automation writes and mute memory back to the property set.
	send.Gain().AddListener(func(v float64) {
		store.SetFaderPosition(v)
	})
	send.OnMuteMemoryChange(func(db float64) {
		store.SetLastGainBeforeMuteDb(db)
	})

	// Device selection changes re-resolve on the mutation goroutine.
	store.Subscribe(config.KeyInputDevice, func() {
		name := store.InputDevice()
		c.enqueue(func() error {
			c.insert.SetInputDevice(name)
			return c.refreshDeviceTypes()
		})
	})
	store.Subscribe(config.KeyOutputDevice, func() {
		name := store.OutputDevice()
		c.enqueue(func() error {
			c.insert.SetOutputDevice(name)
			return c.refreshDeviceTypes()
		})
	})
	store.Subscribe(config.KeyManualAdjustMs, func() {
		ms := store.ManualAdjustMs()
		c.enqueue(func() error {
			c.insert.SetManualAdjustMs(ms)
			c.mu.Lock()
			frames, rate := c.blockFrames, c.sampleRate
			c.mu.Unlock()
			if frames > 0 {
				c.insert.RecomputeLatency(frames, rate)
			}
			return nil
		})
	})
	store.Subscribe(config.KeyName, func() {
		c.insert.SetName(store.Name())
	})
	store.Subscribe(config.KeyBusNumber, func() {
		c.send.SetBusNumber(store.BusNumber())
	})

	return c
}

func (c *Chain) enqueue(fn func() error) {
	err := c.ops.Enqueue(queue.Func(func(ctx context.Context) error { return fn() }))
	if err != nil {
		c.log.Warn("mutation dropped", zap.Error(err))
	}
}

// SetErrorHandler replaces the failure sink for queue ops and device
// refreshes. Call before Initialize; the default logs through the chain's
// logger.
func (c *Chain) SetErrorHandler(h ErrorHandler) {
	if h != nil {
		c.errs = h
	}
}

// Monitor creates a device monitor whose change and error callbacks are
// already wired to the chain. The caller owns Start/Stop.
func (c *Chain) Monitor() *devices.Monitor {
	m := devices.NewMonitor(c.lister, func(err error) {
		c.errs.HandleError(err)
	})
	m.OnChange(func(*devices.Inventory) {
		c.RefreshDevices()
	})
	return m
}

// Insert returns the chain's insert router.
func (c *Chain) Insert() *Insert { return c.insert }

// Send returns the chain's aux send.
func (c *Chain) Send() *AuxSend { return c.send }

// Initialize prepares the chain for block processing: resolves device types
// against a fresh inventory snapshot, sizes the staging buffers, and primes
// the send's gain ramp.
func (c *Chain) Initialize(blockFrames int, sampleRate float64) error {
	if blockFrames <= 0 {
		return fmt.Errorf("block size must be positive, got %d", blockFrames)
	}
	if sampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %g", sampleRate)
	}

	c.mu.Lock()
	c.blockFrames = blockFrames
	c.sampleRate = sampleRate
	c.mu.Unlock()

	if err := c.refreshDeviceTypes(); err != nil {
		return err
	}
	c.insert.Initialize(blockFrames, sampleRate)
	c.send.Initialize()

	c.log.Info("chain initialized",
		zap.Int("blockFrames", blockFrames),
		zap.Float64("sampleRate", sampleRate),
		zap.Duration("latency", c.insert.Latency()),
		zap.String("sendType", c.insert.SendType().String()),
		zap.String("returnType", c.insert.ReturnType().String()))

	return nil
}

// Deinitialize releases the insert's staging buffers.
func (c *Chain) Deinitialize() {
	c.insert.Deinitialize()
	c.mu.Lock()
	c.blockFrames = 0
	c.mu.Unlock()
}

// ProcessBlock runs the insert router over one block. Called once per block
// by the host's signal-graph scheduler.
func (c *Chain) ProcessBlock(rc *RenderContext) {
	c.insert.ProcessBlock(rc)
}

// RefreshDevices re-snapshots the inventory and re-resolves device types on
// the mutation goroutine. Hook this to a device monitor's change callback.
func (c *Chain) RefreshDevices() {
	c.enqueue(c.refreshDeviceTypes)
}

func (c *Chain) refreshDeviceTypes() error {
	inv, err := devices.Snapshot(c.lister)
	if err != nil {
		return fmt.Errorf("device snapshot failed: %w", err)
	}
	c.insert.UpdateDeviceTypes(inv)
	return nil
}

// Close stops the mutation queue and persists the property set if it has a
// backing file.
func (c *Chain) Close() error {
	c.ops.Close()
	if err := c.store.Save(); err != nil {
		c.log.Warn("persist on close failed", zap.Error(err))
		return err
	}
	return nil
}
