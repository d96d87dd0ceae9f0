package insertloop

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shaban/insertloop/buffer"
	"github.com/shaban/insertloop/devices"
)

// RenderContext carries the live buffers for one processing block. Audio and
// Midi are owned by the enclosing plugin; StartFrame/NumFrames delimit the
// block's span inside Audio.
type RenderContext struct {
	Audio      *buffer.Audio
	Midi       *buffer.Midi
	StartFrame int
	NumFrames  int
}

// Insert routes a block's audio or MIDI out to an external device loop and
// restores whatever the device returned on a later block. It owns both
// staging buffer pairs outright; the device adapter only ever touches them
// through ReadSend and WriteReturn.
//
// Two callers exist concurrently: the block-processing thread
// (Initialize/Deinitialize/ProcessBlock) and the device-adapter thread
// (ReadSend/WriteReturn). One mutex guards the staging buffers for both;
// it is held only for the copy work, never across resizes; those happen in
// Initialize/Deinitialize, which the host serializes against steady-state
// processing.
type Insert struct {
	mu          sync.Mutex
	sendAudio   *buffer.Audio
	returnAudio *buffer.Audio
	sendMidi    buffer.Midi
	returnMidi  buffer.Midi

	// Resolved connection types, read lock-free on the audio thread.
	sendType   atomic.Int32
	returnType atomic.Int32

	latencySeconds atomic.Uint64 // float64 bits

	cfgMu          sync.Mutex
	name           string
	inputDevice    string
	outputDevice   string
	manualAdjustMs float64
}

// NewInsert creates an insert with no devices resolved. Both directions stay
// disabled until UpdateDeviceTypes runs against an inventory.
func NewInsert() *Insert {
	return &Insert{}
}

// SetName sets the display name.
func (in *Insert) SetName(name string) {
	in.cfgMu.Lock()
	in.name = name
	in.cfgMu.Unlock()
}

// Name returns the configured display name, or a default.
func (in *Insert) Name() string {
	in.cfgMu.Lock()
	defer in.cfgMu.Unlock()
	if in.name != "" {
		return in.name
	}
	return "Insert"
}

// SetInputDevice configures the return-side device name. Takes effect on the
// next UpdateDeviceTypes.
func (in *Insert) SetInputDevice(name string) {
	in.cfgMu.Lock()
	in.inputDevice = name
	in.cfgMu.Unlock()
}

// InputDevice returns the configured return-side device name.
func (in *Insert) InputDevice() string {
	in.cfgMu.Lock()
	defer in.cfgMu.Unlock()
	return in.inputDevice
}

// SetOutputDevice configures the send-side device name. Takes effect on the
// next UpdateDeviceTypes.
func (in *Insert) SetOutputDevice(name string) {
	in.cfgMu.Lock()
	in.outputDevice = name
	in.cfgMu.Unlock()
}

// OutputDevice returns the configured send-side device name.
func (in *Insert) OutputDevice() string {
	in.cfgMu.Lock()
	defer in.cfgMu.Unlock()
	return in.outputDevice
}

// SetManualAdjustMs sets the manual latency adjustment. The reported latency
// changes on the next Initialize or RecomputeLatency.
func (in *Insert) SetManualAdjustMs(ms float64) {
	in.cfgMu.Lock()
	in.manualAdjustMs = ms
	in.cfgMu.Unlock()
}

// ManualAdjustMs returns the manual latency adjustment in milliseconds.
func (in *Insert) ManualAdjustMs() float64 {
	in.cfgMu.Lock()
	defer in.cfgMu.Unlock()
	return in.manualAdjustMs
}

// Initialize (re)allocates both audio staging buffers to {2, blockFrames},
// clears all staging, and recomputes the reported latency. Must complete
// before any ProcessBlock call using the new sizing; the host serializes it
// against block processing and adapter calls.
func (in *Insert) Initialize(blockFrames int, sampleRate float64) {
	in.mu.Lock()
	in.sendAudio = buffer.New(2, blockFrames)
	in.returnAudio = buffer.New(2, blockFrames)
	in.sendMidi.Clear()
	in.returnMidi.Clear()
	in.mu.Unlock()

	in.RecomputeLatency(blockFrames, sampleRate)
}

// RecomputeLatency re-derives the round-trip latency estimate without
// touching the staging buffers. The estimate is the manual adjustment plus
// one block; it is a pure function of configuration, never a measurement.
func (in *Insert) RecomputeLatency(blockFrames int, sampleRate float64) {
	adjust := in.ManualAdjustMs()
	seconds := adjust / 1000.0
	if sampleRate > 0 {
		seconds += float64(blockFrames) / sampleRate
	}
	in.latencySeconds.Store(math.Float64bits(seconds))
}

// Deinitialize releases the staging buffers. Idempotent.
func (in *Insert) Deinitialize() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.sendAudio = nil
	in.returnAudio = nil
	in.sendMidi.Clear()
	in.returnMidi.Clear()
}

// LatencySeconds returns the reported round-trip latency in seconds.
func (in *Insert) LatencySeconds() float64 {
	return math.Float64frombits(in.latencySeconds.Load())
}

// Latency returns the reported round-trip latency as a duration.
func (in *Insert) Latency() time.Duration {
	return time.Duration(in.LatencySeconds() * float64(time.Second))
}

// UpdateDeviceTypes re-resolves both connection types against the inventory:
// the return type from the configured input device, the send type from the
// configured output device. Must be re-run whenever the device selection or
// the inventory changes; the result feeds the next ProcessBlock.
func (in *Insert) UpdateDeviceTypes(inv *devices.Inventory) {
	input, output := in.InputDevice(), in.OutputDevice()
	in.returnType.Store(int32(inv.ResolveInput(input)))
	in.sendType.Store(int32(inv.ResolveOutput(output)))
}

// PossibleReturnDeviceNames lists the inventory names selectable as the
// return-side input device.
func (in *Insert) PossibleReturnDeviceNames(inv *devices.Inventory) []string {
	if inv == nil {
		return nil
	}
	return inv.InputNames()
}

// PossibleSendDeviceNames lists the inventory names selectable as the
// send-side output device.
func (in *Insert) PossibleSendDeviceNames(inv *devices.Inventory) []string {
	if inv == nil {
		return nil
	}
	return inv.OutputNames()
}

// SendType returns the resolved send-side connection type.
func (in *Insert) SendType() devices.DeviceType {
	return devices.DeviceType(in.sendType.Load())
}

// ReturnType returns the resolved return-side connection type.
func (in *Insert) ReturnType() devices.DeviceType {
	return devices.DeviceType(in.returnType.Load())
}

// HasAudio reports whether either direction carries audio.
func (in *Insert) HasAudio() bool {
	return in.SendType() == devices.TypeAudio || in.ReturnType() == devices.TypeAudio
}

// HasMidi reports whether either direction carries MIDI.
func (in *Insert) HasMidi() bool {
	return in.SendType() == devices.TypeMidi || in.ReturnType() == devices.TypeMidi
}

// ProcessBlock stages the block's outgoing data for the device adapter and
// restores whatever the adapter deposited since the previous block.
//
// With no send device resolved the insert is a bypass: the block passes
// through untouched and nothing is staged. Otherwise the live buffers are
// consumed (MIDI cleared, audio silenced over the block span) so
// downstream never hears the same material both live and looped back.
func (in *Insert) ProcessBlock(rc *RenderContext) {
	if rc == nil {
		return
	}
	sendType := in.SendType()
	if sendType == devices.TypeNone {
		return
	}
	returnType := in.ReturnType()

	in.mu.Lock()
	defer in.mu.Unlock()

	// Fill send staging with the block's outgoing data
	if sendType == devices.TypeAudio && rc.Audio != nil {
		buffer.CopyIntersection(in.sendAudio, rc.Audio.From(rc.StartFrame))
	} else if sendType == devices.TypeMidi && rc.Midi != nil {
		in.sendMidi.Clear()
		in.sendMidi.MergeFromAndClear(rc.Midi)
	}

	// Consume the live block
	if rc.Midi != nil {
		rc.Midi.Clear()
	}
	if rc.Audio != nil {
		rc.Audio.ClearRange(rc.StartFrame, rc.NumFrames)
	}

	// Restore the previous round trip
	if returnType == devices.TypeAudio && rc.Audio != nil {
		buffer.CopyIntersection(rc.Audio.From(rc.StartFrame), in.returnAudio)
	} else if returnType == devices.TypeMidi && rc.Midi != nil {
		rc.Midi.MergeFromAndClear(&in.returnMidi)
	}
}

// ReadSend hands the staged send data to the device adapter. Audio is copied
// non-destructively (the staging buffer stands until the next block
// overwrites it); MIDI is moved, since events must not replay. Nil
// destinations skip that leg.
func (in *Insert) ReadSend(destAudio *buffer.Audio, destMidi *buffer.Midi) {
	in.mu.Lock()
	defer in.mu.Unlock()

	switch devices.DeviceType(in.sendType.Load()) {
	case devices.TypeAudio:
		if destAudio != nil {
			buffer.CopyIntersection(destAudio, in.sendAudio)
		}
	case devices.TypeMidi:
		if destMidi != nil {
			destMidi.MergeFromAndClear(&in.sendMidi)
		}
	}
}

// WriteReturn deposits processed data from the device adapter. Audio
// overwrites the return staging; MIDI accumulates, so multiple deposits
// before the next drain are all delivered. Nil sources skip that leg.
func (in *Insert) WriteReturn(srcAudio *buffer.Audio, srcMidi *buffer.Midi) {
	in.mu.Lock()
	defer in.mu.Unlock()

	switch devices.DeviceType(in.returnType.Load()) {
	case devices.TypeAudio:
		if srcAudio != nil {
			buffer.CopyIntersection(in.returnAudio, srcAudio)
		}
	case devices.TypeMidi:
		if srcMidi != nil {
			in.returnMidi.MergeFrom(srcMidi)
		}
	}
}
