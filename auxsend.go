package insertloop

import (
	"fmt"
	"sync"

	"github.com/cwbudde/algo-vecmath"
)

// BusNamer resolves user-assigned aux bus names. Optional; unnamed buses
// fall back to DefaultBusName.
type BusNamer interface {
	AuxBusName(bus int) string
}

// AuxSend exposes a send-level fader with decibel semantics and a mute
// protocol that automation recording always captures. Mute and unmute each
// perform two distinct writes, a small nudge and then the target, because a
// recorder keyed on value changes would otherwise coalesce a transition
// whose endpoint equals the current value. Do not collapse them into one.
type AuxSend struct {
	gain *Param

	mu                 sync.Mutex
	bus                int
	lastGainBeforeMute float64 // dB, written only on the unmuted→muted edge
	lastGain           float64 // linear gain at the end of the previous block
	namer              BusNamer
	onMuteMemory       func(db float64)
}

// NewAuxSend creates a send on the given bus at unity gain.
func NewAuxSend(bus int) *AuxSend {
	return &AuxSend{
		gain: NewParam("send level", PositionForDb(0)),
		bus:  bus,
	}
}

// Gain returns the underlying automatable parameter (fader position).
func (a *AuxSend) Gain() *Param { return a.gain }

// SetBusNamer installs a resolver for user-assigned bus names.
func (a *AuxSend) SetBusNamer(n BusNamer) {
	a.mu.Lock()
	a.namer = n
	a.mu.Unlock()
}

// OnMuteMemoryChange registers a callback fired when lastGainBeforeMute is
// recorded, so the host can persist it.
func (a *AuxSend) OnMuteMemoryChange(fn func(db float64)) {
	a.mu.Lock()
	a.onMuteMemory = fn
	a.mu.Unlock()
}

// BusNumber returns the aux bus index.
func (a *AuxSend) BusNumber() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bus
}

// SetBusNumber moves the send to another bus.
func (a *AuxSend) SetBusNumber(bus int) {
	a.mu.Lock()
	a.bus = bus
	a.mu.Unlock()
}

// Initialize primes the gain ramp so the first block doesn't fade in from
// whatever the previous session left behind.
func (a *AuxSend) Initialize() {
	g := GainForDb(a.GainDb())
	a.mu.Lock()
	a.lastGain = g
	a.mu.Unlock()
}

// GainDb returns the current send level in decibels.
func (a *AuxSend) GainDb() float64 {
	return DbForPosition(a.gain.Value())
}

// SetGainDb sets the send level in decibels. Writing the level the fader is
// already at produces no change and no automation event.
func (a *AuxSend) SetGainDb(db float64) {
	a.gain.Set(PositionForDb(db))
}

// Muted reports whether the send is at or below the mute threshold.
func (a *AuxSend) Muted() bool {
	return a.GainDb() <= MuteThresholdDb
}

// SetMute toggles the mute state.
//
// Muting records the current gain, nudges 0.01 dB below it, then parks at
// the floor; unmuting nudges 0.01 dB up from the current gain, then jumps to
// the recorded level, or unity when nothing meaningful was recorded (fresh
// node, or restored from a muted session). Muting an already-muted send is a
// no-op so the recorded level is never clobbered with a muted value.
func (a *AuxSend) SetMute(muted bool) {
	if muted {
		if a.Muted() {
			return
		}
		db := a.GainDb()
		a.mu.Lock()
		a.lastGainBeforeMute = db
		notify := a.onMuteMemory
		a.mu.Unlock()
		if notify != nil {
			notify(db)
		}

		a.SetGainDb(db - 0.01) // needed so that automation is recorded correctly
		a.SetGainDb(MuteFloorDb)
		return
	}

	a.mu.Lock()
	if a.lastGainBeforeMute <= MuteFloorDb {
		a.lastGainBeforeMute = 0
	}
	target := a.lastGainBeforeMute
	a.mu.Unlock()

	a.SetGainDb(a.GainDb() + 0.01) // needed so that automation is recorded correctly
	a.SetGainDb(target)
}

// LastGainBeforeMuteDb returns the gain the next unmute restores.
func (a *AuxSend) LastGainBeforeMuteDb() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastGainBeforeMute
}

// SetLastGainBeforeMuteDb restores the unmute target, typically from the
// persisted property set.
func (a *AuxSend) SetLastGainBeforeMuteDb(db float64) {
	a.mu.Lock()
	a.lastGainBeforeMute = db
	a.mu.Unlock()
}

// ApplyToBlock applies the fader gain to the block's audio, ramping linearly
// from the previous block's gain so level jumps don't click. The steady
// state is a plain vector scale.
func (a *AuxSend) ApplyToBlock(rc *RenderContext) {
	if rc == nil || rc.Audio == nil {
		return
	}
	target := GainForDb(a.GainDb())
	a.mu.Lock()
	last := a.lastGain
	a.lastGain = target
	a.mu.Unlock()

	blk := rc.Audio.From(rc.StartFrame)
	n := blk.Frames()
	if rc.NumFrames > 0 && rc.NumFrames < n {
		n = rc.NumFrames
	}
	if n == 0 {
		return
	}

	if last == target {
		if target == 1 {
			return
		}
		for c := 0; c < blk.Channels(); c++ {
			ch := blk.Channel(c)[:n]
			vecmath.ScaleBlock(ch, ch, target)
		}
		return
	}

	step := (target - last) / float64(n)
	for c := 0; c < blk.Channels(); c++ {
		ch := blk.Channel(c)[:n]
		g := last
		for i := range ch {
			g += step
			ch[i] *= g
		}
	}
}

// Name returns the send's display name, using the assigned bus name when
// one exists.
func (a *AuxSend) Name() string {
	a.mu.Lock()
	bus, namer := a.bus, a.namer
	a.mu.Unlock()

	if namer != nil {
		if nm := namer.AuxBusName(bus); nm != "" {
			return "S:" + nm
		}
	}
	return fmt.Sprintf("Aux Send #%d", bus+1)
}

// ShortName returns a compact display name.
func (a *AuxSend) ShortName() string {
	a.mu.Lock()
	bus, namer := a.bus, a.namer
	a.mu.Unlock()

	if namer != nil {
		if nm := namer.AuxBusName(bus); nm != "" {
			return "S:" + nm
		}
	}
	return fmt.Sprintf("Send:%d", bus+1)
}

// BusName returns the effective name of the send's bus.
func (a *AuxSend) BusName() string {
	a.mu.Lock()
	bus, namer := a.bus, a.namer
	a.mu.Unlock()

	if namer != nil {
		if nm := namer.AuxBusName(bus); nm != "" {
			return nm
		}
	}
	return DefaultBusName(bus)
}

// DefaultBusName returns the fallback name for an aux bus index.
func DefaultBusName(bus int) string {
	return fmt.Sprintf("Bus #%d", bus+1)
}

// BusNames lists display names for the first max buses, annotating assigned
// names after the default.
func BusNames(namer BusNamer, max int) []string {
	names := make([]string, 0, max)
	for i := 0; i < max; i++ {
		nm := DefaultBusName(i)
		if namer != nil {
			if assigned := namer.AuxBusName(i); assigned != "" {
				nm = fmt.Sprintf("%s (%s)", nm, assigned)
			}
		}
		names = append(names, nm)
	}
	return names
}
