// Package adapter contains device-loop adapters: the components that carry
// staged send data out to an external device and deposit the device's output
// as return data. The insert router never hands them more than its two
// transfer entry points.
package adapter

import (
	"github.com/cwbudde/algo-vecmath"

	"github.com/shaban/insertloop"
	"github.com/shaban/insertloop/buffer"
)

// Loop pumps one round trip between an insert and an external device path.
// Pump is expected to run on the adapter's own cadence (hardware callback,
// timer, or the test/demo loop), never on the audio thread.
type Loop interface {
	Pump() error
}

// Loopback is an in-memory device loop: everything staged for send comes
// back as return data on the following block, optionally attenuated to
// simulate loss through the external chain. Used by tests and the demo.
type Loopback struct {
	insert *insertloop.Insert
	audio  *buffer.Audio
	midi   buffer.Midi
	gain   float64
}

// NewLoopback creates a loopback sized to the insert's staging dimensions.
func NewLoopback(ins *insertloop.Insert, channels, frames int) *Loopback {
	return &Loopback{
		insert: ins,
		audio:  buffer.New(channels, frames),
		gain:   1.0,
	}
}

// SetGain sets the linear gain applied to the audio leg of the loop.
func (l *Loopback) SetGain(gain float64) {
	l.gain = gain
}

// Pump drains the staged send data, applies the loop gain, and deposits the
// result as return data. Anything deposited here surfaces in the next
// ProcessBlock.
func (l *Loopback) Pump() error {
	l.insert.ReadSend(l.audio, &l.midi)

	if l.gain != 1.0 {
		for c := 0; c < l.audio.Channels(); c++ {
			ch := l.audio.Channel(c)
			vecmath.ScaleBlock(ch, ch, l.gain)
		}
	}

	l.insert.WriteReturn(l.audio, &l.midi)
	l.midi.Clear()
	return nil
}
