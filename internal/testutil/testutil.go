// Package testutil carries shared helpers for buffer construction and
// comparison in tests.
package testutil

import (
	"math"
	"testing"

	"gitlab.com/gomidi/midi/v2"

	"github.com/shaban/insertloop/buffer"
)

// FillConst sets every sample of the block to v.
func FillConst(b *buffer.Audio, v float64) {
	for c := 0; c < b.Channels(); c++ {
		ch := b.Channel(c)
		for i := range ch {
			ch[i] = v
		}
	}
}

// FillRamp writes a channel-offset ramp so every sample position is
// distinguishable: channel c, frame i holds c + i/1000.
func FillRamp(b *buffer.Audio) {
	for c := 0; c < b.Channels(); c++ {
		ch := b.Channel(c)
		for i := range ch {
			ch[i] = float64(c) + float64(i)/1000.0
		}
	}
}

// FillSine writes one sine cycle per period frames at amplitude amp.
func FillSine(b *buffer.Audio, period int, amp float64) {
	for c := 0; c < b.Channels(); c++ {
		ch := b.Channel(c)
		for i := range ch {
			ch[i] = amp * math.Sin(2*math.Pi*float64(i)/float64(period))
		}
	}
}

// NoteOns builds a MIDI buffer with a note-on per frame offset, key rising
// from 60 so events stay distinguishable.
func NoteOns(frames ...int32) *buffer.Midi {
	var m buffer.Midi
	for i, f := range frames {
		m.Add(f, midi.NoteOn(0, uint8(60+i), 100))
	}
	return &m
}

// WantSamples fails the test unless the two blocks match exactly in shape
// and content.
func WantSamples(t *testing.T, want, got *buffer.Audio) {
	t.Helper()
	if want.Channels() != got.Channels() || want.Frames() != got.Frames() {
		t.Fatalf("shape mismatch: want %dx%d, got %dx%d",
			want.Channels(), want.Frames(), got.Channels(), got.Frames())
	}
	for c := 0; c < want.Channels(); c++ {
		wc, gc := want.Channel(c), got.Channel(c)
		for i := range wc {
			if wc[i] != gc[i] {
				t.Fatalf("sample mismatch at channel %d frame %d: want %v, got %v", c, i, wc[i], gc[i])
			}
		}
	}
}

// WantSilent fails the test unless every sample of the block is zero.
func WantSilent(t *testing.T, b *buffer.Audio) {
	t.Helper()
	for c := 0; c < b.Channels(); c++ {
		for i, s := range b.Channel(c) {
			if s != 0 {
				t.Fatalf("expected silence, found %v at channel %d frame %d", s, c, i)
			}
		}
	}
}

// WantFrames fails the test unless the MIDI buffer holds exactly the given
// frame offsets in order.
func WantFrames(t *testing.T, m *buffer.Midi, frames ...int32) {
	t.Helper()
	events := m.Events()
	if len(events) != len(frames) {
		t.Fatalf("event count mismatch: want %d, got %d", len(frames), len(events))
	}
	for i, ev := range events {
		if ev.Frame != frames[i] {
			t.Fatalf("event %d at frame %d, want %d", i, ev.Frame, frames[i])
		}
	}
}
