package buffer

import (
	"sort"

	"gitlab.com/gomidi/midi/v2"
)

// Event is one MIDI message stamped with its frame offset inside the block.
type Event struct {
	Frame   int32
	Message midi.Message
}

// Midi holds a frame-ordered sequence of MIDI events scoped to one block.
// The zero value is ready to use. Clear keeps capacity so steady-state
// operation stops allocating once the event rate settles.
type Midi struct {
	events []Event
}

// Add appends an event, keeping the list ordered by frame offset. Events at
// the same offset keep insertion order.
func (m *Midi) Add(frame int32, msg midi.Message) {
	m.events = append(m.events, Event{Frame: frame, Message: msg})
	// Fast path: appends in playback order need no sort.
	n := len(m.events)
	if n > 1 && m.events[n-2].Frame > frame {
		sort.SliceStable(m.events, func(i, j int) bool {
			return m.events[i].Frame < m.events[j].Frame
		})
	}
}

// Len returns the number of buffered events.
func (m *Midi) Len() int {
	if m == nil {
		return 0
	}
	return len(m.events)
}

// Empty reports whether no events are buffered.
func (m *Midi) Empty() bool { return m.Len() == 0 }

// Events returns the buffered events in frame order. The slice aliases
// internal storage and is only valid until the next mutation.
func (m *Midi) Events() []Event {
	if m == nil {
		return nil
	}
	return m.events
}

// Clear drops all events but keeps capacity.
func (m *Midi) Clear() {
	if m == nil {
		return
	}
	m.events = m.events[:0]
}

// MergeFrom appends src's events without modifying src, re-establishing
// frame order across the union.
func (m *Midi) MergeFrom(src *Midi) {
	if src == nil || len(src.events) == 0 {
		return
	}
	needSort := len(m.events) > 0 && m.events[len(m.events)-1].Frame > src.events[0].Frame
	m.events = append(m.events, src.events...)
	if needSort {
		sort.SliceStable(m.events, func(i, j int) bool {
			return m.events[i].Frame < m.events[j].Frame
		})
	}
}

// MergeFromAndClear moves src's events into m and leaves src empty. Used
// wherever events must not replay on the next drain.
func (m *Midi) MergeFromAndClear(src *Midi) {
	m.MergeFrom(src)
	src.Clear()
}
