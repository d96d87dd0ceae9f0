// Package buffer provides the audio and MIDI staging primitives used by the
// insert router: fixed-size sample blocks, shared-storage views, and
// time-ordered MIDI event lists with merge semantics matching an external
// device round trip.
package buffer

// Audio is a non-interleaved block of float64 samples, channels × frames.
// All channels have the same frame count.
type Audio struct {
	samples [][]float64
	frames  int
}

// New allocates a cleared audio block with the given dimensions.
// Non-positive dimensions yield an empty block.
func New(channels, frames int) *Audio {
	if channels < 0 {
		channels = 0
	}
	if frames < 0 {
		frames = 0
	}
	b := &Audio{
		samples: make([][]float64, channels),
		frames:  frames,
	}
	for c := range b.samples {
		b.samples[c] = make([]float64, frames)
	}
	return b
}

// Channels returns the channel count.
func (b *Audio) Channels() int {
	if b == nil {
		return 0
	}
	return len(b.samples)
}

// Frames returns the frame count.
func (b *Audio) Frames() int {
	if b == nil {
		return 0
	}
	return b.frames
}

// Channel returns the sample slice for channel c. The slice aliases the
// block's storage; writes are visible to all views of the block.
func (b *Audio) Channel(c int) []float64 {
	return b.samples[c]
}

// Clear silences the whole block.
func (b *Audio) Clear() {
	if b == nil {
		return
	}
	for c := range b.samples {
		ch := b.samples[c]
		for i := range ch {
			ch[i] = 0
		}
	}
}

// ClearRange silences n frames starting at from. The range is clipped to the
// block; out-of-range requests clear nothing.
func (b *Audio) ClearRange(from, n int) {
	if b == nil || from >= b.frames {
		return
	}
	if from < 0 {
		n += from
		from = 0
	}
	if from+n > b.frames {
		n = b.frames - from
	}
	if n <= 0 {
		return
	}
	for c := range b.samples {
		ch := b.samples[c][from : from+n]
		for i := range ch {
			ch[i] = 0
		}
	}
}

// From returns a view of the block starting at the given frame. The view
// shares storage with the receiver. Frames past the end yield an empty view.
func (b *Audio) From(frame int) *Audio {
	if b == nil {
		return nil
	}
	if frame <= 0 {
		return b
	}
	if frame > b.frames {
		frame = b.frames
	}
	v := &Audio{
		samples: make([][]float64, len(b.samples)),
		frames:  b.frames - frame,
	}
	for c := range b.samples {
		v.samples[c] = b.samples[c][frame:]
	}
	return v
}

// CopyIntersection copies the overlapping channel/frame region from src into
// dst and leaves the rest of dst untouched. Mismatched shapes are expected;
// neither buffer is resized.
func CopyIntersection(dst, src *Audio) {
	if dst == nil || src == nil {
		return
	}
	channels := dst.Channels()
	if c := src.Channels(); c < channels {
		channels = c
	}
	frames := dst.Frames()
	if f := src.Frames(); f < frames {
		frames = f
	}
	for c := 0; c < channels; c++ {
		copy(dst.samples[c][:frames], src.samples[c][:frames])
	}
}
