// Package analyze provides block-level signal analysis primitives for
// verifying insert routing and send levels: per-block metrics, send/return
// path comparison, and send-ratio checks. Inputs are buffers, not live
// taps, so the functions are pure and safe to call from tests.
package analyze

import (
	"math"

	"github.com/shaban/insertloop/buffer"
)

// DefaultMinSignalLevel is the RMS floor below which a block counts as
// silent (about -60 dB).
const DefaultMinSignalLevel = 0.001

// Metrics summarizes one audio block.
type Metrics struct {
	RMS    float64 // Root-mean-square level across all channels
	Peak   float64 // Largest absolute sample value
	Frames int     // Frames analyzed
}

// Measure computes metrics over the whole block.
func Measure(b *buffer.Audio) Metrics {
	if b == nil || b.Channels() == 0 || b.Frames() == 0 {
		return Metrics{}
	}
	m := Metrics{Frames: b.Frames()}

	var sum float64
	for c := 0; c < b.Channels(); c++ {
		for _, s := range b.Channel(c) {
			sum += s * s
			if a := math.Abs(s); a > m.Peak {
				m.Peak = a
			}
		}
	}
	m.RMS = math.Sqrt(sum / float64(b.Channels()*b.Frames()))
	return m
}

// PathAnalysis contains results of send/return path verification
type PathAnalysis struct {
	SentDetected   bool    // Signal present in the sent block
	ReturnDetected bool    // Signal present in the returned block
	SentRMS        float64 // Sent signal level
	ReturnRMS      float64 // Returned signal level
	GainChange     float64 // dB change across the round trip
}

// ComparePath compares what went out to the device with what came back.
func ComparePath(sent, returned *buffer.Audio, minSignal float64) *PathAnalysis {
	if minSignal <= 0 {
		minSignal = DefaultMinSignalLevel
	}
	sm := Measure(sent)
	rm := Measure(returned)

	analysis := &PathAnalysis{
		SentDetected:   sm.RMS >= minSignal,
		ReturnDetected: rm.RMS >= minSignal,
		SentRMS:        sm.RMS,
		ReturnRMS:      rm.RMS,
	}
	if sm.RMS > 0 && rm.RMS > 0 {
		analysis.GainChange = 20 * math.Log10(rm.RMS/sm.RMS)
	}
	return analysis
}

// SendAnalysis contains results of an aux send level check
type SendAnalysis struct {
	SourceRMS     float64 // Level before the send fader
	SendRMS       float64 // Level after the send fader
	Ratio         float64 // Measured send/source ratio
	ExpectedRatio float64 // Linear gain the fader should apply
	DeviationDb   float64 // dB distance between measured and expected
}

// AnalyzeSend verifies an aux send level against the gain the fader is
// expected to apply.
func AnalyzeSend(source, send *buffer.Audio, expectedGain float64) *SendAnalysis {
	sm := Measure(source)
	dm := Measure(send)

	analysis := &SendAnalysis{
		SourceRMS:     sm.RMS,
		SendRMS:       dm.RMS,
		ExpectedRatio: expectedGain,
	}
	if sm.RMS > 0 {
		analysis.Ratio = dm.RMS / sm.RMS
	}
	if analysis.Ratio > 0 && expectedGain > 0 {
		analysis.DeviationDb = math.Abs(20 * math.Log10(analysis.Ratio/expectedGain))
	}
	return analysis
}

// WithinTolerance reports whether the measured send ratio lands within the
// given dB tolerance of the expected gain. A silent source passes only when
// the send is silent too.
func (s *SendAnalysis) WithinTolerance(toleranceDb float64) bool {
	if s.SourceRMS == 0 {
		return s.SendRMS == 0
	}
	if s.ExpectedRatio == 0 {
		return s.SendRMS < DefaultMinSignalLevel
	}
	return s.DeviationDb <= toleranceDb
}
