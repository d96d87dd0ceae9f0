package insertloop

import (
	"math"
	"testing"

	"github.com/shaban/insertloop/buffer"
	"github.com/shaban/insertloop/internal/testutil"
)

func TestMuteUnmuteRestoresLevel(t *testing.T) {
	send := NewAuxSend(0)
	send.SetGainDb(-6)

	send.SetMute(true)
	if !send.Muted() {
		t.Fatal("send should be muted")
	}
	if got := send.GainDb(); got > MuteFloorDb+1e-9 {
		t.Errorf("muted gain = %v dB, want the floor", got)
	}
	if got := send.LastGainBeforeMuteDb(); math.Abs(got+6) > 1e-9 {
		t.Errorf("recorded gain = %v dB, want -6", got)
	}

	send.SetMute(false)
	if send.Muted() {
		t.Fatal("send should be unmuted")
	}
	if got := send.GainDb(); math.Abs(got+6) > 1e-9 {
		t.Errorf("restored gain = %v dB, want -6", got)
	}
}

func TestUnmuteWithoutHistoryRestoresUnity(t *testing.T) {
	send := NewAuxSend(0)
	send.SetGainDb(MuteFloorDb)
	if !send.Muted() {
		t.Fatal("send at the floor should read muted")
	}

	send.SetMute(false)
	if got := send.GainDb(); got != 0 {
		t.Errorf("restored gain = %v dB, want exactly 0", got)
	}
}

func TestUnmuteWithMutedMemoryRestoresUnity(t *testing.T) {
	// A session saved while muted persists a floor-level memory; unmute must
	// not restore silence.
	send := NewAuxSend(0)
	send.SetGainDb(MuteFloorDb)
	send.SetLastGainBeforeMuteDb(MuteFloorDb)

	send.SetMute(false)
	if got := send.GainDb(); got != 0 {
		t.Errorf("restored gain = %v dB, want exactly 0", got)
	}
}

func TestMuteWhileMutedKeepsMemory(t *testing.T) {
	send := NewAuxSend(0)
	send.SetGainDb(-3)

	send.SetMute(true)
	send.SetMute(true)
	if got := send.LastGainBeforeMuteDb(); math.Abs(got+3) > 1e-9 {
		t.Errorf("recorded gain = %v dB, want -3 preserved", got)
	}

	send.SetMute(false)
	if got := send.GainDb(); math.Abs(got+3) > 1e-9 {
		t.Errorf("restored gain = %v dB, want -3", got)
	}
}

func TestMuteTransitionsAreTwoWrites(t *testing.T) {
	send := NewAuxSend(0)
	send.SetGainDb(-6)

	var writes []float64
	send.Gain().AddListener(func(v float64) {
		writes = append(writes, DbForPosition(v))
	})

	send.SetMute(true)
	if len(writes) != 2 {
		t.Fatalf("mute produced %d writes, want 2 (nudge then floor)", len(writes))
	}
	if math.Abs(writes[0]-(-6.01)) > 1e-6 {
		t.Errorf("first mute write = %v dB, want -6.01", writes[0])
	}
	if writes[1] > MuteFloorDb+1e-9 {
		t.Errorf("second mute write = %v dB, want the floor", writes[1])
	}

	writes = nil
	send.SetMute(false)
	if len(writes) != 2 {
		t.Fatalf("unmute produced %d writes, want 2 (nudge then target)", len(writes))
	}
	if writes[0] <= MuteFloorDb {
		t.Errorf("first unmute write = %v dB, want above the floor", writes[0])
	}
	if math.Abs(writes[1]-(-6)) > 1e-9 {
		t.Errorf("second unmute write = %v dB, want -6", writes[1])
	}
}

func TestMuteMemoryCallback(t *testing.T) {
	send := NewAuxSend(0)
	send.SetGainDb(-12)

	var recorded []float64
	send.OnMuteMemoryChange(func(db float64) { recorded = append(recorded, db) })

	send.SetMute(true)
	send.SetMute(true) // already muted, no new record
	if len(recorded) != 1 || math.Abs(recorded[0]+12) > 1e-9 {
		t.Errorf("recorded = %v, want one entry of -12", recorded)
	}
}

func TestMutedBoundary(t *testing.T) {
	send := NewAuxSend(0)

	send.SetGainDb(MuteThresholdDb)
	if !send.Muted() {
		t.Error("send at the threshold should read muted")
	}
	send.SetGainDb(MuteThresholdDb + 0.1)
	if send.Muted() {
		t.Error("send just above the threshold should read unmuted")
	}
}

func TestApplyToBlockUnityIsIdentity(t *testing.T) {
	send := NewAuxSend(0)
	send.Initialize()

	audio := buffer.New(2, 16)
	testutil.FillRamp(audio)
	want := buffer.New(2, 16)
	testutil.FillRamp(want)

	send.ApplyToBlock(&RenderContext{Audio: audio, NumFrames: 16})
	testutil.WantSamples(t, want, audio)
}

func TestApplyToBlockSteadyGain(t *testing.T) {
	send := NewAuxSend(0)
	send.SetGainDb(-6)
	send.Initialize()

	audio := buffer.New(2, 16)
	testutil.FillConst(audio, 1)
	send.ApplyToBlock(&RenderContext{Audio: audio, NumFrames: 16})

	want := GainForDb(-6)
	for c := 0; c < 2; c++ {
		for i, s := range audio.Channel(c) {
			if math.Abs(s-want) > 1e-12 {
				t.Fatalf("channel %d frame %d = %v, want %v", c, i, s, want)
			}
		}
	}
}

func TestApplyToBlockRampsGainChange(t *testing.T) {
	const frames = 64
	send := NewAuxSend(0)
	send.Initialize() // primes last gain at unity

	send.SetGainDb(-20)
	audio := buffer.New(1, frames)
	testutil.FillConst(audio, 1)
	send.ApplyToBlock(&RenderContext{Audio: audio, NumFrames: frames})

	ch := audio.Channel(0)
	target := GainForDb(-20)
	// Strictly decreasing ramp ending at the target
	for i := 1; i < frames; i++ {
		if ch[i] >= ch[i-1] {
			t.Fatalf("ramp not decreasing at frame %d: %v >= %v", i, ch[i], ch[i-1])
		}
	}
	if math.Abs(ch[frames-1]-target) > 1e-9 {
		t.Errorf("ramp endpoint = %v, want %v", ch[frames-1], target)
	}

	// Next block is steady at the target
	steady := buffer.New(1, frames)
	testutil.FillConst(steady, 1)
	send.ApplyToBlock(&RenderContext{Audio: steady, NumFrames: frames})
	for i, s := range steady.Channel(0) {
		if math.Abs(s-target) > 1e-12 {
			t.Fatalf("steady frame %d = %v, want %v", i, s, target)
		}
	}
}

func TestApplyToBlockMuteSilences(t *testing.T) {
	const frames = 32
	send := NewAuxSend(0)
	send.Initialize()
	send.SetMute(true)

	// First block ramps down to zero
	audio := buffer.New(2, frames)
	testutil.FillConst(audio, 1)
	send.ApplyToBlock(&RenderContext{Audio: audio, NumFrames: frames})

	// From the second block on the output is exact silence
	next := buffer.New(2, frames)
	testutil.FillConst(next, 1)
	send.ApplyToBlock(&RenderContext{Audio: next, NumFrames: frames})
	testutil.WantSilent(t, next)
}

type testNamer map[int]string

func (n testNamer) AuxBusName(bus int) string { return n[bus] }

func TestNaming(t *testing.T) {
	send := NewAuxSend(1)
	if got := send.Name(); got != "Aux Send #2" {
		t.Errorf("Name = %q", got)
	}
	if got := send.ShortName(); got != "Send:2" {
		t.Errorf("ShortName = %q", got)
	}
	if got := send.BusName(); got != "Bus #2" {
		t.Errorf("BusName = %q", got)
	}

	send.SetBusNamer(testNamer{1: "Reverb"})
	if got := send.Name(); got != "S:Reverb" {
		t.Errorf("named Name = %q", got)
	}
	if got := send.ShortName(); got != "S:Reverb" {
		t.Errorf("named ShortName = %q", got)
	}
	if got := send.BusName(); got != "Reverb" {
		t.Errorf("named BusName = %q", got)
	}

	send.SetBusNumber(0)
	if got := send.BusNumber(); got != 0 {
		t.Errorf("BusNumber = %d", got)
	}
	if got := send.Name(); got != "Aux Send #1" {
		t.Errorf("moved Name = %q", got)
	}
}

func TestBusNames(t *testing.T) {
	names := BusNames(testNamer{0: "Reverb"}, 3)
	want := []string{"Bus #1 (Reverb)", "Bus #2", "Bus #3"}
	if len(names) != len(want) {
		t.Fatalf("BusNames = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("BusNames = %v, want %v", names, want)
		}
	}
}
