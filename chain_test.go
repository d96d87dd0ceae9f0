package insertloop

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shaban/insertloop/buffer"
	"github.com/shaban/insertloop/config"
	"github.com/shaban/insertloop/devices"
	"github.com/shaban/insertloop/internal/testutil"
)

func chainLister() devices.StaticLister {
	return devices.StaticLister{
		AudioDevices: devices.AudioDevices{
			{
				Device:             devices.Device{Name: "Interface", IsOnline: true},
				InputChannelCount:  2,
				OutputChannelCount: 2,
			},
		},
		MIDIDevices: devices.MIDIDevices{
			{
				Device:   devices.Device{Name: "Synth", IsOnline: true},
				IsInput:  true,
				IsOutput: true,
			},
		},
	}
}

func loadTestStore(t *testing.T) *config.Store {
	t.Helper()
	store, err := config.Load(filepath.Join(t.TempDir(), "chain.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return store
}

// waitFor polls until the condition holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestChainBuildsFromProperties(t *testing.T) {
	store := loadTestStore(t)
	store.SetName("Outboard Loop")
	store.SetInputDevice("Interface")
	store.SetOutputDevice("Interface")
	store.SetManualAdjustMs(5)
	store.SetBusNumber(2)
	store.SetFaderPosition(PositionForDb(-6))
	store.SetLastGainBeforeMuteDb(-12)

	c := NewChain(store, chainLister(), nil)
	defer c.Close()

	if got := c.Insert().Name(); got != "Outboard Loop" {
		t.Errorf("insert name = %q", got)
	}
	if got := c.Insert().InputDevice(); got != "Interface" {
		t.Errorf("input device = %q", got)
	}
	if got := c.Insert().ManualAdjustMs(); got != 5 {
		t.Errorf("manual adjust = %v", got)
	}
	if got := c.Send().BusNumber(); got != 2 {
		t.Errorf("bus number = %d", got)
	}
	if got := c.Send().GainDb(); got < -6.001 || got > -5.999 {
		t.Errorf("send gain = %v dB, want -6", got)
	}
	if got := c.Send().LastGainBeforeMuteDb(); got != -12 {
		t.Errorf("mute memory = %v", got)
	}
}

func TestChainInitializeResolvesAndRoutes(t *testing.T) {
	store := loadTestStore(t)
	store.SetInputDevice("Interface")
	store.SetOutputDevice("Interface")

	c := NewChain(store, chainLister(), nil)
	defer c.Close()

	if err := c.Initialize(8, 48000); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if got := c.Insert().SendType(); got != devices.TypeAudio {
		t.Fatalf("send type = %v, want audio", got)
	}

	audio := buffer.New(2, 8)
	testutil.FillRamp(audio)
	want := buffer.New(2, 8)
	testutil.FillRamp(want)

	c.ProcessBlock(&RenderContext{Audio: audio, NumFrames: 8})
	testutil.WantSilent(t, audio)

	loop := buffer.New(2, 8)
	c.Insert().ReadSend(loop, nil)
	c.Insert().WriteReturn(loop, nil)

	next := buffer.New(2, 8)
	c.ProcessBlock(&RenderContext{Audio: next, NumFrames: 8})
	testutil.WantSamples(t, want, next)

	c.Deinitialize()
}

func TestChainInitializeValidation(t *testing.T) {
	c := NewChain(loadTestStore(t), chainLister(), nil)
	defer c.Close()

	if err := c.Initialize(0, 48000); err == nil {
		t.Error("Initialize should reject a zero block size")
	}
	if err := c.Initialize(256, 0); err == nil {
		t.Error("Initialize should reject a zero sample rate")
	}
}

func TestChainReactsToDeviceSelection(t *testing.T) {
	store := loadTestStore(t)
	c := NewChain(store, chainLister(), nil)
	defer c.Close()

	if err := c.Initialize(256, 48000); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if got := c.Insert().SendType(); got != devices.TypeNone {
		t.Fatalf("send type = %v, want none", got)
	}

	store.SetOutputDevice("Synth")
	waitFor(t, "send re-resolution", func() bool {
		return c.Insert().SendType() == devices.TypeMidi
	})

	store.SetInputDevice("Interface")
	waitFor(t, "return re-resolution", func() bool {
		return c.Insert().ReturnType() == devices.TypeAudio
	})
}

func TestChainReactsToManualAdjust(t *testing.T) {
	store := loadTestStore(t)
	c := NewChain(store, chainLister(), nil)
	defer c.Close()

	if err := c.Initialize(512, 48000); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	store.SetManualAdjustMs(10)
	want := 10.0/1000.0 + 512.0/48000.0
	waitFor(t, "latency recompute", func() bool {
		got := c.Insert().LatencySeconds()
		return got > want-1e-9 && got < want+1e-9
	})
}

func TestChainPersistsAutomationWrites(t *testing.T) {
	store := loadTestStore(t)
	c := NewChain(store, chainLister(), nil)
	defer c.Close()

	c.Send().SetGainDb(-3)
	if got, want := store.FaderPosition(), PositionForDb(-3); got != want {
		t.Errorf("persisted fader position = %v, want %v", got, want)
	}

	c.Send().SetMute(true)
	if got := store.LastGainBeforeMuteDb(); got < -3.001 || got > -2.999 {
		t.Errorf("persisted mute memory = %v dB, want -3", got)
	}
	if got := store.FaderPosition(); got != 0 {
		t.Errorf("persisted fader position after mute = %v, want 0", got)
	}
}

func TestChainCloseSaves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.yaml")
	store, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	c := NewChain(store, chainLister(), nil)
	c.Send().SetGainDb(2)
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reloaded, err := config.Load(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got, want := reloaded.FaderPosition(), PositionForDb(2); got != want {
		t.Errorf("saved fader position = %v, want %v", got, want)
	}
}

// swappableLister starts empty and can be pointed at a populated set.
type swappableLister struct {
	mu     sync.Mutex
	target devices.Lister
}

func (s *swappableLister) set(l devices.Lister) {
	s.mu.Lock()
	s.target = l
	s.mu.Unlock()
}

func (s *swappableLister) Audio() (devices.AudioDevices, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.target == nil {
		return nil, nil
	}
	return s.target.Audio()
}

func (s *swappableLister) MIDI() (devices.MIDIDevices, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.target == nil {
		return nil, nil
	}
	return s.target.MIDI()
}

func TestChainMonitorDrivesReResolution(t *testing.T) {
	store := loadTestStore(t)
	store.SetOutputDevice("Interface")

	lister := &swappableLister{}
	c := NewChain(store, lister, nil)
	defer c.Close()

	if err := c.Initialize(256, 48000); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if got := c.Insert().SendType(); got != devices.TypeNone {
		t.Fatalf("send type before hotplug = %v, want none", got)
	}

	monitor := c.Monitor()
	if err := monitor.Start(); err != nil {
		t.Fatalf("monitor Start failed: %v", err)
	}
	defer monitor.Stop()

	// The configured interface comes online
	lister.set(chainLister())
	monitor.ForceCheck()

	waitFor(t, "hotplug re-resolution", func() bool {
		return c.Insert().SendType() == devices.TypeAudio
	})
}

func TestMapLatencyToBuffer(t *testing.T) {
	tests := []struct {
		class LatencyClass
		want  int
	}{
		{LatencyLow, 128},
		{LatencyMedium, 256},
		{LatencyHigh, 1024},
		{LatencyClass("bogus"), 256},
	}
	for _, tt := range tests {
		if got := MapLatencyToBuffer(tt.class); got != tt.want {
			t.Errorf("MapLatencyToBuffer(%q) = %d, want %d", tt.class, got, tt.want)
		}
	}
}
