package devices

// DeviceType classifies what kind of external connection a configured device
// name resolves to.
type DeviceType int

const (
	TypeNone DeviceType = iota
	TypeAudio
	TypeMidi
)

func (t DeviceType) String() string {
	switch t {
	case TypeAudio:
		return "audio"
	case TypeMidi:
		return "midi"
	default:
		return "none"
	}
}

// Lister enumerates the currently available devices. Implementations wrap
// whatever backend does the real enumeration; tests use a StaticLister.
type Lister interface {
	Audio() (AudioDevices, error)
	MIDI() (MIDIDevices, error)
}

// StaticLister serves a fixed device set. Useful for tests and for hosts that
// manage enumeration themselves and just hand over snapshots.
type StaticLister struct {
	AudioDevices AudioDevices
	MIDIDevices  MIDIDevices
}

func (s StaticLister) Audio() (AudioDevices, error) { return s.AudioDevices, nil }
func (s StaticLister) MIDI() (MIDIDevices, error)   { return s.MIDIDevices, nil }

// Inventory is a point-in-time snapshot of the available devices. Resolution
// methods are pure functions over the snapshot; callers re-snapshot whenever
// the device population changes.
type Inventory struct {
	Audio AudioDevices
	MIDI  MIDIDevices
}

// Snapshot captures the lister's current device population.
func Snapshot(l Lister) (*Inventory, error) {
	audio, err := l.Audio()
	if err != nil {
		return nil, err
	}
	midi, err := l.MIDI()
	if err != nil {
		return nil, err
	}
	return &Inventory{Audio: audio, MIDI: midi}, nil
}

// InputNames lists the names usable as a return (device → plugin) selection,
// audio devices first.
func (inv *Inventory) InputNames() []string {
	var names []string
	for _, d := range inv.Audio.Online().Inputs() {
		names = append(names, d.Name)
	}
	for _, d := range inv.MIDI.Online().Inputs() {
		names = append(names, d.Name)
	}
	return names
}

// OutputNames lists the names usable as a send (plugin → device) selection.
// MIDI outputs bound to an external controller are skipped.
func (inv *Inventory) OutputNames() []string {
	var names []string
	for _, d := range inv.Audio.Online().Outputs() {
		names = append(names, d.Name)
	}
	for _, d := range inv.MIDI.Online().Outputs() {
		if d.ExternalController {
			continue
		}
		names = append(names, d.Name)
	}
	return names
}

// ResolveInput classifies a configured input (return-side) device name.
// A name matching an online audio-capable input wins over a MIDI match;
// anything absent or offline resolves to TypeNone.
func (inv *Inventory) ResolveInput(name string) DeviceType {
	if inv == nil || name == "" {
		return TypeNone
	}
	if d := inv.Audio.Online().Inputs().ByName(name); d != nil {
		return TypeAudio
	}
	if d := inv.MIDI.Online().Inputs().ByName(name); d != nil {
		return TypeMidi
	}
	return TypeNone
}

// ResolveOutput classifies a configured output (send-side) device name under
// the same precedence, excluding external-controller MIDI outputs.
func (inv *Inventory) ResolveOutput(name string) DeviceType {
	if inv == nil || name == "" {
		return TypeNone
	}
	if d := inv.Audio.Online().Outputs().ByName(name); d != nil {
		return TypeAudio
	}
	if d := inv.MIDI.Online().Outputs().ByName(name); d != nil && !d.ExternalController {
		return TypeMidi
	}
	return TypeNone
}
