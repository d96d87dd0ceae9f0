// Package devices models the device inventory an insert router resolves its
// send and return connections against. Devices are plain capability-tagged
// records; enumeration of real hardware is a collaborator concern injected
// through the Lister interface, so resolution stays a pure function over
// tagged data.
package devices

// Device represents the common properties of any device
type Device struct {
	Name     string `json:"name"`
	UID      string `json:"uid"`
	IsOnline bool   `json:"isOnline"`
}

// AudioDevice represents an audio device with explicit channel capabilities
type AudioDevice struct {
	Device                     // Embedded base device
	InputChannelCount    int   `json:"inputChannelCount"`
	OutputChannelCount   int   `json:"outputChannelCount"`
	SupportedSampleRates []int `json:"supportedSampleRates"`
}

// Helper methods for capability checking
func (a AudioDevice) CanInput() bool {
	return a.InputChannelCount > 0
}

func (a AudioDevice) CanOutput() bool {
	return a.OutputChannelCount > 0
}

func (a AudioDevice) IsInputOutput() bool {
	return a.CanInput() && a.CanOutput()
}

// AudioDevices represents a slice of AudioDevice with filter methods
type AudioDevices []AudioDevice

// Inputs returns only devices that can capture audio
func (devices AudioDevices) Inputs() AudioDevices {
	var inputs AudioDevices
	for _, device := range devices {
		if device.CanInput() {
			inputs = append(inputs, device)
		}
	}
	return inputs
}

// Outputs returns only devices that can play audio
func (devices AudioDevices) Outputs() AudioDevices {
	var outputs AudioDevices
	for _, device := range devices {
		if device.CanOutput() {
			outputs = append(outputs, device)
		}
	}
	return outputs
}

// Online returns only devices that are currently online/connected
func (devices AudioDevices) Online() AudioDevices {
	var onlineDevices AudioDevices
	for _, device := range devices {
		if device.IsOnline {
			onlineDevices = append(onlineDevices, device)
		}
	}
	return onlineDevices
}

// ByName returns the first device with the given name, or nil
func (devices AudioDevices) ByName(name string) *AudioDevice {
	for i := range devices {
		if devices[i].Name == name {
			return &devices[i]
		}
	}
	return nil
}

// MIDIDevice represents a MIDI device with input/output capabilities.
// ExternalController marks outputs that are wired to a control surface;
// those never take part in send-side resolution.
type MIDIDevice struct {
	Device                    // Embedded base device
	Manufacturer       string `json:"manufacturer"`
	Model              string `json:"model"`
	IsInput            bool   `json:"isInput"`
	IsOutput           bool   `json:"isOutput"`
	ExternalController bool   `json:"externalController"`
}

// Helper methods for MIDI capability checking
func (m MIDIDevice) CanInput() bool {
	return m.IsInput
}

func (m MIDIDevice) CanOutput() bool {
	return m.IsOutput
}

func (m MIDIDevice) IsInputOutput() bool {
	return m.IsInput && m.IsOutput
}

// MIDIDevices represents a slice of MIDIDevice with filter methods
type MIDIDevices []MIDIDevice

// Inputs returns only MIDI devices that can receive MIDI input
func (devices MIDIDevices) Inputs() MIDIDevices {
	var inputs MIDIDevices
	for _, device := range devices {
		if device.CanInput() {
			inputs = append(inputs, device)
		}
	}
	return inputs
}

// Outputs returns only MIDI devices that can send MIDI output
func (devices MIDIDevices) Outputs() MIDIDevices {
	var outputs MIDIDevices
	for _, device := range devices {
		if device.CanOutput() {
			outputs = append(outputs, device)
		}
	}
	return outputs
}

// Online returns only MIDI devices that are currently online/connected
func (devices MIDIDevices) Online() MIDIDevices {
	var onlineDevices MIDIDevices
	for _, device := range devices {
		if device.IsOnline {
			onlineDevices = append(onlineDevices, device)
		}
	}
	return onlineDevices
}

// ByName returns the first device with the given name, or nil
func (devices MIDIDevices) ByName(name string) *MIDIDevice {
	for i := range devices {
		if devices[i].Name == name {
			return &devices[i]
		}
	}
	return nil
}
