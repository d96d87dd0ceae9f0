//go:build cgo

package adapter

import (
	"fmt"

	"github.com/rakyll/portmidi"
	"gitlab.com/gomidi/midi/v2"
	"go.uber.org/zap"

	"github.com/shaban/insertloop"
	"github.com/shaban/insertloop/buffer"
	"github.com/shaban/insertloop/devices"
)

const portmidiEventBuffer = 128

// PortMidiLoop carries the MIDI legs of an insert round trip over PortMidi
// streams: staged send events go out the output stream, events arriving on
// the input stream come back as return data. The audio legs are untouched;
// hardware audio I/O is the enclosing host's business.
type PortMidiLoop struct {
	log    *zap.Logger
	insert *insertloop.Insert
	in     *portmidi.Stream
	out    *portmidi.Stream

	sendMidi buffer.Midi
}

// OpenPortMidiLoop initializes PortMidi and opens the named input and output
// devices. Either name may be empty to leave that leg closed.
func OpenPortMidiLoop(ins *insertloop.Insert, inputName, outputName string, logger *zap.Logger) (*PortMidiLoop, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := portmidi.Initialize(); err != nil {
		return nil, fmt.Errorf("portmidi initialize failed: %w", err)
	}

	l := &PortMidiLoop{log: logger, insert: ins}

	if inputName != "" {
		id, ok := findPortMidiDevice(inputName, true)
		if !ok {
			return nil, fmt.Errorf("MIDI input device %q not found", inputName)
		}
		in, err := portmidi.NewInputStream(id, portmidiEventBuffer)
		if err != nil {
			return nil, fmt.Errorf("failed to open MIDI input %q: %w", inputName, err)
		}
		l.in = in
	}

	if outputName != "" {
		id, ok := findPortMidiDevice(outputName, false)
		if !ok {
			l.closeStreams()
			return nil, fmt.Errorf("MIDI output device %q not found", outputName)
		}
		out, err := portmidi.NewOutputStream(id, portmidiEventBuffer, 0)
		if err != nil {
			l.closeStreams()
			return nil, fmt.Errorf("failed to open MIDI output %q: %w", outputName, err)
		}
		l.out = out
	}

	logger.Info("portmidi loop open",
		zap.String("input", inputName),
		zap.String("output", outputName))

	return l, nil
}

// Pump sends staged events out and deposits received events as return data.
func (l *PortMidiLoop) Pump() error {
	if l.out != nil {
		l.insert.ReadSend(nil, &l.sendMidi)
		for _, ev := range l.sendMidi.Events() {
			if err := l.out.WriteShort(shortMessage(ev.Message)); err != nil {
				return fmt.Errorf("MIDI send failed: %w", err)
			}
		}
		l.sendMidi.Clear()
	}

	if l.in != nil {
		events, err := l.in.Read(portmidiEventBuffer)
		if err != nil {
			return fmt.Errorf("MIDI receive failed: %w", err)
		}
		if len(events) > 0 {
			var ret buffer.Midi
			for _, ev := range events {
				ret.Add(0, midi.Message([]byte{byte(ev.Status), byte(ev.Data1), byte(ev.Data2)}))
			}
			l.insert.WriteReturn(nil, &ret)
		}
	}

	return nil
}

// Close shuts both streams and terminates PortMidi.
func (l *PortMidiLoop) Close() error {
	l.closeStreams()
	if err := portmidi.Terminate(); err != nil {
		return fmt.Errorf("portmidi terminate failed: %w", err)
	}
	return nil
}

func (l *PortMidiLoop) closeStreams() {
	if l.in != nil {
		if err := l.in.Close(); err != nil {
			l.log.Warn("MIDI input close failed", zap.Error(err))
		}
		l.in = nil
	}
	if l.out != nil {
		if err := l.out.Close(); err != nil {
			l.log.Warn("MIDI output close failed", zap.Error(err))
		}
		l.out = nil
	}
}

func shortMessage(msg midi.Message) (status, data1, data2 int64) {
	raw := msg.Bytes()
	if len(raw) > 0 {
		status = int64(raw[0])
	}
	if len(raw) > 1 {
		data1 = int64(raw[1])
	}
	if len(raw) > 2 {
		data2 = int64(raw[2])
	}
	return status, data1, data2
}

func findPortMidiDevice(name string, wantInput bool) (portmidi.DeviceID, bool) {
	for i := 0; i < portmidi.CountDevices(); i++ {
		id := portmidi.DeviceID(i)
		info := portmidi.Info(id)
		if info == nil || info.Name != name {
			continue
		}
		if wantInput && info.IsInputAvailable {
			return id, true
		}
		if !wantInput && info.IsOutputAvailable {
			return id, true
		}
	}
	return 0, false
}

// PortMidiLister enumerates PortMidi devices as an inventory source. Audio
// enumeration stays empty: this lister only knows MIDI.
type PortMidiLister struct{}

func (PortMidiLister) Audio() (devices.AudioDevices, error) { return nil, nil }

func (PortMidiLister) MIDI() (devices.MIDIDevices, error) {
	var list devices.MIDIDevices
	for i := 0; i < portmidi.CountDevices(); i++ {
		info := portmidi.Info(portmidi.DeviceID(i))
		if info == nil {
			continue
		}
		list = append(list, devices.MIDIDevice{
			Device: devices.Device{
				Name:     info.Name,
				UID:      fmt.Sprintf("portmidi:%d", i),
				IsOnline: true,
			},
			Manufacturer: info.Interf,
			IsInput:      info.IsInputAvailable,
			IsOutput:     info.IsOutputAvailable,
		})
	}
	return list, nil
}
