// Package config persists the insert and send-level properties as a YAML
// document and notifies subscribers on change. Undo/redo and any richer
// property tree remain the enclosing host's responsibility; this layer only
// promises load/store and set-with-notification, and it never notifies for
// a write that leaves the value unchanged.
package config

import (
	"fmt"
	"math"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Property keys used for change subscriptions.
const (
	KeyName                 = "name"
	KeyInputDevice          = "inputDevice"
	KeyOutputDevice         = "outputDevice"
	KeyManualAdjustMs       = "manualAdjustMs"
	KeyBusNumber            = "busNumber"
	KeyFaderPosition        = "faderPosition"
	KeyLastGainBeforeMuteDb = "lastGainBeforeMuteDb"
)

// Document is the serialized property set.
type Document struct {
	// Insert routing
	Name           string  `yaml:"name,omitempty"`
	InputDevice    string  `yaml:"input_device,omitempty"`
	OutputDevice   string  `yaml:"output_device,omitempty"`
	ManualAdjustMs float64 `yaml:"manual_adjust_ms,omitempty"`

	// Aux send
	BusNumber            int     `yaml:"bus_number"`
	FaderPosition        float64 `yaml:"fader_position"`
	LastGainBeforeMuteDb float64 `yaml:"last_gain_before_mute_db"`
}

// DefaultDocument returns the property set of a freshly created node. The
// fader defaults to the unity anchor of the fader curve, position 0.8.
func DefaultDocument() Document {
	return Document{
		FaderPosition: 0.8,
	}
}

// Store holds the runtime copy of a Document plus change subscriptions.
type Store struct {
	mu   sync.RWMutex
	path string
	doc  Document
	subs map[string][]func()
}

// NewStore creates a store around an existing document, detached from disk.
func NewStore(doc Document) *Store {
	return &Store{doc: doc, subs: make(map[string][]func())}
}

// Load reads the document at path. A missing file yields the defaults.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s := NewStore(DefaultDocument())
			s.path = path
			return s, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	doc := DefaultDocument()
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	s := NewStore(doc)
	s.path = path
	return s, nil
}

// Save writes the document back to its path.
func (s *Store) Save() error {
	s.mu.RLock()
	doc := s.doc
	path := s.path
	s.mu.RUnlock()

	if path == "" {
		return fmt.Errorf("store has no backing file")
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Document returns a copy of the current property set.
func (s *Store) Document() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

// Subscribe registers a callback for changes to the given property key.
// Callbacks run synchronously on the mutating goroutine.
func (s *Store) Subscribe(key string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[key] = append(s.subs[key], fn)
}

func (s *Store) notify(key string) {
	s.mu.RLock()
	callbacks := make([]func(), len(s.subs[key]))
	copy(callbacks, s.subs[key])
	s.mu.RUnlock()
	for _, fn := range callbacks {
		fn()
	}
}

// Name returns the configured display name.
func (s *Store) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Name
}

// SetName updates the display name.
func (s *Store) SetName(v string) {
	s.mu.Lock()
	if s.doc.Name == v {
		s.mu.Unlock()
		return
	}
	s.doc.Name = v
	s.mu.Unlock()
	s.notify(KeyName)
}

// InputDevice returns the configured return-side device name.
func (s *Store) InputDevice() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.InputDevice
}

// SetInputDevice updates the return-side device name.
func (s *Store) SetInputDevice(v string) {
	s.mu.Lock()
	if s.doc.InputDevice == v {
		s.mu.Unlock()
		return
	}
	s.doc.InputDevice = v
	s.mu.Unlock()
	s.notify(KeyInputDevice)
}

// OutputDevice returns the configured send-side device name.
func (s *Store) OutputDevice() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.OutputDevice
}

// SetOutputDevice updates the send-side device name.
func (s *Store) SetOutputDevice(v string) {
	s.mu.Lock()
	if s.doc.OutputDevice == v {
		s.mu.Unlock()
		return
	}
	s.doc.OutputDevice = v
	s.mu.Unlock()
	s.notify(KeyOutputDevice)
}

// ManualAdjustMs returns the manual latency adjustment in milliseconds.
func (s *Store) ManualAdjustMs() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.ManualAdjustMs
}

// SetManualAdjustMs updates the manual latency adjustment.
func (s *Store) SetManualAdjustMs(v float64) {
	s.mu.Lock()
	if s.doc.ManualAdjustMs == v {
		s.mu.Unlock()
		return
	}
	s.doc.ManualAdjustMs = v
	s.mu.Unlock()
	s.notify(KeyManualAdjustMs)
}

// BusNumber returns the aux bus index.
func (s *Store) BusNumber() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.BusNumber
}

// SetBusNumber updates the aux bus index.
func (s *Store) SetBusNumber(v int) {
	s.mu.Lock()
	if s.doc.BusNumber == v {
		s.mu.Unlock()
		return
	}
	s.doc.BusNumber = v
	s.mu.Unlock()
	s.notify(KeyBusNumber)
}

// FaderPosition returns the persisted fader position.
func (s *Store) FaderPosition() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.FaderPosition
}

// SetFaderPosition updates the fader position. Equality is bit-exact so an
// automation write-back of the identical position stays silent.
func (s *Store) SetFaderPosition(v float64) {
	s.mu.Lock()
	if math.Float64bits(s.doc.FaderPosition) == math.Float64bits(v) {
		s.mu.Unlock()
		return
	}
	s.doc.FaderPosition = v
	s.mu.Unlock()
	s.notify(KeyFaderPosition)
}

// LastGainBeforeMuteDb returns the gain to restore after unmuting.
func (s *Store) LastGainBeforeMuteDb() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.LastGainBeforeMuteDb
}

// SetLastGainBeforeMuteDb updates the unmute restore gain.
func (s *Store) SetLastGainBeforeMuteDb(v float64) {
	s.mu.Lock()
	if s.doc.LastGainBeforeMuteDb == v {
		s.mu.Unlock()
		return
	}
	s.doc.LastGainBeforeMuteDb = v
	s.mu.Unlock()
	s.notify(KeyLastGainBeforeMuteDb)
}
