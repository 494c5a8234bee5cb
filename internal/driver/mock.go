package driver

import (
	"context"
	"maps"
	"sync"
	"time"
)

// MockSensor is an in-memory Sensor for tests and hardware-free deployments.
// Values can be set at any time; failure switches let tests exercise error
// paths without real hardware.
type MockSensor struct {
	mu          sync.Mutex
	values      map[string]float64
	initialized bool

	FailInitialize bool
	FailRead       bool
	FailStop       bool

	ReadCount int
	StopCount int
}

// NewMockSensor returns a MockSensor reporting the given values.
func NewMockSensor(values map[string]float64) *MockSensor {
	if values == nil {
		values = make(map[string]float64)
	}
	return &MockSensor{values: values}
}

// SetValue updates one reported value.
func (s *MockSensor) SetValue(name string, v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = v
}

func (s *MockSensor) Initialize(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailInitialize {
		return ErrNotInitialized
	}
	s.initialized = true
	return nil
}

func (s *MockSensor) Read(_ context.Context) (Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ReadCount++
	if !s.initialized {
		return Reading{}, ErrNotInitialized
	}
	if s.FailRead {
		return Reading{}, ErrReadFailed
	}
	return Reading{
		Values: maps.Clone(s.values),
		At:     time.Now(),
	}, nil
}

func (s *MockSensor) StopScanning(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StopCount++
	if s.FailStop {
		return ErrReadFailed
	}
	s.initialized = false
	return nil
}

func (s *MockSensor) Metadata(_ context.Context) (Metadata, error) {
	return Metadata{
		Manufacturer: "sprig",
		Model:        "mock-sensor",
		Serial:       "0000",
		Firmware:     "dev",
	}, nil
}

// MockDevice is an in-memory Device for tests and hardware-free deployments.
type MockDevice struct {
	mu          sync.Mutex
	on          bool
	initialized bool

	FailInitialize bool
	FailIsOn       bool
	FailCommand    bool

	IsOnCount    int
	CommandCount int
}

// NewMockDevice returns a MockDevice in the off state.
func NewMockDevice() *MockDevice {
	return &MockDevice{}
}

// SetOn forces the device state, bypassing the command path.
func (d *MockDevice) SetOn(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.on = on
}

func (d *MockDevice) Initialize(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailInitialize {
		return ErrNotInitialized
	}
	d.initialized = true
	return nil
}

func (d *MockDevice) IsOn(_ context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.IsOnCount++
	if !d.initialized {
		return false, ErrNotInitialized
	}
	if d.FailIsOn {
		return false, ErrReadFailed
	}
	return d.on, nil
}

func (d *MockDevice) TurnOn(_ context.Context) error {
	return d.command(true)
}

func (d *MockDevice) TurnOff(_ context.Context) error {
	return d.command(false)
}

func (d *MockDevice) command(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CommandCount++
	if !d.initialized {
		return ErrNotInitialized
	}
	if d.FailCommand {
		return ErrCommandFailed
	}
	d.on = on
	return nil
}

func (d *MockDevice) Metadata(_ context.Context) (Metadata, error) {
	return Metadata{
		Manufacturer: "sprig",
		Model:        "mock-device",
		Serial:       "0000",
		Firmware:     "dev",
	}, nil
}
