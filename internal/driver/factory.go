package driver

import (
	"fmt"
	"sync"

	"github.com/spriggler/sprig-core/internal/infrastructure/config"
)

// SensorFactory builds a Sensor from its configuration.
type SensorFactory func(cfg config.DriverConfig) (Sensor, error)

// DeviceFactory builds a Device from its configuration.
type DeviceFactory func(cfg config.DriverConfig) (Device, error)

// Registry maps driver type names to factories. Vendor integrations
// register themselves here at wiring time; the core resolves entities
// against it when the arena is built.
type Registry struct {
	mu      sync.RWMutex
	sensors map[string]SensorFactory
	devices map[string]DeviceFactory
}

// NewRegistry returns a Registry with the built-in mock drivers registered.
func NewRegistry() *Registry {
	r := &Registry{
		sensors: make(map[string]SensorFactory),
		devices: make(map[string]DeviceFactory),
	}
	r.RegisterSensor("mock", func(cfg config.DriverConfig) (Sensor, error) {
		return NewMockSensor(mockValuesFromOptions(cfg.Options)), nil
	})
	r.RegisterDevice("mock", func(cfg config.DriverConfig) (Device, error) {
		return NewMockDevice(), nil
	})
	return r
}

// RegisterSensor registers a sensor factory under a driver type name.
func (r *Registry) RegisterSensor(driverType string, f SensorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sensors[driverType] = f
}

// RegisterDevice registers a device factory under a driver type name.
func (r *Registry) RegisterDevice(driverType string, f DeviceFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices[driverType] = f
}

// NewSensor builds a sensor for the given driver configuration.
func (r *Registry) NewSensor(cfg config.DriverConfig) (Sensor, error) {
	r.mu.RLock()
	f, ok := r.sensors[cfg.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: sensor %q", ErrUnknownDriver, cfg.Type)
	}
	return f(cfg)
}

// NewDevice builds a device for the given driver configuration.
func (r *Registry) NewDevice(cfg config.DriverConfig) (Device, error) {
	r.mu.RLock()
	f, ok := r.devices[cfg.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: device %q", ErrUnknownDriver, cfg.Type)
	}
	return f(cfg)
}

// mockValuesFromOptions extracts initial reading values for the mock sensor
// from driver options, e.g. options: {temperature: 24.5}.
func mockValuesFromOptions(options map[string]any) map[string]float64 {
	values := make(map[string]float64)
	for k, v := range options {
		switch n := v.(type) {
		case float64:
			values[k] = n
		case int:
			values[k] = float64(n)
		}
	}
	return values
}
