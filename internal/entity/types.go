// Package entity holds the runtime records built from configuration:
// environments, schedules, devices, sensors and alerts, indexed by id in
// an Arena. Records carry the mutable control state (last command, last
// reading, availability) behind their own locks; the drivers they wrap
// stay stateless from the core's point of view.
package entity

import (
	"sort"
	"sync"
	"time"

	"github.com/spriggler/sprig-core/internal/driver"
	"github.com/spriggler/sprig-core/internal/schedule"
)

// EffectKind is how a device influences a property when on.
type EffectKind string

const (
	// EffectIncrease raises the property's value while on.
	EffectIncrease EffectKind = "increase"

	// EffectDecrease lowers the property's value while on.
	EffectDecrease EffectKind = "decrease"

	// EffectDynamic both raises and lowers toward a band (e.g. a
	// thermostat-style unit). Treated as increase below min and decrease
	// above max.
	EffectDynamic EffectKind = "dynamic_effect"

	// EffectState mirrors a discrete on/off target directly.
	EffectState EffectKind = "state"
)

// Numeric reports whether the effect serves numeric band targets.
func (e EffectKind) Numeric() bool {
	return e == EffectIncrease || e == EffectDecrease || e == EffectDynamic
}

// Environment is one controlled space and its properties, sorted for
// deterministic iteration.
type Environment struct {
	ID         string
	Name       string
	Properties []PropertySpec
}

// PropertySpec binds one property of an environment to its sensor feeds,
// controller devices and candidate schedules (in override order).
type PropertySpec struct {
	Property    string
	SensorIDs   []string
	DeviceIDs   []string
	ScheduleIDs []string
}

// Device is the runtime record for one actuator: the driver handle plus
// control state. cmdMu serialises command traffic per device across the
// whole process; convergence holds it for the read-compare-command-verify
// sequence so concurrent property evaluations can never interleave
// commands to the same hardware.
type Device struct {
	ID      string
	Name    string
	What    string
	Effects map[string]EffectKind // property -> effect

	Driver driver.Device

	cmdMu sync.Mutex

	mu            sync.Mutex
	available     bool
	lastCommanded *bool
	lastCommandAt time.Time
	lastVerified  *bool
}

// ControlState is a snapshot of a device's command bookkeeping.
type ControlState struct {
	Available     bool
	LastCommanded *bool
	LastCommandAt time.Time
	LastVerified  *bool
}

// LockCommands acquires the device's command mutex.
func (d *Device) LockCommands() { d.cmdMu.Lock() }

// UnlockCommands releases the device's command mutex.
func (d *Device) UnlockCommands() { d.cmdMu.Unlock() }

// ControlState returns a snapshot of the device's command bookkeeping.
func (d *Device) ControlState() ControlState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return ControlState{
		Available:     d.available,
		LastCommanded: copyBool(d.lastCommanded),
		LastCommandAt: d.lastCommandAt,
		LastVerified:  copyBool(d.lastVerified),
	}
}

// RecordAttempt stamps a command attempt. It is called for every attempt,
// successful or not, so the debounce window restarts on failures too.
func (d *Device) RecordAttempt(desired bool, at time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastCommanded = &desired
	d.lastCommandAt = at
}

// RecordVerified stores the post-command verified state.
func (d *Device) RecordVerified(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastVerified = &on
}

// ClearVerified drops the verified state after a failed verification read.
func (d *Device) ClearVerified() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastVerified = nil
}

// SetAvailable marks the device usable or not for decisions.
func (d *Device) SetAvailable(ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.available = ok
}

// Available reports whether the device is usable for decisions.
func (d *Device) Available() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.available
}

// Sensor is the runtime record for one measurement feed: the driver handle
// plus the last-known reading and staleness state.
type Sensor struct {
	ID          string
	Name        string
	What        string
	RefreshRate time.Duration
	Timeout     time.Duration

	Driver driver.Sensor

	mu         sync.Mutex
	available  bool
	lastValues map[string]float64
	lastUpdate time.Time
	stale      bool
}

// SensorState is a snapshot of a sensor's cache and staleness state.
type SensorState struct {
	Available  bool
	LastValues map[string]float64
	LastUpdate time.Time
	Stale      bool
}

// SetReading stores a fresh reading and returns whether the feed just
// recovered from being stale.
func (s *Sensor) SetReading(values map[string]float64, at time.Time) (recovered bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recovered = s.stale
	s.stale = false
	s.lastUpdate = at
	if s.lastValues == nil {
		s.lastValues = make(map[string]float64, len(values))
	}
	for k, v := range values {
		s.lastValues[k] = v
	}
	return recovered
}

// MarkStale flags the feed stale and returns whether this is the stale
// transition edge (it was fresh before).
func (s *Sensor) MarkStale() (edge bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	edge = !s.stale
	s.stale = true
	return edge
}

// State returns a snapshot of the sensor's cache.
func (s *Sensor) State() SensorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	values := make(map[string]float64, len(s.lastValues))
	for k, v := range s.lastValues {
		values[k] = v
	}
	return SensorState{
		Available:  s.available,
		LastValues: values,
		LastUpdate: s.lastUpdate,
		Stale:      s.stale,
	}
}

// Value returns the last-known value for a named measurement.
func (s *Sensor) Value(name string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.lastValues[name]
	return v, ok
}

// SetAvailable marks the sensor usable or not.
func (s *Sensor) SetAvailable(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.available = ok
}

// Available reports whether the sensor is usable.
func (s *Sensor) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}

// Alert is an observational threshold condition on one sensor feed.
// Alerts record events only; they never actuate.
type Alert struct {
	ID        string
	SensorID  string
	Operator  string
	Threshold float64
	Message   string
	Severity  string

	mu     sync.Mutex
	firing bool
}

// Update evaluates the condition against a value and returns whether the
// firing state changed (edge-triggered).
func (a *Alert) Update(value float64) (fired, cleared bool) {
	match := false
	switch a.Operator {
	case ">":
		match = value > a.Threshold
	case "<":
		match = value < a.Threshold
	case "=":
		match = value == a.Threshold
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if match && !a.firing {
		a.firing = true
		return true, false
	}
	if !match && a.firing {
		a.firing = false
		return false, true
	}
	return false, false
}

// Firing reports whether the alert condition currently holds.
func (a *Alert) Firing() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.firing
}

// Arena is the id-indexed set of runtime records for the whole site.
type Arena struct {
	Environments []*Environment
	Schedules    map[string]*schedule.Schedule
	Devices      map[string]*Device
	Sensors      map[string]*Sensor
	Alerts       []*Alert
}

// sortProperties orders an environment's properties by name so concurrent
// evaluation fans out in a stable order.
func sortProperties(props []PropertySpec) {
	sort.Slice(props, func(i, j int) bool {
		return props[i].Property < props[j].Property
	})
}

func copyBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}
