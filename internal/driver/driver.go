// Package driver defines the capability contracts between the control core
// and concrete sensor/actuator integrations.
//
// The core never talks to hardware or vendor protocols directly; it sees
// only these interfaces. Every call takes a context and is expected to
// honour its deadline: a slow driver is treated as a failed call, never a
// stalled control loop.
package driver

import (
	"context"
	"time"
)

// Metadata describes a driver-backed entity for diagnostics.
type Metadata struct {
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Serial       string `json:"serial"`
	Firmware     string `json:"firmware"`
}

// Reading is one sensor sample: named values plus the instant they were
// taken. A single physical sensor may report several values (e.g. a
// combined temperature/humidity probe).
type Reading struct {
	Values map[string]float64
	At     time.Time
}

// Sensor is the capability contract for a measurement feed.
type Sensor interface {
	// Initialize prepares the sensor for reading. It must be called once
	// before Read; a failed Initialize leaves the sensor unusable until
	// retried.
	Initialize(ctx context.Context) error

	// Read returns the current sample.
	Read(ctx context.Context) (Reading, error)

	// StopScanning releases any acquisition resources. Read must not be
	// called afterwards.
	StopScanning(ctx context.Context) error

	// Metadata returns identifying information for diagnostics.
	Metadata(ctx context.Context) (Metadata, error)
}

// Device is the capability contract for an on/off actuator.
type Device interface {
	// Initialize prepares the device for commands and state reads.
	Initialize(ctx context.Context) error

	// IsOn reads the device's current power state from the device itself,
	// never from a cache.
	IsOn(ctx context.Context) (bool, error)

	// TurnOn commands the device on. A nil error means the command was
	// accepted, not that the state has been verified.
	TurnOn(ctx context.Context) error

	// TurnOff commands the device off.
	TurnOff(ctx context.Context) error

	// Metadata returns identifying information for diagnostics.
	Metadata(ctx context.Context) (Metadata, error)
}
