package driver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spriggler/sprig-core/internal/infrastructure/config"
)

func TestRegistryResolvesMockDrivers(t *testing.T) {
	r := NewRegistry()

	sensor, err := r.NewSensor(config.DriverConfig{
		Type:    "mock",
		Options: map[string]any{"temperature": 24.5},
	})
	if err != nil {
		t.Fatalf("NewSensor: %v", err)
	}

	ctx := context.Background()
	if err := sensor.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	reading, err := sensor.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if reading.Values["temperature"] != 24.5 {
		t.Errorf("temperature = %v, want 24.5", reading.Values["temperature"])
	}

	if _, err := r.NewDevice(config.DriverConfig{Type: "mock"}); err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
}

func TestRegistryUnknownDriver(t *testing.T) {
	r := NewRegistry()

	if _, err := r.NewSensor(config.DriverConfig{Type: "bogus"}); !errors.Is(err, ErrUnknownDriver) {
		t.Errorf("expected ErrUnknownDriver, got %v", err)
	}
	if _, err := r.NewDevice(config.DriverConfig{Type: "bogus"}); !errors.Is(err, ErrUnknownDriver) {
		t.Errorf("expected ErrUnknownDriver, got %v", err)
	}
}

func TestMockSensorRequiresInitialize(t *testing.T) {
	s := NewMockSensor(nil)
	if _, err := s.Read(context.Background()); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}

func TestMockDeviceCommands(t *testing.T) {
	d := NewMockDevice()
	ctx := context.Background()

	if err := d.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := d.TurnOn(ctx); err != nil {
		t.Fatalf("TurnOn: %v", err)
	}
	on, err := d.IsOn(ctx)
	if err != nil {
		t.Fatalf("IsOn: %v", err)
	}
	if !on {
		t.Error("device should be on after TurnOn")
	}
	if d.CommandCount != 1 {
		t.Errorf("CommandCount = %d, want 1", d.CommandCount)
	}
}

func TestDryRunDeviceSuppressesCommands(t *testing.T) {
	inner := NewMockDevice()
	ctx := context.Background()
	if err := inner.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	inner.SetOn(false)

	d := NewDryRunDevice(inner)

	// First read passes through to the real device.
	on, err := d.IsOn(ctx)
	if err != nil {
		t.Fatalf("IsOn: %v", err)
	}
	if on {
		t.Error("expected pass-through off state")
	}

	if err := d.TurnOn(ctx); err != nil {
		t.Fatalf("TurnOn: %v", err)
	}

	// The inner device must not have been commanded.
	if inner.CommandCount != 0 {
		t.Errorf("inner CommandCount = %d, want 0", inner.CommandCount)
	}
	if d.Commands != 1 {
		t.Errorf("recorded commands = %d, want 1", d.Commands)
	}

	// Subsequent reads answer from the virtual state.
	on, err = d.IsOn(ctx)
	if err != nil {
		t.Fatalf("IsOn: %v", err)
	}
	if !on {
		t.Error("virtual state should report on after dry-run TurnOn")
	}
}

func TestBackoffDelay(t *testing.T) {
	b := Backoff{Initial: time.Second, Max: 30 * time.Second}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
	}

	for _, tt := range tests {
		if got := b.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}
