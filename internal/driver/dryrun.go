package driver

import (
	"context"
	"sync"
)

// DryRunDevice wraps a Device so commands become recording no-ops while
// state reads still reach the real device.
//
// The wrapper keeps a virtual power state: the first IsOn passes through
// to the inner device, and once a command has been "issued" the virtual
// state answers instead, so convergence behaves as if commands took
// effect. The inner device is never commanded.
type DryRunDevice struct {
	inner Device

	mu         sync.Mutex
	virtualSet bool
	virtualOn  bool

	// Commands counts would-be commands suppressed by the wrapper.
	Commands int
}

// NewDryRunDevice wraps a Device for dry-run operation.
func NewDryRunDevice(inner Device) *DryRunDevice {
	return &DryRunDevice{inner: inner}
}

func (d *DryRunDevice) Initialize(ctx context.Context) error {
	return d.inner.Initialize(ctx)
}

func (d *DryRunDevice) IsOn(ctx context.Context) (bool, error) {
	d.mu.Lock()
	if d.virtualSet {
		on := d.virtualOn
		d.mu.Unlock()
		return on, nil
	}
	d.mu.Unlock()
	return d.inner.IsOn(ctx)
}

func (d *DryRunDevice) TurnOn(_ context.Context) error {
	d.record(true)
	return nil
}

func (d *DryRunDevice) TurnOff(_ context.Context) error {
	d.record(false)
	return nil
}

func (d *DryRunDevice) record(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Commands++
	d.virtualSet = true
	d.virtualOn = on
}

func (d *DryRunDevice) Metadata(ctx context.Context) (Metadata, error) {
	return d.inner.Metadata(ctx)
}
