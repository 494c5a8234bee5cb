package control

import (
	"context"
	"fmt"
	"time"

	"github.com/spriggler/sprig-core/internal/entity"
)

// Result reports one convergence pass on a device.
type Result struct {
	// Success means the device is known to be in the desired state.
	Success bool

	// Changed means a command was actually issued this pass.
	Changed bool

	// Previous is the state read before any command; nil when the
	// pre-read failed.
	Previous *bool

	// New is the verified state after the pass; nil when no verified
	// state is known.
	New *bool

	// Err carries the driver failure, if any. No retry happens here; the
	// next tick converges again.
	Err error
}

// EnsurePowerState drives a device toward the desired state:
// read, compare, command, verify. The caller holds the device's command
// lock and has already passed the debounce gate.
//
// A pre-read failure makes the current state unknown, which forces a
// command attempt rather than trusting a cache. The attempt timestamp is
// recorded before the command is issued so failed attempts consume the
// debounce window too. When the device already matches, no command is
// issued and no attempt is recorded.
func EnsurePowerState(ctx context.Context, dev *entity.Device, desired bool, now time.Time) Result {
	var result Result

	current, err := dev.Driver.IsOn(ctx)
	known := err == nil
	if known {
		result.Previous = &current
		if current == desired {
			result.Success = true
			result.New = &current
			dev.RecordVerified(current)
			return result
		}
	}

	dev.RecordAttempt(desired, now)

	if desired {
		err = dev.Driver.TurnOn(ctx)
	} else {
		err = dev.Driver.TurnOff(ctx)
	}
	if err != nil {
		result.Err = fmt.Errorf("%w: %v", ErrCommandFailed, err)
		dev.ClearVerified()
		return result
	}
	result.Changed = true

	verified, err := dev.Driver.IsOn(ctx)
	if err != nil {
		result.Err = fmt.Errorf("%w: %v", ErrVerifyFailed, err)
		dev.ClearVerified()
		return result
	}
	result.New = &verified
	if verified != desired {
		result.Err = fmt.Errorf("%w: commanded %s, device reports %s",
			ErrVerifyMismatch, onOff(desired), onOff(verified))
		dev.RecordVerified(verified)
		return result
	}

	result.Success = true
	dev.RecordVerified(verified)
	return result
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
