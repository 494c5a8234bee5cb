package control

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spriggler/sprig-core/internal/driver"
	"github.com/spriggler/sprig-core/internal/entity"
)

func newTestDevice(t *testing.T, on bool) (*entity.Device, *driver.MockDevice) {
	t.Helper()
	mock := driver.NewMockDevice()
	if err := mock.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	mock.SetOn(on)
	dev := &entity.Device{ID: "dev-1", Driver: mock}
	dev.SetAvailable(true)
	return dev, mock
}

func TestEnsurePowerStateAlreadyMatching(t *testing.T) {
	dev, mock := newTestDevice(t, true)
	now := time.Now()

	result := EnsurePowerState(context.Background(), dev, true, now)
	if !result.Success {
		t.Error("expected success when state already matches")
	}
	if result.Changed {
		t.Error("no command should be issued when state matches")
	}
	if mock.CommandCount != 0 {
		t.Errorf("CommandCount = %d, want 0", mock.CommandCount)
	}
	// Matching state is not an attempt; the debounce window must not restart.
	if st := dev.ControlState(); !st.LastCommandAt.IsZero() {
		t.Error("no-op pass must not stamp a command attempt")
	}
}

func TestEnsurePowerStateCommandsAndVerifies(t *testing.T) {
	dev, mock := newTestDevice(t, false)
	now := time.Now()

	result := EnsurePowerState(context.Background(), dev, true, now)
	if !result.Success || !result.Changed {
		t.Fatalf("result = %+v, want success and changed", result)
	}
	if result.Previous == nil || *result.Previous {
		t.Error("Previous should be off")
	}
	if result.New == nil || !*result.New {
		t.Error("New should be on")
	}
	if mock.CommandCount != 1 {
		t.Errorf("CommandCount = %d, want 1", mock.CommandCount)
	}

	st := dev.ControlState()
	if st.LastCommanded == nil || !*st.LastCommanded {
		t.Error("LastCommanded should be on")
	}
	if !st.LastCommandAt.Equal(now) {
		t.Error("attempt timestamp should match the pass instant")
	}
	if st.LastVerified == nil || !*st.LastVerified {
		t.Error("LastVerified should be on")
	}
}

func TestEnsurePowerStateUnknownStateForcesCommand(t *testing.T) {
	dev, mock := newTestDevice(t, true)
	mock.FailIsOn = true

	result := EnsurePowerState(context.Background(), dev, true, time.Now())
	// Pre-read failed so the state is unknown; a command must be attempted
	// even though the device was in fact already on.
	if mock.CommandCount != 1 {
		t.Errorf("CommandCount = %d, want 1 (unknown state must not be trusted)", mock.CommandCount)
	}
	if result.Previous != nil {
		t.Error("Previous should be nil when the pre-read failed")
	}
	// Verification also fails here, so the pass cannot report success.
	if result.Success {
		t.Error("success requires a verified state")
	}
	if !errors.Is(result.Err, ErrVerifyFailed) {
		t.Errorf("Err = %v, want ErrVerifyFailed", result.Err)
	}
}

func TestEnsurePowerStateCommandFailureStampsAttempt(t *testing.T) {
	dev, mock := newTestDevice(t, false)
	mock.FailCommand = true
	now := time.Now()

	result := EnsurePowerState(context.Background(), dev, true, now)
	if result.Success || result.Changed {
		t.Errorf("result = %+v, want failure without change", result)
	}
	if !errors.Is(result.Err, ErrCommandFailed) {
		t.Errorf("Err = %v, want ErrCommandFailed", result.Err)
	}

	// Failed attempts still consume the debounce window.
	st := dev.ControlState()
	if !st.LastCommandAt.Equal(now) {
		t.Error("failed attempt must stamp the debounce timestamp")
	}
	if st.LastVerified != nil {
		t.Error("verified state must be cleared after a failed command")
	}
}

func TestEnsurePowerStateVerifyMismatch(t *testing.T) {
	dev, _ := newTestDevice(t, false)
	// A device that accepts commands but never changes state.
	dev.Driver = stuckDevice{on: false}

	result := EnsurePowerState(context.Background(), dev, true, time.Now())
	if result.Success {
		t.Error("mismatched verification must not report success")
	}
	if !result.Changed {
		t.Error("the command itself was accepted")
	}
	if !errors.Is(result.Err, ErrVerifyMismatch) {
		t.Errorf("Err = %v, want ErrVerifyMismatch", result.Err)
	}
	if result.New == nil || *result.New {
		t.Error("New should carry the actually observed state")
	}
}

// stuckDevice accepts every command but always reports the same state.
type stuckDevice struct {
	on bool
}

func (d stuckDevice) Initialize(context.Context) error { return nil }
func (d stuckDevice) IsOn(context.Context) (bool, error) {
	return d.on, nil
}
func (d stuckDevice) TurnOn(context.Context) error  { return nil }
func (d stuckDevice) TurnOff(context.Context) error { return nil }
func (d stuckDevice) Metadata(context.Context) (driver.Metadata, error) {
	return driver.Metadata{}, nil
}
