package control

import "errors"

var (
	// ErrCommandFailed indicates the driver rejected or failed a command.
	ErrCommandFailed = errors.New("control: command failed")

	// ErrVerifyFailed indicates the post-command state read failed, so the
	// device's real state is unknown.
	ErrVerifyFailed = errors.New("control: verification read failed")

	// ErrVerifyMismatch indicates the device accepted the command but
	// reports a different state than commanded.
	ErrVerifyMismatch = errors.New("control: verified state does not match command")

	// ErrNoSensorData indicates a property has no usable reading from any
	// of its sensor feeds, so no decision can be made.
	ErrNoSensorData = errors.New("control: no sensor data for property")
)
