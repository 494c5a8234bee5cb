package driver

import "errors"

var (
	// ErrUnknownDriver indicates a driver type with no registered factory.
	ErrUnknownDriver = errors.New("driver: unknown driver type")

	// ErrNotInitialized indicates a read or command before Initialize.
	ErrNotInitialized = errors.New("driver: not initialized")

	// ErrReadFailed indicates a sensor read failure injected by a mock.
	ErrReadFailed = errors.New("driver: read failed")

	// ErrCommandFailed indicates a device command failure injected by a mock.
	ErrCommandFailed = errors.New("driver: command failed")
)
