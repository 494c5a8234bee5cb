package mqtt

import "errors"

var (
	// ErrNotConnected indicates a publish was attempted while disconnected.
	ErrNotConnected = errors.New("mqtt: not connected")

	// ErrConnectFailed indicates the initial broker connection failed.
	ErrConnectFailed = errors.New("mqtt: connect failed")

	// ErrPublishFailed indicates the broker did not accept a publish.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrPayloadTooLarge indicates a payload above the size cap.
	ErrPayloadTooLarge = errors.New("mqtt: payload too large")
)
