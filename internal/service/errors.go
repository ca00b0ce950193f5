package service

import "errors"

// Failure classes of the gateway core. Callers match them with errors.Is.
var (
	ErrParse          = errors.New("malformed telemetry")
	ErrStoreRead      = errors.New("log store unreadable")
	ErrInvalidCommand = errors.New("invalid command")
	ErrTransport      = errors.New("command transport failed")

	ErrTelemetryClosed = errors.New("telemetry channel closed")
)
