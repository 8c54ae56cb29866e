package fleet

import "errors"

// Sentinel errors, checked with errors.Is.
var (
	ErrUnknownRadio     = errors.New("fleet: unknown radio")
	ErrUnknownComponent = errors.New("fleet: unknown component")
	ErrNotConnected     = errors.New("fleet: radio not connected")
	ErrConnectFailed    = errors.New("fleet: connect failed")
	ErrCommandFailed    = errors.New("fleet: command failed")
	ErrInvalidPayload   = errors.New("fleet: invalid payload")
)
