package transport

import "errors"

// Sentinel errors for link operations.
var (
	// ErrInvalidMode is returned when the connect mode is not tcp, udp, tty or https.
	ErrInvalidMode = errors.New("transport: invalid mode")

	// ErrNotConnected is returned when an exchange is attempted without a link.
	ErrNotConnected = errors.New("transport: not connected")

	// ErrNoCommand is returned when an https receive has no command to post.
	ErrNoCommand = errors.New("transport: no command pending")

	// ErrConnectionFailed is returned when the link could not be opened.
	ErrConnectionFailed = errors.New("transport: connection failed")

	// ErrConnectionLost is returned when the peer closed or reset the link.
	ErrConnectionLost = errors.New("transport: connection lost")

	// ErrWriteFailed is returned when command bytes could not be written.
	ErrWriteFailed = errors.New("transport: write failed")

	// ErrTimeout is returned when no complete response arrived in time.
	ErrTimeout = errors.New("transport: timeout")

	// ErrDeviceError is returned when a response carried an ERROR marker.
	ErrDeviceError = errors.New("transport: device reported error")

	// ErrHTTPStatus is returned for a failed HTTP status without a JSON body.
	ErrHTTPStatus = errors.New("transport: unexpected http status")
)

// timeoutText is the exact last-error text reported for receive timeouts.
const timeoutText = "Timeout"
