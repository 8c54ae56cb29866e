package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"go.bug.st/serial"
)

// drainWindow bounds how long stale input is read off a socket before a command.
const drainWindow = 2 * time.Millisecond

// Stream is a byte stream with a per-read timeout. Serial ports and net.Conn
// values are adapted to it so the CLI framer treats them identically.
type Stream interface {
	io.ReadWriteCloser

	// SetReadTimeout bounds the next Read. A Read that times out returns
	// either (0, nil) or an error for which IsTimeout reports true.
	SetReadTimeout(d time.Duration) error

	// ResetInput discards any bytes already received but not yet read.
	ResetInput() error
}

// SerialOpener opens a serial device at the given baud rate.
type SerialOpener func(device string, baud int) (Stream, error)

// NetStream adapts a net.Conn to Stream.
func NetStream(c net.Conn) Stream {
	return &netStream{Conn: c}
}

type netStream struct {
	net.Conn
}

func (s *netStream) SetReadTimeout(d time.Duration) error {
	return s.SetReadDeadline(time.Now().Add(d))
}

func (s *netStream) ResetInput() error {
	buf := make([]byte, readBufferSize)
	for {
		if err := s.SetReadDeadline(time.Now().Add(drainWindow)); err != nil {
			return err
		}
		n, err := s.Read(buf)
		if err != nil {
			if IsTimeout(err) {
				return nil
			}
			return err
		}
		if n == 0 {
			return nil
		}
	}
}

type serialStream struct {
	serial.Port
}

func (s *serialStream) ResetInput() error {
	return s.ResetInputBuffer()
}

// openSerial opens a serial device with 8N1 framing.
func openSerial(device string, baud int) (Stream, error) {
	port, err := serial.Open(device, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", device, err)
	}
	return &serialStream{Port: port}, nil
}

// IsTimeout reports whether err is a read or dial deadline expiry.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
