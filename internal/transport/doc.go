// Package transport owns the physical link to a radio and frames its
// responses.
//
// A Link carries exactly one connection of one of four kinds:
//
//   - tcp: stream socket, ASCII command line protocol
//   - udp: datagram socket, ASCII command line protocol
//   - tty: serial byte stream (go.bug.st/serial), ASCII command line protocol
//   - https: HTTP session, JSON request bodies
//
// # CLI framing
//
// ASCII replies are accumulated across reads until the prompt terminator
// (">" by default) is seen. The framed buffer is cleaned of carriage returns
// and the terminator, split into right-trimmed non-empty lines, and a leading
// echo of the command is dropped. A line containing "ERROR" is removed and
// the text after the marker becomes the link's last error.
//
// # JSON framing
//
// In https mode the body of the POST reply is the whole message. A non-2xx
// reply whose body is valid JSON is still a successful exchange; the device
// layer inspects the JSON for application errors.
//
// # Errors
//
// Every operation reports success as a bool. LastError returns the text of
// the most recent failure ("Timeout" exactly for receive timeouts) and Err
// returns the same failure as an error wrapping one of the package sentinels.
//
// A Link is not safe for concurrent command exchanges; callers serialise
// access per device. IsConnected and Stats may be called from any goroutine.
package transport
