package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Mode selects the physical link kind.
type Mode string

// Supported link modes.
const (
	ModeTCP   Mode = "tcp"
	ModeUDP   Mode = "udp"
	ModeTTY   Mode = "tty"
	ModeHTTPS Mode = "https"
)

// DefaultPort is passed as portOrBaud to select the per-mode default.
const DefaultPort = -1

// Per-mode defaults applied when portOrBaud is DefaultPort.
const (
	defaultTCPPort   = 8617
	defaultUDPPort   = 19091
	defaultBaud      = 921600
	defaultHTTPSPort = 443
)

const (
	defaultDialTimeout  = 5 * time.Second
	defaultWriteTimeout = 2 * time.Second
	defaultTerminator   = ">"
	defaultCommandPath  = "/api/command"

	// readBufferSize is the size of a single read from the stream.
	readBufferSize = 1024

	// datagramBufferSize holds the largest UDP payload. A datagram read
	// into a shorter buffer is truncated.
	datagramBufferSize = 65535

	// maxResponseSize caps a framed response before it is abandoned.
	maxResponseSize = 1 << 20
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeTCP, ModeUDP, ModeTTY, ModeHTTPS:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Stats holds link counters.
type Stats struct {
	CommandsSent  uint64
	Responses     uint64
	Timeouts      uint64
	DeviceErrors  uint64
	ErrorsTotal   uint64
	BytesReceived uint64
	LastActivity  time.Time
	Connected     bool
}

// Option configures a Link.
type Option func(*Link)

// WithLogger sets the link logger.
func WithLogger(l Logger) Option {
	return func(k *Link) {
		if l != nil {
			k.logger = l
		}
	}
}

// WithTerminator sets the prompt terminator that ends an ASCII response.
func WithTerminator(t string) Option {
	return func(k *Link) { k.terminator = t }
}

// WithDialTimeout bounds connection establishment.
func WithDialTimeout(d time.Duration) Option {
	return func(k *Link) {
		if d > 0 {
			k.dialTimeout = d
		}
	}
}

// WithTLSVerify controls certificate verification in https mode.
func WithTLSVerify(verify bool) Option {
	return func(k *Link) { k.verifyTLS = verify }
}

// WithCommandPath sets the URL path commands are POSTed to in https mode.
func WithCommandPath(p string) Option {
	return func(k *Link) {
		if p != "" {
			k.commandPath = p
		}
	}
}

// WithHTTPClient replaces the HTTP client used in https mode.
func WithHTTPClient(c *http.Client) Option {
	return func(k *Link) { k.httpClient = c }
}

// WithSerialOpener replaces the serial device opener used in tty mode.
func WithSerialOpener(fn SerialOpener) Option {
	return func(k *Link) {
		if fn != nil {
			k.openSerial = fn
		}
	}
}

// Link is one physical connection to a radio.
type Link struct {
	terminator  string
	dialTimeout time.Duration
	verifyTLS   bool
	commandPath string
	httpClient  *http.Client
	openSerial  SerialOpener
	logger      Logger

	mu          sync.Mutex
	mode        Mode
	address     string
	stream      Stream
	baseURL     string
	pending     []byte
	lastCommand string
	lastErr     error
	lastError   string

	connected     atomic.Bool
	commandsSent  atomic.Uint64
	responses     atomic.Uint64
	timeouts      atomic.Uint64
	deviceErrors  atomic.Uint64
	errorsTotal   atomic.Uint64
	bytesReceived atomic.Uint64
	lastActivity  atomic.Int64
}

// New creates an unconnected link.
func New(opts ...Option) *Link {
	k := &Link{
		terminator:  defaultTerminator,
		dialTimeout: defaultDialTimeout,
		verifyTLS:   true,
		commandPath: defaultCommandPath,
		openSerial:  openSerial,
		logger:      noopLogger{},
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Connect opens the link.
//
// Parameters:
//   - mode: "tcp", "udp", "tty" or "https"
//   - hostOrDevice: host name or IP, serial device path, or a full https URL
//   - portOrBaud: port or baud rate; DefaultPort selects the mode default
//
// Returns:
//   - bool: true when the link is open; on false LastError describes why
func (k *Link) Connect(mode, hostOrDevice string, portOrBaud int) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.closeLocked()
	k.clearErrorLocked()

	m, err := ParseMode(mode)
	if err != nil {
		k.failLocked(err)
		return false
	}
	k.mode = m

	switch m {
	case ModeTCP, ModeUDP:
		err = k.dialLocked(hostOrDevice, portOrBaud)
	case ModeTTY:
		err = k.openSerialLocked(hostOrDevice, portOrBaud)
	case ModeHTTPS:
		err = k.probeLocked(hostOrDevice, portOrBaud)
	}
	if err != nil {
		k.failLocked(fmt.Errorf("%w: %w", ErrConnectionFailed, err))
		k.logger.Error("link connect failed", "mode", m, "address", k.address, "error", err)
		return false
	}

	k.connected.Store(true)
	k.touch()
	k.logger.Info("link connected", "mode", m, "address", k.address)
	return true
}

func (k *Link) dialLocked(host string, port int) error {
	if port == DefaultPort {
		port = defaultTCPPort
		if k.mode == ModeUDP {
			port = defaultUDPPort
		}
	}
	k.address = net.JoinHostPort(host, strconv.Itoa(port))

	ctx, cancel := context.WithTimeout(context.Background(), k.dialTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, string(k.mode), k.address)
	if err != nil {
		return err
	}
	k.stream = NetStream(conn)
	return nil
}

func (k *Link) openSerialLocked(device string, baud int) error {
	if baud == DefaultPort {
		baud = defaultBaud
	}
	k.address = fmt.Sprintf("%s@%d", device, baud)

	s, err := k.openSerial(device, baud)
	if err != nil {
		return err
	}
	k.stream = s
	return nil
}

func (k *Link) probeLocked(host string, port int) error {
	if strings.Contains(host, "://") {
		k.baseURL = strings.TrimRight(host, "/")
	} else {
		if port == DefaultPort {
			port = defaultHTTPSPort
		}
		k.baseURL = "https://" + net.JoinHostPort(host, strconv.Itoa(port))
	}
	k.address = k.baseURL

	if k.httpClient == nil {
		k.httpClient = newHTTPClient(k.verifyTLS)
	}

	ctx, cancel := context.WithTimeout(context.Background(), k.dialTimeout)
	defer cancel()
	return probe(ctx, k.httpClient, k.baseURL+"/")
}

// SendCommand writes one command.
//
// ASCII modes append a newline when missing; with clearReceiveBuffer any
// unread input is discarded first. In https mode the text is held as the
// POST body and the request is made by the following Receive, so that the
// receive timeout bounds the whole exchange.
//
// Returns:
//   - bool: false when not connected or the write failed
func (k *Link) SendCommand(text string, clearReceiveBuffer bool) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.clearErrorLocked()
	if !k.connected.Load() {
		k.failLocked(ErrNotConnected)
		return false
	}
	k.lastCommand = text

	if k.mode == ModeHTTPS {
		k.pending = []byte(text)
		k.commandsSent.Add(1)
		return true
	}

	if clearReceiveBuffer {
		if err := k.stream.ResetInput(); err != nil {
			k.logger.Debug("clearing receive buffer failed", "error", err)
		}
	}

	line := text
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	if wd, ok := k.stream.(interface{ SetWriteDeadline(time.Time) error }); ok {
		_ = wd.SetWriteDeadline(time.Now().Add(defaultWriteTimeout)) //nolint:errcheck // best effort
	}
	if _, err := k.stream.Write([]byte(line)); err != nil {
		k.failLocked(fmt.Errorf("%w: %w", ErrWriteFailed, err))
		k.lostLocked(err)
		return false
	}

	k.commandsSent.Add(1)
	k.touch()
	k.logger.Debug("command sent", "command", strings.TrimSpace(text))
	return true
}

// Receive blocks until a complete response is framed or timeout elapses.
//
// Returns:
//   - []string: response lines, empty on timeout or failure
func (k *Link) Receive(timeout time.Duration) []string {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.clearErrorLocked()
	if !k.connected.Load() {
		k.failLocked(ErrNotConnected)
		return nil
	}

	var lines []string
	if k.mode == ModeHTTPS {
		lines = k.exchangeLocked(timeout)
	} else {
		lines = k.receiveCLILocked(timeout)
	}
	if k.lastErr == nil || errors.Is(k.lastErr, ErrDeviceError) {
		k.responses.Add(1)
	}
	return lines
}

func (k *Link) receiveCLILocked(timeout time.Duration) []string {
	deadline := time.Now().Add(timeout)
	var buf []byte
	size := readBufferSize
	if k.mode == ModeUDP {
		size = datagramBufferSize
	}
	chunk := make([]byte, size)

	for !framed(buf, k.terminator) {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			k.timeoutLocked()
			return nil
		}
		if err := k.stream.SetReadTimeout(remaining); err != nil {
			k.failLocked(fmt.Errorf("%w: %w", ErrConnectionLost, err))
			return nil
		}

		n, err := k.stream.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			k.bytesReceived.Add(uint64(n))
			k.touch()
		}
		if err != nil {
			if IsTimeout(err) {
				continue
			}
			k.failLocked(fmt.Errorf("%w: %w", ErrConnectionLost, err))
			if k.mode != ModeUDP {
				k.lostLocked(err)
			}
			return nil
		}
		if len(buf) > maxResponseSize {
			k.failLocked(fmt.Errorf("%w: response exceeds %d bytes", ErrConnectionLost, maxResponseSize))
			return nil
		}
	}

	lines, errText, found := splitCLI(string(buf), k.lastCommand, k.terminator)
	if found {
		k.deviceErrors.Add(1)
		k.lastErr = fmt.Errorf("%w: %s", ErrDeviceError, errText)
		k.lastError = errText
	}
	return lines
}

func (k *Link) timeoutLocked() {
	k.timeouts.Add(1)
	k.errorsTotal.Add(1)
	k.lastErr = ErrTimeout
	k.lastError = timeoutText
	k.logger.Debug("receive timed out", "command", strings.TrimSpace(k.lastCommand))
}

// IsConnected reports whether the link is open.
func (k *Link) IsConnected() bool {
	return k.connected.Load()
}

// LastError returns the text of the most recent failure, or "" after a
// successful operation.
func (k *Link) LastError() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.lastError
}

// Err returns the most recent failure wrapping a package sentinel.
func (k *Link) Err() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.lastErr
}

// Mode returns the mode of the last Connect.
func (k *Link) Mode() Mode {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.mode
}

// Address returns the resolved address of the last Connect.
func (k *Link) Address() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.address
}

// Disconnect closes the link. It is safe to call more than once.
func (k *Link) Disconnect() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.connected.Load() {
		k.logger.Info("link disconnected", "mode", k.mode, "address", k.address)
	}
	k.closeLocked()
}

// Stats returns a snapshot of the link counters.
func (k *Link) Stats() Stats {
	var last time.Time
	if ns := k.lastActivity.Load(); ns > 0 {
		last = time.Unix(0, ns)
	}
	return Stats{
		CommandsSent:  k.commandsSent.Load(),
		Responses:     k.responses.Load(),
		Timeouts:      k.timeouts.Load(),
		DeviceErrors:  k.deviceErrors.Load(),
		ErrorsTotal:   k.errorsTotal.Load(),
		BytesReceived: k.bytesReceived.Load(),
		LastActivity:  last,
		Connected:     k.connected.Load(),
	}
}

func (k *Link) closeLocked() {
	k.connected.Store(false)
	if k.stream != nil {
		_ = k.stream.Close() //nolint:errcheck // closing a dead link
		k.stream = nil
	}
	k.pending = nil
}

func (k *Link) lostLocked(err error) {
	k.logger.Warn("link lost", "mode", k.mode, "address", k.address, "error", err)
	k.closeLocked()
}

func (k *Link) failLocked(err error) {
	k.errorsTotal.Add(1)
	k.lastErr = err
	k.lastError = errorText(err)
}

func (k *Link) clearErrorLocked() {
	k.lastErr = nil
	k.lastError = ""
}

func (k *Link) touch() {
	k.lastActivity.Store(time.Now().UnixNano())
}

// errorText reduces a wrapped error to the text a caller shows, dropping
// the package prefix of the outermost sentinel.
func errorText(err error) string {
	s := err.Error()
	if i := strings.Index(s, "transport: "); i == 0 {
		s = s[len("transport: "):]
	}
	return s
}
