package radio

import (
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nerrad567/sdrlink/internal/transport"
)

// DefaultTimeout bounds a command exchange when no timeout is given.
const DefaultTimeout = 2 * time.Second

// State is the connection state of a handler.
type State int32

// Handler states.
const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateBusy
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateBusy:
		return "busy"
	}
	return "unknown"
}

// Link is the transport a handler drives. *transport.Link implements it.
type Link interface {
	Connect(mode, hostOrDevice string, portOrBaud int) bool
	SendCommand(text string, clearReceiveBuffer bool) bool
	Receive(timeout time.Duration) []string
	IsConnected() bool
	LastError() string
	Disconnect()
}

// LinkFactory creates the link for one connect attempt.
type LinkFactory func(m *Model) Link

// CommandResult describes one completed command exchange.
type CommandResult struct {
	Radio    string
	Model    string
	Command  string
	Lines    []string
	Error    string
	Duration time.Duration
	Time     time.Time
}

// Verb returns the command word, or the JSON "cmd" value for JSON commands.
func (r CommandResult) Verb() string {
	cmd := strings.TrimSpace(r.Command)
	if strings.HasPrefix(cmd, "{") {
		if _, rest, ok := strings.Cut(cmd, `"cmd":`); ok {
			rest = strings.TrimLeft(rest, ` "`)
			if i := strings.IndexByte(rest, '"'); i >= 0 {
				return rest[:i]
			}
		}
		return "json"
	}
	word, _, _ := strings.Cut(cmd, " ")
	return word
}

// CommandObserver is called after every command exchange.
type CommandObserver func(CommandResult)

// ChangeObserver is called after a component's cached configuration changed.
type ChangeObserver func(radio string, c *Component)

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

// Option configures a Handler.
type Option func(*Handler)

// WithName sets the handler name used in logs and observer callbacks.
func WithName(name string) Option {
	return func(h *Handler) {
		if name != "" {
			h.name = name
		}
	}
}

// WithLogger sets the handler logger. The default link factory passes it on.
func WithLogger(l Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithTimeout sets the handler-wide default command timeout.
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithLinkFactory replaces how links are created.
func WithLinkFactory(f LinkFactory) Option {
	return func(h *Handler) {
		if f != nil {
			h.newLink = f
		}
	}
}

// WithLinkOptions adds options for the default transport link.
func WithLinkOptions(opts ...transport.Option) Option {
	return func(h *Handler) {
		h.linkOpts = append(h.linkOpts, opts...)
	}
}

// WithCommandObserver registers fn for every command exchange.
func WithCommandObserver(fn CommandObserver) Option {
	return func(h *Handler) {
		if fn != nil {
			h.onCommand = append(h.onCommand, fn)
		}
	}
}

// WithChangeObserver registers fn for component cache changes.
func WithChangeObserver(fn ChangeObserver) Option {
	return func(h *Handler) {
		if fn != nil {
			h.onChange = append(h.onChange, fn)
		}
	}
}

// Handler drives one physical radio.
//
// A Handler owns its link and every component of the radio. It is not safe
// for concurrent use; State may be read from any goroutine.
type Handler struct {
	name      string
	model     *Model
	logger    Logger
	timeout   time.Duration
	newLink   LinkFactory
	linkOpts  []transport.Option
	onCommand []CommandObserver
	onChange  []ChangeObserver

	link             Link
	state            atomic.Int32
	lastCommandError string
	versionInfo      map[string]string
	connectionInfo   map[string]string
	settings         *Component
	components       map[Key]*Component
}

func newHandler(m *Model, opts ...Option) *Handler {
	h := &Handler{
		name:           m.Name,
		model:          m,
		logger:         noopLogger{},
		timeout:        DefaultTimeout,
		versionInfo:    make(map[string]string),
		connectionInfo: make(map[string]string),
		components:     make(map[Key]*Component),
	}
	h.newLink = h.defaultLink
	for _, opt := range opts {
		opt(h)
	}

	h.settings = newComponent(CategoryRadio, noIndex, m.Settings, m.Dialect, h)
	for _, cat := range Categories {
		build := m.Schemas[cat]
		if build == nil {
			continue
		}
		for _, idx := range m.indexes(cat) {
			h.components[Key{Category: cat, Index: idx}] = newComponent(cat, idx, build(idx), m.Dialect, h)
		}
	}
	return h
}

func (h *Handler) defaultLink(m *Model) Link {
	opts := []transport.Option{transport.WithLogger(h.logger), transport.WithTerminator(m.Terminator)}
	return transport.New(append(opts, h.linkOpts...)...)
}

// Name returns the handler name.
func (h *Handler) Name() string { return h.name }

// Model returns the radio model.
func (h *Handler) Model() *Model { return h.model }

// State returns the connection state.
func (h *Handler) State() State { return State(h.state.Load()) }

func (h *Handler) setState(s State) { h.state.Store(int32(s)) }

// IsConnected reports whether the link is up.
func (h *Handler) IsConnected() bool {
	return h.link != nil && h.link.IsConnected()
}

// Connect opens the link and reads the radio's configuration.
//
// After the link is up it queries identity and version info, prunes
// components the hardware does not have, then queries the radio settings
// and every component in category then index order.
//
// Parameters:
//   - mode: "tcp", "udp", "tty" or "https"; empty selects the model default
//   - hostOrDevice: host name or IP, or serial device path
//   - portOrBaud: port or baud rate; -1 selects the mode default
//
// Returns:
//   - bool: true when connected; on false LastCommandError describes why
func (h *Handler) Connect(mode, hostOrDevice string, portOrBaud int) bool {
	if h.link != nil {
		h.Disconnect()
	}
	if mode == "" {
		mode = string(h.model.Mode)
	}

	h.setState(StateConnecting)
	h.lastCommandError = ""
	h.connectionInfo = map[string]string{
		"mode": mode,
		"host": hostOrDevice,
		"port": strconv.Itoa(portOrBaud),
	}

	link := h.newLink(h.model)
	if !link.Connect(mode, hostOrDevice, portOrBaud) {
		h.lastCommandError = link.LastError()
		h.setState(StateDisconnected)
		h.logger.Error("radio connect failed", "radio", h.name, "mode", mode, "host", hostOrDevice, "error", h.lastCommandError)
		return false
	}
	h.link = link
	h.setState(StateConnected)
	h.logger.Info("radio connected", "radio", h.name, "model", h.model.Name, "mode", mode, "host", hostOrDevice)

	h.QueryVersionInfo()
	if h.model.Prune != nil {
		h.model.Prune(h)
	}
	h.QueryConfiguration()

	return h.IsConnected()
}

// QueryVersionInfo runs the model's identity queries.
func (h *Handler) QueryVersionInfo() {
	for _, q := range h.model.Identity {
		lines := h.SendCommand(q.Command, 0)
		if h.lastCommandError != "" {
			continue
		}
		q.Parse(lines, h.versionInfo)
	}
}

// QueryConfiguration refreshes the radio settings and every component.
func (h *Handler) QueryConfiguration() {
	h.settings.QueryConfiguration()
	for _, c := range h.Components() {
		if !h.IsConnected() {
			return
		}
		c.QueryConfiguration()
	}
}

// SendCommand sends one command and returns the response lines.
//
// The last command error is set from the transport (including "Timeout")
// or from an application error found in the response. Timeouts leave the
// handler connected; a lost link moves it to disconnected.
//
// Parameters:
//   - cmd: command text
//   - timeout: response timeout; zero uses the handler default
//
// Returns:
//   - []string: response lines without echo or error lines
func (h *Handler) SendCommand(cmd string, timeout time.Duration) []string {
	h.lastCommandError = ""
	if !h.IsConnected() {
		h.lastCommandError = errorText(ErrNotConnected)
		return nil
	}
	if timeout <= 0 {
		timeout = h.timeout
	}

	h.setState(StateBusy)
	start := time.Now()

	var lines []string
	if h.link.SendCommand(cmd, true) {
		lines = h.link.Receive(timeout)
	}
	h.lastCommandError = h.link.LastError()

	if len(lines) > 0 && lines[0] == strings.TrimSpace(cmd) {
		lines = lines[1:]
	}
	if msg, bad := h.model.Dialect.ResponseError(lines); bad {
		if h.lastCommandError == "" {
			h.lastCommandError = msg
		}
		lines = slices.DeleteFunc(lines, func(l string) bool {
			_, isErr := transport.ErrorText(l)
			return isErr
		})
	}

	if h.link.IsConnected() {
		h.setState(StateConnected)
	} else {
		h.setState(StateDisconnected)
		h.logger.Warn("radio link lost", "radio", h.name, "error", h.lastCommandError)
	}

	if h.lastCommandError != "" {
		h.logger.Debug("command failed", "radio", h.name, "command", strings.TrimSpace(cmd), "error", h.lastCommandError)
	}

	res := CommandResult{
		Radio:    h.name,
		Model:    h.model.Name,
		Command:  strings.TrimSpace(cmd),
		Lines:    lines,
		Error:    h.lastCommandError,
		Duration: time.Since(start),
		Time:     start,
	}
	for _, fn := range h.onCommand {
		fn(res)
	}
	return lines
}

// Disconnect closes the link. Cached component state is kept.
func (h *Handler) Disconnect() {
	if h.link != nil {
		h.link.Disconnect()
		h.link = nil
		h.logger.Info("radio disconnected", "radio", h.name)
	}
	h.setState(StateDisconnected)
}

// LastCommandError returns the failure text of the most recent command,
// or "" after a success.
func (h *Handler) LastCommandError() string { return h.lastCommandError }

func (h *Handler) setLastCommandError(msg string) { h.lastCommandError = msg }

func (h *Handler) componentChanged(c *Component) {
	for _, fn := range h.onChange {
		fn(h.name, c)
	}
}

// VersionInfo returns a copy of the identity and version info.
func (h *Handler) VersionInfo() map[string]string {
	out := make(map[string]string, len(h.versionInfo))
	for k, v := range h.versionInfo {
		out[k] = v
	}
	return out
}

// ConnectionInfo returns a copy of the last connect parameters.
func (h *Handler) ConnectionInfo() map[string]string {
	out := make(map[string]string, len(h.connectionInfo))
	for k, v := range h.connectionInfo {
		out[k] = v
	}
	return out
}

// Settings returns the component holding the radio's top-level settings.
func (h *Handler) Settings() *Component { return h.settings }

// Component returns the component at (cat, index).
func (h *Handler) Component(cat Category, index int) (*Component, bool) {
	if cat == CategoryRadio {
		return h.settings, true
	}
	c, ok := h.components[Key{Category: cat, Index: index}]
	return c, ok
}

// Components returns every indexed component in category then index order.
func (h *Handler) Components() []*Component {
	out := make([]*Component, 0, len(h.components))
	for _, c := range h.components {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b *Component) int {
		if d := a.category.rank() - b.category.rank(); d != 0 {
			return d
		}
		return a.index - b.index
	})
	return out
}

// Indexes returns the indexes present in cat, ascending.
func (h *Handler) Indexes(cat Category) []int {
	var out []int
	for k := range h.components {
		if k.Category == cat {
			out = append(out, k.Index)
		}
	}
	slices.Sort(out)
	return out
}

func (h *Handler) removeComponent(k Key) {
	if _, ok := h.components[k]; ok {
		delete(h.components, k)
		h.logger.Info("component not installed", "radio", h.name, "component", k.String())
	}
}
