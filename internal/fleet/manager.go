package fleet

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/sdrlink/internal/infrastructure/config"
	"github.com/nerrad567/sdrlink/internal/radio"
	"github.com/nerrad567/sdrlink/internal/transport"
)

// maxParallelConnects bounds the connect cascades run at once by ConnectAll.
const maxParallelConnects = 4

// Event types broadcast to Events.
const (
	EventComponentChanged = "component.changed"
	EventRadioState       = "radio.state"
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger passed to the manager and every handler.
func WithLogger(l Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithBroker publishes state to and receives commands from an MQTT broker.
func WithBroker(b Broker) Option {
	return func(m *Manager) { m.broker = b }
}

// WithMetrics records command and state telemetry.
func WithMetrics(s Metrics) Option {
	return func(m *Manager) { m.metrics = s }
}

// WithJournal stores every command exchange.
func WithJournal(j Journal) Option {
	return func(m *Manager) { m.journal = j }
}

// WithEvents broadcasts component and connection changes.
func WithEvents(e Events) Option {
	return func(m *Manager) { m.events = e }
}

// WithLinks replaces how each radio's link is created.
func WithLinks(fn func(radio string) radio.Link) Option {
	return func(m *Manager) { m.links = fn }
}

// WithHandlerOptions adds options to every radio handler.
func WithHandlerOptions(opts ...radio.Option) Option {
	return func(m *Manager) { m.handlerOpts = append(m.handlerOpts, opts...) }
}

// ComponentState is a snapshot of one component's cached configuration.
type ComponentState struct {
	Radio    string       `json:"radio"`
	Category string       `json:"category"`
	Index    int          `json:"index"`
	Values   radio.Values `json:"values"`
}

// RadioStatus describes one managed radio.
type RadioStatus struct {
	Name           string            `json:"name"`
	Model          string            `json:"model"`
	State          string            `json:"state"`
	Connected      bool              `json:"connected"`
	Mode           string            `json:"mode"`
	Host           string            `json:"host"`
	Port           int               `json:"port"`
	LastError      string            `json:"last_error,omitempty"`
	VersionInfo    map[string]string `json:"version_info,omitempty"`
	ConnectionInfo map[string]string `json:"connection_info,omitempty"`
	Components     int               `json:"components"`
}

// Manager owns the handlers of every configured radio.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Operations on one radio are serialised; different radios run in parallel.
type Manager struct {
	logger      Logger
	broker      Broker
	metrics     Metrics
	journal     Journal
	events      Events
	handlerOpts []radio.Option
	links       func(radio string) radio.Link

	radios map[string]*managed
	order  []string
}

// managed is one radio and the lock that serialises access to its handler.
type managed struct {
	cfg     config.RadioConfig
	handler *radio.Handler

	mu        sync.Mutex
	requestID string
	published radio.State
}

// New builds a manager for radios. Handlers start disconnected.
//
// Returns:
//   - *Manager: manager ready for Start
//   - error: if a radio names an unsupported model or a mode that does not parse
func New(radios []config.RadioConfig, tc config.TransportConfig, opts ...Option) (*Manager, error) {
	m := &Manager{
		logger: noopLogger{},
		radios: make(map[string]*managed, len(radios)),
	}
	for _, opt := range opts {
		opt(m)
	}

	linkOpts := []transport.Option{transport.WithTLSVerify(tc.VerifyTLS)}
	if tc.DialTimeout > 0 {
		linkOpts = append(linkOpts, transport.WithDialTimeout(time.Duration(tc.DialTimeout)*time.Second))
	}
	if tc.CommandPath != "" {
		linkOpts = append(linkOpts, transport.WithCommandPath(tc.CommandPath))
	}

	for _, rc := range radios {
		if _, dup := m.radios[rc.Name]; dup {
			return nil, fmt.Errorf("fleet: duplicate radio %q", rc.Name)
		}
		if rc.Mode != "" {
			if _, err := transport.ParseMode(rc.Mode); err != nil {
				return nil, fmt.Errorf("fleet: radio %q: %w", rc.Name, err)
			}
		}

		r := &managed{cfg: rc}
		timeout := time.Duration(rc.TimeoutMs) * time.Millisecond
		if timeout <= 0 {
			timeout = time.Duration(tc.DefaultTimeoutMs) * time.Millisecond
		}

		hopts := []radio.Option{
			radio.WithName(rc.Name),
			radio.WithLogger(m.logger),
			radio.WithTimeout(timeout),
			radio.WithLinkOptions(linkOpts...),
			radio.WithCommandObserver(func(res radio.CommandResult) { m.onCommand(r, res) }),
			radio.WithChangeObserver(func(name string, c *radio.Component) { m.onChange(name, c) }),
		}
		if m.links != nil {
			name := rc.Name
			hopts = append(hopts, radio.WithLinkFactory(func(*radio.Model) radio.Link { return m.links(name) }))
		}
		h, err := radio.NewHandler(rc.Model, append(hopts, m.handlerOpts...)...)
		if err != nil {
			return nil, fmt.Errorf("fleet: radio %q: %w", rc.Name, err)
		}
		r.handler = h

		m.radios[rc.Name] = r
		m.order = append(m.order, rc.Name)
	}
	sort.Strings(m.order)

	return m, nil
}

// Start subscribes to remote commands and connects every auto-connect radio.
// A radio that fails to connect is logged and left disconnected.
func (m *Manager) Start(ctx context.Context) error {
	if m.broker != nil {
		if err := m.broker.Subscribe(m.broker.Topics().AllCommands(), 1, m.HandleCommand); err != nil {
			return fmt.Errorf("subscribing to commands: %w", err)
		}
	}

	var auto []string
	for _, name := range m.order {
		if m.radios[name].cfg.AutoConnect {
			auto = append(auto, name)
		}
	}
	if err := m.ConnectAll(ctx, auto...); err != nil {
		m.logger.Warn("auto-connect incomplete", "error", err)
	}
	return nil
}

// ConnectAll connects the named radios, or every radio if none are named,
// a few at a time. It returns the first failure after all attempts finish.
func (m *Manager) ConnectAll(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		names = m.order
	}

	var g errgroup.Group
	g.SetLimit(maxParallelConnects)
	for _, name := range names {
		g.Go(func() error {
			return m.Connect(ctx, name)
		})
	}
	return g.Wait()
}

// Close disconnects every radio.
func (m *Manager) Close() {
	for _, name := range m.order {
		_ = m.Disconnect(context.Background(), name) //nolint:errcheck // name is known
	}
}

// Names returns the configured radio names, sorted.
func (m *Manager) Names() []string {
	return append([]string(nil), m.order...)
}

func (m *Manager) get(name string) (*managed, error) {
	r, ok := m.radios[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRadio, name)
	}
	return r, nil
}

// with runs fn holding the radio's lock, tagging commands with the
// request id of ctx, then publishes any connection state change.
func (m *Manager) with(ctx context.Context, name string, fn func(h *radio.Handler) error) error {
	r, err := m.get(name)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.requestID = RequestID(ctx)
	err = fn(r.handler)
	r.requestID = ""

	m.syncState(r)
	return err
}

// Connect opens the link of name and reads its configuration.
func (m *Manager) Connect(ctx context.Context, name string) error {
	return m.with(ctx, name, func(h *radio.Handler) error {
		r := m.radios[name]
		if !h.Connect(r.cfg.Mode, r.cfg.Host, r.cfg.Port) {
			return fmt.Errorf("%w: %s: %s", ErrConnectFailed, name, h.LastCommandError())
		}
		return nil
	})
}

// Disconnect closes the link of name. Cached configuration is kept.
func (m *Manager) Disconnect(ctx context.Context, name string) error {
	return m.with(ctx, name, func(h *radio.Handler) error {
		h.Disconnect()
		return nil
	})
}

// Status describes one radio.
func (m *Manager) Status(name string) (RadioStatus, error) {
	var st RadioStatus
	err := m.with(context.Background(), name, func(h *radio.Handler) error {
		st = m.status(m.radios[name], h)
		return nil
	})
	return st, err
}

// List describes every radio in name order.
func (m *Manager) List() []RadioStatus {
	out := make([]RadioStatus, 0, len(m.order))
	for _, name := range m.order {
		if st, err := m.Status(name); err == nil {
			out = append(out, st)
		}
	}
	return out
}

func (m *Manager) status(r *managed, h *radio.Handler) RadioStatus {
	mode := r.cfg.Mode
	if mode == "" {
		mode = string(h.Model().Mode)
	}
	return RadioStatus{
		Name:           r.cfg.Name,
		Model:          h.Model().Name,
		State:          h.State().String(),
		Connected:      h.IsConnected(),
		Mode:           mode,
		Host:           r.cfg.Host,
		Port:           r.cfg.Port,
		LastError:      h.LastCommandError(),
		VersionInfo:    h.VersionInfo(),
		ConnectionInfo: h.ConnectionInfo(),
		Components:     len(h.Components()),
	}
}

// Components returns the radio settings followed by every component.
func (m *Manager) Components(name string) ([]ComponentState, error) {
	var out []ComponentState
	err := m.with(context.Background(), name, func(h *radio.Handler) error {
		out = append(out, snapshot(name, h.Settings()))
		for _, c := range h.Components() {
			out = append(out, snapshot(name, c))
		}
		return nil
	})
	return out, err
}

// Component returns the cached configuration of one component.
func (m *Manager) Component(name string, cat radio.Category, index int) (ComponentState, error) {
	var st ComponentState
	err := m.with(context.Background(), name, func(h *radio.Handler) error {
		c, ok := h.Component(cat, index)
		if !ok {
			return fmt.Errorf("%w: %s %s %d", ErrUnknownComponent, name, cat, index)
		}
		st = snapshot(name, c)
		return nil
	})
	return st, err
}

// Configure applies values to one component and returns its new state.
// On failure the returned state reflects what the radio accepted.
func (m *Manager) Configure(ctx context.Context, name string, cat radio.Category, index int, values radio.Values) (ComponentState, error) {
	var st ComponentState
	err := m.with(ctx, name, func(h *radio.Handler) error {
		c, ok := h.Component(cat, index)
		if !ok {
			return fmt.Errorf("%w: %s %s %d", ErrUnknownComponent, name, cat, index)
		}
		ok = c.SetConfiguration(values)
		st = snapshot(name, c)
		if !ok {
			return fmt.Errorf("%w: %s", ErrCommandFailed, h.LastCommandError())
		}
		return nil
	})
	return st, err
}

// Refresh re-reads one component from the radio.
func (m *Manager) Refresh(ctx context.Context, name string, cat radio.Category, index int) (ComponentState, error) {
	var st ComponentState
	err := m.with(ctx, name, func(h *radio.Handler) error {
		c, ok := h.Component(cat, index)
		if !ok {
			return fmt.Errorf("%w: %s %s %d", ErrUnknownComponent, name, cat, index)
		}
		if !h.IsConnected() {
			return fmt.Errorf("%w: %s", ErrNotConnected, name)
		}
		ok = c.QueryConfiguration()
		st = snapshot(name, c)
		if !ok {
			return fmt.Errorf("%w: %s", ErrCommandFailed, h.LastCommandError())
		}
		return nil
	})
	return st, err
}

// Raw sends one command verbatim and returns the response lines.
func (m *Manager) Raw(ctx context.Context, name, command string, timeout time.Duration) ([]string, error) {
	var lines []string
	err := m.with(ctx, name, func(h *radio.Handler) error {
		if !h.IsConnected() {
			return fmt.Errorf("%w: %s", ErrNotConnected, name)
		}
		lines = h.SendCommand(command, timeout)
		if msg := h.LastCommandError(); msg != "" {
			return fmt.Errorf("%w: %s", ErrCommandFailed, msg)
		}
		return nil
	})
	return lines, err
}

// HandleCommand applies a JSON object received on a command topic.
// It has the signature of mqtt.MessageHandler.
func (m *Manager) HandleCommand(topic string, payload []byte) error {
	if m.broker == nil {
		return fmt.Errorf("%w: no broker", ErrInvalidPayload)
	}
	name, catName, index, ok := m.broker.Topics().ParseCommand(topic)
	if !ok {
		return fmt.Errorf("%w: topic %q", ErrInvalidPayload, topic)
	}
	cat, ok := radio.ParseCategory(catName)
	if !ok {
		return fmt.Errorf("%w: category %q", ErrUnknownComponent, catName)
	}

	var values radio.Values
	if err := json.Unmarshal(payload, &values); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	ctx := WithRequestID(context.Background(), "mqtt:"+topic)
	_, err := m.Configure(ctx, name, cat, index, values)
	return err
}

func snapshot(name string, c *radio.Component) ComponentState {
	return ComponentState{
		Radio:    name,
		Category: string(c.Category()),
		Index:    c.Index(),
		Values:   c.Configuration(),
	}
}

// onCommand runs under the radio lock.
func (m *Manager) onCommand(r *managed, res radio.CommandResult) {
	if m.journal != nil {
		m.journal.Record(res, r.requestID)
	}
	if m.metrics != nil {
		m.metrics.WriteCommandMetric(res.Radio, res.Model, res.Verb(), res.Error == "", res.Duration, len(res.Lines), res.Time)
	}
	if res.Error != "" {
		m.logger.Debug("radio command failed", "radio", res.Radio, "command", res.Command, "error", res.Error)
	}
}

// onChange runs under the radio lock.
func (m *Manager) onChange(name string, c *radio.Component) {
	st := snapshot(name, c)

	if m.broker != nil {
		topic := m.broker.Topics().State(name, st.Category, st.Index)
		if err := m.broker.PublishJSON(topic, st.Values, true); err != nil {
			m.logger.Warn("state publish failed", "radio", name, "topic", topic, "error", err)
		}
	}
	if m.metrics != nil {
		m.metrics.WriteComponentState(name, st.Category, st.Index, st.Values)
	}
	if m.events != nil {
		m.events.Broadcast(EventComponentChanged, st)
	}
}

// syncState announces a connection state change. Caller holds r.mu.
func (m *Manager) syncState(r *managed) {
	state := r.handler.State()
	if state == r.published {
		return
	}
	r.published = state
	name := r.cfg.Name

	m.logger.Info("radio state changed", "radio", name, "state", state.String())
	if m.broker != nil {
		if err := m.broker.PublishRadioStatus(name, state.String()); err != nil {
			m.logger.Warn("status publish failed", "radio", name, "error", err)
		}
	}
	if m.metrics != nil {
		m.metrics.WriteConnectionState(name, state.String())
	}
	if m.events != nil {
		m.events.Broadcast(EventRadioState, map[string]string{
			"radio": name,
			"state": state.String(),
			"error": strings.TrimSpace(r.handler.LastCommandError()),
		})
	}
}
