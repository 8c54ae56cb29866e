package mqtt

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/nerrad567/sdrlink/internal/infrastructure/config"
)

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "sdrlink-test",
		},
		QoS:         1,
		TopicPrefix: "sdrlink",
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func TestTopicBuilders(t *testing.T) {
	topics := NewTopics("")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"state", topics.State("rx1", "tuner", 1), "sdrlink/state/rx1/tuner/1"},
		{"command", topics.Command("rx1", "ddc", 3), "sdrlink/command/rx1/ddc/3"},
		{"all commands", topics.AllCommands(), "sdrlink/command/+/+/+"},
		{"radio status", topics.RadioStatus("tx1"), "sdrlink/status/tx1"},
		{"system status", topics.SystemStatus(), "sdrlink/system/status"},
		{"custom prefix", NewTopics("/lab/sdr/").State("a", "group", 0), "lab/sdr/state/a/group/0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("topic = %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestParseCommand(t *testing.T) {
	topics := NewTopics("sdrlink")

	tests := []struct {
		topic     string
		wantRadio string
		wantCat   string
		wantIndex int
		wantOK    bool
	}{
		{"sdrlink/command/rx1/tuner/2", "rx1", "tuner", 2, true},
		{"sdrlink/command/rx1/radio/-1", "rx1", "radio", -1, true},
		{"sdrlink/state/rx1/tuner/2", "", "", 0, false},
		{"sdrlink/command/rx1/tuner", "", "", 0, false},
		{"sdrlink/command/rx1/tuner/two", "", "", 0, false},
		{"sdrlink/command//tuner/1", "", "", 0, false},
		{"other/command/rx1/tuner/1", "", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			radio, cat, index, ok := topics.ParseCommand(tt.topic)
			if radio != tt.wantRadio || cat != tt.wantCat || index != tt.wantIndex || ok != tt.wantOK {
				t.Errorf("ParseCommand(%q) = (%q, %q, %d, %v), want (%q, %q, %d, %v)",
					tt.topic, radio, cat, index, ok, tt.wantRadio, tt.wantCat, tt.wantIndex, tt.wantOK)
			}
		})
	}
}

func TestStatusPayloads(t *testing.T) {
	tests := []struct {
		name       string
		payload    []byte
		wantStatus string
		wantReason string
	}{
		{"online", buildOnlinePayload("c1"), "online", ""},
		{"graceful", buildOfflinePayload("c1"), "offline", "graceful_shutdown"},
		{"lwt", statusPayload("offline", "c1", "unexpected_disconnect"), "offline", "unexpected_disconnect"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p StatusPayload
			if err := json.Unmarshal(tt.payload, &p); err != nil {
				t.Fatalf("payload is not JSON: %v", err)
			}
			if p.Status != tt.wantStatus || p.Reason != tt.wantReason || p.ClientID != "c1" {
				t.Errorf("payload = %+v", p)
			}
			if p.Timestamp == "" {
				t.Error("Timestamp empty")
			}
		})
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Auth.Username = "radio"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "ssl://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want ssl://127.0.0.1:1883", opts.Servers)
	}
	if opts.ClientID != "sdrlink-test" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "radio" || opts.Password != "secret" {
		t.Errorf("credentials = %q/%q", opts.Username, opts.Password)
	}
	if opts.TLSConfig == nil {
		t.Error("TLSConfig = nil with TLS enabled")
	}
	if !opts.AutoReconnect {
		t.Error("AutoReconnect = false")
	}
}

func TestNewClientLWT(t *testing.T) {
	c := newClient(testConfig())

	if !c.opts.WillEnabled || c.opts.WillTopic != "sdrlink/system/status" || !c.opts.WillRetained {
		t.Errorf("will = enabled %v topic %q retained %v",
			c.opts.WillEnabled, c.opts.WillTopic, c.opts.WillRetained)
	}
	if !strings.Contains(string(c.opts.WillPayload), "unexpected_disconnect") {
		t.Errorf("WillPayload = %s", c.opts.WillPayload)
	}
}

func TestValidationBeforeConnect(t *testing.T) {
	c := newClient(testConfig())
	noop := func(string, []byte) error { return nil }

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"publish empty topic", c.Publish("", nil, 1, false), ErrInvalidTopic},
		{"publish bad qos", c.Publish("a", nil, 3, false), ErrInvalidQoS},
		{"publish too large", c.Publish("a", make([]byte, maxPayloadSize+1), 1, false), ErrPublishFailed},
		{"publish disconnected", c.Publish("a", []byte("x"), 1, false), ErrNotConnected},
		{"publish json disconnected", c.PublishJSON("a", map[string]int{"x": 1}, true), ErrNotConnected},
		{"radio status disconnected", c.PublishRadioStatus("rx1", "connected"), ErrNotConnected},
		{"subscribe empty topic", c.Subscribe("", 1, noop), ErrInvalidTopic},
		{"subscribe misplaced wildcard", c.Subscribe("sdrlink/#/rx1", 1, noop), ErrInvalidTopic},
		{"subscribe bad qos", c.Subscribe("a", 7, noop), ErrInvalidQoS},
		{"subscribe nil handler", c.Subscribe("a", 1, nil), ErrSubscribeFailed},
		{"subscribe disconnected", c.Subscribe("a", 1, noop), ErrNotConnected},
		{"unsubscribe empty", c.Unsubscribe(""), ErrInvalidTopic},
		{"unsubscribe disconnected", c.Unsubscribe("a"), ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("error = %v, want %v", tt.err, tt.want)
			}
		})
	}

	if c.SubscriptionCount() != 0 || c.HasSubscription("a") {
		t.Error("failed subscribe left a tracked subscription")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on unconnected client = %v", err)
	}
}

func TestCloseNil(t *testing.T) {
	var c *Client
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil client = %v", err)
	}
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type recordingLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func TestDeliver(t *testing.T) {
	c := newClient(testConfig())
	logger := &recordingLogger{}
	c.SetLogger(logger)

	var got string
	c.deliver(func(topic string, payload []byte) error {
		got = topic + "=" + string(payload)
		return nil
	})(nil, fakeMessage{topic: "sdrlink/command/rx1/tuner/1", payload: []byte(`{}`)})
	if got != "sdrlink/command/rx1/tuner/1={}" {
		t.Errorf("handler saw %q", got)
	}

	c.deliver(func(string, []byte) error {
		return errors.New("bad payload")
	})(nil, fakeMessage{topic: "t"})

	c.deliver(func(string, []byte) error {
		panic("boom")
	})(nil, fakeMessage{topic: "t"})

	if len(logger.warns) != 1 {
		t.Errorf("warns = %v, want one for the handler error", logger.warns)
	}
	if len(logger.errors) != 1 {
		t.Errorf("errors = %v, want one for the recovered panic", logger.errors)
	}
}

func TestValidFilter(t *testing.T) {
	tests := []struct {
		filter string
		want   bool
	}{
		{"sdrlink/command/+/+/+", true},
		{"sdrlink/#", true},
		{"#", true},
		{"sdrlink/state/rx1/tuner/1", true},
		{"", false},
		{"sdrlink/#/rx1", false},
		{"sdrlink/rx+/tuner", false},
		{"sdrlink/tuner#", false},
	}
	for _, tt := range tests {
		if got := validFilter(tt.filter); got != tt.want {
			t.Errorf("validFilter(%q) = %v, want %v", tt.filter, got, tt.want)
		}
	}
}
