package fleet

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/sdrlink/internal/infrastructure/config"
	"github.com/nerrad567/sdrlink/internal/infrastructure/mqtt"
	"github.com/nerrad567/sdrlink/internal/radio"
	"github.com/nerrad567/sdrlink/internal/radio/radiotest"
)

type published struct {
	topic    string
	payload  any
	retained bool
}

type fakeBroker struct {
	mu         sync.Mutex
	published  []published
	statuses   map[string]string
	subscribed string
	handler    mqtt.MessageHandler
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{statuses: make(map[string]string)}
}

func (b *fakeBroker) Topics() mqtt.Topics { return mqtt.NewTopics("") }

func (b *fakeBroker) PublishJSON(topic string, v any, retained bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, published{topic, v, retained})
	return nil
}

func (b *fakeBroker) PublishRadioStatus(radio, status string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statuses[radio] = status
	return nil
}

func (b *fakeBroker) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribed = topic
	b.handler = handler
	return nil
}

func (b *fakeBroker) last(topic string) (published, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.published) - 1; i >= 0; i-- {
		if b.published[i].topic == topic {
			return b.published[i], true
		}
	}
	return published{}, false
}

func (b *fakeBroker) status(radio string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.statuses[radio]
}

type fakeJournal struct {
	mu      sync.Mutex
	entries []string
}

func (j *fakeJournal) Record(res radio.CommandResult, requestID string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, requestID+"|"+res.Command+"|"+res.Error)
}

type fakeMetrics struct {
	mu          sync.Mutex
	commands    []string
	components  []string
	connections []string
}

func (f *fakeMetrics) WriteCommandMetric(radio, _ string, verb string, success bool, _ time.Duration, _ int, _ time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status := "ok"
	if !success {
		status = "fail"
	}
	f.commands = append(f.commands, radio+" "+verb+" "+status)
}

func (f *fakeMetrics) WriteComponentState(radio, category string, _ int, _ map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.components = append(f.components, radio+" "+category)
}

func (f *fakeMetrics) WriteConnectionState(radio, state string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connections = append(f.connections, radio+" "+state)
}

type fakeEvents struct {
	mu    sync.Mutex
	types []string
}

func (e *fakeEvents) Broadcast(eventType string, _ any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.types = append(e.types, eventType)
}

type fixture struct {
	m       *Manager
	sims    map[string]*radiotest.Sim
	broker  *fakeBroker
	journal *fakeJournal
	metrics *fakeMetrics
	events  *fakeEvents
}

func testRadios() []config.RadioConfig {
	return []config.RadioConfig{
		{Name: "rx1", Model: "NDR308", Mode: "tcp", Host: "10.0.0.1", Port: -1, AutoConnect: true},
		{Name: "rx2", Model: "NDR308", Mode: "tcp", Host: "10.0.0.2", Port: -1},
	}
}

func newFixture(t *testing.T, radios []config.RadioConfig) *fixture {
	t.Helper()
	f := &fixture{
		sims:    make(map[string]*radiotest.Sim),
		broker:  newFakeBroker(),
		journal: &fakeJournal{},
		metrics: &fakeMetrics{},
		events:  &fakeEvents{},
	}
	for _, rc := range radios {
		sim := radiotest.NewSim(", ")
		for _, cmd := range []string{"TPWR 1, 1", "FRQ 1, 800", "ATT 1, 0", "FIF 1, 0"} {
			sim.Seed(cmd)
		}
		f.sims[rc.Name] = sim
	}

	m, err := New(radios, config.TransportConfig{DefaultTimeoutMs: 100},
		WithBroker(f.broker),
		WithJournal(f.journal),
		WithMetrics(f.metrics),
		WithEvents(f.events),
		WithLinks(func(name string) radio.Link { return f.sims[name] }),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	f.m = m
	t.Cleanup(m.Close)
	return f
}

func TestNewRejectsBadRadios(t *testing.T) {
	tests := []struct {
		name   string
		radios []config.RadioConfig
		want   error
	}{
		{"unknown model", []config.RadioConfig{{Name: "a", Model: "NDR999"}}, radio.ErrUnknownModel},
		{"bad mode", []config.RadioConfig{{Name: "a", Model: "NDR308", Mode: "carrier-pigeon"}}, nil},
		{"duplicate", []config.RadioConfig{{Name: "a", Model: "NDR308"}, {Name: "a", Model: "NDR472"}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.radios, config.TransportConfig{DefaultTimeoutMs: 100})
			if err == nil {
				t.Fatal("New() error = nil")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("New() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestStartAutoConnects(t *testing.T) {
	f := newFixture(t, testRadios())

	if err := f.m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if f.broker.subscribed != "sdrlink/command/+/+/+" {
		t.Errorf("subscribed = %q, want all command topics", f.broker.subscribed)
	}

	rx1, err := f.m.Status("rx1")
	if err != nil {
		t.Fatalf("Status(rx1) error = %v", err)
	}
	if !rx1.Connected || rx1.State != "connected" {
		t.Errorf("rx1 = %+v, want connected", rx1)
	}
	rx2, _ := f.m.Status("rx2")
	if rx2.Connected {
		t.Error("rx2 connected without auto_connect")
	}

	if got := f.broker.status("rx1"); got != "connected" {
		t.Errorf("rx1 status topic = %q, want connected", got)
	}
	p, ok := f.broker.last("sdrlink/state/rx1/tuner/1")
	if !ok {
		t.Fatal("tuner 1 state not published on connect")
	}
	if !p.retained {
		t.Error("state published without retain")
	}
	if vals, _ := p.payload.(radio.Values); vals["frequency"] != 800e6 {
		t.Errorf("published frequency = %v, want 800e6", vals["frequency"])
	}

	if got := f.m.Names(); !slices.Equal(got, []string{"rx1", "rx2"}) {
		t.Errorf("Names() = %v", got)
	}
	if got := len(f.m.List()); got != 2 {
		t.Errorf("len(List()) = %d, want 2", got)
	}
}

func TestConfigure(t *testing.T) {
	f := newFixture(t, testRadios())
	if err := f.m.Connect(context.Background(), "rx1"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	sim := f.sims["rx1"]
	sim.Reset()

	ctx := WithRequestID(context.Background(), "req-7")
	st, err := f.m.Configure(ctx, "rx1", radio.CategoryTuner, 1, radio.Values{"frequency": 900e6})
	if err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if st.Values["frequency"] != 900e6 {
		t.Errorf("frequency = %v, want 900e6", st.Values["frequency"])
	}
	if got := sim.Commands(); !slices.Equal(got, []string{"FRQ 1, 900"}) {
		t.Errorf("sent = %q", got)
	}

	f.journal.mu.Lock()
	last := f.journal.entries[len(f.journal.entries)-1]
	f.journal.mu.Unlock()
	if last != "req-7|FRQ 1, 900|" {
		t.Errorf("journal entry = %q, want tagged with req-7", last)
	}

	f.metrics.mu.Lock()
	lastCmd := f.metrics.commands[len(f.metrics.commands)-1]
	f.metrics.mu.Unlock()
	if lastCmd != "rx1 FRQ ok" {
		t.Errorf("command metric = %q", lastCmd)
	}

	f.events.mu.Lock()
	hasChange := slices.Contains(f.events.types, EventComponentChanged)
	hasState := slices.Contains(f.events.types, EventRadioState)
	f.events.mu.Unlock()
	if !hasChange || !hasState {
		t.Errorf("events = %v, want component and state events", f.events.types)
	}
}

func TestConfigureFailureKeepsCache(t *testing.T) {
	f := newFixture(t, testRadios())
	if err := f.m.Connect(context.Background(), "rx1"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	f.sims["rx1"].Fail["FRQ"] = "Frequency out of range"

	st, err := f.m.Configure(context.Background(), "rx1", radio.CategoryTuner, 1, radio.Values{"frequency": 900e6})
	if !errors.Is(err, ErrCommandFailed) {
		t.Fatalf("Configure() error = %v, want ErrCommandFailed", err)
	}
	if !strings.Contains(err.Error(), "Frequency out of range") {
		t.Errorf("error = %v, want radio text", err)
	}
	if st.Values["frequency"] != 800e6 {
		t.Errorf("frequency = %v, want cached 800e6", st.Values["frequency"])
	}
}

func TestLookupErrors(t *testing.T) {
	f := newFixture(t, testRadios())
	ctx := context.Background()

	if _, err := f.m.Status("nope"); !errors.Is(err, ErrUnknownRadio) {
		t.Errorf("Status(nope) error = %v, want ErrUnknownRadio", err)
	}
	if _, err := f.m.Component("rx1", radio.CategoryTuner, 99); !errors.Is(err, ErrUnknownComponent) {
		t.Errorf("Component(tuner 99) error = %v, want ErrUnknownComponent", err)
	}
	if _, err := f.m.Raw(ctx, "rx1", "*IDN?", 0); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Raw() disconnected error = %v, want ErrNotConnected", err)
	}
	if _, err := f.m.Refresh(ctx, "rx1", radio.CategoryTuner, 1); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Refresh() disconnected error = %v, want ErrNotConnected", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := f.m.Connect(cancelled, "rx1"); !errors.Is(err, context.Canceled) {
		t.Errorf("Connect(cancelled) error = %v, want context.Canceled", err)
	}
}

func TestComponentsIncludeSettings(t *testing.T) {
	f := newFixture(t, testRadios())

	comps, err := f.m.Components("rx1")
	if err != nil {
		t.Fatalf("Components() error = %v", err)
	}
	if len(comps) < 2 || comps[0].Category != string(radio.CategoryRadio) {
		t.Fatalf("Components()[0] = %+v, want radio settings first", comps[0])
	}
	if comps[1].Category != string(radio.CategoryTuner) || comps[1].Index != 1 {
		t.Errorf("Components()[1] = %+v, want tuner 1", comps[1])
	}
}

func TestRawAndRefresh(t *testing.T) {
	f := newFixture(t, testRadios())
	ctx := context.Background()
	if err := f.m.Connect(ctx, "rx1"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	lines, err := f.m.Raw(ctx, "rx1", "FRQ 1, 950", 0)
	if err != nil {
		t.Fatalf("Raw() error = %v", err)
	}
	if !slices.Equal(lines, []string{"OK"}) {
		t.Errorf("Raw() = %q, want [OK]", lines)
	}

	// The raw command bypassed the cache until a refresh.
	st, _ := f.m.Component("rx1", radio.CategoryTuner, 1)
	if st.Values["frequency"] != 800e6 {
		t.Errorf("cached frequency = %v, want 800e6 before refresh", st.Values["frequency"])
	}
	st, err = f.m.Refresh(ctx, "rx1", radio.CategoryTuner, 1)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if st.Values["frequency"] != 950e6 {
		t.Errorf("refreshed frequency = %v, want 950e6", st.Values["frequency"])
	}

	f.sims["rx1"].Timeout = true
	if _, err := f.m.Refresh(ctx, "rx1", radio.CategoryTuner, 1); !errors.Is(err, ErrCommandFailed) {
		t.Errorf("Refresh() on timeout error = %v, want ErrCommandFailed", err)
	}
}

func TestHandleCommand(t *testing.T) {
	f := newFixture(t, testRadios())
	if err := f.m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	sim := f.sims["rx1"]
	sim.Reset()

	payload, _ := json.Marshal(map[string]any{"frequency": 900e6})
	if err := f.broker.handler("sdrlink/command/rx1/tuners/1", payload); err != nil {
		t.Fatalf("HandleCommand() error = %v", err)
	}
	if got := sim.Commands(); !slices.Equal(got, []string{"FRQ 1, 900"}) {
		t.Errorf("sent = %q", got)
	}

	f.journal.mu.Lock()
	last := f.journal.entries[len(f.journal.entries)-1]
	f.journal.mu.Unlock()
	if !strings.HasPrefix(last, "mqtt:sdrlink/command/rx1/tuners/1|") {
		t.Errorf("journal entry = %q, want mqtt request id", last)
	}

	tests := []struct {
		name    string
		topic   string
		payload string
		want    error
	}{
		{"bad topic", "sdrlink/command/rx1", `{}`, ErrInvalidPayload},
		{"bad category", "sdrlink/command/rx1/antenna/1", `{}`, ErrUnknownComponent},
		{"bad json", "sdrlink/command/rx1/tuner/1", `{`, ErrInvalidPayload},
		{"unknown radio", "sdrlink/command/rx9/tuner/1", `{"frequency":1e8}`, ErrUnknownRadio},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := f.m.HandleCommand(tt.topic, []byte(tt.payload)); !errors.Is(err, tt.want) {
				t.Errorf("HandleCommand() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestConnectAllReportsFailure(t *testing.T) {
	f := newFixture(t, testRadios())
	f.sims["rx2"].Refuse = true

	err := f.m.ConnectAll(context.Background())
	if !errors.Is(err, ErrConnectFailed) {
		t.Fatalf("ConnectAll() error = %v, want ErrConnectFailed", err)
	}
	if st, _ := f.m.Status("rx1"); !st.Connected {
		t.Error("rx1 not connected after ConnectAll")
	}
	if st, _ := f.m.Status("rx2"); st.Connected || !strings.Contains(st.LastError, "refused") {
		t.Errorf("rx2 = %+v, want refused", st)
	}
}

func TestDisconnectPublishesStatus(t *testing.T) {
	f := newFixture(t, testRadios())
	ctx := context.Background()
	if err := f.m.Connect(ctx, "rx1"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := f.m.Disconnect(ctx, "rx1"); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}

	if got := f.broker.status("rx1"); got != "disconnected" {
		t.Errorf("status = %q, want disconnected", got)
	}
	f.metrics.mu.Lock()
	defer f.metrics.mu.Unlock()
	if !slices.Equal(f.metrics.connections, []string{"rx1 connected", "rx1 disconnected"}) {
		t.Errorf("connection metrics = %v", f.metrics.connections)
	}
}

func TestConcurrentConfigure(t *testing.T) {
	f := newFixture(t, testRadios())
	ctx := context.Background()
	if err := f.m.ConnectAll(ctx); err != nil {
		t.Fatalf("ConnectAll() error = %v", err)
	}
	for _, sim := range f.sims {
		sim.Reset()
	}

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := []string{"rx1", "rx2"}[i%2]
			hz := float64(100+i) * 1e6
			if _, err := f.m.Configure(ctx, name, radio.CategoryTuner, 1, radio.Values{"frequency": hz}); err != nil {
				t.Errorf("Configure(%s) error = %v", name, err)
			}
		}()
	}
	wg.Wait()

	for _, name := range []string{"rx1", "rx2"} {
		if got := f.sims[name].Calls(); got != 4 {
			t.Errorf("%s saw %d commands, want 4", name, got)
		}
	}
}
