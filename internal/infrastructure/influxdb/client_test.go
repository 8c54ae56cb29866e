package influxdb_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/sdrlink/internal/infrastructure/config"
	"github.com/nerrad567/sdrlink/internal/infrastructure/influxdb"
)

// fakeInflux answers ping and health checks and records line protocol writes.
type fakeInflux struct {
	*httptest.Server
	mu     sync.Mutex
	writes []string
}

func newFakeInflux(t *testing.T) *fakeInflux {
	t.Helper()
	f := &fakeInflux{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/health":
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"name":"influxdb","status":"pass","message":"ready"}`)
		case r.URL.Path == "/api/v2/write":
			body, _ := io.ReadAll(r.Body)
			f.mu.Lock()
			f.writes = append(f.writes, string(body))
			f.mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeInflux) lines() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Join(f.writes, "")
}

func testConfig(url string) config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         "test-token",
		Org:           "lab",
		Bucket:        "radios",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

func connect(t *testing.T) (*influxdb.Client, *fakeInflux) {
	t.Helper()
	server := newFakeInflux(t)
	client, err := influxdb.Connect(testConfig(server.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() }) //nolint:errcheck // Test cleanup
	return client, server
}

func TestConnect(t *testing.T) {
	client, _ := connect(t)
	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Enabled = false

	if _, err := influxdb.Connect(cfg); !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	if _, err := influxdb.Connect(testConfig(url)); !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestWriteCommandMetric(t *testing.T) {
	client, server := connect(t)

	client.WriteCommandMetric("rx1", "NDR308", "FRQ", true, 2500*time.Microsecond, 1, time.Now())
	client.WriteCommandMetric("rx1", "NDR308", "ATT", false, time.Millisecond, 0, time.Now())
	client.Flush()

	got := server.lines()
	for _, want := range []string{
		"radio_command,model=NDR308,radio=rx1,success=true,verb=FRQ",
		"duration_ms=2.5",
		"success=false,verb=ATT",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("writes = %q, want containing %q", got, want)
		}
	}
}

func TestWriteComponentState(t *testing.T) {
	client, server := connect(t)

	client.WriteComponentState("rx1", "tuner", 1, map[string]any{
		"frequency": 100e6,
		"enable":    true,
		"ipAddress": "10.0.0.1",
	})
	client.WriteComponentState("rx1", "dataport", 1, map[string]any{"sourceIP": "10.0.0.9"})
	client.Flush()

	got := server.lines()
	if !strings.Contains(got, "radio_component,component=tuner,index=1,radio=rx1") {
		t.Errorf("writes = %q, want tuner point", got)
	}
	if strings.Contains(got, "10.0.0") {
		t.Errorf("writes = %q, text fields must be dropped", got)
	}
	if strings.Contains(got, "component=dataport") {
		t.Errorf("writes = %q, point without numeric fields must be skipped", got)
	}
}

func TestWriteConnectionState(t *testing.T) {
	client, server := connect(t)

	client.WriteConnectionState("tx1", "connected")
	client.Flush()

	if got := server.lines(); !strings.Contains(got, `radio_connection,radio=tx1 connected=true,state="connected"`) {
		t.Errorf("writes = %q", got)
	}
}

func TestWritesAfterCloseAreDropped(t *testing.T) {
	client, server := connect(t)
	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	client.WritePoint("custom", map[string]string{"a": "b"}, map[string]any{"v": 1.0})
	client.Flush()

	if got := server.lines(); strings.Contains(got, "custom") {
		t.Errorf("writes after Close = %q", got)
	}
}

func TestWriteErrorsCounted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"name":"influxdb","status":"pass"}`)
			return
		case "/ping":
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"code":"invalid","message":"bad line"}`)
	}))
	defer server.Close()

	client, err := influxdb.Connect(testConfig(server.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // Test cleanup

	reported := make(chan error, 1)
	client.SetOnError(func(err error) {
		select {
		case reported <- err:
		default:
		}
	})

	client.WriteConnectionState("rx1", "connected")
	client.Flush()

	select {
	case <-reported:
	case <-time.After(5 * time.Second):
		t.Fatal("write error not reported")
	}
	if client.WriteErrors() == 0 {
		t.Error("WriteErrors() = 0 after a rejected batch")
	}
}

func TestClose_Nil(t *testing.T) {
	var client *influxdb.Client
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client = %v", err)
	}
}
