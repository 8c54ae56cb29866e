//go:build integration

package mqtt

import (
	"testing"
	"time"
)

// These tests require a broker at 127.0.0.1:1883.
//
//	go test -tags=integration ./internal/infrastructure/mqtt/...

func TestPublishSubscribeRoundtrip(t *testing.T) {
	client, err := Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // Test cleanup

	topics := client.Topics()
	received := make(chan string, 1)
	err = client.Subscribe(topics.AllCommands(), 1, func(topic string, payload []byte) error {
		received <- topic + " " + string(payload)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := client.Publish(topics.Command("rx1", "tuner", 1), []byte(`{"frequency":100e6}`), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case got := <-received:
		if got != `sdrlink/command/rx1/tuner/1 {"frequency":100e6}` {
			t.Errorf("received %q", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message not received")
	}
}
