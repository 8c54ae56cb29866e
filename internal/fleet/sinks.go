package fleet

import (
	"context"
	"time"

	"github.com/nerrad567/sdrlink/internal/infrastructure/mqtt"
	"github.com/nerrad567/sdrlink/internal/radio"
)

// Broker publishes radio state and delivers remote commands.
// *mqtt.Client implements it.
type Broker interface {
	Topics() mqtt.Topics
	PublishJSON(topic string, v any, retained bool) error
	PublishRadioStatus(radio, status string) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Metrics records telemetry. *influxdb.Client implements it.
type Metrics interface {
	WriteCommandMetric(radio, model, verb string, success bool, d time.Duration, lines int, at time.Time)
	WriteComponentState(radio, category string, index int, values map[string]any)
	WriteConnectionState(radio, state string)
}

// Journal stores command exchanges. *journal.Recorder implements it.
type Journal interface {
	Record(res radio.CommandResult, requestID string)
}

// Events fans changes out to live API clients. *api.Hub implements it.
type Events interface {
	Broadcast(eventType string, payload any)
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

type requestIDKey struct{}

// WithRequestID tags ctx so journal entries written for commands issued
// under it carry id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id set by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
