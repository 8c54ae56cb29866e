package journal

import (
	"context"
	"time"

	"github.com/nerrad567/sdrlink/internal/radio"
)

const writeTimeout = 2 * time.Second

// Logger interface for optional logging.
type Logger interface {
	Warn(msg string, keysAndValues ...any)
}

// Recorder turns command results into journal entries.
type Recorder struct {
	repo   Repository
	logger Logger
}

// NewRecorder creates a recorder writing to repo. logger may be nil.
func NewRecorder(repo Repository, logger Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// Observe records res. It has the signature of radio.CommandObserver.
func (r *Recorder) Observe(res radio.CommandResult) {
	r.Record(res, "")
}

// Record stores res tagged with the API or MQTT request that caused it.
// Write failures are logged, never returned to the command path.
func (r *Recorder) Record(res radio.CommandResult, requestID string) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	created := res.Time
	if created.IsZero() {
		created = time.Now()
	}
	e := &Entry{
		Radio:     res.Radio,
		Command:   res.Command,
		Verb:      res.Verb(),
		Success:   res.Error == "",
		Error:     res.Error,
		Response:  res.Lines,
		Duration:  res.Duration,
		RequestID: requestID,
		CreatedAt: created.UTC(),
	}
	if err := r.repo.Create(ctx, e); err != nil && r.logger != nil {
		r.logger.Warn("journal write failed", "radio", res.Radio, "error", err)
	}
}
