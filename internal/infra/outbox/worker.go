package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	appoutbox "reservations/internal/app/outbox"
	"reservations/internal/domain/shared/clock"
)

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// Worker drains an outbox queue into the event bus: one CloudEvents JSON
// message per record, keyed by aggregate id so one aggregate's events stay ordered.
type Worker struct {
	Queue       appoutbox.Queue
	Producer    Producer
	Interval    time.Duration
	TopicPrefix string
	Source      string
	ID          string
	Backoff     []time.Duration

	// Batch caps records published per tick.
	Batch  int
	Clock  clock.Clock
	Logger *slog.Logger
}

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

func (w *Worker) Run(ctx context.Context) error {
	if w.Queue == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.Drain(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				w.logger().ErrorContext(ctx, "outbox drain failed", "error", err)
			}
		}
	}
}

// Drain publishes due records until the queue is empty or the batch is spent.
// It returns the number of records published.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	sent := 0
	for i := 0; i < w.batch(); i++ {
		ok, err := w.processOnce(ctx)
		if err != nil {
			return sent, err
		}
		if !ok {
			return sent, nil
		}
		sent++
	}
	return sent, nil
}

// processOnce reports false when nothing was due or publishing failed.
func (w *Worker) processOnce(ctx context.Context) (bool, error) {
	d, err := w.Queue.Claim(ctx, w.workerID())
	if err != nil || d == nil {
		return false, err
	}
	topic := w.topicFor(d.Name)
	payload, headers, err := w.formatPayload(d)
	if err != nil {
		return false, w.Queue.MarkFailed(ctx, d.ID, w.nextRetry(d.Attempts), err.Error())
	}
	if err := w.Producer.Publish(ctx, topic, d.Aggregate, payload, headers); err != nil {
		w.logger().WarnContext(ctx, "outbox publish failed", "event_id", d.ID, "topic", topic, "attempts", d.Attempts+1, "error", err)
		return false, w.Queue.MarkFailed(ctx, d.ID, w.nextRetry(d.Attempts), err.Error())
	}
	return true, w.Queue.MarkSent(ctx, d.ID)
}

func (w *Worker) formatPayload(d *appoutbox.Delivery) ([]byte, map[string]string, error) {
	data := map[string]any{}
	if err := json.Unmarshal(d.Payload, &data); err != nil {
		return nil, nil, err
	}
	evt := map[string]any{
		"specversion":     "1.0",
		"id":              d.ID,
		"type":            d.Name + ".v1",
		"source":          w.source(),
		"subject":         d.Aggregate,
		"time":            d.OccurredAt,
		"datacontenttype": "application/json",
		"data":            data,
	}
	if trace, ok := d.Headers["traceparent"]; ok {
		evt["traceparent"] = trace
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{
		"content-type": "application/cloudevents+json",
		"ce_id":        d.ID,
		"ce_type":      d.Name + ".v1",
	}
	for k, v := range d.Headers {
		headers[k] = v
	}
	return payload, headers, nil
}

// topicFor maps "booking.confirmed" to "booking.events.v1".
func (w *Worker) topicFor(name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	topic := base + ".events.v1"
	if w.TopicPrefix != "" {
		topic = w.TopicPrefix + topic
	}
	return topic
}

func (w *Worker) workerID() string {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return w.ID
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return 500 * time.Millisecond
	}
	return w.Interval
}

func (w *Worker) batch() int {
	if w.Batch <= 0 {
		return 100
	}
	return w.Batch
}

func (w *Worker) now() time.Time {
	if w.Clock != nil {
		return w.Clock.Now()
	}
	return time.Now().UTC()
}

func (w *Worker) nextRetry(attempts int) time.Time {
	if attempts < len(w.Backoff) {
		return w.now().Add(w.Backoff[attempts])
	}
	if len(w.Backoff) > 0 {
		return w.now().Add(w.Backoff[len(w.Backoff)-1])
	}
	return w.now().Add(5 * time.Second)
}

func (w *Worker) source() string {
	if w.Source != "" {
		return w.Source
	}
	return "app://reservations"
}

func (w *Worker) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}
