package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	appoutbox "reservations/internal/app/outbox"
	"reservations/internal/infra/storage/memory"
)

type published struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type fakeProducer struct {
	sent []published
	fail int
}

func (p *fakeProducer) Publish(_ context.Context, topic, key string, payload []byte, headers map[string]string) error {
	if p.fail > 0 {
		p.fail--
		return errors.New("broker unavailable")
	}
	p.sent = append(p.sent, published{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

func record(id, name string) appoutbox.EventRecord {
	return appoutbox.EventRecord{
		ID:         id,
		Name:       name,
		Payload:    []byte(`{"booking_id":"bk-1"}`),
		OccurredAt: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		Aggregate:  "lst-1",
		Headers:    map[string]string{"traceparent": "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01"},
	}
}

func TestDrainPublishesCloudEvents(t *testing.T) {
	ctx := context.Background()
	box := memory.NewOutbox()
	_ = box.Add(ctx, record("evt-1", "booking.requested"))
	_ = box.Add(ctx, record("evt-2", "listing.updated"))
	producer := &fakeProducer{}
	w := &Worker{Queue: box, Producer: producer, TopicPrefix: "dev."}

	n, err := w.Drain(ctx)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if n != 2 || len(producer.sent) != 2 {
		t.Fatalf("expected 2 published, got %d", n)
	}
	if producer.sent[0].topic != "dev.booking.events.v1" || producer.sent[1].topic != "dev.listing.events.v1" {
		t.Fatalf("unexpected topics %q %q", producer.sent[0].topic, producer.sent[1].topic)
	}
	if producer.sent[0].key != "lst-1" {
		t.Fatalf("expected aggregate key, got %q", producer.sent[0].key)
	}
	var evt map[string]any
	if err := json.Unmarshal(producer.sent[0].payload, &evt); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if evt["id"] != "evt-1" || evt["type"] != "booking.requested.v1" || evt["traceparent"] == nil {
		t.Fatalf("unexpected cloud event %v", evt)
	}
	if len(box.Pending()) != 0 {
		t.Fatalf("expected nothing pending, got %d", len(box.Pending()))
	}
}

func TestDrainBacksOffFailedPublish(t *testing.T) {
	ctx := context.Background()
	box := memory.NewOutbox()
	_ = box.Add(ctx, record("evt-1", "booking.confirmed"))
	producer := &fakeProducer{fail: 1}
	w := &Worker{Queue: box, Producer: producer, Backoff: []time.Duration{time.Hour}}

	n, err := w.Drain(ctx)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected nothing published, got %d", n)
	}
	n, err = w.Drain(ctx)
	if err != nil {
		t.Fatalf("second drain: %v", err)
	}
	if n != 0 {
		t.Fatalf("record should wait for its backoff, got %d published", n)
	}
	if len(box.Pending()) != 1 {
		t.Fatalf("failed record must stay pending")
	}
}

func TestRunRequiresDependencies(t *testing.T) {
	if err := (&Worker{}).Run(context.Background()); !errors.Is(err, ErrWorkerNotConfigured) {
		t.Fatalf("expected ErrWorkerNotConfigured, got %v", err)
	}
}
