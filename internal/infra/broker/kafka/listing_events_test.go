package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"

	"reservations/internal/app/commands"
	bookingapp "reservations/internal/app/handlers/booking"
	"reservations/internal/infra/storage/memory"
)

func newHandler(t *testing.T, fail *bool, calls *[]string) ListingEventsHandler {
	t.Helper()
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler[bookingapp.RevalidatePendingBookingsCommand, *bookingapp.RevalidatePendingBookingsResult](bus, bookingapp.RevalidatePendingBookingsCommand{}.Key(),
		commands.HandlerFunc[bookingapp.RevalidatePendingBookingsCommand, *bookingapp.RevalidatePendingBookingsResult](func(_ context.Context, cmd bookingapp.RevalidatePendingBookingsCommand) (*bookingapp.RevalidatePendingBookingsResult, error) {
			*calls = append(*calls, cmd.ListingID)
			if *fail {
				return nil, errors.New("store down")
			}
			return &bookingapp.RevalidatePendingBookingsResult{Cancelled: []string{}}, nil
		}))
	return ListingEventsHandler{Commands: bus, Inbox: memory.NewInbox()}
}

func message(body string) *sarama.ConsumerMessage {
	return &sarama.ConsumerMessage{
		Topic: "listing.events.v1",
		Value: []byte(body),
		Headers: []*sarama.RecordHeader{
			{Key: []byte("traceparent"), Value: []byte("00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")},
		},
	}
}

const updated = `{"id":"evt-1","type":"listing.updated.v1","data":{"listing_id":"lst-1"}}`

func TestListingEventsDeduplicates(t *testing.T) {
	var fail bool
	var calls []string
	h := newHandler(t, &fail, &calls)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := h.Handle(ctx, message(updated)); err != nil {
			t.Fatalf("handle %d: %v", i, err)
		}
	}
	if len(calls) != 1 || calls[0] != "lst-1" {
		t.Fatalf("expected one revalidation for lst-1, got %v", calls)
	}
}

func TestListingEventsRetryAfterFailure(t *testing.T) {
	fail := true
	var calls []string
	h := newHandler(t, &fail, &calls)
	ctx := context.Background()

	if err := h.Handle(ctx, message(updated)); err == nil {
		t.Fatalf("expected dispatch error")
	}
	fail = false
	if err := h.Handle(ctx, message(updated)); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("expected redelivery to run again, got %d calls", len(calls))
	}
}

func TestListingEventsIgnoresOtherMessages(t *testing.T) {
	var fail bool
	var calls []string
	h := newHandler(t, &fail, &calls)
	cases := map[string]string{
		"garbage":     `not json`,
		"other type":  `{"id":"evt-2","type":"listing.created.v1","data":{"listing_id":"lst-1"}}`,
		"no listing":  `{"id":"evt-3","type":"listing.updated.v1","data":{}}`,
		"no event id": `{"type":"listing.updated.v1","data":{"listing_id":"lst-1"}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if err := h.Handle(context.Background(), message(body)); err != nil {
				t.Fatalf("unexpected error %v", err)
			}
		})
	}
	if len(calls) != 0 {
		t.Fatalf("expected no revalidation, got %v", calls)
	}
}
