package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"reservations/internal/app/commands"
	bookingapp "reservations/internal/app/handlers/booking"
	domainlistings "reservations/internal/domain/listings"
)

// Inbox deduplicates consumed events by id.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// ListingEventsHandler re-validates pending bookings when a listing.updated
// event arrives on listing.events.v1.
type ListingEventsHandler struct {
	Commands commands.Bus
	Inbox    Inbox
	Logger   *slog.Logger
}

type cloudEvent struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	TraceParent string          `json:"traceparent"`
	Data        json.RawMessage `json:"data"`
}

type listingUpdatedData struct {
	ListingID string `json:"listing_id"`
}

func (h ListingEventsHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var evt cloudEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		h.logger().WarnContext(ctx, "dropping undecodable event", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		return nil
	}
	if evt.Type != domainlistings.ListingUpdatedName+".v1" {
		return nil
	}
	var data listingUpdatedData
	if err := json.Unmarshal(evt.Data, &data); err != nil || strings.TrimSpace(data.ListingID) == "" || evt.ID == "" {
		h.logger().WarnContext(ctx, "dropping listing event without ids", "offset", msg.Offset)
		return nil
	}

	ctx = extractTrace(ctx, msg, evt.TraceParent)
	ctx, span := otel.Tracer("reservations/kafka").Start(ctx, "listing.updated consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attribute.String("listing.id", data.ListingID), attribute.String("event.id", evt.ID)))
	defer span.End()

	if h.Inbox != nil {
		seen, err := h.Inbox.Seen(ctx, evt.ID)
		if err != nil {
			return fmt.Errorf("kafka: inbox: %w", err)
		}
		if seen {
			return nil
		}
	}
	cmd := bookingapp.RevalidatePendingBookingsCommand{ListingID: data.ListingID}
	res, err := commands.Dispatch[bookingapp.RevalidatePendingBookingsCommand, *bookingapp.RevalidatePendingBookingsResult](ctx, h.Commands, cmd)
	if err != nil {
		span.RecordError(err)
		if h.Inbox != nil {
			if ferr := h.Inbox.Forget(ctx, evt.ID); ferr != nil {
				err = errors.Join(err, ferr)
			}
		}
		return err
	}
	h.logger().InfoContext(ctx, "pending bookings revalidated", "listing_id", data.ListingID, "event_id", evt.ID, "checked", res.Checked, "cancelled", len(res.Cancelled))
	return nil
}

func extractTrace(ctx context.Context, msg *sarama.ConsumerMessage, fallback string) context.Context {
	carrier := propagation.MapCarrier{}
	for _, h := range msg.Headers {
		if h != nil {
			carrier[string(h.Key)] = string(h.Value)
		}
	}
	if _, ok := carrier["traceparent"]; !ok && fallback != "" {
		carrier["traceparent"] = fallback
	}
	return propagation.TraceContext{}.Extract(ctx, carrier)
}

func (h ListingEventsHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
