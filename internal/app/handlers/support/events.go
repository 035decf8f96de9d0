package support

import (
	"context"

	"go.opentelemetry.io/otel/propagation"

	"reservations/internal/app/outbox"
	"reservations/internal/domain/shared/events"
)

// RecordEvents drains the recorder into the outbox, carrying the caller's
// trace context as headers.
func RecordEvents(ctx context.Context, box outbox.Outbox, encoder outbox.EventEncoder, recorder interface{ Drain() []events.DomainEvent }) error {
	evs := recorder.Drain()
	if len(evs) == 0 {
		return nil
	}
	if encoder == nil {
		carrier := propagation.MapCarrier{}
		propagation.TraceContext{}.Inject(ctx, carrier)
		encoder = outbox.JSONEventEncoder{Headers: carrier}
	}
	return outbox.RecordDomainEvents(ctx, box, encoder, evs)
}
