package booking

import (
	"context"
	"strings"
	"time"

	"reservations/internal/app/commands"
	"reservations/internal/app/dto"
	"reservations/internal/app/engine"
	"reservations/internal/app/handlers/support"
	"reservations/internal/app/outbox"
	"reservations/internal/app/uow"
	domainbooking "reservations/internal/domain/booking"
)

const rescheduleBookingKey = "booking.reschedule"

type RescheduleBookingCommand struct {
	BookingID string
	Start     time.Time
	End       time.Time
}

func (c RescheduleBookingCommand) Key() string { return rescheduleBookingKey }

func (c RescheduleBookingCommand) Validate() error {
	if strings.TrimSpace(c.BookingID) == "" {
		return domainbooking.ErrBookingNotFound
	}
	return nil
}

type RescheduleBookingResult struct {
	Booking   *dto.Booking `json:"booking,omitempty"`
	Available bool         `json:"available"`
	Reason    string       `json:"reason,omitempty"`
	Conflicts []string     `json:"conflicts,omitempty"`
}

type RescheduleBookingHandler struct {
	Engine    *engine.Engine
	Outbox    outbox.Outbox
	Encoder   outbox.EventEncoder
	AllowPast bool
}

// Handle re-runs the availability decision for the new window, ignoring the
// booking's own occupancy, then moves and re-prices it.
func (h *RescheduleBookingHandler) Handle(ctx context.Context, cmd RescheduleBookingCommand) (*RescheduleBookingResult, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	booking, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	if err := unit.LockListing(ctx, booking.ListingID); err != nil {
		return nil, err
	}
	listing, err := unit.Listings().ByID(ctx, booking.ListingID)
	if err != nil {
		return nil, err
	}
	window, err := support.ResolveWindow(listing, support.WindowRequest{Start: cmd.Start, End: cmd.End})
	if err != nil {
		return nil, err
	}
	decision, err := h.Engine.IsBookable(ctx, unit, listing, window, engine.Options{AllowPast: h.AllowPast, ExcludeBookingID: booking.ID})
	if err != nil {
		return nil, err
	}
	if !decision.Available {
		res := &RescheduleBookingResult{Reason: decision.Reason}
		for _, c := range decision.Conflicts {
			res.Conflicts = append(res.Conflicts, string(c))
		}
		return res, nil
	}
	quote, err := h.Engine.Quote(ctx, unit, listing, window, booking.PricingOptionID)
	if err != nil {
		return nil, err
	}
	if err := booking.Reschedule(window, quote.Total, h.Engine.Clock.Now()); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Update(ctx, booking); err != nil {
		return nil, err
	}
	if err := support.RecordEvents(ctx, h.Outbox, h.Encoder, booking); err != nil {
		return nil, err
	}
	out := dto.MapBooking(booking)
	return &RescheduleBookingResult{Booking: &out, Available: true}, nil
}

var _ commands.Handler[RescheduleBookingCommand, *RescheduleBookingResult] = (*RescheduleBookingHandler)(nil)
