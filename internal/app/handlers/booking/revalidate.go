package booking

import (
	"context"
	"log/slog"
	"strings"

	"reservations/internal/app/commands"
	"reservations/internal/app/engine"
	"reservations/internal/app/handlers/support"
	"reservations/internal/app/outbox"
	"reservations/internal/app/uow"
	domainbooking "reservations/internal/domain/booking"
	domainlistings "reservations/internal/domain/listings"
)

const revalidatePendingKey = "booking.revalidate_pending"

type RevalidatePendingBookingsCommand struct {
	ListingID string
}

func (c RevalidatePendingBookingsCommand) Key() string { return revalidatePendingKey }

func (c RevalidatePendingBookingsCommand) Validate() error {
	if strings.TrimSpace(c.ListingID) == "" {
		return support.ErrListingIDRequired
	}
	return nil
}

type RevalidatePendingBookingsResult struct {
	Checked   int      `json:"checked"`
	Cancelled []string `json:"cancelled"`
}

type RevalidatePendingBookingsHandler struct {
	Engine  *engine.Engine
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
}

// Handle re-checks every future pending booking of the listing against the
// current listing configuration and cancels the ones no longer bookable.
func (h *RevalidatePendingBookingsHandler) Handle(ctx context.Context, cmd RevalidatePendingBookingsCommand) (*RevalidatePendingBookingsResult, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	listingID := domainlistings.ListingID(cmd.ListingID)
	if err := unit.LockListing(ctx, listingID); err != nil {
		return nil, err
	}
	listing, err := unit.Listings().ByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	pending, err := unit.Bookings().ListByListing(ctx, listingID, []domainbooking.Status{domainbooking.StatusPending})
	if err != nil {
		return nil, err
	}

	now := h.Engine.Clock.Now()
	res := &RevalidatePendingBookingsResult{Cancelled: []string{}}
	for _, b := range pending {
		if !b.Range.Start.After(now) {
			continue
		}
		res.Checked++
		decision, err := h.Engine.IsBookable(ctx, unit, listing, b.Range, engine.Options{ExcludeBookingID: b.ID})
		if err != nil {
			return nil, err
		}
		if decision.Available {
			continue
		}
		if err := b.Cancel(domainbooking.ReasonRevalidationFailed, now); err != nil {
			return nil, err
		}
		if err := unit.Bookings().Update(ctx, b); err != nil {
			return nil, err
		}
		if err := support.RecordEvents(ctx, h.Outbox, h.Encoder, b); err != nil {
			return nil, err
		}
		res.Cancelled = append(res.Cancelled, string(b.ID))
		if h.Logger != nil {
			h.Logger.InfoContext(ctx, "pending booking cancelled after listing change", "listing_id", listingID, "booking_id", b.ID, "reason", decision.Reason)
		}
	}
	return res, nil
}

var _ commands.Handler[RevalidatePendingBookingsCommand, *RevalidatePendingBookingsResult] = (*RevalidatePendingBookingsHandler)(nil)
