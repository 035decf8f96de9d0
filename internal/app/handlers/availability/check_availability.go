package availability

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"reservations/internal/app/dto"
	"reservations/internal/app/engine"
	"reservations/internal/app/handlers/support"
	"reservations/internal/app/queries"
	"reservations/internal/app/uow"
	domainlistings "reservations/internal/domain/listings"
)

const checkAvailabilityKey = "availability.check"

type CheckAvailabilityQuery struct {
	ListingID     string
	Start         time.Time
	End           time.Time
	UnitType      string
	BookingPeriod int
}

func (q CheckAvailabilityQuery) Key() string { return checkAvailabilityKey }

func (q CheckAvailabilityQuery) Validate() error {
	if strings.TrimSpace(q.ListingID) == "" {
		return support.ErrListingIDRequired
	}
	return nil
}

type CheckAvailabilityHandler struct {
	UoWFactory uow.UoWFactory
	Engine     *engine.Engine
	AllowPast  bool
	Logger     *slog.Logger
}

func (h *CheckAvailabilityHandler) Handle(ctx context.Context, q CheckAvailabilityQuery) (dto.Availability, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Availability{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return dto.Availability{}, err
	}
	window, err := support.ResolveWindow(listing, support.WindowRequest{
		Start:         q.Start,
		End:           q.End,
		UnitType:      q.UnitType,
		BookingPeriod: q.BookingPeriod,
	})
	if err != nil {
		return dto.Availability{}, err
	}
	decision, err := h.Engine.IsBookable(ctx, unit, listing, window, engine.Options{AllowPast: h.AllowPast})
	if err != nil {
		return dto.Availability{}, err
	}
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "availability checked", "listing_id", listing.ID, "available", decision.Available, "reason", decision.Reason)
	}

	out := dto.Availability{
		ListingID: string(listing.ID),
		Start:     window.Start,
		End:       window.End,
		Available: decision.Available,
		Reason:    decision.Reason,
		Source:    decision.Source,
	}
	for _, id := range decision.Conflicts {
		out.Conflicts = append(out.Conflicts, string(id))
	}
	return out, nil
}

var _ queries.Handler[CheckAvailabilityQuery, dto.Availability] = (*CheckAvailabilityHandler)(nil)
