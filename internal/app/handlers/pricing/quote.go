package pricing

import (
	"context"
	"strings"
	"time"

	"reservations/internal/app/dto"
	"reservations/internal/app/engine"
	"reservations/internal/app/handlers/support"
	"reservations/internal/app/queries"
	"reservations/internal/app/uow"
	domainlistings "reservations/internal/domain/listings"
	domainpricing "reservations/internal/domain/pricing"
)

const quoteKey = "pricing.quote"

type QuoteQuery struct {
	ListingID       string
	Start           time.Time
	End             time.Time
	BookingPeriod   int
	PricingOptionID string
}

func (q QuoteQuery) Key() string { return quoteKey }

func (q QuoteQuery) Validate() error {
	if strings.TrimSpace(q.ListingID) == "" {
		return support.ErrListingIDRequired
	}
	return nil
}

type QuoteHandler struct {
	UoWFactory uow.UoWFactory
	Engine     *engine.Engine
}

func (h *QuoteHandler) Handle(ctx context.Context, q QuoteQuery) (dto.Quote, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Quote{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return dto.Quote{}, err
	}
	window, err := support.ResolveWindow(listing, support.WindowRequest{Start: q.Start, End: q.End, BookingPeriod: q.BookingPeriod})
	if err != nil {
		return dto.Quote{}, err
	}
	quote, err := h.Engine.Quote(ctx, unit, listing, window, domainpricing.OptionID(q.PricingOptionID))
	if err != nil {
		return dto.Quote{}, err
	}
	return dto.MapQuote(quote), nil
}

var _ queries.Handler[QuoteQuery, dto.Quote] = (*QuoteHandler)(nil)
