package pricing

import (
	"context"
	"fmt"
	"strings"

	"reservations/internal/app/dto"
	"reservations/internal/app/engine"
	"reservations/internal/app/handlers/support"
	"reservations/internal/app/queries"
	"reservations/internal/app/uow"
	domainlistings "reservations/internal/domain/listings"
	domainpricing "reservations/internal/domain/pricing"
	"reservations/internal/domain/shared/calendar"
	"reservations/internal/domain/shared/fault"
)

const effectivePriceKey = "pricing.effective"

var ErrDateRequired = fmt.Errorf("pricing: date is required: %w", fault.ErrInvalidInput)

type EffectivePriceQuery struct {
	ListingID       string
	Date            calendar.Date
	PricingOptionID string
}

func (q EffectivePriceQuery) Key() string { return effectivePriceKey }

func (q EffectivePriceQuery) Validate() error {
	if strings.TrimSpace(q.ListingID) == "" {
		return support.ErrListingIDRequired
	}
	if q.Date.IsZero() {
		return ErrDateRequired
	}
	return nil
}

type EffectivePriceHandler struct {
	UoWFactory uow.UoWFactory
	Engine     *engine.Engine
}

func (h *EffectivePriceHandler) Handle(ctx context.Context, q EffectivePriceQuery) (dto.EffectivePrice, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.EffectivePrice{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return dto.EffectivePrice{}, err
	}
	price, err := h.Engine.EffectivePrice(ctx, unit, listing, q.Date, domainpricing.OptionID(q.PricingOptionID))
	if err != nil {
		return dto.EffectivePrice{}, err
	}
	return dto.MapEffectivePrice(string(listing.ID), price), nil
}

var _ queries.Handler[EffectivePriceQuery, dto.EffectivePrice] = (*EffectivePriceHandler)(nil)
