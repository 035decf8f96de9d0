package pricing

import (
	"context"
	"errors"
	"fmt"

	"reservations/internal/domain/listings"
	"reservations/internal/domain/shared/calendar"
	"reservations/internal/domain/shared/money"
)

type Source string

const (
	SourceSpecialDate      Source = "special-date"
	SourceSpecialRecurring Source = "special-recurring"
	SourceBase             Source = "base"
)

// EffectivePrice is the per-unit price for one date and where it came from.
type EffectivePrice struct {
	OptionID OptionID
	Date     calendar.Date
	Price    money.Money
	Source   Source
	Reason   string
}

// Resolver applies special-date, then recurring, then base precedence.
type Resolver struct {
	Specials SpecialRepository
}

func NewResolver(specials SpecialRepository) Resolver {
	return Resolver{Specials: specials}
}

func (r Resolver) EffectivePrice(ctx context.Context, listingID listings.ListingID, date calendar.Date, option PricingOption) (EffectivePrice, error) {
	if r.Specials != nil {
		specific, err := r.Specials.SpecificFor(ctx, listingID, date, option.ID)
		switch {
		case err == nil && specific != nil:
			return EffectivePrice{OptionID: option.ID, Date: date, Price: specific.Price, Source: SourceSpecialDate, Reason: specific.Reason}, nil
		case err != nil && !errors.Is(err, ErrSpecialNotFound):
			return EffectivePrice{}, fmt.Errorf("pricing: lookup special date: %w", err)
		}

		rows, err := r.Specials.RecurringFor(ctx, listingID, date.Weekday(), option.ID)
		if err != nil && !errors.Is(err, ErrSpecialNotFound) {
			return EffectivePrice{}, fmt.Errorf("pricing: lookup recurring special: %w", err)
		}
		if row := PickRecurring(rows, date); row != nil {
			return EffectivePrice{OptionID: option.ID, Date: date, Price: row.Price, Source: SourceSpecialRecurring, Reason: row.Reason}, nil
		}
	}

	base, err := PerUnitPrice(option)
	if err != nil {
		return EffectivePrice{}, err
	}
	return EffectivePrice{OptionID: option.ID, Date: date, Price: base, Source: SourceBase}, nil
}
