package pricing

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"reservations/internal/domain/listings"
	"reservations/internal/domain/shared/fault"
	"reservations/internal/domain/shared/money"
)

var (
	ErrPricingNotConfigured  = fmt.Errorf("pricing: listing has no pricing options: %w", fault.ErrPricingNotConfigured)
	ErrPricingOptionNotFound = fmt.Errorf("pricing: pricing option %w", fault.ErrNotFound)
	ErrDuration              = fmt.Errorf("pricing: duration must be at least 1: %w", fault.ErrInvalidInput)
	ErrPrice                 = fmt.Errorf("pricing: price must be positive: %w", fault.ErrInvalidInput)
	ErrMinimumUnits          = fmt.Errorf("pricing: minimum units must be at least 1: %w", fault.ErrInvalidInput)
)

type OptionID string

// PricingOption is a base rate: Price buys Duration units of UnitType.
type PricingOption struct {
	ID           OptionID
	ListingID    listings.ListingID
	UnitType     listings.UnitType
	Duration     int
	Price        money.Money
	MinimumUnits int
	IsDefault    bool
	CreatedAt    time.Time
}

type OptionRepository interface {
	ListByListing(ctx context.Context, id listings.ListingID) ([]PricingOption, error)
	Save(ctx context.Context, option *PricingOption) error
}

type NewOptionParams struct {
	ID           OptionID
	ListingID    listings.ListingID
	UnitType     listings.UnitType
	Duration     int
	Price        money.Money
	MinimumUnits int
	IsDefault    bool
	Now          time.Time
}

func NewOption(params NewOptionParams) (*PricingOption, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, fmt.Errorf("pricing: option id is required: %w", fault.ErrInvalidInput)
	}
	if !params.UnitType.Valid() {
		return nil, listings.ErrUnitType
	}
	if params.Duration < 1 {
		return nil, ErrDuration
	}
	if !params.Price.IsPositive() {
		return nil, ErrPrice
	}
	if params.Price.Currency == "" {
		return nil, money.ErrInvalidCurrency
	}
	minUnits := params.MinimumUnits
	if minUnits == 0 {
		minUnits = 1
	}
	if minUnits < 1 {
		return nil, ErrMinimumUnits
	}
	return &PricingOption{
		ID:           params.ID,
		ListingID:    params.ListingID,
		UnitType:     params.UnitType,
		Duration:     params.Duration,
		Price:        params.Price,
		MinimumUnits: minUnits,
		IsDefault:    params.IsDefault,
		CreatedAt:    params.Now.UTC(),
	}, nil
}

// DefaultOption returns the flagged default, or the first option ordered by
// (is_default desc, price asc, created asc).
func DefaultOption(options []PricingOption) (PricingOption, error) {
	if len(options) == 0 {
		return PricingOption{}, ErrPricingNotConfigured
	}
	ordered := append([]PricingOption(nil), options...)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.IsDefault != b.IsDefault {
			return a.IsDefault
		}
		if a.Price.Amount != b.Price.Amount {
			return a.Price.Amount < b.Price.Amount
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return ordered[0], nil
}

// PerUnitPrice is price / duration in minor units, rounded half up.
func PerUnitPrice(option PricingOption) (money.Money, error) {
	if option.Duration < 1 {
		return money.Money{}, ErrDuration
	}
	return option.Price.DivRound(int64(option.Duration))
}

// ResolveOption prefers an exact (unit, duration) match and falls back to the default.
func ResolveOption(options []PricingOption, unit listings.UnitType, duration int) (PricingOption, error) {
	if len(options) == 0 {
		return PricingOption{}, ErrPricingNotConfigured
	}
	for _, option := range options {
		if option.UnitType == unit && option.Duration == duration {
			return option, nil
		}
	}
	return DefaultOption(options)
}

// OptionByID picks the listing's option; an empty id means the default option.
func OptionByID(options []PricingOption, id OptionID) (PricingOption, error) {
	if len(options) == 0 {
		return PricingOption{}, ErrPricingNotConfigured
	}
	if strings.TrimSpace(string(id)) == "" {
		return DefaultOption(options)
	}
	for _, option := range options {
		if option.ID == id {
			return option, nil
		}
	}
	return PricingOption{}, ErrPricingOptionNotFound
}

// DemoteOthers clears is_default on every option except keep and returns the
// ones that changed, so at most one default exists per listing.
func DemoteOthers(options []PricingOption, keep OptionID) []PricingOption {
	var changed []PricingOption
	for _, option := range options {
		if option.ID == keep || !option.IsDefault {
			continue
		}
		option.IsDefault = false
		changed = append(changed, option)
	}
	return changed
}
