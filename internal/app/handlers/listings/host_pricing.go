package listings

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"reservations/internal/app/commands"
	"reservations/internal/app/dto"
	"reservations/internal/app/uow"
	domainlistings "reservations/internal/domain/listings"
	domainpricing "reservations/internal/domain/pricing"
	"reservations/internal/domain/shared/calendar"
	"reservations/internal/domain/shared/clock"
	"reservations/internal/domain/shared/fault"
	"reservations/internal/domain/shared/money"
)

const (
	addPricingOptionKey = "host.pricing.add_option"
	upsertSpecialKey    = "host.pricing.upsert_special"
)

var ErrOptionUnitType = fmt.Errorf("listings: pricing option unit type must match the listing: %w", fault.ErrInvalidInput)

type AddPricingOptionCommand struct {
	ListingID    string
	HostID       string
	OptionID     string
	UnitType     string
	Duration     int
	PriceMinor   int64
	MinimumUnits int
	IsDefault    bool
}

func (c AddPricingOptionCommand) Key() string { return addPricingOptionKey }

type AddPricingOptionHandler struct {
	Clock  clock.Clock
	Logger *slog.Logger
}

// Handle stores a new option. Marking it default clears the flag on the
// listing's other options so at most one default exists.
func (h *AddPricingOptionHandler) Handle(ctx context.Context, cmd AddPricingOptionCommand) (*dto.PricingOption, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	listingID := domainlistings.ListingID(cmd.ListingID)
	if err := unit.LockListing(ctx, listingID); err != nil {
		return nil, err
	}
	listing, err := loadOwned(ctx, unit, listingID, cmd.HostID)
	if err != nil {
		return nil, err
	}
	unitType := listing.UnitType
	if strings.TrimSpace(cmd.UnitType) != "" {
		if unitType, err = domainlistings.ParseUnitType(cmd.UnitType); err != nil {
			return nil, err
		}
	}
	if unitType != listing.UnitType {
		return nil, ErrOptionUnitType
	}
	price, err := money.New(cmd.PriceMinor, listing.Currency)
	if err != nil {
		return nil, err
	}
	id := strings.TrimSpace(cmd.OptionID)
	if id == "" {
		id = uuid.NewString()
	}
	option, err := domainpricing.NewOption(domainpricing.NewOptionParams{
		ID:           domainpricing.OptionID(id),
		ListingID:    listing.ID,
		UnitType:     unitType,
		Duration:     cmd.Duration,
		Price:        price,
		MinimumUnits: cmd.MinimumUnits,
		IsDefault:    cmd.IsDefault,
		Now:          h.Clock.Now(),
	})
	if err != nil {
		return nil, err
	}

	if option.IsDefault {
		existing, err := unit.PricingOptions().ListByListing(ctx, listing.ID)
		if err != nil {
			return nil, err
		}
		for _, demoted := range domainpricing.DemoteOthers(existing, option.ID) {
			demoted := demoted
			if err := unit.PricingOptions().Save(ctx, &demoted); err != nil {
				return nil, err
			}
		}
	}
	if err := unit.PricingOptions().Save(ctx, option); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "pricing option added", "listing_id", listing.ID, "option_id", option.ID, "default", option.IsDefault)
	}
	out := dto.MapPricingOption(*option)
	return &out, nil
}

type UpsertSpecialPricingCommand struct {
	ListingID  string
	HostID     string
	SpecialID  string
	OptionID   string
	Kind       string
	Date       string
	DayOfWeek  string
	ValidFrom  string
	ValidUntil string
	PriceMinor int64
	Reason     string
}

func (c UpsertSpecialPricingCommand) Key() string { return upsertSpecialKey }

type UpsertSpecialPricingHandler struct {
	Clock  clock.Clock
	Logger *slog.Logger
}

func (h *UpsertSpecialPricingHandler) Handle(ctx context.Context, cmd UpsertSpecialPricingCommand) (*dto.SpecialPricing, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	listingID := domainlistings.ListingID(cmd.ListingID)
	if err := unit.LockListing(ctx, listingID); err != nil {
		return nil, err
	}
	listing, err := loadOwned(ctx, unit, listingID, cmd.HostID)
	if err != nil {
		return nil, err
	}
	options, err := unit.PricingOptions().ListByListing(ctx, listing.ID)
	if err != nil {
		return nil, err
	}
	option, err := domainpricing.OptionByID(options, domainpricing.OptionID(cmd.OptionID))
	if err != nil {
		return nil, err
	}
	price, err := money.New(cmd.PriceMinor, listing.Currency)
	if err != nil {
		return nil, err
	}
	id := strings.TrimSpace(cmd.SpecialID)
	if id == "" {
		id = uuid.NewString()
	}
	candidate := domainpricing.SpecialPricing{
		ID:        id,
		ListingID: listing.ID,
		OptionID:  option.ID,
		Kind:      domainpricing.SpecialKind(strings.ToLower(strings.TrimSpace(cmd.Kind))),
		Price:     price,
		Reason:    strings.TrimSpace(cmd.Reason),
		CreatedAt: h.Clock.Now(),
	}
	switch candidate.Kind {
	case domainpricing.SpecialSpecific:
		if candidate.Date, err = calendar.ParseDate(cmd.Date); err != nil {
			return nil, err
		}
	case domainpricing.SpecialRecurring:
		if candidate.Weekday, err = calendar.ParseWeekday(cmd.DayOfWeek); err != nil {
			return nil, err
		}
		if candidate.ValidFrom, err = optionalDate(cmd.ValidFrom); err != nil {
			return nil, err
		}
		if candidate.ValidUntil, err = optionalDate(cmd.ValidUntil); err != nil {
			return nil, err
		}
	default:
		return nil, domainpricing.ErrSpecialKind
	}

	existing, err := unit.SpecialPricing().ListByListing(ctx, listing.ID)
	if err != nil {
		return nil, err
	}
	merged, err := domainpricing.Upsert(existing, candidate)
	if err != nil {
		return nil, err
	}
	if err := unit.SpecialPricing().Save(ctx, &merged); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "special pricing saved", "listing_id", listing.ID, "special_id", merged.ID, "kind", merged.Kind)
	}
	out := dto.MapSpecialPricing(merged)
	return &out, nil
}

func optionalDate(raw string) (*calendar.Date, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	d, err := calendar.ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

var (
	_ commands.Handler[AddPricingOptionCommand, *dto.PricingOption]      = (*AddPricingOptionHandler)(nil)
	_ commands.Handler[UpsertSpecialPricingCommand, *dto.SpecialPricing] = (*UpsertSpecialPricingHandler)(nil)
)
