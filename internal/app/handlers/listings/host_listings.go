package listings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"reservations/internal/app/commands"
	"reservations/internal/app/dto"
	"reservations/internal/app/handlers/booking"
	"reservations/internal/app/handlers/support"
	"reservations/internal/app/outbox"
	"reservations/internal/app/queries"
	"reservations/internal/app/uow"
	domainlistings "reservations/internal/domain/listings"
	"reservations/internal/domain/shared/clock"
	"reservations/internal/domain/shared/fault"
)

const (
	createListingKey = "host.listings.create"
	updateListingKey = "host.listings.update"
	getListingKey    = "listings.get"
)

var (
	ErrHostMismatch  = fmt.Errorf("listings: listing belongs to another host: %w", fault.ErrNotFound)
	ErrListingExists = fmt.Errorf("listings: listing id already in use: %w", fault.ErrInvalidInput)
)

type CreateListingCommand struct {
	ListingID        string
	HostID           string
	Title            string
	UnitType         string
	AvailabilityMode string
	Currency         string
}

func (c CreateListingCommand) Key() string { return createListingKey }

type CreateListingHandler struct {
	Clock   clock.Clock
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
}

func (h *CreateListingHandler) Handle(ctx context.Context, cmd CreateListingCommand) (*dto.Listing, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	unitType, err := domainlistings.ParseUnitType(cmd.UnitType)
	if err != nil {
		return nil, err
	}
	var mode domainlistings.AvailabilityMode
	if strings.TrimSpace(cmd.AvailabilityMode) != "" {
		if mode, err = domainlistings.ParseAvailabilityMode(cmd.AvailabilityMode); err != nil {
			return nil, err
		}
	}
	id := strings.TrimSpace(cmd.ListingID)
	if id == "" {
		id = uuid.NewString()
	} else if _, err := unit.Listings().ByID(ctx, domainlistings.ListingID(id)); err == nil {
		return nil, ErrListingExists
	} else if !errors.Is(err, fault.ErrNotFound) {
		return nil, err
	}
	listing, err := domainlistings.NewListing(domainlistings.CreateListingParams{
		ID:               domainlistings.ListingID(id),
		Host:             domainlistings.HostID(cmd.HostID),
		Title:            cmd.Title,
		UnitType:         unitType,
		AvailabilityMode: mode,
		Currency:         cmd.Currency,
		Now:              h.Clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return nil, err
	}
	if err := support.RecordEvents(ctx, h.Outbox, h.Encoder, listing); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "listing created", "listing_id", listing.ID, "host_id", listing.Host)
	}
	out := dto.MapListing(listing)
	return &out, nil
}

type UpdateListingCommand struct {
	ListingID        string
	HostID           string
	Title            string
	UnitType         string
	AvailabilityMode string
}

func (c UpdateListingCommand) Key() string { return updateListingKey }

type UpdateListingResult struct {
	Listing   dto.Listing `json:"listing"`
	Cancelled []string    `json:"cancelled_bookings"`
}

// Revalidator re-checks pending bookings after a listing change.
type Revalidator = commands.Handler[booking.RevalidatePendingBookingsCommand, *booking.RevalidatePendingBookingsResult]

type UpdateListingHandler struct {
	Clock      clock.Clock
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Revalidate Revalidator
	Logger     *slog.Logger
}

func (h *UpdateListingHandler) Handle(ctx context.Context, cmd UpdateListingCommand) (*UpdateListingResult, error) {
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
	params := domainlistings.UpdateListingParams{Title: cmd.Title, Now: h.Clock.Now()}
	if strings.TrimSpace(cmd.UnitType) != "" {
		if params.UnitType, err = domainlistings.ParseUnitType(cmd.UnitType); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(cmd.AvailabilityMode) != "" {
		if params.AvailabilityMode, err = domainlistings.ParseAvailabilityMode(cmd.AvailabilityMode); err != nil {
			return nil, err
		}
	}
	if err := listing.Update(params); err != nil {
		return nil, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return nil, err
	}
	if err := support.RecordEvents(ctx, h.Outbox, h.Encoder, listing); err != nil {
		return nil, err
	}

	res := &UpdateListingResult{Listing: dto.MapListing(listing), Cancelled: []string{}}
	if h.Revalidate != nil {
		rv, err := h.Revalidate.Handle(ctx, booking.RevalidatePendingBookingsCommand{ListingID: string(listing.ID)})
		if err != nil {
			return nil, err
		}
		res.Cancelled = rv.Cancelled
	}
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "listing updated", "listing_id", listing.ID, "cancelled_bookings", len(res.Cancelled))
	}
	return res, nil
}

type GetListingQuery struct {
	ListingID string
}

func (q GetListingQuery) Key() string { return getListingKey }

type ListingDetail struct {
	Listing        dto.Listing          `json:"listing"`
	PricingOptions []dto.PricingOption  `json:"pricing_options"`
	SpecialPricing []dto.SpecialPricing `json:"special_pricing"`
}

type GetListingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetListingHandler) Handle(ctx context.Context, q GetListingQuery) (ListingDetail, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return ListingDetail{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return ListingDetail{}, err
	}
	options, err := unit.PricingOptions().ListByListing(ctx, listing.ID)
	if err != nil {
		return ListingDetail{}, err
	}
	specials, err := unit.SpecialPricing().ListByListing(ctx, listing.ID)
	if err != nil {
		return ListingDetail{}, err
	}
	out := ListingDetail{
		Listing:        dto.MapListing(listing),
		PricingOptions: make([]dto.PricingOption, 0, len(options)),
		SpecialPricing: make([]dto.SpecialPricing, 0, len(specials)),
	}
	for _, o := range options {
		out.PricingOptions = append(out.PricingOptions, dto.MapPricingOption(o))
	}
	for _, s := range specials {
		out.SpecialPricing = append(out.SpecialPricing, dto.MapSpecialPricing(s))
	}
	return out, nil
}

// loadOwned returns the listing when hostID is empty or matches its host.
func loadOwned(ctx context.Context, unit uow.UnitOfWork, id domainlistings.ListingID, hostID string) (*domainlistings.Listing, error) {
	listing, err := unit.Listings().ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if host := strings.TrimSpace(hostID); host != "" && domainlistings.HostID(host) != listing.Host {
		return nil, ErrHostMismatch
	}
	return listing, nil
}

var (
	_ commands.Handler[CreateListingCommand, *dto.Listing]         = (*CreateListingHandler)(nil)
	_ commands.Handler[UpdateListingCommand, *UpdateListingResult] = (*UpdateListingHandler)(nil)
	_ queries.Handler[GetListingQuery, ListingDetail]              = (*GetListingHandler)(nil)
)
