package booking

import (
	"context"
	"strings"

	"reservations/internal/app/dto"
	"reservations/internal/app/handlers/support"
	"reservations/internal/app/queries"
	"reservations/internal/app/uow"
	domainbooking "reservations/internal/domain/booking"
	domainlistings "reservations/internal/domain/listings"
)

const (
	getBookingKey          = "booking.get"
	listListingBookingsKey = "booking.list_by_listing"
)

type GetBookingQuery struct {
	BookingID string
}

func (q GetBookingQuery) Key() string { return getBookingKey }

type GetBookingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (dto.Booking, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Booking{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	booking, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(q.BookingID))
	if err != nil {
		return dto.Booking{}, err
	}
	return dto.MapBooking(booking), nil
}

type ListListingBookingsQuery struct {
	ListingID string
	Statuses  []string
}

func (q ListListingBookingsQuery) Key() string { return listListingBookingsKey }

func (q ListListingBookingsQuery) Validate() error {
	if strings.TrimSpace(q.ListingID) == "" {
		return support.ErrListingIDRequired
	}
	return nil
}

type ListListingBookingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListListingBookingsHandler) Handle(ctx context.Context, q ListListingBookingsQuery) (dto.BookingCollection, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	var statuses []domainbooking.Status
	for _, s := range q.Statuses {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			statuses = append(statuses, domainbooking.Status(s))
		}
	}
	items, err := unit.Bookings().ListByListing(ctx, domainlistings.ListingID(q.ListingID), statuses)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	out := dto.BookingCollection{Items: make([]dto.Booking, 0, len(items))}
	for _, b := range items {
		out.Items = append(out.Items, dto.MapBooking(b))
	}
	return out, nil
}

var (
	_ queries.Handler[GetBookingQuery, dto.Booking]                    = (*GetBookingHandler)(nil)
	_ queries.Handler[ListListingBookingsQuery, dto.BookingCollection] = (*ListListingBookingsHandler)(nil)
)
