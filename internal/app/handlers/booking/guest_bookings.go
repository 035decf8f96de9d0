package booking

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"reservations/internal/app/dto"
	"reservations/internal/app/handlers/support"
	"reservations/internal/app/queries"
	"reservations/internal/app/uow"
	domainbooking "reservations/internal/domain/booking"
	domainlistings "reservations/internal/domain/listings"
	"reservations/internal/domain/shared/clock"
	"reservations/internal/domain/shared/fault"
)

const listGuestBookingsKey = "booking.list_by_guest"

var ErrGuestIDRequired = fmt.Errorf("booking: guest id is required: %w", fault.ErrInvalidInput)

type ListGuestBookingsQuery struct {
	GuestID  string
	Statuses []string
}

func (q ListGuestBookingsQuery) Key() string { return listGuestBookingsKey }

func (q ListGuestBookingsQuery) Validate() error {
	if strings.TrimSpace(q.GuestID) == "" {
		return ErrGuestIDRequired
	}
	return nil
}

// ListGuestBookingsHandler lists a guest's bookings across listings with a
// snapshot of each listing. Bookings whose listing can no longer be read are
// still returned, without the snapshot.
type ListGuestBookingsHandler struct {
	UoWFactory uow.UoWFactory
	Clock      clock.Clock
	Logger     *slog.Logger
}

func (h *ListGuestBookingsHandler) Handle(ctx context.Context, q ListGuestBookingsQuery) (dto.GuestBookingCollection, error) {
	guestID := strings.TrimSpace(q.GuestID)
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.GuestBookingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	bookings, err := unit.Bookings().ListByGuest(ctx, guestID)
	if err != nil {
		return dto.GuestBookingCollection{}, err
	}

	wanted := make(map[domainbooking.Status]bool, len(q.Statuses))
	for _, s := range q.Statuses {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			wanted[domainbooking.Status(s)] = true
		}
	}

	now := h.now()
	cache := make(map[domainlistings.ListingID]*domainlistings.Listing)
	items := make([]dto.GuestBookingSummary, 0, len(bookings))
	for _, b := range bookings {
		if len(wanted) > 0 && !wanted[b.Status] {
			continue
		}
		listing, err := loadListing(ctx, unit.Listings(), b.ListingID, cache)
		if err != nil && h.Logger != nil {
			h.Logger.Warn("listing snapshot missing for booking", "booking_id", b.ID, "listing_id", b.ListingID, "error", err)
		}
		items = append(items, dto.MapGuestBookingSummary(b, listing, now))
	}

	if h.Logger != nil {
		h.Logger.Debug("guest bookings listed", "guest_id", guestID, "count", len(items))
	}
	return dto.GuestBookingCollection{Items: items}, nil
}

func (h *ListGuestBookingsHandler) now() time.Time {
	if h.Clock == nil {
		return time.Now().UTC()
	}
	return h.Clock.Now()
}

func loadListing(
	ctx context.Context,
	repo domainlistings.Repository,
	id domainlistings.ListingID,
	cache map[domainlistings.ListingID]*domainlistings.Listing,
) (*domainlistings.Listing, error) {
	if listing, ok := cache[id]; ok {
		return listing, nil
	}
	listing, err := repo.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cache[id] = listing
	return listing, nil
}

var _ queries.Handler[ListGuestBookingsQuery, dto.GuestBookingCollection] = (*ListGuestBookingsHandler)(nil)
