package availability

import (
	"context"
	"strings"
	"time"

	"reservations/internal/app/dto"
	"reservations/internal/app/handlers/support"
	"reservations/internal/app/queries"
	"reservations/internal/app/uow"
	domainbooking "reservations/internal/domain/booking"
	domainlistings "reservations/internal/domain/listings"
	"reservations/internal/domain/shared/daterange"
)

const listConflictsKey = "availability.conflicts"

// ListConflictsQuery is a dry run of the conflict check; it ignores policy.
type ListConflictsQuery struct {
	ListingID        string
	Start            time.Time
	End              time.Time
	ExcludeBookingID string
}

func (q ListConflictsQuery) Key() string { return listConflictsKey }

func (q ListConflictsQuery) Validate() error {
	if strings.TrimSpace(q.ListingID) == "" {
		return support.ErrListingIDRequired
	}
	return nil
}

type ListConflictsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListConflictsHandler) Handle(ctx context.Context, q ListConflictsQuery) (dto.ConflictReport, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ConflictReport{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	window, err := daterange.New(q.Start, q.End)
	if err != nil {
		return dto.ConflictReport{}, err
	}
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return dto.ConflictReport{}, err
	}
	conflicts, err := domainbooking.NewConflictDetector(unit.Bookings()).Conflicts(ctx, listing.ID, window, domainbooking.BookingID(q.ExcludeBookingID))
	if err != nil {
		return dto.ConflictReport{}, err
	}
	return dto.ConflictReport{
		ListingID: string(listing.ID),
		Start:     window.Start,
		End:       window.End,
		Conflicts: dto.MapConflicts(conflicts),
	}, nil
}

var _ queries.Handler[ListConflictsQuery, dto.ConflictReport] = (*ListConflictsHandler)(nil)
