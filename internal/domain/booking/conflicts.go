package booking

import (
	"context"
	"fmt"

	"reservations/internal/domain/listings"
	"reservations/internal/domain/shared/daterange"
)

// DetectConflicts keeps the occupying bookings that strictly overlap window,
// skipping exclude.
func DetectConflicts(candidates []*Booking, window daterange.DateRange, exclude BookingID) []*Booking {
	var out []*Booking
	for _, b := range candidates {
		if b == nil || !b.Status.Occupies() {
			continue
		}
		if exclude != "" && b.ID == exclude {
			continue
		}
		if daterange.Overlaps(b.Range.Start, b.Range.End, window.Start, window.End) {
			out = append(out, b)
		}
	}
	return out
}

type ConflictDetector struct {
	Bookings Repository
}

func NewConflictDetector(repo Repository) ConflictDetector {
	return ConflictDetector{Bookings: repo}
}

func (d ConflictDetector) Conflicts(ctx context.Context, listing listings.ListingID, window daterange.DateRange, exclude BookingID) ([]*Booking, error) {
	rows, err := d.Bookings.ListOverlapping(ctx, listing, window, OccupyingStatuses)
	if err != nil {
		return nil, fmt.Errorf("booking: load overlapping bookings: %w", err)
	}
	return DetectConflicts(rows, window, exclude), nil
}
