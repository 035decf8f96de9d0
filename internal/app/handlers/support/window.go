package support

import (
	"fmt"
	"strings"
	"time"

	domainlistings "reservations/internal/domain/listings"
	"reservations/internal/domain/shared/daterange"
	"reservations/internal/domain/shared/fault"
)

var (
	ErrUnitTypeMismatch  = fmt.Errorf("support: unit type does not match the listing: %w", fault.ErrInvalidWindow)
	ErrBookingPeriod     = fmt.Errorf("support: booking period must be a positive number of units: %w", fault.ErrInvalidWindow)
	ErrEndRequired       = fmt.Errorf("support: end is required for this listing: %w", fault.ErrInvalidWindow)
	ErrPeriodMismatch    = fmt.Errorf("support: booking period disagrees with end: %w", fault.ErrInvalidWindow)
	ErrListingIDRequired = fmt.Errorf("support: listing id is required: %w", fault.ErrInvalidInput)
)

// WindowRequest is the raw window a caller asked about.
type WindowRequest struct {
	Start         time.Time
	End           time.Time
	UnitType      string
	BookingPeriod int
}

// ResolveWindow checks the requested unit type against the listing and derives
// the end from BookingPeriod when End is zero. When both are given they must
// describe the same window; an appointment is always one unit.
func ResolveWindow(listing *domainlistings.Listing, req WindowRequest) (daterange.DateRange, error) {
	if raw := strings.TrimSpace(req.UnitType); raw != "" {
		unit, err := domainlistings.ParseUnitType(raw)
		if err != nil {
			return daterange.DateRange{}, err
		}
		if unit != listing.UnitType {
			return daterange.DateRange{}, ErrUnitTypeMismatch
		}
	}
	if req.BookingPeriod < 0 {
		return daterange.DateRange{}, ErrBookingPeriod
	}
	end := req.End
	if req.BookingPeriod > 0 {
		step := listing.UnitType.Length()
		switch {
		case step <= 0 && end.IsZero():
			return daterange.DateRange{}, ErrEndRequired
		case step <= 0:
			if req.BookingPeriod != 1 {
				return daterange.DateRange{}, ErrPeriodMismatch
			}
		case end.IsZero():
			end = req.Start.Add(time.Duration(req.BookingPeriod) * step)
		case !end.Equal(req.Start.Add(time.Duration(req.BookingPeriod) * step)):
			return daterange.DateRange{}, ErrPeriodMismatch
		}
	}
	return daterange.New(req.Start, end)
}
