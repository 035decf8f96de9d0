package pricing

import (
	"errors"
	"fmt"
	"time"

	"reservations/internal/domain/listings"
	"reservations/internal/domain/shared/calendar"
	"reservations/internal/domain/shared/daterange"
	"reservations/internal/domain/shared/fault"
	"reservations/internal/domain/shared/money"
)

var (
	ErrBelowMinimumUnits = fmt.Errorf("pricing: window is shorter than the option's minimum units: %w", fault.ErrInvalidWindow)
	ErrNoUnits           = fmt.Errorf("pricing: window does not contain a bookable unit: %w", fault.ErrInvalidWindow)
	ErrCurrencyUnset     = errors.New("pricing: currency must be defined")
)

// UnitPrice is one priced unit of a quote.
type UnitPrice struct {
	Start  time.Time
	Date   calendar.Date
	Price  money.Money
	Source Source
	Reason string
}

// Quote is the sum of the effective per-unit prices of a window.
type Quote struct {
	ListingID listings.ListingID
	OptionID  OptionID
	Window    daterange.DateRange
	Units     int
	Lines     []UnitPrice
	Total     money.Money
}

func (q *Quote) Validate() error {
	if len(q.Lines) == 0 {
		return ErrNoUnits
	}
	if q.Lines[0].Price.Currency == "" {
		return ErrCurrencyUnset
	}
	return nil
}

func (q *Quote) RecalculateTotal() error {
	if err := q.Validate(); err != nil {
		return err
	}
	total := money.Zero(q.Lines[0].Price.Currency)
	for _, line := range q.Lines {
		next, err := total.Add(line.Price)
		if err != nil {
			return err
		}
		total = next
	}
	q.Units = len(q.Lines)
	q.Total = total
	return nil
}

// UnitStarts steps the window by the unit length starting at window start. A
// trailing partial unit counts as a unit. Appointment windows are one unit.
func UnitStarts(window daterange.DateRange, unit listings.UnitType) []time.Time {
	if !window.End.After(window.Start) {
		return nil
	}
	step := unit.Length()
	if step <= 0 {
		return []time.Time{window.Start}
	}
	var starts []time.Time
	for t := window.Start; t.Before(window.End); t = t.Add(step) {
		starts = append(starts, t)
	}
	return starts
}

// EnsureMinimumUnits rejects a unit count below the option's minimum.
func EnsureMinimumUnits(option PricingOption, units int) error {
	if units < 1 {
		return ErrNoUnits
	}
	if option.MinimumUnits > 0 && units < option.MinimumUnits {
		return ErrBelowMinimumUnits
	}
	return nil
}
