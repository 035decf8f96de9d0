package pricing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"reservations/internal/domain/listings"
	"reservations/internal/domain/shared/calendar"
	"reservations/internal/domain/shared/fault"
	"reservations/internal/domain/shared/money"
)

var (
	ErrSpecialNotFound      = fmt.Errorf("pricing: special pricing %w", fault.ErrNotFound)
	ErrOverlappingRecurring = fmt.Errorf("pricing: recurring special pricing overlaps an existing rule: %w", fault.ErrInvalidInput)
	ErrSpecialKind          = fmt.Errorf("pricing: special pricing kind must be specific or recurring: %w", fault.ErrInvalidInput)
	ErrValidityWindow       = fmt.Errorf("pricing: valid_from must not be after valid_until: %w", fault.ErrInvalidInput)
)

type SpecialKind string

const (
	SpecialSpecific  SpecialKind = "specific"
	SpecialRecurring SpecialKind = "recurring"
)

// SpecialPricing overrides the base per-unit price of one option. Specific rows
// match a single date; recurring rows match a weekday inside an optional
// validity window whose bounds are inclusive.
type SpecialPricing struct {
	ID         string
	ListingID  listings.ListingID
	OptionID   OptionID
	Kind       SpecialKind
	Date       calendar.Date
	Weekday    calendar.Weekday
	ValidFrom  *calendar.Date
	ValidUntil *calendar.Date
	Price      money.Money
	Reason     string
	CreatedAt  time.Time
}

type SpecialRepository interface {
	// SpecificFor returns ErrSpecialNotFound when no row exists.
	SpecificFor(ctx context.Context, id listings.ListingID, date calendar.Date, option OptionID) (*SpecialPricing, error)
	RecurringFor(ctx context.Context, id listings.ListingID, weekday calendar.Weekday, option OptionID) ([]SpecialPricing, error)
	ListByListing(ctx context.Context, id listings.ListingID) ([]SpecialPricing, error)
	Save(ctx context.Context, special *SpecialPricing) error
}

func (s SpecialPricing) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("pricing: special pricing id is required: %w", fault.ErrInvalidInput)
	}
	if strings.TrimSpace(string(s.OptionID)) == "" {
		return fmt.Errorf("pricing: special pricing needs a pricing option: %w", fault.ErrInvalidInput)
	}
	if !s.Price.IsPositive() {
		return ErrPrice
	}
	switch s.Kind {
	case SpecialSpecific:
		if s.Date.IsZero() {
			return fmt.Errorf("pricing: specific special pricing needs a date: %w", fault.ErrInvalidInput)
		}
	case SpecialRecurring:
		if !s.Weekday.Valid() {
			return calendar.ErrInvalidWeekday
		}
		if s.ValidFrom != nil && s.ValidUntil != nil && s.ValidFrom.After(*s.ValidUntil) {
			return ErrValidityWindow
		}
	default:
		return ErrSpecialKind
	}
	return nil
}

// Applies reports whether the row prices the given date.
func (s SpecialPricing) Applies(date calendar.Date) bool {
	switch s.Kind {
	case SpecialSpecific:
		return s.Date.Equal(date)
	case SpecialRecurring:
		if date.Weekday() != s.Weekday {
			return false
		}
		if s.ValidFrom != nil && date.Before(*s.ValidFrom) {
			return false
		}
		if s.ValidUntil != nil && date.After(*s.ValidUntil) {
			return false
		}
		return true
	}
	return false
}

// windowDays is the number of days covered by the validity window, or -1 when unbounded.
func (s SpecialPricing) windowDays() int {
	if s.ValidFrom == nil || s.ValidUntil == nil {
		return -1
	}
	return int(s.ValidUntil.Start().Sub(s.ValidFrom.Start())/(24*time.Hour)) + 1
}

func (s SpecialPricing) sameWindow(other SpecialPricing) bool {
	return sameBound(s.ValidFrom, other.ValidFrom) && sameBound(s.ValidUntil, other.ValidUntil)
}

func (s SpecialPricing) windowOverlaps(other SpecialPricing) bool {
	// open bounds extend to infinity on their side
	if s.ValidUntil != nil && other.ValidFrom != nil && s.ValidUntil.Before(*other.ValidFrom) {
		return false
	}
	if other.ValidUntil != nil && s.ValidFrom != nil && other.ValidUntil.Before(*s.ValidFrom) {
		return false
	}
	return true
}

func sameBound(a, b *calendar.Date) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// PickRecurring chooses among recurring rows matching date: the narrowest
// validity window wins, then the most recently created.
func PickRecurring(rows []SpecialPricing, date calendar.Date) *SpecialPricing {
	var best *SpecialPricing
	for i := range rows {
		row := rows[i]
		if row.Kind != SpecialRecurring || !row.Applies(date) {
			continue
		}
		if best == nil || narrower(row, *best) {
			best = &rows[i]
		}
	}
	return best
}

func narrower(a, b SpecialPricing) bool {
	wa, wb := a.windowDays(), b.windowDays()
	if wa != wb {
		if wa < 0 {
			return false
		}
		if wb < 0 {
			return true
		}
		return wa < wb
	}
	return a.CreatedAt.After(b.CreatedAt)
}

// Upsert merges candidate into the listing's existing rows. A specific row
// replaces the row for the same (date, option); a recurring row replaces one
// with the same (weekday, option, window) and is rejected when its window
// overlaps a different window for the same weekday and option.
func Upsert(existing []SpecialPricing, candidate SpecialPricing) (SpecialPricing, error) {
	if err := candidate.Validate(); err != nil {
		return SpecialPricing{}, err
	}
	for _, row := range existing {
		if row.Kind != candidate.Kind || row.OptionID != candidate.OptionID || row.ID == candidate.ID {
			continue
		}
		switch candidate.Kind {
		case SpecialSpecific:
			if row.Date.Equal(candidate.Date) {
				candidate.ID = row.ID
				return candidate, nil
			}
		case SpecialRecurring:
			if row.Weekday != candidate.Weekday {
				continue
			}
			if row.sameWindow(candidate) {
				candidate.ID = row.ID
				return candidate, nil
			}
			if row.windowOverlaps(candidate) {
				return SpecialPricing{}, ErrOverlappingRecurring
			}
		}
	}
	return candidate, nil
}
