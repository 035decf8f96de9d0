package listings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"reservations/internal/domain/shared/events"
	"reservations/internal/domain/shared/fault"
)

var (
	ErrListingNotFound  = fmt.Errorf("listings: listing %w", fault.ErrNotFound)
	ErrUnitType         = fmt.Errorf("listings: unit type must be hour, day, night or appointment: %w", fault.ErrInvalidInput)
	ErrAvailabilityMode = fmt.Errorf("listings: availability mode must be available_by_default or blocked_by_default: %w", fault.ErrInvalidInput)
	ErrIDRequired       = fmt.Errorf("listings: id is required: %w", fault.ErrInvalidInput)
	ErrHostRequired     = fmt.Errorf("listings: host is required: %w", fault.ErrInvalidInput)
	ErrTitleRequired    = fmt.Errorf("listings: title is required: %w", fault.ErrInvalidInput)
	ErrCurrency         = fmt.Errorf("listings: currency must be a 3 letter code: %w", fault.ErrInvalidInput)
)

type ListingID string
type HostID string

type UnitType string

const (
	UnitHour        UnitType = "hour"
	UnitDay         UnitType = "day"
	UnitNight       UnitType = "night"
	UnitAppointment UnitType = "appointment"
)

func ParseUnitType(raw string) (UnitType, error) {
	u := UnitType(strings.ToLower(strings.TrimSpace(raw)))
	if !u.Valid() {
		return "", ErrUnitType
	}
	return u, nil
}

func (u UnitType) Valid() bool {
	switch u {
	case UnitHour, UnitDay, UnitNight, UnitAppointment:
		return true
	}
	return false
}

// SlotBased reports whether availability for the unit is expressed as slot intervals.
func (u UnitType) SlotBased() bool {
	return u == UnitDay || u == UnitNight || u == UnitAppointment
}

// Length is the span of one bookable unit; zero means the whole window is a single unit.
func (u UnitType) Length() time.Duration {
	switch u {
	case UnitHour:
		return time.Hour
	case UnitDay, UnitNight:
		return 24 * time.Hour
	}
	return 0
}

type AvailabilityMode string

const (
	AvailableByDefault AvailabilityMode = "available_by_default"
	BlockedByDefault   AvailabilityMode = "blocked_by_default"
)

func ParseAvailabilityMode(raw string) (AvailabilityMode, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	value = strings.ReplaceAll(value, "-", "_")
	m := AvailabilityMode(value)
	if m != AvailableByDefault && m != BlockedByDefault {
		return "", ErrAvailabilityMode
	}
	return m, nil
}

// Listing is the read model the engine decides against. Pricing options live
// in the pricing package and reference the listing by id.
type Listing struct {
	ID               ListingID
	Host             HostID
	Title            string
	UnitType         UnitType
	AvailabilityMode AvailabilityMode
	Currency         string
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	Save(ctx context.Context, listing *Listing) error
}

type CreateListingParams struct {
	ID               ListingID
	Host             HostID
	Title            string
	UnitType         UnitType
	AvailabilityMode AvailabilityMode
	Currency         string
	Now              time.Time
}

func NewListing(params CreateListingParams) (*Listing, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.Host)) == "" {
		return nil, ErrHostRequired
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrTitleRequired
	}
	if !params.UnitType.Valid() {
		return nil, ErrUnitType
	}
	mode := params.AvailabilityMode
	if mode == "" {
		mode = AvailableByDefault
	}
	if mode != AvailableByDefault && mode != BlockedByDefault {
		return nil, ErrAvailabilityMode
	}
	currency := strings.ToUpper(strings.TrimSpace(params.Currency))
	if len(currency) != 3 {
		return nil, ErrCurrency
	}
	now := params.Now.UTC()
	listing := &Listing{
		ID:               params.ID,
		Host:             params.Host,
		Title:            strings.TrimSpace(params.Title),
		UnitType:         params.UnitType,
		AvailabilityMode: mode,
		Currency:         currency,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	listing.Record(ListingCreatedEvent{ListingID: listing.ID, HostID: listing.Host, At: now})
	return listing, nil
}

type UpdateListingParams struct {
	Title            string
	UnitType         UnitType
	AvailabilityMode AvailabilityMode
	Now              time.Time
}

// Update changes the booking-relevant attributes. Any change here can make
// pending bookings invalid, so it always records ListingUpdatedEvent.
func (l *Listing) Update(params UpdateListingParams) error {
	if title := strings.TrimSpace(params.Title); title != "" {
		l.Title = title
	}
	if params.UnitType != "" {
		if !params.UnitType.Valid() {
			return ErrUnitType
		}
		l.UnitType = params.UnitType
	}
	if params.AvailabilityMode != "" {
		if params.AvailabilityMode != AvailableByDefault && params.AvailabilityMode != BlockedByDefault {
			return ErrAvailabilityMode
		}
		l.AvailabilityMode = params.AvailabilityMode
	}
	l.Version++
	l.UpdatedAt = params.Now.UTC()
	l.Record(ListingUpdatedEvent{ListingID: l.ID, At: l.UpdatedAt})
	return nil
}
