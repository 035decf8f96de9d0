package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"reservations/internal/domain/listings"
	"reservations/internal/domain/pricing"
	"reservations/internal/domain/shared/daterange"
	"reservations/internal/domain/shared/events"
	"reservations/internal/domain/shared/fault"
	"reservations/internal/domain/shared/money"
)

var (
	ErrBookingNotFound  = fmt.Errorf("booking: booking %w", fault.ErrNotFound)
	ErrInvalidState     = fmt.Errorf("booking: invalid state transition: %w", fault.ErrInvalidInput)
	ErrGuestRequired    = fmt.Errorf("booking: guest id required: %w", fault.ErrInvalidInput)
	ErrOverlapOnInsert  = fmt.Errorf("booking: window taken by a concurrent booking: %w", fault.ErrConcurrencyConflict)
	ErrStaleVersion     = fmt.Errorf("booking: booking was modified concurrently: %w", fault.ErrConcurrencyConflict)
	errTotalNotPositive = errors.New("booking: total must be positive")
)

const ReasonRevalidationFailed = "revalidation_failed"

type BookingID string

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// OccupyingStatuses are the statuses that hold the calendar.
var OccupyingStatuses = []Status{StatusPending, StatusConfirmed, StatusCompleted}

func (s Status) Occupies() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusCompleted
}

type Booking struct {
	ID              BookingID
	ListingID       listings.ListingID
	GuestID         string
	Range           daterange.DateRange
	Status          Status
	PricingOptionID pricing.OptionID
	Total           money.Money
	CancelReason    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Version         int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	// Insert stores a new booking and fails with ErrOverlapOnInsert when an
	// occupying booking already overlaps it.
	Insert(ctx context.Context, booking *Booking) error
	// Update persists a state change guarded by the booking version.
	Update(ctx context.Context, booking *Booking) error
	// ListOverlapping returns bookings of the listing in the given statuses
	// whose window intersects window.
	ListOverlapping(ctx context.Context, listing listings.ListingID, window daterange.DateRange, statuses []Status) ([]*Booking, error)
	ListByListing(ctx context.Context, listing listings.ListingID, statuses []Status) ([]*Booking, error)
	// ListByGuest returns the guest's bookings across listings, oldest first.
	ListByGuest(ctx context.Context, guestID string) ([]*Booking, error)
}

type CreateParams struct {
	ID              BookingID
	ListingID       listings.ListingID
	GuestID         string
	Range           daterange.DateRange
	PricingOptionID pricing.OptionID
	Total           money.Money
	CreatedAt       time.Time
}

func NewBooking(params CreateParams) (*Booking, error) {
	if strings.TrimSpace(params.GuestID) == "" {
		return nil, ErrGuestRequired
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	if !params.Total.IsPositive() {
		return nil, fmt.Errorf("%w: %w", errTotalNotPositive, fault.ErrInvalidInput)
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:              params.ID,
		ListingID:       params.ListingID,
		GuestID:         strings.TrimSpace(params.GuestID),
		Range:           params.Range,
		Status:          StatusPending,
		PricingOptionID: params.PricingOptionID,
		Total:           params.Total,
		CreatedAt:       now,
		UpdatedAt:       now,
		Version:         1,
	}
	b.Record(BookingRequested{
		BookingID: string(b.ID),
		ListingID: string(b.ListingID),
		GuestID:   b.GuestID,
		Start:     b.Range.Start,
		End:       b.Range.End,
		OptionID:  string(b.PricingOptionID),
		Total:     b.Total.String(),
		Currency:  b.Total.Currency,
		At:        now,
	})
	return b, nil
}

func (b *Booking) Confirm(now time.Time) error {
	if b.Status != StatusPending {
		return ErrInvalidState
	}
	b.transition(StatusConfirmed, now)
	b.Record(BookingConfirmed{BookingID: string(b.ID), ListingID: string(b.ListingID), At: b.UpdatedAt})
	return nil
}

func (b *Booking) Cancel(reason string, now time.Time) error {
	if b.Status != StatusPending && b.Status != StatusConfirmed {
		return ErrInvalidState
	}
	b.CancelReason = strings.TrimSpace(reason)
	b.transition(StatusCancelled, now)
	b.Record(BookingCancelled{BookingID: string(b.ID), ListingID: string(b.ListingID), Reason: b.CancelReason, At: b.UpdatedAt})
	return nil
}

func (b *Booking) Complete(now time.Time) error {
	if b.Status != StatusConfirmed {
		return ErrInvalidState
	}
	b.transition(StatusCompleted, now)
	b.Record(BookingCompleted{BookingID: string(b.ID), ListingID: string(b.ListingID), At: b.UpdatedAt})
	return nil
}

// Reschedule moves a pending or confirmed booking; the caller has already
// checked the new window is bookable.
func (b *Booking) Reschedule(window daterange.DateRange, total money.Money, now time.Time) error {
	if b.Status != StatusPending && b.Status != StatusConfirmed {
		return ErrInvalidState
	}
	if err := window.Validate(); err != nil {
		return err
	}
	previous := b.Range
	b.Range = window
	if total.IsPositive() {
		b.Total = total
	}
	b.UpdatedAt = now.UTC()
	b.Record(BookingRescheduled{
		BookingID:     string(b.ID),
		ListingID:     string(b.ListingID),
		PreviousStart: previous.Start,
		PreviousEnd:   previous.End,
		Start:         window.Start,
		End:           window.End,
		Total:         b.Total.String(),
		At:            b.UpdatedAt,
	})
	return nil
}

func (b *Booking) transition(next Status, now time.Time) {
	b.Status = next
	b.UpdatedAt = now.UTC()
}
