package dto

import (
	"time"

	domainbooking "reservations/internal/domain/booking"
	domainlistings "reservations/internal/domain/listings"
)

type Booking struct {
	ID              string    `json:"id"`
	ListingID       string    `json:"listing_id"`
	GuestID         string    `json:"guest_id"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	Status          string    `json:"status"`
	PricingOptionID string    `json:"pricing_option_id,omitempty"`
	Total           MoneyDTO  `json:"total"`
	CancelReason    string    `json:"cancel_reason,omitempty"`
	Version         int64     `json:"version"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func MapBooking(b *domainbooking.Booking) Booking {
	return Booking{
		ID:              string(b.ID),
		ListingID:       string(b.ListingID),
		GuestID:         b.GuestID,
		Start:           b.Range.Start,
		End:             b.Range.End,
		Status:          string(b.Status),
		PricingOptionID: string(b.PricingOptionID),
		Total:           MapMoney(b.Total),
		CancelReason:    b.CancelReason,
		Version:         b.Version,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

type BookingCollection struct {
	Items []Booking `json:"items"`
}

// GuestBookingSummary is a booking as seen by its guest. Listing fields are
// empty when the listing could not be loaded.
type GuestBookingSummary struct {
	Booking
	ListingTitle string `json:"listing_title,omitempty"`
	UnitType     string `json:"unit_type,omitempty"`
	Upcoming     bool   `json:"upcoming"`
}

func MapGuestBookingSummary(b *domainbooking.Booking, listing *domainlistings.Listing, now time.Time) GuestBookingSummary {
	out := GuestBookingSummary{
		Booking:  MapBooking(b),
		Upcoming: b.Status.Occupies() && b.Range.Start.After(now),
	}
	if listing != nil {
		out.ListingTitle = listing.Title
		out.UnitType = string(listing.UnitType)
	}
	return out
}

type GuestBookingCollection struct {
	Items []GuestBookingSummary `json:"items"`
}
