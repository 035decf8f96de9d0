package dto

import (
	"time"

	domainavailability "reservations/internal/domain/availability"
	domainbooking "reservations/internal/domain/booking"
)

type Availability struct {
	ListingID string    `json:"listing_id"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
	Reason    string    `json:"reason,omitempty"`
	Source    string    `json:"source,omitempty"`
	Conflicts []string  `json:"conflicts,omitempty"`
}

type Conflict struct {
	BookingID string    `json:"booking_id"`
	Status    string    `json:"status"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
}

type ConflictReport struct {
	ListingID string     `json:"listing_id"`
	Start     time.Time  `json:"start"`
	End       time.Time  `json:"end"`
	Conflicts []Conflict `json:"conflicts"`
}

func MapConflicts(items []*domainbooking.Booking) []Conflict {
	out := make([]Conflict, 0, len(items))
	for _, b := range items {
		out = append(out, Conflict{BookingID: string(b.ID), Status: string(b.Status), Start: b.Range.Start, End: b.Range.End})
	}
	return out
}

type Slot struct {
	ID          string    `json:"id"`
	ListingID   string    `json:"listing_id"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	IsAvailable bool      `json:"is_available"`
	UnitType    string    `json:"unit_type"`
}

func MapSlot(s domainavailability.AvailableSlot) Slot {
	return Slot{
		ID:          string(s.ID),
		ListingID:   string(s.ListingID),
		Start:       s.Range.Start,
		End:         s.Range.End,
		IsAvailable: s.IsAvailable,
		UnitType:    string(s.UnitType),
	}
}

type BlockedDate struct {
	ID        string    `json:"id"`
	ListingID string    `json:"listing_id"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Reason    string    `json:"reason,omitempty"`
}

func MapBlockedDate(b domainavailability.BlockedDate) BlockedDate {
	return BlockedDate{ID: string(b.ID), ListingID: string(b.ListingID), Start: b.Range.Start, End: b.Range.End, Reason: b.Reason}
}

type DayFlag struct {
	ListingID   string `json:"listing_id"`
	Date        string `json:"date"`
	IsAvailable bool   `json:"is_available"`
}

func MapDayFlag(f domainavailability.DayFlag) DayFlag {
	return DayFlag{ListingID: string(f.ListingID), Date: f.Date.String(), IsAvailable: f.IsAvailable}
}
