package booking

import "time"

type BookingRequested struct {
	BookingID string    `json:"booking_id"`
	ListingID string    `json:"listing_id"`
	GuestID   string    `json:"guest_id"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	OptionID  string    `json:"pricing_option_id,omitempty"`
	Total     string    `json:"total"`
	Currency  string    `json:"currency"`
	At        time.Time `json:"at"`
}

func (e BookingRequested) EventName() string     { return "booking.requested" }
func (e BookingRequested) AggregateID() string   { return e.BookingID }
func (e BookingRequested) OccurredAt() time.Time { return e.At }

type BookingConfirmed struct {
	BookingID string    `json:"booking_id"`
	ListingID string    `json:"listing_id"`
	At        time.Time `json:"at"`
}

func (e BookingConfirmed) EventName() string     { return "booking.confirmed" }
func (e BookingConfirmed) AggregateID() string   { return e.BookingID }
func (e BookingConfirmed) OccurredAt() time.Time { return e.At }

type BookingCancelled struct {
	BookingID string    `json:"booking_id"`
	ListingID string    `json:"listing_id"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

func (e BookingCancelled) EventName() string     { return "booking.cancelled" }
func (e BookingCancelled) AggregateID() string   { return e.BookingID }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }

type BookingCompleted struct {
	BookingID string    `json:"booking_id"`
	ListingID string    `json:"listing_id"`
	At        time.Time `json:"at"`
}

func (e BookingCompleted) EventName() string     { return "booking.completed" }
func (e BookingCompleted) AggregateID() string   { return e.BookingID }
func (e BookingCompleted) OccurredAt() time.Time { return e.At }

type BookingRescheduled struct {
	BookingID     string    `json:"booking_id"`
	ListingID     string    `json:"listing_id"`
	PreviousStart time.Time `json:"previous_start"`
	PreviousEnd   time.Time `json:"previous_end"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Total         string    `json:"total"`
	At            time.Time `json:"at"`
}

func (e BookingRescheduled) EventName() string     { return "booking.rescheduled" }
func (e BookingRescheduled) AggregateID() string   { return e.BookingID }
func (e BookingRescheduled) OccurredAt() time.Time { return e.At }
