package availability

import "time"

type SlotAddedEvent struct {
	ListingID   string    `json:"listing_id"`
	SlotID      string    `json:"slot_id"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	IsAvailable bool      `json:"is_available"`
	At          time.Time `json:"at"`
}

func (e SlotAddedEvent) EventName() string     { return "availability.slot_added" }
func (e SlotAddedEvent) AggregateID() string   { return e.ListingID }
func (e SlotAddedEvent) OccurredAt() time.Time { return e.At }

type SlotRemovedEvent struct {
	ListingID string    `json:"listing_id"`
	SlotID    string    `json:"slot_id"`
	At        time.Time `json:"at"`
}

func (e SlotRemovedEvent) EventName() string     { return "availability.slot_removed" }
func (e SlotRemovedEvent) AggregateID() string   { return e.ListingID }
func (e SlotRemovedEvent) OccurredAt() time.Time { return e.At }

type DateBlockedEvent struct {
	ListingID string    `json:"listing_id"`
	BlockID   string    `json:"block_id"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

func (e DateBlockedEvent) EventName() string     { return "availability.date_blocked" }
func (e DateBlockedEvent) AggregateID() string   { return e.ListingID }
func (e DateBlockedEvent) OccurredAt() time.Time { return e.At }

type DateUnblockedEvent struct {
	ListingID string    `json:"listing_id"`
	BlockID   string    `json:"block_id"`
	At        time.Time `json:"at"`
}

func (e DateUnblockedEvent) EventName() string     { return "availability.date_unblocked" }
func (e DateUnblockedEvent) AggregateID() string   { return e.ListingID }
func (e DateUnblockedEvent) OccurredAt() time.Time { return e.At }

type DayFlagSetEvent struct {
	ListingID   string    `json:"listing_id"`
	Date        string    `json:"date"`
	IsAvailable bool      `json:"is_available"`
	At          time.Time `json:"at"`
}

func (e DayFlagSetEvent) EventName() string     { return "availability.day_flag_set" }
func (e DayFlagSetEvent) AggregateID() string   { return e.ListingID }
func (e DayFlagSetEvent) OccurredAt() time.Time { return e.At }
