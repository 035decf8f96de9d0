package availability

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"reservations/internal/domain/listings"
	"reservations/internal/domain/shared/calendar"
	"reservations/internal/domain/shared/daterange"
	"reservations/internal/domain/shared/events"
	"reservations/internal/domain/shared/fault"
)

var (
	ErrSlotNotFound  = fmt.Errorf("availability: slot %w", fault.ErrNotFound)
	ErrBlockNotFound = fmt.Errorf("availability: blocked date %w", fault.ErrNotFound)
	ErrSlotUnitType  = fmt.Errorf("availability: slot unit type must match a slot based listing: %w", fault.ErrInvalidInput)
	ErrIDRequired    = fmt.Errorf("availability: id is required: %w", fault.ErrInvalidInput)
)

type SlotID string
type BlockID string

// AvailableSlot is a half-open interval of explicit availability data.
type AvailableSlot struct {
	ID          SlotID
	ListingID   listings.ListingID
	Range       daterange.DateRange
	IsAvailable bool
	UnitType    listings.UnitType
	CreatedAt   time.Time
}

// BlockedDate excludes an interval under the available-by-default policy.
type BlockedDate struct {
	ID        BlockID
	ListingID listings.ListingID
	Range     daterange.DateRange
	Reason    string
	CreatedAt time.Time
}

// DayFlag is the legacy per-day availability marker.
type DayFlag struct {
	ListingID   listings.ListingID
	Date        calendar.Date
	IsAvailable bool
}

type SlotReader interface {
	// SlotsIntersecting returns slots of the listing that intersect window.
	SlotsIntersecting(ctx context.Context, id listings.ListingID, window daterange.DateRange) ([]AvailableSlot, error)
	HasSlots(ctx context.Context, id listings.ListingID) (bool, error)
}

type BlockReader interface {
	BlocksOverlapping(ctx context.Context, id listings.ListingID, window daterange.DateRange) ([]BlockedDate, error)
}

type DayFlagReader interface {
	DayFlags(ctx context.Context, id listings.ListingID, from, to calendar.Date) ([]DayFlag, error)
}

type Repository interface {
	SlotReader
	BlockReader
	DayFlagReader

	SaveSlot(ctx context.Context, slot AvailableSlot) error
	DeleteSlot(ctx context.Context, id listings.ListingID, slot SlotID) error
	SaveBlock(ctx context.Context, block BlockedDate) error
	DeleteBlock(ctx context.Context, id listings.ListingID, block BlockID) error
	SaveDayFlag(ctx context.Context, flag DayFlag) error
}

type NewSlotParams struct {
	ID          SlotID
	Listing     *listings.Listing
	Start       time.Time
	End         time.Time
	IsAvailable bool
	Now         time.Time
}

func NewSlot(params NewSlotParams) (AvailableSlot, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return AvailableSlot{}, ErrIDRequired
	}
	if params.Listing == nil || !params.Listing.UnitType.SlotBased() {
		return AvailableSlot{}, ErrSlotUnitType
	}
	r, err := daterange.New(params.Start, params.End)
	if err != nil {
		return AvailableSlot{}, err
	}
	return AvailableSlot{
		ID:          params.ID,
		ListingID:   params.Listing.ID,
		Range:       r,
		IsAvailable: params.IsAvailable,
		UnitType:    params.Listing.UnitType,
		CreatedAt:   params.Now.UTC(),
	}, nil
}

func NewBlockedDate(id BlockID, listing listings.ListingID, start, end time.Time, reason string, now time.Time) (BlockedDate, error) {
	if strings.TrimSpace(string(id)) == "" {
		return BlockedDate{}, ErrIDRequired
	}
	r, err := daterange.New(start, end)
	if err != nil {
		return BlockedDate{}, err
	}
	return BlockedDate{ID: id, ListingID: listing, Range: r, Reason: strings.TrimSpace(reason), CreatedAt: now.UTC()}, nil
}

// Covered reports whether the union of available slots covers query.
func Covered(slots []AvailableSlot, query daterange.DateRange) bool {
	if !query.End.After(query.Start) {
		return false
	}
	candidates := make([]daterange.DateRange, 0, len(slots))
	for _, slot := range slots {
		if !slot.IsAvailable || !slot.Range.Overlaps(query) {
			continue
		}
		if slot.Range.Covers(query) {
			return true
		}
		candidates = append(candidates, slot.Range)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Start.Before(candidates[j].Start)
	})
	frontier := query.Start
	for _, r := range candidates {
		if r.Start.After(frontier) {
			break
		}
		if r.End.After(frontier) {
			frontier = r.End
		}
		if !frontier.Before(query.End) {
			return true
		}
	}
	return !frontier.Before(query.End)
}

// SlotChanges records host edits of availability data for the outbox.
type SlotChanges struct {
	ListingID listings.ListingID
	events.EventRecorder
}

func (c *SlotChanges) SlotAdded(slot AvailableSlot, now time.Time) {
	c.Record(SlotAddedEvent{ListingID: string(slot.ListingID), SlotID: string(slot.ID), Start: slot.Range.Start, End: slot.Range.End, IsAvailable: slot.IsAvailable, At: now.UTC()})
}

func (c *SlotChanges) SlotRemoved(slot SlotID, now time.Time) {
	c.Record(SlotRemovedEvent{ListingID: string(c.ListingID), SlotID: string(slot), At: now.UTC()})
}

func (c *SlotChanges) DateBlocked(block BlockedDate, now time.Time) {
	c.Record(DateBlockedEvent{ListingID: string(block.ListingID), BlockID: string(block.ID), Start: block.Range.Start, End: block.Range.End, Reason: block.Reason, At: now.UTC()})
}

func (c *SlotChanges) DateUnblocked(block BlockID, now time.Time) {
	c.Record(DateUnblockedEvent{ListingID: string(c.ListingID), BlockID: string(block), At: now.UTC()})
}

func (c *SlotChanges) DayFlagSet(flag DayFlag, now time.Time) {
	c.Record(DayFlagSetEvent{ListingID: string(flag.ListingID), Date: flag.Date.String(), IsAvailable: flag.IsAvailable, At: now.UTC()})
}
