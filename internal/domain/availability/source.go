package availability

import (
	"context"
	"fmt"

	"reservations/internal/domain/listings"
	"reservations/internal/domain/shared/calendar"
	"reservations/internal/domain/shared/daterange"
)

type Reason string

const (
	ReasonBlockedDate     Reason = "blocked_date"
	ReasonSlotUnavailable Reason = "slot_unavailable"
	ReasonNotCovered      Reason = "not_covered"
	ReasonDayUnavailable  Reason = "day_unavailable"
	ReasonNoEvidence      Reason = "no_availability_evidence"
)

// Verdict is the policy outcome for one window.
type Verdict struct {
	Available bool
	Reason    Reason
}

func accept() Verdict { return Verdict{Available: true} }

func reject(reason Reason) Verdict { return Verdict{Reason: reason} }

// AvailabilitySource evaluates a listing's availability policy against one
// window. It does not look at bookings.
type AvailabilitySource interface {
	Name() string
	Evaluate(ctx context.Context, listing *listings.Listing, window daterange.DateRange) (Verdict, error)
}

// SlotIntervalSource decides from AvailableSlot rows.
type SlotIntervalSource struct {
	Slots  SlotReader
	Blocks BlockReader
}

func (SlotIntervalSource) Name() string { return "slot_interval" }

func (s SlotIntervalSource) Evaluate(ctx context.Context, listing *listings.Listing, window daterange.DateRange) (Verdict, error) {
	slots, err := s.Slots.SlotsIntersecting(ctx, listing.ID, window)
	if err != nil {
		return Verdict{}, fmt.Errorf("availability: load slots: %w", err)
	}
	for _, slot := range slots {
		if !slot.IsAvailable && slot.Range.Overlaps(window) {
			return reject(ReasonSlotUnavailable), nil
		}
	}
	if listing.AvailabilityMode == listings.AvailableByDefault {
		if blocked, err := anyBlock(ctx, s.Blocks, listing.ID, window); err != nil || blocked {
			return reject(ReasonBlockedDate), err
		}
	}
	if !Covered(slots, window) {
		return reject(ReasonNotCovered), nil
	}
	return accept(), nil
}

// DateFlagSource decides from blocked dates and legacy per-day flags.
type DateFlagSource struct {
	Blocks BlockReader
	Flags  DayFlagReader
}

func (DateFlagSource) Name() string { return "date_flag" }

func (s DateFlagSource) Evaluate(ctx context.Context, listing *listings.Listing, window daterange.DateRange) (Verdict, error) {
	days := calendar.DaysTouched(window.Start, window.End)
	if len(days) == 0 {
		return reject(ReasonNoEvidence), nil
	}
	flags, err := s.Flags.DayFlags(ctx, listing.ID, days[0], days[len(days)-1])
	if err != nil {
		return Verdict{}, fmt.Errorf("availability: load day flags: %w", err)
	}
	byDay := make(map[calendar.Date]bool, len(flags))
	for _, flag := range flags {
		byDay[flag.Date] = flag.IsAvailable
	}

	if listing.AvailabilityMode == listings.BlockedByDefault {
		for _, day := range days {
			if available, ok := byDay[day]; !ok || !available {
				return reject(ReasonNoEvidence), nil
			}
		}
		return accept(), nil
	}

	if blocked, err := anyBlock(ctx, s.Blocks, listing.ID, window); err != nil || blocked {
		return reject(ReasonBlockedDate), err
	}
	for _, day := range days {
		if available, ok := byDay[day]; ok && !available {
			return reject(ReasonDayUnavailable), nil
		}
	}
	return accept(), nil
}

func anyBlock(ctx context.Context, blocks BlockReader, id listings.ListingID, window daterange.DateRange) (bool, error) {
	if blocks == nil {
		return false, nil
	}
	rows, err := blocks.BlocksOverlapping(ctx, id, window)
	if err != nil {
		return false, fmt.Errorf("availability: load blocked dates: %w", err)
	}
	for _, row := range rows {
		if row.Range.Overlaps(window) {
			return true, nil
		}
	}
	return false, nil
}

// SourceSelector picks the source per listing: slot based listings with slot
// data use slot intervals, everything else falls back to day flags.
type SourceSelector struct {
	Repo Repository
}

func NewSourceSelector(repo Repository) SourceSelector {
	return SourceSelector{Repo: repo}
}

func (s SourceSelector) For(ctx context.Context, listing *listings.Listing) (AvailabilitySource, error) {
	if listing.UnitType.SlotBased() {
		has, err := s.Repo.HasSlots(ctx, listing.ID)
		if err != nil {
			return nil, fmt.Errorf("availability: probe slots: %w", err)
		}
		if has {
			return SlotIntervalSource{Slots: s.Repo, Blocks: s.Repo}, nil
		}
	}
	return DateFlagSource{Blocks: s.Repo, Flags: s.Repo}, nil
}
