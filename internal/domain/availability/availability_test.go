package availability

import (
	"context"
	"testing"
	"time"

	"reservations/internal/domain/listings"
	"reservations/internal/domain/shared/calendar"
	"reservations/internal/domain/shared/daterange"
)

// 2025-03-03 is a Monday.
var monday = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time { return monday.AddDate(0, 0, n) }

func slot(start, end time.Time, available bool) AvailableSlot {
	return AvailableSlot{Range: daterange.DateRange{Start: start, End: end}, IsAvailable: available}
}

func window(start, end time.Time) daterange.DateRange {
	return daterange.DateRange{Start: start, End: end}
}

type fakeRepo struct {
	slots  []AvailableSlot
	blocks []BlockedDate
	flags  []DayFlag
}

func (f *fakeRepo) SlotsIntersecting(_ context.Context, _ listings.ListingID, w daterange.DateRange) ([]AvailableSlot, error) {
	var out []AvailableSlot
	for _, s := range f.slots {
		if s.Range.Overlaps(w) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeRepo) HasSlots(context.Context, listings.ListingID) (bool, error) {
	return len(f.slots) > 0, nil
}

func (f *fakeRepo) BlocksOverlapping(_ context.Context, _ listings.ListingID, w daterange.DateRange) ([]BlockedDate, error) {
	var out []BlockedDate
	for _, b := range f.blocks {
		if b.Range.Overlaps(w) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeRepo) DayFlags(_ context.Context, _ listings.ListingID, from, to calendar.Date) ([]DayFlag, error) {
	var out []DayFlag
	for _, flag := range f.flags {
		if !flag.Date.Before(from) && !flag.Date.After(to) {
			out = append(out, flag)
		}
	}
	return out, nil
}

func (f *fakeRepo) SaveSlot(_ context.Context, s AvailableSlot) error {
	f.slots = append(f.slots, s)
	return nil
}
func (f *fakeRepo) DeleteSlot(context.Context, listings.ListingID, SlotID) error { return nil }
func (f *fakeRepo) SaveBlock(_ context.Context, b BlockedDate) error {
	f.blocks = append(f.blocks, b)
	return nil
}
func (f *fakeRepo) DeleteBlock(context.Context, listings.ListingID, BlockID) error { return nil }
func (f *fakeRepo) SaveDayFlag(_ context.Context, flag DayFlag) error {
	f.flags = append(f.flags, flag)
	return nil
}

func TestCoveredStitchesAdjacentSlots(t *testing.T) {
	slots := []AvailableSlot{slot(day(0), day(1), true), slot(day(1), day(2), true)}
	if !Covered(slots, window(day(0).Add(12*time.Hour), day(1).Add(18*time.Hour))) {
		t.Fatalf("expected stitched slots to cover the query")
	}
}

func TestCoveredRejectsGap(t *testing.T) {
	slots := []AvailableSlot{slot(day(0), day(1), true), slot(day(1), day(2), true), slot(day(3), day(4), true)}
	if Covered(slots, window(day(1).Add(12*time.Hour), day(3).Add(12*time.Hour))) {
		t.Fatalf("gap on wednesday must not be covered")
	}
}

func TestCoveredIgnoresUnavailableAndUnordered(t *testing.T) {
	slots := []AvailableSlot{slot(day(1), day(2), true), slot(day(0), day(1), false), slot(day(0), day(1), true)}
	if !Covered(slots, window(day(0), day(2))) {
		t.Fatalf("expected coverage regardless of input order")
	}
	if Covered([]AvailableSlot{slot(day(0), day(2), false)}, window(day(0), day(1))) {
		t.Fatalf("unavailable slots never cover")
	}
	if Covered(nil, window(day(0), day(1))) {
		t.Fatalf("no slots never cover")
	}
}

func TestCoveredMonotonic(t *testing.T) {
	base := []AvailableSlot{slot(day(0), day(1), true), slot(day(2), day(3), true)}
	q := window(day(0), day(3))
	if Covered(base, q) {
		t.Fatalf("base set should leave a gap")
	}
	grown := append(append([]AvailableSlot(nil), base...), slot(day(1), day(2), true))
	if !Covered(grown, q) {
		t.Fatalf("adding the missing slot should cover")
	}
	for _, extra := range []AvailableSlot{slot(day(-1), day(5), true), slot(day(4), day(5), true), slot(day(0), day(1), false)} {
		if !Covered(append(append([]AvailableSlot(nil), grown...), extra), q) {
			t.Fatalf("adding %v must not remove coverage", extra.Range)
		}
	}
}

func TestSlotIntervalSource(t *testing.T) {
	listing := &listings.Listing{ID: "L", UnitType: listings.UnitDay, AvailabilityMode: listings.AvailableByDefault}
	repo := &fakeRepo{slots: []AvailableSlot{slot(day(0), day(3), true), slot(day(1), day(2), false)}}
	src := SlotIntervalSource{Slots: repo, Blocks: repo}

	v, err := src.Evaluate(context.Background(), listing, window(day(0), day(1)))
	if err != nil || !v.Available {
		t.Fatalf("expected available, got %+v err %v", v, err)
	}
	v, _ = src.Evaluate(context.Background(), listing, window(day(0), day(2)))
	if v.Available || v.Reason != ReasonSlotUnavailable {
		t.Fatalf("expected unavailable slot rejection, got %+v", v)
	}
	v, _ = src.Evaluate(context.Background(), listing, window(day(2), day(4)))
	if v.Available || v.Reason != ReasonNotCovered {
		t.Fatalf("expected not covered, got %+v", v)
	}

	repo.blocks = []BlockedDate{{Range: window(day(0).Add(6*time.Hour), day(0).Add(8*time.Hour))}}
	v, _ = src.Evaluate(context.Background(), listing, window(day(0), day(1)))
	if v.Available || v.Reason != ReasonBlockedDate {
		t.Fatalf("expected blocked date rejection, got %+v", v)
	}
	listing.AvailabilityMode = listings.BlockedByDefault
	v, _ = src.Evaluate(context.Background(), listing, window(day(0), day(1)))
	if !v.Available {
		t.Fatalf("blocked dates are ignored under blocked_by_default, got %+v", v)
	}
}

func TestDateFlagSource(t *testing.T) {
	ctx := context.Background()
	listing := &listings.Listing{ID: "L", UnitType: listings.UnitHour, AvailabilityMode: listings.BlockedByDefault}
	repo := &fakeRepo{flags: []DayFlag{
		{ListingID: "L", Date: calendar.DateOf(day(0)), IsAvailable: true},
		{ListingID: "L", Date: calendar.DateOf(day(1)), IsAvailable: true},
		{ListingID: "L", Date: calendar.DateOf(day(2)), IsAvailable: false},
	}}
	src := DateFlagSource{Blocks: repo, Flags: repo}

	cases := []struct {
		name string
		mode listings.AvailabilityMode
		w    daterange.DateRange
		want bool
	}{
		{name: "blocked by default with evidence", mode: listings.BlockedByDefault, w: window(day(0).Add(9*time.Hour), day(1).Add(10*time.Hour)), want: true},
		{name: "blocked by default without evidence", mode: listings.BlockedByDefault, w: window(day(3), day(3).Add(time.Hour)), want: false},
		{name: "blocked by default end at midnight", mode: listings.BlockedByDefault, w: window(day(1), day(2)), want: true},
		{name: "available by default unflagged day", mode: listings.AvailableByDefault, w: window(day(4), day(4).Add(time.Hour)), want: true},
		{name: "available by default flagged off", mode: listings.AvailableByDefault, w: window(day(2).Add(time.Hour), day(2).Add(2*time.Hour)), want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			listing.AvailabilityMode = tc.mode
			v, err := src.Evaluate(ctx, listing, tc.w)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if v.Available != tc.want {
				t.Fatalf("expected %v, got %+v", tc.want, v)
			}
		})
	}

	listing.AvailabilityMode = listings.AvailableByDefault
	repo.blocks = []BlockedDate{{Range: window(day(5), day(6))}}
	v, _ := src.Evaluate(ctx, listing, window(day(5).Add(time.Hour), day(5).Add(2*time.Hour)))
	if v.Available || v.Reason != ReasonBlockedDate {
		t.Fatalf("expected blocked date rejection, got %+v", v)
	}
}

func TestSourceSelector(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepo{}
	selector := NewSourceSelector(repo)

	src, _ := selector.For(ctx, &listings.Listing{ID: "L", UnitType: listings.UnitNight})
	if src.Name() != "date_flag" {
		t.Fatalf("slot based listing without slots should use day flags, got %s", src.Name())
	}
	repo.slots = []AvailableSlot{slot(day(0), day(1), true)}
	src, _ = selector.For(ctx, &listings.Listing{ID: "L", UnitType: listings.UnitNight})
	if src.Name() != "slot_interval" {
		t.Fatalf("expected slot interval source, got %s", src.Name())
	}
	src, _ = selector.For(ctx, &listings.Listing{ID: "L", UnitType: listings.UnitHour})
	if src.Name() != "date_flag" {
		t.Fatalf("hour listings always use day flags, got %s", src.Name())
	}
}
