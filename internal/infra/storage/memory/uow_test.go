package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"reservations/internal/app/uow"
	domainavailability "reservations/internal/domain/availability"
	domainbooking "reservations/internal/domain/booking"
	domainlistings "reservations/internal/domain/listings"
	domainpricing "reservations/internal/domain/pricing"
	"reservations/internal/domain/shared/calendar"
	"reservations/internal/domain/shared/daterange"
	"reservations/internal/domain/shared/fault"
	"reservations/internal/domain/shared/money"
	"reservations/internal/infra/storage/memory"
)

var now = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func seed(t *testing.T, f memory.Factory) *domainlistings.Listing {
	t.Helper()
	listing, err := domainlistings.NewListing(domainlistings.CreateListingParams{
		ID:       "lst-1",
		Host:     "host-1",
		Title:    "Loft",
		UnitType: domainlistings.UnitHour,
		Currency: "USD",
		Now:      now,
	})
	if err != nil {
		t.Fatalf("new listing: %v", err)
	}
	if err := f.ListingsRepo.Save(context.Background(), listing); err != nil {
		t.Fatalf("save listing: %v", err)
	}
	return listing
}

func booking(t *testing.T, id domainbooking.BookingID, start, end time.Time) *domainbooking.Booking {
	t.Helper()
	window, err := daterange.New(start, end)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:        id,
		ListingID: "lst-1",
		GuestID:   "guest-1",
		Range:     window,
		Total:     money.Must(1000, "USD"),
		CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("new booking: %v", err)
	}
	return b
}

func TestRollbackUndoesUnitWrites(t *testing.T) {
	ctx := context.Background()
	f := memory.NewFactory()
	listing := seed(t, f)
	start := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	kept := booking(t, "bk-kept", start, start.Add(time.Hour))
	if err := f.BookingRepo.Insert(ctx, kept); err != nil {
		t.Fatalf("insert kept: %v", err)
	}

	unit, err := f.Begin(ctx, uow.TxOptions{})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := unit.LockListing(ctx, listing.ID); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := unit.Bookings().Insert(ctx, booking(t, "bk-new", start.Add(2*time.Hour), start.Add(3*time.Hour))); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := kept.Cancel(domainbooking.ReasonRevalidationFailed, now); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := unit.Bookings().Update(ctx, kept); err != nil {
		t.Fatalf("update: %v", err)
	}
	renamed := *listing
	renamed.Title = "Renamed"
	if err := unit.Listings().Save(ctx, &renamed); err != nil {
		t.Fatalf("save listing: %v", err)
	}
	option, err := domainpricing.NewOption(domainpricing.NewOptionParams{
		ID:        "opt-1",
		ListingID: listing.ID,
		UnitType:  domainlistings.UnitHour,
		Duration:  1,
		Price:     money.Must(1000, "USD"),
		IsDefault: true,
		Now:       now,
	})
	if err != nil {
		t.Fatalf("new option: %v", err)
	}
	if err := unit.PricingOptions().Save(ctx, option); err != nil {
		t.Fatalf("save option: %v", err)
	}
	block, err := domainavailability.NewBlockedDate("blk-1", listing.ID, start, start.Add(24*time.Hour), "repairs", now)
	if err != nil {
		t.Fatalf("block: %v", err)
	}
	if err := unit.Availability().SaveBlock(ctx, block); err != nil {
		t.Fatalf("save block: %v", err)
	}
	if err := unit.Availability().SaveDayFlag(ctx, domainavailability.DayFlag{ListingID: listing.ID, Date: calendar.DateOf(start), IsAvailable: false}); err != nil {
		t.Fatalf("save flag: %v", err)
	}
	if err := unit.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	if _, err := f.BookingRepo.ByID(ctx, "bk-new"); !errors.Is(err, fault.ErrNotFound) {
		t.Fatalf("inserted booking survived rollback: %v", err)
	}
	stored, err := f.BookingRepo.ByID(ctx, kept.ID)
	if err != nil {
		t.Fatalf("load kept: %v", err)
	}
	if stored.Status != domainbooking.StatusPending {
		t.Fatalf("expected kept booking back to pending, got %s", stored.Status)
	}
	got, err := f.ListingsRepo.ByID(ctx, listing.ID)
	if err != nil || got.Title != "Loft" {
		t.Fatalf("expected original title, got %+v %v", got, err)
	}
	if options, _ := f.PricingRepo.ListByListing(ctx, listing.ID); len(options) != 0 {
		t.Fatalf("expected no options, got %+v", options)
	}
	if blocks, _ := f.AvailabilityRepo.BlocksOverlapping(ctx, listing.ID, block.Range); len(blocks) != 0 {
		t.Fatalf("expected no blocks, got %+v", blocks)
	}
	day := calendar.DateOf(start)
	if flags, _ := f.AvailabilityRepo.DayFlags(ctx, listing.ID, day, day); len(flags) != 0 {
		t.Fatalf("expected no day flags, got %+v", flags)
	}
}

func TestCommitKeepsWritesAndIgnoresRollback(t *testing.T) {
	ctx := context.Background()
	f := memory.NewFactory()
	seed(t, f)
	start := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)

	unit, err := f.Begin(ctx, uow.TxOptions{})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := unit.Bookings().Insert(ctx, booking(t, "bk-1", start, start.Add(time.Hour))); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := unit.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := unit.Rollback(ctx); err != nil {
		t.Fatalf("rollback after commit: %v", err)
	}
	if _, err := f.BookingRepo.ByID(ctx, "bk-1"); err != nil {
		t.Fatalf("committed booking missing: %v", err)
	}
}

func TestFailedWriteIsNotJournaled(t *testing.T) {
	ctx := context.Background()
	f := memory.NewFactory()
	seed(t, f)
	start := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	if err := f.BookingRepo.Insert(ctx, booking(t, "bk-1", start, start.Add(time.Hour))); err != nil {
		t.Fatalf("insert: %v", err)
	}

	unit, err := f.Begin(ctx, uow.TxOptions{})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := unit.Bookings().Insert(ctx, booking(t, "bk-1", start.Add(2*time.Hour), start.Add(3*time.Hour))); !errors.Is(err, memory.ErrDuplicateBooking) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if err := unit.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if _, err := f.BookingRepo.ByID(ctx, "bk-1"); err != nil {
		t.Fatalf("rollback removed a row it never wrote: %v", err)
	}
}
