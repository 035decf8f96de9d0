package booking_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"reservations/internal/app/engine"
	bookinghandlers "reservations/internal/app/handlers/booking"
	"reservations/internal/app/uow"
	domainavailability "reservations/internal/domain/availability"
	domainbooking "reservations/internal/domain/booking"
	domainlistings "reservations/internal/domain/listings"
	domainpricing "reservations/internal/domain/pricing"
	"reservations/internal/domain/shared/clock"
	"reservations/internal/domain/shared/money"
	"reservations/internal/infra/storage/memory"
)

var now = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func monday(hour int) time.Time {
	return time.Date(2025, 3, 3, hour, 0, 0, 0, time.UTC)
}

type env struct {
	factory memory.Factory
	outbox  *memory.Outbox
	engine  *engine.Engine
	listing *domainlistings.Listing
}

func newEnv(t *testing.T) env {
	t.Helper()
	ctx := context.Background()
	factory := memory.NewFactory()
	listing, err := domainlistings.NewListing(domainlistings.CreateListingParams{
		ID:               "lst-1",
		Host:             "host-1",
		Title:            "Meeting room",
		UnitType:         domainlistings.UnitHour,
		AvailabilityMode: domainlistings.AvailableByDefault,
		Currency:         "USD",
		Now:              now,
	})
	if err != nil {
		t.Fatalf("new listing: %v", err)
	}
	if err := factory.ListingsRepo.Save(ctx, listing); err != nil {
		t.Fatalf("save listing: %v", err)
	}
	option, err := domainpricing.NewOption(domainpricing.NewOptionParams{
		ID:        "opt-1",
		ListingID: listing.ID,
		UnitType:  domainlistings.UnitHour,
		Duration:  1,
		Price:     money.Must(2500, "USD"),
		IsDefault: true,
		Now:       now,
	})
	if err != nil {
		t.Fatalf("new option: %v", err)
	}
	if err := factory.PricingRepo.Save(ctx, option); err != nil {
		t.Fatalf("save option: %v", err)
	}
	return env{
		factory: factory,
		outbox:  memory.NewOutbox(),
		engine:  engine.New(clock.Fixed(now), nil),
		listing: listing,
	}
}

func (e env) requester() *bookinghandlers.RequestBookingHandler {
	return &bookinghandlers.RequestBookingHandler{UoWFactory: e.factory, Engine: e.engine, Outbox: e.outbox}
}

func (e env) withUnit(t *testing.T, fn func(ctx context.Context)) {
	t.Helper()
	ctx := context.Background()
	unit, err := e.factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	fn(uow.ContextWithUnitOfWork(ctx, unit))
	if err := unit.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func requestCmd(guest string, start, end time.Time) bookinghandlers.RequestBookingCommand {
	return bookinghandlers.RequestBookingCommand{ListingID: "lst-1", GuestID: guest, Start: start, End: end}
}

func TestRequestBookingCreatesPendingBooking(t *testing.T) {
	e := newEnv(t)
	res, err := e.requester().Handle(context.Background(), requestCmd("guest-1", monday(10), monday(12)))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if !res.Available || res.BookingID == "" {
		t.Fatalf("expected a booking, got %+v", res)
	}
	if res.Total != "50.00" || res.Currency != "USD" {
		t.Fatalf("unexpected total %q %q", res.Total, res.Currency)
	}
	stored, err := e.factory.BookingRepo.ByID(context.Background(), domainbooking.BookingID(res.BookingID))
	if err != nil {
		t.Fatalf("load booking: %v", err)
	}
	if stored.Status != domainbooking.StatusPending || stored.Total.Amount != 5000 {
		t.Fatalf("unexpected booking %+v", stored)
	}
	pending := e.outbox.Pending()
	if len(pending) != 1 || pending[0].Name != "booking.requested" {
		t.Fatalf("expected one booking.requested record, got %+v", pending)
	}
}

func TestRequestBookingRejectsOverlap(t *testing.T) {
	e := newEnv(t)
	h := e.requester()
	first, err := h.Handle(context.Background(), requestCmd("guest-1", monday(10), monday(12)))
	if err != nil || !first.Available {
		t.Fatalf("first request: %+v %v", first, err)
	}
	second, err := h.Handle(context.Background(), requestCmd("guest-2", monday(11), monday(13)))
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	if second.Available || second.Reason != engine.ReasonConflict {
		t.Fatalf("expected conflict rejection, got %+v", second)
	}
	if len(second.Conflicts) != 1 || second.Conflicts[0] != first.BookingID {
		t.Fatalf("expected conflict with %s, got %v", first.BookingID, second.Conflicts)
	}
}

func TestRequestBookingConcurrentRequestsBookOnce(t *testing.T) {
	e := newEnv(t)
	h := e.requester()

	var wg sync.WaitGroup
	results := make([]*bookinghandlers.RequestBookingResult, 2)
	errs := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = h.Handle(context.Background(), requestCmd("guest", monday(10), monday(12)))
		}(i)
	}
	wg.Wait()

	created := 0
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("request %d: %v", i, errs[i])
		}
		if results[i].Available {
			created++
		}
	}
	if created != 1 {
		t.Fatalf("expected exactly one booking, got %d", created)
	}
	stored, err := e.factory.BookingRepo.ListByListing(context.Background(), "lst-1", domainbooking.OccupyingStatuses)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("expected one stored booking, got %d", len(stored))
	}
}

func TestTransitionBookingLifecycle(t *testing.T) {
	e := newEnv(t)
	res, err := e.requester().Handle(context.Background(), requestCmd("guest-1", monday(10), monday(12)))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	h := &bookinghandlers.TransitionBookingHandler{Clock: clock.Fixed(now), Outbox: e.outbox}

	e.withUnit(t, func(ctx context.Context) {
		out, err := h.Handle(ctx, bookinghandlers.TransitionBookingCommand{BookingID: res.BookingID, Transition: bookinghandlers.TransitionConfirm})
		if err != nil {
			t.Fatalf("confirm: %v", err)
		}
		if out.Status != string(domainbooking.StatusConfirmed) {
			t.Fatalf("expected confirmed, got %s", out.Status)
		}
	})
	e.withUnit(t, func(ctx context.Context) {
		if _, err := h.Handle(ctx, bookinghandlers.TransitionBookingCommand{BookingID: res.BookingID, Transition: bookinghandlers.TransitionConfirm}); err == nil {
			t.Fatal("confirming twice should fail")
		}
	})
	e.withUnit(t, func(ctx context.Context) {
		out, err := h.Handle(ctx, bookinghandlers.TransitionBookingCommand{BookingID: res.BookingID, Transition: bookinghandlers.TransitionCancel, Reason: "guest changed plans"})
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if out.Status != string(domainbooking.StatusCancelled) {
			t.Fatalf("expected cancelled, got %s", out.Status)
		}
	})

	again, err := e.requester().Handle(context.Background(), requestCmd("guest-2", monday(10), monday(12)))
	if err != nil {
		t.Fatalf("rebook: %v", err)
	}
	if !again.Available {
		t.Fatalf("cancelled booking must free the window, got %+v", again)
	}
}

func TestRescheduleIgnoresOwnOccupancy(t *testing.T) {
	e := newEnv(t)
	res, err := e.requester().Handle(context.Background(), requestCmd("guest-1", monday(10), monday(12)))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	h := &bookinghandlers.RescheduleBookingHandler{Engine: e.engine, Outbox: e.outbox}
	e.withUnit(t, func(ctx context.Context) {
		out, err := h.Handle(ctx, bookinghandlers.RescheduleBookingCommand{BookingID: res.BookingID, Start: monday(11), End: monday(14)})
		if err != nil {
			t.Fatalf("reschedule: %v", err)
		}
		if !out.Available || out.Booking == nil {
			t.Fatalf("expected reschedule to succeed, got %+v", out)
		}
		if out.Booking.Total.Amount != 7500 {
			t.Fatalf("expected re-priced total 7500, got %d", out.Booking.Total.Amount)
		}
	})
}

func TestRevalidateCancelsPendingBookingsThatNoLongerFit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	kept, err := e.requester().Handle(ctx, requestCmd("guest-1", monday(8), monday(9)))
	if err != nil {
		t.Fatalf("request kept: %v", err)
	}
	doomed, err := e.requester().Handle(ctx, requestCmd("guest-2", monday(10), monday(12)))
	if err != nil {
		t.Fatalf("request doomed: %v", err)
	}
	block, err := domainavailability.NewBlockedDate("blk-1", "lst-1", monday(10), monday(18), "maintenance", now)
	if err != nil {
		t.Fatalf("block: %v", err)
	}
	if err := e.factory.AvailabilityRepo.SaveBlock(ctx, block); err != nil {
		t.Fatalf("save block: %v", err)
	}

	h := &bookinghandlers.RevalidatePendingBookingsHandler{Engine: e.engine, Outbox: e.outbox}
	e.withUnit(t, func(ctx context.Context) {
		out, err := h.Handle(ctx, bookinghandlers.RevalidatePendingBookingsCommand{ListingID: "lst-1"})
		if err != nil {
			t.Fatalf("revalidate: %v", err)
		}
		if out.Checked != 2 || len(out.Cancelled) != 1 || out.Cancelled[0] != doomed.BookingID {
			t.Fatalf("unexpected result %+v", out)
		}
	})

	stored, err := e.factory.BookingRepo.ByID(ctx, domainbooking.BookingID(doomed.BookingID))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if stored.Status != domainbooking.StatusCancelled || stored.CancelReason != domainbooking.ReasonRevalidationFailed {
		t.Fatalf("expected revalidation cancel, got %s %q", stored.Status, stored.CancelReason)
	}
	still, err := e.factory.BookingRepo.ByID(ctx, domainbooking.BookingID(kept.BookingID))
	if err != nil {
		t.Fatalf("load kept: %v", err)
	}
	if still.Status != domainbooking.StatusPending {
		t.Fatalf("unaffected booking changed to %s", still.Status)
	}
}

func TestListGuestBookings(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	h := e.requester()
	for _, c := range []bookinghandlers.RequestBookingCommand{
		requestCmd("guest-1", monday(14), monday(15)),
		requestCmd("guest-1", monday(10), monday(11)),
		requestCmd("guest-2", monday(12), monday(13)),
	} {
		if res, err := h.Handle(ctx, c); err != nil || !res.Available {
			t.Fatalf("request %+v: %+v %v", c, res, err)
		}
	}

	q := &bookinghandlers.ListGuestBookingsHandler{UoWFactory: e.factory, Clock: clock.Fixed(now)}
	out, err := q.Handle(ctx, bookinghandlers.ListGuestBookingsQuery{GuestID: "guest-1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out.Items) != 2 {
		t.Fatalf("expected 2 bookings, got %d", len(out.Items))
	}
	first := out.Items[0]
	if !first.Start.Equal(monday(10)) {
		t.Fatalf("expected oldest first, got %s", first.Start)
	}
	if first.ListingTitle != "Meeting room" || first.UnitType != string(domainlistings.UnitHour) || !first.Upcoming {
		t.Fatalf("unexpected summary %+v", first)
	}

	out, err = q.Handle(ctx, bookinghandlers.ListGuestBookingsQuery{GuestID: "guest-1", Statuses: []string{"confirmed"}})
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(out.Items) != 0 {
		t.Fatalf("expected no confirmed bookings, got %d", len(out.Items))
	}

	if err := (bookinghandlers.ListGuestBookingsQuery{GuestID: " "}).Validate(); !errors.Is(err, bookinghandlers.ErrGuestIDRequired) {
		t.Fatalf("expected guest id error, got %v", err)
	}
}
