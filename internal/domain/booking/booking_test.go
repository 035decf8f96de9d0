package booking

import (
	"errors"
	"testing"
	"time"

	"reservations/internal/domain/shared/daterange"
	"reservations/internal/domain/shared/fault"
	"reservations/internal/domain/shared/money"
)

var jan1 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func at(h int) time.Time { return jan1.Add(time.Duration(h) * time.Hour) }

func newPending(t *testing.T, id BookingID, start, end time.Time) *Booking {
	t.Helper()
	b, err := NewBooking(CreateParams{
		ID:        id,
		ListingID: "L",
		GuestID:   "guest",
		Range:     daterange.DateRange{Start: start, End: end},
		Total:     money.Must(10000, "USD"),
		CreatedAt: jan1.AddDate(0, 0, -10),
	})
	if err != nil {
		t.Fatalf("new booking: %v", err)
	}
	return b
}

func TestAdjacentBookingIsNotAConflict(t *testing.T) {
	existing := newPending(t, "A", at(10), at(12))
	got := DetectConflicts([]*Booking{existing}, daterange.DateRange{Start: at(12), End: at(14)}, "")
	if len(got) != 0 {
		t.Fatalf("adjacent windows must not conflict, got %d", len(got))
	}
	got = DetectConflicts([]*Booking{existing}, daterange.DateRange{Start: at(11), End: at(13)}, "")
	if len(got) != 1 {
		t.Fatalf("expected overlap to conflict")
	}
}

func TestDetectConflictsStatusesAndExclusion(t *testing.T) {
	pending := newPending(t, "P", at(1), at(3))
	cancelled := newPending(t, "C", at(1), at(3))
	if err := cancelled.Cancel("guest", at(0)); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	completed := newPending(t, "D", at(1), at(3))
	_ = completed.Confirm(at(0))
	_ = completed.Complete(at(4))

	window := daterange.DateRange{Start: at(2), End: at(5)}
	got := DetectConflicts([]*Booking{pending, cancelled, completed}, window, "")
	if len(got) != 2 {
		t.Fatalf("expected pending and completed to conflict, got %d", len(got))
	}
	got = DetectConflicts([]*Booking{pending, cancelled, completed}, window, "P")
	if len(got) != 1 || got[0].ID != "D" {
		t.Fatalf("expected exclusion of P, got %+v", got)
	}
}

func TestLifecycleTransitions(t *testing.T) {
	b := newPending(t, "B", at(10), at(12))
	if err := b.Complete(at(1)); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("pending cannot complete, got %v", err)
	}
	if err := b.Confirm(at(1)); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := b.Confirm(at(1)); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("double confirm must fail, got %v", err)
	}
	if err := b.Reschedule(daterange.DateRange{Start: at(20), End: at(22)}, money.Money{}, at(2)); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if !b.Range.Start.Equal(at(20)) || b.Total.Amount != 10000 {
		t.Fatalf("unexpected booking after reschedule: %+v", b)
	}
	if err := b.Cancel(ReasonRevalidationFailed, at(3)); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if b.Status.Occupies() {
		t.Fatalf("cancelled bookings do not occupy")
	}
	names := []string{}
	for _, ev := range b.PendingEvents() {
		names = append(names, ev.EventName())
	}
	want := []string{"booking.requested", "booking.confirmed", "booking.rescheduled", "booking.cancelled"}
	if len(names) != len(want) {
		t.Fatalf("expected events %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, names)
		}
	}
}

func TestValidateWindow(t *testing.T) {
	now := at(10)
	if err := ValidateWindow(daterange.DateRange{Start: at(10), End: at(11)}, now, false); !errors.Is(err, fault.ErrInvalidWindow) {
		t.Fatalf("start equal to now must be rejected, got %v", err)
	}
	if err := ValidateWindow(daterange.DateRange{Start: at(9), End: at(11)}, now, true); err != nil {
		t.Fatalf("allow past should accept, got %v", err)
	}
	if err := ValidateWindow(daterange.DateRange{Start: at(12), End: at(12)}, now, true); !errors.Is(err, fault.ErrInvalidWindow) {
		t.Fatalf("empty window must be rejected, got %v", err)
	}
}

func TestNewBookingRequiresGuestAndTotal(t *testing.T) {
	_, err := NewBooking(CreateParams{ID: "x", Range: daterange.DateRange{Start: at(1), End: at(2)}, Total: money.Must(1, "USD")})
	if !errors.Is(err, fault.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	_, err = NewBooking(CreateParams{ID: "x", GuestID: "g", Range: daterange.DateRange{Start: at(1), End: at(2)}})
	if !errors.Is(err, fault.ErrInvalidInput) {
		t.Fatalf("expected invalid input for zero total, got %v", err)
	}
}
