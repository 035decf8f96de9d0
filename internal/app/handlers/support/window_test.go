package support

import (
	"errors"
	"testing"
	"time"

	domainlistings "reservations/internal/domain/listings"
	"reservations/internal/domain/shared/fault"
)

func TestResolveWindow(t *testing.T) {
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	hourly := &domainlistings.Listing{UnitType: domainlistings.UnitHour}
	appointment := &domainlistings.Listing{UnitType: domainlistings.UnitAppointment}

	got, err := ResolveWindow(hourly, WindowRequest{Start: start, BookingPeriod: 3})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !got.End.Equal(start.Add(3 * time.Hour)) {
		t.Fatalf("expected end derived from period, got %v", got.End)
	}

	got, err = ResolveWindow(hourly, WindowRequest{Start: start, End: start.Add(2 * time.Hour), BookingPeriod: 2})
	if err != nil || !got.End.Equal(start.Add(2*time.Hour)) {
		t.Fatalf("matching period and end should pass, got %v %v", got, err)
	}
	got, err = ResolveWindow(appointment, WindowRequest{Start: start, End: start.Add(45 * time.Minute), BookingPeriod: 1})
	if err != nil || !got.End.Equal(start.Add(45*time.Minute)) {
		t.Fatalf("appointment with one unit should pass, got %v %v", got, err)
	}
	if _, err := ResolveWindow(hourly, WindowRequest{Start: start, End: start.Add(time.Hour), BookingPeriod: 4}); !errors.Is(err, ErrPeriodMismatch) {
		t.Fatalf("expected period mismatch, got %v", err)
	}

	cases := []struct {
		name    string
		listing *domainlistings.Listing
		req     WindowRequest
	}{
		{name: "unit mismatch", listing: hourly, req: WindowRequest{Start: start, End: start.Add(time.Hour), UnitType: "day"}},
		{name: "appointment needs end", listing: appointment, req: WindowRequest{Start: start, BookingPeriod: 1}},
		{name: "negative period", listing: hourly, req: WindowRequest{Start: start, BookingPeriod: -1}},
		{name: "end before start", listing: hourly, req: WindowRequest{Start: start, End: start.Add(-time.Hour)}},
		{name: "period disagrees with end", listing: hourly, req: WindowRequest{Start: start, End: start.Add(2 * time.Hour), BookingPeriod: 3}},
		{name: "appointment period above one", listing: appointment, req: WindowRequest{Start: start, End: start.Add(time.Hour), BookingPeriod: 2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ResolveWindow(tc.listing, tc.req); !errors.Is(err, fault.ErrInvalidWindow) && !errors.Is(err, fault.ErrInvalidInput) {
				t.Fatalf("expected invalid window, got %v", err)
			}
		})
	}
}
