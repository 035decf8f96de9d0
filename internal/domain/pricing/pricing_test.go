package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"reservations/internal/domain/listings"
	"reservations/internal/domain/shared/calendar"
	"reservations/internal/domain/shared/daterange"
	"reservations/internal/domain/shared/fault"
	"reservations/internal/domain/shared/money"
)

type stubSpecials struct {
	rows []SpecialPricing
}

func (s stubSpecials) SpecificFor(_ context.Context, id listings.ListingID, date calendar.Date, option OptionID) (*SpecialPricing, error) {
	for i := range s.rows {
		row := s.rows[i]
		if row.ListingID == id && row.Kind == SpecialSpecific && row.OptionID == option && row.Date.Equal(date) {
			return &row, nil
		}
	}
	return nil, ErrSpecialNotFound
}

func (s stubSpecials) RecurringFor(_ context.Context, id listings.ListingID, weekday calendar.Weekday, option OptionID) ([]SpecialPricing, error) {
	var out []SpecialPricing
	for _, row := range s.rows {
		if row.ListingID == id && row.Kind == SpecialRecurring && row.OptionID == option && row.Weekday == weekday {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s stubSpecials) ListByListing(context.Context, listings.ListingID) ([]SpecialPricing, error) {
	return s.rows, nil
}

func (s stubSpecials) Save(context.Context, *SpecialPricing) error { return nil }

func usd(amount int64) money.Money { return money.Must(amount, "USD") }

func mustDate(t *testing.T, raw string) calendar.Date {
	t.Helper()
	d, err := calendar.ParseDate(raw)
	if err != nil {
		t.Fatalf("parse %s: %v", raw, err)
	}
	return d
}

func TestDefaultOptionOrdering(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	options := []PricingOption{
		{ID: "cheap-late", Price: usd(5000), CreatedAt: base.Add(2 * time.Hour)},
		{ID: "cheap-early", Price: usd(5000), CreatedAt: base.Add(time.Hour)},
		{ID: "pricey", Price: usd(9000), CreatedAt: base},
	}
	got, err := DefaultOption(options)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "cheap-early" {
		t.Fatalf("expected cheap-early, got %s", got.ID)
	}

	options[2].IsDefault = true
	got, _ = DefaultOption(options)
	if got.ID != "pricey" {
		t.Fatalf("flagged default must win, got %s", got.ID)
	}
}

func TestNoOptionsIsHardError(t *testing.T) {
	if _, err := DefaultOption(nil); !errors.Is(err, fault.ErrPricingNotConfigured) {
		t.Fatalf("expected pricing not configured, got %v", err)
	}
	if _, err := ResolveOption(nil, listings.UnitDay, 1); !errors.Is(err, ErrPricingNotConfigured) {
		t.Fatalf("expected pricing not configured, got %v", err)
	}
}

func TestPerUnitPriceRoundsHalfUp(t *testing.T) {
	cases := []struct {
		price    int64
		duration int
		want     int64
	}{
		{price: 10000, duration: 1, want: 10000},
		{price: 1000, duration: 3, want: 333},
		{price: 1001, duration: 2, want: 501},
		{price: 70000, duration: 7, want: 10000},
	}
	for _, tc := range cases {
		got, err := PerUnitPrice(PricingOption{Price: usd(tc.price), Duration: tc.duration})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Amount != tc.want {
			t.Fatalf("%d/%d: expected %d, got %d", tc.price, tc.duration, tc.want, got.Amount)
		}
	}
}

func TestResolveOptionPrefersExactMatch(t *testing.T) {
	options := []PricingOption{
		{ID: "daily", UnitType: listings.UnitDay, Duration: 1, Price: usd(10000), IsDefault: true},
		{ID: "weekly", UnitType: listings.UnitDay, Duration: 7, Price: usd(60000)},
	}
	got, _ := ResolveOption(options, listings.UnitDay, 7)
	if got.ID != "weekly" {
		t.Fatalf("expected weekly, got %s", got.ID)
	}
	got, _ = ResolveOption(options, listings.UnitDay, 3)
	if got.ID != "daily" {
		t.Fatalf("expected default fallback, got %s", got.ID)
	}
}

func TestOptionByID(t *testing.T) {
	options := []PricingOption{{ID: "a", Price: usd(100)}, {ID: "b", Price: usd(50)}}
	if got, _ := OptionByID(options, ""); got.ID != "b" {
		t.Fatalf("empty id should pick default, got %s", got.ID)
	}
	if _, err := OptionByID(options, "zzz"); !errors.Is(err, fault.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestEffectivePricePrecedence(t *testing.T) {
	option := PricingOption{ID: "po-1", ListingID: "L", UnitType: listings.UnitDay, Duration: 1, Price: usd(10000)}
	monday := mustDate(t, "2025-03-03")
	otherMonday := mustDate(t, "2025-03-10")
	tuesday := mustDate(t, "2025-03-04")
	resolver := NewResolver(stubSpecials{rows: []SpecialPricing{
		{ID: "r1", ListingID: "L", OptionID: "po-1", Kind: SpecialRecurring, Weekday: calendar.Monday, Price: usd(8000), Reason: "monday"},
		{ID: "s1", ListingID: "L", OptionID: "po-1", Kind: SpecialSpecific, Date: monday, Price: usd(6000), Reason: "event"},
	}})

	cases := []struct {
		name   string
		date   calendar.Date
		price  string
		source Source
	}{
		{name: "specific date beats recurring", date: monday, price: "60.00", source: SourceSpecialDate},
		{name: "recurring beats base", date: otherMonday, price: "80.00", source: SourceSpecialRecurring},
		{name: "base otherwise", date: tuesday, price: "100.00", source: SourceBase},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := resolver.EffectivePrice(context.Background(), "L", tc.date, option)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Price.String() != tc.price || got.Source != tc.source {
				t.Fatalf("expected %s/%s, got %s/%s", tc.price, tc.source, got.Price, got.Source)
			}
		})
	}
}

func TestRecurringValidityWindowInclusive(t *testing.T) {
	from := mustDate(t, "2025-03-03")
	until := mustDate(t, "2025-03-10")
	row := SpecialPricing{Kind: SpecialRecurring, Weekday: calendar.Monday, ValidFrom: &from, ValidUntil: &until}
	if !row.Applies(from) || !row.Applies(until) {
		t.Fatalf("bounds must be inclusive")
	}
	if row.Applies(mustDate(t, "2025-03-17")) {
		t.Fatalf("date after window must not apply")
	}
	if row.Applies(mustDate(t, "2025-03-04")) {
		t.Fatalf("other weekday must not apply")
	}
}

func TestPickRecurringNarrowestThenLatest(t *testing.T) {
	from := mustDate(t, "2025-03-01")
	until := mustDate(t, "2025-03-31")
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []SpecialPricing{
		{ID: "open", Kind: SpecialRecurring, Weekday: calendar.Monday, CreatedAt: created.Add(time.Hour)},
		{ID: "march", Kind: SpecialRecurring, Weekday: calendar.Monday, ValidFrom: &from, ValidUntil: &until, CreatedAt: created},
	}
	got := PickRecurring(rows, mustDate(t, "2025-03-10"))
	if got == nil || got.ID != "march" {
		t.Fatalf("expected narrow window to win, got %+v", got)
	}
	rows = append(rows, SpecialPricing{ID: "march-2", Kind: SpecialRecurring, Weekday: calendar.Monday, ValidFrom: &from, ValidUntil: &until, CreatedAt: created.Add(2 * time.Hour)})
	if got := PickRecurring(rows, mustDate(t, "2025-03-10")); got.ID != "march-2" {
		t.Fatalf("expected latest created on tie, got %s", got.ID)
	}
}

func TestUpsertRules(t *testing.T) {
	day := mustDate(t, "2025-03-03")
	existing := []SpecialPricing{
		{ID: "s1", OptionID: "po", Kind: SpecialSpecific, Date: day, Price: usd(100)},
		{ID: "r1", OptionID: "po", Kind: SpecialRecurring, Weekday: calendar.Friday, Price: usd(100)},
	}

	got, err := Upsert(existing, SpecialPricing{ID: "new", OptionID: "po", Kind: SpecialSpecific, Date: day, Price: usd(200)})
	if err != nil || got.ID != "s1" {
		t.Fatalf("specific upsert should replace s1, got %s err %v", got.ID, err)
	}

	from := mustDate(t, "2025-06-01")
	_, err = Upsert(existing, SpecialPricing{ID: "r2", OptionID: "po", Kind: SpecialRecurring, Weekday: calendar.Friday, ValidFrom: &from, Price: usd(90)})
	if !errors.Is(err, ErrOverlappingRecurring) {
		t.Fatalf("expected overlap rejection, got %v", err)
	}

	got, err = Upsert(existing, SpecialPricing{ID: "r3", OptionID: "po", Kind: SpecialRecurring, Weekday: calendar.Saturday, Price: usd(90)})
	if err != nil || got.ID != "r3" {
		t.Fatalf("different weekday should insert, got %s err %v", got.ID, err)
	}
}

func TestUnitStartsAndMinimum(t *testing.T) {
	start := time.Date(2025, 3, 3, 14, 0, 0, 0, time.UTC)
	window := daterange.DateRange{Start: start, End: start.Add(72 * time.Hour)}
	if got := len(UnitStarts(window, listings.UnitNight)); got != 3 {
		t.Fatalf("expected 3 nights, got %d", got)
	}
	if got := len(UnitStarts(window, listings.UnitAppointment)); got != 1 {
		t.Fatalf("appointment is one unit, got %d", got)
	}
	if err := EnsureMinimumUnits(PricingOption{MinimumUnits: 4}, 3); !errors.Is(err, fault.ErrInvalidWindow) {
		t.Fatalf("expected below minimum, got %v", err)
	}
}
