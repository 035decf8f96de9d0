package mongo

import (
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	domainpricing "reservations/internal/domain/pricing"
	"reservations/internal/domain/shared/calendar"
	"reservations/internal/domain/shared/daterange"
	"reservations/internal/domain/shared/fault"
)

func TestOverlapFilterIsHalfOpen(t *testing.T) {
	start := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	window := daterange.DateRange{Start: start, End: start.Add(2 * time.Hour)}
	f := overlapFilter("lst-1", window)
	if f["listing_id"] != "lst-1" {
		t.Fatalf("unexpected listing filter %v", f["listing_id"])
	}
	if got := f["start"].(bson.M)["$lt"]; got != window.End {
		t.Fatalf("start must be strictly before window end, got %v", got)
	}
	if got := f["end"].(bson.M)["$gt"]; got != window.Start {
		t.Fatalf("end must be strictly after window start, got %v", got)
	}
}

func TestSpecialDocumentDates(t *testing.T) {
	doc := specialDocument{
		ID:         "sp-1",
		Kind:       string(domainpricing.SpecialRecurring),
		Weekday:    1,
		ValidFrom:  "2025-03-01",
		PriceMinor: 1500,
		Currency:   "USD",
	}
	sp, err := doc.toSpecial()
	if err != nil {
		t.Fatalf("toSpecial: %v", err)
	}
	if sp.ValidFrom == nil || !sp.ValidFrom.Equal(calendar.Date{Year: 2025, Month: time.March, Day: 1}) {
		t.Fatalf("unexpected valid_from %v", sp.ValidFrom)
	}
	if sp.ValidUntil != nil {
		t.Fatalf("open-ended rule must keep a nil valid_until")
	}
	if sp.Weekday != calendar.Weekday(1) || sp.Price.Amount != 1500 {
		t.Fatalf("unexpected rule %+v", sp)
	}

	doc.ValidUntil = "03/09/2025"
	if _, err := doc.toSpecial(); err == nil {
		t.Fatalf("expected a malformed date to fail")
	}
}

func TestTranslate(t *testing.T) {
	transient := mongo.CommandError{Code: 112, Name: "WriteConflict", Labels: []string{"TransientTransactionError"}}
	duplicate := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "duplicate key"}}}
	for name, err := range map[string]error{"transient": transient, "duplicate": duplicate} {
		if !fault.Retryable(translate(err)) {
			t.Fatalf("%s: expected a retryable conflict, got %v", name, translate(err))
		}
	}
	plain := errors.New("boom")
	if got := translate(plain); got != plain {
		t.Fatalf("unclassified errors pass through, got %v", got)
	}
}
