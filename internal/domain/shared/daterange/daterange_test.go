package daterange

import (
	"errors"
	"testing"
	"time"

	"reservations/internal/domain/shared/fault"
)

func at(day, hour int) time.Time {
	return time.Date(2026, 1, day, hour, 0, 0, 0, time.UTC)
}

func TestOverlaps_Symmetric(t *testing.T) {
	cases := []struct {
		name string
		a, b DateRange
		want bool
	}{
		{"disjoint", DateRange{at(1, 0), at(1, 5)}, DateRange{at(1, 6), at(1, 8)}, false},
		{"adjacent", DateRange{at(1, 10), at(1, 12)}, DateRange{at(1, 12), at(1, 14)}, false},
		{"partial", DateRange{at(1, 10), at(1, 13)}, DateRange{at(1, 12), at(1, 14)}, true},
		{"nested", DateRange{at(1, 0), at(2, 0)}, DateRange{at(1, 3), at(1, 4)}, true},
		{"identical", DateRange{at(1, 3), at(1, 4)}, DateRange{at(1, 3), at(1, 4)}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ab := tc.a.Overlaps(tc.b)
			ba := tc.b.Overlaps(tc.a)
			if ab != ba {
				t.Fatalf("overlap not symmetric: a/b=%v b/a=%v", ab, ba)
			}
			if ab != tc.want {
				t.Fatalf("expected overlap=%v, got %v", tc.want, ab)
			}
		})
	}
}

func TestCovers(t *testing.T) {
	outer := DateRange{at(1, 0), at(2, 0)}
	if !outer.Covers(DateRange{at(1, 0), at(2, 0)}) {
		t.Fatal("range must cover itself")
	}
	if !outer.Covers(DateRange{at(1, 5), at(1, 6)}) {
		t.Fatal("expected inner range to be covered")
	}
	if outer.Covers(DateRange{at(1, 5), at(2, 1)}) {
		t.Fatal("range past the end must not be covered")
	}
}

func TestNew_RejectsEmptyAndInverted(t *testing.T) {
	if _, err := New(at(1, 5), at(1, 5)); !errors.Is(err, fault.ErrInvalidWindow) {
		t.Fatalf("expected invalid window for empty range, got %v", err)
	}
	if _, err := New(at(1, 6), at(1, 5)); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	if _, err := New(time.Time{}, at(1, 5)); !errors.Is(err, fault.ErrInvalidWindow) {
		t.Fatalf("expected invalid window for zero start, got %v", err)
	}
}
