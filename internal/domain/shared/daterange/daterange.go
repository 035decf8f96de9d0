package daterange

import (
	"errors"
	"fmt"
	"time"

	"reservations/internal/domain/shared/fault"
)

var (
	ErrInvalidRange = fmt.Errorf("daterange: end must be after start: %w", fault.ErrInvalidWindow)
	ErrMissingBound = errors.New("daterange: start and end are required")
)

// DateRange represents a half-open interval [Start, End).
type DateRange struct {
	Start time.Time
	End   time.Time
}

func New(start, end time.Time) (DateRange, error) {
	dr := DateRange{Start: start.UTC(), End: end.UTC()}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

func (dr DateRange) Validate() error {
	if dr.Start.IsZero() || dr.End.IsZero() {
		return fmt.Errorf("%w: %w", ErrMissingBound, fault.ErrInvalidWindow)
	}
	if !dr.End.After(dr.Start) {
		return ErrInvalidRange
	}
	return nil
}

func (dr DateRange) Duration() time.Duration {
	return dr.End.Sub(dr.Start)
}

// Overlaps is strict: ranges that only share a boundary point do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Covers reports whether [outerStart, outerEnd) contains [innerStart, innerEnd).
func Covers(outerStart, outerEnd, innerStart, innerEnd time.Time) bool {
	return !outerStart.After(innerStart) && !outerEnd.Before(innerEnd)
}

func (dr DateRange) Overlaps(other DateRange) bool {
	return Overlaps(dr.Start, dr.End, other.Start, other.End)
}

func (dr DateRange) Covers(other DateRange) bool {
	return Covers(dr.Start, dr.End, other.Start, other.End)
}

func (dr DateRange) ContainsInstant(t time.Time) bool {
	return !t.Before(dr.Start) && t.Before(dr.End)
}

func (dr DateRange) Adjacent(other DateRange) bool {
	return dr.End.Equal(other.Start) || dr.Start.Equal(other.End)
}

func (dr DateRange) String() string {
	return dr.Start.Format(time.RFC3339) + "/" + dr.End.Format(time.RFC3339)
}
