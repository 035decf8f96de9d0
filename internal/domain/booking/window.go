package booking

import (
	"fmt"
	"time"

	"reservations/internal/domain/shared/daterange"
	"reservations/internal/domain/shared/fault"
)

var ErrStartNotInFuture = fmt.Errorf("booking: start must be after the current time: %w", fault.ErrInvalidWindow)

// ValidateWindow checks the window shape and, unless allowPast is set, that it
// starts strictly after now.
func ValidateWindow(dr daterange.DateRange, now time.Time, allowPast bool) error {
	if err := dr.Validate(); err != nil {
		return err
	}
	if !allowPast && !dr.Start.After(now) {
		return ErrStartNotInFuture
	}
	return nil
}
