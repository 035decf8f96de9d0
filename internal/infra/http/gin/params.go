package ginserver

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"reservations/internal/domain/shared/calendar"
	"reservations/internal/domain/shared/fault"
)

const hostHeader = "X-Host-ID"

// parseInstant accepts RFC 3339 or a bare date. A bare date widens to the
// start of the day, or to 23:59:59 when it bounds the end of a window.
func parseInstant(name, raw string, upper bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	d, err := calendar.ParseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be RFC 3339 or YYYY-MM-DD: %w", name, fault.ErrInvalidInput)
	}
	if upper {
		return d.EndOfDay(), nil
	}
	return d.Start(), nil
}

type windowParams struct {
	Start         time.Time
	End           time.Time
	BookingPeriod int
}

func parseWindow(startRaw, endRaw, periodRaw string) (windowParams, error) {
	start, err := parseInstant("start", startRaw, false)
	if err != nil {
		return windowParams{}, err
	}
	if start.IsZero() {
		return windowParams{}, fmt.Errorf("start is required: %w", fault.ErrInvalidWindow)
	}
	end, err := parseInstant("end", endRaw, true)
	if err != nil {
		return windowParams{}, err
	}
	period := 0
	if raw := strings.TrimSpace(periodRaw); raw != "" {
		if period, err = strconv.Atoi(raw); err != nil || period <= 0 {
			return windowParams{}, fmt.Errorf("booking_period must be a positive integer: %w", fault.ErrInvalidWindow)
		}
	}
	if end.IsZero() && period == 0 {
		return windowParams{}, fmt.Errorf("end or booking_period is required: %w", fault.ErrInvalidWindow)
	}
	return windowParams{Start: start, End: end, BookingPeriod: period}, nil
}

func queryWindow(c *gin.Context) (windowParams, error) {
	return parseWindow(c.Query("start"), c.Query("end"), c.Query("booking_period"))
}

func hostID(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(hostHeader))
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
