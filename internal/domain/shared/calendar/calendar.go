// Package calendar models plain calendar dates and days of the week in UTC.
package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"reservations/internal/domain/shared/fault"
)

const dateLayout = "2006-01-02"

var ErrInvalidWeekday = fmt.Errorf("calendar: weekday must be 0..6 or an english day name: %w", fault.ErrInvalidInput)

// Weekday is shared by recurring pricing and calendar computations. Sunday is 0.
type Weekday int

const (
	Sunday Weekday = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

var weekdayNames = [...]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

func (w Weekday) Valid() bool {
	return w >= Sunday && w <= Saturday
}

func (w Weekday) String() string {
	if !w.Valid() {
		return "weekday(" + strconv.Itoa(int(w)) + ")"
	}
	return weekdayNames[w]
}

// ParseWeekday accepts "0".."6", full names and three-letter abbreviations.
func ParseWeekday(raw string) (Weekday, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return 0, ErrInvalidWeekday
	}
	if n, err := strconv.Atoi(value); err == nil {
		w := Weekday(n)
		if !w.Valid() {
			return 0, ErrInvalidWeekday
		}
		return w, nil
	}
	for i, name := range weekdayNames {
		if value == name || value == name[:3] {
			return Weekday(i), nil
		}
	}
	return 0, ErrInvalidWeekday
}

// Date is a calendar day with no time-of-day component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

var ErrInvalidDate = errors.New("calendar: date must use YYYY-MM-DD")

func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{Year: y, Month: m, Day: d}
}

func ParseDate(raw string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %w", ErrInvalidDate, fault.ErrInvalidInput)
	}
	return DateOf(t), nil
}

func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Start is 00:00:00 UTC of the day.
func (d Date) Start() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// EndOfDay is 23:59:59 UTC of the day, the upper bound date-only inputs widen to.
func (d Date) EndOfDay() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 23, 59, 59, 0, time.UTC)
}

func (d Date) Weekday() Weekday {
	return Weekday(d.Start().Weekday())
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.Start().AddDate(0, 0, n))
}

func (d Date) Before(other Date) bool {
	return d.Start().Before(other.Start())
}

func (d Date) After(other Date) bool {
	return d.Start().After(other.Start())
}

func (d Date) Equal(other Date) bool {
	return d == other
}

func (d Date) String() string {
	return d.Start().Format(dateLayout)
}

// DaysTouched lists every calendar day that intersects [start, end).
func DaysTouched(start, end time.Time) []Date {
	if !end.After(start) {
		return nil
	}
	last := DateOf(end.Add(-time.Nanosecond))
	var days []Date
	for d := DateOf(start); !d.After(last); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}
