package clock

import "time"

// Clock supplies the reference instant for every evaluation; the engine never
// reads the wall clock directly.
type Clock interface {
	Now() time.Time
}

type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

// Fixed always returns the same instant. Used by tests and replays.
type Fixed time.Time

func (f Fixed) Now() time.Time { return time.Time(f).UTC() }

type Func func() time.Time

func (f Func) Now() time.Time { return f().UTC() }
