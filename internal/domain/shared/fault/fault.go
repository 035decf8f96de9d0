// Package fault holds the error kinds shared by every layer of the engine.
// Package-level sentinels wrap one of these so callers can branch on the kind
// without knowing which package produced the error.
package fault

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidWindow        = errors.New("invalid window")
	ErrInvalidInput         = errors.New("invalid input")
	ErrPricingNotConfigured = errors.New("pricing not configured")
	// ErrConcurrencyConflict is retryable: the write lost a race and the
	// read-side decision has to be made again.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)

// Retryable reports whether err is worth re-running the whole decision for.
func Retryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}

var kinds = []struct {
	code string
	err  error
}{
	{"not_found", ErrNotFound},
	{"invalid_window", ErrInvalidWindow},
	{"invalid_input", ErrInvalidInput},
	{"pricing_not_configured", ErrPricingNotConfigured},
	{"concurrency_conflict", ErrConcurrencyConflict},
}

// Code returns the stable code of err's kind, or "" for unclassified errors.
func Code(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.code
		}
	}
	return ""
}

// FromCode maps a code produced by Code back to its kind.
func FromCode(code string) error {
	for _, k := range kinds {
		if k.code == code {
			return k.err
		}
	}
	return nil
}
