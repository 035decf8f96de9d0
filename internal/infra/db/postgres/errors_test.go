package postgres

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"reservations/internal/domain/shared/fault"
)

func TestTranslate(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
	}{
		{name: "unique", err: &pgconn.PgError{Code: codeUniqueViolation}, retryable: true},
		{name: "serialization", err: &pgconn.PgError{Code: codeSerializationFailure}, retryable: true},
		{name: "deadlock wrapped", err: fmt.Errorf("exec: %w", &pgconn.PgError{Code: codeDeadlockDetected}), retryable: true},
		{name: "check violation", err: &pgconn.PgError{Code: "23514"}},
		{name: "plain", err: errors.New("boom")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := translate(tc.err)
			if fault.Retryable(got) != tc.retryable {
				t.Fatalf("retryable = %v, want %v (%v)", fault.Retryable(got), tc.retryable, got)
			}
		})
	}
	if translate(nil) != nil {
		t.Fatalf("nil must stay nil")
	}
}

func TestExclusionViolation(t *testing.T) {
	if !isExclusionViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: codeExclusionViolation})) {
		t.Fatalf("expected exclusion violation to be detected")
	}
	if isExclusionViolation(&pgconn.PgError{Code: codeUniqueViolation}) {
		t.Fatalf("unique violation is not an exclusion violation")
	}
}

func TestSchemaDeclaresOverlapConstraint(t *testing.T) {
	for _, want := range []string{"btree_gist", "bookings_no_overlap", "outbox_events", "inbox_events"} {
		if !strings.Contains(schema, want) {
			t.Fatalf("schema missing %q", want)
		}
	}
}
