package queries

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type countQuery struct{ Listing string }

func (countQuery) Key() string { return "test.count" }

type countHandler struct{}

func (countHandler) Handle(_ context.Context, q countQuery) (int, error) {
	return len(q.Listing), nil
}

func TestAskTyped(t *testing.T) {
	bus := NewInMemoryBus()
	RegisterHandler[countQuery, int](bus, countQuery{}.Key(), countHandler{})

	got, err := Ask[countQuery, int](context.Background(), bus, countQuery{Listing: "lst-1"})
	if err != nil || got != 5 {
		t.Fatalf("unexpected result %d err %v", got, err)
	}
	_, err = Ask[countQuery, string](context.Background(), bus, countQuery{})
	if !errors.Is(err, ErrResultType) || !strings.Contains(err.Error(), "test.count") {
		t.Fatalf("expected result type mismatch naming the query, got %v", err)
	}
	if _, err := Ask[countQuery, int](context.Background(), nil, countQuery{}); !errors.Is(err, ErrNilBus) {
		t.Fatalf("expected nil bus error, got %v", err)
	}
}

func TestAskUnknownQuery(t *testing.T) {
	_, err := Ask[countQuery, int](context.Background(), NewInMemoryBus(), countQuery{})
	if !errors.Is(err, ErrHandlerNotFound) || !strings.Contains(err.Error(), "test.count") {
		t.Fatalf("expected handler not found naming the key, got %v", err)
	}
}
