// Package commands routes write intents to their handlers. Optional
// capabilities (Idempotent, SelfManagedUnit) are read by the middleware chain.
package commands

import (
	"context"
	"errors"
	"fmt"
)

// Command is a write intent; Key names the handler it is routed to.
type Command interface {
	Key() string
}

// Idempotent commands carry a client key. A repeated key replays the outcome
// stored for the first dispatch.
type Idempotent interface {
	Command
	IdempotencyKey() string
	// ResultPrototype is a zero value of the handler's result type, used to
	// decode a stored result.
	ResultPrototype() any
}

// SelfManagedUnit commands open their own units of work, for example to run
// the check-and-insert again after losing a race.
type SelfManagedUnit interface {
	Command
	ManagesOwnUnit() bool
}

type Handler[C Command, R any] interface {
	Handle(ctx context.Context, cmd C) (R, error)
}

// HandlerFunc adapts a method value such as h.AddSlot to Handler.
type HandlerFunc[C Command, R any] func(ctx context.Context, cmd C) (R, error)

func (f HandlerFunc[C, R]) Handle(ctx context.Context, cmd C) (R, error) {
	return f(ctx, cmd)
}

// Bus is the untyped dispatch surface middleware wraps.
type Bus interface {
	Dispatch(ctx context.Context, cmd Command) (any, error)
}

var (
	ErrHandlerNotFound = errors.New("commands: handler not found")
	ErrInvalidCommand  = errors.New("commands: invalid command for handler")
	ErrResultType      = errors.New("commands: result type mismatch")
	ErrNilBus          = errors.New("commands: nil bus")
)

// Dispatch sends cmd through bus and asserts the result type. A nil result,
// as returned by handlers of commands with no payload, yields the zero R.
func Dispatch[C Command, R any](ctx context.Context, bus Bus, cmd C) (R, error) {
	var zero R
	if bus == nil {
		return zero, ErrNilBus
	}
	res, err := bus.Dispatch(ctx, cmd)
	if err != nil || res == nil {
		return zero, err
	}
	value, ok := res.(R)
	if !ok {
		return zero, fmt.Errorf("%w: %s returned %T", ErrResultType, cmd.Key(), res)
	}
	return value, nil
}
