package booking

import (
	"context"
	"strings"
	"time"

	"reservations/internal/app/commands"
	"reservations/internal/app/dto"
	"reservations/internal/app/handlers/support"
	"reservations/internal/app/outbox"
	"reservations/internal/app/uow"
	domainbooking "reservations/internal/domain/booking"
	"reservations/internal/domain/shared/clock"
)

const (
	confirmBookingKey  = "booking.confirm"
	cancelBookingKey   = "booking.cancel"
	completeBookingKey = "booking.complete"
)

type Transition string

const (
	TransitionConfirm  Transition = "confirm"
	TransitionCancel   Transition = "cancel"
	TransitionComplete Transition = "complete"
)

// TransitionBookingCommand moves a booking through its lifecycle.
type TransitionBookingCommand struct {
	BookingID  string
	Transition Transition
	Reason     string
}

func (c TransitionBookingCommand) Key() string {
	switch c.Transition {
	case TransitionConfirm:
		return confirmBookingKey
	case TransitionCancel:
		return cancelBookingKey
	default:
		return completeBookingKey
	}
}

func (c TransitionBookingCommand) Validate() error {
	if strings.TrimSpace(c.BookingID) == "" {
		return domainbooking.ErrBookingNotFound
	}
	switch c.Transition {
	case TransitionConfirm, TransitionCancel, TransitionComplete:
		return nil
	}
	return domainbooking.ErrInvalidState
}

type TransitionBookingHandler struct {
	Clock   clock.Clock
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
}

func (h *TransitionBookingHandler) Handle(ctx context.Context, cmd TransitionBookingCommand) (*dto.Booking, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	booking, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	now := h.now()
	switch cmd.Transition {
	case TransitionConfirm:
		err = booking.Confirm(now)
	case TransitionCancel:
		err = booking.Cancel(cmd.Reason, now)
	case TransitionComplete:
		err = booking.Complete(now)
	default:
		err = domainbooking.ErrInvalidState
	}
	if err != nil {
		return nil, err
	}
	if err := unit.Bookings().Update(ctx, booking); err != nil {
		return nil, err
	}
	if err := support.RecordEvents(ctx, h.Outbox, h.Encoder, booking); err != nil {
		return nil, err
	}
	out := dto.MapBooking(booking)
	return &out, nil
}

func (h *TransitionBookingHandler) now() time.Time {
	if h.Clock == nil {
		return time.Now().UTC()
	}
	return h.Clock.Now()
}

var _ commands.Handler[TransitionBookingCommand, *dto.Booking] = (*TransitionBookingHandler)(nil)
