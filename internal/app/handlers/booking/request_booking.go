package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"reservations/internal/app/commands"
	"reservations/internal/app/engine"
	"reservations/internal/app/handlers/support"
	"reservations/internal/app/outbox"
	"reservations/internal/app/uow"
	domainbooking "reservations/internal/domain/booking"
	domainlistings "reservations/internal/domain/listings"
	domainpricing "reservations/internal/domain/pricing"
	"reservations/internal/domain/shared/fault"
)

const requestBookingKey = "booking.request"

// maxAttempts bounds the check-and-insert loop: one retry after a lost race.
const maxAttempts = 2

var ErrGuestRequired = fmt.Errorf("booking: guest id is required: %w", fault.ErrInvalidInput)

type RequestBookingCommand struct {
	CommandID       string
	ListingID       string
	GuestID         string
	Start           time.Time
	End             time.Time
	UnitType        string
	BookingPeriod   int
	PricingOptionID string
	IdempotencyKeyV string
}

func (c RequestBookingCommand) Key() string { return requestBookingKey }

func (c RequestBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c RequestBookingCommand) ResultPrototype() any { return &RequestBookingResult{} }

// ManagesOwnUnit is true: each attempt runs in a fresh unit.
func (c RequestBookingCommand) ManagesOwnUnit() bool { return true }

func (c RequestBookingCommand) Validate() error {
	if strings.TrimSpace(c.ListingID) == "" {
		return support.ErrListingIDRequired
	}
	if strings.TrimSpace(c.GuestID) == "" {
		return ErrGuestRequired
	}
	return nil
}

type RequestBookingResult struct {
	BookingID string   `json:"booking_id,omitempty"`
	Available bool     `json:"available"`
	Reason    string   `json:"reason,omitempty"`
	Conflicts []string `json:"conflicts,omitempty"`
	Total     string   `json:"total,omitempty"`
	Currency  string   `json:"currency,omitempty"`
	Attempts  int      `json:"attempts"`
}

type RequestBookingHandler struct {
	UoWFactory uow.UoWFactory
	Engine     *engine.Engine
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	AllowPast  bool
	Logger     *slog.Logger
}

var ErrUnitOfWorkRequired = errors.New("booking: unit of work required")

func (h *RequestBookingHandler) Handle(ctx context.Context, cmd RequestBookingCommand) (*RequestBookingResult, error) {
	if h.UoWFactory == nil {
		return nil, ErrUnitOfWorkRequired
	}
	bookingID := strings.TrimSpace(cmd.CommandID)
	if bookingID == "" {
		bookingID = uuid.NewString()
	}
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		res, err := h.attempt(ctx, cmd, domainbooking.BookingID(bookingID))
		if err == nil {
			res.Attempts = attempt
			return res, nil
		}
		if !fault.Retryable(err) {
			return nil, err
		}
		lastErr = err
		h.logger().WarnContext(ctx, "booking insert lost a race", "listing_id", cmd.ListingID, "booking_id", bookingID, "attempt", attempt, "error", err)
	}
	return nil, lastErr
}

// attempt runs check and insert inside one unit holding the listing lock.
func (h *RequestBookingHandler) attempt(ctx context.Context, cmd RequestBookingCommand, id domainbooking.BookingID) (*RequestBookingResult, error) {
	unit, ctx, err := support.StartUnit(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(ctx)
		}
	}()

	listingID := domainlistings.ListingID(cmd.ListingID)
	if err := unit.LockListing(ctx, listingID); err != nil {
		return nil, err
	}
	listing, err := unit.Listings().ByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	window, err := support.ResolveWindow(listing, support.WindowRequest{Start: cmd.Start, End: cmd.End, UnitType: cmd.UnitType, BookingPeriod: cmd.BookingPeriod})
	if err != nil {
		return nil, err
	}

	decision, err := h.Engine.IsBookable(ctx, unit, listing, window, engine.Options{AllowPast: h.AllowPast})
	if err != nil {
		return nil, err
	}
	if !decision.Available {
		res := &RequestBookingResult{Reason: decision.Reason}
		for _, c := range decision.Conflicts {
			res.Conflicts = append(res.Conflicts, string(c))
		}
		return res, nil
	}

	quote, err := h.Engine.Quote(ctx, unit, listing, window, domainpricing.OptionID(cmd.PricingOptionID))
	if err != nil {
		return nil, err
	}
	booking, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:              id,
		ListingID:       listing.ID,
		GuestID:         cmd.GuestID,
		Range:           window,
		PricingOptionID: quote.OptionID,
		Total:           quote.Total,
		CreatedAt:       h.Engine.Clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Bookings().Insert(ctx, booking); err != nil {
		return nil, err
	}
	if err := support.RecordEvents(ctx, h.Outbox, h.Encoder, booking); err != nil {
		return nil, err
	}
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	committed = true

	h.logger().InfoContext(ctx, "booking requested", "listing_id", listing.ID, "booking_id", booking.ID, "total", quote.Total.String())
	return &RequestBookingResult{
		BookingID: string(booking.ID),
		Available: true,
		Total:     quote.Total.String(),
		Currency:  quote.Total.Currency,
	}, nil
}

func (h *RequestBookingHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var _ commands.Handler[RequestBookingCommand, *RequestBookingResult] = (*RequestBookingHandler)(nil)
var (
	_ commands.Idempotent      = RequestBookingCommand{}
	_ commands.SelfManagedUnit = RequestBookingCommand{}
)
