// Package engine decides whether a window can be booked and what it costs.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"reservations/internal/app/uow"
	domainavailability "reservations/internal/domain/availability"
	domainbooking "reservations/internal/domain/booking"
	domainlistings "reservations/internal/domain/listings"
	domainpricing "reservations/internal/domain/pricing"
	"reservations/internal/domain/shared/calendar"
	"reservations/internal/domain/shared/clock"
	"reservations/internal/domain/shared/daterange"
)

const ReasonConflict = "booking_conflict"

// Options tune one availability evaluation.
type Options struct {
	// AllowPast skips the start-after-now check for back-office callers.
	AllowPast        bool
	ExcludeBookingID domainbooking.BookingID
}

// Decision is the outcome of IsBookable. A rejection is a value, not an error.
type Decision struct {
	Available bool
	Reason    string
	Source    string
	Conflicts []domainbooking.BookingID
}

type Engine struct {
	Clock  clock.Clock
	Logger *slog.Logger
	tracer trace.Tracer
}

func New(c clock.Clock, logger *slog.Logger) *Engine {
	if c == nil {
		c = clock.System{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{Clock: c, Logger: logger, tracer: otel.Tracer("reservations/engine")}
}

func (e *Engine) start(ctx context.Context, name string, listing domainlistings.ListingID) (context.Context, trace.Span) {
	tracer := e.tracer
	if tracer == nil {
		tracer = otel.Tracer("reservations/engine")
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attribute.String("listing.id", string(listing))))
}

// IsBookable validates the window, applies the listing's availability policy
// and then looks for conflicting bookings.
func (e *Engine) IsBookable(ctx context.Context, stores uow.Stores, listing *domainlistings.Listing, window daterange.DateRange, opts Options) (Decision, error) {
	ctx, span := e.start(ctx, "engine.IsBookable", listing.ID)
	defer span.End()

	if err := domainbooking.ValidateWindow(window, e.Clock.Now().UTC(), opts.AllowPast); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Decision{}, err
	}

	source, err := domainavailability.NewSourceSelector(stores.Availability()).For(ctx, listing)
	if err != nil {
		span.RecordError(err)
		return Decision{}, err
	}
	verdict, err := source.Evaluate(ctx, listing, window)
	if err != nil {
		span.RecordError(err)
		return Decision{}, err
	}
	if !verdict.Available {
		span.SetAttributes(attribute.Bool("decision.available", false), attribute.String("decision.reason", string(verdict.Reason)))
		e.Logger.DebugContext(ctx, "window rejected by policy", "listing_id", listing.ID, "source", source.Name(), "reason", verdict.Reason)
		return Decision{Reason: string(verdict.Reason), Source: source.Name()}, nil
	}

	conflicts, err := domainbooking.NewConflictDetector(stores.Bookings()).Conflicts(ctx, listing.ID, window, opts.ExcludeBookingID)
	if err != nil {
		span.RecordError(err)
		return Decision{}, err
	}
	if len(conflicts) > 0 {
		ids := make([]domainbooking.BookingID, 0, len(conflicts))
		for _, b := range conflicts {
			ids = append(ids, b.ID)
		}
		span.SetAttributes(attribute.Bool("decision.available", false), attribute.Int("decision.conflicts", len(ids)))
		e.Logger.DebugContext(ctx, "window conflicts with bookings", "listing_id", listing.ID, "conflicts", len(ids))
		return Decision{Reason: ReasonConflict, Source: source.Name(), Conflicts: ids}, nil
	}
	span.SetAttributes(attribute.Bool("decision.available", true))
	return Decision{Available: true, Source: source.Name()}, nil
}

// EffectivePrice resolves the per-unit price of one date. An empty option id
// picks the listing's default option, since a single date asks for no duration.
func (e *Engine) EffectivePrice(ctx context.Context, stores uow.Stores, listing *domainlistings.Listing, date calendar.Date, optionID domainpricing.OptionID) (domainpricing.EffectivePrice, error) {
	ctx, span := e.start(ctx, "engine.EffectivePrice", listing.ID)
	defer span.End()

	option, err := e.option(ctx, stores, listing, optionID, 0)
	if err != nil {
		span.RecordError(err)
		return domainpricing.EffectivePrice{}, err
	}
	price, err := domainpricing.NewResolver(stores.SpecialPricing()).EffectivePrice(ctx, listing.ID, date, option)
	if err != nil {
		span.RecordError(err)
		return domainpricing.EffectivePrice{}, err
	}
	span.SetAttributes(attribute.String("price.source", string(price.Source)))
	return price, nil
}

// Quote prices every unit of the window independently and sums them. An empty
// option id selects the option whose duration equals the window's unit count,
// falling back to the default option.
func (e *Engine) Quote(ctx context.Context, stores uow.Stores, listing *domainlistings.Listing, window daterange.DateRange, optionID domainpricing.OptionID) (domainpricing.Quote, error) {
	ctx, span := e.start(ctx, "engine.Quote", listing.ID)
	defer span.End()

	if err := window.Validate(); err != nil {
		return domainpricing.Quote{}, err
	}
	starts := domainpricing.UnitStarts(window, listing.UnitType)
	option, err := e.option(ctx, stores, listing, optionID, len(starts))
	if err != nil {
		span.RecordError(err)
		return domainpricing.Quote{}, err
	}
	if err := domainpricing.EnsureMinimumUnits(option, len(starts)); err != nil {
		return domainpricing.Quote{}, err
	}

	resolver := domainpricing.NewResolver(stores.SpecialPricing())
	quote := domainpricing.Quote{ListingID: listing.ID, OptionID: option.ID, Window: window}
	for _, start := range starts {
		date := calendar.DateOf(start)
		price, err := resolver.EffectivePrice(ctx, listing.ID, date, option)
		if err != nil {
			span.RecordError(err)
			return domainpricing.Quote{}, err
		}
		quote.Lines = append(quote.Lines, domainpricing.UnitPrice{
			Start:  start,
			Date:   date,
			Price:  price.Price,
			Source: price.Source,
			Reason: price.Reason,
		})
	}
	if err := quote.RecalculateTotal(); err != nil {
		return domainpricing.Quote{}, fmt.Errorf("engine: total quote: %w", err)
	}
	span.SetAttributes(attribute.Int("quote.units", quote.Units), attribute.Int64("quote.total_minor", quote.Total.Amount))
	return quote, nil
}

// option returns the option named by id, or the one resolved for units of the
// listing's unit type when id is empty.
func (e *Engine) option(ctx context.Context, stores uow.Stores, listing *domainlistings.Listing, id domainpricing.OptionID, units int) (domainpricing.PricingOption, error) {
	options, err := stores.PricingOptions().ListByListing(ctx, listing.ID)
	if err != nil {
		return domainpricing.PricingOption{}, fmt.Errorf("engine: load pricing options: %w", err)
	}
	if strings.TrimSpace(string(id)) == "" {
		return domainpricing.ResolveOption(options, listing.UnitType, units)
	}
	return domainpricing.OptionByID(options, id)
}
