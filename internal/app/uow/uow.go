package uow

import (
	"context"
	"errors"

	domainavailability "reservations/internal/domain/availability"
	domainbooking "reservations/internal/domain/booking"
	domainlistings "reservations/internal/domain/listings"
	domainpricing "reservations/internal/domain/pricing"
)

// Stores are the repositories the engine reads through.
type Stores interface {
	Listings() domainlistings.Repository
	Availability() domainavailability.Repository
	Bookings() domainbooking.Repository
	PricingOptions() domainpricing.OptionRepository
	SpecialPricing() domainpricing.SpecialRepository
}

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Stores

	// LockListing serializes writers of one listing until Commit or Rollback.
	LockListing(ctx context.Context, id domainlistings.ListingID) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}

var ErrUnitOfWorkMissing = errors.New("uow: unit of work missing from context")

// SessionBinder is implemented by units whose repositories find their store
// session in the context rather than on the unit.
type SessionBinder interface {
	InjectContext(ctx context.Context) context.Context
}

type unitKey struct{}

// Bind returns ctx carrying unit and, when unit is a SessionBinder, its
// store session. Handlers further down find the unit with FromContext.
func Bind(ctx context.Context, unit UnitOfWork) context.Context {
	if binder, ok := unit.(SessionBinder); ok {
		ctx = binder.InjectContext(ctx)
	}
	return ContextWithUnitOfWork(ctx, unit)
}

// ContextWithUnitOfWork stores unit without binding any store session.
func ContextWithUnitOfWork(ctx context.Context, unit UnitOfWork) context.Context {
	return context.WithValue(ctx, unitKey{}, unit)
}

func FromContext(ctx context.Context) (UnitOfWork, bool) {
	unit, ok := ctx.Value(unitKey{}).(UnitOfWork)
	return unit, ok && unit != nil
}
