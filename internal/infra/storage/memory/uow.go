package memory

import (
	"context"
	"errors"
	"sync"

	"reservations/internal/app/uow"
	domainavailability "reservations/internal/domain/availability"
	domainbooking "reservations/internal/domain/booking"
	domainlistings "reservations/internal/domain/listings"
	domainpricing "reservations/internal/domain/pricing"
)

// Factory wires in-memory repositories into a unit-of-work boundary.
type Factory struct {
	ListingsRepo     *ListingRepository
	PricingRepo      *PricingRepository
	AvailabilityRepo *AvailabilityRepository
	BookingRepo      *BookingRepository
	Locks            *KeyedMutex
}

// ErrFactoryMisconfigured indicates missing repositories.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

func NewFactory() Factory {
	return Factory{
		ListingsRepo:     NewListingRepository(),
		PricingRepo:      NewPricingRepository(),
		AvailabilityRepo: NewAvailabilityRepository(),
		BookingRepo:      NewBookingRepository(),
		Locks:            NewKeyedMutex(),
	}
}

// Begin starts a unit. Writes are applied immediately and journaled, so
// Rollback restores what the unit changed. Readers outside the unit see the
// writes before Commit; the per-listing lock is the only isolation.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.ListingsRepo == nil || f.PricingRepo == nil || f.AvailabilityRepo == nil || f.BookingRepo == nil || f.Locks == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{factory: f, readOnly: opts.ReadOnly, held: make(map[domainlistings.ListingID]struct{}), journal: &journal{}}, nil
}

// Ping satisfies readiness checks.
func (f Factory) Ping(context.Context) error {
	if f.ListingsRepo == nil {
		return ErrFactoryMisconfigured
	}
	return nil
}

// Unit is a uow.UnitOfWork backed by in-memory stores.
type Unit struct {
	factory  Factory
	readOnly bool

	mu      sync.Mutex
	held    map[domainlistings.ListingID]struct{}
	journal *journal
	done    bool
}

var ErrReadOnlyUnit = errors.New("memory: listing lock requested on a read-only unit")

func (u *Unit) Listings() domainlistings.Repository {
	return journaledListings{ListingRepository: u.factory.ListingsRepo, j: u.journal}
}

func (u *Unit) Availability() domainavailability.Repository {
	return journaledAvailability{AvailabilityRepository: u.factory.AvailabilityRepo, j: u.journal}
}

func (u *Unit) Bookings() domainbooking.Repository {
	return journaledBookings{BookingRepository: u.factory.BookingRepo, j: u.journal}
}

func (u *Unit) PricingOptions() domainpricing.OptionRepository {
	return journaledOptions{PricingRepository: u.factory.PricingRepo, j: u.journal}
}

func (u *Unit) SpecialPricing() domainpricing.SpecialRepository {
	return journaledSpecials{specialRepository: specialRepository{u.factory.PricingRepo}, j: u.journal}
}

func (u *Unit) LockListing(ctx context.Context, id domainlistings.ListingID) error {
	if u.readOnly {
		return ErrReadOnlyUnit
	}
	u.mu.Lock()
	if _, ok := u.held[id]; ok {
		u.mu.Unlock()
		return nil
	}
	u.mu.Unlock()
	if err := u.factory.Locks.Acquire(ctx, string(id)); err != nil {
		return err
	}
	u.mu.Lock()
	u.held[id] = struct{}{}
	u.mu.Unlock()
	return nil
}

func (u *Unit) Commit(ctx context.Context) error {
	u.finish(false)
	return nil
}

// Rollback undoes the unit's writes and releases the held locks. It is a
// no-op after Commit.
func (u *Unit) Rollback(ctx context.Context) error {
	u.finish(true)
	return nil
}

func (u *Unit) finish(undo bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return
	}
	u.done = true
	if undo {
		u.journal.unwind()
	} else {
		u.journal.discard()
	}
	for id := range u.held {
		u.factory.Locks.Release(string(id))
	}
	u.held = nil
}

var _ uow.UoWFactory = Factory{}
