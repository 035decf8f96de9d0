package postgres

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"

	"reservations/internal/app/uow"
	domainavailability "reservations/internal/domain/availability"
	domainbooking "reservations/internal/domain/booking"
	domainlistings "reservations/internal/domain/listings"
	domainpricing "reservations/internal/domain/pricing"
)

var (
	ErrFactoryNotConfigured = errors.New("postgres: unit of work factory missing pool")
	ErrReadOnlyUnit         = errors.New("postgres: listing lock requested on a read-only unit")
)

// Factory starts transactions on the pool. Writers run READ COMMITTED and
// serialize per listing through an advisory lock; readers get a repeatable
// read snapshot so one decision sees one state.
type Factory struct {
	Pool *Pool
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Pool == nil || f.Pool.Pool == nil {
		return nil, ErrFactoryNotConfigured
	}
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	if opts.ReadOnly {
		txOpts = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	}
	tx, err := f.Pool.BeginTx(ctx, txOpts)
	if err != nil {
		return nil, err
	}
	return &Unit{tx: tx, readOnly: opts.ReadOnly, locked: make(map[domainlistings.ListingID]struct{})}, nil
}

func (f Factory) Ping(ctx context.Context) error {
	if f.Pool == nil {
		return ErrFactoryNotConfigured
	}
	return f.Pool.Ping(ctx)
}

// Unit is one pgx transaction.
type Unit struct {
	tx       pgx.Tx
	readOnly bool

	mu     sync.Mutex
	locked map[domainlistings.ListingID]struct{}
}

func (u *Unit) Listings() domainlistings.Repository {
	return ListingRepository{q: u.tx}
}

func (u *Unit) Availability() domainavailability.Repository {
	return AvailabilityRepository{q: u.tx}
}

func (u *Unit) Bookings() domainbooking.Repository {
	return BookingRepository{q: u.tx}
}

func (u *Unit) PricingOptions() domainpricing.OptionRepository {
	return OptionRepository{q: u.tx}
}

func (u *Unit) SpecialPricing() domainpricing.SpecialRepository {
	return SpecialRepository{q: u.tx}
}

// LockListing takes a transaction scoped advisory lock keyed by the listing id.
func (u *Unit) LockListing(ctx context.Context, id domainlistings.ListingID) error {
	if u.readOnly {
		return ErrReadOnlyUnit
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.locked[id]; ok {
		return nil
	}
	if _, err := u.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, string(id)); err != nil {
		return translate(err)
	}
	u.locked[id] = struct{}{}
	return nil
}

func (u *Unit) Commit(ctx context.Context) error {
	return translate(u.tx.Commit(ctx))
}

// Rollback is a no-op once the transaction has been committed.
func (u *Unit) Rollback(ctx context.Context) error {
	err := u.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

var _ uow.UoWFactory = Factory{}
