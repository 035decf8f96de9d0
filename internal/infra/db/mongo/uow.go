package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"reservations/internal/app/uow"
	domainavailability "reservations/internal/domain/availability"
	domainbooking "reservations/internal/domain/booking"
	domainlistings "reservations/internal/domain/listings"
	domainpricing "reservations/internal/domain/pricing"
	"reservations/internal/domain/shared/fault"
)

const (
	colListings = "listings"
	colOptions  = "pricing_options"
	colSpecials = "special_pricing"
	colSlots    = "available_slots"
	colBlocks   = "blocked_dates"
	colDayFlags = "day_flags"
	colBookings = "bookings"
	colLocks    = "listing_locks"
)

var (
	ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")
	ErrReadOnlyUnit            = errors.New("mongo: listing lock requested on a read-only unit")
	ErrConflict                = fmt.Errorf("mongo: write conflicted with a concurrent transaction: %w", fault.ErrConcurrencyConflict)
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
// Transactions need a replica set.
type Factory struct {
	DB *mongo.Database
}

// Begin starts a MongoDB session/transaction. Readers get a snapshot.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(readconcern.Majority()).SetWriteConcern(writeconcern.Majority())
	if opts.ReadOnly {
		txnOpts = options.Transaction().SetReadConcern(readconcern.Snapshot())
	}
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{db: f.DB, session: session, readOnly: opts.ReadOnly, locked: make(map[domainlistings.ListingID]struct{})}, nil
}

func (f Factory) Ping(ctx context.Context) error {
	if f.DB == nil {
		return ErrUnitOfWorkNotConfigured
	}
	return f.DB.Client().Ping(ctx, nil)
}

type Unit struct {
	db       *mongo.Database
	session  mongo.Session
	readOnly bool

	mu     sync.Mutex
	locked map[domainlistings.ListingID]struct{}
	done   bool
}

func (u *Unit) store() store {
	return store{db: u.db, session: u.session}
}

func (u *Unit) Listings() domainlistings.Repository {
	return ListingRepository{u.store()}
}

func (u *Unit) Availability() domainavailability.Repository {
	return AvailabilityRepository{u.store()}
}

func (u *Unit) Bookings() domainbooking.Repository {
	return BookingRepository{u.store()}
}

func (u *Unit) PricingOptions() domainpricing.OptionRepository {
	return OptionRepository{u.store()}
}

func (u *Unit) SpecialPricing() domainpricing.SpecialRepository {
	return SpecialRepository{u.store()}
}

// LockListing writes the listing's lock document inside the transaction. A
// second transaction touching it fails with a write conflict.
func (u *Unit) LockListing(ctx context.Context, id domainlistings.ListingID) error {
	if u.readOnly {
		return ErrReadOnlyUnit
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.locked[id]; ok {
		return nil
	}
	ctx = mongo.NewSessionContext(ctx, u.session)
	update := bson.M{"$inc": bson.M{"seq": 1}, "$set": bson.M{"locked_at": time.Now().UTC()}}
	if _, err := u.db.Collection(colLocks).UpdateByID(ctx, string(id), update, options.Update().SetUpsert(true)); err != nil {
		return translate(err)
	}
	u.locked[id] = struct{}{}
	return nil
}

func (u *Unit) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return nil
	}
	u.done = true
	defer u.session.EndSession(ctx)
	return translate(u.session.CommitTransaction(ctx))
}

// Rollback is a no-op after Commit.
func (u *Unit) Rollback(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return nil
	}
	u.done = true
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorLabel("TransientTransactionError") {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

var _ uow.UoWFactory = Factory{}
