package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"reservations/internal/app/commands"
	"reservations/internal/app/dto"
	"reservations/internal/app/engine"
	availabilityapp "reservations/internal/app/handlers/availability"
	bookingapp "reservations/internal/app/handlers/booking"
	listingapp "reservations/internal/app/handlers/listings"
	pricingapp "reservations/internal/app/handlers/pricing"
	"reservations/internal/app/middleware"
	appoutbox "reservations/internal/app/outbox"
	"reservations/internal/app/queries"
	"reservations/internal/app/uow"
	"reservations/internal/domain/shared/clock"
	"reservations/internal/infra/broker/kafka"
	"reservations/internal/infra/config"
	"reservations/internal/infra/db/mongo"
	"reservations/internal/infra/db/postgres"
	ginserver "reservations/internal/infra/http/gin"
	infraoutbox "reservations/internal/infra/outbox"
	"reservations/internal/infra/storage/memory"
)

const listingEventsTopic = "listing.events.v1"

type outboxStore interface {
	appoutbox.Outbox
	appoutbox.Queue
}

// storage is one backend's implementation of every store the engine uses.
type storage struct {
	factory     uow.UoWFactory
	outbox      outboxStore
	idempotency middleware.IdempotencyStore
	inbox       kafka.Inbox
	ready       func(context.Context) error
	close       func(context.Context) error
}

type application struct {
	cfg      config.Config
	storage  storage
	commands commands.Bus
	queries  queries.Bus
	handlers ginserver.Handlers
	redis    *redis.Client
	closers  []func() error
}

func openStorage(ctx context.Context, cfg config.Config) (storage, error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		pool, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return storage{}, fmt.Errorf("postgres: %w", err)
		}
		if err := pool.Migrate(ctx); err != nil {
			pool.Close()
			return storage{}, fmt.Errorf("postgres migrate: %w", err)
		}
		return storage{
			factory:     postgres.Factory{Pool: pool},
			outbox:      postgres.OutboxStore{Pool: pool},
			idempotency: postgres.IdempotencyStore{Pool: pool},
			inbox:       postgres.Inbox{Pool: pool, Consumer: cfg.KafkaGroupID},
			ready:       pool.Ping,
			close:       func(context.Context) error { pool.Close(); return nil },
		}, nil
	case config.DriverMongo:
		client, err := mongo.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return storage{}, fmt.Errorf("mongo: %w", err)
		}
		if err := client.EnsureIndexes(ctx); err != nil {
			return storage{}, fmt.Errorf("mongo indexes: %w", err)
		}
		box, err := mongo.NewOutboxStore(ctx, client.DB)
		if err != nil {
			return storage{}, err
		}
		idem, err := mongo.NewIdempotencyStore(ctx, client.DB, cfg.IdempotencyTTL)
		if err != nil {
			return storage{}, err
		}
		inbox, err := mongo.NewInboxStore(ctx, client.DB, cfg.KafkaGroupID)
		if err != nil {
			return storage{}, err
		}
		return storage{
			factory:     mongo.Factory{DB: client.DB},
			outbox:      box,
			idempotency: idem,
			inbox:       inbox,
			ready:       client.Ping,
			close:       client.Close,
		}, nil
	default:
		factory := memory.NewFactory()
		return storage{
			factory:     factory,
			outbox:      memory.NewOutbox(),
			idempotency: memory.NewIdempotencyStore(),
			inbox:       memory.NewInbox(),
			ready:       factory.Ping,
			close:       func(context.Context) error { return nil },
		}, nil
	}
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	st, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app := &application{cfg: cfg, storage: st}

	clk := clock.System{}
	eng := engine.New(clk, logger)
	allowPast := !cfg.EnforceFutureOnly
	box := st.outbox

	commandBus := commands.NewInMemoryBus()
	revalidate := &bookingapp.RevalidatePendingBookingsHandler{Engine: eng, Outbox: box, Logger: logger}
	commands.RegisterHandler[bookingapp.RequestBookingCommand, *bookingapp.RequestBookingResult](commandBus, bookingapp.RequestBookingCommand{}.Key(),
		&bookingapp.RequestBookingHandler{UoWFactory: st.factory, Engine: eng, Outbox: box, AllowPast: allowPast, Logger: logger})
	transition := &bookingapp.TransitionBookingHandler{Clock: clk, Outbox: box}
	for _, tr := range []bookingapp.Transition{bookingapp.TransitionConfirm, bookingapp.TransitionCancel, bookingapp.TransitionComplete} {
		commands.RegisterHandler[bookingapp.TransitionBookingCommand, *dto.Booking](commandBus, bookingapp.TransitionBookingCommand{Transition: tr}.Key(), transition)
	}
	commands.RegisterHandler[bookingapp.RescheduleBookingCommand, *bookingapp.RescheduleBookingResult](commandBus, bookingapp.RescheduleBookingCommand{}.Key(),
		&bookingapp.RescheduleBookingHandler{Engine: eng, Outbox: box, AllowPast: allowPast})
	commands.RegisterHandler[bookingapp.RevalidatePendingBookingsCommand, *bookingapp.RevalidatePendingBookingsResult](commandBus, bookingapp.RevalidatePendingBookingsCommand{}.Key(), revalidate)

	commands.RegisterHandler[listingapp.CreateListingCommand, *dto.Listing](commandBus, listingapp.CreateListingCommand{}.Key(),
		&listingapp.CreateListingHandler{Clock: clk, Outbox: box, Logger: logger})
	commands.RegisterHandler[listingapp.UpdateListingCommand, *listingapp.UpdateListingResult](commandBus, listingapp.UpdateListingCommand{}.Key(),
		&listingapp.UpdateListingHandler{Clock: clk, Outbox: box, Revalidate: revalidate, Logger: logger})
	commands.RegisterHandler[listingapp.AddPricingOptionCommand, *dto.PricingOption](commandBus, listingapp.AddPricingOptionCommand{}.Key(),
		&listingapp.AddPricingOptionHandler{Clock: clk, Logger: logger})
	commands.RegisterHandler[listingapp.UpsertSpecialPricingCommand, *dto.SpecialPricing](commandBus, listingapp.UpsertSpecialPricingCommand{}.Key(),
		&listingapp.UpsertSpecialPricingHandler{Clock: clk, Logger: logger})
	(&listingapp.AvailabilityHandlers{Clock: clk, Outbox: box}).Register(commandBus)

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler[availabilityapp.CheckAvailabilityQuery, dto.Availability](queryBus, availabilityapp.CheckAvailabilityQuery{}.Key(),
		&availabilityapp.CheckAvailabilityHandler{UoWFactory: st.factory, Engine: eng, AllowPast: allowPast, Logger: logger})
	queries.RegisterHandler[availabilityapp.ListConflictsQuery, dto.ConflictReport](queryBus, availabilityapp.ListConflictsQuery{}.Key(),
		&availabilityapp.ListConflictsHandler{UoWFactory: st.factory})
	queries.RegisterHandler[pricingapp.EffectivePriceQuery, dto.EffectivePrice](queryBus, pricingapp.EffectivePriceQuery{}.Key(),
		&pricingapp.EffectivePriceHandler{UoWFactory: st.factory, Engine: eng})
	queries.RegisterHandler[pricingapp.QuoteQuery, dto.Quote](queryBus, pricingapp.QuoteQuery{}.Key(),
		&pricingapp.QuoteHandler{UoWFactory: st.factory, Engine: eng})
	queries.RegisterHandler[bookingapp.GetBookingQuery, dto.Booking](queryBus, bookingapp.GetBookingQuery{}.Key(),
		&bookingapp.GetBookingHandler{UoWFactory: st.factory})
	queries.RegisterHandler[bookingapp.ListListingBookingsQuery, dto.BookingCollection](queryBus, bookingapp.ListListingBookingsQuery{}.Key(),
		&bookingapp.ListListingBookingsHandler{UoWFactory: st.factory})
	queries.RegisterHandler[bookingapp.ListGuestBookingsQuery, dto.GuestBookingCollection](queryBus, bookingapp.ListGuestBookingsQuery{}.Key(),
		&bookingapp.ListGuestBookingsHandler{UoWFactory: st.factory, Clock: clk, Logger: logger})
	queries.RegisterHandler[listingapp.GetListingQuery, listingapp.ListingDetail](queryBus, listingapp.GetListingQuery{}.Key(),
		&listingapp.GetListingHandler{UoWFactory: st.factory})

	app.commands = middleware.ChainCommands(
		commandBus,
		middleware.Logging(logger),
		middleware.Validation(),
		middleware.Idempotency(st.idempotency, nil),
		middleware.Transaction(st.factory, nil),
		middleware.OutboxFlush(box),
	)
	app.queries = middleware.ChainQueries(queryBus, middleware.QueryLogging(logger), middleware.QueryValidation())

	app.handlers = ginserver.Handlers{
		Booking:      ginserver.BookingHandler{Commands: app.commands, Queries: app.queries, Logger: logger},
		HostBooking:  ginserver.HostBookingHandler{Commands: app.commands, Logger: logger},
		Availability: ginserver.AvailabilityHandler{Queries: app.queries, Logger: logger},
		Listing:      ginserver.ListingHandler{Queries: app.queries, Logger: logger},
		HostListing:  ginserver.HostListingHandler{Commands: app.commands, Logger: logger},
	}
	if cfg.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		app.handlers.RateLimit = ginserver.RateLimiter{
			Counter:  ginserver.RedisCounter{Client: app.redis},
			Limit:    cfg.RateLimitPerMinute,
			Window:   time.Minute,
			Prefix:   "reservations:ratelimit",
			FailOpen: cfg.RateLimitFailOpen,
			Logger:   logger,
		}.Middleware()
	}
	return app, nil
}

// startBackground runs the outbox relay and the listing events consumer when
// Kafka is configured. Without brokers the outbox only accumulates.
func (a *application) startBackground(ctx context.Context, logger *slog.Logger) {
	if purger, ok := a.storage.idempotency.(interface {
		Purge(ctx context.Context, before time.Time) (int64, error)
	}); ok {
		go a.purgeIdempotency(ctx, purger.Purge, logger)
	}
	if len(a.cfg.KafkaBrokers) == 0 {
		logger.Info("kafka disabled, outbox relay not started")
		return
	}

	producer, err := kafka.NewProducer(a.cfg.KafkaBrokers, nil)
	if err != nil {
		logger.Error("kafka producer unavailable", "error", err)
		return
	}
	a.closers = append(a.closers, producer.Close)
	hostname, _ := os.Hostname()
	worker := &infraoutbox.Worker{
		Queue:       a.storage.outbox,
		Producer:    producer,
		Interval:    a.cfg.OutboxPollInterval,
		TopicPrefix: a.cfg.KafkaTopicPrefix,
		ID:          hostname,
		Backoff:     a.cfg.RetryBackoff,
		Clock:       clock.System{},
		Logger:      logger,
	}
	go func() {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("outbox worker stopped", "error", err)
		}
	}()

	consumer, err := kafka.NewConsumer(a.cfg.KafkaBrokers, a.cfg.KafkaGroupID, nil, kafka.ListingEventsHandler{
		Commands: a.commands,
		Inbox:    a.storage.inbox,
		Logger:   logger,
	}, logger)
	if err != nil {
		logger.Error("kafka consumer unavailable", "error", err)
		return
	}
	a.closers = append(a.closers, consumer.Close)
	go func() {
		topic := a.cfg.KafkaTopicPrefix + listingEventsTopic
		if err := consumer.Run(ctx, []string{topic}); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("listing events consumer stopped", "error", err, "topic", topic)
		}
	}()
}

func (a *application) purgeIdempotency(ctx context.Context, purge func(context.Context, time.Time) (int64, error), logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := purge(ctx, time.Now().UTC().Add(-a.cfg.IdempotencyTTL))
			if err != nil {
				logger.Warn("idempotency purge failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug("idempotency records purged", "count", n)
			}
		}
	}
}

func (a *application) close(ctx context.Context, logger *slog.Logger) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.storage.close != nil {
		if err := a.storage.close(ctx); err != nil {
			logger.Warn("storage close failed", "error", err)
		}
	}
}
