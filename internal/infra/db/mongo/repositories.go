package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainavailability "reservations/internal/domain/availability"
	domainbooking "reservations/internal/domain/booking"
	domainlistings "reservations/internal/domain/listings"
	domainpricing "reservations/internal/domain/pricing"
	"reservations/internal/domain/shared/calendar"
	"reservations/internal/domain/shared/daterange"
	"reservations/internal/domain/shared/money"
)

// store binds repository calls to the unit's session.
type store struct {
	db      *mongo.Database
	session mongo.Session
}

func (s store) bind(ctx context.Context) context.Context {
	if s.session == nil {
		return ctx
	}
	return mongo.NewSessionContext(ctx, s.session)
}

func (s store) col(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func upsert() *options.ReplaceOptions {
	return options.Replace().SetUpsert(true)
}

// overlapFilter matches half-open [start, end) documents intersecting window.
func overlapFilter(listing domainlistings.ListingID, window daterange.DateRange) bson.M {
	return bson.M{
		"listing_id": string(listing),
		"start":      bson.M{"$lt": window.End},
		"end":        bson.M{"$gt": window.Start},
	}
}

type ListingRepository struct{ store }

type listingDocument struct {
	ID               string    `bson:"_id"`
	Host             string    `bson:"host_id"`
	Title            string    `bson:"title"`
	UnitType         string    `bson:"unit_type"`
	AvailabilityMode string    `bson:"availability_mode"`
	Currency         string    `bson:"currency"`
	Version          int64     `bson:"version"`
	CreatedAt        time.Time `bson:"created_at"`
	UpdatedAt        time.Time `bson:"updated_at"`
}

func (r ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var doc listingDocument
	if err := r.col(colListings).FindOne(r.bind(ctx), bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainlistings.ErrListingNotFound
		}
		return nil, err
	}
	return &domainlistings.Listing{
		ID:               domainlistings.ListingID(doc.ID),
		Host:             domainlistings.HostID(doc.Host),
		Title:            doc.Title,
		UnitType:         domainlistings.UnitType(doc.UnitType),
		AvailabilityMode: domainlistings.AvailabilityMode(doc.AvailabilityMode),
		Currency:         doc.Currency,
		Version:          doc.Version,
		CreatedAt:        doc.CreatedAt.UTC(),
		UpdatedAt:        doc.UpdatedAt.UTC(),
	}, nil
}

func (r ListingRepository) Save(ctx context.Context, l *domainlistings.Listing) error {
	doc := listingDocument{
		ID:               string(l.ID),
		Host:             string(l.Host),
		Title:            l.Title,
		UnitType:         string(l.UnitType),
		AvailabilityMode: string(l.AvailabilityMode),
		Currency:         l.Currency,
		Version:          l.Version,
		CreatedAt:        l.CreatedAt,
		UpdatedAt:        l.UpdatedAt,
	}
	_, err := r.col(colListings).ReplaceOne(r.bind(ctx), bson.M{"_id": doc.ID}, doc, upsert())
	return translate(err)
}

type OptionRepository struct{ store }

type optionDocument struct {
	ID           string    `bson:"_id"`
	ListingID    string    `bson:"listing_id"`
	UnitType     string    `bson:"unit_type"`
	Duration     int       `bson:"duration"`
	PriceMinor   int64     `bson:"price_minor"`
	Currency     string    `bson:"currency"`
	MinimumUnits int       `bson:"minimum_units"`
	IsDefault    bool      `bson:"is_default"`
	CreatedAt    time.Time `bson:"created_at"`
}

func (r OptionRepository) ListByListing(ctx context.Context, id domainlistings.ListingID) ([]domainpricing.PricingOption, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col(colOptions).Find(r.bind(ctx), bson.M{"listing_id": string(id)}, opts)
	if err != nil {
		return nil, err
	}
	var docs []optionDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domainpricing.PricingOption, 0, len(docs))
	for _, d := range docs {
		out = append(out, domainpricing.PricingOption{
			ID:           domainpricing.OptionID(d.ID),
			ListingID:    domainlistings.ListingID(d.ListingID),
			UnitType:     domainlistings.UnitType(d.UnitType),
			Duration:     d.Duration,
			Price:        money.Money{Amount: d.PriceMinor, Currency: d.Currency},
			MinimumUnits: d.MinimumUnits,
			IsDefault:    d.IsDefault,
			CreatedAt:    d.CreatedAt.UTC(),
		})
	}
	return out, nil
}

func (r OptionRepository) Save(ctx context.Context, o *domainpricing.PricingOption) error {
	doc := optionDocument{
		ID:           string(o.ID),
		ListingID:    string(o.ListingID),
		UnitType:     string(o.UnitType),
		Duration:     o.Duration,
		PriceMinor:   o.Price.Amount,
		Currency:     o.Price.Currency,
		MinimumUnits: o.MinimumUnits,
		IsDefault:    o.IsDefault,
		CreatedAt:    o.CreatedAt,
	}
	_, err := r.col(colOptions).ReplaceOne(r.bind(ctx), bson.M{"_id": doc.ID}, doc, upsert())
	return translate(err)
}

type SpecialRepository struct{ store }

// Dates are stored as YYYY-MM-DD strings so they compare in calendar order.
type specialDocument struct {
	ID         string    `bson:"_id"`
	ListingID  string    `bson:"listing_id"`
	OptionID   string    `bson:"option_id"`
	Kind       string    `bson:"kind"`
	Date       string    `bson:"date,omitempty"`
	Weekday    int       `bson:"weekday"`
	ValidFrom  string    `bson:"valid_from,omitempty"`
	ValidUntil string    `bson:"valid_until,omitempty"`
	PriceMinor int64     `bson:"price_minor"`
	Currency   string    `bson:"currency"`
	Reason     string    `bson:"reason"`
	CreatedAt  time.Time `bson:"created_at"`
}

func (r SpecialRepository) SpecificFor(ctx context.Context, id domainlistings.ListingID, date calendar.Date, option domainpricing.OptionID) (*domainpricing.SpecialPricing, error) {
	filter := bson.M{"listing_id": string(id), "option_id": string(option), "kind": string(domainpricing.SpecialSpecific), "date": date.String()}
	items, err := r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(1))
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domainpricing.ErrSpecialNotFound
	}
	return &items[0], nil
}

func (r SpecialRepository) RecurringFor(ctx context.Context, id domainlistings.ListingID, weekday calendar.Weekday, option domainpricing.OptionID) ([]domainpricing.SpecialPricing, error) {
	filter := bson.M{"listing_id": string(id), "option_id": string(option), "kind": string(domainpricing.SpecialRecurring), "weekday": int(weekday)}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
}

func (r SpecialRepository) ListByListing(ctx context.Context, id domainlistings.ListingID) ([]domainpricing.SpecialPricing, error) {
	return r.find(ctx, bson.M{"listing_id": string(id)}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
}

func (r SpecialRepository) Save(ctx context.Context, s *domainpricing.SpecialPricing) error {
	doc := specialDocument{
		ID:         s.ID,
		ListingID:  string(s.ListingID),
		OptionID:   string(s.OptionID),
		Kind:       string(s.Kind),
		Weekday:    int(s.Weekday),
		PriceMinor: s.Price.Amount,
		Currency:   s.Price.Currency,
		Reason:     s.Reason,
		CreatedAt:  s.CreatedAt,
	}
	if s.Kind == domainpricing.SpecialSpecific {
		doc.Date = s.Date.String()
	}
	if s.ValidFrom != nil {
		doc.ValidFrom = s.ValidFrom.String()
	}
	if s.ValidUntil != nil {
		doc.ValidUntil = s.ValidUntil.String()
	}
	_, err := r.col(colSpecials).ReplaceOne(r.bind(ctx), bson.M{"_id": doc.ID}, doc, upsert())
	return translate(err)
}

func (r SpecialRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domainpricing.SpecialPricing, error) {
	cur, err := r.col(colSpecials).Find(r.bind(ctx), filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []specialDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domainpricing.SpecialPricing, 0, len(docs))
	for _, d := range docs {
		sp, err := d.toSpecial()
		if err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, nil
}

func (d specialDocument) toSpecial() (domainpricing.SpecialPricing, error) {
	sp := domainpricing.SpecialPricing{
		ID:        d.ID,
		ListingID: domainlistings.ListingID(d.ListingID),
		OptionID:  domainpricing.OptionID(d.OptionID),
		Kind:      domainpricing.SpecialKind(d.Kind),
		Weekday:   calendar.Weekday(d.Weekday),
		Price:     money.Money{Amount: d.PriceMinor, Currency: d.Currency},
		Reason:    d.Reason,
		CreatedAt: d.CreatedAt.UTC(),
	}
	var err error
	if d.Date != "" {
		if sp.Date, err = calendar.ParseDate(d.Date); err != nil {
			return sp, err
		}
	}
	if sp.ValidFrom, err = optionalDate(d.ValidFrom); err != nil {
		return sp, err
	}
	if sp.ValidUntil, err = optionalDate(d.ValidUntil); err != nil {
		return sp, err
	}
	return sp, nil
}

func optionalDate(raw string) (*calendar.Date, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := calendar.ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

type AvailabilityRepository struct{ store }

type slotDocument struct {
	ID          string    `bson:"_id"`
	ListingID   string    `bson:"listing_id"`
	Start       time.Time `bson:"start"`
	End         time.Time `bson:"end"`
	IsAvailable bool      `bson:"is_available"`
	UnitType    string    `bson:"unit_type"`
	CreatedAt   time.Time `bson:"created_at"`
}

type blockDocument struct {
	ID        string    `bson:"_id"`
	ListingID string    `bson:"listing_id"`
	Start     time.Time `bson:"start"`
	End       time.Time `bson:"end"`
	Reason    string    `bson:"reason"`
	CreatedAt time.Time `bson:"created_at"`
}

type dayFlagDocument struct {
	ListingID   string `bson:"listing_id"`
	Date        string `bson:"date"`
	IsAvailable bool   `bson:"is_available"`
}

var byStart = bson.D{{Key: "start", Value: 1}, {Key: "_id", Value: 1}}

func (r AvailabilityRepository) SlotsIntersecting(ctx context.Context, id domainlistings.ListingID, window daterange.DateRange) ([]domainavailability.AvailableSlot, error) {
	cur, err := r.col(colSlots).Find(r.bind(ctx), overlapFilter(id, window), options.Find().SetSort(byStart))
	if err != nil {
		return nil, err
	}
	var docs []slotDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domainavailability.AvailableSlot, 0, len(docs))
	for _, d := range docs {
		out = append(out, domainavailability.AvailableSlot{
			ID:          domainavailability.SlotID(d.ID),
			ListingID:   domainlistings.ListingID(d.ListingID),
			Range:       daterange.DateRange{Start: d.Start.UTC(), End: d.End.UTC()},
			IsAvailable: d.IsAvailable,
			UnitType:    domainlistings.UnitType(d.UnitType),
			CreatedAt:   d.CreatedAt.UTC(),
		})
	}
	return out, nil
}

func (r AvailabilityRepository) HasSlots(ctx context.Context, id domainlistings.ListingID) (bool, error) {
	n, err := r.col(colSlots).CountDocuments(r.bind(ctx), bson.M{"listing_id": string(id)}, options.Count().SetLimit(1))
	return n > 0, err
}

func (r AvailabilityRepository) BlocksOverlapping(ctx context.Context, id domainlistings.ListingID, window daterange.DateRange) ([]domainavailability.BlockedDate, error) {
	cur, err := r.col(colBlocks).Find(r.bind(ctx), overlapFilter(id, window), options.Find().SetSort(byStart))
	if err != nil {
		return nil, err
	}
	var docs []blockDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domainavailability.BlockedDate, 0, len(docs))
	for _, d := range docs {
		out = append(out, domainavailability.BlockedDate{
			ID:        domainavailability.BlockID(d.ID),
			ListingID: domainlistings.ListingID(d.ListingID),
			Range:     daterange.DateRange{Start: d.Start.UTC(), End: d.End.UTC()},
			Reason:    d.Reason,
			CreatedAt: d.CreatedAt.UTC(),
		})
	}
	return out, nil
}

func (r AvailabilityRepository) DayFlags(ctx context.Context, id domainlistings.ListingID, from, to calendar.Date) ([]domainavailability.DayFlag, error) {
	filter := bson.M{"listing_id": string(id), "date": bson.M{"$gte": from.String(), "$lte": to.String()}}
	cur, err := r.col(colDayFlags).Find(r.bind(ctx), filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []dayFlagDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domainavailability.DayFlag, 0, len(docs))
	for _, d := range docs {
		date, err := calendar.ParseDate(d.Date)
		if err != nil {
			return nil, err
		}
		out = append(out, domainavailability.DayFlag{ListingID: id, Date: date, IsAvailable: d.IsAvailable})
	}
	return out, nil
}

func (r AvailabilityRepository) SaveSlot(ctx context.Context, s domainavailability.AvailableSlot) error {
	doc := slotDocument{
		ID:          string(s.ID),
		ListingID:   string(s.ListingID),
		Start:       s.Range.Start,
		End:         s.Range.End,
		IsAvailable: s.IsAvailable,
		UnitType:    string(s.UnitType),
		CreatedAt:   s.CreatedAt,
	}
	_, err := r.col(colSlots).ReplaceOne(r.bind(ctx), bson.M{"_id": doc.ID}, doc, upsert())
	return translate(err)
}

func (r AvailabilityRepository) DeleteSlot(ctx context.Context, id domainlistings.ListingID, slot domainavailability.SlotID) error {
	res, err := r.col(colSlots).DeleteOne(r.bind(ctx), bson.M{"_id": string(slot), "listing_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domainavailability.ErrSlotNotFound
	}
	return nil
}

func (r AvailabilityRepository) SaveBlock(ctx context.Context, b domainavailability.BlockedDate) error {
	doc := blockDocument{
		ID:        string(b.ID),
		ListingID: string(b.ListingID),
		Start:     b.Range.Start,
		End:       b.Range.End,
		Reason:    b.Reason,
		CreatedAt: b.CreatedAt,
	}
	_, err := r.col(colBlocks).ReplaceOne(r.bind(ctx), bson.M{"_id": doc.ID}, doc, upsert())
	return translate(err)
}

func (r AvailabilityRepository) DeleteBlock(ctx context.Context, id domainlistings.ListingID, block domainavailability.BlockID) error {
	res, err := r.col(colBlocks).DeleteOne(r.bind(ctx), bson.M{"_id": string(block), "listing_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domainavailability.ErrBlockNotFound
	}
	return nil
}

func (r AvailabilityRepository) SaveDayFlag(ctx context.Context, flag domainavailability.DayFlag) error {
	doc := dayFlagDocument{ListingID: string(flag.ListingID), Date: flag.Date.String(), IsAvailable: flag.IsAvailable}
	filter := bson.M{"listing_id": doc.ListingID, "date": doc.Date}
	_, err := r.col(colDayFlags).ReplaceOne(r.bind(ctx), filter, doc, upsert())
	return translate(err)
}

// BookingRepository re-checks overlap before every occupying write; the
// listing lock document makes concurrent check-and-insert pairs conflict.
type BookingRepository struct{ store }

type bookingDocument struct {
	ID              string    `bson:"_id"`
	ListingID       string    `bson:"listing_id"`
	GuestID         string    `bson:"guest_id"`
	Start           time.Time `bson:"start"`
	End             time.Time `bson:"end"`
	Status          string    `bson:"status"`
	PricingOptionID string    `bson:"pricing_option_id"`
	TotalMinor      int64     `bson:"total_minor"`
	Currency        string    `bson:"currency"`
	CancelReason    string    `bson:"cancel_reason"`
	CreatedAt       time.Time `bson:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at"`
	Version         int64     `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:              string(b.ID),
		ListingID:       string(b.ListingID),
		GuestID:         b.GuestID,
		Start:           b.Range.Start,
		End:             b.Range.End,
		Status:          string(b.Status),
		PricingOptionID: string(b.PricingOptionID),
		TotalMinor:      b.Total.Amount,
		Currency:        b.Total.Currency,
		CancelReason:    b.CancelReason,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
		Version:         b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	return &domainbooking.Booking{
		ID:              domainbooking.BookingID(d.ID),
		ListingID:       domainlistings.ListingID(d.ListingID),
		GuestID:         d.GuestID,
		Range:           daterange.DateRange{Start: d.Start.UTC(), End: d.End.UTC()},
		Status:          domainbooking.Status(d.Status),
		PricingOptionID: domainpricing.OptionID(d.PricingOptionID),
		Total:           money.Money{Amount: d.TotalMinor, Currency: d.Currency},
		CancelReason:    d.CancelReason,
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
		Version:         d.Version,
	}
}

func (r BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col(colBookings).FindOne(r.bind(ctx), bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r BookingRepository) Insert(ctx context.Context, b *domainbooking.Booking) error {
	if b.Status.Occupies() {
		taken, err := r.occupied(ctx, b)
		if err != nil {
			return err
		}
		if taken {
			return domainbooking.ErrOverlapOnInsert
		}
	}
	_, err := r.col(colBookings).InsertOne(r.bind(ctx), newBookingDocument(b))
	return translate(err)
}

func (r BookingRepository) Update(ctx context.Context, b *domainbooking.Booking) error {
	if b.Status.Occupies() {
		taken, err := r.occupied(ctx, b)
		if err != nil {
			return err
		}
		if taken {
			return domainbooking.ErrOverlapOnInsert
		}
	}
	doc := newBookingDocument(b)
	doc.Version = b.Version + 1
	res, err := r.col(colBookings).ReplaceOne(r.bind(ctx), bson.M{"_id": doc.ID, "version": b.Version}, doc)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		if _, err := r.ByID(ctx, b.ID); err != nil {
			return err
		}
		return domainbooking.ErrStaleVersion
	}
	b.Version = doc.Version
	return nil
}

func (r BookingRepository) occupied(ctx context.Context, b *domainbooking.Booking) (bool, error) {
	filter := overlapFilter(b.ListingID, b.Range)
	filter["_id"] = bson.M{"$ne": string(b.ID)}
	filter["status"] = bson.M{"$in": statusStrings(domainbooking.OccupyingStatuses)}
	n, err := r.col(colBookings).CountDocuments(r.bind(ctx), filter, options.Count().SetLimit(1))
	return n > 0, err
}

func (r BookingRepository) ListOverlapping(ctx context.Context, listing domainlistings.ListingID, window daterange.DateRange, statuses []domainbooking.Status) ([]*domainbooking.Booking, error) {
	filter := overlapFilter(listing, window)
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statusStrings(statuses)}
	}
	return r.find(ctx, filter)
}

func (r BookingRepository) ListByListing(ctx context.Context, listing domainlistings.ListingID, statuses []domainbooking.Status) ([]*domainbooking.Booking, error) {
	filter := bson.M{"listing_id": string(listing)}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statusStrings(statuses)}
	}
	return r.find(ctx, filter)
}

func (r BookingRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"guest_id": guestID})
}

func (r BookingRepository) find(ctx context.Context, filter bson.M) ([]*domainbooking.Booking, error) {
	cur, err := r.col(colBookings).Find(r.bind(ctx), filter, options.Find().SetSort(byStart))
	if err != nil {
		return nil, err
	}
	var docs []bookingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainbooking.Booking, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAggregate())
	}
	return out, nil
}

func statusStrings(statuses []domainbooking.Status) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}
