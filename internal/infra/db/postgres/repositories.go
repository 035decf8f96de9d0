package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	domainavailability "reservations/internal/domain/availability"
	domainbooking "reservations/internal/domain/booking"
	domainlistings "reservations/internal/domain/listings"
	domainpricing "reservations/internal/domain/pricing"
	"reservations/internal/domain/shared/calendar"
	"reservations/internal/domain/shared/daterange"
	"reservations/internal/domain/shared/money"
)

type ListingRepository struct {
	q querier
}

func (r ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var l domainlistings.Listing
	var listingID, host, unit, mode string
	err := r.q.QueryRow(ctx, `
		SELECT id, host_id, title, unit_type, availability_mode, currency, version, created_at, updated_at
		FROM listings
		WHERE id = $1
	`, string(id)).Scan(&listingID, &host, &l.Title, &unit, &mode, &l.Currency, &l.Version, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domainlistings.ErrListingNotFound
	}
	if err != nil {
		return nil, err
	}
	l.ID = domainlistings.ListingID(listingID)
	l.Host = domainlistings.HostID(host)
	l.UnitType = domainlistings.UnitType(unit)
	l.AvailabilityMode = domainlistings.AvailabilityMode(mode)
	l.CreatedAt = l.CreatedAt.UTC()
	l.UpdatedAt = l.UpdatedAt.UTC()
	return &l, nil
}

func (r ListingRepository) Save(ctx context.Context, l *domainlistings.Listing) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO listings (id, host_id, title, unit_type, availability_mode, currency, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			unit_type = EXCLUDED.unit_type,
			availability_mode = EXCLUDED.availability_mode,
			currency = EXCLUDED.currency,
			version = EXCLUDED.version,
			updated_at = EXCLUDED.updated_at
	`, string(l.ID), string(l.Host), l.Title, string(l.UnitType), string(l.AvailabilityMode), l.Currency, l.Version, l.CreatedAt, l.UpdatedAt)
	return translate(err)
}

type OptionRepository struct {
	q querier
}

func (r OptionRepository) ListByListing(ctx context.Context, id domainlistings.ListingID) ([]domainpricing.PricingOption, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, listing_id, unit_type, duration, price_minor, currency, minimum_units, is_default, created_at
		FROM pricing_options
		WHERE listing_id = $1
		ORDER BY created_at, id
	`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domainpricing.PricingOption
	for rows.Next() {
		var o domainpricing.PricingOption
		var optionID, listingID, unit string
		if err := rows.Scan(&optionID, &listingID, &unit, &o.Duration, &o.Price.Amount, &o.Price.Currency, &o.MinimumUnits, &o.IsDefault, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.ID = domainpricing.OptionID(optionID)
		o.ListingID = domainlistings.ListingID(listingID)
		o.UnitType = domainlistings.UnitType(unit)
		o.CreatedAt = o.CreatedAt.UTC()
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r OptionRepository) Save(ctx context.Context, o *domainpricing.PricingOption) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO pricing_options (id, listing_id, unit_type, duration, price_minor, currency, minimum_units, is_default, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			unit_type = EXCLUDED.unit_type,
			duration = EXCLUDED.duration,
			price_minor = EXCLUDED.price_minor,
			currency = EXCLUDED.currency,
			minimum_units = EXCLUDED.minimum_units,
			is_default = EXCLUDED.is_default
	`, string(o.ID), string(o.ListingID), string(o.UnitType), o.Duration, o.Price.Amount, o.Price.Currency, o.MinimumUnits, o.IsDefault, o.CreatedAt)
	return translate(err)
}

type SpecialRepository struct {
	q querier
}

const specialColumns = `id, listing_id, option_id, kind, day, weekday, valid_from, valid_until, price_minor, currency, reason, created_at`

func (r SpecialRepository) SpecificFor(ctx context.Context, id domainlistings.ListingID, date calendar.Date, option domainpricing.OptionID) (*domainpricing.SpecialPricing, error) {
	items, err := r.list(ctx, `
		SELECT `+specialColumns+`
		FROM special_pricing
		WHERE listing_id = $1 AND option_id = $2 AND kind = 'specific' AND day = $3
		ORDER BY created_at DESC
		LIMIT 1
	`, string(id), string(option), date.Start())
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domainpricing.ErrSpecialNotFound
	}
	return &items[0], nil
}

func (r SpecialRepository) RecurringFor(ctx context.Context, id domainlistings.ListingID, weekday calendar.Weekday, option domainpricing.OptionID) ([]domainpricing.SpecialPricing, error) {
	return r.list(ctx, `
		SELECT `+specialColumns+`
		FROM special_pricing
		WHERE listing_id = $1 AND option_id = $2 AND kind = 'recurring' AND weekday = $3
		ORDER BY created_at, id
	`, string(id), string(option), int(weekday))
}

func (r SpecialRepository) ListByListing(ctx context.Context, id domainlistings.ListingID) ([]domainpricing.SpecialPricing, error) {
	return r.list(ctx, `
		SELECT `+specialColumns+`
		FROM special_pricing
		WHERE listing_id = $1
		ORDER BY created_at, id
	`, string(id))
}

func (r SpecialRepository) Save(ctx context.Context, s *domainpricing.SpecialPricing) error {
	var day *time.Time
	var weekday *int
	if s.Kind == domainpricing.SpecialSpecific {
		start := s.Date.Start()
		day = &start
	} else {
		w := int(s.Weekday)
		weekday = &w
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO special_pricing (`+specialColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			option_id = EXCLUDED.option_id,
			kind = EXCLUDED.kind,
			day = EXCLUDED.day,
			weekday = EXCLUDED.weekday,
			valid_from = EXCLUDED.valid_from,
			valid_until = EXCLUDED.valid_until,
			price_minor = EXCLUDED.price_minor,
			currency = EXCLUDED.currency,
			reason = EXCLUDED.reason
	`, s.ID, string(s.ListingID), string(s.OptionID), string(s.Kind), day, weekday,
		dateArg(s.ValidFrom), dateArg(s.ValidUntil), s.Price.Amount, s.Price.Currency, s.Reason, s.CreatedAt)
	return translate(err)
}

func (r SpecialRepository) list(ctx context.Context, sql string, args ...any) ([]domainpricing.SpecialPricing, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domainpricing.SpecialPricing
	for rows.Next() {
		var s domainpricing.SpecialPricing
		var listingID, optionID, kind string
		var day, validFrom, validUntil *time.Time
		var weekday *int
		if err := rows.Scan(&s.ID, &listingID, &optionID, &kind, &day, &weekday, &validFrom, &validUntil, &s.Price.Amount, &s.Price.Currency, &s.Reason, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.ListingID = domainlistings.ListingID(listingID)
		s.OptionID = domainpricing.OptionID(optionID)
		s.Kind = domainpricing.SpecialKind(kind)
		if day != nil {
			s.Date = calendar.DateOf(*day)
		}
		if weekday != nil {
			s.Weekday = calendar.Weekday(*weekday)
		}
		s.ValidFrom = dateFrom(validFrom)
		s.ValidUntil = dateFrom(validUntil)
		s.CreatedAt = s.CreatedAt.UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

func dateArg(d *calendar.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Start()
	return &t
}

func dateFrom(t *time.Time) *calendar.Date {
	if t == nil {
		return nil
	}
	d := calendar.DateOf(*t)
	return &d
}

type AvailabilityRepository struct {
	q querier
}

func (r AvailabilityRepository) SlotsIntersecting(ctx context.Context, id domainlistings.ListingID, window daterange.DateRange) ([]domainavailability.AvailableSlot, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, listing_id, start_time, end_time, is_available, unit_type, created_at
		FROM available_slots
		WHERE listing_id = $1 AND start_time < $3 AND end_time > $2
		ORDER BY start_time, id
	`, string(id), window.Start, window.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domainavailability.AvailableSlot
	for rows.Next() {
		var s domainavailability.AvailableSlot
		var slotID, listingID, unit string
		if err := rows.Scan(&slotID, &listingID, &s.Range.Start, &s.Range.End, &s.IsAvailable, &unit, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.ID = domainavailability.SlotID(slotID)
		s.ListingID = domainlistings.ListingID(listingID)
		s.UnitType = domainlistings.UnitType(unit)
		s.Range = utcRange(s.Range)
		s.CreatedAt = s.CreatedAt.UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r AvailabilityRepository) HasSlots(ctx context.Context, id domainlistings.ListingID) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM available_slots WHERE listing_id = $1)`, string(id)).Scan(&exists)
	return exists, err
}

func (r AvailabilityRepository) BlocksOverlapping(ctx context.Context, id domainlistings.ListingID, window daterange.DateRange) ([]domainavailability.BlockedDate, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, listing_id, start_time, end_time, reason, created_at
		FROM blocked_dates
		WHERE listing_id = $1 AND start_time < $3 AND end_time > $2
		ORDER BY start_time, id
	`, string(id), window.Start, window.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domainavailability.BlockedDate
	for rows.Next() {
		var b domainavailability.BlockedDate
		var blockID, listingID string
		if err := rows.Scan(&blockID, &listingID, &b.Range.Start, &b.Range.End, &b.Reason, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.ID = domainavailability.BlockID(blockID)
		b.ListingID = domainlistings.ListingID(listingID)
		b.Range = utcRange(b.Range)
		b.CreatedAt = b.CreatedAt.UTC()
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r AvailabilityRepository) DayFlags(ctx context.Context, id domainlistings.ListingID, from, to calendar.Date) ([]domainavailability.DayFlag, error) {
	rows, err := r.q.Query(ctx, `
		SELECT day, is_available
		FROM day_flags
		WHERE listing_id = $1 AND day BETWEEN $2 AND $3
		ORDER BY day
	`, string(id), from.Start(), to.Start())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domainavailability.DayFlag
	for rows.Next() {
		var day time.Time
		flag := domainavailability.DayFlag{ListingID: id}
		if err := rows.Scan(&day, &flag.IsAvailable); err != nil {
			return nil, err
		}
		flag.Date = calendar.DateOf(day)
		out = append(out, flag)
	}
	return out, rows.Err()
}

func (r AvailabilityRepository) SaveSlot(ctx context.Context, s domainavailability.AvailableSlot) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO available_slots (id, listing_id, start_time, end_time, is_available, unit_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			is_available = EXCLUDED.is_available,
			unit_type = EXCLUDED.unit_type
	`, string(s.ID), string(s.ListingID), s.Range.Start, s.Range.End, s.IsAvailable, string(s.UnitType), s.CreatedAt)
	return translate(err)
}

func (r AvailabilityRepository) DeleteSlot(ctx context.Context, id domainlistings.ListingID, slot domainavailability.SlotID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM available_slots WHERE listing_id = $1 AND id = $2`, string(id), string(slot))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainavailability.ErrSlotNotFound
	}
	return nil
}

func (r AvailabilityRepository) SaveBlock(ctx context.Context, b domainavailability.BlockedDate) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO blocked_dates (id, listing_id, start_time, end_time, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			reason = EXCLUDED.reason
	`, string(b.ID), string(b.ListingID), b.Range.Start, b.Range.End, b.Reason, b.CreatedAt)
	return translate(err)
}

func (r AvailabilityRepository) DeleteBlock(ctx context.Context, id domainlistings.ListingID, block domainavailability.BlockID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM blocked_dates WHERE listing_id = $1 AND id = $2`, string(id), string(block))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainavailability.ErrBlockNotFound
	}
	return nil
}

func (r AvailabilityRepository) SaveDayFlag(ctx context.Context, flag domainavailability.DayFlag) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO day_flags (listing_id, day, is_available)
		VALUES ($1, $2, $3)
		ON CONFLICT (listing_id, day) DO UPDATE SET is_available = EXCLUDED.is_available
	`, string(flag.ListingID), flag.Date.Start(), flag.IsAvailable)
	return translate(err)
}

// BookingRepository relies on the bookings_no_overlap exclusion constraint as
// the last line against double booking.
type BookingRepository struct {
	q querier
}

const bookingColumns = `id, listing_id, guest_id, start_time, end_time, status, pricing_option_id, total_minor, currency, cancel_reason, version, created_at, updated_at`

func (r BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	items, err := r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, string(id))
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domainbooking.ErrBookingNotFound
	}
	return items[0], nil
}

func (r BookingRepository) Insert(ctx context.Context, b *domainbooking.Booking) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, string(b.ID), string(b.ListingID), b.GuestID, b.Range.Start, b.Range.End, string(b.Status),
		string(b.PricingOptionID), b.Total.Amount, b.Total.Currency, b.CancelReason, b.Version, b.CreatedAt, b.UpdatedAt)
	if isExclusionViolation(err) {
		return domainbooking.ErrOverlapOnInsert
	}
	return translate(err)
}

func (r BookingRepository) Update(ctx context.Context, b *domainbooking.Booking) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE bookings SET
			start_time = $3,
			end_time = $4,
			status = $5,
			pricing_option_id = $6,
			total_minor = $7,
			currency = $8,
			cancel_reason = $9,
			updated_at = $10,
			version = version + 1
		WHERE id = $1 AND version = $2
	`, string(b.ID), b.Version, b.Range.Start, b.Range.End, string(b.Status), string(b.PricingOptionID),
		b.Total.Amount, b.Total.Currency, b.CancelReason, b.UpdatedAt)
	if isExclusionViolation(err) {
		return domainbooking.ErrOverlapOnInsert
	}
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.ByID(ctx, b.ID); err != nil {
			return err
		}
		return domainbooking.ErrStaleVersion
	}
	b.Version++
	return nil
}

func (r BookingRepository) ListOverlapping(ctx context.Context, listing domainlistings.ListingID, window daterange.DateRange, statuses []domainbooking.Status) ([]*domainbooking.Booking, error) {
	return r.list(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE listing_id = $1 AND start_time < $3 AND end_time > $2
			AND (cardinality($4::text[]) = 0 OR status = ANY($4))
		ORDER BY start_time, id
	`, string(listing), window.Start, window.End, statusStrings(statuses))
}

func (r BookingRepository) ListByListing(ctx context.Context, listing domainlistings.ListingID, statuses []domainbooking.Status) ([]*domainbooking.Booking, error) {
	return r.list(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE listing_id = $1 AND (cardinality($2::text[]) = 0 OR status = ANY($2))
		ORDER BY start_time, id
	`, string(listing), statusStrings(statuses))
}

func (r BookingRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	return r.list(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE guest_id = $1
		ORDER BY start_time, id
	`, guestID)
}

func (r BookingRepository) list(ctx context.Context, sql string, args ...any) ([]*domainbooking.Booking, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domainbooking.Booking
	for rows.Next() {
		var b domainbooking.Booking
		var bookingID, listingID, status, optionID string
		var total money.Money
		if err := rows.Scan(&bookingID, &listingID, &b.GuestID, &b.Range.Start, &b.Range.End, &status, &optionID,
			&total.Amount, &total.Currency, &b.CancelReason, &b.Version, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		b.ID = domainbooking.BookingID(bookingID)
		b.ListingID = domainlistings.ListingID(listingID)
		b.Status = domainbooking.Status(status)
		b.PricingOptionID = domainpricing.OptionID(optionID)
		b.Total = total
		b.Range = utcRange(b.Range)
		b.CreatedAt = b.CreatedAt.UTC()
		b.UpdatedAt = b.UpdatedAt.UTC()
		out = append(out, &b)
	}
	return out, rows.Err()
}

func statusStrings(statuses []domainbooking.Status) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

func utcRange(r daterange.DateRange) daterange.DateRange {
	return daterange.DateRange{Start: r.Start.UTC(), End: r.End.UTC()}
}
