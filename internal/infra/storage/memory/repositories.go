package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domainavailability "reservations/internal/domain/availability"
	domainbooking "reservations/internal/domain/booking"
	domainlistings "reservations/internal/domain/listings"
	domainpricing "reservations/internal/domain/pricing"
	"reservations/internal/domain/shared/calendar"
	"reservations/internal/domain/shared/daterange"
	"reservations/internal/domain/shared/events"
	"reservations/internal/domain/shared/fault"
)

var ErrDuplicateBooking = fmt.Errorf("memory: booking id already stored: %w", fault.ErrConcurrencyConflict)

// ListingRepository keeps listings in memory. Stored values are copies.
type ListingRepository struct {
	mu    sync.RWMutex
	items map[domainlistings.ListingID]domainlistings.Listing
}

func NewListingRepository() *ListingRepository {
	return &ListingRepository{items: make(map[domainlistings.ListingID]domainlistings.Listing)}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	listing, ok := r.items[id]
	if !ok {
		return nil, domainlistings.ErrListingNotFound
	}
	return &listing, nil
}

func (r *ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *listing
	stored.EventRecorder = events.EventRecorder{}
	r.items[listing.ID] = stored
	return nil
}

// PricingRepository stores pricing options and special pricing rows.
type PricingRepository struct {
	mu       sync.RWMutex
	options  map[domainlistings.ListingID][]domainpricing.PricingOption
	specials map[domainlistings.ListingID][]domainpricing.SpecialPricing
}

func NewPricingRepository() *PricingRepository {
	return &PricingRepository{
		options:  make(map[domainlistings.ListingID][]domainpricing.PricingOption),
		specials: make(map[domainlistings.ListingID][]domainpricing.SpecialPricing),
	}
}

func (r *PricingRepository) ListByListing(ctx context.Context, id domainlistings.ListingID) ([]domainpricing.PricingOption, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domainpricing.PricingOption(nil), r.options[id]...), nil
}

func (r *PricingRepository) Save(ctx context.Context, option *domainpricing.PricingOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.options[option.ListingID]
	for i := range rows {
		if rows[i].ID == option.ID {
			rows[i] = *option
			return nil
		}
	}
	r.options[option.ListingID] = append(rows, *option)
	return nil
}

// Specials exposes the special pricing half of the repository.
func (r *PricingRepository) Specials() domainpricing.SpecialRepository {
	return specialRepository{r}
}

type specialRepository struct {
	r *PricingRepository
}

func (s specialRepository) SpecificFor(ctx context.Context, id domainlistings.ListingID, date calendar.Date, option domainpricing.OptionID) (*domainpricing.SpecialPricing, error) {
	s.r.mu.RLock()
	defer s.r.mu.RUnlock()
	for _, row := range s.r.specials[id] {
		if row.Kind == domainpricing.SpecialSpecific && row.OptionID == option && row.Date.Equal(date) {
			found := row
			return &found, nil
		}
	}
	return nil, domainpricing.ErrSpecialNotFound
}

func (s specialRepository) RecurringFor(ctx context.Context, id domainlistings.ListingID, weekday calendar.Weekday, option domainpricing.OptionID) ([]domainpricing.SpecialPricing, error) {
	s.r.mu.RLock()
	defer s.r.mu.RUnlock()
	var out []domainpricing.SpecialPricing
	for _, row := range s.r.specials[id] {
		if row.Kind == domainpricing.SpecialRecurring && row.OptionID == option && row.Weekday == weekday {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s specialRepository) ListByListing(ctx context.Context, id domainlistings.ListingID) ([]domainpricing.SpecialPricing, error) {
	s.r.mu.RLock()
	defer s.r.mu.RUnlock()
	return append([]domainpricing.SpecialPricing(nil), s.r.specials[id]...), nil
}

func (s specialRepository) Save(ctx context.Context, special *domainpricing.SpecialPricing) error {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	rows := s.r.specials[special.ListingID]
	for i := range rows {
		if rows[i].ID == special.ID {
			rows[i] = *special
			return nil
		}
	}
	s.r.specials[special.ListingID] = append(rows, *special)
	return nil
}

type dayKey struct {
	listing domainlistings.ListingID
	date    calendar.Date
}

// AvailabilityRepository keeps slots, blocked dates and day flags in memory.
type AvailabilityRepository struct {
	mu     sync.RWMutex
	slots  map[domainlistings.ListingID][]domainavailability.AvailableSlot
	blocks map[domainlistings.ListingID][]domainavailability.BlockedDate
	flags  map[dayKey]bool
}

func NewAvailabilityRepository() *AvailabilityRepository {
	return &AvailabilityRepository{
		slots:  make(map[domainlistings.ListingID][]domainavailability.AvailableSlot),
		blocks: make(map[domainlistings.ListingID][]domainavailability.BlockedDate),
		flags:  make(map[dayKey]bool),
	}
}

func (r *AvailabilityRepository) SlotsIntersecting(ctx context.Context, id domainlistings.ListingID, window daterange.DateRange) ([]domainavailability.AvailableSlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domainavailability.AvailableSlot
	for _, slot := range r.slots[id] {
		if slot.Range.Overlaps(window) {
			out = append(out, slot)
		}
	}
	return out, nil
}

func (r *AvailabilityRepository) HasSlots(ctx context.Context, id domainlistings.ListingID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.slots[id]) > 0, nil
}

func (r *AvailabilityRepository) BlocksOverlapping(ctx context.Context, id domainlistings.ListingID, window daterange.DateRange) ([]domainavailability.BlockedDate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domainavailability.BlockedDate
	for _, block := range r.blocks[id] {
		if block.Range.Overlaps(window) {
			out = append(out, block)
		}
	}
	return out, nil
}

func (r *AvailabilityRepository) DayFlags(ctx context.Context, id domainlistings.ListingID, from, to calendar.Date) ([]domainavailability.DayFlag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domainavailability.DayFlag
	for d := from; !d.After(to); d = d.AddDays(1) {
		if available, ok := r.flags[dayKey{listing: id, date: d}]; ok {
			out = append(out, domainavailability.DayFlag{ListingID: id, Date: d, IsAvailable: available})
		}
	}
	return out, nil
}

func (r *AvailabilityRepository) SaveSlot(ctx context.Context, slot domainavailability.AvailableSlot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.slots[slot.ListingID]
	for i := range rows {
		if rows[i].ID == slot.ID {
			rows[i] = slot
			return nil
		}
	}
	r.slots[slot.ListingID] = append(rows, slot)
	return nil
}

func (r *AvailabilityRepository) DeleteSlot(ctx context.Context, id domainlistings.ListingID, slotID domainavailability.SlotID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.slots[id]
	for i := range rows {
		if rows[i].ID == slotID {
			r.slots[id] = append(rows[:i:i], rows[i+1:]...)
			return nil
		}
	}
	return domainavailability.ErrSlotNotFound
}

func (r *AvailabilityRepository) SaveBlock(ctx context.Context, block domainavailability.BlockedDate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.blocks[block.ListingID]
	for i := range rows {
		if rows[i].ID == block.ID {
			rows[i] = block
			return nil
		}
	}
	r.blocks[block.ListingID] = append(rows, block)
	return nil
}

func (r *AvailabilityRepository) DeleteBlock(ctx context.Context, id domainlistings.ListingID, blockID domainavailability.BlockID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.blocks[id]
	for i := range rows {
		if rows[i].ID == blockID {
			r.blocks[id] = append(rows[:i:i], rows[i+1:]...)
			return nil
		}
	}
	return domainavailability.ErrBlockNotFound
}

func (r *AvailabilityRepository) SaveDayFlag(ctx context.Context, flag domainavailability.DayFlag) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flags[dayKey{listing: flag.ListingID, date: flag.Date}] = flag.IsAvailable
	return nil
}

// BookingRepository stores bookings in memory. Insert re-checks overlap so
// two writers that skipped the listing lock still cannot double book.
type BookingRepository struct {
	mu    sync.RWMutex
	items map[domainbooking.BookingID]domainbooking.Booking
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{items: make(map[domainbooking.BookingID]domainbooking.Booking)}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	booking, ok := r.items[id]
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	return &booking, nil
}

func (r *BookingRepository) Insert(ctx context.Context, booking *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[booking.ID]; exists {
		return ErrDuplicateBooking
	}
	for _, other := range r.items {
		if other.ListingID == booking.ListingID && other.Status.Occupies() && other.Range.Overlaps(booking.Range) {
			return domainbooking.ErrOverlapOnInsert
		}
	}
	r.items[booking.ID] = stripEvents(booking)
	return nil
}

func (r *BookingRepository) Update(ctx context.Context, booking *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[booking.ID]
	if !ok {
		return domainbooking.ErrBookingNotFound
	}
	if current.Version != booking.Version {
		return domainbooking.ErrStaleVersion
	}
	if booking.Status.Occupies() {
		for _, other := range r.items {
			if other.ID != booking.ID && other.ListingID == booking.ListingID && other.Status.Occupies() && other.Range.Overlaps(booking.Range) {
				return domainbooking.ErrOverlapOnInsert
			}
		}
	}
	booking.Version++
	r.items[booking.ID] = stripEvents(booking)
	return nil
}

func (r *BookingRepository) ListOverlapping(ctx context.Context, listing domainlistings.ListingID, window daterange.DateRange, statuses []domainbooking.Status) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domainbooking.Booking
	for _, b := range r.items {
		if b.ListingID != listing || !statusIn(b.Status, statuses) || !b.Range.Overlaps(window) {
			continue
		}
		item := b
		out = append(out, &item)
	}
	sortBookings(out)
	return out, nil
}

func (r *BookingRepository) ListByListing(ctx context.Context, listing domainlistings.ListingID, statuses []domainbooking.Status) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domainbooking.Booking
	for _, b := range r.items {
		if b.ListingID != listing || !statusIn(b.Status, statuses) {
			continue
		}
		item := b
		out = append(out, &item)
	}
	sortBookings(out)
	return out, nil
}

func (r *BookingRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domainbooking.Booking
	for _, b := range r.items {
		if b.GuestID != guestID {
			continue
		}
		item := b
		out = append(out, &item)
	}
	sortBookings(out)
	return out, nil
}

func stripEvents(b *domainbooking.Booking) domainbooking.Booking {
	stored := *b
	stored.EventRecorder = events.EventRecorder{}
	return stored
}

func statusIn(status domainbooking.Status, allowed []domainbooking.Status) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, s := range allowed {
		if s == status {
			return true
		}
	}
	return false
}

func sortBookings(items []*domainbooking.Booking) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Range.Start.Equal(items[j].Range.Start) {
			return items[i].ID < items[j].ID
		}
		return items[i].Range.Start.Before(items[j].Range.Start)
	})
}
