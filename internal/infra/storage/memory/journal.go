package memory

import (
	"context"
	"slices"
	"sync"

	domainavailability "reservations/internal/domain/availability"
	domainbooking "reservations/internal/domain/booking"
	domainlistings "reservations/internal/domain/listings"
	domainpricing "reservations/internal/domain/pricing"
)

// journal collects undo steps for writes made through one unit. Steps restore
// whole per-key state, so they rely on the listing lock to keep other units
// off the same keys until the unit finishes.
type journal struct {
	mu    sync.Mutex
	steps []func()
}

func (j *journal) record(step func()) {
	j.mu.Lock()
	j.steps = append(j.steps, step)
	j.mu.Unlock()
}

func (j *journal) unwind() {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i := len(j.steps) - 1; i >= 0; i-- {
		j.steps[i]()
	}
	j.steps = nil
}

func (j *journal) discard() {
	j.mu.Lock()
	j.steps = nil
	j.mu.Unlock()
}

// undoKey captures the current value under key and returns a step that puts
// it back, deleting the key when it was absent.
func undoKey[K comparable, V any](mu *sync.RWMutex, m map[K]V, key K, clone func(V) V) func() {
	mu.RLock()
	prev, had := m[key]
	if had && clone != nil {
		prev = clone(prev)
	}
	mu.RUnlock()
	return func() {
		mu.Lock()
		defer mu.Unlock()
		if had {
			m[key] = prev
			return
		}
		delete(m, key)
	}
}

// guard runs write and records undo only when the write went through.
func (j *journal) guard(undo func(), write func() error) error {
	if err := write(); err != nil {
		return err
	}
	j.record(undo)
	return nil
}

type journaledListings struct {
	*ListingRepository
	j *journal
}

func (v journaledListings) Save(ctx context.Context, listing *domainlistings.Listing) error {
	undo := undoKey(&v.mu, v.items, listing.ID, nil)
	return v.j.guard(undo, func() error { return v.ListingRepository.Save(ctx, listing) })
}

type journaledOptions struct {
	*PricingRepository
	j *journal
}

func (v journaledOptions) Save(ctx context.Context, option *domainpricing.PricingOption) error {
	undo := undoKey(&v.mu, v.options, option.ListingID, slices.Clone[[]domainpricing.PricingOption])
	return v.j.guard(undo, func() error { return v.PricingRepository.Save(ctx, option) })
}

type journaledSpecials struct {
	specialRepository
	j *journal
}

func (v journaledSpecials) Save(ctx context.Context, special *domainpricing.SpecialPricing) error {
	undo := undoKey(&v.r.mu, v.r.specials, special.ListingID, slices.Clone[[]domainpricing.SpecialPricing])
	return v.j.guard(undo, func() error { return v.specialRepository.Save(ctx, special) })
}

type journaledAvailability struct {
	*AvailabilityRepository
	j *journal
}

func (v journaledAvailability) SaveSlot(ctx context.Context, slot domainavailability.AvailableSlot) error {
	undo := undoKey(&v.mu, v.slots, slot.ListingID, slices.Clone[[]domainavailability.AvailableSlot])
	return v.j.guard(undo, func() error { return v.AvailabilityRepository.SaveSlot(ctx, slot) })
}

func (v journaledAvailability) DeleteSlot(ctx context.Context, id domainlistings.ListingID, slotID domainavailability.SlotID) error {
	undo := undoKey(&v.mu, v.slots, id, slices.Clone[[]domainavailability.AvailableSlot])
	return v.j.guard(undo, func() error { return v.AvailabilityRepository.DeleteSlot(ctx, id, slotID) })
}

func (v journaledAvailability) SaveBlock(ctx context.Context, block domainavailability.BlockedDate) error {
	undo := undoKey(&v.mu, v.blocks, block.ListingID, slices.Clone[[]domainavailability.BlockedDate])
	return v.j.guard(undo, func() error { return v.AvailabilityRepository.SaveBlock(ctx, block) })
}

func (v journaledAvailability) DeleteBlock(ctx context.Context, id domainlistings.ListingID, blockID domainavailability.BlockID) error {
	undo := undoKey(&v.mu, v.blocks, id, slices.Clone[[]domainavailability.BlockedDate])
	return v.j.guard(undo, func() error { return v.AvailabilityRepository.DeleteBlock(ctx, id, blockID) })
}

func (v journaledAvailability) SaveDayFlag(ctx context.Context, flag domainavailability.DayFlag) error {
	undo := undoKey(&v.mu, v.flags, dayKey{listing: flag.ListingID, date: flag.Date}, nil)
	return v.j.guard(undo, func() error { return v.AvailabilityRepository.SaveDayFlag(ctx, flag) })
}

type journaledBookings struct {
	*BookingRepository
	j *journal
}

func (v journaledBookings) Insert(ctx context.Context, booking *domainbooking.Booking) error {
	undo := undoKey(&v.mu, v.items, booking.ID, nil)
	return v.j.guard(undo, func() error { return v.BookingRepository.Insert(ctx, booking) })
}

func (v journaledBookings) Update(ctx context.Context, booking *domainbooking.Booking) error {
	undo := undoKey(&v.mu, v.items, booking.ID, nil)
	return v.j.guard(undo, func() error { return v.BookingRepository.Update(ctx, booking) })
}
