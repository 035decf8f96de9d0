package listings

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"reservations/internal/app/commands"
	"reservations/internal/app/dto"
	"reservations/internal/app/handlers/support"
	"reservations/internal/app/outbox"
	"reservations/internal/app/uow"
	domainavailability "reservations/internal/domain/availability"
	domainlistings "reservations/internal/domain/listings"
	"reservations/internal/domain/shared/calendar"
	"reservations/internal/domain/shared/clock"
)

const (
	addSlotKey      = "host.availability.add_slot"
	removeSlotKey   = "host.availability.remove_slot"
	blockDatesKey   = "host.availability.block"
	unblockDatesKey = "host.availability.unblock"
	setDayFlagsKey  = "host.availability.set_day_flags"
)

// AvailabilityHandlers groups the host edits of availability data. Each edit
// runs under the listing lock so it serializes with booking inserts.
type AvailabilityHandlers struct {
	Clock   clock.Clock
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
}

type AddSlotCommand struct {
	ListingID   string
	HostID      string
	SlotID      string
	Start       time.Time
	End         time.Time
	IsAvailable bool
}

func (c AddSlotCommand) Key() string { return addSlotKey }

type RemoveSlotCommand struct {
	ListingID string
	HostID    string
	SlotID    string
}

func (c RemoveSlotCommand) Key() string { return removeSlotKey }

type BlockDatesCommand struct {
	ListingID string
	HostID    string
	BlockID   string
	Start     time.Time
	End       time.Time
	Reason    string
}

func (c BlockDatesCommand) Key() string { return blockDatesKey }

type UnblockDatesCommand struct {
	ListingID string
	HostID    string
	BlockID   string
}

func (c UnblockDatesCommand) Key() string { return unblockDatesKey }

type SetDayFlagsCommand struct {
	ListingID   string
	HostID      string
	Dates       []string
	IsAvailable bool
}

func (c SetDayFlagsCommand) Key() string { return setDayFlagsKey }

func (h *AvailabilityHandlers) begin(ctx context.Context, listingID, hostID string) (uow.UnitOfWork, *domainlistings.Listing, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, nil, uow.ErrUnitOfWorkMissing
	}
	id := domainlistings.ListingID(listingID)
	if err := unit.LockListing(ctx, id); err != nil {
		return nil, nil, err
	}
	listing, err := loadOwned(ctx, unit, id, hostID)
	if err != nil {
		return nil, nil, err
	}
	return unit, listing, nil
}

func (h *AvailabilityHandlers) AddSlot(ctx context.Context, cmd AddSlotCommand) (*dto.Slot, error) {
	unit, listing, err := h.begin(ctx, cmd.ListingID, cmd.HostID)
	if err != nil {
		return nil, err
	}
	now := h.Clock.Now()
	slot, err := domainavailability.NewSlot(domainavailability.NewSlotParams{
		ID:          domainavailability.SlotID(newID(cmd.SlotID)),
		Listing:     listing,
		Start:       cmd.Start,
		End:         cmd.End,
		IsAvailable: cmd.IsAvailable,
		Now:         now,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Availability().SaveSlot(ctx, slot); err != nil {
		return nil, err
	}
	changes := &domainavailability.SlotChanges{ListingID: listing.ID}
	changes.SlotAdded(slot, now)
	if err := support.RecordEvents(ctx, h.Outbox, h.Encoder, changes); err != nil {
		return nil, err
	}
	out := dto.MapSlot(slot)
	return &out, nil
}

func (h *AvailabilityHandlers) RemoveSlot(ctx context.Context, cmd RemoveSlotCommand) (*struct{}, error) {
	unit, listing, err := h.begin(ctx, cmd.ListingID, cmd.HostID)
	if err != nil {
		return nil, err
	}
	if err := unit.Availability().DeleteSlot(ctx, listing.ID, domainavailability.SlotID(cmd.SlotID)); err != nil {
		return nil, err
	}
	changes := &domainavailability.SlotChanges{ListingID: listing.ID}
	changes.SlotRemoved(domainavailability.SlotID(cmd.SlotID), h.Clock.Now())
	if err := support.RecordEvents(ctx, h.Outbox, h.Encoder, changes); err != nil {
		return nil, err
	}
	return &struct{}{}, nil
}

func (h *AvailabilityHandlers) BlockDates(ctx context.Context, cmd BlockDatesCommand) (*dto.BlockedDate, error) {
	unit, listing, err := h.begin(ctx, cmd.ListingID, cmd.HostID)
	if err != nil {
		return nil, err
	}
	now := h.Clock.Now()
	block, err := domainavailability.NewBlockedDate(domainavailability.BlockID(newID(cmd.BlockID)), listing.ID, cmd.Start, cmd.End, cmd.Reason, now)
	if err != nil {
		return nil, err
	}
	if err := unit.Availability().SaveBlock(ctx, block); err != nil {
		return nil, err
	}
	changes := &domainavailability.SlotChanges{ListingID: listing.ID}
	changes.DateBlocked(block, now)
	if err := support.RecordEvents(ctx, h.Outbox, h.Encoder, changes); err != nil {
		return nil, err
	}
	out := dto.MapBlockedDate(block)
	return &out, nil
}

func (h *AvailabilityHandlers) UnblockDates(ctx context.Context, cmd UnblockDatesCommand) (*struct{}, error) {
	unit, listing, err := h.begin(ctx, cmd.ListingID, cmd.HostID)
	if err != nil {
		return nil, err
	}
	if err := unit.Availability().DeleteBlock(ctx, listing.ID, domainavailability.BlockID(cmd.BlockID)); err != nil {
		return nil, err
	}
	changes := &domainavailability.SlotChanges{ListingID: listing.ID}
	changes.DateUnblocked(domainavailability.BlockID(cmd.BlockID), h.Clock.Now())
	if err := support.RecordEvents(ctx, h.Outbox, h.Encoder, changes); err != nil {
		return nil, err
	}
	return &struct{}{}, nil
}

func (h *AvailabilityHandlers) SetDayFlags(ctx context.Context, cmd SetDayFlagsCommand) ([]dto.DayFlag, error) {
	unit, listing, err := h.begin(ctx, cmd.ListingID, cmd.HostID)
	if err != nil {
		return nil, err
	}
	now := h.Clock.Now()
	changes := &domainavailability.SlotChanges{ListingID: listing.ID}
	out := make([]dto.DayFlag, 0, len(cmd.Dates))
	for _, raw := range cmd.Dates {
		date, err := calendar.ParseDate(raw)
		if err != nil {
			return nil, err
		}
		flag := domainavailability.DayFlag{ListingID: listing.ID, Date: date, IsAvailable: cmd.IsAvailable}
		if err := unit.Availability().SaveDayFlag(ctx, flag); err != nil {
			return nil, err
		}
		changes.DayFlagSet(flag, now)
		out = append(out, dto.MapDayFlag(flag))
	}
	if err := support.RecordEvents(ctx, h.Outbox, h.Encoder, changes); err != nil {
		return nil, err
	}
	return out, nil
}

// Register attaches every availability command to bus.
func (h *AvailabilityHandlers) Register(bus *commands.InMemoryBus) {
	commands.RegisterHandler[AddSlotCommand, *dto.Slot](bus, addSlotKey, commands.HandlerFunc[AddSlotCommand, *dto.Slot](h.AddSlot))
	commands.RegisterHandler[RemoveSlotCommand, *struct{}](bus, removeSlotKey, commands.HandlerFunc[RemoveSlotCommand, *struct{}](h.RemoveSlot))
	commands.RegisterHandler[BlockDatesCommand, *dto.BlockedDate](bus, blockDatesKey, commands.HandlerFunc[BlockDatesCommand, *dto.BlockedDate](h.BlockDates))
	commands.RegisterHandler[UnblockDatesCommand, *struct{}](bus, unblockDatesKey, commands.HandlerFunc[UnblockDatesCommand, *struct{}](h.UnblockDates))
	commands.RegisterHandler[SetDayFlagsCommand, []dto.DayFlag](bus, setDayFlagsKey, commands.HandlerFunc[SetDayFlagsCommand, []dto.DayFlag](h.SetDayFlags))
}

func newID(raw string) string {
	if id := strings.TrimSpace(raw); id != "" {
		return id
	}
	return uuid.NewString()
}
