package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"reservations/internal/app/commands"
	"reservations/internal/app/dto"
	listingapp "reservations/internal/app/handlers/listings"
)

type listingFixture struct {
	ID               string           `json:"id"`
	Host             string           `json:"host"`
	Title            string           `json:"title"`
	UnitType         string           `json:"unit_type"`
	AvailabilityMode string           `json:"availability_mode"`
	Currency         string           `json:"currency"`
	PricingOptions   []optionFixture  `json:"pricing_options"`
	Specials         []specialFixture `json:"special_pricing"`
	Slots            []slotFixture    `json:"slots"`
	Blocked          []blockFixture   `json:"blocked_dates"`
}

type optionFixture struct {
	ID           string `json:"id"`
	Duration     int    `json:"duration"`
	PriceMinor   int64  `json:"price_minor"`
	MinimumUnits int    `json:"minimum_units"`
	IsDefault    bool   `json:"is_default"`
}

type specialFixture struct {
	ID         string `json:"id"`
	OptionID   string `json:"option_id"`
	Kind       string `json:"kind"`
	Date       string `json:"date"`
	DayOfWeek  string `json:"day_of_week"`
	ValidFrom  string `json:"valid_from"`
	ValidUntil string `json:"valid_until"`
	PriceMinor int64  `json:"price_minor"`
	Reason     string `json:"reason"`
}

type slotFixture struct {
	ID          string    `json:"id"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	IsAvailable *bool     `json:"is_available"`
}

type blockFixture struct {
	ID     string    `json:"id"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Reason string    `json:"reason"`
}

// loadFixtures imports listings through the command bus so every backend is
// seeded the same way. Listings that already exist are left untouched.
func (a *application) loadFixtures(ctx context.Context, path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("listing fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		logger.Warn("listing fixtures file empty", "path", path)
		return nil
	}

	var fixtures []listingFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}
	for _, fx := range fixtures {
		if err := importListing(ctx, a.commands, fx); err != nil {
			if errors.Is(err, listingapp.ErrListingExists) {
				logger.Debug("fixture listing already stored", "listing_id", fx.ID)
				continue
			}
			logger.Error("fixture import failed", "listing_id", fx.ID, "error", err)
			continue
		}
		logger.Info("listing fixture imported", "listing_id", fx.ID)
	}
	return nil
}

func importListing(ctx context.Context, bus commands.Bus, fx listingFixture) error {
	listing, err := commands.Dispatch[listingapp.CreateListingCommand, *dto.Listing](ctx, bus, listingapp.CreateListingCommand{
		ListingID:        fx.ID,
		HostID:           fx.Host,
		Title:            fx.Title,
		UnitType:         fx.UnitType,
		AvailabilityMode: fx.AvailabilityMode,
		Currency:         fx.Currency,
	})
	if err != nil {
		return err
	}
	for _, o := range fx.PricingOptions {
		if _, err := commands.Dispatch[listingapp.AddPricingOptionCommand, *dto.PricingOption](ctx, bus, listingapp.AddPricingOptionCommand{
			ListingID:    listing.ID,
			HostID:       fx.Host,
			OptionID:     o.ID,
			UnitType:     listing.UnitType,
			Duration:     o.Duration,
			PriceMinor:   o.PriceMinor,
			MinimumUnits: o.MinimumUnits,
			IsDefault:    o.IsDefault,
		}); err != nil {
			return fmt.Errorf("pricing option %s: %w", o.ID, err)
		}
	}
	for _, s := range fx.Specials {
		if _, err := commands.Dispatch[listingapp.UpsertSpecialPricingCommand, *dto.SpecialPricing](ctx, bus, listingapp.UpsertSpecialPricingCommand{
			ListingID:  listing.ID,
			HostID:     fx.Host,
			SpecialID:  s.ID,
			OptionID:   s.OptionID,
			Kind:       s.Kind,
			Date:       s.Date,
			DayOfWeek:  s.DayOfWeek,
			ValidFrom:  s.ValidFrom,
			ValidUntil: s.ValidUntil,
			PriceMinor: s.PriceMinor,
			Reason:     s.Reason,
		}); err != nil {
			return fmt.Errorf("special pricing %s: %w", s.ID, err)
		}
	}
	for _, s := range fx.Slots {
		available := s.IsAvailable == nil || *s.IsAvailable
		if _, err := commands.Dispatch[listingapp.AddSlotCommand, *dto.Slot](ctx, bus, listingapp.AddSlotCommand{
			ListingID:   listing.ID,
			HostID:      fx.Host,
			SlotID:      s.ID,
			Start:       s.Start,
			End:         s.End,
			IsAvailable: available,
		}); err != nil {
			return fmt.Errorf("slot %s: %w", s.ID, err)
		}
	}
	for _, b := range fx.Blocked {
		if _, err := commands.Dispatch[listingapp.BlockDatesCommand, *dto.BlockedDate](ctx, bus, listingapp.BlockDatesCommand{
			ListingID: listing.ID,
			HostID:    fx.Host,
			BlockID:   b.ID,
			Start:     b.Start,
			End:       b.End,
			Reason:    b.Reason,
		}); err != nil {
			return fmt.Errorf("blocked date %s: %w", b.ID, err)
		}
	}
	return nil
}

func fixturesPath(configured string) string {
	if configured != "" {
		return configured
	}
	candidates := []string{
		filepath.Join("data", "listings.json"),
		filepath.Join("..", "..", "data", "listings.json"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return candidates[0]
}
