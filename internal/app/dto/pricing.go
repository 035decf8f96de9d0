package dto

import (
	"time"

	domainpricing "reservations/internal/domain/pricing"
)

type EffectivePrice struct {
	ListingID       string `json:"listing_id"`
	Date            string `json:"date"`
	PricingOptionID string `json:"pricing_option_id"`
	Price           string `json:"price"`
	AmountMinor     int64  `json:"amount_minor"`
	Currency        string `json:"currency"`
	Source          string `json:"source"`
	Reason          string `json:"reason,omitempty"`
}

func MapEffectivePrice(listingID string, p domainpricing.EffectivePrice) EffectivePrice {
	return EffectivePrice{
		ListingID:       listingID,
		Date:            p.Date.String(),
		PricingOptionID: string(p.OptionID),
		Price:           p.Price.String(),
		AmountMinor:     p.Price.Amount,
		Currency:        p.Price.Currency,
		Source:          string(p.Source),
		Reason:          p.Reason,
	}
}

type QuoteLine struct {
	Start  time.Time `json:"start"`
	Date   string    `json:"date"`
	Price  string    `json:"price"`
	Source string    `json:"source"`
	Reason string    `json:"reason,omitempty"`
}

type Quote struct {
	ListingID       string      `json:"listing_id"`
	PricingOptionID string      `json:"pricing_option_id"`
	Start           time.Time   `json:"start"`
	End             time.Time   `json:"end"`
	Units           int         `json:"units"`
	Total           MoneyDTO    `json:"total"`
	Lines           []QuoteLine `json:"lines"`
}

func MapQuote(q domainpricing.Quote) Quote {
	lines := make([]QuoteLine, 0, len(q.Lines))
	for _, line := range q.Lines {
		lines = append(lines, QuoteLine{
			Start:  line.Start,
			Date:   line.Date.String(),
			Price:  line.Price.String(),
			Source: string(line.Source),
			Reason: line.Reason,
		})
	}
	return Quote{
		ListingID:       string(q.ListingID),
		PricingOptionID: string(q.OptionID),
		Start:           q.Window.Start,
		End:             q.Window.End,
		Units:           q.Units,
		Total:           MapMoney(q.Total),
		Lines:           lines,
	}
}

type PricingOption struct {
	ID           string    `json:"id"`
	ListingID    string    `json:"listing_id"`
	UnitType     string    `json:"unit_type"`
	Duration     int       `json:"duration"`
	Price        MoneyDTO  `json:"price"`
	MinimumUnits int       `json:"minimum_units"`
	IsDefault    bool      `json:"is_default"`
	CreatedAt    time.Time `json:"created_at"`
}

func MapPricingOption(o domainpricing.PricingOption) PricingOption {
	return PricingOption{
		ID:           string(o.ID),
		ListingID:    string(o.ListingID),
		UnitType:     string(o.UnitType),
		Duration:     o.Duration,
		Price:        MapMoney(o.Price),
		MinimumUnits: o.MinimumUnits,
		IsDefault:    o.IsDefault,
		CreatedAt:    o.CreatedAt,
	}
}

type SpecialPricing struct {
	ID              string   `json:"id"`
	ListingID       string   `json:"listing_id"`
	PricingOptionID string   `json:"pricing_option_id"`
	Kind            string   `json:"kind"`
	Date            string   `json:"date,omitempty"`
	DayOfWeek       *int     `json:"day_of_week,omitempty"`
	ValidFrom       string   `json:"valid_from,omitempty"`
	ValidUntil      string   `json:"valid_until,omitempty"`
	Price           MoneyDTO `json:"price"`
	Reason          string   `json:"reason,omitempty"`
}

func MapSpecialPricing(s domainpricing.SpecialPricing) SpecialPricing {
	out := SpecialPricing{
		ID:              s.ID,
		ListingID:       string(s.ListingID),
		PricingOptionID: string(s.OptionID),
		Kind:            string(s.Kind),
		Price:           MapMoney(s.Price),
		Reason:          s.Reason,
	}
	switch s.Kind {
	case domainpricing.SpecialSpecific:
		out.Date = s.Date.String()
	case domainpricing.SpecialRecurring:
		dow := int(s.Weekday)
		out.DayOfWeek = &dow
		if s.ValidFrom != nil {
			out.ValidFrom = s.ValidFrom.String()
		}
		if s.ValidUntil != nil {
			out.ValidUntil = s.ValidUntil.String()
		}
	}
	return out
}
