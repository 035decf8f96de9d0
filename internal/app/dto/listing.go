package dto

import (
	"time"

	domainlistings "reservations/internal/domain/listings"
)

type Listing struct {
	ID               string    `json:"id"`
	HostID           string    `json:"host_id"`
	Title            string    `json:"title"`
	UnitType         string    `json:"unit_type"`
	AvailabilityMode string    `json:"availability_mode"`
	Currency         string    `json:"currency"`
	Version          int64     `json:"version"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func MapListing(l *domainlistings.Listing) Listing {
	return Listing{
		ID:               string(l.ID),
		HostID:           string(l.Host),
		Title:            l.Title,
		UnitType:         string(l.UnitType),
		AvailabilityMode: string(l.AvailabilityMode),
		Currency:         l.Currency,
		Version:          l.Version,
		CreatedAt:        l.CreatedAt,
		UpdatedAt:        l.UpdatedAt,
	}
}
