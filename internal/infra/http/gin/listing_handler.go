package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"reservations/internal/app/dto"
	bookingapp "reservations/internal/app/handlers/booking"
	listingapp "reservations/internal/app/handlers/listings"
	pricingapp "reservations/internal/app/handlers/pricing"
	"reservations/internal/app/queries"
	"reservations/internal/domain/shared/calendar"
)

// ListingHandler serves the public read side of a listing.
type ListingHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h ListingHandler) Get(c *gin.Context) {
	query := listingapp.GetListingQuery{ListingID: c.Param("id")}
	result, err := queries.Ask[listingapp.GetListingQuery, listingapp.ListingDetail](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Price(c *gin.Context) {
	raw := c.Query("date")
	var date calendar.Date
	if raw != "" {
		t, err := parseInstant("date", raw, false)
		if err != nil {
			writeError(c, h.Logger, err)
			return
		}
		date = calendar.DateOf(t)
	}
	query := pricingapp.EffectivePriceQuery{
		ListingID:       c.Param("id"),
		Date:            date,
		PricingOptionID: c.Query("pricing_option_id"),
	}
	result, err := queries.Ask[pricingapp.EffectivePriceQuery, dto.EffectivePrice](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Quote(c *gin.Context) {
	w, err := queryWindow(c)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	query := pricingapp.QuoteQuery{
		ListingID:       c.Param("id"),
		Start:           w.Start,
		End:             w.End,
		BookingPeriod:   w.BookingPeriod,
		PricingOptionID: c.Query("pricing_option_id"),
	}
	result, err := queries.Ask[pricingapp.QuoteQuery, dto.Quote](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Bookings(c *gin.Context) {
	query := bookingapp.ListListingBookingsQuery{
		ListingID: c.Param("id"),
		Statuses:  splitList(c.Query("status")),
	}
	result, err := queries.Ask[bookingapp.ListListingBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ ListingHTTP = ListingHandler{}
