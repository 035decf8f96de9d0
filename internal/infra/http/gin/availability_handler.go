package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"reservations/internal/app/dto"
	availabilityapp "reservations/internal/app/handlers/availability"
	"reservations/internal/app/queries"
)

type AvailabilityHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h AvailabilityHandler) Check(c *gin.Context) {
	w, err := queryWindow(c)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	query := availabilityapp.CheckAvailabilityQuery{
		ListingID:     c.Param("id"),
		Start:         w.Start,
		End:           w.End,
		UnitType:      c.Query("unit_type"),
		BookingPeriod: w.BookingPeriod,
	}
	result, err := queries.Ask[availabilityapp.CheckAvailabilityQuery, dto.Availability](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) Conflicts(c *gin.Context) {
	start, err := parseInstant("start", c.Query("start"), false)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	end, err := parseInstant("end", c.Query("end"), true)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	query := availabilityapp.ListConflictsQuery{
		ListingID:        c.Param("id"),
		Start:            start,
		End:              end,
		ExcludeBookingID: strings.TrimSpace(c.Query("exclude_booking_id")),
	}
	result, err := queries.Ask[availabilityapp.ListConflictsQuery, dto.ConflictReport](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ AvailabilityHTTP = AvailabilityHandler{}
