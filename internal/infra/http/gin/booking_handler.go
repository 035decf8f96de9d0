package ginserver

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"reservations/internal/app/commands"
	"reservations/internal/app/dto"
	bookingapp "reservations/internal/app/handlers/booking"
	"reservations/internal/app/queries"
)

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type createBookingRequest struct {
	ListingID       string `json:"listing_id"`
	GuestID         string `json:"guest_id"`
	Start           string `json:"start"`
	End             string `json:"end"`
	UnitType        string `json:"unit_type"`
	BookingPeriod   int    `json:"booking_period"`
	PricingOptionID string `json:"pricing_option_id"`
}

type rescheduleRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// rejection is the body of a 409 for a window that is simply not bookable.
type rejection struct {
	errorResponse
	Reason    string   `json:"reason"`
	Conflicts []string `json:"conflicts,omitempty"`
}

func (h BookingHandler) Create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	period := ""
	if req.BookingPeriod != 0 {
		period = strconv.Itoa(req.BookingPeriod)
	}
	w, err := parseWindow(req.Start, req.End, period)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	cmd := bookingapp.RequestBookingCommand{
		CommandID:       generateCommandID(),
		ListingID:       strings.TrimSpace(req.ListingID),
		GuestID:         strings.TrimSpace(req.GuestID),
		Start:           w.Start,
		End:             w.End,
		UnitType:        req.UnitType,
		BookingPeriod:   w.BookingPeriod,
		PricingOptionID: strings.TrimSpace(req.PricingOptionID),
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[bookingapp.RequestBookingCommand, *bookingapp.RequestBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	if !result.Available {
		c.JSON(http.StatusConflict, rejection{
			errorResponse: errorResponse{Error: "window is not available", Code: "not_available"},
			Reason:        result.Reason,
			Conflicts:     result.Conflicts,
		})
		return
	}
	c.Header("Location", "/api/v1/bookings/"+result.BookingID)
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) Get(c *gin.Context) {
	query := bookingapp.GetBookingQuery{BookingID: c.Param("id")}
	result, err := queries.Ask[bookingapp.GetBookingQuery, dto.Booking](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) ListByGuest(c *gin.Context) {
	query := bookingapp.ListGuestBookingsQuery{
		GuestID:  c.Param("id"),
		Statuses: splitList(c.Query("status")),
	}
	result, err := queries.Ask[bookingapp.ListGuestBookingsQuery, dto.GuestBookingCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Cancel(c *gin.Context) {
	var req cancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	transition(c, h.Commands, h.Logger, bookingapp.TransitionBookingCommand{
		BookingID:  c.Param("id"),
		Transition: bookingapp.TransitionCancel,
		Reason:     strings.TrimSpace(req.Reason),
	})
}

func (h BookingHandler) Reschedule(c *gin.Context) {
	var req rescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	w, err := parseWindow(req.Start, req.End, "")
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	cmd := bookingapp.RescheduleBookingCommand{BookingID: c.Param("id"), Start: w.Start, End: w.End}
	result, err := commands.Dispatch[bookingapp.RescheduleBookingCommand, *bookingapp.RescheduleBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	if !result.Available {
		c.JSON(http.StatusConflict, rejection{
			errorResponse: errorResponse{Error: "window is not available", Code: "not_available"},
			Reason:        result.Reason,
			Conflicts:     result.Conflicts,
		})
		return
	}
	c.JSON(http.StatusOK, result.Booking)
}

func transition(c *gin.Context, bus commands.Bus, logger *slog.Logger, cmd bookingapp.TransitionBookingCommand) {
	result, err := commands.Dispatch[bookingapp.TransitionBookingCommand, *dto.Booking](c.Request.Context(), bus, cmd)
	if err != nil {
		writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func generateCommandID() string {
	return uuid.NewString()
}

var _ BookingHTTP = BookingHandler{}
