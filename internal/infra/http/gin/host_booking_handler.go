package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"reservations/internal/app/commands"
	bookingapp "reservations/internal/app/handlers/booking"
)

// HostBookingHandler covers the host side of the booking lifecycle.
type HostBookingHandler struct {
	Commands commands.Bus
	Logger   *slog.Logger
}

func (h HostBookingHandler) Confirm(c *gin.Context) {
	transition(c, h.Commands, h.Logger, bookingapp.TransitionBookingCommand{
		BookingID:  c.Param("id"),
		Transition: bookingapp.TransitionConfirm,
	})
}

func (h HostBookingHandler) Complete(c *gin.Context) {
	transition(c, h.Commands, h.Logger, bookingapp.TransitionBookingCommand{
		BookingID:  c.Param("id"),
		Transition: bookingapp.TransitionComplete,
	})
}

// Revalidate re-checks the listing's pending bookings on demand.
func (h HostBookingHandler) Revalidate(c *gin.Context) {
	cmd := bookingapp.RevalidatePendingBookingsCommand{ListingID: c.Param("id")}
	result, err := commands.Dispatch[bookingapp.RevalidatePendingBookingsCommand, *bookingapp.RevalidatePendingBookingsResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ HostBookingHTTP = HostBookingHandler{}
